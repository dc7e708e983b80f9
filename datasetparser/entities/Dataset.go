package entities

// TrainingRow is a single labeled sample: one symptom-presence vector and
// the disease it maps to. Features are ordered exactly like Dataset.Symptoms.
type TrainingRow struct {
	Features []float64 `json:"features"`
	Disease  string    `json:"disease"`
}

// Dataset represents the fully loaded training data.
// Symptoms is the feature vocabulary in CSV column order; every input vector
// built for the classifier follows this order.
type Dataset struct {
	Symptoms        []string       `json:"symptoms"`
	Rows            []TrainingRow  `json:"rows"`
	DiseaseCounts   map[string]int `json:"diseaseCounts"`
	DroppedDiseases []string       `json:"droppedDiseases"`
}

// DiseaseNames returns the distinct disease labels present in the dataset,
// in first-seen row order.
func (d *Dataset) DiseaseNames() []string {
	seen := make(map[string]bool, len(d.DiseaseCounts))
	names := make([]string, 0, len(d.DiseaseCounts))
	for _, row := range d.Rows {
		if !seen[row.Disease] {
			seen[row.Disease] = true
			names = append(names, row.Disease)
		}
	}
	return names
}
