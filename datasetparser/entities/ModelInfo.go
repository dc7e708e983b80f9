package entities

import "time"

// DiseaseFrequency pairs a disease with its sample count in the training data.
type DiseaseFrequency struct {
	Disease string `json:"disease"`
	Count   int    `json:"count"`
}

// ModelInfo describes the currently published model: what it was trained on,
// how well it scored on the held-out split, and when.
type ModelInfo struct {
	Accuracy         float64            `json:"accuracy"`
	DiseaseCount     int                `json:"diseaseCount"`
	SymptomCount     int                `json:"symptomCount"`
	SampleCount      int                `json:"sampleCount"`
	TopDiseases      []DiseaseFrequency `json:"topDiseases"`
	DroppedDiseases  []string           `json:"droppedDiseases,omitempty"`
	TrainingDuration time.Duration      `json:"-"`
	TrainedAt        time.Time          `json:"trainedAt"`
}
