package entities

import "time"

// Prediction is one ranked classifier outcome.
type Prediction struct {
	Disease     string  `json:"disease"`
	Probability float64 `json:"probability"`
}

// Patient carries the optional free-text patient details attached to a
// diagnosis request. It is report metadata only and never reaches the model.
type Patient struct {
	Name   string `json:"name,omitempty"`
	Age    string `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// Diagnosis is the result of a single symptom analysis: the top ranked
// predictions, the treatment suggestion for the best match, and the
// valid/invalid partition of the symptoms the user reported.
type Diagnosis struct {
	ID              string       `json:"id"`
	Patient         Patient      `json:"patient,omitempty"`
	ValidSymptoms   []string     `json:"validSymptoms"`
	InvalidSymptoms []string     `json:"invalidSymptoms"`
	Predictions     []Prediction `json:"predictions"`
	Treatment       string       `json:"treatment"`
	Confidence      float64      `json:"confidence"`
	GeneratedAt     time.Time    `json:"generatedAt"`
}
