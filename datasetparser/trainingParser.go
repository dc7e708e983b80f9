package datasetparser

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/logging"
)

// Label column the training file must carry. Every other column is treated
// as a symptom feature.
const labelColumn = "prognosis"

// Diseases with fewer samples than this cannot survive a stratified split
// and are dropped before training.
const minSamplesPerDisease = 2

func makeTrainingSet(path string, wg *sync.WaitGroup) (*entities.Dataset, error) {
	if wg != nil {
		defer wg.Done()
	}

	records, err := readCSVRecords(path)
	if err != nil {
		return nil, err
	}

	header := records[0]
	labelIdx := -1
	for i, col := range header {
		if strings.TrimSpace(col) == labelColumn {
			labelIdx = i
			break
		}
	}
	if labelIdx == -1 {
		return nil, fmt.Errorf("training file %s must contain a '%s' column", path, labelColumn)
	}

	// Column names are lower-cased and trimmed; their order defines the
	// feature vocabulary for every vector the classifier will ever see.
	symptoms := make([]string, 0, len(header)-1)
	for i, col := range header {
		if i == labelIdx {
			continue
		}
		symptoms = append(symptoms, strings.ToLower(strings.TrimSpace(col)))
	}

	if len(symptoms) == 0 {
		return nil, fmt.Errorf("training file %s has no symptom columns", path)
	}

	rows := make([]entities.TrainingRow, 0, len(records)-1)
	lineCount := 0
	skippedMissingColumns := 0
	skippedEmptyLabels := 0
	cellFormatErrors := 0

	for _, record := range records[1:] {
		lineCount++

		// Skip rows whose width disagrees with the header
		if len(record) != len(header) {
			skippedMissingColumns++
			continue
		}

		disease := strings.TrimSpace(record[labelIdx])
		if disease == "" {
			skippedEmptyLabels++
			continue
		}

		features := make([]float64, 0, len(symptoms))
		for i, cell := range record {
			if i == labelIdx {
				continue
			}
			cell = strings.TrimSpace(cell)
			if cell == "" {
				// Missing values count as symptom absent
				features = append(features, 0)
				continue
			}
			value, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				cellFormatErrors++
				value = 0
			}
			features = append(features, value)
		}

		rows = append(rows, entities.TrainingRow{
			Features: features,
			Disease:  disease,
		})
	}

	// Skip totals are only worth a log line when something was skipped
	if skippedMissingColumns > 0 || skippedEmptyLabels > 0 || cellFormatErrors > 0 {
		logging.Info("Training file skip statistics",
			"missing_columns", skippedMissingColumns,
			"empty_labels", skippedEmptyLabels,
			"cell_format_errors", cellFormatErrors,
			"total_lines", lineCount,
			"rows_parsed", len(rows))
	}

	rows, dropped, counts := filterRareDiseases(rows)

	if len(rows) == 0 {
		return nil, fmt.Errorf("no training rows remain in %s after filtering", path)
	}

	fmt.Println("Training file conversion completed", "rows_count", len(rows))

	return &entities.Dataset{
		Symptoms:        symptoms,
		Rows:            rows,
		DiseaseCounts:   counts,
		DroppedDiseases: dropped,
	}, nil
}

// filterRareDiseases removes every row whose disease has fewer than
// minSamplesPerDisease samples. The dropped names are reported so operators
// can see what the model will never predict.
func filterRareDiseases(rows []entities.TrainingRow) ([]entities.TrainingRow, []string, map[string]int) {
	counts := make(map[string]int)
	for _, row := range rows {
		counts[row.Disease]++
	}

	dropped := make([]string, 0)
	droppedSet := make(map[string]bool)
	for _, row := range rows {
		if counts[row.Disease] < minSamplesPerDisease && !droppedSet[row.Disease] {
			droppedSet[row.Disease] = true
			dropped = append(dropped, row.Disease)
		}
	}

	if len(dropped) == 0 {
		return rows, nil, counts
	}

	preview := dropped
	if len(preview) > 5 {
		preview = preview[:5]
	}
	logging.Warn("Dropping diseases with insufficient training data",
		"dropped_count", len(dropped),
		"first_diseases", preview)

	kept := make([]entities.TrainingRow, 0, len(rows))
	for _, row := range rows {
		if droppedSet[row.Disease] {
			continue
		}
		kept = append(kept, row)
	}

	for name := range droppedSet {
		delete(counts, name)
	}

	return kept, dropped, counts
}
