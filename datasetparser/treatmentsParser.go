package datasetparser

import (
	"fmt"
	"strings"
	"sync"

	"github.com/symptomcheck/diagnosis-api/logging"
)

func makeTreatments(path string, wg *sync.WaitGroup) (map[string]string, error) {
	if wg != nil {
		defer wg.Done()
	}

	records, err := readCSVRecords(path)
	if err != nil {
		return nil, err
	}

	header := records[0]
	nameIdx := -1
	codeIdx := -1
	treatmentsIdx := -1
	for i, col := range header {
		switch strings.TrimSpace(col) {
		case "Name":
			nameIdx = i
		case "Code":
			codeIdx = i
		case "Treatments":
			treatmentsIdx = i
		}
	}

	// Some published versions of the lookup table label the disease column
	// "Code" instead of "Name"
	if nameIdx == -1 {
		nameIdx = codeIdx
	}
	if nameIdx == -1 {
		return nil, fmt.Errorf("treatment file %s must contain a 'Name' or 'Code' column", path)
	}
	if treatmentsIdx == -1 {
		return nil, fmt.Errorf("treatment file %s must contain a 'Treatments' column", path)
	}

	treatments := make(map[string]string, len(records)-1)
	lineCount := 0
	skippedMissingColumns := 0
	skippedEmptyNames := 0

	for _, record := range records[1:] {
		lineCount++

		// Skip rows too short to hold both columns we index
		if len(record) <= nameIdx || len(record) <= treatmentsIdx {
			skippedMissingColumns++
			continue
		}

		name := cleanCell(record[nameIdx])
		if name == "" {
			skippedEmptyNames++
			continue
		}

		// Lookups are case-insensitive on the disease name
		treatments[strings.ToLower(name)] = cleanCell(record[treatmentsIdx])
	}

	// Skip totals are only worth a log line when something was skipped
	if skippedMissingColumns > 0 || skippedEmptyNames > 0 {
		logging.Info("Treatment file skip statistics",
			"missing_columns", skippedMissingColumns,
			"empty_names", skippedEmptyNames,
			"total_lines", lineCount,
			"treatments_parsed", len(treatments))
	}

	fmt.Println("Treatment file conversion completed", "treatments_count", len(treatments))
	return treatments, nil
}

// cleanCell trims a raw CSV cell and normalizes the literal "nan" that
// spreadsheet exports leave behind for missing values.
func cleanCell(cell string) string {
	cell = strings.TrimSpace(cell)
	if strings.EqualFold(cell, "nan") {
		return ""
	}
	return cell
}
