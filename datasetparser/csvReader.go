// Package datasetparser provides functionality for loading and parsing the
// symptom training data and the disease treatment lookup table from CSV files.
package datasetparser

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/symptomcheck/diagnosis-api/logging"
	"golang.org/x/text/encoding/charmap"
)

// readCSVRecords reads a whole CSV file into memory. Some published datasets
// ship in ISO-8859-1 rather than UTF-8, so the raw bytes are checked first
// and decoded when needed.
func readCSVRecords(path string) ([][]string, error) {
	csvFile, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := csvFile.Close(); err != nil {
			logging.Warn("Failed to close CSV file", "path", path, "error", err)
		}
	}()

	rawBytes, err := io.ReadAll(csvFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var reader io.Reader
	if utf8.Valid(rawBytes) {
		reader = bytes.NewReader(rawBytes)
	} else {
		// Anything that is not valid UTF-8 is treated as ISO-8859-1
		reader = charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(rawBytes))
	}

	csvReader := csv.NewReader(reader)
	// Rows are validated per record so a single short row doesn't abort the load
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no records found in %s", path)
	}

	return records, nil
}
