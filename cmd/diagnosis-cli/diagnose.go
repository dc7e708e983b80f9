package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/diagnosis"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Run a single diagnosis and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, _ := cmd.Flags().GetString("symptoms")
		asJSON, _ := cmd.Flags().GetBool("json")

		symptoms := splitSymptoms(raw)
		if len(symptoms) == 0 {
			return errors.New(`no symptoms provided, use --symptoms "fever, headache"`)
		}

		sess, err := buildSession(cmd, !asJSON)
		if err != nil {
			return err
		}

		result, err := sess.diagnoser.Diagnose(symptoms, entities.Patient{})
		if err != nil {
			var noValid *diagnosis.NoValidSymptomsError
			if errors.As(err, &noValid) {
				return fmt.Errorf("%w (invalid: %s)", err, strings.Join(noValid.Invalid, ", "))
			}
			return err
		}

		if asJSON {
			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode diagnosis: %w", err)
			}
			fmt.Println(string(encoded))
			return nil
		}

		fmt.Println(diagnosis.FormatReport(result))
		return nil
	},
}

func init() {
	diagnoseCmd.Flags().String("symptoms", "", "Comma-separated symptoms to analyze")
	diagnoseCmd.Flags().Bool("json", false, "Print the diagnosis as JSON")
	_ = diagnoseCmd.MarkFlagRequired("symptoms")
}
