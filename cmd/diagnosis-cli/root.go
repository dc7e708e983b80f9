package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/symptomcheck/diagnosis-api/data"
	"github.com/symptomcheck/diagnosis-api/datasetparser"
	"github.com/symptomcheck/diagnosis-api/diagnosis"
	"github.com/symptomcheck/diagnosis-api/interfaces"
	"github.com/symptomcheck/diagnosis-api/scheduler"
)

var rootCmd = &cobra.Command{
	Use:   "diagnosis-cli",
	Short: "AI symptom checker in the terminal",
	Long: "diagnosis-cli trains the disease prediction model from the CSV data files\n" +
		"and starts an interactive chat that analyzes your symptoms.",
	RunE: runChat,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("training", "files/Training.csv", "Path to the training data CSV")
	rootCmd.PersistentFlags().String("treatments", "files/Diseases_Symptoms.csv", "Path to the treatments CSV")

	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(symptomsCmd)
	rootCmd.AddCommand(infoCmd)
}

// session bundles the trained model with the pieces the commands use
type session struct {
	container *data.DataContainer
	diagnoser interfaces.Diagnoser
}

// buildSession checks the data files, trains the model and wires the
// diagnoser. With verbose set it prints the training summary the chat opens
// with.
func buildSession(cmd *cobra.Command, verbose bool) (*session, error) {
	trainingPath, _ := cmd.Flags().GetString("training")
	treatmentsPath, _ := cmd.Flags().GetString("treatments")

	for _, path := range []string{trainingPath, treatmentsPath} {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("data file not found: %s", path)
		}
	}

	if verbose {
		fmt.Println("Loading data and training the model...")
	}

	container := data.NewDataContainer()
	retrainer := scheduler.NewScheduler(container, datasetparser.NewDatasetParser(),
		trainingPath, treatmentsPath, "06:00")
	if err := retrainer.RetrainNow(); err != nil {
		return nil, err
	}

	if verbose {
		printTrainingSummary(container)
	}

	return &session{
		container: container,
		diagnoser: diagnosis.New(container),
	}, nil
}

func printTrainingSummary(container *data.DataContainer) {
	info := container.GetModelInfo()
	fmt.Println("Model training completed!")
	fmt.Printf("   Accuracy: %.2f%%\n", info.Accuracy*100)
	fmt.Printf("   Diseases: %d\n", info.DiseaseCount)
	fmt.Printf("   Symptoms: %d\n", info.SymptomCount)
	fmt.Printf("   Samples:  %d\n", info.SampleCount)

	if len(info.TopDiseases) > 0 {
		fmt.Println("\nTop 5 most common diseases in dataset:")
		for _, frequency := range info.TopDiseases {
			fmt.Printf("   - %s: %d cases\n", frequency.Disease, frequency.Count)
		}
	}
}

// splitSymptoms turns comma-separated input into a clean token list
func splitSymptoms(raw string) []string {
	parts := strings.Split(raw, ",")
	symptoms := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			symptoms = append(symptoms, trimmed)
		}
	}
	return symptoms
}
