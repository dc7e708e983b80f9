package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Train the model and print its statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		sess, err := buildSession(cmd, false)
		if err != nil {
			return err
		}

		info := sess.container.GetModelInfo()
		fmt.Printf("Accuracy:          %.2f%%\n", info.Accuracy*100)
		fmt.Printf("Diseases:          %d\n", info.DiseaseCount)
		fmt.Printf("Symptoms:          %d\n", info.SymptomCount)
		fmt.Printf("Training samples:  %d\n", info.SampleCount)
		fmt.Printf("Training duration: %s\n", info.TrainingDuration)
		fmt.Printf("Trained at:        %s\n", info.TrainedAt.Format(time.RFC3339))

		if len(info.TopDiseases) > 0 {
			fmt.Println("\nMost common diseases in the training data:")
			for _, frequency := range info.TopDiseases {
				fmt.Printf("  - %s: %d cases\n", frequency.Disease, frequency.Count)
			}
		}

		if len(info.DroppedDiseases) > 0 {
			fmt.Printf("\nDropped for insufficient samples (%d):\n", len(info.DroppedDiseases))
			for _, disease := range info.DroppedDiseases {
				fmt.Println("  - " + disease)
			}
		}
		return nil
	},
}
