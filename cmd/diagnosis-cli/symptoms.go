package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var symptomsCmd = &cobra.Command{
	Use:   "symptoms",
	Short: "List the symptom vocabulary the model understands",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, _ := cmd.Flags().GetString("filter")

		sess, err := buildSession(cmd, false)
		if err != nil {
			return err
		}

		vocabulary := sess.container.GetVocabulary()
		matches := vocabulary
		if filter != "" {
			needle := strings.ToLower(strings.TrimSpace(filter))
			matches = make([]string, 0, len(vocabulary))
			for _, symptom := range vocabulary {
				if strings.Contains(symptom, needle) {
					matches = append(matches, symptom)
				}
			}
		}

		if filter != "" {
			fmt.Printf("%d symptoms matching %q:\n", len(matches), filter)
		} else {
			fmt.Printf("%d symptoms:\n", len(matches))
		}
		for _, symptom := range matches {
			fmt.Println("  " + symptom)
		}
		return nil
	},
}

func init() {
	symptomsCmd.Flags().String("filter", "", "Only list symptoms containing this text")
}
