package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
	"github.com/symptomcheck/diagnosis-api/diagnosis"
)

const (
	headerSeparator = "=================================================="
	lineSeparator   = "--------------------------------------------------"
)

const welcomeMessage = `Welcome to the AI Medical Diagnosis Assistant

I'm here to help analyze your symptoms and provide preliminary insights.
Remember: This is for educational purposes only - always consult a doctor!

Let's start with some basic information about you.`

const helpText = `HELP MENU:
  - Enter your symptoms (e.g., "fever, headache, nausea")
  - Type 'suggestions' to see available symptoms
  - Type 'symptoms' to list every symptom the model knows
  - Type 'quit' to exit
  - Type 'help' to see this menu again

Remember: This is for educational purposes only!`

const goodbyeMessage = "Thank you for using the AI Medical Diagnosis Assistant!\n" +
	"Remember: Always consult a healthcare professional for medical advice."

// commonSymptoms are friendly starting points shown by the suggestions command
var commonSymptoms = []string{
	"fever", "headache", "nausea", "vomiting", "cough", "sneezing",
	"rash", "fatigue", "weakness", "pain", "breathing", "dizziness",
	"anxiety", "depression", "constipation", "diarrhea", "sweating",
}

// quickSuggestions are offered after nothing the user entered matched
var quickSuggestions = []string{
	"fever", "headache", "nausea", "cough", "fatigue", "pain", "sweating", "dizziness",
}

func runChat(cmd *cobra.Command, args []string) error {
	sess, err := buildSession(cmd, true)
	if err != nil {
		return err
	}
	return chatLoop(sess, os.Stdin, os.Stdout)
}

// chatLoop drives the interactive session. Reader and writer are injected so
// tests can script a whole conversation.
func chatLoop(sess *session, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)

	fmt.Fprintln(out, welcomeMessage)
	fmt.Fprintln(out)
	fmt.Fprintln(out, diagnosis.Disclaimer)

	fmt.Fprintln(out, "\n"+headerSeparator)
	fmt.Fprintln(out, "PATIENT INFORMATION")
	fmt.Fprintln(out, headerSeparator)

	patient := entities.Patient{
		Name:   promptOr(scanner, out, "What's your name? ", "Anonymous"),
		Age:    promptOr(scanner, out, "What's your age? ", "Not specified"),
		Gender: promptOr(scanner, out, "What's your gender? ", "Not specified"),
	}

	fmt.Fprintf(out, "\nThank you, %s! Now let's talk about your symptoms.\n", patient.Name)
	fmt.Fprintln(out, "Tip: You can enter multiple symptoms separated by commas.")
	fmt.Fprintln(out, "Type 'help' for assistance, 'quit' to exit, 'suggestions' for symptom ideas.")

	for {
		fmt.Fprintln(out, "\n"+lineSeparator)
		input, ok := prompt(scanner, out, "What symptoms are you experiencing? ")
		if !ok {
			return nil
		}

		switch strings.ToLower(input) {
		case "quit", "exit", "bye":
			fmt.Fprintln(out, goodbyeMessage)
			return nil
		case "help":
			fmt.Fprintln(out, "\n"+helpText)
			continue
		case "suggestions":
			printSuggestions(out, sess.container.GetVocabulary())
			continue
		case "symptoms":
			printVocabulary(out, sess.container.GetVocabulary())
			continue
		case "":
			fmt.Fprintln(out, "Please enter some symptoms to analyze.")
			continue
		}

		symptoms := splitSymptoms(input)
		fmt.Fprintf(out, "\nAnalyzing symptoms: %s\n", strings.Join(symptoms, ", "))

		result, err := sess.diagnoser.Diagnose(symptoms, patient)
		if err != nil {
			printDiagnosisError(out, err)
		} else {
			fmt.Fprintln(out, diagnosis.FormatReport(result))
		}

		answer, ok := prompt(scanner, out, "\nWould you like to analyze more symptoms? (y/n): ")
		if !ok {
			return nil
		}
		if lower := strings.ToLower(answer); lower != "y" && lower != "yes" {
			fmt.Fprintln(out, goodbyeMessage)
			return nil
		}
	}
}

// prompt prints the label and reads one trimmed line. ok is false once the
// input is exhausted.
func prompt(scanner *bufio.Scanner, out io.Writer, label string) (answer string, ok bool) {
	fmt.Fprint(out, label)
	if !scanner.Scan() {
		return "", false
	}
	return strings.TrimSpace(scanner.Text()), true
}

func promptOr(scanner *bufio.Scanner, out io.Writer, label string, fallback string) string {
	answer, _ := prompt(scanner, out, label)
	if answer == "" {
		return fallback
	}
	return answer
}

func printSuggestions(out io.Writer, vocabulary []string) {
	fmt.Fprintln(out, "\nCommon symptoms you can try:")
	for i, symptom := range commonSymptoms {
		fmt.Fprintf(out, "   %2d. %s\n", i+1, symptom)
	}

	limit := 15
	if len(vocabulary) < limit {
		limit = len(vocabulary)
	}
	fmt.Fprintf(out, "\nOr try these specific symptoms (first %d):\n", limit)
	for i, symptom := range vocabulary[:limit] {
		fmt.Fprintf(out, "   %2d. %s\n", i+1, symptom)
	}
	if len(vocabulary) > limit {
		fmt.Fprintf(out, "   ... and %d more\n", len(vocabulary)-limit)
	}
}

// printVocabulary lists the whole vocabulary, matching the symptoms
// subcommand's output.
func printVocabulary(out io.Writer, vocabulary []string) {
	fmt.Fprintf(out, "\n%d symptoms:\n", len(vocabulary))
	for _, symptom := range vocabulary {
		fmt.Fprintln(out, "  "+symptom)
	}
}

func printDiagnosisError(out io.Writer, err error) {
	fmt.Fprintln(out, "Error:", err)

	var noValid *diagnosis.NoValidSymptomsError
	if errors.As(err, &noValid) {
		fmt.Fprintf(out, "Invalid symptoms: %s\n", strings.Join(noValid.Invalid, ", "))
		fmt.Fprintln(out, "Try these common symptoms instead:")
		fmt.Fprintf(out, "   %s\n", strings.Join(quickSuggestions, ", "))
		fmt.Fprintln(out, "Or type 'suggestions' to see all available symptoms")
	}
}
