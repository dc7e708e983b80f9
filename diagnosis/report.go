package diagnosis

import (
	"fmt"
	"strings"

	"github.com/symptomcheck/diagnosis-api/datasetparser/entities"
)

// Disclaimer is appended to every rendered report and shown by all
// front-ends before the first interaction.
const Disclaimer = `IMPORTANT MEDICAL DISCLAIMER
This assistant is for informational purposes only and should NOT replace
professional medical advice, diagnosis, or treatment. Always consult with a
qualified healthcare provider for any medical concerns.`

const reportSeparator = "============================================================"

// FormatReport renders a diagnosis as the plain-text report used by the
// command line. Empty patient fields fall back to neutral placeholders.
func FormatReport(diagnosis *entities.Diagnosis) string {
	patientName := diagnosis.Patient.Name
	if patientName == "" {
		patientName = "Anonymous"
	}
	patientAge := diagnosis.Patient.Age
	if patientAge == "" {
		patientAge = "Not specified"
	}
	patientGender := diagnosis.Patient.Gender
	if patientGender == "" {
		patientGender = "Not specified"
	}

	var b strings.Builder
	b.WriteString("\n" + reportSeparator + "\n")
	b.WriteString("MEDICAL DIAGNOSIS REPORT\n")
	b.WriteString(reportSeparator + "\n")
	fmt.Fprintf(&b, "Patient: %s\n", patientName)
	fmt.Fprintf(&b, "Age:     %s\n", patientAge)
	fmt.Fprintf(&b, "Gender:  %s\n", patientGender)
	fmt.Fprintf(&b, "Date:    %s\n", diagnosis.GeneratedAt.Format("2006-01-02 15:04:05"))

	b.WriteString("\nReported symptoms:\n")
	fmt.Fprintf(&b, "   %s\n", strings.Join(diagnosis.ValidSymptoms, ", "))

	if len(diagnosis.InvalidSymptoms) > 0 {
		b.WriteString("\nUnrecognized symptoms (ignored):\n")
		fmt.Fprintf(&b, "   %s\n", strings.Join(diagnosis.InvalidSymptoms, ", "))
	}

	b.WriteString("\nDIAGNOSIS RESULTS:\n")
	for i, prediction := range diagnosis.Predictions {
		fmt.Fprintf(&b, "   %d. %s (%.1f%% confidence)\n", i+1, prediction.Disease, prediction.Probability*100)
	}

	b.WriteString("\nTREATMENT SUGGESTION:\n")
	fmt.Fprintf(&b, "   %s\n", diagnosis.Treatment)

	b.WriteString("\n" + Disclaimer + "\n")
	b.WriteString(reportSeparator + "\n")

	return b.String()
}
