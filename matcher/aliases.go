package matcher

// DefaultAliases maps everyday symptom words onto the clinical feature names
// the training data uses. Alias targets are tried in order and the first one
// present in the vocabulary wins, so broader terms resolve to their most
// common clinical form.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"fever":        {"high_fever", "mild_fever"},
		"cold":         {"cold_hands_and_feets"},
		"sweating":     {"sweating"},
		"trembling":    {"trembling"},
		"headache":     {"headache"},
		"nausea":       {"nausea"},
		"vomiting":     {"vomiting"},
		"diarrhea":     {"diarrhoea"},
		"diarrhoea":    {"diarrhoea"},
		"constipation": {"constipation"},
		"cough":        {"cough"},
		"sneezing":     {"continuous_sneezing"},
		"rash":         {"skin_rash"},
		"fatigue":      {"fatigue"},
		"weakness":     {"muscle_weakness", "weakness_in_limbs"},
		"pain":         {"joint_pain", "stomach_pain", "back_pain", "chest_pain"},
		"breathing":    {"breathlessness"},
		"dizziness":    {"dizziness"},
		"anxiety":      {"anxiety"},
		"depression":   {"depression"},
	}
}
