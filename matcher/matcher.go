// Package matcher resolves free-text symptom tokens onto the classifier's
// fixed feature vocabulary. Matching is tried per token in priority order:
// exact match, alias table, then a fuzzy fallback over substring containment
// and token-set Jaccard similarity.
package matcher

import (
	"strings"

	"github.com/symptomcheck/diagnosis-api/interfaces"
	"golang.org/x/text/unicode/norm"
)

// Tokens whose word sets overlap more than this are considered the same
// symptom by the fuzzy fallback.
const similarityThreshold = 0.6

// DefaultSuggestionLimit caps how many entries Suggest returns when the
// caller passes no limit.
const DefaultSuggestionLimit = 10

// Compile-time check to ensure Matcher implements the matcher interface
var _ interfaces.SymptomMatcher = (*Matcher)(nil)

// Matcher is immutable after construction and safe for concurrent use.
type Matcher struct {
	vocabulary []string
	vocabSet   map[string]bool
	vocabWords []map[string]bool
	aliases    map[string][]string
}

// New creates a Matcher over the given vocabulary with the default alias
// table. The vocabulary order is significant: the fuzzy fallback scans it
// front to back and the first acceptable entry wins.
func New(vocabulary []string) *Matcher {
	return NewWithAliases(vocabulary, DefaultAliases())
}

// NewWithAliases creates a Matcher with a caller-provided alias table.
func NewWithAliases(vocabulary []string, aliases map[string][]string) *Matcher {
	vocabSet := make(map[string]bool, len(vocabulary))
	vocabWords := make([]map[string]bool, len(vocabulary))
	for i, entry := range vocabulary {
		vocabSet[entry] = true
		vocabWords[i] = wordSet(entry)
	}
	return &Matcher{
		vocabulary: vocabulary,
		vocabSet:   vocabSet,
		vocabWords: vocabWords,
		aliases:    aliases,
	}
}

// Match partitions the given tokens into vocabulary members and unmatchable
// leftovers. Valid entries are always vocabulary spellings; invalid entries
// keep the caller's original spelling. Tokens that normalize to the empty
// string are dropped from both lists.
func (m *Matcher) Match(symptoms []string) ([]string, []string) {
	valid := make([]string, 0, len(symptoms))
	invalid := make([]string, 0)

	for _, symptom := range symptoms {
		clean := NormalizeToken(symptom)
		if clean == "" {
			continue
		}

		// Direct match
		if m.vocabSet[clean] {
			valid = append(valid, clean)
			continue
		}

		// Alias table
		if target, ok := m.resolveAlias(clean); ok {
			valid = append(valid, target)
			continue
		}

		// Fuzzy fallback
		if entry, ok := m.fuzzyMatch(clean); ok {
			valid = append(valid, entry)
			continue
		}

		invalid = append(invalid, symptom)
	}

	return valid, invalid
}

func (m *Matcher) resolveAlias(clean string) (string, bool) {
	for _, target := range m.aliases[clean] {
		if m.vocabSet[target] {
			return target, true
		}
	}
	return "", false
}

// fuzzyMatch scans the vocabulary in order and accepts the first entry that
// contains the token, is contained by it, or whose word set is similar
// enough. First match wins, so the resolution of an ambiguous token depends
// only on vocabulary order, never on map iteration order.
func (m *Matcher) fuzzyMatch(clean string) (string, bool) {
	cleanWords := wordSet(clean)
	for i, entry := range m.vocabulary {
		if strings.Contains(entry, clean) || strings.Contains(clean, entry) {
			return entry, true
		}
		if jaccard(cleanWords, m.vocabWords[i]) > similarityThreshold {
			return entry, true
		}
	}
	return "", false
}

// Suggest returns up to limit vocabulary entries containing the partial
// input, in vocabulary order. A non-positive limit falls back to
// DefaultSuggestionLimit.
func (m *Matcher) Suggest(partial string, limit int) []string {
	if limit <= 0 {
		limit = DefaultSuggestionLimit
	}
	clean := NormalizeToken(partial)
	suggestions := make([]string, 0, limit)
	for _, entry := range m.vocabulary {
		if strings.Contains(entry, clean) {
			suggestions = append(suggestions, entry)
			if len(suggestions) == limit {
				break
			}
		}
	}
	return suggestions
}

// Vocabulary returns the matcher's feature names in model input order.
func (m *Matcher) Vocabulary() []string {
	return m.vocabulary
}

// NormalizeToken lower-cases and trims a raw token after NFKC normalization,
// so full-width and composed character variants compare equal.
func NormalizeToken(symptom string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(symptom)))
}

// wordSet splits a symptom on whitespace and underscores into its word set,
// so "stomach pain" and "stomach_pain" share both words.
func wordSet(s string) map[string]bool {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == ' ' || r == '\t' || r == '\n'
	})
	set := make(map[string]bool, len(words))
	for _, word := range words {
		set[word] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for word := range a {
		if b[word] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
