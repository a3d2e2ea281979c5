package ingest

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Analysis holds the signals the strategy selector decides on.
type Analysis struct {
	// Complexity is in [0, 1]: the average of a sentence-length signal
	// (mean sentence words / 30, capped at 1) and a vocabulary-diversity
	// signal (distinct words / total words).
	Complexity float64

	// HasStructure reports heading-like lines or bullet/numbered lists.
	HasStructure bool
}

// Lines opening with -, *, •, or digits followed by "." or ")".
var listPattern = regexp.MustCompile(`^\s*[-*•\d]+[.)]\s+`)

// Analyze inspects raw text for the strategy decision. Empty text, or text
// with no detectable sentences, scores zero on everything.
func Analyze(text string) Analysis {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return Analysis{}
	}

	totalSentenceWords := 0
	for _, s := range sentences {
		totalSentenceWords += len(strings.Fields(s))
	}
	avgSentenceLen := float64(totalSentenceWords) / float64(len(sentences))
	lengthScore := math.Min(avgSentenceLen/30, 1.0)

	words := strings.Fields(strings.ToLower(text))
	diversityScore := 0.0
	if len(words) > 0 {
		distinct := make(map[string]struct{}, len(words))
		for _, w := range words {
			distinct[w] = struct{}{}
		}
		diversityScore = float64(len(distinct)) / float64(len(words))
	}

	return Analysis{
		Complexity:   (lengthScore + diversityScore) / 2,
		HasStructure: hasStructure(text),
	}
}

// hasStructure reports whether text carries structural markup: a short line
// (fewer than 10 words) that is all-uppercase or ends with a colon (heading
// heuristic), or any bullet/numbered-list line.
func hasStructure(text string) bool {
	lines := strings.Split(text, "\n")

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if len(strings.Fields(trimmed)) < 10 {
			if isAllUpper(trimmed) || strings.HasSuffix(trimmed, ":") {
				return true
			}
		}
	}

	for _, line := range lines {
		if listPattern.MatchString(line) {
			return true
		}
	}
	return false
}

// isAllUpper reports whether s contains at least one letter and no
// lowercase letters.
func isAllUpper(s string) bool {
	hasUpper := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			hasUpper = true
		}
	}
	return hasUpper
}
