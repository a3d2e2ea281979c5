package ingest

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// abbreviations that should NOT be treated as sentence boundaries.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true,
	"prof": true, "sr": true, "jr": true,
	"vs": true, "etc": true, "inc": true, "ltd": true,
	"e.g": true, "i.e": true, "viz": true, "al": true,
	"approx": true, "dept": true, "est": true,
	"fig": true, "no": true, "vol": true,
}

// SplitSentences splits text into trimmed, non-empty sentences. The primary
// detector scans for boundaries with abbreviation and decimal-number
// awareness and handles Arabic (؟) and CJK (。！？) terminators. When it
// finds no boundary at all it falls back to a plain punctuation split.
func SplitSentences(text string) []string {
	boundaries := findSentenceBoundaries(text)
	if len(boundaries) == 0 {
		return splitSentencesFallback(text)
	}

	var sentences []string
	start := 0
	for _, b := range boundaries {
		if s := strings.TrimSpace(text[start:b]); s != "" {
			sentences = append(sentences, s)
		}
		start = b
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// Runs of terminators collapse into a single boundary.
var sentenceEnd = regexp.MustCompile(`[.!?؟]+`)

func splitSentencesFallback(text string) []string {
	var sentences []string
	for _, part := range sentenceEnd.Split(text, -1) {
		if s := strings.TrimSpace(part); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// isAbbreviation checks if the text ending at position dotPos (the '.')
// is a common abbreviation.
func isAbbreviation(text string, dotPos int) bool {
	// Walk backward to find the start of the word before the dot.
	start := dotPos
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(text[:start])
		if !unicode.IsLetter(r) && r != '.' {
			break
		}
		start -= size
	}
	word := strings.ToLower(text[start:dotPos])
	return abbreviations[word]
}

// isDecimalDot checks if the dot at position dotPos is part of a number
// (e.g. 3.14, $1.50).
func isDecimalDot(text string, dotPos int) bool {
	if dotPos == 0 || dotPos+1 >= len(text) {
		return false
	}
	prevByte := text[dotPos-1]
	nextByte := text[dotPos+1]
	return prevByte >= '0' && prevByte <= '9' && nextByte >= '0' && nextByte <= '9'
}

// findSentenceBoundaries returns byte positions suitable for splitting text
// at sentence boundaries. Handles ASCII punctuation (.!?) with abbreviation
// and decimal number awareness, plus Arabic (؟) and CJK (。！？)
// sentence-ending punctuation.
func findSentenceBoundaries(text string) []int {
	var boundaries []int
	runes := []rune(text)
	n := len(runes)

	// Build a byte-offset map for rune positions.
	byteOffsets := make([]int, n+1)
	off := 0
	for i, r := range runes {
		byteOffsets[i] = off
		off += utf8.RuneLen(r)
	}
	byteOffsets[n] = off

	for i := 0; i < n; i++ {
		r := runes[i]

		// Arabic and CJK sentence-ending punctuation — always a boundary after.
		if r == '؟' || r == '。' || r == '！' || r == '？' {
			boundaries = append(boundaries, byteOffsets[i+1])
			continue
		}

		if r != '.' && r != '!' && r != '?' {
			continue
		}

		dotBytePos := byteOffsets[i]

		// Skip decimal numbers like 3.14.
		if r == '.' && isDecimalDot(text, dotBytePos) {
			continue
		}

		// Skip abbreviations like Mr., Dr., etc.
		if r == '.' && isAbbreviation(text, dotBytePos) {
			continue
		}

		// Need whitespace or newline after punctuation. The rune after the
		// gap must not be lowercase: uppercase Latin and uncased scripts
		// (Arabic) both start sentences.
		if i+1 < n && (runes[i+1] == ' ' || runes[i+1] == '\n') {
			if runes[i+1] == '\n' {
				boundaries = append(boundaries, byteOffsets[i+1])
			} else if i+2 < n && !unicode.IsLower(runes[i+2]) {
				boundaries = append(boundaries, byteOffsets[i+2])
			} else if i+2 >= n {
				boundaries = append(boundaries, byteOffsets[n])
			}
		}
	}
	return boundaries
}
