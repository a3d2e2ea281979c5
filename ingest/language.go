package ingest

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Language tags assigned by DetectLanguage.
const (
	LangArabic  = "arabic"
	LangEnglish = "english"
	LangMixed   = "mixed"
	LangUnknown = "unknown"
)

// DetectLanguage classifies text by its letter content. Text with both
// Arabic and Latin letters is "mixed"; text with neither is "unknown".
func DetectLanguage(text string) string {
	var arabic, latin int
	for _, r := range text {
		switch {
		case r >= 0x0600 && r <= 0x06FF:
			arabic++
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			latin++
		}
	}
	switch {
	case arabic > 0 && latin > 0:
		return LangMixed
	case arabic > 0:
		return LangArabic
	case latin > 0:
		return LangEnglish
	default:
		return LangUnknown
	}
}

// arabicDiacritics covers the tashkeel range (fathatan through sukun) plus
// the superscript alef.
var arabicDiacritics = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x064B, Hi: 0x0652, Stride: 1},
		{Lo: 0x0670, Hi: 0x0670, Stride: 1},
	},
}

// HasArabicDiacritics reports whether text carries tashkeel marks.
func HasArabicDiacritics(text string) bool {
	for _, r := range text {
		if unicode.Is(arabicDiacritics, r) {
			return true
		}
	}
	return false
}

// StripDiacritics removes Arabic diacritical marks, normalizing to NFC.
// Useful for matching diacritized and bare forms of the same word.
func StripDiacritics(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(arabicDiacritics)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}
