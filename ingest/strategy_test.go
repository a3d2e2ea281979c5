package ingest

import (
	"errors"
	"testing"

	"github.com/warraqhq/warraq"
)

func TestDecideStrategyStructuredDocument(t *testing.T) {
	text := "INTRODUCTION\n\nThis document covers the basics of the subject at hand."
	if got := DecideStrategy(text, DocumentMeta{}); got != StrategyDynamic {
		t.Errorf("got %v, want dynamic for headed document", got)
	}
}

func TestDecideStrategyPlainSentence(t *testing.T) {
	if got := DecideStrategy("This is a plain short sentence.", DocumentMeta{}); got != StrategyFixed {
		t.Errorf("got %v, want fixed for plain prose", got)
	}
}

func TestDecideStrategyComplexProse(t *testing.T) {
	text := "Notwithstanding considerable methodological disagreements, researchers ultimately converged upon remarkably similar conclusions regarding atmospheric circulation patterns observed throughout equatorial regions during unusually prolonged drought episodes affecting agricultural productivity across several contiguous watersheds simultaneously."
	if got := DecideStrategy(text, DocumentMeta{}); got != StrategyDynamic {
		t.Errorf("got %v, want dynamic for complex prose", got)
	}
}

func TestDecideStrategyDeterministic(t *testing.T) {
	texts := []string{
		"HEADING:\n\nBody text follows here.",
		"Plain words only here.",
		"",
	}
	for _, text := range texts {
		first := DecideStrategy(text, DocumentMeta{Language: LangEnglish})
		for i := 0; i < 50; i++ {
			if got := DecideStrategy(text, DocumentMeta{Language: LangEnglish}); got != first {
				t.Fatalf("%q: decision changed from %v to %v", text, first, got)
			}
		}
	}
}

func TestParseStrategy(t *testing.T) {
	cases := []struct {
		tag  string
		want Strategy
	}{
		{"", StrategyAuto},
		{"auto", StrategyAuto},
		{"fixed", StrategyFixed},
		{"dynamic", StrategyDynamic},
	}
	for _, tc := range cases {
		got, err := ParseStrategy(tc.tag)
		if err != nil {
			t.Errorf("ParseStrategy(%q): %v", tc.tag, err)
		}
		if got != tc.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", tc.tag, got, tc.want)
		}
	}
}

func TestParseStrategyUnknownTag(t *testing.T) {
	_, err := ParseStrategy("recursive")
	var cfgErr *warraq.ErrConfig
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected config error, got %v", err)
	}
	if cfgErr.Field != "strategy" {
		t.Errorf("field %q", cfgErr.Field)
	}
}

func TestStrategyString(t *testing.T) {
	if StrategyFixed.String() != "fixed" || StrategyDynamic.String() != "dynamic" || StrategyAuto.String() != "auto" {
		t.Error("strategy tags drifted")
	}
}
