package ingest

import (
	"strconv"

	"github.com/warraqhq/warraq"
)

// Strategy determines how text is chunked.
type Strategy int

const (
	// StrategyAuto lets the analyzer pick per document (default).
	StrategyAuto Strategy = iota

	// StrategyFixed uses overlapping fixed-size word windows.
	StrategyFixed

	// StrategyDynamic follows paragraph and sentence boundaries.
	StrategyDynamic
)

// String returns the wire tag for the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyFixed:
		return "fixed"
	case StrategyDynamic:
		return "dynamic"
	default:
		return "auto"
	}
}

// ParseStrategy maps a config tag to a Strategy. The empty tag means auto.
// Unknown tags are a configuration error; they are rejected here, at
// construction time, never at chunking time.
func ParseStrategy(tag string) (Strategy, error) {
	switch tag {
	case "", "auto":
		return StrategyAuto, nil
	case "fixed":
		return StrategyFixed, nil
	case "dynamic":
		return StrategyDynamic, nil
	default:
		return 0, &warraq.ErrConfig{Field: "strategy", Message: "unknown strategy " + strconv.Quote(tag)}
	}
}

// DocumentMeta carries descriptor fields supplied by the extraction layer.
type DocumentMeta struct {
	Filename      string
	Language      string // "arabic", "english", "mixed", "unknown"
	HasDiacritics bool
}

// DecideStrategy picks fixed or dynamic chunking for text: dynamic when the
// complexity score exceeds 0.6 or structural markup is present, fixed
// otherwise. The decision is purely deterministic — identical input always
// yields the same strategy. meta.Language is accepted as an extension point
// but does not influence the decision today.
func DecideStrategy(text string, meta DocumentMeta) Strategy {
	_ = meta.Language

	a := Analyze(text)
	if a.Complexity > 0.6 || a.HasStructure {
		return StrategyDynamic
	}
	return StrategyFixed
}
