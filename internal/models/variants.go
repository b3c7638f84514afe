package models

import "strings"

// Variant describes the capabilities encoded in a model name. Capability
// suffixes are a client-facing convention; the upstream service only ever
// sees the base name.
type Variant struct {
	BaseName string
	Search   bool

	// Thinking is nil for models without a thinking configuration.
	Thinking *ThinkingConfig
}

// ThinkingConfig mirrors Gemini's thinkingConfig block.
type ThinkingConfig struct {
	Budget          int
	IncludeThoughts bool
}

const (
	suffixSearch      = "-search"
	suffixMaxThinking = "-maxthinking"
	suffixNoThinking  = "-nothinking"

	maxThinkingBudget = 24576
)

// Parse extracts capability suffixes from a model name. Suffix order is
// thinking first, then search (e.g. gemini-2.5-pro-maxthinking-search).
func Parse(name string) Variant {
	v := Variant{BaseName: name}

	if strings.HasSuffix(v.BaseName, suffixSearch) {
		v.Search = true
		v.BaseName = strings.TrimSuffix(v.BaseName, suffixSearch)
	}
	switch {
	case strings.HasSuffix(v.BaseName, suffixMaxThinking):
		v.BaseName = strings.TrimSuffix(v.BaseName, suffixMaxThinking)
		v.Thinking = &ThinkingConfig{Budget: maxThinkingBudget, IncludeThoughts: true}
	case strings.HasSuffix(v.BaseName, suffixNoThinking):
		v.BaseName = strings.TrimSuffix(v.BaseName, suffixNoThinking)
		v.Thinking = &ThinkingConfig{Budget: 0}
	}
	return v
}

// BaseName strips all capability suffixes from a model name.
func BaseName(name string) string { return Parse(name).BaseName }

// IsSearch reports whether the model name carries the search suffix.
func IsSearch(name string) bool { return Parse(name).Search }

var baseModels = []string{
	"gemini-2.5-pro",
	"gemini-2.5-flash",
}

// Catalog lists every externally visible model id, base models first, then
// the capability variants.
func Catalog() []string {
	out := make([]string, 0, len(baseModels)*6)
	for _, base := range baseModels {
		out = append(out,
			base,
			base+suffixSearch,
			base+suffixMaxThinking,
			base+suffixNoThinking,
			base+suffixMaxThinking+suffixSearch,
			base+suffixNoThinking+suffixSearch,
		)
	}
	return out
}

// Known reports whether the base of the given model id is served upstream.
func Known(name string) bool {
	base := BaseName(name)
	for _, b := range baseModels {
		if b == base {
			return true
		}
	}
	return false
}
