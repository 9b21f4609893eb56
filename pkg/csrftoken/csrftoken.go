// Package csrftoken locates anti-forgery token parameters within request
// fields (form bodies or headers) and measures their randomness.
//
// Identification is a three-tier search, stopping at the first match:
//
//  1. exact, case-insensitive match against known token field names
//  2. substring match against token keywords ("csrf", "forgery", ...)
//  3. any field whose value is long enough and random enough to be a token
//
// Field names are visited in a deterministic order, so identical input
// always identifies the same token.
package csrftoken

import (
	"math"
	"sort"
	"strings"
)

// Token is an identified anti-forgery token parameter.
type Token struct {
	Name  string
	Value string
}

// Config carries the identification lists and thresholds. The zero value is
// unusable; construct via pkg/config or pass explicit lists in tests.
type Config struct {
	// FieldNames are exact token field names (tier 1).
	FieldNames []string

	// Keywords are substrings suggesting a token field (tier 2).
	Keywords []string

	// MinLength is the minimum value length for the entropy tier.
	MinLength int

	// EntropyThreshold is the minimum Shannon entropy (bits/char) for the
	// entropy tier.
	EntropyThreshold float64
}

// Identify searches fields for an anti-forgery token. The boolean is false
// when no tier matches; entropy-derived features then default to zero.
func Identify(fields map[string]string, cfg Config) (Token, bool) {
	if len(fields) == 0 {
		return Token{}, false
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	// Tier 1: exact known names, in configured order.
	for _, known := range cfg.FieldNames {
		for _, name := range names {
			if strings.EqualFold(name, known) {
				return Token{Name: name, Value: fields[name]}, true
			}
		}
	}

	// Tier 2: keyword substring.
	for _, name := range names {
		lower := strings.ToLower(name)
		for _, kw := range cfg.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return Token{Name: name, Value: fields[name]}, true
			}
		}
	}

	// Tier 3: first field whose value looks like a random token.
	for _, name := range names {
		value := fields[name]
		if len(value) >= cfg.MinLength && Entropy(value) >= cfg.EntropyThreshold {
			return Token{Name: name, Value: value}, true
		}
	}

	return Token{}, false
}

// Entropy returns the Shannon entropy of s in bits per character, computed
// over the byte distribution: −Σ p·log2(p). An empty string has entropy 0.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}
	var counts [256]int
	for i := 0; i < len(s); i++ {
		counts[s[i]]++
	}
	total := float64(len(s))
	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
