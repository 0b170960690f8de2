// Package match implements the matching engine that proposes links between
// budget categories and EEFF taxonomy concepts.
package match

import (
	"strings"
	"unicode"

	"github.com/kljensen/snowball"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases a name, strips diacritics and collapses whitespace,
// so "Fertilización  Foliar" and "fertilizacion foliar" compare equal.
func Normalize(s string) string {
	// The transformer chain is stateful, so build it per call.
	deaccent := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(deaccent, s)
	if err != nil {
		out = s
	}
	out = strings.ToLower(out)
	return strings.Join(strings.Fields(out), " ")
}

// tokenize splits a normalized name into stemmed tokens. Budget categories
// are written in Spanish, so the Spanish snowball stemmer folds singular and
// plural forms ("semilla"/"semillas") onto the same token.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(Normalize(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 2 {
			continue
		}
		stemmed, err := snowball.Stem(f, "spanish", true)
		if err != nil || stemmed == "" {
			stemmed = f
		}
		tokens = append(tokens, stemmed)
	}
	return tokens
}

// tokenSet deduplicates a token slice.
func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}
