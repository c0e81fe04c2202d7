package ingest

import (
	"strings"
	"unicode"
)

// Tokenize splits text into lowercase runs of word characters.
// Letters, digits and underscores form tokens; anything else separates them.
// Stopwords are kept: they are down-weighted during scoring, not removed.
func Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	for _, r := range text {
		if isWordRune(r) {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	// Don't forget the last token
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_'
}

// TokenSet is the distinct set of tokens of one string.
type TokenSet map[string]struct{}

// NewTokenSet builds a set from a token sequence.
func NewTokenSet(tokens []string) TokenSet {
	set := make(TokenSet, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// Contains reports whether token is in the set.
func (s TokenSet) Contains(token string) bool {
	_, ok := s[token]
	return ok
}

// CommonCount returns |s ∩ other|.
func (s TokenSet) CommonCount(other TokenSet) int {
	small, large := s, other
	if len(small) > len(large) {
		small, large = large, small
	}
	n := 0
	for t := range small {
		if large.Contains(t) {
			n++
		}
	}
	return n
}
