// Package normalize provides text normalization and the token-overlap
// similarity used for fuzzy name and reference matching.
//
// All functions are deterministic and total: they never fail, regardless of
// input. This matters because the inputs come from bank exports and OCR
// output, both of which can contain arbitrary noise.
package normalize

import (
	"strings"
)

// foldTable maps German diacritics and ligatures to their ASCII folding
// before the charset filter drops anything else.
var foldTable = map[rune]string{
	'ä': "a", 'ö': "o", 'ü': "u", 'ß': "ss",
	'á': "a", 'à': "a", 'â': "a",
	'é': "e", 'è': "e", 'ê': "e",
	'í': "i", 'ì': "i", 'î': "i",
	'ó': "o", 'ò': "o", 'ô': "o",
	'ú': "u", 'ù': "u", 'û': "u",
	'ç': "c", 'ñ': "n",
}

// Normalize case-folds the input, strips diacritics, drops every character
// outside [a-z0-9 whitespace] and collapses runs of whitespace to a single
// space, trimming the ends.
func Normalize(text string) string {
	lower := strings.ToLower(text)

	var b strings.Builder
	b.Grow(len(lower))
	for _, r := range lower {
		if folded, ok := foldTable[r]; ok {
			b.WriteString(folded)
			continue
		}
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokenize normalizes the input, splits on whitespace and discards tokens
// shorter than two characters.
func Tokenize(text string) []string {
	fields := strings.Fields(Normalize(text))
	tokens := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// TokenOverlap computes a Jaccard-style similarity between the token sets of
// a and b: the size of the intersection divided by the size of the larger
// set. It returns 0 when either token set is empty and is symmetric in its
// arguments.
func TokenOverlap(a, b string) float64 {
	ta := tokenSet(a)
	tb := tokenSet(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	common := 0
	for tok := range ta {
		if _, ok := tb[tok]; ok {
			common++
		}
	}

	max := len(ta)
	if len(tb) > max {
		max = len(tb)
	}
	return float64(common) / float64(max)
}

func tokenSet(text string) map[string]struct{} {
	tokens := Tokenize(text)
	set := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		set[tok] = struct{}{}
	}
	return set
}
