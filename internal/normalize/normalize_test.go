package normalize

import (
	"math"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "Max Mustermann", "max mustermann"},
		{"umlauts folded", "Müllerstraße", "mullerstrasse"},
		{"punctuation dropped", "Miete, Whg. 3 (links)!", "miete whg 3 links"},
		{"whitespace collapsed", "  Max \t  Mustermann \n", "max mustermann"},
		{"digits kept", "Zimmer 12", "zimmer 12"},
		{"empty", "", ""},
		{"only punctuation", "!?:;--", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	input := "Müller, Erika — Whg 3"
	first := Normalize(input)
	for i := 0; i < 5; i++ {
		if got := Normalize(input); got != first {
			t.Fatalf("Normalize not deterministic: %q vs %q", got, first)
		}
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"short tokens dropped", "a ab abc", []string{"ab", "abc"}},
		{"normalized first", "Max-Mustermann", []string{"maxmustermann"}},
		{"empty input", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("Tokenize(%q) = %v, want %v", tt.input, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Tokenize(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestTokenOverlapSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"Max Mustermann", "Mustermann, Max"},
		{"Miete Whg 3", "Whg 3 links"},
		{"Erika Musterfrau", "Max Mustermann"},
	}

	for _, pair := range pairs {
		ab := TokenOverlap(pair[0], pair[1])
		ba := TokenOverlap(pair[1], pair[0])
		if math.Abs(ab-ba) > 1e-12 {
			t.Errorf("TokenOverlap not symmetric for %q/%q: %f vs %f", pair[0], pair[1], ab, ba)
		}
	}
}

func TestTokenOverlapEmptyInputs(t *testing.T) {
	if got := TokenOverlap("", "Max Mustermann"); got != 0 {
		t.Errorf("expected 0 for empty left input, got %f", got)
	}
	if got := TokenOverlap("Max Mustermann", ""); got != 0 {
		t.Errorf("expected 0 for empty right input, got %f", got)
	}
	// Tokens shorter than two characters leave an empty set.
	if got := TokenOverlap("a b c", "Max Mustermann"); got != 0 {
		t.Errorf("expected 0 for unusable tokens, got %f", got)
	}
}

func TestTokenOverlapIdenticalSets(t *testing.T) {
	if got := TokenOverlap("Max Mustermann", "max MUSTERMANN"); got != 1 {
		t.Errorf("expected 1 for identical token sets, got %f", got)
	}
}

func TestTokenOverlapPartial(t *testing.T) {
	// {max, mustermann} vs {max, mustermann, junior}: 2 common / max(2,3).
	got := TokenOverlap("Max Mustermann", "Max Mustermann Junior")
	want := 2.0 / 3.0
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("TokenOverlap = %f, want %f", got, want)
	}
}
