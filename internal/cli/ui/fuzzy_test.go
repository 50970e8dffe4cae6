package ui

import (
	"reflect"
	"testing"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"saturday", "sunday", 3},
		{"c-order", "c-order", 0},
		{"größe", "grösse", 2},
	}
	for _, tt := range tests {
		if got := LevenshteinDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindSimilar(t *testing.T) {
	ids := []string{"c-order", "c-orderline", "c-order-trl", "c-product", "c-params"}

	tests := []struct {
		name   string
		target string
		opts   *FuzzyMatchOptions
		want   []string
	}{
		{"typo", "c-ordr", nil, []string{"c-order"}},
		{"case is ignored", "C-PRODUCT", nil, []string{"c-product"}},
		{"closest first", "c-order-tr", nil, []string{"c-order-trl", "c-order"}},
		{"nothing close", "w-invoice", nil, []string{}},
		{"limited", "c-order-tr", &FuzzyMatchOptions{MaxSuggestions: 1}, []string{"c-order-trl"}},
		{"exact match is not a suggestion", "c-order", &FuzzyMatchOptions{MaxDistance: 1}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindSimilar(tt.target, ids, tt.opts)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindSimilar(%q) = %v, want %v", tt.target, got, tt.want)
			}
		})
	}
}
