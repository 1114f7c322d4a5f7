package knowledge

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	got := tokenize("Hello, World! It's 2024-ready.")
	want := []string{"hello", "world", "it", "s", "2024", "ready"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tokenize = %v, want %v", got, want)
	}

	if got := tokenize(""); len(got) != 0 {
		t.Errorf("tokenize empty = %v", got)
	}
}

func TestExtractKeywords(t *testing.T) {
	text := "pasta pasta pasta sauce sauce the and cook knife knife knife knife"
	got := extractKeywords(text, 3)
	// knife x4 > pasta x3 > sauce x2；短词（the/and/cook）被过滤
	want := []string{"knife", "pasta", "sauce"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("extractKeywords = %v, want %v", got, want)
	}
}

func TestExtractKeywordsFiltersShortTokens(t *testing.T) {
	if got := extractKeywords("a an the of to is in it", 10); got != nil {
		t.Errorf("extractKeywords short-only = %v, want nil", got)
	}
}

func TestExtractKeywordsTieBreakIsStable(t *testing.T) {
	text := "alpha bravo charlie delta"
	for i := 0; i < 10; i++ {
		got := extractKeywords(text, 4)
		want := []string{"alpha", "bravo", "charlie", "delta"}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("run %d: extractKeywords = %v, want %v", i, got, want)
		}
	}
}

func TestExtractKeywordsLimit(t *testing.T) {
	text := "alpha bravo charlie delta echoes foxtrot golfing hotels"
	if got := extractKeywords(text, 5); len(got) != 5 {
		t.Errorf("extractKeywords len = %d, want 5", len(got))
	}
}
