package knowledge

import "testing"

func TestBM25ScoresMatchingDocHigher(t *testing.T) {
	corpus := newBM25Corpus([]string{
		"how to cook pasta with fresh tomato sauce",
		"reviewing the latest camera gear for travel vlogs",
		"pasta pasta pasta everything about pasta",
	})
	query := tokenize("cook pasta")

	s0 := corpus.Score(query, 0)
	s1 := corpus.Score(query, 1)
	s2 := corpus.Score(query, 2)

	if s0 <= s1 {
		t.Errorf("matching doc scored %v, non-matching %v", s0, s1)
	}
	if s1 != 0 {
		t.Errorf("doc without query terms scored %v, want 0", s1)
	}
	if s2 <= s1 {
		t.Errorf("repeated-term doc scored %v", s2)
	}
}

func TestBM25SubstringContainment(t *testing.T) {
	corpus := newBM25Corpus([]string{
		"she was cooking dinner for the whole crew",
		"completely unrelated travel footage",
	})
	// "cook" 按子串匹配命中 "cooking"
	if got := corpus.Score(tokenize("cook"), 0); got <= 0 {
		t.Errorf("substring match scored %v, want > 0", got)
	}
	if got := corpus.Score(tokenize("cook"), 1); got != 0 {
		t.Errorf("non-matching doc scored %v, want 0", got)
	}
}

func TestBM25ScoreBounds(t *testing.T) {
	docs := []string{
		"pasta pasta pasta pasta pasta pasta pasta pasta",
		"one other document to keep idf positive",
	}
	corpus := newBM25Corpus(docs)
	query := tokenize("pasta pasta pasta pasta pasta")

	got := corpus.Score(query, 0)
	if got < 0 || got > 1 {
		t.Errorf("score = %v, want within [0, 1]", got)
	}
}

func TestBM25EdgeCases(t *testing.T) {
	corpus := newBM25Corpus([]string{"some document text"})

	if got := corpus.Score(nil, 0); got != 0 {
		t.Errorf("empty query score = %v", got)
	}
	if got := corpus.Score(tokenize("text"), -1); got != 0 {
		t.Errorf("out-of-range index score = %v", got)
	}
	if got := corpus.Score(tokenize("text"), 5); got != 0 {
		t.Errorf("out-of-range index score = %v", got)
	}

	empty := newBM25Corpus(nil)
	if got := empty.Score(tokenize("text"), 0); got != 0 {
		t.Errorf("empty corpus score = %v", got)
	}
}
