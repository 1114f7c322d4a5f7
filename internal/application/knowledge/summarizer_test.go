package knowledge

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"creator-kb-api/internal/domain/entity"
)

type fakeChatModel struct {
	responses []string
	errs      []error
	calls     int
}

func (m *fakeChatModel) Generate(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	content := ""
	if i < len(m.responses) {
		content = m.responses[i]
	}
	return schema.AssistantMessage(content, nil), nil
}

func (m *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

const validSummaryJSON = `{
  "summary": "A walkthrough of making pasta from scratch.",
  "topic_segments": [
    {"start_time": 0, "end_time": 300, "topic": "ingredients", "summary": "Picking flour and eggs", "keywords": ["flour", "eggs"]},
    {"start_time": 300, "end_time": 250, "topic": "broken segment"},
    {"start_time": 300, "end_time": 9999, "topic": "boiling", "keywords": ["water"]},
    {"start_time": -5, "end_time": 100, "topic": "negative start"},
    {"start_time": 400, "end_time": 500, "topic": "   "}
  ],
  "keywords": ["pasta", " cooking ", ""]
}`

func summarizerVideo() *entity.Video {
	return &entity.Video{ID: "vid-1", Title: "Pasta from scratch", Duration: 600, Language: "en"}
}

func TestSummarizeParsesAndValidates(t *testing.T) {
	chat := &fakeChatModel{responses: []string{validSummaryJSON}}
	s := NewSummarizer(chat, 0)
	video := summarizerVideo()
	transcript := makeTranscript(video.ID, 600, 10, "making pasta")

	got := s.Summarize(context.Background(), video, transcript)
	if got == nil {
		t.Fatal("nil summary")
	}
	if got.OverallSummary != "A walkthrough of making pasta from scratch." {
		t.Errorf("overall = %q", got.OverallSummary)
	}
	// 非法分段（end<=start、负起点、空主题）被丢弃，超长分段被截到时长
	if len(got.TopicSegments) != 2 {
		t.Fatalf("topic segments = %+v, want 2 valid", got.TopicSegments)
	}
	if got.TopicSegments[1].EndTime != 600 {
		t.Errorf("segment end = %v, want clamped to 600", got.TopicSegments[1].EndTime)
	}
	if len(got.Keywords) != 2 || got.Keywords[1] != "cooking" {
		t.Errorf("keywords = %v", got.Keywords)
	}
	if got.Language != "en" {
		t.Errorf("language = %q", got.Language)
	}
}

func TestSummarizeExtractsJSONFromProse(t *testing.T) {
	chat := &fakeChatModel{responses: []string{
		"Sure! Here is the analysis:\n```json\n" + validSummaryJSON + "\n```\nHope that helps.",
	}}
	s := NewSummarizer(chat, 0)
	video := summarizerVideo()

	got := s.Summarize(context.Background(), video, makeTranscript(video.ID, 600, 10, "making pasta"))
	if got.OverallSummary == "" || strings.HasPrefix(got.OverallSummary, "Discussion about") {
		t.Errorf("fell back instead of parsing wrapped json: %q", got.OverallSummary)
	}
}

func TestSummarizeFallbacks(t *testing.T) {
	video := summarizerVideo()
	transcript := makeTranscript(video.ID, 600, 10, "making pasta")
	wantFallback := "Discussion about " + video.Title

	tests := []struct {
		name string
		chat *fakeChatModel
	}{
		{"llm error", &fakeChatModel{errs: []error{errors.New("provider down")}}},
		{"garbage output", &fakeChatModel{responses: []string{"not json at all"}}},
		{"empty summary field", &fakeChatModel{responses: []string{`{"summary": "  ", "topic_segments": [], "keywords": []}`}}},
		{"empty response", &fakeChatModel{responses: []string{""}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSummarizer(tt.chat, 0)
			got := s.Summarize(context.Background(), video, transcript)
			if got == nil {
				t.Fatal("nil summary")
			}
			if got.OverallSummary != wantFallback {
				t.Errorf("overall = %q, want fallback", got.OverallSummary)
			}
		})
	}
}

func TestSummarizeNilModelUsesFallback(t *testing.T) {
	s := NewSummarizer(nil, 0)
	video := summarizerVideo()
	got := s.Summarize(context.Background(), video, nil)
	if got == nil || !strings.HasPrefix(got.OverallSummary, "Discussion about") {
		t.Errorf("summary = %+v, want fallback", got)
	}
}

func TestSummarizeRetriesWithoutResponseFormat(t *testing.T) {
	chat := &fakeChatModel{
		errs:      []error{errors.New("unknown parameter: response_format"), nil},
		responses: []string{"", validSummaryJSON},
	}
	s := NewSummarizer(chat, 0)
	video := summarizerVideo()

	got := s.Summarize(context.Background(), video, makeTranscript(video.ID, 600, 10, "making pasta"))
	if chat.calls != 2 {
		t.Errorf("model calls = %d, want retry", chat.calls)
	}
	if strings.HasPrefix(got.OverallSummary, "Discussion about") {
		t.Error("fell back instead of retrying without schema")
	}
}

func TestIsQuotaExhausted(t *testing.T) {
	cases := map[string]bool{
		"Rate limit reached for requests":   true,
		"insufficient_quota":                true,
		"HTTP 429 Too Many Requests":        true,
		"RESOURCE_EXHAUSTED: try later":     true,
		"connection refused":                false,
		"invalid api key":                   false,
	}
	for msg, want := range cases {
		if got := IsQuotaExhausted(errors.New(msg)); got != want {
			t.Errorf("IsQuotaExhausted(%q) = %v, want %v", msg, got, want)
		}
	}
	if IsQuotaExhausted(nil) {
		t.Error("nil error reported as quota")
	}
	if !IsQuotaExhausted(ErrQuotaExhausted) {
		t.Error("sentinel not recognized")
	}
}
