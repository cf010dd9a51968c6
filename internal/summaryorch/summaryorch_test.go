package summaryorch

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/voicescribe/transcription-core/internal/models"
)

type fakeLLM struct {
	configured map[string]bool
	reply      string
	err        error
	lastPrompt string
}

func (f *fakeLLM) Configured(modelKey string) bool { return f.configured[modelKey] }

func (f *fakeLLM) Chat(ctx context.Context, systemMsg, userMsg, modelKey string) (string, error) {
	f.lastPrompt = userMsg
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func sampleSegments() []models.Segment {
	return []models.Segment{
		{Speaker: "Alice", Text: "Let's start the meeting."},
		{Speaker: "Bob", Text: "Sounds good."},
	}
}

func TestGenerate_NoSegments(t *testing.T) {
	o := New(&fakeLLM{}, "deepseek")
	_, err := o.Generate(context.Background(), &models.FileRecord{ID: "x"}, "", "")
	if err == nil {
		t.Error("expected error when record has no segments")
	}
}

func TestGenerate_FallsBackToDefaultTemplateWhenUnconfigured(t *testing.T) {
	o := New(&fakeLLM{configured: map[string]bool{}}, "deepseek")
	rec := &models.FileRecord{ID: "x", Segments: sampleSegments()}

	summary, err := o.Generate(context.Background(), rec, "", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.ModelKey != "default_template" {
		t.Errorf("ModelKey = %q, want default_template", summary.ModelKey)
	}
	if !strings.Contains(summary.RawText, "2 segments") {
		t.Errorf("default template text = %q, want it to mention segment count", summary.RawText)
	}
}

func TestGenerate_PropagatesLLMError(t *testing.T) {
	llm := &fakeLLM{configured: map[string]bool{"deepseek": true}, err: errors.New("upstream down")}
	o := New(llm, "deepseek")
	rec := &models.FileRecord{ID: "x", Segments: sampleSegments()}

	summary, err := o.Generate(context.Background(), rec, "", "")
	if err == nil {
		t.Fatal("expected error to propagate")
	}
	if summary == nil || summary.Status != models.SummaryError {
		t.Errorf("summary = %+v, want Status=error", summary)
	}
}

func TestComposePrompt_PlaceholderSubstitution(t *testing.T) {
	prompt := composePrompt("Please summarize: {transcript}", sampleSegments())
	if strings.Contains(prompt, "{transcript}") {
		t.Error("placeholder was not substituted")
	}
	if !strings.Contains(prompt, "Alice: Let's start the meeting.") {
		t.Errorf("prompt missing joined segment text: %q", prompt)
	}
}

func TestComposePrompt_ZhMarkerAppendsAfter(t *testing.T) {
	template := "会议转录内容："
	prompt := composePrompt(template, sampleSegments())
	if !strings.HasPrefix(prompt, template) {
		t.Errorf("prompt should start with the marker template, got %q", prompt)
	}
}

func TestComposePrompt_AlwaysAppendsHygieneDirective(t *testing.T) {
	prompt := composePrompt("", sampleSegments())
	if !strings.Contains(prompt, hygieneDirective) {
		t.Error("hygiene directive must always be appended")
	}
}

func TestCleanReply_StripsConfirmationPrefixAndMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "english confirmation prefix",
			input: "Sure, here's the summary:\nThe team discussed the roadmap.",
			want:  "The team discussed the roadmap.",
		},
		{
			name:  "markdown heading and bold",
			input: "# Summary\n**Key point**: shipped on time",
			want:  "Summary\nKey point: shipped on time",
		},
		{
			name:  "chinese confirmation prefix",
			input: "好的，\n团队讨论了路线图。",
			want:  "团队讨论了路线图。",
		},
		{
			name:  "collapses extra blank lines",
			input: "Line one.\n\n\n\nLine two.",
			want:  "Line one.\n\nLine two.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cleanReply(tt.input)
			if got != tt.want {
				t.Errorf("cleanReply(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
