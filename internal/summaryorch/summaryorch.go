// Package summaryorch is the Summary Orchestrator: it serializes a
// completed file's segments into a prompt, calls the external LLM, cleans
// the reply, and persists the result onto the record.
//
// Go Pattern: grounded on the teacher's services/summary.Service
// (buildPrompt + Summarize), generalized to resolve one of several
// configured model keys and to fall back to a deterministic local summary
// when nothing is configured at all.
package summaryorch

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/voicescribe/transcription-core/internal/models"
	"github.com/voicescribe/transcription-core/internal/runner"
)

const transcriptPlaceholder = "{transcript}"
const zhMarker = "会议转录内容："

const systemMessage = "You are a precise meeting-minutes assistant. Summarize the transcript faithfully and concisely. Do not add a confirmation preamble; begin directly with the summary content."

const hygieneDirective = "\n\nOutput only the summary itself — no confirmation phrases, no markdown headers or bullet markers, plain prose or simple dashes only."

// Orchestrator composes prompts and drives the LLM.
type Orchestrator struct {
	llm          runner.LLM
	defaultModel string
}

// New creates an Orchestrator. defaultModel is used when the caller
// doesn't specify one.
func New(llm runner.LLM, defaultModel string) *Orchestrator {
	return &Orchestrator{llm: llm, defaultModel: defaultModel}
}

// Generate runs the full algorithm from spec.md §4.6 and returns the
// resulting Summary, which the caller is responsible for persisting onto
// the FileRecord via the Registry.
func (o *Orchestrator) Generate(ctx context.Context, rec *models.FileRecord, promptTemplate, modelKey string) (*models.Summary, error) {
	if len(rec.Segments) == 0 {
		return nil, fmt.Errorf("file %s has no segments to summarize", rec.ID)
	}

	if modelKey == "" {
		modelKey = o.defaultModel
	}

	if o.llm == nil || !o.llm.Configured(modelKey) {
		text := defaultTemplateSummary(rec.Segments)
		return &models.Summary{
			RawText:     text,
			GeneratedAt: models.Now(),
			ModelKey:    "default_template",
			Status:      models.SummarySuccess,
		}, nil
	}

	userMsg := composePrompt(promptTemplate, rec.Segments)

	raw, err := o.llm.Chat(ctx, systemMessage, userMsg, modelKey)
	if err != nil {
		return &models.Summary{
			GeneratedAt: models.Now(),
			ModelKey:    modelKey,
			Status:      models.SummaryError,
			Error:       err.Error(),
		}, err
	}

	return &models.Summary{
		RawText:     cleanReply(raw),
		GeneratedAt: models.Now(),
		ModelKey:    modelKey,
		Status:      models.SummarySuccess,
	}, nil
}

// composePrompt implements spec.md §4.6 step 3's placeholder/marker rules.
func composePrompt(template string, segments []models.Segment) string {
	joined := joinSegments(segments)

	var prompt string
	switch {
	case strings.Contains(template, transcriptPlaceholder):
		prompt = strings.ReplaceAll(template, transcriptPlaceholder, joined)
	case strings.Contains(template, zhMarker):
		prompt = template + joined
	case template == "":
		prompt = "Summarize the following meeting transcript:\n\n" + joined
	default:
		prompt = template + "\n\n---\n\n" + joined
	}

	return prompt + hygieneDirective
}

func joinSegments(segments []models.Segment) string {
	var b strings.Builder
	for _, s := range segments {
		fmt.Fprintf(&b, "%s: %s\n", s.Speaker, s.Text)
	}
	return b.String()
}

// confirmationPrefixes is the small closed set of confirmatory-preamble
// patterns stripped from the start of an LLM reply. The exact pattern set
// is heuristic and tunable (see spec.md §9's Open Questions).
var confirmationPrefixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(sure|certainly|of course|okay|ok)[,.!:]?\s*\n?`),
	regexp.MustCompile(`(?i)^here('s| is) (a |the )?summary[^\n]*\n`),
	regexp.MustCompile(`^好的[，,]?\s*\n?`),
	regexp.MustCompile(`^以下是.*摘要[:：]?\s*\n`),
}

var (
	mdHeading  = regexp.MustCompile(`(?m)^#{1,6}\s*`)
	mdBold     = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalic   = regexp.MustCompile(`\*([^*]+)\*`)
	mdCode     = regexp.MustCompile("`([^`]+)`")
	mdListItem = regexp.MustCompile(`(?m)^[\s]*[-*+]\s+`)
	mdRule     = regexp.MustCompile(`(?m)^-{3,}\s*$`)
	blankRuns  = regexp.MustCompile(`\n{3,}`)
	standaloneTitle = regexp.MustCompile(`(?m)^\s*会议纪要\s*$\n?`)
)

// cleanReply implements spec.md §4.6 step 5's post-processing.
func cleanReply(raw string) string {
	text := raw
	for _, re := range confirmationPrefixes {
		text = re.ReplaceAllString(text, "")
	}

	text = mdHeading.ReplaceAllString(text, "")
	text = mdBold.ReplaceAllString(text, "$1")
	text = mdItalic.ReplaceAllString(text, "$1")
	text = mdCode.ReplaceAllString(text, "$1")
	text = mdListItem.ReplaceAllString(text, "")
	text = mdRule.ReplaceAllString(text, "")
	text = standaloneTitle.ReplaceAllString(text, "")
	text = blankRuns.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}

// defaultTemplateSummary synthesises a deterministic summary from segment
// statistics when no LLM API key is configured at all.
func defaultTemplateSummary(segments []models.Segment) string {
	speakers := map[string]int{}
	var totalWords int
	for _, s := range segments {
		speakers[s.Speaker]++
		totalWords += len(strings.Fields(s.Text))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Transcript summary (%d segments, %d speakers, ~%d words).\n\n", len(segments), len(speakers), totalWords)
	b.WriteString("Excerpt:\n")
	for i, s := range segments {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", s.Speaker, s.Text)
	}
	return strings.TrimSpace(b.String())
}
