package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
)

// stubAI records prompts and answers from a programmable responder.
type stubAI struct {
	mu      sync.Mutex
	prompts []string
	respond func(call int, prompt string) (string, error)
}

func (s *stubAI) Complete(_ domain.Context, prompt string) (string, error) {
	s.mu.Lock()
	call := len(s.prompts)
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()
	if s.respond != nil {
		return s.respond(call, prompt)
	}
	return fmt.Sprintf("answer %d", call), nil
}

func (s *stubAI) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

type progressEvent struct {
	percent int
	stage   string
}

type progressRecorder struct {
	events []progressEvent
}

func (r *progressRecorder) fn(percent int, stage string) {
	r.events = append(r.events, progressEvent{percent, stage})
}

func (r *progressRecorder) assertMonotonicTo100(t *testing.T) {
	t.Helper()
	require.NotEmpty(t, r.events)
	prev := -1
	for _, e := range r.events {
		assert.GreaterOrEqual(t, e.percent, prev, "progress went backwards at %q", e.stage)
		prev = e.percent
	}
	assert.Equal(t, 100, r.events[len(r.events)-1].percent)
}

// headedDoc builds a markdown document with n heading-led sections of
// roughly 2000 characters each.
func headedDoc(n int) string {
	var b strings.Builder
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "# Heading %d\n\n%s\n\n", i, strings.Repeat("word ", 400))
	}
	return b.String()
}

func TestSummarizeDirect(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) { return "a fine summary", nil }}
	svc := NewSummarizeService(ai, NewPrompts(nil), 30000)
	rec := &progressRecorder{}

	text := strings.Repeat("x", 5000)
	got, err := svc.Summarize(context.Background(), text, "Short Doc", domain.SummaryBrief, rec.fn)

	require.NoError(t, err)
	assert.Equal(t, "a fine summary", got)
	assert.Equal(t, 1, ai.calls())
	assert.Contains(t, ai.prompts[0], "approximately 100-150 words")
	assert.Contains(t, ai.prompts[0], "Document Title: Short Doc")
	require.Len(t, rec.events, 2)
	assert.Equal(t, progressEvent{50, "Summarizing document"}, rec.events[0])
	assert.Equal(t, progressEvent{100, "Complete"}, rec.events[1])
}

func TestSummarizeDefaultsToMedium(t *testing.T) {
	ai := &stubAI{}
	svc := NewSummarizeService(ai, NewPrompts(nil), 30000)

	_, err := svc.Summarize(context.Background(), "some text", "Doc", "", nil)

	require.NoError(t, err)
	assert.Contains(t, ai.prompts[0], "approximately 200-300 words")
}

func TestSummarizeRejectsUnknownLength(t *testing.T) {
	svc := NewSummarizeService(&stubAI{}, NewPrompts(nil), 30000)

	_, err := svc.Summarize(context.Background(), "text", "Doc", "gigantic", nil)

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestSummarizeChunked(t *testing.T) {
	ai := &stubAI{respond: func(call int, prompt string) (string, error) {
		if strings.Contains(prompt, "(Section Summaries)") {
			return "the final summary", nil
		}
		return fmt.Sprintf("section summary %d", call+1), nil
	}}
	// Each ~2000-char section stays under the limit; the whole document does not.
	svc := NewSummarizeService(ai, NewPrompts(nil), 1000)
	rec := &progressRecorder{}

	got, err := svc.Summarize(context.Background(), headedDoc(4), "Big Doc", domain.SummaryMedium, rec.fn)

	require.NoError(t, err)
	assert.Equal(t, 5, ai.calls(), "four section calls plus one reduction call")
	for i := 0; i < 4; i++ {
		assert.Contains(t, ai.prompts[i], "approximately 100-150 words", "section passes are brief")
		assert.Contains(t, ai.prompts[i], fmt.Sprintf("Big Doc - Heading %d", i+1))
	}
	assert.Contains(t, ai.prompts[4], "Big Doc (Section Summaries)")

	assert.True(t, strings.HasPrefix(got, "# Summary of Big Doc\n\nthe final summary\n\n---\n\n# Detailed Section Summaries\n\n"))
	for i := 1; i <= 4; i++ {
		assert.Contains(t, got, fmt.Sprintf("## Heading %d\n\nsection summary %d", i, i))
	}

	rec.assertMonotonicTo100(t)
	assert.Equal(t, progressEvent{10, "Analyzing document structure"}, rec.events[0])
	assert.Contains(t, rec.events, progressEvent{70, "Combining section summaries"})
	assert.Contains(t, rec.events, progressEvent{80, "Creating final summary"})
}

func TestSummarizeChunkedSectionFailureDegrades(t *testing.T) {
	ai := &stubAI{respond: func(call int, prompt string) (string, error) {
		if call == 1 {
			return "", fmt.Errorf("%w: 500", domain.ErrUpstreamStatus)
		}
		return "ok", nil
	}}
	svc := NewSummarizeService(ai, NewPrompts(nil), 1000)

	got, err := svc.Summarize(context.Background(), headedDoc(3), "Doc", domain.SummaryBrief, nil)

	require.NoError(t, err)
	assert.Contains(t, got, summaryFailure, "failed section degrades to a placeholder instead of aborting")
}

func TestSummarizeFailSoft(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"upstream status", fmt.Errorf("%w: 500", domain.ErrUpstreamStatus), summaryFailure},
		{"rate limited", domain.ErrUpstreamRateLimit, summaryFailure},
		{"malformed envelope", domain.ErrMalformedResponse, parseFailureAnswer},
		{"empty completion", domain.ErrEmptyCompletion, emptyCompletionAnswer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ai := &stubAI{respond: func(int, string) (string, error) { return "", tt.err }}
			svc := NewSummarizeService(ai, NewPrompts(nil), 30000)

			got, err := svc.Summarize(context.Background(), "short text", "Doc", domain.SummaryBrief, nil)

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSummarizeNoCredentialsIsFatal(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) { return "", domain.ErrNoCredentials }}
	svc := NewSummarizeService(ai, NewPrompts(nil), 30000)

	_, err := svc.Summarize(context.Background(), "short text", "Doc", domain.SummaryBrief, nil)

	assert.ErrorIs(t, err, domain.ErrNoCredentials)
}

func TestSummarizeSection(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) { return "it means this", nil }}
	svc := NewSummarizeService(ai, NewPrompts(nil), 30000)

	got, err := svc.SummarizeSection(context.Background(), "the section", strings.Repeat("c", 900), "Doc")

	require.NoError(t, err)
	assert.Equal(t, "it means this", got)
	assert.Contains(t, ai.prompts[0], "Section to Summarize: the section")
	assert.NotContains(t, ai.prompts[0], strings.Repeat("c", 501), "context is abbreviated to 500 runes")
}

func TestRewriteDirect(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) { return "rewritten text", nil }}
	svc := NewRewriteService(ai, NewPrompts(nil), 30000)
	rec := &progressRecorder{}

	got, err := svc.Rewrite(context.Background(), "original text", "Doc", domain.StyleSimple, "", rec.fn)

	require.NoError(t, err)
	assert.Equal(t, "rewritten text", got)
	assert.Equal(t, 1, ai.calls())
	assert.Contains(t, ai.prompts[0], "simple language (around 6th-8th grade reading level)")
	assert.Contains(t, ai.prompts[0], "Please respond in English language.")
	require.Len(t, rec.events, 3)
	assert.Equal(t, progressEvent{30, "Analyzing document"}, rec.events[0])
	assert.Equal(t, progressEvent{50, "Rewriting document"}, rec.events[1])
	assert.Equal(t, progressEvent{100, "Complete"}, rec.events[2])
}

func TestRewriteStripsCodeFormatting(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) {
		return "intro\n```go\nkept line\n```\n    indented line", nil
	}}
	svc := NewRewriteService(ai, NewPrompts(nil), 30000)

	got, err := svc.Rewrite(context.Background(), "text", "Doc", domain.StyleSimple, "English", nil)

	require.NoError(t, err)
	assert.NotContains(t, got, "```")
	assert.Contains(t, got, "kept line")
	assert.Contains(t, got, "\nindented line")
}

func TestRewriteConcisePrompt(t *testing.T) {
	ai := &stubAI{}
	svc := NewRewriteService(ai, NewPrompts(nil), 30000)

	_, err := svc.Rewrite(context.Background(), "text", "Doc", domain.StyleConcise, "English", nil)

	require.NoError(t, err)
	assert.Contains(t, ai.prompts[0], "reduce the length by 30-40%")
	assert.NotContains(t, ai.prompts[0], "MUST match the original document in length")
}

func TestRewriteRejectsUnknownStyle(t *testing.T) {
	svc := NewRewriteService(&stubAI{}, NewPrompts(nil), 30000)

	_, err := svc.Rewrite(context.Background(), "text", "Doc", "baroque", "English", nil)

	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestRewriteChunked(t *testing.T) {
	ai := &stubAI{respond: func(call int, prompt string) (string, error) {
		return fmt.Sprintf("rewritten %d", call+1), nil
	}}
	svc := NewRewriteService(ai, NewPrompts(nil), 1000)
	rec := &progressRecorder{}

	got, err := svc.Rewrite(context.Background(), headedDoc(4), "Big Doc", domain.StyleProfessional, "English", rec.fn)

	require.NoError(t, err)
	assert.Equal(t, 4, ai.calls(), "one call per section and no reduction pass")
	assert.Equal(t, "rewritten 1\n\nrewritten 2\n\nrewritten 3\n\nrewritten 4", got)
	for i := 0; i < 4; i++ {
		assert.Contains(t, ai.prompts[i], fmt.Sprintf("Big Doc - Heading %d", i+1))
	}

	rec.assertMonotonicTo100(t)
	assert.Equal(t, progressEvent{10, "Analyzing document structure"}, rec.events[0])
	assert.Contains(t, rec.events, progressEvent{90, "Combining rewritten sections"})
	for i := 0; i < 4; i++ {
		assert.Contains(t, rec.events, progressEvent{10 + i*20, fmt.Sprintf("Rewriting section %d of %d", i+1, 4)})
	}
}

func TestRewriteUnsplittableTextTerminates(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) { return "rewritten once", nil }}
	// Dense text with no headings, paragraphs, or sentence boundaries: the
	// segmenter yields a single section equal to the whole input.
	svc := NewRewriteService(ai, NewPrompts(nil), 1000)
	rec := &progressRecorder{}

	done := make(chan struct{})
	var got string
	var err error
	go func() {
		got, err = svc.Rewrite(context.Background(), strings.Repeat("a", 9000), "Doc", domain.StyleSimple, "English", rec.fn)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Rewrite did not return")
	}

	require.NoError(t, err)
	assert.Equal(t, "rewritten once", got)
	assert.Equal(t, 1, ai.calls(), "unsplittable text gets one oversized call, not recursion")
	assert.Contains(t, ai.prompts[0], "Document Title: Doc\n", "title is not compounded")
	rec.assertMonotonicTo100(t)
}

func TestRewriteFailSoft(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) {
		return "", fmt.Errorf("%w: 503", domain.ErrUpstreamStatus)
	}}
	svc := NewRewriteService(ai, NewPrompts(nil), 30000)

	got, err := svc.Rewrite(context.Background(), "text", "Doc", domain.StyleSimple, "English", nil)

	require.NoError(t, err)
	assert.Equal(t, rewriteFailure, got)
}

func TestAsk(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) { return "the answer", nil }}
	svc := NewAskService(ai, NewPrompts(nil))

	got, err := svc.Ask(context.Background(), "what is this?", "My Doc", "doc-1", "visible text")

	require.NoError(t, err)
	assert.Equal(t, "the answer", got)
	assert.Contains(t, ai.prompts[0], `a document titled "My Doc" (ID: doc-1)`)
	assert.Contains(t, ai.prompts[0], "what is this?")
	assert.Contains(t, ai.prompts[0], "visible text")
}

func TestAskWithoutDocumentPassesQuestionThrough(t *testing.T) {
	ai := &stubAI{}
	svc := NewAskService(ai, NewPrompts(nil))

	_, err := svc.Ask(context.Background(), "plain question", "", "", "")

	require.NoError(t, err)
	assert.Equal(t, "plain question", ai.prompts[0])
}

func TestAskFailSoft(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) { return "", domain.ErrUpstreamRateLimit }}
	svc := NewAskService(ai, NewPrompts(nil))

	got, err := svc.Ask(context.Background(), "q", "", "", "")

	require.NoError(t, err)
	assert.Equal(t, askFailure, got)
}

func TestExplain(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) { return "**gradient**: a slope.", nil }}
	svc := NewAskService(ai, NewPrompts(nil))

	got, err := svc.Explain(context.Background(), "gradient", "the before text ", " the after text", "Calculus Notes")

	require.NoError(t, err)
	assert.Equal(t, "**gradient**: a slope.", got)
	assert.Contains(t, ai.prompts[0], "the before text [HIGHLIGHTED TEXT START]gradient[HIGHLIGHTED TEXT END] the after text")
	assert.Contains(t, ai.prompts[0], `"gradient" in bold`)
	assert.Contains(t, ai.prompts[0], "Document Title: Calculus Notes")
}

func TestExplainFailSoft(t *testing.T) {
	ai := &stubAI{respond: func(int, string) (string, error) { return "", domain.ErrMalformedResponse }}
	svc := NewAskService(ai, NewPrompts(nil))

	got, err := svc.Explain(context.Background(), "term", "", "", "Doc")

	require.NoError(t, err)
	assert.Equal(t, parseFailureAnswer, got)
}

func TestExtractTerm(t *testing.T) {
	assert.Equal(t, "short phrase", ExtractTerm("  short phrase  "))
	long := "this is a rather long selection that goes on well past forty characters"
	assert.Equal(t, "this is a rather...", ExtractTerm(long))
}
