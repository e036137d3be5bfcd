package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-doc-companion/internal/adapter/observability"
	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
	observabilityctx "github.com/fairyhunter13/ai-doc-companion/internal/observability"
	"github.com/fairyhunter13/ai-doc-companion/internal/segment"
)

// SummarizeService produces document summaries, switching to a map-reduce
// pass over sections when the document exceeds the token limit.
type SummarizeService struct {
	AI         domain.CompletionClient
	Prompts    *Prompts
	TokenLimit int
}

// NewSummarizeService constructs a SummarizeService.
func NewSummarizeService(ai domain.CompletionClient, prompts *Prompts, tokenLimit int) SummarizeService {
	return SummarizeService{AI: ai, Prompts: prompts, TokenLimit: tokenLimit}
}

const (
	summaryFailure     = "Sorry, I encountered an error while generating the summary."
	longSummaryFailure = "Sorry, I encountered an error while generating the summary for this long document."
	sectionFailure     = "Sorry, I encountered an error while generating the section summary."
)

// Summarize returns a summary of text at the requested length. For documents
// under the token limit this is a single completion call; longer documents
// are summarized section by section, then the section summaries are reduced
// into a final summary and both are returned in one composed document.
// Progress events are emitted throughout; onProgress may be nil.
func (s SummarizeService) Summarize(ctx domain.Context, text, title string, length domain.SummaryLength, onProgress domain.ProgressFunc) (string, error) {
	if length == "" {
		length = domain.SummaryMedium
	}
	if !length.Valid() {
		return "", fmt.Errorf("%w: unknown summary length %q", domain.ErrInvalidArgument, length)
	}
	emit := progressEmitter("summarize", onProgress)
	lg := observabilityctx.LoggerFromContext(ctx)

	if estimateTokens(text) < s.TokenLimit {
		emit(50, "Summarizing document")
		summary, err := s.summarizeOnce(ctx, text, title, length)
		if err != nil {
			return "", err
		}
		emit(100, "Complete")
		observability.ObserveJob("summarize", "direct")
		return summary, nil
	}

	emit(10, "Analyzing document structure")
	sections := segment.Split(text)
	if len(sections) == 0 {
		// Degenerate input; fall back to a single call rather than failing.
		emit(50, "Summarizing document")
		summary, err := s.summarizeOnce(ctx, text, title, length)
		if err != nil {
			return "", err
		}
		emit(100, "Complete")
		return summary, nil
	}
	observability.SectionsPerDocument.Observe(float64(len(sections)))
	lg.Info("summarizing long document",
		"title", title,
		"sections", len(sections),
		"estimated_tokens", estimateTokens(text))

	sectionSummaries := make([]string, 0, len(sections))
	for i, sec := range sections {
		emit(10+int(float64(i)/float64(len(sections))*60), fmt.Sprintf("Summarizing section %d of %d", i+1, len(sections)))
		sectionTitle := sec.Title
		if sectionTitle == "" {
			sectionTitle = fmt.Sprintf("Section %d", i+1)
		}
		summary, err := s.summarizeOnce(ctx, sec.Text, title+" - "+sectionTitle, domain.SummaryBrief)
		if err != nil {
			return "", err
		}
		sectionSummaries = append(sectionSummaries, "## "+sectionTitle+"\n\n"+summary)
	}

	emit(70, "Combining section summaries")
	combined := strings.Join(sectionSummaries, "\n\n")

	emit(80, "Creating final summary")
	final, err := s.summarizeOnce(ctx, combined, title+" (Section Summaries)", length)
	if err != nil {
		return "", err
	}

	result := fmt.Sprintf("# Summary of %s\n\n%s\n\n---\n\n# Detailed Section Summaries\n\n%s", title, final, combined)
	emit(100, "Complete")
	observability.ObserveJob("summarize", "chunked")
	return result, nil
}

// SummarizeSection explains one section in 2-3 plain sentences, using an
// abbreviated slice of the surrounding document for accuracy.
func (s SummarizeService) SummarizeSection(ctx domain.Context, text, docContext, title string) (string, error) {
	out, err := s.AI.Complete(ctx, s.Prompts.SummarizeSection(text, docContext, title))
	if err != nil {
		return failSoft(err, sectionFailure)
	}
	return out, nil
}

func (s SummarizeService) summarizeOnce(ctx domain.Context, text, title string, length domain.SummaryLength) (string, error) {
	out, err := s.AI.Complete(ctx, s.Prompts.Summarize(text, title, length))
	if err != nil {
		fallback := summaryFailure
		if estimateTokens(text) >= s.TokenLimit {
			fallback = longSummaryFailure
		}
		return failSoft(err, fallback)
	}
	return out, nil
}
