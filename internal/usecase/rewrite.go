package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-doc-companion/internal/adapter/observability"
	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
	observabilityctx "github.com/fairyhunter13/ai-doc-companion/internal/observability"
	"github.com/fairyhunter13/ai-doc-companion/internal/segment"
	"github.com/fairyhunter13/ai-doc-companion/pkg/textx"
)

// RewriteService rewrites documents in a chosen style, section by section
// when they exceed the token limit.
type RewriteService struct {
	AI         domain.CompletionClient
	Prompts    *Prompts
	TokenLimit int
}

// NewRewriteService constructs a RewriteService.
func NewRewriteService(ai domain.CompletionClient, prompts *Prompts, tokenLimit int) RewriteService {
	return RewriteService{AI: ai, Prompts: prompts, TokenLimit: tokenLimit}
}

const (
	rewriteFailure     = "Sorry, I encountered an error while rewriting the document."
	longRewriteFailure = "Sorry, I encountered an error while rewriting this long document."
)

// Rewrite returns text rewritten in the requested style. Non-concise styles
// keep the original's approximate length; concise reduces it by 30-40%. Long
// documents are rewritten per section and the rewrites joined with a blank
// line; there is no reduction pass. Progress events are emitted throughout;
// onProgress may be nil.
func (s RewriteService) Rewrite(ctx domain.Context, text, title string, style domain.RewriteStyle, language string, onProgress domain.ProgressFunc) (string, error) {
	if style == "" {
		style = domain.StyleSimple
	}
	if !style.Valid() {
		return "", fmt.Errorf("%w: unknown rewrite style %q", domain.ErrInvalidArgument, style)
	}
	if language == "" {
		language = s.Prompts.DefaultLanguage()
	}
	emit := progressEmitter("rewrite", onProgress)

	if estimateTokens(text) > s.TokenLimit {
		return s.rewriteLong(ctx, text, title, style, language, emit)
	}

	emit(30, "Analyzing document")
	prompt := s.Prompts.Rewrite(text, title, style, language)
	emit(50, "Rewriting document")
	out, err := s.AI.Complete(ctx, prompt)
	if err != nil {
		return failSoft(err, rewriteFailure)
	}
	emit(100, "Complete")
	observability.ObserveJob("rewrite", "direct")
	return sanitizeRewrite(out), nil
}

// rewriteLong drives one rewrite per section in document order. A section
// that still exceeds the token limit is chunked again by the recursive call.
func (s RewriteService) rewriteLong(ctx domain.Context, text, title string, style domain.RewriteStyle, language string, emit domain.ProgressFunc) (string, error) {
	emit(10, "Analyzing document structure")
	sections := segment.Split(text)
	if len(sections) == 0 {
		return longRewriteFailure, nil
	}
	if len(sections) == 1 {
		// Segmentation could not break the text down any further. Recursing
		// would re-enter this path on identical input, so issue one oversized
		// call and let the client truncate if needed.
		emit(50, "Rewriting document")
		out, err := s.AI.Complete(ctx, s.Prompts.Rewrite(text, title, style, language))
		if err != nil {
			return failSoft(err, longRewriteFailure)
		}
		emit(100, "Complete")
		observability.ObserveJob("rewrite", "chunked")
		return sanitizeRewrite(out), nil
	}
	observability.SectionsPerDocument.Observe(float64(len(sections)))
	observabilityctx.LoggerFromContext(ctx).Info("rewriting long document",
		"title", title,
		"style", string(style),
		"sections", len(sections))

	rewritten := make([]string, 0, len(sections))
	for i, sec := range sections {
		emit(10+int(float64(i)/float64(len(sections))*80), fmt.Sprintf("Rewriting section %d of %d", i+1, len(sections)))
		sectionTitle := sec.Title
		if sectionTitle == "" {
			sectionTitle = fmt.Sprintf("Section %d", i+1)
		}
		out, err := s.Rewrite(ctx, sec.Text, title+" - "+sectionTitle, style, language, nil)
		if err != nil {
			return "", err
		}
		rewritten = append(rewritten, out)
	}

	emit(90, "Combining rewritten sections")
	result := strings.Join(rewritten, "\n\n")
	emit(100, "Complete")
	observability.ObserveJob("rewrite", "chunked")
	return result, nil
}

// sanitizeRewrite scrubs model output the renderer would misread as code:
// fence markers are removed (content kept) and a leading 4-space/tab indent
// is dropped per line.
func sanitizeRewrite(out string) string {
	return textx.StripLeadingIndent(textx.StripCodeFences(out))
}
