package usecase

import (
	"github.com/fairyhunter13/ai-doc-companion/internal/adapter/observability"
	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
)

// AskService answers free-form questions about a document and explains
// highlighted passages in their surrounding context.
type AskService struct {
	AI      domain.CompletionClient
	Prompts *Prompts
}

// NewAskService constructs an AskService.
func NewAskService(ai domain.CompletionClient, prompts *Prompts) AskService {
	return AskService{AI: ai, Prompts: prompts}
}

const (
	askFailure     = "Sorry, I encountered an error while processing your request."
	explainFailure = "Sorry, I couldn't explain that text. Please try again."
)

// Ask answers a question, grounding it in the visible part of an open
// document when one is provided. docName and visibleContent may be empty for
// a free-standing question.
func (s AskService) Ask(ctx domain.Context, question, docName, docID, visibleContent string) (string, error) {
	out, err := s.AI.Complete(ctx, s.Prompts.Ask(question, docName, docID, visibleContent))
	if err != nil {
		return failSoft(err, askFailure)
	}
	observability.ObserveJob("ask", "direct")
	return out, nil
}

// Explain defines a highlighted passage using the text around it. before and
// after carry the surrounding context; either may be empty at document edges.
func (s AskService) Explain(ctx domain.Context, highlighted, before, after, docTitle string) (string, error) {
	textWithContext := before + "[HIGHLIGHTED TEXT START]" + highlighted + "[HIGHLIGHTED TEXT END]" + after
	term := ExtractTerm(highlighted)
	out, err := s.AI.Complete(ctx, s.Prompts.Explain(textWithContext, docTitle, term))
	if err != nil {
		return failSoft(err, explainFailure)
	}
	observability.ObserveJob("explain", "direct")
	return out, nil
}
