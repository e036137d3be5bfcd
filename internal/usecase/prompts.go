package usecase

import (
	"fmt"
	"strings"

	"github.com/fairyhunter13/ai-doc-companion/internal/config"
	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
)

// Prompts builds the prompt strings sent to the completion endpoint. The
// wording is load-bearing: summary quality and rewrite length discipline
// depend on it, so overrides are applied per-field and everything else keeps
// the built-in text.
type Prompts struct {
	styleGuides     map[domain.RewriteStyle]string
	wordCounts      map[domain.SummaryLength]string
	defaultLanguage string
}

const lengthKeeper = "IMPORTANT: The rewritten document MUST be approximately the same length as the original document - aim to match the original word count closely. Do not shorten or summarize the content."

var defaultStyleGuides = map[domain.RewriteStyle]string{
	domain.StyleSimple:       "Use simple language (around 6th-8th grade reading level). Break complex ideas into shorter sentences. Define technical terms. Use concrete examples. " + lengthKeeper,
	domain.StyleAcademic:     "Maintain academic rigor but improve clarity. Use precise language and proper citations if present. Organize with clear section headings and logical flow. " + lengthKeeper,
	domain.StyleProfessional: "Use clear, professional language. Be concise but thorough. Organize information logically with appropriate headings and bullet points where helpful. " + lengthKeeper,
	domain.StyleConcise:      "Reduce length by 30-40% while preserving key information. Eliminate redundancy. Use direct language. Prioritize the most important points.",
}

var defaultWordCounts = map[domain.SummaryLength]string{
	domain.SummaryBrief:    "100-150",
	domain.SummaryMedium:   "200-300",
	domain.SummaryDetailed: "400-600",
}

// NewPrompts constructs prompt templates, applying any overrides from the
// optional YAML prompt config.
func NewPrompts(overrides *config.PromptConfig) *Prompts {
	p := &Prompts{
		styleGuides:     map[domain.RewriteStyle]string{},
		wordCounts:      map[domain.SummaryLength]string{},
		defaultLanguage: "English",
	}
	for k, v := range defaultStyleGuides {
		p.styleGuides[k] = v
	}
	for k, v := range defaultWordCounts {
		p.wordCounts[k] = v
	}
	if overrides == nil {
		return p
	}
	for k, v := range overrides.StyleGuides {
		if s := domain.RewriteStyle(k); s.Valid() && v != "" {
			p.styleGuides[s] = v
		}
	}
	for k, v := range overrides.WordCounts {
		if l := domain.SummaryLength(k); l.Valid() && v != "" {
			p.wordCounts[l] = v
		}
	}
	if overrides.DefaultLanguage != "" {
		p.defaultLanguage = overrides.DefaultLanguage
	}
	return p
}

// DefaultLanguage is the response language used when the caller supplies none.
func (p *Prompts) DefaultLanguage() string { return p.defaultLanguage }

// Summarize builds the whole-document summary prompt for the given target length.
func (p *Prompts) Summarize(text, title string, length domain.SummaryLength) string {
	return fmt.Sprintf(`You are a document summarization assistant. Create a concise summary of the following document that captures the main points, key arguments, and conclusions. The summary should be approximately %s words.

Document Title: %s
Document Content: %s

Format the summary with clear sections, bullet points for key takeaways, and maintain the original document's main structure.`, p.wordCounts[length], title, text)
}

// SummarizeSection builds the short plain-language section explanation
// prompt. Only the first 500 runes of the surrounding context are included.
func (p *Prompts) SummarizeSection(text, docContext, title string) string {
	abbreviated := docContext
	if runes := []rune(abbreviated); len(runes) > 500 {
		abbreviated = string(runes[:500])
	}
	return fmt.Sprintf(`You are a document summarization assistant. Create an extremely concise and clear explanation of the following section from a document. Focus only on the provided section, but use the context to ensure accuracy.

Document Title: %s
Document Context: %s... (abbreviated)
Section to Summarize: %s

Provide a crystal-clear explanation in 2-3 short sentences maximum. Use simple language that anyone can understand immediately. Focus only on the most important point or meaning. Avoid unnecessary details, jargon, or complexity.`, title, abbreviated, text)
}

// Rewrite builds the document rewrite prompt for the given style and
// response language.
func (p *Prompts) Rewrite(text, title string, style domain.RewriteStyle, language string) string {
	lengthRule := "CRITICAL: The rewritten document MUST match the original document in length. Count the approximate number of words in the original and ensure your rewritten version has a similar word count. Expand on explanations if needed to maintain the original length."
	if style == domain.StyleConcise {
		lengthRule = "Aim to reduce the length by 30-40% while preserving key information."
	}
	return fmt.Sprintf(`You are an expert document editor. Rewrite the following document to make it more comprehensible while preserving all important information and meaning.

Style Guide: %s

Document Title: %s
Document Content:
%s

Important instructions:
1. Maintain the same overall structure and headings from the original document
2. Preserve all factual information and key points
3. Keep any code snippets, equations, or specialized notation exactly as they appear
4. Format the document using Markdown for headings, lists, and emphasis
5. Do not add new information that wasn't in the original
6. Do not include phrases like "In this document" or meta-commentary about the rewriting process
7. DO NOT use triple backticks (`+"```"+`) or indentation to format text as code blocks
8. Use # for headings, * for bullet points, and ** for bold text
9. %s

Return the complete rewritten document in Markdown format.

Please respond in %s language.`, p.styleGuides[style], title, text, lengthRule, language)
}

// Ask builds the chat prompt, wrapping the question with the currently
// visible part of the document when one is open.
func (p *Prompts) Ask(question, docName, docID, visibleContent string) string {
	if docName == "" || visibleContent == "" {
		return question
	}
	return fmt.Sprintf(`
I'm reading a document titled %q (ID: %s).
Here's my question: %s

For context, here's the part of the document I'm currently looking at:
%s
`, docName, docID, question, visibleContent)
}

// Explain builds the highlight-explanation prompt. textWithContext carries
// the selection wrapped in [HIGHLIGHTED TEXT START]/[HIGHLIGHTED TEXT END]
// markers with surrounding context around it.
func (p *Prompts) Explain(textWithContext, docTitle, term string) string {
	return fmt.Sprintf(`
You are an expert reading assistant. Explain the highlighted portion of text below in the simplest, clearest way possible.
Focus ONLY on explaining the text between [HIGHLIGHTED TEXT START] and [HIGHLIGHTED TEXT END] markers.
Use the surrounding context to inform your explanation, but don't explain the context itself.

Document Title: %s
Text with Context:
%s

Provide an extremely concise explanation (maximum 2-3 short sentences) of ONLY the highlighted text, making sure to:
1. Use simple, everyday language - avoid jargon unless absolutely necessary
2. Focus on the core meaning or main point only
3. Be direct and straightforward - no unnecessary words
4. If technical terms must be used, briefly define them

Format your response with the term %q in bold at the beginning, like this:
**%s**: Your explanation here...

Your explanation should be immediately understandable to someone with no background knowledge.
`, docTitle, textWithContext, term, term)
}

// ExtractTerm picks a short display term from the selected text for the
// explanation lead-in: the selection itself when short, else its first words.
func ExtractTerm(selected string) string {
	selected = strings.TrimSpace(selected)
	runes := []rune(selected)
	if len(runes) <= 40 {
		return selected
	}
	words := strings.Fields(selected)
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, " ") + "..."
}
