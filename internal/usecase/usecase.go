// Package usecase contains the document-processing orchestrators.
//
// Each long-running operation shares one shape: estimate the document's token
// count, process it in a single completion call when it fits, otherwise
// segment it and drive one call per section before reducing the partial
// results. Per-call failures degrade to user-visible placeholder strings so a
// reading session is never interrupted by an error page; only a missing
// credential pool is treated as fatal.
package usecase

import (
	"errors"

	"github.com/fairyhunter13/ai-doc-companion/internal/adapter/observability"
	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
)

// parseFailureAnswer replaces a completion whose envelope could not be decoded.
const parseFailureAnswer = "Couldn't parse the response from Gemini API"

// emptyCompletionAnswer replaces a completion that decoded cleanly but
// carried no text.
const emptyCompletionAnswer = "No summary could be generated."

// failSoft converts a completion error into the user-facing placeholder for
// the operation. ErrNoCredentials stays an error: without keys there is
// nothing sensible to show and the caller must surface configuration trouble.
func failSoft(err error, fallback string) (string, error) {
	if errors.Is(err, domain.ErrNoCredentials) {
		return "", err
	}
	if errors.Is(err, domain.ErrMalformedResponse) {
		return parseFailureAnswer, nil
	}
	if errors.Is(err, domain.ErrEmptyCompletion) {
		return emptyCompletionAnswer, nil
	}
	return fallback, nil
}

// estimateTokens approximates the token count as characterLength/4.
func estimateTokens(text string) int {
	return len(text) / 4
}

// progressEmitter wraps an optional caller callback, mirroring every event to
// the progress gauge. Emissions within one run are non-decreasing and the
// final event reports 100.
func progressEmitter(jobType string, onProgress domain.ProgressFunc) domain.ProgressFunc {
	return func(percent int, stage string) {
		observability.ObserveProgress(jobType, percent)
		if onProgress != nil {
			onProgress(percent, stage)
		}
	}
}
