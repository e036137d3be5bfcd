package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrNoCredentials     = errors.New("no API credentials configured")
	ErrUpstreamStatus    = errors.New("upstream status")
	ErrUpstreamRateLimit = errors.New("upstream rate limit")
	ErrMalformedResponse = errors.New("malformed upstream response")
	ErrEmptyCompletion   = errors.New("empty completion")
	ErrInternal          = errors.New("internal error")
)

// SummaryLength selects the target word-count range for summaries.
type SummaryLength string

// Summary lengths.
const (
	SummaryBrief    SummaryLength = "brief"
	SummaryMedium   SummaryLength = "medium"
	SummaryDetailed SummaryLength = "detailed"
)

// Valid reports whether l is a known summary length.
func (l SummaryLength) Valid() bool {
	switch l {
	case SummaryBrief, SummaryMedium, SummaryDetailed:
		return true
	}
	return false
}

// RewriteStyle selects the prompt style guide for rewriting.
type RewriteStyle string

// Rewrite styles.
const (
	StyleSimple       RewriteStyle = "simple"
	StyleAcademic     RewriteStyle = "academic"
	StyleProfessional RewriteStyle = "professional"
	StyleConcise      RewriteStyle = "concise"
)

// Valid reports whether s is a known rewrite style.
func (s RewriteStyle) Valid() bool {
	switch s {
	case StyleSimple, StyleAcademic, StyleProfessional, StyleConcise:
		return true
	}
	return false
}

// ProgressFunc receives advisory progress events during long-running
// operations. Percent is in [0,100]; stage is a free-text label. Within one
// run percentages are non-decreasing and the final event reports 100.
type ProgressFunc func(percent int, stage string)

// Document is a user-stored document in the library.
// Invariants: Type in {txt, md}; Content sanitized and non-empty.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Bookmark marks a reading position within a document.
type Bookmark struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Label      string    `json:"label"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

// CompletionClient (port)
//
// Complete sends one prompt to the text-completion endpoint and returns the
// first candidate's text. Implementations rotate credentials per call and
// return typed errors; rendering a failure as a user-facing placeholder
// string is the caller's concern.
type CompletionClient interface {
	Complete(ctx Context, prompt string) (string, error)
}

// KeyValueStore (port)
//
// Namespaced key-value persistence used by the document library.
// Get returns ErrNotFound when the key is absent.
type KeyValueStore interface {
	Get(ctx Context, key string) (string, error)
	Set(ctx Context, key, value string) error
	Delete(ctx Context, key string) error
}

// Context is an alias so inner layers do not import std context directly.
type Context = context.Context
