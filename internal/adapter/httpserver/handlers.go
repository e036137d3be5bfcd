package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/ai-doc-companion/internal/config"
	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
	"github.com/fairyhunter13/ai-doc-companion/internal/service/keypool"
	"github.com/fairyhunter13/ai-doc-companion/internal/service/usagestats"
	"github.com/fairyhunter13/ai-doc-companion/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Summaries  usecase.SummarizeService
	Rewrites   usecase.RewriteService
	Asks       usecase.AskService
	Library    usecase.LibraryService
	Keys       *keypool.Pool
	Stats      *usagestats.Tracker
	RedisCheck func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers wired.
func NewServer(cfg config.Config, summaries usecase.SummarizeService, rewrites usecase.RewriteService, asks usecase.AskService, library usecase.LibraryService, keys *keypool.Pool, stats *usagestats.Tracker, redisCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Summaries: summaries, Rewrites: rewrites, Asks: asks, Library: library, Keys: keys, Stats: stats, RedisCheck: redisCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// decodeJSON decodes and validates a JSON request body into dst. The body is
// capped well above the prompt truncation threshold so oversized documents
// reach the truncation logic instead of failing at the transport.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 8<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
		return false
	}
	if err := getValidator().Struct(dst); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), verrs)
		return false
	}
	return true
}

// SummarizeHandler summarizes a document at the requested length.
func (s *Server) SummarizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text   string `json:"text" validate:"required"`
			Title  string `json:"title"`
			Length string `json:"length" validate:"omitempty,oneof=brief medium detailed"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		summary, err := s.Summaries.Summarize(r.Context(), req.Text, req.Title, domain.SummaryLength(req.Length), nil)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
	}
}

// SummarizeSectionHandler explains one section of a document in plain terms.
func (s *Server) SummarizeSectionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text    string `json:"text" validate:"required"`
			Context string `json:"context"`
			Title   string `json:"title"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		summary, err := s.Summaries.SummarizeSection(r.Context(), req.Text, req.Context, req.Title)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
	}
}

// RewriteHandler rewrites a document in the requested style and language.
func (s *Server) RewriteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text     string `json:"text" validate:"required"`
			Title    string `json:"title"`
			Style    string `json:"style" validate:"omitempty,oneof=simple academic professional concise"`
			Language string `json:"language"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		rewritten, err := s.Rewrites.Rewrite(r.Context(), req.Text, req.Title, domain.RewriteStyle(req.Style), req.Language, nil)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"rewritten": rewritten})
	}
}

// AskHandler answers a question, optionally grounded in the open document.
func (s *Server) AskHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question       string `json:"question" validate:"required"`
			DocName        string `json:"doc_name"`
			DocID          string `json:"doc_id"`
			VisibleContent string `json:"visible_content"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		answer, err := s.Asks.Ask(r.Context(), req.Question, req.DocName, req.DocID, req.VisibleContent)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
	}
}

// ExplainHandler explains a highlighted passage in its surrounding context.
func (s *Server) ExplainHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text          string `json:"text" validate:"required"`
			ContextBefore string `json:"context_before"`
			ContextAfter  string `json:"context_after"`
			DocTitle      string `json:"doc_title"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		explanation, err := s.Asks.Explain(r.Context(), req.Text, req.ContextBefore, req.ContextAfter, req.DocTitle)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
	}
}

// KeyCountHandler reports how many API keys the rotation pool holds.
func (s *Server) KeyCountHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": s.Keys.Size(), "source": "env"})
	}
}

// KeyCountFallbackHandler mirrors the legacy single-key surface.
func (s *Server) KeyCountFallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"count": 1, "source": "fallback"})
	}
}

// UsageStatsHandler reports total and today's upstream request counts.
func (s *Server) UsageStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, s.Stats.Snapshot())
	}
}

// UploadDocumentHandler accepts a plain-text or markdown file and stores it
// in the library. PDF and DOCX are rejected; there is no extractor.
func (s *Server) UploadDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Type"), "multipart/form-data") {
			writeError(w, r, fmt.Errorf("%w: content-type must be multipart/form-data", domain.ErrInvalidArgument), nil)
			return
		}
		maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			if strings.Contains(strings.ToLower(err.Error()), "too large") {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "payload too large", Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB}}})
				return
			}
			writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		file, header, err := r.FormFile("document")
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: document file required", domain.ErrInvalidArgument), map[string]string{"field": "document"})
			return
		}
		defer func() { _ = file.Close() }()
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, r, fmt.Errorf("%w: read: %v", domain.ErrInvalidArgument, err), nil)
			return
		}
		docType, ok := documentType(header.Filename, data)
		if !ok {
			writeJSON(w, http.StatusUnsupportedMediaType, errorEnvelope{Error: apiError{Code: "INVALID_ARGUMENT", Message: "only .txt and .md documents are supported", Details: map[string]string{"filename": header.Filename}}})
			return
		}
		doc, err := s.Library.AddDocument(r.Context(), header.Filename, docType, string(data))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, doc)
	}
}

// documentType maps an upload to its library document type. Extension picks
// the type; content sniffing rejects binary payloads behind a text extension.
func documentType(filename string, data []byte) (string, bool) {
	var docType string
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		docType = "txt"
	case ".md", ".markdown":
		docType = "md"
	default:
		return "", false
	}
	m := mimetype.Detect(data)
	for mt := m; mt != nil; mt = mt.Parent() {
		if strings.HasPrefix(mt.String(), "text/") {
			return docType, true
		}
	}
	return "", false
}

// ListDocumentsHandler returns every document in the library, newest first.
func (s *Server) ListDocumentsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := s.Library.ListDocuments(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if docs == nil {
			docs = []domain.Document{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
	}
}

// GetDocumentHandler fetches one document by id.
func (s *Server) GetDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := s.Library.GetDocument(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, doc)
	}
}

// DeleteDocumentHandler removes a document and its bookmarks.
func (s *Server) DeleteDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Library.DeleteDocument(r.Context(), chi.URLParam(r, "id")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SelectDocumentHandler marks a document as the one open in the reader.
func (s *Server) SelectDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.Library.SelectDocument(r.Context(), id); err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"selected": id})
	}
}

// SelectedDocumentHandler returns the id of the currently open document.
func (s *Server) SelectedDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := s.Library.SelectedDocument(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"selected": id})
	}
}

// AddBookmarkHandler stores a reading position for a document.
func (s *Server) AddBookmarkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Label    string `json:"label"`
			Position int    `json:"position" validate:"min=0"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		bm, err := s.Library.AddBookmark(r.Context(), chi.URLParam(r, "id"), req.Label, req.Position)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, bm)
	}
}

// ListBookmarksHandler returns a document's bookmarks.
func (s *Server) ListBookmarksHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bms, err := s.Library.ListBookmarks(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		if bms == nil {
			bms = []domain.Bookmark{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookmarks": bms})
	}
}

// DeleteBookmarkHandler removes one bookmark.
func (s *Server) DeleteBookmarkHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Library.DeleteBookmark(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "bookmarkID")); err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// PreferencesHandler returns the stored theme and response language.
func (s *Server) PreferencesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		theme, err := s.Library.Theme(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		lang, err := s.Library.Language(r.Context())
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"theme": theme, "language": lang})
	}
}

// UpdatePreferencesHandler stores the theme and/or response language.
func (s *Server) UpdatePreferencesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Theme    string `json:"theme"`
			Language string `json:"language"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Theme == "" && req.Language == "" {
			writeError(w, r, fmt.Errorf("%w: nothing to update", domain.ErrInvalidArgument), nil)
			return
		}
		if req.Theme != "" {
			if err := s.Library.SetTheme(r.Context(), req.Theme); err != nil {
				writeError(w, r, err, nil)
				return
			}
		}
		if req.Language != "" {
			if err := s.Library.SetLanguage(r.Context(), req.Language); err != nil {
				writeError(w, r, err, nil)
				return
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReadyzHandler probes Redis and reports readiness.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		checks := make([]check, 0, 1)
		if s.RedisCheck != nil {
			if err := s.RedisCheck(ctx); err != nil {
				checks = append(checks, check{Name: "redis", OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: "redis", OK: true})
			}
		}
		st := http.StatusOK
		for _, c := range checks {
			if !c.OK {
				st = http.StatusServiceUnavailable
				break
			}
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
