// Package app wires configuration, adapters, and routes into a runnable server.
package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpserver "github.com/fairyhunter13/ai-doc-companion/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-doc-companion/internal/adapter/observability"
	"github.com/fairyhunter13/ai-doc-companion/internal/config"
)

// ParseOrigins splits a comma-separated origin list into a slice, trimming spaces.
// If the input is empty, returns ["*"].
func ParseOrigins(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return []string{"*"}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// BuildRouter constructs the HTTP handler with all middlewares and routes.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	// Long documents fan out into many serial upstream calls.
	r.Use(httpserver.TimeoutMiddleware(5 * time.Minute))
	r.Use(httpserver.TraceMiddleware)
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   ParseOrigins(cfg.CORSAllowOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Rate limit the endpoints that reach the completion API.
	r.Group(func(wr chi.Router) {
		wr.Use(httprate.LimitByIP(cfg.RateLimitPerMin, 1*time.Minute))
		wr.Post("/v1/summarize", srv.SummarizeHandler())
		wr.Post("/v1/summarize-section", srv.SummarizeSectionHandler())
		wr.Post("/v1/rewrite", srv.RewriteHandler())
		wr.Post("/v1/ask", srv.AskHandler())
		wr.Post("/v1/explain", srv.ExplainHandler())
	})

	// Document library
	r.Route("/v1/documents", func(dr chi.Router) {
		dr.Get("/", srv.ListDocumentsHandler())
		dr.Post("/", srv.UploadDocumentHandler())
		dr.Get("/selected", srv.SelectedDocumentHandler())
		dr.Get("/{id}", srv.GetDocumentHandler())
		dr.Delete("/{id}", srv.DeleteDocumentHandler())
		dr.Put("/{id}/select", srv.SelectDocumentHandler())
		dr.Get("/{id}/bookmarks", srv.ListBookmarksHandler())
		dr.Post("/{id}/bookmarks", srv.AddBookmarkHandler())
		dr.Delete("/{id}/bookmarks/{bookmarkID}", srv.DeleteBookmarkHandler())
	})

	// Preferences
	r.Get("/v1/preferences", srv.PreferencesHandler())
	r.Put("/v1/preferences", srv.UpdatePreferencesHandler())

	// Operational surfaces
	r.Get("/v1/key-count", srv.KeyCountHandler())
	r.Get("/v1/key-count-fallback", srv.KeyCountFallbackHandler())
	r.Get("/v1/usage-stats", srv.UsageStatsHandler())

	// Health and metrics
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })
	r.Get("/readyz", srv.ReadyzHandler())

	return httpserver.SecurityHeaders(r)
}
