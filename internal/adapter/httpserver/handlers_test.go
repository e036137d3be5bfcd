package httpserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpserver "github.com/fairyhunter13/ai-doc-companion/internal/adapter/httpserver"
	"github.com/fairyhunter13/ai-doc-companion/internal/config"
	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
	"github.com/fairyhunter13/ai-doc-companion/internal/service/keypool"
	"github.com/fairyhunter13/ai-doc-companion/internal/service/usagestats"
	"github.com/fairyhunter13/ai-doc-companion/internal/usecase"
)

type fakeAI struct {
	answer string
	err    error
}

func (f fakeAI) Complete(_ domain.Context, _ string) (string, error) {
	return f.answer, f.err
}

type mapStore struct{ data map[string]string }

func (m *mapStore) Get(_ domain.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNotFound, key)
	}
	return v, nil
}
func (m *mapStore) Set(_ domain.Context, key, value string) error { m.data[key] = value; return nil }
func (m *mapStore) Delete(_ domain.Context, key string) error     { delete(m.data, key); return nil }

func newTestServer(t *testing.T, ai domain.CompletionClient) *httpserver.Server {
	t.Helper()
	cfg := config.Config{Port: 8080, MaxUploadMB: 10, TokenLimit: 30000}
	prompts := usecase.NewPrompts(nil)
	store := &mapStore{data: map[string]string{}}
	return httpserver.NewServer(cfg,
		usecase.NewSummarizeService(ai, prompts, cfg.TokenLimit),
		usecase.NewRewriteService(ai, prompts, cfg.TokenLimit),
		usecase.NewAskService(ai, prompts),
		usecase.NewLibraryService(store),
		keypool.New([]string{"k1", "k2", "k3"}),
		usagestats.New(),
		func(_ context.Context) error { return nil },
	)
}

func postJSON(t *testing.T, h http.HandlerFunc, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func TestSummarizeHandler_200_OK(t *testing.T) {
	srv := newTestServer(t, fakeAI{answer: "a summary"})

	w := postJSON(t, srv.SummarizeHandler(), "/v1/summarize", map[string]any{
		"text": "document body", "title": "Doc", "length": "brief",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "a summary", resp["summary"])
}

func TestSummarizeHandler_MissingText_400(t *testing.T) {
	srv := newTestServer(t, fakeAI{answer: "x"})

	w := postJSON(t, srv.SummarizeHandler(), "/v1/summarize", map[string]any{"title": "Doc"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_ARGUMENT")
}

func TestSummarizeHandler_BadLength_400(t *testing.T) {
	srv := newTestServer(t, fakeAI{answer: "x"})

	w := postJSON(t, srv.SummarizeHandler(), "/v1/summarize", map[string]any{
		"text": "body", "length": "giant",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSummarizeHandler_NoCredentials_503(t *testing.T) {
	srv := newTestServer(t, fakeAI{err: domain.ErrNoCredentials})

	w := postJSON(t, srv.SummarizeHandler(), "/v1/summarize", map[string]any{"text": "body"})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "NO_CREDENTIALS")
}

func TestSummarizeHandler_UpstreamFailureStays200(t *testing.T) {
	srv := newTestServer(t, fakeAI{err: fmt.Errorf("%w: 500", domain.ErrUpstreamStatus)})

	w := postJSON(t, srv.SummarizeHandler(), "/v1/summarize", map[string]any{"text": "body"})

	require.Equal(t, http.StatusOK, w.Code, "per-call failures degrade to placeholder text")
	assert.Contains(t, w.Body.String(), "Sorry, I encountered an error")
}

func TestRewriteHandler_200_OK(t *testing.T) {
	srv := newTestServer(t, fakeAI{answer: "rewritten"})

	w := postJSON(t, srv.RewriteHandler(), "/v1/rewrite", map[string]any{
		"text": "body", "style": "professional", "language": "English",
	})

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "rewritten", resp["rewritten"])
}

func TestRewriteHandler_BadStyle_400(t *testing.T) {
	srv := newTestServer(t, fakeAI{answer: "x"})

	w := postJSON(t, srv.RewriteHandler(), "/v1/rewrite", map[string]any{
		"text": "body", "style": "baroque",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAskHandler_200_OK(t *testing.T) {
	srv := newTestServer(t, fakeAI{answer: "the answer"})

	w := postJSON(t, srv.AskHandler(), "/v1/ask", map[string]any{"question": "why?"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "the answer")
}

func TestExplainHandler_200_OK(t *testing.T) {
	srv := newTestServer(t, fakeAI{answer: "**term**: meaning"})

	w := postJSON(t, srv.ExplainHandler(), "/v1/explain", map[string]any{
		"text": "term", "context_before": "a ", "context_after": " b", "doc_title": "Doc",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "meaning")
}

func TestKeyCountHandlers(t *testing.T) {
	srv := newTestServer(t, fakeAI{})

	w := httptest.NewRecorder()
	srv.KeyCountHandler()(w, httptest.NewRequest(http.MethodGet, "/v1/key-count", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["count"])
	assert.Equal(t, "env", resp["source"])

	w2 := httptest.NewRecorder()
	srv.KeyCountFallbackHandler()(w2, httptest.NewRequest(http.MethodGet, "/v1/key-count-fallback", nil))
	require.Equal(t, http.StatusOK, w2.Code)
	var resp2 map[string]any
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp2))
	assert.Equal(t, float64(1), resp2["count"])
	assert.Equal(t, "fallback", resp2["source"])
}

func TestUsageStatsHandler(t *testing.T) {
	srv := newTestServer(t, fakeAI{})

	w := httptest.NewRecorder()
	srv.UsageStatsHandler()(w, httptest.NewRequest(http.MethodGet, "/v1/usage-stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "totalRequests")
	assert.Contains(t, w.Body.String(), "todayRequests")
}

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("document", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())
	return r
}

func TestUploadDocumentHandler_TextOK(t *testing.T) {
	srv := newTestServer(t, fakeAI{})

	w := httptest.NewRecorder()
	srv.UploadDocumentHandler()(w, uploadRequest(t, "notes.md", []byte("# Notes\n\nplain markdown content")))

	require.Equal(t, http.StatusCreated, w.Code)
	var doc domain.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "md", doc.Type)
	assert.NotEmpty(t, doc.ID)
}

func TestUploadDocumentHandler_RejectsPDF(t *testing.T) {
	srv := newTestServer(t, fakeAI{})

	w := httptest.NewRecorder()
	srv.UploadDocumentHandler()(w, uploadRequest(t, "paper.pdf", []byte("%PDF-1.4 fake")))

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestUploadDocumentHandler_RejectsBinaryBehindTxtExtension(t *testing.T) {
	srv := newTestServer(t, fakeAI{})

	w := httptest.NewRecorder()
	srv.UploadDocumentHandler()(w, uploadRequest(t, "sneaky.txt", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00}))

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestUploadDocumentHandler_MissingFile_400(t *testing.T) {
	srv := newTestServer(t, fakeAI{})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.Close())
	r := httptest.NewRequest(http.MethodPost, "/v1/documents", &buf)
	r.Header.Set("Content-Type", mw.FormDataContentType())

	w := httptest.NewRecorder()
	srv.UploadDocumentHandler()(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListDocumentsHandler_EmptyIsArray(t *testing.T) {
	srv := newTestServer(t, fakeAI{})

	w := httptest.NewRecorder()
	srv.ListDocumentsHandler()(w, httptest.NewRequest(http.MethodGet, "/v1/documents", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"documents":[]}`, w.Body.String())
}

func TestPreferencesHandlers(t *testing.T) {
	srv := newTestServer(t, fakeAI{})

	w := postJSONPut(t, srv.UpdatePreferencesHandler(), "/v1/preferences", map[string]any{"theme": "dark", "language": "Indonesian"})
	require.Equal(t, http.StatusNoContent, w.Code)

	w2 := httptest.NewRecorder()
	srv.PreferencesHandler()(w2, httptest.NewRequest(http.MethodGet, "/v1/preferences", nil))
	require.Equal(t, http.StatusOK, w2.Code)
	assert.JSONEq(t, `{"theme":"dark","language":"Indonesian"}`, w2.Body.String())
}

func TestUpdatePreferencesHandler_BadTheme_400(t *testing.T) {
	srv := newTestServer(t, fakeAI{})

	w := postJSONPut(t, srv.UpdatePreferencesHandler(), "/v1/preferences", map[string]any{"theme": "neon"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func postJSONPut(t *testing.T, h http.HandlerFunc, target string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPut, target, bytes.NewReader(b))
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func TestReadyzHandler_OK_And_Unavailable(t *testing.T) {
	srv := newTestServer(t, fakeAI{})

	w := httptest.NewRecorder()
	srv.ReadyzHandler()(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, w.Code)

	srv.RedisCheck = func(_ context.Context) error { return errors.New("connection refused") }
	w2 := httptest.NewRecorder()
	srv.ReadyzHandler()(w2, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, w2.Code)
	assert.Contains(t, w2.Body.String(), "redis")
}
