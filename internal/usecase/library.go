package usecase

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/ai-doc-companion/internal/domain"
	"github.com/fairyhunter13/ai-doc-companion/pkg/textx"
)

// LibraryService persists the user's documents, bookmarks, and reading
// preferences in a key-value store.
type LibraryService struct {
	Store domain.KeyValueStore
}

// NewLibraryService constructs a LibraryService.
func NewLibraryService(store domain.KeyValueStore) LibraryService {
	return LibraryService{Store: store}
}

const (
	keyDocuments   = "library:documents"
	keySelectedDoc = "library:selected"
	keyTheme       = "prefs:theme"
	keyLanguage    = "prefs:language"
)

func keyBookmarks(docID string) string { return "library:bookmarks:" + docID }

func (s LibraryService) loadDocuments(ctx domain.Context) ([]domain.Document, error) {
	raw, err := s.Store.Get(ctx, keyDocuments)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var docs []domain.Document
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return nil, fmt.Errorf("%w: decode documents: %v", domain.ErrInternal, err)
	}
	return docs, nil
}

func (s LibraryService) saveDocuments(ctx domain.Context, docs []domain.Document) error {
	raw, err := json.Marshal(docs)
	if err != nil {
		return fmt.Errorf("%w: encode documents: %v", domain.ErrInternal, err)
	}
	return s.Store.Set(ctx, keyDocuments, string(raw))
}

// AddDocument sanitizes and stores a document, returning it with a fresh ID.
func (s LibraryService) AddDocument(ctx domain.Context, name, docType, content string) (domain.Document, error) {
	content = textx.SanitizeText(content)
	if content == "" {
		return domain.Document{}, fmt.Errorf("%w: empty document content", domain.ErrInvalidArgument)
	}
	if docType != "txt" && docType != "md" {
		return domain.Document{}, fmt.Errorf("%w: unsupported document type %q", domain.ErrInvalidArgument, docType)
	}
	doc := domain.Document{
		ID:        uuid.NewString(),
		Name:      name,
		Type:      docType,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	docs, err := s.loadDocuments(ctx)
	if err != nil {
		return domain.Document{}, err
	}
	docs = append(docs, doc)
	if err := s.saveDocuments(ctx, docs); err != nil {
		return domain.Document{}, err
	}
	return doc, nil
}

// ListDocuments returns all stored documents, newest first.
func (s LibraryService) ListDocuments(ctx domain.Context) ([]domain.Document, error) {
	docs, err := s.loadDocuments(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	return docs, nil
}

// GetDocument fetches one document by ID.
func (s LibraryService) GetDocument(ctx domain.Context, id string) (domain.Document, error) {
	docs, err := s.loadDocuments(ctx)
	if err != nil {
		return domain.Document{}, err
	}
	for _, d := range docs {
		if d.ID == id {
			return d, nil
		}
	}
	return domain.Document{}, fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
}

// DeleteDocument removes a document and its bookmarks. Deleting the selected
// document clears the selection.
func (s LibraryService) DeleteDocument(ctx domain.Context, id string) error {
	docs, err := s.loadDocuments(ctx)
	if err != nil {
		return err
	}
	kept := docs[:0]
	found := false
	for _, d := range docs {
		if d.ID == id {
			found = true
			continue
		}
		kept = append(kept, d)
	}
	if !found {
		return fmt.Errorf("%w: document %s", domain.ErrNotFound, id)
	}
	if err := s.saveDocuments(ctx, kept); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, keyBookmarks(id)); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if sel, err := s.SelectedDocument(ctx); err == nil && sel == id {
		if err := s.Store.Delete(ctx, keySelectedDoc); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}
	return nil
}

// SelectDocument records the document currently open in the reader.
func (s LibraryService) SelectDocument(ctx domain.Context, id string) error {
	if _, err := s.GetDocument(ctx, id); err != nil {
		return err
	}
	return s.Store.Set(ctx, keySelectedDoc, id)
}

// SelectedDocument returns the ID of the currently open document, or
// ErrNotFound when none is selected.
func (s LibraryService) SelectedDocument(ctx domain.Context) (string, error) {
	return s.Store.Get(ctx, keySelectedDoc)
}

// AddBookmark stores a reading position for a document.
func (s LibraryService) AddBookmark(ctx domain.Context, docID, label string, position int) (domain.Bookmark, error) {
	if position < 0 {
		return domain.Bookmark{}, fmt.Errorf("%w: negative bookmark position", domain.ErrInvalidArgument)
	}
	if _, err := s.GetDocument(ctx, docID); err != nil {
		return domain.Bookmark{}, err
	}
	bms, err := s.ListBookmarks(ctx, docID)
	if err != nil {
		return domain.Bookmark{}, err
	}
	bm := domain.Bookmark{
		ID:         uuid.NewString(),
		DocumentID: docID,
		Label:      label,
		Position:   position,
		CreatedAt:  time.Now().UTC(),
	}
	bms = append(bms, bm)
	raw, err := json.Marshal(bms)
	if err != nil {
		return domain.Bookmark{}, fmt.Errorf("%w: encode bookmarks: %v", domain.ErrInternal, err)
	}
	if err := s.Store.Set(ctx, keyBookmarks(docID), string(raw)); err != nil {
		return domain.Bookmark{}, err
	}
	return bm, nil
}

// ListBookmarks returns all bookmarks for a document.
func (s LibraryService) ListBookmarks(ctx domain.Context, docID string) ([]domain.Bookmark, error) {
	raw, err := s.Store.Get(ctx, keyBookmarks(docID))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var bms []domain.Bookmark
	if err := json.Unmarshal([]byte(raw), &bms); err != nil {
		return nil, fmt.Errorf("%w: decode bookmarks: %v", domain.ErrInternal, err)
	}
	return bms, nil
}

// DeleteBookmark removes one bookmark from a document.
func (s LibraryService) DeleteBookmark(ctx domain.Context, docID, bookmarkID string) error {
	bms, err := s.ListBookmarks(ctx, docID)
	if err != nil {
		return err
	}
	kept := bms[:0]
	found := false
	for _, b := range bms {
		if b.ID == bookmarkID {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return fmt.Errorf("%w: bookmark %s", domain.ErrNotFound, bookmarkID)
	}
	raw, err := json.Marshal(kept)
	if err != nil {
		return fmt.Errorf("%w: encode bookmarks: %v", domain.ErrInternal, err)
	}
	return s.Store.Set(ctx, keyBookmarks(docID), string(raw))
}

// SetTheme stores the reader theme preference.
func (s LibraryService) SetTheme(ctx domain.Context, theme string) error {
	switch theme {
	case "light", "dark", "sepia":
	default:
		return fmt.Errorf("%w: unknown theme %q", domain.ErrInvalidArgument, theme)
	}
	return s.Store.Set(ctx, keyTheme, theme)
}

// Theme returns the stored theme, defaulting to light.
func (s LibraryService) Theme(ctx domain.Context) (string, error) {
	theme, err := s.Store.Get(ctx, keyTheme)
	if errors.Is(err, domain.ErrNotFound) {
		return "light", nil
	}
	return theme, err
}

// SetLanguage stores the preferred response language.
func (s LibraryService) SetLanguage(ctx domain.Context, language string) error {
	if language == "" {
		return fmt.Errorf("%w: empty language", domain.ErrInvalidArgument)
	}
	return s.Store.Set(ctx, keyLanguage, language)
}

// Language returns the stored response language, defaulting to English.
func (s LibraryService) Language(ctx domain.Context) (string, error) {
	lang, err := s.Store.Get(ctx, keyLanguage)
	if errors.Is(err, domain.ErrNotFound) {
		return "English", nil
	}
	return lang, err
}
