package rag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"examgen-server/internal/model"
)

type fakeDocStore struct {
	docs    []model.Document
	listErr error
}

func (f *fakeDocStore) ListDocuments(subjectID int64) ([]model.Document, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.docs, nil
}

func (f *fakeDocStore) InsertDocument(d model.Document) (int64, error) {
	f.docs = append(f.docs, d)
	return int64(len(f.docs)), nil
}

func TestQueryContextLocalMatch(t *testing.T) {
	store := &fakeDocStore{docs: []model.Document{
		{Content: "Photosynthesis converts light energy into chemical energy."},
		{Content: "The mitochondria is the powerhouse of the cell."},
		{Content: "Photosynthesis occurs in chloroplasts. Photosynthesis needs light."},
	}}
	p := New(store)

	got := p.QueryContext(context.Background(), "photosynthesis", 1)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(got), got)
	}
	// Highest keyword count first.
	if !strings.Contains(got[0], "chloroplasts") {
		t.Errorf("expected best-scoring chunk first, got %q", got[0])
	}
}

func TestQueryContextWikipediaFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/Quantum_mechanics") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"extract": "Quantum mechanics is a fundamental theory in physics."}`))
	}))
	defer srv.Close()

	p := New(&fakeDocStore{})
	p.fallback.baseURL = srv.URL + "/"

	got := p.QueryContext(context.Background(), "Quantum_mechanics", 1)
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if !strings.HasPrefix(got[0], "Source: Wikipedia\nContent: ") {
		t.Errorf("fallback entry missing source prefix: %q", got[0])
	}
	if !strings.Contains(got[0], "fundamental theory") {
		t.Errorf("fallback entry missing extract: %q", got[0])
	}
}

func TestQueryContextSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := New(&fakeDocStore{})
	p.fallback.baseURL = srv.URL + "/"

	got := p.QueryContext(context.Background(), "nonexistent topic", 1)
	if len(got) != 1 || got[0] != NoContextSentinel {
		t.Errorf("expected sentinel, got %v", got)
	}
}

func TestIndexDocumentChunks(t *testing.T) {
	store := &fakeDocStore{}
	p := New(store)

	content := strings.Repeat("lorem ipsum dolor sit amet ", 100) // ~2700 bytes
	n, err := p.IndexDocument(7, nil, "notes.txt", content)
	if err != nil {
		t.Fatalf("IndexDocument: %v", err)
	}
	if n < 3 {
		t.Errorf("expected at least 3 chunks, got %d", n)
	}
	if len(store.docs) != n {
		t.Errorf("stored %d chunks, reported %d", len(store.docs), n)
	}
	for i, d := range store.docs {
		if d.SubjectID != 7 || d.Filename != "notes.txt" {
			t.Errorf("chunk %d has wrong metadata: %+v", i, d)
		}
		if len(d.Content) > chunkSize {
			t.Errorf("chunk %d exceeds size limit: %d bytes", i, len(d.Content))
		}
	}
}

func TestSplitChunksWordBoundary(t *testing.T) {
	chunks := splitChunks("alpha beta gamma delta", 12)
	for _, c := range chunks {
		if strings.HasPrefix(c, " ") || strings.HasSuffix(c, " ") {
			t.Errorf("chunk not trimmed: %q", c)
		}
	}
	joined := strings.Join(chunks, " ")
	if joined != "alpha beta gamma delta" {
		t.Errorf("chunks lost content: %q", joined)
	}
}
