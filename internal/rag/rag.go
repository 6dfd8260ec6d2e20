// Package rag retrieves reference context for question generation. It scores
// locally indexed document chunks against the query and falls back to a
// Wikipedia summary when nothing relevant is stored.
package rag

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"
	"unicode"

	"examgen-server/internal/model"
)

// NoContextSentinel is returned as the sole context entry when neither the
// local index nor the fallback source yields anything. Prompt builders pass
// it through verbatim so the model is told to rely on general knowledge.
const NoContextSentinel = "No specific context found for this topic. Use general knowledge."

// maxChunks caps how many local chunks a single query returns.
const maxChunks = 3

// chunkSize is the target size in bytes for indexed document chunks.
const chunkSize = 1000

// DocumentStore is the slice of the storage layer the provider needs.
type DocumentStore interface {
	ListDocuments(subjectID int64) ([]model.Document, error)
	InsertDocument(d model.Document) (int64, error)
}

// Provider retrieves context passages for a topic query.
type Provider struct {
	store    DocumentStore
	fallback *wikipediaClient
}

// New creates a context provider backed by the given document store.
func New(store DocumentStore) *Provider {
	return &Provider{
		store:    store,
		fallback: newWikipediaClient(&http.Client{Timeout: 10 * time.Second}),
	}
}

// QueryContext returns context passages for the query, best first. It never
// fails: retrieval errors degrade to the fallback source, and a dry fallback
// degrades to the sentinel passage.
func (p *Provider) QueryContext(ctx context.Context, query string, subjectID int64) []string {
	if chunks := p.localChunks(query, subjectID); len(chunks) > 0 {
		return chunks
	}

	if summary, err := p.fallback.Summary(ctx, query); err == nil && summary != "" {
		return []string{"Source: Wikipedia\nContent: " + summary}
	} else if err != nil {
		slog.Debug("wikipedia fallback failed", "query", query, "error", err)
	}

	return []string{NoContextSentinel}
}

// localChunks scores stored chunks by query keyword overlap and returns the
// top matches. Chunks with no overlap are excluded entirely.
func (p *Provider) localChunks(query string, subjectID int64) []string {
	docs, err := p.store.ListDocuments(subjectID)
	if err != nil {
		slog.Warn("document lookup failed", "subject_id", subjectID, "error", err)
		return nil
	}
	if len(docs) == 0 {
		return nil
	}

	keywords := tokenize(query)
	if len(keywords) == 0 {
		return nil
	}

	type scored struct {
		content string
		score   int
	}
	var matches []scored
	for _, d := range docs {
		lower := strings.ToLower(d.Content)
		score := 0
		for _, kw := range keywords {
			score += strings.Count(lower, kw)
		}
		if score > 0 {
			matches = append(matches, scored{content: d.Content, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	var out []string
	for i := 0; i < len(matches) && i < maxChunks; i++ {
		out = append(out, matches[i].content)
	}
	return out
}

// IndexDocument splits content into chunks and stores them for later
// retrieval. Returns the number of chunks written.
func (p *Provider) IndexDocument(subjectID int64, topicID *int64, filename, content string) (int, error) {
	chunks := splitChunks(content, chunkSize)
	for _, chunk := range chunks {
		_, err := p.store.InsertDocument(model.Document{
			SubjectID: subjectID,
			TopicID:   topicID,
			Filename:  filename,
			Content:   chunk,
		})
		if err != nil {
			return 0, err
		}
	}
	return len(chunks), nil
}

// tokenize lowercases the query and drops short words, so "the" and "of"
// never count as matches.
func tokenize(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) >= 3 {
			out = append(out, f)
		}
	}
	return out
}

// splitChunks breaks text into pieces of roughly size bytes, preferring to
// break at a whitespace boundary so words stay intact.
func splitChunks(text string, size int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var chunks []string
	for len(text) > size {
		cut := size
		if idx := strings.LastIndexFunc(text[:size], unicode.IsSpace); idx > size/2 {
			cut = idx
		}
		chunks = append(chunks, strings.TrimSpace(text[:cut]))
		text = strings.TrimSpace(text[cut:])
	}
	if text != "" {
		chunks = append(chunks, text)
	}
	return chunks
}
