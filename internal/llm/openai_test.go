package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAIProviderGenerate(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"test-model","choices":[{"message":{"content":"[]"}}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`))
	}))
	defer backend.Close()

	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test",
		BaseURL: backend.URL + "/v1",
		Model:   "test-model",
	})

	resp, err := p.Generate(context.Background(), Request{Prompt: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Content)
	assert.Equal(t, 4, resp.Usage.TotalTokens)
}

func TestOpenAIProviderAbortsStalledBackend(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(10 * time.Second):
		}
	}))
	defer backend.Close()

	p := NewOpenAIProvider(OpenAIConfig{
		APIKey:  "test",
		BaseURL: backend.URL + "/v1",
		Model:   "test-model",
		Timeout: 100 * time.Millisecond,
	})

	start := time.Now()
	_, err := p.Generate(context.Background(), Request{Prompt: "hello"})
	elapsed := time.Since(start)

	require.Error(t, err)
	var unavailable *ErrProviderUnavailable
	assert.True(t, errors.As(err, &unavailable), "timeout surfaces as provider unavailable, got %v", err)
	assert.Less(t, elapsed, 5*time.Second, "call must be aborted by the client timeout")
}
