package generate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examgen-server/internal/llm"
	"examgen-server/internal/model"
)

// countingProvider tracks peak concurrency and answers every request with
// one valid question.
type countingProvider struct {
	mu      sync.Mutex
	active  int
	peak    int
	calls   atomic.Int64
	failFor string // topic whose requests always error
}

func (p *countingProvider) Generate(_ context.Context, req llm.Request) (*llm.Response, error) {
	p.mu.Lock()
	p.active++
	if p.active > p.peak {
		p.peak = p.active
	}
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.active--
		p.mu.Unlock()
	}()

	p.calls.Add(1)
	if p.failFor != "" && strings.Contains(req.Prompt, p.failFor) {
		return nil, &llm.ErrProviderUnavailable{}
	}
	return &llm.Response{
		Content: `[{"question": "Q?", "correct_answer": "A"}]`,
		Model:   "counting",
	}, nil
}

func (p *countingProvider) ModelID() string { return "counting" }

func taskInputs(n int) []TaskInput {
	inputs := make([]TaskInput, 0, n)
	for i := 0; i < n; i++ {
		task := model.GenerationTask{
			QuestionType:    model.TypeMCQ,
			LearningOutcome: "LO1",
			Count:           1,
			MarksEach:       1,
		}
		inputs = append(inputs, TaskInput{
			Task: task,
			Prompt: PromptInput{
				Subject:      "Math",
				Topic:        fmt.Sprintf("topic-%d", i),
				BloomLevel:   model.BloomApply,
				QuestionType: task.QuestionType,
				Count:        1,
				MarksEach:    1,
				Context:      []string{"ctx"},
			},
		})
	}
	return inputs
}

func TestExecuteTasksAllResultsCollected(t *testing.T) {
	provider := &countingProvider{}
	inputs := taskInputs(8)

	results := ExecuteTasks(context.Background(), provider, inputs, 3)

	require.Len(t, results, 8)
	for _, r := range results {
		assert.Len(t, r.Drafts, 1)
	}
	assert.LessOrEqual(t, provider.peak, 3, "worker cap must bound concurrency")
}

func TestExecuteTasksFaultIsolation(t *testing.T) {
	// The task for topic-2 always errors; its siblings must still succeed
	// and topic-2 must come back as a fallback, not an error.
	provider := &countingProvider{failFor: "topic-2"}
	inputs := taskInputs(5)

	results := ExecuteTasks(context.Background(), provider, inputs, defaultWorkers)

	require.Len(t, results, 5)
	fallbacks := 0
	for _, r := range results {
		require.Len(t, r.Drafts, 1)
		if r.Fallback {
			fallbacks++
		}
	}
	assert.Equal(t, 1, fallbacks)
}

func TestExecuteTasksEmptyInput(t *testing.T) {
	results := ExecuteTasks(context.Background(), &countingProvider{}, nil, defaultWorkers)
	assert.Empty(t, results)
}
