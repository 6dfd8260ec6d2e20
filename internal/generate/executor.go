package generate

import (
	"context"
	"log/slog"
	"sync"

	"examgen-server/internal/llm"
	"examgen-server/internal/model"
)

// defaultWorkers caps concurrent outbound generation requests so a local
// model server is not overwhelmed.
const defaultWorkers = 5

// TaskInput pairs a planned task with its fully resolved prompt input.
type TaskInput struct {
	Task   model.GenerationTask
	Prompt PromptInput
}

// ExecuteTasks fans inputs out over a bounded worker pool and collects all
// results. Completion order is not guaranteed and callers must not rely on
// it. A failing or panicking task yields its fallback result without
// disturbing sibling tasks.
func ExecuteTasks(ctx context.Context, provider llm.Provider, inputs []TaskInput, workers int) []TaskResult {
	if workers <= 0 {
		workers = defaultWorkers
	}
	if len(inputs) == 0 {
		return nil
	}

	jobs := make(chan TaskInput)
	results := make(chan TaskResult, len(inputs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for in := range jobs {
				results <- runIsolated(ctx, provider, in)
			}
		}()
	}

	for _, in := range inputs {
		jobs <- in
	}
	close(jobs)
	wg.Wait()
	close(results)

	out := make([]TaskResult, 0, len(inputs))
	for r := range results {
		out = append(out, r)
	}
	return out
}

// runIsolated shields the pool from a panicking task. RunTask already
// absorbs errors into fallbacks; this catches anything that slips past.
func runIsolated(ctx context.Context, provider llm.Provider, in TaskInput) (result TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("generation task panicked",
				"question_type", in.Task.QuestionType,
				"learning_outcome", in.Task.LearningOutcome,
				"panic", r)
			drafts := make([]model.QuestionDraft, 0, in.Prompt.Count)
			for i := 0; i < in.Prompt.Count; i++ {
				drafts = append(drafts, fallbackDraft(in.Prompt))
			}
			result = TaskResult{
				Task:     in.Task,
				Drafts:   finalizeDrafts(drafts, in.Prompt, in.Task),
				Fallback: true,
			}
		}
	}()
	return RunTask(ctx, provider, in.Prompt, in.Task)
}
