package generate

import (
	"context"
	"fmt"
	"log/slog"

	"examgen-server/internal/llm"
	"examgen-server/internal/model"
)

// maxAttempts bounds generation retries per task.
const maxAttempts = 3

// TaskResult is the outcome of one generation task. Drafts always holds
// exactly the requested count; Fallback marks results padded or replaced
// with placeholder questions.
type TaskResult struct {
	Task     model.GenerationTask
	Drafts   []model.QuestionDraft
	Fallback bool
	Attempts int
}

// RunTask generates questions for one task with bounded retries. Attempt 1
// is a natural request; later attempts ask the backend for strict JSON
// output. RunTask never fails: when every attempt is exhausted the result
// is the deterministic fallback set, so callers always receive exactly
// in.Count drafts.
func RunTask(ctx context.Context, provider llm.Provider, in PromptInput, task model.GenerationTask) TaskResult {
	prompt := BuildPrompt(in)

	result := TaskResult{Task: task}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt

		resp, err := provider.Generate(ctx, llm.Request{
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: 0.1,
			MaxTokens:   4000,
			StrictJSON:  attempt > 1,
		})
		if err != nil {
			slog.Warn("generation attempt failed",
				"attempt", attempt,
				"question_type", task.QuestionType,
				"learning_outcome", task.LearningOutcome,
				"error", err)
			continue
		}

		drafts, err := RepairResponse(resp.Content)
		if err != nil {
			slog.Warn("response repair failed, retrying",
				"attempt", attempt,
				"question_type", task.QuestionType)
			continue
		}

		drafts = ValidDrafts(drafts)
		if len(drafts) == 0 {
			continue
		}

		if len(drafts) > in.Count {
			drafts = drafts[:in.Count]
		}
		// Partial recovery is accepted, not retried; the shortfall is
		// padded so the count contract holds.
		for len(drafts) < in.Count {
			drafts = append(drafts, fallbackDraft(in))
			result.Fallback = true
		}

		result.Drafts = finalizeDrafts(drafts, in, task)
		return result
	}

	slog.Error("all generation attempts exhausted, using fallback questions",
		"question_type", task.QuestionType,
		"learning_outcome", task.LearningOutcome,
		"count", in.Count)

	result.Fallback = true
	drafts := make([]model.QuestionDraft, 0, in.Count)
	for i := 0; i < in.Count; i++ {
		drafts = append(drafts, fallbackDraft(in))
	}
	result.Drafts = finalizeDrafts(drafts, in, task)
	return result
}

// fallbackDraft is the terminal error absorption point: a fixed-template
// placeholder referencing the topic and level.
func fallbackDraft(in PromptInput) model.QuestionDraft {
	d := model.QuestionDraft{
		Question:      fmt.Sprintf("Sample question about %s at %s level?", in.Topic, in.BloomLevel),
		QuestionType:  string(in.QuestionType),
		CorrectAnswer: "Refer to course material.",
		Explanation:   "This is a fallback placeholder due to generation timeout or error.",
		Marks:         in.MarksEach,
		BloomLevel:    in.BloomLevel,
	}
	// Unconstrained tasks fall back to the MCQ shape as well.
	if in.QuestionType == model.TypeMCQ || in.QuestionType == "" {
		d.Options = []string{"Op1", "Op2", "Op3", "Op4"}
		d.CorrectAnswer = "Op1"
	}
	return d
}

// finalizeDrafts fills in fields the model omitted from task provenance so
// every draft leaves the pipeline fully tagged.
func finalizeDrafts(drafts []model.QuestionDraft, in PromptInput, task model.GenerationTask) []model.QuestionDraft {
	for i := range drafts {
		if drafts[i].QuestionType == "" {
			drafts[i].QuestionType = string(task.QuestionType)
		}
		if drafts[i].Marks == 0 {
			drafts[i].Marks = task.MarksEach
		}
		if drafts[i].BloomLevel == "" {
			drafts[i].BloomLevel = in.BloomLevel
		}
		if drafts[i].CourseOutcome == "" {
			drafts[i].CourseOutcome = string(task.LearningOutcome)
		}
		drafts[i].LearningOutcome = task.LearningOutcome
	}
	return drafts
}
