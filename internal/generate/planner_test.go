package generate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"examgen-server/internal/model"
)

func rubricWith(types []model.QuestionTypeDistribution, los []model.LearningOutcomeDistribution) *model.Rubric {
	return &model.Rubric{
		Name:                  "test rubric",
		QuestionDistributions: types,
		LODistributions:       los,
	}
}

func countByType(tasks []model.GenerationTask) map[model.QuestionType]int {
	out := map[model.QuestionType]int{}
	for _, t := range tasks {
		out[t.QuestionType] += t.Count
	}
	return out
}

func countByLO(tasks []model.GenerationTask) map[model.LearningOutcome]int {
	out := map[model.LearningOutcome]int{}
	for _, t := range tasks {
		out[t.LearningOutcome] += t.Count
	}
	return out
}

func TestPlanTasksCleanSplit(t *testing.T) {
	r := rubricWith(
		[]model.QuestionTypeDistribution{
			{QuestionType: model.TypeMCQ, Count: 10, MarksEach: 1},
			{QuestionType: model.TypeEssay, Count: 0, MarksEach: 10},
		},
		[]model.LearningOutcomeDistribution{
			{LearningOutcome: "LO1", Percentage: 60},
			{LearningOutcome: "LO2", Percentage: 40},
		},
	)

	tasks := PlanTasks(r)

	byType := countByType(tasks)
	assert.Equal(t, 10, byType[model.TypeMCQ])
	assert.Zero(t, byType[model.TypeEssay], "zero-count types must emit no tasks")

	byLO := countByLO(tasks)
	assert.Equal(t, 6, byLO["LO1"])
	assert.Equal(t, 4, byLO["LO2"])
}

func TestPlanTasksRoundingRemainder(t *testing.T) {
	// 33/33/34 of 7 cannot round cleanly; the last declared LO absorbs the
	// remainder so the grand total stays exactly 7.
	r := rubricWith(
		[]model.QuestionTypeDistribution{
			{QuestionType: model.TypeShort, Count: 7, MarksEach: 2},
		},
		[]model.LearningOutcomeDistribution{
			{LearningOutcome: "LO1", Percentage: 33},
			{LearningOutcome: "LO2", Percentage: 33},
			{LearningOutcome: "LO3", Percentage: 34},
		},
	)

	tasks := PlanTasks(r)

	byLO := countByLO(tasks)
	total := 0
	for _, n := range byLO {
		total += n
	}
	require.Equal(t, 7, total)
	assert.Equal(t, 2, byLO["LO1"])
	assert.Equal(t, 2, byLO["LO2"])
	assert.Equal(t, 3, byLO["LO3"])
}

func TestPlanTasksNoLODistributions(t *testing.T) {
	r := rubricWith(
		[]model.QuestionTypeDistribution{
			{QuestionType: model.TypeMCQ, Count: 5, MarksEach: 1},
		},
		nil,
	)

	tasks := PlanTasks(r)

	require.Len(t, tasks, 1)
	assert.Equal(t, model.LearningOutcome(""), tasks[0].LearningOutcome)
	assert.Equal(t, 5, tasks[0].Count)
}

func TestPlanTasksMultipleTypes(t *testing.T) {
	r := rubricWith(
		[]model.QuestionTypeDistribution{
			{QuestionType: model.TypeMCQ, Count: 6, MarksEach: 1},
			{QuestionType: model.TypeShort, Count: 4, MarksEach: 3},
			{QuestionType: model.TypeEssay, Count: 2, MarksEach: 10},
		},
		[]model.LearningOutcomeDistribution{
			{LearningOutcome: "LO1", Percentage: 50},
			{LearningOutcome: "LO2", Percentage: 50},
		},
	)

	tasks := PlanTasks(r)

	byType := countByType(tasks)
	assert.Equal(t, 6, byType[model.TypeMCQ])
	assert.Equal(t, 4, byType[model.TypeShort])
	assert.Equal(t, 2, byType[model.TypeEssay])

	byLO := countByLO(tasks)
	assert.Equal(t, 6, byLO["LO1"])
	assert.Equal(t, 6, byLO["LO2"])

	for _, task := range tasks {
		switch task.QuestionType {
		case model.TypeMCQ:
			assert.Equal(t, 1, task.MarksEach)
		case model.TypeShort:
			assert.Equal(t, 3, task.MarksEach)
		case model.TypeEssay:
			assert.Equal(t, 10, task.MarksEach)
		}
	}
}

func TestPlanTasksZeroPercentLO(t *testing.T) {
	// A 0% LO gets no questions even across multiple types.
	r := rubricWith(
		[]model.QuestionTypeDistribution{
			{QuestionType: model.TypeMCQ, Count: 3, MarksEach: 1},
			{QuestionType: model.TypeShort, Count: 3, MarksEach: 2},
		},
		[]model.LearningOutcomeDistribution{
			{LearningOutcome: "LO1", Percentage: 100},
			{LearningOutcome: "LO2", Percentage: 0},
		},
	)

	tasks := PlanTasks(r)

	byLO := countByLO(tasks)
	assert.Equal(t, 6, byLO["LO1"])
	assert.Zero(t, byLO["LO2"])

	byType := countByType(tasks)
	assert.Equal(t, 3, byType[model.TypeMCQ])
	assert.Equal(t, 3, byType[model.TypeShort])
}
