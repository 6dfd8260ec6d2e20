// Package generate implements the rubric-driven question generation
// pipeline: planning, prompting, retrying, repair, parallel execution,
// caching, and persistence of generated exam questions.
package generate

import (
	"math"

	"examgen-server/internal/model"
)

// loBucket tracks how many questions a learning outcome may still receive.
type loBucket struct {
	lo        model.LearningOutcome
	remaining int
}

// PlanTasks converts a rubric's type counts and learning outcome
// percentages into concrete generation tasks. Per-type counts are honored
// exactly; the LO split is proportional with the last declared LO absorbing
// the rounding remainder so the grand total always matches.
func PlanTasks(r *model.Rubric) []model.GenerationTask {
	total := r.TotalQuestions()
	buckets := loBuckets(r.LODistributions, total)

	var tasks []model.GenerationTask
	for _, dist := range r.QuestionDistributions {
		if dist.Count == 0 {
			continue
		}

		counts := make([]int, len(buckets))
		remaining := dist.Count
		for remaining > 0 {
			consumed := false
			for i := range buckets {
				if remaining == 0 {
					break
				}
				if buckets[i].remaining > 0 {
					buckets[i].remaining--
					counts[i]++
					remaining--
					consumed = true
				}
			}
			// All buckets depleted but the type still needs questions:
			// the first LO takes the overflow rather than dropping it.
			if !consumed {
				counts[0] += remaining
				remaining = 0
			}
		}

		for i, n := range counts {
			if n == 0 {
				continue
			}
			tasks = append(tasks, model.GenerationTask{
				QuestionType:    dist.QuestionType,
				LearningOutcome: buckets[i].lo,
				Count:           n,
				MarksEach:       dist.MarksEach,
			})
		}
	}
	return tasks
}

// loBuckets computes per-LO target counts in declared order. Every LO but
// the last gets round(total * pct / 100); the last gets whatever remains,
// which keeps the grand total exact despite rounding. A rubric with no LO
// rows gets a single unlabeled bucket holding everything.
func loBuckets(dists []model.LearningOutcomeDistribution, total int) []loBucket {
	if len(dists) == 0 {
		return []loBucket{{lo: "", remaining: total}}
	}

	buckets := make([]loBucket, len(dists))
	assigned := 0
	for i, d := range dists {
		var target int
		if i == len(dists)-1 {
			target = total - assigned
		} else {
			target = int(math.Round(float64(total) * float64(d.Percentage) / 100))
		}
		if target < 0 {
			target = 0
		}
		assigned += target
		buckets[i] = loBucket{lo: d.LearningOutcome, remaining: target}
	}
	return buckets
}
