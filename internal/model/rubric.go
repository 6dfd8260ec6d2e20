package model

import (
	"fmt"
	"slices"
	"time"
)

// Rubric is an exam blueprint: how many questions of each type, at what
// marks, and how they spread across learning outcomes.
type Rubric struct {
	ID                    int64                         `json:"id"`
	Name                  string                        `json:"name"`
	SubjectID             int64                         `json:"subject_id"`
	ExamType              string                        `json:"exam_type"`
	DurationMinutes       int                           `json:"duration_minutes"`
	AIInstructions        string                        `json:"ai_instructions,omitempty"`
	CreatedAt             time.Time                     `json:"created_at"`
	UpdatedAt             time.Time                     `json:"updated_at"`
	QuestionDistributions []QuestionTypeDistribution    `json:"question_distributions"`
	LODistributions       []LearningOutcomeDistribution `json:"lo_distributions"`
}

// QuestionTypeDistribution requests Count questions of one type at
// MarksEach marks apiece.
type QuestionTypeDistribution struct {
	ID           int64        `json:"id"`
	RubricID     int64        `json:"rubric_id"`
	QuestionType QuestionType `json:"question_type"`
	Count        int          `json:"count"`
	MarksEach    int          `json:"marks_each"`
}

// LearningOutcomeDistribution assigns a percentage of the total question
// count to one learning outcome.
type LearningOutcomeDistribution struct {
	ID              int64           `json:"id"`
	RubricID        int64           `json:"rubric_id"`
	LearningOutcome LearningOutcome `json:"learning_outcome"`
	Percentage      int             `json:"percentage"`
}

// TotalQuestions is the question count summed over all type distributions.
func (r *Rubric) TotalQuestions() int {
	total := 0
	for _, d := range r.QuestionDistributions {
		total += d.Count
	}
	return total
}

// TotalMarks is always derived from the distributions, never stored.
func (r *Rubric) TotalMarks() int {
	total := 0
	for _, d := range r.QuestionDistributions {
		total += d.Count * d.MarksEach
	}
	return total
}

// RubricValidationError reports an invalid rubric. It is surfaced to the
// caller immediately; generation never starts on an invalid rubric.
type RubricValidationError struct {
	Reason string
}

func (e *RubricValidationError) Error() string {
	return "invalid rubric: " + e.Reason
}

// Validate checks a rubric before persistence: known type and LO codes,
// non-negative counts, marks of at least 1, at least one question requested,
// and LO percentages summing to exactly 100 when any are declared.
func (r *Rubric) Validate() error {
	for _, d := range r.QuestionDistributions {
		if !slices.Contains(KnownQuestionTypes, d.QuestionType) {
			return &RubricValidationError{Reason: fmt.Sprintf("unknown question type %q", d.QuestionType)}
		}
		if d.Count < 0 {
			return &RubricValidationError{Reason: fmt.Sprintf("negative count for %s", d.QuestionType)}
		}
		if d.MarksEach < 1 {
			return &RubricValidationError{Reason: fmt.Sprintf("marks per %s question must be at least 1", d.QuestionType)}
		}
	}
	if r.TotalQuestions() == 0 {
		return &RubricValidationError{Reason: "rubric requests zero questions"}
	}

	if len(r.LODistributions) > 0 {
		sum := 0
		for _, d := range r.LODistributions {
			if !slices.Contains(KnownLearningOutcomes, d.LearningOutcome) {
				return &RubricValidationError{Reason: fmt.Sprintf("unknown learning outcome %q", d.LearningOutcome)}
			}
			if d.Percentage < 0 || d.Percentage > 100 {
				return &RubricValidationError{Reason: fmt.Sprintf("percentage %d for %s out of range", d.Percentage, d.LearningOutcome)}
			}
			sum += d.Percentage
		}
		if sum != 100 {
			return &RubricValidationError{Reason: fmt.Sprintf("learning outcome percentages sum to %d, want 100", sum)}
		}
	}
	return nil
}

// GenerationTask is one unit of work for the generation pipeline: Count
// questions of QuestionType attributed to LearningOutcome, each worth
// MarksEach marks. Tasks are transient and never persisted.
type GenerationTask struct {
	QuestionType    QuestionType    `json:"question_type"`
	LearningOutcome LearningOutcome `json:"learning_outcome"`
	Count           int             `json:"count"`
	MarksEach       int             `json:"marks"`
}

// QuestionDraft is the canonical shape of one generated question before
// persistence. All known key synonyms from raw model output are normalized
// onto this type at the repair boundary.
type QuestionDraft struct {
	Question        string          `json:"question"`
	QuestionType    string          `json:"question_type,omitempty"`
	Options         []string        `json:"options,omitempty"`
	CorrectAnswer   string          `json:"correct_answer"`
	Explanation     string          `json:"explanation,omitempty"`
	Marks           int             `json:"marks,omitempty"`
	BloomLevel      BloomLevel      `json:"bloom_level,omitempty"`
	CourseOutcome   string          `json:"course_outcome,omitempty"`
	LearningOutcome LearningOutcome `json:"learning_outcome,omitempty"`
}
