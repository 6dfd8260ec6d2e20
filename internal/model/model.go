package model

import (
	"context"
	"time"
)

// UserRole represents a user's access level.
type UserRole string

const (
	// UserRoleTeacher is a teacher user role.
	UserRoleTeacher UserRole = "teacher"
	// UserRoleAdmin is an admin user role.
	UserRoleAdmin UserRole = "admin"
)

// User represents a system user.
type User struct {
	ID           int64
	Username     string
	DisplayName  string
	PasswordHash string
	Role         UserRole
	Active       bool
	CreatedAt    time.Time
}

// AuthSession represents an authentication session.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

// Subject is a course subject that owns topics and questions.
type Subject struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	Color        string    `json:"color"`
	Gradient     string    `json:"gradient"`
	Introduction string    `json:"introduction"`
	Chapters     int       `json:"chapters"`
	Questions    int       `json:"questions"`
	CreatedAt    time.Time `json:"created_at"`
}

// Topic is a chapter within a subject.
type Topic struct {
	ID          int64     `json:"id"`
	SubjectID   int64     `json:"subject_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	HasSyllabus bool      `json:"has_syllabus"`
	CreatedAt   time.Time `json:"created_at"`
}

// QuestionType classifies a generated question.
type QuestionType string

const (
	TypeMCQ   QuestionType = "MCQ"
	TypeShort QuestionType = "Short"
	TypeEssay QuestionType = "Essay"
)

// KnownQuestionTypes lists the types a rubric may request.
var KnownQuestionTypes = []QuestionType{TypeMCQ, TypeShort, TypeEssay}

// BloomLevel is the cognitive-complexity tag attached to a question.
type BloomLevel string

const (
	BloomRemember   BloomLevel = "Remember"
	BloomUnderstand BloomLevel = "Understand"
	BloomApply      BloomLevel = "Apply"
	BloomAnalyze    BloomLevel = "Analyze"
	BloomEvaluate   BloomLevel = "Evaluate"
	BloomCreate     BloomLevel = "Create"
)

// LearningOutcome tags a question with a pedagogical category (LO1-LO5).
type LearningOutcome string

// KnownLearningOutcomes is the fixed set of learning outcomes.
var KnownLearningOutcomes = []LearningOutcome{"LO1", "LO2", "LO3", "LO4", "LO5"}

// QuestionStatus is the vetting state of a stored question.
type QuestionStatus string

const (
	StatusDraft    QuestionStatus = "draft"
	StatusApproved QuestionStatus = "approved"
	StatusRejected QuestionStatus = "rejected"
)

// Question is a persisted exam question with its generation provenance.
type Question struct {
	ID              int64           `json:"id"`
	TopicID         int64           `json:"topic_id"`
	RubricID        *int64          `json:"rubric_id,omitempty"`
	QuestionText    string          `json:"question_text"`
	QuestionType    QuestionType    `json:"question_type"`
	Options         []string        `json:"options,omitempty"`
	CorrectAnswer   string          `json:"correct_answer"`
	Explanation     string          `json:"explanation,omitempty"`
	Marks           int             `json:"marks"`
	BloomLevel      BloomLevel      `json:"bloom_level,omitempty"`
	CourseOutcome   string          `json:"course_outcome,omitempty"`
	LearningOutcome LearningOutcome `json:"learning_outcome,omitempty"`
	Status          QuestionStatus  `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Document is a chunk of indexed reference material used for context lookup.
type Document struct {
	ID        int64     `json:"id"`
	SubjectID int64     `json:"subject_id"`
	TopicID   *int64    `json:"topic_id,omitempty"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ExamHistory records one completed generation run.
type ExamHistory struct {
	ID             int64     `json:"id"`
	SubjectName    string    `json:"subject_name"`
	TopicName      string    `json:"topic_name"`
	QuestionsCount int       `json:"questions_count"`
	Marks          int       `json:"marks"`
	Duration       int       `json:"duration"`
	Questions      []string  `json:"questions"`
	CreatedAt      time.Time `json:"created_at"`
}

// ActivityLog records a user-visible platform event.
type ActivityLog struct {
	ID           int64          `json:"id"`
	UserID       int64          `json:"user_id"`
	ActivityType string         `json:"activity_type"`
	Description  string         `json:"description"`
	Details      map[string]any `json:"details,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// UserStats holds the gamification counters for a user.
type UserStats struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"user_id"`
	Username        string     `json:"username"`
	XP              int        `json:"xp"`
	Level           int        `json:"level"`
	Coins           int        `json:"coins"`
	Streak          int        `json:"streak"`
	LongestStreak   int        `json:"longest_streak"`
	TotalDaysActive int        `json:"total_days_active"`
	LastActivity    *time.Time `json:"last_activity,omitempty"`
}
