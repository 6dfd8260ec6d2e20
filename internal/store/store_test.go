package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"examgen-server/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func insertTestSubject(t *testing.T, s *Store, code, name string) int64 {
	t.Helper()
	id, err := s.CreateSubject(model.Subject{Code: code, Name: name})
	if err != nil {
		t.Fatalf("insertTestSubject: %v", err)
	}
	return id
}

func insertTestTopic(t *testing.T, s *Store, subjectID int64, name string) int64 {
	t.Helper()
	id, err := s.CreateTopic(model.Topic{SubjectID: subjectID, Name: name})
	if err != nil {
		t.Fatalf("insertTestTopic: %v", err)
	}
	return id
}

func TestSubjectCRUD(t *testing.T) {
	s := newTestStore(t)

	subjects, err := s.ListSubjects()
	if err != nil {
		t.Fatalf("ListSubjects: %v", err)
	}
	if len(subjects) != 0 {
		t.Fatalf("expected empty list, got %d", len(subjects))
	}

	id := insertTestSubject(t, s, "BIO", "Biology")
	sub, err := s.GetSubject(id)
	if err != nil {
		t.Fatalf("GetSubject: %v", err)
	}
	if sub.Code != "BIO" || sub.Name != "Biology" {
		t.Errorf("unexpected subject: %+v", sub)
	}

	byCode, err := s.GetSubjectByCode("BIO")
	if err != nil {
		t.Fatalf("GetSubjectByCode: %v", err)
	}
	if byCode.ID != id {
		t.Errorf("expected ID %d, got %d", id, byCode.ID)
	}

	sub.Name = "Advanced Biology"
	if err := s.UpdateSubject(sub); err != nil {
		t.Fatalf("UpdateSubject: %v", err)
	}
	updated, _ := s.GetSubject(id)
	if updated.Name != "Advanced Biology" {
		t.Errorf("update not applied: %q", updated.Name)
	}

	if err := s.DeleteSubject(id); err != nil {
		t.Fatalf("DeleteSubject: %v", err)
	}
	if _, err := s.GetSubject(id); err == nil {
		t.Error("expected error for deleted subject")
	}
}

func TestTopicCRUD(t *testing.T) {
	s := newTestStore(t)
	subjectID := insertTestSubject(t, s, "CS", "Computer Science")

	topicID := insertTestTopic(t, s, subjectID, "Recursion")

	topic, err := s.GetTopicByName(subjectID, "Recursion")
	if err != nil {
		t.Fatalf("GetTopicByName: %v", err)
	}
	if topic.ID != topicID {
		t.Errorf("expected topic ID %d, got %d", topicID, topic.ID)
	}

	topics, err := s.ListTopics(subjectID, 0)
	if err != nil {
		t.Fatalf("ListTopics: %v", err)
	}
	if len(topics) != 1 {
		t.Fatalf("expected 1 topic, got %d", len(topics))
	}

	if err := s.DeleteTopic(topicID); err != nil {
		t.Fatalf("DeleteTopic: %v", err)
	}
	if _, err := s.GetTopic(topicID); err == nil {
		t.Error("expected error for deleted topic")
	}
}

func testRubric(subjectID int64) model.Rubric {
	return model.Rubric{
		Name:            "Midterm",
		SubjectID:       subjectID,
		ExamType:        "midterm",
		DurationMinutes: 90,
		QuestionDistributions: []model.QuestionTypeDistribution{
			{QuestionType: model.TypeMCQ, Count: 10, MarksEach: 1},
			{QuestionType: model.TypeEssay, Count: 2, MarksEach: 10},
		},
		LODistributions: []model.LearningOutcomeDistribution{
			{LearningOutcome: "LO1", Percentage: 60},
			{LearningOutcome: "LO2", Percentage: 40},
		},
	}
}

func TestRubricCRUD(t *testing.T) {
	s := newTestStore(t)
	subjectID := insertTestSubject(t, s, "BIO", "Biology")

	id, err := s.CreateRubric(testRubric(subjectID))
	if err != nil {
		t.Fatalf("CreateRubric: %v", err)
	}

	rubric, err := s.GetRubric(id)
	if err != nil {
		t.Fatalf("GetRubric: %v", err)
	}
	if len(rubric.QuestionDistributions) != 2 || len(rubric.LODistributions) != 2 {
		t.Fatalf("distributions not loaded: %+v", rubric)
	}
	// Distributions come back in declared order.
	if rubric.QuestionDistributions[0].QuestionType != model.TypeMCQ {
		t.Errorf("expected MCQ first, got %s", rubric.QuestionDistributions[0].QuestionType)
	}
	if rubric.LODistributions[1].LearningOutcome != "LO2" {
		t.Errorf("expected LO2 second, got %s", rubric.LODistributions[1].LearningOutcome)
	}
	if got := rubric.TotalMarks(); got != 30 {
		t.Errorf("TotalMarks = %d, want 30", got)
	}

	rubric.Name = "Final"
	rubric.QuestionDistributions = rubric.QuestionDistributions[:1]
	rubric.LODistributions = []model.LearningOutcomeDistribution{
		{LearningOutcome: "LO1", Percentage: 100},
	}
	if err := s.UpdateRubric(rubric); err != nil {
		t.Fatalf("UpdateRubric: %v", err)
	}
	updated, _ := s.GetRubric(id)
	if updated.Name != "Final" || len(updated.QuestionDistributions) != 1 {
		t.Errorf("update not applied: %+v", updated)
	}

	if err := s.DeleteRubric(id); err != nil {
		t.Fatalf("DeleteRubric: %v", err)
	}
	if _, err := s.GetRubric(id); err == nil {
		t.Error("expected error for deleted rubric")
	}
}

func TestRubricValidationRejectedBeforePersistence(t *testing.T) {
	s := newTestStore(t)
	subjectID := insertTestSubject(t, s, "BIO", "Biology")

	bad := testRubric(subjectID)
	bad.LODistributions[0].Percentage = 50 // 50 + 40 != 100

	_, err := s.CreateRubric(bad)
	if err == nil {
		t.Fatal("expected validation error")
	}
	var verr *model.RubricValidationError
	if !errors.As(err, &verr) {
		t.Errorf("expected RubricValidationError, got %v", err)
	}

	rubrics, _ := s.ListRubrics(subjectID)
	if len(rubrics) != 0 {
		t.Errorf("invalid rubric must not be persisted, found %d", len(rubrics))
	}
}

func TestSaveQuestionBatch(t *testing.T) {
	s := newTestStore(t)
	subjectID := insertTestSubject(t, s, "BIO", "Biology")
	topicID := insertTestTopic(t, s, subjectID, "Cells")

	batch := []model.Question{
		{
			TopicID:       topicID,
			QuestionText:  "What is a cell?",
			QuestionType:  model.TypeMCQ,
			Options:       []string{"A. unit", "B. organ"},
			CorrectAnswer: "A",
			Marks:         1,
			BloomLevel:    model.BloomRemember,
			Status:        model.StatusDraft,
		},
		{
			TopicID:       topicID,
			QuestionText:  "Describe mitosis.",
			QuestionType:  model.TypeEssay,
			CorrectAnswer: "Cell division producing identical cells.",
			Marks:         10,
			Status:        model.StatusDraft,
		},
	}

	ids, err := s.SaveQuestionBatch(batch)
	if err != nil {
		t.Fatalf("SaveQuestionBatch: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 IDs, got %d", len(ids))
	}

	q, err := s.GetQuestion(ids[0])
	if err != nil {
		t.Fatalf("GetQuestion: %v", err)
	}
	if q.QuestionText != "What is a cell?" {
		t.Errorf("IDs must come back in input order, got %q first", q.QuestionText)
	}
	if len(q.Options) != 2 {
		t.Errorf("options not round-tripped: %v", q.Options)
	}

	count, err := s.QuestionCount()
	if err != nil {
		t.Fatalf("QuestionCount: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 questions, got %d", count)
	}
}

func TestListQuestionsFilters(t *testing.T) {
	s := newTestStore(t)
	subjectID := insertTestSubject(t, s, "BIO", "Biology")
	topicA := insertTestTopic(t, s, subjectID, "Cells")
	topicB := insertTestTopic(t, s, subjectID, "Genetics")

	for _, q := range []model.Question{
		{TopicID: topicA, QuestionText: "A1", QuestionType: model.TypeMCQ, CorrectAnswer: "x", Marks: 1, Status: model.StatusDraft},
		{TopicID: topicA, QuestionText: "A2", QuestionType: model.TypeMCQ, CorrectAnswer: "x", Marks: 1, Status: model.StatusApproved},
		{TopicID: topicB, QuestionText: "B1", QuestionType: model.TypeShort, CorrectAnswer: "x", Marks: 2, Status: model.StatusDraft},
	} {
		if _, err := s.InsertQuestion(q); err != nil {
			t.Fatalf("InsertQuestion: %v", err)
		}
	}

	byTopic, err := s.ListQuestions(topicA, 0, "")
	if err != nil {
		t.Fatalf("ListQuestions by topic: %v", err)
	}
	if len(byTopic) != 2 {
		t.Errorf("expected 2 questions for topic, got %d", len(byTopic))
	}

	approved, err := s.ListQuestions(0, 0, model.StatusApproved)
	if err != nil {
		t.Fatalf("ListQuestions by status: %v", err)
	}
	if len(approved) != 1 || approved[0].QuestionText != "A2" {
		t.Errorf("unexpected approved set: %+v", approved)
	}
}

func TestUpdateQuestionStatus(t *testing.T) {
	s := newTestStore(t)
	subjectID := insertTestSubject(t, s, "BIO", "Biology")
	topicID := insertTestTopic(t, s, subjectID, "Cells")

	id, err := s.InsertQuestion(model.Question{
		TopicID: topicID, QuestionText: "Q", QuestionType: model.TypeMCQ,
		CorrectAnswer: "x", Marks: 1, Status: model.StatusDraft,
	})
	if err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}

	if err := s.UpdateQuestionStatus(id, model.StatusApproved); err != nil {
		t.Fatalf("UpdateQuestionStatus: %v", err)
	}
	q, _ := s.GetQuestion(id)
	if q.Status != model.StatusApproved {
		t.Errorf("status not updated: %s", q.Status)
	}

	if err := s.UpdateQuestionStatus(9999, model.StatusApproved); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected ErrNoRows for missing question, got %v", err)
	}
}

func TestExamHistoryAndActivity(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.InsertExamHistory(model.ExamHistory{
		SubjectName:    "Biology",
		TopicName:      "Cells",
		QuestionsCount: 5,
		Marks:          10,
		Questions:      []string{"Q1?", "Q2?"},
	}); err != nil {
		t.Fatalf("InsertExamHistory: %v", err)
	}

	history, err := s.ListExamHistory(10)
	if err != nil {
		t.Fatalf("ListExamHistory: %v", err)
	}
	if len(history) != 1 || len(history[0].Questions) != 2 {
		t.Fatalf("unexpected history: %+v", history)
	}

	if err := s.LogActivity("generation", "generated questions", map[string]any{"n": 5}); err != nil {
		t.Fatalf("LogActivity: %v", err)
	}
	activity, err := s.ListActivity(10)
	if err != nil {
		t.Fatalf("ListActivity: %v", err)
	}
	if len(activity) != 1 || activity[0].ActivityType != "generation" {
		t.Fatalf("unexpected activity: %+v", activity)
	}
}

func TestAwardXPAndLevels(t *testing.T) {
	s := newTestStore(t)

	stats, err := s.GetUserStats(1)
	if err != nil {
		t.Fatalf("GetUserStats: %v", err)
	}
	if stats != nil {
		t.Fatal("expected nil stats for unknown user")
	}

	for i := 0; i < 12; i++ {
		if err := s.AwardXP(1, "alice", 10); err != nil {
			t.Fatalf("AwardXP: %v", err)
		}
	}

	stats, err = s.GetUserStats(1)
	if err != nil {
		t.Fatalf("GetUserStats: %v", err)
	}
	if stats == nil {
		t.Fatal("expected stats after awards")
	}
	if stats.XP != 120 {
		t.Errorf("XP = %d, want 120", stats.XP)
	}
	if stats.Level != 2 {
		t.Errorf("Level = %d, want 2", stats.Level)
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	s := newTestStore(t)

	v, err := s.GetSetting("missing")
	if err != nil {
		t.Fatalf("GetSetting: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value for missing key, got %q", v)
	}

	if err := s.SetSetting("theme", "dark"); err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if err := s.SetSetting("theme", "light"); err != nil {
		t.Fatalf("SetSetting overwrite: %v", err)
	}
	v, _ = s.GetSetting("theme")
	if v != "light" {
		t.Errorf("expected overwritten value, got %q", v)
	}
}

func TestAuthSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	userID, err := s.CreateUser(model.User{
		Username:     "admin",
		PasswordHash: "hash",
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, expires, err := s.CreateAuthSession(userID, time.Hour)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	if remaining := time.Until(expires); remaining < 59*time.Minute || remaining > time.Hour {
		t.Errorf("expiry %v not about an hour out", expires)
	}
	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess == nil || sess.UserID != userID {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if err := s.DeleteAuthSession(token); err != nil {
		t.Fatalf("DeleteAuthSession: %v", err)
	}
	sess, err = s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession after delete: %v", err)
	}
	if sess != nil {
		t.Error("expected nil session after delete")
	}
}

func TestAuthSessionExpiry(t *testing.T) {
	s := newTestStore(t)

	userID, err := s.CreateUser(model.User{
		Username:     "admin",
		PasswordHash: "hash",
		Role:         model.UserRoleAdmin,
		Active:       true,
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	token, _, err := s.CreateAuthSession(userID, time.Millisecond)
	if err != nil {
		t.Fatalf("CreateAuthSession: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	sess, err := s.GetAuthSession(token)
	if err != nil {
		t.Fatalf("GetAuthSession: %v", err)
	}
	if sess != nil {
		t.Fatal("expected expired session to be rejected")
	}
}

func TestDashboardStats(t *testing.T) {
	s := newTestStore(t)
	subjectID := insertTestSubject(t, s, "BIO", "Biology")
	topicID := insertTestTopic(t, s, subjectID, "Cells")

	if _, err := s.InsertQuestion(model.Question{
		TopicID: topicID, QuestionText: "Q", QuestionType: model.TypeMCQ,
		CorrectAnswer: "x", Marks: 1, Status: model.StatusDraft,
	}); err != nil {
		t.Fatalf("InsertQuestion: %v", err)
	}

	stats, err := s.GetDashboardStats()
	if err != nil {
		t.Fatalf("GetDashboardStats: %v", err)
	}
	if stats.Subjects != 1 || stats.Topics != 1 || stats.Questions != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.DraftQuestions != 1 {
		t.Errorf("DraftQuestions = %d, want 1", stats.DraftQuestions)
	}
}
