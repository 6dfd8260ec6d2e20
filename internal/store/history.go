package store

import (
	"database/sql"
	"encoding/json"
	"time"

	"examgen-server/internal/model"
)

// InsertExamHistory records a completed generation run.
func (s *Store) InsertExamHistory(h model.ExamHistory) (int64, error) {
	questions, err := json.Marshal(h.Questions)
	if err != nil {
		return 0, err
	}
	if h.Questions == nil {
		questions = []byte("[]")
	}
	res, err := s.db.Exec(
		`INSERT INTO exam_history (subject_name, topic_name, questions_count, marks, duration, questions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.SubjectName, h.TopicName, h.QuestionsCount, h.Marks, h.Duration, string(questions), time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListExamHistory returns history entries, newest first, capped at limit
// (0 = all).
func (s *Store) ListExamHistory(limit int) ([]model.ExamHistory, error) {
	query := `SELECT id, subject_name, topic_name, questions_count, marks, duration, questions, created_at
		FROM exam_history ORDER BY id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.ExamHistory
	for rows.Next() {
		var h model.ExamHistory
		var questions string
		if err := rows.Scan(&h.ID, &h.SubjectName, &h.TopicName, &h.QuestionsCount, &h.Marks,
			&h.Duration, &questions, &h.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(questions), &h.Questions); err != nil {
			return nil, err
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// LogActivity appends an activity log entry. Failures here should never
// abort the operation being logged, so callers typically ignore the error
// after logging it.
func (s *Store) LogActivity(activityType, description string, details map[string]any) error {
	encoded := []byte("{}")
	if details != nil {
		var err error
		encoded, err = json.Marshal(details)
		if err != nil {
			return err
		}
	}
	_, err := s.db.Exec(
		`INSERT INTO activity_logs (user_id, activity_type, description, details, created_at)
		 VALUES (1, ?, ?, ?, ?)`,
		activityType, description, string(encoded), time.Now(),
	)
	return err
}

// ListActivity returns recent activity entries, newest first.
func (s *Store) ListActivity(limit int) ([]model.ActivityLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, user_id, activity_type, description, details, created_at
		 FROM activity_logs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []model.ActivityLog
	for rows.Next() {
		var a model.ActivityLog
		var details string
		if err := rows.Scan(&a.ID, &a.UserID, &a.ActivityType, &a.Description, &details, &a.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(details), &a.Details); err != nil {
			return nil, err
		}
		entries = append(entries, a)
	}
	return entries, rows.Err()
}

// GetUserStats returns the gamification counters for a user, or nil if the
// user has none yet.
func (s *Store) GetUserStats(userID int64) (*model.UserStats, error) {
	var st model.UserStats
	err := s.db.QueryRow(
		`SELECT id, user_id, username, xp, level, coins, streak, longest_streak, total_days_active, last_activity
		 FROM user_stats WHERE user_id = ?`, userID,
	).Scan(&st.ID, &st.UserID, &st.Username, &st.XP, &st.Level, &st.Coins, &st.Streak,
		&st.LongestStreak, &st.TotalDaysActive, &st.LastActivity)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// AwardXP adds experience points to a user's stats, creating the row on
// first award. Level is xp/100 + 1.
func (s *Store) AwardXP(userID int64, username string, points int) error {
	now := time.Now()
	_, err := s.db.Exec(
		`INSERT INTO user_stats (user_id, username, xp, level, last_activity)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
			xp = xp + ?,
			level = (xp + ?) / 100 + 1,
			last_activity = ?`,
		userID, username, points, points/100+1, now,
		points, points, now,
	)
	return err
}

// DashboardStats aggregates platform counters for the dashboard endpoint.
type DashboardStats struct {
	Subjects       int `json:"subjects"`
	Topics         int `json:"topics"`
	Questions      int `json:"questions"`
	DraftQuestions int `json:"draft_questions"`
	Rubrics        int `json:"rubrics"`
	ExamsGenerated int `json:"exams_generated"`
}

// GetDashboardStats returns platform-wide counts in one round trip.
func (s *Store) GetDashboardStats() (DashboardStats, error) {
	var st DashboardStats
	err := s.db.QueryRow(`SELECT
		(SELECT COUNT(*) FROM subjects),
		(SELECT COUNT(*) FROM topics),
		(SELECT COUNT(*) FROM questions),
		(SELECT COUNT(*) FROM questions WHERE status = 'draft'),
		(SELECT COUNT(*) FROM rubrics),
		(SELECT COUNT(*) FROM exam_history)`,
	).Scan(&st.Subjects, &st.Topics, &st.Questions, &st.DraftQuestions, &st.Rubrics, &st.ExamsGenerated)
	return st, err
}
