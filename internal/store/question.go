package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"examgen-server/internal/model"
)

const questionColumns = `id, topic_id, rubric_id, question_text, question_type, options,
	correct_answer, explanation, marks, bloom_level, course_outcome, learning_outcome, status, created_at`

func scanQuestion(row interface{ Scan(...any) error }) (model.Question, error) {
	var q model.Question
	var options string
	err := row.Scan(&q.ID, &q.TopicID, &q.RubricID, &q.QuestionText, &q.QuestionType, &options,
		&q.CorrectAnswer, &q.Explanation, &q.Marks, &q.BloomLevel, &q.CourseOutcome,
		&q.LearningOutcome, &q.Status, &q.CreatedAt)
	if err != nil {
		return q, err
	}
	if err := json.Unmarshal([]byte(options), &q.Options); err != nil {
		return q, fmt.Errorf("decode options for question %d: %w", q.ID, err)
	}
	return q, nil
}

// InsertQuestion stores a single question and returns its ID.
func (s *Store) InsertQuestion(q model.Question) (int64, error) {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return 0, err
	}
	if q.Options == nil {
		options = []byte("[]")
	}
	res, err := s.db.Exec(
		`INSERT INTO questions (topic_id, rubric_id, question_text, question_type, options,
			correct_answer, explanation, marks, bloom_level, course_outcome, learning_outcome, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.TopicID, q.RubricID, q.QuestionText, q.QuestionType, string(options),
		q.CorrectAnswer, q.Explanation, q.Marks, q.BloomLevel, q.CourseOutcome,
		q.LearningOutcome, q.Status, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// SaveQuestionBatch writes all questions in one transaction and returns the
// assigned IDs in input order. On any failure the whole batch rolls back and
// no IDs are assigned; the caller keeps the in-memory questions.
func (s *Store) SaveQuestionBatch(questions []model.Question) ([]int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	ids := make([]int64, 0, len(questions))
	now := time.Now()
	for _, q := range questions {
		options, err := json.Marshal(q.Options)
		if err != nil {
			return nil, err
		}
		if q.Options == nil {
			options = []byte("[]")
		}
		res, err := tx.Exec(
			`INSERT INTO questions (topic_id, rubric_id, question_text, question_type, options,
				correct_answer, explanation, marks, bloom_level, course_outcome, learning_outcome, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			q.TopicID, q.RubricID, q.QuestionText, q.QuestionType, string(options),
			q.CorrectAnswer, q.Explanation, q.Marks, q.BloomLevel, q.CourseOutcome,
			q.LearningOutcome, q.Status, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert question: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, tx.Commit()
}

// GetQuestion returns a question by ID.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	row := s.db.QueryRow(`SELECT `+questionColumns+` FROM questions WHERE id = ?`, id)
	return scanQuestion(row)
}

// ListQuestions returns questions matching the given filters. Zero values
// mean no filtering on that field.
func (s *Store) ListQuestions(topicID, rubricID int64, status model.QuestionStatus) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE 1=1`
	var args []any
	if topicID > 0 {
		query += ` AND topic_id = ?`
		args = append(args, topicID)
	}
	if rubricID > 0 {
		query += ` AND rubric_id = ?`
		args = append(args, rubricID)
	}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var questions []model.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// UpdateQuestionStatus sets the vetting status of a question.
func (s *Store) UpdateQuestionStatus(id int64, status model.QuestionStatus) error {
	res, err := s.db.Exec(`UPDATE questions SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteQuestion removes a question.
func (s *Store) DeleteQuestion(id int64) error {
	_, err := s.db.Exec(`DELETE FROM questions WHERE id = ?`, id)
	return err
}

// QuestionCount returns the number of stored questions.
func (s *Store) QuestionCount() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM questions`).Scan(&count)
	return count, err
}

// InsertDocument stores one chunk of indexed reference material.
func (s *Store) InsertDocument(d model.Document) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO documents (subject_id, topic_id, filename, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		d.SubjectID, d.TopicID, d.Filename, d.Content, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListDocuments returns all document chunks for a subject.
func (s *Store) ListDocuments(subjectID int64) ([]model.Document, error) {
	rows, err := s.db.Query(
		`SELECT id, subject_id, topic_id, filename, content, created_at
		 FROM documents WHERE subject_id = ? ORDER BY id`, subjectID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var docs []model.Document
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(&d.ID, &d.SubjectID, &d.TopicID, &d.Filename, &d.Content, &d.CreatedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}
