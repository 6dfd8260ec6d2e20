package store

import (
	"time"

	"examgen-server/internal/model"
)

// CreateSubject inserts a subject and returns its ID.
func (s *Store) CreateSubject(sub model.Subject) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO subjects (code, name, color, gradient, introduction, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sub.Code, sub.Name, sub.Color, sub.Gradient, sub.Introduction, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const subjectColumns = `s.id, s.code, s.name, s.color, s.gradient, s.introduction, s.created_at,
	(SELECT COUNT(*) FROM topics t WHERE t.subject_id = s.id),
	(SELECT COUNT(*) FROM questions q JOIN topics t ON q.topic_id = t.id WHERE t.subject_id = s.id)`

// GetSubject returns a subject by ID with its chapter and question counts.
func (s *Store) GetSubject(id int64) (model.Subject, error) {
	var sub model.Subject
	err := s.db.QueryRow(
		`SELECT `+subjectColumns+` FROM subjects s WHERE s.id = ?`, id,
	).Scan(&sub.ID, &sub.Code, &sub.Name, &sub.Color, &sub.Gradient, &sub.Introduction,
		&sub.CreatedAt, &sub.Chapters, &sub.Questions)
	return sub, err
}

// GetSubjectByCode returns a subject by its short code.
func (s *Store) GetSubjectByCode(code string) (model.Subject, error) {
	var sub model.Subject
	err := s.db.QueryRow(
		`SELECT `+subjectColumns+` FROM subjects s WHERE s.code = ?`, code,
	).Scan(&sub.ID, &sub.Code, &sub.Name, &sub.Color, &sub.Gradient, &sub.Introduction,
		&sub.CreatedAt, &sub.Chapters, &sub.Questions)
	return sub, err
}

// ListSubjects returns all subjects with their counts.
func (s *Store) ListSubjects() ([]model.Subject, error) {
	rows, err := s.db.Query(`SELECT ` + subjectColumns + ` FROM subjects s ORDER BY s.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subjects []model.Subject
	for rows.Next() {
		var sub model.Subject
		if err := rows.Scan(&sub.ID, &sub.Code, &sub.Name, &sub.Color, &sub.Gradient,
			&sub.Introduction, &sub.CreatedAt, &sub.Chapters, &sub.Questions); err != nil {
			return nil, err
		}
		subjects = append(subjects, sub)
	}
	return subjects, rows.Err()
}

// UpdateSubject overwrites all editable subject fields.
func (s *Store) UpdateSubject(sub model.Subject) error {
	_, err := s.db.Exec(
		`UPDATE subjects SET code = ?, name = ?, color = ?, gradient = ?, introduction = ? WHERE id = ?`,
		sub.Code, sub.Name, sub.Color, sub.Gradient, sub.Introduction, sub.ID,
	)
	return err
}

// DeleteSubject removes a subject and its topics and questions.
func (s *Store) DeleteSubject(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`DELETE FROM questions WHERE topic_id IN (SELECT id FROM topics WHERE subject_id = ?)`, id,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM topics WHERE subject_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM documents WHERE subject_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM subjects WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// CreateTopic inserts a topic and returns its ID.
func (s *Store) CreateTopic(t model.Topic) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO topics (subject_id, name, description, has_syllabus, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		t.SubjectID, t.Name, t.Description, t.HasSyllabus, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetTopic returns a topic by ID.
func (s *Store) GetTopic(id int64) (model.Topic, error) {
	var t model.Topic
	err := s.db.QueryRow(
		`SELECT id, subject_id, name, description, has_syllabus, created_at FROM topics WHERE id = ?`, id,
	).Scan(&t.ID, &t.SubjectID, &t.Name, &t.Description, &t.HasSyllabus, &t.CreatedAt)
	return t, err
}

// GetTopicByName returns the topic with the given name within a subject.
func (s *Store) GetTopicByName(subjectID int64, name string) (model.Topic, error) {
	var t model.Topic
	err := s.db.QueryRow(
		`SELECT id, subject_id, name, description, has_syllabus, created_at
		 FROM topics WHERE subject_id = ? AND name = ?`, subjectID, name,
	).Scan(&t.ID, &t.SubjectID, &t.Name, &t.Description, &t.HasSyllabus, &t.CreatedAt)
	return t, err
}

// ListTopics returns the topics for a subject, capped at limit (0 = all).
func (s *Store) ListTopics(subjectID int64, limit int) ([]model.Topic, error) {
	query := `SELECT id, subject_id, name, description, has_syllabus, created_at
		FROM topics WHERE subject_id = ? ORDER BY id`
	args := []any{subjectID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var topics []model.Topic
	for rows.Next() {
		var t model.Topic
		if err := rows.Scan(&t.ID, &t.SubjectID, &t.Name, &t.Description, &t.HasSyllabus, &t.CreatedAt); err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

// DeleteTopic removes a topic and its questions.
func (s *Store) DeleteTopic(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM questions WHERE topic_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM topics WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}
