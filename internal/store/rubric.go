package store

import (
	"database/sql"
	"time"

	"examgen-server/internal/model"
)

// CreateRubric validates and inserts a rubric with its distributions in one
// transaction, returning the new ID. Invalid rubrics are rejected before any
// row is written.
func (s *Store) CreateRubric(r model.Rubric) (int64, error) {
	if err := r.Validate(); err != nil {
		return 0, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	now := time.Now()
	res, err := tx.Exec(
		`INSERT INTO rubrics (name, subject_id, exam_type, duration_minutes, ai_instructions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.SubjectID, r.ExamType, r.DurationMinutes, r.AIInstructions, now, now,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := insertDistributions(tx, id, r); err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// UpdateRubric validates and replaces a rubric and its distributions.
func (s *Store) UpdateRubric(r model.Rubric) error {
	if err := r.Validate(); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE rubrics SET name = ?, subject_id = ?, exam_type = ?, duration_minutes = ?, ai_instructions = ?, updated_at = ?
		 WHERE id = ?`,
		r.Name, r.SubjectID, r.ExamType, r.DurationMinutes, r.AIInstructions, time.Now(), r.ID,
	)
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

	if _, err := tx.Exec(`DELETE FROM rubric_question_distributions WHERE rubric_id = ?`, r.ID); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM rubric_lo_distributions WHERE rubric_id = ?`, r.ID); err != nil {
		return err
	}
	if err := insertDistributions(tx, r.ID, r); err != nil {
		return err
	}
	return tx.Commit()
}

func insertDistributions(tx *sql.Tx, rubricID int64, r model.Rubric) error {
	for _, d := range r.QuestionDistributions {
		if _, err := tx.Exec(
			`INSERT INTO rubric_question_distributions (rubric_id, question_type, count, marks_each)
			 VALUES (?, ?, ?, ?)`,
			rubricID, d.QuestionType, d.Count, d.MarksEach,
		); err != nil {
			return err
		}
	}
	for _, d := range r.LODistributions {
		if _, err := tx.Exec(
			`INSERT INTO rubric_lo_distributions (rubric_id, learning_outcome, percentage)
			 VALUES (?, ?, ?)`,
			rubricID, d.LearningOutcome, d.Percentage,
		); err != nil {
			return err
		}
	}
	return nil
}

// GetRubric returns a rubric with its distributions loaded. Distribution
// rows come back in insertion order, which is the declared input order the
// planner depends on.
func (s *Store) GetRubric(id int64) (model.Rubric, error) {
	var r model.Rubric
	err := s.db.QueryRow(
		`SELECT id, name, subject_id, exam_type, duration_minutes, ai_instructions, created_at, updated_at
		 FROM rubrics WHERE id = ?`, id,
	).Scan(&r.ID, &r.Name, &r.SubjectID, &r.ExamType, &r.DurationMinutes, &r.AIInstructions, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return r, err
	}

	qRows, err := s.db.Query(
		`SELECT id, rubric_id, question_type, count, marks_each
		 FROM rubric_question_distributions WHERE rubric_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return r, err
	}
	defer qRows.Close()
	for qRows.Next() {
		var d model.QuestionTypeDistribution
		if err := qRows.Scan(&d.ID, &d.RubricID, &d.QuestionType, &d.Count, &d.MarksEach); err != nil {
			return r, err
		}
		r.QuestionDistributions = append(r.QuestionDistributions, d)
	}
	if err := qRows.Err(); err != nil {
		return r, err
	}

	loRows, err := s.db.Query(
		`SELECT id, rubric_id, learning_outcome, percentage
		 FROM rubric_lo_distributions WHERE rubric_id = ? ORDER BY id`, id,
	)
	if err != nil {
		return r, err
	}
	defer loRows.Close()
	for loRows.Next() {
		var d model.LearningOutcomeDistribution
		if err := loRows.Scan(&d.ID, &d.RubricID, &d.LearningOutcome, &d.Percentage); err != nil {
			return r, err
		}
		r.LODistributions = append(r.LODistributions, d)
	}
	return r, loRows.Err()
}

// ListRubrics returns rubric headers, optionally filtered by subject
// (subjectID 0 = all). Distributions are not loaded.
func (s *Store) ListRubrics(subjectID int64) ([]model.Rubric, error) {
	query := `SELECT id, name, subject_id, exam_type, duration_minutes, ai_instructions, created_at, updated_at
		FROM rubrics`
	var args []any
	if subjectID > 0 {
		query += ` WHERE subject_id = ?`
		args = append(args, subjectID)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rubrics []model.Rubric
	for rows.Next() {
		var r model.Rubric
		if err := rows.Scan(&r.ID, &r.Name, &r.SubjectID, &r.ExamType, &r.DurationMinutes,
			&r.AIInstructions, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		rubrics = append(rubrics, r)
	}
	return rubrics, rows.Err()
}

// DeleteRubric removes a rubric and its distributions. Questions generated
// from it keep their rows but lose the rubric reference.
func (s *Store) DeleteRubric(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE questions SET rubric_id = NULL WHERE rubric_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM rubric_question_distributions WHERE rubric_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM rubric_lo_distributions WHERE rubric_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM rubrics WHERE id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}
