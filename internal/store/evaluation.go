package store

import (
	"database/sql"
	"fmt"

	"github.com/skilllink/skilllink/internal/model"
)

const evaluationSelect = `SELECT e.id, e.tutoring_id, e.name, e.description, e.deadline,
	COALESCE(SUM(eq.points), 0), COUNT(eq.question_id)
	FROM evaluations e LEFT JOIN evaluation_questions eq ON eq.evaluation_id = e.id`

func scanEvaluation(row rowScanner) (model.Evaluation, error) {
	var e model.Evaluation
	err := row.Scan(&e.ID, &e.TutoringID, &e.Name, &e.Description, &e.Deadline, &e.TotalPoints, &e.QuestionCount)
	return e, err
}

// CreateEvaluation inserts an evaluation.
func (s *Store) CreateEvaluation(e model.Evaluation) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO evaluations (tutoring_id, name, description, deadline) VALUES (?, ?, ?, ?)`,
		e.TutoringID, e.Name, e.Description, e.Deadline,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("tutoring %d: %w", e.TutoringID, ErrInvalidReference)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetEvaluation returns an evaluation with its derived totals.
func (s *Store) GetEvaluation(id int64) (model.Evaluation, error) {
	return scanEvaluation(s.db.QueryRow(evaluationSelect+` WHERE e.id = ? GROUP BY e.id`, id))
}

// ListEvaluations returns the evaluations of a tutoring session.
func (s *Store) ListEvaluations(tutoringID int64) ([]model.Evaluation, error) {
	rows, err := s.db.Query(evaluationSelect+` WHERE e.tutoring_id = ? GROUP BY e.id ORDER BY e.id`, tutoringID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Evaluation
	for rows.Next() {
		e, err := scanEvaluation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UpdateEvaluation changes an evaluation's name, description and deadline.
func (s *Store) UpdateEvaluation(e model.Evaluation) error {
	return checkAffected(s.db.Exec(
		`UPDATE evaluations SET name = ?, description = ?, deadline = ? WHERE id = ?`,
		e.Name, e.Description, e.Deadline, e.ID,
	))
}

// DeleteEvaluation removes an evaluation with its attachments and submissions,
// then deletes every question that is no longer attached to any evaluation.
func (s *Store) DeleteEvaluation(id int64) (deletedQuestions int, err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT question_id FROM evaluation_questions WHERE evaluation_id = ?`, id)
	if err != nil {
		return 0, err
	}
	var questionIDs []int64
	for rows.Next() {
		var qid int64
		if err := rows.Scan(&qid); err != nil {
			rows.Close()
			return 0, err
		}
		questionIDs = append(questionIDs, qid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	if err := checkAffected(tx.Exec(`DELETE FROM evaluations WHERE id = ?`, id)); err != nil {
		return 0, err
	}

	for _, qid := range questionIDs {
		res, err := tx.Exec(
			`DELETE FROM questions WHERE id = ?
			 AND NOT EXISTS (SELECT 1 FROM evaluation_questions WHERE question_id = ?)`,
			qid, qid,
		)
		if err != nil {
			return 0, err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		deletedQuestions += int(n)
	}

	return deletedQuestions, tx.Commit()
}

// evaluationTutoring returns the tutoring id of an evaluation inside tx.
func evaluationTutoring(tx *sql.Tx, evaluationID int64) (int64, error) {
	var tutoringID int64
	err := tx.QueryRow(`SELECT tutoring_id FROM evaluations WHERE id = ?`, evaluationID).Scan(&tutoringID)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("evaluation %d: %w", evaluationID, ErrInvalidReference)
	}
	return tutoringID, err
}
