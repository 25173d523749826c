package store

import (
	"database/sql"
	"fmt"

	"github.com/skilllink/skilllink/internal/model"
)

// CreateQuestion stores a bank question with its options. When att is not nil
// the question is also attached to att.EvaluationID, which must belong to the
// same tutoring session.
func (s *Store) CreateQuestion(q model.Question, opts []model.Option, att *model.Attachment) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO questions (tutoring_id, description, type, correct_option) VALUES (?, ?, ?, ?)`,
		q.TutoringID, q.Description, q.Type, q.CorrectOption,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("tutoring %d: %w", q.TutoringID, ErrInvalidReference)
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if err := insertOptions(tx, id, opts); err != nil {
		return 0, err
	}

	if att != nil {
		att.QuestionID = id
		if err := attach(tx, q.TutoringID, *att); err != nil {
			return 0, err
		}
	}

	return id, tx.Commit()
}

// GetQuestion returns a bank question without options.
func (s *Store) GetQuestion(id int64) (model.Question, error) {
	var q model.Question
	err := s.db.QueryRow(
		`SELECT id, tutoring_id, description, type, correct_option FROM questions WHERE id = ?`, id,
	).Scan(&q.ID, &q.TutoringID, &q.Description, &q.Type, &q.CorrectOption)
	return q, err
}

// GetQuestionComplete returns a bank question with its options.
func (s *Store) GetQuestionComplete(id int64) (model.Question, error) {
	q, err := s.GetQuestion(id)
	if err != nil {
		return q, err
	}
	q.Options, err = s.listOptions(id)
	return q, err
}

// ListQuestionBank returns every question of a tutoring session.
func (s *Store) ListQuestionBank(tutoringID int64) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT id, tutoring_id, description, type, correct_option FROM questions
		 WHERE tutoring_id = ? ORDER BY id`, tutoringID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.TutoringID, &q.Description, &q.Type, &q.CorrectOption); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ListEvaluationQuestions returns the questions attached to an evaluation,
// sorted by their order in it. withOptions also loads each question's options.
func (s *Store) ListEvaluationQuestions(evaluationID int64, withOptions bool) ([]model.Question, error) {
	rows, err := s.db.Query(
		`SELECT q.id, q.tutoring_id, q.description, q.type, q.correct_option,
		        eq.evaluation_id, eq.sort_order, eq.points
		 FROM evaluation_questions eq JOIN questions q ON q.id = eq.question_id
		 WHERE eq.evaluation_id = ?
		 ORDER BY eq.sort_order, q.id`, evaluationID,
	)
	if err != nil {
		return nil, err
	}
	var questions []model.Question
	for rows.Next() {
		var q model.Question
		var evalID int64
		if err := rows.Scan(&q.ID, &q.TutoringID, &q.Description, &q.Type, &q.CorrectOption,
			&evalID, &q.Order, &q.Points); err != nil {
			rows.Close()
			return nil, err
		}
		q.EvaluationID = &evalID
		questions = append(questions, q)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !withOptions || len(questions) == 0 {
		return questions, nil
	}

	optRows, err := s.db.Query(
		`SELECT o.question_id, o.letter_index, o.text FROM options o
		 JOIN evaluation_questions eq ON eq.question_id = o.question_id
		 WHERE eq.evaluation_id = ?
		 ORDER BY o.question_id, o.letter_index`, evaluationID,
	)
	if err != nil {
		return nil, err
	}
	defer optRows.Close()
	byQuestion := make(map[int64][]model.Option)
	for optRows.Next() {
		var o model.Option
		if err := optRows.Scan(&o.QuestionID, &o.Index, &o.Text); err != nil {
			return nil, err
		}
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}
	if err := optRows.Err(); err != nil {
		return nil, err
	}
	for i := range questions {
		questions[i].Options = byQuestion[questions[i].ID]
		if questions[i].Options == nil {
			questions[i].Options = []model.Option{}
		}
	}
	return questions, nil
}

// UpdateQuestion changes a question's description, type and correct option.
// With replaceOptions set, opts replace all options. A non-nil att updates the
// order and points of an existing attachment.
func (s *Store) UpdateQuestion(q model.Question, opts []model.Option, replaceOptions bool, att *model.Attachment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = checkAffected(tx.Exec(
		`UPDATE questions SET description = ?, type = ?, correct_option = ? WHERE id = ?`,
		q.Description, q.Type, q.CorrectOption, q.ID,
	))
	if err != nil {
		return err
	}

	if replaceOptions {
		if _, err := tx.Exec(`DELETE FROM options WHERE question_id = ?`, q.ID); err != nil {
			return err
		}
		if err := insertOptions(tx, q.ID, opts); err != nil {
			return err
		}
	}

	if att != nil {
		err := checkAffected(tx.Exec(
			`UPDATE evaluation_questions SET sort_order = ?, points = ? WHERE evaluation_id = ? AND question_id = ?`,
			att.Order, att.Points, att.EvaluationID, q.ID,
		))
		if err == sql.ErrNoRows {
			return fmt.Errorf("question %d is not in evaluation %d: %w", q.ID, att.EvaluationID, ErrInvalidReference)
		}
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// DeleteQuestion removes a question, its options, its attachments and the
// answers given to it. Submissions of the evaluations it was attached to lose
// its points from the maximum and have their score re-summed.
func (s *Store) DeleteQuestion(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT 1 FROM questions WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE submissions SET max_score = max_score - (
			SELECT points FROM evaluation_questions
			WHERE evaluation_id = submissions.evaluation_id AND question_id = ?
		 ) WHERE evaluation_id IN (SELECT evaluation_id FROM evaluation_questions WHERE question_id = ?)`,
		id, id,
	)
	if err != nil {
		return fmt.Errorf("adjust max score: %w", err)
	}

	var submissionIDs []int64
	rows, err := tx.Query(`SELECT submission_id FROM submission_answers WHERE question_id = ?`, id)
	if err != nil {
		return err
	}
	for rows.Next() {
		var sid int64
		if err := rows.Scan(&sid); err != nil {
			rows.Close()
			return err
		}
		submissionIDs = append(submissionIDs, sid)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM submission_answers WHERE question_id = ?`, id); err != nil {
		return err
	}
	for _, sid := range submissionIDs {
		_, err := tx.Exec(
			`UPDATE submissions SET score = (
				SELECT COALESCE(SUM(points), 0) FROM submission_answers WHERE submission_id = ?
			 ) WHERE id = ?`,
			sid, sid,
		)
		if err != nil {
			return fmt.Errorf("re-sum submission %d: %w", sid, err)
		}
	}

	if err := checkAffected(tx.Exec(`DELETE FROM questions WHERE id = ?`, id)); err != nil {
		return err
	}
	return tx.Commit()
}

// AttachQuestion reuses a bank question in another evaluation of the same
// tutoring session with its own order and points.
func (s *Store) AttachQuestion(att model.Attachment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var tutoringID int64
	err = tx.QueryRow(`SELECT tutoring_id FROM questions WHERE id = ?`, att.QuestionID).Scan(&tutoringID)
	if err != nil {
		return err
	}
	if err := attach(tx, tutoringID, att); err != nil {
		return err
	}
	return tx.Commit()
}

func attach(tx *sql.Tx, questionTutoringID int64, att model.Attachment) error {
	evalTutoringID, err := evaluationTutoring(tx, att.EvaluationID)
	if err != nil {
		return err
	}
	if evalTutoringID != questionTutoringID {
		return fmt.Errorf("evaluation %d belongs to another tutoring session: %w", att.EvaluationID, ErrInvalidReference)
	}
	_, err = tx.Exec(
		`INSERT INTO evaluation_questions (evaluation_id, question_id, sort_order, points) VALUES (?, ?, ?, ?)`,
		att.EvaluationID, att.QuestionID, att.Order, att.Points,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("question %d already in evaluation %d: %w", att.QuestionID, att.EvaluationID, ErrConflict)
	}
	return err
}

func insertOptions(tx *sql.Tx, questionID int64, opts []model.Option) error {
	for i, o := range opts {
		_, err := tx.Exec(
			`INSERT INTO options (question_id, letter_index, text) VALUES (?, ?, ?)`,
			questionID, i+1, o.Text,
		)
		if err != nil {
			return err
		}
	}
	return nil
}
