package store

import (
	"fmt"
	"time"

	"github.com/skilllink/skilllink/internal/model"
)

// CreateSubmission stores a graded submission with its answers.
func (s *Store) CreateSubmission(sub model.Submission) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if sub.SubmittedAt.IsZero() {
		sub.SubmittedAt = time.Now()
	}
	res, err := tx.Exec(
		`INSERT INTO submissions (evaluation_id, enrollment_id, score, max_score, submitted_at) VALUES (?, ?, ?, ?, ?)`,
		sub.EvaluationID, sub.EnrollmentID, sub.Score, sub.MaxScore, sub.SubmittedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("evaluation or enrollment: %w", ErrInvalidReference)
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	for _, a := range sub.Answers {
		_, err := tx.Exec(
			`INSERT INTO submission_answers (submission_id, question_id, selected_option, answer_text, points, feedback, pending)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			id, a.QuestionID, a.SelectedOption, a.Text, a.Points, a.Feedback, a.Pending,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return 0, fmt.Errorf("question %d answered twice: %w", a.QuestionID, ErrConflict)
			}
			if isForeignKeyViolation(err) {
				return 0, fmt.Errorf("question %d: %w", a.QuestionID, ErrInvalidReference)
			}
			return 0, err
		}
	}

	return id, tx.Commit()
}

// GetSubmission returns a submission with its answers.
func (s *Store) GetSubmission(id int64) (model.Submission, error) {
	var sub model.Submission
	err := s.db.QueryRow(
		`SELECT id, evaluation_id, enrollment_id, score, max_score, submitted_at FROM submissions WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.EvaluationID, &sub.EnrollmentID, &sub.Score, &sub.MaxScore, &sub.SubmittedAt)
	if err != nil {
		return sub, err
	}
	answers, err := s.queryAnswers(`WHERE submission_id = ?`, id)
	if err != nil {
		return sub, err
	}
	sub.Answers = answers[id]
	return sub, nil
}

// ListSubmissions returns every submission of an evaluation, oldest first, with answers.
func (s *Store) ListSubmissions(evaluationID int64) ([]model.Submission, error) {
	return s.listSubmissions(`WHERE evaluation_id = ?`, evaluationID)
}

// ListStudentSubmissions returns a student's submissions across all their
// enrollments, oldest first, with answers.
func (s *Store) ListStudentSubmissions(studentID int64) ([]model.Submission, error) {
	return s.listSubmissions(
		`WHERE enrollment_id IN (SELECT id FROM enrollments WHERE student_id = ?)`, studentID,
	)
}

func (s *Store) listSubmissions(where string, args ...any) ([]model.Submission, error) {
	rows, err := s.db.Query(
		`SELECT id, evaluation_id, enrollment_id, score, max_score, submitted_at FROM submissions `+
			where+` ORDER BY id`, args...,
	)
	if err != nil {
		return nil, err
	}
	var subs []model.Submission
	for rows.Next() {
		var sub model.Submission
		if err := rows.Scan(&sub.ID, &sub.EvaluationID, &sub.EnrollmentID, &sub.Score, &sub.MaxScore, &sub.SubmittedAt); err != nil {
			rows.Close()
			return nil, err
		}
		subs = append(subs, sub)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	answers, err := s.queryAnswers(`WHERE submission_id IN (SELECT id FROM submissions `+where+`)`, args...)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		subs[i].Answers = answers[subs[i].ID]
	}
	return subs, nil
}

func (s *Store) queryAnswers(where string, args ...any) (map[int64][]model.Answer, error) {
	rows, err := s.db.Query(
		`SELECT submission_id, question_id, selected_option, answer_text, points, feedback, pending
		 FROM submission_answers `+where+` ORDER BY submission_id, question_id`, args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]model.Answer)
	for rows.Next() {
		var subID int64
		var a model.Answer
		if err := rows.Scan(&subID, &a.QuestionID, &a.SelectedOption, &a.Text, &a.Points, &a.Feedback, &a.Pending); err != nil {
			return nil, err
		}
		out[subID] = append(out[subID], a)
	}
	return out, rows.Err()
}

// GradeAnswer sets the points and feedback of one answer, clears its pending
// flag and recomputes the submission's final score.
func (s *Store) GradeAnswer(submissionID, questionID int64, points float64, feedback string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	err = checkAffected(tx.Exec(
		`UPDATE submission_answers SET points = ?, feedback = ?, pending = 0
		 WHERE submission_id = ? AND question_id = ?`,
		points, feedback, submissionID, questionID,
	))
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE submissions SET score = (
			SELECT COALESCE(SUM(points), 0) FROM submission_answers WHERE submission_id = ?
		 ) WHERE id = ?`,
		submissionID, submissionID,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// SubmissionEnrollment returns the enrollment a submission was made under.
func (s *Store) SubmissionEnrollment(submissionID int64) (model.Enrollment, error) {
	var enrollmentID int64
	err := s.db.QueryRow(`SELECT enrollment_id FROM submissions WHERE id = ?`, submissionID).Scan(&enrollmentID)
	if err != nil {
		return model.Enrollment{}, err
	}
	return s.GetEnrollment(enrollmentID)
}
