package store

import (
	"fmt"

	"github.com/skilllink/skilllink/internal/model"
)

// ExportEvaluation builds export-ready results for every submission of an evaluation.
func (s *Store) ExportEvaluation(evaluationID int64) (model.EvaluationExport, error) {
	eval, err := s.GetEvaluation(evaluationID)
	if err != nil {
		return model.EvaluationExport{}, fmt.Errorf("get evaluation %d: %w", evaluationID, err)
	}
	questions, err := s.ListEvaluationQuestions(evaluationID, true)
	if err != nil {
		return model.EvaluationExport{}, fmt.Errorf("list questions: %w", err)
	}
	subs, err := s.ListSubmissions(evaluationID)
	if err != nil {
		return model.EvaluationExport{}, fmt.Errorf("list submissions: %w", err)
	}

	// Track attempt count per student for the attempt number.
	attempts := make(map[int64]int)

	results := []model.StudentResult{}
	for _, sub := range subs {
		enr, err := s.GetEnrollment(sub.EnrollmentID)
		if err != nil {
			return model.EvaluationExport{}, fmt.Errorf("get enrollment %d: %w", sub.EnrollmentID, err)
		}
		attempts[enr.StudentID]++

		user, err := s.GetUserByID(enr.StudentID)
		if err != nil {
			return model.EvaluationExport{}, fmt.Errorf("get user %d: %w", enr.StudentID, err)
		}
		var username string
		if user != nil {
			username = user.Username
		}

		results = append(results, model.StudentResult{
			StudentID:   enr.StudentID,
			Username:    username,
			Attempt:     attempts[enr.StudentID],
			SubmittedAt: sub.SubmittedAt,
			Score:       sub.Score,
			MaxScore:    sub.MaxScore,
			Answers:     sub.Answers,
		})
	}

	return model.EvaluationExport{Evaluation: eval, Questions: questions, Results: results}, nil
}
