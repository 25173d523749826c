// Package grading scores a submitted answer set against an evaluation's questions.
package grading

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/skilllink/skilllink/internal/model"
)

var (
	ErrNoAnswers       = errors.New("no answers submitted")
	ErrDuplicateAnswer = errors.New("question answered more than once")
)

// UnknownQuestionError reports an answer to a question outside the evaluation.
type UnknownQuestionError struct {
	QuestionID int64
}

func (e *UnknownQuestionError) Error() string {
	return fmt.Sprintf("question %d is not part of the evaluation", e.QuestionID)
}

// FreeResponseGrader scores a free-response answer out of q.Points.
type FreeResponseGrader interface {
	GradeFreeResponse(ctx context.Context, q model.Question, answer string) (float64, string, error)
}

// Result is a graded answer set.
type Result struct {
	Answers  []model.Answer
	Score    float64
	MaxScore float64
}

// Grader scores submissions. Free-response answers go to an optional
// FreeResponseGrader with at most Workers calls in flight.
type Grader struct {
	free    FreeResponseGrader
	workers int
}

// New returns a Grader. free may be nil, in which case free-response answers
// are left pending for manual grading.
func New(free FreeResponseGrader, workers int) *Grader {
	if workers < 1 {
		workers = 1
	}
	return &Grader{free: free, workers: workers}
}

// Grade scores answers against questions. Unanswered questions still count
// toward the maximum score. Answers come back in question order.
func (g *Grader) Grade(ctx context.Context, questions []model.Question, answers []model.Answer) (Result, error) {
	if len(answers) == 0 {
		return Result{}, ErrNoAnswers
	}

	byID := make(map[int64]model.Question, len(questions))
	var res Result
	for _, q := range questions {
		byID[q.ID] = q
		res.MaxScore += q.Points
	}

	given := make(map[int64]model.Answer, len(answers))
	for _, a := range answers {
		if _, ok := byID[a.QuestionID]; !ok {
			return Result{}, &UnknownQuestionError{QuestionID: a.QuestionID}
		}
		if _, dup := given[a.QuestionID]; dup {
			return Result{}, fmt.Errorf("%w: %d", ErrDuplicateAnswer, a.QuestionID)
		}
		given[a.QuestionID] = a
	}

	for _, q := range questions {
		a, ok := given[q.ID]
		if !ok {
			continue
		}
		res.Answers = append(res.Answers, ScoreChoice(q, a))
	}

	if err := g.gradeFree(ctx, byID, res.Answers); err != nil {
		return Result{}, err
	}

	for _, a := range res.Answers {
		res.Score += a.Points
	}
	return res, nil
}

// ScoreChoice scores a multiple-choice or true/false answer: full points when
// the selected option is the correct one, zero otherwise. Free-response
// answers are returned with points cleared and marked pending.
func ScoreChoice(q model.Question, a model.Answer) model.Answer {
	out := model.Answer{QuestionID: q.ID}
	if !q.Type.HasOptions() {
		out.Text = a.Text
		out.Pending = true
		return out
	}
	out.SelectedOption = a.SelectedOption
	if a.SelectedOption != nil && q.CorrectOption != nil && *a.SelectedOption == *q.CorrectOption {
		out.Points = q.Points
	}
	return out
}

// gradeFree fills in pending free-response answers in place. A failed call
// leaves the answer pending; only context cancellation aborts the submission.
func (g *Grader) gradeFree(ctx context.Context, questions map[int64]model.Question, answers []model.Answer) error {
	if g.free == nil {
		return nil
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i := range answers {
		if !answers[i].Pending {
			continue
		}
		a := &answers[i]
		q := questions[a.QuestionID]
		eg.Go(func() error {
			points, feedback, err := g.free.GradeFreeResponse(ctx, q, a.Text)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Warn("free-response grading failed, leaving pending", "question", q.ID, "error", err)
				return nil
			}
			a.Points = points
			a.Feedback = feedback
			a.Pending = false
			return nil
		})
	}
	return eg.Wait()
}
