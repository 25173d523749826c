package client

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/skilllink/skilllink/internal/model"
)

// Stage names one step of the student overview pipeline.
type Stage string

const (
	StageProfile     Stage = "profile"
	StageEnrollments Stage = "enrollments"
	StageEvaluations Stage = "evaluations"
	StageGrades      Stage = "grades"
)

// StageError attributes a failure to the pipeline stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Overview is what a student sees on their dashboard.
type Overview struct {
	User        model.User
	Enrollments []model.Enrollment
	// Evaluations is keyed by tutoring id.
	Evaluations map[int64][]model.Evaluation
	Submissions []model.Submission
}

// Pending returns the evaluations with no submission yet.
func (o Overview) Pending() []model.Evaluation {
	done := make(map[int64]bool, len(o.Submissions))
	for _, s := range o.Submissions {
		done[s.EvaluationID] = true
	}
	var out []model.Evaluation
	for _, e := range o.Enrollments {
		for _, ev := range o.Evaluations[e.TutoringID] {
			if !done[ev.ID] {
				out = append(out, ev)
			}
		}
	}
	return out
}

// LoadOverview runs profile, enrollments, evaluations and grades in order.
// Evaluations of different tutoring sessions are fetched concurrently. The
// first failure stops the pipeline and comes back as a *StageError.
func (c *Client) LoadOverview(ctx context.Context) (Overview, error) {
	var o Overview
	var err error

	if o.User, err = c.Me(ctx); err != nil {
		return o, &StageError{Stage: StageProfile, Err: err}
	}
	if o.Enrollments, err = c.MyEnrollments(ctx); err != nil {
		return o, &StageError{Stage: StageEnrollments, Err: err}
	}

	o.Evaluations = make(map[int64][]model.Evaluation, len(o.Enrollments))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, e := range o.Enrollments {
		tutoringID := e.TutoringID
		g.Go(func() error {
			evals, err := c.ListEvaluations(gctx, tutoringID)
			if err != nil {
				return fmt.Errorf("tutoring %d: %w", tutoringID, err)
			}
			mu.Lock()
			o.Evaluations[tutoringID] = evals
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return o, &StageError{Stage: StageEvaluations, Err: err}
	}

	if o.Submissions, err = c.MySubmissions(ctx); err != nil {
		return o, &StageError{Stage: StageGrades, Err: err}
	}
	return o, nil
}
