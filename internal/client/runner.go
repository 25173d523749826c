package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/skilllink/skilllink/internal/model"
)

// Phase is where a quiz attempt stands.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseAnswering
	PhaseSubmitted
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseAnswering:
		return "answering"
	case PhaseSubmitted:
		return "submitted"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

var (
	ErrNoAnswers       = errors.New("no questions answered")
	ErrCancelled       = errors.New("submission cancelled")
	ErrWrongPhase      = errors.New("action not allowed in this phase")
	ErrUnknownQuestion = errors.New("question is not part of the evaluation")
)

// Runner drives one student's attempt at an evaluation: load it, collect
// answers, submit once.
type Runner struct {
	client       *Client
	evaluationID int64
	enrollmentID int64

	// OnPhase, when set, is called after every phase transition.
	OnPhase func(Phase)

	mu         sync.Mutex
	phase      Phase
	evaluation model.Evaluation
	questions  []model.Question
	answers    map[int64]model.Answer
	result     *SubmitResult
}

// NewRunner prepares an attempt at evaluationID under enrollmentID.
func NewRunner(c *Client, evaluationID, enrollmentID int64) *Runner {
	return &Runner{
		client:       c,
		evaluationID: evaluationID,
		enrollmentID: enrollmentID,
		answers:      make(map[int64]model.Answer),
	}
}

func (r *Runner) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	cb := r.OnPhase
	r.mu.Unlock()
	if cb != nil {
		cb(p)
	}
}

func (r *Runner) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Load fetches the evaluation, then its questions with their options.
func (r *Runner) Load(ctx context.Context) error {
	r.setPhase(PhaseLoading)
	eval, err := r.client.GetEvaluation(ctx, r.evaluationID)
	if err != nil {
		return fmt.Errorf("load evaluation %d: %w", r.evaluationID, err)
	}
	questions, err := r.client.EvaluationQuestions(ctx, r.evaluationID)
	if err != nil {
		return fmt.Errorf("load questions of evaluation %d: %w", r.evaluationID, err)
	}

	r.mu.Lock()
	r.evaluation = eval
	r.questions = questions
	r.answers = make(map[int64]model.Answer)
	r.result = nil
	r.mu.Unlock()

	r.setPhase(PhaseAnswering)
	return nil
}

func (r *Runner) Evaluation() model.Evaluation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evaluation
}

// Questions returns the loaded questions in evaluation order.
func (r *Runner) Questions() []model.Question {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Question(nil), r.questions...)
}

// question must be called with r.mu held.
func (r *Runner) question(id int64) (model.Question, error) {
	if r.phase != PhaseAnswering {
		return model.Question{}, fmt.Errorf("%w: %s", ErrWrongPhase, r.phase)
	}
	for _, q := range r.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return model.Question{}, fmt.Errorf("%w: %d", ErrUnknownQuestion, id)
}

// Select picks option index for a choice question, replacing any earlier pick.
func (r *Runner) Select(questionID int64, index int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, err := r.question(questionID)
	if err != nil {
		return err
	}
	if !q.Type.HasOptions() {
		return fmt.Errorf("question %d takes a written answer", questionID)
	}
	if len(q.Options) > 0 && (index < 1 || index > len(q.Options)) {
		return fmt.Errorf("option %d out of range 1..%d", index, len(q.Options))
	}
	r.answers[questionID] = model.Answer{QuestionID: questionID, SelectedOption: &index}
	return nil
}

// Answer records a written answer. Blank text clears it.
func (r *Runner) Answer(questionID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	q, err := r.question(questionID)
	if err != nil {
		return err
	}
	if q.Type.HasOptions() {
		return fmt.Errorf("question %d is answered by picking an option", questionID)
	}
	if strings.TrimSpace(text) == "" {
		delete(r.answers, questionID)
		return nil
	}
	r.answers[questionID] = model.Answer{QuestionID: questionID, Text: text}
	return nil
}

// Answered reports how many questions have an answer.
func (r *Runner) Answered() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.answers)
}

// Submit sends the answered questions. confirm is asked first with the
// answered and total counts; returning false cancels without a request.
func (r *Runner) Submit(ctx context.Context, confirm func(answered, total int) bool) (SubmitResult, error) {
	r.mu.Lock()
	if r.phase != PhaseAnswering {
		r.mu.Unlock()
		return SubmitResult{}, fmt.Errorf("%w: %s", ErrWrongPhase, r.phase)
	}
	if len(r.answers) == 0 {
		r.mu.Unlock()
		return SubmitResult{}, ErrNoAnswers
	}
	answers := make([]model.Answer, 0, len(r.answers))
	for _, q := range r.questions {
		if a, ok := r.answers[q.ID]; ok {
			answers = append(answers, a)
		}
	}
	total := len(r.questions)
	r.mu.Unlock()

	if confirm != nil && !confirm(len(answers), total) {
		return SubmitResult{}, ErrCancelled
	}

	res, err := r.client.Submit(ctx, r.evaluationID, r.enrollmentID, answers)
	if err != nil {
		return SubmitResult{}, err
	}
	r.mu.Lock()
	r.result = &res
	r.mu.Unlock()
	r.setPhase(PhaseSubmitted)
	return res, nil
}

// Result returns the graded submission, or nil before Submit succeeds.
func (r *Runner) Result() *SubmitResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}
