package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/skilllink/skilllink/internal/model"
)

type answerInput struct {
	QuestionID     int64  `json:"numero_preg" validate:"required"`
	SelectedOption *int   `json:"inciso_seleccionado"`
	Text           string `json:"respuesta_texto"`
}

type submitRequest struct {
	EnrollmentID int64         `json:"id_inscripcion" validate:"required"`
	Answers      []answerInput `json:"respuestas" validate:"dive"`
}

type submitResponse struct {
	ID       int64          `json:"id_entrega"`
	Score    float64        `json:"calificacion_final"`
	MaxScore float64        `json:"calificacion_maxima"`
	Answers  []model.Answer `json:"respuestas"`
}

type gradeAnswerRequest struct {
	Points   *float64 `json:"nota" validate:"required,min=0"`
	Feedback string   `json:"comentario"`
}

// handleSubmit grades and stores a student's answers to an evaluation.
func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	evalID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req submitRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if len(req.Answers) == 0 {
		writeError(w, r, http.StatusBadRequest, "ErrNoAnswers")
		return
	}

	eval, caps, err := h.evaluationAccess(r, evalID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.TakeEvaluations {
		h.fail(w, r, errForbidden)
		return
	}

	u := model.UserFromContext(r.Context())
	enr, err := h.store.GetEnrollment(req.EnrollmentID)
	if errors.Is(err, sql.ErrNoRows) {
		h.fail(w, r, errNotEnrolled)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if enr.StudentID != u.ID || enr.TutoringID != eval.TutoringID {
		h.fail(w, r, errNotEnrolled)
		return
	}
	if eval.Deadline != nil && time.Now().After(*eval.Deadline) {
		h.fail(w, r, errDeadlinePassed)
		return
	}

	questions, err := h.store.ListEvaluationQuestions(evalID, false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	answers := make([]model.Answer, len(req.Answers))
	for i, a := range req.Answers {
		answers[i] = model.Answer{QuestionID: a.QuestionID, SelectedOption: a.SelectedOption, Text: a.Text}
	}

	result, err := h.grader.Grade(r.Context(), questions, answers)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.store.CreateSubmission(model.Submission{
		EvaluationID: evalID,
		EnrollmentID: enr.ID,
		Score:        result.Score,
		MaxScore:     result.MaxScore,
		Answers:      result.Answers,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	slog.Info("evaluation submitted",
		"evaluation", evalID, "student", u.Username, "score", result.Score, "max", result.MaxScore)
	writeJSON(w, http.StatusCreated, submitResponse{
		ID:       id,
		Score:    result.Score,
		MaxScore: result.MaxScore,
		Answers:  result.Answers,
	})
}

func (h *Handler) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	evalID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, caps, err := h.evaluationAccess(r, evalID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.Grade {
		h.fail(w, r, errForbidden)
		return
	}
	subs, err := h.store.ListSubmissions(evalID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(subs))
}

func (h *Handler) handleMySubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.store.ListStudentSubmissions(model.UserFromContext(r.Context()).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(subs))
}

// handleGradeAnswer sets the points of one answer by hand and re-sums the submission.
func (h *Handler) handleGradeAnswer(w http.ResponseWriter, r *http.Request) {
	subID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	questionID, err := idParam(r, "numero_preg")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req gradeAnswerRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	sub, err := h.store.GetSubmission(subID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, caps, err := h.evaluationAccess(r, sub.EvaluationID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.Grade {
		h.fail(w, r, errForbidden)
		return
	}

	att, err := h.currentAttachment(sub.EvaluationID, questionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if *req.Points > att.Points {
		h.fail(w, r, fmt.Errorf("%w: %v > %v", errPointsTooHigh, *req.Points, att.Points))
		return
	}

	if err := h.store.GradeAnswer(subID, questionID, *req.Points, req.Feedback); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.store.GetSubmission(subID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
