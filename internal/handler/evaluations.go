package handler

import (
	"net/http"
	"time"

	appI18n "github.com/skilllink/skilllink/internal/i18n"
	"github.com/skilllink/skilllink/internal/model"
	"github.com/skilllink/skilllink/internal/policy"
)

type evaluationRequest struct {
	TutoringID  int64      `json:"id_tutoria"`
	Name        string     `json:"nombre" validate:"required"`
	Description string     `json:"descripcion"`
	Deadline    *time.Time `json:"fecha_limite"`
}

type deleteEvaluationResponse struct {
	Message          string `json:"mensaje"`
	DeletedQuestions int    `json:"preguntas_eliminadas"`
}

// evaluationAccess loads an evaluation and the caller's capabilities on its tutoring session.
func (h *Handler) evaluationAccess(r *http.Request, id int64) (model.Evaluation, policy.Capabilities, error) {
	eval, err := h.store.GetEvaluation(id)
	if err != nil {
		return eval, policy.Capabilities{}, err
	}
	caps, _, err := h.access(r, eval.TutoringID)
	return eval, caps, err
}

func (h *Handler) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	tutoringID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	caps, _, err := h.access(r, tutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ViewTutoring {
		h.fail(w, r, errForbidden)
		return
	}
	list, err := h.store.ListEvaluations(tutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) handleGetEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eval, caps, err := h.evaluationAccess(r, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ViewTutoring {
		h.fail(w, r, errForbidden)
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (h *Handler) handleCreateEvaluation(w http.ResponseWriter, r *http.Request) {
	var req evaluationRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if req.TutoringID == 0 {
		h.fail(w, r, errMissingTutoring)
		return
	}
	caps, _, err := h.access(r, req.TutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageEvaluations {
		h.fail(w, r, errForbidden)
		return
	}

	id, err := h.store.CreateEvaluation(model.Evaluation{
		TutoringID:  req.TutoringID,
		Name:        req.Name,
		Description: req.Description,
		Deadline:    req.Deadline,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eval, err := h.store.GetEvaluation(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, eval)
}

func (h *Handler) handleUpdateEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req evaluationRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	eval, caps, err := h.evaluationAccess(r, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageEvaluations {
		h.fail(w, r, errForbidden)
		return
	}

	eval.Name, eval.Description, eval.Deadline = req.Name, req.Description, req.Deadline
	if err := h.store.UpdateEvaluation(eval); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.store.GetEvaluation(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) handleDeleteEvaluation(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, caps, err := h.evaluationAccess(r, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageEvaluations {
		h.fail(w, r, errForbidden)
		return
	}
	n, err := h.store.DeleteEvaluation(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteEvaluationResponse{
		Message:          appI18n.Tp(r.Context(), "EvaluationDeleted", n),
		DeletedQuestions: n,
	})
}
