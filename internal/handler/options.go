package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skilllink/skilllink/internal/model"
	"github.com/skilllink/skilllink/internal/policy"
)

// questionAccess loads a question and the caller's capabilities on its tutoring session.
func (h *Handler) questionAccess(r *http.Request, questionID int64) (model.Question, policy.Capabilities, error) {
	q, err := h.store.GetQuestion(questionID)
	if err != nil {
		return q, policy.Capabilities{}, err
	}
	caps, _, err := h.access(r, q.TutoringID)
	return q, caps, err
}

func optionParams(r *http.Request) (int64, int, error) {
	questionID, err := idParam(r, "numero_preg")
	if err != nil {
		return 0, 0, err
	}
	index, err := strconv.Atoi(chi.URLParam(r, "inciso"))
	if err != nil || index < 1 {
		return 0, 0, errBadRequest
	}
	return questionID, index, nil
}

func (h *Handler) handleListOptions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, caps, err := h.questionAccess(r, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ViewTutoring {
		h.fail(w, r, errForbidden)
		return
	}
	opts, err := h.store.ListOptions(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (h *Handler) handleDebugOptions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, caps, err := h.questionAccess(r, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageOptions {
		h.fail(w, r, errForbidden)
		return
	}
	view, err := h.store.GetOptionDebugView(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type createOptionRequest struct {
	QuestionID int64  `json:"numero_preg" validate:"required"`
	Text       string `json:"texto"`
}

func (h *Handler) handleCreateOption(w http.ResponseWriter, r *http.Request) {
	var req createOptionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	q, caps, err := h.questionAccess(r, req.QuestionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageOptions {
		h.fail(w, r, errForbidden)
		return
	}
	if !q.Type.HasOptions() {
		h.fail(w, r, errChoiceOnly)
		return
	}
	opt, err := h.store.AddOption(q.ID, req.Text)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, opt)
}

func (h *Handler) handleUpdateOption(w http.ResponseWriter, r *http.Request) {
	questionID, index, err := optionParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req struct {
		Text string `json:"texto"`
	}
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	_, caps, err := h.questionAccess(r, questionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageOptions {
		h.fail(w, r, errForbidden)
		return
	}
	if err := h.store.UpdateOption(questionID, index, req.Text); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.Option{Index: index, QuestionID: questionID, Text: req.Text})
}

func (h *Handler) handleDeleteOption(w http.ResponseWriter, r *http.Request) {
	questionID, index, err := optionParams(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_, caps, err := h.questionAccess(r, questionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageOptions {
		h.fail(w, r, errForbidden)
		return
	}
	if err := h.store.DeleteOption(questionID, index); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, r, "OptionDeleted")
}
