package handler

import (
	"fmt"
	"net/http"

	"github.com/skilllink/skilllink/internal/editor"
	"github.com/skilllink/skilllink/internal/model"
)

type optionInput struct {
	Text string `json:"texto"`
}

type questionRequest struct {
	TutoringID   int64              `json:"id_tutoria"`
	Description  string             `json:"descripcion" validate:"required"`
	Type         model.QuestionType `json:"tipo" validate:"required,oneof=opcion_multiple verdadero_falso respuesta_libre"`
	Correct      editor.OptionRef   `json:"inciso_correcto"`
	Options      []optionInput      `json:"opciones" validate:"omitempty,dive"`
	EvaluationID *int64             `json:"id_evaluacion"`
	Order        *int               `json:"numero_orden" validate:"omitempty,min=0"`
	Points       *float64           `json:"nota_pregunta" validate:"omitempty,min=0"`
}

func (req questionRequest) optionTexts() []string {
	if req.Options == nil {
		return nil
	}
	texts := make([]string, len(req.Options))
	for i, o := range req.Options {
		texts[i] = o.Text
	}
	return texts
}

type reuseRequest struct {
	QuestionID   int64    `json:"numero_preg_original" validate:"required"`
	EvaluationID int64    `json:"id_evaluacion_destino" validate:"required"`
	Order        int      `json:"numero_orden" validate:"min=0"`
	Points       *float64 `json:"nota_pregunta" validate:"omitempty,min=0"`
}

const defaultPoints = 1.0

// questionDetail is a question with its options; opciones is always present.
type questionDetail struct {
	model.Question
	Options []model.Option `json:"opciones"`
}

func detail(q model.Question) questionDetail {
	opts := q.Options
	if opts == nil {
		opts = []model.Option{}
	}
	return questionDetail{Question: q, Options: opts}
}

func details(qs []model.Question) []questionDetail {
	out := make([]questionDetail, len(qs))
	for i, q := range qs {
		out[i] = detail(q)
	}
	return out
}

// hideAnswers strips the correct option from questions shown to a quiz taker.
func hideAnswers(qs []model.Question) {
	for i := range qs {
		qs[i].CorrectOption = nil
	}
}

func (h *Handler) handleListEvaluationQuestions(w http.ResponseWriter, r *http.Request) {
	evalID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	eval, err := h.store.GetEvaluation(evalID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	caps, _, err := h.access(r, eval.TutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ViewTutoring {
		h.fail(w, r, errForbidden)
		return
	}
	questions, err := h.store.ListEvaluationQuestions(evalID, true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageQuestions {
		hideAnswers(questions)
	}
	writeJSON(w, http.StatusOK, details(questions))
}

func (h *Handler) handleListQuestionBank(w http.ResponseWriter, r *http.Request) {
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
	if !caps.ManageQuestions {
		h.fail(w, r, errForbidden)
		return
	}
	bank, err := h.store.ListQuestionBank(tutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(bank))
}

func (h *Handler) handleGetQuestionComplete(w http.ResponseWriter, r *http.Request) {
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
	q, err := h.store.GetQuestionComplete(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageQuestions {
		q.CorrectOption = nil
	}
	writeJSON(w, http.StatusOK, detail(q))
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	var att *model.Attachment
	if req.EvaluationID != nil {
		eval, err := h.store.GetEvaluation(*req.EvaluationID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if req.TutoringID == 0 {
			req.TutoringID = eval.TutoringID
		}
		att = &model.Attachment{EvaluationID: eval.ID, Order: eval.QuestionCount + 1, Points: defaultPoints}
		if req.Order != nil && *req.Order > 0 {
			att.Order = *req.Order
		}
		if req.Points != nil {
			att.Points = *req.Points
		}
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
	if !caps.ManageQuestions {
		h.fail(w, r, errForbidden)
		return
	}

	form := editor.NewForm(req.Type)
	form.Description = req.Description
	if texts := req.optionTexts(); len(texts) > 0 && req.Type != model.TypeTrueFalse {
		form.Options = texts
	}
	if err := form.SetCorrect(req.Correct.Value); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := form.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	id, err := h.store.CreateQuestion(model.Question{
		TutoringID:    req.TutoringID,
		Description:   form.Description,
		Type:          form.Type,
		CorrectOption: form.Correct,
	}, form.ModelOptions(0), att)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	q, err := h.store.GetQuestionComplete(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if att != nil {
		q.EvaluationID, q.Order, q.Points = &att.EvaluationID, att.Order, att.Points
	}
	writeJSON(w, http.StatusCreated, detail(q))
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req questionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	existing, err := h.store.GetQuestionComplete(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	caps, _, err := h.access(r, existing.TutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageQuestions {
		h.fail(w, r, errForbidden)
		return
	}

	form := editor.FormFromQuestion(existing)
	// Stored choice questions without options get their defaults written back.
	replaceOptions := len(existing.Options) != len(form.Options)
	if req.Type != existing.Type {
		if err := form.SetType(req.Type); err != nil {
			h.fail(w, r, err)
			return
		}
		replaceOptions = true
	}
	if texts := req.optionTexts(); texts != nil && form.Type != model.TypeTrueFalse {
		form.Options = texts
		replaceOptions = true
		if form.Correct != nil && *form.Correct > len(texts) {
			form.Correct = nil
		}
	}
	if req.Correct.Set {
		if err := form.SetCorrect(req.Correct.Value); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	form.Description = req.Description
	if err := form.Validate(); err != nil {
		h.fail(w, r, err)
		return
	}

	var att *model.Attachment
	if req.EvaluationID != nil {
		if att, err = h.currentAttachment(*req.EvaluationID, id); err != nil {
			h.fail(w, r, err)
			return
		}
		if req.Order != nil {
			att.Order = *req.Order
		}
		if req.Points != nil {
			att.Points = *req.Points
		}
	}

	q := model.Question{
		ID:            id,
		TutoringID:    existing.TutoringID,
		Description:   form.Description,
		Type:          form.Type,
		CorrectOption: form.Correct,
	}
	if err := h.store.UpdateQuestion(q, form.ModelOptions(id), replaceOptions, att); err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.store.GetQuestionComplete(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if att != nil {
		updated.EvaluationID, updated.Order, updated.Points = &att.EvaluationID, att.Order, att.Points
	}
	writeJSON(w, http.StatusOK, detail(updated))
}

// currentAttachment returns how question sits in evaluation today.
func (h *Handler) currentAttachment(evaluationID, questionID int64) (*model.Attachment, error) {
	questions, err := h.store.ListEvaluationQuestions(evaluationID, false)
	if err != nil {
		return nil, err
	}
	for _, q := range questions {
		if q.ID == questionID {
			return &model.Attachment{EvaluationID: evaluationID, QuestionID: questionID, Order: q.Order, Points: q.Points}, nil
		}
	}
	return nil, fmt.Errorf("question %d is not in evaluation %d: %w", questionID, evaluationID, errBadRequest)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
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
	if !caps.ManageQuestions {
		h.fail(w, r, errForbidden)
		return
	}
	if err := h.store.DeleteQuestion(id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, r, "QuestionDeleted")
}

func (h *Handler) handleReuseQuestion(w http.ResponseWriter, r *http.Request) {
	var req reuseRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	_, caps, err := h.questionAccess(r, req.QuestionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageQuestions {
		h.fail(w, r, errForbidden)
		return
	}

	att := model.Attachment{EvaluationID: req.EvaluationID, QuestionID: req.QuestionID, Order: req.Order, Points: defaultPoints}
	if req.Points != nil {
		att.Points = *req.Points
	}
	if err := h.store.AttachQuestion(att); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, att)
}
