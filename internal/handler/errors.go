package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/skilllink/skilllink/internal/editor"
	"github.com/skilllink/skilllink/internal/grading"
	appI18n "github.com/skilllink/skilllink/internal/i18n"
	"github.com/skilllink/skilllink/internal/store"
)

var (
	errBadRequest      = errors.New("bad request")
	errUnauthorized    = errors.New("unauthorized")
	errForbidden       = errors.New("forbidden")
	errNotEnrolled     = errors.New("enrollment does not match")
	errDeadlinePassed  = errors.New("deadline passed")
	errInvalidTimes    = errors.New("start must be before end")
	errPointsTooHigh   = errors.New("points exceed question value")
	errChoiceOnly      = errors.New("question type has no options")
	errMissingTutoring = errors.New("tutoring id is required")
)

// fail maps err to a status code and a localized JSON error body.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validator.ValidationErrors
	var unknown *grading.UnknownQuestionError
	switch {
	case errors.As(err, &verrs):
		writeValidationError(w, r, verrs)
	case errors.As(err, &unknown):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": appI18n.Td(r.Context(), "ErrAnswerNotInEvaluation", map[string]any{"ID": unknown.QuestionID}),
		})
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, r, http.StatusNotFound, "ErrNotFound")
	case errors.Is(err, store.ErrConflict):
		writeError(w, r, http.StatusConflict, "ErrConflict")
	case errors.Is(err, store.ErrInvalidReference):
		writeError(w, r, http.StatusBadRequest, "ErrInvalidReference")
	case errors.Is(err, errUnauthorized):
		writeError(w, r, http.StatusUnauthorized, "ErrUnauthorized")
	case errors.Is(err, errForbidden):
		writeError(w, r, http.StatusForbidden, "ErrForbidden")
	case errors.Is(err, errNotEnrolled):
		writeError(w, r, http.StatusForbidden, "ErrNotEnrolled")
	case errors.Is(err, errDeadlinePassed):
		writeError(w, r, http.StatusForbidden, "ErrDeadlinePassed")
	case errors.Is(err, grading.ErrNoAnswers):
		writeError(w, r, http.StatusBadRequest, "ErrNoAnswers")
	case errors.Is(err, editor.ErrUnknownType):
		writeError(w, r, http.StatusBadRequest, "ErrUnknownType")
	case errors.Is(err, editor.ErrCorrectOutOfRange), errors.Is(err, editor.ErrInvalidIndex):
		writeError(w, r, http.StatusBadRequest, "ErrInvalidCorrectOption")
	case errors.Is(err, editor.ErrFreeResponseOption), errors.Is(err, errChoiceOnly):
		writeError(w, r, http.StatusBadRequest, "ErrFreeResponseOptions")
	case errors.Is(err, errInvalidTimes):
		writeError(w, r, http.StatusBadRequest, "ErrInvalidTimeRange")
	case errors.Is(err, errBadRequest), errors.Is(err, grading.ErrDuplicateAnswer),
		errors.Is(err, errPointsTooHigh), errors.Is(err, errMissingTutoring):
		writeError(w, r, http.StatusBadRequest, "ErrBadRequest")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, "ErrInternal")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msgID string) {
	writeJSON(w, status, map[string]string{"error": appI18n.T(r.Context(), msgID)})
}

func writeValidationError(w http.ResponseWriter, r *http.Request, verrs validator.ValidationErrors) {
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(r, fe)
	}
	writeJSON(w, http.StatusBadRequest, map[string]any{
		"error":  appI18n.T(r.Context(), "ErrValidation"),
		"campos": fields,
	})
}

func fieldMessage(r *http.Request, fe validator.FieldError) string {
	data := map[string]any{"Param": fe.Param()}
	switch fe.Tag() {
	case "required", "required_if", "required_without":
		return appI18n.T(r.Context(), "FieldRequired")
	case "min", "gte":
		return appI18n.Td(r.Context(), "FieldMin", data)
	case "max", "lte":
		return appI18n.Td(r.Context(), "FieldMax", data)
	case "oneof":
		return appI18n.Td(r.Context(), "FieldOneOf", data)
	}
	return appI18n.T(r.Context(), "FieldInvalid")
}
