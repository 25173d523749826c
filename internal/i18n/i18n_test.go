package i18n

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init("es"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return WithLocalizer(context.Background(), NewLocalizer(lang))
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		lang string
		id   string
		want string
	}{
		{"es", "ErrNotFound", "Recurso no encontrado"},
		{"en", "ErrNotFound", "Resource not found"},
		{"en", "ErrNoAnswers", "At least one question must be answered"},
		{"fr", "ErrForbidden", "No tiene permiso para realizar esta acción"},
	}
	for _, tt := range tests {
		t.Run(tt.lang+"/"+tt.id, func(t *testing.T) {
			ctx := initLang(t, tt.lang)
			if got := T(ctx, tt.id); got != tt.want {
				t.Errorf("T(%s) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "es")

	got1 := Tp(ctx, "EvaluationDeleted", 1)
	if got1 != "Evaluación eliminada junto con 1 pregunta" {
		t.Errorf("Tp(EvaluationDeleted, 1) = %q", got1)
	}

	got3 := Tp(ctx, "EvaluationDeleted", 3)
	if got3 != "Evaluación eliminada junto con 3 preguntas" {
		t.Errorf("Tp(EvaluationDeleted, 3) = %q", got3)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "ErrAnswerNotInEvaluation", map[string]any{"ID": 42})
	if got != "Question 42 is not part of this evaluation" {
		t.Errorf("Td(ErrAnswerNotInEvaluation, ID=42) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestMiddlewareAcceptLanguage(t *testing.T) {
	if err := Init("es"); err != nil {
		t.Fatalf("Init: %v", err)
	}

	var got string
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = T(r.Context(), "ErrUnauthorized")
	}))

	tests := []struct {
		header string
		want   string
	}{
		{"", "No autorizado"},
		{"en-US,en;q=0.9", "Unauthorized"},
		{"de-DE", "No autorizado"},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
