package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"

	"github.com/skilllink/skilllink/internal/grading"
	appI18n "github.com/skilllink/skilllink/internal/i18n"
	"github.com/skilllink/skilllink/internal/model"
	"github.com/skilllink/skilllink/internal/policy"
	"github.com/skilllink/skilllink/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store    *store.Store
	grader   *grading.Grader
	config   model.ServerConfig
	validate *validator.Validate
}

// New creates a new Handler.
func New(s *store.Store, g *grading.Grader, cfg model.ServerConfig) (*Handler, error) {
	if len(cfg.JWTSecret) == 0 {
		return nil, errors.New("jwt secret is required")
	}
	if g == nil {
		g = grading.New(nil, cfg.GradingWorkers)
	}
	return &Handler{store: s, grader: g, config: cfg, validate: newValidator()}, nil
}

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Router builds the complete HTTP handler with CORS, localization and the API routes.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "Accept-Language"},
		MaxAge:         300,
	}))
	r.Use(appI18n.Middleware)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "ErrNotFound")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "ErrBadRequest")
	})
	h.Routes(r)
	return r
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(h.requireAuth)

		r.Post("/auth/logout", h.handleLogout)
		r.Get("/auth/me", h.handleMe)

		r.With(requireRole(model.RoleAdmin)).Get("/usuarios", h.handleListUsers)
		r.With(requireRole(model.RoleAdmin)).Post("/usuarios", h.handleCreateUser)
		r.With(requireRole(model.RoleAdmin)).Put("/usuarios/{id}/activo", h.handleSetUserActive)

		r.Get("/instituciones", h.handleListInstitutions)
		r.With(requireRole(model.RoleAdmin)).Post("/instituciones", h.handleCreateInstitution)

		r.Get("/tutorias", h.handleListTutorings)
		r.Post("/tutorias", h.handleCreateTutoring)
		r.Get("/tutorias/{id}", h.handleGetTutoring)
		r.Get("/tutorias/{id}/inscripciones", h.handleListEnrollments)
		r.Post("/tutorias/{id}/inscripciones", h.handleEnroll)
		r.Get("/inscripciones/mias", h.handleMyEnrollments)
		r.Get("/tutorias/{id}/horarios", h.handleListSchedules)
		r.Post("/tutorias/{id}/horarios", h.handleCreateSchedule)
		r.Delete("/horarios/{id}", h.handleDeleteSchedule)
		r.Get("/aulas/disponibilidad", h.handleRoomAvailability)

		r.Get("/opciones/pregunta/{id}", h.handleListOptions)
		if h.config.DebugRoutes {
			r.Get("/opciones/debug/pregunta/{id}", h.handleDebugOptions)
		}
		r.Post("/opciones", h.handleCreateOption)
		r.Put("/opciones/{numero_preg}/{inciso}", h.handleUpdateOption)
		r.Delete("/opciones/{numero_preg}/{inciso}", h.handleDeleteOption)

		r.Get("/preguntas/evaluacion/{id}", h.handleListEvaluationQuestions)
		r.Get("/preguntas/tutoria/{id}", h.handleListQuestionBank)
		r.Get("/preguntas/{id}/completo", h.handleGetQuestionComplete)
		r.Post("/preguntas", h.handleCreateQuestion)
		r.Post("/preguntas/reutilizar", h.handleReuseQuestion)
		r.Put("/preguntas/{id}", h.handleUpdateQuestion)
		r.Delete("/preguntas/{id}", h.handleDeleteQuestion)

		r.Get("/evaluaciones/tutoria/{id}", h.handleListEvaluations)
		r.Get("/evaluaciones/{id}", h.handleGetEvaluation)
		r.Post("/evaluaciones", h.handleCreateEvaluation)
		r.Put("/evaluaciones/{id}", h.handleUpdateEvaluation)
		r.Delete("/evaluaciones/{id}", h.handleDeleteEvaluation)
		r.Post("/evaluaciones/{id}/responder", h.handleSubmit)
		r.Get("/evaluaciones/{id}/entregas", h.handleListSubmissions)
		r.Get("/entregas/mias", h.handleMySubmissions)
		r.Put("/entregas/{id}/respuestas/{numero_preg}", h.handleGradeAnswer)
	})
}

// access returns the caller's capabilities on a tutoring session.
func (h *Handler) access(r *http.Request, tutoringID int64) (policy.Capabilities, model.Tutoring, error) {
	t, err := h.store.GetTutoring(tutoringID)
	if err != nil {
		return policy.Capabilities{}, t, err
	}
	u := model.UserFromContext(r.Context())
	enrolled := false
	if u != nil && u.RoleID == model.RoleStudent {
		if enrolled, err = h.store.IsEnrolled(t.ID, u.ID); err != nil {
			return policy.Capabilities{}, t, err
		}
	}
	return policy.For(u, t, enrolled), t, nil
}

// decode reads a JSON body into v and validates it.
func (h *Handler) decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	return h.validate.Struct(v)
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeMessage(w http.ResponseWriter, r *http.Request, msgID string) {
	writeJSON(w, http.StatusOK, map[string]string{"mensaje": appI18n.T(r.Context(), msgID)})
}

// nonNil keeps empty lists encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
