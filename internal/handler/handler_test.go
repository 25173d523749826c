package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	appI18n "github.com/skilllink/skilllink/internal/i18n"
	"github.com/skilllink/skilllink/internal/model"
	"github.com/skilllink/skilllink/internal/store"
)

const testPassword = "secreto123"

type testEnv struct {
	t     *testing.T
	srv   *httptest.Server
	store *store.Store

	institutionID int64
	tutoringID    int64
	enrollmentID  int64
	tokens        map[string]string
	userIDs       map[string]int64
}

func newTestEnv(t *testing.T, debugRoutes bool) *testEnv {
	t.Helper()
	if err := appI18n.Init("es"); err != nil {
		t.Fatalf("i18n.Init: %v", err)
	}
	s, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	h, err := New(s, nil, model.ServerConfig{
		JWTSecret:      []byte("test-secret"),
		SessionTTL:     time.Hour,
		DebugRoutes:    debugRoutes,
		GradingWorkers: 2,
	})
	if err != nil {
		t.Fatalf("handler.New: %v", err)
	}
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)

	env := &testEnv{t: t, srv: srv, store: s, tokens: map[string]string{}, userIDs: map[string]int64{}}

	env.institutionID, _ = s.CreateInstitution("Colegio Central")
	otherInst, _ := s.CreateInstitution("Colegio Norte")

	env.addUser("admin", model.RoleAdmin, nil)
	env.addUser("gerente", model.RoleManager, &env.institutionID)
	env.addUser("gerente_norte", model.RoleManager, &otherInst)
	env.addUser("tutor", model.RoleTutor, nil)
	env.addUser("otro_tutor", model.RoleTutor, nil)
	env.addUser("estudiante", model.RoleStudent, nil)
	env.addUser("intruso", model.RoleStudent, nil)

	env.tutoringID, err = s.CreateTutoring(model.Tutoring{Name: "Algebra", InstitutionID: env.institutionID, TutorID: env.userIDs["tutor"]})
	if err != nil {
		t.Fatalf("CreateTutoring: %v", err)
	}
	if env.enrollmentID, err = s.Enroll(env.tutoringID, env.userIDs["estudiante"]); err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	return env
}

func (e *testEnv) addUser(name string, role model.RoleID, inst *int64) {
	e.t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		e.t.Fatalf("bcrypt: %v", err)
	}
	id, err := e.store.CreateUser(model.User{Username: name, PasswordHash: string(hash), RoleID: role, InstitutionID: inst, Active: true})
	if err != nil {
		e.t.Fatalf("CreateUser(%s): %v", name, err)
	}
	e.userIDs[name] = id
}

// token logs name in once and caches the bearer token.
func (e *testEnv) token(name string) string {
	e.t.Helper()
	if tok, ok := e.tokens[name]; ok {
		return tok
	}
	var resp loginResponse
	status := e.do("", http.MethodPost, "/auth/login", map[string]string{"username": name, "password": testPassword}, &resp)
	if status != http.StatusOK {
		e.t.Fatalf("login %s: status %d", name, status)
	}
	e.tokens[name] = resp.Token
	return resp.Token
}

// do sends a JSON request as user (empty for anonymous) and decodes the response into out.
func (e *testEnv) do(user, method, path string, body, out any) int {
	e.t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	if err != nil {
		e.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(user))
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		e.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		data, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(data, out); err != nil {
			e.t.Fatalf("%s %s: decode %q: %v", method, path, data, err)
		}
	}
	return resp.StatusCode
}

func (e *testEnv) createEvaluation(user string) model.Evaluation {
	e.t.Helper()
	var eval model.Evaluation
	status := e.do(user, http.MethodPost, "/evaluaciones", map[string]any{"id_tutoria": e.tutoringID, "nombre": "Parcial"}, &eval)
	if status != http.StatusCreated {
		e.t.Fatalf("create evaluation: status %d", status)
	}
	return eval
}

func (e *testEnv) createQuestion(body map[string]any) model.Question {
	e.t.Helper()
	var q model.Question
	if status := e.do("tutor", http.MethodPost, "/preguntas", body, &q); status != http.StatusCreated {
		e.t.Fatalf("create question: status %d", status)
	}
	return q
}

func TestAuthLifecycle(t *testing.T) {
	env := newTestEnv(t, false)

	var me model.User
	if status := env.do("tutor", http.MethodGet, "/auth/me", nil, &me); status != http.StatusOK {
		t.Fatalf("me: status %d", status)
	}
	if me.Username != "tutor" || me.RoleID != model.RoleTutor {
		t.Errorf("unexpected user: %+v", me)
	}

	if status := env.do("tutor", http.MethodPost, "/auth/logout", nil, nil); status != http.StatusOK {
		t.Fatalf("logout: status %d", status)
	}
	var body map[string]string
	if status := env.do("tutor", http.MethodGet, "/auth/me", nil, &body); status != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", status)
	}
	if body["error"] != "No autorizado" {
		t.Errorf("unexpected error body: %v", body)
	}

	if status := env.do("", http.MethodGet, "/auth/me", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", status)
	}
	status := env.do("", http.MethodPost, "/auth/login", map[string]string{"username": "tutor", "password": "nope"}, nil)
	if status != http.StatusUnauthorized {
		t.Errorf("expected 401 for wrong password, got %d", status)
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	env := newTestEnv(t, false)

	var body struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"campos"`
	}
	status := env.do("tutor", http.MethodPost, "/preguntas", map[string]any{"id_tutoria": env.tutoringID, "tipo": "ensayo"}, &body)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if body.Fields["descripcion"] != "es obligatorio" {
		t.Errorf("expected descripcion required, got %v", body.Fields)
	}
	if _, ok := body.Fields["tipo"]; !ok {
		t.Errorf("expected tipo error, got %v", body.Fields)
	}
}

func TestManageEvaluationsByRole(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		user string
		want int
	}{
		{"admin", http.StatusCreated},
		{"gerente", http.StatusCreated},
		{"gerente_norte", http.StatusForbidden},
		{"tutor", http.StatusCreated},
		{"otro_tutor", http.StatusForbidden},
		{"estudiante", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			status := env.do(tt.user, http.MethodPost, "/evaluaciones", map[string]any{"id_tutoria": env.tutoringID, "nombre": "E"}, nil)
			if status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
		})
	}
}

func TestCreateQuestionWithDefaultsThenMarkCorrect(t *testing.T) {
	env := newTestEnv(t, false)
	eval := env.createEvaluation("tutor")

	q := env.createQuestion(map[string]any{
		"id_evaluacion": eval.ID,
		"descripcion":   "2+2=?",
		"tipo":          "opcion_multiple",
		"nota_pregunta": 2,
	})
	if len(q.Options) != 4 {
		t.Fatalf("expected 4 default options, got %d", len(q.Options))
	}

	for i, text := range []string{"3", "4", "5", "6"} {
		path := fmt.Sprintf("/opciones/%d/%d", q.ID, i+1)
		if status := env.do("tutor", http.MethodPut, path, map[string]string{"texto": text}, nil); status != http.StatusOK {
			t.Fatalf("update option %d: status %d", i+1, status)
		}
	}

	status := env.do("tutor", http.MethodPut, fmt.Sprintf("/preguntas/%d", q.ID), map[string]any{
		"descripcion":     "2+2=?",
		"tipo":            "opcion_multiple",
		"inciso_correcto": "2",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("update question: status %d", status)
	}

	var complete model.Question
	if status := env.do("tutor", http.MethodGet, fmt.Sprintf("/preguntas/%d/completo", q.ID), nil, &complete); status != http.StatusOK {
		t.Fatalf("complete: status %d", status)
	}
	if len(complete.Options) != 4 {
		t.Errorf("expected 4 options, got %d", len(complete.Options))
	}
	if complete.CorrectOption == nil || *complete.CorrectOption != 2 || complete.Options[1].Text != "4" {
		t.Errorf("expected option 2 (\"4\") correct, got %v / %+v", complete.CorrectOption, complete.Options)
	}
}

func TestChangeTypeToTrueFalse(t *testing.T) {
	env := newTestEnv(t, false)
	q := env.createQuestion(map[string]any{
		"id_tutoria":      env.tutoringID,
		"descripcion":     "El agua hierve a 100C",
		"tipo":            "opcion_multiple",
		"opciones":        []map[string]string{{"texto": "a"}, {"texto": "b"}, {"texto": "c"}},
		"inciso_correcto": 3,
	})

	var updated model.Question
	status := env.do("tutor", http.MethodPut, fmt.Sprintf("/preguntas/%d", q.ID), map[string]any{
		"descripcion": q.Description,
		"tipo":        "verdadero_falso",
	}, &updated)
	if status != http.StatusOK {
		t.Fatalf("update: status %d", status)
	}
	if len(updated.Options) != 2 || updated.Options[0].Text != "Verdadero" || updated.Options[1].Text != "Falso" {
		t.Errorf("expected Verdadero/Falso, got %+v", updated.Options)
	}
	if updated.CorrectOption != nil {
		t.Errorf("expected correct option cleared, got %d", *updated.CorrectOption)
	}
}

func TestDeleteOptionRenumbers(t *testing.T) {
	env := newTestEnv(t, false)
	q := env.createQuestion(map[string]any{
		"id_tutoria":      env.tutoringID,
		"descripcion":     "Capital de Francia",
		"tipo":            "opcion_multiple",
		"opciones":        []map[string]string{{"texto": "Roma"}, {"texto": "Madrid"}, {"texto": "Paris"}},
		"inciso_correcto": 3,
	})

	if status := env.do("tutor", http.MethodDelete, fmt.Sprintf("/opciones/%d/1", q.ID), nil, nil); status != http.StatusOK {
		t.Fatalf("delete option: status %d", status)
	}

	var opts []model.Option
	env.do("tutor", http.MethodGet, fmt.Sprintf("/opciones/pregunta/%d", q.ID), nil, &opts)
	if len(opts) != 2 || opts[0].Index != 1 || opts[0].Text != "Madrid" || opts[1].Index != 2 || opts[1].Text != "Paris" {
		t.Errorf("unexpected options: %+v", opts)
	}

	var complete model.Question
	env.do("tutor", http.MethodGet, fmt.Sprintf("/preguntas/%d/completo", q.ID), nil, &complete)
	if complete.CorrectOption == nil || *complete.CorrectOption != 2 {
		t.Errorf("expected correct option to follow Paris to 2, got %v", complete.CorrectOption)
	}

	if status := env.do("estudiante", http.MethodDelete, fmt.Sprintf("/opciones/%d/1", q.ID), nil, nil); status != http.StatusForbidden {
		t.Errorf("expected 403 for student, got %d", status)
	}
}

func TestQuestionCompleteAlwaysListsOptions(t *testing.T) {
	env := newTestEnv(t, false)
	choice := env.createQuestion(map[string]any{
		"id_tutoria":  env.tutoringID,
		"descripcion": "Color del cielo",
		"tipo":        "opcion_multiple",
		"opciones":    []map[string]string{{"texto": "Azul"}, {"texto": "Verde"}},
	})
	for range 2 {
		if status := env.do("tutor", http.MethodDelete, fmt.Sprintf("/opciones/%d/1", choice.ID), nil, nil); status != http.StatusOK {
			t.Fatalf("delete option: status %d", status)
		}
	}
	free := env.createQuestion(map[string]any{"id_tutoria": env.tutoringID, "descripcion": "Explique", "tipo": "respuesta_libre"})

	for _, q := range []model.Question{choice, free} {
		var body map[string]json.RawMessage
		if status := env.do("estudiante", http.MethodGet, fmt.Sprintf("/preguntas/%d/completo", q.ID), nil, &body); status != http.StatusOK {
			t.Fatalf("completo %d: status %d", q.ID, status)
		}
		raw, ok := body["opciones"]
		if !ok || string(raw) != "[]" {
			t.Errorf("question %d: opciones = %s (present %v), want []", q.ID, raw, ok)
		}
	}
}

func TestDebugRouteOnlyWhenEnabled(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		t.Run(fmt.Sprint(enabled), func(t *testing.T) {
			env := newTestEnv(t, enabled)
			q := env.createQuestion(map[string]any{"id_tutoria": env.tutoringID, "descripcion": "x", "tipo": "verdadero_falso"})

			var view store.OptionDebugView
			status := env.do("tutor", http.MethodGet, fmt.Sprintf("/opciones/debug/pregunta/%d", q.ID), nil, &view)
			want := http.StatusNotFound
			if enabled {
				want = http.StatusOK
			}
			if status != want {
				t.Fatalf("status = %d, want %d", status, want)
			}
			if enabled && len(view.Options) != 2 {
				t.Errorf("expected 2 options in debug view, got %+v", view)
			}
		})
	}
}

func TestReuseQuestion(t *testing.T) {
	env := newTestEnv(t, false)
	first := env.createEvaluation("tutor")
	second := env.createEvaluation("tutor")
	q := env.createQuestion(map[string]any{"id_evaluacion": first.ID, "descripcion": "Reusable", "tipo": "respuesta_libre"})

	body := map[string]any{"numero_preg_original": q.ID, "id_evaluacion_destino": second.ID, "numero_orden": 1, "nota_pregunta": 5}
	if status := env.do("tutor", http.MethodPost, "/preguntas/reutilizar", body, nil); status != http.StatusCreated {
		t.Fatalf("reuse: status %d", status)
	}
	if status := env.do("tutor", http.MethodPost, "/preguntas/reutilizar", body, nil); status != http.StatusConflict {
		t.Errorf("expected 409 on second reuse, got %d", status)
	}

	otherTutoring, _ := env.store.CreateTutoring(model.Tutoring{Name: "Fisica", InstitutionID: env.institutionID, TutorID: env.userIDs["tutor"]})
	foreign, _ := env.store.CreateEvaluation(model.Evaluation{TutoringID: otherTutoring, Name: "F"})
	body["id_evaluacion_destino"] = foreign
	if status := env.do("tutor", http.MethodPost, "/preguntas/reutilizar", body, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 across tutoring sessions, got %d", status)
	}

	var second2 model.Evaluation
	env.do("tutor", http.MethodGet, fmt.Sprintf("/evaluaciones/%d", second.ID), nil, &second2)
	if second2.QuestionCount != 1 || second2.TotalPoints != 5 {
		t.Errorf("expected 1 question worth 5, got %d / %v", second2.QuestionCount, second2.TotalPoints)
	}
}

func TestSubmitEvaluation(t *testing.T) {
	env := newTestEnv(t, false)
	eval := env.createEvaluation("tutor")
	choice := env.createQuestion(map[string]any{
		"id_evaluacion":   eval.ID,
		"descripcion":     "2+2=?",
		"tipo":            "opcion_multiple",
		"opciones":        []map[string]string{{"texto": "3"}, {"texto": "4"}},
		"inciso_correcto": 2,
		"nota_pregunta":   3,
	})
	env.createQuestion(map[string]any{"id_evaluacion": eval.ID, "descripcion": "Explique", "tipo": "respuesta_libre", "nota_pregunta": 2})
	path := fmt.Sprintf("/evaluaciones/%d/responder", eval.ID)

	var visible []model.Question
	env.do("estudiante", http.MethodGet, fmt.Sprintf("/preguntas/evaluacion/%d", eval.ID), nil, &visible)
	if len(visible) != 2 || visible[0].CorrectOption != nil {
		t.Errorf("student should see 2 questions without answers, got %+v", visible)
	}

	t.Run("subset of questions is accepted", func(t *testing.T) {
		var resp submitResponse
		status := env.do("estudiante", http.MethodPost, path, map[string]any{
			"id_inscripcion": env.enrollmentID,
			"respuestas":     []map[string]any{{"numero_preg": choice.ID, "inciso_seleccionado": 2}},
		}, &resp)
		if status != http.StatusCreated {
			t.Fatalf("status %d", status)
		}
		if resp.Score != 3 || resp.MaxScore != 5 {
			t.Errorf("score = %v/%v, want 3/5", resp.Score, resp.MaxScore)
		}
	})

	tests := []struct {
		name string
		user string
		body map[string]any
		want int
	}{
		{"zero answers", "estudiante", map[string]any{"id_inscripcion": env.enrollmentID, "respuestas": []any{}}, http.StatusBadRequest},
		{"question outside evaluation", "estudiante", map[string]any{
			"id_inscripcion": env.enrollmentID,
			"respuestas":     []map[string]any{{"numero_preg": 9999, "inciso_seleccionado": 1}},
		}, http.StatusBadRequest},
		{"someone else's enrollment", "intruso", map[string]any{
			"id_inscripcion": env.enrollmentID,
			"respuestas":     []map[string]any{{"numero_preg": choice.ID, "inciso_seleccionado": 1}},
		}, http.StatusForbidden},
		{"tutor cannot submit", "tutor", map[string]any{
			"id_inscripcion": env.enrollmentID,
			"respuestas":     []map[string]any{{"numero_preg": choice.ID, "inciso_seleccionado": 1}},
		}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := env.do(tt.user, http.MethodPost, path, tt.body, nil); status != tt.want {
				t.Errorf("status = %d, want %d", status, tt.want)
			}
		})
	}

	t.Run("manual grading re-sums", func(t *testing.T) {
		var subs []model.Submission
		env.do("tutor", http.MethodGet, fmt.Sprintf("/evaluaciones/%d/entregas", eval.ID), nil, &subs)
		if len(subs) != 1 {
			t.Fatalf("expected 1 submission, got %d", len(subs))
		}
		var sub model.Submission
		status := env.do("tutor", http.MethodPut, fmt.Sprintf("/entregas/%d/respuestas/%d", subs[0].ID, choice.ID),
			map[string]any{"nota": 1.5, "comentario": "parcial"}, &sub)
		if status != http.StatusOK {
			t.Fatalf("grade: status %d", status)
		}
		if sub.Score != 1.5 {
			t.Errorf("score = %v, want 1.5", sub.Score)
		}
		status = env.do("tutor", http.MethodPut, fmt.Sprintf("/entregas/%d/respuestas/%d", subs[0].ID, choice.ID),
			map[string]any{"nota": 10}, nil)
		if status != http.StatusBadRequest {
			t.Errorf("expected 400 above question value, got %d", status)
		}
	})
}

func TestSubmitAfterDeadline(t *testing.T) {
	env := newTestEnv(t, false)
	past := time.Now().Add(-time.Hour)
	var eval model.Evaluation
	env.do("tutor", http.MethodPost, "/evaluaciones", map[string]any{"id_tutoria": env.tutoringID, "nombre": "Vencida", "fecha_limite": past}, &eval)
	q := env.createQuestion(map[string]any{"id_evaluacion": eval.ID, "descripcion": "x", "tipo": "verdadero_falso", "inciso_correcto": 1})

	var body map[string]string
	status := env.do("estudiante", http.MethodPost, fmt.Sprintf("/evaluaciones/%d/responder", eval.ID), map[string]any{
		"id_inscripcion": env.enrollmentID,
		"respuestas":     []map[string]any{{"numero_preg": q.ID, "inciso_seleccionado": 1}},
	}, &body)
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
	if body["error"] != "La fecha límite de la evaluación ya pasó" {
		t.Errorf("unexpected error: %v", body)
	}
}

func TestDeleteEvaluationCascades(t *testing.T) {
	env := newTestEnv(t, false)
	eval := env.createEvaluation("tutor")
	env.createQuestion(map[string]any{"id_evaluacion": eval.ID, "descripcion": "a", "tipo": "respuesta_libre"})
	env.createQuestion(map[string]any{"id_evaluacion": eval.ID, "descripcion": "b", "tipo": "respuesta_libre"})

	var resp deleteEvaluationResponse
	if status := env.do("tutor", http.MethodDelete, fmt.Sprintf("/evaluaciones/%d", eval.ID), nil, &resp); status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	if resp.DeletedQuestions != 2 || resp.Message != "Evaluación eliminada junto con 2 preguntas" {
		t.Errorf("unexpected response: %+v", resp)
	}

	var bank []model.Question
	env.do("tutor", http.MethodGet, fmt.Sprintf("/preguntas/tutoria/%d", env.tutoringID), nil, &bank)
	if len(bank) != 0 {
		t.Errorf("expected empty bank, got %d", len(bank))
	}
}

func TestSchedulesAndAvailability(t *testing.T) {
	env := newTestEnv(t, false)
	path := fmt.Sprintf("/tutorias/%d/horarios", env.tutoringID)
	slot := map[string]any{"aula": "A1", "dia": 1, "hora_inicio": "08:00", "hora_fin": "10:00"}

	if status := env.do("tutor", http.MethodPost, path, slot, nil); status != http.StatusForbidden {
		t.Errorf("tutor should not book rooms, got %d", status)
	}
	if status := env.do("gerente", http.MethodPost, path, slot, nil); status != http.StatusCreated {
		t.Fatalf("gerente booking: status %d", status)
	}
	slot["hora_inicio"] = "09:00"
	slot["hora_fin"] = "11:00"
	if status := env.do("gerente", http.MethodPost, path, slot, nil); status != http.StatusConflict {
		t.Errorf("expected 409 for overlap, got %d", status)
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"aula=A1&dia=1&hora_inicio=09:30&hora_fin=10:30", false},
		{"aula=A1&dia=1&hora_inicio=10:00&hora_fin=11:00", true},
		{"aula=B2&dia=1&hora_inicio=08:00&hora_fin=10:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var resp availabilityResponse
			if status := env.do("tutor", http.MethodGet, "/aulas/disponibilidad?"+tt.query, nil, &resp); status != http.StatusOK {
				t.Fatalf("status %d", status)
			}
			if resp.Available != tt.want {
				t.Errorf("available = %v, want %v (conflicts %+v)", resp.Available, tt.want, resp.Conflicts)
			}
		})
	}

	if status := env.do("tutor", http.MethodGet, "/aulas/disponibilidad?aula=A1&dia=1&hora_inicio=8&hora_fin=10:00", nil, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed time, got %d", status)
	}
}

func TestSchedulesWithUnpaddedHours(t *testing.T) {
	env := newTestEnv(t, false)
	path := fmt.Sprintf("/tutorias/%d/horarios", env.tutoringID)

	var created model.Schedule
	slot := map[string]any{"aula": "A1", "dia": 1, "hora_inicio": "9:00", "hora_fin": "10:00"}
	if status := env.do("gerente", http.MethodPost, path, slot, &created); status != http.StatusCreated {
		t.Fatalf("9:00-10:00 booking: status %d", status)
	}
	if created.Start != "09:00" || created.End != "10:00" {
		t.Errorf("stored times = %s-%s, want 09:00-10:00", created.Start, created.End)
	}

	slot = map[string]any{"aula": "A1", "dia": 2, "hora_inicio": "08:00", "hora_fin": "10:00"}
	if status := env.do("gerente", http.MethodPost, path, slot, nil); status != http.StatusCreated {
		t.Fatalf("08:00-10:00 booking: status %d", status)
	}
	slot["hora_inicio"], slot["hora_fin"] = "9:15", "9:45"
	if status := env.do("gerente", http.MethodPost, path, slot, nil); status != http.StatusConflict {
		t.Errorf("9:15-9:45 inside 08:00-10:00: status %d, want 409", status)
	}

	slot["hora_inicio"], slot["hora_fin"] = "10:00", "9:30"
	if status := env.do("gerente", http.MethodPost, path, slot, nil); status != http.StatusBadRequest {
		t.Errorf("reversed range: status %d, want 400", status)
	}

	tests := []struct {
		query string
		want  bool
	}{
		{"aula=A1&dia=2&hora_inicio=9:15&hora_fin=9:45", false},
		{"aula=A1&dia=1&hora_inicio=9:30&hora_fin=11:00", false},
		{"aula=A1&dia=1&hora_inicio=7:00&hora_fin=9:00", true},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var resp availabilityResponse
			if status := env.do("tutor", http.MethodGet, "/aulas/disponibilidad?"+tt.query, nil, &resp); status != http.StatusOK {
				t.Fatalf("status %d", status)
			}
			if resp.Available != tt.want {
				t.Errorf("available = %v, want %v (conflicts %+v)", resp.Available, tt.want, resp.Conflicts)
			}
		})
	}
}

func TestListTutoringsByVisibility(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		user string
		want int
	}{
		{"admin", 1},
		{"gerente", 1},
		{"gerente_norte", 0},
		{"tutor", 1},
		{"otro_tutor", 0},
		{"estudiante", 1},
		{"intruso", 0},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			var list []model.Tutoring
			env.do(tt.user, http.MethodGet, "/tutorias", nil, &list)
			if len(list) != tt.want {
				t.Errorf("got %d tutoring sessions, want %d", len(list), tt.want)
			}
		})
	}
}
