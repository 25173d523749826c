package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/skilllink/skilllink/internal/model"
)

// NewUser is the payload for creating an account.
type NewUser struct {
	Username      string       `json:"username"`
	Email         string       `json:"email,omitempty"`
	Password      string       `json:"password"`
	RoleID        model.RoleID `json:"rol_id"`
	InstitutionID *int64       `json:"id_institucion,omitempty"`
}

// OptionText is one answer option as sent to the API.
type OptionText struct {
	Text string `json:"texto"`
}

// QuestionInput creates or updates a question. Attachment fields apply when
// EvaluationID is set.
type QuestionInput struct {
	TutoringID    int64              `json:"id_tutoria,omitempty"`
	Description   string             `json:"descripcion"`
	Type          model.QuestionType `json:"tipo"`
	CorrectOption *int               `json:"inciso_correcto"`
	Options       []OptionText       `json:"opciones,omitempty"`
	EvaluationID  *int64             `json:"id_evaluacion,omitempty"`
	Order         *int               `json:"numero_orden,omitempty"`
	Points        *float64           `json:"nota_pregunta,omitempty"`
}

// EvaluationInput creates or updates an evaluation.
type EvaluationInput struct {
	TutoringID  int64      `json:"id_tutoria,omitempty"`
	Name        string     `json:"nombre"`
	Description string     `json:"descripcion"`
	Deadline    *time.Time `json:"fecha_limite,omitempty"`
}

// DeleteEvaluationResult reports how many questions went with an evaluation.
type DeleteEvaluationResult struct {
	Message          string `json:"mensaje"`
	DeletedQuestions int    `json:"preguntas_eliminadas"`
}

// SubmitResult is the graded outcome of a submission.
type SubmitResult struct {
	ID       int64          `json:"id_entrega"`
	Score    float64        `json:"calificacion_final"`
	MaxScore float64        `json:"calificacion_maxima"`
	Answers  []model.Answer `json:"respuestas"`
}

// ScheduleSlot is a room booking on a weekday, times as HH:MM.
type ScheduleSlot struct {
	Room  string `json:"aula"`
	Day   int    `json:"dia"`
	Start string `json:"hora_inicio"`
	End   string `json:"hora_fin"`
}

// Availability answers whether a slot is free.
type Availability struct {
	Available bool             `json:"disponible"`
	Conflicts []model.Schedule `json:"conflictos"`
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	return out, c.do(ctx, http.MethodGet, "/usuarios", nil, &out)
}

func (c *Client) CreateUser(ctx context.Context, u NewUser) (model.User, error) {
	var out model.User
	return out, c.do(ctx, http.MethodPost, "/usuarios", u, &out)
}

func (c *Client) SetUserActive(ctx context.Context, id int64, active bool) error {
	return c.do(ctx, http.MethodPut, fmt.Sprintf("/usuarios/%d/activo", id), map[string]bool{"activo": active}, nil)
}

func (c *Client) ListInstitutions(ctx context.Context) ([]model.Institution, error) {
	var out []model.Institution
	return out, c.do(ctx, http.MethodGet, "/instituciones", nil, &out)
}

func (c *Client) CreateInstitution(ctx context.Context, name string) (model.Institution, error) {
	var out model.Institution
	return out, c.do(ctx, http.MethodPost, "/instituciones", map[string]string{"nombre": name}, &out)
}

func (c *Client) ListTutorings(ctx context.Context) ([]model.Tutoring, error) {
	var out []model.Tutoring
	return out, c.do(ctx, http.MethodGet, "/tutorias", nil, &out)
}

func (c *Client) GetTutoring(ctx context.Context, id int64) (model.Tutoring, error) {
	var out model.Tutoring
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/tutorias/%d", id), nil, &out)
}

func (c *Client) CreateTutoring(ctx context.Context, t model.Tutoring) (model.Tutoring, error) {
	var out model.Tutoring
	return out, c.do(ctx, http.MethodPost, "/tutorias", t, &out)
}

// Enroll enrolls a student in a tutoring session. Students pass their own id.
func (c *Client) Enroll(ctx context.Context, tutoringID, studentID int64) (model.Enrollment, error) {
	var out model.Enrollment
	path := fmt.Sprintf("/tutorias/%d/inscripciones", tutoringID)
	return out, c.do(ctx, http.MethodPost, path, map[string]int64{"id_estudiante": studentID}, &out)
}

func (c *Client) ListEnrollments(ctx context.Context, tutoringID int64) ([]model.Enrollment, error) {
	var out []model.Enrollment
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/tutorias/%d/inscripciones", tutoringID), nil, &out)
}

func (c *Client) MyEnrollments(ctx context.Context) ([]model.Enrollment, error) {
	var out []model.Enrollment
	return out, c.do(ctx, http.MethodGet, "/inscripciones/mias", nil, &out)
}

func (c *Client) ListSchedules(ctx context.Context, tutoringID int64) ([]model.Schedule, error) {
	var out []model.Schedule
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/tutorias/%d/horarios", tutoringID), nil, &out)
}

func (c *Client) CreateSchedule(ctx context.Context, tutoringID int64, slot ScheduleSlot) (model.Schedule, error) {
	var out model.Schedule
	return out, c.do(ctx, http.MethodPost, fmt.Sprintf("/tutorias/%d/horarios", tutoringID), slot, &out)
}

func (c *Client) DeleteSchedule(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/horarios/%d", id), nil, nil)
}

// RoomAvailability checks slot against existing bookings, ignoring the
// schedule with id exclude when non-zero.
func (c *Client) RoomAvailability(ctx context.Context, slot ScheduleSlot, exclude int64) (Availability, error) {
	q := url.Values{}
	q.Set("aula", slot.Room)
	q.Set("dia", strconv.Itoa(slot.Day))
	q.Set("hora_inicio", slot.Start)
	q.Set("hora_fin", slot.End)
	if exclude != 0 {
		q.Set("excluir", strconv.FormatInt(exclude, 10))
	}
	var out Availability
	return out, c.do(ctx, http.MethodGet, "/aulas/disponibilidad?"+q.Encode(), nil, &out)
}

func (c *Client) CreateOption(ctx context.Context, questionID int64, text string) (model.Option, error) {
	var out model.Option
	body := struct {
		QuestionID int64  `json:"numero_preg"`
		Text       string `json:"texto"`
	}{questionID, text}
	return out, c.do(ctx, http.MethodPost, "/opciones", body, &out)
}

func (c *Client) UpdateOption(ctx context.Context, questionID int64, index int, text string) (model.Option, error) {
	var out model.Option
	path := fmt.Sprintf("/opciones/%d/%d", questionID, index)
	return out, c.do(ctx, http.MethodPut, path, OptionText{Text: text}, &out)
}

// DeleteOption removes an option; the server renumbers the ones after it.
func (c *Client) DeleteOption(ctx context.Context, questionID int64, index int) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/opciones/%d/%d", questionID, index), nil, nil)
}

func (c *Client) EvaluationQuestions(ctx context.Context, evaluationID int64) ([]model.Question, error) {
	var out []model.Question
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/preguntas/evaluacion/%d", evaluationID), nil, &out)
}

func (c *Client) QuestionBank(ctx context.Context, tutoringID int64) ([]model.Question, error) {
	var out []model.Question
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/preguntas/tutoria/%d", tutoringID), nil, &out)
}

func (c *Client) GetQuestion(ctx context.Context, id int64) (model.Question, error) {
	var out model.Question
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/preguntas/%d/completo", id), nil, &out)
}

func (c *Client) CreateQuestion(ctx context.Context, in QuestionInput) (model.Question, error) {
	var out model.Question
	return out, c.do(ctx, http.MethodPost, "/preguntas", in, &out)
}

func (c *Client) UpdateQuestion(ctx context.Context, id int64, in QuestionInput) (model.Question, error) {
	var out model.Question
	return out, c.do(ctx, http.MethodPut, fmt.Sprintf("/preguntas/%d", id), in, &out)
}

func (c *Client) DeleteQuestion(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/preguntas/%d", id), nil, nil)
}

// ReuseQuestion attaches an existing question to another evaluation.
func (c *Client) ReuseQuestion(ctx context.Context, att model.Attachment) (model.Attachment, error) {
	body := struct {
		QuestionID   int64   `json:"numero_preg_original"`
		EvaluationID int64   `json:"id_evaluacion_destino"`
		Order        int     `json:"numero_orden"`
		Points       float64 `json:"nota_pregunta"`
	}{att.QuestionID, att.EvaluationID, att.Order, att.Points}
	var out model.Attachment
	return out, c.do(ctx, http.MethodPost, "/preguntas/reutilizar", body, &out)
}

func (c *Client) ListEvaluations(ctx context.Context, tutoringID int64) ([]model.Evaluation, error) {
	var out []model.Evaluation
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/evaluaciones/tutoria/%d", tutoringID), nil, &out)
}

func (c *Client) GetEvaluation(ctx context.Context, id int64) (model.Evaluation, error) {
	var out model.Evaluation
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/evaluaciones/%d", id), nil, &out)
}

func (c *Client) CreateEvaluation(ctx context.Context, in EvaluationInput) (model.Evaluation, error) {
	var out model.Evaluation
	return out, c.do(ctx, http.MethodPost, "/evaluaciones", in, &out)
}

func (c *Client) UpdateEvaluation(ctx context.Context, id int64, in EvaluationInput) (model.Evaluation, error) {
	var out model.Evaluation
	return out, c.do(ctx, http.MethodPut, fmt.Sprintf("/evaluaciones/%d", id), in, &out)
}

// DeleteEvaluation deletes an evaluation and every question attached to it.
func (c *Client) DeleteEvaluation(ctx context.Context, id int64) (DeleteEvaluationResult, error) {
	var out DeleteEvaluationResult
	return out, c.do(ctx, http.MethodDelete, fmt.Sprintf("/evaluaciones/%d", id), nil, &out)
}

func (c *Client) Submit(ctx context.Context, evaluationID, enrollmentID int64, answers []model.Answer) (SubmitResult, error) {
	body := struct {
		EnrollmentID int64          `json:"id_inscripcion"`
		Answers      []model.Answer `json:"respuestas"`
	}{enrollmentID, answers}
	var out SubmitResult
	return out, c.do(ctx, http.MethodPost, fmt.Sprintf("/evaluaciones/%d/responder", evaluationID), body, &out)
}

func (c *Client) ListSubmissions(ctx context.Context, evaluationID int64) ([]model.Submission, error) {
	var out []model.Submission
	return out, c.do(ctx, http.MethodGet, fmt.Sprintf("/evaluaciones/%d/entregas", evaluationID), nil, &out)
}

// GradeAnswer sets the points of one answer by hand.
func (c *Client) GradeAnswer(ctx context.Context, submissionID, questionID int64, points float64, feedback string) (model.Submission, error) {
	body := struct {
		Points   float64 `json:"nota"`
		Feedback string  `json:"comentario"`
	}{points, feedback}
	var out model.Submission
	path := fmt.Sprintf("/entregas/%d/respuestas/%d", submissionID, questionID)
	return out, c.do(ctx, http.MethodPut, path, body, &out)
}

// MySubmissions returns the caller's own graded submissions.
func (c *Client) MySubmissions(ctx context.Context) ([]model.Submission, error) {
	var out []model.Submission
	return out, c.do(ctx, http.MethodGet, "/entregas/mias", nil, &out)
}
