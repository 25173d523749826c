package model

import (
	"context"
	"time"
)

// RoleID is a user's access tier. The numeric values are part of the API.
type RoleID int

const (
	RoleAdmin   RoleID = 1
	RoleManager RoleID = 2
	RoleTutor   RoleID = 3
	RoleStudent RoleID = 4
)

// Valid reports whether r is one of the four known tiers.
func (r RoleID) Valid() bool {
	return r >= RoleAdmin && r <= RoleStudent
}

func (r RoleID) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "gerente"
	case RoleTutor:
		return "tutor"
	case RoleStudent:
		return "estudiante"
	}
	return "desconocido"
}

// User represents a system user.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	RoleID        RoleID    `json:"rol_id"`
	InstitutionID *int64    `json:"id_institucion,omitempty"`
	Active        bool      `json:"activo"`
	CreatedAt     time.Time `json:"creado_en"`
}

// AuthSession represents a login session. Its ID is the token's jti.
type AuthSession struct {
	ID        string
	UserID    int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

type userCtxKey struct{}

// ContextWithUser stores a user in the request context.
func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext retrieves the authenticated user from context, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(userCtxKey{}).(*User)
	return u
}

type sessionCtxKey struct{}

// ContextWithSessionID stores the current auth session id in context.
func ContextWithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, id)
}

// SessionIDFromContext returns the auth session id, or "".
func SessionIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionCtxKey{}).(string)
	return id
}

// Institution groups tutoring sessions and managers.
type Institution struct {
	ID   int64  `json:"id_institucion"`
	Name string `json:"nombre"`
}

// Tutoring is a course-like offering taught by one tutor at one institution.
type Tutoring struct {
	ID            int64  `json:"id_tutoria"`
	Name          string `json:"nombre"`
	InstitutionID int64  `json:"id_institucion"`
	TutorID       int64  `json:"id_tutor"`
}

// Enrollment links a student to a tutoring session.
type Enrollment struct {
	ID         int64     `json:"id_inscripcion"`
	TutoringID int64     `json:"id_tutoria"`
	StudentID  int64     `json:"id_estudiante"`
	CreatedAt  time.Time `json:"creado_en"`
}

// Schedule is a weekly room booking of a tutoring session.
// Start and End are "HH:MM"; Day is 0 (Sunday) through 6.
type Schedule struct {
	ID         int64  `json:"id_horario"`
	TutoringID int64  `json:"id_tutoria"`
	Room       string `json:"aula"`
	Day        int    `json:"dia"`
	Start      string `json:"hora_inicio"`
	End        string `json:"hora_fin"`
}

// Evaluation is a quiz attached to one tutoring session.
type Evaluation struct {
	ID            int64      `json:"id_evaluacion"`
	TutoringID    int64      `json:"id_tutoria"`
	Name          string     `json:"nombre"`
	Description   string     `json:"descripcion"`
	Deadline      *time.Time `json:"fecha_limite,omitempty"`
	TotalPoints   float64    `json:"nota_total"`
	QuestionCount int        `json:"cantidad_preguntas"`
}

// QuestionType is the answer format of a question.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "opcion_multiple"
	TypeTrueFalse      QuestionType = "verdadero_falso"
	TypeFreeResponse   QuestionType = "respuesta_libre"
)

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case TypeMultipleChoice, TypeTrueFalse, TypeFreeResponse:
		return true
	}
	return false
}

// HasOptions reports whether questions of this type are answered by picking an option.
func (t QuestionType) HasOptions() bool {
	return t == TypeMultipleChoice || t == TypeTrueFalse
}

// Option is one selectable answer. It is keyed by (QuestionID, Index).
type Option struct {
	Index      int    `json:"inciso"`
	QuestionID int64  `json:"numero_preg"`
	Text       string `json:"texto"`
}

// Question is a bank question of a tutoring session. When listed for an
// evaluation, EvaluationID, Order and Points describe that attachment.
type Question struct {
	ID            int64        `json:"numero_preg"`
	TutoringID    int64        `json:"id_tutoria"`
	Description   string       `json:"descripcion"`
	Type          QuestionType `json:"tipo"`
	CorrectOption *int         `json:"inciso_correcto"`
	EvaluationID  *int64       `json:"id_evaluacion,omitempty"`
	Order         int          `json:"numero_orden"`
	Points        float64      `json:"nota_pregunta"`
	Options       []Option     `json:"opciones,omitempty"`
}

// Attachment places a bank question in an evaluation with its own order and points.
type Attachment struct {
	EvaluationID int64   `json:"id_evaluacion"`
	QuestionID   int64   `json:"numero_preg"`
	Order        int     `json:"numero_orden"`
	Points       float64 `json:"nota_pregunta"`
}

// Answer is one response inside a submission.
type Answer struct {
	QuestionID     int64   `json:"numero_preg"`
	SelectedOption *int    `json:"inciso_seleccionado,omitempty"`
	Text           string  `json:"respuesta_texto,omitempty"`
	Points         float64 `json:"nota"`
	Feedback       string  `json:"comentario,omitempty"`
	Pending        bool    `json:"pendiente"`
}

// Submission is a student's graded answer set for one evaluation.
type Submission struct {
	ID           int64     `json:"id_entrega"`
	EvaluationID int64     `json:"id_evaluacion"`
	EnrollmentID int64     `json:"id_inscripcion"`
	Score        float64   `json:"calificacion_final"`
	MaxScore     float64   `json:"calificacion_maxima"`
	SubmittedAt  time.Time `json:"entregado_en"`
	Answers      []Answer  `json:"respuestas,omitempty"`
}

// ServerConfig holds runtime parameters set via CLI flags.
type ServerConfig struct {
	JWTSecret      []byte
	SessionTTL     time.Duration
	DefaultLang    string
	CORSOrigins    []string
	DebugRoutes    bool
	GradingWorkers int
}

// QuestionImport is used for loading a question bank from JSON.
type QuestionImport struct {
	Description   string       `json:"descripcion"`
	Type          QuestionType `json:"tipo"`
	CorrectOption *int         `json:"inciso_correcto"`
	Options       []string     `json:"opciones"`
}
