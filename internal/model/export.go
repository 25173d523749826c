package model

import "time"

// EvaluationExport is the top-level JSON structure for evaluation result export.
type EvaluationExport struct {
	Evaluation Evaluation      `json:"evaluacion"`
	Questions  []Question      `json:"preguntas"`
	Results    []StudentResult `json:"resultados"`
}

// StudentResult holds one student's submission for export.
type StudentResult struct {
	StudentID   int64     `json:"id_estudiante"`
	Username    string    `json:"username"`
	Attempt     int       `json:"intento"`
	SubmittedAt time.Time `json:"entregado_en"`
	Score       float64   `json:"calificacion_final"`
	MaxScore    float64   `json:"calificacion_maxima"`
	Answers     []Answer  `json:"respuestas"`
}
