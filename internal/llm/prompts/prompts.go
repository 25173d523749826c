package prompts

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strings"
	"sync"
	"text/template"
	"unicode/utf8"
)

//go:embed templates/*.txt
var templateFS embed.FS

var (
	studentAnswerRegex      = regexp.MustCompile(`(?i)</?\s*student-answer\b[^>]*>`)
	systemInstructionsRegex = regexp.MustCompile(`(?i)</?\s*system-instructions\b[^>]*>`)
)

const maxAnswerRunes = 10000

// PromptVariant selects how severely written answers are graded.
type PromptVariant string

const (
	// PromptStrict grades core-subject evaluations.
	PromptStrict PromptVariant = "strict"
	// PromptStandard is the default grading variant.
	PromptStandard PromptVariant = "standard"
	// PromptLenient grades practice and elective evaluations.
	PromptLenient PromptVariant = "lenient"
)

// ErrUnknownVariant is returned for a variant with no template.
var ErrUnknownVariant = errors.New("unknown prompt variant")

var validVariants = map[PromptVariant]bool{
	PromptStrict:   true,
	PromptStandard: true,
	PromptLenient:  true,
}

var (
	loadOnce       sync.Once
	loadErr        error
	gradeTemplates map[PromptVariant]*template.Template
)

// IsValidVariant reports whether v names an embedded template.
func IsValidVariant(v string) bool {
	return validVariants[PromptVariant(v)]
}

// GradeData is what a grading template renders: one question and one answer.
type GradeData struct {
	QuestionText string
	MaxPoints    float64
	Answer       string
	Language     string
}

// Load parses the embedded grading templates once.
func Load() error {
	loadOnce.Do(func() {
		loadErr = load(templateFS)
	})
	return loadErr
}

func load(fsys fs.FS) error {
	tmpls := make(map[PromptVariant]*template.Template)
	for v := range validVariants {
		name := "templates/grade_" + string(v) + ".txt"
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("read prompt file %s: %w", name, err)
		}
		tmpl, err := template.New(string(v)).Parse(string(content))
		if err != nil {
			return fmt.Errorf("parse prompt template %s: %w", name, err)
		}
		tmpls[v] = tmpl
	}
	gradeTemplates = tmpls
	return nil
}

// BuildGradePrompt renders the grading prompt of variant for one answer.
func BuildGradePrompt(variant PromptVariant, data GradeData) (string, error) {
	if err := Load(); err != nil {
		return "", fmt.Errorf("load grading templates: %w", err)
	}
	tmpl, ok := gradeTemplates[variant]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVariant, variant)
	}

	data.Answer = sanitizeAnswer(data.Answer)

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", variant, err)
	}
	return buf.String(), nil
}

// sanitizeAnswer strips the delimiter tags so an answer cannot escape its
// block, and truncates overly long answers.
func sanitizeAnswer(answer string) string {
	answer = studentAnswerRegex.ReplaceAllString(answer, "")
	answer = systemInstructionsRegex.ReplaceAllString(answer, "")
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return "[No answer provided]"
	}

	if utf8.RuneCountInString(answer) > maxAnswerRunes {
		runes := []rune(answer)
		answer = string(runes[:maxAnswerRunes]) + "\n\n[Answer truncated due to length]"
	}
	return answer
}
