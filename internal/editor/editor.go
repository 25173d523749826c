// Package editor holds the rules for editing a question and its answer options:
// type defaults, contiguous option indices and the correct-option reference.
package editor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/skilllink/skilllink/internal/model"
)

const (
	TrueText  = "Verdadero"
	FalseText = "Falso"

	multipleChoiceDefaults = 4
)

var (
	ErrUnknownType        = errors.New("unknown question type")
	ErrNoSuchOption       = errors.New("option does not exist")
	ErrCorrectOutOfRange  = errors.New("correct option does not reference an existing option")
	ErrFreeResponseOption = errors.New("free-response questions cannot have options")
	ErrInvalidIndex       = errors.New("option index must be an integer")
)

// DefaultOptions returns the option texts a fresh question of type t starts with.
func DefaultOptions(t model.QuestionType) []string {
	switch t {
	case model.TypeMultipleChoice:
		return make([]string, multipleChoiceDefaults)
	case model.TypeTrueFalse:
		return []string{TrueText, FalseText}
	}
	return nil
}

// Form is the editable state of one question. Options[i] has letter index i+1.
type Form struct {
	Description string
	Type        model.QuestionType
	Options     []string
	Correct     *int
}

// NewForm starts a blank form of type t with its default options.
func NewForm(t model.QuestionType) Form {
	return Form{Type: t, Options: DefaultOptions(t)}
}

// FormFromQuestion loads a stored question into a form, generating defaults
// when a choice question came back with no options.
func FormFromQuestion(q model.Question) Form {
	f := Form{Description: q.Description, Type: q.Type, Correct: cloneIndex(q.CorrectOption)}
	for _, o := range Reindex(q.Options) {
		f.Options = append(f.Options, o.Text)
	}
	f.EnsureDefaults()
	return f
}

// SetType switches the question type. True/false always gets exactly the two
// fixed options; multiple choice gets four blanks unless it already was
// multiple choice; free response has none. A correct selection that no longer
// points at an option is cleared.
func (f *Form) SetType(t model.QuestionType) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, t)
	}
	if t != f.Type || t == model.TypeTrueFalse {
		f.Options = DefaultOptions(t)
	}
	f.Type = t
	if f.Correct != nil && (*f.Correct < 1 || *f.Correct > len(f.Options)) {
		f.Correct = nil
	}
	return nil
}

// EnsureDefaults fills the type's default set when a choice question has no options.
func (f *Form) EnsureDefaults() {
	if len(f.Options) == 0 && f.Type.HasOptions() {
		f.Options = DefaultOptions(f.Type)
	}
}

// AddOption appends an option and returns its letter index.
func (f *Form) AddOption(text string) int {
	f.Options = append(f.Options, text)
	return len(f.Options)
}

// SetOption replaces the text of the option at index.
func (f *Form) SetOption(index int, text string) error {
	if index < 1 || index > len(f.Options) {
		return fmt.Errorf("%w: %d", ErrNoSuchOption, index)
	}
	f.Options[index-1] = text
	return nil
}

// RemoveOption deletes the option at index; later options shift down by one
// and the correct selection follows the option it pointed at.
func (f *Form) RemoveOption(index int) error {
	if index < 1 || index > len(f.Options) {
		return fmt.Errorf("%w: %d", ErrNoSuchOption, index)
	}
	f.Options = append(f.Options[:index-1], f.Options[index:]...)
	f.Correct = RemapCorrect(f.Correct, index)
	return nil
}

// SetCorrect marks the option at index as the correct answer; nil clears it.
func (f *Form) SetCorrect(index *int) error {
	if index != nil && (*index < 1 || *index > len(f.Options)) {
		return fmt.Errorf("%w: %d", ErrCorrectOutOfRange, *index)
	}
	f.Correct = cloneIndex(index)
	return nil
}

// Validate checks the form before it is saved.
func (f Form) Validate() error {
	if !f.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}
	if !f.Type.HasOptions() {
		if len(f.Options) > 0 {
			return ErrFreeResponseOption
		}
		if f.Correct != nil {
			return ErrCorrectOutOfRange
		}
		return nil
	}
	if f.Correct != nil && (*f.Correct < 1 || *f.Correct > len(f.Options)) {
		return fmt.Errorf("%w: %d", ErrCorrectOutOfRange, *f.Correct)
	}
	return nil
}

// ModelOptions returns the form's options keyed for questionID.
func (f Form) ModelOptions(questionID int64) []model.Option {
	opts := make([]model.Option, 0, len(f.Options))
	for i, text := range f.Options {
		opts = append(opts, model.Option{Index: i + 1, QuestionID: questionID, Text: text})
	}
	return opts
}

// RemapCorrect returns where a correct-option reference points after the option
// at removed is deleted: nil if it was the removed one, one lower if it was after it.
func RemapCorrect(correct *int, removed int) *int {
	if correct == nil || *correct == removed {
		return nil
	}
	v := *correct
	if v > removed {
		v--
	}
	return &v
}

// Reindex renumbers options to 1..n keeping their relative order by current index.
func Reindex(opts []model.Option) []model.Option {
	out := make([]model.Option, len(opts))
	copy(out, opts)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Index < out[j-1].Index; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	for i := range out {
		out[i].Index = i + 1
	}
	return out
}

// ParseCorrectOption accepts the textual forms a correct-option value arrives in:
// "" or "null" mean none, anything else must be an integer.
func ParseCorrectOption(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidIndex, raw)
	}
	return &v, nil
}

// OptionRef is a nullable option index that decodes from a JSON number,
// a numeric string, an empty string or null.
type OptionRef struct {
	Value *int
	Set   bool
}

func (r *OptionRef) UnmarshalJSON(data []byte) error {
	r.Set = true
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := ParseCorrectOption(s)
		if err != nil {
			return err
		}
		r.Value = v
		return nil
	}
	v, err := ParseCorrectOption(string(data))
	if err != nil {
		return err
	}
	r.Value = v
	return nil
}

func (r OptionRef) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value)
}

func cloneIndex(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
