package store

import (
	"github.com/skilllink/skilllink/internal/editor"
	"github.com/skilllink/skilllink/internal/model"
)

// ListOptions returns a question's options ordered by index. A missing
// question is sql.ErrNoRows; a question without options is an empty slice.
func (s *Store) ListOptions(questionID int64) ([]model.Option, error) {
	var exists int
	if err := s.db.QueryRow(`SELECT 1 FROM questions WHERE id = ?`, questionID).Scan(&exists); err != nil {
		return nil, err
	}
	return s.listOptions(questionID)
}

func (s *Store) listOptions(questionID int64) ([]model.Option, error) {
	rows, err := s.db.Query(
		`SELECT question_id, letter_index, text FROM options WHERE question_id = ? ORDER BY letter_index`, questionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	opts := []model.Option{}
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.QuestionID, &o.Index, &o.Text); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// AddOption appends an option with the next letter index.
func (s *Store) AddOption(questionID int64, text string) (model.Option, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return model.Option{}, err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRow(`SELECT 1 FROM questions WHERE id = ?`, questionID).Scan(&exists); err != nil {
		return model.Option{}, err
	}

	o := model.Option{QuestionID: questionID, Text: text}
	err = tx.QueryRow(
		`SELECT COALESCE(MAX(letter_index), 0) + 1 FROM options WHERE question_id = ?`, questionID,
	).Scan(&o.Index)
	if err != nil {
		return model.Option{}, err
	}
	if _, err := tx.Exec(
		`INSERT INTO options (question_id, letter_index, text) VALUES (?, ?, ?)`,
		o.QuestionID, o.Index, o.Text,
	); err != nil {
		return model.Option{}, err
	}
	return o, tx.Commit()
}

// UpdateOption changes the text of one option.
func (s *Store) UpdateOption(questionID int64, index int, text string) error {
	return checkAffected(s.db.Exec(
		`UPDATE options SET text = ? WHERE question_id = ? AND letter_index = ?`, text, questionID, index,
	))
}

// DeleteOption removes one option, shifts the later ones down so indices stay
// contiguous from 1, and remaps the question's correct option to follow the
// option it pointed at.
func (s *Store) DeleteOption(questionID int64, index int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var correct *int
	if err := tx.QueryRow(`SELECT correct_option FROM questions WHERE id = ?`, questionID).Scan(&correct); err != nil {
		return err
	}

	if err := checkAffected(tx.Exec(
		`DELETE FROM options WHERE question_id = ? AND letter_index = ?`, questionID, index,
	)); err != nil {
		return err
	}

	// Two passes through negative indices so no intermediate row collides on the key.
	if _, err := tx.Exec(
		`UPDATE options SET letter_index = -(letter_index - 1) WHERE question_id = ? AND letter_index > ?`,
		questionID, index,
	); err != nil {
		return err
	}
	if _, err := tx.Exec(
		`UPDATE options SET letter_index = -letter_index WHERE question_id = ? AND letter_index < 0`,
		questionID,
	); err != nil {
		return err
	}

	remapped := editor.RemapCorrect(correct, index)
	if _, err := tx.Exec(`UPDATE questions SET correct_option = ? WHERE id = ?`, remapped, questionID); err != nil {
		return err
	}

	return tx.Commit()
}

// OptionDebugView is the diagnostic snapshot of a question's options.
type OptionDebugView struct {
	QuestionID    int64          `json:"numero_preg"`
	CorrectOption *int           `json:"inciso_correcto"`
	Options       []model.Option `json:"opciones"`
}

// GetOptionDebugView returns a question's options together with its correct option.
func (s *Store) GetOptionDebugView(questionID int64) (OptionDebugView, error) {
	q, err := s.GetQuestionComplete(questionID)
	if err != nil {
		return OptionDebugView{}, err
	}
	return OptionDebugView{QuestionID: q.ID, CorrectOption: q.CorrectOption, Options: q.Options}, nil
}
