package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/skilllink/skilllink/internal/editor"
	"github.com/skilllink/skilllink/internal/model"
	"github.com/skilllink/skilllink/internal/store"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Load questions from JSON files into a tutoring session's question bank",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runImport,
	}
	f := cmd.Flags()
	f.String("db", "skilllink.db", "SQLite database path")
	f.Int64("tutoring-id", 0, "Tutoring session that owns the questions (required)")
	addLogFlags(cmd)

	_ = cmd.MarkFlagRequired("tutoring-id")
	return cmd
}

func runImport(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	tutoringID := v.GetInt64("tutoring-id")
	if _, err := db.GetTutoring(tutoringID); err != nil {
		return fmt.Errorf("tutoring %d: %w", tutoringID, err)
	}
	return importQuestions(db, tutoringID, args)
}

// importQuestions loads each file once. A file whose content hash is already
// recorded is skipped; a changed file is skipped with a warning so earlier
// imports are not duplicated.
func importQuestions(db *store.Store, tutoringID int64, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("questions file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("questions file changed since last import, skipping to avoid duplicates", "path", path)
			continue
		}

		var questions []model.QuestionImport
		if err := json.Unmarshal(data, &questions); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for i, qi := range questions {
			form, err := importForm(qi)
			if err != nil {
				return fmt.Errorf("%s: question %d: %w", path, i+1, err)
			}
			_, err = db.CreateQuestion(model.Question{
				TutoringID:    tutoringID,
				Description:   form.Description,
				Type:          form.Type,
				CorrectOption: form.Correct,
			}, form.ModelOptions(0), nil)
			if err != nil {
				return fmt.Errorf("insert question from %s: %w", path, err)
			}
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported questions", "path", path, "tutoring", tutoringID, "count", len(questions))
	}
	return nil
}

// importForm applies the editor's defaults and checks to an imported question.
func importForm(qi model.QuestionImport) (editor.Form, error) {
	if qi.Description == "" {
		return editor.Form{}, errors.New("descripcion is empty")
	}
	if qi.Type == "" {
		qi.Type = model.TypeMultipleChoice
	}
	if !qi.Type.Valid() {
		return editor.Form{}, fmt.Errorf("%w: %q", editor.ErrUnknownType, qi.Type)
	}
	form := editor.NewForm(qi.Type)
	form.Description = qi.Description
	if len(qi.Options) > 0 && qi.Type != model.TypeTrueFalse {
		form.Options = qi.Options
	}
	if err := form.SetCorrect(qi.CorrectOption); err != nil {
		return editor.Form{}, err
	}
	return form, form.Validate()
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
