package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/skilllink/skilllink/internal/editor"
	"github.com/skilllink/skilllink/internal/model"
	"github.com/skilllink/skilllink/internal/store"
)

func TestImportQuestionsSkipsKnownFiles(t *testing.T) {
	db, err := store.New(":memory:")
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	defer db.Close()

	instID, _ := db.CreateInstitution("Colegio")
	tutorID, err := db.CreateUser(model.User{Username: "tutor", PasswordHash: "x", RoleID: model.RoleTutor, Active: true})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	tutoringID, err := db.CreateTutoring(model.Tutoring{Name: "Fisica", InstitutionID: instID, TutorID: tutorID})
	if err != nil {
		t.Fatalf("CreateTutoring: %v", err)
	}

	path := filepath.Join(t.TempDir(), "banco.json")
	content := `[
  {"descripcion": "La luz es una onda", "tipo": "verdadero_falso", "inciso_correcto": 1, "opciones": ["x", "y", "z"]},
  {"descripcion": "Unidad de fuerza", "tipo": "opcion_multiple", "inciso_correcto": 2, "opciones": ["Julio", "Newton", "Watt"]},
  {"descripcion": "Explique la inercia", "tipo": "respuesta_libre"}
]`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	for range 2 {
		if err := importQuestions(db, tutoringID, []string{path}); err != nil {
			t.Fatalf("importQuestions: %v", err)
		}
	}

	bank, err := db.ListQuestionBank(tutoringID)
	if err != nil {
		t.Fatalf("ListQuestionBank: %v", err)
	}
	if len(bank) != 3 {
		t.Fatalf("bank has %d questions, want 3", len(bank))
	}
	for _, q := range bank {
		full, err := db.GetQuestionComplete(q.ID)
		if err != nil {
			t.Fatalf("GetQuestionComplete: %v", err)
		}
		switch full.Type {
		case model.TypeTrueFalse:
			if len(full.Options) != 2 || full.Options[0].Text != editor.TrueText {
				t.Errorf("true/false options = %+v", full.Options)
			}
		case model.TypeMultipleChoice:
			if len(full.Options) != 3 || full.CorrectOption == nil || *full.CorrectOption != 2 {
				t.Errorf("multiple choice = %+v", full)
			}
		case model.TypeFreeResponse:
			if len(full.Options) != 0 {
				t.Errorf("free response has options %+v", full.Options)
			}
		}
	}
}

func TestImportFormRejects(t *testing.T) {
	three := 3
	tests := []struct {
		name string
		qi   model.QuestionImport
	}{
		{"empty description", model.QuestionImport{Type: model.TypeMultipleChoice}},
		{"unknown type", model.QuestionImport{Description: "x", Type: "ensayo"}},
		{"correct out of range", model.QuestionImport{Description: "x", Type: model.TypeTrueFalse, CorrectOption: &three}},
		{"free response with options", model.QuestionImport{Description: "x", Type: model.TypeFreeResponse, Options: []string{"a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := importForm(tt.qi); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseOptionIndex(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"a", 1, false},
		{"C", 3, false},
		{"2", 2, false},
		{"ab", 0, true},
		{"?", 0, true},
	}
	for _, tt := range tests {
		got, err := parseOptionIndex(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseOptionIndex(%q) = %d, %v", tt.in, got, err)
		}
	}
}
