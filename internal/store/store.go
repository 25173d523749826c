package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

var (
	// ErrConflict reports a write that collides with existing data.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference reports a write pointing at a row of the wrong parent.
	ErrInvalidReference = errors.New("invalid reference")
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS institutions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE
	);

	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		password_hash TEXT NOT NULL,
		role_id INTEGER NOT NULL,
		institution_id INTEGER,
		active INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (institution_id) REFERENCES institutions(id)
	);

	CREATE TABLE IF NOT EXISTS auth_sessions (
		id TEXT PRIMARY KEY,
		user_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at DATETIME NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS tutorings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		institution_id INTEGER NOT NULL,
		tutor_id INTEGER NOT NULL,
		FOREIGN KEY (institution_id) REFERENCES institutions(id),
		FOREIGN KEY (tutor_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS enrollments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tutoring_id INTEGER NOT NULL,
		student_id INTEGER NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE (tutoring_id, student_id),
		FOREIGN KEY (tutoring_id) REFERENCES tutorings(id) ON DELETE CASCADE,
		FOREIGN KEY (student_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS schedules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tutoring_id INTEGER NOT NULL,
		room TEXT NOT NULL,
		day INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		FOREIGN KEY (tutoring_id) REFERENCES tutorings(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tutoring_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		deadline DATETIME,
		FOREIGN KEY (tutoring_id) REFERENCES tutorings(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS questions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tutoring_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		type TEXT NOT NULL,
		correct_option INTEGER,
		FOREIGN KEY (tutoring_id) REFERENCES tutorings(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS options (
		question_id INTEGER NOT NULL,
		letter_index INTEGER NOT NULL,
		text TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (question_id, letter_index),
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS evaluation_questions (
		evaluation_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		sort_order INTEGER NOT NULL DEFAULT 0,
		points REAL NOT NULL DEFAULT 1,
		PRIMARY KEY (evaluation_id, question_id),
		FOREIGN KEY (evaluation_id) REFERENCES evaluations(id) ON DELETE CASCADE,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS submissions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		evaluation_id INTEGER NOT NULL,
		enrollment_id INTEGER NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		max_score REAL NOT NULL DEFAULT 0,
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (evaluation_id) REFERENCES evaluations(id) ON DELETE CASCADE,
		FOREIGN KEY (enrollment_id) REFERENCES enrollments(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS submission_answers (
		submission_id INTEGER NOT NULL,
		question_id INTEGER NOT NULL,
		selected_option INTEGER,
		answer_text TEXT NOT NULL DEFAULT '',
		points REAL NOT NULL DEFAULT 0,
		feedback TEXT NOT NULL DEFAULT '',
		pending INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (submission_id, question_id),
		FOREIGN KEY (submission_id) REFERENCES submissions(id) ON DELETE CASCADE,
		FOREIGN KEY (question_id) REFERENCES questions(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS imported_files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// isUniqueViolation reports whether err came from a UNIQUE or PRIMARY KEY constraint.
func isUniqueViolation(err error) bool {
	return err != nil && containsAny(err.Error(), "UNIQUE constraint failed", "PRIMARY KEY constraint failed")
}

// isForeignKeyViolation reports whether err came from a FOREIGN KEY constraint.
func isForeignKeyViolation(err error) bool {
	return err != nil && containsAny(err.Error(), "FOREIGN KEY constraint failed")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// checkAffected turns a write that touched no rows into sql.ErrNoRows.
func checkAffected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
