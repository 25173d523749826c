package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/skilllink/skilllink/internal/model"
)

// CreateInstitution inserts an institution.
func (s *Store) CreateInstitution(name string) (int64, error) {
	res, err := s.db.Exec(`INSERT INTO institutions (name) VALUES (?)`, name)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("institution %q: %w", name, ErrConflict)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// ListInstitutions returns all institutions.
func (s *Store) ListInstitutions() ([]model.Institution, error) {
	rows, err := s.db.Query(`SELECT id, name FROM institutions ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Institution
	for rows.Next() {
		var i model.Institution
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// CreateTutoring inserts a tutoring session.
func (s *Store) CreateTutoring(t model.Tutoring) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO tutorings (name, institution_id, tutor_id) VALUES (?, ?, ?)`,
		t.Name, t.InstitutionID, t.TutorID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("institution or tutor: %w", ErrInvalidReference)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetTutoring returns a tutoring session by ID.
func (s *Store) GetTutoring(id int64) (model.Tutoring, error) {
	var t model.Tutoring
	err := s.db.QueryRow(
		`SELECT id, name, institution_id, tutor_id FROM tutorings WHERE id = ?`, id,
	).Scan(&t.ID, &t.Name, &t.InstitutionID, &t.TutorID)
	return t, err
}

// ListTutorings returns all tutoring sessions.
func (s *Store) ListTutorings() ([]model.Tutoring, error) {
	rows, err := s.db.Query(`SELECT id, name, institution_id, tutor_id FROM tutorings ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Tutoring
	for rows.Next() {
		var t model.Tutoring
		if err := rows.Scan(&t.ID, &t.Name, &t.InstitutionID, &t.TutorID); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Enroll adds a student to a tutoring session.
func (s *Store) Enroll(tutoringID, studentID int64) (int64, error) {
	res, err := s.db.Exec(
		`INSERT INTO enrollments (tutoring_id, student_id, created_at) VALUES (?, ?, ?)`,
		tutoringID, studentID, time.Now(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("student %d already enrolled: %w", studentID, ErrConflict)
		}
		if isForeignKeyViolation(err) {
			return 0, fmt.Errorf("tutoring or student: %w", ErrInvalidReference)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetEnrollment returns an enrollment by ID.
func (s *Store) GetEnrollment(id int64) (model.Enrollment, error) {
	var e model.Enrollment
	err := s.db.QueryRow(
		`SELECT id, tutoring_id, student_id, created_at FROM enrollments WHERE id = ?`, id,
	).Scan(&e.ID, &e.TutoringID, &e.StudentID, &e.CreatedAt)
	return e, err
}

// IsEnrolled reports whether the student is enrolled in the tutoring session.
func (s *Store) IsEnrolled(tutoringID, studentID int64) (bool, error) {
	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM enrollments WHERE tutoring_id = ? AND student_id = ?`, tutoringID, studentID,
	).Scan(&n)
	return n > 0, err
}

// ListEnrollments returns enrollments filtered by tutoring or by student; zero means no filter.
func (s *Store) ListEnrollments(tutoringID, studentID int64) ([]model.Enrollment, error) {
	query := `SELECT id, tutoring_id, student_id, created_at FROM enrollments WHERE 1=1`
	var args []any
	if tutoringID != 0 {
		query += ` AND tutoring_id = ?`
		args = append(args, tutoringID)
	}
	if studentID != 0 {
		query += ` AND student_id = ?`
		args = append(args, studentID)
	}
	rows, err := s.db.Query(query+` ORDER BY id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(&e.ID, &e.TutoringID, &e.StudentID, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// RoomConflicts returns schedules in the same room and day whose time range
// overlaps [start, end). excludeID skips one schedule (the one being edited).
// Times are zero-padded "HH:MM" so they compare lexically.
func (s *Store) RoomConflicts(room string, day int, start, end string, excludeID int64) ([]model.Schedule, error) {
	rows, err := s.db.Query(
		`SELECT id, tutoring_id, room, day, start_time, end_time FROM schedules
		 WHERE room = ? AND day = ? AND start_time < ? AND end_time > ? AND id != ?
		 ORDER BY start_time`,
		room, day, end, start, excludeID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// CreateSchedule books a room for a tutoring session, refusing overlaps.
func (s *Store) CreateSchedule(sc model.Schedule) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var n int
	err = tx.QueryRow(
		`SELECT COUNT(*) FROM schedules WHERE room = ? AND day = ? AND start_time < ? AND end_time > ?`,
		sc.Room, sc.Day, sc.End, sc.Start,
	).Scan(&n)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, fmt.Errorf("room %q is booked: %w", sc.Room, ErrConflict)
	}

	res, err := tx.Exec(
		`INSERT INTO schedules (tutoring_id, room, day, start_time, end_time) VALUES (?, ?, ?, ?, ?)`,
		sc.TutoringID, sc.Room, sc.Day, sc.Start, sc.End,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

// GetSchedule returns a schedule by ID.
func (s *Store) GetSchedule(id int64) (model.Schedule, error) {
	var sc model.Schedule
	err := s.db.QueryRow(
		`SELECT id, tutoring_id, room, day, start_time, end_time FROM schedules WHERE id = ?`, id,
	).Scan(&sc.ID, &sc.TutoringID, &sc.Room, &sc.Day, &sc.Start, &sc.End)
	return sc, err
}

// ListSchedules returns the schedules of a tutoring session.
func (s *Store) ListSchedules(tutoringID int64) ([]model.Schedule, error) {
	rows, err := s.db.Query(
		`SELECT id, tutoring_id, room, day, start_time, end_time FROM schedules
		 WHERE tutoring_id = ? ORDER BY day, start_time`, tutoringID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSchedules(rows)
}

// DeleteSchedule removes a schedule.
func (s *Store) DeleteSchedule(id int64) error {
	return checkAffected(s.db.Exec(`DELETE FROM schedules WHERE id = ?`, id))
}

func scanSchedules(rows *sql.Rows) ([]model.Schedule, error) {
	var out []model.Schedule
	for rows.Next() {
		var sc model.Schedule
		if err := rows.Scan(&sc.ID, &sc.TutoringID, &sc.Room, &sc.Day, &sc.Start, &sc.End); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}
