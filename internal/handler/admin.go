package handler

import (
	"fmt"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/skilllink/skilllink/internal/model"
	"github.com/skilllink/skilllink/internal/policy"
)

type createUserRequest struct {
	Username      string       `json:"username" validate:"required,min=3,max=64"`
	Email         string       `json:"email" validate:"omitempty,email"`
	Password      string       `json:"password" validate:"required,min=6"`
	RoleID        model.RoleID `json:"rol_id" validate:"required,min=1,max=4"`
	InstitutionID *int64       `json:"id_institucion" validate:"required_if=RoleID 2"`
}

func (h *Handler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(users))
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.fail(w, r, fmt.Errorf("hash password: %w", err))
		return
	}

	id, err := h.store.CreateUser(model.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  string(hash),
		RoleID:        req.RoleID,
		InstitutionID: req.InstitutionID,
		Active:        true,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.store.GetUserByID(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) handleSetUserActive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req struct {
		Active *bool `json:"activo" validate:"required"`
	}
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.store.SetUserActive(id, *req.Active); err != nil {
		h.fail(w, r, err)
		return
	}
	user, err := h.store.GetUserByID(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) handleListInstitutions(w http.ResponseWriter, r *http.Request) {
	insts, err := h.store.ListInstitutions()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(insts))
}

func (h *Handler) handleCreateInstitution(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"nombre" validate:"required"`
	}
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := h.store.CreateInstitution(req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.Institution{ID: id, Name: req.Name})
}

type createTutoringRequest struct {
	Name          string `json:"nombre" validate:"required"`
	InstitutionID int64  `json:"id_institucion" validate:"required"`
	TutorID       int64  `json:"id_tutor" validate:"required"`
}

func (h *Handler) handleCreateTutoring(w http.ResponseWriter, r *http.Request) {
	var req createTutoringRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !policy.CanCreateTutoring(model.UserFromContext(r.Context()), req.InstitutionID) {
		h.fail(w, r, errForbidden)
		return
	}

	tutor, err := h.store.GetUserByID(req.TutorID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if tutor == nil || tutor.RoleID != model.RoleTutor {
		writeError(w, r, http.StatusBadRequest, "ErrInvalidReference")
		return
	}

	t := model.Tutoring{Name: req.Name, InstitutionID: req.InstitutionID, TutorID: req.TutorID}
	if t.ID, err = h.store.CreateTutoring(t); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// handleListTutorings returns the tutoring sessions the caller can see.
func (h *Handler) handleListTutorings(w http.ResponseWriter, r *http.Request) {
	u := model.UserFromContext(r.Context())
	all, err := h.store.ListTutorings()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	enrolled := map[int64]bool{}
	if u.RoleID == model.RoleStudent {
		enrollments, err := h.store.ListEnrollments(0, u.ID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		for _, e := range enrollments {
			enrolled[e.TutoringID] = true
		}
	}

	visible := []model.Tutoring{}
	for _, t := range all {
		if policy.For(u, t, enrolled[t.ID]).ViewTutoring {
			visible = append(visible, t)
		}
	}
	writeJSON(w, http.StatusOK, visible)
}

func (h *Handler) handleGetTutoring(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	caps, t, err := h.access(r, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ViewTutoring {
		h.fail(w, r, errForbidden)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *Handler) handleEnroll(w http.ResponseWriter, r *http.Request) {
	tutoringID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req struct {
		StudentID int64 `json:"id_estudiante"`
	}
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	u := model.UserFromContext(r.Context())
	caps, _, err := h.access(r, tutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	selfEnroll := u.RoleID == model.RoleStudent && (req.StudentID == 0 || req.StudentID == u.ID)
	if selfEnroll {
		req.StudentID = u.ID
	} else if !caps.ManageEnrollments {
		h.fail(w, r, errForbidden)
		return
	}

	student, err := h.store.GetUserByID(req.StudentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if student == nil || student.RoleID != model.RoleStudent {
		writeError(w, r, http.StatusBadRequest, "ErrInvalidReference")
		return
	}

	id, err := h.store.Enroll(tutoringID, req.StudentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	enr, err := h.store.GetEnrollment(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, enr)
}

func (h *Handler) handleListEnrollments(w http.ResponseWriter, r *http.Request) {
	tutoringID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	caps, _, err := h.access(r, tutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ViewEnrolled {
		h.fail(w, r, errForbidden)
		return
	}
	list, err := h.store.ListEnrollments(tutoringID, 0)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) handleMyEnrollments(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListEnrollments(0, model.UserFromContext(r.Context()).ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}
