// Package policy derives what a user may do with a tutoring session.
package policy

import "github.com/skilllink/skilllink/internal/model"

// Capabilities is the set of actions a user may take on one tutoring session.
type Capabilities struct {
	ManageEvaluations bool
	ManageQuestions   bool
	ManageOptions     bool
	ManageSchedules   bool
	ManageEnrollments bool
	ViewEnrolled      bool
	Grade             bool
	ViewTutoring      bool
	TakeEvaluations   bool
}

// Scope describes how a user relates to a tutoring session.
type Scope int

const (
	ScopeNone Scope = iota
	ScopeAdmin
	ScopeInstitutionManager
	ScopeOwningTutor
	ScopeEnrolledStudent
)

// ScopeOf classifies the relation between u and t. enrolled only matters for students.
func ScopeOf(u *model.User, t model.Tutoring, enrolled bool) Scope {
	if u == nil || !u.Active {
		return ScopeNone
	}
	switch u.RoleID {
	case model.RoleAdmin:
		return ScopeAdmin
	case model.RoleManager:
		if u.InstitutionID != nil && *u.InstitutionID == t.InstitutionID {
			return ScopeInstitutionManager
		}
	case model.RoleTutor:
		if u.ID == t.TutorID {
			return ScopeOwningTutor
		}
	case model.RoleStudent:
		if enrolled {
			return ScopeEnrolledStudent
		}
	}
	return ScopeNone
}

// For returns the capabilities of u on tutoring t.
func For(u *model.User, t model.Tutoring, enrolled bool) Capabilities {
	scope := ScopeOf(u, t, enrolled)
	staff := scope == ScopeAdmin || scope == ScopeInstitutionManager || scope == ScopeOwningTutor
	return Capabilities{
		ManageEvaluations: staff,
		ManageQuestions:   staff,
		ManageOptions:     staff,
		ManageSchedules:   scope == ScopeAdmin || scope == ScopeInstitutionManager,
		ManageEnrollments: staff,
		ViewEnrolled:      staff,
		Grade:             staff,
		ViewTutoring:      staff || scope == ScopeEnrolledStudent,
		TakeEvaluations:   scope == ScopeEnrolledStudent,
	}
}

// CanManageEvaluations is true for admins, managers of the tutoring's
// institution and the tutor who owns it.
func CanManageEvaluations(u *model.User, t model.Tutoring) bool {
	return For(u, t, false).ManageEvaluations
}

// CanCreateTutoring reports whether u may open a tutoring session at institutionID.
func CanCreateTutoring(u *model.User, institutionID int64) bool {
	if u == nil || !u.Active {
		return false
	}
	switch u.RoleID {
	case model.RoleAdmin:
		return true
	case model.RoleManager:
		return u.InstitutionID != nil && *u.InstitutionID == institutionID
	}
	return false
}
