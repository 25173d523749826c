package policy

import (
	"testing"

	"github.com/skilllink/skilllink/internal/model"
)

func ptr(v int64) *int64 { return &v }

func TestCanManageEvaluations(t *testing.T) {
	tut := model.Tutoring{ID: 10, InstitutionID: 1, TutorID: 7}

	tests := []struct {
		name string
		user *model.User
		want bool
	}{
		{"nil user", nil, false},
		{"admin", &model.User{ID: 1, RoleID: model.RoleAdmin, Active: true}, true},
		{"inactive admin", &model.User{ID: 1, RoleID: model.RoleAdmin}, false},
		{"manager same institution", &model.User{ID: 2, RoleID: model.RoleManager, InstitutionID: ptr(1), Active: true}, true},
		{"manager other institution", &model.User{ID: 2, RoleID: model.RoleManager, InstitutionID: ptr(2), Active: true}, false},
		{"manager without institution", &model.User{ID: 2, RoleID: model.RoleManager, Active: true}, false},
		{"owning tutor", &model.User{ID: 7, RoleID: model.RoleTutor, Active: true}, true},
		{"other tutor", &model.User{ID: 8, RoleID: model.RoleTutor, Active: true}, false},
		{"student", &model.User{ID: 7, RoleID: model.RoleStudent, InstitutionID: ptr(1), Active: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanManageEvaluations(tt.user, tut); got != tt.want {
				t.Errorf("CanManageEvaluations() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStudentNeverManages(t *testing.T) {
	tut := model.Tutoring{ID: 10, InstitutionID: 1, TutorID: 4}
	student := &model.User{ID: 4, RoleID: model.RoleStudent, InstitutionID: ptr(1), Active: true}

	for _, enrolled := range []bool{false, true} {
		caps := For(student, tut, enrolled)
		if caps.ManageEvaluations || caps.ManageQuestions || caps.ManageOptions ||
			caps.ManageSchedules || caps.ManageEnrollments || caps.Grade || caps.ViewEnrolled {
			t.Errorf("enrolled=%v: student got staff capability: %+v", enrolled, caps)
		}
		if caps.TakeEvaluations != enrolled || caps.ViewTutoring != enrolled {
			t.Errorf("enrolled=%v: take=%v view=%v", enrolled, caps.TakeEvaluations, caps.ViewTutoring)
		}
	}
}

func TestSchedulesAreInstitutionScoped(t *testing.T) {
	tut := model.Tutoring{ID: 10, InstitutionID: 1, TutorID: 7}
	tutor := &model.User{ID: 7, RoleID: model.RoleTutor, Active: true}
	manager := &model.User{ID: 2, RoleID: model.RoleManager, InstitutionID: ptr(1), Active: true}

	if For(tutor, tut, false).ManageSchedules {
		t.Error("tutor should not manage schedules")
	}
	if !For(manager, tut, false).ManageSchedules {
		t.Error("manager of the institution should manage schedules")
	}
}

func TestCanCreateTutoring(t *testing.T) {
	admin := &model.User{RoleID: model.RoleAdmin, Active: true}
	manager := &model.User{RoleID: model.RoleManager, InstitutionID: ptr(3), Active: true}
	tutor := &model.User{RoleID: model.RoleTutor, Active: true}

	if !CanCreateTutoring(admin, 9) {
		t.Error("admin should create anywhere")
	}
	if !CanCreateTutoring(manager, 3) || CanCreateTutoring(manager, 4) {
		t.Error("manager should create only in own institution")
	}
	if CanCreateTutoring(tutor, 3) {
		t.Error("tutor should not create tutoring sessions")
	}
}
