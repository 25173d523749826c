package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/skilllink/skilllink/internal/model"
	"github.com/skilllink/skilllink/internal/store"
)

type scheduleRequest struct {
	Room  string `json:"aula" validate:"required"`
	Day   *int   `json:"dia" validate:"required,min=0,max=6"`
	Start string `json:"hora_inicio" validate:"required,datetime=15:04"`
	End   string `json:"hora_fin" validate:"required,datetime=15:04"`
}

const clockLayout = "15:04"

// normalize rewrites both times as zero-padded HH:MM, the form the store
// compares lexically, and checks that the range is not empty.
func (req *scheduleRequest) normalize() error {
	start, err := time.Parse(clockLayout, req.Start)
	if err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	end, err := time.Parse(clockLayout, req.End)
	if err != nil {
		return fmt.Errorf("%w: %w", errBadRequest, err)
	}
	if !start.Before(end) {
		return errInvalidTimes
	}
	req.Start, req.End = start.Format(clockLayout), end.Format(clockLayout)
	return nil
}

type availabilityResponse struct {
	Available bool             `json:"disponible"`
	Conflicts []model.Schedule `json:"conflictos"`
}

func (h *Handler) handleListSchedules(w http.ResponseWriter, r *http.Request) {
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
	if !caps.ViewTutoring {
		h.fail(w, r, errForbidden)
		return
	}
	list, err := h.store.ListSchedules(tutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(list))
}

func (h *Handler) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	tutoringID, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req scheduleRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := req.normalize(); err != nil {
		h.fail(w, r, err)
		return
	}
	caps, _, err := h.access(r, tutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageSchedules {
		h.fail(w, r, errForbidden)
		return
	}

	sc := model.Schedule{TutoringID: tutoringID, Room: req.Room, Day: *req.Day, Start: req.Start, End: req.End}
	sc.ID, err = h.store.CreateSchedule(sc)
	if errors.Is(err, store.ErrConflict) {
		writeError(w, r, http.StatusConflict, "ErrRoomBooked")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

func (h *Handler) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sc, err := h.store.GetSchedule(id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	caps, _, err := h.access(r, sc.TutoringID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !caps.ManageSchedules {
		h.fail(w, r, errForbidden)
		return
	}
	if err := h.store.DeleteSchedule(id); err != nil {
		h.fail(w, r, err)
		return
	}
	writeMessage(w, r, "ScheduleDeleted")
}

// handleRoomAvailability reports whether a room is free for a time range on a weekday.
func (h *Handler) handleRoomAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := scheduleRequest{Room: q.Get("aula"), Start: q.Get("hora_inicio"), End: q.Get("hora_fin")}
	if raw := q.Get("dia"); raw != "" {
		day, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, r, errBadRequest)
			return
		}
		req.Day = &day
	}
	if err := h.validate.Struct(req); err != nil {
		h.fail(w, r, err)
		return
	}
	if err := req.normalize(); err != nil {
		h.fail(w, r, err)
		return
	}

	var exclude int64
	if raw := q.Get("excluir"); raw != "" {
		var err error
		if exclude, err = strconv.ParseInt(raw, 10, 64); err != nil {
			h.fail(w, r, errBadRequest)
			return
		}
	}

	conflicts, err := h.store.RoomConflicts(req.Room, *req.Day, req.Start, req.End, exclude)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{Available: len(conflicts) == 0, Conflicts: nonNil(conflicts)})
}
