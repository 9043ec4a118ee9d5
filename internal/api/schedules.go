package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/reedfamily/bdspanel/internal/scheduler"
)

type ScheduleHandler struct {
	sched *scheduler.Scheduler
}

func NewScheduleHandler(sched *scheduler.Scheduler) *ScheduleHandler {
	return &ScheduleHandler{sched: sched}
}

func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.sched.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list schedules")
		return
	}
	writeJSON(w, http.StatusOK, schedules)
}

func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		CronExpr string `json:"cron_expr"`
		Action   string `json:"action"`
		Command  string `json:"command"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := h.sched.Create(req.Name, req.CronExpr, req.Action, req.Command)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req scheduler.Update
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s, err := h.sched.Update(chi.URLParam(r, "scheduleId"), req)
	if err != nil {
		writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.sched.Delete(chi.URLParam(r, "scheduleId")); err != nil {
		writeScheduleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "schedule deleted"})
}

func writeScheduleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduler.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, scheduler.ErrInvalid):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
