package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/orderdeck/api/internal/database"
	"github.com/orderdeck/api/internal/hours"
)

// ScheduleStore defines the database methods needed by hours handlers.
// Satisfied by *database.Queries.
type ScheduleStore interface {
	GetWeeklySchedule(ctx context.Context, outletID uuid.UUID) ([]database.ScheduleDay, error)
}

// HoursHandler answers whether an outlet is currently open.
type HoursHandler struct {
	store ScheduleStore
	now   func() time.Time
}

func NewHoursHandler(store ScheduleStore) *HoursHandler {
	return &HoursHandler{store: store, now: time.Now}
}

type hoursResponse struct {
	Open    bool   `json:"open"`
	Message string `json:"message"`
}

// RegisterRoutes registers hours endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/hours
func (h *HoursHandler) RegisterRoutes(r chi.Router) {
	r.Get("/now", h.Now)
}

// Now handles GET /outlets/{oid}/hours/now.
func (h *HoursHandler) Now(w http.ResponseWriter, r *http.Request) {
	outletID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid outlet ID")
		return
	}

	days, err := h.store.GetWeeklySchedule(r.Context(), outletID)
	if err != nil {
		log.Printf("ERROR: get weekly schedule: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	var sched hours.Schedule
	for _, d := range days {
		if d.Weekday < 0 || d.Weekday > 6 {
			continue
		}
		sched[d.Weekday] = hours.DayHours{
			Open:   d.OpenTime,
			Close:  d.CloseTime,
			IsOpen: d.IsOpen,
		}
	}

	eval := hours.Evaluate(sched, h.now())
	writeJSON(w, http.StatusOK, hoursResponse{Open: eval.Open, Message: eval.Message})
}
