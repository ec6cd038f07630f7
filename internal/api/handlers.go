package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/leprikon-cz/availability/internal/availability"
	redisclient "github.com/leprikon-cz/availability/internal/redis"
	"github.com/leprikon-cz/availability/internal/schedule"
)

// ScheduleService is the slice of the schedule service the handlers use.
type ScheduleService interface {
	BusinessHours(ctx context.Context, activityID uuid.UUID, from, to time.Time) ([]availability.Window, error)
	UnavailableDates(ctx context.Context, activityID uuid.UUID, from, to time.Time) ([]string, error)
	DisplayBounds(ctx context.Context, activityID uuid.UUID, from, to time.Time) (availability.Bounds, error)
	EvaluateSelection(ctx context.Context, activityID uuid.UUID, start, end time.Time) (availability.Slot, error)
	CommitSelection(ctx context.Context, activityID, clientID uuid.UUID, start, end time.Time) (*schedule.Selection, error)
	CurrentSelection(ctx context.Context, activityID, clientID uuid.UUID) (*schedule.Selection, error)
	ConfirmSelection(ctx context.Context, id uuid.UUID) (*schedule.Selection, error)
}

func parseActivityID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_activity_id", "id must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseDateRange reads the widget's ?start=YYYY-MM-DD&end=YYYY-MM-DD
// query parameters.
func parseDateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	from, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date_range", "start must be a YYYY-MM-DD date")
		return time.Time{}, time.Time{}, false
	}
	to, err := time.Parse("2006-01-02", r.URL.Query().Get("end"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date_range", "end must be a YYYY-MM-DD date")
		return time.Time{}, time.Time{}, false
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "invalid_date_range", "end must not be before start")
		return time.Time{}, time.Time{}, false
	}
	return from, to, true
}

func unavailableDatesHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activityID, ok := parseActivityID(w, r)
		if !ok {
			return
		}
		from, to, ok := parseDateRange(w, r)
		if !ok {
			return
		}

		dates, err := svc.UnavailableDates(r.Context(), activityID, from, to)
		if err != nil {
			handleCalendarError(w, err)
			return
		}

		events := make([]BackgroundEvent, 0, len(dates))
		for _, d := range dates {
			events = append(events, BackgroundEvent{Start: d, Display: "background"})
		}

		writeJSON(w, http.StatusOK, events)
	}
}

func businessHoursHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activityID, ok := parseActivityID(w, r)
		if !ok {
			return
		}
		from, to, ok := parseDateRange(w, r)
		if !ok {
			return
		}

		windows, err := svc.BusinessHours(r.Context(), activityID, from, to)
		if err != nil {
			handleCalendarError(w, err)
			return
		}

		if windows == nil {
			windows = []availability.Window{}
		}
		writeJSON(w, http.StatusOK, windows)
	}
}

func displayBoundsHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activityID, ok := parseActivityID(w, r)
		if !ok {
			return
		}
		from, to, ok := parseDateRange(w, r)
		if !ok {
			return
		}

		bounds, err := svc.DisplayBounds(r.Context(), activityID, from, to)
		if err != nil {
			handleCalendarError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, DisplayBoundsResponse{
			MinTime: bounds.MinTime,
			MaxTime: bounds.MaxTime,
		})
	}
}

func evaluateSelectionHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activityID, ok := parseActivityID(w, r)
		if !ok {
			return
		}

		var req EvaluateSelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if req.Start.IsZero() || req.End.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_range", "start and end are required")
			return
		}

		slot, err := svc.EvaluateSelection(r.Context(), activityID, req.Start, req.End)
		if err != nil {
			handleSelectionError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, SlotResponse{Start: slot.Start, End: slot.End})
	}
}

func commitSelectionHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activityID, ok := parseActivityID(w, r)
		if !ok {
			return
		}

		var req CommitSelectionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		clientID, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}
		if req.Start.IsZero() || req.End.IsZero() {
			writeError(w, http.StatusBadRequest, "invalid_range", "start and end are required")
			return
		}

		sel, err := svc.CommitSelection(r.Context(), activityID, clientID, req.Start, req.End)
		if err != nil {
			handleSelectionError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, selectionResponse(sel))
	}
}

// currentSelectionHandler restores a client's live selection, e.g. when
// the widget reloads with a form still holding a slot.
func currentSelectionHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activityID, ok := parseActivityID(w, r)
		if !ok {
			return
		}

		clientID, err := uuid.Parse(chi.URLParam(r, "clientID"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a valid UUID")
			return
		}

		sel, err := svc.CurrentSelection(r.Context(), activityID, clientID)
		if err != nil {
			handleConfirmError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, selectionResponse(sel))
	}
}

func confirmSelectionHandler(svc ScheduleService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_selection_id", "id must be a valid UUID")
			return
		}

		sel, err := svc.ConfirmSelection(r.Context(), id)
		if err != nil {
			handleConfirmError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, selectionResponse(sel))
	}
}

func selectionResponse(sel *schedule.Selection) SelectionResponse {
	return SelectionResponse{
		ID:         sel.ID,
		ActivityID: sel.ActivityID,
		ClientID:   sel.ClientID,
		Start:      sel.StartTime,
		End:        sel.EndTime,
		Status:     string(sel.Status),
		ExpiresAt:  sel.ExpiresAt,
		FormFields: FormFields{
			Label:     sel.Label,
			StartDate: sel.StartTime.Format("2006-01-02"),
			StartTime: sel.StartTime.Format("15:04:05"),
		},
	}
}

func handleCalendarError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "activity_not_found", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleSelectionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrActivityNotFound):
		writeError(w, http.StatusNotFound, "activity_not_found", err.Error())
	case errors.Is(err, schedule.ErrNoFit):
		writeError(w, http.StatusUnprocessableEntity, "no_fit", "no business-hours window can accommodate the selected range")
	case errors.Is(err, schedule.ErrDateUnavailable):
		writeError(w, http.StatusConflict, "date_unavailable", err.Error())
	case errors.Is(err, schedule.ErrSelectionBeingCommitted),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "selection_being_committed", "selection is currently being committed, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

func handleConfirmError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrSelectionNotFound):
		writeError(w, http.StatusNotFound, "selection_not_found", err.Error())
	case errors.Is(err, schedule.ErrSelectionExpiredState):
		writeError(w, http.StatusConflict, "selection_expired", err.Error())
	case errors.Is(err, schedule.ErrInvalidStatusTransition):
		writeError(w, http.StatusConflict, "invalid_status_transition", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
