package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/leprikon-cz/availability/internal/availability"
)

type EvaluateSelectionRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type CommitSelectionRequest struct {
	ClientID string    `json:"client_id"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// FormFields is the payload the registration form consumes when a slot
// is committed: a display label plus machine-readable date and time.
type FormFields struct {
	Label     string `json:"label"`
	StartDate string `json:"start_date"`
	StartTime string `json:"start_time"`
}

type SelectionResponse struct {
	ID         uuid.UUID  `json:"id"`
	ActivityID uuid.UUID  `json:"activity_id"`
	ClientID   uuid.UUID  `json:"client_id"`
	Start      time.Time  `json:"start"`
	End        time.Time  `json:"end"`
	Status     string     `json:"status"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	FormFields FormFields `json:"form_fields"`
}

// BackgroundEvent is an unavailable day in the shape the calendar widget
// renders directly as a background entry.
type BackgroundEvent struct {
	Start   string `json:"start"`
	Display string `json:"display"`
}

type DisplayBoundsResponse struct {
	MinTime availability.TimeOfDay `json:"minTime"`
	MaxTime availability.TimeOfDay `json:"maxTime"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
