package schedule

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrActivityNotFound  = errors.New("activity not found")
	ErrSelectionNotFound = errors.New("selection not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	GetActivityByID(ctx context.Context, id uuid.UUID) (*Activity, error)

	// Calendar data for a visible date range
	ListWeeklyTimeRules(ctx context.Context, activityID uuid.UUID, from, to time.Time) ([]WeeklyTimeRule, error)
	ListBlockedDates(ctx context.Context, activityID uuid.UUID, from, to time.Time) ([]BlockedDate, error)

	// Selections
	UpsertSelection(ctx context.Context, sel Selection) (*Selection, error)
	GetSelectionByID(ctx context.Context, id uuid.UUID) (*Selection, error)
	GetSelectionForClient(ctx context.Context, activityID, clientID uuid.UUID) (*Selection, error)
	UpdateSelectionStatus(ctx context.Context, id uuid.UUID, from, to SelectionStatus) (*Selection, error)

	// Expiry worker
	FindExpiredPending(ctx context.Context, now time.Time) ([]Selection, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
