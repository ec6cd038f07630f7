package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/leprikon-cz/availability/internal/availability"
	"github.com/leprikon-cz/availability/internal/config"
	redisclient "github.com/leprikon-cz/availability/internal/redis"
)

const (
	EventSelectionCommitted = "SELECTION_COMMITTED"
	EventSelectionConfirmed = "SELECTION_CONFIRMED"
	EventSelectionExpired   = "SELECTION_EXPIRED"
)

var (
	ErrNoFit                   = errors.New("no business-hours window fits the selected range")
	ErrDateUnavailable         = errors.New("date is not available for selection")
	ErrSelectionBeingCommitted = errors.New("selection is currently being committed, please retry")
	ErrSelectionExpiredState   = errors.New("selection is already expired")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	hours  *HoursCache
	cfg    config.Config
}

func NewService(repo Repository, locker redisclient.Locker, hours *HoursCache, cfg config.Config) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		hours:  hours,
		cfg:    cfg,
	}
}

// BusinessHours returns the flattened window list for a visible date
// range, the payload the calendar widget installs on every week-view
// navigation. Rules are cached per activity; flattening always runs
// against the requested range, so a validity-limited rule never leaks
// windows into weeks where it is inactive.
func (s *Service) BusinessHours(ctx context.Context, activityID uuid.UUID, from, to time.Time) ([]availability.Window, error) {
	if s.hours != nil {
		if rules, ok := s.hours.Get(activityID, from, to); ok {
			return FlattenRules(rules, from, to), nil
		}
	}

	if _, err := s.repo.GetActivityByID(ctx, activityID); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load activity: %w", err)
	}

	rules, err := s.repo.ListWeeklyTimeRules(ctx, activityID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list weekly time rules: %w", err)
	}

	if s.hours != nil {
		s.hours.Store(activityID, rules, from, to)
	}

	return FlattenRules(rules, from, to), nil
}

// UnavailableDates returns the ISO dates on which no selection is
// permitted, rendered by the widget as background events.
func (s *Service) UnavailableDates(ctx context.Context, activityID uuid.UUID, from, to time.Time) ([]string, error) {
	if _, err := s.repo.GetActivityByID(ctx, activityID); err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load activity: %w", err)
	}

	blocked, err := s.repo.ListBlockedDates(ctx, activityID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}

	dates := make([]string, 0, len(blocked))
	for _, b := range blocked {
		dates = append(dates, ISODate(b.Day))
	}
	return dates, nil
}

// DisplayBounds derives the visible time-of-day bounds for a date range.
func (s *Service) DisplayBounds(ctx context.Context, activityID uuid.UUID, from, to time.Time) (availability.Bounds, error) {
	windows, err := s.BusinessHours(ctx, activityID, from, to)
	if err != nil {
		return availability.Bounds{}, err
	}
	return availability.ComputeBounds(windows), nil
}

// engineFor builds an engine loaded with the activity's duration, the
// blocked dates of the week containing start, and that week's windows.
func (s *Service) engineFor(ctx context.Context, activityID uuid.UUID, start time.Time) (*availability.Engine, error) {
	activity, err := s.repo.GetActivityByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, ErrActivityNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load activity: %w", err)
	}

	weekFrom, weekTo := WeekRange(start)

	blocked, err := s.repo.ListBlockedDates(ctx, activityID, weekFrom, weekTo)
	if err != nil {
		return nil, fmt.Errorf("list blocked dates: %w", err)
	}
	dates := make([]string, 0, len(blocked))
	for _, b := range blocked {
		dates = append(dates, ISODate(b.Day))
	}

	eng := availability.NewEngine(activity.DurationSeconds, dates)

	windows, err := s.BusinessHours(ctx, activityID, weekFrom, weekTo)
	if err != nil {
		return nil, err
	}
	eng.SetWindows(windows)

	return eng, nil
}

// EvaluateSelection normalizes a raw selected range without committing
// anything. Callers use it to allow or reject a drag before accepting it.
func (s *Service) EvaluateSelection(ctx context.Context, activityID uuid.UUID, start, end time.Time) (availability.Slot, error) {
	eng, err := s.engineFor(ctx, activityID, start)
	if err != nil {
		return availability.Slot{}, err
	}

	if !eng.IsDateAvailable(ISODate(start)) {
		return availability.Slot{}, ErrDateUnavailable
	}

	slot, ok := eng.EvaluateRange(start, end)
	if !ok {
		return availability.Slot{}, ErrNoFit
	}

	return slot, nil
}

// CommitSelection evaluates a raw range and stores the normalized slot as
// the client's current selection, replacing any previous one. The commit
// runs under a per-(activity, client) lock so concurrent commits cannot
// interleave their replace.
func (s *Service) CommitSelection(ctx context.Context, activityID, clientID uuid.UUID, start, end time.Time) (*Selection, error) {
	slot, err := s.EvaluateSelection(ctx, activityID, start, end)
	if err != nil {
		return nil, err
	}

	var committed *Selection

	err = s.locker.WithSelectionLock(ctx, activityID, clientID, func(lockCtx context.Context) error {
		expiresAt := time.Now().Add(s.cfg.SelectionTTL)
		stored, err := s.repo.UpsertSelection(lockCtx, Selection{
			ID:         uuid.New(),
			ActivityID: activityID,
			ClientID:   clientID,
			StartTime:  slot.Start,
			EndTime:    slot.End,
			Label:      SlotLabel(slot),
			Status:     StatusPending,
			ExpiresAt:  &expiresAt,
		})
		if err != nil {
			return fmt.Errorf("upsert selection: %w", err)
		}

		committed = stored

		s.logEvent(lockCtx, stored.ID, EventSelectionCommitted, map[string]any{
			"activity_id": activityID.String(),
			"client_id":   clientID.String(),
			"start":       slot.Start,
			"end":         slot.End,
			"expires_at":  expiresAt,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSelectionBeingCommitted
		}
		return nil, err
	}

	return committed, nil
}

// CurrentSelection returns the client's live selection for an activity,
// the widget's restore-on-load path. Expired selections, including
// pending ones whose TTL has lapsed but that the worker has not swept
// yet, read as not found.
func (s *Service) CurrentSelection(ctx context.Context, activityID, clientID uuid.UUID) (*Selection, error) {
	sel, err := s.repo.GetSelectionForClient(ctx, activityID, clientID)
	if err != nil {
		if errors.Is(err, ErrSelectionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load selection: %w", err)
	}

	if sel.Status == StatusExpired {
		return nil, ErrSelectionNotFound
	}
	if sel.Status == StatusPending && sel.ExpiresAt != nil && sel.ExpiresAt.Before(time.Now()) {
		return nil, ErrSelectionNotFound
	}

	return sel, nil
}

// ConfirmSelection moves a pending selection to confirmed, typically when
// the registration form holding it is submitted.
func (s *Service) ConfirmSelection(ctx context.Context, id uuid.UUID) (*Selection, error) {
	sel, err := s.repo.GetSelectionByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load selection: %w", err)
	}

	now := time.Now()

	if sel.Status == StatusExpired {
		return nil, ErrSelectionExpiredState
	}

	if sel.ExpiresAt != nil && sel.ExpiresAt.Before(now) {
		_, updErr := s.repo.UpdateSelectionStatus(ctx, sel.ID, StatusPending, StatusExpired)
		if updErr != nil && !errors.Is(updErr, ErrSelectionNotFound) {
			log.Printf("failed to mark selection %s as expired during confirm: %v", sel.ID, updErr)
		}
		s.logEvent(ctx, sel.ID, EventSelectionExpired, map[string]any{
			"reason": "confirm_after_expiry",
		})
		return nil, ErrSelectionExpiredState
	}

	if sel.Status != StatusPending {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.repo.UpdateSelectionStatus(ctx, sel.ID, StatusPending, StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("confirm selection: %w", err)
	}

	s.logEvent(ctx, updated.ID, EventSelectionConfirmed, map[string]any{})

	return updated, nil
}

// ExpirePendingSelections is intended to be called by the worker periodically
func (s *Service) ExpirePendingSelections(ctx context.Context) error {
	now := time.Now()
	expiredCandidates, err := s.repo.FindExpiredPending(ctx, now)
	if err != nil {
		return fmt.Errorf("find expired pending selections: %w", err)
	}

	for _, sel := range expiredCandidates {
		_, err := s.repo.UpdateSelectionStatus(ctx, sel.ID, StatusPending, StatusExpired)
		if err != nil && !errors.Is(err, ErrSelectionNotFound) {
			log.Printf("failed to expire selection %s: %v", sel.ID, err)
			continue
		}
		s.logEvent(ctx, sel.ID, EventSelectionExpired, map[string]any{
			"reason": "worker",
		})
	}

	return nil
}

func (s *Service) logEvent(ctx context.Context, selectionID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	selID := selectionID

	ev := EventLog{
		EventType:   eventType,
		SelectionID: &selID,
		Payload:     data,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for selection %s: %v", eventType, selectionID, err)
	}
}

// WeekRange returns the Monday-to-Monday half-open range of the week
// containing t, matching the widget's week view (firstDay = 1).
func WeekRange(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	offset := (int(day.Weekday()) + 6) % 7
	from := day.AddDate(0, 0, -offset)
	return from, from.AddDate(0, 0, 7)
}
