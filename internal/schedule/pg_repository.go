package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leprikon-cz/availability/internal/availability"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanActivity(row pgx.Row) (*Activity, error) {
	var a Activity
	var maxEndDate *time.Time

	err := row.Scan(
		&a.ID,
		&a.Name,
		&a.DurationSeconds,
		&a.MinStartDate,
		&maxEndDate,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, err
	}

	a.MaxEndDate = maxEndDate
	return &a, nil
}

func scanWeeklyTimeRule(row pgx.Row) (*WeeklyTimeRule, error) {
	var r WeeklyTimeRule
	var days, startSec, endSec int
	var startDate, endDate *time.Time

	err := row.Scan(
		&r.ID,
		&r.ActivityID,
		&days,
		&startSec,
		&endSec,
		&startDate,
		&endDate,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Days = DaysOfWeek(days)
	r.StartTime = availability.TimeOfDay(startSec)
	r.EndTime = availability.TimeOfDay(endSec)
	r.StartDate = startDate
	r.EndDate = endDate
	return &r, nil
}

func scanSelection(row pgx.Row) (*Selection, error) {
	var s Selection
	var expiresAt *time.Time

	err := row.Scan(
		&s.ID,
		&s.ActivityID,
		&s.ClientID,
		&s.StartTime,
		&s.EndTime,
		&s.Label,
		&s.Status,
		&expiresAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSelectionNotFound
		}
		return nil, err
	}

	s.ExpiresAt = expiresAt
	return &s, nil
}

// Interface methods

func (r *PgRepository) GetActivityByID(ctx context.Context, id uuid.UUID) (*Activity, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, duration_seconds, min_start_date, max_end_date, created_at, updated_at
		FROM activities
		WHERE id = $1
	`, id)
	return scanActivity(row)
}

func (r *PgRepository) ListWeeklyTimeRules(ctx context.Context, activityID uuid.UUID, from, to time.Time) ([]WeeklyTimeRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, activity_id, days_of_week, start_seconds, end_seconds,
		       start_date, end_date, created_at, updated_at
		FROM weekly_time_rules
		WHERE activity_id = $1
		  AND (start_date IS NULL OR start_date < $3)
		  AND (end_date IS NULL OR end_date >= $2)
		ORDER BY created_at, id
	`, activityID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WeeklyTimeRule
	for rows.Next() {
		rule, err := scanWeeklyTimeRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListBlockedDates(ctx context.Context, activityID uuid.UUID, from, to time.Time) ([]BlockedDate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT activity_id, day, reason
		FROM blocked_dates
		WHERE activity_id = $1
		  AND day >= $2
		  AND day <= $3
		ORDER BY day
	`, activityID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BlockedDate
	for rows.Next() {
		var b BlockedDate
		if err := rows.Scan(&b.ActivityID, &b.Day, &b.Reason); err != nil {
			return nil, err
		}
		result = append(result, b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpsertSelection(ctx context.Context, sel Selection) (*Selection, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO selections (id, activity_id, client_id, start_time, end_time, label, status, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending', $7, now(), now())
		ON CONFLICT (activity_id, client_id) DO UPDATE
		SET start_time = EXCLUDED.start_time,
		    end_time = EXCLUDED.end_time,
		    label = EXCLUDED.label,
		    status = 'pending',
		    expires_at = EXCLUDED.expires_at,
		    updated_at = now()
		RETURNING id, activity_id, client_id, start_time, end_time, label, status, expires_at, created_at, updated_at
	`, sel.ID, sel.ActivityID, sel.ClientID, sel.StartTime, sel.EndTime, sel.Label, sel.ExpiresAt)

	return scanSelection(row)
}

func (r *PgRepository) GetSelectionByID(ctx context.Context, id uuid.UUID) (*Selection, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, activity_id, client_id, start_time, end_time, label, status, expires_at, created_at, updated_at
		FROM selections
		WHERE id = $1
	`, id)
	return scanSelection(row)
}

func (r *PgRepository) GetSelectionForClient(ctx context.Context, activityID, clientID uuid.UUID) (*Selection, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, activity_id, client_id, start_time, end_time, label, status, expires_at, created_at, updated_at
		FROM selections
		WHERE activity_id = $1
		  AND client_id = $2
	`, activityID, clientID)
	return scanSelection(row)
}

func (r *PgRepository) UpdateSelectionStatus(ctx context.Context, id uuid.UUID, from, to SelectionStatus) (*Selection, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE selections
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, activity_id, client_id, start_time, end_time, label, status, expires_at, created_at, updated_at
	`, id, to, from)

	return scanSelection(row)
}

func (r *PgRepository) FindExpiredPending(ctx context.Context, now time.Time) ([]Selection, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, activity_id, client_id, start_time, end_time, label, status, expires_at, created_at, updated_at
		FROM selections
		WHERE status = 'pending'
		  AND expires_at IS NOT NULL
		  AND expires_at < $1
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Selection
	for rows.Next() {
		s, err := scanSelection(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, selection_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.SelectionID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
