package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leprikon-cz/availability/internal/db"
	"github.com/leprikon-cz/availability/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedActivities(context.Background(), pool, 50); err != nil {
		log.Fatalf("seed activities: %v", err)
	}

	log.Println("seed complete")
}

var activityKinds = []string{
	"Guitar lesson",
	"Piano lesson",
	"Swimming course",
	"Pottery workshop",
	"Chess club",
	"Climbing session",
	"Ballet class",
	"Drama rehearsal",
	"Language tutoring",
	"Robotics lab",
}

var durations = []int{1800, 2700, 3600, 5400}

func seedActivities(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d activities", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	today := time.Now().Truncate(24 * time.Hour)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := activityKinds[gofakeit.Number(0, len(activityKinds)-1)] + " with " + gofakeit.FirstName()
		duration := durations[gofakeit.Number(0, len(durations)-1)]
		maxEnd := today.AddDate(0, gofakeit.Number(2, 6), 0)

		_, err := tx.Exec(ctx, `
			INSERT INTO activities (id, name, duration_seconds, min_start_date, max_end_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
		`, id, name, duration, today, maxEnd)
		if err != nil {
			return err
		}

		if err := seedWeeklyTimeRules(ctx, tx, id); err != nil {
			return err
		}
		if err := seedBlockedDates(ctx, tx, id, today); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("activities seeded")
	return nil
}

func seedWeeklyTimeRules(ctx context.Context, tx pgx.Tx, activityID uuid.UUID) error {
	rules := gofakeit.Number(1, 3)
	for i := 0; i < rules; i++ {
		// Random contiguous day span starting Monday, random whole-hour window.
		days := schedule.DaysOfWeek(1<<gofakeit.Number(1, 5) - 1)
		startHour := gofakeit.Number(8, 14)
		endHour := startHour + gofakeit.Number(2, 6)
		if endHour > 21 {
			endHour = 21
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO weekly_time_rules (id, activity_id, days_of_week, start_seconds, end_seconds, start_date, end_date, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, NULL, NULL, now(), now())
		`, uuid.New(), activityID, int(days), startHour*3600, endHour*3600)
		if err != nil {
			return err
		}
	}
	return nil
}

func seedBlockedDates(ctx context.Context, tx pgx.Tx, activityID uuid.UUID, today time.Time) error {
	blocked := gofakeit.Number(0, 5)
	for i := 0; i < blocked; i++ {
		day := today.AddDate(0, 0, gofakeit.Number(1, 60))
		reason := gofakeit.Sentence(4)

		_, err := tx.Exec(ctx, `
			INSERT INTO blocked_dates (activity_id, day, reason)
			VALUES ($1, $2, $3)
			ON CONFLICT (activity_id, day) DO NOTHING
		`, activityID, day, reason)
		if err != nil {
			return err
		}
	}
	return nil
}
