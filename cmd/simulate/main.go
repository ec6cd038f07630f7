package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leprikon-cz/availability/internal/config"
	"github.com/leprikon-cz/availability/internal/db"
)

// The simulator replays the calendar widget's traffic: week navigations
// fetching business hours, drag gestures evaluated dry, commits that
// replace a client's selection, and occasional form confirms.

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	EvaluateRatio float64
	CommitRatio   float64
	ConfirmRatio  float64
	HoursRatio    float64
	ActivityLimit int
	PostgresDSN   string
}

type DataPool struct {
	Activities []uuid.UUID
	mu         sync.RWMutex
	selections []uuid.UUID
}

func (dp *DataPool) AddSelection(id uuid.UUID) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.selections = append(dp.selections, id)
}

func (dp *DataPool) GetRandomSelection() (uuid.UUID, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.selections) == 0 {
		return uuid.Nil, false
	}
	idx := rand.Intn(len(dp.selections))
	return dp.selections[idx], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	NoFit     int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int, err error) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case err == nil && status >= 200 && status < 300:
		atomic.AddInt64(&om.Success, 1)
	case err == nil && status == http.StatusUnprocessableEntity:
		atomic.AddInt64(&om.NoFit, 1)
	case err == nil && status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p50Idx := len(latencies) * 50 / 100
	if p50Idx >= len(latencies) {
		p50Idx = len(latencies) - 1
	}
	p50 = latencies[p50Idx]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Evaluate OperationMetrics
	Commit   OperationMetrics
	Confirm  OperationMetrics
	Hours    OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d evaluate=%.2f commit=%.2f confirm=%.2f hours=%.2f",
		cfg.Duration, cfg.Workers, cfg.EvaluateRatio, cfg.CommitRatio, cfg.ConfirmRatio, cfg.HoursRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d activities", len(dataPool.Activities))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		EvaluateRatio: getFloat("SIM_EVALUATE_RATIO", 0.4),
		CommitRatio:   getFloat("SIM_COMMIT_RATIO", 0.3),
		ConfirmRatio:  getFloat("SIM_CONFIRM_RATIO", 0.1),
		HoursRatio:    getFloat("SIM_HOURS_RATIO", 0.2),
		ActivityLimit: getInt("SIM_ACTIVITY_LIMIT", 200),
		PostgresDSN:   baseCfg.PostgresDSN,
	}

	// Normalize ratios
	total := cfg.EvaluateRatio + cfg.CommitRatio + cfg.ConfirmRatio + cfg.HoursRatio
	if total > 0 {
		cfg.EvaluateRatio /= total
		cfg.CommitRatio /= total
		cfg.ConfirmRatio /= total
		cfg.HoursRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	return nil
}

func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT id FROM activities LIMIT $1
	`, cfg.ActivityLimit)
	if err != nil {
		return nil, fmt.Errorf("load activities: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		dataPool.Activities = append(dataPool.Activities, id)
	}

	if len(dataPool.Activities) == 0 {
		return nil, fmt.Errorf("no activities loaded, run the seed first")
	}

	return dataPool, nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	// One stable client per worker so commits exercise selection replacement.
	clientID := uuid.New()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.EvaluateRatio:
				s.doEvaluate(ctx, rng)
			case r < s.config.EvaluateRatio+s.config.CommitRatio:
				s.doCommit(ctx, rng, clientID)
			case r < s.config.EvaluateRatio+s.config.CommitRatio+s.config.ConfirmRatio:
				s.doConfirm(ctx)
			default:
				s.doBusinessHours(ctx, rng)
			}
		}
	}
}

// randomDrag produces the kind of raw range a drag gesture emits: an
// arbitrary start in the next three weeks with an arbitrary length.
func randomDrag(rng *rand.Rand) (time.Time, time.Time) {
	day := time.Now().AddDate(0, 0, rng.Intn(21)+1).Truncate(24 * time.Hour)
	start := day.Add(time.Duration(rng.Intn(14)+7) * time.Hour).Add(time.Duration(rng.Intn(4)*15) * time.Minute)
	end := start.Add(time.Duration(rng.Intn(140)+10) * time.Minute)
	return start, end
}

func (s *Simulator) doEvaluate(ctx context.Context, rng *rand.Rand) {
	activityID := s.pool.Activities[rng.Intn(len(s.pool.Activities))]
	dragStart, dragEnd := randomDrag(rng)

	reqBody := map[string]string{
		"start": dragStart.Format(time.RFC3339),
		"end":   dragEnd.Format(time.RFC3339),
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/activities/%s/selections/evaluate", s.config.APIBaseURL, activityID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	status := 0
	if err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		status = resp.StatusCode
	}

	s.metrics.Evaluate.Record(latency, status, err)
}

func (s *Simulator) doCommit(ctx context.Context, rng *rand.Rand, clientID uuid.UUID) {
	activityID := s.pool.Activities[rng.Intn(len(s.pool.Activities))]
	dragStart, dragEnd := randomDrag(rng)

	reqBody := map[string]string{
		"client_id": clientID.String(),
		"start":     dragStart.Format(time.RFC3339),
		"end":       dragEnd.Format(time.RFC3339),
	}
	body, _ := json.Marshal(reqBody)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/activities/%s/selections", s.config.APIBaseURL, activityID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	status := 0
	if err == nil {
		status = resp.StatusCode
		if status == http.StatusCreated {
			var selResp struct {
				ID uuid.UUID `json:"id"`
			}
			bodyBytes, _ := io.ReadAll(resp.Body)
			if json.Unmarshal(bodyBytes, &selResp) == nil && selResp.ID != uuid.Nil {
				s.pool.AddSelection(selResp.ID)
			}
		} else {
			io.Copy(io.Discard, resp.Body)
		}
		resp.Body.Close()
	}

	s.metrics.Commit.Record(latency, status, err)
}

func (s *Simulator) doConfirm(ctx context.Context) {
	selID, ok := s.pool.GetRandomSelection()
	if !ok {
		return
	}

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/selections/%s/confirm", s.config.APIBaseURL, selID), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	status := 0
	if err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		status = resp.StatusCode
	}

	s.metrics.Confirm.Record(latency, status, err)
}

func (s *Simulator) doBusinessHours(ctx context.Context, rng *rand.Rand) {
	activityID := s.pool.Activities[rng.Intn(len(s.pool.Activities))]
	weekStart := time.Now().AddDate(0, 0, rng.Intn(28)).Truncate(24 * time.Hour)
	weekEnd := weekStart.AddDate(0, 0, 7)

	start := time.Now()
	req, _ := http.NewRequestWithContext(ctx, "GET",
		fmt.Sprintf("%s/activities/%s/business-hours?start=%s&end=%s",
			s.config.APIBaseURL, activityID,
			weekStart.Format("2006-01-02"), weekEnd.Format("2006-01-02")), nil)

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	status := 0
	if err == nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		status = resp.StatusCode
	}

	s.metrics.Hours.Record(latency, status, err)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Evaluate", &s.metrics.Evaluate)
	printOperationReport("Commit", &s.metrics.Commit)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Business Hours", &s.metrics.Hours)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	noFit := atomic.LoadInt64(&om.NoFit)
	conflict := atomic.LoadInt64(&om.Conflict)
	errCount := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if noFit > 0 {
		fmt.Printf("  No fit: %d (%.1f%%)\n", noFit, float64(noFit)/float64(total)*100)
	}
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if errCount > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", errCount, float64(errCount)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

// Helper functions

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
