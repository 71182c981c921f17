// README: Bench cases: environment checks, fare and booking API flows, a status race and throughput runs.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"taxibook/internal/infra"
)

const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
	StatusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := infra.NewDB(ctx, r.cfg.DSN); err == nil {
			r.db = db
		} else {
			fmt.Fprintf(os.Stderr, "db: %v\n", err)
		}
	}
	if r.cfg.RedisAddr != "" {
		if rdb, err := infra.NewRedis(ctx, r.cfg.RedisAddr); err == nil {
			r.redis = rdb
		} else {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
		}
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))

	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}

	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{
			Name: "Env: Postgres connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "db not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.db.Ping(ctx); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Env: Redis connect",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusSkip, Note: "redis not configured"}
				}
				ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
				defer cancel()
				if err := r.redis.Ping(ctx).Err(); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: apply (optional)",
			Run: func(ctx context.Context, r *Runner) Result {
				if !r.cfg.ApplyMigration {
					return Result{Status: StatusSkip, Note: "apply-migration=false"}
				}
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "db not configured"}
				}
				if err := infra.Migrate(ctx, r.db, r.cfg.MigrationsDir); err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass}
			},
		},
		{
			Name: "Migration: tables exist",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.db == nil {
					return Result{Status: StatusSkip, Note: "db not configured"}
				}
				tables, err := extractTables(r.cfg.MigrationsDir)
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				for _, t := range tables {
					var exists bool
					err := r.db.QueryRow(ctx,
						"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
						t,
					).Scan(&exists)
					if err != nil {
						return Result{Status: StatusFail, Note: err.Error()}
					}
					if !exists {
						return Result{Status: StatusFail, Note: "missing table: " + t}
					}
				}
				return Result{Status: StatusPass, Note: fmt.Sprintf("%d tables", len(tables))}
			},
		},
		{
			Name: "Cache: distance keys",
			Run: func(ctx context.Context, r *Runner) Result {
				if r.redis == nil {
					return Result{Status: StatusSkip, Note: "redis not configured"}
				}
				keys, _, err := r.redis.Scan(ctx, 0, "distance:*", 100).Result()
				if err != nil {
					return Result{Status: StatusFail, Note: err.Error()}
				}
				return Result{Status: StatusPass, Note: fmt.Sprintf("sampled=%d", len(keys))}
			},
		},

		httpCaseMethod("API: health", http.MethodGet, "/health", nil, []int{200}),
		httpCaseMethod("API: rates", http.MethodGet, "/api/rates", nil, []int{200}),

		// Fares
		httpCase("Fare: base day sedan", "/api/fares/base", fareBody("sedan", 100, "2026-03-10T10:00:00Z"), []int{200}),
		httpCase("Fare: unknown vehicle -> 422", "/api/fares/base", fareBody("spaceship", 10, "2026-03-10T10:00:00Z"), []int{422}),
		httpCase("Fare: negative distance -> 400", "/api/fares/base", fareBody("sedan", -1, "2026-03-10T10:00:00Z"), []int{400}),
		httpCase("Fare: hourly 8hr suv", "/api/fares/hourly", map[string]any{
			"vehicle_type": "suv",
			"package_type": "8hr",
			"pickup_time":  "2026-03-10T09:00:00Z",
			"used_hours":   9,
			"used_km":      95,
		}, []int{200}),
		httpCase("Fare: estimate by coordinates", "/api/fares/estimate", map[string]any{
			"vehicle_type": "sedan",
			"pickup":       map[string]float64{"lat": 19.0596, "lng": 72.8295},
			"dropoff":      map[string]float64{"lat": 18.5289, "lng": 73.8744},
			"pickup_time":  "2026-03-10T10:00:00Z",
		}, []int{200, 400, 502}),

		// Bookings
		{
			Name: "Booking: create, confirm, complete",
			Run: func(ctx context.Context, r *Runner) Result {
				start := time.Now()
				id, res := r.createBooking(ctx)
				if id == "" {
					return res
				}
				for _, step := range []string{"confirm", "complete"} {
					code, _, err := r.do(ctx, http.MethodPost, "/api/bookings/"+id+"/"+step, nil)
					if err != nil || code != http.StatusOK {
						return Result{Status: StatusFail, Note: fmt.Sprintf("%s: status=%d err=%v", step, code, err)}
					}
				}
				code, _, _ := r.do(ctx, http.MethodPost, "/api/bookings/"+id+"/cancel", nil)
				if code != http.StatusConflict {
					return Result{Status: StatusFail, Note: fmt.Sprintf("cancel after complete: status=%d", code)}
				}
				return Result{Status: StatusPass, Latency: time.Since(start)}
			},
		},
		httpCase("Booking: missing fields -> 400", "/api/bookings", map[string]any{}, []int{400, 401}),

		// Concurrency
		{
			Name: "Concurrency: confirm vs cancel",
			Run: func(ctx context.Context, r *Runner) Result {
				return concurrentTransitions(ctx, r)
			},
		},

		// Performance
		{
			Name: "Perf: base fare throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, "/api/fares/base", fareBody("sedan", 42, "2026-03-10T23:15:00Z"))
			},
		},
		{
			Name: "Perf: booking create throughput",
			Run: func(ctx context.Context, r *Runner) Result {
				return perfLoad(ctx, r, "/api/bookings", bookingBody())
			},
		},
	}
}

func fareBody(vehicle string, km float64, pickup string) map[string]any {
	return map[string]any{
		"vehicle_type": vehicle,
		"distance_km":  km,
		"pickup_time":  pickup,
	}
}

func bookingBody() map[string]any {
	return map[string]any{
		"user_id":         "bench-user",
		"vehicle_type":    "sedan",
		"trip_type":       "one-way",
		"pickup_location": "Bandra West",
		"drop_location":   "Pune Station",
		"pickup_at":       "2026-03-10T10:00:00Z",
		"distance_km":     150,
		"customer": map[string]string{
			"name":  "Bench",
			"email": "bench@example.com",
			"phone": "+91 90000 00000",
		},
	}
}

func (r *Runner) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		reader = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+r.cfg.Token)
	}
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return resp.StatusCode, data, err
}

func (r *Runner) createBooking(ctx context.Context) (string, Result) {
	code, data, err := r.do(ctx, http.MethodPost, "/api/bookings", bookingBody())
	if err != nil {
		return "", Result{Status: StatusFail, Note: err.Error()}
	}
	if code != http.StatusCreated {
		return "", Result{Status: StatusFail, Note: fmt.Sprintf("create: status=%d", code)}
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &created); err != nil || created.ID == "" {
		return "", Result{Status: StatusFail, Note: "create: no id in response"}
	}
	return created.ID, Result{}
}

func httpCase(name, path string, body any, okStatuses []int) TestCase {
	return httpCaseMethod(name, http.MethodPost, path, body, okStatuses)
}

func httpCaseMethod(name, method, path string, body any, okStatuses []int) TestCase {
	return TestCase{
		Name: name,
		Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			code, _, err := r.do(ctx, method, path, body)
			if err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			latency := time.Since(start)
			if contains(okStatuses, code) {
				return Result{Status: StatusPass, Latency: latency, Note: fmt.Sprintf("status=%d", code)}
			}
			return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("status=%d", code)}
		},
	}
}

// concurrentTransitions races confirm and cancel on one pending booking.
// Either may win, but the status must move exactly once per legal edge.
func concurrentTransitions(ctx context.Context, r *Runner) Result {
	id, res := r.createBooking(ctx)
	if id == "" {
		return res
	}
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		won  = map[string]int{}
		lost int
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		action := "confirm"
		if i%2 == 1 {
			action = "cancel"
		}
		wg.Add(1)
		go func(action string) {
			defer wg.Done()
			code, _, err := r.do(ctx, http.MethodPost, "/api/bookings/"+id+"/"+action, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
			case code == http.StatusOK:
				won[action]++
			case code == http.StatusConflict:
				lost++
			}
		}(action)
	}
	wg.Wait()

	// confirm then cancel is a legal sequence; two confirms or two cancels are not.
	if won["confirm"] > 1 || won["cancel"] > 1 || won["confirm"]+won["cancel"] == 0 {
		return Result{Status: StatusFail, Note: fmt.Sprintf("confirm=%d cancel=%d conflict=%d", won["confirm"], won["cancel"], lost)}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("confirm=%d cancel=%d conflict=%d", won["confirm"], won["cancel"], lost)}
}

func perfLoad(ctx context.Context, r *Runner, path string, payload any) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		mu        sync.Mutex
		latencies []time.Duration
		errCount  int
	)
	wg := sync.WaitGroup{}

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(end) && ctx.Err() == nil {
				start := time.Now()
				code, _, err := r.do(ctx, http.MethodPost, path, payload)
				mu.Lock()
				if err != nil || code >= 500 {
					errCount++
				} else {
					latencies = append(latencies, time.Since(start))
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(latencies) == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	p99 := latencies[len(latencies)*99/100]
	rps := float64(len(latencies)) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Latency: p99, Note: fmt.Sprintf("rps=%.1f p99 errors=%d", rps, errCount)}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

// extractTables lists every CREATE TABLE in the migration directory.
func extractTables(dir string) ([]string, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, err
	}
	re := regexp.MustCompile(`(?i)create\s+table\s+if\s+not\s+exists\s+([a-zA-Z0-9_]+)`)
	var tables []string
	for _, f := range files {
		b, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		for _, m := range re.FindAllStringSubmatch(string(b), -1) {
			tables = append(tables, m[1])
		}
	}
	return tables, nil
}
