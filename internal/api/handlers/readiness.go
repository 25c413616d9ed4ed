package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	readyBudget  = 5 * time.Second
	checkTimeout = 2 * time.Second
)

// ReadinessChecker probes one dependency.
type ReadinessChecker interface {
	Name() string
	Check(ctx context.Context) error
}

// HTTPReadinessChecker probes an HTTP upstream with HEAD. Anything below
// 500 is up: the directory answers unauthenticated probes with 401.
type HTTPReadinessChecker struct {
	name   string
	url    string
	client *http.Client
}

func NewHTTPReadinessChecker(name, url string) *HTTPReadinessChecker {
	return &HTTPReadinessChecker{name: name, url: url, client: &http.Client{}}
}

func (c *HTTPReadinessChecker) Name() string { return c.name }

func (c *HTTPReadinessChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("upstream answered %d", resp.StatusCode)
	}
	return nil
}

// PingChecker adapts a Ping method (redis, postgres, broker).
type PingChecker struct {
	name string
	ping func(ctx context.Context) error
}

func NewPingChecker(name string, ping func(ctx context.Context) error) *PingChecker {
	return &PingChecker{name: name, ping: ping}
}

func (c *PingChecker) Name() string { return c.name }

func (c *PingChecker) Check(ctx context.Context) error { return c.ping(ctx) }

type ReadinessHandler struct {
	checkers []ReadinessChecker
}

func NewReadinessHandler(checkers ...ReadinessChecker) *ReadinessHandler {
	return &ReadinessHandler{checkers: checkers}
}

// Healthz reports process liveness only.
func (h *ReadinessHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

type checkResult struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type readinessReport struct {
	Status string        `json:"status"`
	Checks []checkResult `json:"checks"`
}

// Readyz runs every checker concurrently, each under its own timeout, and
// answers 503 if any of them fails.
func (h *ReadinessHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyBudget)
	defer cancel()

	results := make([]checkResult, len(h.checkers))
	var g errgroup.Group
	for i, c := range h.checkers {
		i, c := i, c
		g.Go(func() error {
			cctx, ccancel := context.WithTimeout(ctx, checkTimeout)
			defer ccancel()

			start := time.Now()
			err := c.Check(cctx)
			res := checkResult{Name: c.Name(), Status: "healthy", LatencyMS: time.Since(start).Milliseconds()}
			if err != nil {
				res.Status = "unhealthy"
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report := readinessReport{Status: "ready", Checks: results}
	status := http.StatusOK
	for _, res := range results {
		if res.Status != "healthy" {
			report.Status = "not_ready"
			status = http.StatusServiceUnavailable
			break
		}
	}
	sendJSON(w, r, status, report)
}
