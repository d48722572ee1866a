package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/genomewalker/reviewflow-sub001/internal/domain"
	"go.uber.org/zap"
)

type Options struct {
	Host          string
	Port          int
	HealthTimeout time.Duration
	PollInterval  time.Duration
	PollAttempts  int
	StopSettle    time.Duration

	// BaseURL overrides the host/port derived URL. Used by tests.
	BaseURL string
}

// DBStatus mirrors the companion server's /db/status payload.
type DBStatus struct {
	Papers   int64  `json:"papers"`
	Comments int64  `json:"comments"`
	Database string `json:"database"`
}

type Status struct {
	Running bool      `json:"running"`
	URL     string    `json:"url"`
	DB      *DBStatus `json:"db,omitempty"`
}

// Controller supervises the companion server process. It keeps no state of
// its own: whether the server runs is re-derived from the health endpoint
// on every call, because the controller and the server usually live in
// different OS processes started at different times.
type Controller struct {
	opts   Options
	proc   ProcessManager
	client *http.Client
	log    *zap.Logger
}

func NewController(opts Options, proc ProcessManager, log *zap.Logger) *Controller {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.HealthTimeout <= 0 {
		opts.HealthTimeout = time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.PollAttempts <= 0 {
		opts.PollAttempts = 20
	}
	if opts.StopSettle <= 0 {
		opts.StopSettle = time.Second
	}
	return &Controller{
		opts:   opts,
		proc:   proc,
		client: &http.Client{Timeout: opts.HealthTimeout},
		log:    log,
	}
}

func (c *Controller) baseURL() string {
	if c.opts.BaseURL != "" {
		return strings.TrimRight(c.opts.BaseURL, "/")
	}
	return fmt.Sprintf("http://%s:%d", c.opts.Host, c.opts.Port)
}

// IsRunning reports whether anything answers the health endpoint within the
// bounded timeout. Any HTTP response counts as running; connection errors
// and timeouts count as not running. It never returns an error.
func (c *Controller) IsRunning(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return true
}

// Start spawns the companion server once and polls the health endpoint at a
// fixed interval until it answers or the attempt budget is spent. The spawn
// is not retried; a timeout tears the spawned process back down and fails
// with ErrStartTimeout.
func (c *Controller) Start(ctx context.Context) error {
	if c.IsRunning(ctx) {
		c.log.Info("server already running", zap.String("url", c.baseURL()))
		return nil
	}

	id, err := c.proc.Start(ctx)
	if err != nil {
		return fmt.Errorf("spawn server: %w", err)
	}
	c.log.Info("server starting", zap.Int("pid", id.PID), zap.String("url", c.baseURL()))

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()
	for attempt := 1; attempt <= c.opts.PollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if c.IsRunning(ctx) {
			c.log.Info("server is running", zap.String("url", c.baseURL()), zap.Int("attempts", attempt))
			return nil
		}
	}

	if err := c.proc.Terminate(id); err != nil {
		c.log.Warn("cleanup of unhealthy server failed", zap.Int("pid", id.PID), zap.Error(err))
	}
	return fmt.Errorf("%w: no healthy response from %s after %d attempts",
		domain.ErrStartTimeout, c.baseURL(), c.opts.PollAttempts)
}

// Stop signals the recorded server process, waits one settle period, and
// re-checks liveness to report the outcome. Stopping a server that is not
// running is a no-op success; Stop never waits beyond the settle period.
func (c *Controller) Stop(ctx context.Context) error {
	id, ok := c.proc.Resolve()
	if !ok {
		if !c.IsRunning(ctx) {
			c.log.Info("server is not running")
			return nil
		}
		return errors.New("server answers health checks but has no recorded pid; stop it manually")
	}

	if !c.proc.IsAlive(id) && !c.IsRunning(ctx) {
		c.proc.Forget()
		c.log.Info("server already stopped", zap.Int("pid", id.PID))
		return nil
	}

	if err := c.proc.Terminate(id); err != nil {
		c.log.Warn("terminate signal failed", zap.Int("pid", id.PID), zap.Error(err))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.opts.StopSettle):
	}

	if c.IsRunning(ctx) {
		return fmt.Errorf("server still answering on %s after stop", c.baseURL())
	}
	c.proc.Forget()
	c.log.Info("server stopped", zap.Int("pid", id.PID))
	return nil
}

// Status composes liveness with the richer /db/status query. The richer
// query is best-effort: any failure there degrades the result to bare
// liveness instead of surfacing an error.
func (c *Controller) Status(ctx context.Context) Status {
	st := Status{Running: c.IsRunning(ctx), URL: c.baseURL()}
	if !st.Running {
		return st
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL()+"/db/status", nil)
	if err != nil {
		return st
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return st
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return st
	}

	var db DBStatus
	if err := json.NewDecoder(resp.Body).Decode(&db); err != nil {
		return st
	}
	st.DB = &db
	return st
}
