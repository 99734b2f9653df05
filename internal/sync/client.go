// ABOUTME: SyncClient pushes the full local snapshot to the cloud ledger in one POST.
// ABOUTME: One sync in flight at a time; no token is a silent no-op; no retries.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/harperreed/healthlink/internal/models"
	"github.com/rs/zerolog"
)

// Snapshotter produces the batch to push.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*models.SyncBatch, error)
}

// Status describes what a sync attempt did.
type Status string

const (
	// StatusSynced means the server accepted the snapshot.
	StatusSynced Status = "synced"
	// StatusNoToken means no request was made because no token is available.
	StatusNoToken Status = "no_token"
	// StatusBusy means the attempt was dropped because another sync was running.
	StatusBusy Status = "busy"
)

// Result reports a completed sync attempt.
type Result struct {
	Status   Status
	Counts   map[models.Category]int
	Duration time.Duration
}

// Outcome is delivered by Start.
type Outcome struct {
	Result Result
	Err    error
}

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sync rejected with status %d", e.Code)
	}
	return fmt.Sprintf("sync rejected with status %d: %s", e.Code, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusUnauthorized
}

// Client pushes snapshots to {Server}/sync.
type Client struct {
	server     string
	deviceID   string
	timeout    time.Duration
	source     Snapshotter
	httpClient *http.Client
	log        zerolog.Logger
	busy       atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithTimeout bounds each sync request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDeviceID sets the X-Device-ID header.
func WithDeviceID(id string) Option {
	return func(c *Client) { c.deviceID = id }
}

// NewClient creates a client pushing snapshots from source to server.
func NewClient(server string, source Snapshotter, opts ...Option) *Client {
	c := &Client{
		server:     strings.TrimRight(strings.TrimSpace(server), "/"),
		timeout:    DefaultTimeout,
		source:     source,
		httpClient: &http.Client{},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewClientFromConfig builds a client from a saved sync config.
func NewClientFromConfig(cfg *Config, source Snapshotter, opts ...Option) *Client {
	base := []Option{WithTimeout(cfg.Timeout()), WithDeviceID(cfg.DeviceID)}
	return NewClient(cfg.Server, source, append(base, opts...)...)
}

// InFlight reports whether a sync is running.
func (c *Client) InFlight() bool {
	return c.busy.Load()
}

// Sync pushes one snapshot. An empty token returns StatusNoToken and an
// overlapping call returns StatusBusy, both without error or network traffic.
// Failures leave local data untouched and are not retried.
func (c *Client) Sync(ctx context.Context, token string) (Result, error) {
	if token == "" {
		c.log.Debug().Msg("sync skipped: no token")
		return Result{Status: StatusNoToken}, nil
	}
	if !c.busy.CompareAndSwap(false, true) {
		c.log.Debug().Msg("sync skipped: already in flight")
		return Result{Status: StatusBusy}, nil
	}
	defer c.busy.Store(false)

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	batch, err := c.source.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read snapshot: %w", err)
	}

	if err := c.post(ctx, token, batch); err != nil {
		c.log.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("sync failed")
		return Result{}, err
	}

	res := Result{Status: StatusSynced, Counts: batch.Counts(), Duration: time.Since(start)}
	c.log.Info().Int("records", batch.Len()).Dur("elapsed", res.Duration).Msg("sync complete")
	return res, nil
}

// Start runs Sync on its own goroutine. The outcome is delivered once on the
// returned channel, which is then closed.
func (c *Client) Start(ctx context.Context, token string) <-chan Outcome {
	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		res, err := c.Sync(ctx, token)
		out <- Outcome{Result: res, Err: err}
	}()
	return out
}

func (c *Client) post(ctx context.Context, token string, batch *models.SyncBatch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.server+"/sync", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute sync request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read sync response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: errorMessage(body)}
	}
	return nil
}

func errorMessage(body []byte) string {
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		return parsed.Error
	}
	return strings.TrimSpace(string(body))
}
