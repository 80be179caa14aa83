// Package shipper drives the sentinel-agent's heartbeat delivery loop: a
// ticker fires on the configured interval, collects one telemetry
// snapshot, attempts live delivery, and falls back to the durable buffer
// on failure, draining it opportunistically on later successful ticks.
// The shipper runs a single-purpose ticker loop; it needs a plain
// interval, not a cron schedule.
package shipper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/storewatch/sentinel/internal/client/buffer"
	"github.com/storewatch/sentinel/internal/client/retry"
	"github.com/storewatch/sentinel/internal/client/telemetry"
	"github.com/storewatch/sentinel/internal/heartbeat"
)

const (
	liveTimeout     = 10 * time.Second
	bufferedTimeout = 5 * time.Second
	drainBatchSize  = 10
	gcInterval      = 30 * time.Minute
	gcRetention     = int64(24 * 3600)
)

// Shipper owns the heartbeat send loop for one store.
type Shipper struct {
	serverURL string
	interval  time.Duration
	collector *telemetry.Collector
	buf       buffer.Buffer
	client    *http.Client
	logger    *slog.Logger

	mu                  sync.Mutex
	lastGC              time.Time
	startupDelivered    bool
	deliveredCount      int64
	consecutiveFailures int
	lastSuccess         *time.Time
}

// New constructs a Shipper. serverURL is the monitoring server's base URL
// (e.g. "https://monitor.example.com"); the shipper appends /heartbeat and
// /heartbeat/buffered.
func New(serverURL string, interval time.Duration, collector *telemetry.Collector, buf buffer.Buffer, logger *slog.Logger) *Shipper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Shipper{
		serverURL: serverURL,
		interval:  interval,
		collector: collector,
		buf:       buf,
		client:    &http.Client{},
		logger:    logger,
	}
}

// Run blocks, sending heartbeats on the configured interval until ctx is
// canceled. It emits one startup heartbeat immediately, retried with
// StartupConfig's aggressive backoff, then settles into the steady-state
// ticker.
func (s *Shipper) Run(ctx context.Context) error {
	if err := s.sendStartup(ctx); err != nil {
		s.logger.Warn("startup heartbeat failed, buffering and continuing", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.finalDrain()
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// sendStartup emits the first heartbeat with is_startup=true, retried with
// an aggressive bounded backoff. A startup heartbeat that
// still fails after this retry budget does not clear the flag: the
// regular ticker keeps marking heartbeats as startup until one actually
// gets through.
func (s *Shipper) sendStartup(ctx context.Context) error {
	hb := s.collector.Collect(true)
	s.stampDeliveryStats(&hb)
	err := retry.Do(ctx, retry.StartupConfig(), func(ctx context.Context) error {
		return s.sendLive(ctx, hb)
	})
	if err == nil {
		s.mu.Lock()
		s.startupDelivered = true
		s.mu.Unlock()
		s.recordSuccess()
		return nil
	}
	s.recordFailure()
	if bufErr := s.enqueue(ctx, hb); bufErr != nil {
		s.logger.Error("failed to buffer startup heartbeat", "error", bufErr)
	}
	return err
}

// stampDeliveryStats overlays the shipper-owned connection counters onto a
// freshly collected heartbeat.
func (s *Shipper) stampDeliveryStats(hb *heartbeat.Heartbeat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hb.AppStats.ConsecutiveFailures = s.consecutiveFailures
	if s.lastSuccess != nil {
		t := *s.lastSuccess
		hb.AppStats.LastSuccessfulConnection = &t
	}
}

func (s *Shipper) recordSuccess() {
	now := time.Now()
	s.mu.Lock()
	s.deliveredCount++
	s.consecutiveFailures = 0
	s.lastSuccess = &now
	s.mu.Unlock()
}

func (s *Shipper) recordFailure() {
	s.mu.Lock()
	s.consecutiveFailures++
	s.mu.Unlock()
}

func (s *Shipper) tick(ctx context.Context) {
	s.mu.Lock()
	isStartup := !s.startupDelivered
	s.mu.Unlock()

	hb := s.collector.Collect(isStartup)
	s.stampDeliveryStats(&hb)

	if err := s.sendLive(ctx, hb); err != nil {
		s.recordFailure()
		s.logger.Warn("live heartbeat delivery failed, buffering", "error", err)
		if bufErr := s.enqueue(ctx, hb); bufErr != nil {
			s.logger.Error("failed to buffer heartbeat", "error", bufErr)
		}
		return
	}
	s.recordSuccess()

	if isStartup {
		s.mu.Lock()
		s.startupDelivered = true
		s.mu.Unlock()
	}

	s.drain(ctx)
	s.maybeGC(ctx)
}

func (s *Shipper) enqueue(ctx context.Context, hb heartbeat.Heartbeat) error {
	data, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}
	_, err = s.buf.Enqueue(ctx, string(data), hb.Timestamp.Unix())
	return err
}

// drain flushes up to drainBatchSize buffered entries, stopping at the
// first network-class failure so it doesn't spend the whole tick retrying
// a server that is still down. A 4xx rejection means the server received
// and refused the entry; it is marked sent and the drain continues.
func (s *Shipper) drain(ctx context.Context) {
	entries, err := s.buf.Peek(ctx, drainBatchSize)
	if err != nil {
		s.logger.Error("failed to read buffered heartbeats", "error", err)
		return
	}
	for _, e := range entries {
		var hb heartbeat.Heartbeat
		if err := json.Unmarshal([]byte(e.Data), &hb); err != nil {
			s.logger.Error("dropping unparseable buffered heartbeat", "seq", e.Seq, "error", err)
			if markErr := s.buf.MarkSent(ctx, e.Seq); markErr != nil {
				s.logger.Error("failed to mark corrupt buffered entry sent", "seq", e.Seq, "error", markErr)
			}
			continue
		}
		if err := s.sendBuffered(ctx, hb); err != nil {
			if retry.IsRetryable(err) {
				s.logger.Warn("buffer drain stopped on delivery failure", "seq", e.Seq, "error", err)
				return
			}
			s.logger.Warn("server rejected buffered heartbeat, skipping", "seq", e.Seq, "error", err)
		}
		if err := s.buf.MarkSent(ctx, e.Seq); err != nil {
			s.logger.Error("failed to mark buffered entry sent", "seq", e.Seq, "error", err)
		}
	}
}

func (s *Shipper) maybeGC(ctx context.Context) {
	s.mu.Lock()
	due := time.Since(s.lastGC) >= gcInterval
	if due {
		s.lastGC = time.Now()
	}
	s.mu.Unlock()
	if !due {
		return
	}
	if err := s.buf.GC(ctx, gcRetention); err != nil {
		s.logger.Error("buffer gc failed", "error", err)
	}
}

// finalDrain runs a best-effort last drain on graceful shutdown.
func (s *Shipper) finalDrain() {
	ctx, cancel := context.WithTimeout(context.Background(), bufferedTimeout)
	defer cancel()
	s.drain(ctx)
}

func (s *Shipper) sendLive(ctx context.Context, hb heartbeat.Heartbeat) error {
	return s.post(ctx, "/heartbeat", liveTimeout, hb)
}

func (s *Shipper) sendBuffered(ctx context.Context, hb heartbeat.Heartbeat) error {
	return s.post(ctx, "/heartbeat/buffered", bufferedTimeout, hb)
}

func (s *Shipper) post(ctx context.Context, path string, timeout time.Duration, hb heartbeat.Heartbeat) error {
	body, err := json.Marshal(hb)
	if err != nil {
		return fmt.Errorf("marshal heartbeat: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.serverURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &retry.StatusError{Code: resp.StatusCode}
	}
	return nil
}
