// 文件路径: internal/client/telemetry/network.go
package telemetry

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

const probeTimeout = 10 * time.Second
const sampleHistoryLen = 5

// networkProbe amortizes network-speed measurement: it only re-probes on
// the first call after process start and then on a long cadence, caching
// the result between samples, per the telemetry collector's design.
type networkProbe struct {
	urls     []string
	interval time.Duration

	mu       sync.Mutex
	nextAt   time.Time
	last     *float64
	history  []float64
	client   *http.Client
}

func newNetworkProbe(urls []string, interval time.Duration) *networkProbe {
	return &networkProbe{
		urls:     urls,
		interval: interval,
		client:   &http.Client{Timeout: probeTimeout},
	}
}

// sample returns the current speed estimate (nil if never successfully
// probed) and whether the store currently has network connectivity.
func (p *networkProbe) sample(now time.Time) (*float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if now.Before(p.nextAt) {
		return p.last, p.last != nil
	}
	p.nextAt = now.Add(p.interval)

	mbps, ok := p.probe()
	if !ok {
		return p.last, p.last != nil
	}
	p.last = &mbps
	p.history = append(p.history, mbps)
	if len(p.history) > sampleHistoryLen {
		p.history = p.history[len(p.history)-sampleHistoryLen:]
	}
	return p.last, true
}

func (p *networkProbe) recent() []float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]float64, len(p.history))
	copy(out, p.history)
	return out
}

// probe fetches each configured URL and averages per-request throughput.
// Individual failures are tolerated; total failure yields ok=false.
func (p *networkProbe) probe() (float64, bool) {
	var total float64
	var successes int
	for _, url := range p.urls {
		mbps, err := p.probeOne(url)
		if err != nil {
			continue
		}
		total += mbps
		successes++
	}
	if successes == 0 {
		return 0, false
	}
	return total / float64(successes), true
}

func (p *networkProbe) probeOne(url string) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := countBytes(resp.Body)
	if err != nil {
		return 0, err
	}
	elapsed := time.Since(start).Seconds()
	if elapsed <= 0 {
		return 0, nil
	}
	bitsPerSec := float64(n) * 8 / elapsed
	return bitsPerSec / 1_000_000, nil
}

func countBytes(r io.Reader) (int64, error) {
	return io.Copy(io.Discard, r)
}
