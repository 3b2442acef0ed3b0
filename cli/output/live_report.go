package output

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/gomer1002/lanprobe/pkg/metrics"
)

// LiveReport renders a small live dashboard from the probe collector while
// a session runs.
type LiveReport struct {
	title     string
	collector *metrics.ProbeCollector
	interval  time.Duration

	mu     sync.Mutex
	area   *pterm.AreaPrinter
	ticker *time.Ticker
	cancel context.CancelFunc
	active bool
}

func NewLiveReport(title string, collector *metrics.ProbeCollector) *LiveReport {
	if strings.TrimSpace(title) == "" {
		title = "Probe Telemetry"
	}
	return &LiveReport{
		title:     title,
		collector: collector,
		interval:  500 * time.Millisecond,
	}
}

// Start begins rendering. No-op when the collector is nil or the report is
// already running.
func (r *LiveReport) Start(ctx context.Context) error {
	if r == nil || r.collector == nil {
		return nil
	}

	r.mu.Lock()
	if r.active {
		r.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	r.ticker = time.NewTicker(r.interval)
	r.cancel = cancel
	r.active = true
	r.mu.Unlock()

	area, err := pterm.DefaultArea.WithRemoveWhenDone(true).Start()
	if err != nil {
		r.cleanup()
		return err
	}
	r.mu.Lock()
	r.area = area
	r.mu.Unlock()

	go r.loop(ctx)
	return nil
}

// Stop clears the live board.
func (r *LiveReport) Stop() {
	if r == nil {
		return
	}
	r.cleanup()
}

func (r *LiveReport) loop(ctx context.Context) {
	r.render()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.ticker.C:
			r.render()
		}
	}
}

func (r *LiveReport) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.active {
		return
	}
	if r.cancel != nil {
		r.cancel()
	}
	if r.ticker != nil {
		r.ticker.Stop()
	}
	if r.area != nil {
		_ = r.area.Stop()
	}
	r.area = nil
	r.ticker = nil
	r.cancel = nil
	r.active = false
}

func (r *LiveReport) render() {
	snap := r.collector.Snapshot()

	r.mu.Lock()
	area := r.area
	r.mu.Unlock()
	if area == nil {
		return
	}

	data := pterm.TableData{
		{"Metric", "Value"},
		{"Throughput", fmt.Sprintf("%.2f Mbit/s", snap.ThroughputMbps)},
		{"RX packets/s", fmt.Sprintf("%.0f", snap.RxPacketsPerSec)},
		{"TX packets/s", fmt.Sprintf("%.0f", snap.TxPacketsPerSec)},
		{"Bytes received", fmt.Sprintf("%d", snap.BytesReceived)},
		{"Bytes sent", fmt.Sprintf("%d", snap.BytesSent)},
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return
	}

	meta := fmt.Sprintf("Elapsed: %s    Direction: %s",
		formatDuration(snap.Elapsed),
		strings.ToUpper(snap.Direction))
	area.Update(fmt.Sprintf("%s\n%s\n%s", r.title, table, meta))
}
