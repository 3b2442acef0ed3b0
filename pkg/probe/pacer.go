package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gomer1002/lanprobe/pkg/metrics"
)

// Pacer sends a fixed payload at evenly spaced intervals. Every deadline is
// scheduled from an absolute monotonic reference (next = next + interval,
// never now + interval), so per-iteration sleep and write jitter does not
// accumulate into rate undershoot.
type Pacer struct {
	payload   []byte
	interval  time.Duration
	collector *metrics.ProbeCollector
}

// NewPacer builds a pacer for the given rate. The collector is optional.
func NewPacer(cfg RateConfig, collector *metrics.ProbeCollector) (*Pacer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	payload := make([]byte, cfg.PacketSize)
	for i := range payload {
		payload[i] = '0'
	}
	return &Pacer{
		payload:   payload,
		interval:  cfg.Interval(),
		collector: collector,
	}, nil
}

func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Run streams packets into sink until ctx is done or the sink fails. A
// failed write returns ErrPeerDisconnected alongside the partial result;
// cancellation is a normal ending and returns the partial result with a
// nil error.
func (p *Pacer) Run(ctx context.Context, sink io.Writer) (Result, error) {
	start := time.Now()
	next := start
	var total int64

	result := func(err error) (Result, error) {
		elapsed := time.Since(start)
		res := Result{TotalBytes: total, Elapsed: elapsed}
		if elapsed > 0 {
			res.BitsPerSec = float64(total*8) / elapsed.Seconds()
		}
		return res, err
	}

	for {
		if ctx.Err() != nil {
			return result(nil)
		}
		if wait := time.Until(next); wait > 0 {
			if !sleepCtx(ctx, wait) {
				return result(nil)
			}
		}
		n, err := sink.Write(p.payload)
		total += int64(n)
		if p.collector != nil {
			p.collector.ObserveSend(n)
		}
		if err != nil {
			// A write deadline expiring means the peer stalled, not that
			// it vanished; loop back around so cancellation stays
			// observable.
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				next = next.Add(p.interval)
				continue
			}
			return result(fmt.Errorf("%w: %v", ErrPeerDisconnected, err))
		}
		next = next.Add(p.interval)
	}
}

// sleepCtx blocks for d or until ctx is done, reporting false when the
// context ended the wait early.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
