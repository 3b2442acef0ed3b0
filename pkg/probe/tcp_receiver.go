package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/gomer1002/lanprobe/internal"
	"github.com/gomer1002/lanprobe/pkg/metrics"
)

// TCPReceiverConfig wires one receiving session controller.
type TCPReceiverConfig struct {
	Host     string
	Port     int
	Duration time.Duration

	// FirstPacketTimeout bounds the wait for the first payload byte after
	// connecting. Zero means the 5 second default.
	FirstPacketTimeout time.Duration

	Collector *metrics.ProbeCollector
	// OnSample receives the rolling per-second throughput samples.
	OnSample func(Sample)
}

// TCPReceiver connects to a sender and measures received throughput for a
// bounded duration.
type TCPReceiver struct {
	cfg TCPReceiverConfig
}

func NewTCPReceiver(cfg TCPReceiverConfig) *TCPReceiver {
	if cfg.FirstPacketTimeout <= 0 {
		cfg.FirstPacketTimeout = defaultFirstPacketTimeout
	}
	return &TCPReceiver{cfg: cfg}
}

// Run executes the full connect / await-first-packet / measure lifecycle.
// Partial statistics are always populated in the returned stats when any
// traffic was observed, even on abnormal endings.
func (r *TCPReceiver) Run(ctx context.Context) (ReceiverStats, error) {
	var stats ReceiverStats

	addr := net.JoinHostPort(r.cfg.Host, strconv.Itoa(r.cfg.Port))
	var dialer net.Dialer
	connectStart := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return stats, fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()
	stats.ConnectLatency = time.Since(connectStart)
	stats.Source = conn.RemoteAddr()

	internal.Info("connected", internal.Fields{
		internal.FieldPeer:    conn.RemoteAddr().String(),
		internal.FieldLatency: float64(stats.ConnectLatency) / float64(time.Millisecond),
	})

	buf := make([]byte, tcpReadBufferSize)

	firstWait := time.Now()
	if err := conn.SetReadDeadline(firstWait.Add(r.cfg.FirstPacketTimeout)); err != nil {
		return stats, fmt.Errorf("set read deadline: %w", err)
	}
	n, err := conn.Read(buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return stats, ErrNoTrafficDetected
		}
		if errors.Is(err, io.EOF) {
			return stats, fmt.Errorf("%w: server closed the connection before sending data", ErrPeerDisconnected)
		}
		return stats, fmt.Errorf("first read: %w", err)
	}
	stats.FirstPacketLatency = time.Since(firstWait)

	sampler := NewSampler()
	now := time.Now()
	sampler.Start(now)
	r.observe(sampler, n, now)

	for {
		if ctx.Err() != nil {
			break
		}
		now = time.Now()
		if now.Sub(sampler.start) >= r.cfg.Duration {
			break
		}

		if err := conn.SetReadDeadline(now.Add(readDeadline)); err != nil {
			break
		}
		n, err = conn.Read(buf)
		if n > 0 {
			r.observe(sampler, n, time.Now())
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) {
				internal.Info("server closed the connection", nil)
			} else {
				internal.Warn("receive failed", internal.Fields{
					internal.FieldError: err.Error(),
				})
			}
			break
		}
	}

	stats.Result = sampler.Finalize(time.Now())
	return stats, nil
}

func (r *TCPReceiver) observe(sampler *Sampler, n int, now time.Time) {
	if r.cfg.Collector != nil {
		r.cfg.Collector.ObserveReceive(n)
	}
	if sample, ok := sampler.OnBytes(n, now); ok && r.cfg.OnSample != nil {
		r.cfg.OnSample(sample)
	}
}
