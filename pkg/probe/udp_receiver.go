package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/gomer1002/lanprobe/internal"
	"github.com/gomer1002/lanprobe/pkg/metrics"
)

// UDPReceiverConfig wires one datagram receiving controller.
type UDPReceiverConfig struct {
	Port     int
	Duration time.Duration

	// FirstPacketTimeout bounds the wait for the first datagram. Zero
	// means the 5 second default.
	FirstPacketTimeout time.Duration

	Collector *metrics.ProbeCollector

	// OnListening is invoked once with the bound socket address.
	OnListening func(addr net.Addr)
	// OnSample receives the rolling per-second throughput samples.
	OnSample func(Sample)
}

// UDPReceiver binds a port and measures incoming datagram throughput for a
// bounded duration. There is no peer-closed signal for datagrams; only the
// duration elapsing or cancellation ends the measuring loop.
type UDPReceiver struct {
	cfg UDPReceiverConfig
}

func NewUDPReceiver(cfg UDPReceiverConfig) *UDPReceiver {
	if cfg.FirstPacketTimeout <= 0 {
		cfg.FirstPacketTimeout = defaultFirstPacketTimeout
	}
	return &UDPReceiver{cfg: cfg}
}

// Run executes the bind / await-first-datagram / measure lifecycle.
func (r *UDPReceiver) Run(ctx context.Context) (ReceiverStats, error) {
	var stats ReceiverStats

	lc := net.ListenConfig{Control: reuseAddr}
	pc, err := lc.ListenPacket(ctx, "udp4", fmt.Sprintf(":%d", r.cfg.Port))
	if err != nil {
		return stats, fmt.Errorf("bind udp :%d: %w", r.cfg.Port, err)
	}
	defer pc.Close()

	if r.cfg.OnListening != nil {
		r.cfg.OnListening(pc.LocalAddr())
	}
	internal.Info("waiting for udp traffic", internal.Fields{
		internal.FieldPort: udpPort(pc.LocalAddr()),
	})

	buf := make([]byte, udpReadBufferSize)

	firstWait := time.Now()
	if err := pc.SetReadDeadline(firstWait.Add(r.cfg.FirstPacketTimeout)); err != nil {
		return stats, fmt.Errorf("set read deadline: %w", err)
	}
	n, source, err := pc.ReadFrom(buf)
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return stats, ErrNoTrafficDetected
		}
		return stats, fmt.Errorf("receive: %w", err)
	}
	stats.FirstPacketLatency = time.Since(firstWait)
	stats.Source = source

	internal.Info("traffic detected", internal.Fields{
		internal.FieldPeer:    source.String(),
		internal.FieldLatency: float64(stats.FirstPacketLatency) / float64(time.Millisecond),
	})

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

		if err := pc.SetReadDeadline(now.Add(readDeadline)); err != nil {
			break
		}
		n, _, err = pc.ReadFrom(buf)
		if n > 0 {
			r.observe(sampler, n, time.Now())
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			internal.Warn("receive failed", internal.Fields{
				internal.FieldError: err.Error(),
			})
			break
		}
	}

	stats.Result = sampler.Finalize(time.Now())
	return stats, nil
}

func (r *UDPReceiver) observe(sampler *Sampler, n int, now time.Time) {
	if r.cfg.Collector != nil {
		r.cfg.Collector.ObserveReceive(n)
	}
	if sample, ok := sampler.OnBytes(n, now); ok && r.cfg.OnSample != nil {
		r.cfg.OnSample(sample)
	}
}

func udpPort(addr net.Addr) int {
	if a, ok := addr.(*net.UDPAddr); ok {
		return a.Port
	}
	return 0
}
