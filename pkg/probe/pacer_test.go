package probe

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateConfigInterval(t *testing.T) {
	cfg := RateConfig{TargetMbps: 8, PacketSize: 1000}
	if got := cfg.Interval(); got != time.Millisecond {
		t.Errorf("8 Mbit/s with 1000 byte packets: want 1ms interval, got %v", got)
	}

	cfg = RateConfig{TargetMbps: 0, PacketSize: 1400}
	if got := cfg.Interval(); got != 0 {
		t.Errorf("zero rate must give zero interval, got %v", got)
	}

	cfg = RateConfig{TargetMbps: 10, PacketSize: 1400}
	want := time.Duration(float64(1400*8) / 10e6 * float64(time.Second))
	if got := cfg.Interval(); got != want {
		t.Errorf("10 Mbit/s with 1400 byte packets: want %v, got %v", want, got)
	}
}

func TestRateConfigValidate(t *testing.T) {
	if err := (RateConfig{TargetMbps: 10, PacketSize: 0}).Validate(); err == nil {
		t.Error("zero packet size must be rejected")
	}
	if err := (RateConfig{TargetMbps: -1, PacketSize: 1400}).Validate(); err == nil {
		t.Error("negative rate must be rejected")
	}
	if err := (RateConfig{TargetMbps: 0, PacketSize: 1}).Validate(); err != nil {
		t.Errorf("zero rate is valid (unthrottled), got %v", err)
	}
}

// countingSink cancels the run's context after a fixed number of writes,
// optionally delaying each write to simulate a slow peer.
type countingSink struct {
	writes   int
	bytes    int64
	limit    int
	perWrite time.Duration
	cancel   context.CancelFunc
}

func (s *countingSink) Write(p []byte) (int, error) {
	if s.perWrite > 0 {
		time.Sleep(s.perWrite)
	}
	s.writes++
	s.bytes += int64(len(p))
	if s.writes >= s.limit {
		s.cancel()
	}
	return len(p), nil
}

func TestPacerHoldsTargetRate(t *testing.T) {
	// 4 Mbit/s at 1000 bytes/packet: one packet every 2ms.
	pacer, err := NewPacer(RateConfig{TargetMbps: 4, PacketSize: 1000}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if pacer.Interval() != 2*time.Millisecond {
		t.Fatalf("want 2ms interval, got %v", pacer.Interval())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &countingSink{limit: 50, cancel: cancel}

	start := time.Now()
	res, err := pacer.Run(ctx, sink)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("cancellation is not an error, got %v", err)
	}

	if res.TotalBytes != 50*1000 {
		t.Errorf("want 50000 bytes sent, got %d", res.TotalBytes)
	}
	// Deadlines 1..49 are each one interval apart, so the run cannot
	// finish faster than 49 intervals.
	if elapsed < 49*2*time.Millisecond {
		t.Errorf("pacing not enforced: 50 packets in %v", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("pacing far too slow: 50 packets in %v", elapsed)
	}
}

func TestPacerCompensatesSinkLatency(t *testing.T) {
	// A sink that burns 1ms per write inside a 2ms interval must not slow
	// the schedule down: deadlines are absolute, so the sleep shrinks to
	// absorb the write latency.
	pacer, err := NewPacer(RateConfig{TargetMbps: 4, PacketSize: 1000}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &countingSink{limit: 50, cancel: cancel, perWrite: time.Millisecond}

	start := time.Now()
	if _, err := pacer.Run(ctx, sink); err != nil {
		t.Fatalf("cancellation is not an error, got %v", err)
	}
	elapsed := time.Since(start)

	// Uncompensated scheduling would need at least 50 * (2ms + 1ms) =
	// 150ms. Allow generous jitter above the ideal ~100ms but stay well
	// below the drifting bound.
	if elapsed >= 148*time.Millisecond {
		t.Errorf("deadline drift: 50 packets took %v, expected ~100ms", elapsed)
	}
	if elapsed < 49*2*time.Millisecond {
		t.Errorf("pacing not enforced: 50 packets in %v", elapsed)
	}
}

func TestPacerUnthrottled(t *testing.T) {
	pacer, err := NewPacer(RateConfig{TargetMbps: 0, PacketSize: 1000}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &countingSink{limit: 1000, cancel: cancel}

	start := time.Now()
	res, err := pacer.Run(ctx, sink)
	if err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("unthrottled run must never sleep, 1000 writes took %v", elapsed)
	}
	if res.TotalBytes != 1000*1000 {
		t.Errorf("want 1000000 bytes, got %d", res.TotalBytes)
	}
}

type failingSink struct {
	writes int
	failAt int
}

func (s *failingSink) Write(p []byte) (int, error) {
	s.writes++
	if s.writes >= s.failAt {
		return 0, errors.New("connection reset by peer")
	}
	return len(p), nil
}

func TestPacerReportsPeerDisconnect(t *testing.T) {
	pacer, err := NewPacer(RateConfig{TargetMbps: 0, PacketSize: 100}, nil)
	if err != nil {
		t.Fatal(err)
	}

	res, err := pacer.Run(context.Background(), &failingSink{failAt: 5})
	if !errors.Is(err, ErrPeerDisconnected) {
		t.Fatalf("want ErrPeerDisconnected, got %v", err)
	}
	if res.TotalBytes != 4*100 {
		t.Errorf("partial result must count the successful writes, got %d", res.TotalBytes)
	}
}

// stallSink times out every write, the way a peer that stops draining its
// receive buffer looks through a write deadline.
type stallSink struct {
	writes int
	cancel context.CancelFunc
	limit  int
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func (s *stallSink) Write(p []byte) (int, error) {
	s.writes++
	if s.writes >= s.limit {
		s.cancel()
	}
	return 0, timeoutError{}
}

func TestPacerRetriesStalledWrites(t *testing.T) {
	pacer, err := NewPacer(RateConfig{TargetMbps: 0, PacketSize: 100}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sink := &stallSink{limit: 3, cancel: cancel}

	res, err := pacer.Run(ctx, sink)
	if err != nil {
		t.Fatalf("a write timeout must not end the session, got %v", err)
	}
	if sink.writes < 3 {
		t.Errorf("want at least 3 write attempts, got %d", sink.writes)
	}
	if res.TotalBytes != 0 {
		t.Errorf("stalled writes deliver nothing, got %d bytes", res.TotalBytes)
	}
}

func TestPacerAlreadyCancelled(t *testing.T) {
	pacer, err := NewPacer(RateConfig{TargetMbps: 10, PacketSize: 1400}, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := pacer.Run(ctx, &failingSink{failAt: 1})
	if err != nil {
		t.Fatalf("cancellation is not an error, got %v", err)
	}
	if res.TotalBytes != 0 {
		t.Errorf("no writes expected on a dead context, got %d bytes", res.TotalBytes)
	}
}
