package probe

import (
	"testing"
	"time"
)

func TestSamplerEmitsOncePerSecond(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewSampler()
	s.Start(base)

	// 1000 bytes/sec delivered as 250 bytes every 250ms over 2.5 logical
	// seconds.
	var samples []Sample
	for k := 1; k <= 10; k++ {
		now := base.Add(time.Duration(k) * 250 * time.Millisecond)
		if sample, ok := s.OnBytes(250, now); ok {
			samples = append(samples, sample)
		}
	}

	if len(samples) != 2 {
		t.Fatalf("expected exactly 2 samples over 2.5s, got %d", len(samples))
	}
	for i, sample := range samples {
		if sample.BitsPerSec != 8000 {
			t.Errorf("sample %d: expected 8000 bit/s, got %g", i, sample.BitsPerSec)
		}
	}
	if samples[0].Elapsed != time.Second {
		t.Errorf("first sample elapsed: want 1s, got %v", samples[0].Elapsed)
	}
	if samples[1].Elapsed != 2*time.Second {
		t.Errorf("second sample elapsed: want 2s, got %v", samples[1].Elapsed)
	}
	if samples[1].TotalBytes != 2000 {
		t.Errorf("second sample total: want 2000, got %d", samples[1].TotalBytes)
	}

	res := s.Finalize(base.Add(2500 * time.Millisecond))
	if res.TotalBytes != 2500 {
		t.Errorf("final total: want 2500, got %d", res.TotalBytes)
	}
	if res.BitsPerSec != 8000 {
		t.Errorf("final average: want 8000 bit/s, got %g", res.BitsPerSec)
	}
}

func TestSamplerWindowRestartsAtSample(t *testing.T) {
	base := time.Now()
	s := NewSampler()
	s.Start(base)

	if _, ok := s.OnBytes(100, base.Add(time.Second)); !ok {
		t.Fatal("expected a sample at the 1s boundary")
	}
	// 999ms into the new window: no sample yet.
	if _, ok := s.OnBytes(100, base.Add(1999*time.Millisecond)); ok {
		t.Fatal("window must be measured from the previous sample, not the wall clock")
	}
	if _, ok := s.OnBytes(100, base.Add(2*time.Second)); !ok {
		t.Fatal("expected a sample one second after the previous one")
	}
}

func TestSamplerFinalizeZeroElapsed(t *testing.T) {
	now := time.Now()
	s := NewSampler()
	s.Start(now)
	s.OnBytes(4096, now)

	res := s.Finalize(now)
	if res.BitsPerSec != 0 {
		t.Fatalf("zero elapsed must report zero rate, got %g", res.BitsPerSec)
	}
	if res.TotalBytes != 4096 {
		t.Fatalf("total bytes must survive finalize, got %d", res.TotalBytes)
	}
}

func TestSamplerFinalizeUnstarted(t *testing.T) {
	s := NewSampler()
	res := s.Finalize(time.Now())
	if res.TotalBytes != 0 || res.BitsPerSec != 0 || res.Elapsed != 0 {
		t.Fatalf("unstarted sampler must finalize to a zero result, got %+v", res)
	}
}

func TestResultUnitHelpers(t *testing.T) {
	res := Result{TotalBytes: 2 * 1024 * 1024, BitsPerSec: 8e6}
	if res.Mbps() != 8 {
		t.Errorf("Mbps: want 8, got %g", res.Mbps())
	}
	if res.Megabytes() != 2 {
		t.Errorf("Megabytes: want 2, got %g", res.Megabytes())
	}
}
