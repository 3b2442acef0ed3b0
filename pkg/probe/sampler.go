package probe

import "time"

// Sample is one rolling throughput observation, emitted at most once per
// second of received traffic. Cadence is measured from the previous
// sample's timestamp, not aligned to the wall clock.
type Sample struct {
	Elapsed    time.Duration
	BitsPerSec float64
	TotalBytes int64
}

// Result summarizes a finished session.
type Result struct {
	TotalBytes int64
	Elapsed    time.Duration
	BitsPerSec float64
}

func (r Result) Mbps() float64 {
	return r.BitsPerSec / 1e6
}

func (r Result) Megabytes() float64 {
	return float64(r.TotalBytes) / (1024 * 1024)
}

// Sampler folds received-byte events into rolling throughput samples and a
// whole-session average. It is pure computation; rendering of the samples
// it emits belongs to the caller.
type Sampler struct {
	start       time.Time
	windowTime  time.Time
	windowBytes int64
	total       int64
	started     bool
}

func NewSampler() *Sampler {
	return &Sampler{}
}

// Start pins the session origin. Subsequent event timestamps are measured
// against it.
func (s *Sampler) Start(now time.Time) {
	s.start = now
	s.windowTime = now
	s.windowBytes = 0
	s.total = 0
	s.started = true
}

// OnBytes records n received bytes observed at now. It returns a Sample
// and true when at least one second elapsed since the previous sample; the
// window then restarts at now.
func (s *Sampler) OnBytes(n int, now time.Time) (Sample, bool) {
	if !s.started {
		s.Start(now)
	}
	s.total += int64(n)

	window := now.Sub(s.windowTime)
	if window < time.Second {
		return Sample{}, false
	}

	delta := s.total - s.windowBytes
	sample := Sample{
		Elapsed:    now.Sub(s.start),
		BitsPerSec: float64(delta*8) / window.Seconds(),
		TotalBytes: s.total,
	}
	s.windowTime = now
	s.windowBytes = s.total
	return sample, true
}

func (s *Sampler) TotalBytes() int64 {
	return s.total
}

// Finalize computes the whole-session average. A session that ended before
// any time elapsed reports a zero rate instead of dividing by zero.
func (s *Sampler) Finalize(now time.Time) Result {
	if !s.started {
		return Result{}
	}
	elapsed := now.Sub(s.start)
	res := Result{TotalBytes: s.total, Elapsed: elapsed}
	if elapsed > 0 {
		res.BitsPerSec = float64(s.total*8) / elapsed.Seconds()
	}
	return res
}
