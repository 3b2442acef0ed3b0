package probe

import (
	"fmt"
	"time"
)

// RateConfig describes the target transmission rate for one session. A
// TargetMbps of zero means unthrottled best-effort sending. The config is
// immutable for the lifetime of a session.
type RateConfig struct {
	TargetMbps float64
	PacketSize int
}

func (c RateConfig) Validate() error {
	if c.PacketSize <= 0 {
		return fmt.Errorf("packet size must be positive, got %d", c.PacketSize)
	}
	if c.TargetMbps < 0 {
		return fmt.Errorf("target rate must not be negative, got %g", c.TargetMbps)
	}
	return nil
}

func (c RateConfig) BitsPerSecond() float64 {
	return c.TargetMbps * 1e6
}

// Interval returns the time between successive packet sends. A zero rate
// maps to a zero interval, which the pacer treats as "never sleep".
func (c RateConfig) Interval() time.Duration {
	bps := c.BitsPerSecond()
	if bps <= 0 {
		return 0
	}
	seconds := float64(c.PacketSize*8) / bps
	return time.Duration(seconds * float64(time.Second))
}
