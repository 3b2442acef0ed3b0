package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultNamespace = "lanprobe"
	subsystemProbe   = "probe"
)

// ProbeCollector tracks per-run traffic counters and exposes them through a
// Prometheus registry. Senders feed it packet writes, receivers feed it
// packet reads; either side may leave the other direction at zero.
type ProbeCollector struct {
	mu        sync.RWMutex
	namespace string
	registry  *prometheus.Registry

	startTime       time.Time
	bytesSent       uint64
	bytesReceived   uint64
	packetsSent     uint64
	packetsReceived uint64
}

// ProbeSnapshot is a point-in-time view of the collected counters with
// derived rates.
type ProbeSnapshot struct {
	Direction       string
	Elapsed         time.Duration
	BytesSent       uint64
	BytesReceived   uint64
	PacketsSent     uint64
	PacketsReceived uint64
	ThroughputBps   float64
	ThroughputMbps  float64
	TxPacketsPerSec float64
	RxPacketsPerSec float64
}

func NewProbeCollector(namespace string) *ProbeCollector {
	if strings.TrimSpace(namespace) == "" {
		namespace = defaultNamespace
	}
	c := &ProbeCollector{
		namespace: namespace,
		registry:  prometheus.NewRegistry(),
	}
	c.registerMetrics()
	return c
}

// Registry returns the prometheus registry managed by this collector.
func (c *ProbeCollector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveSend records one transmitted packet of the given size.
func (c *ProbeCollector) ObserveSend(bytes int) {
	if bytes < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureStartTimeLocked()
	c.bytesSent += uint64(bytes)
	c.packetsSent++
}

// ObserveReceive records one received packet of the given size.
func (c *ProbeCollector) ObserveReceive(bytes int) {
	if bytes < 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ensureStartTimeLocked()
	c.bytesReceived += uint64(bytes)
	c.packetsReceived++
}

// Snapshot creates a read-only view of the collected counters.
func (c *ProbeCollector) Snapshot() ProbeSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.buildSnapshotLocked(time.Now())
}

func (c *ProbeCollector) ensureStartTimeLocked() {
	if c.startTime.IsZero() {
		c.startTime = time.Now()
	}
}

func (c *ProbeCollector) buildSnapshotLocked(now time.Time) ProbeSnapshot {
	primaryBytes := c.bytesSent
	direction := "idle"
	if c.bytesReceived > primaryBytes {
		primaryBytes = c.bytesReceived
		direction = "receive"
	} else if primaryBytes > 0 {
		direction = "send"
	}

	elapsed := time.Duration(0)
	if !c.startTime.IsZero() {
		elapsed = now.Sub(c.startTime)
	}

	throughput := rateFromCount(primaryBytes, elapsed)

	return ProbeSnapshot{
		Direction:       direction,
		Elapsed:         elapsed,
		BytesSent:       c.bytesSent,
		BytesReceived:   c.bytesReceived,
		PacketsSent:     c.packetsSent,
		PacketsReceived: c.packetsReceived,
		ThroughputBps:   throughput,
		ThroughputMbps:  throughput * 8 / 1e6,
		TxPacketsPerSec: rateFromCount(c.packetsSent, elapsed),
		RxPacketsPerSec: rateFromCount(c.packetsReceived, elapsed),
	}
}

func rateFromCount(count uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed.Seconds()
}

func (c *ProbeCollector) registerMetrics() {
	makeGauge := func(name, help string, valueFn func(ProbeSnapshot) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: c.namespace,
			Subsystem: subsystemProbe,
			Name:      name,
			Help:      help,
		}, func() float64 {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return valueFn(c.buildSnapshotLocked(time.Now()))
		})
	}

	makeCounter := func(name, help string, valueFn func() float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: c.namespace,
			Subsystem: subsystemProbe,
			Name:      name,
			Help:      help,
		}, valueFn)
	}

	c.registry.MustRegister(makeGauge(
		"throughput_bytes_per_second",
		"Observed probe throughput in the dominant direction.",
		func(s ProbeSnapshot) float64 { return s.ThroughputBps },
	))
	c.registry.MustRegister(makeGauge(
		"packets_tx_per_second",
		"Probe packets transmitted per second.",
		func(s ProbeSnapshot) float64 { return s.TxPacketsPerSec },
	))
	c.registry.MustRegister(makeGauge(
		"packets_rx_per_second",
		"Probe packets received per second.",
		func(s ProbeSnapshot) float64 { return s.RxPacketsPerSec },
	))

	c.registry.MustRegister(makeCounter(
		"bytes_sent_total",
		"Total payload bytes written to the network.",
		func() float64 {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return float64(c.bytesSent)
		},
	))
	c.registry.MustRegister(makeCounter(
		"bytes_received_total",
		"Total payload bytes read from the network.",
		func() float64 {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return float64(c.bytesReceived)
		},
	))
	c.registry.MustRegister(makeCounter(
		"packets_sent_total",
		"Total packets written to the network.",
		func() float64 {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return float64(c.packetsSent)
		},
	))
	c.registry.MustRegister(makeCounter(
		"packets_received_total",
		"Total packets read from the network.",
		func() float64 {
			c.mu.RLock()
			defer c.mu.RUnlock()
			return float64(c.packetsReceived)
		},
	))
}
