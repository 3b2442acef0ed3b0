package metrics

import (
	"testing"
)

func TestProbeCollectorCounters(t *testing.T) {
	c := NewProbeCollector("test")

	c.ObserveSend(1400)
	c.ObserveSend(1400)
	c.ObserveReceive(512)

	snap := c.Snapshot()
	if snap.BytesSent != 2800 {
		t.Errorf("bytes sent: want 2800, got %d", snap.BytesSent)
	}
	if snap.PacketsSent != 2 {
		t.Errorf("packets sent: want 2, got %d", snap.PacketsSent)
	}
	if snap.BytesReceived != 512 {
		t.Errorf("bytes received: want 512, got %d", snap.BytesReceived)
	}
	if snap.PacketsReceived != 1 {
		t.Errorf("packets received: want 1, got %d", snap.PacketsReceived)
	}
	if snap.Direction != "send" {
		t.Errorf("direction: want send, got %q", snap.Direction)
	}
	if snap.Elapsed <= 0 {
		t.Error("elapsed not tracked after first observation")
	}
}

func TestProbeCollectorDirectionFollowsDominantSide(t *testing.T) {
	c := NewProbeCollector("")

	if snap := c.Snapshot(); snap.Direction != "idle" {
		t.Errorf("fresh collector direction: want idle, got %q", snap.Direction)
	}

	c.ObserveReceive(9000)
	c.ObserveSend(100)
	if snap := c.Snapshot(); snap.Direction != "receive" {
		t.Errorf("direction: want receive, got %q", snap.Direction)
	}
}

func TestProbeCollectorIgnoresNegativeSizes(t *testing.T) {
	c := NewProbeCollector("test")
	c.ObserveSend(-1)
	c.ObserveReceive(-1)

	snap := c.Snapshot()
	if snap.PacketsSent != 0 || snap.PacketsReceived != 0 {
		t.Errorf("negative sizes must be dropped, got %+v", snap)
	}
}

func TestProbeCollectorRegistryGathers(t *testing.T) {
	c := NewProbeCollector("test")
	c.ObserveSend(1000)

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("no metric families registered")
	}

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	for _, want := range []string{
		"test_probe_bytes_sent_total",
		"test_probe_throughput_bytes_per_second",
	} {
		if !found[want] {
			t.Errorf("metric %s not registered (have %v)", want, found)
		}
	}
}
