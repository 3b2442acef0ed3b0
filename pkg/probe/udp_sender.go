package probe

import (
	"context"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/gomer1002/lanprobe/internal"
	"github.com/gomer1002/lanprobe/pkg/metrics"
)

// UDPSenderConfig wires one datagram sending controller. An empty Target
// selects the limited broadcast address.
type UDPSenderConfig struct {
	Port      int
	Target    string
	Rate      RateConfig
	Collector *metrics.ProbeCollector

	// OnSessionEnd receives the final result when the run stops.
	OnSessionEnd func(dest net.Addr, res Result)
}

// UDPSender paces datagrams at a destination with no handshake and no
// delivery feedback. Send errors do not end the session; UDP gives no
// signal that a receiver exists at all.
type UDPSender struct {
	cfg   UDPSenderConfig
	pacer *Pacer
}

func NewUDPSender(cfg UDPSenderConfig) (*UDPSender, error) {
	pacer, err := NewPacer(cfg.Rate, cfg.Collector)
	if err != nil {
		return nil, err
	}
	return &UDPSender{cfg: cfg, pacer: pacer}, nil
}

// Run transmits until ctx is done. Socket setup failures are fatal.
func (s *UDPSender) Run(ctx context.Context) error {
	dest, err := s.destination()
	if err != nil {
		return err
	}

	lc := net.ListenConfig{Control: broadcastSocket}
	pc, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return fmt.Errorf("open udp socket: %w", err)
	}
	defer pc.Close()

	session := uuid.New()
	mode := "broadcast"
	if s.cfg.Target != "" {
		mode = "unicast"
	}
	internal.Info("starting udp transmission", internal.Fields{
		internal.FieldSession: session,
		internal.FieldTarget:  dest.String(),
		"mode":                mode,
		internal.FieldRate:    s.cfg.Rate.TargetMbps,
	})

	res, err := s.pacer.Run(ctx, &datagramSink{pc: pc, dest: dest})
	if err != nil {
		// The sink swallows send errors, so anything surfacing here is a
		// socket-level failure.
		internal.Warn("udp transmission ended with error", internal.Fields{
			internal.FieldSession: session,
			internal.FieldError:   err.Error(),
		})
	}

	if s.cfg.OnSessionEnd != nil {
		s.cfg.OnSessionEnd(dest, res)
	}
	return nil
}

func (s *UDPSender) destination() (*net.UDPAddr, error) {
	if s.cfg.Target == "" {
		return &net.UDPAddr{IP: net.IPv4bcast, Port: s.cfg.Port}, nil
	}
	ip := net.ParseIP(s.cfg.Target)
	if ip == nil {
		return nil, fmt.Errorf("invalid udp target %q", s.cfg.Target)
	}
	return &net.UDPAddr{IP: ip, Port: s.cfg.Port}, nil
}

// datagramSink adapts a packet socket to the pacer's writer contract.
// Failed sends are logged and reported as successful zero-byte writes so
// the pacing loop keeps running (fire-and-forget semantics).
type datagramSink struct {
	pc   net.PacketConn
	dest net.Addr
}

func (d *datagramSink) Write(p []byte) (int, error) {
	n, err := d.pc.WriteTo(p, d.dest)
	if err != nil {
		internal.Warn("udp send failed", internal.Fields{
			internal.FieldError: err.Error(),
		})
		return 0, nil
	}
	return n, nil
}
