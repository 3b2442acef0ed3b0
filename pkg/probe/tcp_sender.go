package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/gomer1002/lanprobe/internal"
	"github.com/gomer1002/lanprobe/pkg/metrics"
)

// TCPSenderConfig wires one sending session controller.
type TCPSenderConfig struct {
	Port      int
	Rate      RateConfig
	Collector *metrics.ProbeCollector

	// OnListening is invoked once with the bound listener address.
	OnListening func(addr net.Addr)
	// OnSessionEnd is invoked after every client session with its result.
	OnSessionEnd func(peer net.Addr, res Result)
}

// TCPSender owns one listening socket and streams paced packets to one
// client at a time. A client disconnect ends only that session; the
// listener survives until the context does.
type TCPSender struct {
	cfg   TCPSenderConfig
	pacer *Pacer
}

func NewTCPSender(cfg TCPSenderConfig) (*TCPSender, error) {
	pacer, err := NewPacer(cfg.Rate, cfg.Collector)
	if err != nil {
		return nil, err
	}
	return &TCPSender{cfg: cfg, pacer: pacer}, nil
}

// Run listens, then serves sequential client sessions until ctx is done.
// Bind or listen failures are fatal and returned immediately.
func (s *TCPSender) Run(ctx context.Context) error {
	lc := net.ListenConfig{Control: reuseAddr}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listen tcp :%d: %w", s.cfg.Port, err)
	}
	defer ln.Close()

	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		return fmt.Errorf("unexpected listener type %T", ln)
	}

	if s.cfg.OnListening != nil {
		s.cfg.OnListening(ln.Addr())
	}
	internal.Info("waiting for tcp connections", internal.Fields{
		internal.FieldPort: tcpPort(ln.Addr()),
	})

	for {
		if ctx.Err() != nil {
			return nil
		}

		// The accept deadline keeps the cancellation check responsive;
		// timeouts just loop back around.
		if err := tcpLn.SetDeadline(time.Now().Add(acceptDeadline)); err != nil {
			return fmt.Errorf("set accept deadline: %w", err)
		}
		conn, err := tcpLn.Accept()
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.stream(ctx, conn)
	}
}

// stream runs one client session to completion and reports its result.
func (s *TCPSender) stream(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	session := uuid.New()
	peer := conn.RemoteAddr()
	internal.Info("client connected", internal.Fields{
		internal.FieldSession: session,
		internal.FieldPeer:    peer.String(),
	})

	res, err := s.pacer.Run(ctx, &deadlineWriter{conn: conn, timeout: writeDeadline})
	switch {
	case errors.Is(err, ErrPeerDisconnected):
		internal.Info("client disconnected, ready for the next connection", internal.Fields{
			internal.FieldSession: session,
			internal.FieldPeer:    peer.String(),
		})
	case err != nil:
		internal.Warn("session ended with error", internal.Fields{
			internal.FieldSession: session,
			internal.FieldError:   err.Error(),
		})
	}

	if s.cfg.OnSessionEnd != nil {
		s.cfg.OnSessionEnd(peer, res)
	}
}

// deadlineWriter bounds each write so the pacing loop can observe
// cancellation even when the peer stops draining the connection.
type deadlineWriter struct {
	conn    net.Conn
	timeout time.Duration
}

func (w *deadlineWriter) Write(p []byte) (int, error) {
	if err := w.conn.SetWriteDeadline(time.Now().Add(w.timeout)); err != nil {
		return 0, err
	}
	return w.conn.Write(p)
}

func tcpPort(addr net.Addr) int {
	if a, ok := addr.(*net.TCPAddr); ok {
		return a.Port
	}
	return 0
}
