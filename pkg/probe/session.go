package probe

import (
	"net"
	"time"
)

// Socket deadlines. The short ones exist purely so loops observe context
// cancellation; they are not protocol timeouts.
const (
	acceptDeadline            = 1 * time.Second
	writeDeadline             = 1 * time.Second
	readDeadline              = 100 * time.Millisecond
	defaultFirstPacketTimeout = 5 * time.Second

	tcpReadBufferSize = 8192
	udpReadBufferSize = 64 * 1024
)

// ReceiverStats carries the latency measurements and the final throughput
// result of one receiving session. Latencies are zero when the session
// never reached the corresponding phase.
type ReceiverStats struct {
	ConnectLatency     time.Duration
	FirstPacketLatency time.Duration
	Source             net.Addr
	Result             Result
}
