package probe

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddr lets sequential runs rebind a port still in TIME_WAIT.
func reuseAddr(network, address string, c syscall.RawConn) error {
	var opErr error
	if err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
	}); err != nil {
		return err
	}
	return opErr
}

// broadcastSocket additionally allows datagrams addressed to
// 255.255.255.255.
func broadcastSocket(network, address string, c syscall.RawConn) error {
	if err := reuseAddr(network, address, c); err != nil {
		return err
	}
	var opErr error
	if err := c.Control(func(fd uintptr) {
		opErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	}); err != nil {
		return err
	}
	return opErr
}
