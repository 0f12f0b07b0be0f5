//go:build unix

package transport

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// applyPlatformDialerOptions tunes the dial on unix targets: disable
// Nagle's algorithm and enable TCP keepalive probing, in the style of the
// teacher's per-OS PAL split (infrastructure/PAL/{linux,darwin,windows}).
func applyPlatformDialerOptions(d *net.Dialer) {
	d.Control = func(_, _ string, c syscall.RawConn) error {
		var ctrlErr error
		err := c.Control(func(fd uintptr) {
			ctrlErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_NODELAY, 1)
		})
		if err != nil {
			return err
		}
		return ctrlErr
	}
	d.KeepAlive = keepAliveInterval
}
