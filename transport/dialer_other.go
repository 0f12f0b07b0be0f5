//go:build !unix

package transport

import "net"

// applyPlatformDialerOptions on non-unix targets only sets the TCP
// keepalive interval; no socket options are set through Dialer.Control.
func applyPlatformDialerOptions(d *net.Dialer) {
	d.KeepAlive = keepAliveInterval
}
