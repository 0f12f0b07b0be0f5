// Package tunadapter adapts a pre-constructed wireguard/tun.Device to the
// narrow application.TUNDevice contract the core requires. Creation,
// addressing, MTU, and routing mutation stay the caller's responsibility.
package tunadapter

import (
	"golang.zx2c4.com/wireguard/tun"

	"vpnse/application"
	verr "vpnse/errors"
)

// maxPacketBytes bounds a single IP packet read from or written to the TUN
// device, including the offset the driver reserves ahead of the payload.
const maxPacketBytes = 65535

// WireGuardTUN wraps a tun.Device, reusing its read buffer across calls the
// way the teacher's darwin adapter does.
type WireGuardTUN struct {
	device tun.Device

	readBuf [][]byte
	sizes   []int
}

// NewWireGuardTUN wraps dev. dev must already be open and configured
// (address, MTU, routes) by the caller.
func NewWireGuardTUN(dev tun.Device) application.TUNDevice {
	buf := make([]byte, maxPacketBytes)
	return &WireGuardTUN{
		device:  dev,
		readBuf: [][]byte{buf},
		sizes:   []int{0},
	}
}

// ReadPacket reads a single IP packet from the device.
func (w *WireGuardTUN) ReadPacket() ([]byte, error) {
	w.sizes[0] = 0
	n, err := w.device.Read(w.readBuf, w.sizes, 0)
	if err != nil {
		return nil, verr.New(verr.TunTap, "read from TUN device: %v", err)
	}
	if n == 0 {
		return nil, verr.New(verr.TunTap, "TUN device read returned no packets")
	}
	size := w.sizes[0]
	out := make([]byte, size)
	copy(out, w.readBuf[0][:size])
	return out, nil
}

// WritePacket writes a single IP packet to the device.
func (w *WireGuardTUN) WritePacket(b []byte) error {
	if len(b) == 0 {
		return verr.New(verr.TunTap, "write to TUN device: empty packet")
	}
	if _, err := w.device.Write([][]byte{b}, 0); err != nil {
		return verr.New(verr.TunTap, "write to TUN device: %v", err)
	}
	return nil
}
