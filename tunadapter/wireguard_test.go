package tunadapter

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"golang.zx2c4.com/wireguard/tun"
)

// fakeDevice is a minimal tun.Device stand-in driving reads from a queue and
// capturing writes.
type fakeDevice struct {
	toRead  [][]byte
	readErr error
	written [][]byte
	writeErr error
}

func (f *fakeDevice) File() *os.File { return nil }

func (f *fakeDevice) Read(bufs [][]byte, sizes []int, offset int) (int, error) {
	if f.readErr != nil {
		return 0, f.readErr
	}
	if len(f.toRead) == 0 {
		return 0, errors.New("no more packets")
	}
	pkt := f.toRead[0]
	f.toRead = f.toRead[1:]
	n := copy(bufs[0][offset:], pkt)
	sizes[0] = n
	return 1, nil
}

func (f *fakeDevice) Write(bufs [][]byte, offset int) (int, error) {
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	cp := make([]byte, len(bufs[0])-offset)
	copy(cp, bufs[0][offset:])
	f.written = append(f.written, cp)
	return len(bufs), nil
}

func (f *fakeDevice) MTU() (int, error)            { return 1500, nil }
func (f *fakeDevice) Name() (string, error)        { return "fake0", nil }
func (f *fakeDevice) Events() <-chan tun.Event     { return make(chan tun.Event) }
func (f *fakeDevice) Close() error                 { return nil }
func (f *fakeDevice) BatchSize() int                { return 1 }

func TestReadPacketReturnsDecodedPayload(t *testing.T) {
	dev := &fakeDevice{toRead: [][]byte{[]byte("hello-packet")}}
	w := NewWireGuardTUN(dev)

	got, err := w.ReadPacket()
	if err != nil {
		t.Fatalf("ReadPacket: %v", err)
	}
	if !bytes.Equal(got, []byte("hello-packet")) {
		t.Fatalf("got %q, want %q", got, "hello-packet")
	}
}

func TestReadPacketPropagatesDeviceError(t *testing.T) {
	dev := &fakeDevice{readErr: errors.New("device gone")}
	w := NewWireGuardTUN(dev)

	if _, err := w.ReadPacket(); err == nil {
		t.Fatal("expected error")
	}
}

func TestWritePacketSendsRawBytes(t *testing.T) {
	dev := &fakeDevice{}
	w := NewWireGuardTUN(dev)

	if err := w.WritePacket([]byte("outbound")); err != nil {
		t.Fatalf("WritePacket: %v", err)
	}
	if len(dev.written) != 1 || !bytes.Equal(dev.written[0], []byte("outbound")) {
		t.Fatalf("written = %v, want one packet %q", dev.written, "outbound")
	}
}

func TestWritePacketRejectsEmpty(t *testing.T) {
	dev := &fakeDevice{}
	w := NewWireGuardTUN(dev)

	if err := w.WritePacket(nil); err == nil {
		t.Fatal("expected error for empty packet")
	}
}
