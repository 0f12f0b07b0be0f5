package session

import (
	"context"
	"io"
	"testing"

	verr "vpnse/errors"
)

type queueTun struct {
	toSend  [][]byte
	i       int
	written [][]byte
}

func (t *queueTun) ReadPacket() ([]byte, error) {
	if t.i >= len(t.toSend) {
		return nil, io.EOF
	}
	p := t.toSend[t.i]
	t.i++
	return p, nil
}

func (t *queueTun) WritePacket(b []byte) error {
	t.written = append(t.written, append([]byte(nil), b...))
	return nil
}

func TestPackDataPlaneDeliversRepliesToTun(t *testing.T) {
	p := &fakePoster{responses: []fakeResponse{
		{status: 200, body: dataReply([]byte("down-1"))},
		{status: 200},
	}}
	carrier := NewPackCarrier(p)
	s := New("S-1", "host:443")
	tun := &queueTun{toSend: [][]byte{[]byte("up-1"), []byte("up-2")}}
	dp := NewPackDataPlane(carrier, tun, s, nil)

	err := dp.Run(context.Background())
	if !verr.Is(err, verr.TunTap) {
		t.Fatalf("Run error = %v, want TunTap (tun EOF)", err)
	}
	if len(tun.written) != 1 || string(tun.written[0]) != "down-1" {
		t.Fatalf("written = %v, want [down-1]", tun.written)
	}
	if len(p.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(p.calls))
	}
}

func TestPackDataPlaneStopsOnSendError(t *testing.T) {
	p := &fakePoster{responses: []fakeResponse{{status: 500}}}
	carrier := NewPackCarrier(p)
	s := New("S-1", "host:443")
	tun := &queueTun{toSend: [][]byte{[]byte("up-1")}}
	dp := NewPackDataPlane(carrier, tun, s, nil)

	err := dp.Run(context.Background())
	if err == nil {
		t.Fatal("Run: want error on rejected send")
	}
}
