package session

import (
	"context"
	"errors"
	"hash/fnv"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"vpnse/application"
	verr "vpnse/errors"
)

// FrameID derives the numeric session identifier the binary framing header
// carries from the server-assigned opaque session_id string. The PACK auth
// reply's session_id and the binary protocol's u32 session_id are distinct
// fields in the original SoftEther wire formats; this 32-bit FNV-1a hash
// (non-cryptographic) gives every session a stable numeric handle without
// the server needing to hand one out separately.
func FrameID(sessionID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return h.Sum32()
}

// DataPlane moves IP frames between the TUN collaborator and the transport
// over the post-auth binary framing protocol, and runs the keepalive clock
// alongside them (component C5).
type DataPlane struct {
	conn    application.ConnectionAdapterWithDeadline
	tun     application.TUNDevice
	session *Session
	logger  application.Logger
	batcher *Batcher // nil disables batching: every frame is written directly
	clock   *Clock
}

func NewDataPlane(conn application.ConnectionAdapterWithDeadline, tun application.TUNDevice, s *Session, logger application.Logger, batcher *Batcher, clock *Clock) *DataPlane {
	return &DataPlane{conn: conn, tun: tun, session: s, logger: logger, batcher: batcher, clock: clock}
}

// Run starts the TUN->transport pump, the transport->TUN pump, the keepalive
// clock, and (if configured) the batcher, supervised by an errgroup: the
// first failure cancels the group's context, which unblocks the others via
// EOF/ctx.Done.
func (d *DataPlane) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return d.pumpTunToTransport(ctx) })
	g.Go(func() error { return d.pumpTransportToTun(ctx) })
	if d.batcher != nil {
		g.Go(func() error { return d.batcher.Run(ctx) })
	}
	if d.clock != nil {
		g.Go(func() error { return d.clock.Run(ctx) })
	}

	return g.Wait()
}

func (d *DataPlane) pumpTunToTransport(ctx context.Context) error {
	frameSessionID := FrameID(d.session.ID)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		payload, err := d.tun.ReadPacket()
		if err != nil {
			return verr.New(verr.TunTap, "read from tun: %v", err)
		}

		frame := Frame{
			Type:      FrameData,
			SessionID: frameSessionID,
			Sequence:  d.session.NextSequenceOut(),
			Payload:   payload,
		}
		encoded := frame.Encode()

		if d.batcher != nil {
			d.batcher.Enqueue(encoded)
			continue
		}
		if _, err := d.conn.Write(encoded); err != nil {
			return verr.New(verr.Network, "write frame: %v", err)
		}
	}
}

func (d *DataPlane) pumpTransportToTun(ctx context.Context) error {
	var lastSeqByType [7]uint32

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := ReadFrame(d.conn)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return verr.New(verr.Network, "read frame: %v", err)
		}

		idx := int(frame.Type)
		if idx < 0 || idx >= len(lastSeqByType) {
			if d.logger != nil {
				d.logger.Printf("session: frame with unknown type %d ignored", frame.Type)
			}
			continue
		}
		expected := lastSeqByType[idx] + 1
		if err := checkSequence(expected, frame.Sequence); err != nil {
			return err
		}
		lastSeqByType[idx] = frame.Sequence
		d.session.SetSequenceIn(frame.Sequence)

		switch frame.Type {
		case FrameData:
			if err := d.tun.WritePacket(frame.Payload); err != nil {
				return verr.New(verr.TunTap, "write to tun: %v", err)
			}
		case FrameKeepalive:
			d.session.MarkKeepaliveSent(time.Now())
		default:
			if d.logger != nil {
				d.logger.Printf("session: received control frame type %d", frame.Type)
			}
		}
	}
}
