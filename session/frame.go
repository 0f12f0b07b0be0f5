package session

import (
	"encoding/binary"
	"io"

	verr "vpnse/errors"
)

// FrameType is the first byte of a binary framing header.
type FrameType uint8

const (
	FrameHello             FrameType = 0x01
	FrameHelloAck          FrameType = 0x02
	FrameKeepalive         FrameType = 0x03
	FrameData              FrameType = 0x04
	FrameSessionEstablish  FrameType = 0x05
	FrameSessionAck        FrameType = 0x06
)

// frameHeaderLen is the fixed size of a binary framing header: type (1) +
// session_id (4) + sequence (4) + payload_len (4).
const frameHeaderLen = 13

// Frame is one unit of the post-auth binary framing protocol: a 13-byte
// big-endian header followed by payload_len bytes of payload.
type Frame struct {
	Type      FrameType
	SessionID uint32
	Sequence  uint32
	Payload   []byte
}

// Encode serializes the frame header and payload for a single write.
func (f Frame) Encode() []byte {
	buf := make([]byte, frameHeaderLen+len(f.Payload))
	buf[0] = byte(f.Type)
	binary.BigEndian.PutUint32(buf[1:5], f.SessionID)
	binary.BigEndian.PutUint32(buf[5:9], f.Sequence)
	binary.BigEndian.PutUint32(buf[9:13], uint32(len(f.Payload)))
	copy(buf[13:], f.Payload)
	return buf
}

// ReadFrame reads exactly one frame from r, blocking until the full header
// and payload have arrived or an error (including io.EOF) occurs.
func ReadFrame(r io.Reader) (Frame, error) {
	var header [frameHeaderLen]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Frame{}, err
	}

	f := Frame{
		Type:      FrameType(header[0]),
		SessionID: binary.BigEndian.Uint32(header[1:5]),
		Sequence:  binary.BigEndian.Uint32(header[5:9]),
	}
	payloadLen := binary.BigEndian.Uint32(header[9:13])
	if payloadLen > 0 {
		f.Payload = make([]byte, payloadLen)
		if _, err := io.ReadFull(r, f.Payload); err != nil {
			return Frame{}, err
		}
	}
	return f, nil
}

// checkSequence enforces strictly increasing per-type ordering: got must be
// exactly expected. Callers track the last sequence per type starting at 0,
// so the first frame of a given type must carry sequence 1.
func checkSequence(expected, got uint32) error {
	if got != expected {
		return verr.New(verr.Protocol, "sequence gap: expected %d, got %d", expected, got)
	}
	return nil
}
