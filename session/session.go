// Package session owns the authenticated session record and the post-auth
// data plane: keepalives, PACK-wrapped and binary-framed packet carriers,
// and the TUN<->transport pumps (component C5).
package session

import (
	"sync/atomic"
	"time"
)

// Session is the record the controller builds from the handshake engine's
// result on successful authentication. It is immutable after creation except for the counters, which
// the data-plane goroutines update concurrently with atomics.
type Session struct {
	ID               string
	ServerEndpoint   string
	AssignedIP       string
	ServerVirtualIP  string

	// DerivedKey holds the optional HKDF-derived defense-in-depth key (see
	// cryptography/sessionkey), set only when the caller turned on
	// settings.AuthConfig.DeriveSessionKey. Never required: TLS alone
	// covers payload confidentiality.
	DerivedKey []byte

	sequenceOut atomic.Uint32
	sequenceIn  atomic.Uint32

	lastKeepaliveSent atomic.Int64 // unix nano; 0 means never
	authenticated     atomic.Bool
}

// New builds a session record from the handshake result, already latched
// authenticated (a Session only exists once auth has succeeded).
func New(id, endpoint string) *Session {
	s := &Session{ID: id, ServerEndpoint: endpoint}
	s.authenticated.Store(true)
	return s
}

// NextSequenceOut returns the next outbound frame sequence number,
// incrementing the counter by exactly one.
func (s *Session) NextSequenceOut() uint32 { return s.sequenceOut.Add(1) }

// SequenceIn returns the last inbound sequence number observed.
func (s *Session) SequenceIn() uint32 { return s.sequenceIn.Load() }

// SetSequenceIn records the last inbound sequence number observed.
func (s *Session) SetSequenceIn(v uint32) { s.sequenceIn.Store(v) }

// IsAuthenticated reports the authentication latch.
func (s *Session) IsAuthenticated() bool { return s.authenticated.Load() }

// MarkKeepaliveSent records the wall-clock instant of the most recent
// keepalive.
func (s *Session) MarkKeepaliveSent(t time.Time) { s.lastKeepaliveSent.Store(t.UnixNano()) }

// LastKeepaliveSent returns the wall-clock instant of the most recent
// keepalive, or the zero Time if none has been sent yet.
func (s *Session) LastKeepaliveSent() time.Time {
	n := s.lastKeepaliveSent.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}
