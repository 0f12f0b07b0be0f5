package session

import (
	"context"
	"time"

	verr "vpnse/errors"
	"vpnse/pack"
)

const connectPath = "/vpnsvc/connect.cgi"

// poster is the narrow HTTPS send/receive contract the PACK-wrapped carriers
// need; transport.Transport satisfies it.
type poster interface {
	Post(ctx context.Context, path, contentType string, body []byte) (int, []byte, error)
}

// PackCarrier sends keepalives and one-frame-per-request data over the same
// HTTPS endpoint used for the handshake. Simpler than binary framing but
// limited to one IP frame per round trip (spec.md §4.5).
type PackCarrier struct {
	transport poster
}

func NewPackCarrier(transport poster) *PackCarrier {
	return &PackCarrier{transport: transport}
}

// SendKeepalive posts a keepalive PACK and discards the response body; the
// caller (Clock) is responsible for counting consecutive failures.
func (c *PackCarrier) SendKeepalive(ctx context.Context, now time.Time) error {
	p := &pack.Container{}
	p.AddStr("type", "keepalive")
	p.AddInt64("timestamp", uint64(now.Unix()))

	body, err := p.Encode()
	if err != nil {
		return verr.New(verr.Protocol, "encode keepalive PACK: %v", err)
	}

	status, _, err := c.transport.Post(ctx, connectPath, "application/octet-stream", body)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return verr.New(verr.Network, "keepalive rejected: HTTP %d", status)
	}
	return nil
}

// SendData posts one IP frame wrapped in a PACK container and returns any
// downstream payload the server piggybacked on the response — the request/
// response round trip carries traffic in both directions, since there is no
// separate server-initiated channel in this carrier (spec.md §4.5
// "PACK-wrapped: ... one-frame-per-HTTPS-request"). A nil reply means the
// server had nothing to send back on this round trip.
func (c *PackCarrier) SendData(ctx context.Context, sessionID string, payload []byte, now time.Time) ([]byte, error) {
	p := &pack.Container{}
	p.AddStr("session_id", sessionID)
	p.AddData("packet_data", payload)
	p.AddInt64("timestamp", uint64(now.Unix()))

	body, err := p.Encode()
	if err != nil {
		return nil, verr.New(verr.Protocol, "encode data PACK: %v", err)
	}

	status, respBody, err := c.transport.Post(ctx, connectPath, "application/octet-stream", body)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, verr.New(verr.Network, "data frame rejected: HTTP %d", status)
	}
	if len(respBody) == 0 {
		return nil, nil
	}

	reply, err := pack.Decode(respBody, nil)
	if err != nil {
		return nil, verr.New(verr.Protocol, "decode data reply: %v", err)
	}
	data, _ := reply.GetData("packet_data")
	return data, nil
}
