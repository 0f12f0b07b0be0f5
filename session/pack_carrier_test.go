package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"vpnse/pack"
)

type fakeCall struct {
	path        string
	contentType string
	body        []byte
}

type fakeResponse struct {
	status int
	body   []byte
	err    error
}

type fakePoster struct {
	calls     []fakeCall
	responses []fakeResponse
}

func (f *fakePoster) Post(_ context.Context, path, contentType string, body []byte) (int, []byte, error) {
	f.calls = append(f.calls, fakeCall{path: path, contentType: contentType, body: body})
	idx := len(f.calls) - 1
	if idx >= len(f.responses) {
		return 200, nil, nil
	}
	r := f.responses[idx]
	return r.status, r.body, r.err
}

func dataReply(payload []byte) []byte {
	c := &pack.Container{}
	c.AddData("packet_data", payload)
	b, err := c.Encode()
	if err != nil {
		panic(err)
	}
	return b
}

func TestPackCarrierSendKeepaliveHappyPath(t *testing.T) {
	p := &fakePoster{responses: []fakeResponse{{status: 200}}}
	c := NewPackCarrier(p)

	if err := c.SendKeepalive(context.Background(), time.Unix(100, 0)); err != nil {
		t.Fatalf("SendKeepalive: %v", err)
	}
	if len(p.calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(p.calls))
	}
	decoded, err := pack.Decode(p.calls[0].body, nil)
	if err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if typ, _ := decoded.GetStr("type"); typ != "keepalive" {
		t.Errorf("type = %q, want keepalive", typ)
	}
}

func TestPackCarrierSendKeepaliveRejected(t *testing.T) {
	p := &fakePoster{responses: []fakeResponse{{status: 500}}}
	c := NewPackCarrier(p)

	if err := c.SendKeepalive(context.Background(), time.Unix(100, 0)); err == nil {
		t.Fatal("SendKeepalive: want error on HTTP 500")
	}
}

func TestPackCarrierSendKeepaliveTransportError(t *testing.T) {
	wantErr := errors.New("dial timeout")
	p := &fakePoster{responses: []fakeResponse{{err: wantErr}}}
	c := NewPackCarrier(p)

	if err := c.SendKeepalive(context.Background(), time.Unix(100, 0)); !errors.Is(err, wantErr) {
		t.Fatalf("SendKeepalive error = %v, want %v", err, wantErr)
	}
}

func TestPackCarrierSendDataRoundTrip(t *testing.T) {
	p := &fakePoster{responses: []fakeResponse{{status: 200, body: dataReply([]byte("downstream"))}}}
	c := NewPackCarrier(p)

	reply, err := c.SendData(context.Background(), "S-1", []byte("upstream"), time.Unix(200, 0))
	if err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if string(reply) != "downstream" {
		t.Errorf("reply = %q, want downstream", reply)
	}

	decoded, err := pack.Decode(p.calls[0].body, nil)
	if err != nil {
		t.Fatalf("decode sent body: %v", err)
	}
	if sid, _ := decoded.GetStr("session_id"); sid != "S-1" {
		t.Errorf("session_id = %q, want S-1", sid)
	}
	if payload, _ := decoded.GetData("packet_data"); string(payload) != "upstream" {
		t.Errorf("packet_data = %q, want upstream", payload)
	}
}

func TestPackCarrierSendDataNoReplyPayload(t *testing.T) {
	p := &fakePoster{responses: []fakeResponse{{status: 200}}}
	c := NewPackCarrier(p)

	reply, err := c.SendData(context.Background(), "S-1", []byte("upstream"), time.Unix(200, 0))
	if err != nil {
		t.Fatalf("SendData: %v", err)
	}
	if reply != nil {
		t.Errorf("reply = %v, want nil", reply)
	}
}

func TestPackCarrierSendDataRejected(t *testing.T) {
	p := &fakePoster{responses: []fakeResponse{{status: 403}}}
	c := NewPackCarrier(p)

	if _, err := c.SendData(context.Background(), "S-1", []byte("x"), time.Unix(0, 0)); err == nil {
		t.Fatal("SendData: want error on HTTP 403")
	}
}
