package handshake

import (
	"context"
	"testing"

	"vpnse/pack"
	"vpnse/settings"
)

type fakeCall struct {
	path        string
	contentType string
	body        []byte
}

type fakePoster struct {
	calls     []fakeCall
	responses []fakeResponse
}

type fakeResponse struct {
	status int
	body   []byte
	err    error
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

func successAuthReply(sessionID string) []byte {
	c := &pack.Container{}
	c.AddInt32("auth_success", 1)
	c.AddStr("session_id", sessionID)
	b, err := c.Encode()
	if err != nil {
		panic(err)
	}
	return b
}

func authConfig(user, pass string) settings.AuthConfig {
	return settings.AuthConfig{Method: settings.MethodPassword, Username: user, Password: pass}
}

func TestRunHappyPath(t *testing.T) {
	p := &fakePoster{responses: []fakeResponse{
		{status: 200},
		{status: 200, body: successAuthReply("S-1")},
	}}
	e := New(p, nil)

	result, err := e.Run(context.Background(), authConfig("u", "p"), "DEFAULT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SessionID != "S-1" {
		t.Errorf("SessionID = %q, want S-1", result.SessionID)
	}
	if e.State() != Ready {
		t.Errorf("state = %v, want Ready", e.State())
	}
	if len(p.calls) != 2 {
		t.Fatalf("calls = %d, want 2", len(p.calls))
	}
	if p.calls[0].contentType != "application/x-www-form-urlencoded" {
		t.Errorf("first call content-type = %q", p.calls[0].contentType)
	}
	if p.calls[1].contentType != "application/octet-stream" {
		t.Errorf("second call content-type = %q", p.calls[1].contentType)
	}

	decoded, err := pack.Decode(p.calls[1].body, nil)
	if err != nil {
		t.Fatalf("decode sent auth pack: %v", err)
	}
	if method, _ := decoded.GetStr("method"); method != "login" {
		t.Errorf("method = %q, want login", method)
	}
	if hub, _ := decoded.GetStr("hub"); hub != "DEFAULT" {
		t.Errorf("hub = %q, want DEFAULT", hub)
	}
}

func TestWatermarkFallback(t *testing.T) {
	p := &fakePoster{responses: []fakeResponse{
		{status: 400},
		{status: 200},
		{status: 200, body: successAuthReply("S-2")},
	}}
	e := New(p, nil)

	result, err := e.Run(context.Background(), authConfig("u", "p"), "DEFAULT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.SessionID != "S-2" {
		t.Errorf("SessionID = %q, want S-2", result.SessionID)
	}
	if len(p.calls) != 3 {
		t.Fatalf("calls = %d, want 3 (form, gif, auth)", len(p.calls))
	}
	if p.calls[1].contentType != "image/gif" {
		t.Errorf("fallback content-type = %q, want image/gif", p.calls[1].contentType)
	}
}

func TestAuthFailureNoSavePassword(t *testing.T) {
	errReply := &pack.Container{}
	errReply.AddData("error", []byte("no_save_password: policy rejected"))
	errBody, err := errReply.Encode()
	if err != nil {
		t.Fatal(err)
	}

	p := &fakePoster{responses: []fakeResponse{
		{status: 200},
		{status: 200, body: errBody},
	}}
	e := New(p, nil)

	_, err = e.Run(context.Background(), authConfig("u", "p"), "DEFAULT")
	if err == nil {
		t.Fatal("expected error")
	}
	if e.State() != Failed {
		t.Errorf("state = %v, want Failed", e.State())
	}
}

func TestSessionIDSynthesizedWhenAbsent(t *testing.T) {
	reply := &pack.Container{}
	reply.AddInt32("auth_success", 1)
	body, err := reply.Encode()
	if err != nil {
		t.Fatal(err)
	}

	p := &fakePoster{responses: []fakeResponse{
		{status: 200},
		{status: 200, body: body},
	}}
	e := New(p, nil)

	result, err := e.Run(context.Background(), authConfig("u", "p"), "DEFAULT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(result.SessionID) == 0 {
		t.Fatal("expected synthesized session id")
	}
}

func TestUnsupportedAuthMethod(t *testing.T) {
	p := &fakePoster{}
	e := New(p, nil)

	_, err := e.Run(context.Background(), settings.AuthConfig{Method: settings.MethodAnonymous}, "DEFAULT")
	if err == nil {
		t.Fatal("expected error for unsupported auth method")
	}
	if len(p.calls) != 0 {
		t.Errorf("expected no transport calls, got %d", len(p.calls))
	}
}
