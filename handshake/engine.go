// Package handshake drives the SoftEther SSL-VPN handshake: the HTTP
// watermark exchange and the PACK-encoded authentication exchange that
// follow TLS connect, as a linear state machine (component C4).
package handshake

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"

	"vpnse/application"
	verr "vpnse/errors"
	"vpnse/pack"
	"vpnse/settings"
)

const (
	clientVer   = 4560
	clientBuild = 9686
	clientStr   = "SE-VPN Client"
)

// poster is the narrow "send bytes, get bytes over HTTPS" contract the
// handshake engine needs from the transport. transport.Transport satisfies
// it; tests substitute a fake.
type poster interface {
	Post(ctx context.Context, path, contentType string, body []byte) (int, []byte, error)
}

// Result carries everything the auth exchange learned about the session.
type Result struct {
	SessionID    string
	SessionKey   []byte
	AssignedIPv4 uint32
	HasAssignedIPv4 bool
}

// Engine runs the handshake state machine over an already-established TLS
// transport. It holds no transport of its own; Dial (package transport)
// happens before the engine is constructed.
type Engine struct {
	transport poster
	logger    application.Logger
	state     State

	// watermarkDone latches once the watermark exchange has succeeded, so a
	// failed login can be retried on the same engine.
	watermarkDone bool
}

func New(transport poster, logger application.Logger) *Engine {
	return &Engine{transport: transport, logger: logger, state: TLSUp}
}

// State reports the engine's current position in the state machine.
func (e *Engine) State() State { return e.state }

func (e *Engine) fail(err error) error {
	e.state = Failed
	return err
}

// Run drives the full handshake: watermark, then PACK auth. On success the
// engine ends in Ready and Run returns the session Result.
func (e *Engine) Run(ctx context.Context, auth settings.AuthConfig, hub string) (*Result, error) {
	if auth.Method != settings.MethodPassword {
		return nil, e.fail(verr.New(verr.Config, "auth method %q is not supported", auth.Method))
	}
	if err := e.Watermark(ctx); err != nil {
		return nil, err
	}
	return e.Authenticate(ctx, auth, hub)
}

// Watermark runs step 1 alone: TLS is assumed already up, and this advances
// the engine to WatermarkOK. The controller uses this on its own for the
// Connecting->Connected edge, which spec.md §4.6 gates on "TLS+watermark ok"
// and keeps separate from authentication.
func (e *Engine) Watermark(ctx context.Context) error {
	if err := e.postWatermark(ctx); err != nil {
		return e.fail(err)
	}
	e.watermarkDone = true
	return nil
}

// Authenticate runs step 2 alone: the PACK login exchange. Watermark must
// have already succeeded on this engine. A failed login leaves the engine in
// Failed, and Authenticate may then be called again (e.g. with different
// credentials) without repeating the watermark.
func (e *Engine) Authenticate(ctx context.Context, auth settings.AuthConfig, hub string) (*Result, error) {
	if auth.Method != settings.MethodPassword {
		return nil, e.fail(verr.New(verr.Config, "auth method %q is not yet supported", auth.Method))
	}
	if !e.watermarkDone {
		return nil, e.fail(verr.New(verr.InvalidState, "authenticate called before watermark handshake completed"))
	}

	result, err := e.postAuth(ctx, auth, hub)
	if err != nil {
		return nil, e.fail(err)
	}

	e.state = Ready
	return result, nil
}

// postWatermark sends the VPNCONNECT form body first, and falls back to the
// GIF89a watermark constant if the server rejects it. Any HTTP 2xx on either
// shape advances the state machine.
func (e *Engine) postWatermark(ctx context.Context) error {
	e.state = WatermarkSent

	status, _, err := e.transport.Post(ctx, connectPath, "application/x-www-form-urlencoded", []byte(vpnConnectBody))
	if err != nil {
		return err
	}
	if is2xx(status) {
		e.state = WatermarkOK
		return nil
	}
	if e.logger != nil {
		e.logger.Printf("handshake: form watermark rejected with HTTP %d, retrying with GIF watermark", status)
	}

	status, _, err = e.transport.Post(ctx, connectPath, "image/gif", softEtherWatermark)
	if err != nil {
		return err
	}
	if !is2xx(status) {
		return verr.New(verr.Protocol, "watermark handshake rejected: HTTP %d (both shapes)", status)
	}
	e.state = WatermarkOK
	return nil
}

// postAuth builds and sends the login PACK, then interprets the reply.
func (e *Engine) postAuth(ctx context.Context, auth settings.AuthConfig, hub string) (*Result, error) {
	e.state = AuthSent

	req := &pack.Container{}
	req.AddStr("method", "login")
	req.AddStr("hub", hub)
	req.AddStr("username", auth.Username)
	req.AddStr("password", auth.Password)
	req.AddStr("no_save_password", "1")
	req.AddInt32("client_ver", clientVer)
	req.AddStr("client_str", clientStr)
	req.AddInt32("client_build", clientBuild)
	req.AddInt32("use_encrypt", 1)
	req.AddInt32("use_compress", 1)

	body, err := req.Encode()
	if err != nil {
		return nil, verr.New(verr.Protocol, "encode auth PACK: %v", err)
	}

	status, respBody, err := e.transport.Post(ctx, connectPath, "application/octet-stream", body)
	if err != nil {
		return nil, err
	}
	if !is2xx(status) {
		return nil, verr.New(verr.Protocol, "auth request rejected: HTTP %d", status)
	}

	reply, err := pack.Decode(respBody, e.logger)
	if err != nil {
		return nil, verr.New(verr.Protocol, "decode auth reply: %v", err)
	}

	return e.interpretAuthReply(reply)
}

func (e *Engine) interpretAuthReply(reply *pack.Container) (*Result, error) {
	if errElem := reply.Get("error"); errElem != nil {
		msg := errorElementMessage(errElem)
		if strings.Contains(msg, "no_save_password") || strings.Contains(msg, "access_denied") {
			return nil, verr.New(verr.Authentication, "server rejected authentication: %s", msg)
		}
		return nil, verr.New(verr.Protocol, "server error: %s", msg)
	}

	success, ok := reply.GetInt("auth_success")
	if !ok {
		return nil, verr.New(verr.Authentication, "unclear response")
	}
	if success != 1 {
		return nil, verr.New(verr.Authentication, "authentication failed")
	}

	e.state = AuthOK

	result := &Result{}
	if sessionID, ok := reply.GetStr("session_id"); ok && sessionID != "" {
		result.SessionID = sessionID
	} else {
		synthesized, err := synthesizeSessionID()
		if err != nil {
			return nil, verr.New(verr.Crypto, "synthesize session id: %v", err)
		}
		result.SessionID = synthesized
		if e.logger != nil {
			e.logger.Printf("handshake: server did not return session_id, synthesized %s", result.SessionID)
		}
	}

	if key, ok := reply.GetData("Session_Key"); ok {
		result.SessionKey = key
	}
	if ip, ok := reply.GetInt("assigned_ipv4"); ok {
		result.AssignedIPv4 = ip
		result.HasAssignedIPv4 = true
	}

	return result, nil
}

// errorElementMessage extracts the first Data or Str value of an "error"
// element as a plain string, for substring matching against known
// auth-reject markers.
func errorElementMessage(e *pack.Element) string {
	if len(e.Values) == 0 {
		return ""
	}
	v := e.Values[0]
	switch v.Type {
	case pack.TypeData:
		return string(v.Data)
	case pack.TypeStr:
		return v.Str
	case pack.TypeWideStr:
		return v.WideStr
	default:
		return ""
	}
}

func synthesizeSessionID() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return "session_" + hex.EncodeToString(b[:]), nil
}

func is2xx(status int) bool { return status >= 200 && status < 300 }
