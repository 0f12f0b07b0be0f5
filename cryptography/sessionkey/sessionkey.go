// Package sessionkey derives an optional defense-in-depth MAC key from the
// handshake's Session_Key material. It is never required: payload
// confidentiality rests on TLS, and the data plane runs fine without it.
// A derived key only exists when settings.AuthConfig.DeriveSessionKey is set.
package sessionkey

import (
	"crypto/sha256"
	"io"

	verr "vpnse/errors"

	"golang.org/x/crypto/hkdf"
)

const (
	// Size is the derived key length in bytes.
	Size = 32

	infoLabel = "vpnse session-key v1"
)

// Derive runs HKDF-SHA256 over the server's Session_Key bytes, salted with
// the session id so two sessions sharing a Session_Key (server bug, replay)
// still derive distinct keys.
func Derive(sessionKey []byte, sessionID string) ([]byte, error) {
	if len(sessionKey) == 0 {
		return nil, verr.New(verr.Crypto, "derive session key: server returned no Session_Key material")
	}

	reader := hkdf.New(sha256.New, sessionKey, []byte(sessionID), []byte(infoLabel))
	out := make([]byte, Size)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, verr.New(verr.Crypto, "derive session key: %v", err)
	}
	return out, nil
}
