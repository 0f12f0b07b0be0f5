package sessionkey

import (
	"bytes"
	"testing"

	verr "vpnse/errors"
)

func TestDeriveIsDeterministic(t *testing.T) {
	sk := []byte("server-provided-session-key-material")

	k1, err := Derive(sk, "session_abc")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	k2, err := Derive(sk, "session_abc")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("same inputs produced different keys")
	}
	if len(k1) != Size {
		t.Fatalf("len = %d, want %d", len(k1), Size)
	}
}

func TestDeriveDiffersBySessionID(t *testing.T) {
	sk := []byte("server-provided-session-key-material")

	k1, err := Derive(sk, "session_a")
	if err != nil {
		t.Fatal(err)
	}
	k2, err := Derive(sk, "session_b")
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(k1, k2) {
		t.Fatal("distinct session ids produced the same key")
	}
}

func TestDeriveRejectsEmptyKeyMaterial(t *testing.T) {
	_, err := Derive(nil, "session_abc")
	if err == nil {
		t.Fatal("expected error for empty Session_Key")
	}
	if !verr.Is(err, verr.Crypto) {
		t.Fatalf("error kind = %v, want Crypto", err)
	}
}
