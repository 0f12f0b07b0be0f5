package pack

import (
	verr "vpnse/errors"

	"golang.org/x/text/encoding/unicode"
)

// wideStringCodec transcodes between Go strings and the UTF-16LE wire
// encoding SoftEther uses for WideStr values. Using golang.org/x/text here
// (rather than hand-rolling UTF-16 surrogate handling) matches how the rest
// of the example corpus leans on golang.org/x/text for text transcoding.
var wideStringCodec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func encodeWideStr(s string) ([]byte, error) {
	enc := wideStringCodec.NewEncoder()
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return nil, verr.New(verr.Protocol, "encode WideStr: %v", err)
	}
	return out, nil
}

func decodeWideStr(b []byte) (string, error) {
	if len(b)%2 != 0 {
		return "", verr.New(verr.Protocol, "WideStr payload length %d is not even", len(b))
	}
	dec := wideStringCodec.NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return "", verr.New(verr.Protocol, "decode WideStr: %v", err)
	}
	return string(out), nil
}
