// Package transport implements the TLS+TCP connection to a SoftEther
// SSL-VPN endpoint (component C3): cert policy, a blocking HTTPS
// request/response surface, and the raw bidirectional byte stream the
// post-auth binary framing path reuses.
package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"vpnse/application"
	verr "vpnse/errors"
	"vpnse/settings"

	"golang.org/x/net/idna"
)

// Transport owns a single TLS connection to the VPN server and multiplexes
// both HTTPS request/response traffic and raw binary framing over it.
type Transport struct {
	conn     *tls.Conn
	reader   *bufio.Reader
	host     string // normalized hostname used for TLS SNI / HTTP Host
	endpoint string // host:port, for logging and retry-log keys
	logger   application.Logger
}

const userAgent = "Mozilla/4.0 (compatible; MSIE 6.0; Windows NT 5.1)"

const keepAliveInterval = 30 * time.Second

// Dial establishes TCP+TLS to the configured endpoint. verify_certificate
// selects between full trust-store verification and the documented
// accept-any escape hatch for self-signed/rotating server certificates.
func Dial(ctx context.Context, cfg settings.ServerConfig, logger application.Logger) (*Transport, error) {
	host, err := normalizeHostname(cfg.Hostname)
	if err != nil {
		return nil, verr.New(verr.Config, "invalid hostname %q: %v", cfg.Hostname, err)
	}
	endpoint := net.JoinHostPort(host, strconv.Itoa(cfg.Port))

	dialer := &net.Dialer{}
	applyPlatformDialerOptions(dialer)

	rawConn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		if ctx.Err() != nil {
			return nil, verr.New(verr.Timeout, "dial %s: %v", endpoint, ctx.Err())
		}
		return nil, verr.New(verr.Network, "dial %s: %v", endpoint, err)
	}

	if !cfg.VerifyCertificate && logger != nil {
		logger.Printf("transport: certificate verification disabled for %s — interoperability escape hatch, not safe by default", endpoint)
	}

	tlsConf := &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: !cfg.VerifyCertificate,
	}

	tlsConn := tls.Client(rawConn, tlsConf)
	if deadline, ok := ctx.Deadline(); ok {
		_ = tlsConn.SetDeadline(deadline)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = rawConn.Close()
		return nil, verr.New(verr.Tls, "TLS handshake with %s: %v", endpoint, err)
	}
	_ = tlsConn.SetDeadline(time.Time{})

	return &Transport{
		conn:     tlsConn,
		reader:   bufio.NewReader(tlsConn),
		host:     host,
		endpoint: endpoint,
		logger:   logger,
	}, nil
}

// normalizeHostname punycode-normalizes internationalized hostnames before
// they land in TLS SNI / the HTTP Host header.
func normalizeHostname(hostname string) (string, error) {
	if hostname == "" {
		return "", fmt.Errorf("empty hostname")
	}
	ascii, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		// Not every valid SNI value is a valid IDNA label (IP literals,
		// for instance) — fall back to the raw value rather than failing.
		return hostname, nil
	}
	return ascii, nil
}

// Endpoint returns the "host:port" string used as the retry-log key.
func (t *Transport) Endpoint() string { return t.endpoint }

// Post issues a blocking HTTP/1.1 POST over the established TLS connection
// and returns the status code and response body. Used for the watermark
// handshake, PACK authentication, keepalives, and PACK-wrapped data frames
// — every structured message this protocol sends travels this way.
func (t *Transport) Post(ctx context.Context, path, contentType string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://"+t.host+path, nil)
	if err != nil {
		return 0, nil, verr.New(verr.Protocol, "build request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Content-Length", strconv.Itoa(len(body)))
	req.Header.Set("Connection", "Keep-Alive")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Host", t.host)
	req.Host = t.host
	req.ContentLength = int64(len(body))
	req.Body = io.NopCloser(strings.NewReader(string(body)))

	if deadline, ok := ctx.Deadline(); ok {
		_ = t.conn.SetDeadline(deadline)
		defer func() { _ = t.conn.SetDeadline(time.Time{}) }()
	}

	if err := req.Write(t.conn); err != nil {
		if ctx.Err() != nil {
			return 0, nil, verr.New(verr.Timeout, "write request to %s: %v", t.endpoint, err)
		}
		return 0, nil, verr.New(verr.Network, "write request to %s: %v", t.endpoint, err)
	}

	resp, err := http.ReadResponse(t.reader, req)
	if err != nil {
		if ctx.Err() != nil {
			return 0, nil, verr.New(verr.Timeout, "read response from %s: %v", t.endpoint, err)
		}
		return 0, nil, verr.New(verr.Network, "read response from %s: %v", t.endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, verr.New(verr.Network, "read response body from %s: %v", t.endpoint, err)
	}
	return resp.StatusCode, respBody, nil
}

// Stream exposes the raw TLS connection for the post-auth binary framing
// path. The caller — the session/data-plane layer — owns it exclusively
// from this point; Transport itself issues no further HTTP traffic once
// handed off.
func (t *Transport) Stream() application.ConnectionAdapterWithDeadline {
	return t.conn
}

// Close tears down the underlying TLS+TCP connection.
func (t *Transport) Close() error {
	return t.conn.Close()
}
