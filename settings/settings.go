// Package settings defines the configuration surface consumed from outside
// the core (spec.md §6), read as JSON the way the teacher's
// client_configuration package reads its own JSON config.
package settings

import "time"

// AuthMethod enumerates the supported authentication methods. Only
// MethodPassword is fully implemented end to end; the others are recognized
// so configuration round-trips cleanly but produce a clear "not supported"
// error from the handshake engine.
type AuthMethod string

const (
	MethodPassword    AuthMethod = "password"
	MethodCertificate AuthMethod = "certificate"
	MethodAnonymous   AuthMethod = "anonymous"
)

// ServerConfig names the target endpoint and per-operation behavior.
type ServerConfig struct {
	Hostname          string `json:"hostname"`
	Port              int    `json:"port"`
	Hub               string `json:"hub"`
	VerifyCertificate bool   `json:"verify_certificate"`
	TimeoutSeconds    int    `json:"timeout"`
	KeepaliveInterval int    `json:"keepalive_interval"`

	// PreferPackDataCarrier selects the simpler, one-frame-per-request
	// PACK-wrapped data carrier over binary framing (spec.md §4.5 offers
	// both). Binary framing is the default: it is preferred for
	// throughput.
	PreferPackDataCarrier bool `json:"prefer_pack_data_carrier"`
}

// Timeout returns the configured per-operation deadline, defaulting to 30s.
func (s ServerConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// Keepalive returns the configured keepalive interval, defaulting to 50s
// per spec.md §4.5.
func (s ServerConfig) Keepalive() time.Duration {
	if s.KeepaliveInterval <= 0 {
		return 50 * time.Second
	}
	return time.Duration(s.KeepaliveInterval) * time.Second
}

// AuthConfig carries the credentials for the configured auth method.
type AuthConfig struct {
	Method             AuthMethod `json:"method"`
	Username           string     `json:"username"`
	Password           string     `json:"password"`
	CertificatePEM     string     `json:"certificate_pem,omitempty"`
	DeriveSessionKey   bool       `json:"derive_session_key"`
}

// ConnectionLimits configures the shared connection/rate/retry limiter
// (spec.md §4.6).
type ConnectionLimits struct {
	MaxConcurrent int `json:"max_concurrent"`
	RateLimitRPS  int `json:"rate_limit_rps"`
	MaxRetries    int `json:"max_retries"`
	RetryDelay    int `json:"retry_delay"` // seconds
}

// Config is the full configuration surface consumed by the controller.
type Config struct {
	Server ServerConfig     `json:"server"`
	Auth   AuthConfig       `json:"auth"`
	Limits ConnectionLimits `json:"connection_limits"`
}
