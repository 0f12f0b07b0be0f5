package controller

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"vpnse/application"
	"vpnse/cryptography/sessionkey"
	verr "vpnse/errors"
	"vpnse/handshake"
	"vpnse/session"
	"vpnse/settings"
	"vpnse/transport"

	"golang.org/x/sync/errgroup"
)

// Controller owns the top-level state machine, the transport, and the
// session record. A Controller is not safe for concurrent calls to its own
// methods (a single logical connection is driven by one goroutine at a
// time); the Limiter it shares is safe for concurrent use by many
// Controllers.
type Controller struct {
	cfg     settings.Config
	limiter *Limiter
	logger  application.Logger

	mu        sync.Mutex
	status    Status
	transport *transport.Transport
	engine    *handshake.Engine
	session   *session.Session

	tunnelCancel  context.CancelFunc
	tunnelStopped chan struct{}
}

func New(cfg settings.Config, limiter *Limiter, logger application.Logger) *Controller {
	if limiter == nil {
		limiter = NewLimiter()
	}
	return &Controller{cfg: cfg, limiter: limiter, logger: logger, status: Disconnected}
}

func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SessionInfo returns the current session record, if any.
func (c *Controller) SessionInfo() (*session.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.session != nil
}

func endpointKey(cfg settings.ServerConfig) string {
	return net.JoinHostPort(cfg.Hostname, strconv.Itoa(cfg.Port))
}

// Connect runs the limiter admission checks, then dials TLS and runs the
// watermark handshake (stopping short of authentication, matching
// spec.md §4.6's Connecting->Connected edge being "TLS+watermark ok").
func (c *Controller) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.status != Disconnected {
		c.mu.Unlock()
		return verr.New(verr.InvalidState, "connect called in state %s", c.status)
	}
	c.status = Connecting
	c.mu.Unlock()

	key := endpointKey(c.cfg.Server)
	if err := c.limiter.Admit(key, c.cfg.Limits); err != nil {
		c.mu.Lock()
		c.status = Disconnected
		c.mu.Unlock()
		return err
	}

	tr, err := transport.Dial(ctx, c.cfg.Server, c.logger)
	if err != nil {
		c.limiter.RecordRetry(key)
		c.mu.Lock()
		c.status = Disconnected
		c.mu.Unlock()
		return err
	}

	eng := handshake.New(tr, c.logger)
	if err := eng.Watermark(ctx); err != nil {
		_ = tr.Close()
		c.limiter.RecordRetry(key)
		c.mu.Lock()
		c.status = Disconnected
		c.mu.Unlock()
		return err
	}

	c.limiter.RecordConnection()
	c.mu.Lock()
	c.transport = tr
	c.engine = eng
	c.status = Connected
	c.mu.Unlock()
	return nil
}

// Authenticate runs the PACK auth exchange. On failure the controller stays
// Connected so the caller may retry with different credentials without
// redoing TLS (spec.md §7).
func (c *Controller) Authenticate(ctx context.Context, username, password string) error {
	c.mu.Lock()
	if c.status != Connected {
		c.mu.Unlock()
		return verr.New(verr.InvalidState, "authenticate called in state %s", c.status)
	}
	tr := c.transport
	eng := c.engine
	c.mu.Unlock()

	auth := c.cfg.Auth
	if username != "" {
		auth.Username = username
	}
	if password != "" {
		auth.Password = password
	}

	result, err := eng.Authenticate(ctx, auth, c.cfg.Server.Hub)
	if err != nil {
		return err
	}

	s := session.New(result.SessionID, tr.Endpoint())
	if result.HasAssignedIPv4 {
		s.AssignedIP = ipv4String(result.AssignedIPv4)
	}

	if auth.DeriveSessionKey {
		key, err := sessionkey.Derive(result.SessionKey, result.SessionID)
		if err != nil {
			return err
		}
		s.DerivedKey = key
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return nil
}

// tunnelRunner is the narrow contract StartTunnel needs from either data
// plane (binary framing or PACK-wrapped).
type tunnelRunner interface {
	Run(ctx context.Context) error
}

// clockSupervisedRunner pairs a tunnelRunner with the keepalive clock under
// one errgroup, for carriers (PackDataPlane) that do not already supervise
// their own clock the way DataPlane does.
type clockSupervisedRunner struct {
	runner tunnelRunner
	clock  *session.Clock
}

func (r *clockSupervisedRunner) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.runner.Run(ctx) })
	g.Go(func() error { return r.clock.Run(ctx) })
	return g.Wait()
}

// StartTunnel installs the data plane over the authenticated session and
// transitions Connected->Tunneling. A monitor goroutine watches the data
// plane independently of StopTunnel/Disconnect, so a fatal data-plane error
// (e.g. a binary-framing sequence gap) tears the connection down and
// reaches Disconnected on its own (spec.md §4.6 "any -fatal error->
// Disconnected"), without requiring the caller to notice.
func (c *Controller) StartTunnel(tun application.TUNDevice) error {
	c.mu.Lock()
	if c.status != Connected || c.session == nil || c.transport == nil {
		c.mu.Unlock()
		return verr.New(verr.InvalidState, "start_tunnel called in state %s", c.status)
	}
	s := c.session
	tr := c.transport
	c.mu.Unlock()

	carrier := session.NewPackCarrier(tr)
	clock := session.NewClock(c.cfg.Server.Keepalive(), s, func(ctx context.Context, now time.Time) error {
		return carrier.SendKeepalive(ctx, now)
	}, c.logger)

	var runner tunnelRunner
	if c.cfg.Server.PreferPackDataCarrier {
		pdp := session.NewPackDataPlane(carrier, tun, s, c.logger)
		runner = &clockSupervisedRunner{runner: pdp, clock: clock}
	} else {
		batcher := session.NewBatcher(tr.Stream(), session.DefaultBatchMaxFrames, session.DefaultBatchMaxBytes, session.DefaultBatchMaxDelay)
		runner = session.NewDataPlane(tr.Stream(), tun, s, c.logger, batcher, clock)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	stopped := make(chan struct{})
	go func() { done <- runner.Run(ctx) }()
	go c.monitorTunnel(done, stopped)

	c.mu.Lock()
	c.tunnelCancel = cancel
	c.tunnelStopped = stopped
	c.status = Tunneling
	c.mu.Unlock()
	return nil
}

// monitorTunnel waits for the data plane to stop, for any reason, and
// reconciles controller state accordingly. A nil error means
// StopTunnel/Disconnect requested the stop by cancelling the context; those
// callers handle their own resulting transition. A non-nil error means the
// data plane failed on its own, so this goroutine is the only thing
// watching for it and tears the connection down itself.
func (c *Controller) monitorTunnel(done <-chan error, stopped chan struct{}) {
	err := <-done
	defer close(stopped)

	if err == nil {
		return
	}

	c.mu.Lock()
	if c.status != Tunneling {
		c.mu.Unlock()
		return
	}
	tr := c.transport
	c.tunnelCancel = nil
	c.tunnelStopped = nil
	c.transport = nil
	c.engine = nil
	c.session = nil
	c.status = Disconnected
	c.mu.Unlock()

	if tr != nil {
		_ = tr.Close()
	}
	c.limiter.RecordDisconnection()
	if c.logger != nil {
		c.logger.Printf("controller: data plane failed, disconnecting: %v", err)
	}
}

// StopTunnel tears down the data plane and returns to Connected. If the data
// plane has already failed on its own and monitorTunnel has moved the
// controller to Disconnected, that transition is left alone.
func (c *Controller) StopTunnel() error {
	c.mu.Lock()
	if c.status != Tunneling {
		c.mu.Unlock()
		return verr.New(verr.InvalidState, "stop_tunnel called in state %s", c.status)
	}
	cancel := c.tunnelCancel
	stopped := c.tunnelStopped
	c.tunnelCancel = nil
	c.tunnelStopped = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stopped != nil {
		<-stopped
	}

	c.mu.Lock()
	if c.status == Tunneling {
		c.status = Connected
	}
	c.mu.Unlock()
	return nil
}

// Disconnect is idempotent: calling it while already Disconnected is a
// no-op, which also covers the case where monitorTunnel already tore the
// connection down after a fatal data-plane error.
func (c *Controller) Disconnect() error {
	c.mu.Lock()
	if c.status == Disconnected {
		c.mu.Unlock()
		return nil
	}
	wasActive := c.status == Connected || c.status == Tunneling
	cancel := c.tunnelCancel
	stopped := c.tunnelStopped
	c.tunnelCancel = nil
	c.tunnelStopped = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stopped != nil {
		<-stopped
	}

	c.mu.Lock()
	if c.status == Disconnected {
		c.mu.Unlock()
		return nil
	}
	tr := c.transport
	c.transport = nil
	c.engine = nil
	c.session = nil
	c.status = Disconnected
	c.mu.Unlock()

	if tr != nil {
		_ = tr.Close()
	}
	if wasActive {
		c.limiter.RecordDisconnection()
	}
	return nil
}

// SendKeepalive issues a single out-of-band keepalive over the PACK-wrapped
// carrier, independent of any running tunnel clock.
func (c *Controller) SendKeepalive(ctx context.Context) error {
	c.mu.Lock()
	if c.status != Connected && c.status != Tunneling {
		c.mu.Unlock()
		return verr.New(verr.InvalidState, "send_keepalive called in state %s", c.status)
	}
	tr := c.transport
	s := c.session
	c.mu.Unlock()

	carrier := session.NewPackCarrier(tr)
	if err := carrier.SendKeepalive(ctx, time.Now()); err != nil {
		return err
	}
	if s != nil {
		s.MarkKeepaliveSent(time.Now())
	}
	return nil
}

func ipv4String(v uint32) string {
	return net.IPv4(byte(v>>24), byte(v>>16), byte(v>>8), byte(v)).String()
}
