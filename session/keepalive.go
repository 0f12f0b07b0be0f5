package session

import (
	"context"
	"time"

	"vpnse/application"
	verr "vpnse/errors"
)

// maxConsecutiveKeepaliveFailures is the soft-failure budget before a
// keepalive failure is escalated to a session teardown (spec.md §4.5/§7).
const maxConsecutiveKeepaliveFailures = 3

// Clock emits one keepalive per interval and tears the session down after
// three consecutive failures. It does not pick a carrier: Send is supplied
// by the caller so the same clock works over PACK-wrapped or binary framing.
type Clock struct {
	interval time.Duration
	send     func(ctx context.Context, now time.Time) error
	session  *Session
	logger   application.Logger
}

func NewClock(interval time.Duration, session *Session, send func(ctx context.Context, now time.Time) error, logger application.Logger) *Clock {
	return &Clock{interval: interval, send: send, session: session, logger: logger}
}

// Run ticks until ctx is cancelled or the failure budget is exhausted, in
// which case it returns a Network error so the caller tears the session
// down (spec.md §7: "three consecutive failures tear down the session and
// surface as Network").
func (c *Clock) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			if err := c.send(ctx, now); err != nil {
				consecutiveFailures++
				if c.logger != nil {
					c.logger.Printf("session: keepalive failed (%d/%d consecutive): %v", consecutiveFailures, maxConsecutiveKeepaliveFailures, err)
				}
				if consecutiveFailures >= maxConsecutiveKeepaliveFailures {
					return verr.New(verr.Network, "keepalive failed %d consecutive times: %v", consecutiveFailures, err)
				}
				continue
			}
			consecutiveFailures = 0
			if c.session != nil {
				c.session.MarkKeepaliveSent(now)
			}
		}
	}
}
