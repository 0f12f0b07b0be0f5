package session

import (
	"context"
	"time"

	"vpnse/application"
	verr "vpnse/errors"
)

// PackDataPlane moves IP frames over the PACK-wrapped HTTPS carrier, one
// frame per request. Simpler and lower-throughput than the binary-framing
// DataPlane; selected when settings.ServerConfig.PreferPackDataCarrier is
// set (spec.md §4.5 offers both carriers explicitly).
type PackDataPlane struct {
	carrier *PackCarrier
	tun     application.TUNDevice
	session *Session
	logger  application.Logger
}

func NewPackDataPlane(carrier *PackCarrier, tun application.TUNDevice, s *Session, logger application.Logger) *PackDataPlane {
	return &PackDataPlane{carrier: carrier, tun: tun, session: s, logger: logger}
}

// Run reads packets off the TUN collaborator and posts each as its own PACK
// data frame. Any payload the server piggybacks on the response is written
// straight back to the TUN collaborator.
func (p *PackDataPlane) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		payload, err := p.tun.ReadPacket()
		if err != nil {
			return verr.New(verr.TunTap, "read from tun: %v", err)
		}

		reply, err := p.carrier.SendData(ctx, p.session.ID, payload, time.Now())
		if err != nil {
			return err
		}
		if len(reply) == 0 {
			continue
		}
		if err := p.tun.WritePacket(reply); err != nil {
			return verr.New(verr.TunTap, "write to tun: %v", err)
		}
	}
}
