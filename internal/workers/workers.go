// Package workers runs periodic maintenance outside the request path.
package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RevokedPruner deletes credentials revoked before a cutoff.
type RevokedPruner interface {
	PruneRevoked(ctx context.Context, cutoff time.Time) (devices, qrCodes int64, err error)
}

type Pruner struct {
	store     RevokedPruner
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

func NewPruner(store RevokedPruner, interval, retention time.Duration) *Pruner {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Pruner{store: store, interval: interval, retention: retention, now: time.Now}
}

// PruneOnce removes devices and child QR codes revoked longer ago than the
// retention period.
func (p *Pruner) PruneOnce(ctx context.Context) error {
	cutoff := p.now().Add(-p.retention)
	devices, qrCodes, err := p.store.PruneRevoked(ctx, cutoff)
	if err != nil {
		return err
	}
	if devices > 0 || qrCodes > 0 {
		log.Info().
			Int64("devices", devices).
			Int64("child_qr_codes", qrCodes).
			Time("cutoff", cutoff).
			Msg("pruned revoked credentials")
	}
	return nil
}

// Run prunes immediately and then on every interval until ctx is done.
func (p *Pruner) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if err := p.PruneOnce(ctx); err != nil {
			log.Error().Err(err).Msg("prune revoked credentials failed")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
