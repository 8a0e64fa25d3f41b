package admission

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Monitor runs the background deadline-enforcement loop: every
// cfg.MonitoringInterval it walks tracked connections and aborts any
// that have blown their hello, challenge, stale, or overstay deadline,
// per spec.md §4.10. It returns when ctx is canceled.
func (a *Admitter) Monitor(ctx context.Context) {
	if a.cfg.MonitoringInterval <= 0 {
		return
	}
	ticker := time.NewTicker(a.cfg.MonitoringInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep()
		}
	}
}

func (a *Admitter) sweep() {
	a.mu.Lock()
	conns := make([]*conn, 0, len(a.conns))
	for _, c := range a.conns {
		conns = append(conns, c)
	}
	a.mu.Unlock()

	now := time.Now()
	for _, c := range conns {
		if reason, hit := a.deadlineHit(c, now); hit {
			a.log.Warn("connection admission deadline exceeded", zap.Uint64("conn_id", c.id), zap.String("reason", reason))
			a.abort(c, reason)
		}
	}
}

func (a *Admitter) deadlineHit(c *conn, now time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	age := now.Sub(c.joinedAt)

	if !c.helloReceived {
		if a.cfg.HelloTimeout > 0 && age > a.cfg.HelloTimeout {
			return ReasonReadTimeout, true
		}
		return "", false
	}

	if !c.authenticated {
		if a.cfg.ChallengeTimeout > 0 && c.challengeIssued && age > a.cfg.HelloTimeout+a.cfg.ChallengeTimeout {
			return ReasonLoiterTimeout, true
		}
	}

	if a.cfg.StaleTimeout > 0 && now.Sub(c.lastMessageAt) > a.cfg.StaleTimeout {
		return ReasonSilenceTimeout, true
	}

	if a.cfg.OverstayTimeout > 0 && age > a.cfg.OverstayTimeout {
		return ReasonOverstayTimeout, true
	}

	return "", false
}
