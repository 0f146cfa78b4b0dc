package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

// Snapshot is the quota state observed on one platform response. Counters
// come from response headers and are authoritative even on 429s.
type Snapshot struct {
	AppRemaining  int
	AppReset      time.Time
	HasApp        bool
	UserRemaining int
	UserReset     time.Time
	HasUser       bool
}

type Verdict int

const (
	Ready Verdict = iota
	Wait
	Denied
)

// Decision is the gate's answer for one check. Quota exhaustion and pacing
// are expected outcomes, not errors.
type Decision struct {
	Verdict Verdict
	Wait    time.Duration
	Reason  string
}

func ready() Decision                      { return Decision{Verdict: Ready} }
func waitFor(d time.Duration) Decision     { return Decision{Verdict: Wait, Wait: d} }
func denied(format string, a ...any) Decision {
	return Decision{Verdict: Denied, Reason: fmt.Sprintf(format, a...)}
}

type userQuota struct {
	remaining int
	reset     time.Time
}

// Gate holds the process-wide rate-limit cache: last observed app and
// per-user remaining counters plus the last successful publish time used for
// anti-spam pacing. State lives for the process lifetime and is rebuilt from
// response headers after a restart.
type Gate struct {
	mu     sync.Mutex
	buffer int
	minGap time.Duration
	now    func() time.Time

	appRemaining int
	appReset     time.Time
	appKnown     bool

	users map[string]userQuota

	lastPublish time.Time
}

func NewGate(buffer int, minGap time.Duration) *Gate {
	return &Gate{
		buffer: buffer,
		minGap: minGap,
		now:    time.Now,
		users:  make(map[string]userQuota),
	}
}

// AppQuota checks the cached app-level remaining counter against the safety
// buffer. Unknown state passes optimistically.
func (g *Gate) AppQuota() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.appKnown {
		return ready()
	}
	if !g.appReset.IsZero() && !g.now().Before(g.appReset) {
		// The window rolled over; rediscover on the next response.
		g.appKnown = false
		return ready()
	}
	if g.appRemaining <= g.buffer {
		return denied("app rate limit nearly exhausted: %d remaining (buffer %d), resets at %s",
			g.appRemaining, g.buffer, g.appReset.UTC().Format(time.RFC3339))
	}
	return ready()
}

// UserQuota is the per-user counterpart of AppQuota.
func (g *Gate) UserQuota(userID string) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	q, known := g.users[userID]
	if !known {
		return ready()
	}
	if !q.reset.IsZero() && !g.now().Before(q.reset) {
		delete(g.users, userID)
		return ready()
	}
	if q.remaining <= g.buffer {
		return denied("user rate limit nearly exhausted: %d remaining (buffer %d), resets at %s",
			q.remaining, g.buffer, q.reset.UTC().Format(time.RFC3339))
	}
	return ready()
}

// Pacing enforces the minimum spacing since the last successful publish. A
// Wait verdict tells the caller how long to sleep before retrying once.
func (g *Gate) Pacing() Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastPublish.IsZero() {
		return ready()
	}
	elapsed := g.now().Sub(g.lastPublish)
	if elapsed >= g.minGap {
		return ready()
	}
	return waitFor(g.minGap - elapsed)
}

// Observe folds a publish attempt's response into the cache. Called after
// every attempt, successful or not; published marks a successful publish for
// pacing purposes.
func (g *Gate) Observe(userID string, snap *Snapshot, published bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if published {
		g.lastPublish = g.now()
	}
	if snap == nil {
		return
	}
	if snap.HasApp {
		g.appRemaining = snap.AppRemaining
		g.appReset = snap.AppReset
		g.appKnown = true
	}
	if snap.HasUser && userID != "" {
		g.users[userID] = userQuota{remaining: snap.UserRemaining, reset: snap.UserReset}
	}
}
