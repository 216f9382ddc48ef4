package program

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrReplayedRequest = errors.New("request id already consumed")
	ErrStaleRequest    = errors.New("request id outside the accepted time window")
)

// RequestGuard makes every request ID single use. IDs must be version 7 and
// created within maxAge of now, so an ID forgotten by cleanup can never be
// accepted again.
type RequestGuard struct {
	mu     sync.Mutex
	seen   map[uuid.UUID]time.Time
	maxAge time.Duration
	now    func() time.Time
}

// NewRequestGuard creates a guard accepting IDs up to maxAge old, and at
// most maxAge in the future to tolerate client clock skew.
func NewRequestGuard(maxAge time.Duration) *RequestGuard {
	return &RequestGuard{
		seen:   make(map[uuid.UUID]time.Time),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Consume marks id as used. It fails if id was already used or its embedded
// timestamp is outside the accepted window.
func (g *RequestGuard) Consume(id uuid.UUID) error {
	if id.Version() != 7 {
		return fmt.Errorf("%w: version %d id", ErrStaleRequest, id.Version())
	}
	sec, nsec := id.Time().UnixTime()
	created := time.Unix(sec, nsec)

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if created.Before(now.Add(-g.maxAge)) || created.After(now.Add(g.maxAge)) {
		return fmt.Errorf("%w: created %s", ErrStaleRequest, created.UTC().Format(time.RFC3339))
	}
	if _, ok := g.seen[id]; ok {
		return fmt.Errorf("%w: %s", ErrReplayedRequest, id)
	}
	g.seen[id] = created
	return nil
}

// CleanupExpired forgets IDs that can no longer pass the time window check.
func (g *RequestGuard) CleanupExpired() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-g.maxAge)
	removed := 0
	for id, created := range g.seen {
		if created.Before(cutoff) {
			delete(g.seen, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of remembered IDs.
func (g *RequestGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

// StartExpirationCleanup runs CleanupExpired every interval until ctx is done.
func (g *RequestGuard) StartExpirationCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := g.CleanupExpired(); removed > 0 {
					log.Printf("INFO: Request guard removed %d expired request ids", removed)
				}
			}
		}
	}()
}
