package attempt

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrWong99/speechcoach/internal/coaching"
)

// DefaultSweepInterval is the default pause between sweeps.
const DefaultSweepInterval = time.Minute

// SweepStats summarises one sweep.
type SweepStats struct {
	Expired  int
	Removed  int
	Skipped  int
	Archived int
}

// Sweep runs one expiry pass:
//
//   - PendingConfirmation and Finalized attempts older than the TTL become
//     Expired and their transcript, coaching and narration text is released.
//   - Expired attempts older than the retention, and Confirmed attempts
//     confirmed longer ago than the retention, are removed.
//
// Attempts are handed to the archiver before their text is released and
// again before removal. Entries that are locked or have a confirm in flight
// are skipped until the next pass.
func (m *Manager) Sweep(ctx context.Context) SweepStats {
	var (
		stats     SweepStats
		toArchive []Attempt
		now       = m.now()
	)

	for _, e := range m.store.snapshot() {
		if !e.mu.TryLock() {
			stats.Skipped++
			continue
		}
		if e.inflight > 0 {
			e.mu.Unlock()
			stats.Skipped++
			continue
		}

		switch e.a.State {
		case StatePendingConfirmation, StateFinalized:
			if now.Sub(e.a.CreatedAt) < m.ttl {
				break
			}
			m.transition(ctx, &e.a, StateExpired)
			e.expiredAt = now
			if m.archiver != nil {
				toArchive = append(toArchive, e.a.clone())
			}
			e.a.Transcript = ""
			e.a.Narration = ""
			e.a.Coaching = coaching.Draft{Source: e.a.Coaching.Source}
			stats.Expired++

		case StateExpired:
			if now.Sub(e.expiredAt) >= m.retention {
				if m.archiver != nil {
					toArchive = append(toArchive, e.a.clone())
				}
				m.store.remove(e.a.ID)
				stats.Removed++
			}

		case StateConfirmed:
			if e.a.ConfirmedAt != nil && now.Sub(*e.a.ConfirmedAt) >= m.retention {
				if m.archiver != nil {
					toArchive = append(toArchive, e.a.clone())
				}
				m.store.remove(e.a.ID)
				stats.Removed++
			}
		}
		e.mu.Unlock()
	}

	if m.metrics != nil && stats.Removed > 0 {
		m.metrics.StoredAttempts.Add(ctx, -int64(stats.Removed))
	}

	for _, a := range toArchive {
		if err := m.archiver.Archive(ctx, a); err != nil {
			slog.Warn("attempt archive failed", "attempt_id", a.ID, "err", err)
			continue
		}
		stats.Archived++
	}
	return stats
}

// Sweeper runs [Manager.Sweep] on a fixed interval.
type Sweeper struct {
	m        *Manager
	interval time.Duration
}

// NewSweeper creates a Sweeper. A non-positive interval means
// [DefaultSweepInterval].
func NewSweeper(m *Manager, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{m: m, interval: interval}
}

// Run sweeps until ctx is cancelled. It always returns nil.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			stats := s.m.Sweep(ctx)
			if stats.Expired > 0 || stats.Removed > 0 {
				slog.Debug("attempt sweep",
					"expired", stats.Expired,
					"removed", stats.Removed,
					"skipped", stats.Skipped,
					"archived", stats.Archived)
			}
		}
	}
}
