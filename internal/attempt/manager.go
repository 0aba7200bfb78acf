package attempt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/MrWong99/speechcoach/internal/observe"
	"github.com/MrWong99/speechcoach/internal/resilience"
)

// Defaults for [NewManager].
const (
	DefaultTTL            = 30 * time.Minute
	DefaultRetention      = 24 * time.Hour
	DefaultNarrateTimeout = 30 * time.Second
)

// Manager creates attempts and drives their lifecycle. Safe for concurrent
// use.
type Manager struct {
	store          *MemStore
	narrator       Narrator
	policy         ConfirmationPolicy
	archiver       Archiver
	metrics        *observe.Metrics
	ttl            time.Duration
	retention      time.Duration
	narrateTimeout time.Duration
	now            func() time.Time
	newID          func() string

	flights singleflight.Group
}

// Option configures a [Manager].
type Option func(*Manager)

// WithPolicy replaces the default [NarrationPolicy].
func WithPolicy(p ConfirmationPolicy) Option {
	return func(m *Manager) { m.policy = p }
}

// WithTTL sets how long an attempt may wait for confirmation.
func WithTTL(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.ttl = d
		}
	}
}

// WithRetention sets how long expired and confirmed attempts stay in memory.
func WithRetention(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.retention = d
		}
	}
}

// WithNarrateTimeout bounds a single narration.
func WithNarrateTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.narrateTimeout = d
		}
	}
}

// WithArchiver hands attempts to a before they are released.
func WithArchiver(a Archiver) Option {
	return func(m *Manager) { m.archiver = a }
}

// WithMetrics records lifecycle transitions on met.
func WithMetrics(met *observe.Metrics) Option {
	return func(m *Manager) { m.metrics = met }
}

// WithStore replaces the attempt arena.
func WithStore(s *MemStore) Option {
	return func(m *Manager) { m.store = s }
}

// WithClock overrides time.Now. Tests only.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithIDGenerator overrides the UUIDv4 generator. Tests only.
func WithIDGenerator(f func() string) Option {
	return func(m *Manager) { m.newID = f }
}

// NewManager creates a Manager that narrates through n.
func NewManager(n Narrator, opts ...Option) *Manager {
	m := &Manager{
		store:          NewMemStore(),
		narrator:       n,
		policy:         NarrationPolicy{},
		ttl:            DefaultTTL,
		retention:      DefaultRetention,
		narrateTimeout: DefaultNarrateTimeout,
		now:            time.Now,
		newID:          uuid.NewString,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Create stores a new attempt and moves it straight out of Created according
// to the confirmation policy.
func (m *Manager) Create(ctx context.Context, na NewAttempt) (*Attempt, error) {
	if na.PersonaID == "" {
		return nil, errors.New("attempt: create: persona id must not be empty")
	}

	a := Attempt{
		ID:         m.newID(),
		PersonaID:  na.PersonaID,
		Transcript: na.Transcript,
		Seconds:    na.Seconds,
		Metrics:    na.Metrics,
		Score:      na.Score,
		Coaching:   na.Coaching,
		Narration:  strings.TrimSpace(na.Coaching.Narration),
		Voice:      na.Voice,
		State:      StateCreated,
		CreatedAt:  m.now(),
	}
	a.Coaching.Tips = append([]string(nil), na.Coaching.Tips...)

	a.NeedsConfirmation = m.policy.NeedsConfirmation(&a)
	next := StateFinalized
	if a.NeedsConfirmation {
		next = StatePendingConfirmation
	}
	m.transition(ctx, &a, next)

	m.store.put(&entry{a: a})
	if m.metrics != nil {
		m.metrics.StoredAttempts.Add(ctx, 1)
	}
	observe.Logger(ctx).Debug("attempt created",
		"attempt_id", a.ID,
		"persona_id", a.PersonaID,
		"state", a.State)

	out := a.clone()
	return &out, nil
}

// Get returns a copy of the attempt with the given id.
func (m *Manager) Get(id string) (*Attempt, error) {
	e, ok := m.store.get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.a.clone()
	return &out, nil
}

// Confirm returns the narration audio URL for an attempt, synthesizing it on
// first use. Concurrent confirms of the same attempt share one synthesis, and
// later confirms return the cached URL. A failed synthesis leaves the attempt
// pending so the client may retry.
func (m *Manager) Confirm(ctx context.Context, attemptID, personaID string) (string, error) {
	e, ok := m.store.get(attemptID)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrNotFound, attemptID)
	}

	e.mu.Lock()
	if e.a.PersonaID != personaID {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: attempt %q belongs to %q", ErrPersonaMismatch, attemptID, e.a.PersonaID)
	}
	switch e.a.State {
	case StateConfirmed:
		url := e.a.AudioURL
		e.mu.Unlock()
		return url, nil
	case StateExpired:
		e.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrExpired, attemptID)
	}
	// Past the TTL an attempt is expired even if no sweep has marked it yet.
	if m.now().Sub(e.a.CreatedAt) >= m.ttl {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: %q", ErrExpired, attemptID)
	}
	if e.a.State == StateFinalized {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: attempt %q was finalized without narration", ErrNotConfirmable, attemptID)
	}
	if e.a.Narration == "" {
		e.mu.Unlock()
		return "", fmt.Errorf("%w: attempt %q has empty narration", ErrNotConfirmable, attemptID)
	}
	e.inflight++
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inflight--
		e.mu.Unlock()
	}()

	v, err, _ := m.flights.Do(attemptID, func() (any, error) {
		return m.narrate(ctx, e)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// narrate runs inside the single flight for e. The synthesis is detached from
// the caller's cancellation because its result is shared with every waiter.
func (m *Manager) narrate(ctx context.Context, e *entry) (string, error) {
	e.mu.Lock()
	if e.a.State == StateConfirmed {
		url := e.a.AudioURL
		e.mu.Unlock()
		return url, nil
	}
	req := NarrationRequest{
		AttemptID: e.a.ID,
		PersonaID: e.a.PersonaID,
		Text:      e.a.Narration,
		Voice:     e.a.Voice,
	}
	e.mu.Unlock()

	if m.narrator == nil {
		return "", fmt.Errorf("attempt: narrate %q: %w", req.AttemptID,
			resilience.Classify(ctx, errors.New("no narrator configured")))
	}

	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.narrateTimeout)
	defer cancel()

	url, err := m.narrator.Narrate(nctx, req)
	if err == nil && url == "" {
		err = errors.New("narrator returned an empty url")
	}
	if err != nil {
		observe.Logger(ctx).Warn("attempt narration failed",
			"attempt_id", req.AttemptID,
			"err", err)
		return "", fmt.Errorf("attempt: narrate %q: %w", req.AttemptID, resilience.Classify(nctx, err))
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.a.State == StateConfirmed {
		return e.a.AudioURL, nil
	}
	now := m.now()
	e.a.AudioURL = url
	e.a.ConfirmedAt = &now
	m.transition(ctx, &e.a, StateConfirmed)
	observe.Logger(ctx).Info("attempt confirmed", "attempt_id", req.AttemptID)
	return url, nil
}

// transition moves a to next and records the change.
func (m *Manager) transition(ctx context.Context, a *Attempt, next State) {
	from := a.State
	a.State = next
	if m.metrics != nil {
		m.metrics.RecordAttemptTransition(ctx, string(from), string(next))
	}
}

// Len returns the number of attempts held in memory.
func (m *Manager) Len() int { return m.store.Len() }
