package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/MrWong99/speechcoach/internal/coaching"
	"github.com/MrWong99/speechcoach/internal/scoring"
	"github.com/MrWong99/speechcoach/internal/speech"
)

// Schema is the SQL DDL for the attempt archive. Apply it via
// [PostgresArchiver.Migrate] or during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS coaching_attempts (
    id           TEXT PRIMARY KEY,
    persona_id   TEXT NOT NULL,
    state        TEXT NOT NULL,
    transcript   TEXT NOT NULL DEFAULT '',
    duration_s   DOUBLE PRECISION NOT NULL,
    metrics      JSONB NOT NULL DEFAULT '{}',
    score        JSONB NOT NULL DEFAULT '{}',
    coaching     JSONB NOT NULL DEFAULT '{}',
    audio_url    TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL,
    confirmed_at TIMESTAMPTZ,
    archived_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_coaching_attempts_persona ON coaching_attempts(persona_id);
CREATE INDEX IF NOT EXISTS idx_coaching_attempts_created ON coaching_attempts(created_at);
`

// DB is the database interface used by [PostgresArchiver]. Both
// *pgxpool.Pool and *pgx.Conn satisfy it.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresArchiver stores attempts in PostgreSQL. Metrics, score and coaching
// are kept as JSONB.
type PostgresArchiver struct {
	db DB
}

var _ Archiver = (*PostgresArchiver)(nil)

// NewPostgresArchiver creates an archiver on db. Call
// [PostgresArchiver.Migrate] before the first Archive.
func NewPostgresArchiver(db DB) *PostgresArchiver {
	return &PostgresArchiver{db: db}
}

// Migrate applies [Schema].
func (s *PostgresArchiver) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("attempt archive: migrate: %w", err)
	}
	return nil
}

type metricsDoc struct {
	WordsPerMinute   float64 `json:"wpm"`
	TotalWords       int     `json:"total_words"`
	FillerCount      int     `json:"total_fillers"`
	FillersPerMinute float64 `json:"fillers_per_min"`
}

type scoreDoc struct {
	Overall       float64 `json:"overall"`
	Pace          float64 `json:"pace"`
	Clarity       float64 `json:"clarity"`
	Confidence    float64 `json:"confidence"`
	FillerControl float64 `json:"filler_control"`
}

type coachingDoc struct {
	Summary  string            `json:"summary"`
	Tips     []string          `json:"tips"`
	Exercise string            `json:"exercise"`
	Scores10 coaching.Scores10 `json:"scores10"`
	Source   coaching.Source   `json:"source"`
	Reason   string            `json:"reason,omitempty"`
}

// Archive upserts a. Archiving the same attempt again (expired, then removed)
// overwrites the earlier row.
func (s *PostgresArchiver) Archive(ctx context.Context, a Attempt) error {
	m := a.Metrics
	metricsJSON, err := json.Marshal(metricsDoc{
		WordsPerMinute:   m.WordsPerMinute,
		TotalWords:       m.TotalWords,
		FillerCount:      m.FillerCount,
		FillersPerMinute: m.FillersPerMinute,
	})
	if err != nil {
		return fmt.Errorf("attempt archive: marshal metrics: %w", err)
	}
	d := a.Score.Dimensions
	scoreJSON, err := json.Marshal(scoreDoc{
		Overall:       a.Score.Overall,
		Pace:          d.Pace,
		Clarity:       d.Clarity,
		Confidence:    d.Confidence,
		FillerControl: d.FillerControl,
	})
	if err != nil {
		return fmt.Errorf("attempt archive: marshal score: %w", err)
	}
	c := a.Coaching
	tips := c.Tips
	if tips == nil {
		tips = []string{}
	}
	coachingJSON, err := json.Marshal(coachingDoc{
		Summary:  c.Summary,
		Tips:     tips,
		Exercise: c.Exercise,
		Scores10: c.Scores10,
		Source:   c.Source,
		Reason:   c.Reason,
	})
	if err != nil {
		return fmt.Errorf("attempt archive: marshal coaching: %w", err)
	}

	const query = `
		INSERT INTO coaching_attempts (
			id, persona_id, state, transcript, duration_s,
			metrics, score, coaching, audio_url, created_at, confirmed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			transcript = CASE WHEN EXCLUDED.transcript = '' THEN coaching_attempts.transcript ELSE EXCLUDED.transcript END,
			coaching = CASE WHEN EXCLUDED.coaching->>'summary' = '' THEN coaching_attempts.coaching ELSE EXCLUDED.coaching END,
			audio_url = EXCLUDED.audio_url,
			confirmed_at = EXCLUDED.confirmed_at,
			archived_at = now()`

	_, err = s.db.Exec(ctx, query,
		a.ID, a.PersonaID, string(a.State), a.Transcript, a.Seconds,
		metricsJSON, scoreJSON, coachingJSON, a.AudioURL, a.CreatedAt, a.ConfirmedAt,
	)
	if err != nil {
		return fmt.Errorf("attempt archive: archive %q: %w", a.ID, err)
	}
	return nil
}

// Get loads an archived attempt. It returns (nil, nil) when no row exists.
func (s *PostgresArchiver) Get(ctx context.Context, id string) (*Attempt, error) {
	const query = `
		SELECT id, persona_id, state, transcript, duration_s,
		       metrics, score, coaching, audio_url, created_at, confirmed_at
		FROM coaching_attempts
		WHERE id = $1`

	var (
		a                                   Attempt
		state                               string
		metricsJSON, scoreJSON, coachingRaw []byte
		confirmedAt                         *time.Time
	)
	err := s.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.PersonaID, &state, &a.Transcript, &a.Seconds,
		&metricsJSON, &scoreJSON, &coachingRaw, &a.AudioURL, &a.CreatedAt, &confirmedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("attempt archive: get %q: %w", id, err)
	}
	a.State = State(state)
	a.ConfirmedAt = confirmedAt

	var md metricsDoc
	if err := json.Unmarshal(metricsJSON, &md); err != nil {
		return nil, fmt.Errorf("attempt archive: unmarshal metrics: %w", err)
	}
	a.Metrics = speech.Metrics{
		WordsPerMinute:   md.WordsPerMinute,
		TotalWords:       md.TotalWords,
		FillerCount:      md.FillerCount,
		FillersPerMinute: md.FillersPerMinute,
	}

	var sd scoreDoc
	if err := json.Unmarshal(scoreJSON, &sd); err != nil {
		return nil, fmt.Errorf("attempt archive: unmarshal score: %w", err)
	}
	a.Score = scoring.Score{
		Overall: sd.Overall,
		Dimensions: scoring.Dimensions{
			Pace:          sd.Pace,
			Clarity:       sd.Clarity,
			Confidence:    sd.Confidence,
			FillerControl: sd.FillerControl,
		},
	}

	var cd coachingDoc
	if err := json.Unmarshal(coachingRaw, &cd); err != nil {
		return nil, fmt.Errorf("attempt archive: unmarshal coaching: %w", err)
	}
	a.Coaching = coaching.Draft{
		Summary:  cd.Summary,
		Tips:     cd.Tips,
		Exercise: cd.Exercise,
		Scores10: cd.Scores10,
		Source:   cd.Source,
		Reason:   cd.Reason,
	}
	return &a, nil
}
