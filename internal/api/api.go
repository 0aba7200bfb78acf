// Package api exposes the coaching engine over HTTP.
//
// Routes:
//
//	GET  /api/personas
//	POST /api/analyze-speech
//	POST /api/confirm-feedback
//	GET  /audio/{key}
//
// Errors are returned as {"error": {"kind": "...", "message": "..."}} with a
// status code per kind.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/MrWong99/speechcoach/internal/coach"
	"github.com/MrWong99/speechcoach/internal/observe"
	"github.com/MrWong99/speechcoach/internal/persona"
	"github.com/MrWong99/speechcoach/internal/speech"
	"github.com/MrWong99/speechcoach/pkg/audiostore"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 1 << 20

// maxDurationSeconds rejects durations that cannot be a single recording.
const maxDurationSeconds = 24 * 60 * 60

// Engine is the coaching functionality the handlers need.
type Engine interface {
	Personas() []persona.Persona
	Analyze(ctx context.Context, req coach.AnalyzeRequest) (*coach.Result, error)
	Confirm(ctx context.Context, attemptID, personaID string) (string, error)
}

var _ Engine = (*coach.Engine)(nil)

// Handler serves the coaching API.
type Handler struct {
	engine       Engine
	audio        audiostore.Store
	maxBodyBytes int64
}

// Option configures a [Handler].
type Option func(*Handler)

// WithAudioStore serves stored narration under /audio/{key}.
func WithAudioStore(s audiostore.Store) Option {
	return func(h *Handler) { h.audio = s }
}

// WithMaxBodyBytes overrides [DefaultMaxBodyBytes].
func WithMaxBodyBytes(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// New creates a Handler for engine.
func New(engine Engine, opts ...Option) *Handler {
	h := &Handler{engine: engine, maxBodyBytes: DefaultMaxBodyBytes}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds the API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/personas", h.personas)
	mux.HandleFunc("POST /api/analyze-speech", h.analyze)
	mux.HandleFunc("POST /api/confirm-feedback", h.confirm)
	if h.audio != nil {
		mux.HandleFunc("GET "+coach.AudioPath+"{key}", h.serveAudio)
	}
}

func (h *Handler) personas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newPersonasResponse(h.engine.Personas()))
}

func (h *Handler) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.DurationSeconds == nil {
		writeError(w, r, fmt.Errorf("%w: durationSeconds is required", speech.ErrInvalidDuration))
		return
	}
	secs := *req.DurationSeconds
	if secs <= 0 {
		writeError(w, r, fmt.Errorf("%w: got %g seconds", speech.ErrInvalidDuration, secs))
		return
	}
	if secs > maxDurationSeconds {
		writeError(w, r, fmt.Errorf("%w: durationSeconds %g exceeds %d", coach.ErrInvalidRequest, secs, maxDurationSeconds))
		return
	}

	res, err := h.engine.Analyze(r.Context(), coach.AnalyzeRequest{
		PersonaID:  req.PersonaID,
		Transcript: req.Transcript,
		Seconds:    secs,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAnalyzeResponse(res))
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if !h.decode(w, r, &req) {
		return
	}
	url, err := h.engine.Confirm(r.Context(), req.AttemptID, req.PersonaID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, confirmResponse{AudioURL: url})
}

func (h *Handler) serveAudio(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	obj, err := h.audio.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, audiostore.ErrNotFound) || errors.Is(err, audiostore.ErrInvalidKey) {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{Kind: KindNotFound, Message: "audio not found"}})
			return
		}
		writeError(w, r, err)
		return
	}
	ct := obj.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(obj.Data)
}

// decode reads a JSON body into v. On failure it writes an InvalidRequest
// response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, r, fmt.Errorf("%w: malformed JSON body: %w", coach.ErrInvalidRequest, err))
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind, status := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		observe.Logger(r.Context()).Error("request failed",
			"path", r.URL.Path,
			"kind", kind,
			"err", err)
		if kind == KindInternal {
			msg = "internal error"
		}
	}
	writeJSON(w, status, errorResponse{Error: errorBody{Kind: kind, Message: msg}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":{"kind":"Internal","message":"encode failed"}}`, http.StatusInternalServerError)
	}
}
