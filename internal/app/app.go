// Package app wires all speechcoach subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP and sweeps attempts until the context ends,
// and Shutdown tears everything down in order.
//
// For testing, inject in-memory implementations via functional options
// (WithAudioStore, WithArchiver, WithMetrics). When an option is not
// provided, New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/speechcoach/internal/api"
	"github.com/MrWong99/speechcoach/internal/attempt"
	"github.com/MrWong99/speechcoach/internal/coach"
	"github.com/MrWong99/speechcoach/internal/coaching"
	"github.com/MrWong99/speechcoach/internal/config"
	"github.com/MrWong99/speechcoach/internal/health"
	"github.com/MrWong99/speechcoach/internal/observe"
	"github.com/MrWong99/speechcoach/internal/persona"
	"github.com/MrWong99/speechcoach/internal/resilience"
	"github.com/MrWong99/speechcoach/internal/sessionlog"
	"github.com/MrWong99/speechcoach/pkg/audiostore"
	"github.com/MrWong99/speechcoach/pkg/provider/emotion"
	"github.com/MrWong99/speechcoach/pkg/provider/llm"
	"github.com/MrWong99/speechcoach/pkg/provider/tts"
)

// NamedTTS is a TTS provider tagged with its registry name.
type NamedTTS struct {
	Name     string
	Provider tts.Provider
}

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM          llm.Provider
	TTS          tts.Provider
	TTSFallbacks []NamedTTS
	Emotion      emotion.Classifier
}

// App owns all subsystem lifetimes and serves the coaching API.
type App struct {
	cfg       *config.Config
	providers *Providers

	metrics  *observe.Metrics
	personas *persona.Registry
	audio    audiostore.Store
	archiver attempt.Archiver
	attempts *attempt.Manager
	engine   *coach.Engine
	checkers []health.Checker
	handler  http.Handler

	// server and listener are set by Run once the address is bound.
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithAudioStore injects an audio store instead of creating one from config.
func WithAudioStore(s audiostore.Store) Option {
	return func(a *App) { a.audio = s }
}

// WithArchiver injects an attempt archiver instead of connecting to
// PostgreSQL.
func WithArchiver(ar attempt.Archiver) Option {
	return func(a *App) { a.archiver = ar }
}

// WithMetrics replaces [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry). Use Option functions
// to inject test doubles for any subsystem.
//
// New performs all initialisation synchronously: persona loading, audio
// store and archive connections, schema migration, and handler assembly.
// On error, everything opened so far is closed again.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (_ *App, err error) {
	if providers == nil {
		providers = &Providers{}
	}
	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	defer func() {
		if err != nil {
			a.runClosers()
		}
	}()

	// ── 1. Personas ──────────────────────────────────────────────────────
	if err := a.initPersonas(); err != nil {
		return nil, fmt.Errorf("app: init personas: %w", err)
	}

	// ── 2. Audio store ───────────────────────────────────────────────────
	if err := a.initAudio(); err != nil {
		return nil, fmt.Errorf("app: init audio store: %w", err)
	}

	// ── 3. Attempt archive ───────────────────────────────────────────────
	if err := a.initArchive(ctx); err != nil {
		return nil, fmt.Errorf("app: init archive: %w", err)
	}

	// ── 4. Attempts + engine ─────────────────────────────────────────────
	if err := a.initEngine(); err != nil {
		return nil, fmt.Errorf("app: init engine: %w", err)
	}

	// ── 5. HTTP handler ──────────────────────────────────────────────────
	a.initHandler()

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initPersonas() error {
	reg, err := persona.Load(a.cfg.Personas.File)
	if err != nil {
		return err
	}
	a.personas = reg
	a.checkers = append(a.checkers, health.NonEmptyCheck("personas", reg.Len))
	slog.Info("loaded personas", "count", reg.Len(), "file", a.cfg.Personas.File)
	return nil
}

// initAudio uses the NATS object store when a URL is configured and an
// in-process store otherwise.
func (a *App) initAudio() error {
	if a.audio != nil {
		return nil
	}
	if a.cfg.Audio.NATSURL == "" {
		a.audio = audiostore.NewMemStore(a.cfg.Audio.TTL)
		return nil
	}

	nc, err := nats.Connect(a.cfg.Audio.NATSURL, nats.Name("speechcoach"))
	if err != nil {
		return fmt.Errorf("connect nats %q: %w", a.cfg.Audio.NATSURL, err)
	}
	a.closers = append(a.closers, nc.Drain)

	js, err := nc.JetStream()
	if err != nil {
		return fmt.Errorf("jetstream: %w", err)
	}
	store, err := audiostore.NewNATSStore(js, a.cfg.Audio.Bucket, audiostore.WithTTL(a.cfg.Audio.TTL))
	if err != nil {
		return err
	}
	a.audio = store
	a.checkers = append(a.checkers, health.ConnectedCheck("audio", nc))
	slog.Info("audio store connected", "bucket", a.cfg.Audio.Bucket)
	return nil
}

// initArchive connects to PostgreSQL and applies the archive schema. Without
// a DSN attempts are not archived.
func (a *App) initArchive(ctx context.Context) error {
	if a.archiver != nil {
		return nil
	}
	dsn := a.cfg.Archive.PostgresDSN
	if dsn == "" {
		return nil
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	a.closers = append(a.closers, func() error {
		pool.Close()
		return nil
	})

	ar := attempt.NewPostgresArchiver(pool)
	if err := ar.Migrate(ctx); err != nil {
		return err
	}
	a.archiver = ar
	a.checkers = append(a.checkers, health.PingCheck("archive", pool))
	return nil
}

func (a *App) initEngine() error {
	cfg := a.cfg
	breakers := a.fallbackConfig()

	// Coaching gateway.
	var llmProvider llm.Provider
	if a.providers.LLM != nil {
		llmProvider = resilience.NewLLMFallback(a.providers.LLM, "llm/"+cfg.Providers.LLM.Name, breakers)
	}
	gwOpts := []coaching.Option{
		coaching.WithTimeout(cfg.Coaching.Timeout),
		coaching.WithMaxTokens(cfg.Coaching.MaxTokens),
		coaching.WithMetrics(a.metrics),
	}
	if cfg.Providers.LLM.Name != "" {
		gwOpts = append(gwOpts, coaching.WithProviderName(cfg.Providers.LLM.Name))
	}
	if cfg.Coaching.Temperature != nil {
		gwOpts = append(gwOpts, coaching.WithTemperature(*cfg.Coaching.Temperature))
	}
	gateway := coaching.New(llmProvider, gwOpts...)

	// Narration. A nil narrator makes every confirm fail with a
	// collaborator error, which is what a server without TTS should do.
	var narrator attempt.Narrator
	if a.providers.TTS != nil {
		fb := resilience.NewTTSFallback(a.providers.TTS, "tts/"+cfg.Providers.TTS.Name, breakers)
		for _, p := range a.providers.TTSFallbacks {
			fb.AddFallback("tts/"+p.Name, p.Provider)
		}
		narrator = coach.NewTTSNarrator(fb, a.audio, cfg.Server.PublicBaseURL,
			coach.WithProviderName(cfg.Providers.TTS.Name),
			coach.WithNarratorMetrics(a.metrics))
	}

	policy, err := confirmationPolicy(cfg.Attempts.Confirmation)
	if err != nil {
		return err
	}
	mgrOpts := []attempt.Option{
		attempt.WithPolicy(policy),
		attempt.WithTTL(cfg.Attempts.TTL),
		attempt.WithRetention(cfg.Attempts.Retention),
		attempt.WithNarrateTimeout(cfg.Attempts.NarrateTimeout),
		attempt.WithMetrics(a.metrics),
	}
	if a.archiver != nil {
		mgrOpts = append(mgrOpts, attempt.WithArchiver(a.archiver))
	}
	a.attempts = attempt.NewManager(narrator, mgrOpts...)

	engineOpts := []coach.Option{
		coach.WithClassifyTimeout(cfg.Emotion.Timeout),
		coach.WithSessionLog(sessionlog.Open(cfg.SessionLog.Path)),
		coach.WithMetrics(a.metrics),
	}
	if a.providers.Emotion != nil {
		name := "emotion/" + cfg.Providers.Emotion.Name
		engineOpts = append(engineOpts, coach.WithClassifier(cfg.Providers.Emotion.Name,
			resilience.NewClassifierFallback(a.providers.Emotion, name, breakers)))
	}
	a.engine = coach.New(a.personas, gateway, a.attempts, engineOpts...)
	return nil
}

// fallbackConfig builds the per-provider circuit breaker settings and
// reports every breaker transition as a metric.
func (a *App) fallbackConfig() resilience.FallbackConfig {
	m := a.metrics
	return resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  a.cfg.Resilience.MaxFailures,
			ResetTimeout: a.cfg.Resilience.ResetTimeout,
			OnStateChange: func(name string, from, to resilience.State) {
				slog.Warn("circuit breaker state change", "name", name, "from", from, "to", to)
				m.RecordBreakerTransition(context.Background(), name, to.String())
			},
		},
	}
}

func (a *App) initHandler() {
	mux := http.NewServeMux()
	api.New(a.engine, api.WithAudioStore(a.audio)).Register(mux)
	health.New(a.checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	a.handler = api.CORS(a.cfg.Server.FrontendOrigin)(observe.Middleware(a.metrics)(mux))
}

// Handler returns the fully wrapped HTTP handler. Tests serve it with
// httptest; Run serves it on the configured listen address.
func (a *App) Handler() http.Handler { return a.handler }

// Engine returns the coaching engine.
func (a *App) Engine() *coach.Engine { return a.engine }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves HTTP on the configured listen address and sweeps expired
// attempts until ctx is cancelled. When ctx is done, the server is drained
// within the configured shutdown timeout and Run returns ctx.Err().
func (a *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.cfg.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("app: listen %q: %w", a.cfg.Server.ListenAddr, err)
	}
	srv := &http.Server{Handler: a.handler}

	a.mu.Lock()
	a.server = srv
	a.listener = ln
	a.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return attempt.NewSweeper(a.attempts, a.cfg.Attempts.SweepInterval).Run(gctx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	slog.Info("app running", "addr", ln.Addr().String(), "personas", a.personas.Len())
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Addr returns the bound listen address once Run has started, or nil.
func (a *App) Addr() net.Addr {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))

		a.mu.Lock()
		srv := a.server
		a.mu.Unlock()
		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil {
				slog.Warn("http shutdown error", "err", err)
			}
		}

		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}

		slog.Info("shutdown complete")
	})
	return shutdownErr
}

func (a *App) runClosers() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Warn("closer error", "index", i, "err", err)
		}
	}
	a.closers = nil
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// confirmationPolicy converts a config.Confirmation to an attempt policy.
func confirmationPolicy(c config.Confirmation) (attempt.ConfirmationPolicy, error) {
	switch c {
	case config.ConfirmNarration, "":
		return attempt.NarrationPolicy{}, nil
	case config.ConfirmAlways:
		return attempt.AlwaysPolicy{}, nil
	case config.ConfirmNever:
		return attempt.NeverPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown confirmation policy %q", c)
	}
}
