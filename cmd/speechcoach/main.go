// Command speechcoach is the main entry point for the speech coaching server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/speechcoach/internal/app"
	"github.com/MrWong99/speechcoach/internal/config"
	"github.com/MrWong99/speechcoach/internal/observe"
	"github.com/MrWong99/speechcoach/pkg/provider/emotion"
	"github.com/MrWong99/speechcoach/pkg/provider/emotion/httpclassifier"
	"github.com/MrWong99/speechcoach/pkg/provider/emotion/llmclassifier"
	"github.com/MrWong99/speechcoach/pkg/provider/llm"
	"github.com/MrWong99/speechcoach/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/speechcoach/pkg/provider/llm/openai"
	"github.com/MrWong99/speechcoach/pkg/provider/tts"
	"github.com/MrWong99/speechcoach/pkg/provider/tts/coqui"
	"github.com/MrWong99/speechcoach/pkg/provider/tts/elevenlabs"
	"github.com/MrWong99/speechcoach/pkg/provider/tts/murf"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file (optional)")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath, os.LookupEnv)
	if err != nil {
		fmt.Fprintf(os.Stderr, "speechcoach: %v\n", err)
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("speechcoach starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
		"version", version,
	)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(context.Background(), telemetryConfig(cfg))
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate providers ─────────────────────────────────────────────────
	providers, err := buildProviders(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printStartupSummary(cfg)

	application, err := app.New(ctx, cfg, providers)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	code := 0
	if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		code = 1
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		code = 1
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown error", "err", err)
	}
	slog.Info("goodbye")
	return code
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// anyLLMProviders share the same pattern: optional APIKey + optional BaseURL.
var anyLLMProviders = []string{"gemini", "anthropic", "deepseek", "mistral", "groq", "ollama"}

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the appropriate
// provider from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	for _, providerName := range anyLLMProviders {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			p, err := anyllm.New(providerName, entry.Model, opts...)
			if err != nil {
				return nil, err
			}
			return p, nil
		})
	}

	// openai talks to the SDK directly so OpenAI-compatible gateways can set
	// an organisation header.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		if org := entry.OptionString("organization"); org != "" {
			opts = append(opts, oaillm.WithOrganization(org))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("murf", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []murf.Option
		if entry.BaseURL != "" {
			opts = append(opts, murf.WithBaseURL(entry.BaseURL))
		}
		if format := entry.OptionString("format"); format != "" {
			opts = append(opts, murf.WithFormat(format))
		}
		return murf.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := entry.OptionString("output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})

	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []coqui.Option
		if lang := entry.OptionString("language"); lang != "" {
			opts = append(opts, coqui.WithLanguage(lang))
		}
		if mode := entry.OptionString("api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		return coqui.New(entry.BaseURL, opts...)
	})

	// ── Emotion ───────────────────────────────────────────────────────────────

	reg.RegisterEmotion("http", func(entry config.ProviderEntry) (emotion.Classifier, error) {
		var opts []httpclassifier.Option
		if n, ok := entry.Options["concurrency"].(int); ok {
			opts = append(opts, httpclassifier.WithConcurrency(n))
		}
		return httpclassifier.New(entry.BaseURL, opts...)
	})

	for kind, names := range reg.Names() {
		for _, name := range names {
			slog.Debug("registered provider", "kind", kind, "name", name)
		}
	}
}

// buildProviders instantiates all providers named in cfg using the registry
// and returns them in an [app.Providers] struct for the application to consume.
// telemetryConfig describes the configured collaborators as resource
// attributes.
func telemetryConfig(cfg *config.Config) observe.ProviderConfig {
	tc := observe.ProviderConfig{
		ServiceName:    observe.DefaultServiceName,
		ServiceVersion: version,
		Providers: map[string]string{
			"llm":     cfg.Providers.LLM.Name,
			"tts":     cfg.Providers.TTS.Name,
			"emotion": cfg.Providers.Emotion.Name,
		},
		Confirmation: string(cfg.Attempts.Confirmation),
	}
	for _, entry := range cfg.Providers.TTSFallbacks {
		tc.TTSFallbacks = append(tc.TTSFallbacks, entry.Name)
	}
	return tc
}

func buildProviders(cfg *config.Config, reg *config.Registry) (*app.Providers, error) {
	ps := &app.Providers{}

	if name := cfg.Providers.LLM.Name; name != "" {
		p, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		ps.LLM = p
		slog.Info("provider created", "kind", "llm", "name", name, "model", cfg.Providers.LLM.Model)
	}

	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		ps.TTS = p
		slog.Info("provider created", "kind", "tts", "name", name)
	}

	for _, entry := range cfg.Providers.TTSFallbacks {
		p, err := reg.CreateTTS(entry)
		if err != nil {
			return nil, fmt.Errorf("create tts fallback %q: %w", entry.Name, err)
		}
		ps.TTSFallbacks = append(ps.TTSFallbacks, app.NamedTTS{Name: entry.Name, Provider: p})
		slog.Info("provider created", "kind", "tts_fallback", "name", entry.Name)
	}

	// The llm classifier reuses the coaching model, so it is built here
	// rather than through the registry.
	switch name := cfg.Providers.Emotion.Name; name {
	case "":
	case "llm":
		c, err := llmclassifier.New(ps.LLM)
		if err != nil {
			return nil, fmt.Errorf("create emotion classifier %q: %w", name, err)
		}
		ps.Emotion = c
		slog.Info("provider created", "kind", "emotion", "name", name)
	default:
		c, err := reg.CreateEmotion(cfg.Providers.Emotion)
		if err != nil {
			return nil, fmt.Errorf("create emotion classifier %q: %w", name, err)
		}
		ps.Emotion = c
		slog.Info("provider created", "kind", "emotion", "name", name)
	}

	return ps, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║      speechcoach · startup summary    ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	printProvider("Emotion", cfg.Providers.Emotion.Name, "")
	fmt.Printf("║  TTS fallbacks   : %-19d ║\n", len(cfg.Providers.TTSFallbacks))
	printValue("Personas", cfg.Personas.File, "(built-in)")
	printValue("Audio store", cfg.Audio.NATSURL, "(in memory)")
	printValue("Archive", redactDSN(cfg.Archive.PostgresDSN), "(disabled)")
	printValue("Confirmation", string(cfg.Attempts.Confirmation), "")
	printValue("Listen addr", cfg.Server.ListenAddr, "")
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	printValue(kind, value, "")
}

func printValue(label, value, empty string) {
	if value == "" {
		value = empty
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", label, value)
}

// redactDSN hides everything but the scheme of a connection string.
func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	for i := 0; i+2 < len(dsn); i++ {
		if dsn[i:i+3] == "://" {
			return dsn[:i+3] + "…"
		}
	}
	return "configured"
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
