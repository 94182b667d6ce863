package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"manualcall/internal/core/services"
	"manualcall/internal/infrastructure/middleware"
	"manualcall/internal/infrastructure/monitoring"
	"manualcall/internal/infrastructure/notify"
	"manualcall/pkg/config"
	"manualcall/pkg/logger"
	"manualcall/pkg/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type options struct {
	configPath string
	role       string
	address    string
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("callpeer", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.configPath, "config", "configs/config.yaml", "path to the YAML config file")
	fs.StringVar(&opts.role, "role", "", "peer role: caller or answerer (overrides config)")
	fs.StringVar(&opts.address, "addr", "", "control API listen address (overrides config)")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func loadConfig(opts options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.role != "" {
		cfg.Session.Role = opts.role
	}
	if opts.address != "" {
		cfg.Server.Address = opts.address
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		os.Exit(2)
	}
	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, "callpeer:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintln(os.Stderr, "callpeer:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	zapLogger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warnw("tracer shutdown failed", "error", err)
		}
	}()

	metrics := monitoring.NewPrometheusCollector(prometheus.DefaultRegisterer)

	sessionCfg, err := buildSessionConfig(cfg)
	if err != nil {
		return err
	}
	factory, err := buildFactory(cfg, metrics, log.Named("webrtc"))
	if err != nil {
		return fmt.Errorf("create peer connection factory: %w", err)
	}
	synth, speechCheck, err := buildSpeech(cfg, metrics, log)
	if err != nil {
		return fmt.Errorf("create speech synthesizer: %w", err)
	}
	defer synth.Stop()

	translator := buildTranslator(cfg)
	if c, ok := translator.(*services.CachedTranslator); ok {
		defer c.Close()
	}

	hub := notify.NewHub(cfg.Auth.AllowedOrigins, log.Named("events"))
	defer hub.Close()

	sessions, err := services.NewSessionManager(sessionCfg, services.Dependencies{
		Factory:    factory,
		Microphone: buildMicrophone(cfg, log),
		Speech:     synth,
		Translator: translator,
		Notifier:   notify.Fanout{notify.NewLogNotifier(log.Named("notify")), hub},
		Metrics:    metrics,
		Logger:     log,
	})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sessions.Close(); err != nil {
			log.Warnw("closing session", "error", err)
		}
	}()

	health := monitoring.NewHealthChecker()
	health.AddCheck("session", func(context.Context) error {
		if sessions.Current().Snapshot().Closed {
			return errors.New("session closed")
		}
		return nil
	}, time.Second)
	if speechCheck != nil {
		health.AddCheck("speech", speechCheck, time.Second)
	}

	router := buildRouter(cfg, routerDeps{
		sessions: sessions,
		speech:   synth,
		health:   health,
		events:   http.HandlerFunc(hub.HandleWebSocket),
		metrics:  metrics,
		log:      log,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infow("control API listening",
			"address", cfg.Server.Address,
			"role", sessionCfg.Role,
			"session_id", sessions.Current().ID(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warnw("http server shutdown failed", "error", err)
	}
	return nil
}

type routerDeps struct {
	sessions *services.SessionManager
	speech   stoppableSpeech
	health   *monitoring.HealthChecker
	events   http.Handler
	metrics  middleware.HTTPRecorder
	log      *zap.SugaredLogger
}
