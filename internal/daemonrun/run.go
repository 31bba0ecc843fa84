package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"contentops/internal/aggregate"
	"contentops/internal/config"
	"contentops/internal/daemon"
	"contentops/internal/database"
	"contentops/internal/generation"
	"contentops/internal/httpapi"
	"contentops/internal/logging"
	"contentops/internal/notifications"
	"contentops/internal/orchestrator"
	"contentops/internal/preflight"
	"contentops/internal/queue"
	"contentops/internal/services/avatar"
	"contentops/internal/services/captions"
	"contentops/internal/services/llm"
	"contentops/internal/services/tts"
	"contentops/internal/store"
	"contentops/internal/tags"
	"contentops/internal/webhook"
	"contentops/internal/worker"
)

// Options configures daemon process runtime behavior.
type Options struct {
	LogLevel string
	// SkipPreflight suppresses the startup dependency report.
	SkipPreflight bool
}

// Runtime is the wired service graph shared by the daemon and the CLI.
type Runtime struct {
	Config       *config.Config
	Logger       *slog.Logger
	DB           *database.DB
	Store        *store.Store
	Queue        *queue.Queue
	Notifier     notifications.Service
	Tags         *tags.Engine
	Orchestrator *orchestrator.Orchestrator
	Reconciler   *webhook.Reconciler
	Handlers     *worker.Handlers
}

// Build opens the database and wires every service against it.
func Build(cfg *config.Config, logger *slog.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, err
	}

	st := store.New(db)
	q := queue.NewFromConfig(db, cfg)
	notifier := notifications.NewService(cfg)
	engine := tags.NewEngine(st, q, logger)
	orch := orchestrator.New(st, q, aggregate.NewRecomputer(st, engine, notifier, logger), notifier, logger)

	captionsClient := captions.New(cfg.Captions)
	registry := generation.NewDefaultRegistry(
		llm.NewClient(llm.ConfigFrom(cfg)),
		tts.New(cfg.TTS),
		avatar.New(cfg.Avatar),
	)
	reconciler := webhook.NewReconciler(orch, q, captionsClient, cfg.API.PublicBaseURL, logger)
	handlers := worker.NewHandlers(worker.HandlerDeps{
		Orchestrator:  orch,
		Registry:      registry,
		Reconciler:    reconciler,
		Tags:          engine,
		Queue:         q,
		Captions:      captionsClient,
		PublicBaseURL: cfg.API.PublicBaseURL,
		Logger:        logger,
	})

	return &Runtime{
		Config:       cfg,
		Logger:       logger,
		DB:           db,
		Store:        st,
		Queue:        q,
		Notifier:     notifier,
		Tags:         engine,
		Orchestrator: orch,
		Reconciler:   reconciler,
		Handlers:     handlers,
	}, nil
}

// Close releases the database.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	return r.DB.Close()
}

// Run starts the contentops daemon and blocks until a shutdown signal.
func Run(cmdCtx context.Context, cfg *config.Config, opts Options) error {
	if cfg == nil {
		return fmt.Errorf("config is required")
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		cfg.Logging.Level = strings.ToLower(level)
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logName := fmt.Sprintf("contentopsd-%s.log", runID)
	logger, err := logging.NewFromConfig(cfg, logName)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	if err := ensureCurrentLogPointer(cfg.Paths.LogDir, filepath.Join(cfg.Paths.LogDir, logName)); err != nil {
		fmt.Fprintf(os.Stderr, "warn: unable to update contentopsd.log link: %v\n", err)
	}

	pidPath := filepath.Join(cfg.Paths.DataDir, "contentopsd.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	rt, err := Build(cfg, logger)
	if err != nil {
		logger.Error("open database", logging.Error(err))
		return err
	}
	defer rt.Close()

	if !opts.SkipPreflight {
		logPreflight(signalCtx, logger, cfg, rt.DB)
	}

	pool := worker.NewPool(rt.Queue, rt.Handlers, logger, worker.OptionsFromConfig(cfg))
	api := httpapi.New(httpapi.Deps{
		Orchestrator:   rt.Orchestrator,
		Reconciler:     rt.Reconciler,
		Jobs:           rt.Queue,
		Workers:        pool,
		Token:          cfg.API.Token,
		VideoSecret:    cfg.Webhooks.VideoSecret,
		CaptionsSecret: cfg.Webhooks.CaptionsSecret,
		Logger:         logger,
	})

	d, err := daemon.New(daemon.Deps{
		Config:       cfg,
		Orchestrator: rt.Orchestrator,
		Queue:        rt.Queue,
		Pool:         pool,
		API:          api,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		logging.ErrorWithContext(logger, "daemon start failed", "daemon_start_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the api bind address and that no other instance holds the lock"),
			logging.String(logging.FieldImpact, "no jobs will be processed"))
		return err
	}

	<-signalCtx.Done()
	logger.Info("contentops daemon shutting down",
		logging.String(logging.FieldEventType, "daemon_shutdown"))
	return nil
}

func logPreflight(ctx context.Context, logger *slog.Logger, cfg *config.Config, db preflight.Pinger) {
	results := preflight.RunAll(ctx, cfg, db)
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail))
			continue
		}
		logging.WarnWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldErrorHint, "run contentops preflight for details"),
			logging.String(logging.FieldImpact, "jobs depending on this check will fail"))
	}
	logger.Info("preflight complete",
		logging.String(logging.FieldEventType, "preflight_complete"),
		logging.Int("checks", len(results)),
		logging.Int("failed", len(preflight.Failed(results))))
}

func ensureCurrentLogPointer(logDir, target string) error {
	if logDir == "" || target == "" {
		return nil
	}
	current := filepath.Join(logDir, "contentopsd.log")
	if err := os.Remove(current); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing log pointer: %w", err)
	}
	if err := os.Symlink(target, current); err == nil {
		return nil
	}
	if err := os.Link(target, current); err != nil {
		return fmt.Errorf("link log pointer: %w", err)
	}
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
