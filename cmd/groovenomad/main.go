package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sydlexius/groovenomad/internal/api"
	"github.com/sydlexius/groovenomad/internal/backup"
	"github.com/sydlexius/groovenomad/internal/chat"
	"github.com/sydlexius/groovenomad/internal/config"
	"github.com/sydlexius/groovenomad/internal/database"
	"github.com/sydlexius/groovenomad/internal/event"
	"github.com/sydlexius/groovenomad/internal/festival"
	"github.com/sydlexius/groovenomad/internal/inquiry"
	"github.com/sydlexius/groovenomad/internal/lexicon"
	"github.com/sydlexius/groovenomad/internal/logging"
	"github.com/sydlexius/groovenomad/internal/maintenance"
	"github.com/sydlexius/groovenomad/internal/version"
	"github.com/sydlexius/groovenomad/internal/watcher"
	"github.com/sydlexius/groovenomad/internal/webhook"
)

// quoteWebhookName identifies the webhook seeded from quotes.webhook_url.
const quoteWebhookName = "quote-requests"

const usage = `usage: groovenomad [command]

commands:
  serve                                  start the HTTP server (default)
  import [-replace] <file.yaml>          load festivals into the database
  export [-samples] <file.yaml>          write stored festivals in the import format
  match [-artists=false] [-genres=false] [file]
                                         rank festivals for a playlist (stdin if no file)
  hash-token                             hash an admin token for auth.admin_token_hash
  version                                print the version
`

func main() {
	cmd, args := "serve", []string(nil)
	if len(os.Args) > 1 {
		cmd, args = os.Args[1], os.Args[2:]
	}

	var err error
	switch cmd {
	case "serve":
		err = run()
	case "import":
		err = runImport(args, os.Stdout)
	case "export":
		err = runExport(args, os.Stdout)
	case "match":
		err = runMatch(args, os.Stdin, os.Stdout)
	case "hash-token":
		err = runHashToken(os.Stdin, os.Stdout)
	case "version":
		fmt.Printf("groovenomad %s (%s)\n", version.Version, version.Commit)
	case "help", "-h", "--help":
		fmt.Print(usage)
	default:
		fmt.Fprint(os.Stderr, usage)
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := config.PathFromEnv()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(cfg.Logging)
	defer logManager.Close() //nolint:errcheck
	slog.SetDefault(logger)
	logger.Info("starting groovenomad",
		slog.String("version", version.Version),
		slog.String("config", configPath),
		slog.String("logging", cfg.Logging.String()))

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", "error", err)
		}
	}()
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("database ready", slog.String("path", cfg.Database.Path))

	lexStore, err := lexicon.NewStore(cfg.Lexicon.Path, logger)
	if err != nil {
		return fmt.Errorf("loading lexicon: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The bus outlives the HTTP server so events from draining requests
	// are still delivered.
	busCtx, stopBus := context.WithCancel(context.Background())
	defer stopBus()
	eventBus := event.NewBus(logger, 256)

	festivalService := festival.NewService(db)
	festivalSource := festival.NewFallbackSource(festivalService, logger)
	queryLog := inquiry.NewQueryLog(db)
	webhookService := webhook.NewService(db)
	webhookDispatcher := webhook.NewDispatcher(webhookService, logger)
	webhookDispatcher.Subscribe(eventBus)

	if err := seedQuoteWebhook(ctx, webhookService, cfg.Quotes, logger); err != nil {
		return err
	}

	maintenanceService := maintenance.NewService(db, cfg.Database.Path, cfg.Maintenance.QueryRetentionDays, logger)
	go maintenanceService.StartScheduler(ctx, time.Duration(cfg.Maintenance.IntervalHours)*time.Hour)

	var backupService *backup.Service
	if cfg.Backup.Enabled {
		backupService = backup.NewService(db, cfg.Backup.Dir, cfg.Backup.Retention, logger)
		go backupService.StartScheduler(ctx, time.Duration(cfg.Backup.IntervalHours)*time.Hour)
	}

	busDone := make(chan struct{})
	go func() {
		eventBus.Run(busCtx)
		close(busDone)
	}()

	router := api.NewRouter(api.RouterDeps{
		FestivalService:    festivalService,
		FestivalSource:     festivalSource,
		Lexicon:            lexStore,
		Templater:          chat.NewTemplater(festivalSource, lexStore, queryLog, eventBus, logger),
		QuoteIntake:        inquiry.NewIntake(queryLog, eventBus, logger),
		QueryLog:           queryLog,
		WebhookService:     webhookService,
		WebhookDispatcher:  webhookDispatcher,
		Maintenance:        maintenanceService,
		Backups:            backupService,
		Events:             eventBus,
		DB:                 db,
		Logger:             logger,
		BasePath:           cfg.Server.BasePath,
		CORSOrigin:         cfg.Server.CORSOrigin,
		AdminTokenHash:     cfg.Auth.AdminTokenHash,
		RateLimitPerMinute: cfg.RateLimit.PerMinute,
		RateLimitBurst:     cfg.RateLimit.Burst,
	})
	if cfg.Auth.AdminTokenHash == "" {
		logger.Warn("admin api disabled: auth.admin_token_hash is not set")
	}

	fileWatcher := watcher.NewService(logger,
		watcher.Target{
			Name: "lexicon",
			Path: cfg.Lexicon.Path,
			Reload: func(context.Context) error {
				if err := lexStore.Reload(); err != nil {
					return err
				}
				lx := lexStore.Get()
				eventBus.Publish(event.Event{
					Type:    event.LexiconReloaded,
					Summary: "Matching tables reloaded after a file change",
					Data: map[string]any{
						"source":       "file",
						"associations": len(lx.Associations),
						"genres":       len(lx.Genres),
					},
				})
				return nil
			},
		},
		watcher.Target{
			Name:   "config",
			Path:   configPath,
			Reload: reloadLogging(configPath, logManager, logger),
		},
	)
	go fileWatcher.Start(ctx)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handler(ctx),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", slog.String("addr", addr), slog.String("base_path", cfg.Server.BasePath))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	shutdownErr := srv.Shutdown(shutdownCtx)

	stopBus()
	<-busDone
	webhookDispatcher.Wait()
	return shutdownErr
}

// seedQuoteWebhook makes sure the configured quote endpoint exists as a
// webhook subscribed to quote submissions.
func seedQuoteWebhook(ctx context.Context, svc *webhook.Service, q config.QuotesConfig, logger *slog.Logger) error {
	if q.WebhookURL == "" {
		logger.Info("no quote webhook configured; quote requests are stored only")
		return nil
	}
	wh := &webhook.Webhook{
		Name:    quoteWebhookName,
		URL:     q.WebhookURL,
		Type:    q.WebhookType,
		Events:  []string{string(event.QuoteSubmitted)},
		Enabled: true,
	}
	created, err := svc.EnsureWebhook(ctx, wh)
	if err != nil {
		return fmt.Errorf("seeding quote webhook: %w", err)
	}
	if created {
		logger.Info("created quote webhook", "id", wh.ID, "type", wh.Type)
	}
	return nil
}

// reloadLogging re-reads the config file and applies its logging section.
// Other settings need a restart.
func reloadLogging(path string, mgr *logging.Manager, logger *slog.Logger) func(context.Context) error {
	return func(context.Context) error {
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		if mgr.Reconfigure(cfg.Logging) {
			logger.Info("logging reconfigured", "config", cfg.Logging.String())
		}
		return nil
	}
}

// openStore loads config and opens a migrated database for the offline
// commands.
func openStore() (*config.Config, *festival.Service, io.Closer, error) {
	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		db.Close() //nolint:errcheck
		return nil, nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	return cfg, festival.NewService(db), db, nil
}
