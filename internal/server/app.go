// Package server assembles and runs the Documo server: database and
// migrations, lifecycle services, the HTTP API, and the outbox dispatcher.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/documo/documo/internal/logging"
	"github.com/documo/documo/internal/server/config"
	"github.com/documo/documo/internal/server/httpapi"
	"github.com/documo/documo/internal/server/mail"
	"github.com/documo/documo/internal/server/repositories/repomanager"
	"github.com/documo/documo/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB

	documentService *services.DocumentService
	requestService  *services.RequestService
	dispatcher      *services.OutboxDispatcher
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	blobs := services.NewBlobService(cfg)
	notifier := mail.NewSMTPNotifier(cfg.SMTPAddr, cfg.SMTPFrom)

	return &App{
		config:          cfg,
		logger:          logger,
		db:              db,
		documentService: services.NewDocumentService(db, repos, blobs, cfg, logger),
		requestService:  services.NewRequestService(db, repos),
		dispatcher: services.NewOutboxDispatcher(db, repos, notifier, logger,
			cfg.OutboxPollInterval, cfg.OutboxMaxAttempts),
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	handler := httpapi.NewHandler(app.documentService, app.requestService, app.logger,
		[]byte(app.config.SecretKey), app.config.TokenValidityDuration)
	router := httpapi.NewRouter(handler)

	srv := &http.Server{
		Addr:    app.config.EndpointAddr,
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "http shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "http server listening", "addr", app.config.EndpointAddr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.dispatcher.Run(ctx)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
