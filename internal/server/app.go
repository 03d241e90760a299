// Package server wires configuration, storage, services and the HTTP API
// together and runs them until the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/taskapp/internal/logging"
	"github.com/dmitrijs2005/taskapp/internal/server/avatars"
	"github.com/dmitrijs2005/taskapp/internal/server/config"
	"github.com/dmitrijs2005/taskapp/internal/server/httpapi"
	"github.com/dmitrijs2005/taskapp/internal/server/mailer"
	"github.com/dmitrijs2005/taskapp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/taskapp/internal/server/services"
)

const mailQueueSize = 256

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	mail   *mailer.Dispatcher
	server *httpapi.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	store, err := newAvatarStore(ctx, c, db, rm)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("avatar store init error: %w", err)
	}

	dispatcher := mailer.NewDispatcher(newMailSender(c, logger), logger.With("module", "mailer"), mailQueueSize)

	sessions := services.NewSessionService(db, rm, c)
	us := services.NewUserService(db, rm, sessions, store, dispatcher, c, logger)
	ts := services.NewTaskService(db, rm)

	srv := httpapi.NewServer(c.EndpointAddrHTTP, logger, sessions, us, ts, c.AvatarMaxBytes)

	return &App{config: c, logger: logger, db: db, mail: dispatcher, server: srv}, nil
}

// newAvatarStore keeps avatars in PostgreSQL unless a bucket is configured.
func newAvatarStore(ctx context.Context, c *config.Config, db *sql.DB, rm repomanager.RepositoryManager) (avatars.Store, error) {
	if c.S3Bucket == "" {
		return avatars.NewDBStore(db, rm), nil
	}
	s3, err := avatars.NewS3Store(ctx, c)
	if err != nil {
		return nil, err
	}
	return s3, nil
}

// newMailSender falls back to logging when no SendGrid key is configured.
func newMailSender(c *config.Config, logger logging.Logger) mailer.Sender {
	if c.SendGridAPIKey == "" {
		return mailer.NewLogSender(logger.With("module", "mailer"))
	}
	return mailer.NewSendGridSender(c.SendGridAPIKey, c.EmailFrom)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run serves until ctx is cancelled or a termination signal arrives, then
// drains the mail queue and closes the database.
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

	wg.Wait()

	app.mail.Close()
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "closing database", "error", err)
		}
	}

	app.logger.Info(ctx, "App stopped")
}
