// Package server initializes and runs the main application server.
// It selects and configures the directory backend, handles graceful
// shutdown, and starts the HTTP server for the account API.
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

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/accountd/internal/logging"
	"github.com/dmitrijs2005/accountd/internal/server/config"
	"github.com/dmitrijs2005/accountd/internal/server/httpapi"
	"github.com/dmitrijs2005/accountd/internal/server/migrations"
	"github.com/dmitrijs2005/accountd/internal/server/repositories/users"
	"github.com/dmitrijs2005/accountd/internal/server/services"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	users     *services.UserService
	directory users.Repository
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	directory, err := newDirectory(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("directory init error: %w", err)
	}

	us := services.NewUserService(directory, c)

	return &App{config: c, logger: logger, users: us, directory: directory}, nil
}

// newDirectory builds the user directory for the configured backend.
func newDirectory(ctx context.Context, c *config.Config) (users.Repository, error) {
	switch c.Storage {
	case config.StoragePostgres:
		return newPostgresDirectory(ctx, c.DatabaseDSN)
	case config.StorageS3:
		return users.NewS3Repository(ctx, c)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", c.Storage)
	}
}

func newPostgresDirectory(ctx context.Context, dsn string) (users.Repository, error) {

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return users.NewPostgresRepository(db), nil
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

	s := httpapi.NewServer(app.config.EndpointAddr, app.logger, app.users, app.directory, app.config.SecretKey)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
}
