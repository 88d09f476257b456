package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/fieldsync/internal/devserver/config"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// App runs a Server on a TCP address until it is signalled to stop.
type App struct {
	config *config.Config
	logger logging.Logger
	server *Server

	mu   sync.Mutex
	addr net.Addr
}

func NewApp(c *config.Config) (*App, error) {
	logger, err := logging.New(os.Stdout, c.LogLevel, "json")
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	srv := New(Options{
		APIKey:    c.APIKey,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		Bucket:    c.Bucket,
		PageSize:  c.PageSize,
		MaxSkew:   c.MaxSkew,
		Logger:    logger,
	})

	if c.SeedFile != "" {
		seed, err := LoadSeed(c.SeedFile)
		if err != nil {
			return nil, err
		}
		srv.Apply(seed)
	}

	return &App{config: c, logger: logger, server: srv}, nil
}

// Server exposes the backend state, e.g. for seeding from tests.
func (app *App) Server() *Server { return app.server }

// Addr is the bound listener address once Run has started listening.
func (app *App) Addr() net.Addr {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.addr
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) serve(ctx context.Context, ln net.Listener) error {
	hs := &http.Server{Handler: app.server.Handler(), ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() {
		errCh <- hs.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(ctx, "shutdown failed", "error", err)
	}

	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run listens on the configured address and blocks until ctx is canceled
// or the process receives a termination signal.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.initSignalHandler(cancelFunc)

	ln, err := net.Listen("tcp", app.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	app.mu.Lock()
	app.addr = ln.Addr()
	app.mu.Unlock()

	app.logger.Info(ctx, "devserver listening", "addr", ln.Addr().String(), "bucket", app.config.Bucket)
	err = app.serve(ctx, ln)
	app.logger.Info(context.WithoutCancel(ctx), "devserver stopped")
	return err
}
