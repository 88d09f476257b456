package cli

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/dmitrijs2005/fieldsync/internal/archive"
	"github.com/dmitrijs2005/fieldsync/internal/client/config"
	"github.com/dmitrijs2005/fieldsync/internal/client/gateway"
	"github.com/dmitrijs2005/fieldsync/internal/client/objectstore"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
	"github.com/dmitrijs2005/fieldsync/internal/client/store"
	"github.com/dmitrijs2005/fieldsync/internal/clock"
	"github.com/dmitrijs2005/fieldsync/internal/filex"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

// App is the wired client. Commands only talk to its services.
type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	device    gateway.Device
	settings  metadata.Repository
	lock      *services.Lock
	metadata  gateway.Gateway
	sync      services.SyncService
	instances services.InstanceService
	exporter  services.ExportService
	scheduler *services.Scheduler
	out       io.Writer
	format    string
}

// AppFactory builds the App for a command. It runs after flags are parsed.
type AppFactory func(ctx context.Context, opts *RootOptions) (*App, error)

// DefaultFactory wires the App from c.
func DefaultFactory(c *config.Config) AppFactory {
	return func(ctx context.Context, opts *RootOptions) (*App, error) {
		level := c.LogLevel
		if opts.Verbose {
			level = "debug"
		}
		logger, err := logging.New(os.Stderr, level, c.LogFormat)
		if err != nil {
			return nil, err
		}
		return NewApp(ctx, c, logger)
	}
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	files, err := filex.NewStore(c.DataDir)
	if err != nil {
		return nil, fmt.Errorf("error preparing data directory: %w", err)
	}

	db, err := store.Open(ctx, c.DSN())
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	rm := repomanager.NewSQLiteRepositoryManager()
	clk := clock.System()

	settings := rm.Metadata(db)
	device, err := services.LoadDevice(ctx, settings, deviceFromConfig(c))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	httpClient := &http.Client{Timeout: c.RequestTimeout}

	meta := gateway.NewHTTPGateway(gateway.Config{
		BaseURL: c.APIBaseURL,
		APIKey:  c.APIKey,
		Timeout: c.RequestTimeout,
	}, device, httpClient, clk, logger)

	objects, err := objectstore.New(ctx, c.ObjectSigner, objectstore.Config{
		Endpoint:  c.S3Endpoint,
		Bucket:    c.S3Bucket,
		AccessKey: c.S3AccessKey,
		SecretKey: c.S3SecretKey,
		Region:    c.S3Region,
		Timeout:   c.RequestTimeout,
	}, httpClient, clk, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	builder := archive.NewBuilder(files.ArchiveDir, nil)
	exporter := services.NewExportService(db, rm, builder, files, c.PublicMedia, clk, logger)
	syncSvc := services.NewSyncService(services.SyncDeps{
		DB:           db,
		Repositories: rm,
		Metadata:     meta,
		Objects:      objects,
		Exporter:     exporter,
		Files:        files,
		SurveyGroups: c.SurveyGroups,
		PublicMedia:  c.PublicMedia,
		Clock:        clk,
		Logger:       logger,
	})

	return &App{
		config:    c,
		logger:    logger,
		db:        db,
		device:    device,
		settings:  settings,
		lock:      services.NewLock(db, rm, clk, 0, logger),
		metadata:  meta,
		sync:      syncSvc,
		instances: services.NewInstanceService(db, rm, clk),
		exporter:  exporter,
		scheduler: services.NewScheduler(syncSvc, c.SyncInterval, c.MaxBackoff, logger),
		out:       os.Stdout,
		format:    formatText,
	}, nil
}

func deviceFromConfig(c *config.Config) gateway.Device {
	return gateway.Device{
		AndroidID:   c.AndroidID,
		IMEI:        c.IMEI,
		PhoneNumber: c.PhoneNumber,
		AppVersion:  c.AppVersion,
	}
}

// hold takes the store lock for commands that run sync passes.
func (a *App) hold(ctx context.Context) (func(), error) {
	if a.lock == nil {
		return func() {}, nil
	}
	return a.lock.Hold(ctx)
}

// Close releases the local store.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// groups returns the requested survey group, or every configured one.
func (a *App) groups(requested int64) []int64 {
	if requested != 0 {
		return []int64{requested}
	}
	return a.config.SurveyGroups
}
