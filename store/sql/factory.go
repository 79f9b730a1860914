package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-maxbridge/core"
	servicemigrations "github.com/goliatone/go-maxbridge/migrations"
	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	// SessionFileName is the fixed store file inside a work directory.
	SessionFileName = "session.db"

	DefaultBusyTimeout = 5 * time.Second
)

type options struct {
	logger          core.Logger
	metricsRecorder core.MetricsRecorder
	busyTimeout     time.Duration
	debug           bool
	migrations      fs.FS
}

type Option func(*options)

func WithLogger(logger core.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(o *options) {
		if recorder != nil {
			o.metricsRecorder = recorder
		}
	}
}

// WithBusyTimeout sets how long sqlite waits on a locked session file.
func WithBusyTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.busyTimeout = timeout
		}
	}
}

func WithDebug(enabled bool) Option {
	return func(o *options) {
		o.debug = enabled
	}
}

// WithMigrations replaces the embedded schema. Used by tooling that ships its
// own auth table variant.
func WithMigrations(fsys fs.FS) Option {
	return func(o *options) {
		if fsys != nil {
			o.migrations = fsys
		}
	}
}

func defaultOptions() options {
	return options{
		logger:          glog.Nop(),
		metricsRecorder: core.NopMetricsRecorder{},
		busyTimeout:     DefaultBusyTimeout,
	}
}

type persistenceConfig struct {
	server string
	debug  bool
}

func (c persistenceConfig) GetDebug() bool {
	return c.debug
}

func (c persistenceConfig) GetDriver() string {
	return "sqlite3"
}

func (c persistenceConfig) GetServer() string {
	return c.server
}

func (c persistenceConfig) GetPingTimeout() time.Duration {
	return 5 * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string {
	return "maxbridge-session"
}

// SessionPath returns the store file location for a work directory.
func SessionPath(workDir string) string {
	return filepath.Join(workDir, SessionFileName)
}

// Open opens (or creates) <workDir>/session.db, applies the schema and repairs
// the single-record invariant before returning.
func Open(ctx context.Context, workDir string, opts ...Option) (*CredentialStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	workDir = strings.TrimSpace(workDir)
	if workDir == "" {
		return nil, goerrors.New("sqlstore: work directory is required", goerrors.CategoryBadInput).
			WithTextCode(core.HostErrorBadInput)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, storageError("open", err, map[string]any{"work_dir": workDir})
	}

	path := SessionPath(workDir)
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_txlock=immediate", path, cfg.busyTimeout.Milliseconds())
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, storageError("open", err, map[string]any{"work_dir": workDir})
	}
	sqlDB.SetMaxOpenConns(1)

	client, err := persistence.New(persistenceConfig{server: dsn, debug: cfg.debug}, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, storageError("open", err, map[string]any{"work_dir": workDir})
	}

	closeAll := func() {
		_ = client.Close()
		_ = sqlDB.Close()
	}

	source, err := servicemigrations.Register(func(fsys fs.FS) {
		client.RegisterSQLMigrations(fsys)
	}, cfg.migrations)
	if err != nil {
		closeAll()
		return nil, storageError("migrate", err, map[string]any{"work_dir": workDir})
	}
	glog.Ensure(cfg.logger).Debug("credential store migrations registered",
		"source", servicemigrations.SourceLabel,
		"versions", strings.Join(source.Versions, ","),
	)
	if err := client.Migrate(ctx); err != nil {
		closeAll()
		return nil, storageError("migrate", err, map[string]any{"work_dir": workDir})
	}

	store, err := newCredentialStore(client.DB(), cfg)
	if err != nil {
		closeAll()
		return nil, err
	}
	store.path = path
	store.closer = closeAll

	if err := store.enforce(ctx, true); err != nil {
		closeAll()
		return nil, err
	}
	store.ready.Store(true)
	store.logger.Debug("credential store opened", "work_dir", workDir)
	return store, nil
}

// NewFromPersistence builds a store on an already migrated persistence client
// (or *bun.DB). The caller keeps ownership of the connection.
func NewFromPersistence(ctx context.Context, persistenceClient any, opts ...Option) (*CredentialStore, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	db, err := resolveBunDB(persistenceClient)
	if err != nil {
		return nil, err
	}
	store, err := newCredentialStore(db, cfg)
	if err != nil {
		return nil, err
	}
	if err := store.enforce(ctx, true); err != nil {
		return nil, err
	}
	store.ready.Store(true)
	return store, nil
}

func newCredentialStore(db *bun.DB, cfg options) (*CredentialStore, error) {
	repo := repository.NewRepository[*authRecord](db, authHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, storageError("open", fmt.Errorf("sqlstore: invalid auth repository wiring: %w", err), nil)
		}
	}
	return &CredentialStore{
		db:              db,
		repo:            repo,
		logger:          glog.Ensure(cfg.logger),
		metricsRecorder: cfg.metricsRecorder,
	}, nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
