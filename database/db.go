package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

// DefaultName is the database file used when none is configured.
const DefaultName = "modelkit_database.db"

// MemoryName opens a private in-memory database.
const MemoryName = ":memory:"

// State is the lifecycle position of a Manager's handle.
type State int

const (
	Unopened State = iota
	Opening
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Unopened:
		return "unopened"
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config selects the database the Manager opens.
type Config struct {
	Driver string
	Name   string
	// Dir holds the database file. Ignored for in-memory and "file:" names.
	Dir string
	WAL bool
}

// Opener opens a database/sql handle. Tests replace it to inject fakes.
type Opener func(driver, dsn string) (*sql.DB, error)

// Option customizes a Manager.
type Option func(*Manager)

// WithOpener replaces sql.Open.
func WithOpener(open Opener) Option {
	return func(m *Manager) {
		m.open = open
	}
}

// Manager owns the single database handle. The handle is opened on first use
// and kept until Close; it is capped at one connection so every statement runs
// on the same SQLite session, in order.
type Manager struct {
	mu     sync.Mutex
	cfg    Config
	state  State
	db     *sql.DB
	open   Opener
	group  singleflight.Group
	logger *slog.Logger
}

// New creates a Manager in the Unopened state. Nothing is opened until
// Initialize or the first statement.
func New(cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	if cfg.Driver == "" {
		cfg.Driver = DriverCGO
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:    cfg,
		open:   sql.Open,
		logger: logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Name returns the configured database name.
func (m *Manager) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cfg.Name
}

// SetDatabaseName changes the database to open. It fails once opening has
// started.
func (m *Manager) SetDatabaseName(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Unopened {
		return &ConfigurationError{
			Op:  "set database name",
			Err: fmt.Errorf("%w: database %q is %s", ErrAlreadyOpen, m.cfg.Name, m.state),
		}
	}
	if strings.TrimSpace(name) == "" {
		return &ConfigurationError{Op: "set database name", Err: ErrEmptyName}
	}
	m.cfg.Name = name
	return nil
}

// Initialize opens the database if it is not open yet. Concurrent calls share
// one attempt. On failure the Manager returns to Unopened so the call can be
// retried.
func (m *Manager) Initialize(ctx context.Context) error {
	_, err := m.handle(ctx)
	return err
}

func (m *Manager) handle(ctx context.Context) (*sql.DB, error) {
	m.mu.Lock()
	if m.state == Open {
		db := m.db
		m.mu.Unlock()
		return db, nil
	}
	m.mu.Unlock()

	v, err, _ := m.group.Do("open", func() (any, error) {
		m.mu.Lock()
		if m.state == Open {
			db := m.db
			m.mu.Unlock()
			return db, nil
		}
		if m.state == Closed {
			name := m.cfg.Name
			m.mu.Unlock()
			return nil, &ConnectionError{Name: name, Err: ErrClosed}
		}
		m.state = Opening
		cfg := m.cfg
		m.mu.Unlock()

		// The attempt is shared by every waiting caller, so one caller
		// giving up must not fail it for the others.
		m.logger.Info("initializing database", "name", cfg.Name, "driver", cfg.Driver)
		db, err := m.openDB(context.WithoutCancel(ctx), cfg)

		m.mu.Lock()
		defer m.mu.Unlock()
		if m.state == Closed {
			if db != nil {
				db.Close()
			}
			return nil, &ConnectionError{Name: cfg.Name, Err: ErrClosed}
		}
		if err != nil {
			m.state = Unopened
			m.logger.Error("failed to initialize database", "name", cfg.Name, "error", err)
			return nil, &ConnectionError{Name: cfg.Name, Err: err}
		}
		m.db = db
		m.state = Open
		m.logger.Info("database initialized", "name", cfg.Name)
		return db, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.DB), nil
}

func (m *Manager) openDB(ctx context.Context, cfg Config) (*sql.DB, error) {
	dsn := cfg.Name
	memory := cfg.Name == MemoryName || strings.Contains(cfg.Name, "mode=memory")
	if !memory && !strings.HasPrefix(cfg.Name, "file:") && cfg.Dir != "" {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = filepath.Join(cfg.Dir, cfg.Name)
	}

	db, err := m.open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps in-memory databases alive and makes
	// LastInsertId refer to the statement that was just run.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.WAL && !memory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// Close releases the handle and moves the Manager to Closed. A closed Manager
// never opens again; later statements fail with ErrClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = Closed
	if m.db == nil {
		return nil
	}
	err := m.db.Close()
	m.db = nil
	return err
}
