package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"surface-tracker/internal/logging"
	"surface-tracker/internal/metrics"
)

// FileName is the surface definitions database inside a recording.
const FileName = "surface_definitions.db"

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// SurfaceStore persists surface definitions of one recording.
type SurfaceStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// Path returns the database location for a recording.
func Path(recDir string) string {
	return filepath.Join(recDir, FileName)
}

// New opens or creates the database at dbPath. The parent directory must
// already exist and be writable.
func New(ctx context.Context, dbPath string) (*SurfaceStore, error) {
	logging.Info("Surface database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// busy_timeout helps prevent "database is locked" errors
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_foreign_keys=on&_busy_timeout=5000", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single writer at a time is all a recording needs.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &SurfaceStore{
		db:     db,
		dbPath: dbPath,
	}

	if err := s.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Surface database initialized successfully at %s", dbPath)
	return s, nil
}

func (s *SurfaceStore) initialize(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { recordQuery("initialize_schema", start, err) }()

	schema := `
	CREATE TABLE IF NOT EXISTS surfaces (
		uid TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		position INTEGER NOT NULL,
		real_world_width REAL NOT NULL DEFAULT 1,
		real_world_height REAL NOT NULL DEFAULT 1,
		heatmap_smoothness REAL NOT NULL,
		min_markers INTEGER NOT NULL DEFAULT 1,
		updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_surfaces_position ON surfaces(position);

	-- Marker corners in normalised surface coordinates
	CREATE TABLE IF NOT EXISTS registered_markers (
		surface_uid TEXT NOT NULL,
		marker_id INTEGER NOT NULL,
		verts TEXT NOT NULL,
		PRIMARY KEY (surface_uid, marker_id),
		FOREIGN KEY (surface_uid) REFERENCES surfaces(uid) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS metadata (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`

	_, err = s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SurfaceStore) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction and commits when it succeeds.
func (s *SurfaceStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	for _, path := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", path, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 != 0 {
			continue
		}
		logging.Warn("%s is read-only! Mode: %v - this will cause write failures", path, info.Mode())
		if chmodErr := os.Chmod(path, 0o600); chmodErr != nil {
			logging.Error("Failed to fix permissions of %s: %v", path, chmodErr)
		} else {
			logging.Info("Fixed permissions of %s", path)
		}
	}

	return nil
}
