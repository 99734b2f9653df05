// ABOUTME: SQLite-backed LocalStore lifecycle: open, migrate, serialized writer, close.
// ABOUTME: Uses modernc.org/sqlite (pure Go, no CGO required).
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a record id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned for writes submitted after Close.
	ErrClosed = errors.New("store closed")
)

// Store is the on-device database. Reads run concurrently; every write is
// funneled through a single writer goroutine.
type Store struct {
	db     *sql.DB
	dbPath string
	feed   *Changefeed
	writer *writer
}

// Open opens or creates the store at dbPath and migrates it to LatestVersion.
func Open(dbPath string) (*Store, error) {
	return OpenAt(dbPath, LatestVersion())
}

// OpenAt opens the store and migrates it to exactly target. It fails without
// changing the schema if the file is already newer than target.
func OpenAt(dbPath string, target int) (*Store, error) {
	return openWith(context.Background(), dbPath, migrations, target)
}

// OpenExisting opens the store at whatever version the file is at, without
// applying migrations.
func OpenExisting(dbPath string) (*Store, error) {
	return openWith(context.Background(), dbPath, migrations, keepVersion)
}

func openWith(ctx context.Context, dbPath string, steps []migration, target int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := os.Chmod(dbPath, 0600); err != nil && !os.IsNotExist(err) {
		_ = db.Close()
		return nil, fmt.Errorf("set database permissions: %w", err)
	}

	if err := migrate(ctx, db, steps, target); err != nil {
		_ = db.Close()
		return nil, err
	}

	feed := NewChangefeed()
	return &Store{
		db:     db,
		dbPath: dbPath,
		feed:   feed,
		writer: newWriter(db, feed),
	}, nil
}

// dsn applies the pragmas to every pooled connection, not just the first.
func dsn(dbPath string) string {
	return "file:" + dbPath +
		"?_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)"
}

// DataDir returns the default data directory following the XDG base directory layout.
func DataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "health")
}

// DefaultDBPath returns the default database path following the XDG base directory layout.
func DefaultDBPath() string {
	return filepath.Join(DataDir(), "health.db")
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Changes returns the store's change feed.
func (s *Store) Changes() *Changefeed {
	return s.feed
}

// SchemaVersion returns the highest applied migration version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	return currentVersion(ctx, s.db)
}

// Close stops the writer, ends all subscriptions and closes the database.
func (s *Store) Close() error {
	if s.writer != nil {
		s.writer.close()
	}
	if s.feed != nil {
		s.feed.Close()
	}
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// write runs fn in a transaction on the writer goroutine and notifies
// subscribers of colls once it commits.
func (s *Store) write(ctx context.Context, fn func(tx *sql.Tx) error, colls ...Collection) error {
	return s.writer.submit(ctx, colls, fn)
}
