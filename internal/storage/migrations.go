// ABOUTME: Versioned, additive schema migrations for the local store.
// ABOUTME: The pending chain is applied in one transaction so a failed open leaves the schema untouched.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harperreed/healthlink/internal/models"
)

var (
	// ErrSchemaTooNew is returned when the file is ahead of the requested version.
	ErrSchemaTooNew = errors.New("database schema is newer than this build")
	// ErrUnknownVersion is returned when asked for a version no migration defines.
	ErrUnknownVersion = errors.New("unknown schema version")
)

// keepVersion tells migrate to leave the schema where it is.
const keepVersion = -1

type migration struct {
	version int
	name    string
	sql     string
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   int
	Name      string
	AppliedAt time.Time
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_weights_medications_oxygen",
		sql: `
CREATE TABLE IF NOT EXISTS weights (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date INTEGER NOT NULL,
	weight REAL NOT NULL,
	is_goal INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS medications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date INTEGER NOT NULL,
	name TEXT NOT NULL,
	dosage TEXT NOT NULL DEFAULT '',
	frequency TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL DEFAULT 'daily'
);

CREATE TABLE IF NOT EXISTS oxygen_readings (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date INTEGER NOT NULL,
	level REAL NOT NULL
);
`,
	},
	{
		version: 2,
		name:    "create_exercises_water",
		sql: `
CREATE TABLE IF NOT EXISTS exercises (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date INTEGER NOT NULL,
	type TEXT NOT NULL DEFAULT '',
	minutes INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS water (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date INTEGER NOT NULL,
	amount INTEGER NOT NULL DEFAULT 0
);
`,
	},
	{
		version: 3,
		name:    "create_foods",
		sql: `
CREATE TABLE IF NOT EXISTS foods (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date INTEGER NOT NULL,
	name TEXT NOT NULL,
	meal_category TEXT NOT NULL DEFAULT '',
	quantity REAL NOT NULL DEFAULT 1,
	calories REAL NOT NULL DEFAULT 0,
	protein REAL NOT NULL DEFAULT 0,
	carbs REAL NOT NULL DEFAULT 0,
	fat REAL NOT NULL DEFAULT 0
);
`,
	},
	{
		version: 4,
		name:    "create_favorite_foods",
		sql: `
CREATE TABLE IF NOT EXISTS favorite_foods (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL,
	label_norm TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	meal_category TEXT NOT NULL DEFAULT '',
	quantity REAL NOT NULL DEFAULT 1,
	calories REAL NOT NULL DEFAULT 0,
	protein REAL NOT NULL DEFAULT 0,
	carbs REAL NOT NULL DEFAULT 0,
	fat REAL NOT NULL DEFAULT 0
);
`,
	},
	{
		version: 5,
		name:    "create_favorite_meals",
		sql: `
CREATE TABLE IF NOT EXISTS favorite_meals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL,
	label_norm TEXT NOT NULL,
	meal_category TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS favorite_meal_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	meal_id INTEGER NOT NULL REFERENCES favorite_meals(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	name TEXT NOT NULL,
	quantity REAL NOT NULL DEFAULT 1,
	calories REAL NOT NULL DEFAULT 0,
	protein REAL NOT NULL DEFAULT 0,
	carbs REAL NOT NULL DEFAULT 0,
	fat REAL NOT NULL DEFAULT 0
);
`,
	},
	{
		version: 6,
		name:    "add_micronutrients",
		sql:     addColumnsSQL([]string{"foods", "favorite_foods", "favorite_meal_items"}, models.MicronutrientColumns),
	},
	{
		version: 7,
		name:    "create_user_added_foods",
		sql: `
CREATE TABLE IF NOT EXISTS user_added_foods (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL,
	name_norm TEXT NOT NULL,
	serving_size TEXT NOT NULL DEFAULT '',
` + nutrientColumnDefs() + `
);
`,
	},
	{
		version: 8,
		name:    "add_date_and_label_indexes",
		sql: `
CREATE INDEX IF NOT EXISTS idx_weights_date ON weights(date);
CREATE INDEX IF NOT EXISTS idx_medications_date ON medications(date);
CREATE INDEX IF NOT EXISTS idx_oxygen_readings_date ON oxygen_readings(date);
CREATE INDEX IF NOT EXISTS idx_exercises_date ON exercises(date);
CREATE INDEX IF NOT EXISTS idx_water_date ON water(date);
CREATE INDEX IF NOT EXISTS idx_foods_date ON foods(date);
CREATE INDEX IF NOT EXISTS idx_favorite_foods_label_norm ON favorite_foods(label_norm);
CREATE INDEX IF NOT EXISTS idx_favorite_meals_label_norm ON favorite_meals(label_norm);
CREATE INDEX IF NOT EXISTS idx_favorite_meal_items_meal_id ON favorite_meal_items(meal_id);
CREATE INDEX IF NOT EXISTS idx_user_added_foods_name_norm ON user_added_foods(name_norm);
`,
	},
}

// LatestVersion is the schema version this build migrates to by default.
func LatestVersion() int {
	return migrations[len(migrations)-1].version
}

func addColumnsSQL(tables, columns []string) string {
	var sb strings.Builder
	for _, t := range tables {
		for _, c := range columns {
			fmt.Fprintf(&sb, "ALTER TABLE %s ADD COLUMN %s REAL NOT NULL DEFAULT 0;\n", t, c)
		}
	}
	return sb.String()
}

func nutrientColumnDefs() string {
	cols := models.NutrientColumns()
	defs := make([]string, len(cols))
	for i, c := range cols {
		defs[i] = fmt.Sprintf("\t%s REAL NOT NULL DEFAULT 0", c)
	}
	return strings.Join(defs, ",\n")
}

func ensureMigrationsTable(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TEXT NOT NULL
);`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func currentVersion(ctx context.Context, q queryRower) (int, error) {
	var v sql.NullInt64
	if err := q.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func migrate(ctx context.Context, db *sql.DB, steps []migration, target int) error {
	if err := ensureMigrationsTable(ctx, db); err != nil {
		return err
	}

	if target == keepVersion {
		return nil
	}

	current, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}
	if current > target {
		return fmt.Errorf("%w: file is at version %d, requested %d", ErrSchemaTooNew, current, target)
	}
	if len(steps) == 0 || target > steps[len(steps)-1].version {
		return fmt.Errorf("%w: %d", ErrUnknownVersion, target)
	}
	if current == target {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	next := current + 1
	for _, m := range steps {
		if m.version <= current {
			continue
		}
		if m.version > target {
			break
		}
		if m.version != next {
			return fmt.Errorf("migration %d (%s): expected version %d", m.version, m.name, next)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)`,
			m.version, m.name, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		next++
	}

	if next-1 != target {
		return fmt.Errorf("%w: chain stops at %d, requested %d", ErrUnknownVersion, next-1, target)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migrations: %w", err)
	}
	return nil
}

// Migrate brings an open store up to target inside one transaction.
func (s *Store) Migrate(ctx context.Context, target int) error {
	return migrate(ctx, s.db, migrations, target)
}

// AppliedMigrations lists the migrations recorded in the store.
func (s *Store) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []AppliedMigration
	for rows.Next() {
		var (
			am AppliedMigration
			at string
		)
		if err := rows.Scan(&am.Version, &am.Name, &at); err != nil {
			return nil, fmt.Errorf("scan migration: %w", err)
		}
		am.AppliedAt, _ = time.Parse(time.RFC3339, at)
		out = append(out, am)
	}
	return out, rows.Err()
}
