// ABOUTME: Generic table descriptor shared by every collection.
// ABOUTME: Provides upsert-by-id, delete-by-id, filtered delete and filtered list.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/harperreed/healthlink/internal/models"
)

// Filter narrows list and delete queries. Start/End are epoch milliseconds
// forming the half-open range [Start, End) and apply only when Dated is set,
// so ranges before the epoch bound dates like any other.
type Filter struct {
	Start    int64
	End      int64
	Dated    bool
	Category string
	Limit    int
}

// Between returns a filter bounding dates to [start, end).
func Between(start, end int64) Filter {
	return Filter{Start: start, End: end, Dated: true}
}

// HasRange reports whether the filter bounds dates.
func (f Filter) HasRange() bool {
	return f.Dated
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type table[T any] struct {
	name Collection
	// columns excludes id.
	columns []string
	// categoryCol is matched by Filter.Category, "" when unsupported.
	categoryCol string
	// dateCol is matched by Filter.Start/End, "" when unsupported.
	dateCol  string
	orderBy  string
	values   func(*T) []any
	dest     func(*T) []any
	id       func(*T) *int64
	validate func(*T) error
}

func (t table[T]) selectSQL() string {
	return fmt.Sprintf("SELECT id, %s FROM %s", strings.Join(t.columns, ", "), t.name)
}

// save inserts rec when its id is zero and stores the generated id; otherwise
// it inserts or replaces the row with that id.
func (t table[T]) save(ctx context.Context, tx *sql.Tx, rec *T) error {
	if t.validate != nil {
		if err := t.validate(rec); err != nil {
			return err
		}
	}

	id := t.id(rec)
	vals := t.values(rec)
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(t.columns)), ", ")

	if *id == 0 {
		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			t.name, strings.Join(t.columns, ", "), placeholders)
		res, err := tx.ExecContext(ctx, query, vals...)
		if err != nil {
			return fmt.Errorf("insert %s: %w", t.name, err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert %s: %w", t.name, err)
		}
		*id = newID
		return nil
	}

	sets := make([]string, len(t.columns))
	for i, c := range t.columns {
		sets[i] = fmt.Sprintf("%s = excluded.%s", c, c)
	}
	query := fmt.Sprintf("INSERT INTO %s (id, %s) VALUES (?, %s) ON CONFLICT(id) DO UPDATE SET %s",
		t.name, strings.Join(t.columns, ", "), placeholders, strings.Join(sets, ", "))
	args := append([]any{*id}, vals...)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("replace %s %d: %w", t.name, *id, err)
	}
	return nil
}

func (t table[T]) deleteByID(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", t.name), id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", t.name, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %d", ErrNotFound, t.name, id)
	}
	return nil
}

func (t table[T]) where(f Filter) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	if f.HasRange() {
		if t.dateCol == "" {
			return "", nil, fmt.Errorf("%s cannot be filtered by date", t.name)
		}
		conds = append(conds, t.dateCol+" >= ?", t.dateCol+" < ?")
		args = append(args, f.Start, f.End)
	}
	if f.Category != "" {
		if t.categoryCol == "" {
			return "", nil, fmt.Errorf("%s cannot be filtered by category", t.name)
		}
		conds = append(conds, t.categoryCol+" = ?")
		args = append(args, f.Category)
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func (t table[T]) deleteWhere(ctx context.Context, tx *sql.Tx, f Filter) (int64, error) {
	clause, args, err := t.where(f)
	if err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s%s", t.name, clause), args...)
	if err != nil {
		return 0, fmt.Errorf("delete %s: %w", t.name, err)
	}
	return res.RowsAffected()
}

func (t table[T]) list(ctx context.Context, q querier, f Filter) ([]T, error) {
	clause, args, err := t.where(f)
	if err != nil {
		return nil, err
	}
	query := t.selectSQL() + clause + " ORDER BY " + t.orderBy
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	return t.query(ctx, q, query, args...)
}

func (t table[T]) query(ctx context.Context, q querier, query string, args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	defer func() { _ = rows.Close() }()

	out := []T{}
	for rows.Next() {
		var rec T
		if err := rows.Scan(t.dest(&rec)...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (t table[T]) get(ctx context.Context, q querier, id int64) (*T, error) {
	recs, err := t.query(ctx, q, t.selectSQL()+" WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("%w: %s %d", ErrNotFound, t.name, id)
	}
	return &recs[0], nil
}

func nutrientValues(n *models.Nutrients) []any {
	fields := n.Fields()
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = *f
	}
	return out
}

func nutrientDest(n *models.Nutrients) []any {
	fields := n.Fields()
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func requireDate(date int64, what string) error {
	if date == 0 {
		return fmt.Errorf("%s date is required", what)
	}
	return nil
}
