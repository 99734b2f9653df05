// ABOUTME: PostgreSQL ledger backend over a pgx connection pool.
// ABOUTME: Blind puts use ON CONFLICT DO UPDATE; consents use ON CONFLICT DO NOTHING and a row check.
package cloudstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/harperreed/healthlink/internal/ledger"
	"github.com/harperreed/healthlink/internal/links"
	"github.com/harperreed/healthlink/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores the ledger in PostgreSQL.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ ledger.ItemStore = (*Postgres)(nil)
	_ links.Store      = (*Postgres)(nil)
)

// NewPool opens a pgx pool and checks connectivity.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if minConns > 0 {
		cfg.MinConns = minConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Close closes the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// Ping checks the database is reachable.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS ledger_items (
    patient_id TEXT NOT NULL,
    sort_key TEXT NOT NULL,
    category TEXT NOT NULL,
    date BIGINT NOT NULL,
    local_id BIGINT NOT NULL,
    data JSONB NOT NULL,
    synced_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (patient_id, sort_key)
);

CREATE TABLE IF NOT EXISTS links (
    patient_id TEXT NOT NULL,
    doctor_id TEXT NOT NULL,
    practice_id TEXT NOT NULL DEFAULT '',
    invite_code TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL,
    consent_at TIMESTAMPTZ NOT NULL,
    PRIMARY KEY (patient_id, doctor_id)
);
CREATE INDEX IF NOT EXISTS idx_links_doctor ON links (doctor_id, patient_id);

CREATE TABLE IF NOT EXISTS consents (
    patient_id TEXT NOT NULL,
    consented_at TIMESTAMPTZ NOT NULL,
    practice_id TEXT NOT NULL DEFAULT '',
    doctor_id TEXT NOT NULL DEFAULT '',
    consent_type TEXT NOT NULL,
    PRIMARY KEY (patient_id, consented_at)
);

CREATE TABLE IF NOT EXISTS profiles (
    user_id TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT '',
    practice_id TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema creates the ledger tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create ledger schema: %w", err)
	}
	return nil
}

// PutItems upserts every item in one transaction.
func (p *Postgres) PutItems(ctx context.Context, items []ledger.Item) error {
	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, it := range items {
			batch.Queue(`
INSERT INTO ledger_items (patient_id, sort_key, category, date, local_id, data, synced_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (patient_id, sort_key) DO UPDATE SET
    category = EXCLUDED.category,
    date = EXCLUDED.date,
    local_id = EXCLUDED.local_id,
    data = EXCLUDED.data,
    synced_at = EXCLUDED.synced_at`,
				it.PatientID, it.SortKey, string(it.Category), it.Date, it.LocalID, []byte(it.Data), it.SyncedAt)
		}
		br := tx.SendBatch(ctx, batch)
		for range items {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("put item: %w", err)
			}
		}
		return br.Close()
	})
}

// ListItems returns up to limit items of a patient in sort key order.
func (p *Postgres) ListItems(ctx context.Context, patientID string, limit int) ([]ledger.Item, error) {
	query := `
SELECT patient_id, sort_key, category, date, local_id, data, synced_at
FROM ledger_items WHERE patient_id = $1 ORDER BY sort_key`
	args := []any{patientID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []ledger.Item
	for rows.Next() {
		var (
			it   ledger.Item
			cat  string
			data []byte
		)
		if err := rows.Scan(&it.PatientID, &it.SortKey, &cat, &it.Date, &it.LocalID, &data, &it.SyncedAt); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Category = models.Category(cat)
		it.Data = data
		out = append(out, it)
	}
	return out, rows.Err()
}

// PutLink overwrites the link for (PatientID, DoctorID).
func (p *Postgres) PutLink(ctx context.Context, l links.Link) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO links (patient_id, doctor_id, practice_id, invite_code, status, consent_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (patient_id, doctor_id) DO UPDATE SET
    practice_id = EXCLUDED.practice_id,
    invite_code = EXCLUDED.invite_code,
    status = EXCLUDED.status,
    consent_at = EXCLUDED.consent_at`,
		l.PatientID, l.DoctorID, l.PracticeID, l.InviteCode, string(l.Status), l.ConsentAt)
	if err != nil {
		return fmt.Errorf("put link: %w", err)
	}
	return nil
}

const linkColumns = `patient_id, doctor_id, practice_id, invite_code, status, consent_at`

func scanLink(row pgx.Row) (*links.Link, error) {
	var (
		l      links.Link
		status string
	)
	if err := row.Scan(&l.PatientID, &l.DoctorID, &l.PracticeID, &l.InviteCode, &status, &l.ConsentAt); err != nil {
		return nil, err
	}
	l.Status = links.Status(status)
	return &l, nil
}

// GetLink reads one link.
func (p *Postgres) GetLink(ctx context.Context, patientID, doctorID string) (*links.Link, error) {
	l, err := scanLink(p.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links WHERE patient_id = $1 AND doctor_id = $2`, patientID, doctorID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, links.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return l, nil
}

// LinksForDoctor reads through the doctor index.
func (p *Postgres) LinksForDoctor(ctx context.Context, doctorID string) ([]links.Link, error) {
	return p.queryLinks(ctx, `SELECT `+linkColumns+` FROM links WHERE doctor_id = $1 ORDER BY patient_id`, doctorID)
}

// LinksForPatient reads a patient's links.
func (p *Postgres) LinksForPatient(ctx context.Context, patientID string) ([]links.Link, error) {
	return p.queryLinks(ctx, `SELECT `+linkColumns+` FROM links WHERE patient_id = $1 ORDER BY doctor_id`, patientID)
}

func (p *Postgres) queryLinks(ctx context.Context, query string, arg string) ([]links.Link, error) {
	rows, err := p.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	var out []links.Link
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// AppendConsent inserts c, or returns links.ErrConflict if its key exists.
func (p *Postgres) AppendConsent(ctx context.Context, c links.Consent) error {
	tag, err := p.pool.Exec(ctx, `
INSERT INTO consents (patient_id, consented_at, practice_id, doctor_id, consent_type)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (patient_id, consented_at) DO NOTHING`,
		c.PatientID, c.ConsentedAt, c.PracticeID, c.DoctorID, c.ConsentType)
	if err != nil {
		return fmt.Errorf("append consent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return links.ErrConflict
	}
	return nil
}

// ListConsents returns a patient's consents oldest first.
func (p *Postgres) ListConsents(ctx context.Context, patientID string) ([]links.Consent, error) {
	rows, err := p.pool.Query(ctx, `
SELECT patient_id, consented_at, practice_id, doctor_id, consent_type
FROM consents WHERE patient_id = $1 ORDER BY consented_at`, patientID)
	if err != nil {
		return nil, fmt.Errorf("list consents: %w", err)
	}
	defer rows.Close()

	var out []links.Consent
	for rows.Next() {
		var c links.Consent
		if err := rows.Scan(&c.PatientID, &c.ConsentedAt, &c.PracticeID, &c.DoctorID, &c.ConsentType); err != nil {
			return nil, fmt.Errorf("scan consent: %w", err)
		}
		c.ConsentedAt = c.ConsentedAt.UTC()
		out = append(out, c)
	}
	return out, rows.Err()
}

// PutProfile overwrites a profile.
func (p *Postgres) PutProfile(ctx context.Context, prof links.Profile) error {
	_, err := p.pool.Exec(ctx, `
INSERT INTO profiles (user_id, email, role, practice_id, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (user_id) DO UPDATE SET
    email = EXCLUDED.email,
    role = EXCLUDED.role,
    practice_id = EXCLUDED.practice_id,
    updated_at = EXCLUDED.updated_at`,
		prof.UserID, prof.Email, prof.Role, prof.PracticeID, prof.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

// GetProfile reads a profile.
func (p *Postgres) GetProfile(ctx context.Context, userID string) (*links.Profile, error) {
	var prof links.Profile
	err := p.pool.QueryRow(ctx,
		`SELECT user_id, email, role, practice_id, updated_at FROM profiles WHERE user_id = $1`, userID).
		Scan(&prof.UserID, &prof.Email, &prof.Role, &prof.PracticeID, &prof.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, links.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return &prof, nil
}
