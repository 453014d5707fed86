// Package postgres persists fit manifests in PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gasx/domain/core"
	"gasx/domain/run"
	"gasx/internal/errors"
	"gasx/ports"
)

// Schema creates the ledger table. The fingerprint is indexed so replay
// lookups do not scan.
const Schema = `
CREATE TABLE IF NOT EXISTS fit_manifests (
	run_id         TEXT PRIMARY KEY,
	formula        TEXT NOT NULL,
	family         TEXT NOT NULL,
	ar             INTEGER NOT NULL,
	sc             INTEGER NOT NULL,
	method         TEXT NOT NULL,
	seed           BIGINT NOT NULL,
	obs            INTEGER NOT NULL,
	log_likelihood DOUBLE PRECISION NOT NULL,
	elbo           DOUBLE PRECISION,
	se_unavailable BOOLEAN NOT NULL DEFAULT FALSE,
	warnings       TEXT NOT NULL DEFAULT '',
	runtime_ms     BIGINT NOT NULL,
	fingerprint    TEXT NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_fit_manifests_fingerprint ON fit_manifests (fingerprint);
`

// RunRepository implements the ledger ports for PostgreSQL.
type RunRepository struct {
	db *sqlx.DB
}

// NewRunRepository opens a connection and ensures the schema exists.
func NewRunRepository(url string) (*RunRepository, error) {
	db, err := sqlx.Connect("postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "ledger connect")
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ledger schema")
	}
	return &RunRepository{db: db}, nil
}

// NewRunRepositoryFromDB wraps an existing connection, used by tests.
func NewRunRepositoryFromDB(db *sqlx.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Close releases the underlying connection pool.
func (r *RunRepository) Close() error { return r.db.Close() }

// StoreManifest appends a manifest to the ledger.
func (r *RunRepository) StoreManifest(ctx context.Context, m *run.Manifest) error {
	if err := m.Validate(); err != nil {
		return errors.Wrap(err, "store manifest")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO fit_manifests (run_id, formula, family, ar, sc, method, seed, obs,
			log_likelihood, elbo, se_unavailable, warnings, runtime_ms, fingerprint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, m.RunID, m.Formula, m.Family, m.AR, m.SC, m.Method, int64(m.Seed), m.Obs,
		m.LogLikelihood, m.ELBO, m.SEUnavailable, m.WarningText(), m.RuntimeMS,
		m.Fingerprint, m.CreatedAt.Time())
	if err != nil {
		return errors.Wrap(err, "store manifest")
	}
	return nil
}

// GetManifest retrieves a manifest by run id.
func (r *RunRepository) GetManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error) {
	row := r.db.QueryRowxContext(ctx, `
		SELECT run_id, formula, family, ar, sc, method, seed, obs,
			log_likelihood, elbo, se_unavailable, warnings, runtime_ms, fingerprint, created_at
		FROM fit_manifests
		WHERE run_id = $1
	`, runID)
	m, err := scanManifest(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("run " + string(runID))
	}
	if err != nil {
		return nil, errors.Wrap(err, "get manifest")
	}
	return m, nil
}

// ListManifests returns manifests newest first, honoring the filters.
func (r *RunRepository) ListManifests(ctx context.Context, filters ports.ManifestFilters) ([]*run.Manifest, error) {
	query := `
		SELECT run_id, formula, family, ar, sc, method, seed, obs,
			log_likelihood, elbo, se_unavailable, warnings, runtime_ms, fingerprint, created_at
		FROM fit_manifests
	`
	var clauses []string
	var args []interface{}
	if filters.Method != "" {
		args = append(args, filters.Method)
		clauses = append(clauses, "method = $1")
	}
	if filters.Family != "" {
		args = append(args, filters.Family)
		clauses = append(clauses, "family = $"+strconv.Itoa(len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filters.Limit > 0 {
		args = append(args, filters.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list manifests")
	}
	defer rows.Close()

	var out []*run.Manifest
	for rows.Next() {
		m, err := scanManifest(rows)
		if err != nil {
			return nil, errors.Wrap(err, "list manifests")
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...interface{}) error
}

func scanManifest(row scannable) (*run.Manifest, error) {
	var (
		m        run.Manifest
		seed     int64
		elbo     sql.NullFloat64
		warnings string
		created  sql.NullTime
	)
	err := row.Scan(&m.RunID, &m.Formula, &m.Family, &m.AR, &m.SC, &m.Method, &seed, &m.Obs,
		&m.LogLikelihood, &elbo, &m.SEUnavailable, &warnings, &m.RuntimeMS, &m.Fingerprint, &created)
	if err != nil {
		return nil, err
	}
	m.Seed = uint64(seed)
	if elbo.Valid {
		v := elbo.Float64
		m.ELBO = &v
	}
	if warnings != "" {
		m.Warnings = strings.Split(warnings, "; ")
	}
	if created.Valid {
		m.CreatedAt = core.NewTimestamp(created.Time)
	}
	return &m, nil
}
