// Package audit stores the append-only audit log. The backing table is
// created on first use rather than by migrations, so a fresh database
// can receive records before an operator has run anything.
package audit

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/server/models"
)

const createTableQuery = `CREATE TABLE IF NOT EXISTS audit_log (
	id        BIGSERIAL PRIMARY KEY,
	ts        TIMESTAMPTZ NOT NULL,
	category  TEXT NOT NULL,
	subject   TEXT NOT NULL DEFAULT '',
	object    TEXT NOT NULL DEFAULT '',
	status    TEXT NOT NULL,
	reason    TEXT NOT NULL DEFAULT '',
	action    TEXT NOT NULL DEFAULT ''
)`

// Schema records whether the audit table has been ensured by this process.
// One Schema is shared by every repository the manager vends.
type Schema struct {
	mu    sync.Mutex
	ready bool
}

func (s *Schema) ensure(ctx context.Context, db dbx.DBTX) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	if _, err := db.ExecContext(ctx, createTableQuery); err != nil {
		return fmt.Errorf("create audit table: %w", err)
	}
	s.ready = true
	return nil
}

type PostgresRepository struct {
	db     dbx.DBTX
	schema *Schema
}

func NewPostgresRepository(db dbx.DBTX, schema *Schema) *PostgresRepository {
	if schema == nil {
		schema = &Schema{}
	}
	return &PostgresRepository{db: db, schema: schema}
}

func (r *PostgresRepository) Append(ctx context.Context, rec *models.AuditRecord) error {
	if err := r.schema.ensure(ctx, r.db); err != nil {
		return err
	}

	query :=
		`INSERT INTO audit_log (ts, category, subject, object, status, reason, action)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		rec.Timestamp, string(rec.Category), rec.Subject, rec.Object,
		string(rec.Status), rec.Reason, rec.Action).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first.
func (r *PostgresRepository) List(ctx context.Context, limit int) ([]models.AuditRecord, error) {
	if err := r.schema.ensure(ctx, r.db); err != nil {
		return nil, err
	}

	query :=
		`SELECT id, ts, category, subject, object, status, reason, action
		 FROM audit_log
		 ORDER BY id DESC
		 LIMIT $1
		 `

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var res []models.AuditRecord
	for rows.Next() {
		var (
			rec              models.AuditRecord
			category, status string
		)
		if err := rows.Scan(&rec.ID, &rec.Timestamp, &category, &rec.Subject, &rec.Object,
			&status, &rec.Reason, &rec.Action); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		rec.Category = models.AuditCategory(category)
		rec.Status = models.AuditStatus(status)
		res = append(res, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}
