// Package roster persists the committee-facing member roster.
package roster

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/server/models"
)

// Defaults for rows created by Upsert.
const (
	StatusNew         = "New"
	RemarksUnassigned = "Unassigned"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, row *models.RosterRow) error {
	query :=
		`INSERT INTO roster (normalized_key, unit_key, submitted_at, email, owner_name, phone, container_link, status, remarks)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (normalized_key) DO UPDATE SET
		   unit_key = EXCLUDED.unit_key,
		   submitted_at = EXCLUDED.submitted_at,
		   email = EXCLUDED.email,
		   owner_name = EXCLUDED.owner_name,
		   phone = EXCLUDED.phone,
		   container_link = EXCLUDED.container_link
		 RETURNING id, status, remarks
		 `

	err := r.db.QueryRowContext(ctx, query,
		row.NormalizedKey, row.UnitKey, row.SubmittedAt.UTC(), row.Email, row.OwnerName,
		row.Phone, row.ContainerLink, StatusNew, RemarksUnassigned).Scan(&row.ID, &row.Status, &row.Remarks)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.RosterRow, error) {
	query :=
		`SELECT id, normalized_key, unit_key, submitted_at, email, owner_name, phone,
		        container_link, status, remarks, watchlist
		 FROM roster
		 ORDER BY id
		 `

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var res []models.RosterRow
	for rows.Next() {
		var row models.RosterRow
		if err := rows.Scan(&row.ID, &row.NormalizedKey, &row.UnitKey, &row.SubmittedAt, &row.Email,
			&row.OwnerName, &row.Phone, &row.ContainerLink, &row.Status, &row.Remarks, &row.Watchlist); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		res = append(res, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) SetWatchlist(ctx context.Context, id int64, flag string) error {
	query := `UPDATE roster SET watchlist = $1 WHERE id = $2`

	res, err := r.db.ExecContext(ctx, query, flag, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
