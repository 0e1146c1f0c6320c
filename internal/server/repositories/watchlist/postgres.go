// Package watchlist reads the screening terms roster rows are checked
// against.
package watchlist

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/memvault/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Terms(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT term FROM watchlist ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var term string
		if err := rows.Scan(&term); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		res = append(res, term)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}
