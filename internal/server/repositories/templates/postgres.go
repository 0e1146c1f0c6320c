package templates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// FindByKey matches template keys case-insensitively.
func (r *PostgresRepository) FindByKey(ctx context.Context, key string) (*models.Template, error) {
	query :=
		`SELECT template_key, subject, body FROM email_templates
		 WHERE upper(trim(template_key)) = upper($1)
		 LIMIT 1
		 `

	t := &models.Template{}
	err := r.db.QueryRowContext(ctx, query, strings.TrimSpace(key)).Scan(&t.Key, &t.Subject, &t.Body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
