// Package registry persists registry entries, one per member unit.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/dbx"
	"github.com/dmitrijs2005/memvault/internal/server/models"
)

const uniqueViolation = "23505"

var selectColumns = strings.Join(Columns, ", ")

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.RegistryEntry, error) {
	var (
		e                          models.RegistryEntry
		access, health             string
		uploaded, present, deleted string
		lastChecked, lastSynced    sql.NullTime
	)
	err := row.Scan(&e.ID, &e.UnitKey, &e.NormalizedKey, &e.OwnerIdentity, &e.ContainerRef,
		&access, &e.AccessIssues, &e.FullPath, &uploaded, &present, &deleted,
		&e.FilesFound, &e.TotalBytes, &health, &e.Issues, &lastChecked, &lastSynced)
	if err != nil {
		return nil, err
	}

	e.Access = models.ParseAccessStatus(access)
	e.Health = models.Health(health)
	e.Ledger = models.Ledger{
		Uploaded: models.ParseIDSet(uploaded),
		Present:  models.ParseIDSet(present),
		Deleted:  models.ParseIDSet(deleted),
	}
	if lastChecked.Valid {
		e.LastChecked = lastChecked.Time
	}
	if lastSynced.Valid {
		e.LastSynced = lastSynced.Time
	}
	return &e, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]models.RegistryEntry, error) {
	query := `SELECT ` + selectColumns + ` FROM registry ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var res []models.RegistryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		res = append(res, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) FindByNormalizedKey(ctx context.Context, key string) (*models.RegistryEntry, error) {
	query := `SELECT ` + selectColumns + ` FROM registry WHERE normalized_key = $1`

	e, err := scanEntry(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return e, nil
}

func (r *PostgresRepository) Create(ctx context.Context, entry *models.RegistryEntry) (*models.RegistryEntry, error) {
	query :=
		`INSERT INTO registry (unit_key, normalized_key, owner_identity, container_ref)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		entry.UnitKey, entry.NormalizedKey, entry.OwnerIdentity, entry.ContainerRef).Scan(&entry.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("unit %s: %w", entry.NormalizedKey, common.ErrorAlreadyExists)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entry, nil
}

type setClause struct {
	cols []string
	args []any
}

func (s *setClause) add(col string, v any) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (r *PostgresRepository) Apply(ctx context.Context, upd models.EntryUpdate) error {
	if upd.Empty() {
		return nil
	}

	var set setClause
	if upd.ContainerRef != nil {
		set.add("container_ref", *upd.ContainerRef)
	}
	if upd.FullPath != nil {
		set.add("full_path", *upd.FullPath)
	}
	if upd.Access != nil {
		set.add("access_status", upd.Access.String())
	}
	if upd.AccessIssues != nil {
		set.add("access_issues", *upd.AccessIssues)
	}
	if upd.Uploaded != nil {
		set.add("uploaded", upd.Uploaded.String())
	}
	if upd.Present != nil {
		set.add("present", upd.Present.String())
	}
	if upd.Deleted != nil {
		set.add("deleted", upd.Deleted.String())
	}
	if upd.FilesFound != nil {
		set.add("files_found", *upd.FilesFound)
	}
	if upd.TotalBytes != nil {
		set.add("total_bytes", *upd.TotalBytes)
	}
	if upd.Health != nil {
		set.add("health", string(*upd.Health))
	}
	if upd.Issues != nil {
		set.add("issues", *upd.Issues)
	}
	if upd.LastChecked != nil {
		set.add("last_checked", upd.LastChecked.UTC())
	}
	if upd.LastSynced != nil {
		set.add("last_synced", upd.LastSynced.UTC())
	}

	query := fmt.Sprintf(`UPDATE registry SET %s WHERE id = $%d`, strings.Join(set.cols, ", "), len(set.args)+1)
	res, err := r.db.ExecContext(ctx, query, append(set.args, upd.EntryID)...)
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

func (r *PostgresRepository) UploadedIDs(ctx context.Context, id int64) (models.IDSet, error) {
	query := `SELECT uploaded FROM registry WHERE id = $1 FOR UPDATE`

	var raw string
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.IDSet{}, common.ErrorNotFound
		}
		return models.IDSet{}, fmt.Errorf("db error: %w", err)
	}
	return models.ParseIDSet(raw), nil
}
