package audit

import (
	"context"

	"github.com/dmitrijs2005/memvault/internal/server/models"
)

type Repository interface {
	Append(ctx context.Context, rec *models.AuditRecord) error
	List(ctx context.Context, limit int) ([]models.AuditRecord, error)
}
