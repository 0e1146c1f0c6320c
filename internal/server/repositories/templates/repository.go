package templates

import (
	"context"

	"github.com/dmitrijs2005/memvault/internal/server/models"
)

type Repository interface {
	FindByKey(ctx context.Context, key string) (*models.Template, error)
}
