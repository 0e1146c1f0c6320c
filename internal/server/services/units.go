package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/memvault/internal/common"
	"github.com/dmitrijs2005/memvault/internal/logging"
	"github.com/dmitrijs2005/memvault/internal/server/gate"
	"github.com/dmitrijs2005/memvault/internal/server/models"
	"github.com/dmitrijs2005/memvault/internal/server/repositories/repomanager"
)

type UnitService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

func NewUnitService(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) *UnitService {
	return &UnitService{db: db, repomanager: rm, log: log.With("module", "units")}
}

// RegisterUnit pre-seeds a registry entry. The container is normally left
// empty and created by the next pass. A key that normalizes to an already
// registered one fails with common.ErrorAlreadyExists.
func (s *UnitService) RegisterUnit(ctx context.Context, unitKey, ownerIdentity, containerRef string) (*models.RegistryEntry, error) {
	unitKey = strings.TrimSpace(unitKey)
	key := gate.Normalize(unitKey)
	if key == "" {
		return nil, common.ErrInvalidUnitKey
	}

	entry := &models.RegistryEntry{
		UnitKey:       unitKey,
		NormalizedKey: key,
		OwnerIdentity: gate.NormalizeIdentity(ownerIdentity),
		ContainerRef:  strings.TrimSpace(containerRef),
	}

	created, err := s.repomanager.Registry(s.db).Create(ctx, entry)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", unitKey, err)
	}
	s.log.Info(ctx, "unit registered", "unit", created.UnitKey, "id", created.ID)
	return created, nil
}

// Units lists every registry entry.
func (s *UnitService) Units(ctx context.Context) ([]models.RegistryEntry, error) {
	return s.repomanager.Registry(s.db).List(ctx)
}
