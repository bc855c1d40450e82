package repositories

import (
	"context"

	"github.com/zatekoja/medscan/backend/internal/domain/entities"
)

// ScanResultRepository stores resolved scans by ID.
type ScanResultRepository interface {
	Save(ctx context.Context, result *entities.ScanResult) error
	GetByID(ctx context.Context, id string) (*entities.ScanResult, error)
}
