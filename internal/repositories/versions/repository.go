package versions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/chiplogic/internal/models"
)

type Repository interface {
	Current(ctx context.Context) (*models.SchemaVersion, error)
	Append(ctx context.Context, version string, appliedAt time.Time) (*models.SchemaVersion, error)
	List(ctx context.Context) ([]models.SchemaVersion, error)
}
