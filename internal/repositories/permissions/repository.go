package permissions

import (
	"context"

	"github.com/dmitrijs2005/chiplogic/internal/models"
)

type Repository interface {
	Create(ctx context.Context, userID string, p models.PermissionSet) error
	Get(ctx context.Context, userName string) (models.PermissionSet, error)
	Update(ctx context.Context, userName string, p models.PermissionSet) error
	DeleteByUserName(ctx context.Context, userName string) error
}
