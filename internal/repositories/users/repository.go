package users

import (
	"context"

	"github.com/dmitrijs2005/chiplogic/internal/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) error
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	Exists(ctx context.Context, userName string) (bool, error)
	UpdatePasswordHash(ctx context.Context, userName, hash string) error
	SetActive(ctx context.Context, userName string, active bool) error
	Delete(ctx context.Context, userName string) error
	ListUserNames(ctx context.Context) ([]string, error)
	Count(ctx context.Context) (int, error)
}
