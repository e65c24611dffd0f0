package keys

import "context"

type Repository interface {
	Get(ctx context.Context, name string) (string, error)
	Insert(ctx context.Context, name, value string) error
}
