package watchlist

import "context"

type Repository interface {
	Terms(ctx context.Context) ([]string, error)
}
