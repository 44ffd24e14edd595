package repository

import (
	"context"

	"latency-monitor/internal/domain/entity"
)

// ChainRepository resolves chain IDs to the RPC endpoints a chain registry publishes.
type ChainRepository interface {
	// GetChainEndpoints returns the endpoints of every requested chain the registry
	// knows, in request order. Unknown chains are left out.
	GetChainEndpoints(ctx context.Context, chainIDs []int64) ([]entity.ChainEndpoints, error)
}
