package chainlist

import (
	"strings"

	dto "latency-monitor/internal/adapter/storage/chainlist/dto"
	"latency-monitor/internal/domain/entity"

	"go.uber.org/zap"
)

// indexActiveChains maps chain IDs to registry entries, leaving out deprecated chains.
func indexActiveChains(rawChains []dto.ChainRaw) map[int64]dto.ChainRaw {
	byID := make(map[int64]dto.ChainRaw, len(rawChains))
	for _, raw := range rawChains {
		if raw.Status == dto.StatusDeprecated {
			continue
		}
		byID[raw.ChainID] = raw
	}
	return byID
}

// toChainEndpoints keeps the first limit usable RPC URLs of raw in registry order.
// URLs with API-key placeholders, invalid URLs and duplicates are skipped.
func toChainEndpoints(raw dto.ChainRaw, limit int, logger *zap.Logger) entity.ChainEndpoints {
	name := raw.Name
	if name == "" {
		name = raw.Chain
	}
	group := entity.ChainEndpoints{ChainID: raw.ChainID, Name: name, ShortName: raw.ShortName}

	seen := make(map[entity.RPCURL]struct{}, len(raw.RPC))
	for _, rpcStr := range raw.RPC {
		if limit > 0 && len(group.Endpoints) == limit {
			break
		}
		if strings.Contains(rpcStr, "${") {
			continue
		}
		u, err := entity.NewRPCURL(strings.TrimSpace(rpcStr))
		if err != nil {
			if logger != nil {
				logger.Debug("Skipping unusable RPC URL",
					zap.Int64("chainId", raw.ChainID), zap.String("rawUrl", rpcStr), zap.Error(err),
				)
			}
			continue
		}
		if _, dup := seen[u]; dup {
			continue
		}
		seen[u] = struct{}{}
		group.Endpoints = append(group.Endpoints, u)
	}
	return group
}
