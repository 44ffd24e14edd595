package chainlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dto "latency-monitor/internal/adapter/storage/chainlist/dto"
	"latency-monitor/internal/config"
	"latency-monitor/internal/domain/entity"
	domainRepo "latency-monitor/internal/domain/repository"
	"latency-monitor/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainRepo.ChainRepository = (*Repository)(nil)

const defaultFetchTimeout = 15 * time.Second

// Repository resolves chain IDs to probe endpoints using the Chainlist registry.
type Repository struct {
	client      *fasthttp.Client
	url         string
	timeout     time.Duration
	maxPerChain int
	logger      *zap.Logger
}

// NewRepository creates a Chainlist-backed chain repository.
// A non-positive MaxEndpointsPerChain keeps every usable endpoint.
func NewRepository(cfg config.ChainlistConfig, logger *zap.Logger) *Repository {
	timeout := cfg.GetTimeout()
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	return &Repository{
		client:      &fasthttp.Client{},
		url:         cfg.URL,
		timeout:     timeout,
		maxPerChain: cfg.MaxEndpointsPerChain,
		logger:      logger.Named("ChainlistStorage"),
	}
}

// GetChainEndpoints downloads the registry once and picks the endpoints of chainIDs.
func (r *Repository) GetChainEndpoints(ctx context.Context, chainIDs []int64) ([]entity.ChainEndpoints, error) {
	if len(chainIDs) == 0 {
		return nil, nil
	}
	if r.url == "" {
		return nil, fmt.Errorf("%w: chainlist url is not configured", apperrors.ErrInvalidInput)
	}

	body, err := r.download(ctx)
	if err != nil {
		return nil, err
	}

	var rawChains []dto.ChainRaw
	if err := json.Unmarshal(body, &rawChains); err != nil {
		r.logger.Error("Failed to decode Chainlist registry",
			zap.Error(err), zap.ByteString("bodySample", body[:min(512, len(body))]),
		)
		return nil, fmt.Errorf("%w: failed to decode chainlist registry: %v",
			apperrors.ErrExternalServiceFailure, err,
		)
	}

	byID := indexActiveChains(rawChains)
	groups := make([]entity.ChainEndpoints, 0, len(chainIDs))
	var missing, empty []int64
	total := 0
	for _, id := range chainIDs {
		raw, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		group := toChainEndpoints(raw, r.maxPerChain, r.logger)
		if len(group.Endpoints) == 0 {
			empty = append(empty, id)
			continue
		}
		total += len(group.Endpoints)
		groups = append(groups, group)
	}

	if len(missing) > 0 {
		r.logger.Warn("Chainlist does not list some configured chains", zap.Int64s("chainIds", missing))
	}
	if len(empty) > 0 {
		r.logger.Warn("Configured chains have no probe-ready endpoints", zap.Int64s("chainIds", empty))
	}
	r.logger.Info("Resolved chain endpoints for the prober",
		zap.Int("requestedChains", len(chainIDs)),
		zap.Int("resolvedChains", len(groups)),
		zap.Int("endpoints", total),
	)
	return groups, nil
}

// download fetches the registry body, bounded by the repository timeout and ctx.
func (r *Repository) download(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: chainlist fetch cancelled: %v", apperrors.ErrTimeout, err)
	}
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(r.url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.Set(fasthttp.HeaderAcceptEncoding, "gzip")

	r.logger.Debug("Downloading Chainlist registry", zap.String("url", r.url), zap.Duration("timeout", timeout))
	if err := r.client.DoTimeout(req, resp, timeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("%w: chainlist request timed out after %v", apperrors.ErrTimeout, timeout)
		}
		return nil, fmt.Errorf("%w: chainlist request failed: %v", apperrors.ErrExternalServiceFailure, err)
	}

	switch status := resp.StatusCode(); {
	case status == fasthttp.StatusNotFound:
		return nil, fmt.Errorf("%w: chainlist registry not found at %s", apperrors.ErrNotFound, r.url)
	case status != fasthttp.StatusOK:
		r.logger.Error("Chainlist returned non-OK status", zap.Int("statusCode", status))
		return nil, fmt.Errorf("%w: chainlist returned status %d", apperrors.ErrExternalServiceFailure, status)
	}

	body, err := resp.BodyUncompressed()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decompress chainlist registry: %v",
			apperrors.ErrExternalServiceFailure, err,
		)
	}
	// resp is released on return.
	return append([]byte(nil), body...), nil
}
