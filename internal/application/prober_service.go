package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"latency-monitor/internal/application/port"
	"latency-monitor/internal/config"
	"latency-monitor/internal/domain"
	"latency-monitor/internal/domain/entity"
	domainRepo "latency-monitor/internal/domain/repository"
	domainService "latency-monitor/internal/domain/service"
	"latency-monitor/internal/metrics"

	"go.uber.org/zap"
)

// Compile-time check
var _ port.ProbeService = (*ProberService)(nil)

// ProberService periodically probes RPC endpoints through the query client,
// keeping each endpoint observed so stalled probes surface as slow queries.
type ProberService struct {
	client     *QueryClient
	rpcChecker domainService.RPCChecker
	chainRepo  domainRepo.ChainRepository
	logger     *zap.Logger
	metrics    *metrics.Metrics
	cfg        config.Config
	rootCtx    context.Context
	isProbing  *atomic.Bool

	mu        sync.RWMutex
	endpoints []entity.RPCURL
	results   map[entity.RPCURL]entity.ProbeResult
	releases  []func()
}

// NewProberService creates a new prober. chainRepo may be nil when no chain IDs are configured.
func NewProberService(
	rootCtx context.Context,
	client *QueryClient,
	rpcChecker domainService.RPCChecker,
	chainRepo domainRepo.ChainRepository,
	logger *zap.Logger,
	m *metrics.Metrics,
	cfg config.Config,
) *ProberService {
	return &ProberService{
		client:     client,
		rpcChecker: rpcChecker,
		chainRepo:  chainRepo,
		logger:     logger.Named("ProberService"),
		metrics:    m,
		cfg:        cfg,
		rootCtx:    rootCtx,
		isProbing:  new(atomic.Bool),
		results:    make(map[entity.RPCURL]entity.ProbeResult),
	}
}

// ProbeKey is the query key under which an endpoint probe is tracked.
func ProbeKey(url entity.RPCURL) entity.CompositeKey {
	return entity.CompositeKey{"rpcProbe", url.String()}
}

// Start resolves the endpoints to watch, marks them observed, and launches the
// background probe loop. It returns domain.ErrNoEndpoints when nothing is configured.
func (s *ProberService) Start() error {
	endpoints := s.resolveEndpoints(s.rootCtx)
	if len(endpoints) == 0 {
		return domain.ErrNoEndpoints
	}

	s.mu.Lock()
	s.endpoints = endpoints
	s.client.Batch(func() {
		for _, u := range endpoints {
			s.releases = append(s.releases, s.client.Observe(ProbeKey(u)))
		}
	})
	s.mu.Unlock()

	s.logger.Info("Watching RPC endpoints", zap.Int("count", len(endpoints)))

	if s.cfg.Prober.RunOnStartup {
		go s.runProbeRound()
	}
	go s.startBackgroundProber()
	return nil
}

// Stop releases the observation of every watched endpoint.
func (s *ProberService) Stop() {
	s.mu.Lock()
	releases := s.releases
	s.releases = nil
	s.mu.Unlock()

	s.client.Batch(func() {
		for _, release := range releases {
			release()
		}
	})
}

// Results returns the latest probe result for every watched endpoint.
func (s *ProberService) Results() []entity.ProbeResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]entity.ProbeResult, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URL < out[j].URL })
	return out
}

// ProbeAll probes every watched endpoint once using a bounded worker pool.
func (s *ProberService) ProbeAll(ctx context.Context) {
	s.mu.RLock()
	endpoints := append([]entity.RPCURL(nil), s.endpoints...)
	s.mu.RUnlock()

	if len(endpoints) == 0 {
		s.logger.Warn("ProbeAll called with 0 endpoints")
		return
	}

	numWorkers := s.cfg.Prober.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = 10
	}
	if numWorkers > len(endpoints) {
		numWorkers = len(endpoints)
	}

	jobs := make(chan entity.RPCURL, len(endpoints))
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.logger.Debug("Starting probe worker", zap.Int("workerID", workerID))
			for u := range jobs {
				select {
				case <-ctx.Done():
					s.logger.Info("Context cancelled, probe worker shutting down", zap.Int("workerID", workerID))
					return
				default:
				}
				s.probe(ctx, u)
			}
		}(w)
	}

	for _, u := range endpoints {
		jobs <- u
	}
	close(jobs)
	wg.Wait()
}

// probe checks a single endpoint through the query client and stores the result.
func (s *ProberService) probe(ctx context.Context, u entity.RPCURL) {
	result := entity.ProbeResult{URL: u, Protocol: protocolOf(u)}

	timeout := s.cfg.Prober.GetTimeout()
	start := time.Now()
	err := s.client.Fetch(ctx, ProbeKey(u), func(ctx context.Context) error {
		checkCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		isWorking, latency, err := s.rpcChecker.CheckRPC(checkCtx, u)
		if err != nil {
			return err
		}
		if !isWorking {
			return fmt.Errorf("rpc %s reported not working", u)
		}
		latencyMs := latency.Milliseconds()
		result.LatencyMs = &latencyMs
		return nil
	})

	working := err == nil
	result.IsWorking = &working
	if err != nil {
		result.Error = err.Error()
		s.logger.Debug("RPC probe failed", zap.String("rpc", u.String()), zap.Error(err))
	}
	s.metrics.ObserveProbe(working, time.Since(start))

	s.mu.Lock()
	s.results[u] = result
	s.mu.Unlock()
}

// resolveEndpoints merges the static endpoint list with RPCs of the configured chains.
func (s *ProberService) resolveEndpoints(ctx context.Context) []entity.RPCURL {
	seen := make(map[entity.RPCURL]struct{})
	var endpoints []entity.RPCURL
	add := func(u entity.RPCURL) {
		if _, dup := seen[u]; dup {
			return
		}
		seen[u] = struct{}{}
		endpoints = append(endpoints, u)
	}

	for _, raw := range s.cfg.Prober.Endpoints {
		u, err := entity.NewRPCURL(raw)
		if err != nil {
			s.logger.Warn("Skipping invalid configured endpoint", zap.String("rawUrl", raw), zap.Error(err))
			continue
		}
		add(u)
	}

	if len(s.cfg.Chainlist.ChainIDs) == 0 || s.chainRepo == nil {
		return endpoints
	}

	groups, err := s.chainRepo.GetChainEndpoints(ctx, s.cfg.Chainlist.ChainIDs)
	if err != nil {
		s.logger.Error("Failed to resolve chain endpoints, using static endpoints only", zap.Error(err))
		return endpoints
	}

	for _, group := range groups {
		s.logger.Debug("Adding chain endpoints",
			zap.Int64("chainId", group.ChainID),
			zap.String("chain", group.Name),
			zap.Int("rpcCount", len(group.Endpoints)),
		)
		for _, u := range group.Endpoints {
			add(u)
		}
	}
	return endpoints
}

func (s *ProberService) runProbeRound() {
	if !s.isProbing.CompareAndSwap(false, true) {
		s.logger.Debug("Probe round already in progress, skipping")
		return
	}
	defer s.isProbing.Store(false)

	s.logger.Info("Starting probe round")
	s.ProbeAll(s.rootCtx)
	s.logger.Info("Probe round finished")
}

// startBackgroundProber runs a probe round on every tick until the root context ends.
func (s *ProberService) startBackgroundProber() {
	interval := s.cfg.Prober.GetInterval()
	if interval <= 0 {
		s.logger.Info("Background prober disabled (interval <= 0)")
		return
	}

	s.logger.Info("Starting background prober", zap.Duration("interval", interval))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			go s.runProbeRound()
		case <-s.rootCtx.Done():
			s.logger.Info("Background prober stopping due to context cancellation.")
			return
		}
	}
}

func protocolOf(u entity.RPCURL) entity.Protocol {
	scheme, _, _ := strings.Cut(u.String(), "://")
	switch strings.ToLower(scheme) {
	case "http":
		return entity.ProtocolHTTP
	case "https":
		return entity.ProtocolHTTPS
	case "ws":
		return entity.ProtocolWS
	case "wss":
		return entity.ProtocolWSS
	default:
		return entity.ProtocolUnknown
	}
}
