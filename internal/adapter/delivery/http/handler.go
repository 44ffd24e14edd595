package http

import (
	"encoding/json"
	"fmt"

	"latency-monitor/internal/application/port"
	"latency-monitor/internal/domain"
	"latency-monitor/internal/domain/entity"
	domainRepo "latency-monitor/internal/domain/repository"
	"latency-monitor/internal/pkg/apperrors"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// MonitorHandler serves the error table, the slow-query snapshot and probe results.
type MonitorHandler struct {
	store     domainRepo.ErrorStore
	snapshots port.SnapshotReader
	probes    port.ProbeService
	logger    *zap.Logger
}

// NewMonitorHandler creates a handler. probes may be nil when the prober is disabled.
func NewMonitorHandler(
	store domainRepo.ErrorStore,
	snapshots port.SnapshotReader,
	probes port.ProbeService,
	logger *zap.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		store:     store,
		snapshots: snapshots,
		probes:    probes,
		logger:    logger.Named("MonitorHandler"),
	}
}

type errorsResponse struct {
	Errors  map[string]entity.ErrorEntry `json:"errors"`
	Sorted  []entity.ErrorEntry          `json:"sorted"`
	Version uint64                       `json:"version"`
}

// dispatchRequest is the wire form of a store action.
type dispatchRequest struct {
	Type    entity.ActionType `json:"type"`
	Payload json.RawMessage   `json:"payload"`
}

// GetErrors returns every active error entry.
func (h *MonitorHandler) GetErrors(ctx *fasthttp.RequestCtx) {
	state := h.store.State()
	h.writeJSON(ctx, fasthttp.StatusOK, errorsResponse{
		Errors:  state.Errors,
		Sorted:  state.Sorted(),
		Version: state.Version,
	})
}

// GetTopError returns the highest-priority active entry.
func (h *MonitorHandler) GetTopError(ctx *fasthttp.RequestCtx) {
	top, ok := h.store.State().Top()
	if !ok {
		ctx.Error("Not Found", fasthttp.StatusNotFound)
		return
	}
	h.writeJSON(ctx, fasthttp.StatusOK, top)
}

// DispatchError applies a SET_ERROR or CLEAR_ERROR action posted by a client.
func (h *MonitorHandler) DispatchError(ctx *fasthttp.RequestCtx) {
	action, err := decodeAction(ctx.PostBody())
	if err != nil {
		h.logger.Warn("Rejected error dispatch", zap.Error(err))
		ctx.Error("Bad Request: "+err.Error(), fasthttp.StatusBadRequest)
		return
	}

	h.store.Dispatch(action)
	h.GetErrors(ctx)
}

// GetSlowQueries returns the current detection snapshot.
func (h *MonitorHandler) GetSlowQueries(ctx *fasthttp.RequestCtx) {
	h.writeJSON(ctx, fasthttp.StatusOK, h.snapshots.GetSnapshot())
}

// GetProbes returns the latest RPC probe results.
func (h *MonitorHandler) GetProbes(ctx *fasthttp.RequestCtx) {
	results := []entity.ProbeResult{}
	if h.probes != nil {
		results = h.probes.Results()
	}
	h.writeJSON(ctx, fasthttp.StatusOK, results)
}

func (h *MonitorHandler) writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	ctx.SetContentType("application/json")
	ctx.SetStatusCode(status)
	if err := json.NewEncoder(ctx).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

func decodeAction(body []byte) (entity.Action, error) {
	var req dispatchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return entity.Action{}, fmt.Errorf("%w: malformed body: %v", apperrors.ErrInvalidInput, err)
	}

	switch req.Type {
	case entity.ActionSetError:
		var entry entity.ErrorEntry
		if err := json.Unmarshal(req.Payload, &entry); err != nil {
			return entity.Action{}, fmt.Errorf("%w: malformed payload: %v", apperrors.ErrInvalidInput, err)
		}
		if entry.Key.IsZero() {
			return entity.Action{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, domain.ErrEmptyErrorKey)
		}
		return entity.SetError(entry), nil

	case entity.ActionClearError:
		var payload entity.ClearPayload
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return entity.Action{}, fmt.Errorf("%w: malformed payload: %v", apperrors.ErrInvalidInput, err)
		}
		if payload.Key.IsZero() {
			return entity.Action{}, fmt.Errorf("%w: %w", apperrors.ErrInvalidInput, domain.ErrEmptyErrorKey)
		}
		return entity.ClearError(payload.Key), nil

	default:
		return entity.Action{}, fmt.Errorf("%w: %w %q", apperrors.ErrInvalidInput, domain.ErrUnknownAction, req.Type)
	}
}
