package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"latency-monitor/internal/domain/entity"
	domainService "latency-monitor/internal/domain/service"
	"latency-monitor/internal/pkg/apperrors"

	"github.com/gorilla/websocket"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
)

// Compile-time check
var _ domainService.RPCChecker = (*Checker)(nil)

const defaultTimeout = 10 * time.Second

// Checker probes JSON-RPC endpoints over HTTP(S) and WS(S).
type Checker struct {
	client *fasthttp.Client
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewChecker creates a new RPC checker. A non-positive timeout uses the default.
func NewChecker(timeout time.Duration, logger *zap.Logger) *Checker {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Checker{
		client: &fasthttp.Client{
			ReadTimeout: timeout,
		},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		logger: logger.Named("RPCChecker"),
	}
}

// checkPayload is the standard JSON-RPC request to check node health.
var checkPayload = []byte(`{"jsonrpc":"2.0","method":"eth_blockNumber","params":[],"id":1}`)

// JSONRPCResponse defines the basic structure for a JSON-RPC response.
type JSONRPCResponse struct {
	ID      interface{}     `json:"id"`
	Jsonrpc string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *JSONRPCError   `json:"error,omitempty"`
}

// JSONRPCError defines the structure for a JSON-RPC error.
type JSONRPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// CheckRPC sends eth_blockNumber to rpcURL and reports whether it answered correctly.
func (c *Checker) CheckRPC(ctx context.Context, rpcURL entity.RPCURL) (bool, time.Duration, error) {
	start := time.Now()
	raw := rpcURL.String()

	var (
		body []byte
		err  error
	)
	switch {
	case strings.HasPrefix(raw, "ws://"), strings.HasPrefix(raw, "wss://"):
		body, err = c.roundTripWS(ctx, raw)
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		body, err = c.roundTripHTTP(ctx, raw)
	default:
		c.logger.Warn("Skipping check for unsupported protocol", zap.String("url", raw))
		return false, 0, fmt.Errorf("%w: unsupported protocol in URL %s", apperrors.ErrInvalidInput, raw)
	}
	latency := time.Since(start)
	if err != nil {
		c.logger.Debug("RPC round trip failed", zap.String("url", raw), zap.Error(err))
		return false, latency, err
	}

	if err := validateResponse(raw, body); err != nil {
		c.logger.Debug("RPC returned an invalid response", zap.String("url", raw), zap.Error(err))
		return false, latency, err
	}
	return true, latency, nil
}

// effectiveTimeout shortens the client timeout to the context deadline.
func (c *Checker) effectiveTimeout(ctx context.Context) time.Duration {
	timeout := c.client.ReadTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	return timeout
}

func (c *Checker) roundTripHTTP(ctx context.Context, rpcURL string) ([]byte, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(rpcURL)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.SetBody(checkPayload)

	timeout := c.effectiveTimeout(ctx)
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: no time left to call %s", apperrors.ErrTimeout, rpcURL)
	}

	if err := c.client.DoTimeout(req, resp, timeout); err != nil {
		if errors.Is(err, fasthttp.ErrTimeout) {
			return nil, fmt.Errorf("%w: http request to %s timed out after %v", apperrors.ErrTimeout, rpcURL, timeout)
		}
		return nil, fmt.Errorf("%w: http request to %s failed: %v", apperrors.ErrExternalServiceFailure, rpcURL, err)
	}

	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, fmt.Errorf("%w: rpc %s returned non-OK http status: %d",
			apperrors.ErrExternalServiceFailure, rpcURL, resp.StatusCode(),
		)
	}

	body := make([]byte, len(resp.Body()))
	copy(body, resp.Body())
	return body, nil
}

func (c *Checker) roundTripWS(ctx context.Context, rpcURL string) ([]byte, error) {
	conn, _, err := c.dialer.DialContext(ctx, rpcURL, nil)
	if err != nil {
		return nil, wrapContextErr(ctx, "wss dial to "+rpcURL, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.effectiveTimeout(ctx))
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.SetReadDeadline(deadline)

	if err := conn.WriteMessage(websocket.TextMessage, checkPayload); err != nil {
		return nil, wrapContextErr(ctx, "wss write to "+rpcURL, err)
	}

	_, message, err := conn.ReadMessage()
	if err != nil {
		return nil, wrapContextErr(ctx, "wss read from "+rpcURL, err)
	}
	return message, nil
}

// wrapContextErr classifies a transport error as a timeout when the context
// deadline caused it, and as an external failure otherwise.
func wrapContextErr(ctx context.Context, op string, err error) error {
	if errors.Is(context.Cause(ctx), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s timed out: %v", apperrors.ErrTimeout, op, err)
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %s timed out: %v", apperrors.ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s failed: %v", apperrors.ErrExternalServiceFailure, op, err)
}

// validateResponse checks that body is a successful JSON-RPC 2.0 response.
func validateResponse(rpcURL string, body []byte) error {
	var rpcResp JSONRPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		return fmt.Errorf("%w: rpc %s returned invalid JSON response: %v",
			apperrors.ErrExternalServiceFailure, rpcURL, err,
		)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("%w: rpc %s returned json-rpc error: %d %s",
			apperrors.ErrExternalServiceFailure, rpcURL, rpcResp.Error.Code, rpcResp.Error.Message,
		)
	}

	if rpcResp.Jsonrpc != "2.0" || rpcResp.Result == nil {
		return fmt.Errorf("%w: rpc %s returned invalid JSON-RPC structure",
			apperrors.ErrExternalServiceFailure, rpcURL,
		)
	}
	return nil
}
