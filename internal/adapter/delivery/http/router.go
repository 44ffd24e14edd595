package http

import (
	"time"

	"github.com/fasthttp/router"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"
)

// RegisterRoutes sets up the monitor routes, the metrics endpoint and the health check.
func RegisterRoutes(r *router.Router, h *MonitorHandler, gatherer prometheus.Gatherer, logger *zap.Logger) {
	logger.Info("Setting up application-specific routes...")

	r.GET("/errors", h.GetErrors)
	r.GET("/errors/top", h.GetTopError)
	r.POST("/errors", h.DispatchError)
	r.GET("/queries/slow", h.GetSlowQueries)
	r.GET("/probes", h.GetProbes)

	if gatherer != nil {
		logger.Info("Setting up metrics route...")
		r.GET("/metrics", fasthttpadaptor.NewFastHTTPHandler(
			promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		))
	}

	logger.Info("Setting up health check route...")
	r.GET("/health", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("OK")
	})

	logger.Info("All routes registered.")
}

// LoggingMiddleware logs every request with its status and duration.
func LoggingMiddleware(next fasthttp.RequestHandler, logger *zap.Logger) fasthttp.RequestHandler {
	log := logger.Named("HTTP")
	return func(ctx *fasthttp.RequestCtx) {
		start := time.Now()
		next(ctx)
		log.Info("Request handled",
			zap.ByteString("method", ctx.Method()),
			zap.ByteString("uri", ctx.RequestURI()),
			zap.Int("status", ctx.Response.StatusCode()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}
