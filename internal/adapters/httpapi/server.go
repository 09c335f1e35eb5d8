// Package httpapi serves the local control API and mounts the cache router behind it.
package httpapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.trai.ch/fieldsync/internal/app"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/fieldsync/internal/core/ports"
)

// Service is the application surface the control API drives.
type Service interface {
	Enqueue(ctx context.Context, req app.EnqueueRequest) (string, *domain.GeoFenceResult, error)
	ListQueue(ctx context.Context, states ...domain.DeliveryState) ([]domain.QueuedRecord, error)
	Retry(ctx context.Context, id string) error
	Discard(ctx context.Context, id string) error
	SyncNow(ctx context.Context) (*domain.SyncReport, error)
	CheckFence(at domain.Coordinate, fence domain.GeoFenceSpec) (domain.GeoFenceResult, error)
	Status(ctx context.Context) (*app.Status, error)
}

// Server routes /_fieldsync requests to the control handlers and
// everything else to the fallback handler.
type Server struct {
	echo    *echo.Echo
	svc     Service
	logger  ports.Logger
	metrics ports.Metrics
}

// New creates a Server. fallback receives every request outside the control prefix.
func New(svc Service, fallback http.Handler, metrics ports.Metrics, logger ports.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, svc: svc, logger: logger, metrics: metrics}
	e.HTTPErrorHandler = s.handleError
	s.registerControlRoutes()
	e.Any("/*", echo.WrapHandler(fallback))
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// registerControlRoutes registers the queue, sync, geo-fence and status endpoints.
// Unknown paths under the prefix are answered here and never reach the origin.
func (s *Server) registerControlRoutes() {
	g := s.echo.Group(domain.ControlPrefix)

	g.POST("/queue", s.enqueue)
	g.GET("/queue", s.listQueue)
	g.POST("/queue/:id/retry", s.retry)
	g.DELETE("/queue/:id", s.discard)
	g.POST("/sync", s.sync)
	g.POST("/geofence/check", s.checkFence)
	g.GET("/status", s.status)
	g.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	g.Any("/*", func(echo.Context) error {
		return echo.ErrNotFound
	})
}
