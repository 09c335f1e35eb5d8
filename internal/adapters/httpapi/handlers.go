package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.trai.ch/fieldsync/internal/app"
	"go.trai.ch/fieldsync/internal/core/domain"
	"go.trai.ch/zerr"
)

type enqueueBody struct {
	Kind      domain.RecordKind `json:"kind"`
	Payload   json.RawMessage   `json:"payload"`
	Latitude  *float64          `json:"latitude,omitempty"`
	Longitude *float64          `json:"longitude,omitempty"`
	Fence     json.RawMessage   `json:"fence,omitempty"`
}

type enqueueResponse struct {
	ID       string                 `json:"id,omitempty"`
	Error    string                 `json:"error,omitempty"`
	GeoFence *domain.GeoFenceResult `json:"geofence,omitempty"`
}

type fenceCheckBody struct {
	Latitude  float64         `json:"latitude"`
	Longitude float64         `json:"longitude"`
	Fence     json.RawMessage `json:"fence"`
}

type syncResponse struct {
	Error  string             `json:"error,omitempty"`
	Report *domain.SyncReport `json:"report,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) enqueue(c echo.Context) error {
	var body enqueueBody
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}

	req := app.EnqueueRequest{Kind: body.Kind, Payload: body.Payload}
	if body.Latitude != nil && body.Longitude != nil && len(body.Fence) > 0 {
		fence, err := domain.ParseProjectFence(body.Fence)
		if err != nil {
			return err
		}
		req.Location = &domain.Coordinate{Latitude: *body.Latitude, Longitude: *body.Longitude}
		req.Fence = &fence
	}

	id, check, err := s.svc.Enqueue(c.Request().Context(), req)
	if errors.Is(err, domain.ErrGeoFenceViolation) {
		return c.JSON(http.StatusUnprocessableEntity, enqueueResponse{Error: domain.ErrGeoFenceViolation.Error(), GeoFence: check})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, enqueueResponse{ID: id, GeoFence: check})
}

func (s *Server) listQueue(c echo.Context) error {
	var states []domain.DeliveryState
	if raw := c.QueryParam("state"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			st, err := domain.ParseDeliveryState(strings.TrimSpace(name))
			if err != nil {
				return echo.NewHTTPError(http.StatusBadRequest, err.Error())
			}
			states = append(states, st)
		}
	}

	records, err := s.svc.ListQueue(c.Request().Context(), states...)
	if err != nil {
		return err
	}
	if records == nil {
		records = []domain.QueuedRecord{}
	}
	return c.JSON(http.StatusOK, records)
}

func (s *Server) retry(c echo.Context) error {
	if err := s.svc.Retry(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusAccepted)
}

func (s *Server) discard(c echo.Context) error {
	if err := s.svc.Discard(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) sync(c echo.Context) error {
	report, err := s.svc.SyncNow(c.Request().Context())
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, syncResponse{Report: report})
	case report != nil:
		// The run happened; the report says which records will retry.
		return c.JSON(statusFor(err), syncResponse{Error: err.Error(), Report: report})
	default:
		return err
	}
}

func (s *Server) checkFence(c echo.Context) error {
	var body fenceCheckBody
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	fence, err := domain.ParseProjectFence(body.Fence)
	if err != nil {
		return err
	}
	res, err := s.svc.CheckFence(domain.Coordinate{Latitude: body.Latitude, Longitude: body.Longitude}, fence)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, res)
}

func (s *Server) status(c echo.Context) error {
	st, err := s.svc.Status(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, st)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrGeoFenceViolation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUnknownRecordKind),
		errors.Is(err, domain.ErrInvalidPayload),
		errors.Is(err, domain.ErrInvalidCoordinates),
		errors.Is(err, domain.ErrInvalidGeoFence):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrBatchRejected), errors.Is(err, domain.ErrUpstreamUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := statusFor(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	}
	if code >= http.StatusInternalServerError && he == nil {
		s.logger.Error(zerr.With(zerr.Wrap(err, "control request failed"), "path", c.Request().URL.Path))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorResponse{Error: msg})
}
