package dispatch

import (
	"context"
	"errors"
	"net/http"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/notification-dispatcher/internal/api/respond"
	"github.com/aliskhannn/notification-dispatcher/internal/model"
	dispatchsvc "github.com/aliskhannn/notification-dispatcher/internal/service/dispatch"
)

// dispatchService runs one dispatch cycle.
//
//go:generate mockgen -source=handler.go -destination=../../../mocks/api/handlers/dispatch/mock.go -package=mocks
type dispatchService interface {
	Run(ctx context.Context) (*model.Report, error)
}

// Handler exposes the dispatcher over HTTP.
type Handler struct {
	service  dispatchService
	setupErr error
}

// NewHandler creates a Handler that triggers runs of s.
func NewHandler(s dispatchService) *Handler {
	return &Handler{service: s}
}

// NewUnavailableHandler creates a Handler for a dispatcher that could not be
// set up. Every trigger fails with err.
func NewUnavailableHandler(err error) *Handler {
	return &Handler{setupErr: err}
}

// Trigger runs one dispatch cycle and responds with its report.
//
// The run is detached from the request context so that a client hanging up
// does not abort a cycle halfway through.
func (h *Handler) Trigger(c *ginext.Context) {
	if h.setupErr != nil {
		zlog.Logger.Error().Err(h.setupErr).Msg("dispatcher is not configured")
		respond.Fail(c.Writer, http.StatusInternalServerError, h.setupErr)
		return
	}

	report, err := h.service.Run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		if errors.Is(err, dispatchsvc.ErrRunInProgress) {
			zlog.Logger.Warn().Msg("dispatch run already in progress")
			respond.Fail(c.Writer, http.StatusConflict, err)
			return
		}

		zlog.Logger.Error().Err(err).Msg("dispatch run failed")
		respond.Fail(c.Writer, http.StatusInternalServerError, err)
		return
	}

	respond.OK(c.Writer, report.Body())
}

// Health reports that the process is serving requests.
func (h *Handler) Health(c *ginext.Context) {
	respond.OK(c.Writer, map[string]string{"status": "ok"})
}
