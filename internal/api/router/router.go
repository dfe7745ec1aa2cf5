package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/notification-dispatcher/internal/api/handlers/dispatch"
)

// New builds the HTTP engine. Any POST path triggers a dispatch run so that
// schedulers and cron services can call the dispatcher without a fixed route.
func New(handler *dispatch.Handler) *ginext.Engine {
	e := ginext.New()
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	e.GET("/healthz", handler.Health)
	e.POST("/*path", handler.Trigger)

	return e
}
