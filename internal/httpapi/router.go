package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/motionbotdev/motionbot/internal/common"
	"github.com/motionbotdev/motionbot/internal/httpapi/handlers"
	"github.com/motionbotdev/motionbot/internal/httpapi/middleware"
	"github.com/motionbotdev/motionbot/internal/reconcile"
	"github.com/motionbotdev/motionbot/internal/store"
	"github.com/motionbotdev/motionbot/internal/token"
)

// NewRouter wires the public HTTP surface: the generation webhook, the
// scratch media directory, and a health probe. mediaDir may be empty when no
// converter is configured.
func NewRouter(st *store.Store, rec *reconcile.Reconciler, signer *token.Signer, mediaDir string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	h := handlers.NewHandler(st, rec, signer)

	r.GET("/healthz", h.Health)
	r.POST("/api/callback", h.KieCallback)

	if mediaDir != "" {
		r.Static("/media", mediaDir)
	}

	return r
}
