package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/motionbotdev/motionbot/internal/common"
	"github.com/motionbotdev/motionbot/internal/reconcile"
	"github.com/motionbotdev/motionbot/internal/store"
	"github.com/motionbotdev/motionbot/internal/token"
)

type Handler struct {
	store      *store.Store
	reconciler *reconcile.Reconciler
	signer     *token.Signer
}

func NewHandler(st *store.Store, rec *reconcile.Reconciler, signer *token.Signer) *Handler {
	return &Handler{store: st, reconciler: rec, signer: signer}
}

func (h *Handler) Health(c *gin.Context) {
	common.OK(c, gin.H{"status": "up"})
}
