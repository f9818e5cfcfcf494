package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/motionbotdev/motionbot/internal/common"
	"github.com/motionbotdev/motionbot/internal/kie"
	"github.com/motionbotdev/motionbot/internal/logging"
)

var log = logging.Component("httpapi")

type callbackPayload struct {
	TaskID     string `json:"taskId"`
	State      string `json:"state"`
	ResultJSON string `json:"resultJson"`
	FailCode   string `json:"failCode"`
	FailMsg    string `json:"failMsg"`
}

// Some generation services nest the task fields under data in the webhook
// body the same way the read API does.
type callbackEnvelope struct {
	callbackPayload
	Data *callbackPayload `json:"data"`
}

// KieCallback receives completion webhooks from the generation service and
// feeds them to the reconciler. Idempotent: a repeat for an already-resolved
// task is acknowledged without side effects.
func (h *Handler) KieCallback(c *gin.Context) {
	if _, err := h.signer.Verify(c.Query("token")); err != nil {
		common.Fail(c, http.StatusUnauthorized, 40100, "invalid token")
		return
	}

	var env callbackEnvelope
	if err := c.ShouldBindJSON(&env); err != nil {
		common.Fail(c, http.StatusBadRequest, 40000, "malformed body")
		return
	}
	payload := env.callbackPayload
	if env.Data != nil && env.Data.TaskID != "" {
		payload = *env.Data
	}

	if payload.TaskID == "" {
		common.Fail(c, http.StatusBadRequest, 40001, "missing taskId")
		return
	}

	task, err := h.store.GetTask(c.Request.Context(), payload.TaskID)
	if err != nil {
		log.WithError(err).WithField("task_id", payload.TaskID).Error("load task")
		common.Fail(c, http.StatusInternalServerError, 50000, "database error")
		return
	}
	if task == nil {
		common.Fail(c, http.StatusNotFound, 40400, "task not found")
		return
	}

	won, err := h.reconciler.HandleCallback(c.Request.Context(), &kie.Status{
		TaskID:     payload.TaskID,
		State:      payload.State,
		ResultJSON: payload.ResultJSON,
		FailCode:   payload.FailCode,
		FailMsg:    payload.FailMsg,
	})
	if err != nil {
		log.WithError(err).WithField("task_id", payload.TaskID).Error("handle callback")
		common.Fail(c, http.StatusInternalServerError, 50001, "callback processing failed")
		return
	}

	log.WithField("task_id", payload.TaskID).
		WithField("state", payload.State).
		WithField("won", won).
		Info("callback processed")
	common.OK(c, gin.H{"success": true})
}
