package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gradescout/gradescout/internal/updater"
)

type UpdateHandler struct {
	updater *updater.Updater

	// baseCtx bounds triggered cycles so server shutdown stops them.
	baseCtx context.Context
}

func NewUpdateHandler(u *updater.Updater, baseCtx context.Context) *UpdateHandler {
	return &UpdateHandler{updater: u, baseCtx: baseCtx}
}

// TriggerUpdateCycle starts an update cycle in the background and
// returns immediately. A trigger during an in-flight cycle is logged
// and dropped rather than queued.
func (h *UpdateHandler) TriggerUpdateCycle(c *gin.Context) {
	go func() {
		err := h.updater.RunCycle(h.baseCtx)
		switch {
		case errors.Is(err, updater.ErrCycleRunning):
			log.Printf("api: update cycle already running, trigger ignored")
		case err != nil:
			log.Printf("api: triggered update cycle failed: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"status":  "success",
		"message": "Update cycle initiated successfully.",
	})
}
