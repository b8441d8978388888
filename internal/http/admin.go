package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	cleanup CleanupTrigger
}

func NewAdminController(cleanup CleanupTrigger) *AdminController {
	return &AdminController{cleanup: cleanup}
}

// Cleanup enqueues a retention cleanup and returns the task id.
func (ac *AdminController) Cleanup(c *gin.Context) {
	if ac.cleanup == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task queue is disabled", Code: "tasks_disabled"})
		return
	}

	taskID, err := ac.cleanup.RunNow(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "enqueue cleanup")
		return
	}

	respondAccepted(c, "Cleanup queued", gin.H{"task_id": taskID})
}
