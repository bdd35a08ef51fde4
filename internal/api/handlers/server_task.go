package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "vmshift.io/vmshift/internal/pkg/errors"
)

// GetTask handles GET /api/v1/tasks/:id — job state merged with the
// progress rows the workers write.
func (s *Server) GetTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	status, err := s.queue.GetStatus(c.Request.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			_ = c.Error(apperrors.NotFound(apperrors.CodeTaskNotFound,
				"Task "+strconv.FormatInt(id, 10)+" not found"))
			return
		}
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// RevokeTask handles DELETE /api/v1/tasks/:id. With terminate=true the job is
// cancelled even if it is already running.
func (s *Server) RevokeTask(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	terminate := c.Query("terminate") == "true"

	if err := s.queue.Revoke(c.Request.Context(), id, terminate); err != nil {
		if apperrors.IsNotFound(err) {
			_ = c.Error(apperrors.NotFound(apperrors.CodeTaskNotFound,
				"Task "+strconv.FormatInt(id, 10)+" not found"))
			return
		}
		_ = c.Error(err)
		return
	}

	message := "Task revoked"
	if terminate {
		message = "Task terminated"
	}
	c.JSON(http.StatusOK, gin.H{
		"task_id": id,
		"message": message,
	})
}

// ListTasks handles GET /api/v1/tasks — active, scheduled and reserved jobs
// grouped per worker or queue.
func (s *Server) ListTasks(c *gin.Context) {
	active, err := s.queue.ListActive(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, active)
}

// WorkerStatus handles GET /api/v1/tasks/workers/status.
func (s *Server) WorkerStatus(c *gin.Context) {
	report, err := s.queue.WorkerStatus(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}
