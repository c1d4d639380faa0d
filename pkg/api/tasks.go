package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seocore/seocore/pkg/models"
)

// GetTask handles GET /tasks/{id}: {status, percent, message, result?}
// (spec.md §6).
func (s *Server) GetTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var job models.Job
	if err := s.db.WithContext(c.Request.Context()).First(&job, taskID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorBody("task_not_found", err.Error()))
		return
	}

	body := gin.H{
		"id":      job.ID,
		"status":  job.Status,
		"percent": job.Percent,
		"message": job.Message,
	}
	if job.Status == models.JobStatusCompleted {
		body["result"] = job.Result
	}
	if job.Status == models.JobStatusFailed {
		body["message"] = job.Error
	}
	c.JSON(http.StatusOK, okBody(body))
}
