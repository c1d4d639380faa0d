package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health, reporting job-queue pool health alongside
// the bare liveness check the teacher's handler returns.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "queue": s.pool.Health()})
}

// CancelTask handles DELETE /tasks/{id}: best-effort cancellation of a
// still-running job on this pod (pkg/jobqueue.WorkerPool.CancelJob only
// reaches jobs claimed by a worker in this process).
func (s *Server) CancelTask(c *gin.Context) {
	taskID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	cancelled := s.pool.CancelJob(taskID)
	c.JSON(http.StatusOK, okBody(gin.H{"cancelled": cancelled}))
}
