package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/seocore/seocore/pkg/models"
)

// enqueue creates a pending Job row for domainID and returns it, the
// shared "returns task id" contract behind every spec.md §6 enqueue
// endpoint.
func (s *Server) enqueue(c *gin.Context, domainID uint, jobType models.JobType) (*models.Job, bool) {
	var domain models.Domain
	if err := s.db.WithContext(c.Request.Context()).First(&domain, domainID).Error; err != nil {
		c.JSON(http.StatusNotFound, errorBody("domain_not_found", err.Error()))
		return nil, false
	}

	job := models.Job{Type: jobType, Status: models.JobStatusPending, DomainID: &domainID}
	if err := s.db.WithContext(c.Request.Context()).Create(&job).Error; err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("enqueue_failed", err.Error()))
		return nil, false
	}
	return &job, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_id", "invalid "+name+" parameter"))
		return 0, false
	}
	return uint(id), true
}

// RefreshDomain handles POST /domains/{id}/refresh: enqueue full-scan.
func (s *Server) RefreshDomain(c *gin.Context) {
	domainID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	job, ok := s.enqueue(c, domainID, models.JobTypeFullRefresh)
	if !ok {
		return
	}
	c.JSON(http.StatusAccepted, okBody(gin.H{"task_id": job.ID}))
}

// RefreshDomainGSC handles POST /domains/{id}/refresh-gsc: enqueue
// lightweight scan.
func (s *Server) RefreshDomainGSC(c *gin.Context) {
	domainID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	job, ok := s.enqueue(c, domainID, models.JobTypeGSCRefresh)
	if !ok {
		return
	}
	c.JSON(http.StatusAccepted, okBody(gin.H{"task_id": job.ID}))
}

// AIAnalyzeDomain handles POST /domains/{id}/ai-analyze: enqueue AI analysis.
func (s *Server) AIAnalyzeDomain(c *gin.Context) {
	domainID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	job, ok := s.enqueue(c, domainID, models.JobTypeAIAnalysis)
	if !ok {
		return
	}
	c.JSON(http.StatusAccepted, okBody(gin.H{"task_id": job.ID}))
}
