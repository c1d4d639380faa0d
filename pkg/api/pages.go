package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AnalyzePage handles GET /pages/{id}/analyze and
// GET /pages/{id}/analyze?verify=1 (spec.md §6, §4.5).
func (s *Server) AnalyzePage(c *gin.Context) {
	pageID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	verify := c.Query("verify") == "1" || c.Query("verify") == "true"

	report, err := s.analyzePage(c.Request.Context(), pageID, verify)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("page_analysis_error", err.Error()))
		return
	}

	c.JSON(http.StatusOK, okBody(gin.H{
		"health_score":       report.HealthScore,
		"potential_gain":     report.PotentialGain,
		"fix_time_minutes":   report.FixTimeMinutes,
		"issues":             report.Issues,
	}))
}
