package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AutoFixIssue handles POST /issues/{id}/auto-fix (spec.md §6, §4.9).
func (s *Server) AutoFixIssue(c *gin.Context) {
	issueID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fix, err := s.fixer.ApplyFix(c.Request.Context(), issueID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody("issue_not_fixable", err.Error()))
		return
	}

	c.JSON(http.StatusOK, okBody(gin.H{
		"fix_history_id": fix.ID,
		"fixed_value":    fix.FixedValue,
		"explanation":    fix.LLMExplanation,
		"confidence":     fix.LLMConfidence,
	}))
}
