package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ApplySuggestion handles POST /suggestions/{id}/apply?deploy_to_git=bool
// (spec.md §6, §4.9, §4.11). deploy_to_git is a caller-controlled
// opt-in: aifixer.ApplySuggestion's structure-suggestion path already
// deploys unconditionally whenever a SitemapDeployer is configured (it
// has no file content to hold back), but the field/keyword/internal_link/
// bulk_fix paths never touch Git on their own, so this flag gives the
// caller an explicit way to push those through the same sitemap deploy
// right after applying. Baseline GSC metrics are captured immediately
// after a successful apply, starting the §4.11 tracking window; a
// failure there doesn't undo the apply — it is logged and surfaced in
// the response so the caller can retry Baseline out of band.
func (s *Server) ApplySuggestion(c *gin.Context) {
	suggestionID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	deployToGit := c.Query("deploy_to_git") == "true" || c.Query("deploy_to_git") == "1"

	ctx := c.Request.Context()
	sug, err := s.fixer.ApplySuggestion(ctx, suggestionID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody("fix_generation", err.Error()))
		return
	}

	body := gin.H{"suggestion_id": sug.ID, "status": sug.Status}

	if deployToGit && s.sitemapEditor != nil {
		if _, derr := s.sitemapEditor.RegenerateAndDeploy(ctx, sug.DomainID); derr != nil {
			slog.Error("suggestion applied but sitemap deploy failed", "suggestion_id", sug.ID, "error", derr)
			body["deploy_error"] = derr.Error()
		} else {
			body["deployed"] = true
		}
	}

	if err := s.tracker.Baseline(ctx, sug.ID); err != nil {
		slog.Warn("failed to capture baseline metrics after apply", "suggestion_id", sug.ID, "error", err)
		body["baseline_warning"] = err.Error()
	}

	c.JSON(http.StatusOK, okBody(body))
}
