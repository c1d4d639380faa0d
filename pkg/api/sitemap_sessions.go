package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seocore/seocore/pkg/models"
)

// OpenSitemapSession handles POST /domains/{id}/sitemap/sessions.
func (s *Server) OpenSitemapSession(c *gin.Context) {
	domainID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	session, err := s.sitemapEditor.OpenSession(c.Request.Context(), domainID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("sitemap_generation", err.Error()))
		return
	}
	c.JSON(http.StatusCreated, okBody(gin.H{"session": session}))
}

// addEntryRequest is the add-entry request body.
type addEntryRequest struct {
	DomainID   uint    `json:"domain_id" binding:"required"`
	PageID     *uint   `json:"page_id"`
	Loc        string  `json:"loc" binding:"required"`
	LastMod    *string `json:"last_mod"`
	ChangeFreq string  `json:"change_freq"`
	Priority   float64 `json:"priority"`
}

// AddSitemapEntry handles POST /sitemap/sessions/{session_id}/entries.
func (s *Server) AddSitemapEntry(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "session_id")
	if !ok {
		return
	}
	var req addEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}

	entry := models.SitemapEntry{
		DomainID:   req.DomainID,
		PageID:     req.PageID,
		Loc:        req.Loc,
		ChangeFreq: models.ChangeFreq(req.ChangeFreq),
		Priority:   req.Priority,
	}
	created, err := s.sitemapEditor.AddEntry(c.Request.Context(), sessionID, entry)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("sitemap_generation", err.Error()))
		return
	}
	c.JSON(http.StatusCreated, okBody(gin.H{"entry": created}))
}

// UpdateSitemapEntry handles PATCH /sitemap/sessions/{session_id}/entries/{entry_id}.
func (s *Server) UpdateSitemapEntry(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "session_id")
	if !ok {
		return
	}
	entryID, ok := parseIDParam(c, "entry_id")
	if !ok {
		return
	}

	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}

	updated, err := s.sitemapEditor.UpdateEntry(c.Request.Context(), sessionID, entryID, fields)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("sitemap_generation", err.Error()))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"entry": updated}))
}

// RemoveSitemapEntry handles DELETE /sitemap/sessions/{session_id}/entries/{entry_id}.
func (s *Server) RemoveSitemapEntry(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "session_id")
	if !ok {
		return
	}
	entryID, ok := parseIDParam(c, "entry_id")
	if !ok {
		return
	}
	if err := s.sitemapEditor.RemoveEntry(c.Request.Context(), sessionID, entryID); err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("sitemap_generation", err.Error()))
		return
	}
	c.JSON(http.StatusOK, okBody(nil))
}

type sessionDomainRequest struct {
	DomainID uint `json:"domain_id" binding:"required"`
}

// PreviewSitemapSession handles POST /sitemap/sessions/{session_id}/preview.
func (s *Server) PreviewSitemapSession(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "session_id")
	if !ok {
		return
	}
	var req sessionDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}
	rendered, err := s.sitemapEditor.Preview(c.Request.Context(), sessionID, req.DomainID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody("sitemap_generation", err.Error()))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"document": rendered}))
}

// ValidateSitemapSession handles POST /sitemap/sessions/{session_id}/validate.
func (s *Server) ValidateSitemapSession(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "session_id")
	if !ok {
		return
	}
	var req sessionDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}
	if err := s.sitemapEditor.Validate(c.Request.Context(), sessionID, req.DomainID); err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody("sitemap_generation", err.Error()))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"valid": true}))
}

// DeploySitemapSession handles POST /sitemap/sessions/{session_id}/deploy.
func (s *Server) DeploySitemapSession(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "session_id")
	if !ok {
		return
	}
	var req sessionDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_request", err.Error()))
		return
	}
	session, err := s.sitemapEditor.Deploy(c.Request.Context(), sessionID, req.DomainID)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody("sitemap_deployment", err.Error()))
		return
	}
	c.JSON(http.StatusOK, okBody(gin.H{"session": session}))
}
