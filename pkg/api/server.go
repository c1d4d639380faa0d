// Package api implements the HTTP surface from spec.md §6: per-domain
// refresh/analysis triggers, task polling, page analysis, issue/
// suggestion application, sitemap edit sessions, and the domain
// analytics overview. Grounded on the teacher's Server/NewServer/
// gin.Context handler convention (pkg/api/handlers.go).
package api

import (
	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/aianalysis"
	"github.com/seocore/seocore/pkg/aifixer"
	"github.com/seocore/seocore/pkg/detector"
	"github.com/seocore/seocore/pkg/effectiveness"
	"github.com/seocore/seocore/pkg/jobqueue"
	"github.com/seocore/seocore/pkg/refresh"
	"github.com/seocore/seocore/pkg/searchconsole"
	"github.com/seocore/seocore/pkg/sitemap"
	"github.com/seocore/seocore/pkg/vectorstore"

	"github.com/gin-gonic/gin"
)

// Server holds every service the HTTP handlers dispatch to. Long-running
// work (refresh, GSC sync, AI analysis) is enqueued onto the job queue
// and tracked via GET /tasks/{id}; short request/response work (page
// analyze, sitemap edit-session CRUD) runs inline.
type Server struct {
	db            *gorm.DB
	pool          *jobqueue.WorkerPool
	orchestrator  *refresh.Orchestrator
	analysis      *aianalysis.Engine
	fixer         *aifixer.Fixer
	detector      *detector.Detector
	tracker       *effectiveness.Tracker
	sitemapEditor *sitemap.Editor
	searchConsole *searchconsole.Client // may be nil if no domain has GSC configured
	vectorStore   *vectorstore.Store
	embedder      vectorstore.Embedder
}

// NewServer builds a Server from its service dependencies. searchConsole
// may be nil.
func NewServer(
	db *gorm.DB,
	pool *jobqueue.WorkerPool,
	orchestrator *refresh.Orchestrator,
	analysis *aianalysis.Engine,
	fixer *aifixer.Fixer,
	det *detector.Detector,
	tracker *effectiveness.Tracker,
	sitemapEditor *sitemap.Editor,
	searchConsole *searchconsole.Client,
	vectorStore *vectorstore.Store,
	embedder vectorstore.Embedder,
) *Server {
	return &Server{
		db:            db,
		pool:          pool,
		orchestrator:  orchestrator,
		analysis:      analysis,
		fixer:         fixer,
		detector:      det,
		tracker:       tracker,
		sitemapEditor: sitemapEditor,
		searchConsole: searchConsole,
		vectorStore:   vectorStore,
		embedder:      embedder,
	}
}

// SetPool attaches the worker pool once it has been constructed from
// Executors(), breaking the construction cycle (the pool needs the
// executor map, which is a method on Server).
func (s *Server) SetPool(pool *jobqueue.WorkerPool) {
	s.pool = pool
}

// RegisterRoutes wires every handler from spec.md §6 onto router.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.POST("/domains/:id/refresh", s.RefreshDomain)
	router.POST("/domains/:id/refresh-gsc", s.RefreshDomainGSC)
	router.POST("/domains/:id/ai-analyze", s.AIAnalyzeDomain)

	router.GET("/health", s.Health)

	router.GET("/tasks/:id", s.GetTask)
	router.DELETE("/tasks/:id", s.CancelTask)

	router.GET("/pages/:id/analyze", s.AnalyzePage)

	router.POST("/issues/:id/auto-fix", s.AutoFixIssue)

	router.POST("/suggestions/:id/apply", s.ApplySuggestion)

	router.GET("/analytics/domain_overview", s.DomainOverview)

	router.POST("/domains/:id/sitemap/sessions", s.OpenSitemapSession)
	router.POST("/sitemap/sessions/:session_id/entries", s.AddSitemapEntry)
	router.PATCH("/sitemap/sessions/:session_id/entries/:entry_id", s.UpdateSitemapEntry)
	router.DELETE("/sitemap/sessions/:session_id/entries/:entry_id", s.RemoveSitemapEntry)
	router.POST("/sitemap/sessions/:session_id/preview", s.PreviewSitemapSession)
	router.POST("/sitemap/sessions/:session_id/validate", s.ValidateSitemapSession)
	router.POST("/sitemap/sessions/:session_id/deploy", s.DeploySitemapSession)
}
