package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/seocore/seocore/pkg/aianalysis"
	"github.com/seocore/seocore/pkg/detector"
	"github.com/seocore/seocore/pkg/jobqueue"
	"github.com/seocore/seocore/pkg/models"
	"github.com/seocore/seocore/pkg/refresh"
)

// executorFunc adapts a plain function to jobqueue.JobExecutor, the same
// shape http.HandlerFunc gives a plain function over http.Handler.
type executorFunc func(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult

func (f executorFunc) Execute(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	return f(ctx, job, progress)
}

func completed(result map[string]any) *jobqueue.ExecutionResult {
	return &jobqueue.ExecutionResult{Status: models.JobStatusCompleted, Result: result}
}

func failed(err error) *jobqueue.ExecutionResult {
	return &jobqueue.ExecutionResult{Status: models.JobStatusFailed, Error: err}
}

// Executors builds the map.JobExecutor registered with jobqueue.NewWorkerPool,
// one entry per models.JobType the scheduler (pkg/scheduler) or the HTTP
// API enqueues (spec.md §4.12, §6). Called from cmd/seocored's wiring
// before the worker pool (and therefore the Server's own pool field) exists.
func (s *Server) Executors() map[models.JobType]jobqueue.JobExecutor {
	return map[models.JobType]jobqueue.JobExecutor{
		models.JobTypeFullRefresh:       executorFunc(s.runFullRefresh),
		models.JobTypeGSCRefresh:        executorFunc(s.runGSCRefresh),
		models.JobTypeAIAnalysis:        executorFunc(s.runAIAnalysis),
		models.JobTypeVectorSync:        executorFunc(s.runVectorSync),
		models.JobTypeEffectivenessEval: executorFunc(s.runEffectivenessEval),
		models.JobTypeDailySnapshot:     executorFunc(s.runDailySnapshot),
		models.JobTypePageAnalyze:       executorFunc(s.runPageAnalyze),
		models.JobTypeIssueAutoFix:      executorFunc(s.runIssueAutoFix),
		models.JobTypeSuggestionApply:   executorFunc(s.runSuggestionApply),
		models.JobTypeSitemapDeploy:     executorFunc(s.runSitemapDeploy),
	}
}

func (s *Server) runFullRefresh(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	if job.DomainID == nil {
		return failed(fmt.Errorf("full_refresh job %d has no domain_id", job.ID))
	}
	err := s.orchestrator.Run(ctx, *job.DomainID, adaptRefreshProgress(progress))
	if err != nil {
		return failed(err)
	}
	return completed(map[string]any{"domain_id": *job.DomainID})
}

func (s *Server) runGSCRefresh(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	if job.DomainID == nil {
		return failed(fmt.Errorf("gsc_refresh job %d has no domain_id", job.ID))
	}
	err := s.orchestrator.RunGSCOnly(ctx, *job.DomainID, adaptRefreshProgress(progress))
	if err != nil {
		return failed(err)
	}
	return completed(map[string]any{"domain_id": *job.DomainID})
}

func (s *Server) runAIAnalysis(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	if job.DomainID == nil {
		return failed(fmt.Errorf("ai_analysis job %d has no domain_id", job.ID))
	}
	result, err := s.analysis.AnalyzeDomain(ctx, *job.DomainID, adaptAnalysisProgress(progress))
	if err != nil {
		return failed(err)
	}
	return completed(map[string]any{
		"suggestion_count": len(result.Suggestions),
		"strategy_summary": result.StrategySummary,
		"fallback_used":    result.FallbackUsed,
	})
}

// runVectorSync re-embeds a domain's vector-store collections. The
// scheduler fires this once per active domain even though SyncDomain
// itself is already domain-scoped, so nothing here needs its own
// domain filtering beyond the job's own DomainID.
func (s *Server) runVectorSync(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	if job.DomainID == nil {
		return failed(fmt.Errorf("vector_sync job %d has no domain_id", job.ID))
	}
	var domain models.Domain
	if err := s.db.WithContext(ctx).First(&domain, *job.DomainID).Error; err != nil {
		return failed(fmt.Errorf("loading domain: %w", err))
	}
	syncResult := s.vectorStore.SyncDomain(ctx, s.db, s.embedder, &domain)
	progress(models.Progress{Percent: 100, Message: "vector sync complete"})
	return completed(map[string]any{
		"counts": syncResult.Counts,
		"errors": len(syncResult.Errors),
	})
}

// runEffectivenessEval finalizes every suggestion whose tracking window
// has elapsed for this job's domain. Tracker.DueForFinalize is global
// (not domain-scoped), so results are filtered to job.DomainID here —
// scheduler.fire enqueues one of these jobs per active domain.
func (s *Server) runEffectivenessEval(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	ids, err := s.tracker.DueForFinalize(ctx)
	if err != nil {
		return failed(err)
	}
	finalized := 0
	for _, id := range ids {
		var sug models.AISuggestion
		if err := s.db.WithContext(ctx).First(&sug, id).Error; err != nil {
			continue
		}
		if job.DomainID != nil && sug.DomainID != *job.DomainID {
			continue
		}
		if _, err := s.tracker.Finalize(ctx, id); err == nil {
			finalized++
		}
	}
	progress(models.Progress{Percent: 100, Message: "effectiveness evaluation complete"})
	return completed(map[string]any{"finalized": finalized})
}

// runDailySnapshot writes one SuggestionDailySnapshot per tracking
// suggestion globally; Tracker.DailySnapshot's unique (suggestion,date)
// index makes repeat calls across the per-domain jobs the scheduler
// fires idempotent no-ops for suggestions outside this job's domain.
func (s *Server) runDailySnapshot(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	written, err := s.tracker.DailySnapshot(ctx)
	if err != nil {
		return failed(err)
	}
	progress(models.Progress{Percent: 100, Message: "daily snapshot complete"})
	return completed(map[string]any{"snapshots_written": written})
}

func (s *Server) runPageAnalyze(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	if job.TargetID == nil {
		return failed(fmt.Errorf("page_analyze job %d has no target_id", job.ID))
	}
	verify, _ := job.Params["verify"].(bool)
	report, err := s.analyzePage(ctx, *job.TargetID, verify)
	if err != nil {
		return failed(err)
	}
	progress(models.Progress{Percent: 100, Message: "analysis complete"})
	return completed(map[string]any{
		"health_score":    report.HealthScore,
		"potential_gain":  report.PotentialGain,
		"fix_time_minutes": report.FixTimeMinutes,
		"issue_count":     len(report.Issues),
	})
}

func (s *Server) runIssueAutoFix(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	if job.TargetID == nil {
		return failed(fmt.Errorf("issue_auto_fix job %d has no target_id", job.ID))
	}
	fix, err := s.fixer.ApplyFix(ctx, *job.TargetID)
	if err != nil {
		return failed(err)
	}
	progress(models.Progress{Percent: 100, Message: "fix applied"})
	return completed(map[string]any{"fix_history_id": fix.ID, "fixed_value": fix.FixedValue})
}

func (s *Server) runSuggestionApply(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	if job.TargetID == nil {
		return failed(fmt.Errorf("suggestion_apply job %d has no target_id", job.ID))
	}
	sug, err := s.fixer.ApplySuggestion(ctx, *job.TargetID)
	if err != nil {
		return failed(err)
	}
	if deploy, _ := job.Params["deploy_to_git"].(bool); deploy && s.sitemapEditor != nil {
		if _, derr := s.sitemapEditor.RegenerateAndDeploy(ctx, sug.DomainID); derr != nil {
			return failed(fmt.Errorf("suggestion applied but deploy failed: %w", derr))
		}
	}
	progress(models.Progress{Percent: 100, Message: "suggestion applied"})
	return completed(map[string]any{"suggestion_id": sug.ID, "status": string(sug.Status)})
}

func (s *Server) runSitemapDeploy(ctx context.Context, job *models.Job, progress models.ProgressFunc) *jobqueue.ExecutionResult {
	if job.TargetID == nil || job.DomainID == nil {
		return failed(fmt.Errorf("sitemap_deploy job %d needs both domain_id and target_id (session id)", job.ID))
	}
	session, err := s.sitemapEditor.Deploy(ctx, *job.TargetID, *job.DomainID)
	if err != nil {
		return failed(err)
	}
	progress(models.Progress{Percent: 100, Message: "sitemap deployed"})
	return completed(map[string]any{"session_id": session.ID, "commit": session.DeploymentCommit})
}

func adaptRefreshProgress(progress models.ProgressFunc) refresh.ProgressFunc {
	return func(p refresh.Progress) {
		progress(models.Progress{Percent: p.Percent, Message: string(p.Stage) + ": " + p.Message})
	}
}

func adaptAnalysisProgress(progress models.ProgressFunc) aianalysis.ProgressFunc {
	return func(step string, percent int) {
		progress(models.Progress{Percent: percent, Message: step})
	}
}

// fetchPageHTML retrieves a page's live HTML for detector.Analyze. No
// existing package exposes a raw-fetch method (pkg/discovery only
// returns URL drafts, pkg/collector only runs Lighthouse), so this is
// the one place pkg/api reaches for net/http directly, matching the
// same direct-client pattern pkg/discovery itself uses for its own
// sitemap/crawl fetches.
func fetchPageHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	client := &http.Client{Timeout: 20 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetching %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	return string(body), nil
}

// analyzePage is the shared C5 entry point for both GET /pages/{id}/analyze
// and the page_analyze job executor: fetch live HTML, run the detector,
// persist (or verify, when verify is set) the resulting issue set.
func (s *Server) analyzePage(ctx context.Context, pageID uint, verify bool) (*detector.Report, error) {
	var page models.Page
	if err := s.db.WithContext(ctx).First(&page, pageID).Error; err != nil {
		return nil, fmt.Errorf("loading page %d: %w", pageID, err)
	}

	html, err := fetchPageHTML(ctx, page.URL)
	if err != nil {
		return nil, err
	}

	var snapshot *models.SEOMetricsSnapshot
	var latest models.SEOMetricsSnapshot
	if err := s.db.WithContext(ctx).Where("page_id = ?", pageID).Order("timestamp DESC").First(&latest).Error; err == nil {
		snapshot = &latest
	}

	issues := s.detector.Analyze(html, snapshot)

	if verify {
		if err := detector.VerifyDeployed(s.db.WithContext(ctx), pageID, issues); err != nil {
			return nil, fmt.Errorf("verifying deployed issues: %w", err)
		}
	}
	if err := detector.Persist(s.db.WithContext(ctx), pageID, issues); err != nil {
		return nil, fmt.Errorf("persisting issues: %w", err)
	}

	report := detector.Score(issues)
	s.db.WithContext(ctx).Model(&page).Update("last_analyzed_at", time.Now())
	return &report, nil
}
