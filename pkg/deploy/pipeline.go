package deploy

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/config"
	"github.com/seocore/seocore/pkg/masking"
	"github.com/seocore/seocore/pkg/models"
)

const defaultCloneDepth = 1

// FileFix is one page's pending title/description edit, grouped by
// page before a deploy (spec.md §4.10 step 3).
type FileFix struct {
	PageID      uint
	PagePath    string
	Title       string
	Description string
}

// DeployResult is the outcome of one deploy run. A zero-change run is
// reported as Success=false with no error, per spec.md §4.10 step 4 —
// it is a no-op, not a failure.
type DeployResult struct {
	Success      bool
	FilesChanged int
	CommitHash   string
	Message      string
}

// Pipeline clones a domain's Git repository, patches pending page
// fixes into its source files, and pushes the result (spec.md §4.10).
type Pipeline struct {
	db       *gorm.DB
	cfg      *config.GitConfig
	registry *Registry
	masker   *masking.Service
}

// NewPipeline builds a Pipeline with the default NextJS + static-HTML
// handler registry. Clone and push errors from go-git can echo the
// authenticated remote URL verbatim, so every error that reaches the
// database or a log line is passed through masker first.
func NewPipeline(db *gorm.DB, cfg *config.GitConfig) *Pipeline {
	return &Pipeline{
		db:       db,
		cfg:      cfg,
		registry: NewRegistry(NextJSHandler{}, StaticHTMLHandler{}),
		masker:   masking.NewService(),
	}
}

// Deploy satisfies pkg/aifixer.SiteDeployer: it loads every applied,
// not-yet-deployed title/description fix for domainID, deploys them,
// and marks the fix-history rows deployed on success. A zero-change
// result is logged, not returned as an error.
func (p *Pipeline) Deploy(ctx context.Context, domainID uint) error {
	var domain models.Domain
	if err := p.db.First(&domain, domainID).Error; err != nil {
		return fmt.Errorf("deploy: loading domain: %w", err)
	}

	type fixRow struct {
		models.AIFixHistory
		PagePath string
	}
	var rows []fixRow
	if err := p.db.Table("ai_fix_histories").
		Select("ai_fix_histories.*, pages.path as page_path").
		Joins("JOIN pages ON pages.id = ai_fix_histories.page_id").
		Where("pages.domain_id = ? AND ai_fix_histories.status = ? AND ai_fix_histories.issue_type IN ?",
			domainID, models.FixStatusApplied,
			[]models.IssueType{
				models.IssueTitleMissing, models.IssueTitleTooShort, models.IssueTitleTooLong,
				models.IssueDescriptionMissing, models.IssueDescriptionTooShort, models.IssueDescriptionTooLong,
			}).
		Find(&rows).Error; err != nil {
		return fmt.Errorf("deploy: loading pending fixes: %w", err)
	}
	if len(rows) == 0 {
		return nil
	}

	byPage := make(map[uint]*FileFix)
	var fixIDs []uint
	for _, r := range rows {
		fix, ok := byPage[r.PageID]
		if !ok {
			fix = &FileFix{PageID: r.PageID, PagePath: r.PagePath}
			byPage[r.PageID] = fix
		}
		switch r.IssueType {
		case models.IssueTitleMissing, models.IssueTitleTooShort, models.IssueTitleTooLong:
			fix.Title = r.FixedValue
		case models.IssueDescriptionMissing, models.IssueDescriptionTooShort, models.IssueDescriptionTooLong:
			fix.Description = r.FixedValue
		}
		fixIDs = append(fixIDs, r.ID)
	}
	fixes := make([]FileFix, 0, len(byPage))
	for _, f := range byPage {
		fixes = append(fixes, *f)
	}

	result, err := p.DeployFixes(ctx, &domain, fixes)
	if err != nil {
		p.db.Model(&domain).Updates(map[string]any{
			"deployment_status": models.DeploymentStatusFailed,
			"deployment_error":  p.masker.Redact(err.Error()),
		})
		return err
	}
	if !result.Success {
		return nil
	}

	now := time.Now()
	return p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.AIFixHistory{}).Where("id IN ?", fixIDs).Updates(map[string]any{
			"status":            models.FixStatusDeployed,
			"deployed_at":       &now,
			"deployment_commit": result.CommitHash,
		}).Error; err != nil {
			return err
		}
		return tx.Model(&domain).Updates(map[string]any{
			"last_deployed_at":  &now,
			"deployment_status": models.DeploymentStatusSuccess,
			"deployment_error":  "",
		}).Error
	})
}

// DeployFixes runs the full clone/detect/patch/commit/push algorithm
// from spec.md §4.10 against domain's configured repository.
func (p *Pipeline) DeployFixes(ctx context.Context, domain *models.Domain, fixes []FileFix) (*DeployResult, error) {
	if !domain.GitConfig.Enabled || domain.GitConfig.RepositoryURL == "" {
		return nil, &GitConfigurationError{Reason: fmt.Sprintf("domain %d has no Git repository configured", domain.ID)}
	}
	if len(fixes) == 0 {
		return &DeployResult{Success: false, Message: "no pending fixes"}, nil
	}

	repo, workDir, cleanup, err := p.cloneDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	targetRoot := workDir
	if tp := strings.Trim(domain.GitConfig.TargetPath, "/"); tp != "" {
		targetRoot = workDir + "/" + tp
	}

	handler, err := p.registry.Detect(targetRoot)
	if err != nil {
		return nil, err
	}

	filesChanged := 0
	for _, fix := range fixes {
		file, found := handler.ResolveFile(targetRoot, fix.PagePath)
		if !found {
			continue
		}
		changed, err := handler.Patch(file, fix.Title, fix.Description)
		if err != nil {
			return nil, err
		}
		if changed {
			filesChanged++
		}
	}

	if filesChanged == 0 {
		return &DeployResult{Success: false, Message: "no files changed"}, nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("deploy: opening worktree: %w", err)
	}
	if _, err := worktree.Add("."); err != nil {
		return nil, fmt.Errorf("deploy: staging changes: %w", err)
	}

	message := fmt.Sprintf("seocore: update SEO metadata on %d page(s) at %s", filesChanged, time.Now().UTC().Format(time.RFC3339))
	commitHash, err := p.commitAndPush(ctx, repo, message)
	if err != nil {
		return nil, err
	}

	return &DeployResult{
		Success:      true,
		FilesChanged: filesChanged,
		CommitHash:   commitHash,
		Message:      message,
	}, nil
}

// DeployFile writes content to relativePath under the domain's
// target_path and pushes it as a single-file commit — the parallel
// deploy path spec.md §4.10 describes for the sitemap (pkg/sitemap
// calls this with a rendered sitemap.xml).
func (p *Pipeline) DeployFile(ctx context.Context, domain *models.Domain, relativePath string, content []byte, message string) (*DeployResult, error) {
	if !domain.GitConfig.Enabled || domain.GitConfig.RepositoryURL == "" {
		return nil, &GitConfigurationError{Reason: fmt.Sprintf("domain %d has no Git repository configured", domain.ID)}
	}

	repo, workDir, cleanup, err := p.cloneDomain(ctx, domain)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	targetRoot := workDir
	if tp := strings.Trim(domain.GitConfig.TargetPath, "/"); tp != "" {
		targetRoot = workDir + "/" + tp
	}
	fullPath := targetRoot + "/" + strings.TrimPrefix(relativePath, "/")
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return nil, fmt.Errorf("deploy: creating target directory: %w", err)
	}
	if err := os.WriteFile(fullPath, content, 0o644); err != nil {
		return nil, &MetadataUpdateError{Path: fullPath, Err: err}
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("deploy: opening worktree: %w", err)
	}
	if _, err := worktree.Add("."); err != nil {
		return nil, fmt.Errorf("deploy: staging changes: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("deploy: checking worktree status: %w", err)
	}
	if status.IsClean() {
		return &DeployResult{Success: false, Message: "no changes"}, nil
	}

	commitHash, err := p.commitAndPush(ctx, repo, message)
	if err != nil {
		return nil, err
	}
	return &DeployResult{Success: true, FilesChanged: 1, CommitHash: commitHash, Message: message}, nil
}

// cloneDomain shallow-clones domain's configured branch into a fresh
// temp workspace (spec.md §4.10 step 1), returning a cleanup func the
// caller must defer.
func (p *Pipeline) cloneDomain(ctx context.Context, domain *models.Domain) (*git.Repository, string, func(), error) {
	branch := domain.GitConfig.Branch
	if branch == "" {
		branch = p.cfg.DefaultBranch
	}
	if branch == "" {
		branch = "main"
	}

	token := ""
	if domain.GitConfig.CredentialRef != "" {
		token = os.Getenv(domain.GitConfig.CredentialRef)
	} else if p.cfg.TokenEnv != "" {
		token = os.Getenv(p.cfg.TokenEnv)
	}
	authedURL, err := injectCredential(domain.GitConfig.RepositoryURL, token)
	if err != nil {
		return nil, "", nil, &GitConfigurationError{Reason: fmt.Sprintf("invalid repository URL: %v", err)}
	}

	workDir, err := os.MkdirTemp(p.cfg.WorkspaceRoot, "seocore-deploy-*")
	if err != nil {
		return nil, "", nil, fmt.Errorf("deploy: creating temp workspace: %w", err)
	}
	cleanup := func() { os.RemoveAll(workDir) }

	depth := p.cfg.CloneDepth
	if depth <= 0 {
		depth = defaultCloneDepth
	}
	cloneCtx, cancel := context.WithTimeout(ctx, cloneTimeout(p.cfg))
	defer cancel()

	repo, err := git.PlainCloneContext(cloneCtx, workDir, false, &git.CloneOptions{
		URL:           authedURL,
		ReferenceName: plumbing.NewBranchReferenceName(branch),
		SingleBranch:  true,
		Depth:         depth,
	})
	if err != nil {
		cleanup()
		err = errors.New(p.masker.Redact(err.Error()))
		if isAuthError(err) {
			return nil, "", nil, &GitAuthenticationError{Err: err}
		}
		return nil, "", nil, &GitCloneError{Err: err}
	}
	return repo, workDir, cleanup, nil
}

// commitAndPush stages nothing itself (the caller already staged via
// worktree.Add), commits with the configured author identity, and
// pushes to origin.
func (p *Pipeline) commitAndPush(ctx context.Context, repo *git.Repository, message string) (string, error) {
	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("deploy: opening worktree: %w", err)
	}

	authorName := p.cfg.CommitAuthorName
	if authorName == "" {
		authorName = "seocore"
	}
	authorEmail := p.cfg.CommitAuthorEmail
	if authorEmail == "" {
		authorEmail = "seocore@localhost"
	}
	commitHash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: authorName, Email: authorEmail, When: time.Now()},
	})
	if err != nil {
		return "", fmt.Errorf("deploy: committing: %w", err)
	}

	if err := repo.PushContext(ctx, &git.PushOptions{RemoteName: "origin"}); err != nil {
		err = errors.New(p.masker.Redact(err.Error()))
		if isAuthError(err) {
			return "", &GitAuthenticationError{Err: err}
		}
		return "", &GitPushError{Err: err}
	}
	return commitHash.String(), nil
}

func cloneTimeout(cfg *config.GitConfig) time.Duration {
	if cfg.CloneTimeout > 0 {
		return cfg.CloneTimeout
	}
	return 2 * time.Minute
}

// injectCredential embeds token into rawURL's userinfo segment
// (spec.md §4.10 step 1), the form go-git's HTTP transport reads
// credentials from directly.
func injectCredential(rawURL, token string) (string, error) {
	if token == "" {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	u.User = url.UserPassword("oauth2", token)
	return u.String(), nil
}

func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "authentication") || strings.Contains(msg, "401") || strings.Contains(msg, "403")
}
