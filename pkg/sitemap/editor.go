package sitemap

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/deploy"
	"github.com/seocore/seocore/pkg/models"
)

// Deployer pushes a rendered file to a domain's configured Git repository.
// pkg/deploy.Pipeline satisfies this via DeployFile; pkg/deploy has no
// dependency back on pkg/sitemap so importing its concrete result type here
// introduces no cycle.
type Deployer interface {
	DeployFile(ctx context.Context, domain *models.Domain, relativePath string, content []byte, message string) (*deploy.DeployResult, error)
}

const sitemapRelativePath = "public/sitemap.xml"

// Editor batches SitemapEntry mutations behind an EditSession, and turns a
// validated set of entries into a committed sitemap.xml (spec.md §4.10's
// closing paragraph, §6's "CRUD for sitemap edit sessions: create,
// add/update/remove entry, preview, validate, deploy").
type Editor struct {
	db       *gorm.DB
	deployer Deployer
}

// NewEditor builds an Editor. deployer may be nil; Deploy and
// RegenerateAndDeploy return an error if called without one.
func NewEditor(db *gorm.DB, deployer Deployer) *Editor {
	return &Editor{db: db, deployer: deployer}
}

// OpenSession starts a new draft EditSession for domainID.
func (e *Editor) OpenSession(ctx context.Context, domainID uint) (*models.EditSession, error) {
	session := &models.EditSession{DomainID: domainID, Status: models.EditSessionDraft}
	if err := e.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, fmt.Errorf("sitemap: opening edit session: %w", err)
	}
	return session, nil
}

// AddEntry inserts a new SitemapEntry and counts it against sessionID.
func (e *Editor) AddEntry(ctx context.Context, sessionID uint, entry models.SitemapEntry) (*models.SitemapEntry, error) {
	return e.mutate(ctx, sessionID, func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Model(&models.EditSession{}).Where("id = ?", sessionID).
			UpdateColumn("added_count", gorm.Expr("added_count + 1")).Error
	}, &entry)
}

// UpdateEntry applies fields (loc/last_mod/change_freq/priority) to an
// existing SitemapEntry and counts it against sessionID.
func (e *Editor) UpdateEntry(ctx context.Context, sessionID, entryID uint, fields map[string]any) (*models.SitemapEntry, error) {
	var entry models.SitemapEntry
	_, err := e.mutate(ctx, sessionID, func(tx *gorm.DB) error {
		if err := tx.Model(&models.SitemapEntry{}).Where("id = ?", entryID).Updates(fields).Error; err != nil {
			return err
		}
		if err := tx.First(&entry, entryID).Error; err != nil {
			return err
		}
		return tx.Model(&models.EditSession{}).Where("id = ?", sessionID).
			UpdateColumn("modified_count", gorm.Expr("modified_count + 1")).Error
	}, &entry)
	return &entry, err
}

// RemoveEntry deletes a SitemapEntry and counts it against sessionID.
func (e *Editor) RemoveEntry(ctx context.Context, sessionID, entryID uint) error {
	_, err := e.mutate(ctx, sessionID, func(tx *gorm.DB) error {
		if err := tx.Delete(&models.SitemapEntry{}, entryID).Error; err != nil {
			return err
		}
		return tx.Model(&models.EditSession{}).Where("id = ?", sessionID).
			UpdateColumn("removed_count", gorm.Expr("removed_count + 1")).Error
	}, nil)
	return err
}

func (e *Editor) mutate(ctx context.Context, sessionID uint, fn func(tx *gorm.DB) error, out *models.SitemapEntry) (*models.SitemapEntry, error) {
	err := e.db.WithContext(ctx).Transaction(fn)
	if err != nil {
		return nil, fmt.Errorf("sitemap: mutating edit session %d: %w", sessionID, err)
	}
	return out, nil
}

// Preview renders domainID's current entries into XML and records it on
// sessionID without validating or deploying, for display to the caller.
func (e *Editor) Preview(ctx context.Context, sessionID, domainID uint) (string, error) {
	entries, err := e.loadEntries(ctx, domainID)
	if err != nil {
		return "", err
	}
	rendered, err := RenderURLSet(entries)
	if err != nil {
		return "", fmt.Errorf("sitemap: rendering preview: %w", err)
	}
	if err := e.db.WithContext(ctx).Model(&models.EditSession{}).Where("id = ?", sessionID).
		Updates(map[string]any{"status": models.EditSessionPreview, "preview_document": string(rendered)}).Error; err != nil {
		return "", fmt.Errorf("sitemap: saving preview: %w", err)
	}
	return string(rendered), nil
}

// Validate renders and checks domainID's current entries against every
// sitemaps.org/spec.md §6 rule, recording the outcome on sessionID.
func (e *Editor) Validate(ctx context.Context, sessionID, domainID uint) error {
	entries, err := e.loadEntries(ctx, domainID)
	if err != nil {
		return err
	}
	rendered, err := RenderURLSet(entries)
	if err != nil {
		return fmt.Errorf("sitemap: rendering for validation: %w", err)
	}

	now := time.Now()
	if verr := Validate(entries, rendered); verr != nil {
		e.db.WithContext(ctx).Model(&models.EditSession{}).Where("id = ?", sessionID).
			Updates(map[string]any{"status": models.EditSessionFailed, "error": verr.Error()})
		return verr
	}
	return e.db.WithContext(ctx).Model(&models.EditSession{}).Where("id = ?", sessionID).
		Updates(map[string]any{"status": models.EditSessionValidating, "validated_at": &now, "error": ""}).Error
}

// Deploy validates domainID's current entries, commits the rendered
// sitemap.xml through the Deployer, and marks sessionID deployed, setting
// every deployed entry's IncludedInLastDeploy flag (spec.md §4.10's closing
// paragraph: "uses the pipeline above to commit the XML").
func (e *Editor) Deploy(ctx context.Context, sessionID, domainID uint) (*models.EditSession, error) {
	if e.deployer == nil {
		return nil, fmt.Errorf("sitemap: no deployer configured for domain %d", domainID)
	}

	var domain models.Domain
	if err := e.db.WithContext(ctx).First(&domain, domainID).Error; err != nil {
		return nil, fmt.Errorf("sitemap: loading domain: %w", err)
	}

	entries, err := e.loadEntries(ctx, domainID)
	if err != nil {
		return nil, err
	}
	rendered, err := RenderURLSet(entries)
	if err != nil {
		return nil, fmt.Errorf("sitemap: rendering for deploy: %w", err)
	}
	if verr := Validate(entries, rendered); verr != nil {
		e.db.WithContext(ctx).Model(&models.EditSession{}).Where("id = ?", sessionID).
			Updates(map[string]any{"status": models.EditSessionFailed, "error": verr.Error()})
		return nil, verr
	}

	e.db.WithContext(ctx).Model(&models.EditSession{}).Where("id = ?", sessionID).
		Update("status", models.EditSessionDeploying)

	message := fmt.Sprintf("seocore: regenerate sitemap.xml (%d urls) at %s", len(entries), time.Now().UTC().Format(time.RFC3339))
	result, err := e.deployer.DeployFile(ctx, &domain, sitemapRelativePath, rendered, message)
	if err != nil {
		e.db.WithContext(ctx).Model(&models.EditSession{}).Where("id = ?", sessionID).
			Updates(map[string]any{"status": models.EditSessionFailed, "error": err.Error()})
		return nil, err
	}

	now := time.Now()
	session := &models.EditSession{}
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result.Success {
			if err := tx.Model(&models.SitemapEntry{}).Where("domain_id = ?", domainID).
				Update("included_in_last_deploy", true).Error; err != nil {
				return err
			}
		}
		updates := map[string]any{
			"status":            models.EditSessionDeployed,
			"deployed_at":       &now,
			"deployment_commit": result.CommitHash,
			"error":             "",
		}
		if err := tx.Model(&models.EditSession{}).Where("id = ?", sessionID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(session, sessionID).Error
	})
	if err != nil {
		return nil, fmt.Errorf("sitemap: recording deploy result: %w", err)
	}
	return session, nil
}

// RegenerateAndDeploy satisfies pkg/aifixer.SitemapDeployer: it opens a
// fresh session against domainID's current entries and deploys immediately,
// for the quick_win/priority_action/structure dispatch paths that need a
// sitemap push with no separate preview/validate step.
func (e *Editor) RegenerateAndDeploy(ctx context.Context, domainID uint) (*models.EditSession, error) {
	session, err := e.OpenSession(ctx, domainID)
	if err != nil {
		return nil, err
	}
	if err := e.Validate(ctx, session.ID, domainID); err != nil {
		return nil, err
	}
	return e.Deploy(ctx, session.ID, domainID)
}

func (e *Editor) loadEntries(ctx context.Context, domainID uint) ([]models.SitemapEntry, error) {
	var entries []models.SitemapEntry
	if err := e.db.WithContext(ctx).Where("domain_id = ?", domainID).Order("loc").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("sitemap: loading entries for domain %d: %w", domainID, err)
	}
	return entries, nil
}
