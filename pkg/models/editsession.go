package models

import "time"

// EditSessionStatus is the state machine driving sitemap mutation/deploy
// (spec.md §3 EditSession, §4.10).
type EditSessionStatus string

const (
	EditSessionDraft      EditSessionStatus = "draft"
	EditSessionPreview    EditSessionStatus = "preview"
	EditSessionValidating EditSessionStatus = "validating"
	EditSessionDeploying  EditSessionStatus = "deploying"
	EditSessionDeployed   EditSessionStatus = "deployed"
	EditSessionFailed     EditSessionStatus = "failed"
)

// EditSession batches a set of SitemapEntry mutations behind a single
// preview/validate/deploy cycle: every write to SitemapEntry happens
// through an open session so a deploy is all-or-nothing and auditable.
type EditSession struct {
	ID       uint              `gorm:"primaryKey"`
	DomainID uint              `gorm:"not null;index"`
	Status   EditSessionStatus `gorm:"not null;default:draft;index"`

	AddedCount    int `gorm:"column:added_count"`
	RemovedCount  int `gorm:"column:removed_count"`
	ModifiedCount int `gorm:"column:modified_count"`

	// PreviewDocument holds the rendered sitemap.xml produced by the
	// preview step, shown to the caller before validate/deploy commit it.
	PreviewDocument string `gorm:"column:preview_document"`

	DeploymentCommit string `gorm:"column:deployment_commit"`
	Error            string `gorm:"column:error"`

	ValidatedAt *time.Time `gorm:"column:validated_at"`
	DeployedAt  *time.Time `gorm:"column:deployed_at"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (EditSession) TableName() string { return "edit_sessions" }
