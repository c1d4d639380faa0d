package models

import "time"

// ChangeFreq mirrors the sitemap.xml <changefreq> enumeration (spec.md §6.2).
type ChangeFreq string

const (
	ChangeFreqAlways  ChangeFreq = "always"
	ChangeFreqHourly  ChangeFreq = "hourly"
	ChangeFreqDaily   ChangeFreq = "daily"
	ChangeFreqWeekly  ChangeFreq = "weekly"
	ChangeFreqMonthly ChangeFreq = "monthly"
	ChangeFreqYearly  ChangeFreq = "yearly"
	ChangeFreqNever   ChangeFreq = "never"
)

// SitemapEntry is the persisted mirror of one <url> block written or read
// from a domain's sitemap.xml, used by pkg/sitemap to diff against the
// live file before a deploy (spec.md §4.10/§6.2).
type SitemapEntry struct {
	ID       uint `gorm:"primaryKey"`
	DomainID uint `gorm:"not null;index:idx_sitemap_domain_loc,unique"`
	PageID   *uint `gorm:"index"`

	Loc        string     `gorm:"not null;index:idx_sitemap_domain_loc,unique"`
	LastMod    *time.Time `gorm:"column:last_mod"`
	ChangeFreq ChangeFreq `gorm:"column:change_freq"`
	Priority   float64    `gorm:"column:priority;default:0.5"`

	IncludedInLastDeploy bool `gorm:"column:included_in_last_deploy;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SitemapEntry) TableName() string { return "sitemap_entries" }
