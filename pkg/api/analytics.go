package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seocore/seocore/pkg/models"
)

const defaultOverviewDays = 30

// DomainOverview handles GET /analytics/domain_overview?domain_id=&days=
// (spec.md §6): health score, indexing rate, CTR, trend arrays.
func (s *Server) DomainOverview(c *gin.Context) {
	ctx := c.Request.Context()

	domainID, err := strconv.ParseUint(c.Query("domain_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody("invalid_id", "domain_id query parameter is required"))
		return
	}

	days := defaultOverviewDays
	if raw := c.Query("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			days = n
		}
	}

	var domain models.Domain
	if err := s.db.WithContext(ctx).First(&domain, uint(domainID)).Error; err != nil {
		c.JSON(http.StatusNotFound, errorBody("domain_not_found", err.Error()))
		return
	}

	var totalPages, indexedPages int64
	s.db.WithContext(ctx).Model(&models.Page{}).Where("domain_id = ? AND is_active", domain.ID).Count(&totalPages)

	latestSnapshotSubquery := s.db.
		Table("seo_metrics_snapshots s1").
		Select("s1.page_id, MAX(s1.timestamp) AS max_ts").
		Group("s1.page_id")
	s.db.WithContext(ctx).
		Table("seo_metrics_snapshots snap").
		Joins("JOIN (?) latest ON latest.page_id = snap.page_id AND latest.max_ts = snap.timestamp", latestSnapshotSubquery).
		Joins("JOIN pages p ON p.id = snap.page_id").
		Where("p.domain_id = ? AND snap.is_indexed = ?", domain.ID, true).
		Count(&indexedPages)

	indexingRate := 0.0
	if totalPages > 0 {
		indexingRate = float64(indexedPages) / float64(totalPages)
	}

	since := time.Now().AddDate(0, 0, -days)
	var trend []models.DailyTrafficSnapshot
	s.db.WithContext(ctx).Where("domain_id = ? AND date >= ?", domain.ID, since).
		Order("date ASC").Find(&trend)

	avgCTR := 0.0
	if len(trend) > 0 {
		sum := 0.0
		for _, t := range trend {
			sum += t.CTR
		}
		avgCTR = sum / float64(len(trend))
	}

	dates := make([]string, len(trend))
	impressions := make([]int, len(trend))
	clicks := make([]int, len(trend))
	ctrs := make([]float64, len(trend))
	positions := make([]float64, len(trend))
	for i, t := range trend {
		dates[i] = t.Date.Format("2006-01-02")
		impressions[i] = t.Impressions
		clicks[i] = t.Clicks
		ctrs[i] = t.CTR
		positions[i] = t.AvgPosition
	}

	c.JSON(http.StatusOK, okBody(gin.H{
		"domain_id":       domain.ID,
		"health_score":    domain.SEOScore,
		"performance":     domain.PerformanceScore,
		"accessibility":   domain.AccessibilityScore,
		"indexing_rate":   indexingRate,
		"avg_ctr":         avgCTR,
		"days":            days,
		"trend": gin.H{
			"dates":        dates,
			"impressions":  impressions,
			"clicks":       clicks,
			"ctr":          ctrs,
			"avg_position": positions,
		},
	}))
}
