package cleanup

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/seocore/seocore/pkg/config"
	"github.com/seocore/seocore/pkg/models"
	testdb "github.com/seocore/seocore/test/database"
)

func testConfig() *config.RetentionConfig {
	return &config.RetentionConfig{
		AnalysisCacheTTL:               time.Hour,
		TrafficSnapshotRetentionDays:   365,
		FailedEditSessionRetentionDays: 30,
		CleanupInterval:                time.Hour,
	}
}

func seedDomain(t *testing.T, db *gorm.DB) *models.Domain {
	t.Helper()
	domain := &models.Domain{Hostname: "example.com"}
	require.NoError(t, db.Create(domain).Error)
	return domain
}

func TestService_PurgesExpiredAnalysisCache(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()
	domain := seedDomain(t, client.DB)

	expired := &models.AIAnalysisCache{
		DomainID:     domain.ID,
		AnalysisType: "suggestion",
		ContextHash:  "abc",
		ExpiresAt:    time.Now().Add(-time.Hour),
	}
	fresh := &models.AIAnalysisCache{
		DomainID:     domain.ID,
		AnalysisType: "suggestion",
		ContextHash:  "def",
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	require.NoError(t, client.DB.Create(expired).Error)
	require.NoError(t, client.DB.Create(fresh).Error)

	svc := NewService(testConfig(), client.DB)
	svc.runAll(ctx)

	var remaining []models.AIAnalysisCache
	require.NoError(t, client.DB.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, "def", remaining[0].ContextHash)
}

func TestService_PrunesOldTrafficSnapshots(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()
	domain := seedDomain(t, client.DB)

	old := &models.DailyTrafficSnapshot{
		DomainID: domain.ID,
		Date:     time.Now().AddDate(-2, 0, 0),
	}
	recent := &models.DailyTrafficSnapshot{
		DomainID: domain.ID,
		Date:     time.Now(),
	}
	require.NoError(t, client.DB.Create(old).Error)
	require.NoError(t, client.DB.Create(recent).Error)

	svc := NewService(testConfig(), client.DB)
	svc.runAll(ctx)

	var remaining []models.DailyTrafficSnapshot
	require.NoError(t, client.DB.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, recent.ID, remaining[0].ID)
}

func TestService_PurgesStaleFailedEditSessions(t *testing.T) {
	client := testdb.NewTestClient(t)
	ctx := context.Background()
	domain := seedDomain(t, client.DB)

	stale := &models.EditSession{DomainID: domain.ID, Status: models.EditSessionFailed}
	require.NoError(t, client.DB.Create(stale).Error)
	require.NoError(t, client.DB.Model(stale).
		UpdateColumn("updated_at", time.Now().AddDate(0, 0, -60)).Error)

	recentlyFailed := &models.EditSession{DomainID: domain.ID, Status: models.EditSessionFailed}
	require.NoError(t, client.DB.Create(recentlyFailed).Error)

	active := &models.EditSession{DomainID: domain.ID, Status: models.EditSessionDraft}
	require.NoError(t, client.DB.Create(active).Error)
	require.NoError(t, client.DB.Model(active).
		UpdateColumn("updated_at", time.Now().AddDate(0, 0, -60)).Error)

	svc := NewService(testConfig(), client.DB)
	svc.runAll(ctx)

	var remaining []models.EditSession
	require.NoError(t, client.DB.Find(&remaining).Error)
	require.Len(t, remaining, 2)
}
