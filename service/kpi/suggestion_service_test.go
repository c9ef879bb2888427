/*
 * @module service/kpi/suggestion_service_test
 * @description 指标推荐服务单元测试
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 准备指标/看板/集成数据 -> 生成或处理推荐 -> 断言状态机
 * @rules 覆盖两类生成规则、动作状态机、幂等接受与过期清理
 * @dependencies testing, stretchr/testify, testutil
 */

package kpi_test

import (
	"context"
	"testing"
	"time"

	"kpihub-service/service/kpi"
	"kpihub-service/service/models"
	"kpihub-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSuggestionService(t *testing.T) (*kpi.SuggestionService, *testutil.TestDataFactory, func()) {
	t.Helper()
	tdb := testutil.NewTestDB()
	return kpi.NewSuggestionService(tdb.DB), testutil.NewTestDataFactory(tdb.DB), tdb.Close
}

func TestGeneratePopularSuggestions(t *testing.T) {
	svc, factory, cleanup := newSuggestionService(t)
	defer cleanup()

	popular := factory.CreateKPI(func(k *models.KPI) {
		k.Name = "roas"
		k.PopularityScore = 0.9
	})
	factory.CreateKPI(func(k *models.KPI) {
		k.Name = "niche_metric"
		k.PopularityScore = 0.3
	})
	// 已在看板上的不再推荐
	onDashboard := factory.CreateKPI(func(k *models.KPI) {
		k.Name = "cpc"
		k.PopularityScore = 0.95
	})
	factory.CreateDashboardKPI(testUser, onDashboard.ID)

	suggestions, err := svc.Generate(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	got := suggestions[0]
	assert.Equal(t, popular.ID, got.KPIID)
	assert.Equal(t, "trending_kpi", got.SuggestionReason)
	assert.Equal(t, 0.8, got.ConfidenceScore)
	assert.Equal(t, 2, got.Priority)
	assert.Equal(t, models.SuggestionActionPending, got.UserAction)
	require.NotNil(t, got.ExpiresAt)
	assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), *got.ExpiresAt, time.Minute)
}

func TestGeneratePlatformSuggestions(t *testing.T) {
	svc, factory, cleanup := newSuggestionService(t)
	defer cleanup()

	matching := factory.CreateKPI(func(k *models.KPI) {
		k.Name = "message_volume"
		k.PopularityScore = 0.4
		k.SupportedPlatforms = models.JSONBStringArray{"whatsapp"}
	})
	factory.CreateKPI(func(k *models.KPI) {
		k.Name = "unrelated_metric"
		k.PopularityScore = 0.4
		k.SupportedPlatforms = models.JSONBStringArray{"tiktok"}
	})
	factory.CreateUserIntegration(testUser, "whatsapp")
	factory.CreateUserIntegration(testUser, "meta", func(i *models.UserIntegration) {
		i.Status = "disconnected"
	})

	suggestions, err := svc.Generate(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)

	got := suggestions[0]
	assert.Equal(t, matching.ID, got.KPIID)
	assert.Equal(t, "new_platform_connected", got.SuggestionReason)
	assert.Equal(t, 0.9, got.ConfidenceScore)
	assert.Equal(t, 3, got.Priority)
}

// 同一指标同时命中两条规则时只推荐一次，且平台推荐优先级更高排在前面
func TestGenerateDeduplicatesAcrossRules(t *testing.T) {
	svc, factory, cleanup := newSuggestionService(t)
	defer cleanup()

	factory.CreateKPI(func(k *models.KPI) {
		k.Name = "roas"
		k.PopularityScore = 0.9
		k.SupportedPlatforms = models.JSONBStringArray{"meta"}
	})
	factory.CreateKPI(func(k *models.KPI) {
		k.Name = "ctr"
		k.PopularityScore = 0.2
		k.SupportedPlatforms = models.JSONBStringArray{"meta"}
	})
	factory.CreateUserIntegration(testUser, "meta")

	suggestions, err := svc.Generate(context.Background(), testUser)
	require.NoError(t, err)
	require.Len(t, suggestions, 2)

	// roas走热门规则，ctr走平台规则
	assert.Equal(t, "new_platform_connected", suggestions[0].SuggestionReason)
	assert.Equal(t, "trending_kpi", suggestions[1].SuggestionReason)

	seen := map[string]int{}
	for _, suggestion := range suggestions {
		seen[suggestion.KPIID]++
	}
	for kpiID, count := range seen {
		assert.Equal(t, 1, count, "KPI %s 被重复推荐", kpiID)
	}
}

func TestListActiveOnlyExcludesExpired(t *testing.T) {
	svc, factory, cleanup := newSuggestionService(t)
	defer cleanup()

	target := factory.CreateKPI()
	factory.CreateSuggestion(testUser, target.ID)

	expired := factory.CreateKPI()
	past := time.Now().AddDate(0, 0, -1)
	factory.CreateSuggestion(testUser, expired.ID, func(s *models.KPISuggestion) {
		s.ExpiresAt = &past
	})

	active, err := svc.List(context.Background(), testUser, true, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, target.ID, active[0].KPIID)

	all, err := svc.List(context.Background(), testUser, false, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestActInvalidAction(t *testing.T) {
	svc, factory, cleanup := newSuggestionService(t)
	defer cleanup()

	target := factory.CreateKPI()
	created := factory.CreateSuggestion(testUser, target.ID)

	_, err := svc.Act(context.Background(), testUser, created.ID, "rejected")
	assert.ErrorIs(t, err, kpi.ErrInvalidAction)

	_, err = svc.Act(context.Background(), testUser, "missing-id", models.SuggestionActionDismissed)
	assert.ErrorIs(t, err, kpi.ErrSuggestionNotFound)

	// 其他用户不可操作
	_, err = svc.Act(context.Background(), "other-user", created.ID, models.SuggestionActionDismissed)
	assert.ErrorIs(t, err, kpi.ErrSuggestionNotFound)
}

func TestActDismiss(t *testing.T) {
	svc, factory, cleanup := newSuggestionService(t)
	defer cleanup()

	target := factory.CreateKPI()
	created := factory.CreateSuggestion(testUser, target.ID)

	updated, err := svc.Act(context.Background(), testUser, created.ID, models.SuggestionActionDismissed)
	require.NoError(t, err)

	assert.Equal(t, models.SuggestionActionDismissed, updated.UserAction)
	assert.False(t, updated.IsActive)
	assert.NotNil(t, updated.ActedAt)
	assert.True(t, updated.IsTerminal())
}

func TestActAcceptCreatesDashboardEntry(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	svc := kpi.NewSuggestionService(tdb.DB)
	dashboards := kpi.NewDashboardService(tdb.DB)

	target := factory.CreateKPI()
	created := factory.CreateSuggestion(testUser, target.ID)

	updated, err := svc.Act(context.Background(), testUser, created.ID, models.SuggestionActionAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionActionAccepted, updated.UserAction)
	// 接受后保留active用于追踪
	assert.True(t, updated.IsActive)

	entries, err := dashboards.List(context.Background(), testUser, kpi.DashboardListOptions{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, target.ID, entries[0].KPIID)
}

// 指标已在看板上时接受推荐不报错，看板行保持一条
func TestActAcceptIdempotentOnDuplicate(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	svc := kpi.NewSuggestionService(tdb.DB)
	dashboards := kpi.NewDashboardService(tdb.DB)

	target := factory.CreateKPI()
	factory.CreateDashboardKPI(testUser, target.ID)
	created := factory.CreateSuggestion(testUser, target.ID)

	updated, err := svc.Act(context.Background(), testUser, created.ID, models.SuggestionActionAccepted)
	require.NoError(t, err)
	assert.Equal(t, models.SuggestionActionAccepted, updated.UserAction)

	entries, err := dashboards.List(context.Background(), testUser, kpi.DashboardListOptions{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDeleteSuggestion(t *testing.T) {
	svc, factory, cleanup := newSuggestionService(t)
	defer cleanup()

	target := factory.CreateKPI()
	created := factory.CreateSuggestion(testUser, target.ID)

	assert.ErrorIs(t, svc.Delete(context.Background(), "other-user", created.ID), kpi.ErrSuggestionNotFound)
	require.NoError(t, svc.Delete(context.Background(), testUser, created.ID))
	assert.ErrorIs(t, svc.Delete(context.Background(), testUser, created.ID), kpi.ErrSuggestionNotFound)
}

func TestExpireStale(t *testing.T) {
	svc, factory, cleanup := newSuggestionService(t)
	defer cleanup()

	target := factory.CreateKPI()
	past := time.Now().AddDate(0, 0, -1)

	factory.CreateSuggestion(testUser, target.ID, func(s *models.KPISuggestion) {
		s.ExpiresAt = &past
	})
	// 未过期的保持不动
	fresh := factory.CreateKPI()
	factory.CreateSuggestion(testUser, fresh.ID)
	// 已处理的不再清理
	acted := factory.CreateKPI()
	factory.CreateSuggestion(testUser, acted.ID, func(s *models.KPISuggestion) {
		s.ExpiresAt = &past
		s.UserAction = models.SuggestionActionDismissed
	})

	count, err := svc.ExpireStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
