/*
 * @module service/kpi/kpi_service_test
 * @description 指标库服务单元测试
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 准备指标数据 -> 调用服务 -> 断言结果
 * @rules 覆盖查询过滤、写权限校验与软删除
 * @dependencies testing, stretchr/testify, testutil
 */

package kpi_test

import (
	"context"
	"testing"

	"kpihub-service/service/kpi"
	"kpihub-service/service/models"
	"kpihub-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user-001"

func newKPIService(t *testing.T) (*kpi.KPIService, *testutil.TestDataFactory, func()) {
	t.Helper()
	tdb := testutil.NewTestDB()
	return kpi.NewKPIService(tdb.DB), testutil.NewTestDataFactory(tdb.DB), tdb.Close
}

func TestListKPIsOrderAndFilters(t *testing.T) {
	svc, factory, cleanup := newKPIService(t)
	defer cleanup()

	factory.CreateKPI(func(k *models.KPI) {
		k.Name = "roas"
		k.DisplayName = "ROAS"
		k.Category = "performance"
		k.PopularityScore = 0.9
		k.SupportedPlatforms = models.JSONBStringArray{"meta", "google"}
	})
	factory.CreateKPI(func(k *models.KPI) {
		k.Name = "message_volume"
		k.DisplayName = "Message Volume"
		k.Category = "messaging"
		k.PopularityScore = 0.6
		k.SupportedPlatforms = models.JSONBStringArray{"whatsapp"}
	})
	factory.CreateKPI(func(k *models.KPI) {
		k.Name = "retired_kpi"
		k.IsActive = false
	})

	all, err := svc.ListKPIs(context.Background(), kpi.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// 按热度降序
	assert.Equal(t, "roas", all[0].Name)

	byCategory, err := svc.ListKPIs(context.Background(), kpi.ListOptions{Category: "messaging"})
	require.NoError(t, err)
	require.Len(t, byCategory, 1)
	assert.Equal(t, "message_volume", byCategory[0].Name)

	byPlatform, err := svc.ListKPIs(context.Background(), kpi.ListOptions{Platform: "whatsapp"})
	require.NoError(t, err)
	require.Len(t, byPlatform, 1)
	assert.Equal(t, "message_volume", byPlatform[0].Name)

	popular, err := svc.ListKPIs(context.Background(), kpi.ListOptions{Popular: true})
	require.NoError(t, err)
	require.Len(t, popular, 1)
	assert.Equal(t, "roas", popular[0].Name)

	bySearch, err := svc.ListKPIs(context.Background(), kpi.ListOptions{Search: "volume"})
	require.NoError(t, err)
	require.Len(t, bySearch, 1)
	assert.Equal(t, "message_volume", bySearch[0].Name)
}

func TestGetKPINotFound(t *testing.T) {
	svc, factory, cleanup := newKPIService(t)
	defer cleanup()

	inactive := factory.CreateKPI(func(k *models.KPI) { k.IsActive = false })

	_, err := svc.GetKPI(context.Background(), "missing-id")
	assert.ErrorIs(t, err, kpi.ErrKPINotFound)

	// 已停用的指标同样按不存在处理
	_, err = svc.GetKPI(context.Background(), inactive.ID)
	assert.ErrorIs(t, err, kpi.ErrKPINotFound)
}

func TestCreateKPIValidationAndDefaults(t *testing.T) {
	svc, _, cleanup := newKPIService(t)
	defer cleanup()

	err := svc.CreateKPI(context.Background(), testUser, &models.KPI{Name: "incomplete"})
	assert.ErrorIs(t, err, kpi.ErrValidation)

	custom := &models.KPI{
		Name:            "custom_metric",
		DisplayName:     "Custom Metric",
		Category:        "performance",
		DataSourceTable: "campaign_metrics",
		IsSystem:        true, // 客户端传入的is_system必须被覆盖
	}
	require.NoError(t, svc.CreateKPI(context.Background(), testUser, custom))

	assert.False(t, custom.IsSystem)
	assert.Equal(t, testUser, custom.CreatedBy)
	assert.Equal(t, "direct", custom.CalculationType)
	assert.Equal(t, "number", custom.FormatType)
	assert.Equal(t, 2, custom.DecimalPlaces)
	assert.True(t, custom.IsActive)
	assert.NotEmpty(t, custom.ID)
}

func TestUpdateKPIPermissions(t *testing.T) {
	svc, factory, cleanup := newKPIService(t)
	defer cleanup()

	system := factory.CreateKPI(func(k *models.KPI) { k.IsSystem = true })
	foreign := factory.CreateKPI(func(k *models.KPI) {
		k.IsSystem = false
		k.CreatedBy = "someone-else"
	})
	mine := factory.CreateKPI(func(k *models.KPI) {
		k.IsSystem = false
		k.CreatedBy = testUser
	})

	_, err := svc.UpdateKPI(context.Background(), testUser, system.ID, map[string]interface{}{"description": "x"})
	assert.ErrorIs(t, err, kpi.ErrSystemKPIReadOnly)

	_, err = svc.UpdateKPI(context.Background(), testUser, foreign.ID, map[string]interface{}{"description": "x"})
	assert.ErrorIs(t, err, kpi.ErrNotOwner)

	updated, err := svc.UpdateKPI(context.Background(), testUser, mine.ID, map[string]interface{}{"description": "更新后的描述"})
	require.NoError(t, err)
	assert.Equal(t, "更新后的描述", updated.Description)
}

func TestDeleteKPISoftDelete(t *testing.T) {
	svc, factory, cleanup := newKPIService(t)
	defer cleanup()

	mine := factory.CreateKPI(func(k *models.KPI) {
		k.IsSystem = false
		k.CreatedBy = testUser
	})

	require.NoError(t, svc.DeleteKPI(context.Background(), testUser, mine.ID))

	// 软删除后按不存在处理
	_, err := svc.GetKPI(context.Background(), mine.ID)
	assert.ErrorIs(t, err, kpi.ErrKPINotFound)
}

func TestIncrementUsage(t *testing.T) {
	svc, factory, cleanup := newKPIService(t)
	defer cleanup()

	record := factory.CreateKPI()
	require.NoError(t, svc.IncrementUsage(context.Background(), record.ID))
	require.NoError(t, svc.IncrementUsage(context.Background(), record.ID))

	reloaded, err := svc.GetKPI(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, reloaded.UsageCount)
}
