/*
 * @module service/calculation/calculator_test
 * @description 指标计算服务单元测试
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 准备数据源行 -> 计算 -> 断言数值/格式化/趋势
 * @rules 覆盖注册表分发、分母为0、错误降级与批量省略语义
 * @dependencies testing, stretchr/testify, testutil
 */

package calculation_test

import (
	"context"
	"testing"
	"time"

	"kpihub-service/service/calculation"
	"kpihub-service/service/formula"
	"kpihub-service/service/models"
	"kpihub-service/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user-001"

func newCalcService(t *testing.T) (*calculation.Service, *testutil.TestDataFactory, func()) {
	t.Helper()
	tdb := testutil.NewTestDB()
	return calculation.NewService(tdb.DB), testutil.NewTestDataFactory(tdb.DB), tdb.Close
}

func TestCalculateROAS(t *testing.T) {
	svc, factory, cleanup := newCalcService(t)
	defer cleanup()

	factory.CreateCampaignMetric(testUser, func(m *models.CampaignMetric) {
		m.Revenue = 900
		m.Spend = 200
	})
	factory.CreateCampaignMetric(testUser, func(m *models.CampaignMetric) {
		m.Revenue = 100
		m.Spend = 50
	})
	// 其他用户的数据不参与计算
	factory.CreateCampaignMetric("other-user", func(m *models.CampaignMetric) {
		m.Revenue = 99999
		m.Spend = 1
	})

	result, err := svc.Calculate(context.Background(), "roas", testUser)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "roas", result.Name)
	assert.InDelta(t, 4.0, result.Value, 0.001)
	assert.Equal(t, "4.0x", result.FormattedValue)
	assert.Equal(t, "up", result.Trend)
}

func TestCalculateROASZeroSpend(t *testing.T) {
	svc, factory, cleanup := newCalcService(t)
	defer cleanup()

	factory.CreateCampaignMetric(testUser, func(m *models.CampaignMetric) {
		m.Revenue = 500
		m.Spend = 0
	})

	result, err := svc.Calculate(context.Background(), "roas", testUser)
	require.NoError(t, err)
	require.NotNil(t, result)

	// 分母为0时比值取0，不产生NaN
	assert.Equal(t, 0.0, result.Value)
	assert.Equal(t, "down", result.Trend)
}

func TestCalculateCPCTrendBands(t *testing.T) {
	cases := []struct {
		name  string
		spend float64
		trend string
	}{
		{"低成本上行", 100, "up"},    // cpc 1.0
		{"中位平稳", 200, "stable"}, // cpc 2.0
		{"高成本下行", 300, "down"},  // cpc 3.0
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, factory, cleanup := newCalcService(t)
			defer cleanup()

			factory.CreateCampaignMetric(testUser, func(m *models.CampaignMetric) {
				m.Spend = tc.spend
				m.Clicks = 100
			})

			result, err := svc.Calculate(context.Background(), "cpc", testUser)
			require.NoError(t, err)
			require.NotNil(t, result)
			assert.Equal(t, tc.trend, result.Trend)
		})
	}
}

func TestCalculateResponseRateDisplayCap(t *testing.T) {
	svc, factory, cleanup := newCalcService(t)
	defer cleanup()

	// 出站多于入站时原始值超过100，但展示值封顶
	factory.CreateUnifiedMessage(testUser, func(m *models.UnifiedMessage) { m.Direction = "inbound" })
	factory.CreateUnifiedMessage(testUser, func(m *models.UnifiedMessage) { m.Direction = "outbound" })
	factory.CreateUnifiedMessage(testUser, func(m *models.UnifiedMessage) { m.Direction = "outbound" })
	factory.CreateUnifiedMessage(testUser, func(m *models.UnifiedMessage) { m.Direction = "outbound" })

	result, err := svc.Calculate(context.Background(), "response_rate", testUser)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.InDelta(t, 300.0, result.Value, 0.001)
	assert.Equal(t, "100.0%", result.FormattedValue)
	assert.Equal(t, "up", result.Trend)
}

func TestCalculateSatisfactionScoreFixedValue(t *testing.T) {
	svc, _, cleanup := newCalcService(t)
	defer cleanup()

	result, err := svc.Calculate(context.Background(), "satisfaction_score", testUser)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 4.3, result.Value)
	assert.Equal(t, "4.3/5", result.FormattedValue)
	assert.Equal(t, "up", result.Trend)
}

func TestCalculateMessageVolumeBreakdown(t *testing.T) {
	svc, factory, cleanup := newCalcService(t)
	defer cleanup()

	factory.CreateUnifiedMessage(testUser, func(m *models.UnifiedMessage) { m.Platform = "whatsapp" })
	factory.CreateUnifiedMessage(testUser, func(m *models.UnifiedMessage) { m.Platform = "whatsapp" })
	factory.CreateUnifiedMessage(testUser, func(m *models.UnifiedMessage) { m.Platform = "instagram" })

	result, err := svc.Calculate(context.Background(), "message_volume", testUser)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 3.0, result.Value)
	assert.Equal(t, 2.0, result.PlatformBreakdown["whatsapp"])
	assert.Equal(t, 1.0, result.PlatformBreakdown["instagram"])
}

func TestCalculateCustomerLTVIgnoresZeroSpenders(t *testing.T) {
	svc, factory, cleanup := newCalcService(t)
	defer cleanup()

	factory.CreateCRMContact(testUser, func(c *models.CRMContact) { c.TotalSpent = 200 })
	factory.CreateCRMContact(testUser, func(c *models.CRMContact) { c.TotalSpent = 100 })
	factory.CreateCRMContact(testUser, func(c *models.CRMContact) { c.TotalSpent = 0 })

	result, err := svc.Calculate(context.Background(), "customer_ltv", testUser)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.InDelta(t, 150.0, result.Value, 0.001)
	assert.Equal(t, "$150.00", result.FormattedValue)
}

func TestCalculateActiveConversations(t *testing.T) {
	svc, factory, cleanup := newCalcService(t)
	defer cleanup()

	factory.CreateCRMConversation(testUser)
	factory.CreateCRMConversation(testUser, func(c *models.CRMConversation) { c.Status = "closed" })

	result, err := svc.Calculate(context.Background(), "active_conversations", testUser)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, 1.0, result.Value)
	assert.Equal(t, "1", result.FormattedValue)
}

func TestCalculateUnknownKPI(t *testing.T) {
	svc, _, cleanup := newCalcService(t)
	defer cleanup()

	result, err := svc.Calculate(context.Background(), "nonexistent_kpi", testUser)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, calculation.ErrCalculatorNotFound)
}

func TestCalculateCustomFormulaKPI(t *testing.T) {
	tdb := testutil.NewTestDB()
	defer tdb.Close()
	factory := testutil.NewTestDataFactory(tdb.DB)

	svc := calculation.NewService(tdb.DB)
	svc.SetFormulaEvaluator(formula.NewEngine())

	factory.CreateKPI(func(k *models.KPI) {
		k.Name = "revenue_per_conversion"
		k.DisplayName = "Revenue Per Conversion"
		k.CalculationType = "calculated"
		k.Formula = "total_revenue / total_conversions"
		k.FormatType = "currency"
		k.DecimalPlaces = 2
		k.IsSystem = false
	})
	factory.CreateCampaignMetric(testUser, func(m *models.CampaignMetric) {
		m.Revenue = 1000
		m.Conversions = 40
	})

	result, err := svc.Calculate(context.Background(), "revenue_per_conversion", testUser)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.InDelta(t, 25.0, result.Value, 0.001)
	assert.Equal(t, "$25.00", result.FormattedValue)
}

func TestCalculateBatchDropsUnknownAndKeepsOrderless(t *testing.T) {
	svc, factory, cleanup := newCalcService(t)
	defer cleanup()

	factory.CreateCampaignMetric(testUser, func(m *models.CampaignMetric) {
		m.Revenue = 800
		m.Spend = 200
	})

	results := svc.CalculateBatch(context.Background(), testUser,
		[]string{"roas", "satisfaction_score", "nonexistent_kpi"})

	require.Len(t, results, 2)
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
		assert.False(t, r.LastUpdated.IsZero())
		assert.WithinDuration(t, time.Now(), r.LastUpdated, time.Minute)
	}
	assert.True(t, names["roas"])
	assert.True(t, names["satisfaction_score"])
}
