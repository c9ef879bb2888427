/*
 * @module service/calculation/status_test
 * @description 指标表现分档单元测试
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 构造指标定义 -> 分档 -> 断言档位
 * @rules 覆盖higher/lower/optimal三个方向与边界比值
 * @dependencies testing, stretchr/testify
 */

package calculation

import (
	"testing"

	"kpihub-service/service/models"

	"github.com/stretchr/testify/assert"
)

func floatPtr(v float64) *float64 { return &v }

func TestPerformanceStatusHigher(t *testing.T) {
	kpi := &models.KPI{TargetDirection: "higher", BenchmarkValue: 100}

	assert.Equal(t, StatusExcellent, PerformanceStatus(120, kpi, nil))
	assert.Equal(t, StatusGood, PerformanceStatus(100, kpi, nil))
	assert.Equal(t, StatusAverage, PerformanceStatus(80, kpi, nil))
	assert.Equal(t, StatusPoor, PerformanceStatus(79, kpi, nil))
}

func TestPerformanceStatusLower(t *testing.T) {
	kpi := &models.KPI{TargetDirection: "lower", BenchmarkValue: 100}

	assert.Equal(t, StatusExcellent, PerformanceStatus(80, kpi, nil))
	assert.Equal(t, StatusGood, PerformanceStatus(100, kpi, nil))
	assert.Equal(t, StatusAverage, PerformanceStatus(120, kpi, nil))
	assert.Equal(t, StatusPoor, PerformanceStatus(121, kpi, nil))
}

func TestPerformanceStatusOptimal(t *testing.T) {
	kpi := &models.KPI{
		TargetDirection: "optimal",
		BenchmarkValue:  100,
		OptimalRangeMin: floatPtr(90),
		OptimalRangeMax: floatPtr(110),
	}

	assert.Equal(t, StatusExcellent, PerformanceStatus(100, kpi, nil))
	assert.Equal(t, StatusExcellent, PerformanceStatus(90, kpi, nil))
	assert.Equal(t, StatusGood, PerformanceStatus(110.5, kpi, nil))
	assert.Equal(t, StatusAverage, PerformanceStatus(115, kpi, nil))
	assert.Equal(t, StatusPoor, PerformanceStatus(130, kpi, nil))
}

// optimal方向未配置区间时维持unknown
func TestPerformanceStatusOptimalWithoutRange(t *testing.T) {
	kpi := &models.KPI{TargetDirection: "optimal", BenchmarkValue: 100}

	assert.Equal(t, StatusUnknown, PerformanceStatus(100, kpi, nil))
	assert.Equal(t, StatusUnknown, PerformanceStatus(50, kpi, nil))
}

func TestPerformanceStatusCustomTarget(t *testing.T) {
	kpi := &models.KPI{TargetDirection: "higher", BenchmarkValue: 100}

	// 自定义目标覆盖基准值
	assert.Equal(t, StatusExcellent, PerformanceStatus(60, kpi, floatPtr(50)))
	// 自定义目标为0时回退基准值
	assert.Equal(t, StatusPoor, PerformanceStatus(60, kpi, floatPtr(0)))
}

func TestPerformanceStatusNoTarget(t *testing.T) {
	kpi := &models.KPI{TargetDirection: "higher", BenchmarkValue: 0}

	assert.Equal(t, StatusUnknown, PerformanceStatus(100, kpi, nil))
}
