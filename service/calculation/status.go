/*
 * @module service/calculation/status
 * @description 指标表现分档：按目标方向将数值归入 excellent/good/average/poor/unknown
 * @architecture 纯函数工具层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 无状态
 * @rules optimal方向未配置区间时保持unknown，不走距离回退分档（与线上行为一致，产品待定）
 * @dependencies math
 * @refs service/models/kpi.go
 */

package calculation

import (
	"math"

	"kpihub-service/service/models"
)

// 表现分档常量
const (
	StatusExcellent = "excellent"
	StatusGood      = "good"
	StatusAverage   = "average"
	StatusPoor      = "poor"
	StatusUnknown   = "unknown"
)

// PerformanceStatus 按基准值（或用户自定义目标）对指标数值分档
func PerformanceStatus(value float64, kpi *models.KPI, customTarget *float64) string {
	target := kpi.BenchmarkValue
	if customTarget != nil && *customTarget != 0 {
		target = *customTarget
	}
	if target == 0 {
		return StatusUnknown
	}

	ratio := value / target

	switch kpi.TargetDirection {
	case "higher":
		if ratio >= 1.2 {
			return StatusExcellent
		}
		if ratio >= 1.0 {
			return StatusGood
		}
		if ratio >= 0.8 {
			return StatusAverage
		}
		return StatusPoor
	case "lower":
		if ratio <= 0.8 {
			return StatusExcellent
		}
		if ratio <= 1.0 {
			return StatusGood
		}
		if ratio <= 1.2 {
			return StatusAverage
		}
		return StatusPoor
	default: // optimal
		if kpi.OptimalRangeMin != nil && kpi.OptimalRangeMax != nil {
			if value >= *kpi.OptimalRangeMin && value <= *kpi.OptimalRangeMax {
				return StatusExcellent
			}
			deviation := math.Abs(value-target) / target
			if deviation <= 0.1 {
				return StatusGood
			}
			if deviation <= 0.2 {
				return StatusAverage
			}
			return StatusPoor
		}
		// 未配置[min,max]区间：距离回退分档不可达，维持unknown
	}

	return StatusUnknown
}
