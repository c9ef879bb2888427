/*
 * @module service/calculation/calculator
 * @description 指标计算服务：按指标名分发到固定注册表，聚合数据源行并产出计算结果
 * @architecture 分层架构 - 业务服务层，注册表分发模式
 * @documentReference dev_docs/requirements.md
 * @stateFlow 查缓存 -> 分发计算器 -> 聚合/求比 -> 格式化+趋势分档 -> 回填缓存
 * @rules 未注册指标返回ErrCalculatorNotFound；数据访问错误降级为nil结果仅记录日志；分母为0时比值取0
 * @dependencies kpihub-service/service/models, gorm.io/gorm
 * @refs service/calculation/builtin.go, service/formula/engine.go
 */

package calculation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"kpihub-service/service/metrics"
	"kpihub-service/service/models"

	"gorm.io/gorm"
)

// ErrCalculatorNotFound 指标名没有对应的计算器
var ErrCalculatorNotFound = errors.New("no calculator registered for KPI")

// FormulaEvaluator 自定义公式求值器接口，由service/formula提供实现
type FormulaEvaluator interface {
	Evaluate(formula string, env map[string]float64) (float64, error)
}

// Service 指标计算服务
type Service struct {
	db      *gorm.DB
	cache   *Cache           // 可选，nil时直连数据库
	formula FormulaEvaluator // 可选，自定义calculated指标的公式求值
	now     func() time.Time
}

type calculatorFunc func(ctx context.Context, userID string) (*models.CalculatedKPI, error)

// NewService 创建指标计算服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, now: time.Now}
}

// SetCache 注入计算结果缓存
func (s *Service) SetCache(cache *Cache) {
	s.cache = cache
}

// SetFormulaEvaluator 注入自定义公式求值器
func (s *Service) SetFormulaEvaluator(evaluator FormulaEvaluator) {
	s.formula = evaluator
}

// registry 固定的指标计算注册表，按指标名精确匹配
func (s *Service) registry() map[string]calculatorFunc {
	return map[string]calculatorFunc{
		"roas":                 s.calculateROAS,
		"cpc":                  s.calculateCPC,
		"ctr":                  s.calculateCTR,
		"conversion_rate":      s.calculateConversionRate,
		"cpl":                  s.calculateCPL,
		"total_revenue":        s.calculateTotalRevenue,
		"total_spend":          s.calculateTotalSpend,
		"total_impressions":    s.calculateTotalImpressions,
		"total_clicks":         s.calculateTotalClicks,
		"avg_response_time":    s.calculateAvgResponseTime,
		"message_volume":       s.calculateMessageVolume,
		"response_rate":        s.calculateResponseRate,
		"satisfaction_score":   s.calculateSatisfactionScore,
		"active_conversations": s.calculateActiveConversations,
		"customer_ltv":         s.calculateCustomerLTV,
		"new_contacts":         s.calculateNewContacts,
	}
}

// Calculate 计算单个指标
// 未注册且指标库中也找不到可求值的自定义指标时返回ErrCalculatorNotFound；
// 数据访问错误降级为(nil, nil)，由调用方按"省略该指标"处理。
func (s *Service) Calculate(ctx context.Context, kpiName, userID string) (*models.CalculatedKPI, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, userID, kpiName); ok {
			metrics.ObserveCalculation(kpiName, "cache_hit", 0)
			return cached, nil
		}
	}

	calculator, ok := s.registry()[kpiName]
	if !ok {
		// 注册表之外：尝试指标库中的自定义calculated指标
		result, err := s.calculateCustom(ctx, kpiName, userID)
		if err != nil {
			return nil, err
		}
		s.fillCache(ctx, userID, result)
		return result, nil
	}

	start := s.now()
	result, err := calculator(ctx, userID)
	if err != nil {
		// 数据访问错误不向上传播，该指标按缺失处理
		slog.Error("指标计算失败", "kpi", kpiName, "user_id", userID, "error", err)
		metrics.ObserveCalculation(kpiName, "error", s.now().Sub(start))
		return nil, nil
	}

	metrics.ObserveCalculation(kpiName, "ok", s.now().Sub(start))
	s.fillCache(ctx, userID, result)
	return result, nil
}

// calculateCustom 对指标库中calculation_type为calculated且带公式的自定义指标求值
func (s *Service) calculateCustom(ctx context.Context, kpiName, userID string) (*models.CalculatedKPI, error) {
	if s.formula == nil {
		return nil, ErrCalculatorNotFound
	}

	var kpi models.KPI
	err := s.db.WithContext(ctx).
		Where("name = ? AND is_active = ? AND calculation_type = ? AND formula <> ''", kpiName, true, "calculated").
		First(&kpi).Error
	if err != nil {
		return nil, ErrCalculatorNotFound
	}

	env, err := s.aggregateEnv(ctx, userID)
	if err != nil {
		slog.Error("自定义指标聚合环境构建失败", "kpi", kpiName, "error", err)
		return nil, nil
	}

	value, err := s.formula.Evaluate(kpi.Formula, env)
	if err != nil {
		slog.Error("自定义指标公式求值失败", "kpi", kpiName, "formula", kpi.Formula, "error", err)
		return nil, nil
	}

	return &models.CalculatedKPI{
		KPIID:          kpi.ID,
		Name:           kpi.Name,
		DisplayName:    kpi.DisplayName,
		Value:          value,
		FormattedValue: FormatValue(value, kpi.FormatType, kpi.DecimalPlaces, kpi.Prefix, kpi.Suffix),
		Trend:          "stable",
		LastUpdated:    s.now(),
	}, nil
}

// aggregateEnv 构建公式求值可见的基础聚合量
func (s *Service) aggregateEnv(ctx context.Context, userID string) (map[string]float64, error) {
	var row struct {
		Revenue     float64
		Spend       float64
		Impressions float64
		Clicks      float64
		Conversions float64
	}
	err := s.db.WithContext(ctx).Model(&models.CampaignMetric{}).
		Select("COALESCE(SUM(revenue),0) AS revenue, COALESCE(SUM(spend),0) AS spend, COALESCE(SUM(impressions),0) AS impressions, COALESCE(SUM(clicks),0) AS clicks, COALESCE(SUM(conversions),0) AS conversions").
		Where("user_id = ?", userID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return map[string]float64{
		"total_revenue":     row.Revenue,
		"total_spend":       row.Spend,
		"total_impressions": row.Impressions,
		"total_clicks":      row.Clicks,
		"total_conversions": row.Conversions,
	}, nil
}

func (s *Service) fillCache(ctx context.Context, userID string, result *models.CalculatedKPI) {
	if s.cache != nil && result != nil {
		s.cache.Set(ctx, userID, result)
	}
}
