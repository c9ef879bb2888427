/*
 * @module service/calculation/builtin
 * @description 16个内置指标计算器：投放效果、财务、消息触达、客户四类
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 取数 -> 求和/求比 -> 格式化 -> 趋势分档
 * @rules 趋势阈值为固定业务切点（非历史同比），必须原样保留；分母为0时比值取0
 * @dependencies kpihub-service/service/models, gorm.io/gorm
 * @refs service/calculation/calculator.go
 */

package calculation

import (
	"context"
	"fmt"
	"strconv"

	"kpihub-service/service/models"
)

// 滚动窗口常量（天）
const (
	windowShortDays = 7
	windowLongDays  = 30
)

// calculateROAS 广告支出回报率 = 总收入 / 总花费
func (s *Service) calculateROAS(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	var rows []struct {
		Revenue float64
		Spend   float64
	}
	err := s.db.WithContext(ctx).Model(&models.CampaignMetric{}).
		Select("revenue, spend").Where("user_id = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	var totalRevenue, totalSpend float64
	for _, row := range rows {
		totalRevenue += row.Revenue
		totalSpend += row.Spend
	}
	roas := ratio(totalRevenue, totalSpend)

	trend := "down"
	if roas > 3 {
		trend = "up"
	} else if roas > 2 {
		trend = "stable"
	}

	return s.result("roas", "ROAS", roas, fmt.Sprintf("%.1fx", roas), trend, nil), nil
}

// calculateCPC 单次点击成本 = 总花费 / 总点击
func (s *Service) calculateCPC(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	var rows []struct {
		Spend  float64
		Clicks int64
	}
	err := s.db.WithContext(ctx).Model(&models.CampaignMetric{}).
		Select("spend, clicks").Where("user_id = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	var totalSpend float64
	var totalClicks int64
	for _, row := range rows {
		totalSpend += row.Spend
		totalClicks += row.Clicks
	}
	cpc := ratio(totalSpend, float64(totalClicks))

	trend := "down"
	if cpc < 1.5 {
		trend = "up"
	} else if cpc < 2.5 {
		trend = "stable"
	}

	return s.result("cpc", "CPC", cpc, fmt.Sprintf("$%.2f", cpc), trend, nil), nil
}

// calculateCTR 点击率 = 总点击 / 总曝光 * 100
func (s *Service) calculateCTR(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	var rows []struct {
		Clicks      int64
		Impressions int64
	}
	err := s.db.WithContext(ctx).Model(&models.CampaignMetric{}).
		Select("clicks, impressions").Where("user_id = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	var totalClicks, totalImpressions int64
	for _, row := range rows {
		totalClicks += row.Clicks
		totalImpressions += row.Impressions
	}
	ctr := ratio(float64(totalClicks), float64(totalImpressions)) * 100

	trend := "down"
	if ctr > 3 {
		trend = "up"
	} else if ctr > 2 {
		trend = "stable"
	}

	return s.result("ctr", "CTR", ctr, fmt.Sprintf("%.1f%%", ctr), trend, nil), nil
}

// calculateConversionRate 转化率 = 总转化 / 总点击 * 100
func (s *Service) calculateConversionRate(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	var rows []struct {
		Conversions int64
		Clicks      int64
	}
	err := s.db.WithContext(ctx).Model(&models.CampaignMetric{}).
		Select("conversions, clicks").Where("user_id = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	var totalConversions, totalClicks int64
	for _, row := range rows {
		totalConversions += row.Conversions
		totalClicks += row.Clicks
	}
	rate := ratio(float64(totalConversions), float64(totalClicks)) * 100

	trend := "down"
	if rate > 3 {
		trend = "up"
	} else if rate > 2 {
		trend = "stable"
	}

	return s.result("conversion_rate", "Conversion Rate", rate, fmt.Sprintf("%.1f%%", rate), trend, nil), nil
}

// calculateCPL 单线索成本 = 总花费 / 总转化
func (s *Service) calculateCPL(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	var rows []struct {
		Spend       float64
		Conversions int64
	}
	err := s.db.WithContext(ctx).Model(&models.CampaignMetric{}).
		Select("spend, conversions").Where("user_id = ?", userID).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	var totalSpend float64
	var totalConversions int64
	for _, row := range rows {
		totalSpend += row.Spend
		totalConversions += row.Conversions
	}
	cpl := ratio(totalSpend, float64(totalConversions))

	trend := "down"
	if cpl < 25 {
		trend = "up"
	} else if cpl < 50 {
		trend = "stable"
	}

	return s.result("cpl", "Cost Per Lead", cpl, fmt.Sprintf("$%.2f", cpl), trend, nil), nil
}

// calculateTotalRevenue 总收入
func (s *Service) calculateTotalRevenue(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	total, err := s.sumCampaignColumn(ctx, userID, "revenue")
	if err != nil {
		return nil, err
	}

	trend := "down"
	if total > 10000 {
		trend = "up"
	} else if total > 5000 {
		trend = "stable"
	}

	return s.result("total_revenue", "Total Revenue", total, "$"+Grouped(total), trend, nil), nil
}

// calculateTotalSpend 总广告花费，花费走向取决于投放策略，趋势恒为stable
func (s *Service) calculateTotalSpend(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	total, err := s.sumCampaignColumn(ctx, userID, "spend")
	if err != nil {
		return nil, err
	}

	return s.result("total_spend", "Total Ad Spend", total, "$"+Grouped(total), "stable", nil), nil
}

// calculateTotalImpressions 总曝光量
func (s *Service) calculateTotalImpressions(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	total, err := s.sumCampaignColumn(ctx, userID, "impressions")
	if err != nil {
		return nil, err
	}

	trend := "down"
	if total > 1000000 {
		trend = "up"
	} else if total > 500000 {
		trend = "stable"
	}

	return s.result("total_impressions", "Total Impressions", total, Grouped(total), trend, nil), nil
}

// calculateTotalClicks 总点击量
func (s *Service) calculateTotalClicks(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	total, err := s.sumCampaignColumn(ctx, userID, "clicks")
	if err != nil {
		return nil, err
	}

	trend := "down"
	if total > 10000 {
		trend = "up"
	} else if total > 5000 {
		trend = "stable"
	}

	return s.result("total_clicks", "Total Clicks", total, Grouped(total), trend, nil), nil
}

// calculateAvgResponseTime 7天出站消息平均响应时长（分钟）
func (s *Service) calculateAvgResponseTime(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	since := s.now().AddDate(0, 0, -windowShortDays)

	var rows []models.UnifiedMessage
	err := s.db.WithContext(ctx).Model(&models.UnifiedMessage{}).
		Select("timestamp, created_at").
		Where("user_id = ? AND direction = ? AND created_at >= ?", userID, "outbound", since).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	var totalMinutes float64
	for _, row := range rows {
		minutes := row.Timestamp.Sub(row.CreatedAt).Minutes()
		if minutes < 0 {
			minutes = 0
		}
		totalMinutes += minutes
	}
	avg := ratio(totalMinutes, float64(len(rows)))

	trend := "down"
	if avg < 10 {
		trend = "up"
	} else if avg < 20 {
		trend = "stable"
	}

	return s.result("avg_response_time", "Avg Response Time", avg, fmt.Sprintf("%.1f min", avg), trend, nil), nil
}

// calculateMessageVolume 30天全渠道消息量，附平台分布
func (s *Service) calculateMessageVolume(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	since := s.now().AddDate(0, 0, -windowLongDays)

	var platforms []string
	err := s.db.WithContext(ctx).Model(&models.UnifiedMessage{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Pluck("platform", &platforms).Error
	if err != nil {
		return nil, err
	}

	total := len(platforms)
	breakdown := models.JSONBFloatMap{}
	for _, platform := range platforms {
		breakdown[platform]++
	}

	trend := "down"
	if total > 1000 {
		trend = "up"
	} else if total > 500 {
		trend = "stable"
	}

	return s.result("message_volume", "Message Volume", float64(total), Grouped(float64(total)), trend, breakdown), nil
}

// calculateResponseRate 7天回复率 = 出站消息数 / 入站消息数 * 100，展示值封顶100
func (s *Service) calculateResponseRate(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	since := s.now().AddDate(0, 0, -windowShortDays)

	var directions []string
	err := s.db.WithContext(ctx).Model(&models.UnifiedMessage{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Pluck("direction", &directions).Error
	if err != nil {
		return nil, err
	}

	var inbound, outbound float64
	for _, direction := range directions {
		switch direction {
		case "inbound":
			inbound++
		case "outbound":
			outbound++
		}
	}
	rate := ratio(outbound, inbound) * 100

	trend := "down"
	if rate > 90 {
		trend = "up"
	} else if rate > 75 {
		trend = "stable"
	}

	displayRate := rate
	if displayRate > 100 {
		displayRate = 100
	}

	return s.result("response_rate", "Response Rate", rate, fmt.Sprintf("%.1f%%", displayRate), trend, nil), nil
}

// calculateSatisfactionScore 客户满意度
// 评分数据源尚未接入，维持固定样例值4.3（与线上行为一致）
func (s *Service) calculateSatisfactionScore(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	return s.result("satisfaction_score", "Customer Satisfaction", 4.3, "4.3/5", "up", nil), nil
}

// calculateActiveConversations 进行中会话数
func (s *Service) calculateActiveConversations(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.CRMConversation{}).
		Where("user_id = ? AND status = ?", userID, "active").
		Count(&count).Error
	if err != nil {
		return nil, err
	}

	trend := "down"
	if count > 50 {
		trend = "up"
	} else if count > 20 {
		trend = "stable"
	}

	return s.result("active_conversations", "Active Conversations", float64(count), strconv.FormatInt(count, 10), trend, nil), nil
}

// calculateCustomerLTV 客户生命周期价值 = 有消费客户的平均消费额
func (s *Service) calculateCustomerLTV(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	var spents []float64
	err := s.db.WithContext(ctx).Model(&models.CRMContact{}).
		Where("user_id = ? AND total_spent > 0", userID).
		Pluck("total_spent", &spents).Error
	if err != nil {
		return nil, err
	}

	var total float64
	for _, spent := range spents {
		total += spent
	}
	avg := ratio(total, float64(len(spents)))

	trend := "down"
	if avg > 150 {
		trend = "up"
	} else if avg > 100 {
		trend = "stable"
	}

	return s.result("customer_ltv", "Customer LTV", avg, fmt.Sprintf("$%.2f", avg), trend, nil), nil
}

// calculateNewContacts 30天新增客户数
func (s *Service) calculateNewContacts(ctx context.Context, userID string) (*models.CalculatedKPI, error) {
	since := s.now().AddDate(0, 0, -windowLongDays)

	var count int64
	err := s.db.WithContext(ctx).Model(&models.CRMContact{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	if err != nil {
		return nil, err
	}

	trend := "down"
	if count > 50 {
		trend = "up"
	} else if count > 20 {
		trend = "stable"
	}

	return s.result("new_contacts", "New Contacts", float64(count), strconv.FormatInt(count, 10), trend, nil), nil
}

// sumCampaignColumn 对campaign_metrics单列求和
func (s *Service) sumCampaignColumn(ctx context.Context, userID, column string) (float64, error) {
	var values []float64
	err := s.db.WithContext(ctx).Model(&models.CampaignMetric{}).
		Where("user_id = ?", userID).
		Pluck(column, &values).Error
	if err != nil {
		return 0, err
	}

	var total float64
	for _, value := range values {
		total += value
	}
	return total, nil
}

// ratio 分母为0时取0，绝不产生NaN/Inf
func ratio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}

func (s *Service) result(name, displayName string, value float64, formatted, trend string, breakdown models.JSONBFloatMap) *models.CalculatedKPI {
	return &models.CalculatedKPI{
		KPIID:             name,
		Name:              name,
		DisplayName:       displayName,
		Value:             value,
		FormattedValue:    formatted,
		Trend:             trend,
		LastUpdated:       s.now(),
		PlatformBreakdown: breakdown,
	}
}
