/*
 * @module service/kpi/suggestion_service
 * @description 指标推荐业务逻辑：生成、查询、用户动作状态机、过期清理
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/requirements.md
 * @stateFlow pending -> accepted | dismissed | ignored（终态）；接受时联动落看板行
 * @rules 热门推荐置信度0.8优先级2，平台匹配推荐置信度0.9优先级3，7天过期；接受动作幂等，重复看板行冲突吞掉
 * @dependencies kpihub-service/service/models, gorm.io/gorm
 * @refs api/controllers/suggestion_controller.go, service/scheduler/suggestion_scheduler.go
 */

package kpi

import (
	"context"
	"log/slog"
	"time"

	"kpihub-service/service/models"

	"gorm.io/gorm"
)

// 推荐生成参数
const (
	popularSuggestionLimit  = 5
	platformSuggestionLimit = 3
	popularityThreshold     = 0.7
	popularConfidence       = 0.8
	platformConfidence      = 0.9
	suggestionExpiryDays    = 7
	defaultSuggestionLimit  = 10
	reasonTrendingKPI       = "trending_kpi"
	reasonPlatformConnected = "new_platform_connected"
)

// SuggestionService 指标推荐服务
type SuggestionService struct {
	db *gorm.DB
}

// NewSuggestionService 创建指标推荐服务实例
func NewSuggestionService(db *gorm.DB) *SuggestionService {
	return &SuggestionService{db: db}
}

// List 查询用户推荐，按优先级与置信度降序
// activeOnly时只返回 is_active 且 pending 且未过期的记录
func (s *SuggestionService) List(ctx context.Context, userID string, activeOnly bool, limit int) ([]models.KPISuggestion, error) {
	if limit <= 0 {
		limit = defaultSuggestionLimit
	}

	query := s.db.WithContext(ctx).Preload("KPI").
		Where("user_id = ?", userID).
		Order("priority DESC").Order("confidence_score DESC").
		Limit(limit)

	if activeOnly {
		query = query.
			Where("is_active = ?", true).
			Where("user_action = ?", models.SuggestionActionPending).
			Where("expires_at IS NULL OR expires_at > ?", time.Now())
	}

	var suggestions []models.KPISuggestion
	err := query.Find(&suggestions).Error
	return suggestions, err
}

// Generate 为用户生成新推荐：最多5个热门指标 + 最多3个平台匹配指标，排除已在看板上的
func (s *SuggestionService) Generate(ctx context.Context, userID string) ([]models.KPISuggestion, error) {
	existingIDs, err := s.dashboardKPIIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	connectedPlatforms, err := s.connectedPlatforms(ctx, userID)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().AddDate(0, 0, suggestionExpiryDays)
	picked := map[string]bool{}
	var suggestions []models.KPISuggestion

	// 热门指标推荐
	popular, err := s.candidateKPIs(ctx, existingIDs, true, popularSuggestionLimit)
	if err != nil {
		return nil, err
	}
	for _, kpi := range popular {
		picked[kpi.ID] = true
		suggestions = append(suggestions, models.KPISuggestion{
			UserID:           userID,
			KPIID:            kpi.ID,
			SuggestionReason: reasonTrendingKPI,
			ConfidenceScore:  popularConfidence,
			Priority:         2,
			ExpiresAt:        &expiresAt,
			UserAction:       models.SuggestionActionPending,
			IsActive:         true,
		})
	}

	// 平台匹配指标推荐
	if len(connectedPlatforms) > 0 {
		candidates, err := s.candidateKPIs(ctx, existingIDs, false, 0)
		if err != nil {
			return nil, err
		}
		count := 0
		for _, kpi := range candidates {
			if count >= platformSuggestionLimit {
				break
			}
			if picked[kpi.ID] || !overlaps(kpi.SupportedPlatforms, connectedPlatforms) {
				continue
			}
			picked[kpi.ID] = true
			count++
			suggestions = append(suggestions, models.KPISuggestion{
				UserID:           userID,
				KPIID:            kpi.ID,
				SuggestionReason: reasonPlatformConnected,
				ConfidenceScore:  platformConfidence,
				Priority:         3,
				ExpiresAt:        &expiresAt,
				UserAction:       models.SuggestionActionPending,
				IsActive:         true,
			})
		}
	}

	if len(suggestions) == 0 {
		return []models.KPISuggestion{}, nil
	}

	if err := s.db.WithContext(ctx).Create(&suggestions).Error; err != nil {
		return nil, err
	}

	// 带KPI关联返回
	ids := make([]string, 0, len(suggestions))
	for _, suggestion := range suggestions {
		ids = append(ids, suggestion.ID)
	}
	var created []models.KPISuggestion
	err = s.db.WithContext(ctx).Preload("KPI").
		Where("id IN ?", ids).
		Order("priority DESC").Order("confidence_score DESC").
		Find(&created).Error
	return created, err
}

// Act 对推荐执行用户动作；接受时联动创建看板行，重复冲突吞掉保证幂等
func (s *SuggestionService) Act(ctx context.Context, userID, suggestionID, action string) (*models.KPISuggestion, error) {
	switch action {
	case models.SuggestionActionAccepted, models.SuggestionActionDismissed, models.SuggestionActionIgnored:
	default:
		return nil, ErrInvalidAction
	}

	var suggestion models.KPISuggestion
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", suggestionID, userID).
		First(&suggestion).Error
	if err != nil {
		return nil, ErrSuggestionNotFound
	}

	now := time.Now()
	err = s.db.WithContext(ctx).Model(&suggestion).Updates(map[string]interface{}{
		"user_action": action,
		"acted_at":    now,
		// 接受后保留active用于追踪，其余动作转为inactive
		"is_active": action == models.SuggestionActionAccepted,
	}).Error
	if err != nil {
		return nil, err
	}

	if action == models.SuggestionActionAccepted {
		entry := models.UserDashboardKPI{
			UserID:        userID,
			KPIID:         suggestion.KPIID,
			SizeWidth:     1,
			SizeHeight:    1,
			DateRange:     "30d",
			IsVisible:     true,
			AlertsEnabled: false,
			AlertEmail:    true,
		}
		if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil && !isDuplicateErr(err) {
			slog.Error("推荐接受后联动加入看板失败", "suggestion_id", suggestionID, "error", err)
		}
	}

	var updated models.KPISuggestion
	err = s.db.WithContext(ctx).Preload("KPI").
		First(&updated, "id = ?", suggestionID).Error
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete 删除推荐记录
func (s *SuggestionService) Delete(ctx context.Context, userID, suggestionID string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", suggestionID, userID).
		Delete(&models.KPISuggestion{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrSuggestionNotFound
	}
	return nil
}

// ExpireStale 将已过期且仍pending的推荐转为inactive，由定时任务调用
func (s *SuggestionService) ExpireStale(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Model(&models.KPISuggestion{}).
		Where("is_active = ? AND user_action = ? AND expires_at IS NOT NULL AND expires_at < ?",
			true, models.SuggestionActionPending, time.Now()).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}

func (s *SuggestionService) dashboardKPIIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.UserDashboardKPI{}).
		Where("user_id = ? AND is_visible = ?", userID, true).
		Pluck("kpi_id", &ids).Error
	return ids, err
}

func (s *SuggestionService) connectedPlatforms(ctx context.Context, userID string) ([]string, error) {
	var platforms []string
	err := s.db.WithContext(ctx).Model(&models.UserIntegration{}).
		Where("user_id = ? AND status = ?", userID, "connected").
		Pluck("platform", &platforms).Error
	return platforms, err
}

// candidateKPIs 查询可推荐的指标，排除已在看板上的
func (s *SuggestionService) candidateKPIs(ctx context.Context, excludeIDs []string, popularOnly bool, limit int) ([]models.KPI, error) {
	query := s.db.WithContext(ctx).Model(&models.KPI{}).
		Where("is_active = ?", true).
		Order("popularity_score DESC")

	if popularOnly {
		query = query.Where("popularity_score >= ?", popularityThreshold)
	}
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var kpis []models.KPI
	err := query.Find(&kpis).Error
	return kpis, err
}

// overlaps 判断两个平台集合是否相交
func overlaps(supported models.JSONBStringArray, connected []string) bool {
	for _, platform := range connected {
		if supported.Contains(platform) {
			return true
		}
	}
	return false
}
