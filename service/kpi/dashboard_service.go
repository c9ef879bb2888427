/*
 * @module service/kpi/dashboard_service
 * @description 用户看板指标业务逻辑：加入、查询、调整、移除
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 加入看板创建join行，设置变更更新，移除删除
 * @rules 所有操作按调用方身份隔离；(user, kpi)唯一冲突以ErrDuplicateDashboardKPI暴露
 * @dependencies kpihub-service/service/models, gorm.io/gorm
 * @refs api/controllers/dashboard_controller.go
 */

package kpi

import (
	"context"
	"errors"
	"strings"
	"time"

	"kpihub-service/service/models"

	"gorm.io/gorm"
)

// DashboardService 用户看板指标服务
type DashboardService struct {
	db *gorm.DB
}

// NewDashboardService 创建看板指标服务实例
func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// DashboardListOptions 看板指标查询条件
type DashboardListOptions struct {
	VisibleOnly   bool
	FavoritesOnly bool
}

// List 查询用户看板指标，按布局位置排序
func (s *DashboardService) List(ctx context.Context, userID string, opts DashboardListOptions) ([]models.UserDashboardKPI, error) {
	query := s.db.WithContext(ctx).Preload("KPI").
		Where("user_id = ?", userID).
		Order("position_y ASC").Order("position_x ASC")

	if opts.VisibleOnly {
		query = query.Where("is_visible = ?", true)
	}
	if opts.FavoritesOnly {
		query = query.Where("is_favorite = ?", true)
	}

	var entries []models.UserDashboardKPI
	err := query.Find(&entries).Error
	return entries, err
}

// Add 将指标加入用户看板
// 指标不存在或已停用返回ErrKPINotFound；(user, kpi)重复返回ErrDuplicateDashboardKPI
func (s *DashboardService) Add(ctx context.Context, userID string, entry *models.UserDashboardKPI) (*models.UserDashboardKPI, error) {
	if entry.KPIID == "" {
		return nil, errors.New("kpi_id is required")
	}

	var target models.KPI
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", entry.KPIID, true).
		First(&target).Error
	if err != nil {
		return nil, ErrKPINotFound
	}

	entry.UserID = userID
	if entry.SizeWidth == 0 {
		entry.SizeWidth = 1
	}
	if entry.SizeHeight == 0 {
		entry.SizeHeight = 1
	}
	if entry.DateRange == "" {
		entry.DateRange = "30d"
	}
	entry.IsVisible = true
	entry.AlertsEnabled = false
	entry.AlertEmail = true

	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if isDuplicateErr(err) {
			return nil, ErrDuplicateDashboardKPI
		}
		return nil, err
	}

	return s.load(ctx, userID, entry.ID)
}

// Get 获取单条看板指标并更新最后查看时间
func (s *DashboardService) Get(ctx context.Context, userID, id string) (*models.UserDashboardKPI, error) {
	entry, err := s.load(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s.db.WithContext(ctx).Model(&models.UserDashboardKPI{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"last_viewed_at": now, "updated_at": now})

	return entry, nil
}

// Update 更新看板指标设置
func (s *DashboardService) Update(ctx context.Context, userID, id string, updates map[string]interface{}) (*models.UserDashboardKPI, error) {
	if _, err := s.load(ctx, userID, id); err != nil {
		return nil, err
	}

	updates["updated_at"] = time.Now()
	err := s.db.WithContext(ctx).Model(&models.UserDashboardKPI{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(updates).Error
	if err != nil {
		return nil, err
	}

	return s.load(ctx, userID, id)
}

// Remove 将指标移出看板
func (s *DashboardService) Remove(ctx context.Context, userID, id string) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.UserDashboardKPI{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrDashboardKPINotFound
	}
	return nil
}

func (s *DashboardService) load(ctx context.Context, userID, id string) (*models.UserDashboardKPI, error) {
	var entry models.UserDashboardKPI
	err := s.db.WithContext(ctx).Preload("KPI").
		Where("id = ? AND user_id = ?", id, userID).
		First(&entry).Error
	if err != nil {
		return nil, ErrDashboardKPINotFound
	}
	return &entry, nil
}

// isDuplicateErr 识别唯一约束冲突，兼容postgres(23505)与sqlite
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
