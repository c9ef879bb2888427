/*
 * @module service/kpi/kpi_service
 * @description 指标库业务逻辑服务，提供指标定义与分类的CRUD和查询过滤
 * @architecture 分层架构 - 业务服务层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 指标定义生命周期管理，删除为软删除(is_active=false)
 * @rules 系统指标只读；自定义指标仅创建者可修改或删除；列表按热度降序
 * @dependencies kpihub-service/service/models, gorm.io/gorm
 * @refs api/controllers/kpi_controller.go
 */

package kpi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"kpihub-service/service/models"

	"gorm.io/gorm"
)

// KPIService 指标库服务
type KPIService struct {
	db *gorm.DB
}

// NewKPIService 创建指标库服务实例
func NewKPIService(db *gorm.DB) *KPIService {
	return &KPIService{db: db}
}

// ListOptions 指标库查询过滤条件
type ListOptions struct {
	Category string
	Platform string
	Search   string
	Popular  bool
	Limit    int
}

// ListKPIs 查询指标库，按热度降序
func (s *KPIService) ListKPIs(ctx context.Context, opts ListOptions) ([]models.KPI, error) {
	if opts.Limit <= 0 {
		opts.Limit = 50
	}

	query := s.db.WithContext(ctx).Model(&models.KPI{}).
		Where("is_active = ?", true).
		Order("popularity_score DESC").
		Limit(opts.Limit)

	if opts.Category != "" {
		query = query.Where("category = ?", opts.Category)
	}
	if opts.Popular {
		query = query.Where("popularity_score >= ?", 0.7)
	}

	var kpis []models.KPI
	if err := query.Find(&kpis).Error; err != nil {
		return nil, err
	}

	// 平台与关键字过滤落在数组/多字段上，在内存中完成以保持数据库无关
	filtered := make([]models.KPI, 0, len(kpis))
	for _, kpi := range kpis {
		if opts.Platform != "" && !kpi.SupportedPlatforms.Contains(opts.Platform) {
			continue
		}
		if opts.Search != "" && !matchesSearch(&kpi, opts.Search) {
			continue
		}
		filtered = append(filtered, kpi)
	}
	return filtered, nil
}

// matchesSearch 在显示名、描述与标签上做不区分大小写的子串匹配
func matchesSearch(kpi *models.KPI, search string) bool {
	search = strings.ToLower(search)
	if strings.Contains(strings.ToLower(kpi.DisplayName), search) {
		return true
	}
	if strings.Contains(strings.ToLower(kpi.Description), search) {
		return true
	}
	for _, tag := range kpi.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

// GetKPI 按ID获取启用中的指标
func (s *KPIService) GetKPI(ctx context.Context, id string) (*models.KPI, error) {
	var kpi models.KPI
	err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", id, true).
		First(&kpi).Error
	if err != nil {
		return nil, ErrKPINotFound
	}
	return &kpi, nil
}

// CreateKPI 创建自定义指标
func (s *KPIService) CreateKPI(ctx context.Context, userID string, kpi *models.KPI) error {
	if kpi.Name == "" || kpi.DisplayName == "" || kpi.Category == "" || kpi.DataSourceTable == "" {
		return fmt.Errorf("%w: name, display_name, category, data_source_table", ErrValidation)
	}

	if kpi.CalculationType == "" {
		kpi.CalculationType = "direct"
	}
	if kpi.FormatType == "" {
		kpi.FormatType = "number"
	}
	if kpi.DecimalPlaces == 0 {
		kpi.DecimalPlaces = 2
	}
	if kpi.DefaultChartType == "" {
		kpi.DefaultChartType = "line"
	}
	if kpi.ChartColor == "" {
		kpi.ChartColor = "#3B82F6"
	}
	kpi.RequiredPlatforms = models.JSONBStringArray{}
	kpi.IsSystem = false
	kpi.IsActive = true
	kpi.UsageCount = 0
	kpi.PopularityScore = 0
	kpi.CreatedBy = userID

	return s.db.WithContext(ctx).Create(kpi).Error
}

// UpdateKPI 更新自定义指标，系统指标与他人指标拒绝
func (s *KPIService) UpdateKPI(ctx context.Context, userID, id string, updates map[string]interface{}) (*models.KPI, error) {
	existing, err := s.findForWrite(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	updates["updated_at"] = time.Now()
	if err := s.db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
		return nil, err
	}

	var updated models.KPI
	if err := s.db.WithContext(ctx).First(&updated, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// DeleteKPI 软删除自定义指标
func (s *KPIService) DeleteKPI(ctx context.Context, userID, id string) error {
	existing, err := s.findForWrite(ctx, userID, id)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Model(existing).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error
}

// findForWrite 获取指标并校验写权限
func (s *KPIService) findForWrite(ctx context.Context, userID, id string) (*models.KPI, error) {
	var existing models.KPI
	if err := s.db.WithContext(ctx).First(&existing, "id = ?", id).Error; err != nil {
		return nil, ErrKPINotFound
	}
	if existing.IsSystem {
		return nil, ErrSystemKPIReadOnly
	}
	if existing.CreatedBy != userID {
		return nil, ErrNotOwner
	}
	return &existing, nil
}

// ListCategories 查询启用中的指标分类，按排序号升序
func (s *KPIService) ListCategories(ctx context.Context) ([]models.KPICategory, error) {
	var categories []models.KPICategory
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("sort_order ASC").
		Find(&categories).Error
	return categories, err
}

// IncrementUsage 指标被加入看板时累计使用次数
func (s *KPIService) IncrementUsage(ctx context.Context, kpiID string) error {
	return s.db.WithContext(ctx).Model(&models.KPI{}).
		Where("id = ?", kpiID).
		UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
}
