/*
 * @module service/models/dashboard
 * @description 用户看板指标模型定义，绑定用户与指标的布局、展示覆盖和告警配置
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/model.md
 * @stateFlow 加入看板时创建，调整设置时更新，移除时删除
 * @rules (user_id, kpi_id) 组合唯一，冲突以409暴露给调用方
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/models/kpi.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserDashboardKPI 用户看板指标模型
type UserDashboardKPI struct {
	ID           string   `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID       string   `json:"user_id" gorm:"not null;size:100;uniqueIndex:idx_user_kpi"`
	KPIID        string   `json:"kpi_id" gorm:"not null;type:varchar(36);uniqueIndex:idx_user_kpi"`
	PositionX    int      `json:"position_x" gorm:"not null;default:0"`
	PositionY    int      `json:"position_y" gorm:"not null;default:0"`
	SizeWidth    int      `json:"size_width" gorm:"not null;default:1"`
	SizeHeight   int      `json:"size_height" gorm:"not null;default:1"`
	CustomName   string   `json:"custom_name,omitempty" gorm:"size:255"`
	CustomTarget *float64 `json:"custom_target,omitempty"`
	CustomColor  string   `json:"custom_color,omitempty" gorm:"size:20"`

	// 告警配置（声明字段，当前没有任何评估器消费）
	AlertsEnabled         bool     `json:"alerts_enabled" gorm:"not null;default:false"`
	AlertEmail            bool     `json:"alert_email" gorm:"not null;default:true"`
	AlertThresholdHigh    *float64 `json:"alert_threshold_high,omitempty"`
	AlertThresholdLow     *float64 `json:"alert_threshold_low,omitempty"`
	AlertChangePercentage *float64 `json:"alert_change_percentage,omitempty"`

	DateRange       string           `json:"date_range" gorm:"not null;default:'30d';size:10"` // 7d, 30d, 90d, 1y, custom
	CustomDateStart *time.Time       `json:"custom_date_start,omitempty"`
	CustomDateEnd   *time.Time       `json:"custom_date_end,omitempty"`
	PlatformFilter  JSONBStringArray `json:"platform_filter,omitempty" gorm:"type:jsonb"`
	IsVisible       bool             `json:"is_visible" gorm:"not null;default:true"`
	IsFavorite      bool             `json:"is_favorite" gorm:"not null;default:false"`
	LastViewedAt    *time.Time       `json:"last_viewed_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time        `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	// 关联关系
	KPI KPI `json:"kpi,omitempty" gorm:"foreignKey:KPIID"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (d *UserDashboardKPI) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	return nil
}
