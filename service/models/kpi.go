/*
 * @module service/models/kpi
 * @description KPI指标库相关模型定义，包括指标定义和指标分类
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/model.md
 * @stateFlow 指标定义生命周期管理，系统指标只读，自定义指标仅创建者可修改
 * @rules 遵循数据库设计规范，软删除通过is_active标记
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs dev_docs/requirements.md
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KPI 指标定义模型
type KPI struct {
	ID                 string           `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name               string           `json:"name" gorm:"not null;uniqueIndex;size:100"`
	DisplayName        string           `json:"display_name" gorm:"not null;size:255"`
	Description        string           `json:"description" gorm:"size:1000"`
	Category           string           `json:"category" gorm:"not null;size:50;index"` // performance, financial, messaging, customer
	DataSourceTable    string           `json:"data_source_table" gorm:"size:100"`
	DataSourceColumn   string           `json:"data_source_column" gorm:"size:100"`
	CalculationType    string           `json:"calculation_type" gorm:"not null;default:'direct';size:20"` // direct, calculated, aggregated, derived
	Formula            string           `json:"formula" gorm:"size:1000"`
	RequiredPlatforms  JSONBStringArray `json:"required_platforms" gorm:"type:jsonb"`
	SupportedPlatforms JSONBStringArray `json:"supported_platforms" gorm:"type:jsonb"`
	FormatType         string           `json:"format_type" gorm:"not null;default:'number';size:20"` // number, currency, percentage, duration, ratio
	DecimalPlaces      int              `json:"decimal_places" gorm:"not null;default:2"`
	Prefix             string           `json:"prefix" gorm:"size:10"`
	Suffix             string           `json:"suffix" gorm:"size:10"`
	DefaultChartType   string           `json:"default_chart_type" gorm:"not null;default:'line';size:20"` // line, bar, pie, doughnut, area, gauge
	ChartColor         string           `json:"chart_color" gorm:"size:20"`
	BenchmarkValue     float64          `json:"benchmark_value"`
	BenchmarkSource    string           `json:"benchmark_source" gorm:"size:255"`
	TargetDirection    string           `json:"target_direction" gorm:"not null;default:'higher';size:10"` // higher, lower, optimal
	OptimalRangeMin    *float64         `json:"optimal_range_min"`
	OptimalRangeMax    *float64         `json:"optimal_range_max"`
	IsSystem           bool             `json:"is_system" gorm:"not null;default:false"`
	Tags               JSONBStringArray `json:"tags" gorm:"type:jsonb"`
	Icon               string           `json:"icon" gorm:"size:50"`
	HelpText           string           `json:"help_text" gorm:"size:1000"`
	ExampleValue       string           `json:"example_value" gorm:"size:50"`
	UsageCount         int              `json:"usage_count" gorm:"not null;default:0"`
	PopularityScore    float64          `json:"popularity_score" gorm:"not null;default:0"`
	CreatedBy          string           `json:"created_by" gorm:"size:100;index"`
	IsActive           bool             `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt          time.Time        `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt          time.Time        `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// KPICategory 指标分类模型
type KPICategory struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"not null;unique;size:50"`
	DisplayName string    `json:"display_name" gorm:"not null;size:255"`
	Description string    `json:"description" gorm:"size:1000"`
	Icon        string    `json:"icon" gorm:"size:50"`
	Color       string    `json:"color" gorm:"size:20"`
	SortOrder   int       `json:"sort_order" gorm:"not null;default:0"`
	IsActive    bool      `json:"is_active" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// CalculatedKPI 指标计算结果（临时对象，按需计算不落库）
type CalculatedKPI struct {
	KPIID             string        `json:"kpi_id"`
	Name              string        `json:"name"`
	DisplayName       string        `json:"display_name"`
	Value             float64       `json:"value"`
	FormattedValue    string        `json:"formatted_value"`
	ChangePercentage  *float64      `json:"change_percentage,omitempty"`
	Trend             string        `json:"trend"` // up, down, stable
	LastUpdated       time.Time     `json:"last_updated"`
	PlatformBreakdown JSONBFloatMap `json:"platform_breakdown,omitempty"`
}

// BeforeCreate GORM钩子，创建前生成UUID
func (k *KPI) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.New().String()
	}
	return nil
}

func (c *KPICategory) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
