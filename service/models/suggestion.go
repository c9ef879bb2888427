/*
 * @module service/models/suggestion
 * @description 指标推荐模型定义，系统生成的看板指标推荐记录
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/model.md
 * @stateFlow 用户动作状态机: pending -> accepted | dismissed | ignored（终态，不可回退）
 * @rules 推荐带置信度与过期时间，接受推荐会联动创建看板指标记录
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/kpi/suggestion_service.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 推荐用户动作常量
const (
	SuggestionActionPending   = "pending"
	SuggestionActionAccepted  = "accepted"
	SuggestionActionDismissed = "dismissed"
	SuggestionActionIgnored   = "ignored"
)

// KPISuggestion 指标推荐模型
type KPISuggestion struct {
	ID                  string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID              string     `json:"user_id" gorm:"not null;size:100;index"`
	KPIID               string     `json:"kpi_id" gorm:"not null;type:varchar(36);index"`
	SuggestionReason    string     `json:"suggestion_reason" gorm:"not null;size:100"` // trending_kpi, new_platform_connected
	ConfidenceScore     float64    `json:"confidence_score" gorm:"not null;default:0"`
	Priority            int        `json:"priority" gorm:"not null;default:1"`
	CurrentValue        *float64   `json:"current_value,omitempty"`
	TrendDirection      string     `json:"trend_direction,omitempty" gorm:"size:10"` // up, down, stable
	ChangePercentage    *float64   `json:"change_percentage,omitempty"`
	BenchmarkComparison string     `json:"benchmark_comparison,omitempty" gorm:"size:255"`
	UserAction          string     `json:"user_action" gorm:"not null;default:'pending';size:20;index"`
	ActedAt             *time.Time `json:"acted_at,omitempty"`
	ExpiresAt           *time.Time `json:"expires_at,omitempty"`
	IsActive            bool       `json:"is_active" gorm:"not null;default:true;index"`
	CreatedAt           time.Time  `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time  `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	// 关联关系
	KPI KPI `json:"kpi,omitempty" gorm:"foreignKey:KPIID"`
}

// IsTerminal 判断用户动作是否已进入终态
func (s *KPISuggestion) IsTerminal() bool {
	return s.UserAction != SuggestionActionPending
}

// BeforeCreate GORM钩子，创建前生成UUID
func (s *KPISuggestion) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	return nil
}
