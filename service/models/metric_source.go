/*
 * @module service/models/metric_source
 * @description 指标计算的数据源行模型：投放指标、统一消息、客服会话、客户档案
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/model.md
 * @stateFlow 由各渠道集成写入，指标计算层只读聚合
 * @rules 所有行均按user_id隔离，计算层永远带用户过滤
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/calculation/calculator.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CampaignMetric 广告投放指标行
type CampaignMetric struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string    `json:"user_id" gorm:"not null;size:100;index"`
	CampaignID  string    `json:"campaign_id" gorm:"size:100;index"`
	Platform    string    `json:"platform" gorm:"size:50;index"`
	Revenue     float64   `json:"revenue" gorm:"not null;default:0"`
	Spend       float64   `json:"spend" gorm:"not null;default:0"`
	Impressions int64     `json:"impressions" gorm:"not null;default:0"`
	Clicks      int64     `json:"clicks" gorm:"not null;default:0"`
	Conversions int64     `json:"conversions" gorm:"not null;default:0"`
	MetricDate  time.Time `json:"metric_date"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// UnifiedMessage 全渠道统一消息行
type UnifiedMessage struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"not null;size:100;index"`
	Platform  string    `json:"platform" gorm:"not null;size:50;index"`
	Direction string    `json:"direction" gorm:"not null;size:10;index"` // inbound, outbound
	Content   string    `json:"content" gorm:"size:4000"`
	Timestamp time.Time `json:"timestamp"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
}

// CRMConversation 客服会话行
type CRMConversation struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"not null;size:100;index"`
	ContactID string    `json:"contact_id" gorm:"size:36;index"`
	Platform  string    `json:"platform" gorm:"size:50"`
	Status    string    `json:"status" gorm:"not null;default:'active';size:20;index"` // active, closed, archived
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// CRMContact 客户档案行
type CRMContact struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID     string    `json:"user_id" gorm:"not null;size:100;index"`
	Name       string    `json:"name" gorm:"size:255"`
	Platform   string    `json:"platform" gorm:"size:50"`
	TotalSpent float64   `json:"total_spent" gorm:"not null;default:0"`
	CreatedAt  time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt  time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// UserIntegration 用户已连接的渠道平台
type UserIntegration struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID    string    `json:"user_id" gorm:"not null;size:100;index"`
	Platform  string    `json:"platform" gorm:"not null;size:50"`
	Status    string    `json:"status" gorm:"not null;default:'connected';size:20"` // connected, disconnected
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (m *CampaignMetric) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

func (m *UnifiedMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}

func (c *CRMConversation) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (c *CRMContact) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}

func (i *UserIntegration) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	return nil
}
