/*
 * @module service/models/voice
 * @description 语音合成使用记录模型
 * @architecture DDD领域驱动设计 - 实体模型
 * @documentReference dev_docs/model.md
 * @stateFlow 每次合成调用落一条使用记录
 * @rules 只存密钥指纹（bcrypt哈希），永不存储明文密钥
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/voice/voice_service.go
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VoiceUsageRecord 语音合成使用记录
type VoiceUsageRecord struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID         string    `json:"user_id" gorm:"not null;size:100;index"`
	Provider       string    `json:"provider" gorm:"not null;size:20"` // elevenlabs, sarvam
	VoiceID        string    `json:"voice_id" gorm:"size:100"`
	TextLength     int       `json:"text_length" gorm:"not null;default:0"`
	KeyFingerprint string    `json:"-" gorm:"size:100"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (v *VoiceUsageRecord) BeforeCreate(tx *gorm.DB) error {
	if v.ID == "" {
		v.ID = uuid.New().String()
	}
	return nil
}
