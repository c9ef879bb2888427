/*
 * @module service/ingestion/kafka_events
 * @description Kafka事件发布器，把指标计算与推荐事件发到事件总线
 * @architecture 事件驱动架构 - 生产者
 * @documentReference dev_docs/requirements.md
 * @stateFlow 业务事件 -> JSON编码 -> kafka.Writer异步写入
 * @rules 通过KAFKA_BROKERS启用；未配置时发布为空操作；发布失败只记日志
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/init.go
 */

package ingestion

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// 事件主题
const (
	TopicKPICalculated        = "kpihub.kpi.calculated"
	TopicSuggestionsGenerated = "kpihub.suggestions.generated"
)

// Event 事件结构
type Event struct {
	Type      string                 `json:"type"`
	UserID    string                 `json:"user_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// EventPublisher Kafka事件发布器
type EventPublisher struct {
	writer *kafka.Writer
}

// NewEventPublisherFromEnv 按KAFKA_BROKERS创建事件发布器，未配置返回nil
func NewEventPublisherFromEnv() *EventPublisher {
	raw := os.Getenv("KAFKA_BROKERS")
	if raw == "" {
		return nil
	}

	brokers := strings.Split(raw, ",")
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
		BatchTimeout: 100 * time.Millisecond,
	}

	slog.Info("Kafka事件发布器已启用", "brokers", brokers)
	return &EventPublisher{writer: writer}
}

// Publish 发布一个事件到指定主题
func (p *EventPublisher) Publish(ctx context.Context, topic string, event Event) {
	if p == nil || p.writer == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	value, err := json.Marshal(event)
	if err != nil {
		slog.Error("事件序列化失败", "topic", topic, "error", err)
		return
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.UserID),
		Value: value,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		slog.Error("事件发布失败", "topic", topic, "error", err)
	}
}

// Close 关闭底层writer
func (p *EventPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
