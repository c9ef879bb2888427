/*
 * @module service/ingestion/mqtt_source
 * @description MQTT消息桥，订阅全渠道消息主题并落unified_messages表
 * @architecture 事件驱动架构 - 消费者
 * @documentReference dev_docs/requirements.md
 * @stateFlow 连接broker -> 订阅主题 -> 消息解析 -> 落库
 * @rules 通过MQTT_BROKER_URL启用；解析失败的消息丢弃并记日志；断线自动重连
 * @dependencies github.com/eclipse/paho.mqtt.golang
 * @refs service/models/metric_source.go, service/init.go
 */

package ingestion

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"kpihub-service/service/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"gorm.io/gorm"
)

const (
	messageTopic   = "kpihub/messages/#"
	mqttQoS        = 1
	connectTimeout = 10 * time.Second
)

// inboundMessage MQTT消息体
type inboundMessage struct {
	UserID    string     `json:"user_id"`
	Platform  string     `json:"platform"`
	Direction string     `json:"direction"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp"`
}

// MQTTSource MQTT消息桥
type MQTTSource struct {
	db     *gorm.DB
	client mqtt.Client
}

// NewMQTTSourceFromEnv 按MQTT_BROKER_URL创建消息桥，未配置返回nil
func NewMQTTSourceFromEnv(db *gorm.DB) *MQTTSource {
	brokerURL := os.Getenv("MQTT_BROKER_URL")
	if brokerURL == "" {
		return nil
	}

	source := &MQTTSource{db: db}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL)
	opts.SetClientID(fmt.Sprintf("kpihub-service-%d", time.Now().UnixNano()))
	opts.SetConnectTimeout(connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		slog.Warn("MQTT连接断开", "error", err)
	})
	opts.SetOnConnectHandler(func(client mqtt.Client) {
		// 重连后需要重新订阅
		if token := client.Subscribe(messageTopic, mqttQoS, source.handleMessage); token.Wait() && token.Error() != nil {
			slog.Error("MQTT订阅失败", "topic", messageTopic, "error", token.Error())
			return
		}
		slog.Info("MQTT消息桥已订阅", "topic", messageTopic)
	})

	if username := os.Getenv("MQTT_USERNAME"); username != "" {
		opts.SetUsername(username)
		opts.SetPassword(os.Getenv("MQTT_PASSWORD"))
	}

	source.client = mqtt.NewClient(opts)
	return source
}

// Start 连接broker，订阅在OnConnect回调中完成
func (s *MQTTSource) Start() error {
	if s == nil {
		return nil
	}
	if token := s.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT连接失败: %w", token.Error())
	}
	return nil
}

// Stop 断开连接
func (s *MQTTSource) Stop() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Disconnect(250)
}

// handleMessage 解析消息并落unified_messages表
func (s *MQTTSource) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var inbound inboundMessage
	if err := json.Unmarshal(msg.Payload(), &inbound); err != nil {
		slog.Warn("MQTT消息解析失败", "topic", msg.Topic(), "error", err)
		return
	}
	if inbound.UserID == "" || inbound.Platform == "" {
		slog.Warn("MQTT消息缺少必填字段", "topic", msg.Topic())
		return
	}

	record := models.UnifiedMessage{
		UserID:    inbound.UserID,
		Platform:  inbound.Platform,
		Direction: inbound.Direction,
		Content:   inbound.Content,
	}
	if inbound.Timestamp != nil {
		record.Timestamp = *inbound.Timestamp
	} else {
		record.Timestamp = time.Now()
	}

	if err := s.db.Create(&record).Error; err != nil {
		slog.Error("全渠道消息落库失败", "platform", inbound.Platform, "error", err)
	}
}
