/*
 * @module service/ingestion/pg_listener
 * @description PostgreSQL变更监听器，指标数据表有新写入时失效对应用户的计算缓存
 * @architecture 事件驱动架构 - 数据库通知消费者
 * @documentReference dev_docs/requirements.md
 * @stateFlow LISTEN kpihub_metric_changes -> 解析通知 -> 按用户失效计算缓存
 * @rules 通知体必须含user_id；监听器断开由lib/pq自动重连
 * @dependencies github.com/lib/pq
 * @refs service/calculation/cache.go, service/init.go
 */

package ingestion

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"kpihub-service/service/calculation"

	"github.com/lib/pq"
)

const metricChangeChannel = "kpihub_metric_changes"

// metricChange 数据库通知体
type metricChange struct {
	Table  string `json:"table"`
	UserID string `json:"user_id"`
}

// MetricChangeListener PostgreSQL变更监听器
type MetricChangeListener struct {
	listener *pq.Listener
	cache    *calculation.Cache
	cancel   context.CancelFunc
}

// NewMetricChangeListener 创建变更监听器
func NewMetricChangeListener(connStr string, cache *calculation.Cache) *MetricChangeListener {
	listener := pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("PostgreSQL监听器事件", "event", ev, "error", err)
		}
	})

	return &MetricChangeListener{listener: listener, cache: cache}
}

// Start 开始监听变更通知
func (l *MetricChangeListener) Start() error {
	if err := l.listener.Listen(metricChangeChannel); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	go l.run(ctx)

	slog.Info("指标变更监听器已启动", "channel", metricChangeChannel)
	return nil
}

// Stop 停止监听
func (l *MetricChangeListener) Stop() {
	if l.cancel != nil {
		l.cancel()
	}
	if l.listener != nil {
		l.listener.Close()
	}
}

func (l *MetricChangeListener) run(ctx context.Context) {
	for {
		select {
		case notification := <-l.listener.Notify:
			if notification != nil {
				l.handle(ctx, notification)
			}
		case <-time.After(90 * time.Second):
			// 长时间无通知时校验连接
			go l.listener.Ping()
		case <-ctx.Done():
			slog.Info("指标变更监听器已停止")
			return
		}
	}
}

func (l *MetricChangeListener) handle(ctx context.Context, notification *pq.Notification) {
	var change metricChange
	if err := json.Unmarshal([]byte(notification.Extra), &change); err != nil {
		slog.Warn("变更通知解析失败", "error", err)
		return
	}
	if change.UserID == "" {
		return
	}

	l.cache.InvalidateUser(ctx, change.UserID)
	slog.Debug("计算缓存已失效", "table", change.Table, "user_id", change.UserID)
}
