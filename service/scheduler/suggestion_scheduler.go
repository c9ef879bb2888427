/*
 * @module service/scheduler/suggestion_scheduler
 * @description 推荐过期调度器，定时把超过有效期的待处理推荐置为失效
 * @architecture 分层架构 - 后台调度层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 服务启动 -> cron注册 -> 每小时执行过期清理 -> 服务停止时Stop
 * @rules 清理失败只记日志，下个周期重试
 * @dependencies github.com/robfig/cron/v3
 * @refs service/kpi/suggestion_service.go
 */

package scheduler

import (
	"context"
	"log/slog"
	"time"

	"kpihub-service/service/kpi"

	"github.com/robfig/cron/v3"
)

// SuggestionScheduler 推荐过期调度器
type SuggestionScheduler struct {
	cron        *cron.Cron
	suggestions *kpi.SuggestionService
}

// NewSuggestionScheduler 创建推荐过期调度器
func NewSuggestionScheduler(suggestions *kpi.SuggestionService) *SuggestionScheduler {
	return &SuggestionScheduler{
		cron:        cron.New(cron.WithSeconds()),
		suggestions: suggestions,
	}
}

// Start 注册任务并启动调度器
func (s *SuggestionScheduler) Start() error {
	// 每小时整点清理过期推荐
	if _, err := s.cron.AddFunc("0 0 * * * *", s.expireStale); err != nil {
		return err
	}
	s.cron.Start()
	slog.Info("推荐过期调度器已启动")
	return nil
}

// Stop 停止调度器
func (s *SuggestionScheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *SuggestionScheduler) expireStale() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := s.suggestions.ExpireStale(ctx)
	if err != nil {
		slog.Error("过期推荐清理失败", "error", err)
		return
	}
	if count > 0 {
		slog.Info("过期推荐已失效", "count", count)
	}
}
