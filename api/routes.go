/*
 * @module api/routes
 * @description API路由配置模块，负责初始化和配置所有HTTP路由
 * @architecture RESTful API架构
 * @documentReference dev_docs/requirements.md
 * @stateFlow 无状态HTTP请求处理
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式；公开读与鉴权路由分组注册
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/cors, github.com/go-chi/render
 * @refs api/controllers, api/middleware
 */

package api

import (
	"kpihub-service/api/controllers"
	authmw "kpihub-service/api/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
)

// InitRoute 初始化所有API路由
func InitRoute(r *chi.Mux) {
	// 基础中间件
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	// CORS配置
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthController := controllers.NewHealthController()
	kpiController := controllers.NewKPIController()
	dashboardController := controllers.NewDashboardController()
	suggestionController := controllers.NewSuggestionController()
	calculationController := controllers.NewCalculationController()
	voiceController := controllers.NewVoiceController()

	// 公开路由（不需要鉴权）
	r.Group(func(r chi.Router) {
		r.Get("/health", healthController.Health)
		r.Get("/ready", healthController.Ready)

		// 指标库为公开数据
		r.Get("/api/kpis", kpiController.ListKPIs)
		r.Get("/api/kpis/categories", kpiController.ListCategories)
	})

	// 鉴权路由
	r.Group(func(r chi.Router) {
		auth := authmw.NewAuthMiddleware()
		r.Use(auth.Middleware)

		// 指标库写操作与详情
		r.Post("/api/kpis", kpiController.CreateKPI)
		r.Get("/api/kpis/{id}", kpiController.GetKPI)
		r.Put("/api/kpis/{id}", kpiController.UpdateKPI)
		r.Delete("/api/kpis/{id}", kpiController.DeleteKPI)

		// 用户看板
		r.Get("/api/kpis/dashboard", dashboardController.ListDashboardKPIs)
		r.Post("/api/kpis/dashboard", dashboardController.AddDashboardKPI)
		r.Get("/api/kpis/dashboard/{id}", dashboardController.GetDashboardKPI)
		r.Put("/api/kpis/dashboard/{id}", dashboardController.UpdateDashboardKPI)
		r.Delete("/api/kpis/dashboard/{id}", dashboardController.RemoveDashboardKPI)

		// 指标推荐
		r.Get("/api/kpis/suggestions", suggestionController.ListSuggestions)
		r.Post("/api/kpis/suggestions", suggestionController.GenerateSuggestions)
		r.Put("/api/kpis/suggestions/{id}", suggestionController.ActOnSuggestion)
		r.Delete("/api/kpis/suggestions/{id}", suggestionController.DeleteSuggestion)

		// 指标计算
		r.Get("/api/kpis/calculate", calculationController.CalculateBatch)
		r.Post("/api/kpis/calculate", calculationController.CalculateOne)

		// 语音合成
		r.Get("/api/voice/config", voiceController.GetVoiceConfig)
		r.Post("/api/voice/synthesize", voiceController.Synthesize)
	})
}
