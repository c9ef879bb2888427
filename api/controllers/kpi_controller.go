/*
 * @module api/controllers/kpi_controller
 * @description KPI指标库控制器，提供指标库查询与自定义指标CRUD
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/requirements.md
 * @stateFlow HTTP请求 -> 参数解析 -> 业务服务调用 -> JSON响应
 * @rules 系统指标只读；自定义指标只有创建者可改；错误响应统一{error}结构
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render, github.com/spf13/cast
 * @refs service/kpi/kpi_service.go
 */

package controllers

import (
	"net/http"

	"kpihub-service/api/middleware"
	"kpihub-service/service"
	"kpihub-service/service/kpi"
	"kpihub-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
)

// KPIController KPI指标库控制器
type KPIController struct {
	service *kpi.KPIService
}

// NewKPIController 创建KPI指标库控制器实例
func NewKPIController() *KPIController {
	return &KPIController{
		service: service.GlobalKPIService,
	}
}

// ListKPIs 查询指标库
// @Summary 查询指标库
// @Description 按分类、平台、关键词查询指标库，按热度降序
// @Tags 指标库
// @Produce json
// @Param category query string false "分类"
// @Param platform query string false "支持平台"
// @Param search query string false "关键词"
// @Param popular query bool false "只看热门"
// @Param limit query int false "数量上限，默认50"
// @Success 200 {array} models.KPI
// @Failure 500 {object} ErrorResponse
// @Router /api/kpis [get]
func (c *KPIController) ListKPIs(w http.ResponseWriter, r *http.Request) {
	opts := kpi.ListOptions{
		Category: r.URL.Query().Get("category"),
		Platform: r.URL.Query().Get("platform"),
		Search:   r.URL.Query().Get("search"),
		Popular:  cast.ToBool(r.URL.Query().Get("popular")),
		Limit:    cast.ToInt(r.URL.Query().Get("limit")),
	}

	kpis, err := c.service.ListKPIs(r.Context(), opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, kpis)
}

// GetKPI 查询指标详情
// @Summary 查询指标详情
// @Tags 指标库
// @Produce json
// @Param id path string true "指标ID"
// @Success 200 {object} models.KPI
// @Failure 404 {object} ErrorResponse
// @Router /api/kpis/{id} [get]
func (c *KPIController) GetKPI(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := c.service.GetKPI(r.Context(), id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, record)
}

// CreateKPI 创建自定义指标
// @Summary 创建自定义指标
// @Tags 指标库
// @Accept json
// @Produce json
// @Param kpi body models.KPI true "指标信息"
// @Success 201 {object} models.KPI
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/kpis [post]
func (c *KPIController) CreateKPI(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req models.KPI
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := c.service.CreateKPI(r.Context(), userInfo.UserID, &req); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, &req)
}

// UpdateKPI 更新自定义指标
// @Summary 更新自定义指标
// @Tags 指标库
// @Accept json
// @Produce json
// @Param id path string true "指标ID"
// @Param updates body map[string]interface{} true "更新字段"
// @Success 200 {object} models.KPI
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kpis/{id} [put]
func (c *KPIController) UpdateKPI(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id := chi.URLParam(r, "id")

	var updates map[string]interface{}
	if err := render.DecodeJSON(r.Body, &updates); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	record, err := c.service.UpdateKPI(r.Context(), userInfo.UserID, id, updates)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, record)
}

// DeleteKPI 停用自定义指标
// @Summary 停用自定义指标
// @Description 软删除，置is_active=false
// @Tags 指标库
// @Produce json
// @Param id path string true "指标ID"
// @Success 200 {object} map[string]bool
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kpis/{id} [delete]
func (c *KPIController) DeleteKPI(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id := chi.URLParam(r, "id")

	if err := c.service.DeleteKPI(r.Context(), userInfo.UserID, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}

// ListCategories 查询指标分类目录
// @Summary 查询指标分类目录
// @Tags 指标库
// @Produce json
// @Success 200 {array} models.KPICategory
// @Failure 500 {object} ErrorResponse
// @Router /api/kpis/categories [get]
func (c *KPIController) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := c.service.ListCategories(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, categories)
}
