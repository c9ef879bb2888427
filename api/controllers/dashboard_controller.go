/*
 * @module api/controllers/dashboard_controller
 * @description 用户看板指标控制器，维护用户看板上的指标条目
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/requirements.md
 * @stateFlow HTTP请求 -> 用户身份提取 -> 业务服务调用 -> JSON响应
 * @rules 所有操作以当前用户为作用域；重复添加返回409；未知指标返回404
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render, github.com/spf13/cast
 * @refs service/kpi/dashboard_service.go
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

// DashboardController 用户看板指标控制器
type DashboardController struct {
	service *kpi.DashboardService
}

// NewDashboardController 创建看板控制器实例
func NewDashboardController() *DashboardController {
	return &DashboardController{
		service: service.GlobalDashboardService,
	}
}

// ListDashboardKPIs 查询当前用户看板指标
// @Summary 查询当前用户看板指标
// @Tags 用户看板
// @Produce json
// @Param visible query bool false "只看可见"
// @Param favorites query bool false "只看收藏"
// @Success 200 {array} models.UserDashboardKPI
// @Failure 401 {object} ErrorResponse
// @Router /api/kpis/dashboard [get]
func (c *DashboardController) ListDashboardKPIs(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}

	opts := kpi.DashboardListOptions{
		VisibleOnly:   cast.ToBool(r.URL.Query().Get("visible")),
		FavoritesOnly: cast.ToBool(r.URL.Query().Get("favorites")),
	}

	entries, err := c.service.List(r.Context(), userInfo.UserID, opts)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, entries)
}

// AddDashboardKPI 添加指标到看板
// @Summary 添加指标到看板
// @Tags 用户看板
// @Accept json
// @Produce json
// @Param entry body models.UserDashboardKPI true "看板条目"
// @Success 201 {object} models.UserDashboardKPI
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/kpis/dashboard [post]
func (c *DashboardController) AddDashboardKPI(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req models.UserDashboardKPI
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.KPIID == "" {
		respondError(w, r, http.StatusBadRequest, "kpi_id is required")
		return
	}

	entry, err := c.service.Add(r.Context(), userInfo.UserID, &req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, entry)
}

// GetDashboardKPI 查询看板条目详情
// @Summary 查询看板条目详情
// @Description 同时刷新last_viewed_at
// @Tags 用户看板
// @Produce json
// @Param id path string true "看板条目ID"
// @Success 200 {object} models.UserDashboardKPI
// @Failure 404 {object} ErrorResponse
// @Router /api/kpis/dashboard/{id} [get]
func (c *DashboardController) GetDashboardKPI(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id := chi.URLParam(r, "id")

	entry, err := c.service.Get(r.Context(), userInfo.UserID, id)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, entry)
}

// UpdateDashboardKPI 更新看板条目
// @Summary 更新看板条目
// @Tags 用户看板
// @Accept json
// @Produce json
// @Param id path string true "看板条目ID"
// @Param updates body map[string]interface{} true "更新字段"
// @Success 200 {object} models.UserDashboardKPI
// @Failure 404 {object} ErrorResponse
// @Router /api/kpis/dashboard/{id} [put]
func (c *DashboardController) UpdateDashboardKPI(w http.ResponseWriter, r *http.Request) {
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

	entry, err := c.service.Update(r.Context(), userInfo.UserID, id, updates)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, entry)
}

// RemoveDashboardKPI 从看板移除指标
// @Summary 从看板移除指标
// @Tags 用户看板
// @Produce json
// @Param id path string true "看板条目ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} ErrorResponse
// @Router /api/kpis/dashboard/{id} [delete]
func (c *DashboardController) RemoveDashboardKPI(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id := chi.URLParam(r, "id")

	if err := c.service.Remove(r.Context(), userInfo.UserID, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}
