/*
 * @module api/controllers/calculation_controller
 * @description KPI计算控制器，按名称即时计算单个或一批指标
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/requirements.md
 * @stateFlow HTTP请求 -> 用户身份提取 -> 计算服务调用 -> JSON响应
 * @rules 批量计算失败的指标静默缺席；单个计算无结果返回404
 * @dependencies github.com/go-chi/render
 * @refs service/calculation/calculator.go
 */

package controllers

import (
	"net/http"
	"strings"
	"time"

	"kpihub-service/api/middleware"
	"kpihub-service/service"
	"kpihub-service/service/calculation"
	"kpihub-service/service/ingestion"
	"kpihub-service/service/models"

	"github.com/go-chi/render"
)

// CalculationController KPI计算控制器
type CalculationController struct {
	service *calculation.Service
}

// NewCalculationController 创建计算控制器实例
func NewCalculationController() *CalculationController {
	return &CalculationController{
		service: service.GlobalCalculationService,
	}
}

// BatchCalculationResponse 批量计算响应
type BatchCalculationResponse struct {
	UserID       string                  `json:"user_id"`
	KPIs         []*models.CalculatedKPI `json:"kpis"`
	CalculatedAt time.Time               `json:"calculated_at"`
}

// calculateRequest 单指标计算请求体
type calculateRequest struct {
	KPIName string `json:"kpi_name"`
}

// CalculateBatch 批量计算指标
// @Summary 批量计算指标
// @Description 逗号分隔的指标名列表，计算失败的指标不出现在结果中
// @Tags 指标计算
// @Produce json
// @Param kpis query string true "指标名列表，逗号分隔"
// @Success 200 {object} BatchCalculationResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/kpis/calculate [get]
func (c *CalculationController) CalculateBatch(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}

	raw := r.URL.Query().Get("kpis")
	if raw == "" {
		respondError(w, r, http.StatusBadRequest, "kpis query parameter is required")
		return
	}

	var names []string
	for _, name := range strings.Split(raw, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		respondError(w, r, http.StatusBadRequest, "kpis query parameter is required")
		return
	}

	results := c.service.CalculateBatch(r.Context(), userInfo.UserID, names)

	service.GlobalEventPublisher.Publish(r.Context(), ingestion.TopicKPICalculated, ingestion.Event{
		Type:   "kpi.calculated",
		UserID: userInfo.UserID,
		Payload: map[string]interface{}{
			"requested":  len(names),
			"calculated": len(results),
		},
	})

	respondJSON(w, r, http.StatusOK, BatchCalculationResponse{
		UserID:       userInfo.UserID,
		KPIs:         results,
		CalculatedAt: time.Now(),
	})
}

// CalculateOne 计算单个指标
// @Summary 计算单个指标
// @Tags 指标计算
// @Accept json
// @Produce json
// @Param request body calculateRequest true "指标名"
// @Success 200 {object} models.CalculatedKPI
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kpis/calculate [post]
func (c *CalculationController) CalculateOne(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req calculateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.KPIName == "" {
		respondError(w, r, http.StatusBadRequest, "kpi_name is required")
		return
	}

	result, err := c.service.Calculate(r.Context(), req.KPIName, userInfo.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	if result == nil {
		// 数据缺失或计算失败时不返回部分结果
		respondError(w, r, http.StatusNotFound, "No data available for KPI")
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}
