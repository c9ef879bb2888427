/*
 * @module api/controllers/suggestion_controller
 * @description 指标推荐控制器，提供推荐查询、生成与动作处理
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/requirements.md
 * @stateFlow HTTP请求 -> 用户身份提取 -> 业务服务调用 -> JSON响应
 * @rules 推荐以当前用户为作用域；动作只接受accepted/dismissed/ignored
 * @dependencies github.com/go-chi/chi/v5, github.com/go-chi/render, github.com/spf13/cast
 * @refs service/kpi/suggestion_service.go
 */

package controllers

import (
	"net/http"

	"kpihub-service/api/middleware"
	"kpihub-service/service"
	"kpihub-service/service/ingestion"
	"kpihub-service/service/kpi"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/spf13/cast"
)

// SuggestionController 指标推荐控制器
type SuggestionController struct {
	service *kpi.SuggestionService
}

// NewSuggestionController 创建推荐控制器实例
func NewSuggestionController() *SuggestionController {
	return &SuggestionController{
		service: service.GlobalSuggestionService,
	}
}

// suggestionActionRequest 推荐动作请求体
type suggestionActionRequest struct {
	Action string `json:"action"`
}

// ListSuggestions 查询当前用户的指标推荐
// @Summary 查询当前用户的指标推荐
// @Tags 指标推荐
// @Produce json
// @Param active query bool false "只看待处理且未过期，默认true"
// @Param limit query int false "数量上限，默认10"
// @Success 200 {array} models.KPISuggestion
// @Failure 401 {object} ErrorResponse
// @Router /api/kpis/suggestions [get]
func (c *SuggestionController) ListSuggestions(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}

	activeOnly := true
	if raw := r.URL.Query().Get("active"); raw != "" {
		activeOnly = cast.ToBool(raw)
	}
	limit := cast.ToInt(r.URL.Query().Get("limit"))

	suggestions, err := c.service.List(r.Context(), userInfo.UserID, activeOnly, limit)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, suggestions)
}

// GenerateSuggestions 为当前用户生成新一批推荐
// @Summary 生成指标推荐
// @Description 基于指标热度和已连接平台生成推荐，七天后过期
// @Tags 指标推荐
// @Produce json
// @Success 201 {array} models.KPISuggestion
// @Failure 401 {object} ErrorResponse
// @Router /api/kpis/suggestions [post]
func (c *SuggestionController) GenerateSuggestions(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}

	suggestions, err := c.service.Generate(r.Context(), userInfo.UserID)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	service.GlobalEventPublisher.Publish(r.Context(), ingestion.TopicSuggestionsGenerated, ingestion.Event{
		Type:    "suggestions.generated",
		UserID:  userInfo.UserID,
		Payload: map[string]interface{}{"count": len(suggestions)},
	})

	respondJSON(w, r, http.StatusCreated, suggestions)
}

// ActOnSuggestion 处理推荐动作
// @Summary 处理推荐动作
// @Description accepted会把指标加入看板，重复添加不报错
// @Tags 指标推荐
// @Accept json
// @Produce json
// @Param id path string true "推荐ID"
// @Param action body suggestionActionRequest true "动作"
// @Success 200 {object} models.KPISuggestion
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/kpis/suggestions/{id} [put]
func (c *SuggestionController) ActOnSuggestion(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id := chi.URLParam(r, "id")

	var req suggestionActionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	suggestion, err := c.service.Act(r.Context(), userInfo.UserID, id, req.Action)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, suggestion)
}

// DeleteSuggestion 删除推荐
// @Summary 删除推荐
// @Tags 指标推荐
// @Produce json
// @Param id path string true "推荐ID"
// @Success 200 {object} map[string]bool
// @Failure 404 {object} ErrorResponse
// @Router /api/kpis/suggestions/{id} [delete]
func (c *SuggestionController) DeleteSuggestion(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}
	id := chi.URLParam(r, "id")

	if err := c.service.Delete(r.Context(), userInfo.UserID, id); err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, map[string]bool{"success": true})
}
