/*
 * @module api/controllers/response
 * @description 控制器统一响应辅助，错误统一为{error}结构
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 业务错误 -> HTTP状态码映射 -> JSON响应
 * @rules 错误响应只有error一个字段；业务错误集中在此映射状态码
 * @dependencies github.com/go-chi/render
 * @refs service/kpi, service/calculation, service/voice
 */

package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"kpihub-service/service/calculation"
	"kpihub-service/service/kpi"
	"kpihub-service/service/voice"

	"github.com/go-chi/render"
)

// ErrorResponse 错误响应结构
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondJSON 输出JSON响应
func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload interface{}) {
	render.Status(r, status)
	render.JSON(w, r, payload)
}

// respondError 输出错误响应
func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, ErrorResponse{Error: message})
}

// respondServiceError 把业务错误映射为HTTP状态码
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, kpi.ErrValidation):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, kpi.ErrKPINotFound),
		errors.Is(err, kpi.ErrDashboardKPINotFound),
		errors.Is(err, kpi.ErrSuggestionNotFound),
		errors.Is(err, calculation.ErrCalculatorNotFound):
		respondError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, kpi.ErrSystemKPIReadOnly), errors.Is(err, kpi.ErrNotOwner):
		respondError(w, r, http.StatusForbidden, err.Error())
	case errors.Is(err, kpi.ErrDuplicateDashboardKPI):
		respondError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, kpi.ErrInvalidAction),
		errors.Is(err, voice.ErrTextInvalid),
		errors.Is(err, voice.ErrInvalidProvider):
		respondError(w, r, http.StatusBadRequest, err.Error())
	default:
		slog.Error("请求处理失败", "path", r.URL.Path, "error", err)
		respondError(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
