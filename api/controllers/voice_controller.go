/*
 * @module api/controllers/voice_controller
 * @description 语音合成控制器，代理第三方TTS供应商
 * @architecture MVC架构 - 控制器层
 * @documentReference dev_docs/requirements.md
 * @stateFlow HTTP请求 -> 用户身份提取 -> 语音服务调用 -> JSON响应
 * @rules 文本超过1000字符返回400；供应商错误透传为500
 * @dependencies github.com/go-chi/render
 * @refs service/voice/voice_service.go
 */

package controllers

import (
	"errors"
	"net/http"

	"kpihub-service/api/middleware"
	"kpihub-service/service"
	"kpihub-service/service/voice"

	"github.com/go-chi/render"
)

// VoiceController 语音合成控制器
type VoiceController struct {
	service *voice.Service
}

// NewVoiceController 创建语音控制器实例
func NewVoiceController() *VoiceController {
	return &VoiceController{
		service: service.GlobalVoiceService,
	}
}

// GetVoiceConfig 查询语音供应商配置可用性
// @Summary 查询语音供应商配置可用性
// @Tags 语音合成
// @Produce json
// @Success 200 {object} voice.Config
// @Router /api/voice/config [get]
func (c *VoiceController) GetVoiceConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, c.service.GetConfig())
}

// Synthesize 执行语音合成
// @Summary 执行语音合成
// @Description 代理ElevenLabs或Sarvam的TTS接口，返回base64音频
// @Tags 语音合成
// @Accept json
// @Produce json
// @Param request body voice.SynthesizeRequest true "合成请求"
// @Success 200 {object} voice.SynthesizeResult
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/voice/synthesize [post]
func (c *VoiceController) Synthesize(w http.ResponseWriter, r *http.Request) {
	userInfo, ok := middleware.GetUserInfoFromContext(r.Context())
	if !ok {
		respondError(w, r, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req voice.SynthesizeRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := c.service.Synthesize(r.Context(), userInfo.UserID, &req)
	if err != nil {
		if errors.Is(err, voice.ErrTextInvalid) || errors.Is(err, voice.ErrInvalidProvider) {
			respondError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		// 供应商侧错误原样透出，便于前端提示
		respondError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, r, http.StatusOK, result)
}
