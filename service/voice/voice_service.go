/*
 * @module service/voice/voice_service
 * @description 语音合成代理服务：转发到ElevenLabs/Sarvam两家TTS供应商，落使用记录
 * @architecture 分层架构 - 业务服务层，第三方API代理
 * @documentReference dev_docs/requirements.md
 * @stateFlow 校验文本 -> 分发供应商 -> 转发HTTP调用 -> base64音频返回 -> 落使用记录
 * @rules 文本超过1000字符拒绝；密钥仅存bcrypt指纹；使用记录失败不影响合成结果
 * @dependencies gorm.io/gorm, golang.org/x/crypto/bcrypt
 * @refs api/controllers/voice_controller.go
 */

package voice

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"kpihub-service/service/metrics"
	"kpihub-service/service/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// 供应商常量
const (
	ProviderElevenLabs = "elevenlabs"
	ProviderSarvam     = "sarvam"

	maxTextLength = 1000

	defaultElevenLabsVoice = "EXAVITQu4vr4xnSDxMaL"
	defaultSarvamVoice     = "meera"

	elevenLabsEndpoint = "https://api.elevenlabs.io/v1/text-to-speech"
	sarvamEndpoint     = "https://api.sarvam.ai/text-to-speech"
)

// 业务错误
var (
	ErrTextInvalid           = errors.New("文本必填且不能超过1000字符")
	ErrInvalidProvider       = errors.New("无效的语音供应商")
	ErrProviderNotConfigured = errors.New("供应商API密钥未配置")
)

// SynthesizeRequest 合成请求
type SynthesizeRequest struct {
	Text     string             `json:"text"`
	Provider string             `json:"provider"`
	VoiceID  string             `json:"voiceId,omitempty"`
	Settings *SynthesisSettings `json:"settings,omitempty"`
}

// SynthesisSettings 合成参数
type SynthesisSettings struct {
	Rate   float64 `json:"rate,omitempty"`
	Pitch  float64 `json:"pitch,omitempty"`
	Volume float64 `json:"volume,omitempty"`
}

// SynthesizeResult 合成结果，音频为base64编码
type SynthesizeResult struct {
	Audio    string `json:"audio"`
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// ProviderConfig 单个供应商的配置可用性
type ProviderConfig struct {
	Available bool    `json:"available"`
	KeySource *string `json:"keySource"`
}

// Config 语音服务配置可用性报告
type Config struct {
	ElevenLabs ProviderConfig `json:"elevenlabs"`
	Sarvam     ProviderConfig `json:"sarvam"`
}

// Service 语音合成服务
type Service struct {
	db            *gorm.DB
	httpClient    *http.Client
	elevenLabsKey string
	sarvamKey     string
	fingerprints  map[string]string
}

// NewService 创建语音服务实例，密钥来自服务端环境变量
func NewService(db *gorm.DB) *Service {
	service := &Service{
		db:            db,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		elevenLabsKey: os.Getenv("ELEVENLABS_API_KEY"),
		sarvamKey:     os.Getenv("SARVAM_API_KEY"),
		fingerprints:  map[string]string{},
	}

	// 密钥指纹只算一次，供使用记录审计关联，明文永不落库
	for provider, key := range map[string]string{
		ProviderElevenLabs: service.elevenLabsKey,
		ProviderSarvam:     service.sarvamKey,
	} {
		if key == "" {
			continue
		}
		if hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost); err == nil {
			service.fingerprints[provider] = string(hash)
		}
	}

	return service
}

// GetConfig 报告两家供应商的服务端密钥配置情况
func (s *Service) GetConfig() Config {
	return Config{
		ElevenLabs: providerConfig(s.elevenLabsKey),
		Sarvam:     providerConfig(s.sarvamKey),
	}
}

func providerConfig(key string) ProviderConfig {
	if key == "" {
		return ProviderConfig{Available: false, KeySource: nil}
	}
	source := "centralized"
	return ProviderConfig{Available: true, KeySource: &source}
}

// Synthesize 执行一次语音合成
func (s *Service) Synthesize(ctx context.Context, userID string, req *SynthesizeRequest) (*SynthesizeResult, error) {
	if req.Text == "" || len([]rune(req.Text)) > maxTextLength {
		return nil, ErrTextInvalid
	}

	settings := req.Settings
	if settings == nil {
		settings = &SynthesisSettings{}
	}

	var (
		audio   []byte
		voiceID string
		err     error
	)

	switch req.Provider {
	case ProviderElevenLabs:
		voiceID = req.VoiceID
		if voiceID == "" {
			voiceID = defaultElevenLabsVoice
		}
		audio, err = s.synthesizeElevenLabs(ctx, req.Text, voiceID)
	case ProviderSarvam:
		voiceID = req.VoiceID
		if voiceID == "" {
			voiceID = defaultSarvamVoice
		}
		audio, err = s.synthesizeSarvam(ctx, req.Text, voiceID, settings)
	default:
		return nil, ErrInvalidProvider
	}

	if err != nil {
		metrics.ObserveVoiceSynthesis(req.Provider, "error")
		return nil, err
	}
	metrics.ObserveVoiceSynthesis(req.Provider, "ok")

	s.trackUsage(ctx, userID, req.Provider, voiceID, len([]rune(req.Text)))

	return &SynthesizeResult{
		Audio:    base64.StdEncoding.EncodeToString(audio),
		Provider: req.Provider,
		VoiceID:  voiceID,
	}, nil
}

// synthesizeElevenLabs 调用ElevenLabs TTS接口，返回mpeg音频字节
func (s *Service) synthesizeElevenLabs(ctx context.Context, text, voiceID string) ([]byte, error) {
	if s.elevenLabsKey == "" {
		return nil, ErrProviderNotConfigured
	}

	payload, err := json.Marshal(map[string]interface{}{
		"text":     text,
		"model_id": "eleven_monolingual_v1",
		"voice_settings": map[string]interface{}{
			"stability":         0.5,
			"similarity_boost":  0.5,
			"style":             0.5,
			"use_speaker_boost": true,
		},
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s", elevenLabsEndpoint, voiceID)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Accept", "audio/mpeg")
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("xi-api-key", s.elevenLabsKey)

	response, err := s.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ElevenLabs API error: %d", response.StatusCode)
	}
	return io.ReadAll(response.Body)
}

// synthesizeSarvam 调用Sarvam TTS接口，响应体内是base64音频数组
func (s *Service) synthesizeSarvam(ctx context.Context, text, voiceID string, settings *SynthesisSettings) ([]byte, error) {
	if s.sarvamKey == "" {
		return nil, ErrProviderNotConfigured
	}

	pace := settings.Rate
	if pace == 0 {
		pace = 1.0
	}
	loudness := settings.Volume
	if loudness == 0 {
		loudness = 1.0
	}

	payload, err := json.Marshal(map[string]interface{}{
		"inputs":               []string{text},
		"target_language_code": "en-IN",
		"speaker":              voiceID,
		"pitch":                settings.Pitch,
		"pace":                 pace,
		"loudness":             loudness,
		"speech_sample_rate":   22050,
		"enable_preprocessing": true,
		"model":                "bulbul:v1",
	})
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, sarvamEndpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("API-Subscription-Key", s.sarvamKey)

	response, err := s.httpClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Sarvam API error: %d", response.StatusCode)
	}

	var result struct {
		Audios []string `json:"audios"`
	}
	if err := json.NewDecoder(response.Body).Decode(&result); err != nil {
		return nil, err
	}
	if len(result.Audios) == 0 {
		return nil, errors.New("no audio data received from Sarvam")
	}

	return base64.StdEncoding.DecodeString(result.Audios[0])
}

// trackUsage 落使用记录，失败只记日志不影响主流程
func (s *Service) trackUsage(ctx context.Context, userID, provider, voiceID string, textLength int) {
	record := models.VoiceUsageRecord{
		UserID:         userID,
		Provider:       provider,
		VoiceID:        voiceID,
		TextLength:     textLength,
		KeyFingerprint: s.fingerprints[provider],
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		slog.Warn("语音使用记录写入失败", "provider", provider, "error", err)
	}
}
