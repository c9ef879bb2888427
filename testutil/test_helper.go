/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"kpihub-service/service/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&models.KPI{},
		&models.KPICategory{},
		&models.UserDashboardKPI{},
		&models.KPISuggestion{},
		&models.CampaignMetric{},
		&models.UnifiedMessage{},
		&models.CRMConversation{},
		&models.CRMContact{},
		&models.UserIntegration{},
		&models.VoiceUsageRecord{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
	tables := []string{
		"kpis",
		"kpi_categories",
		"user_dashboard_kpis",
		"kpi_suggestions",
		"campaign_metrics",
		"unified_messages",
		"crm_conversations",
		"crm_contacts",
		"user_integrations",
		"voice_usage_records",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// KPIOption 指标选项函数类型
type KPIOption func(*models.KPI)

// CreateKPI 创建测试指标
func (f *TestDataFactory) CreateKPI(opts ...KPIOption) *models.KPI {
	kpi := &models.KPI{
		ID:                 generateID("kpi"),
		Name:               "test_kpi_" + generateSuffix(),
		DisplayName:        "测试指标",
		Description:        "这是一个测试指标",
		Category:           "performance",
		DataSourceTable:    "campaign_metrics",
		CalculationType:    "direct",
		SupportedPlatforms: models.JSONBStringArray{"meta", "google"},
		FormatType:         "number",
		DecimalPlaces:      2,
		TargetDirection:    "higher",
		BenchmarkValue:     1.0,
		PopularityScore:    0.5,
		IsSystem:           true,
		IsActive:           true,
		CreatedAt:          time.Now(),
		UpdatedAt:          time.Now(),
	}

	for _, opt := range opts {
		opt(kpi)
	}

	if err := f.DB.Create(kpi).Error; err != nil {
		panic(fmt.Sprintf("failed to create test kpi: %v", err))
	}

	return kpi
}

// DashboardKPIOption 看板指标选项函数类型
type DashboardKPIOption func(*models.UserDashboardKPI)

// CreateDashboardKPI 创建测试看板指标
func (f *TestDataFactory) CreateDashboardKPI(userID, kpiID string, opts ...DashboardKPIOption) *models.UserDashboardKPI {
	entry := &models.UserDashboardKPI{
		ID:         generateID("udk"),
		UserID:     userID,
		KPIID:      kpiID,
		SizeWidth:  1,
		SizeHeight: 1,
		DateRange:  "30d",
		IsVisible:  true,
		AlertEmail: true,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	for _, opt := range opts {
		opt(entry)
	}

	if err := f.DB.Create(entry).Error; err != nil {
		panic(fmt.Sprintf("failed to create test dashboard kpi: %v", err))
	}

	return entry
}

// SuggestionOption 推荐选项函数类型
type SuggestionOption func(*models.KPISuggestion)

// CreateSuggestion 创建测试推荐
func (f *TestDataFactory) CreateSuggestion(userID, kpiID string, opts ...SuggestionOption) *models.KPISuggestion {
	expiresAt := time.Now().AddDate(0, 0, 7)
	suggestion := &models.KPISuggestion{
		ID:               generateID("sg"),
		UserID:           userID,
		KPIID:            kpiID,
		SuggestionReason: "trending_kpi",
		ConfidenceScore:  0.8,
		Priority:         2,
		UserAction:       models.SuggestionActionPending,
		ExpiresAt:        &expiresAt,
		IsActive:         true,
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}

	for _, opt := range opts {
		opt(suggestion)
	}

	if err := f.DB.Create(suggestion).Error; err != nil {
		panic(fmt.Sprintf("failed to create test suggestion: %v", err))
	}

	return suggestion
}

// CampaignMetricOption 投放指标行选项函数类型
type CampaignMetricOption func(*models.CampaignMetric)

// CreateCampaignMetric 创建测试投放指标行
func (f *TestDataFactory) CreateCampaignMetric(userID string, opts ...CampaignMetricOption) *models.CampaignMetric {
	metric := &models.CampaignMetric{
		ID:          generateID("cm"),
		UserID:      userID,
		CampaignID:  "camp_" + generateSuffix(),
		Platform:    "meta",
		Revenue:     1000,
		Spend:       250,
		Impressions: 10000,
		Clicks:      500,
		Conversions: 50,
		MetricDate:  time.Now(),
		CreatedAt:   time.Now(),
	}

	for _, opt := range opts {
		opt(metric)
	}

	if err := f.DB.Create(metric).Error; err != nil {
		panic(fmt.Sprintf("failed to create test campaign metric: %v", err))
	}

	return metric
}

// UnifiedMessageOption 统一消息行选项函数类型
type UnifiedMessageOption func(*models.UnifiedMessage)

// CreateUnifiedMessage 创建测试统一消息行
func (f *TestDataFactory) CreateUnifiedMessage(userID string, opts ...UnifiedMessageOption) *models.UnifiedMessage {
	message := &models.UnifiedMessage{
		ID:        generateID("um"),
		UserID:    userID,
		Platform:  "whatsapp",
		Direction: "inbound",
		Timestamp: time.Now(),
		CreatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(message)
	}

	if err := f.DB.Create(message).Error; err != nil {
		panic(fmt.Sprintf("failed to create test unified message: %v", err))
	}

	return message
}

// CRMConversationOption 客服会话行选项函数类型
type CRMConversationOption func(*models.CRMConversation)

// CreateCRMConversation 创建测试客服会话行
func (f *TestDataFactory) CreateCRMConversation(userID string, opts ...CRMConversationOption) *models.CRMConversation {
	conversation := &models.CRMConversation{
		ID:        generateID("cc"),
		UserID:    userID,
		Platform:  "whatsapp",
		Status:    "active",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(conversation)
	}

	if err := f.DB.Create(conversation).Error; err != nil {
		panic(fmt.Sprintf("failed to create test crm conversation: %v", err))
	}

	return conversation
}

// CRMContactOption 客户档案行选项函数类型
type CRMContactOption func(*models.CRMContact)

// CreateCRMContact 创建测试客户档案行
func (f *TestDataFactory) CreateCRMContact(userID string, opts ...CRMContactOption) *models.CRMContact {
	contact := &models.CRMContact{
		ID:         generateID("ct"),
		UserID:     userID,
		Name:       "测试客户",
		Platform:   "whatsapp",
		TotalSpent: 500,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	for _, opt := range opts {
		opt(contact)
	}

	if err := f.DB.Create(contact).Error; err != nil {
		panic(fmt.Sprintf("failed to create test crm contact: %v", err))
	}

	return contact
}

// UserIntegrationOption 渠道集成选项函数类型
type UserIntegrationOption func(*models.UserIntegration)

// CreateUserIntegration 创建测试渠道集成
func (f *TestDataFactory) CreateUserIntegration(userID, platform string, opts ...UserIntegrationOption) *models.UserIntegration {
	integration := &models.UserIntegration{
		ID:        generateID("ui"),
		UserID:    userID,
		Platform:  platform,
		Status:    "connected",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, opt := range opts {
		opt(integration)
	}

	if err := f.DB.Create(integration).Error; err != nil {
		panic(fmt.Sprintf("failed to create test user integration: %v", err))
	}

	return integration
}

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
