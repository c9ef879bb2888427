/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建表结构并初始化系统指标库
 * @architecture 数据访问层 - 迁移管理
 * @documentReference dev_docs/model.md
 * @stateFlow 应用启动时执行数据库迁移和基础数据初始化
 * @rules 系统指标幂等初始化，按name判重，不覆盖已有记录
 * @dependencies kpihub-service/service/models, gorm.io/gorm
 * @refs dev_docs/requirements.md
 */

package database

import (
	"kpihub-service/service/models"
	"log"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 指标库相关表
	err := db.AutoMigrate(
		&models.KPI{},
		&models.KPICategory{},
		&models.UserDashboardKPI{},
		&models.KPISuggestion{},
	)
	if err != nil {
		return err
	}

	// 指标数据源相关表
	err = db.AutoMigrate(
		&models.CampaignMetric{},
		&models.UnifiedMessage{},
		&models.CRMConversation{},
		&models.CRMContact{},
		&models.UserIntegration{},
	)
	if err != nil {
		return err
	}

	// 语音服务相关表
	err = db.AutoMigrate(
		&models.VoiceUsageRecord{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}

// InitializeData 初始化基础数据：指标分类与系统指标库
func InitializeData(db *gorm.DB) error {
	log.Println("开始初始化基础数据...")

	if err := initCategories(db); err != nil {
		return err
	}
	if err := initSystemKPIs(db); err != nil {
		return err
	}

	log.Println("基础数据初始化完成")
	return nil
}

// initCategories 初始化指标分类
func initCategories(db *gorm.DB) error {
	categories := []models.KPICategory{
		{Name: "performance", DisplayName: "投放效果", Description: "广告投放效果类指标", Icon: "trending-up", Color: "#3B82F6", SortOrder: 1, IsActive: true},
		{Name: "financial", DisplayName: "财务", Description: "收入与花费类指标", Icon: "dollar-sign", Color: "#10B981", SortOrder: 2, IsActive: true},
		{Name: "messaging", DisplayName: "消息触达", Description: "全渠道消息类指标", Icon: "message-circle", Color: "#8B5CF6", SortOrder: 3, IsActive: true},
		{Name: "customer", DisplayName: "客户", Description: "客户与会话类指标", Icon: "users", Color: "#F59E0B", SortOrder: 4, IsActive: true},
	}

	for _, category := range categories {
		var existing models.KPICategory
		if err := db.Where("name = ?", category.Name).First(&existing).Error; err == nil {
			continue
		}
		if err := db.Create(&category).Error; err != nil {
			return err
		}
	}
	return nil
}

// initSystemKPIs 初始化系统内置指标，与计算注册表的16个指标一一对应
func initSystemKPIs(db *gorm.DB) error {
	adPlatforms := models.JSONBStringArray{"facebook", "google", "tiktok"}
	msgPlatforms := models.JSONBStringArray{"whatsapp", "instagram", "messenger", "telegram"}

	kpis := []models.KPI{
		{Name: "roas", DisplayName: "ROAS", Description: "广告支出回报率", Category: "performance", DataSourceTable: "campaign_metrics", CalculationType: "calculated", FormatType: "ratio", DecimalPlaces: 1, BenchmarkValue: 3.0, TargetDirection: "higher", SupportedPlatforms: adPlatforms, PopularityScore: 0.95, Icon: "trending-up", ExampleValue: "4.2x"},
		{Name: "cpc", DisplayName: "CPC", Description: "单次点击成本", Category: "performance", DataSourceTable: "campaign_metrics", CalculationType: "calculated", FormatType: "currency", DecimalPlaces: 2, BenchmarkValue: 1.5, TargetDirection: "lower", SupportedPlatforms: adPlatforms, PopularityScore: 0.85, Icon: "mouse-pointer", ExampleValue: "$1.20"},
		{Name: "ctr", DisplayName: "CTR", Description: "点击率", Category: "performance", DataSourceTable: "campaign_metrics", CalculationType: "calculated", FormatType: "percentage", DecimalPlaces: 1, BenchmarkValue: 2.5, TargetDirection: "higher", SupportedPlatforms: adPlatforms, PopularityScore: 0.9, Icon: "target", ExampleValue: "3.1%"},
		{Name: "conversion_rate", DisplayName: "Conversion Rate", Description: "转化率", Category: "performance", DataSourceTable: "campaign_metrics", CalculationType: "calculated", FormatType: "percentage", DecimalPlaces: 1, BenchmarkValue: 2.5, TargetDirection: "higher", SupportedPlatforms: adPlatforms, PopularityScore: 0.88, Icon: "zap", ExampleValue: "2.8%"},
		{Name: "cpl", DisplayName: "Cost Per Lead", Description: "单线索成本", Category: "performance", DataSourceTable: "campaign_metrics", CalculationType: "calculated", FormatType: "currency", DecimalPlaces: 2, BenchmarkValue: 25, TargetDirection: "lower", SupportedPlatforms: adPlatforms, PopularityScore: 0.75, Icon: "user-plus", ExampleValue: "$18.50"},
		{Name: "total_revenue", DisplayName: "Total Revenue", Description: "总收入", Category: "financial", DataSourceTable: "campaign_metrics", DataSourceColumn: "revenue", CalculationType: "aggregated", FormatType: "currency", DecimalPlaces: 0, TargetDirection: "higher", SupportedPlatforms: adPlatforms, PopularityScore: 0.92, Icon: "dollar-sign", ExampleValue: "$12,400"},
		{Name: "total_spend", DisplayName: "Total Ad Spend", Description: "总广告花费", Category: "financial", DataSourceTable: "campaign_metrics", DataSourceColumn: "spend", CalculationType: "aggregated", FormatType: "currency", DecimalPlaces: 0, TargetDirection: "optimal", SupportedPlatforms: adPlatforms, PopularityScore: 0.8, Icon: "credit-card", ExampleValue: "$3,200"},
		{Name: "total_impressions", DisplayName: "Total Impressions", Description: "总曝光量", Category: "performance", DataSourceTable: "campaign_metrics", DataSourceColumn: "impressions", CalculationType: "aggregated", FormatType: "number", DecimalPlaces: 0, TargetDirection: "higher", SupportedPlatforms: adPlatforms, PopularityScore: 0.6, Icon: "eye", ExampleValue: "1,200,000"},
		{Name: "total_clicks", DisplayName: "Total Clicks", Description: "总点击量", Category: "performance", DataSourceTable: "campaign_metrics", DataSourceColumn: "clicks", CalculationType: "aggregated", FormatType: "number", DecimalPlaces: 0, TargetDirection: "higher", SupportedPlatforms: adPlatforms, PopularityScore: 0.65, Icon: "mouse-pointer", ExampleValue: "24,000"},
		{Name: "avg_response_time", DisplayName: "Avg Response Time", Description: "平均响应时长（分钟）", Category: "messaging", DataSourceTable: "unified_messages", CalculationType: "calculated", FormatType: "duration", DecimalPlaces: 1, BenchmarkValue: 10, TargetDirection: "lower", SupportedPlatforms: msgPlatforms, PopularityScore: 0.7, Icon: "clock", ExampleValue: "8.5"},
		{Name: "message_volume", DisplayName: "Message Volume", Description: "30天消息量", Category: "messaging", DataSourceTable: "unified_messages", CalculationType: "aggregated", FormatType: "number", DecimalPlaces: 0, TargetDirection: "higher", SupportedPlatforms: msgPlatforms, PopularityScore: 0.78, Icon: "message-circle", ExampleValue: "1,450"},
		{Name: "response_rate", DisplayName: "Response Rate", Description: "7天回复率", Category: "messaging", DataSourceTable: "unified_messages", CalculationType: "calculated", FormatType: "percentage", DecimalPlaces: 1, BenchmarkValue: 90, TargetDirection: "higher", SupportedPlatforms: msgPlatforms, PopularityScore: 0.72, Icon: "corner-up-left", ExampleValue: "94.0%"},
		{Name: "satisfaction_score", DisplayName: "Customer Satisfaction", Description: "客户满意度评分", Category: "customer", CalculationType: "derived", FormatType: "number", DecimalPlaces: 1, BenchmarkValue: 4.0, TargetDirection: "higher", SupportedPlatforms: msgPlatforms, PopularityScore: 0.68, Icon: "smile", ExampleValue: "4.3/5"},
		{Name: "active_conversations", DisplayName: "Active Conversations", Description: "进行中会话数", Category: "customer", DataSourceTable: "crm_conversations", CalculationType: "aggregated", FormatType: "number", DecimalPlaces: 0, TargetDirection: "higher", SupportedPlatforms: msgPlatforms, PopularityScore: 0.66, Icon: "message-square", ExampleValue: "36"},
		{Name: "customer_ltv", DisplayName: "Customer LTV", Description: "客户生命周期价值", Category: "customer", DataSourceTable: "crm_contacts", DataSourceColumn: "total_spent", CalculationType: "calculated", FormatType: "currency", DecimalPlaces: 2, BenchmarkValue: 150, TargetDirection: "higher", SupportedPlatforms: msgPlatforms, PopularityScore: 0.82, Icon: "gem", ExampleValue: "$168.00"},
		{Name: "new_contacts", DisplayName: "New Contacts", Description: "30天新增客户数", Category: "customer", DataSourceTable: "crm_contacts", CalculationType: "aggregated", FormatType: "number", DecimalPlaces: 0, TargetDirection: "higher", SupportedPlatforms: msgPlatforms, PopularityScore: 0.74, Icon: "user-plus", ExampleValue: "58"},
	}

	for _, kpi := range kpis {
		var existing models.KPI
		if err := db.Where("name = ?", kpi.Name).First(&existing).Error; err == nil {
			continue
		}
		kpi.IsSystem = true
		kpi.IsActive = true
		kpi.DefaultChartType = "line"
		if kpi.ChartColor == "" {
			kpi.ChartColor = "#3B82F6"
		}
		if err := db.Create(&kpi).Error; err != nil {
			return err
		}
	}
	return nil
}
