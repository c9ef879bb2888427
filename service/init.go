/*
 * @module service/init
 * @description 服务初始化模块，负责数据库连接、迁移、全局服务与后台组件装配
 * @architecture 分层架构 - 服务层
 * @documentReference dev_docs/requirements.md
 * @stateFlow 应用启动时执行初始化流程
 * @rules 确保所有依赖服务正常启动后才提供API服务；可选组件按环境变量启用
 * @dependencies gorm.io/gorm, gorm.io/driver/postgres
 * @refs service/database/migrate.go
 */

package service

import (
	"fmt"
	"log"
	"os"

	"kpihub-service/service/calculation"
	"kpihub-service/service/database"
	"kpihub-service/service/formula"
	"kpihub-service/service/ingestion"
	"kpihub-service/service/kpi"
	"kpihub-service/service/scheduler"
	"kpihub-service/service/voice"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var (
	DB                       *gorm.DB
	GlobalKPIService         *kpi.KPIService
	GlobalDashboardService   *kpi.DashboardService
	GlobalSuggestionService  *kpi.SuggestionService
	GlobalCalculationService *calculation.Service
	GlobalVoiceService       *voice.Service
	GlobalEventPublisher     *ingestion.EventPublisher
	GlobalMQTTSource         *ingestion.MQTTSource
	GlobalMetricListener     *ingestion.MetricChangeListener
	GlobalScheduler          *scheduler.SuggestionScheduler

	dsn string
)

func init() {
	initDatabase()
	runMigrations()
	initServices()
}

// initDatabase 初始化数据库连接
func initDatabase() {
	// 优先使用DATABASE_URL环境变量
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		dsn = databaseURL
	} else {
		// 使用分离的环境变量构建连接字符串
		host := getEnvWithDefault("DB_HOST", "localhost")
		port := getEnvWithDefault("DB_PORT", "5432")
		user := getEnvWithDefault("DB_USER", "postgres")
		password := getEnvWithDefault("DB_PASSWORD", "kpihub2024")
		dbname := getEnvWithDefault("DB_NAME", "postgres")
		sslmode := getEnvWithDefault("DB_SSLMODE", "disable")
		schema := getEnvWithDefault("DB_SCHEMA", "public")

		dsn = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
			host, port, user, password, dbname, sslmode, schema)
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalf("数据库连接失败: %v", err)
	}

	log.Println("数据库连接成功")
}

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// runMigrations 运行数据库迁移
func runMigrations() {
	log.Println("开始运行数据库迁移...")

	if err := database.AutoMigrate(DB); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	log.Println("数据库表结构迁移完成")

	if err := database.InitializeData(DB); err != nil {
		log.Fatalf("基础数据初始化失败: %v", err)
	}
	log.Println("基础数据初始化完成")
}

// initServices 初始化服务
func initServices() {
	GlobalKPIService = kpi.NewKPIService(DB)
	GlobalDashboardService = kpi.NewDashboardService(DB)
	GlobalSuggestionService = kpi.NewSuggestionService(DB)
	GlobalVoiceService = voice.NewService(DB)

	GlobalCalculationService = calculation.NewService(DB)
	GlobalCalculationService.SetFormulaEvaluator(formula.NewEngine())

	// Redis计算缓存，按REDIS_HOST启用
	if os.Getenv("REDIS_HOST") != "" {
		cache := calculation.NewCache()
		GlobalCalculationService.SetCache(cache)

		// 指标数据变更时失效对应用户的缓存
		GlobalMetricListener = ingestion.NewMetricChangeListener(dsn, cache)
		if err := GlobalMetricListener.Start(); err != nil {
			log.Printf("启动指标变更监听器失败: %v", err)
		}
	}

	// Kafka事件发布器，按KAFKA_BROKERS启用
	GlobalEventPublisher = ingestion.NewEventPublisherFromEnv()

	// MQTT全渠道消息桥，按MQTT_BROKER_URL启用
	GlobalMQTTSource = ingestion.NewMQTTSourceFromEnv(DB)
	if GlobalMQTTSource != nil {
		if err := GlobalMQTTSource.Start(); err != nil {
			log.Printf("启动MQTT消息桥失败: %v", err)
		}
	}

	// 推荐过期调度器
	GlobalScheduler = scheduler.NewSuggestionScheduler(GlobalSuggestionService)
	if err := GlobalScheduler.Start(); err != nil {
		log.Printf("启动推荐过期调度器失败: %v", err)
	}

	log.Println("服务初始化完成")
}
