/*
 * @module service/calculation/cache
 * @description 指标计算结果的Redis短时缓存，键按(user, kpi)组织
 * @architecture 工具层 - 旁路缓存
 * @documentReference dev_docs/requirements.md
 * @stateFlow 查询 -> 未命中计算 -> 写回（短TTL）；数据源变更时按用户整体失效
 * @rules 缓存不可用不阻塞计算，降级为直连数据库
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/calculation/calculator.go, service/ingestion/pg_listener.go
 */

package calculation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"kpihub-service/service/models"

	"github.com/go-redis/redis/v8"
)

const cacheKeyPrefix = "kpihub:calc"

// Cache 指标计算结果缓存
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache 从环境变量创建Redis缓存客户端
func NewCache() *Cache {
	host := getEnvWithDefault("REDIS_HOST", "localhost")
	port := getEnvWithDefault("REDIS_PORT", "6379")
	password := os.Getenv("REDIS_PASSWORD")

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	return &Cache{
		client: client,
		ttl:    time.Minute,
	}
}

// Get 读取缓存的计算结果
func (c *Cache) Get(ctx context.Context, userID, kpiName string) (*models.CalculatedKPI, bool) {
	payload, err := c.client.Get(ctx, c.key(userID, kpiName)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("指标缓存读取失败", "kpi", kpiName, "error", err)
		}
		return nil, false
	}

	var result models.CalculatedKPI
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// Set 写入计算结果
func (c *Cache) Set(ctx context.Context, userID string, result *models.CalculatedKPI) {
	payload, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, c.key(userID, result.Name), payload, c.ttl).Err(); err != nil {
		slog.Warn("指标缓存写入失败", "kpi", result.Name, "error", err)
	}
}

// InvalidateUser 按用户整体失效，数据源行变更时由监听器调用
func (c *Cache) InvalidateUser(ctx context.Context, userID string) {
	pattern := fmt.Sprintf("%s:%s:*", cacheKeyPrefix, userID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			slog.Warn("指标缓存失效删除失败", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		slog.Warn("指标缓存失效扫描失败", "user_id", userID, "error", err)
	}
}

// Close 关闭底层连接
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) key(userID, kpiName string) string {
	return fmt.Sprintf("%s:%s:%s", cacheKeyPrefix, userID, kpiName)
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
