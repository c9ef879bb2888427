/*
 * @module api/middleware/auth
 * @description Token鉴权中间件，调用认证服务验证Token并把用户身份注入请求上下文
 * @architecture 中间件模式 - HTTP请求拦截和验证
 * @documentReference dev_docs/requirements.md
 * @stateFlow Token提取 -> 缓存查询/远端验证 -> 上下文注入 -> 下一个处理器
 * @rules 统一鉴权、安全验证、错误响应统一为{error}结构
 * @dependencies net/http, encoding/json, strings, context
 * @refs api/routes.go, api/controllers
 */

package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/render"
)

// ContextKey 上下文键类型
type ContextKey string

const (
	// TokenKey Token在上下文中的键
	TokenKey ContextKey = "token"
	// UserInfoKey 用户信息在上下文中的键
	UserInfoKey ContextKey = "user_info"
)

// TokenVerificationResponse Token验证响应结构
type TokenVerificationResponse struct {
	Success   bool       `json:"success"`
	Valid     bool       `json:"valid"`
	Message   string     `json:"message"`
	UserID    string     `json:"user_id"`
	Username  string     `json:"username"`
	Roles     []string   `json:"roles"`
	ExpiresAt *time.Time `json:"expires_at"`
}

// UserInfo 用户信息结构
type UserInfo struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthMiddleware Token认证中间件
type AuthMiddleware struct {
	authServiceURL string
	httpClient     *http.Client
	// Token验证结果缓存
	cache      map[string]*cacheEntry
	cacheMutex sync.RWMutex
	cacheTTL   time.Duration
	// 白名单路径（不需要鉴权）
	whitelistPaths []string
}

// cacheEntry 缓存条目
type cacheEntry struct {
	userInfo  *UserInfo
	expiresAt time.Time
}

// NewAuthMiddleware 创建认证中间件实例
func NewAuthMiddleware() *AuthMiddleware {
	authServiceURL := os.Getenv("AUTH_SERVICE_URL")
	if authServiceURL == "" {
		authServiceURL = "http://auth-service:3000"
	}

	return &AuthMiddleware{
		authServiceURL: authServiceURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		cache:    make(map[string]*cacheEntry),
		cacheTTL: 5 * time.Minute,
		whitelistPaths: []string{
			"/health",              // 健康检查
			"/ready",               // 就绪检查
			"/metrics",             // Prometheus指标
			"/swagger",             // Swagger文档
			"/api/kpis/categories", // KPI分类目录为公开数据
		},
	}
}

// AddWhitelistPath 添加白名单路径
func (m *AuthMiddleware) AddWhitelistPath(path string) {
	m.whitelistPaths = append(m.whitelistPaths, path)
}

// IsWhitelistPath 检查路径是否在白名单中
func (m *AuthMiddleware) IsWhitelistPath(path string) bool {
	for _, whitelistPath := range m.whitelistPaths {
		// 支持前缀匹配
		if strings.HasPrefix(path, whitelistPath) {
			return true
		}
	}
	return false
}

// Middleware 认证中间件处理函数
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.IsWhitelistPath(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			m.respondUnauthorized(w, r, "User not authenticated")
			return
		}

		if !strings.HasPrefix(authHeader, "Bearer ") {
			m.respondUnauthorized(w, r, "User not authenticated")
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == "" {
			m.respondUnauthorized(w, r, "User not authenticated")
			return
		}

		// 先检查缓存
		if userInfo := m.getFromCache(token); userInfo != nil {
			ctx := context.WithValue(r.Context(), TokenKey, token)
			ctx = context.WithValue(ctx, UserInfoKey, userInfo)
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		userInfo, err := m.verifyToken(token)
		if err != nil {
			m.respondUnauthorized(w, r, "User not authenticated")
			return
		}

		m.saveToCache(token, userInfo)

		ctx := context.WithValue(r.Context(), TokenKey, token)
		ctx = context.WithValue(ctx, UserInfoKey, userInfo)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifyToken 调用认证服务验证Token
func (m *AuthMiddleware) verifyToken(token string) (*UserInfo, error) {
	reqBody, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return nil, fmt.Errorf("序列化验证请求失败: %v", err)
	}

	req, err := http.NewRequest("POST", m.authServiceURL+"/auth/verify", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("创建验证请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("验证请求失败: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取验证响应失败: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("验证请求失败，状态码: %d, 响应: %s", resp.StatusCode, string(respBody))
	}

	var verifyResp TokenVerificationResponse
	if err := json.Unmarshal(respBody, &verifyResp); err != nil {
		return nil, fmt.Errorf("解析验证响应失败: %v, 响应: %s", err, string(respBody))
	}

	if !verifyResp.Success || !verifyResp.Valid {
		return nil, fmt.Errorf("Token无效: %s", verifyResp.Message)
	}
	if verifyResp.UserID == "" {
		return nil, fmt.Errorf("验证响应缺少用户ID")
	}

	userInfo := &UserInfo{
		UserID:   verifyResp.UserID,
		Username: verifyResp.Username,
		Roles:    verifyResp.Roles,
	}

	if verifyResp.ExpiresAt != nil {
		userInfo.ExpiresAt = *verifyResp.ExpiresAt
	} else {
		// 如果没有过期时间，默认1小时后过期
		userInfo.ExpiresAt = time.Now().Add(1 * time.Hour)
	}

	return userInfo, nil
}

// getFromCache 从缓存中获取用户信息
func (m *AuthMiddleware) getFromCache(token string) *UserInfo {
	m.cacheMutex.RLock()
	defer m.cacheMutex.RUnlock()

	entry, exists := m.cache[token]
	if !exists {
		return nil
	}

	if time.Now().After(entry.expiresAt) {
		// 异步删除过期缓存
		go m.removeFromCache(token)
		return nil
	}

	return entry.userInfo
}

// saveToCache 保存用户信息到缓存
func (m *AuthMiddleware) saveToCache(token string, userInfo *UserInfo) {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()

	// 缓存过期时间取Token过期时间和缓存TTL的较小值
	cacheExpiry := time.Now().Add(m.cacheTTL)
	if userInfo.ExpiresAt.Before(cacheExpiry) {
		cacheExpiry = userInfo.ExpiresAt
	}

	m.cache[token] = &cacheEntry{
		userInfo:  userInfo,
		expiresAt: cacheExpiry,
	}
}

// removeFromCache 从缓存中删除Token
func (m *AuthMiddleware) removeFromCache(token string) {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()

	delete(m.cache, token)
}

// ClearExpiredCache 清理过期缓存（可以定期调用）
func (m *AuthMiddleware) ClearExpiredCache() int {
	m.cacheMutex.Lock()
	defer m.cacheMutex.Unlock()

	now := time.Now()
	clearedCount := 0

	for token, entry := range m.cache {
		if now.After(entry.expiresAt) {
			delete(m.cache, token)
			clearedCount++
		}
	}

	return clearedCount
}

// respondUnauthorized 返回401未授权响应
func (m *AuthMiddleware) respondUnauthorized(w http.ResponseWriter, r *http.Request, message string) {
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, map[string]string{"error": message})
}

// GetUserInfoFromContext 从上下文中获取用户信息
func GetUserInfoFromContext(ctx context.Context) (*UserInfo, bool) {
	userInfo, ok := ctx.Value(UserInfoKey).(*UserInfo)
	return userInfo, ok
}

// GetTokenFromContext 从上下文中获取Token
func GetTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(TokenKey).(string)
	return token, ok
}

// RequireRole 创建一个需要特定角色的中间件
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userInfo, ok := GetUserInfoFromContext(r.Context())
			if !ok {
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, map[string]string{"error": "User not authenticated"})
				return
			}

			hasRole := false
			for _, userRole := range userInfo.Roles {
				if userRole == role {
					hasRole = true
					break
				}
			}

			if !hasRole {
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, map[string]string{"error": fmt.Sprintf("Missing required role: %s", role)})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
