/*
 * @module api/middleware/auth_test
 * @description Token鉴权中间件单元测试
 * @architecture 测试层
 * @documentReference dev_docs/test_plan.md
 * @stateFlow 用httptest模拟认证服务 -> 构造请求 -> 断言放行/拦截与上下文注入
 * @rules 覆盖白名单、Bearer提取、远端验证、缓存命中、角色校验
 * @dependencies testing, net/http/httptest, stretchr/testify
 */

package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newAuthServer 模拟认证服务，valid控制验证结果，calls记录验证次数
func newAuthServer(t *testing.T, valid bool, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/verify", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		if calls != nil {
			atomic.AddInt32(calls, 1)
		}

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.NotEmpty(t, body["token"])

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(TokenVerificationResponse{
			Success:  valid,
			Valid:    valid,
			UserID:   "user-001",
			Username: "tester",
			Roles:    []string{"admin"},
		})
	}))
}

func newMiddlewareWithServer(t *testing.T, server *httptest.Server) *AuthMiddleware {
	t.Helper()
	old := os.Getenv("AUTH_SERVICE_URL")
	os.Setenv("AUTH_SERVICE_URL", server.URL)
	t.Cleanup(func() { os.Setenv("AUTH_SERVICE_URL", old) })
	return NewAuthMiddleware()
}

func okHandler(captured **UserInfo) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			if userInfo, ok := GetUserInfoFromContext(r.Context()); ok {
				*captured = userInfo
			}
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestWhitelistPathsBypassAuth(t *testing.T) {
	auth := NewAuthMiddleware()
	handler := auth.Middleware(okHandler(nil))

	for _, path := range []string{"/health", "/ready", "/metrics", "/swagger/index.html", "/api/kpis/categories"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, "路径 %s 应免鉴权", path)
	}
}

func TestMissingOrMalformedToken(t *testing.T) {
	auth := NewAuthMiddleware()
	handler := auth.Middleware(okHandler(nil))

	cases := []struct {
		name   string
		header string
	}{
		{"无Authorization头", ""},
		{"非Bearer格式", "Basic abc123"},
		{"Bearer后为空", "Bearer "},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/kpis/dashboard", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "User not authenticated", body["error"])
		})
	}
}

func TestValidTokenInjectsUserInfo(t *testing.T) {
	server := newAuthServer(t, true, nil)
	defer server.Close()
	auth := newMiddlewareWithServer(t, server)

	var captured *UserInfo
	handler := auth.Middleware(okHandler(&captured))

	req := httptest.NewRequest(http.MethodGet, "/api/kpis/dashboard", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "user-001", captured.UserID)
	assert.Equal(t, "tester", captured.Username)
	assert.Equal(t, []string{"admin"}, captured.Roles)
	// 认证服务未返回过期时间，默认1小时
	assert.WithinDuration(t, time.Now().Add(time.Hour), captured.ExpiresAt, time.Minute)
}

func TestInvalidTokenRejected(t *testing.T) {
	server := newAuthServer(t, false, nil)
	defer server.Close()
	auth := newMiddlewareWithServer(t, server)

	handler := auth.Middleware(okHandler(nil))
	req := httptest.NewRequest(http.MethodGet, "/api/kpis/dashboard", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerificationResultCached(t *testing.T) {
	var calls int32
	server := newAuthServer(t, true, &calls)
	defer server.Close()
	auth := newMiddlewareWithServer(t, server)

	handler := auth.Middleware(okHandler(nil))
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/kpis/dashboard", nil)
		req.Header.Set("Authorization", "Bearer cached-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClearExpiredCache(t *testing.T) {
	auth := NewAuthMiddleware()
	auth.saveToCache("stale", &UserInfo{UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute)})
	auth.saveToCache("fresh", &UserInfo{UserID: "u2", ExpiresAt: time.Now().Add(time.Hour)})

	assert.Equal(t, 1, auth.ClearExpiredCache())
	assert.Nil(t, auth.getFromCache("stale"))
	assert.NotNil(t, auth.getFromCache("fresh"))
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole("admin")(okHandler(nil))

	// 上下文无用户信息
	req := httptest.NewRequest(http.MethodGet, "/api/kpis", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// 角色不匹配
	userInfo := &UserInfo{UserID: "user-001", Roles: []string{"viewer"}}
	req = httptest.NewRequest(http.MethodGet, "/api/kpis", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserInfoKey, userInfo))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// 角色匹配
	userInfo.Roles = []string{"viewer", "admin"}
	req = httptest.NewRequest(http.MethodGet, "/api/kpis", nil)
	req = req.WithContext(context.WithValue(req.Context(), UserInfoKey, userInfo))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
