package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
)

// unreachableRedis возвращает клиент с заведомо недоступным адресом и
// короткими таймаутами, чтобы тест не ждал стандартного dial timeout
func unreachableRedis() redis.UniversalClient {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		ReadTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func TestRateLimiter_Limit_FailOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(unreachableRedis())
	cfg := LoginRateLimitConfig()

	router := gin.New()
	router.POST("/login", limiter.Limit(cfg), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// При недоступном Redis запросы пропускаются, в том числе сверх лимита
	for i := 0; i < cfg.MaxRequests+1; i++ {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/login", nil)
		router.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusOK, recorder.Code)
	}
}

func TestRateLimiter_LimitByIP_FailOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter := NewRateLimiter(unreachableRedis())

	router := gin.New()
	router.GET("/ws", limiter.LimitByIP(WSConnectRateLimitConfig()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/ws", nil)
	router.ServeHTTP(recorder, request)

	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRateLimitConfig_Presets(t *testing.T) {
	// Перебор кодов подключения ограничен жестче, чем WS-подключения
	assert.Less(t, JoinRateLimitConfig().MaxRequests, WSConnectRateLimitConfig().MaxRequests)
	// Логин — самый строгий лимит
	assert.Less(t, LoginRateLimitConfig().MaxRequests, JoinRateLimitConfig().MaxRequests)
}
