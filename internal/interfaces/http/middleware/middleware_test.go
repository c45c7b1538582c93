package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/servora/servora/internal/infrastructure/auth"
	"github.com/servora/servora/internal/shared/authorization"
	"github.com/servora/servora/internal/shared/constants"
	"github.com/servora/servora/internal/shared/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/whoami", func(c *gin.Context) {
		actor, err := authorization.ActorFrom(c)
		if err != nil {
			c.Status(http.StatusTeapot)
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": actor.ID, "role": actor.Role, "department": actor.Department})
	})
	r.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", "servora-test", time.Hour)
	token, err := jwtService.Generate(authorization.Actor{ID: "u-1", Role: authorization.RoleAgent, Department: "ops"})
	require.NoError(t, err)

	expiredToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
		Role: authorization.RoleAgent,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-1",
			Issuer:    "servora-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{name: "missing header", header: "", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not-a-jwt", wantStatus: http.StatusUnauthorized},
		{name: "expired token", header: "Bearer " + expiredToken, wantStatus: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer " + token, wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer " + token, wantStatus: http.StatusOK},
	}

	mw := NewAuthMiddleware(jwtService, logger.NewNopLogger())
	engine := newEngine(mw.RequireAuth())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tt.header != "" {
				req.Header.Set(constants.HeaderAuthorization, tt.header)
			}
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.JSONEq(t, `{"id":"u-1","role":"agent","department":"ops"}`, w.Body.String())
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	engine := newEngine(RequestID())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	assert.NotEmpty(t, w.Header().Get(constants.HeaderXRequestID))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(constants.HeaderXRequestID, "req-42")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Header().Get(constants.HeaderXRequestID))
}

func TestRecovery(t *testing.T) {
	engine := newEngine(Recovery(logger.NewNopLogger()))

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer secret")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), constants.ErrMsgInternalServerError)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestMaskedHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(constants.HeaderAuthorization, "Bearer secret")

	headers := maskedHeaders(req)

	assert.Contains(t, headers, "Authorization: *")
	for _, h := range headers {
		assert.NotContains(t, h, "secret")
	}
}

func TestRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimiter(client, 2, time.Minute, logger.NewNopLogger())
	engine := newEngine(limiter.Limit())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		codes = append(codes, w.Code)
	}

	// /whoami answers 418 without an actor, which is enough to tell it ran.
	assert.Equal(t, []int{http.StatusTeapot, http.StatusTeapot, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	limiter := NewRateLimiter(client, 1, time.Minute, logger.NewNopLogger())
	engine := newEngine(limiter.Limit())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
		assert.Equal(t, http.StatusTeapot, w.Code)
	}
}

func TestCORS(t *testing.T) {
	engine := newEngine(CORS([]string{"https://app.example.com"}))

	req := httptest.NewRequest(http.MethodOptions, "/whoami", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
