package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ordena_backend/internal/common"
	"ordena_backend/internal/config"
	"ordena_backend/internal/platform/metrics"
	"ordena_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

type mockTokenService struct{ mock.Mock }

func (m *mockTokenService) GenerateAccessToken(u shared.UserDataForToken) (string, time.Time, error) {
	args := m.Called(u)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
func (m *mockTokenService) GenerateRefreshToken(u shared.UserDataForToken) (string, time.Time, error) {
	args := m.Called(u)
	return args.String(0), args.Get(1).(time.Time), args.Error(2)
}
func (m *mockTokenService) ValidateToken(s string) (*shared.Claims, error) {
	args := m.Called(s)
	if c := args.Get(0); c != nil {
		return c.(*shared.Claims), args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockTokenService) ParseRefreshToken(s string) (*shared.Claims, error) {
	return m.ValidateToken(s)
}

type staticBlocklist map[string]bool

func (b staticBlocklist) IsBlocklisted(_ context.Context, jti string) (bool, error) {
	return b[jti], nil
}

func newAuthRouter(ts shared.TokenService, bl TokenBlocklist, roles ...string) *gin.Engine {
	r := gin.New()
	handlers := []gin.HandlerFunc{AuthMiddleware(ts, bl, zap.NewNop())}
	if len(roles) > 0 {
		handlers = append(handlers, RoleAuthMiddleware(roles...))
	}
	handlers = append(handlers, func(c *gin.Context) {
		actor := GetActor(c)
		c.JSON(http.StatusOK, gin.H{"user": actor.UserID.String(), "role": actor.Role})
	})
	r.GET("/protected", handlers...)
	return r
}

func doGet(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	uid := uuid.New()
	ts := new(mockTokenService)
	ts.On("ValidateToken", "good").Return(&shared.Claims{UserID: uid, Role: common.RoleBodega, TokenUse: "access", RegisteredClaims: jwt.RegisteredClaims{ID: "j1"}}, nil)
	ts.On("ValidateToken", "revoked").Return(&shared.Claims{UserID: uid, Role: common.RoleBodega, TokenUse: "access", RegisteredClaims: jwt.RegisteredClaims{ID: "j2"}}, nil)
	ts.On("ValidateToken", "refresh").Return(&shared.Claims{UserID: uid, TokenUse: "refresh"}, nil)
	ts.On("ValidateToken", "bad").Return(nil, errors.New("expired"))

	r := newAuthRouter(ts, staticBlocklist{"j2": true})

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "Bearer bad").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "Bearer revoked").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(r, "Bearer refresh").Code)

	w := doGet(r, "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), uid.String())
}

func TestRoleAuthMiddleware(t *testing.T) {
	ts := new(mockTokenService)
	ts.On("ValidateToken", "t").Return(&shared.Claims{UserID: uuid.New(), Role: common.RoleSucursal, TokenUse: "access"}, nil)

	assert.Equal(t, http.StatusForbidden, doGet(newAuthRouter(ts, nil, common.RoleAdmin), "Bearer t").Code)
	assert.Equal(t, http.StatusOK, doGet(newAuthRouter(ts, nil, common.RoleAdmin, common.RoleSucursal), "Bearer t").Code)
}

func TestErrorHandlerNotFound(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { _ = c.Error(errors.New("kaboom")) })
	r.GET("/conflict", func(c *gin.Context) { _ = c.Error(common.ErrConflict.WithDetails("dup")) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/conflict", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "dup")
}

func TestZapLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(ZapLogger(zap.NewNop(), &config.Config{}))
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDContextKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestLoginRateLimit(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate: rate.Limit(100), GeneralBurst: 100,
		LoginRate: rate.Limit(0.01), LoginBurst: 2,
		CleanupInterval: time.Minute,
	}, zap.NewNop())
	defer rl.Stop()

	r := gin.New()
	r.POST("/login", rl.LoginMiddleware(), func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if w.Code == http.StatusTooManyRequests {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
	assert.Equal(t, 1, rl.LoginLimiterCount())
}

func TestChainLimitsPerUserAfterAuth(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		GeneralRate: rate.Limit(0.01), GeneralBurst: 1,
		LoginRate: rate.Limit(1), LoginBurst: 1,
		CleanupInterval: time.Minute,
	}, zap.NewNop())
	defer rl.Stop()

	ts := new(mockTokenService)
	ts.On("ValidateToken", "a").Return(&shared.Claims{UserID: uuid.New(), Role: common.RoleBodega, TokenUse: "access"}, nil)
	ts.On("ValidateToken", "b").Return(&shared.Claims{UserID: uuid.New(), Role: common.RoleBodega, TokenUse: "access"}, nil)

	r := gin.New()
	reached := 0
	r.GET("/protected", Chain(AuthMiddleware(ts, nil, zap.NewNop()), rl.GeneralMiddleware()), func(c *gin.Context) {
		reached++
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusUnauthorized, doGet(r, "").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "Bearer a").Code)
	assert.Equal(t, http.StatusTooManyRequests, doGet(r, "Bearer a").Code)
	assert.Equal(t, http.StatusOK, doGet(r, "Bearer b").Code)
	assert.Equal(t, 2, reached)
	assert.Equal(t, 2, rl.GeneralLimiterCount())
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfigFrom(10, 10, 5), zap.NewNop())
	defer rl.Stop()

	rl.general.get("u1")
	rl.login.get("1.2.3.4")
	rl.cleanup(time.Now().Add(time.Hour))

	assert.Equal(t, 0, rl.GeneralLimiterCount())
	assert.Equal(t, 0, rl.LoginLimiterCount())
	rl.Stop()
}

func TestMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	rec := &recordingMetrics{}
	r := gin.New()
	r.Use(Metrics(rec))
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	assert.Equal(t, "/items/:id", rec.route)
	assert.Equal(t, http.StatusAccepted, rec.status)
}

type recordingMetrics struct {
	metrics.Nop
	route  string
	status int
}

func (r *recordingMetrics) ObserveHTTPRequest(_ string, route string, status int, _ time.Duration) {
	r.route = route
	r.status = status
}
