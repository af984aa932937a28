package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/aquacentre-api/internal/models"
)

type stubValidator struct{}

func (stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	switch token {
	case "customer":
		return &models.JWTClaims{UserID: "u1", Role: models.RoleCustomer}, nil
	case "admin":
		return &models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}, nil
	}
	return nil, errors.New("invalid token")
}

type envelope struct {
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
	Meta map[string]interface{} `json:"meta"`
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newProtectedRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": Claims(c).UserID})
	})
	r.GET("/api/v1/booking/:activity", chain...)
	return r
}

func TestJWTRejectsMissingTokenWithRedirect(t *testing.T) {
	r := newProtectedRouter(JWT(stubValidator{}, "/login"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/booking/AQUAGYM", nil))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "AUTH_REQUIRED", body.Error.Code)
	assert.Equal(t, "/login", body.Meta["redirect"])
	assert.Equal(t, "/api/v1/booking/AQUAGYM", body.Meta["from"])
}

func TestJWTAcceptsHeaderAndQueryToken(t *testing.T) {
	r := newProtectedRouter(JWT(stubValidator{}, "/login"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/booking/AQUAGYM", nil)
	req.Header.Set("Authorization", "Bearer customer")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/booking/AQUAGYM?access_token=customer", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/booking/AQUAGYM", nil)
	req.Header.Set("Authorization", "Bearer forged")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestOptionalJWTNeverBlocks(t *testing.T) {
	r := gin.New()
	r.POST("/reservations", OptionalJWT(stubValidator{}), func(c *gin.Context) {
		if claims := Claims(c); claims != nil {
			c.String(http.StatusOK, claims.UserID)
			return
		}
		c.String(http.StatusOK, "anonymous")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/reservations", nil))
	assert.Equal(t, "anonymous", w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/reservations?access_token=customer", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "anonymous", w.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/reservations", nil)
	req.Header.Set("Authorization", "Bearer customer")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "u1", w.Body.String())
}

func TestRequireRoles(t *testing.T) {
	r := newProtectedRouter(JWT(stubValidator{}, "/login"), RequireRoles(models.RoleAdmin))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/booking/AQUAGYM", nil)
	req.Header.Set("Authorization", "Bearer customer")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req.Header.Set("Authorization", "Bearer admin")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(60, 2)
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("1.1.1.1"))
	assert.False(t, rl.allow("1.1.1.1"))
	assert.True(t, rl.allow("2.2.2.2"))

	now = now.Add(time.Second)
	assert.True(t, rl.allow("1.1.1.1"))

	now = now.Add(time.Hour)
	rl.allow("3.3.3.3")
	assert.NotContains(t, rl.visitors, "1.1.1.1")
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	audit := &recordingAudit{}
	r := gin.New()
	r.GET("/export", Audit(audit, models.AuditActionAdminExport, "newsletter"), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.Status(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/export", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/export?fail=1", nil))

	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionAdminExport, audit.logs[0].Action)
	assert.Equal(t, "newsletter", audit.logs[0].Resource)
}
