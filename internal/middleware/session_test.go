package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func sessionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func signToken(t *testing.T, claims SessionClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func TestSessionContextExtractsIdentity(t *testing.T) {
	engine := sessionRouter()

	clinicianID := uuid.New()
	clinicID := uuid.New()

	var gotClinician, gotClinic uuid.UUID
	engine.GET("/x", SessionContext(SessionConfig{Secret: testSecret}), func(c *gin.Context) {
		gotClinician = c.MustGet(ContextClinicianID).(uuid.UUID)
		gotClinic = c.MustGet(ContextClinicID).(uuid.UUID)
		c.Status(http.StatusOK)
	})

	token := signToken(t, SessionClaims{
		ClinicianID: clinicianID.String(),
		ClinicID:    clinicID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clinicianID, gotClinician)
	assert.Equal(t, clinicID, gotClinic)
}

func TestSessionContextRejectsMissingToken(t *testing.T) {
	engine := sessionRouter()
	engine.GET("/x", SessionContext(SessionConfig{Secret: testSecret}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionContextRejectsBadSignature(t *testing.T) {
	engine := sessionRouter()
	engine.GET("/x", SessionContext(SessionConfig{Secret: testSecret}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		ClinicianID: uuid.NewString(),
		ClinicID:    uuid.NewString(),
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionContextRejectsMalformedIdentity(t *testing.T) {
	engine := sessionRouter()
	engine.GET("/x", SessionContext(SessionConfig{Secret: testSecret}), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token := signToken(t, SessionClaims{ClinicianID: "not-a-uuid", ClinicID: uuid.NewString()})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
