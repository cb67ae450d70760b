package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	ContextClinicianID = "clinician_id"
	ContextClinicID    = "clinic_id"
)

// SessionClaims carries the acting identity a draft session runs under.
// This middleware only extracts who is acting; it is not an authentication
// layer.
type SessionClaims struct {
	ClinicianID string `json:"clinician_id"`
	ClinicID    string `json:"clinic_id"`
	jwt.RegisteredClaims
}

type SessionConfig struct {
	Secret string
}

// SessionContext parses the Bearer token and places the clinician and
// clinic ids on the request context for the submission assembler.
func SessionContext(cfg SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "missing session token",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}

		token := strings.TrimPrefix(header, "Bearer ")
		claims := &SessionClaims{}
		parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(cfg.Secret), nil
		})
		if err != nil || !parsed.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "invalid session token",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}

		clinicianID, err := uuid.Parse(claims.ClinicianID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "invalid clinician id in token",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}
		clinicID, err := uuid.Parse(claims.ClinicID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: "invalid clinic id in token",
				TraceID: c.GetString(ContextRequestID),
			})
			return
		}

		c.Set(ContextClinicianID, clinicianID)
		c.Set(ContextClinicID, clinicID)
		c.Next()
	}
}
