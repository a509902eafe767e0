package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/resilienthubs/booking-engine/internal/pkg/logger"
)

// RoleAdmin is the only role allowed on the admin API.
const RoleAdmin = "admin"

const adminSubjectKey = "admin_subject"

// AdminClaims are the claims of an admin bearer token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminAuth requires an HS256 bearer token signed with secret whose role
// claim is admin. An empty secret rejects every request.
func AdminAuth(secret string) echo.MiddlewareFunc {
	key := []byte(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if len(key) == 0 {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "admin access is not configured")
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing bearer token")
			}

			claims, err := parseAdminToken(token, key)
			if err != nil {
				logger.Warn("admin token rejected", zap.String("remote_ip", c.RealIP()), zap.Error(err))
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Role != RoleAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}

			c.Set(adminSubjectKey, claims.Subject)
			return next(c)
		}
	}
}

// AdminSubject returns the subject of the verified admin token.
func AdminSubject(c echo.Context) string {
	s, _ := c.Get(adminSubjectKey).(string)
	return s
}

func parseAdminToken(token string, key []byte) (*AdminClaims, error) {
	claims := &AdminClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
