package middleware

import (
	"net/http"
	"strings"

	"github.com/desarrollo-Urbani/Visor-leads-urbani/internal/model"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/jwtutil"
	"github.com/desarrollo-Urbani/Visor-leads-urbani/pkg/logger"
	appmetrics "github.com/desarrollo-Urbani/Visor-leads-urbani/prometheus"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const userKey = "user"

// JWTAuthMiddleware validates the bearer token. A missing token is 401, a bad one 403.
func JWTAuthMiddleware(jwtUtil *jwtutil.JWTUtil) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromEcho(c)

			tokenString := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if tokenString == "" {
				log.Warn("Missing authorization token")
				appmetrics.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access denied. No token provided."})
			}

			claims, err := jwtUtil.ValidateToken(tokenString)
			if err != nil {
				log.Warn("Invalid or expired token", zap.Error(err))
				appmetrics.RecordAuthError("invalid_token")
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Invalid or expired token"})
			}

			c.Set(userKey, claims)
			log = logger.With(c, zap.Uint("user_id", claims.UserID), zap.String("role", claims.Role))
			log.Debug("JWT token validated successfully")

			return next(c)
		}
	}
}

// RequireRole lets through only users whose token carries one of the roles
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := CurrentUser(c)
			if claims == nil {
				appmetrics.RecordAuthError("missing_token")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Access denied. No token provided."})
			}

			role := model.NormalizeRole(claims.Role)
			for _, r := range roles {
				if role == r {
					return next(c)
				}
			}

			logger.FromEcho(c).Warn("Insufficient role",
				zap.Uint("user_id", claims.UserID),
				zap.String("role", claims.Role),
				zap.String("path", c.Path()))
			appmetrics.RecordAuthError("forbidden_role")
			return c.JSON(http.StatusForbidden, echo.Map{"error": "Insufficient permissions"})
		}
	}
}

// CurrentUser returns the claims of the authenticated user, or nil
func CurrentUser(c echo.Context) *jwtutil.UserClaims {
	claims, _ := c.Get(userKey).(*jwtutil.UserClaims)
	return claims
}

// SetCurrentUser stores claims as if the token had been validated
func SetCurrentUser(c echo.Context, claims *jwtutil.UserClaims) {
	c.Set(userKey, claims)
}

func bearerToken(header string) string {
	parts := strings.Fields(header)
	switch len(parts) {
	case 1:
		if strings.EqualFold(parts[0], "bearer") {
			return ""
		}
		return parts[0]
	case 2:
		return parts[1]
	}
	return ""
}
