package middleware

import (
	"errors"
	"net/http"
	"strings"

	"crisisintel/internal/apierr"
	"crisisintel/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ActorKey is the gin context key holding the resolved caller identity.
const ActorKey = "actor"

// AuthMiddleware creates a Gin middleware for JWT authentication. On
// success it injects a models.Actor into the context; the core never
// re-derives identity or role after this point.
func AuthMiddleware(secret []byte, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithCode(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortWithCode(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Authorization header format must be Bearer <token>")
			return
		}

		claims := &models.Claims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			// Ensure the token's signing method is what we expect
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})

		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithCode(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Token expired")
				return
			}
			logger.Error("Invalid JWT token", zap.Error(err))
			abortWithCode(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Invalid token")
			return
		}

		if !token.Valid {
			abortWithCode(c, http.StatusUnauthorized, apierr.CodeAuthRequired, "Invalid token")
			return
		}

		c.Set(ActorKey, models.Actor{
			UserID:  claims.UserID,
			Role:    claims.Role,
			IsAdmin: claims.IsAdmin,
		})

		c.Next()
	}
}

func abortWithCode(c *gin.Context, status int, code, detail string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "detail": detail}})
	c.Abort()
}

// Actor extracts the resolved caller identity from the context.
func Actor(c *gin.Context) models.Actor {
	return c.MustGet(ActorKey).(models.Actor)
}
