package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devlog-app/devlog/utils"
)

// AuthOptional resolves the caller's identity when a valid bearer token is
// present and continues anonymously otherwise. Public routes whose responses
// vary for the owner (draft visibility) use this instead of AuthRequired.
func AuthOptional() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		authHeader := ctx.GetHeader("Authorization")
		if authHeader == "" {
			ctx.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			ctx.Next()
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" || utils.IsTokenBlacklisted(token) {
			ctx.Next()
			return
		}

		claims, err := utils.ParseToken(token)
		if err != nil {
			ctx.Next()
			return
		}

		ctx.Set(ContextUserIDKey, claims.UserID)
		ctx.Set(ContextUsernameKey, claims.Username)
		ctx.Next()
	}
}
