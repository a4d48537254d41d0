package middleware

import (
	"net/http"
	"strings"

	"taskhub/internal/api/auth"

	"github.com/gin-gonic/gin"
)

// UserIDKey 是认证后写入 gin.Context 的用户 ID 键。
const UserIDKey = "userID"

// AuthMiddleware 校验 Bearer 令牌并将 userID 写入上下文。
//
// 缺少令牌返回 401；令牌无效或过期返回 403。
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		tokenStr := bearerToken(c.GetHeader("Authorization"))
		if tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access denied, token not provided"})
			return
		}

		uid, err := auth.ParseToken(secret, tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// bearerToken 取出 "Bearer <token>" 中的 token 部分。
func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// UserID 返回当前请求的用户 ID。
func UserID(c *gin.Context) uint {
	return c.GetUint(UserIDKey)
}
