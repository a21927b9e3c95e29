package jwt

import (
	"strings"

	"MarketMind/internal/config"
	"MarketMind/pkg/back"
	"MarketMind/pkg/util/myjwt"
	"MarketMind/pkg/xerr"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID   = "user_id"
	CtxUsername = "username"
)

// Auth 校验 Authorization: Bearer 或 access_token cookie
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c.GetHeader("Authorization"))
		if tokenString == "" {
			if cookie, err := c.Cookie(config.GetConfig().JwtConfig.CookieName); err == nil {
				tokenString = strings.TrimSpace(cookie)
			}
		}
		if tokenString == "" {
			back.Error(c, xerr.Unauthorized, "missing or invalid authorization header")
			c.Abort()
			return
		}

		claims, err := myjwt.ParseToken(tokenString)
		if err != nil {
			back.Error(c, xerr.Unauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUsername, claims.Username)
		c.Request = c.Request.WithContext(myjwt.WithClaims(c.Request.Context(), claims))
		c.Next()
	}
}

// UserID 读取 Auth 写入的用户 ID，未登录返回 0
func UserID(c *gin.Context) int64 {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return 0
	}
	id, _ := v.(int64)
	return id
}

func bearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
