package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"krypton/internal/service"
	"krypton/pkg/response"
)

const identityKey = "krypton.identity"

// LoggerMiddleware 请求日志
func LoggerMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		if query != "" {
			path = path + "?" + query
		}
		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Warn("http request", fields...)
			return
		}
		log.Info("http request", fields...)
	}
}

// RecoveryMiddleware 捕获 panic，返回 500
func RecoveryMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error("panic recovered", zap.Any("panic", err), zap.String("path", c.Request.URL.Path), zap.Stack("stack"))
				response.ServerError(c, "internal server error")
			}
		}()
		c.Next()
	}
}

// CORSMiddleware 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// RequireAuth 校验 Bearer token，把身份放进上下文
func RequireAuth(auth *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			response.Unauthorized(c, "missing bearer token")
			return
		}

		id, err := auth.Resolve(c.Request.Context(), strings.TrimSpace(token))
		if err != nil {
			if errors.Is(err, service.ErrUnauthenticated) {
				response.Unauthorized(c, err.Error())
				return
			}
			response.ServerError(c, "internal server error")
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// RequireAdmin 必须挂在 RequireAuth 之后
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := currentIdentity(c)
		if id == nil {
			response.Unauthorized(c, "authentication required")
			return
		}
		if !id.User.IsAdmin {
			response.Forbidden(c, "admin access required")
			return
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) *service.Identity {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	id, _ := v.(*service.Identity)
	return id
}
