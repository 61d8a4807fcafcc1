package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"krypton/pkg/response"
)

// SetupRouter 配置路由，mode 为空时使用 release
func SetupRouter(h *Handler, mode string, log *zap.Logger) *gin.Engine {
	if mode == "" {
		mode = gin.ReleaseMode
	}
	gin.SetMode(mode)

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(RecoveryMiddleware(log))
	r.Use(LoggerMiddleware(log.Named("access")))
	r.Use(CORSMiddleware())

	r.NoMethod(func(c *gin.Context) {
		response.Error(c, http.StatusMethodNotAllowed, response.CodeMethodNotAllowed, "method not allowed")
	})
	r.NoRoute(func(c *gin.Context) {
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "not found")
	})

	requireAuth := RequireAuth(h.svc.Auth)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.Register)
			auth.POST("/login", h.Login)
			auth.POST("/logout", requireAuth, h.Logout)
			auth.POST("/password/forgot", h.ForgotPassword)
			auth.POST("/password/reset", h.ResetPassword)
		}

		me := api.Group("/me", requireAuth)
		{
			me.GET("", h.GetMe)
			me.PATCH("", h.UpdateMe)
			me.POST("/password", h.ChangePassword)
			me.GET("/balance", h.GetBalance)
			me.GET("/transactions", h.ListTransactions)
			me.GET("/kyc", h.GetKYC)
			me.POST("/kyc", h.SubmitKYC)
		}

		api.GET("/market", h.Market)
	}

	admin := r.Group("/api/admin", requireAuth, RequireAdmin())
	{
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/stats", h.Stats)
		admin.GET("/users/:id/transactions", h.UserTransactions)
		admin.POST("/users/:id/transactions", h.ApplyTransaction)
		admin.PUT("/users/:id/balance", h.SetBalance)
		admin.GET("/transactions/:id", h.GetTransaction)
	}

	r.GET("/health", h.Health)

	return r
}
