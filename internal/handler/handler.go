package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"krypton/internal/service"
	"krypton/pkg/response"
)

// Services 处理器依赖的全部服务
type Services struct {
	Auth          *service.AuthService
	Credentials   *service.CredentialService
	Balances      *service.BalanceService
	KYC           *service.KYCService
	PasswordReset *service.PasswordResetService
	Admin         *service.AdminService
	Market        *service.MarketService
}

// Handler 统一处理器
type Handler struct {
	svc Services
	log *zap.Logger
}

func NewHandler(svc Services, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log.Named("http")}
}

// writeError 业务错误到 HTTP 状态码的唯一映射
func (h *Handler) writeError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.ParamError(c, ve.Error())
	case errors.Is(err, service.ErrDuplicateEmail):
		response.BusinessError(c, http.StatusConflict, response.CodeDuplicateEmail, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		response.BusinessError(c, http.StatusUnauthorized, response.CodeInvalidCredentials, err.Error())
	case errors.Is(err, service.ErrUnauthenticated):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrUserNotFound):
		response.BusinessError(c, http.StatusNotFound, response.CodeUserNotFound, err.Error())
	case errors.Is(err, service.ErrEntryNotFound):
		response.BusinessError(c, http.StatusNotFound, response.CodeEntryNotFound, err.Error())
	case errors.Is(err, service.ErrKYCNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		response.BusinessError(c, http.StatusConflict, response.CodeInvalidTransition, err.Error())
	case errors.Is(err, service.ErrInsufficientFunds):
		response.BusinessError(c, http.StatusUnprocessableEntity, response.CodeInsufficientFunds, err.Error())
	case errors.Is(err, service.ErrTokenInvalid):
		response.BusinessError(c, http.StatusBadRequest, response.CodeTokenInvalid, err.Error())
	case errors.Is(err, service.ErrMarketUnavailable):
		response.BusinessError(c, http.StatusServiceUnavailable, response.CodeMarketUnavailable, service.ErrMarketUnavailable.Error())
	case errors.Is(err, service.ErrSystemBusy):
		response.Error(c, http.StatusServiceUnavailable, response.CodeUnavailable, err.Error())
	default:
		// 存储错误不把细节返回给客户端
		h.log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		response.ServerError(c, "internal server error")
	}
}

func bindError(c *gin.Context, err error) {
	response.ParamError(c, "invalid request body: "+err.Error())
}

// queryLimit 解析 ?limit=，非法值返回 0 由下层取默认
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Health 健康检查
// GET /health
func (h *Handler) Health(c *gin.Context) {
	response.Success(c, gin.H{"status": "ok"})
}
