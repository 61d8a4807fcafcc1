package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeParamError       = 400
	CodeUnauthorized     = 401
	CodeForbidden        = 403
	CodeNotFound         = 404
	CodeMethodNotAllowed = 405
	CodeServerError      = 500
	CodeUnavailable      = 503
)

const (
	CodeDuplicateEmail     = 1001
	CodeInvalidCredentials = 1002
	CodeInsufficientFunds  = 1003
	CodeInvalidTransition  = 1004
	CodeUserNotFound       = 1005
	CodeTokenInvalid       = 1006
	CodeMarketUnavailable  = 1007
	CodeEntryNotFound      = 1008
)

// ErrorBody 错误响应体，成功时直接返回业务数据
type ErrorBody struct {
	Code  int    `json:"code"`
	Error string `json:"error"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, data)
}

func Error(c *gin.Context, status, code int, message string) {
	c.AbortWithStatusJSON(status, ErrorBody{
		Code:  code,
		Error: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeParamError, message)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, CodeForbidden, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeServerError, message)
}

func BusinessError(c *gin.Context, status, code int, message string) {
	Error(c, status, code, message)
}
