package handler

import (
	"github.com/gin-gonic/gin"

	"krypton/internal/service"
	"krypton/pkg/response"
)

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// Register 注册，成功返回用户、全零余额和 token
// POST /api/v1/auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.svc.Auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, session)
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 登录
// POST /api/v1/auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.svc.Auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, session)
}

// Logout 注销当前 token
// POST /api/v1/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.svc.Auth.Logout(c.Request.Context(), currentIdentity(c)); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "logged out"})
}

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ForgotPassword 无论邮箱是否存在都返回 202
// POST /api/v1/auth/password/forgot
func (h *Handler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.svc.PasswordReset.Request(c.Request.Context(), req.Email); err != nil {
		h.writeError(c, err)
		return
	}
	response.Accepted(c, gin.H{"message": "if the email is registered, a reset link has been sent"})
}

type ResetPasswordRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required"`
}

// ResetPassword 使用重置令牌设置新密码
// POST /api/v1/auth/password/reset
func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.svc.PasswordReset.Redeem(c.Request.Context(), req.Token, req.NewPassword); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password updated"})
}
