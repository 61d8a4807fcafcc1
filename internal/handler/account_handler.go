package handler

import (
	"github.com/gin-gonic/gin"

	"krypton/internal/model"
	"krypton/internal/service"
	"krypton/pkg/response"
)

// GetMe 当前用户和余额
// GET /api/v1/me
func (h *Handler) GetMe(c *gin.Context) {
	id := currentIdentity(c)
	balance, err := h.svc.Balances.GetBalance(c.Request.Context(), id.User.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"user": id.User, "balance": balance})
}

type UpdateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

// UpdateMe 只接受姓名、邮箱、手机号，其他字段忽略
// PATCH /api/v1/me
func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	user, err := h.svc.Credentials.Update(c.Request.Context(), currentIdentity(c).User.ID, model.UserPatch{
		Name:  req.Name,
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, user)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

// ChangePassword 修改密码
// POST /api/v1/me/password
func (h *Handler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	err := h.svc.Credentials.ChangePassword(c.Request.Context(), currentIdentity(c).User.ID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{"message": "password updated"})
}

// GetBalance 余额及美元估值
// GET /api/v1/me/balance
func (h *Handler) GetBalance(c *gin.Context) {
	ctx := c.Request.Context()
	balance, err := h.svc.Balances.GetBalance(ctx, currentIdentity(c).User.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"balance":   balance,
		"valuation": service.Value(balance, h.svc.Market.Prices(ctx)),
	})
}

// ListTransactions 最近的流水
// GET /api/v1/me/transactions?limit=10
func (h *Handler) ListTransactions(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		response.ParamError(c, "limit must be an integer")
		return
	}

	entries, err := h.svc.Balances.History(c.Request.Context(), currentIdentity(c).User.ID, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, entries)
}

// GetKYC 认证记录
// GET /api/v1/me/kyc
func (h *Handler) GetKYC(c *gin.Context) {
	record, err := h.svc.KYC.Get(c.Request.Context(), currentIdentity(c).User.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, record)
}

type SubmitKYCRequest struct {
	DocumentType   string `json:"document_type"`
	DocumentNumber string `json:"document_number"`
}

// SubmitKYC 提交即通过
// POST /api/v1/me/kyc
func (h *Handler) SubmitKYC(c *gin.Context) {
	var req SubmitKYCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	record, err := h.svc.KYC.Submit(c.Request.Context(), currentIdentity(c).User.ID, service.KYCInput{
		DocumentType:   req.DocumentType,
		DocumentNumber: req.DocumentNumber,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, record)
}
