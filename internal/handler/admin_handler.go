package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"krypton/pkg/response"
)

// Dashboard 所有用户及余额
// GET /api/admin/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.svc.Admin.Dashboard(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, d)
}

// Stats 平台汇总
// GET /api/admin/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.Admin.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, stats)
}

// UserTransactions 指定用户的流水
// GET /api/admin/users/:id/transactions?limit=10
func (h *Handler) UserTransactions(c *gin.Context) {
	limit, ok := queryLimit(c)
	if !ok {
		response.ParamError(c, "limit must be an integer")
		return
	}

	entries, err := h.svc.Balances.History(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, entries)
}

// GetTransaction 单条流水
// GET /api/admin/transactions/:id
func (h *Handler) GetTransaction(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.ParamError(c, "id must be a positive integer")
		return
	}

	entry, err := h.svc.Balances.GetEntry(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, entry)
}

type SetBalanceRequest struct {
	Asset string           `json:"asset" binding:"required"`
	Value *decimal.Decimal `json:"value" binding:"required"`
}

// SetBalance 覆盖单个资产余额
// PUT /api/admin/users/:id/balance
func (h *Handler) SetBalance(c *gin.Context) {
	var req SetBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.svc.Balances.SetBalance(c.Request.Context(), c.Param("id"), req.Asset, *req.Value)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, result)
}

type ApplyTransactionRequest struct {
	Type   string           `json:"type" binding:"required"`
	Asset  string           `json:"asset" binding:"required"`
	Amount *decimal.Decimal `json:"amount" binding:"required"`
}

// ApplyTransaction 存款、提现或交易
// POST /api/admin/users/:id/transactions
func (h *Handler) ApplyTransaction(c *gin.Context) {
	var req ApplyTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.svc.Balances.ApplyTransaction(c.Request.Context(), c.Param("id"), req.Type, req.Asset, *req.Amount)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, result)
}
