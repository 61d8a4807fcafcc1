package handler

import (
	"github.com/gin-gonic/gin"

	"krypton/pkg/response"
)

// Market 最近一次行情快照及其是否过期，没有数据时返回 503
// GET /api/v1/market
func (h *Handler) Market(c *gin.Context) {
	view, err := h.svc.Market.Current(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, view)
}
