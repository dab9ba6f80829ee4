package handler

import (
	"net/http"

	"cardledger/internal/middleware"
	"cardledger/internal/service"
	"cardledger/pkg/pagination"
	"cardledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type TransactionHandler struct {
	txService service.TransactionService
}

func NewTransactionHandler(txService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{txService: txService}
}

func (h *TransactionHandler) RegisterRoutes(router *gin.RouterGroup) {
	txs := router.Group("/api/transactions")
	txs.Use(middleware.RequireAuth())
	{
		txs.POST("", h.CreateTransaction)
		txs.GET("", h.ListTransactions)
	}

	redemptions := router.Group("/api/redemptions")
	redemptions.Use(middleware.RequireAuth())
	{
		redemptions.POST("", h.CreateRedemption)
		redemptions.GET("", h.ListRedemptions)
	}
}

// CreateTransaction records a card purchase
// @Summary      Record transaction
// @Description  Records a spending transaction against one of the user's cards
// @Tags         transactions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTransactionRequest  true  "Transaction Payload"
// @Success      201      {object}  response.Response{data=service.TransactionResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/transactions [post]
func (h *TransactionHandler) CreateTransaction(c *gin.Context) {
	var req service.CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tx, err := h.txService.CreateTransaction(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// ListTransactions returns a card's transactions within an optional date range
// @Summary      List transactions
// @Description  Retrieves a card's transactions, optionally filtered by date range
// @Tags         transactions
// @Security     BearerAuth
// @Produce      json
// @Param        card_id  query     string  true   "Card ID"
// @Param        from     query     string  false  "Start date (YYYY-MM-DD)"
// @Param        to       query     string  false  "End date (YYYY-MM-DD)"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Number of items per page (default 20)"
// @Success      200      {object}  response.Response{data=object}
// @Failure      400      {object}  response.Response
// @Router       /api/transactions [get]
func (h *TransactionHandler) ListTransactions(c *gin.Context) {
	params := pagination.Parse(c)

	txs, total, err := h.txService.ListTransactions(
		c.Request.Context(),
		middleware.UserID(c),
		c.Query("card_id"),
		c.Query("from"),
		c.Query("to"),
		params.Page,
		params.Limit,
	)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"total":        total,
		"page":         params.Page,
		"limit":        params.Limit,
	}))
}

// CreateRedemption records a points redemption
// @Summary      Record points redemption
// @Description  Records a points redemption against one of the user's cards
// @Tags         redemptions
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateRedemptionRequest  true  "Redemption Payload"
// @Success      201      {object}  response.Response{data=service.RedemptionResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/redemptions [post]
func (h *TransactionHandler) CreateRedemption(c *gin.Context) {
	var req service.CreateRedemptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	red, err := h.txService.CreateRedemption(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, red))
}

// ListRedemptions returns a card's points redemptions
// @Summary      List points redemptions
// @Description  Retrieves a card's points redemptions
// @Tags         redemptions
// @Security     BearerAuth
// @Produce      json
// @Param        card_id  query     string  true   "Card ID"
// @Param        page     query     int     false  "Page number (default 1)"
// @Param        limit    query     int     false  "Number of items per page (default 20)"
// @Success      200      {object}  response.Response{data=object}
// @Failure      400      {object}  response.Response
// @Router       /api/redemptions [get]
func (h *TransactionHandler) ListRedemptions(c *gin.Context) {
	params := pagination.Parse(c)

	reds, total, err := h.txService.ListRedemptions(
		c.Request.Context(),
		middleware.UserID(c),
		c.Query("card_id"),
		params.Page,
		params.Limit,
	)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"redemptions": reds,
		"total":       total,
		"page":        params.Page,
		"limit":       params.Limit,
	}))
}
