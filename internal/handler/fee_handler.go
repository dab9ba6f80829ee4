package handler

import (
	"net/http"
	"strconv"
	"time"

	"cardledger/internal/middleware"
	"cardledger/internal/service"
	"cardledger/pkg/pagination"
	"cardledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type FeeHandler struct {
	feeService service.FeeService
}

func NewFeeHandler(feeService service.FeeService) *FeeHandler {
	return &FeeHandler{feeService: feeService}
}

func (h *FeeHandler) RegisterRoutes(router *gin.RouterGroup) {
	records := router.Group("/api/fee-records")
	records.Use(middleware.RequireAuth())
	{
		records.GET("", h.ListRecords)
		records.GET("/:id", h.GetRecord)
		records.PUT("/:id/payment", h.RecordPayment)
	}

	admin := router.Group("/api/fee-records")
	admin.Use(middleware.RequireRole("admin"))
	{
		admin.POST("/mark-overdue", h.MarkOverdue)
	}
}

// ListRecords returns the user's annual fee records
// @Summary      List fee records
// @Description  Retrieves annual fee records, optionally filtered by card, year and status
// @Tags         fee-records
// @Security     BearerAuth
// @Produce      json
// @Param        card_id   query     string  false  "Filter by card ID"
// @Param        fee_year  query     int     false  "Filter by fee year"
// @Param        status    query     string  false  "Filter by status (pending, paid, waived, overdue)"
// @Param        page      query     int     false  "Page number (default 1)"
// @Param        limit     query     int     false  "Number of items per page (default 20)"
// @Success      200       {object}  response.Response{data=object}
// @Failure      400       {object}  response.Response
// @Router       /api/fee-records [get]
func (h *FeeHandler) ListRecords(c *gin.Context) {
	params := pagination.Parse(c)
	year, _ := strconv.Atoi(c.DefaultQuery("fee_year", "0"))

	records, total, err := h.feeService.ListRecords(
		c.Request.Context(),
		middleware.UserID(c),
		c.Query("card_id"),
		year,
		c.Query("status"),
		params.Page,
		params.Limit,
	)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"records": records,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}

// GetRecord returns a single fee record
// @Summary      Get fee record
// @Description  Fetches one annual fee record by ID, including its evaluation snapshot
// @Tags         fee-records
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Record ID"
// @Success      200  {object}  response.Response{data=service.FeeRecordResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/fee-records/{id} [get]
func (h *FeeHandler) GetRecord(c *gin.Context) {
	record, err := h.feeService.GetRecord(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// RecordPayment marks a fee record as paid
// @Summary      Record fee payment
// @Description  Marks a pending or overdue fee record as paid. Waived records have nothing to pay.
// @Tags         fee-records
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Record ID"
// @Param        payload  body      service.RecordPaymentRequest  true  "Payment Payload"
// @Success      200      {object}  response.Response{data=service.FeeRecordResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/fee-records/{id}/payment [put]
func (h *FeeHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	record, err := h.feeService.RecordPayment(c.Request.Context(), middleware.UserID(c), c.Param("id"), req)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, record))
}

// MarkOverdue flips past-due pending records to overdue
// @Summary      Mark overdue fee records
// @Description  Marks pending records whose due date has passed as overdue. Admin only.
// @Tags         fee-records
// @Security     BearerAuth
// @Produce      json
// @Param        as_of  query     string  false  "Cutoff date (YYYY-MM-DD, default today)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      400    {object}  response.Response
// @Router       /api/fee-records/mark-overdue [post]
func (h *FeeHandler) MarkOverdue(c *gin.Context) {
	asOf := time.Now().UTC()
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid as_of date, expected YYYY-MM-DD"))
			return
		}
		asOf = parsed
	}

	count, err := h.feeService.MarkOverdue(c.Request.Context(), asOf)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"marked_overdue": count,
	}))
}
