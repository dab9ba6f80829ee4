package handler

import (
	"net/http"
	"strconv"
	"time"

	"cardledger/internal/middleware"
	"cardledger/internal/service"
	"cardledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type WaiverHandler struct {
	waiverService service.WaiverService
}

func NewWaiverHandler(waiverService service.WaiverService) *WaiverHandler {
	return &WaiverHandler{waiverService: waiverService}
}

func (h *WaiverHandler) RegisterRoutes(router *gin.RouterGroup) {
	waivers := router.Group("/api/waivers")
	waivers.Use(middleware.RequireAuth())
	{
		waivers.GET("/check/:cardId", h.CheckWaiver)
		waivers.GET("/check-all", h.CheckAllForUser)
		waivers.POST("/batch-check", h.BatchCheck)
		waivers.POST("/records", h.CreateRecord)
		waivers.POST("/batch-records", h.BatchCreateRecords)
	}
}

// feeYear reads the fee_year query parameter, defaulting to the current year.
func feeYear(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("fee_year", strconv.Itoa(time.Now().UTC().Year()))
	year, err := strconv.Atoi(raw)
	if err != nil || year < 2000 || year > 2200 {
		return 0, false
	}
	return year, true
}

// CheckWaiver evaluates a card's waiver conditions without persisting anything
// @Summary      Check waiver eligibility
// @Description  Evaluates a card's waiver rules for a fee year. Read-only, nothing is stored.
// @Tags         waivers
// @Security     BearerAuth
// @Produce      json
// @Param        cardId    path      string  true   "Card ID"
// @Param        fee_year  query     int     false  "Fee year (default current year)"
// @Success      200       {object}  response.Response{data=service.EvaluationResponse}
// @Failure      400       {object}  response.Response
// @Failure      404       {object}  response.Response
// @Router       /api/waivers/check/{cardId} [get]
func (h *WaiverHandler) CheckWaiver(c *gin.Context) {
	year, ok := feeYear(c)
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid fee_year"))
		return
	}

	eval, err := h.waiverService.CheckWaiver(c.Request.Context(), middleware.UserID(c), c.Param("cardId"), year)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, eval))
}

// CheckAllForUser evaluates every active card of the authenticated user
// @Summary      Check waivers for all cards
// @Description  Evaluates waiver conditions for every active card the user owns
// @Tags         waivers
// @Security     BearerAuth
// @Produce      json
// @Param        fee_year  query     int  false  "Fee year (default current year)"
// @Success      200       {object}  response.Response{data=[]service.BatchCheckResult}
// @Failure      400       {object}  response.Response
// @Router       /api/waivers/check-all [get]
func (h *WaiverHandler) CheckAllForUser(c *gin.Context) {
	year, ok := feeYear(c)
	if !ok {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid fee_year"))
		return
	}

	results, err := h.waiverService.CheckAllForUser(c.Request.Context(), middleware.UserID(c), year)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, results))
}

// BatchCheck evaluates several cards concurrently
// @Summary      Batch check waivers
// @Description  Evaluates waiver conditions for a set of cards. One card failing does not abort the rest.
// @Tags         waivers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BatchWaiverRequest  true  "Batch Check Payload"
// @Success      200      {object}  response.Response{data=[]service.BatchCheckResult}
// @Failure      400      {object}  response.Response
// @Router       /api/waivers/batch-check [post]
func (h *WaiverHandler) BatchCheck(c *gin.Context) {
	var req service.BatchWaiverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	results := h.waiverService.BatchCheck(c.Request.Context(), middleware.UserID(c), req)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, results))
}

// CreateRecord evaluates a card and upserts its annual fee record
// @Summary      Create annual fee record
// @Description  Evaluates waiver conditions and writes the fee record for (card, fee year). Idempotent per card and year.
// @Tags         waivers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateFeeRecordRequest  true  "Create Record Payload"
// @Success      200      {object}  response.Response{data=service.FeeRecordResponse}
// @Success      201      {object}  response.Response{data=service.FeeRecordResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      409      {object}  response.Response
// @Router       /api/waivers/records [post]
func (h *WaiverHandler) CreateRecord(c *gin.Context) {
	var req service.CreateFeeRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	record, created, err := h.waiverService.CreateRecord(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, response.Success(status, record))
}

// BatchCreateRecords evaluates and upserts fee records for several cards
// @Summary      Batch create fee records
// @Description  Evaluates and writes annual fee records for a set of cards, reporting per-card outcomes
// @Tags         waivers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.BatchWaiverRequest  true  "Batch Create Payload"
// @Success      200      {object}  response.Response{data=service.BatchCreateSummary}
// @Failure      400      {object}  response.Response
// @Router       /api/waivers/batch-records [post]
func (h *WaiverHandler) BatchCreateRecords(c *gin.Context) {
	var req service.BatchWaiverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	summary := h.waiverService.BatchCreateRecords(c.Request.Context(), middleware.UserID(c), req)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, summary))
}
