package handler

import (
	"net/http"

	"cardledger/internal/middleware"
	"cardledger/internal/service"
	"cardledger/pkg/pagination"
	"cardledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type CardHandler struct {
	cardService service.CardService
}

func NewCardHandler(cardService service.CardService) *CardHandler {
	return &CardHandler{cardService: cardService}
}

func (h *CardHandler) RegisterRoutes(router *gin.RouterGroup) {
	cards := router.Group("/api/cards")
	cards.Use(middleware.RequireAuth())
	{
		cards.POST("", h.CreateCard)
		cards.GET("", h.ListCards)
		cards.GET("/:id", h.GetCard)
		cards.PUT("/:id", h.UpdateCard)
		cards.DELETE("/:id", h.DeleteCard)
	}
}

// CreateCard registers a credit card for the authenticated user
// @Summary      Create credit card
// @Description  Registers a new credit card with its annual fee and due date
// @Tags         cards
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateCardRequest  true  "Create Card Payload"
// @Success      201      {object}  response.Response{data=service.CardResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/cards [post]
func (h *CardHandler) CreateCard(c *gin.Context) {
	var req service.CreateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	card, err := h.cardService.CreateCard(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, card))
}

// ListCards returns the authenticated user's cards
// @Summary      List credit cards
// @Description  Retrieves a paginated list of the user's credit cards
// @Tags         cards
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      500    {object}  response.Response
// @Router       /api/cards [get]
func (h *CardHandler) ListCards(c *gin.Context) {
	params := pagination.Parse(c)

	cards, total, err := h.cardService.ListCards(c.Request.Context(), middleware.UserID(c), params.Page, params.Limit)
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"cards": cards,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetCard returns a single card by ID
// @Summary      Get credit card
// @Description  Fetches one of the user's credit cards by ID
// @Tags         cards
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Card ID"
// @Success      200  {object}  response.Response{data=service.CardResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/cards/{id} [get]
func (h *CardHandler) GetCard(c *gin.Context) {
	card, err := h.cardService.GetCard(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, card))
}

// UpdateCard updates a card's details
// @Summary      Update credit card
// @Description  Updates a credit card's fee, due date or status
// @Tags         cards
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                     true  "Card ID"
// @Param        payload  body      service.UpdateCardRequest  true  "Update Card Payload"
// @Success      200      {object}  response.Response{data=service.CardResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/cards/{id} [put]
func (h *CardHandler) UpdateCard(c *gin.Context) {
	var req service.UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	card, err := h.cardService.UpdateCard(c.Request.Context(), c.Param("id"), req, middleware.UserID(c))
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, card))
}

// DeleteCard soft deletes a card
// @Summary      Delete credit card
// @Description  Soft deletes a credit card by ID
// @Tags         cards
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Card ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/cards/{id} [delete]
func (h *CardHandler) DeleteCard(c *gin.Context) {
	if err := h.cardService.DeleteCard(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Card deleted successfully"))
}
