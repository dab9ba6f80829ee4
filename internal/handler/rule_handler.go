package handler

import (
	"net/http"

	"cardledger/internal/middleware"
	"cardledger/internal/service"
	"cardledger/pkg/response"

	"github.com/gin-gonic/gin"
)

type RuleHandler struct {
	ruleService service.RuleService
}

func NewRuleHandler(ruleService service.RuleService) *RuleHandler {
	return &RuleHandler{ruleService: ruleService}
}

func (h *RuleHandler) RegisterRoutes(router *gin.RouterGroup) {
	rules := router.Group("/api/waiver-rules")
	rules.Use(middleware.RequireAuth())
	{
		rules.POST("", h.CreateRule)
		rules.PUT("/:id", h.UpdateRule)
		rules.DELETE("/:id", h.DeleteRule)
	}

	cards := router.Group("/api/cards")
	cards.Use(middleware.RequireAuth())
	{
		cards.GET("/:id/waiver-rules", h.GetRulesByCard)
	}
}

// CreateRule attaches a waiver rule to one of the user's cards
// @Summary      Create waiver rule
// @Description  Creates a fee waiver rule, standalone or as part of a rule group
// @Tags         waiver-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateWaiverRuleRequest  true  "Create Rule Payload"
// @Success      201      {object}  response.Response{data=service.WaiverRuleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/waiver-rules [post]
func (h *RuleHandler) CreateRule(c *gin.Context) {
	var req service.CreateWaiverRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.ruleService.CreateRule(c.Request.Context(), req, middleware.UserID(c))
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, rule))
}

// UpdateRule updates a waiver rule
// @Summary      Update waiver rule
// @Description  Updates a fee waiver rule's condition, grouping or window
// @Tags         waiver-rules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                           true  "Rule ID"
// @Param        payload  body      service.UpdateWaiverRuleRequest  true  "Update Rule Payload"
// @Success      200      {object}  response.Response{data=service.WaiverRuleResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/waiver-rules/{id} [put]
func (h *RuleHandler) UpdateRule(c *gin.Context) {
	var req service.UpdateWaiverRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), c.Param("id"), req, middleware.UserID(c))
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rule))
}

// DeleteRule removes a waiver rule
// @Summary      Delete waiver rule
// @Description  Deletes a fee waiver rule by ID
// @Tags         waiver-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Rule ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/waiver-rules/{id} [delete]
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	if err := h.ruleService.DeleteRule(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Rule deleted successfully"))
}

// GetRulesByCard lists a card's waiver rules ordered by priority
// @Summary      List waiver rules for card
// @Description  Retrieves all waiver rules configured for a card, ordered by priority
// @Tags         waiver-rules
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Card ID"
// @Success      200  {object}  response.Response{data=[]service.WaiverRuleResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/cards/{id}/waiver-rules [get]
func (h *RuleHandler) GetRulesByCard(c *gin.Context) {
	rules, err := h.ruleService.GetRulesByCard(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		status := statusFromError(err)
		c.JSON(status, response.Error(status, err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, rules))
}
