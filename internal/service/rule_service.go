package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cardledger/internal/model"
	"cardledger/internal/repository"
	"cardledger/internal/waiver"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateWaiverRuleRequest struct {
	CardID          string `json:"card_id" binding:"required,uuid"`
	RuleGroupID     string `json:"rule_group_id" binding:"omitempty,uuid"`
	RuleName        string `json:"rule_name" binding:"required"`
	ConditionType   string `json:"condition_type" binding:"required,oneof=spending_amount transaction_count points_redeem specific_category"`
	ConditionValue  string `json:"condition_value"` // Decimal string, e.g. "50000"
	ConditionCount  *int   `json:"condition_count"`
	ConditionPeriod string `json:"condition_period" binding:"required,oneof=monthly quarterly yearly"`
	Category        string `json:"category"`
	LogicalOperator string `json:"logical_operator" binding:"omitempty,oneof=AND OR"`
	WaiverPercent   int    `json:"waiver_percent" binding:"omitempty,min=1,max=100"`
	Priority        int    `json:"priority"`
	IsEnabled       *bool  `json:"is_enabled"`
	EffectiveFrom   string `json:"effective_from"` // YYYY-MM-DD
	EffectiveTo     string `json:"effective_to"`   // YYYY-MM-DD
}

type UpdateWaiverRuleRequest struct {
	RuleName        string `json:"rule_name" binding:"required"`
	ConditionType   string `json:"condition_type" binding:"required,oneof=spending_amount transaction_count points_redeem specific_category"`
	ConditionValue  string `json:"condition_value"`
	ConditionCount  *int   `json:"condition_count"`
	ConditionPeriod string `json:"condition_period" binding:"required,oneof=monthly quarterly yearly"`
	Category        string `json:"category"`
	LogicalOperator string `json:"logical_operator" binding:"omitempty,oneof=AND OR"`
	WaiverPercent   int    `json:"waiver_percent" binding:"omitempty,min=1,max=100"`
	Priority        int    `json:"priority"`
	IsEnabled       *bool  `json:"is_enabled"`
	EffectiveFrom   string `json:"effective_from"`
	EffectiveTo     string `json:"effective_to"`
}

type WaiverRuleResponse struct {
	ID              string  `json:"id"`
	CardID          string  `json:"card_id"`
	RuleGroupID     *string `json:"rule_group_id"`
	RuleName        string  `json:"rule_name"`
	ConditionType   string  `json:"condition_type"`
	ConditionValue  *string `json:"condition_value"`
	ConditionCount  *int    `json:"condition_count"`
	ConditionPeriod string  `json:"condition_period"`
	Category        string  `json:"category,omitempty"`
	LogicalOperator string  `json:"logical_operator,omitempty"`
	WaiverPercent   int     `json:"waiver_percent"`
	Priority        int     `json:"priority"`
	IsEnabled       bool    `json:"is_enabled"`
	EffectiveFrom   *string `json:"effective_from"`
	EffectiveTo     *string `json:"effective_to"`
	CreatedAt       string  `json:"created_at"`
}

// --- Interface ---

type RuleService interface {
	GetRulesByCard(ctx context.Context, userID, cardID string) ([]WaiverRuleResponse, error)
	CreateRule(ctx context.Context, req CreateWaiverRuleRequest, userID string) (WaiverRuleResponse, error)
	UpdateRule(ctx context.Context, id string, req UpdateWaiverRuleRequest, userID string) (WaiverRuleResponse, error)
	DeleteRule(ctx context.Context, id string, userID string) error
}

type ruleService struct {
	rules repository.WaiverRuleRepository
	cards repository.CardRepository
	audit repository.AuditRepository
}

func NewRuleService(rules repository.WaiverRuleRepository, cards repository.CardRepository, audit repository.AuditRepository) RuleService {
	return &ruleService{rules: rules, cards: cards, audit: audit}
}

// --- Implementation ---

func (s *ruleService) GetRulesByCard(ctx context.Context, userID, cardID string) ([]WaiverRuleResponse, error) {
	card, err := s.ownedCard(ctx, userID, cardID)
	if err != nil {
		return nil, err
	}

	rules, err := s.rules.ListByCard(ctx, card.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch waiver rules: %w", err)
	}

	res := make([]WaiverRuleResponse, 0, len(rules))
	for _, r := range rules {
		res = append(res, toWaiverRuleResponse(r))
	}
	return res, nil
}

func (s *ruleService) CreateRule(ctx context.Context, req CreateWaiverRuleRequest, userID string) (WaiverRuleResponse, error) {
	card, err := s.ownedCard(ctx, userID, req.CardID)
	if err != nil {
		return WaiverRuleResponse{}, err
	}

	rule := model.WaiverRule{
		CardID:          card.ID,
		RuleName:        req.RuleName,
		ConditionType:   req.ConditionType,
		ConditionCount:  req.ConditionCount,
		ConditionPeriod: req.ConditionPeriod,
		Category:        req.Category,
		LogicalOperator: req.LogicalOperator,
		WaiverPercent:   req.WaiverPercent,
		Priority:        req.Priority,
		IsEnabled:       true,
	}
	if rule.WaiverPercent == 0 {
		rule.WaiverPercent = 100
	}
	if req.IsEnabled != nil {
		rule.IsEnabled = *req.IsEnabled
	}

	if err := fillRuleFields(&rule, req.ConditionValue, req.EffectiveFrom, req.EffectiveTo); err != nil {
		return WaiverRuleResponse{}, err
	}

	if req.RuleGroupID != "" {
		groupID, err := uuid.Parse(req.RuleGroupID)
		if err != nil {
			return WaiverRuleResponse{}, fmt.Errorf("%w: invalid rule_group_id", waiver.ErrValidation)
		}
		rule.RuleGroupID = &groupID
	}

	if err := s.validateRule(ctx, &rule, nil); err != nil {
		return WaiverRuleResponse{}, err
	}

	if err := s.rules.Create(ctx, &rule); err != nil {
		return WaiverRuleResponse{}, fmt.Errorf("failed to create waiver rule: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionCreateWaiverRule, rule.ID.String(), rule.RuleName, req)
	return toWaiverRuleResponse(rule), nil
}

func (s *ruleService) UpdateRule(ctx context.Context, id string, req UpdateWaiverRuleRequest, userID string) (WaiverRuleResponse, error) {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return WaiverRuleResponse{}, fmt.Errorf("%w: invalid waiver rule id", waiver.ErrValidation)
	}

	rule, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return WaiverRuleResponse{}, fmt.Errorf("%w: waiver rule %s", waiver.ErrNotFound, id)
		}
		return WaiverRuleResponse{}, fmt.Errorf("failed to fetch waiver rule: %w", err)
	}

	if _, err := s.ownedCard(ctx, userID, rule.CardID.String()); err != nil {
		return WaiverRuleResponse{}, err
	}

	rule.RuleName = req.RuleName
	rule.ConditionType = req.ConditionType
	rule.ConditionValue = nil
	rule.ConditionCount = req.ConditionCount
	rule.ConditionPeriod = req.ConditionPeriod
	rule.Category = req.Category
	rule.LogicalOperator = req.LogicalOperator
	rule.Priority = req.Priority
	if req.WaiverPercent > 0 {
		rule.WaiverPercent = req.WaiverPercent
	}
	if req.IsEnabled != nil {
		rule.IsEnabled = *req.IsEnabled
	}
	rule.EffectiveFrom = nil
	rule.EffectiveTo = nil

	if err := fillRuleFields(rule, req.ConditionValue, req.EffectiveFrom, req.EffectiveTo); err != nil {
		return WaiverRuleResponse{}, err
	}

	if err := s.validateRule(ctx, rule, &ruleID); err != nil {
		return WaiverRuleResponse{}, err
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return WaiverRuleResponse{}, fmt.Errorf("failed to update waiver rule: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionUpdateWaiverRule, rule.ID.String(), rule.RuleName, req)
	return toWaiverRuleResponse(*rule), nil
}

func (s *ruleService) DeleteRule(ctx context.Context, id string, userID string) error {
	ruleID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: invalid waiver rule id", waiver.ErrValidation)
	}

	rule, err := s.rules.FindByID(ctx, ruleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: waiver rule %s", waiver.ErrNotFound, id)
		}
		return fmt.Errorf("failed to fetch waiver rule: %w", err)
	}

	if _, err := s.ownedCard(ctx, userID, rule.CardID.String()); err != nil {
		return err
	}

	if err := s.rules.Delete(ctx, ruleID); err != nil {
		return fmt.Errorf("failed to delete waiver rule: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionDeleteWaiverRule, id, rule.RuleName, map[string]string{"deleted_id": id})
	return nil
}

// --- Helpers ---

// validateRule enforces the per-type required fields and the one-operator-
// per-group invariant before anything touches storage.
func (s *ruleService) validateRule(ctx context.Context, rule *model.WaiverRule, excludeID *uuid.UUID) error {
	switch rule.ConditionType {
	case model.ConditionSpendingAmount, model.ConditionPointsRedeem:
		if rule.ConditionValue == nil {
			return fmt.Errorf("%w: condition_value is required for %s rules", waiver.ErrValidation, rule.ConditionType)
		}
	case model.ConditionTransactionCount:
		if rule.ConditionCount == nil {
			return fmt.Errorf("%w: condition_count is required for transaction_count rules", waiver.ErrValidation)
		}
	case model.ConditionSpecificCategory:
		if rule.ConditionValue == nil {
			return fmt.Errorf("%w: condition_value is required for specific_category rules", waiver.ErrValidation)
		}
		if rule.Category == "" {
			return fmt.Errorf("%w: category is required for specific_category rules", waiver.ErrValidation)
		}
	}

	if rule.EffectiveFrom != nil && rule.EffectiveTo != nil && rule.EffectiveTo.Before(*rule.EffectiveFrom) {
		return fmt.Errorf("%w: effective_to must not precede effective_from", waiver.ErrValidation)
	}

	if rule.RuleGroupID == nil {
		// Standalone rules carry no combination semantics
		if rule.LogicalOperator != "" {
			return fmt.Errorf("%w: logical_operator must be empty for standalone rules", waiver.ErrValidation)
		}
		return nil
	}

	if rule.LogicalOperator != model.LogicalAnd && rule.LogicalOperator != model.LogicalOr {
		return fmt.Errorf("%w: grouped rules require logical_operator AND or OR", waiver.ErrValidation)
	}

	// A group has exactly one combination semantics
	siblings, err := s.rules.ListByGroup(ctx, *rule.RuleGroupID)
	if err != nil {
		return fmt.Errorf("failed to check rule group: %w", err)
	}
	for _, sib := range siblings {
		if excludeID != nil && sib.ID == *excludeID {
			continue
		}
		if sib.CardID != rule.CardID {
			return fmt.Errorf("%w: rule group %s belongs to another card", waiver.ErrValidation, rule.RuleGroupID)
		}
		if sib.LogicalOperator != rule.LogicalOperator {
			return fmt.Errorf("%w: rule group %s already combines with %s", waiver.ErrValidation, rule.RuleGroupID, sib.LogicalOperator)
		}
	}
	return nil
}

func (s *ruleService) ownedCard(ctx context.Context, userID, cardID string) (*model.CreditCard, error) {
	return findOwnedCard(ctx, s.cards, userID, cardID)
}

func fillRuleFields(rule *model.WaiverRule, valueStr, fromStr, toStr string) error {
	if valueStr != "" {
		v, err := decimal.NewFromString(valueStr)
		if err != nil {
			return fmt.Errorf("%w: invalid condition_value: %v", waiver.ErrValidation, err)
		}
		rule.ConditionValue = &v
	}

	if fromStr != "" {
		t, err := time.Parse("2006-01-02", fromStr)
		if err != nil {
			return fmt.Errorf("%w: invalid effective_from date format (expected YYYY-MM-DD)", waiver.ErrValidation)
		}
		rule.EffectiveFrom = &t
	}

	if toStr != "" {
		t, err := time.Parse("2006-01-02", toStr)
		if err != nil {
			return fmt.Errorf("%w: invalid effective_to date format (expected YYYY-MM-DD)", waiver.ErrValidation)
		}
		rule.EffectiveTo = &t
	}
	return nil
}

func toWaiverRuleResponse(r model.WaiverRule) WaiverRuleResponse {
	resp := WaiverRuleResponse{
		ID:              r.ID.String(),
		CardID:          r.CardID.String(),
		RuleName:        r.RuleName,
		ConditionType:   r.ConditionType,
		ConditionCount:  r.ConditionCount,
		ConditionPeriod: r.ConditionPeriod,
		Category:        r.Category,
		LogicalOperator: r.LogicalOperator,
		WaiverPercent:   r.WaiverPercent,
		Priority:        r.Priority,
		IsEnabled:       r.IsEnabled,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.RuleGroupID != nil {
		g := r.RuleGroupID.String()
		resp.RuleGroupID = &g
	}
	if r.ConditionValue != nil {
		v := r.ConditionValue.StringFixed(2)
		resp.ConditionValue = &v
	}
	if r.EffectiveFrom != nil {
		f := r.EffectiveFrom.Format("2006-01-02")
		resp.EffectiveFrom = &f
	}
	if r.EffectiveTo != nil {
		t := r.EffectiveTo.Format("2006-01-02")
		resp.EffectiveTo = &t
	}
	return resp
}

// Best-effort audit log — don't fail the operation if logging fails
func (s *ruleService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    detailsJSON,
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}
	_ = s.audit.Log(ctx, &entry)
}
