package repository

import (
	"context"

	"cardledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WaiverRuleRepository interface {
	Create(ctx context.Context, rule *model.WaiverRule) error
	Update(ctx context.Context, rule *model.WaiverRule) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.WaiverRule, error)
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]model.WaiverRule, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]model.WaiverRule, error)
}

type waiverRuleRepository struct {
	db *gorm.DB
}

func NewWaiverRuleRepository(db *gorm.DB) WaiverRuleRepository {
	return &waiverRuleRepository{db: db}
}

func (r *waiverRuleRepository) Create(ctx context.Context, rule *model.WaiverRule) error {
	return GetDB(ctx, r.db).Create(rule).Error
}

func (r *waiverRuleRepository) Update(ctx context.Context, rule *model.WaiverRule) error {
	return GetDB(ctx, r.db).Save(rule).Error
}

func (r *waiverRuleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.WaiverRule{}).Error
}

func (r *waiverRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.WaiverRule, error) {
	var rule model.WaiverRule
	if err := GetDB(ctx, r.db).First(&rule, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// ListByCard returns every rule configured for a card, enabled or not.
// Priority ordering keeps evaluation and audit output deterministic; the
// engine does its own enabled/effective filtering against the reference date.
func (r *waiverRuleRepository) ListByCard(ctx context.Context, cardID uuid.UUID) ([]model.WaiverRule, error) {
	var rules []model.WaiverRule
	if err := GetDB(ctx, r.db).
		Where("card_id = ?", cardID).
		Order("priority asc, created_at asc").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *waiverRuleRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]model.WaiverRule, error) {
	var rules []model.WaiverRule
	if err := GetDB(ctx, r.db).
		Where("rule_group_id = ?", groupID).
		Order("priority asc, created_at asc").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}
