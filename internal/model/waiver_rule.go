package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ConditionType enum constants
const (
	ConditionSpendingAmount   = "spending_amount"
	ConditionTransactionCount = "transaction_count"
	ConditionPointsRedeem     = "points_redeem"
	ConditionSpecificCategory = "specific_category"
)

// ConditionPeriod enum constants
const (
	PeriodMonthly   = "monthly"
	PeriodQuarterly = "quarterly"
	PeriodYearly    = "yearly"
)

// LogicalOperator enum constants. Empty string means the rule is standalone
// (evaluated as its own singleton group).
const (
	LogicalAnd = "AND"
	LogicalOr  = "OR"
)

// WaiverRule stores one annual-fee waiver condition belonging to a card.
// Rules sharing a RuleGroupID are combined by LogicalOperator into one
// verdict; all rules of a group carry the same operator.
type WaiverRule struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CardID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"card_id"`
	Card            *CreditCard      `gorm:"foreignKey:CardID" json:"-"`
	RuleGroupID     *uuid.UUID       `gorm:"type:uuid;index" json:"rule_group_id"` // Nullable, null = standalone rule
	RuleName        string           `gorm:"type:varchar(255);not null" json:"rule_name"`
	ConditionType   string           `gorm:"type:varchar(30);not null;index" json:"condition_type"` // spending_amount, transaction_count, points_redeem, specific_category
	ConditionValue  *decimal.Decimal `gorm:"type:decimal(18,2)" json:"condition_value"`             // Required for spending_amount, points_redeem, specific_category
	ConditionCount  *int             `json:"condition_count"`                                       // Required for transaction_count
	ConditionPeriod string           `gorm:"type:varchar(20);not null;default:'yearly'" json:"condition_period"` // monthly, quarterly, yearly
	Category        string           `gorm:"type:varchar(100)" json:"category"`                     // Required for specific_category
	LogicalOperator string           `gorm:"type:varchar(3)" json:"logical_operator"`               // AND, OR, empty for standalone
	WaiverPercent   int              `gorm:"not null;default:100;check:waiver_percent >= 1 AND waiver_percent <= 100" json:"waiver_percent"`
	Priority        int              `gorm:"not null;default:100;index" json:"priority"` // Lower = evaluated first
	IsEnabled       bool             `gorm:"not null;default:true;index" json:"is_enabled"`
	EffectiveFrom   *time.Time       `gorm:"type:date" json:"effective_from"`
	EffectiveTo     *time.Time       `gorm:"type:date" json:"effective_to"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// EffectiveOn reports whether the rule's validity window covers the given
// reference date. Open-ended sides always match.
func (r *WaiverRule) EffectiveOn(ref time.Time) bool {
	if r.EffectiveFrom != nil && ref.Before(*r.EffectiveFrom) {
		return false
	}
	if r.EffectiveTo != nil && ref.After(*r.EffectiveTo) {
		return false
	}
	return true
}
