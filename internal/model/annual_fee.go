package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// FeeStatus enum constants
const (
	FeeStatusPending = "pending"
	FeeStatusPaid    = "paid"
	FeeStatusWaived  = "waived"
	FeeStatusOverdue = "overdue"
)

// AnnualFeeRecord persists the waiver decision for one (card, fee year).
// Re-evaluation overwrites the decision fields in place; payment fields
// (due_date, paid_date, payment_method) belong to the payment workflow and
// are never touched by re-evaluation.
type AnnualFeeRecord struct {
	ID                   uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CardID               uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_fee_records_card_year" json:"card_id"`
	Card                 *CreditCard     `gorm:"foreignKey:CardID" json:"-"`
	FeeYear              int             `gorm:"not null;uniqueIndex:idx_fee_records_card_year" json:"fee_year"`
	BaseFee              decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"base_fee"`
	ActualFee            decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"actual_fee"`
	WaiverAmount         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"waiver_amount"`
	WaiverRulesApplied   datatypes.JSON  `gorm:"type:jsonb" json:"waiver_rules_applied"`   // Rule ids of the winning group
	RuleEvaluationResult datatypes.JSON  `gorm:"type:jsonb" json:"rule_evaluation_result"` // Full per-group measurement snapshot
	WaiverReason         string          `gorm:"type:text" json:"waiver_reason"`
	CalculationDetails   datatypes.JSON  `gorm:"type:jsonb" json:"calculation_details"`
	Status               string          `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"` // pending, paid, waived, overdue
	DueDate              *time.Time      `gorm:"type:date" json:"due_date"`
	PaidDate             *time.Time      `gorm:"type:date" json:"paid_date"`
	PaymentMethod        string          `gorm:"type:varchar(50)" json:"payment_method"`
	Notes                string          `gorm:"type:text" json:"notes"`
	CreatedAt            time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt            time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
