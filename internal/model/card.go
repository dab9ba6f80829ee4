package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CardNetwork enum constants
const (
	NetworkVisa       = "VISA"
	NetworkMastercard = "MASTERCARD"
	NetworkAmex       = "AMEX"
	NetworkJCB        = "JCB"
	NetworkUnionPay   = "UNIONPAY"
)

// CreditCard represents a user's credit card and its annual-fee configuration
type CreditCard struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	User           *User           `gorm:"foreignKey:UserID" json:"-"`
	CardName       string          `gorm:"type:varchar(100);not null" json:"card_name"`
	BankName       string          `gorm:"type:varchar(100);not null" json:"bank_name"`
	CardNetwork    string          `gorm:"type:varchar(20);not null" json:"card_network"` // VISA, MASTERCARD, AMEX, JCB, UNIONPAY
	LastFourDigits string          `gorm:"type:varchar(4)" json:"last_four_digits"`
	CreditLimit    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"credit_limit"`
	AnnualFee      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"annual_fee"`  // Base fee before any waiver
	FeeDueMonth    int             `gorm:"not null;default:1;check:fee_due_month >= 1 AND fee_due_month <= 12" json:"fee_due_month"`
	FeeDueDay      int             `gorm:"not null;default:1;check:fee_due_day >= 1 AND fee_due_day <= 31" json:"fee_due_day"`
	IsActive       bool            `gorm:"not null;default:true;index" json:"is_active"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`
}

// FeeDueDate returns the card's annual-fee due date for a given fee year.
// Day overflow (e.g. Feb 31) is normalized by time.Date.
func (c *CreditCard) FeeDueDate(feeYear int) time.Time {
	return time.Date(feeYear, time.Month(c.FeeDueMonth), c.FeeDueDay, 0, 0, 0, 0, time.UTC)
}
