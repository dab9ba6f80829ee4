package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CardTransaction is one spend entry on a card. Transactions are the raw
// input for waiver-rule aggregation; ingestion itself is plain CRUD.
type CardTransaction struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CardID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"card_id"`
	Card            *CreditCard     `gorm:"foreignKey:CardID" json:"-"`
	Amount          decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	Category        string          `gorm:"type:varchar(100);index" json:"category"` // e.g. dining, travel, groceries
	MerchantName    string          `gorm:"type:varchar(255)" json:"merchant_name"`
	Description     string          `gorm:"type:text" json:"description"`
	TransactionDate time.Time       `gorm:"type:date;not null;index" json:"transaction_date"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

// PointsRedemption is one points-redemption entry on a card, counted toward
// points_redeem waiver conditions.
type PointsRedemption struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CardID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"card_id"`
	Card        *CreditCard     `gorm:"foreignKey:CardID" json:"-"`
	Points      decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"points"`
	Description string          `gorm:"type:text" json:"description"`
	RedeemedAt  time.Time       `gorm:"type:date;not null;index" json:"redeemed_at"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}
