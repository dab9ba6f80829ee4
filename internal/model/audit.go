package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionCreateCard = "CREATE_CARD"
	ActionUpdateCard = "UPDATE_CARD"
	ActionDeleteCard = "DELETE_CARD"

	ActionCreateWaiverRule = "CREATE_WAIVER_RULE"
	ActionUpdateWaiverRule = "UPDATE_WAIVER_RULE"
	ActionDeleteWaiverRule = "DELETE_WAIVER_RULE"

	// Fee lifecycle actions
	ActionEvaluateWaiver   = "EVALUATE_WAIVER"
	ActionCreateFeeRecord  = "CREATE_FEE_RECORD"
	ActionUpdateFeeRecord  = "UPDATE_FEE_RECORD"
	ActionRecordFeePayment = "RECORD_FEE_PAYMENT"
	ActionMarkFeeOverdue   = "MARK_FEE_OVERDUE"
)

// AuditLog tracks Who, What, and When for critical system changes
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID     `gorm:"type:uuid;index" json:"user_id"` // Nullable gracefully if automated job
	User       *User          `gorm:"foreignKey:UserID" json:"user"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string         `gorm:"type:varchar(50);index" json:"entity_id"`        // Reference string (uuid/code)
	EntityName string         `gorm:"type:varchar(255)" json:"entity_name,omitempty"` // Human readable name
	Details    datatypes.JSON `gorm:"type:jsonb" json:"details"`                      // Serialized JSON payload of the action
	CreatedAt  time.Time      `gorm:"index" json:"created_at"`
}
