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
	"gorm.io/gorm"
)

// --- DTOs ---

type FeeRecordResponse struct {
	ID                   string          `json:"id"`
	CardID               string          `json:"card_id"`
	FeeYear              int             `json:"fee_year"`
	BaseFee              string          `json:"base_fee"`
	ActualFee            string          `json:"actual_fee"`
	WaiverAmount         string          `json:"waiver_amount"`
	WaiverRulesApplied   json.RawMessage `json:"waiver_rules_applied,omitempty"`
	RuleEvaluationResult json.RawMessage `json:"rule_evaluation_result,omitempty"`
	WaiverReason         string          `json:"waiver_reason,omitempty"`
	CalculationDetails   json.RawMessage `json:"calculation_details,omitempty"`
	Status               string          `json:"status"`
	DueDate              *string         `json:"due_date"`
	PaidDate             *string         `json:"paid_date"`
	PaymentMethod        string          `json:"payment_method,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	CreatedAt            string          `json:"created_at"`
	UpdatedAt            string          `json:"updated_at"`
}

type RecordPaymentRequest struct {
	PaidDate      string `json:"paid_date" binding:"required"` // YYYY-MM-DD
	PaymentMethod string `json:"payment_method" binding:"required"`
	Notes         string `json:"notes"`
}

// --- Interface ---

type FeeService interface {
	GetRecord(ctx context.Context, userID, id string) (FeeRecordResponse, error)
	ListRecords(ctx context.Context, userID, cardID string, feeYear int, status string, page, limit int) ([]FeeRecordResponse, int64, error)

	// RecordPayment moves a pending/overdue record to paid. Waived records
	// have nothing to pay.
	RecordPayment(ctx context.Context, userID, id string, req RecordPaymentRequest) (FeeRecordResponse, error)

	// MarkOverdue flips pending records whose due date precedes asOf to
	// overdue, returning how many changed.
	MarkOverdue(ctx context.Context, asOf time.Time) (int, error)
}

type feeService struct {
	records repository.FeeRecordRepository
	cards   repository.CardRepository
	audit   repository.AuditRepository
}

func NewFeeService(records repository.FeeRecordRepository, cards repository.CardRepository, audit repository.AuditRepository) FeeService {
	return &feeService{records: records, cards: cards, audit: audit}
}

// --- Implementation ---

func (s *feeService) GetRecord(ctx context.Context, userID, id string) (FeeRecordResponse, error) {
	record, err := s.ownedRecord(ctx, userID, id)
	if err != nil {
		return FeeRecordResponse{}, err
	}
	return toFeeRecordResponse(*record), nil
}

func (s *feeService) ListRecords(ctx context.Context, userID, cardID string, feeYear int, status string, page, limit int) ([]FeeRecordResponse, int64, error) {
	var cardFilter *uuid.UUID
	if cardID != "" {
		card, err := findOwnedCard(ctx, s.cards, userID, cardID)
		if err != nil {
			return nil, 0, err
		}
		cardFilter = &card.ID
	}

	records, total, err := s.records.List(ctx, cardFilter, feeYear, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch fee records: %w", err)
	}

	res := make([]FeeRecordResponse, 0, len(records))
	for _, r := range records {
		res = append(res, toFeeRecordResponse(r))
	}
	return res, total, nil
}

func (s *feeService) RecordPayment(ctx context.Context, userID, id string, req RecordPaymentRequest) (FeeRecordResponse, error) {
	record, err := s.ownedRecord(ctx, userID, id)
	if err != nil {
		return FeeRecordResponse{}, err
	}

	if record.Status == model.FeeStatusWaived {
		return FeeRecordResponse{}, fmt.Errorf("%w: fee record %s is waived, nothing to pay", waiver.ErrValidation, id)
	}
	if record.Status == model.FeeStatusPaid {
		return FeeRecordResponse{}, fmt.Errorf("%w: fee record %s is already paid", waiver.ErrValidation, id)
	}

	paidDate, err := time.Parse("2006-01-02", req.PaidDate)
	if err != nil {
		return FeeRecordResponse{}, fmt.Errorf("%w: invalid paid_date (expected YYYY-MM-DD)", waiver.ErrValidation)
	}

	record.Status = model.FeeStatusPaid
	record.PaidDate = &paidDate
	record.PaymentMethod = req.PaymentMethod
	if req.Notes != "" {
		record.Notes = req.Notes
	}

	if err := s.records.Update(ctx, record); err != nil {
		return FeeRecordResponse{}, fmt.Errorf("failed to record payment: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionRecordFeePayment, record.ID.String(), fmt.Sprintf("fee %d", record.FeeYear), req)
	return toFeeRecordResponse(*record), nil
}

func (s *feeService) MarkOverdue(ctx context.Context, asOf time.Time) (int, error) {
	records, err := s.records.ListUnpaidDueBefore(ctx, asOf.Format("2006-01-02"))
	if err != nil {
		return 0, fmt.Errorf("failed to fetch overdue candidates: %w", err)
	}

	marked := 0
	for i := range records {
		records[i].Status = model.FeeStatusOverdue
		if err := s.records.Update(ctx, &records[i]); err != nil {
			return marked, fmt.Errorf("failed to mark record %s overdue: %w", records[i].ID, err)
		}
		marked++
		s.writeAudit(ctx, "", model.ActionMarkFeeOverdue, records[i].ID.String(), fmt.Sprintf("fee %d", records[i].FeeYear), nil)
	}
	return marked, nil
}

// --- Helpers ---

func (s *feeService) ownedRecord(ctx context.Context, userID, id string) (*model.AnnualFeeRecord, error) {
	recordID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid fee record id", waiver.ErrValidation)
	}

	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: fee record %s", waiver.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to fetch fee record: %w", err)
	}

	// Ownership flows through the card
	if _, err := findOwnedCard(ctx, s.cards, userID, record.CardID.String()); err != nil {
		return nil, err
	}
	return record, nil
}

func toFeeRecordResponse(r model.AnnualFeeRecord) FeeRecordResponse {
	resp := FeeRecordResponse{
		ID:                   r.ID.String(),
		CardID:               r.CardID.String(),
		FeeYear:              r.FeeYear,
		BaseFee:              r.BaseFee.StringFixed(2),
		ActualFee:            r.ActualFee.StringFixed(2),
		WaiverAmount:         r.WaiverAmount.StringFixed(2),
		WaiverRulesApplied:   json.RawMessage(r.WaiverRulesApplied),
		RuleEvaluationResult: json.RawMessage(r.RuleEvaluationResult),
		WaiverReason:         r.WaiverReason,
		CalculationDetails:   json.RawMessage(r.CalculationDetails),
		Status:               r.Status,
		PaymentMethod:        r.PaymentMethod,
		Notes:                r.Notes,
		CreatedAt:            r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            r.UpdatedAt.Format(time.RFC3339),
	}
	if r.DueDate != nil {
		d := r.DueDate.Format("2006-01-02")
		resp.DueDate = &d
	}
	if r.PaidDate != nil {
		d := r.PaidDate.Format("2006-01-02")
		resp.PaidDate = &d
	}
	return resp
}

// Best-effort audit log — don't fail the operation if logging fails
func (s *feeService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
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
