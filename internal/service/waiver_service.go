package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"cardledger/internal/model"
	"cardledger/internal/repository"
	"cardledger/internal/waiver"
	ws "cardledger/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	defaultBatchConcurrency = 4
	maxBatchConcurrency     = 16
)

// --- DTOs ---

type EvaluationResponse struct {
	CardID             string                    `json:"card_id"`
	FeeYear            int                       `json:"fee_year"`
	BaseFee            string                    `json:"base_fee"`
	WaiverAmount       string                    `json:"waiver_amount"`
	ActualFee          string                    `json:"actual_fee"`
	Waived             bool                      `json:"waived"`
	Reason             string                    `json:"reason"`
	RulesApplied       []string                  `json:"rules_applied"`
	Groups             []waiver.GroupResult      `json:"rule_evaluation_result"`
	CalculationDetails waiver.CalculationDetails `json:"calculation_details"`
}

type CreateFeeRecordRequest struct {
	CardID  string `json:"card_id" binding:"required,uuid"`
	FeeYear int    `json:"fee_year" binding:"required,min=2000,max=2200"`
	BaseFee string `json:"base_fee"` // Optional override, defaults to the card's annual fee
}

type BatchWaiverRequest struct {
	CardIDs     []string `json:"card_ids" binding:"required,min=1,dive,uuid"`
	FeeYear     int      `json:"fee_year" binding:"required,min=2000,max=2200"`
	Concurrency int      `json:"concurrency" binding:"omitempty,min=1,max=16"`
}

// BatchCheckResult carries one card's outcome. A failed check is
// distinguishable from a "not waived" evaluation: Error is set and
// Evaluation is nil.
type BatchCheckResult struct {
	CardID     string              `json:"card_id"`
	Evaluation *EvaluationResponse `json:"evaluation,omitempty"`
	Error      string              `json:"error,omitempty"`
}

type BatchCreateResult struct {
	CardID  string             `json:"card_id"`
	Record  *FeeRecordResponse `json:"record,omitempty"`
	Outcome string             `json:"outcome"` // created, updated, failed
	Error   string             `json:"error,omitempty"`
}

type BatchCreateSummary struct {
	Created int                 `json:"created"`
	Updated int                 `json:"updated"`
	Failed  int                 `json:"failed"`
	Results []BatchCreateResult `json:"results"`
}

// --- Interface ---

type WaiverService interface {
	// CheckWaiver runs the decision read-only, persisting nothing.
	CheckWaiver(ctx context.Context, userID, cardID string, feeYear int) (*EvaluationResponse, error)

	// CreateRecord runs the decision and upserts the annual fee record for
	// (card, fee year). Re-running with unchanged inputs is idempotent.
	CreateRecord(ctx context.Context, userID string, req CreateFeeRecordRequest) (*FeeRecordResponse, bool, error)

	BatchCheck(ctx context.Context, userID string, req BatchWaiverRequest) []BatchCheckResult
	BatchCreateRecords(ctx context.Context, userID string, req BatchWaiverRequest) BatchCreateSummary

	// CheckAllForUser evaluates every active card the user owns.
	CheckAllForUser(ctx context.Context, userID string, feeYear int) ([]BatchCheckResult, error)
}

type waiverService struct {
	engine    *waiver.Engine
	cards     repository.CardRepository
	rules     repository.WaiverRuleRepository
	records   repository.FeeRecordRepository
	txManager repository.TransactionManager
	audit     repository.AuditRepository
	hub       *ws.Hub
}

func NewWaiverService(
	engine *waiver.Engine,
	cards repository.CardRepository,
	rules repository.WaiverRuleRepository,
	records repository.FeeRecordRepository,
	txManager repository.TransactionManager,
	audit repository.AuditRepository,
	hub *ws.Hub,
) WaiverService {
	return &waiverService{
		engine:    engine,
		cards:     cards,
		rules:     rules,
		records:   records,
		txManager: txManager,
		audit:     audit,
		hub:       hub,
	}
}

// --- Implementation ---

func (s *waiverService) CheckWaiver(ctx context.Context, userID, cardID string, feeYear int) (*EvaluationResponse, error) {
	card, err := findOwnedCard(ctx, s.cards, userID, cardID)
	if err != nil {
		return nil, err
	}

	dec, err := s.decide(ctx, card, feeYear, card.AnnualFee)
	if err != nil {
		return nil, err
	}

	res := toEvaluationResponse(dec)
	return &res, nil
}

func (s *waiverService) CreateRecord(ctx context.Context, userID string, req CreateFeeRecordRequest) (*FeeRecordResponse, bool, error) {
	card, err := findOwnedCard(ctx, s.cards, userID, req.CardID)
	if err != nil {
		return nil, false, err
	}

	baseFee := card.AnnualFee
	if req.BaseFee != "" {
		baseFee, err = decimal.NewFromString(req.BaseFee)
		if err != nil {
			return nil, false, fmt.Errorf("%w: invalid base_fee: %v", waiver.ErrValidation, err)
		}
	}

	dec, err := s.decide(ctx, card, req.FeeYear, baseFee)
	if err != nil {
		return nil, false, err
	}

	var record *model.AnnualFeeRecord
	created := false
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, findErr := s.records.FindByCardYear(txCtx, card.ID, req.FeeYear)
		if findErr != nil {
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to fetch fee record: %w", findErr)
			}
			dueDate := card.FeeDueDate(req.FeeYear)
			record = &model.AnnualFeeRecord{
				CardID:  card.ID,
				FeeYear: req.FeeYear,
				Status:  model.FeeStatusPending,
				DueDate: &dueDate,
			}
			applyDecision(record, dec)
			created = true
			return s.records.Create(txCtx, record)
		}

		// Re-evaluation overwrites decision fields only; payment fields
		// stay with the payment workflow.
		record = existing
		applyDecision(record, dec)
		return s.records.Update(txCtx, record)
	})
	if err != nil {
		return nil, false, err
	}

	action := model.ActionUpdateFeeRecord
	if created {
		action = model.ActionCreateFeeRecord
	}
	s.writeAudit(ctx, userID, action, record.ID.String(), fmt.Sprintf("%s %d", card.CardName, req.FeeYear), dec)
	s.broadcast("fee_record_evaluated", record)

	res := toFeeRecordResponse(*record)
	return &res, created, nil
}

func (s *waiverService) BatchCheck(ctx context.Context, userID string, req BatchWaiverRequest) []BatchCheckResult {
	results := make([]BatchCheckResult, len(req.CardIDs))
	s.forEachCard(ctx, req, func(i int, cardID string) {
		res := BatchCheckResult{CardID: cardID}
		ev, err := s.CheckWaiver(ctx, userID, cardID, req.FeeYear)
		if err != nil {
			res.Error = err.Error()
		} else {
			res.Evaluation = ev
		}
		results[i] = res
	}, func(i int, cardID string) {
		results[i] = BatchCheckResult{CardID: cardID, Error: context.Canceled.Error()}
	})
	return results
}

func (s *waiverService) BatchCreateRecords(ctx context.Context, userID string, req BatchWaiverRequest) BatchCreateSummary {
	results := make([]BatchCreateResult, len(req.CardIDs))
	s.forEachCard(ctx, req, func(i int, cardID string) {
		res := BatchCreateResult{CardID: cardID}
		record, created, err := s.CreateRecord(ctx, userID, CreateFeeRecordRequest{CardID: cardID, FeeYear: req.FeeYear})
		switch {
		case err != nil:
			res.Outcome = "failed"
			res.Error = err.Error()
		case created:
			res.Outcome = "created"
			res.Record = record
		default:
			res.Outcome = "updated"
			res.Record = record
		}
		results[i] = res
	}, func(i int, cardID string) {
		results[i] = BatchCreateResult{CardID: cardID, Outcome: "failed", Error: context.Canceled.Error()}
	})

	summary := BatchCreateSummary{Results: results}
	for _, r := range results {
		switch r.Outcome {
		case "created":
			summary.Created++
		case "updated":
			summary.Updated++
		default:
			summary.Failed++
		}
	}
	s.broadcast("batch_fee_records_done", summary)
	return summary
}

func (s *waiverService) CheckAllForUser(ctx context.Context, userID string, feeYear int) ([]BatchCheckResult, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", waiver.ErrValidation)
	}

	cards, err := s.cards.ListActiveByUser(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cards: %w", err)
	}

	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.ID.String())
	}
	return s.BatchCheck(ctx, userID, BatchWaiverRequest{CardIDs: ids, FeeYear: feeYear}), nil
}

// --- Helpers ---

// decide loads the card's rules and runs the engine. The reference date is
// the card's fee due date for the year, never the wall clock, so repeated
// runs over the same data reproduce the same decision.
func (s *waiverService) decide(ctx context.Context, card *model.CreditCard, feeYear int, baseFee decimal.Decimal) (waiver.Decision, error) {
	rules, err := s.rules.ListByCard(ctx, card.ID)
	if err != nil {
		return waiver.Decision{}, fmt.Errorf("failed to fetch waiver rules: %w", err)
	}

	return s.engine.Decide(ctx, waiver.Input{
		CardID:        card.ID,
		FeeYear:       feeYear,
		BaseFee:       baseFee,
		ReferenceDate: card.FeeDueDate(feeYear),
		Rules:         rules,
	})
}

// forEachCard fans work out over the batch with a bounded worker count.
// Per-card failures stay in their slot; cancellation marks the remaining
// slots without abandoning work already in flight.
func (s *waiverService) forEachCard(ctx context.Context, req BatchWaiverRequest, run func(i int, cardID string), cancelled func(i int, cardID string)) {
	limit := req.Concurrency
	if limit <= 0 {
		limit = defaultBatchConcurrency
	}
	if limit > maxBatchConcurrency {
		limit = maxBatchConcurrency
	}

	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	for i, cardID := range req.CardIDs {
		// Cancellation wins over a free worker slot
		if ctx.Err() != nil {
			cancelled(i, cardID)
			continue
		}
		select {
		case <-ctx.Done():
			cancelled(i, cardID)
			continue
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(i int, cardID string) {
			defer wg.Done()
			defer func() { <-sem }()
			run(i, cardID)
		}(i, cardID)
	}
	wg.Wait()
}

// applyDecision overwrites the record's decision fields from a fresh
// evaluation. due_date, paid_date and payment_method are never touched here.
func applyDecision(record *model.AnnualFeeRecord, dec waiver.Decision) {
	record.BaseFee = dec.BaseFee
	record.WaiverAmount = dec.WaiverAmount
	record.ActualFee = dec.ActualFee
	record.WaiverReason = dec.Reason

	rulesApplied, _ := json.Marshal(dec.RulesApplied)
	record.WaiverRulesApplied = rulesApplied
	snapshot, _ := json.Marshal(dec.Groups)
	record.RuleEvaluationResult = snapshot
	details, _ := json.Marshal(dec.Details)
	record.CalculationDetails = details

	// Waived wins over pending/overdue; a paid record stays paid. A record
	// waived by an earlier evaluation falls back to pending when the rules
	// no longer hold.
	if dec.Waived {
		if record.Status != model.FeeStatusPaid {
			record.Status = model.FeeStatusWaived
		}
	} else if record.Status == model.FeeStatusWaived {
		record.Status = model.FeeStatusPending
	}
}

func toEvaluationResponse(dec waiver.Decision) EvaluationResponse {
	applied := make([]string, 0, len(dec.RulesApplied))
	for _, id := range dec.RulesApplied {
		applied = append(applied, id.String())
	}
	return EvaluationResponse{
		CardID:             dec.CardID.String(),
		FeeYear:            dec.FeeYear,
		BaseFee:            dec.BaseFee.StringFixed(2),
		WaiverAmount:       dec.WaiverAmount.StringFixed(2),
		ActualFee:          dec.ActualFee.StringFixed(2),
		Waived:             dec.Waived,
		Reason:             dec.Reason,
		RulesApplied:       applied,
		Groups:             dec.Groups,
		CalculationDetails: dec.Details,
	}
}

// broadcast pushes an event to connected dashboard clients, best effort.
func (s *waiverService) broadcast(event string, payload interface{}) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{"event": event, "payload": payload})
	if err != nil {
		return
	}
	s.hub.Broadcast <- msg
}

// Best-effort audit log — don't fail the operation if logging fails
func (s *waiverService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
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
