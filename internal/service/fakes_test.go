package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cardledger/internal/model"
	"cardledger/internal/waiver"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository fakes shared by the service tests. They mirror the
// GORM-backed implementations closely enough for the service logic: missing
// rows surface gorm.ErrRecordNotFound, duplicate fee records surface
// waiver.ErrConflict.

type fakeCardRepo struct {
	mu    sync.Mutex
	cards map[uuid.UUID]model.CreditCard
}

func newFakeCardRepo() *fakeCardRepo {
	return &fakeCardRepo{cards: map[uuid.UUID]model.CreditCard{}}
}

func (f *fakeCardRepo) Create(_ context.Context, card *model.CreditCard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if card.ID == uuid.Nil {
		card.ID = uuid.New()
	}
	f.cards[card.ID] = *card
	return nil
}

func (f *fakeCardRepo) Update(_ context.Context, card *model.CreditCard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards[card.ID] = *card
	return nil
}

func (f *fakeCardRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.cards, id)
	return nil
}

func (f *fakeCardRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CreditCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	card, ok := f.cards[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &card, nil
}

func (f *fakeCardRepo) ListByUser(_ context.Context, userID uuid.UUID, _, _ int) ([]model.CreditCard, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CreditCard
	for _, c := range f.cards {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeCardRepo) ListActiveByUser(_ context.Context, userID uuid.UUID) ([]model.CreditCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.CreditCard
	for _, c := range f.cards {
		if c.UserID == userID && c.IsActive {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeRuleRepo struct {
	mu    sync.Mutex
	rules map[uuid.UUID]model.WaiverRule
}

func newFakeRuleRepo() *fakeRuleRepo {
	return &fakeRuleRepo{rules: map[uuid.UUID]model.WaiverRule{}}
}

func (f *fakeRuleRepo) Create(_ context.Context, rule *model.WaiverRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	f.rules[rule.ID] = *rule
	return nil
}

func (f *fakeRuleRepo) Update(_ context.Context, rule *model.WaiverRule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules[rule.ID] = *rule
	return nil
}

func (f *fakeRuleRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rules, id)
	return nil
}

func (f *fakeRuleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.WaiverRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rule, ok := f.rules[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &rule, nil
}

func (f *fakeRuleRepo) ListByCard(_ context.Context, cardID uuid.UUID) ([]model.WaiverRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.WaiverRule
	for _, r := range f.rules {
		if r.CardID == cardID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuleRepo) ListByGroup(_ context.Context, groupID uuid.UUID) ([]model.WaiverRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.WaiverRule
	for _, r := range f.rules {
		if r.RuleGroupID != nil && *r.RuleGroupID == groupID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]model.AnnualFeeRecord
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: map[uuid.UUID]model.AnnualFeeRecord{}}
}

func (f *fakeRecordRepo) Create(_ context.Context, record *model.AnnualFeeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.CardID == record.CardID && r.FeeYear == record.FeeYear {
			return fmt.Errorf("fee record for card %s year %d already exists: %w", record.CardID, record.FeeYear, waiver.ErrConflict)
		}
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	f.records[record.ID] = *record
	return nil
}

func (f *fakeRecordRepo) Update(_ context.Context, record *model.AnnualFeeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.ID] = *record
	return nil
}

func (f *fakeRecordRepo) FindByID(_ context.Context, id uuid.UUID) (*model.AnnualFeeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &record, nil
}

func (f *fakeRecordRepo) FindByCardYear(_ context.Context, cardID uuid.UUID, feeYear int) (*model.AnnualFeeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records {
		if r.CardID == cardID && r.FeeYear == feeYear {
			rec := r
			return &rec, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRecordRepo) List(_ context.Context, cardID *uuid.UUID, feeYear int, status string, _, _ int) ([]model.AnnualFeeRecord, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AnnualFeeRecord
	for _, r := range f.records {
		if cardID != nil && r.CardID != *cardID {
			continue
		}
		if feeYear != 0 && r.FeeYear != feeYear {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		out = append(out, r)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRecordRepo) ListUnpaidDueBefore(_ context.Context, cutoff string) ([]model.AnnualFeeRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cut, err := time.Parse("2006-01-02", cutoff)
	if err != nil {
		return nil, err
	}
	var out []model.AnnualFeeRecord
	for _, r := range f.records {
		if r.Status == model.FeeStatusPending && r.DueDate != nil && r.DueDate.Before(cut) {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, _, _ int) ([]model.AuditLog, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries, int64(len(f.entries)), nil
}

// stubAggregates serves a fixed aggregate per card, regardless of window.
type stubAggregates struct {
	mu     sync.Mutex
	byCard map[uuid.UUID]waiver.Aggregate
}

func newStubAggregates() *stubAggregates {
	return &stubAggregates{byCard: map[uuid.UUID]waiver.Aggregate{}}
}

func (s *stubAggregates) setSpend(cardID uuid.UUID, spend string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	agg := waiver.ZeroAggregate()
	agg.TotalSpend = decimal.RequireFromString(spend)
	s.byCard[cardID] = agg
}

func (s *stubAggregates) Aggregate(_ context.Context, cardID uuid.UUID, _ waiver.Window) (waiver.Aggregate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if agg, ok := s.byCard[cardID]; ok {
		return agg, nil
	}
	return waiver.ZeroAggregate(), nil
}
