package service

import (
	"context"
	"testing"

	"cardledger/internal/model"
	"cardledger/internal/waiver"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type waiverFixture struct {
	svc     WaiverService
	cards   *fakeCardRepo
	rules   *fakeRuleRepo
	records *fakeRecordRepo
	audit   *fakeAuditRepo
	aggs    *stubAggregates
	userID  uuid.UUID
}

func newWaiverFixture(t *testing.T) *waiverFixture {
	t.Helper()
	f := &waiverFixture{
		cards:   newFakeCardRepo(),
		rules:   newFakeRuleRepo(),
		records: newFakeRecordRepo(),
		audit:   &fakeAuditRepo{},
		aggs:    newStubAggregates(),
		userID:  uuid.New(),
	}
	engine := waiver.NewEngine(f.aggs)
	f.svc = NewWaiverService(engine, f.cards, f.rules, f.records, fakeTxManager{}, f.audit, nil)
	return f
}

func (f *waiverFixture) addCard(t *testing.T, fee string) *model.CreditCard {
	t.Helper()
	card := &model.CreditCard{
		UserID:      f.userID,
		CardName:    "Platinum",
		BankName:    "Acme Bank",
		CardNetwork: model.NetworkVisa,
		AnnualFee:   decimal.RequireFromString(fee),
		FeeDueMonth: 6,
		FeeDueDay:   15,
		IsActive:    true,
	}
	require.NoError(t, f.cards.Create(context.Background(), card))
	return card
}

func (f *waiverFixture) addSpendingRule(t *testing.T, cardID uuid.UUID, threshold string) *model.WaiverRule {
	t.Helper()
	value := decimal.RequireFromString(threshold)
	rule := &model.WaiverRule{
		CardID:          cardID,
		RuleName:        "annual spend",
		ConditionType:   model.ConditionSpendingAmount,
		ConditionValue:  &value,
		ConditionPeriod: model.PeriodYearly,
		WaiverPercent:   100,
		Priority:        10,
		IsEnabled:       true,
	}
	require.NoError(t, f.rules.Create(context.Background(), rule))
	return rule
}

func TestCheckWaiverSatisfied(t *testing.T) {
	f := newWaiverFixture(t)
	card := f.addCard(t, "2000")
	rule := f.addSpendingRule(t, card.ID, "50000")
	f.aggs.setSpend(card.ID, "60000")

	ev, err := f.svc.CheckWaiver(context.Background(), f.userID.String(), card.ID.String(), 2025)
	require.NoError(t, err)

	assert.True(t, ev.Waived)
	assert.Equal(t, "2000.00", ev.BaseFee)
	assert.Equal(t, "2000.00", ev.WaiverAmount)
	assert.Equal(t, "0.00", ev.ActualFee)
	assert.Equal(t, []string{rule.ID.String()}, ev.RulesApplied)

	// Read-only: no record was written
	_, err = f.records.FindByCardYear(context.Background(), card.ID, 2025)
	require.Error(t, err)
}

func TestCheckWaiverForeignCardReportsNotFound(t *testing.T) {
	f := newWaiverFixture(t)
	card := f.addCard(t, "2000")

	_, err := f.svc.CheckWaiver(context.Background(), uuid.NewString(), card.ID.String(), 2025)
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrNotFound)
}

func TestCheckWaiverInvalidCardID(t *testing.T) {
	f := newWaiverFixture(t)

	_, err := f.svc.CheckWaiver(context.Background(), f.userID.String(), "not-a-uuid", 2025)
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrValidation)
}

func TestCreateRecordThenRecheckIsIdempotent(t *testing.T) {
	f := newWaiverFixture(t)
	card := f.addCard(t, "2000")
	f.addSpendingRule(t, card.ID, "50000")
	f.aggs.setSpend(card.ID, "60000")

	req := CreateFeeRecordRequest{CardID: card.ID.String(), FeeYear: 2025}

	first, created, err := f.svc.CreateRecord(context.Background(), f.userID.String(), req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.FeeStatusWaived, first.Status)
	assert.Equal(t, "0.00", first.ActualFee)
	require.NotNil(t, first.DueDate)
	assert.Equal(t, "2025-06-15", *first.DueDate)

	// Same data, second run: updates in place, same record, same amounts
	second, created, err := f.svc.CreateRecord(context.Background(), f.userID.String(), req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.WaiverAmount, second.WaiverAmount)
}

func TestCreateRecordNotWaived(t *testing.T) {
	f := newWaiverFixture(t)
	card := f.addCard(t, "2000")
	f.addSpendingRule(t, card.ID, "50000")
	f.aggs.setSpend(card.ID, "100")

	record, created, err := f.svc.CreateRecord(context.Background(), f.userID.String(), CreateFeeRecordRequest{
		CardID:  card.ID.String(),
		FeeYear: 2025,
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.FeeStatusPending, record.Status)
	assert.Equal(t, "2000.00", record.ActualFee)
	assert.Equal(t, "0.00", record.WaiverAmount)
}

func TestCreateRecordBaseFeeOverride(t *testing.T) {
	f := newWaiverFixture(t)
	card := f.addCard(t, "2000")
	f.addSpendingRule(t, card.ID, "50000")
	f.aggs.setSpend(card.ID, "100")

	record, _, err := f.svc.CreateRecord(context.Background(), f.userID.String(), CreateFeeRecordRequest{
		CardID:  card.ID.String(),
		FeeYear: 2025,
		BaseFee: "1500",
	})
	require.NoError(t, err)
	assert.Equal(t, "1500.00", record.BaseFee)

	_, _, err = f.svc.CreateRecord(context.Background(), f.userID.String(), CreateFeeRecordRequest{
		CardID:  card.ID.String(),
		FeeYear: 2025,
		BaseFee: "not-a-number",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrValidation)
}

func TestCreateRecordReEvaluationPreservesPaid(t *testing.T) {
	f := newWaiverFixture(t)
	card := f.addCard(t, "2000")
	f.addSpendingRule(t, card.ID, "50000")
	f.aggs.setSpend(card.ID, "100")

	req := CreateFeeRecordRequest{CardID: card.ID.String(), FeeYear: 2025}
	record, _, err := f.svc.CreateRecord(context.Background(), f.userID.String(), req)
	require.NoError(t, err)

	// Pay the fee out of band
	id := uuid.MustParse(record.ID)
	stored, err := f.records.FindByID(context.Background(), id)
	require.NoError(t, err)
	stored.Status = model.FeeStatusPaid
	require.NoError(t, f.records.Update(context.Background(), stored))

	// Conditions now hold, but a paid record never flips to waived
	f.aggs.setSpend(card.ID, "60000")
	record, _, err = f.svc.CreateRecord(context.Background(), f.userID.String(), req)
	require.NoError(t, err)
	assert.Equal(t, model.FeeStatusPaid, record.Status)
}

func TestCreateRecordWaivedFallsBackToPending(t *testing.T) {
	f := newWaiverFixture(t)
	card := f.addCard(t, "2000")
	f.addSpendingRule(t, card.ID, "50000")
	f.aggs.setSpend(card.ID, "60000")

	req := CreateFeeRecordRequest{CardID: card.ID.String(), FeeYear: 2025}
	record, _, err := f.svc.CreateRecord(context.Background(), f.userID.String(), req)
	require.NoError(t, err)
	assert.Equal(t, model.FeeStatusWaived, record.Status)

	// The qualifying spend disappears (e.g. rules changed); re-evaluation
	// walks the record back to pending
	f.aggs.setSpend(card.ID, "100")
	record, _, err = f.svc.CreateRecord(context.Background(), f.userID.String(), req)
	require.NoError(t, err)
	assert.Equal(t, model.FeeStatusPending, record.Status)
	assert.Equal(t, "2000.00", record.ActualFee)
}

func TestBatchCheckIsolatesFailures(t *testing.T) {
	f := newWaiverFixture(t)
	good := f.addCard(t, "2000")
	f.addSpendingRule(t, good.ID, "50000")
	f.aggs.setSpend(good.ID, "60000")

	missing := uuid.NewString()

	results := f.svc.BatchCheck(context.Background(), f.userID.String(), BatchWaiverRequest{
		CardIDs: []string{good.ID.String(), missing},
		FeeYear: 2025,
	})
	require.Len(t, results, 2)

	assert.Equal(t, good.ID.String(), results[0].CardID)
	require.NotNil(t, results[0].Evaluation)
	assert.True(t, results[0].Evaluation.Waived)
	assert.Empty(t, results[0].Error)

	assert.Equal(t, missing, results[1].CardID)
	assert.Nil(t, results[1].Evaluation)
	assert.NotEmpty(t, results[1].Error)
}

func TestBatchCreateRecordsSummary(t *testing.T) {
	f := newWaiverFixture(t)
	a := f.addCard(t, "2000")
	b := f.addCard(t, "3000")
	f.addSpendingRule(t, a.ID, "50000")
	f.addSpendingRule(t, b.ID, "50000")
	f.aggs.setSpend(a.ID, "60000")
	f.aggs.setSpend(b.ID, "100")

	// Seed an existing record for b so the batch updates it
	_, _, err := f.svc.CreateRecord(context.Background(), f.userID.String(), CreateFeeRecordRequest{
		CardID:  b.ID.String(),
		FeeYear: 2025,
	})
	require.NoError(t, err)

	summary := f.svc.BatchCreateRecords(context.Background(), f.userID.String(), BatchWaiverRequest{
		CardIDs: []string{a.ID.String(), b.ID.String(), uuid.NewString()},
		FeeYear: 2025,
	})

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Results, 3)
	assert.Equal(t, "created", summary.Results[0].Outcome)
	assert.Equal(t, "updated", summary.Results[1].Outcome)
	assert.Equal(t, "failed", summary.Results[2].Outcome)
}

func TestBatchCheckHonorsCancelledContext(t *testing.T) {
	f := newWaiverFixture(t)
	card := f.addCard(t, "2000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := f.svc.BatchCheck(ctx, f.userID.String(), BatchWaiverRequest{
		CardIDs: []string{card.ID.String()},
		FeeYear: 2025,
	})
	require.Len(t, results, 1)
	assert.Nil(t, results[0].Evaluation)
	assert.NotEmpty(t, results[0].Error)
}

func TestCheckAllForUserCoversActiveCards(t *testing.T) {
	f := newWaiverFixture(t)
	active := f.addCard(t, "2000")
	f.addSpendingRule(t, active.ID, "50000")
	f.aggs.setSpend(active.ID, "60000")

	inactive := f.addCard(t, "1000")
	inactive.IsActive = false
	require.NoError(t, f.cards.Update(context.Background(), inactive))

	results, err := f.svc.CheckAllForUser(context.Background(), f.userID.String(), 2025)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, active.ID.String(), results[0].CardID)
	require.NotNil(t, results[0].Evaluation)
	assert.True(t, results[0].Evaluation.Waived)
}
