package service

import (
	"context"
	"testing"
	"time"

	"cardledger/internal/model"
	"cardledger/internal/waiver"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type feeFixture struct {
	svc     FeeService
	cards   *fakeCardRepo
	records *fakeRecordRepo
	userID  uuid.UUID
	cardID  uuid.UUID
}

func newFeeFixture(t *testing.T) *feeFixture {
	t.Helper()
	f := &feeFixture{
		cards:   newFakeCardRepo(),
		records: newFakeRecordRepo(),
		userID:  uuid.New(),
	}
	card := &model.CreditCard{
		UserID:      f.userID,
		CardName:    "Gold",
		BankName:    "Acme Bank",
		CardNetwork: model.NetworkMastercard,
		AnnualFee:   decimal.RequireFromString("1200"),
		FeeDueMonth: 3,
		FeeDueDay:   1,
		IsActive:    true,
	}
	require.NoError(t, f.cards.Create(context.Background(), card))
	f.cardID = card.ID
	f.svc = NewFeeService(f.records, f.cards, &fakeAuditRepo{})
	return f
}

func (f *feeFixture) addRecord(t *testing.T, status string, due time.Time) *model.AnnualFeeRecord {
	t.Helper()
	record := &model.AnnualFeeRecord{
		CardID:    f.cardID,
		FeeYear:   due.Year(),
		BaseFee:   decimal.RequireFromString("1200"),
		ActualFee: decimal.RequireFromString("1200"),
		Status:    status,
		DueDate:   &due,
	}
	require.NoError(t, f.records.Create(context.Background(), record))
	return record
}

func TestRecordPaymentPendingToPaid(t *testing.T) {
	f := newFeeFixture(t)
	record := f.addRecord(t, model.FeeStatusPending, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))

	res, err := f.svc.RecordPayment(context.Background(), f.userID.String(), record.ID.String(), RecordPaymentRequest{
		PaidDate:      "2025-02-20",
		PaymentMethod: "bank_transfer",
		Notes:         "paid via app",
	})
	require.NoError(t, err)

	assert.Equal(t, model.FeeStatusPaid, res.Status)
	require.NotNil(t, res.PaidDate)
	assert.Equal(t, "2025-02-20", *res.PaidDate)
	assert.Equal(t, "bank_transfer", res.PaymentMethod)
	assert.Equal(t, "paid via app", res.Notes)
}

func TestRecordPaymentWaivedHasNothingToPay(t *testing.T) {
	f := newFeeFixture(t)
	record := f.addRecord(t, model.FeeStatusWaived, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.RecordPayment(context.Background(), f.userID.String(), record.ID.String(), RecordPaymentRequest{
		PaidDate:      "2025-02-20",
		PaymentMethod: "bank_transfer",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrValidation)
}

func TestRecordPaymentAlreadyPaid(t *testing.T) {
	f := newFeeFixture(t)
	record := f.addRecord(t, model.FeeStatusPaid, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.RecordPayment(context.Background(), f.userID.String(), record.ID.String(), RecordPaymentRequest{
		PaidDate:      "2025-02-20",
		PaymentMethod: "bank_transfer",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrValidation)
}

func TestRecordPaymentBadDate(t *testing.T) {
	f := newFeeFixture(t)
	record := f.addRecord(t, model.FeeStatusPending, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.RecordPayment(context.Background(), f.userID.String(), record.ID.String(), RecordPaymentRequest{
		PaidDate:      "20-02-2025",
		PaymentMethod: "cash",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrValidation)
}

func TestRecordPaymentForeignUser(t *testing.T) {
	f := newFeeFixture(t)
	record := f.addRecord(t, model.FeeStatusPending, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.svc.RecordPayment(context.Background(), uuid.NewString(), record.ID.String(), RecordPaymentRequest{
		PaidDate:      "2025-02-20",
		PaymentMethod: "cash",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrNotFound)
}

func TestMarkOverdue(t *testing.T) {
	f := newFeeFixture(t)
	past := f.addRecord(t, model.FeeStatusPending, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC))
	future := f.addRecord(t, model.FeeStatusPending, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC))
	paid := f.addRecord(t, model.FeeStatusPaid, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC))

	count, err := f.svc.MarkOverdue(context.Background(), time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := f.records.FindByID(context.Background(), past.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FeeStatusOverdue, got.Status)

	got, err = f.records.FindByID(context.Background(), future.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FeeStatusPending, got.Status)

	got, err = f.records.FindByID(context.Background(), paid.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FeeStatusPaid, got.Status)
}

func TestGetRecordNotFound(t *testing.T) {
	f := newFeeFixture(t)

	_, err := f.svc.GetRecord(context.Background(), f.userID.String(), uuid.NewString())
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrNotFound)
}
