package repository

import (
	"context"
	"fmt"
	"time"

	"cardledger/internal/model"
	"cardledger/internal/waiver"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionRepository interface {
	CreateTransaction(ctx context.Context, tx *model.CardTransaction) error
	ListTransactions(ctx context.Context, cardID uuid.UUID, from, to *time.Time, page, limit int) ([]model.CardTransaction, int64, error)
	CreateRedemption(ctx context.Context, red *model.PointsRedemption) error
	ListRedemptions(ctx context.Context, cardID uuid.UUID, page, limit int) ([]model.PointsRedemption, int64, error)

	// Aggregate implements waiver.AggregateSource over the stored
	// transactions and redemptions.
	Aggregate(ctx context.Context, cardID uuid.UUID, w waiver.Window) (waiver.Aggregate, error)
}

type transactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) TransactionRepository {
	return &transactionRepository{db: db}
}

// Compile-time check: the repository satisfies the engine's source contract.
var _ waiver.AggregateSource = (*transactionRepository)(nil)

func (r *transactionRepository) CreateTransaction(ctx context.Context, tx *model.CardTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *transactionRepository) ListTransactions(ctx context.Context, cardID uuid.UUID, from, to *time.Time, page, limit int) ([]model.CardTransaction, int64, error) {
	var txs []model.CardTransaction
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.CardTransaction{}).Where("card_id = ?", cardID)
	if from != nil {
		query = query.Where("transaction_date >= ?", *from)
	}
	if to != nil {
		query = query.Where("transaction_date <= ?", *to)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("transaction_date desc").Offset(offset).Limit(limit).Find(&txs).Error; err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}

func (r *transactionRepository) CreateRedemption(ctx context.Context, red *model.PointsRedemption) error {
	return GetDB(ctx, r.db).Create(red).Error
}

func (r *transactionRepository) ListRedemptions(ctx context.Context, cardID uuid.UUID, page, limit int) ([]model.PointsRedemption, int64, error) {
	var reds []model.PointsRedemption
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.PointsRedemption{}).Where("card_id = ?", cardID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("redeemed_at desc").Offset(offset).Limit(limit).Find(&reds).Error; err != nil {
		return nil, 0, err
	}

	return reds, total, nil
}

// Aggregate computes the period totals for one card over a window. An empty
// window yields zero totals, never an error.
func (r *transactionRepository) Aggregate(ctx context.Context, cardID uuid.UUID, w waiver.Window) (waiver.Aggregate, error) {
	db := GetDB(ctx, r.db)
	agg := waiver.ZeroAggregate()

	var spend struct {
		Total decimal.Decimal
		Count int64
	}
	if err := db.Model(&model.CardTransaction{}).
		Select("COALESCE(SUM(amount), 0) as total, COUNT(*) as count").
		Where("card_id = ? AND transaction_date >= ? AND transaction_date <= ?", cardID, w.Start, w.End).
		Scan(&spend).Error; err != nil {
		return waiver.Aggregate{}, fmt.Errorf("failed to aggregate transactions: %w", err)
	}
	agg.TotalSpend = spend.Total
	agg.TransactionCount = spend.Count

	var byCategory []struct {
		Category string
		Total    decimal.Decimal
	}
	if err := db.Model(&model.CardTransaction{}).
		Select("category, COALESCE(SUM(amount), 0) as total").
		Where("card_id = ? AND transaction_date >= ? AND transaction_date <= ? AND category != ''", cardID, w.Start, w.End).
		Group("category").
		Scan(&byCategory).Error; err != nil {
		return waiver.Aggregate{}, fmt.Errorf("failed to aggregate category spend: %w", err)
	}
	for _, row := range byCategory {
		agg.CategorySpend[row.Category] = row.Total
	}

	var points struct {
		Total decimal.Decimal
	}
	if err := db.Model(&model.PointsRedemption{}).
		Select("COALESCE(SUM(points), 0) as total").
		Where("card_id = ? AND redeemed_at >= ? AND redeemed_at <= ?", cardID, w.Start, w.End).
		Scan(&points).Error; err != nil {
		return waiver.Aggregate{}, fmt.Errorf("failed to aggregate points redemptions: %w", err)
	}
	agg.PointsRedeemed = points.Total

	return agg, nil
}
