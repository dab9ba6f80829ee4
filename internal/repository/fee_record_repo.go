package repository

import (
	"context"
	"errors"
	"fmt"

	"cardledger/internal/model"
	"cardledger/internal/waiver"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres unique_violation; the (card_id, fee_year) unique index turns a
// racing duplicate create into this code.
const pgUniqueViolation = "23505"

type FeeRecordRepository interface {
	Create(ctx context.Context, record *model.AnnualFeeRecord) error
	Update(ctx context.Context, record *model.AnnualFeeRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.AnnualFeeRecord, error)
	FindByCardYear(ctx context.Context, cardID uuid.UUID, feeYear int) (*model.AnnualFeeRecord, error)
	List(ctx context.Context, cardID *uuid.UUID, feeYear int, status string, page, limit int) ([]model.AnnualFeeRecord, int64, error)
	ListUnpaidDueBefore(ctx context.Context, cutoff string) ([]model.AnnualFeeRecord, error)
}

type feeRecordRepository struct {
	db *gorm.DB
}

func NewFeeRecordRepository(db *gorm.DB) FeeRecordRepository {
	return &feeRecordRepository{db: db}
}

// Create inserts a new record. A concurrent insert for the same
// (card_id, fee_year) loses the race on the unique index and surfaces
// waiver.ErrConflict so the caller can retry with a fresh read.
func (r *feeRecordRepository) Create(ctx context.Context, record *model.AnnualFeeRecord) error {
	if err := GetDB(ctx, r.db).Create(record).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return fmt.Errorf("fee record for card %s year %d already exists: %w", record.CardID, record.FeeYear, waiver.ErrConflict)
		}
		return err
	}
	return nil
}

func (r *feeRecordRepository) Update(ctx context.Context, record *model.AnnualFeeRecord) error {
	return GetDB(ctx, r.db).Save(record).Error
}

func (r *feeRecordRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.AnnualFeeRecord, error) {
	var record model.AnnualFeeRecord
	if err := GetDB(ctx, r.db).First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *feeRecordRepository) FindByCardYear(ctx context.Context, cardID uuid.UUID, feeYear int) (*model.AnnualFeeRecord, error) {
	var record model.AnnualFeeRecord
	if err := GetDB(ctx, r.db).
		First(&record, "card_id = ? AND fee_year = ?", cardID, feeYear).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *feeRecordRepository) List(ctx context.Context, cardID *uuid.UUID, feeYear int, status string, page, limit int) ([]model.AnnualFeeRecord, int64, error) {
	var records []model.AnnualFeeRecord
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.AnnualFeeRecord{})
	if cardID != nil {
		query = query.Where("card_id = ?", *cardID)
	}
	if feeYear > 0 {
		query = query.Where("fee_year = ?", feeYear)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("fee_year desc, created_at desc").Offset(offset).Limit(limit).Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// ListUnpaidDueBefore returns pending records whose due date has passed,
// candidates for overdue marking. cutoff is a YYYY-MM-DD date string.
func (r *feeRecordRepository) ListUnpaidDueBefore(ctx context.Context, cutoff string) ([]model.AnnualFeeRecord, error) {
	var records []model.AnnualFeeRecord
	if err := GetDB(ctx, r.db).
		Where("status = ? AND due_date IS NOT NULL AND due_date < ?", model.FeeStatusPending, cutoff).
		Order("due_date asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
