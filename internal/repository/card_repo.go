package repository

import (
	"context"

	"cardledger/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CardRepository interface {
	Create(ctx context.Context, card *model.CreditCard) error
	Update(ctx context.Context, card *model.CreditCard) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CreditCard, error)
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.CreditCard, int64, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.CreditCard, error)
}

type cardRepository struct {
	db *gorm.DB
}

func NewCardRepository(db *gorm.DB) CardRepository {
	return &cardRepository{db: db}
}

func (r *cardRepository) Create(ctx context.Context, card *model.CreditCard) error {
	return GetDB(ctx, r.db).Create(card).Error
}

func (r *cardRepository) Update(ctx context.Context, card *model.CreditCard) error {
	return GetDB(ctx, r.db).Save(card).Error
}

func (r *cardRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.CreditCard{}).Error
}

func (r *cardRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CreditCard, error) {
	var card model.CreditCard
	if err := GetDB(ctx, r.db).First(&card, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *cardRepository) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]model.CreditCard, int64, error) {
	var cards []model.CreditCard
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.CreditCard{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&cards).Error; err != nil {
		return nil, 0, err
	}

	return cards, total, nil
}

func (r *cardRepository) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]model.CreditCard, error) {
	var cards []model.CreditCard
	if err := GetDB(ctx, r.db).
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("created_at asc").
		Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}
