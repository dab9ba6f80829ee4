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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateCardRequest struct {
	CardName       string `json:"card_name" binding:"required"`
	BankName       string `json:"bank_name" binding:"required"`
	CardNetwork    string `json:"card_network" binding:"required,oneof=VISA MASTERCARD AMEX JCB UNIONPAY"`
	LastFourDigits string `json:"last_four_digits" binding:"omitempty,len=4,numeric"`
	CreditLimit    string `json:"credit_limit"` // Decimal string
	AnnualFee      string `json:"annual_fee" binding:"required"`
	FeeDueMonth    int    `json:"fee_due_month" binding:"required,min=1,max=12"`
	FeeDueDay      int    `json:"fee_due_day" binding:"required,min=1,max=31"`
}

type UpdateCardRequest struct {
	CardName       string `json:"card_name"`
	BankName       string `json:"bank_name"`
	CardNetwork    string `json:"card_network" binding:"omitempty,oneof=VISA MASTERCARD AMEX JCB UNIONPAY"`
	LastFourDigits string `json:"last_four_digits" binding:"omitempty,len=4,numeric"`
	CreditLimit    string `json:"credit_limit"`
	AnnualFee      string `json:"annual_fee"`
	FeeDueMonth    int    `json:"fee_due_month" binding:"omitempty,min=1,max=12"`
	FeeDueDay      int    `json:"fee_due_day" binding:"omitempty,min=1,max=31"`
	IsActive       *bool  `json:"is_active"`
}

type CardResponse struct {
	ID             string `json:"id"`
	CardName       string `json:"card_name"`
	BankName       string `json:"bank_name"`
	CardNetwork    string `json:"card_network"`
	LastFourDigits string `json:"last_four_digits"`
	CreditLimit    string `json:"credit_limit"`
	AnnualFee      string `json:"annual_fee"`
	FeeDueMonth    int    `json:"fee_due_month"`
	FeeDueDay      int    `json:"fee_due_day"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      string `json:"created_at"`
}

// --- Interface ---

type CardService interface {
	CreateCard(ctx context.Context, req CreateCardRequest, userID string) (CardResponse, error)
	UpdateCard(ctx context.Context, id string, req UpdateCardRequest, userID string) (CardResponse, error)
	DeleteCard(ctx context.Context, id string, userID string) error
	GetCard(ctx context.Context, id string, userID string) (CardResponse, error)
	ListCards(ctx context.Context, userID string, page, limit int) ([]CardResponse, int64, error)
}

type cardService struct {
	cards repository.CardRepository
	audit repository.AuditRepository
}

func NewCardService(cards repository.CardRepository, audit repository.AuditRepository) CardService {
	return &cardService{cards: cards, audit: audit}
}

// --- Implementation ---

func (s *cardService) CreateCard(ctx context.Context, req CreateCardRequest, userID string) (CardResponse, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return CardResponse{}, fmt.Errorf("%w: invalid user id", waiver.ErrValidation)
	}

	annualFee, err := decimal.NewFromString(req.AnnualFee)
	if err != nil || annualFee.IsNegative() {
		return CardResponse{}, fmt.Errorf("%w: invalid annual_fee", waiver.ErrValidation)
	}

	card := model.CreditCard{
		UserID:         uid,
		CardName:       req.CardName,
		BankName:       req.BankName,
		CardNetwork:    req.CardNetwork,
		LastFourDigits: req.LastFourDigits,
		CreditLimit:    decimal.Zero,
		AnnualFee:      annualFee,
		FeeDueMonth:    req.FeeDueMonth,
		FeeDueDay:      req.FeeDueDay,
		IsActive:       true,
	}
	if req.CreditLimit != "" {
		limit, err := decimal.NewFromString(req.CreditLimit)
		if err != nil || limit.IsNegative() {
			return CardResponse{}, fmt.Errorf("%w: invalid credit_limit", waiver.ErrValidation)
		}
		card.CreditLimit = limit
	}

	if err := s.cards.Create(ctx, &card); err != nil {
		return CardResponse{}, fmt.Errorf("failed to create card: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionCreateCard, card.ID.String(), card.CardName, req)
	return toCardResponse(card), nil
}

func (s *cardService) UpdateCard(ctx context.Context, id string, req UpdateCardRequest, userID string) (CardResponse, error) {
	card, err := findOwnedCard(ctx, s.cards, userID, id)
	if err != nil {
		return CardResponse{}, err
	}

	if req.CardName != "" {
		card.CardName = req.CardName
	}
	if req.BankName != "" {
		card.BankName = req.BankName
	}
	if req.CardNetwork != "" {
		card.CardNetwork = req.CardNetwork
	}
	if req.LastFourDigits != "" {
		card.LastFourDigits = req.LastFourDigits
	}
	if req.CreditLimit != "" {
		limit, err := decimal.NewFromString(req.CreditLimit)
		if err != nil || limit.IsNegative() {
			return CardResponse{}, fmt.Errorf("%w: invalid credit_limit", waiver.ErrValidation)
		}
		card.CreditLimit = limit
	}
	if req.AnnualFee != "" {
		fee, err := decimal.NewFromString(req.AnnualFee)
		if err != nil || fee.IsNegative() {
			return CardResponse{}, fmt.Errorf("%w: invalid annual_fee", waiver.ErrValidation)
		}
		card.AnnualFee = fee
	}
	if req.FeeDueMonth > 0 {
		card.FeeDueMonth = req.FeeDueMonth
	}
	if req.FeeDueDay > 0 {
		card.FeeDueDay = req.FeeDueDay
	}
	if req.IsActive != nil {
		card.IsActive = *req.IsActive
	}

	if err := s.cards.Update(ctx, card); err != nil {
		return CardResponse{}, fmt.Errorf("failed to update card: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionUpdateCard, card.ID.String(), card.CardName, req)
	return toCardResponse(*card), nil
}

func (s *cardService) DeleteCard(ctx context.Context, id string, userID string) error {
	card, err := findOwnedCard(ctx, s.cards, userID, id)
	if err != nil {
		return err
	}

	if err := s.cards.Delete(ctx, card.ID); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}

	s.writeAudit(ctx, userID, model.ActionDeleteCard, id, card.CardName, map[string]string{"deleted_id": id})
	return nil
}

func (s *cardService) GetCard(ctx context.Context, id string, userID string) (CardResponse, error) {
	card, err := findOwnedCard(ctx, s.cards, userID, id)
	if err != nil {
		return CardResponse{}, err
	}
	return toCardResponse(*card), nil
}

func (s *cardService) ListCards(ctx context.Context, userID string, page, limit int) ([]CardResponse, int64, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid user id", waiver.ErrValidation)
	}

	cards, total, err := s.cards.ListByUser(ctx, uid, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch cards: %w", err)
	}

	res := make([]CardResponse, 0, len(cards))
	for _, c := range cards {
		res = append(res, toCardResponse(c))
	}
	return res, total, nil
}

// --- Helpers ---

// findOwnedCard resolves a card id and enforces ownership. A foreign card is
// reported as not found, not forbidden, to avoid leaking card existence.
func findOwnedCard(ctx context.Context, cards repository.CardRepository, userID, cardID string) (*model.CreditCard, error) {
	id, err := uuid.Parse(cardID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid card id", waiver.ErrValidation)
	}

	card, err := cards.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: card %s", waiver.ErrNotFound, cardID)
		}
		return nil, fmt.Errorf("failed to fetch card: %w", err)
	}

	if userID != "" && card.UserID.String() != userID {
		return nil, fmt.Errorf("%w: card %s", waiver.ErrNotFound, cardID)
	}
	return card, nil
}

func toCardResponse(c model.CreditCard) CardResponse {
	return CardResponse{
		ID:             c.ID.String(),
		CardName:       c.CardName,
		BankName:       c.BankName,
		CardNetwork:    c.CardNetwork,
		LastFourDigits: c.LastFourDigits,
		CreditLimit:    c.CreditLimit.StringFixed(2),
		AnnualFee:      c.AnnualFee.StringFixed(2),
		FeeDueMonth:    c.FeeDueMonth,
		FeeDueDay:      c.FeeDueDay,
		IsActive:       c.IsActive,
		CreatedAt:      c.CreatedAt.Format(time.RFC3339),
	}
}

// Best-effort audit log — don't fail the operation if logging fails
func (s *cardService) writeAudit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
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
