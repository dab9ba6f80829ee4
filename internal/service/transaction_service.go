package service

import (
	"context"
	"fmt"
	"time"

	"cardledger/internal/model"
	"cardledger/internal/repository"
	"cardledger/internal/waiver"

	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateTransactionRequest struct {
	CardID          string `json:"card_id" binding:"required,uuid"`
	Amount          string `json:"amount" binding:"required"` // Decimal string
	Category        string `json:"category"`
	MerchantName    string `json:"merchant_name"`
	Description     string `json:"description"`
	TransactionDate string `json:"transaction_date" binding:"required"` // YYYY-MM-DD
}

type CreateRedemptionRequest struct {
	CardID      string `json:"card_id" binding:"required,uuid"`
	Points      string `json:"points" binding:"required"`
	Description string `json:"description"`
	RedeemedAt  string `json:"redeemed_at" binding:"required"` // YYYY-MM-DD
}

type TransactionResponse struct {
	ID              string `json:"id"`
	CardID          string `json:"card_id"`
	Amount          string `json:"amount"`
	Category        string `json:"category,omitempty"`
	MerchantName    string `json:"merchant_name,omitempty"`
	Description     string `json:"description,omitempty"`
	TransactionDate string `json:"transaction_date"`
}

type RedemptionResponse struct {
	ID          string `json:"id"`
	CardID      string `json:"card_id"`
	Points      string `json:"points"`
	Description string `json:"description,omitempty"`
	RedeemedAt  string `json:"redeemed_at"`
}

// --- Interface ---

type TransactionService interface {
	CreateTransaction(ctx context.Context, req CreateTransactionRequest, userID string) (TransactionResponse, error)
	ListTransactions(ctx context.Context, userID, cardID string, from, to string, page, limit int) ([]TransactionResponse, int64, error)
	CreateRedemption(ctx context.Context, req CreateRedemptionRequest, userID string) (RedemptionResponse, error)
	ListRedemptions(ctx context.Context, userID, cardID string, page, limit int) ([]RedemptionResponse, int64, error)
}

type transactionService struct {
	txs   repository.TransactionRepository
	cards repository.CardRepository
}

func NewTransactionService(txs repository.TransactionRepository, cards repository.CardRepository) TransactionService {
	return &transactionService{txs: txs, cards: cards}
}

// --- Implementation ---

func (s *transactionService) CreateTransaction(ctx context.Context, req CreateTransactionRequest, userID string) (TransactionResponse, error) {
	card, err := findOwnedCard(ctx, s.cards, userID, req.CardID)
	if err != nil {
		return TransactionResponse{}, err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("%w: invalid amount: %v", waiver.ErrValidation, err)
	}

	txDate, err := time.Parse("2006-01-02", req.TransactionDate)
	if err != nil {
		return TransactionResponse{}, fmt.Errorf("%w: invalid transaction_date (expected YYYY-MM-DD)", waiver.ErrValidation)
	}

	tx := model.CardTransaction{
		CardID:          card.ID,
		Amount:          amount,
		Category:        req.Category,
		MerchantName:    req.MerchantName,
		Description:     req.Description,
		TransactionDate: txDate,
	}
	if err := s.txs.CreateTransaction(ctx, &tx); err != nil {
		return TransactionResponse{}, fmt.Errorf("failed to create transaction: %w", err)
	}

	return toTransactionResponse(tx), nil
}

func (s *transactionService) ListTransactions(ctx context.Context, userID, cardID string, from, to string, page, limit int) ([]TransactionResponse, int64, error) {
	card, err := findOwnedCard(ctx, s.cards, userID, cardID)
	if err != nil {
		return nil, 0, err
	}

	var fromDate, toDate *time.Time
	if from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid from date (expected YYYY-MM-DD)", waiver.ErrValidation)
		}
		fromDate = &t
	}
	if to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: invalid to date (expected YYYY-MM-DD)", waiver.ErrValidation)
		}
		toDate = &t
	}

	txs, total, err := s.txs.ListTransactions(ctx, card.ID, fromDate, toDate, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch transactions: %w", err)
	}

	res := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		res = append(res, toTransactionResponse(tx))
	}
	return res, total, nil
}

func (s *transactionService) CreateRedemption(ctx context.Context, req CreateRedemptionRequest, userID string) (RedemptionResponse, error) {
	card, err := findOwnedCard(ctx, s.cards, userID, req.CardID)
	if err != nil {
		return RedemptionResponse{}, err
	}

	points, err := decimal.NewFromString(req.Points)
	if err != nil || points.IsNegative() {
		return RedemptionResponse{}, fmt.Errorf("%w: invalid points", waiver.ErrValidation)
	}

	redeemedAt, err := time.Parse("2006-01-02", req.RedeemedAt)
	if err != nil {
		return RedemptionResponse{}, fmt.Errorf("%w: invalid redeemed_at (expected YYYY-MM-DD)", waiver.ErrValidation)
	}

	red := model.PointsRedemption{
		CardID:      card.ID,
		Points:      points,
		Description: req.Description,
		RedeemedAt:  redeemedAt,
	}
	if err := s.txs.CreateRedemption(ctx, &red); err != nil {
		return RedemptionResponse{}, fmt.Errorf("failed to create points redemption: %w", err)
	}

	return toRedemptionResponse(red), nil
}

func (s *transactionService) ListRedemptions(ctx context.Context, userID, cardID string, page, limit int) ([]RedemptionResponse, int64, error) {
	card, err := findOwnedCard(ctx, s.cards, userID, cardID)
	if err != nil {
		return nil, 0, err
	}

	reds, total, err := s.txs.ListRedemptions(ctx, card.ID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch points redemptions: %w", err)
	}

	res := make([]RedemptionResponse, 0, len(reds))
	for _, red := range reds {
		res = append(res, toRedemptionResponse(red))
	}
	return res, total, nil
}

// --- Helpers ---

func toTransactionResponse(tx model.CardTransaction) TransactionResponse {
	return TransactionResponse{
		ID:              tx.ID.String(),
		CardID:          tx.CardID.String(),
		Amount:          tx.Amount.StringFixed(2),
		Category:        tx.Category,
		MerchantName:    tx.MerchantName,
		Description:     tx.Description,
		TransactionDate: tx.TransactionDate.Format("2006-01-02"),
	}
}

func toRedemptionResponse(red model.PointsRedemption) RedemptionResponse {
	return RedemptionResponse{
		ID:          red.ID.String(),
		CardID:      red.CardID.String(),
		Points:      red.Points.StringFixed(2),
		Description: red.Description,
		RedeemedAt:  red.RedeemedAt.Format("2006-01-02"),
	}
}
