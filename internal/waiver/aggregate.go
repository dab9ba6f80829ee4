package waiver

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate holds the period totals a rule's condition is measured against.
// An empty window yields a zero aggregate, never an error.
type Aggregate struct {
	TotalSpend       decimal.Decimal
	TransactionCount int64
	CategorySpend    map[string]decimal.Decimal
	PointsRedeemed   decimal.Decimal
}

// ZeroAggregate returns an aggregate with all totals at zero.
func ZeroAggregate() Aggregate {
	return Aggregate{
		TotalSpend:     decimal.Zero,
		CategorySpend:  map[string]decimal.Decimal{},
		PointsRedeemed: decimal.Zero,
	}
}

// AggregateSource computes a card's aggregate over a window. Implemented by
// the transaction repository; the engine never touches storage directly.
type AggregateSource interface {
	Aggregate(ctx context.Context, cardID uuid.UUID, w Window) (Aggregate, error)
}
