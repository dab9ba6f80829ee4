package waiver

import (
	"testing"

	"cardledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decp(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func intp(n int) *int {
	return &n
}

func spendingRule(threshold string) model.WaiverRule {
	return model.WaiverRule{
		ID:              uuid.New(),
		RuleName:        "yearly spend",
		ConditionType:   model.ConditionSpendingAmount,
		ConditionValue:  decp(threshold),
		ConditionPeriod: model.PeriodYearly,
	}
}

func TestEvaluateRuleSpendingAmount(t *testing.T) {
	tests := []struct {
		name      string
		spend     string
		threshold string
		satisfied bool
	}{
		{"above threshold", "50001", "50000", true},
		{"exactly at threshold", "50000", "50000", true},
		{"below threshold", "49999.99", "50000", false},
		{"zero spend", "0", "50000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := ZeroAggregate()
			agg.TotalSpend = decimal.RequireFromString(tt.spend)

			res, err := EvaluateRule(spendingRule(tt.threshold), agg)
			require.NoError(t, err)
			assert.Equal(t, tt.satisfied, res.Satisfied)
			assert.Equal(t, tt.spend, res.MeasuredValue.String())
		})
	}
}

func TestEvaluateRuleTransactionCount(t *testing.T) {
	rule := model.WaiverRule{
		ID:              uuid.New(),
		RuleName:        "monthly swipes",
		ConditionType:   model.ConditionTransactionCount,
		ConditionCount:  intp(12),
		ConditionPeriod: model.PeriodMonthly,
	}

	agg := ZeroAggregate()
	agg.TransactionCount = 12
	res, err := EvaluateRule(rule, agg)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)

	agg.TransactionCount = 11
	res, err = EvaluateRule(rule, agg)
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
}

func TestEvaluateRulePointsRedeem(t *testing.T) {
	rule := model.WaiverRule{
		ID:              uuid.New(),
		RuleName:        "points burn",
		ConditionType:   model.ConditionPointsRedeem,
		ConditionValue:  decp("10000"),
		ConditionPeriod: model.PeriodYearly,
	}

	agg := ZeroAggregate()
	agg.PointsRedeemed = decimal.RequireFromString("10000")
	res, err := EvaluateRule(rule, agg)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)
}

func TestEvaluateRuleSpecificCategory(t *testing.T) {
	rule := model.WaiverRule{
		ID:              uuid.New(),
		RuleName:        "grocery spend",
		ConditionType:   model.ConditionSpecificCategory,
		ConditionValue:  decp("5000"),
		Category:        "groceries",
		ConditionPeriod: model.PeriodQuarterly,
	}

	agg := ZeroAggregate()
	agg.CategorySpend["groceries"] = decimal.RequireFromString("5000")
	res, err := EvaluateRule(rule, agg)
	require.NoError(t, err)
	assert.True(t, res.Satisfied)

	// A category absent from the aggregate measures as zero, not an error
	agg = ZeroAggregate()
	res, err = EvaluateRule(rule, agg)
	require.NoError(t, err)
	assert.False(t, res.Satisfied)
	assert.True(t, res.MeasuredValue.IsZero())
}

func TestEvaluateRuleConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		rule model.WaiverRule
	}{
		{
			name: "spending_amount without condition_value",
			rule: model.WaiverRule{
				ID:              uuid.New(),
				ConditionType:   model.ConditionSpendingAmount,
				ConditionPeriod: model.PeriodYearly,
			},
		},
		{
			name: "transaction_count without condition_count",
			rule: model.WaiverRule{
				ID:              uuid.New(),
				ConditionType:   model.ConditionTransactionCount,
				ConditionPeriod: model.PeriodMonthly,
			},
		},
		{
			name: "points_redeem without condition_value",
			rule: model.WaiverRule{
				ID:              uuid.New(),
				ConditionType:   model.ConditionPointsRedeem,
				ConditionPeriod: model.PeriodYearly,
			},
		},
		{
			name: "specific_category without category",
			rule: model.WaiverRule{
				ID:              uuid.New(),
				ConditionType:   model.ConditionSpecificCategory,
				ConditionValue:  decp("100"),
				ConditionPeriod: model.PeriodYearly,
			},
		},
		{
			name: "unknown condition type",
			rule: model.WaiverRule{
				ID:              uuid.New(),
				ConditionType:   "cashback_volume",
				ConditionPeriod: model.PeriodYearly,
			},
		},
		{
			name: "unknown condition period",
			rule: model.WaiverRule{
				ID:              uuid.New(),
				ConditionType:   model.ConditionSpendingAmount,
				ConditionValue:  decp("100"),
				ConditionPeriod: "weekly",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := EvaluateRule(tt.rule, ZeroAggregate())
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRuleConfig)
			assert.False(t, res.Satisfied)
			assert.NotEmpty(t, res.ConfigError)
		})
	}
}
