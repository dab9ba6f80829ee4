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

type ruleFixture struct {
	svc    RuleService
	cards  *fakeCardRepo
	rules  *fakeRuleRepo
	userID uuid.UUID
	cardID uuid.UUID
}

func newRuleFixture(t *testing.T) *ruleFixture {
	t.Helper()
	f := &ruleFixture{
		cards:  newFakeCardRepo(),
		rules:  newFakeRuleRepo(),
		userID: uuid.New(),
	}
	card := &model.CreditCard{
		UserID:      f.userID,
		CardName:    "Rewards",
		BankName:    "Acme Bank",
		CardNetwork: model.NetworkVisa,
		AnnualFee:   decimal.RequireFromString("500"),
		FeeDueMonth: 1,
		FeeDueDay:   1,
		IsActive:    true,
	}
	require.NoError(t, f.cards.Create(context.Background(), card))
	f.cardID = card.ID
	f.svc = NewRuleService(f.rules, f.cards, &fakeAuditRepo{})
	return f
}

func (f *ruleFixture) baseRequest() CreateWaiverRuleRequest {
	return CreateWaiverRuleRequest{
		CardID:          f.cardID.String(),
		RuleName:        "annual spend",
		ConditionType:   model.ConditionSpendingAmount,
		ConditionValue:  "50000",
		ConditionPeriod: model.PeriodYearly,
	}
}

func TestCreateRuleDefaults(t *testing.T) {
	f := newRuleFixture(t)

	rule, err := f.svc.CreateRule(context.Background(), f.baseRequest(), f.userID.String())
	require.NoError(t, err)

	assert.Equal(t, "annual spend", rule.RuleName)
	assert.True(t, rule.IsEnabled)
	assert.Equal(t, 100, rule.WaiverPercent)
	assert.Nil(t, rule.RuleGroupID)
}

func TestCreateRuleValidation(t *testing.T) {
	f := newRuleFixture(t)

	tests := []struct {
		name   string
		modify func(*CreateWaiverRuleRequest)
	}{
		{
			name: "spending_amount without value",
			modify: func(r *CreateWaiverRuleRequest) {
				r.ConditionValue = ""
			},
		},
		{
			name: "transaction_count without count",
			modify: func(r *CreateWaiverRuleRequest) {
				r.ConditionType = model.ConditionTransactionCount
				r.ConditionValue = ""
			},
		},
		{
			name: "specific_category without category",
			modify: func(r *CreateWaiverRuleRequest) {
				r.ConditionType = model.ConditionSpecificCategory
			},
		},
		{
			name: "standalone rule with operator",
			modify: func(r *CreateWaiverRuleRequest) {
				r.LogicalOperator = model.LogicalAnd
			},
		},
		{
			name: "grouped rule without operator",
			modify: func(r *CreateWaiverRuleRequest) {
				r.RuleGroupID = uuid.NewString()
			},
		},
		{
			name: "effective window reversed",
			modify: func(r *CreateWaiverRuleRequest) {
				r.EffectiveFrom = "2025-06-01"
				r.EffectiveTo = "2025-01-01"
			},
		},
		{
			name: "malformed condition value",
			modify: func(r *CreateWaiverRuleRequest) {
				r.ConditionValue = "fifty thousand"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := f.baseRequest()
			tt.modify(&req)

			_, err := f.svc.CreateRule(context.Background(), req, f.userID.String())
			require.Error(t, err)
			assert.ErrorIs(t, err, waiver.ErrValidation)
		})
	}
}

func TestCreateRuleGroupOperatorConsistency(t *testing.T) {
	f := newRuleFixture(t)
	groupID := uuid.NewString()

	first := f.baseRequest()
	first.RuleGroupID = groupID
	first.LogicalOperator = model.LogicalAnd
	_, err := f.svc.CreateRule(context.Background(), first, f.userID.String())
	require.NoError(t, err)

	// A sibling with the same operator joins the group
	second := f.baseRequest()
	second.RuleName = "swipe count"
	second.ConditionType = model.ConditionTransactionCount
	second.ConditionValue = ""
	second.ConditionCount = intPtr(12)
	second.RuleGroupID = groupID
	second.LogicalOperator = model.LogicalAnd
	_, err = f.svc.CreateRule(context.Background(), second, f.userID.String())
	require.NoError(t, err)

	// A mismatched operator is rejected
	third := f.baseRequest()
	third.RuleGroupID = groupID
	third.LogicalOperator = model.LogicalOr
	_, err = f.svc.CreateRule(context.Background(), third, f.userID.String())
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrValidation)
}

func TestCreateRuleGroupBelongsToOneCard(t *testing.T) {
	f := newRuleFixture(t)
	groupID := uuid.NewString()

	first := f.baseRequest()
	first.RuleGroupID = groupID
	first.LogicalOperator = model.LogicalOr
	_, err := f.svc.CreateRule(context.Background(), first, f.userID.String())
	require.NoError(t, err)

	other := &model.CreditCard{
		UserID:      f.userID,
		CardName:    "Travel",
		BankName:    "Acme Bank",
		CardNetwork: model.NetworkAmex,
		AnnualFee:   decimal.RequireFromString("900"),
		FeeDueMonth: 1,
		FeeDueDay:   1,
		IsActive:    true,
	}
	require.NoError(t, f.cards.Create(context.Background(), other))

	crossCard := f.baseRequest()
	crossCard.CardID = other.ID.String()
	crossCard.RuleGroupID = groupID
	crossCard.LogicalOperator = model.LogicalOr
	_, err = f.svc.CreateRule(context.Background(), crossCard, f.userID.String())
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrValidation)
}

func TestUpdateRuleNotFound(t *testing.T) {
	f := newRuleFixture(t)

	_, err := f.svc.UpdateRule(context.Background(), uuid.NewString(), UpdateWaiverRuleRequest{
		RuleName:        "renamed",
		ConditionType:   model.ConditionSpendingAmount,
		ConditionValue:  "100",
		ConditionPeriod: model.PeriodYearly,
	}, f.userID.String())
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrNotFound)
}

func TestDeleteRuleForeignUser(t *testing.T) {
	f := newRuleFixture(t)

	created, err := f.svc.CreateRule(context.Background(), f.baseRequest(), f.userID.String())
	require.NoError(t, err)

	err = f.svc.DeleteRule(context.Background(), created.ID, uuid.NewString())
	require.Error(t, err)
	assert.ErrorIs(t, err, waiver.ErrNotFound)

	// Still there for the owner
	rules, err := f.svc.GetRulesByCard(context.Background(), f.userID.String(), f.cardID.String())
	require.NoError(t, err)
	assert.Len(t, rules, 1)
}

func intPtr(n int) *int {
	return &n
}
