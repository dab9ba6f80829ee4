package waiver

import (
	"testing"

	"cardledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupedRule(groupID uuid.UUID, op, threshold string, priority int) model.WaiverRule {
	return model.WaiverRule{
		ID:              uuid.New(),
		RuleGroupID:     &groupID,
		RuleName:        "spend " + threshold,
		ConditionType:   model.ConditionSpendingAmount,
		ConditionValue:  decp(threshold),
		ConditionPeriod: model.PeriodYearly,
		LogicalOperator: op,
		Priority:        priority,
	}
}

func yearlyAggs(spend string) map[string]Aggregate {
	agg := ZeroAggregate()
	agg.TotalSpend = decimal.RequireFromString(spend)
	return map[string]Aggregate{model.PeriodYearly: agg}
}

func TestResolveGroupEmpty(t *testing.T) {
	res := ResolveGroup(nil, yearlyAggs("100"))
	assert.False(t, res.Satisfied)
	assert.Empty(t, res.Members)
}

func TestResolveGroupSingleton(t *testing.T) {
	rule := spendingRule("50000")
	rule.Priority = 10

	res := ResolveGroup([]model.WaiverRule{rule}, yearlyAggs("60000"))
	assert.True(t, res.Satisfied)
	assert.Nil(t, res.GroupID)
	assert.Empty(t, res.Operator)
	assert.Equal(t, 10, res.Priority)
	require.Len(t, res.Members, 1)
	assert.Equal(t, rule.ID, res.Members[0].RuleID)
}

func TestResolveGroupAnd(t *testing.T) {
	gid := uuid.New()
	rules := []model.WaiverRule{
		groupedRule(gid, model.LogicalAnd, "10000", 5),
		groupedRule(gid, model.LogicalAnd, "30000", 5),
	}

	// Spend satisfies only the first member
	res := ResolveGroup(rules, yearlyAggs("20000"))
	assert.False(t, res.Satisfied)

	// Spend satisfies both
	res = ResolveGroup(rules, yearlyAggs("30000"))
	assert.True(t, res.Satisfied)
	assert.Equal(t, model.LogicalAnd, res.Operator)
	require.NotNil(t, res.GroupID)
	assert.Equal(t, gid, *res.GroupID)
}

func TestResolveGroupOr(t *testing.T) {
	gid := uuid.New()
	rules := []model.WaiverRule{
		groupedRule(gid, model.LogicalOr, "10000", 5),
		groupedRule(gid, model.LogicalOr, "30000", 5),
	}

	res := ResolveGroup(rules, yearlyAggs("20000"))
	assert.True(t, res.Satisfied)

	res = ResolveGroup(rules, yearlyAggs("5000"))
	assert.False(t, res.Satisfied)
}

func TestResolveGroupPriorityIsMinimumMember(t *testing.T) {
	gid := uuid.New()
	rules := []model.WaiverRule{
		groupedRule(gid, model.LogicalAnd, "100", 30),
		groupedRule(gid, model.LogicalAnd, "100", 7),
	}

	res := ResolveGroup(rules, yearlyAggs("100"))
	assert.Equal(t, 7, res.Priority)
}

func TestResolveGroupMisconfiguredMember(t *testing.T) {
	gid := uuid.New()
	good := groupedRule(gid, model.LogicalOr, "100", 5)
	broken := groupedRule(gid, model.LogicalOr, "100", 5)
	broken.ConditionValue = nil // Missing required field

	// A broken member counts as not satisfied but the OR group can still win
	res := ResolveGroup([]model.WaiverRule{broken, good}, yearlyAggs("200"))
	assert.True(t, res.Satisfied)
	require.Len(t, res.Members, 2)

	var brokenMember *RuleResult
	for i := range res.Members {
		if res.Members[i].RuleID == broken.ID {
			brokenMember = &res.Members[i]
		}
	}
	require.NotNil(t, brokenMember)
	assert.False(t, brokenMember.Satisfied)
	assert.NotEmpty(t, brokenMember.ConfigError)

	// Under AND, the same broken member blocks the group
	res = ResolveGroup([]model.WaiverRule{
		groupedRule(gid, model.LogicalAnd, "100", 5),
		func() model.WaiverRule {
			r := groupedRule(gid, model.LogicalAnd, "100", 5)
			r.ConditionValue = nil
			return r
		}(),
	}, yearlyAggs("200"))
	assert.False(t, res.Satisfied)
}

func TestResolveGroupMembersSortedByPriority(t *testing.T) {
	gid := uuid.New()
	first := groupedRule(gid, model.LogicalAnd, "100", 1)
	second := groupedRule(gid, model.LogicalAnd, "100", 2)

	res := ResolveGroup([]model.WaiverRule{second, first}, yearlyAggs("200"))
	require.Len(t, res.Members, 2)
	assert.Equal(t, first.ID, res.Members[0].RuleID)
	assert.Equal(t, second.ID, res.Members[1].RuleID)
}
