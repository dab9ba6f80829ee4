package waiver

import (
	"fmt"

	"cardledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RuleResult is one rule's measurement, kept in the persisted evaluation
// snapshot for audit.
type RuleResult struct {
	RuleID          uuid.UUID       `json:"rule_id"`
	RuleName        string          `json:"rule_name"`
	ConditionType   string          `json:"condition_type"`
	ConditionPeriod string          `json:"condition_period"`
	Satisfied       bool            `json:"satisfied"`
	MeasuredValue   decimal.Decimal `json:"measured_value"`
	Threshold       decimal.Decimal `json:"threshold"`
	ConfigError     string          `json:"config_error,omitempty"`
}

// EvaluateRule measures one rule against an aggregate. All comparisons are
// inclusive (>=) so an exact threshold hit satisfies the condition.
//
// A rule missing the required field for its condition type returns a result
// with Satisfied=false plus an error wrapping ErrRuleConfig; the caller logs
// it and continues with the remaining rules.
func EvaluateRule(rule model.WaiverRule, agg Aggregate) (RuleResult, error) {
	res := RuleResult{
		RuleID:          rule.ID,
		RuleName:        rule.RuleName,
		ConditionType:   rule.ConditionType,
		ConditionPeriod: rule.ConditionPeriod,
		MeasuredValue:   decimal.Zero,
		Threshold:       decimal.Zero,
	}

	fail := func(err error) (RuleResult, error) {
		res.ConfigError = err.Error()
		return res, err
	}

	switch rule.ConditionPeriod {
	case model.PeriodMonthly, model.PeriodQuarterly, model.PeriodYearly:
	default:
		return fail(fmt.Errorf("%w: rule %s has unknown condition_period %q", ErrRuleConfig, rule.ID, rule.ConditionPeriod))
	}

	switch rule.ConditionType {
	case model.ConditionSpendingAmount:
		if rule.ConditionValue == nil {
			return fail(fmt.Errorf("%w: rule %s (spending_amount) missing condition_value", ErrRuleConfig, rule.ID))
		}
		res.Threshold = *rule.ConditionValue
		res.MeasuredValue = agg.TotalSpend

	case model.ConditionTransactionCount:
		if rule.ConditionCount == nil {
			return fail(fmt.Errorf("%w: rule %s (transaction_count) missing condition_count", ErrRuleConfig, rule.ID))
		}
		res.Threshold = decimal.NewFromInt(int64(*rule.ConditionCount))
		res.MeasuredValue = decimal.NewFromInt(agg.TransactionCount)

	case model.ConditionPointsRedeem:
		if rule.ConditionValue == nil {
			return fail(fmt.Errorf("%w: rule %s (points_redeem) missing condition_value", ErrRuleConfig, rule.ID))
		}
		res.Threshold = *rule.ConditionValue
		res.MeasuredValue = agg.PointsRedeemed

	case model.ConditionSpecificCategory:
		if rule.ConditionValue == nil {
			return fail(fmt.Errorf("%w: rule %s (specific_category) missing condition_value", ErrRuleConfig, rule.ID))
		}
		if rule.Category == "" {
			return fail(fmt.Errorf("%w: rule %s (specific_category) missing category", ErrRuleConfig, rule.ID))
		}
		res.Threshold = *rule.ConditionValue
		// Missing category in the aggregate means zero spend, not an error
		if v, ok := agg.CategorySpend[rule.Category]; ok {
			res.MeasuredValue = v
		}

	default:
		return fail(fmt.Errorf("%w: rule %s has unknown condition_type %q", ErrRuleConfig, rule.ID, rule.ConditionType))
	}

	res.Satisfied = res.MeasuredValue.GreaterThanOrEqual(res.Threshold)
	return res, nil
}
