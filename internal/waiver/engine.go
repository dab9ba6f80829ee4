package waiver

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"cardledger/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Input carries everything a decision needs. Rules are loaded by the caller
// (all rules configured for the card); the engine filters disabled and
// out-of-window rules itself. ReferenceDate is caller-supplied, typically
// the card's fee due date — the engine never reads the wall clock, so a
// decision is fully reproducible from its inputs.
type Input struct {
	CardID        uuid.UUID
	FeeYear       int
	BaseFee       decimal.Decimal
	ReferenceDate time.Time
	Rules         []model.WaiverRule
}

// Decision is the outcome of one evaluation: the amounts, the winning
// group's rule ids, and the full per-group snapshot for audit.
type Decision struct {
	CardID        uuid.UUID          `json:"card_id"`
	FeeYear       int                `json:"fee_year"`
	BaseFee       decimal.Decimal    `json:"base_fee"`
	WaiverAmount  decimal.Decimal    `json:"waiver_amount"`
	ActualFee     decimal.Decimal    `json:"actual_fee"`
	Waived        bool               `json:"waived"`
	Reason        string             `json:"reason"`
	RulesApplied  []uuid.UUID        `json:"rules_applied"`
	Groups        []GroupResult      `json:"groups"`
	Details       CalculationDetails `json:"calculation_details"`
}

// CalculationDetails makes the arithmetic behind the decision explicit
// rather than leaving it to be inferred from the amounts.
type CalculationDetails struct {
	ReferenceDate   string `json:"reference_date"`
	RulesConsidered int    `json:"rules_considered"`
	GroupsEvaluated int    `json:"groups_evaluated"`
	WinningGroupID  string `json:"winning_group_id,omitempty"` // Group uuid, or winning rule uuid for singletons
	WaiverPercent   int    `json:"waiver_percent"`
	FullWaiver      bool   `json:"full_waiver"`
}

// Engine decides whether a card's annual fee is waived for a year. It is
// stateless: the per-period aggregate cache lives only inside one Decide
// call, so evaluations for different cards can run concurrently.
type Engine struct {
	src AggregateSource
}

func NewEngine(src AggregateSource) *Engine {
	return &Engine{src: src}
}

// Decide runs the full evaluation:
// filter enabled+effective rules, partition into groups by rule_group_id,
// aggregate once per distinct condition period, resolve each group, then
// the first satisfied group by ascending priority wins the waiver.
func (e *Engine) Decide(ctx context.Context, in Input) (Decision, error) {
	if in.BaseFee.IsNegative() {
		return Decision{}, fmt.Errorf("%w: base fee must not be negative, got %s", ErrValidation, in.BaseFee)
	}

	dec := Decision{
		CardID:       in.CardID,
		FeeYear:      in.FeeYear,
		BaseFee:      in.BaseFee,
		WaiverAmount: decimal.Zero,
		ActualFee:    in.BaseFee,
		RulesApplied: []uuid.UUID{},
		Groups:       []GroupResult{},
		Details: CalculationDetails{
			ReferenceDate: in.ReferenceDate.Format("2006-01-02"),
		},
	}

	active := make([]model.WaiverRule, 0, len(in.Rules))
	for _, r := range in.Rules {
		if r.IsEnabled && r.EffectiveOn(in.ReferenceDate) {
			active = append(active, r)
		}
	}
	dec.Details.RulesConsidered = len(active)

	// Zero configured (or effective) rules is a deterministic no-waiver,
	// not an error.
	if len(active) == 0 {
		dec.Reason = "no waiver rules configured"
		return dec, nil
	}

	aggs, err := e.loadAggregates(ctx, in, active)
	if err != nil {
		return Decision{}, err
	}

	dec.Groups = partitionAndResolve(active, aggs)
	dec.Details.GroupsEvaluated = len(dec.Groups)

	winner := -1
	for i, g := range dec.Groups {
		if g.Satisfied {
			winner = i
			break
		}
	}
	if winner < 0 {
		dec.Reason = "no waiver condition met"
		return dec, nil
	}

	e.applyWaiver(&dec, dec.Groups[winner], active)
	return dec, nil
}

// loadAggregates computes one aggregate per distinct condition period among
// the active rules. The cache is scoped to this call only.
func (e *Engine) loadAggregates(ctx context.Context, in Input, rules []model.WaiverRule) (map[string]Aggregate, error) {
	aggs := make(map[string]Aggregate)
	for _, r := range rules {
		if _, ok := aggs[r.ConditionPeriod]; ok {
			continue
		}
		w, err := PeriodWindow(r.ConditionPeriod, in.FeeYear, in.ReferenceDate)
		if err != nil {
			// Unknown period is a per-rule config problem; the evaluator
			// reports it on the rule itself, the decision continues.
			log.Printf("waiver: card %s: %v", in.CardID, err)
			continue
		}
		agg, err := e.src.Aggregate(ctx, in.CardID, w)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate %s window for card %s: %w", r.ConditionPeriod, in.CardID, err)
		}
		aggs[r.ConditionPeriod] = agg
	}
	return aggs, nil
}

// partitionAndResolve groups rules by rule_group_id (null-group rules become
// singleton groups) and resolves each, ordered by minimum member priority
// ascending with the group key as tie-break for determinism.
func partitionAndResolve(rules []model.WaiverRule, aggs map[string]Aggregate) []GroupResult {
	buckets := make(map[string][]model.WaiverRule)
	order := make([]string, 0)
	for _, r := range rules {
		key := "rule:" + r.ID.String()
		if r.RuleGroupID != nil {
			key = "group:" + r.RuleGroupID.String()
		}
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], r)
	}

	type keyed struct {
		key    string
		result GroupResult
	}
	resolved := make([]keyed, 0, len(order))
	for _, key := range order {
		resolved = append(resolved, keyed{key: key, result: ResolveGroup(buckets[key], aggs)})
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		if resolved[i].result.Priority != resolved[j].result.Priority {
			return resolved[i].result.Priority < resolved[j].result.Priority
		}
		return resolved[i].key < resolved[j].key
	})

	groups := make([]GroupResult, 0, len(resolved))
	for _, kr := range resolved {
		groups = append(groups, kr.result)
	}
	return groups
}

// applyWaiver fills the decision from the winning group. The waiver is full
// unless a winning member carries a partial waiver_percent; the percentage
// applied is always recorded explicitly in calculation_details.
func (e *Engine) applyWaiver(dec *Decision, winner GroupResult, rules []model.WaiverRule) {
	percent := 0
	names := make([]string, 0, len(winner.Members))
	for _, m := range winner.Members {
		dec.RulesApplied = append(dec.RulesApplied, m.RuleID)
		names = append(names, m.RuleName)
		for _, r := range rules {
			if r.ID == m.RuleID && r.WaiverPercent > percent {
				percent = r.WaiverPercent
			}
		}
	}
	if percent <= 0 || percent > 100 {
		percent = 100
	}

	waiver := dec.BaseFee.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100)).Round(2)
	if waiver.GreaterThan(dec.BaseFee) {
		waiver = dec.BaseFee
	}

	dec.WaiverAmount = waiver
	dec.ActualFee = dec.BaseFee.Sub(waiver)
	if dec.ActualFee.IsNegative() {
		dec.ActualFee = decimal.Zero
	}
	dec.Waived = dec.WaiverAmount.Equal(dec.BaseFee)
	dec.Reason = "waiver condition met: " + strings.Join(names, ", ")

	if winner.GroupID != nil {
		dec.Details.WinningGroupID = winner.GroupID.String()
	} else if len(winner.Members) > 0 {
		dec.Details.WinningGroupID = winner.Members[0].RuleID.String()
	}
	dec.Details.WaiverPercent = percent
	dec.Details.FullWaiver = percent == 100
}
