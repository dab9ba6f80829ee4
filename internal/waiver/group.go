package waiver

import (
	"log"
	"sort"

	"cardledger/internal/model"

	"github.com/google/uuid"
)

// GroupResult is one rule group's verdict plus its member measurements,
// recorded for every group (not only the winner) in the audit snapshot.
type GroupResult struct {
	GroupID   *uuid.UUID   `json:"group_id,omitempty"` // Null for standalone singleton groups
	Operator  string       `json:"operator,omitempty"`
	Priority  int          `json:"priority"`
	Satisfied bool         `json:"satisfied"`
	Members   []RuleResult `json:"members"`
}

// ResolveGroup combines sibling rules sharing a group into a single verdict.
// AND requires every member satisfied, OR at least one; a singleton group's
// verdict is its single rule's verdict. An empty member set is never
// satisfied. Misconfigured members count as not satisfied and are logged,
// the rest of the group still evaluates.
//
// aggsByPeriod holds one aggregate per condition period, precomputed by the
// engine for the whole decide() call.
func ResolveGroup(rules []model.WaiverRule, aggsByPeriod map[string]Aggregate) GroupResult {
	res := GroupResult{Members: make([]RuleResult, 0, len(rules))}
	if len(rules) == 0 {
		return res
	}

	res.GroupID = rules[0].RuleGroupID
	if res.GroupID != nil {
		res.Operator = rules[0].LogicalOperator
	}

	res.Priority = rules[0].Priority
	allSatisfied := true
	anySatisfied := false

	for _, rule := range rules {
		if rule.Priority < res.Priority {
			res.Priority = rule.Priority
		}

		agg, ok := aggsByPeriod[rule.ConditionPeriod]
		if !ok {
			agg = ZeroAggregate()
		}

		member, err := EvaluateRule(rule, agg)
		if err != nil {
			log.Printf("waiver: skipping misconfigured rule %s (%s): %v", rule.ID, rule.RuleName, err)
		}

		res.Members = append(res.Members, member)
		if member.Satisfied {
			anySatisfied = true
		} else {
			allSatisfied = false
		}
	}

	// Member evaluation order never changes the verdict; the snapshot lists
	// members priority-ascending for deterministic audit output.
	sort.SliceStable(res.Members, func(i, j int) bool {
		pi, pj := memberPriority(rules, res.Members[i].RuleID), memberPriority(rules, res.Members[j].RuleID)
		if pi != pj {
			return pi < pj
		}
		return res.Members[i].RuleID.String() < res.Members[j].RuleID.String()
	})

	if res.Operator == model.LogicalOr {
		res.Satisfied = anySatisfied
	} else {
		// AND groups and singletons: every member must pass
		res.Satisfied = allSatisfied
	}
	return res
}

func memberPriority(rules []model.WaiverRule, id uuid.UUID) int {
	for _, r := range rules {
		if r.ID == id {
			return r.Priority
		}
	}
	return 0
}
