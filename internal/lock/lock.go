// Package lock holds the pure rule-evaluation core: per-dimension scope
// matching and the priority-ordered scan that picks the rule whose lock
// claim wins. Nothing here touches the store or the request path, so the
// precedence semantics are testable in isolation.
package lock

import (
	"sort"

	"config-service/internal/model"
)

// ParseWarning reports a rule whose encoded id set could not be decoded.
// The affected dimension is treated as non-matching (the rule cannot lock
// anything for this evaluation) and the caller logs the warning; corrupt
// rule data must never lock out a legitimate edit.
type ParseWarning struct {
	RuleID    int64
	Dimension string
	Err       error
}

// Match is the per-dimension outcome of testing one rule against one
// (user, objective) pair. The rule is applicable only if all three hold.
type Match struct {
	User      bool
	KPI       bool
	Objective bool
}

func (m Match) Applicable() bool {
	return m.User && m.KPI && m.Objective
}

// MatchScope tests each dimension independently. all/none selectors match
// unconditionally; specific selectors test set membership. Decode failures
// fail the dimension and are reported, never raised.
func MatchScope(rule model.LockRule, userID int64, obj model.Objective) (Match, []ParseWarning) {
	var warnings []ParseWarning
	m := Match{User: true, KPI: true, Objective: true}

	if rule.UserScope == model.ScopeSpecific {
		ids, err := rule.UserIDSet()
		if err != nil {
			warnings = append(warnings, ParseWarning{RuleID: rule.ID, Dimension: "user", Err: err})
			m.User = false
		} else {
			m.User = containsInt64(ids, userID)
		}
	}

	if rule.KPIScope == model.ScopeSpecific {
		ids, err := rule.KPIIDSet()
		if err != nil {
			warnings = append(warnings, ParseWarning{RuleID: rule.ID, Dimension: "kpi", Err: err})
			m.KPI = false
		} else {
			m.KPI = anyKPIMatch(obj.KPIs(), ids)
		}
	}

	if rule.ObjectiveScope == model.ScopeSpecific {
		ids, err := rule.ObjectiveIDSet()
		if err != nil {
			warnings = append(warnings, ParseWarning{RuleID: rule.ID, Dimension: "objective", Err: err})
			m.Objective = false
		} else {
			m.Objective = containsInt64(ids, obj.ID)
		}
	}

	return m, warnings
}

// Order sorts rules most specific first. Ties within a tier are broken by
// rule id so repeated evaluations scan in the same order regardless of how
// the store returned the rows.
func Order(rules []model.LockRule) []model.LockRule {
	ordered := make([]model.LockRule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		ti, tj := ordered[i].PriorityTier(), ordered[j].PriorityTier()
		if ti != tj {
			return ti < tj
		}
		return ordered[i].ID < ordered[j].ID
	})
	return ordered
}

// Resolve scans the rules in priority order and returns the first rule that
// both matches the (user, objective) scope and claims the requested field.
// A rule whose scope matches but whose flag for this field is unset does
// not stop the scan: specificity decides which lock claim wins, not whether
// scanning continues. Returns nil when no rule locks the field.
func Resolve(rules []model.LockRule, userID int64, obj model.Objective, field model.FieldType) (*model.LockRule, []ParseWarning) {
	var warnings []ParseWarning

	for _, rule := range Order(rules) {
		if rule.ScopeType != model.ScopeTypeHierarchical {
			continue
		}
		m, w := MatchScope(rule, userID, obj)
		warnings = append(warnings, w...)
		if !m.Applicable() {
			continue
		}
		if rule.FieldFlag(field) {
			winner := rule
			return &winner, warnings
		}
	}

	return nil, warnings
}

// ResolveOperation evaluates objective-level operation locks (adding or
// deleting objectives). Only the user and KPI dimensions apply, and there
// is no objective to match against. With an empty kpi the caller is asking
// "does any lock apply before a KPI is chosen", so kpi-specific rules are
// skipped rather than matched.
func ResolveOperation(rules []model.LockRule, userID int64, kpi string, op model.ObjectiveOperation) (*model.LockRule, []ParseWarning) {
	var warnings []ParseWarning

	for _, rule := range Order(rules) {
		if rule.ScopeType != model.ScopeTypeHierarchical || !rule.OperationFlag(op) {
			continue
		}

		userOK := true
		if rule.UserScope == model.ScopeSpecific {
			ids, err := rule.UserIDSet()
			if err != nil {
				warnings = append(warnings, ParseWarning{RuleID: rule.ID, Dimension: "user", Err: err})
				continue
			}
			userOK = containsInt64(ids, userID)
		}
		if !userOK {
			continue
		}

		if rule.KPIScope == model.ScopeSpecific {
			if kpi == "" {
				continue
			}
			ids, err := rule.KPIIDSet()
			if err != nil {
				warnings = append(warnings, ParseWarning{RuleID: rule.ID, Dimension: "kpi", Err: err})
				continue
			}
			if !anyKPIMatch(model.Objective{KPI: kpi}.KPIs(), ids) {
				continue
			}
		}

		winner := rule
		return &winner, warnings
	}

	return nil, warnings
}

func containsInt64(ids []int64, id int64) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func anyKPIMatch(objectiveKPIs, ruleKPIs []string) bool {
	for _, objKPI := range objectiveKPIs {
		for _, ruleKPI := range ruleKPIs {
			if objKPI == ruleKPI {
				return true
			}
		}
	}
	return false
}
