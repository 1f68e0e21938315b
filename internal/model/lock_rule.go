package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

type ScopeType string

const (
	// ScopeTypeHierarchical is the only scope type the evaluator interprets.
	// Rows carrying any other value are legacy records and stay inert.
	ScopeTypeHierarchical ScopeType = "hierarchical"
)

type ScopeSelector string

const (
	ScopeAll      ScopeSelector = "all"
	ScopeSpecific ScopeSelector = "specific"
	// ScopeNone is accepted on the user dimension only and behaves exactly
	// like ScopeAll ("skip the user filter"). The admin UI has always
	// offered it as a synonym.
	ScopeNone ScopeSelector = "none"
)

type FieldType string

const (
	FieldTarget        FieldType = "target"
	FieldMonthlyTarget FieldType = "monthly_target"
	FieldMonthlyActual FieldType = "monthly_actual"
	FieldAllFields     FieldType = "all_fields"
)

// ParseFieldType validates a wire-level field type value.
func ParseFieldType(raw string) (FieldType, bool) {
	switch FieldType(raw) {
	case FieldTarget, FieldMonthlyTarget, FieldMonthlyActual, FieldAllFields:
		return FieldType(raw), true
	}
	return "", false
}

type ObjectiveOperation string

const (
	OperationAdd    ObjectiveOperation = "add"
	OperationDelete ObjectiveOperation = "delete"
)

// LockRule is an administrator-authored field lock. The three id-set columns
// are JSON-encoded text; write paths encode validated typed sets, read paths
// decode tolerantly because rows may predate validation.
type LockRule struct {
	ID             int64         `gorm:"primaryKey" json:"id"`
	ScopeType      ScopeType     `gorm:"column:scope_type;type:varchar(50);not null" json:"scope_type"`
	UserScope      ScopeSelector `gorm:"column:user_scope;type:varchar(20)" json:"user_scope"`
	UserIDs        string        `gorm:"column:user_ids;type:text" json:"-"`
	KPIScope       ScopeSelector `gorm:"column:kpi_scope;type:varchar(20)" json:"kpi_scope"`
	KPIIDs         string        `gorm:"column:kpi_ids;type:text" json:"-"`
	ObjectiveScope ScopeSelector `gorm:"column:objective_scope;type:varchar(20)" json:"objective_scope"`
	ObjectiveIDs   string        `gorm:"column:objective_ids;type:text" json:"-"`

	LockAnnualTarget    bool `gorm:"column:lock_annual_target" json:"lock_annual_target"`
	LockMonthlyTarget   bool `gorm:"column:lock_monthly_target" json:"lock_monthly_target"`
	LockMonthlyActual   bool `gorm:"column:lock_monthly_actual" json:"lock_monthly_actual"`
	LockAllOtherFields  bool `gorm:"column:lock_all_other_fields" json:"lock_all_other_fields"`
	LockAddObjective    bool `gorm:"column:lock_add_objective" json:"lock_add_objective"`
	LockDeleteObjective bool `gorm:"column:lock_delete_objective" json:"lock_delete_objective"`

	IsActive  bool      `gorm:"column:is_active;default:true;index" json:"is_active"`
	CreatedBy int64     `gorm:"column:created_by" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (LockRule) TableName() string { return "field_locks" }

// FieldFlag reports whether this rule claims the given field type.
func (r LockRule) FieldFlag(field FieldType) bool {
	switch field {
	case FieldTarget:
		return r.LockAnnualTarget
	case FieldMonthlyTarget:
		return r.LockMonthlyTarget
	case FieldMonthlyActual:
		return r.LockMonthlyActual
	case FieldAllFields:
		return r.LockAllOtherFields
	}
	return false
}

// OperationFlag reports whether this rule locks an objective-level operation.
func (r LockRule) OperationFlag(op ObjectiveOperation) bool {
	switch op {
	case OperationAdd:
		return r.LockAddObjective
	case OperationDelete:
		return r.LockDeleteObjective
	}
	return false
}

// ClaimsAnyField is the write-time "rule must lock something" check.
func (r LockRule) ClaimsAnyField() bool {
	return r.LockAnnualTarget || r.LockMonthlyTarget || r.LockMonthlyActual ||
		r.LockAllOtherFields || r.LockAddObjective || r.LockDeleteObjective
}

// PriorityTier orders rules most specific first: a rule pinned to concrete
// objectives outranks one pinned to KPIs, which outranks one pinned to
// users, which outranks a fully general rule.
func (r LockRule) PriorityTier() int {
	switch {
	case r.ObjectiveScope == ScopeSpecific:
		return 1
	case r.KPIScope == ScopeSpecific:
		return 2
	case r.UserScope == ScopeSpecific:
		return 3
	default:
		return 4
	}
}

// UserIDSet decodes the encoded user id set. Entries may be stored as
// numbers or numeric strings; both coerce to int64.
func (r LockRule) UserIDSet() ([]int64, error) {
	return decodeInt64Set(r.UserIDs)
}

// KPIIDSet decodes the encoded KPI identifier set.
func (r LockRule) KPIIDSet() ([]string, error) {
	return decodeStringSet(r.KPIIDs)
}

// ObjectiveIDSet decodes the encoded objective id set.
func (r LockRule) ObjectiveIDSet() ([]int64, error) {
	return decodeInt64Set(r.ObjectiveIDs)
}

// EncodeInt64Set serializes a validated id set for storage.
func EncodeInt64Set(ids []int64) string {
	raw, _ := json.Marshal(ids)
	return string(raw)
}

// EncodeStringSet serializes a validated identifier set for storage.
func EncodeStringSet(ids []string) string {
	raw, _ := json.Marshal(ids)
	return string(raw)
}

func decodeInt64Set(raw string) ([]int64, error) {
	if raw == "" {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("not a JSON array: %w", err)
	}
	ids := make([]int64, 0, len(entries))
	for _, entry := range entries {
		var n int64
		if err := json.Unmarshal(entry, &n); err == nil {
			ids = append(ids, n)
			continue
		}
		var s string
		if err := json.Unmarshal(entry, &s); err != nil {
			return nil, fmt.Errorf("entry %s is not numeric", entry)
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q is not numeric", s)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

func decodeStringSet(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var entries []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("not a JSON array: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		var s string
		if err := json.Unmarshal(entry, &s); err == nil {
			ids = append(ids, s)
			continue
		}
		var n json.Number
		if err := json.Unmarshal(entry, &n); err != nil {
			return nil, fmt.Errorf("entry %s is not a string", entry)
		}
		ids = append(ids, n.String())
	}
	return ids, nil
}
