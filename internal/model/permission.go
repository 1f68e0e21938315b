package model

import "time"

// Permission is a coarse-grained capability grant. DepartmentID and KPI are
// optional narrowing keys; nil means the grant covers every department or
// every KPI. These compose with lock decisions, they do not replace them.
type Permission struct {
	ID                   int64     `gorm:"primaryKey" json:"id"`
	UserID               int64     `gorm:"column:user_id;not null;index" json:"user_id"`
	DepartmentID         *int64    `gorm:"column:department_id" json:"department_id,omitempty"`
	KPI                  *string   `gorm:"column:kpi;type:varchar(255)" json:"kpi,omitempty"`
	CanView              bool      `gorm:"column:can_view;default:true" json:"can_view"`
	CanEditTarget        bool      `gorm:"column:can_edit_target" json:"can_edit_target"`
	CanEditMonthlyTarget bool      `gorm:"column:can_edit_monthly_target" json:"can_edit_monthly_target"`
	CanEditMonthlyActual bool      `gorm:"column:can_edit_monthly_actual" json:"can_edit_monthly_actual"`
	CanViewReports       bool      `gorm:"column:can_view_reports" json:"can_view_reports"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (Permission) TableName() string { return "user_permissions" }

// CanEditField maps a lockable field type onto the grant's capability flags.
// FieldAllFields falls under the annual-target capability: editing the
// descriptive fields of an objective requires the same grant as its target.
func (p Permission) CanEditField(field FieldType) bool {
	switch field {
	case FieldTarget, FieldAllFields:
		return p.CanEditTarget
	case FieldMonthlyTarget:
		return p.CanEditMonthlyTarget
	case FieldMonthlyActual:
		return p.CanEditMonthlyActual
	}
	return false
}

// Specificity ranks a grant by how narrowly it is keyed; higher wins when a
// user holds several overlapping grants.
func (p Permission) Specificity() int {
	switch {
	case p.DepartmentID != nil && p.KPI != nil:
		return 3
	case p.DepartmentID != nil:
		return 2
	case p.KPI != nil:
		return 1
	default:
		return 0
	}
}
