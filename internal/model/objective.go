package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// KPIDelimiter joins multiple KPI identifiers (and their per-KPI types) into
// a single column when one objective serves several KPIs.
const KPIDelimiter = "||"

// Objective is a department-level activity row tied to one or more KPIs.
// This service reads objectives but never writes them.
type Objective struct {
	ID                int64           `gorm:"primaryKey" json:"id"`
	Activity          string          `gorm:"column:activity;type:text" json:"activity"`
	KPI               string          `gorm:"column:kpi;type:varchar(500)" json:"kpi"`
	DepartmentID      int64           `gorm:"column:department_id;index" json:"department_id"`
	Type              string          `gorm:"column:type;type:varchar(200)" json:"type"`
	ResponsiblePerson string          `gorm:"column:responsible_person;type:varchar(255)" json:"responsible_person"`
	AnnualTarget      decimal.Decimal `gorm:"column:annual_target;type:decimal(18,2)" json:"annual_target"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Objective) TableName() string { return "department_objectives" }

// KPIs returns the objective's KPI identifiers, split and trimmed.
func (o Objective) KPIs() []string {
	return splitDelimited(o.KPI)
}

// Types returns the objective's per-KPI type values, split and trimmed.
func (o Objective) Types() []string {
	return splitDelimited(o.Type)
}

// IsMonitoring reports whether the objective is an M&E record, which is
// exempt from lock matching.
func (o Objective) IsMonitoring() bool {
	return o.Type == "M&E" || o.Type == "M&E MOV"
}

// HasDirectType reports whether any of the objective's type values is a
// Direct variant. Monthly actuals can only be locked on Direct objectives.
func (o Objective) HasDirectType() bool {
	return strings.Contains(o.Type, "Direct")
}

func splitDelimited(raw string) []string {
	if raw == "" {
		return nil
	}
	if !strings.Contains(raw, KPIDelimiter) {
		return []string{strings.TrimSpace(raw)}
	}
	parts := strings.Split(raw, KPIDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
