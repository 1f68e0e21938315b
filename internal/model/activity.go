package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ActionLockCreated       = "lock_created"
	ActionLockUpdated       = "lock_updated"
	ActionLockDeleted       = "lock_deleted"
	ActionPermissionCreated = "permission_created"
	ActionPermissionUpdated = "permission_updated"
	ActionPermissionDeleted = "permission_deleted"
)

// ActivityLog records who changed what on the administrative surface.
type ActivityLog struct {
	ID           uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       int64            `gorm:"column:user_id;index" json:"user_id"`
	Username     string           `gorm:"column:username;type:varchar(255)" json:"username"`
	ActionType   string           `gorm:"column:action_type;type:varchar(50);not null;index" json:"action_type"`
	TargetField  *string          `gorm:"column:target_field;type:varchar(50)" json:"target_field,omitempty"`
	OldValue     *decimal.Decimal `gorm:"column:old_value;type:decimal(18,2)" json:"old_value,omitempty"`
	NewValue     *decimal.Decimal `gorm:"column:new_value;type:decimal(18,2)" json:"new_value,omitempty"`
	KPI          *string          `gorm:"column:kpi;type:varchar(255)" json:"kpi,omitempty"`
	DepartmentID *int64           `gorm:"column:department_id" json:"department_id,omitempty"`
	ObjectiveID  *int64           `gorm:"column:department_objective_id" json:"department_objective_id,omitempty"`
	Metadata     string           `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt    time.Time        `gorm:"index" json:"created_at"`
}

func (ActivityLog) TableName() string { return "activity_logs" }
