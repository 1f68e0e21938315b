package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "pgcrypto";`,
	`CREATE TABLE IF NOT EXISTS field_locks (
		id BIGSERIAL PRIMARY KEY,
		scope_type VARCHAR(50) NOT NULL DEFAULT 'hierarchical',
		user_scope VARCHAR(20),
		user_ids TEXT,
		kpi_scope VARCHAR(20),
		kpi_ids TEXT,
		objective_scope VARCHAR(20),
		objective_ids TEXT,
		lock_annual_target BOOLEAN NOT NULL DEFAULT FALSE,
		lock_monthly_target BOOLEAN NOT NULL DEFAULT FALSE,
		lock_monthly_actual BOOLEAN NOT NULL DEFAULT FALSE,
		lock_all_other_fields BOOLEAN NOT NULL DEFAULT FALSE,
		lock_add_objective BOOLEAN NOT NULL DEFAULT FALSE,
		lock_delete_objective BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_by BIGINT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_field_locks_active ON field_locks (is_active);`,
	`CREATE TABLE IF NOT EXISTS user_permissions (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL,
		department_id BIGINT,
		kpi VARCHAR(255),
		can_view BOOLEAN NOT NULL DEFAULT TRUE,
		can_edit_target BOOLEAN NOT NULL DEFAULT FALSE,
		can_edit_monthly_target BOOLEAN NOT NULL DEFAULT FALSE,
		can_edit_monthly_actual BOOLEAN NOT NULL DEFAULT FALSE,
		can_view_reports BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_user_permissions_user ON user_permissions (user_id);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_user_permissions_key
		ON user_permissions (user_id, COALESCE(department_id, -1), COALESCE(kpi, ''));`,
	`CREATE TABLE IF NOT EXISTS department_objectives (
		id BIGSERIAL PRIMARY KEY,
		activity TEXT,
		kpi VARCHAR(500),
		department_id BIGINT,
		type VARCHAR(200),
		responsible_person VARCHAR(255),
		annual_target DECIMAL(18,2),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_department_objectives_department ON department_objectives (department_id);`,
	`CREATE TABLE IF NOT EXISTS activity_logs (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		user_id BIGINT,
		username VARCHAR(255),
		action_type VARCHAR(50) NOT NULL,
		target_field VARCHAR(50),
		old_value DECIMAL(18,2),
		new_value DECIMAL(18,2),
		kpi VARCHAR(255),
		department_id BIGINT,
		department_objective_id BIGINT,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_created ON activity_logs (created_at);`,
	`CREATE INDEX IF NOT EXISTS idx_activity_logs_action ON activity_logs (action_type);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
