package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"config-service/internal/model"
)

type PermissionRepository interface {
	List(ctx context.Context) ([]model.Permission, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Permission, error)
	// FindExact locates a grant by its full (user, department, kpi) key,
	// where nil narrowing keys match stored NULLs.
	FindExact(ctx context.Context, userID int64, departmentID *int64, kpi *string) (*model.Permission, error)
	Create(ctx context.Context, perm *model.Permission) error
	Update(ctx context.Context, perm *model.Permission) error
	Delete(ctx context.Context, id int64) error
}

type permissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) PermissionRepository {
	return &permissionRepository{db: db}
}

func (r *permissionRepository) List(ctx context.Context) ([]model.Permission, error) {
	var perms []model.Permission
	err := r.db.WithContext(ctx).
		Order("user_id, department_id, kpi").
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) ListByUser(ctx context.Context, userID int64) ([]model.Permission, error) {
	var perms []model.Permission
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("department_id, kpi").
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}

func (r *permissionRepository) FindExact(ctx context.Context, userID int64, departmentID *int64, kpi *string) (*model.Permission, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if departmentID != nil {
		query = query.Where("department_id = ?", *departmentID)
	} else {
		query = query.Where("department_id IS NULL")
	}
	if kpi != nil {
		query = query.Where("kpi = ?", *kpi)
	} else {
		query = query.Where("kpi IS NULL")
	}

	var perm model.Permission
	if err := query.First(&perm).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &perm, nil
}

func (r *permissionRepository) Create(ctx context.Context, perm *model.Permission) error {
	return r.db.WithContext(ctx).Create(perm).Error
}

func (r *permissionRepository) Update(ctx context.Context, perm *model.Permission) error {
	return r.db.WithContext(ctx).Save(perm).Error
}

func (r *permissionRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&model.Permission{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
