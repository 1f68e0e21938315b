package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"config-service/internal/model"
)

var ErrRecordNotFound = errors.New("record not found")

type LockRuleRepository interface {
	ListActive(ctx context.Context) ([]model.LockRule, error)
	GetByID(ctx context.Context, id int64) (*model.LockRule, error)
	Create(ctx context.Context, rule *model.LockRule) error
	Update(ctx context.Context, rule *model.LockRule) error
	Deactivate(ctx context.Context, id int64) error
	DeactivateMany(ctx context.Context, ids []int64) (int64, error)
}

type lockRuleRepository struct {
	db *gorm.DB
}

func NewLockRuleRepository(db *gorm.DB) LockRuleRepository {
	return &lockRuleRepository{db: db}
}

func (r *lockRuleRepository) ListActive(ctx context.Context) ([]model.LockRule, error) {
	var rules []model.LockRule
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *lockRuleRepository) GetByID(ctx context.Context, id int64) (*model.LockRule, error) {
	var rule model.LockRule
	err := r.db.WithContext(ctx).First(&rule, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &rule, nil
}

func (r *lockRuleRepository) Create(ctx context.Context, rule *model.LockRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *lockRuleRepository) Update(ctx context.Context, rule *model.LockRule) error {
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *lockRuleRepository) Deactivate(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&model.LockRule{}).
		Where("id = ?", id).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *lockRuleRepository) DeactivateMany(ctx context.Context, ids []int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.LockRule{}).
		Where("id IN ?", ids).
		Update("is_active", false)
	return result.RowsAffected, result.Error
}
