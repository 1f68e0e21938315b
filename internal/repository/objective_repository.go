package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"config-service/internal/model"
)

// ObjectiveRepository is read-only: objectives are owned by the planning
// service, this one only needs their scope attributes.
type ObjectiveRepository interface {
	GetByID(ctx context.Context, id int64) (*model.Objective, error)
}

type objectiveRepository struct {
	db *gorm.DB
}

func NewObjectiveRepository(db *gorm.DB) ObjectiveRepository {
	return &objectiveRepository{db: db}
}

func (r *objectiveRepository) GetByID(ctx context.Context, id int64) (*model.Objective, error) {
	var obj model.Objective
	err := r.db.WithContext(ctx).
		Select("id", "activity", "kpi", "department_id", "type", "responsible_person", "annual_target").
		First(&obj, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &obj, nil
}
