package service

import (
	"context"
	"fmt"

	"config-service/internal/model"
	"config-service/internal/repository"
)

type ActivityService struct {
	activity repository.ActivityRepository
}

func NewActivityService(activity repository.ActivityRepository) *ActivityService {
	return &ActivityService{activity: activity}
}

func (s *ActivityService) List(ctx context.Context, page, limit int) ([]model.ActivityLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	logs, total, err := s.activity.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return logs, total, nil
}
