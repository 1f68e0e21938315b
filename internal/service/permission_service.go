package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"config-service/internal/model"
	"config-service/internal/repository"
)

type PermissionService struct {
	permissions repository.PermissionRepository
	objectives  repository.ObjectiveRepository
	activity    repository.ActivityRepository
	locks       *LockService
	log         zerolog.Logger
}

func NewPermissionService(
	permissions repository.PermissionRepository,
	objectives repository.ObjectiveRepository,
	activity repository.ActivityRepository,
	locks *LockService,
	log zerolog.Logger,
) *PermissionService {
	return &PermissionService{
		permissions: permissions,
		objectives:  objectives,
		activity:    activity,
		locks:       locks,
		log:         log,
	}
}

// ResolveGrant picks the grant governing a user's access to an objective.
// Among the user's rows whose narrowing keys cover the objective, the most
// specific combination wins: user+department+kpi beats user+department
// beats user+kpi beats user-only. No covering grant means deny.
func (s *PermissionService) ResolveGrant(ctx context.Context, userID int64, obj model.Objective) (*model.Permission, error) {
	grants, err := s.permissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var best *model.Permission
	for i := range grants {
		grant := &grants[i]
		if !grantCovers(*grant, obj) {
			continue
		}
		if best == nil || grant.Specificity() > best.Specificity() {
			best = grant
		}
	}
	return best, nil
}

// Editability is the composed decision external callers must use: a field
// is editable only when a grant allows it AND no lock rule locks it.
// "Not locked" alone never means "editable".
func (s *PermissionService) Editability(ctx context.Context, userID, objectiveID int64, field model.FieldType) (model.Editability, error) {
	obj, err := s.objectives.GetByID(ctx, objectiveID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return model.Editability{}, ErrObjectiveNotFound
		}
		return model.Editability{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	grant, err := s.ResolveGrant(ctx, userID, *obj)
	if err != nil {
		return model.Editability{}, err
	}
	granted := grant != nil && grant.CanEditField(field)

	decision, err := s.locks.Check(ctx, userID, objectiveID, field)
	if err != nil {
		return model.Editability{}, err
	}

	return model.Editability{
		Editable: granted && !decision.Locked,
		Granted:  granted,
		Lock:     decision,
	}, nil
}

func (s *PermissionService) List(ctx context.Context) ([]model.Permission, error) {
	perms, err := s.permissions.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return perms, nil
}

func (s *PermissionService) ListByUser(ctx context.Context, userID int64) ([]model.Permission, error) {
	perms, err := s.permissions.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return perms, nil
}

// PermissionInput is the upsert payload. The (user, department, kpi) key
// identifies the grant; flags replace stored values wholesale.
type PermissionInput struct {
	UserID               int64   `json:"user_id"`
	DepartmentID         *int64  `json:"department_id"`
	KPI                  *string `json:"kpi"`
	CanView              *bool   `json:"can_view"`
	CanEditTarget        bool    `json:"can_edit_target"`
	CanEditMonthlyTarget bool    `json:"can_edit_monthly_target"`
	CanEditMonthlyActual bool    `json:"can_edit_monthly_actual"`
	CanViewReports       bool    `json:"can_view_reports"`
}

// Upsert creates the grant or updates the existing row with the same
// (user, department, kpi) key. Returns the stored grant and whether it was
// newly created.
func (s *PermissionService) Upsert(ctx context.Context, principal model.Principal, input PermissionInput) (*model.Permission, bool, error) {
	if input.UserID <= 0 {
		return nil, false, fmt.Errorf("%w: user_id is required", ErrValidation)
	}

	canView := true
	if input.CanView != nil {
		canView = *input.CanView
	}

	existing, err := s.permissions.FindExact(ctx, input.UserID, input.DepartmentID, input.KPI)
	if err != nil && !errors.Is(err, repository.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if existing != nil {
		existing.CanView = canView
		existing.CanEditTarget = input.CanEditTarget
		existing.CanEditMonthlyTarget = input.CanEditMonthlyTarget
		existing.CanEditMonthlyActual = input.CanEditMonthlyActual
		existing.CanViewReports = input.CanViewReports
		if err := s.permissions.Update(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		s.recordActivity(ctx, principal, model.ActionPermissionUpdated, map[string]interface{}{
			"permission_id": existing.ID, "target_user_id": input.UserID,
		})
		return existing, false, nil
	}

	perm := &model.Permission{
		UserID:               input.UserID,
		DepartmentID:         input.DepartmentID,
		KPI:                  input.KPI,
		CanView:              canView,
		CanEditTarget:        input.CanEditTarget,
		CanEditMonthlyTarget: input.CanEditMonthlyTarget,
		CanEditMonthlyActual: input.CanEditMonthlyActual,
		CanViewReports:       input.CanViewReports,
	}
	if err := s.permissions.Create(ctx, perm); err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.recordActivity(ctx, principal, model.ActionPermissionCreated, map[string]interface{}{
		"permission_id": perm.ID, "target_user_id": input.UserID,
	})
	return perm, true, nil
}

func (s *PermissionService) BulkUpsert(ctx context.Context, principal model.Principal, inputs []PermissionInput) ([]model.Permission, error) {
	results := make([]model.Permission, 0, len(inputs))
	for i, input := range inputs {
		perm, _, err := s.Upsert(ctx, principal, input)
		if err != nil {
			return nil, fmt.Errorf("permission %d: %w", i, err)
		}
		results = append(results, *perm)
	}
	return results, nil
}

func (s *PermissionService) Delete(ctx context.Context, principal model.Principal, id int64) error {
	if err := s.permissions.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	s.recordActivity(ctx, principal, model.ActionPermissionDeleted, map[string]interface{}{
		"permission_id": id,
	})
	return nil
}

func (s *PermissionService) recordActivity(ctx context.Context, principal model.Principal, action string, metadata map[string]interface{}) {
	raw, _ := json.Marshal(metadata)
	entry := &model.ActivityLog{
		UserID:     principal.UserID,
		Username:   principal.Username,
		ActionType: action,
		Metadata:   string(raw),
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

// grantCovers reports whether a grant's narrowing keys include the
// objective. A nil department covers every department; a nil KPI covers
// every KPI; a set KPI must appear among the objective's (possibly
// delimited) KPIs.
func grantCovers(grant model.Permission, obj model.Objective) bool {
	if grant.DepartmentID != nil && *grant.DepartmentID != obj.DepartmentID {
		return false
	}
	if grant.KPI != nil {
		for _, kpi := range obj.KPIs() {
			if kpi == *grant.KPI {
				return true
			}
		}
		return false
	}
	return true
}
