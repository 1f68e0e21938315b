package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"config-service/internal/lock"
	"config-service/internal/model"
	"config-service/internal/repository"
)

type LockService struct {
	rules      repository.LockRuleRepository
	objectives repository.ObjectiveRepository
	activity   repository.ActivityRepository
	failOpen   bool
	log        zerolog.Logger
}

func NewLockService(
	rules repository.LockRuleRepository,
	objectives repository.ObjectiveRepository,
	activity repository.ActivityRepository,
	failOpen bool,
	log zerolog.Logger,
) *LockService {
	return &LockService{
		rules:      rules,
		objectives: objectives,
		activity:   activity,
		failOpen:   failOpen,
		log:        log,
	}
}

// Check evaluates whether the given field of the given objective is locked
// for this user. Rules are loaded fresh per call; evaluation itself is a
// pure function of the loaded snapshot.
func (s *LockService) Check(ctx context.Context, userID, objectiveID int64, field model.FieldType) (model.LockDecision, error) {
	obj, err := s.objectives.GetByID(ctx, objectiveID)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return model.LockDecision{}, ErrObjectiveNotFound
		}
		return s.failOpenDecision("load objective", err)
	}

	// M&E records never participate in lock matching, and monthly actuals
	// can only be locked on Direct objectives.
	if obj.IsMonitoring() {
		return model.LockDecision{}, nil
	}
	if field == model.FieldMonthlyActual && !obj.HasDirectType() {
		return model.LockDecision{}, nil
	}

	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return s.failOpenDecision("load lock rules", err)
	}

	winner, warnings := lock.Resolve(rules, userID, *obj, field)
	s.logParseWarnings(warnings)

	if winner == nil {
		return model.LockDecision{}, nil
	}

	id := winner.ID
	return model.LockDecision{
		Locked: true,
		LockID: &id,
		Reason: lockReason(*winner, field),
	}, nil
}

// BatchCheckItem is one entry of a batch evaluation request.
type BatchCheckItem struct {
	FieldType   string `json:"field_type"`
	ObjectiveID int64  `json:"department_objective_id"`
}

// BatchCheckResult echoes the request keys so callers can correlate.
type BatchCheckResult struct {
	model.LockDecision
	FieldType   string `json:"field_type"`
	ObjectiveID int64  `json:"department_objective_id"`
	Error       string `json:"error,omitempty"`
}

// CheckBatch evaluates a list of checks for one user. Item failures are
// reported per item so one bad objective id does not sink the batch.
func (s *LockService) CheckBatch(ctx context.Context, userID int64, items []BatchCheckItem) []BatchCheckResult {
	results := make([]BatchCheckResult, 0, len(items))
	for _, item := range items {
		result := BatchCheckResult{FieldType: item.FieldType, ObjectiveID: item.ObjectiveID}

		field, ok := model.ParseFieldType(item.FieldType)
		if !ok {
			result.Error = fmt.Sprintf("unknown field type %q", item.FieldType)
			results = append(results, result)
			continue
		}

		decision, err := s.Check(ctx, userID, item.ObjectiveID, field)
		if err != nil {
			result.Error = err.Error()
		} else {
			result.LockDecision = decision
		}
		results = append(results, result)
	}
	return results
}

// CheckOperation evaluates add/delete objective locks. These have no
// objective dimension; kpi may be empty when the caller has not picked a
// KPI yet.
func (s *LockService) CheckOperation(ctx context.Context, userID int64, kpi string, op model.ObjectiveOperation) (model.LockDecision, error) {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return s.failOpenDecision("load lock rules", err)
	}

	winner, warnings := lock.ResolveOperation(rules, userID, kpi, op)
	s.logParseWarnings(warnings)

	if winner == nil {
		return model.LockDecision{}, nil
	}

	id := winner.ID
	return model.LockDecision{
		Locked: true,
		LockID: &id,
		Reason: fmt.Sprintf("cannot %s objective: locked by rule %d", op, id),
	}, nil
}

// LockRuleInput is the validated write-side shape: id sets arrive typed and
// are encoded only after validation.
type LockRuleInput struct {
	ScopeType      string   `json:"scope_type"`
	UserScope      string   `json:"user_scope"`
	UserIDs        []int64  `json:"user_ids"`
	KPIScope       string   `json:"kpi_scope"`
	KPIIDs         []string `json:"kpi_ids"`
	ObjectiveScope string   `json:"objective_scope"`
	ObjectiveIDs   []int64  `json:"objective_ids"`

	LockAnnualTarget    bool `json:"lock_annual_target"`
	LockMonthlyTarget   bool `json:"lock_monthly_target"`
	LockMonthlyActual   bool `json:"lock_monthly_actual"`
	LockAllOtherFields  bool `json:"lock_all_other_fields"`
	LockAddObjective    bool `json:"lock_add_objective"`
	LockDeleteObjective bool `json:"lock_delete_objective"`
}

// LockRuleUpdate carries a partial update; nil fields keep stored values.
type LockRuleUpdate struct {
	UserScope      *string   `json:"user_scope"`
	UserIDs        *[]int64  `json:"user_ids"`
	KPIScope       *string   `json:"kpi_scope"`
	KPIIDs         *[]string `json:"kpi_ids"`
	ObjectiveScope *string   `json:"objective_scope"`
	ObjectiveIDs   *[]int64  `json:"objective_ids"`

	LockAnnualTarget    *bool `json:"lock_annual_target"`
	LockMonthlyTarget   *bool `json:"lock_monthly_target"`
	LockMonthlyActual   *bool `json:"lock_monthly_actual"`
	LockAllOtherFields  *bool `json:"lock_all_other_fields"`
	LockAddObjective    *bool `json:"lock_add_objective"`
	LockDeleteObjective *bool `json:"lock_delete_objective"`

	IsActive *bool `json:"is_active"`
}

// LockRuleView is the read-side shape with id sets decoded. Sets that fail
// to decode render as null rather than failing the listing.
type LockRuleView struct {
	model.LockRule
	UserIDs      []int64  `json:"user_ids"`
	KPIIDs       []string `json:"kpi_ids"`
	ObjectiveIDs []int64  `json:"objective_ids"`
}

func (s *LockService) ListRules(ctx context.Context) ([]LockRuleView, error) {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	views := make([]LockRuleView, 0, len(rules))
	for _, rule := range rules {
		views = append(views, s.toView(rule))
	}
	return views, nil
}

func (s *LockService) GetRule(ctx context.Context, id int64) (*LockRuleView, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	view := s.toView(*rule)
	return &view, nil
}

func (s *LockService) CreateRule(ctx context.Context, principal model.Principal, input LockRuleInput) (*LockRuleView, error) {
	rule, err := ruleFromInput(input)
	if err != nil {
		return nil, err
	}
	rule.CreatedBy = principal.UserID
	rule.IsActive = true

	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.recordActivity(ctx, principal, model.ActionLockCreated, map[string]interface{}{
		"lock_id": rule.ID, "scope_type": rule.ScopeType,
	})

	view := s.toView(*rule)
	return &view, nil
}

func (s *LockService) UpdateRule(ctx context.Context, principal model.Principal, id int64, update LockRuleUpdate) (*LockRuleView, error) {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	applyUpdate(rule, update)
	if err := validateRule(*rule); err != nil {
		return nil, err
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.recordActivity(ctx, principal, model.ActionLockUpdated, map[string]interface{}{"lock_id": id})

	view := s.toView(*rule)
	return &view, nil
}

// DeactivateRule is the DELETE semantics: rules are switched off, not
// removed, so the audit trail keeps pointing at real rows. The evaluator
// only ever loads active rules, so this is indistinguishable from a hard
// delete.
func (s *LockService) DeactivateRule(ctx context.Context, principal model.Principal, id int64) error {
	if err := s.rules.Deactivate(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.recordActivity(ctx, principal, model.ActionLockDeleted, map[string]interface{}{"lock_id": id})
	return nil
}

func (s *LockService) BulkCreate(ctx context.Context, principal model.Principal, inputs []LockRuleInput) ([]LockRuleView, error) {
	views := make([]LockRuleView, 0, len(inputs))
	for i, input := range inputs {
		rule, err := ruleFromInput(input)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		rule.CreatedBy = principal.UserID
		rule.IsActive = true
		if err := s.rules.Create(ctx, rule); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		views = append(views, s.toView(*rule))
	}

	s.recordActivity(ctx, principal, model.ActionLockCreated, map[string]interface{}{
		"bulk": true, "count": len(views),
	})
	return views, nil
}

func (s *LockService) BulkDeactivate(ctx context.Context, principal model.Principal, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no ids provided", ErrValidation)
	}
	count, err := s.rules.DeactivateMany(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.recordActivity(ctx, principal, model.ActionLockDeleted, map[string]interface{}{
		"bulk": true, "count": count,
	})
	return count, nil
}

func (s *LockService) failOpenDecision(step string, err error) (model.LockDecision, error) {
	if !s.failOpen {
		return model.LockDecision{}, fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, step, err)
	}
	s.log.Error().Err(err).Str("step", step).
		Msg("lock store unavailable, failing open (treating field as unlocked)")
	return model.LockDecision{
		Locked: false,
		Reason: "lock evaluation unavailable, field treated as unlocked",
	}, nil
}

func (s *LockService) logParseWarnings(warnings []lock.ParseWarning) {
	for _, w := range warnings {
		s.log.Warn().
			Int64("rule_id", w.RuleID).
			Str("dimension", w.Dimension).
			Err(w.Err).
			Msg("lock rule has unparsable id set, rule skipped for this evaluation")
	}
}

func (s *LockService) recordActivity(ctx context.Context, principal model.Principal, action string, metadata map[string]interface{}) {
	raw, _ := json.Marshal(metadata)
	entry := &model.ActivityLog{
		UserID:     principal.UserID,
		Username:   principal.Username,
		ActionType: action,
		Metadata:   string(raw),
	}
	// Recording failures must never break the write they describe.
	if err := s.activity.Record(ctx, entry); err != nil {
		s.log.Error().Err(err).Str("action", action).Msg("failed to record activity")
	}
}

func (s *LockService) toView(rule model.LockRule) LockRuleView {
	view := LockRuleView{LockRule: rule}
	if ids, err := rule.UserIDSet(); err == nil {
		view.UserIDs = ids
	} else {
		s.log.Warn().Int64("rule_id", rule.ID).Err(err).Msg("unparsable user_ids in stored rule")
	}
	if ids, err := rule.KPIIDSet(); err == nil {
		view.KPIIDs = ids
	} else {
		s.log.Warn().Int64("rule_id", rule.ID).Err(err).Msg("unparsable kpi_ids in stored rule")
	}
	if ids, err := rule.ObjectiveIDSet(); err == nil {
		view.ObjectiveIDs = ids
	} else {
		s.log.Warn().Int64("rule_id", rule.ID).Err(err).Msg("unparsable objective_ids in stored rule")
	}
	return view
}

func ruleFromInput(input LockRuleInput) (*model.LockRule, error) {
	rule := &model.LockRule{
		ScopeType:           model.ScopeType(input.ScopeType),
		UserScope:           model.ScopeSelector(input.UserScope),
		KPIScope:            model.ScopeSelector(input.KPIScope),
		ObjectiveScope:      model.ScopeSelector(input.ObjectiveScope),
		LockAnnualTarget:    input.LockAnnualTarget,
		LockMonthlyTarget:   input.LockMonthlyTarget,
		LockMonthlyActual:   input.LockMonthlyActual,
		LockAllOtherFields:  input.LockAllOtherFields,
		LockAddObjective:    input.LockAddObjective,
		LockDeleteObjective: input.LockDeleteObjective,
	}
	if len(input.UserIDs) > 0 {
		rule.UserIDs = model.EncodeInt64Set(input.UserIDs)
	}
	if len(input.KPIIDs) > 0 {
		rule.KPIIDs = model.EncodeStringSet(input.KPIIDs)
	}
	if len(input.ObjectiveIDs) > 0 {
		rule.ObjectiveIDs = model.EncodeInt64Set(input.ObjectiveIDs)
	}

	if err := validateRule(*rule); err != nil {
		return nil, err
	}
	return rule, nil
}

func applyUpdate(rule *model.LockRule, update LockRuleUpdate) {
	if update.UserScope != nil {
		rule.UserScope = model.ScopeSelector(*update.UserScope)
	}
	if update.UserIDs != nil {
		rule.UserIDs = model.EncodeInt64Set(*update.UserIDs)
	}
	if update.KPIScope != nil {
		rule.KPIScope = model.ScopeSelector(*update.KPIScope)
	}
	if update.KPIIDs != nil {
		rule.KPIIDs = model.EncodeStringSet(*update.KPIIDs)
	}
	if update.ObjectiveScope != nil {
		rule.ObjectiveScope = model.ScopeSelector(*update.ObjectiveScope)
	}
	if update.ObjectiveIDs != nil {
		rule.ObjectiveIDs = model.EncodeInt64Set(*update.ObjectiveIDs)
	}
	if update.LockAnnualTarget != nil {
		rule.LockAnnualTarget = *update.LockAnnualTarget
	}
	if update.LockMonthlyTarget != nil {
		rule.LockMonthlyTarget = *update.LockMonthlyTarget
	}
	if update.LockMonthlyActual != nil {
		rule.LockMonthlyActual = *update.LockMonthlyActual
	}
	if update.LockAllOtherFields != nil {
		rule.LockAllOtherFields = *update.LockAllOtherFields
	}
	if update.LockAddObjective != nil {
		rule.LockAddObjective = *update.LockAddObjective
	}
	if update.LockDeleteObjective != nil {
		rule.LockDeleteObjective = *update.LockDeleteObjective
	}
	if update.IsActive != nil {
		rule.IsActive = *update.IsActive
	}
}

// validateRule enforces the write-time invariants: a specific scope must
// carry a non-empty id set, and a rule that locks nothing is rejected
// rather than stored as dead weight.
func validateRule(rule model.LockRule) error {
	if rule.ScopeType != model.ScopeTypeHierarchical {
		return fmt.Errorf("%w: unknown scope_type %q", ErrValidation, rule.ScopeType)
	}

	switch rule.UserScope {
	case model.ScopeAll, model.ScopeNone:
	case model.ScopeSpecific:
		ids, err := rule.UserIDSet()
		if err != nil || len(ids) == 0 {
			return fmt.Errorf("%w: user_ids must be a non-empty set when user_scope is specific", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: user_scope must be all, none, or specific", ErrValidation)
	}

	switch rule.KPIScope {
	case model.ScopeAll:
	case model.ScopeSpecific:
		ids, err := rule.KPIIDSet()
		if err != nil || len(ids) == 0 {
			return fmt.Errorf("%w: kpi_ids must be a non-empty set when kpi_scope is specific", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: kpi_scope must be all or specific", ErrValidation)
	}

	switch rule.ObjectiveScope {
	case model.ScopeAll:
	case model.ScopeSpecific:
		ids, err := rule.ObjectiveIDSet()
		if err != nil || len(ids) == 0 {
			return fmt.Errorf("%w: objective_ids must be a non-empty set when objective_scope is specific", ErrValidation)
		}
	default:
		return fmt.Errorf("%w: objective_scope must be all or specific", ErrValidation)
	}

	if !rule.ClaimsAnyField() {
		return fmt.Errorf("%w: at least one field must be locked", ErrValidation)
	}

	return nil
}

func lockReason(rule model.LockRule, field model.FieldType) string {
	var fieldLabel string
	switch field {
	case model.FieldTarget:
		fieldLabel = "annual target"
	case model.FieldMonthlyTarget:
		fieldLabel = "monthly target"
	case model.FieldMonthlyActual:
		fieldLabel = "monthly actual"
	case model.FieldAllFields:
		fieldLabel = "other fields"
	}

	var tierLabel string
	switch rule.PriorityTier() {
	case 1:
		tierLabel = "objective-scoped"
	case 2:
		tierLabel = "KPI-scoped"
	case 3:
		tierLabel = "user-scoped"
	default:
		tierLabel = "general"
	}

	return fmt.Sprintf("%s locked by %s rule %d", fieldLabel, tierLabel, rule.ID)
}
