package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"config-service/internal/model"
	"config-service/internal/repository"
	"config-service/internal/service"
)

type stubLockRepo struct {
	rules []model.LockRule
}

func (s *stubLockRepo) ListActive(ctx context.Context) ([]model.LockRule, error) {
	return s.rules, nil
}

func (s *stubLockRepo) GetByID(ctx context.Context, id int64) (*model.LockRule, error) {
	for i := range s.rules {
		if s.rules[i].ID == id {
			rule := s.rules[i]
			return &rule, nil
		}
	}
	return nil, repository.ErrRecordNotFound
}

func (s *stubLockRepo) Create(ctx context.Context, rule *model.LockRule) error {
	rule.ID = int64(len(s.rules) + 1)
	s.rules = append(s.rules, *rule)
	return nil
}

func (s *stubLockRepo) Update(ctx context.Context, rule *model.LockRule) error { return nil }
func (s *stubLockRepo) Deactivate(ctx context.Context, id int64) error         { return nil }
func (s *stubLockRepo) DeactivateMany(ctx context.Context, ids []int64) (int64, error) {
	return int64(len(ids)), nil
}

type stubObjectiveRepo struct {
	objectives map[int64]model.Objective
}

func (s *stubObjectiveRepo) GetByID(ctx context.Context, id int64) (*model.Objective, error) {
	obj, ok := s.objectives[id]
	if !ok {
		return nil, repository.ErrRecordNotFound
	}
	return &obj, nil
}

type stubActivityRepo struct{}

func (stubActivityRepo) Record(ctx context.Context, entry *model.ActivityLog) error { return nil }
func (stubActivityRepo) List(ctx context.Context, page, limit int) ([]model.ActivityLog, int64, error) {
	return nil, 0, nil
}

type stubPermissionRepo struct {
	perms []model.Permission
}

func (s *stubPermissionRepo) List(ctx context.Context) ([]model.Permission, error) {
	return s.perms, nil
}
func (s *stubPermissionRepo) ListByUser(ctx context.Context, userID int64) ([]model.Permission, error) {
	return s.perms, nil
}
func (s *stubPermissionRepo) FindExact(ctx context.Context, userID int64, departmentID *int64, kpi *string) (*model.Permission, error) {
	return nil, repository.ErrRecordNotFound
}
func (s *stubPermissionRepo) Create(ctx context.Context, perm *model.Permission) error { return nil }
func (s *stubPermissionRepo) Update(ctx context.Context, perm *model.Permission) error { return nil }
func (s *stubPermissionRepo) Delete(ctx context.Context, id int64) error               { return nil }

func testPrincipal(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("principal", model.Principal{UserID: 8, Username: "tester", Role: role})
		c.Next()
	}
}

func newTestRouter(t *testing.T, rules []model.LockRule, objectives map[int64]model.Objective, role string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zerolog.Nop()
	lockService := service.NewLockService(&stubLockRepo{rules: rules}, &stubObjectiveRepo{objectives: objectives}, stubActivityRepo{}, true, log)
	permissionService := service.NewPermissionService(&stubPermissionRepo{}, &stubObjectiveRepo{objectives: objectives}, stubActivityRepo{}, lockService, log)
	activityService := service.NewActivityService(stubActivityRepo{})

	handler := NewHandler(lockService, permissionService, activityService, log)

	r := gin.New()
	handler.Register(r, testPrincipal(role))
	return r
}

func TestCheckFieldEndpoint(t *testing.T) {
	rule := model.LockRule{
		ID: 42, ScopeType: model.ScopeTypeHierarchical,
		UserScope: model.ScopeSpecific, UserIDs: `[8]`,
		KPIScope: model.ScopeAll, ObjectiveScope: model.ScopeAll,
		LockAnnualTarget: true, IsActive: true,
	}
	objectives := map[int64]model.Objective{485: {ID: 485, KPI: "KPI_A", Type: "Direct"}}
	router := newTestRouter(t, []model.LockRule{rule}, objectives, "department")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/config/checks/field?field_type=target&objective_id=485", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var body struct {
		Data model.LockDecision `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !body.Data.Locked || body.Data.LockID == nil || *body.Data.LockID != 42 {
		t.Fatalf("want locked by rule 42, got %+v", body.Data)
	}
}

func TestCheckFieldValidation(t *testing.T) {
	router := newTestRouter(t, nil, map[int64]model.Objective{}, "department")

	tests := []struct {
		name string
		url  string
		want int
	}{
		{"bad field type", "/config/checks/field?field_type=annual&objective_id=1", http.StatusBadRequest},
		{"missing objective id", "/config/checks/field?field_type=target", http.StatusBadRequest},
		{"objective not found", "/config/checks/field?field_type=target&objective_id=999", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.url, nil))
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestAdminSurfaceRequiresAdminRole(t *testing.T) {
	router := newTestRouter(t, nil, nil, "department")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/config/locks", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("non-admin must get 403, got %d", w.Code)
	}

	adminRouter := newTestRouter(t, nil, nil, "Admin")
	w = httptest.NewRecorder()
	adminRouter.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/config/locks", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("admin listing must succeed, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateLockEndpointRejectsInvalidRule(t *testing.T) {
	router := newTestRouter(t, nil, nil, "Admin")

	payload := `{"scope_type":"hierarchical","user_scope":"specific","user_ids":[],"kpi_scope":"all","objective_scope":"all","lock_annual_target":true}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/config/locks", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid rule must get 400, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestCreateLockEndpoint(t *testing.T) {
	router := newTestRouter(t, nil, nil, "Admin")

	payload := `{"scope_type":"hierarchical","user_scope":"specific","user_ids":[8],"kpi_scope":"all","objective_scope":"all","lock_annual_target":true}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/config/locks", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("create must return 201, got %d body=%s", w.Code, w.Body.String())
	}

	var body struct {
		Data struct {
			ID      int64   `json:"id"`
			UserIDs []int64 `json:"user_ids"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.Data.ID == 0 || len(body.Data.UserIDs) != 1 || body.Data.UserIDs[0] != 8 {
		t.Fatalf("unexpected created rule: %+v", body.Data)
	}
}
