package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"config-service/internal/model"
	"config-service/internal/repository"
)

type fakePermissionRepo struct {
	perms  []model.Permission
	nextID int64
}

func (f *fakePermissionRepo) List(ctx context.Context) ([]model.Permission, error) {
	return f.perms, nil
}

func (f *fakePermissionRepo) ListByUser(ctx context.Context, userID int64) ([]model.Permission, error) {
	var out []model.Permission
	for _, p := range f.perms {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakePermissionRepo) FindExact(ctx context.Context, userID int64, departmentID *int64, kpi *string) (*model.Permission, error) {
	for i := range f.perms {
		p := &f.perms[i]
		if p.UserID != userID {
			continue
		}
		if !int64PtrEq(p.DepartmentID, departmentID) || !strPtrEq(p.KPI, kpi) {
			continue
		}
		perm := *p
		return &perm, nil
	}
	return nil, repository.ErrRecordNotFound
}

func (f *fakePermissionRepo) Create(ctx context.Context, perm *model.Permission) error {
	f.nextID++
	perm.ID = f.nextID
	f.perms = append(f.perms, *perm)
	return nil
}

func (f *fakePermissionRepo) Update(ctx context.Context, perm *model.Permission) error {
	for i := range f.perms {
		if f.perms[i].ID == perm.ID {
			f.perms[i] = *perm
			return nil
		}
	}
	return repository.ErrRecordNotFound
}

func (f *fakePermissionRepo) Delete(ctx context.Context, id int64) error {
	for i := range f.perms {
		if f.perms[i].ID == id {
			f.perms = append(f.perms[:i], f.perms[i+1:]...)
			return nil
		}
	}
	return repository.ErrRecordNotFound
}

func int64PtrEq(a, b *int64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func strPtrEq(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func int64Ptr(v int64) *int64 { return &v }
func strPtr(v string) *string { return &v }

func newPermissionService(perms *fakePermissionRepo, objectives *fakeObjectiveRepo, locks *LockService) *PermissionService {
	return NewPermissionService(perms, objectives, &fakeActivityRepo{}, locks, zerolog.Nop())
}

func TestResolveGrantMostSpecificWins(t *testing.T) {
	obj := model.Objective{ID: 1, KPI: "KPI_A||KPI_B", DepartmentID: 3, Type: "Direct"}

	userOnly := model.Permission{ID: 1, UserID: 8, CanEditTarget: false}
	userKPI := model.Permission{ID: 2, UserID: 8, KPI: strPtr("KPI_A"), CanEditTarget: false}
	userDept := model.Permission{ID: 3, UserID: 8, DepartmentID: int64Ptr(3), CanEditTarget: false}
	userDeptKPI := model.Permission{ID: 4, UserID: 8, DepartmentID: int64Ptr(3), KPI: strPtr("KPI_B"), CanEditTarget: true}

	tests := []struct {
		name   string
		perms  []model.Permission
		wantID int64
	}{
		{"full key beats all", []model.Permission{userOnly, userKPI, userDept, userDeptKPI}, 4},
		{"department beats kpi", []model.Permission{userOnly, userKPI, userDept}, 3},
		{"kpi beats user only", []model.Permission{userOnly, userKPI}, 2},
		{"user only is the floor", []model.Permission{userOnly}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakePermissionRepo{perms: tt.perms, nextID: 10}
			svc := newPermissionService(repo, &fakeObjectiveRepo{}, nil)

			grant, err := svc.ResolveGrant(context.Background(), 8, obj)
			if err != nil {
				t.Fatalf("ResolveGrant: %v", err)
			}
			if grant == nil || grant.ID != tt.wantID {
				t.Fatalf("want grant %d, got %+v", tt.wantID, grant)
			}
		})
	}
}

func TestResolveGrantNonCoveringExcluded(t *testing.T) {
	obj := model.Objective{ID: 1, KPI: "KPI_A", DepartmentID: 3}
	repo := &fakePermissionRepo{perms: []model.Permission{
		{ID: 1, UserID: 8, DepartmentID: int64Ptr(99)},       // wrong department
		{ID: 2, UserID: 8, KPI: strPtr("KPI_C")},             // wrong kpi
		{ID: 3, UserID: 9, DepartmentID: int64Ptr(3)},        // wrong user
	}, nextID: 10}
	svc := newPermissionService(repo, &fakeObjectiveRepo{}, nil)

	grant, err := svc.ResolveGrant(context.Background(), 8, obj)
	if err != nil {
		t.Fatalf("ResolveGrant: %v", err)
	}
	if grant != nil {
		t.Fatalf("no covering grant, want nil (deny), got %+v", grant)
	}
}

func TestEditabilityComposition(t *testing.T) {
	obj := model.Objective{ID: 10, KPI: "K", DepartmentID: 3, Type: "Direct"}
	objectives := &fakeObjectiveRepo{objectives: map[int64]model.Objective{10: obj}}

	lockAll := model.LockRule{
		ID: 1, ScopeType: model.ScopeTypeHierarchical,
		UserScope: model.ScopeAll, KPIScope: model.ScopeAll, ObjectiveScope: model.ScopeAll,
		LockAnnualTarget: true, IsActive: true,
	}

	tests := []struct {
		name     string
		granted  bool
		locked   bool
		editable bool
	}{
		{"granted and unlocked", true, false, true},
		{"granted but locked", true, true, false},
		{"not granted, unlocked", false, false, false},
		{"not granted and locked", false, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			permRepo := &fakePermissionRepo{nextID: 10}
			if tt.granted {
				permRepo.perms = []model.Permission{{ID: 1, UserID: 8, CanEditTarget: true}}
			}
			lockRepo := &fakeLockRepo{}
			if tt.locked {
				lockRepo.rules = []model.LockRule{lockAll}
			}
			locks := newLockService(lockRepo, objectives, &fakeActivityRepo{}, true)
			svc := newPermissionService(permRepo, objectives, locks)

			result, err := svc.Editability(context.Background(), 8, 10, model.FieldTarget)
			if err != nil {
				t.Fatalf("Editability: %v", err)
			}
			if result.Editable != tt.editable {
				t.Fatalf("want editable=%v, got %+v", tt.editable, result)
			}
			if result.Granted != tt.granted {
				t.Fatalf("want granted=%v, got %+v", tt.granted, result)
			}
			if result.Lock.Locked != tt.locked {
				t.Fatalf("want locked=%v, got %+v", tt.locked, result)
			}
		})
	}
}

func TestEditabilityObjectiveNotFound(t *testing.T) {
	locks := newLockService(&fakeLockRepo{}, &fakeObjectiveRepo{}, &fakeActivityRepo{}, true)
	svc := newPermissionService(&fakePermissionRepo{}, &fakeObjectiveRepo{}, locks)

	_, err := svc.Editability(context.Background(), 8, 999, model.FieldTarget)
	if !errors.Is(err, ErrObjectiveNotFound) {
		t.Fatalf("want ErrObjectiveNotFound, got %v", err)
	}
}

func TestUpsertCreateThenUpdate(t *testing.T) {
	repo := &fakePermissionRepo{}
	svc := newPermissionService(repo, &fakeObjectiveRepo{}, nil)
	principal := model.Principal{UserID: 1, Username: "admin", Role: "Admin"}
	ctx := context.Background()

	perm, created, err := svc.Upsert(ctx, principal, PermissionInput{
		UserID: 8, DepartmentID: int64Ptr(3), CanEditTarget: true,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if !created || perm.ID == 0 {
		t.Fatalf("first upsert must create, got created=%v perm=%+v", created, perm)
	}

	perm2, created, err := svc.Upsert(ctx, principal, PermissionInput{
		UserID: 8, DepartmentID: int64Ptr(3), CanEditTarget: false, CanEditMonthlyTarget: true,
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if created {
		t.Fatal("second upsert with the same key must update, not create")
	}
	if perm2.ID != perm.ID || perm2.CanEditTarget || !perm2.CanEditMonthlyTarget {
		t.Fatalf("update must replace flags on the existing row, got %+v", perm2)
	}
	if len(repo.perms) != 1 {
		t.Fatalf("store must hold one row, got %d", len(repo.perms))
	}
}

func TestUpsertRequiresUserID(t *testing.T) {
	svc := newPermissionService(&fakePermissionRepo{}, &fakeObjectiveRepo{}, nil)
	_, _, err := svc.Upsert(context.Background(), model.Principal{UserID: 1}, PermissionInput{})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("want ErrValidation, got %v", err)
	}
}
