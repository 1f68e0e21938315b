package model

import (
	"reflect"
	"testing"
)

func TestUserIDSetDecode(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []int64
		wantErr bool
	}{
		{"empty column", "", nil, false},
		{"numbers", `[8, 12]`, []int64{8, 12}, false},
		{"numeric strings", `["8", "12"]`, []int64{8, 12}, false},
		{"mixed", `[8, "12"]`, []int64{8, 12}, false},
		{"empty array", `[]`, []int64{}, false},
		{"not json", `8,12`, nil, true},
		{"object", `{"a":1}`, nil, true},
		{"non-numeric entry", `["eight"]`, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := LockRule{UserIDs: tt.raw}
			got, err := rule.UserIDSet()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestKPIIDSetDecode(t *testing.T) {
	rule := LockRule{KPIIDs: `["KPI_A", "KPI_B"]`}
	got, err := rule.KPIIDSet()
	if err != nil {
		t.Fatalf("KPIIDSet: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"KPI_A", "KPI_B"}) {
		t.Fatalf("got %v", got)
	}

	// Numeric entries stringify rather than fail.
	rule = LockRule{KPIIDs: `[12, "KPI_A"]`}
	got, err = rule.KPIIDSet()
	if err != nil {
		t.Fatalf("KPIIDSet: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"12", "KPI_A"}) {
		t.Fatalf("got %v", got)
	}

	rule = LockRule{KPIIDs: `garbage`}
	if _, err := rule.KPIIDSet(); err == nil {
		t.Fatal("want decode error for non-JSON column")
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rule := LockRule{
		UserIDs:      EncodeInt64Set([]int64{1, 2, 3}),
		KPIIDs:       EncodeStringSet([]string{"A", "B"}),
		ObjectiveIDs: EncodeInt64Set([]int64{485}),
	}

	users, err := rule.UserIDSet()
	if err != nil || !reflect.DeepEqual(users, []int64{1, 2, 3}) {
		t.Fatalf("users = %v, err = %v", users, err)
	}
	kpis, err := rule.KPIIDSet()
	if err != nil || !reflect.DeepEqual(kpis, []string{"A", "B"}) {
		t.Fatalf("kpis = %v, err = %v", kpis, err)
	}
	objectives, err := rule.ObjectiveIDSet()
	if err != nil || !reflect.DeepEqual(objectives, []int64{485}) {
		t.Fatalf("objectives = %v, err = %v", objectives, err)
	}
}

func TestPriorityTier(t *testing.T) {
	tests := []struct {
		name string
		rule LockRule
		want int
	}{
		{"objective specific", LockRule{ObjectiveScope: ScopeSpecific, KPIScope: ScopeSpecific, UserScope: ScopeSpecific}, 1},
		{"kpi specific", LockRule{ObjectiveScope: ScopeAll, KPIScope: ScopeSpecific, UserScope: ScopeSpecific}, 2},
		{"user specific", LockRule{ObjectiveScope: ScopeAll, KPIScope: ScopeAll, UserScope: ScopeSpecific}, 3},
		{"fully general", LockRule{ObjectiveScope: ScopeAll, KPIScope: ScopeAll, UserScope: ScopeAll}, 4},
		{"none counts as general", LockRule{ObjectiveScope: ScopeAll, KPIScope: ScopeAll, UserScope: ScopeNone}, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.PriorityTier(); got != tt.want {
				t.Fatalf("PriorityTier() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestFieldFlag(t *testing.T) {
	rule := LockRule{LockAnnualTarget: true, LockMonthlyActual: true}

	if !rule.FieldFlag(FieldTarget) || !rule.FieldFlag(FieldMonthlyActual) {
		t.Fatal("set flags must report true")
	}
	if rule.FieldFlag(FieldMonthlyTarget) || rule.FieldFlag(FieldAllFields) {
		t.Fatal("unset flags must report false")
	}
}

func TestParseFieldType(t *testing.T) {
	for _, valid := range []string{"target", "monthly_target", "monthly_actual", "all_fields"} {
		if _, ok := ParseFieldType(valid); !ok {
			t.Fatalf("%q must parse", valid)
		}
	}
	for _, invalid := range []string{"", "annual_target", "TARGET"} {
		if _, ok := ParseFieldType(invalid); ok {
			t.Fatalf("%q must not parse", invalid)
		}
	}
}
