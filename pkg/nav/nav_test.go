package nav

import (
	"errors"
	"reflect"
	"testing"
)

func TestHasRole(t *testing.T) {
	tests := []struct {
		name   string
		roles  []string
		needed []string
		want   bool
	}{
		{"nil roles", nil, []string{RoleCalculator}, false},
		{"nil roles nothing needed", nil, nil, false},
		{"empty roles", []string{}, []string{RoleCalculator}, false},
		{"admin overrides", []string{RoleAdmin}, []string{RoleAuditor}, true},
		{"admin with nothing needed", []string{RoleAdmin}, nil, true},
		{"intersection", []string{"GUEST", RoleAuditor}, []string{RoleAuditor, RoleVerifier}, true},
		{"no intersection", []string{RoleCalculator}, []string{RoleAuditor, RoleVerifier}, false},
		{"nothing needed", []string{RoleCalculator}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasRole(tt.roles, tt.needed...); got != tt.want {
				t.Errorf("HasRole(%v, %v) = %v, want %v", tt.roles, tt.needed, got, tt.want)
			}
		})
	}
}

func TestVisibleTabs(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  []Tab
	}{
		{"no roles", nil, []Tab{Dashboard}},
		{"admin", []string{RoleAdmin}, Tabs},
		{"calculator", []string{RoleCalculator}, []Tab{Dashboard, Activities, Runs}},
		{"auditor", []string{RoleAuditor}, []Tab{Dashboard, Runs, Audit}},
		{"verifier", []string{RoleVerifier}, []Tab{Dashboard, Runs, Audit}},
		{"project developer", []string{RoleProjectDeveloper}, []Tab{Dashboard, Credits}},
		{"expert", []string{RoleExpert}, []Tab{Dashboard, Activities, Runs, Credits}},
		{"viewer", []string{"GUEST"}, []Tab{Dashboard}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisibleTabs(tt.roles); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("VisibleTabs(%v) = %v, want %v", tt.roles, got, tt.want)
			}
		})
	}
}

func TestNavigatorFallsBackOnRoleLoss(t *testing.T) {
	n := NewNavigator()
	if n.Active() != Dashboard {
		t.Fatalf("default tab = %v, want dashboard", n.Active())
	}
	if n.Select(Audit) {
		t.Fatal("audit selectable without roles")
	}

	n.SetRoles([]string{RoleAuditor})
	if !n.Select(Audit) {
		t.Fatal("auditor could not open audit")
	}

	n.SetRoles([]string{RoleCalculator})
	if n.Active() != Dashboard {
		t.Errorf("active = %v after losing audit, want dashboard", n.Active())
	}

	n.SetRoles(nil)
	if got := n.Visible(); !reflect.DeepEqual(got, []Tab{Dashboard}) {
		t.Errorf("visible after logout = %v", got)
	}
}

func TestNavigatorStepWraps(t *testing.T) {
	n := NewNavigator()
	n.SetRoles([]string{RoleCalculator})

	if got := n.Step(1); got != Activities {
		t.Errorf("Step(1) = %v, want activities", got)
	}
	if got := n.Step(2); got != Dashboard {
		t.Errorf("Step(2) = %v, want dashboard", got)
	}
	if got := n.Step(-1); got != Runs {
		t.Errorf("Step(-1) = %v, want runs", got)
	}
}

func TestRequire(t *testing.T) {
	if err := Require([]string{RoleProjectDeveloper}, Credits); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	err := Require([]string{RoleCalculator}, Credits)
	var re *RoleError
	if !errors.As(err, &re) || re.Tab != Credits {
		t.Errorf("Require = %v, want RoleError for credits", err)
	}
}
