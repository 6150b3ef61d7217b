// Package nav decides which tabs a set of role claims can reach.
package nav

import "fmt"

const (
	RoleAdmin            = "ADMIN"
	RoleCalculator       = "CALCULATOR"
	RoleExpert           = "EXPERT"
	RoleAuditor          = "AUDITOR"
	RoleVerifier         = "VERIFIER"
	RoleProjectDeveloper = "PROJECT_DEVELOPER"
)

// HasRole is false for nil roles, true for anyone holding ADMIN, and otherwise true when
// roles and needed share at least one entry.
func HasRole(roles []string, needed ...string) bool {
	if roles == nil {
		return false
	}
	for _, r := range roles {
		if r == RoleAdmin {
			return true
		}
	}
	for _, r := range roles {
		for _, n := range needed {
			if r == n {
				return true
			}
		}
	}
	return false
}

type Tab int

const (
	Dashboard Tab = iota
	Activities
	Runs
	Credits
	Audit
)

// Tabs in display order.
var Tabs = []Tab{Dashboard, Activities, Runs, Credits, Audit}

func (t Tab) String() string {
	switch t {
	case Dashboard:
		return "dashboard"
	case Activities:
		return "activities"
	case Runs:
		return "runs"
	case Credits:
		return "credits"
	case Audit:
		return "audit"
	}
	return fmt.Sprintf("tab(%d)", int(t))
}

func (t Tab) Title() string {
	switch t {
	case Dashboard:
		return "Dashboard"
	case Activities:
		return "Activities"
	case Runs:
		return "Runs & Reports"
	case Credits:
		return "Carbon Credits"
	case Audit:
		return "Audit"
	}
	return t.String()
}

// Roles lists who may open the tab. A nil list means any authenticated user.
func (t Tab) Roles() []string {
	switch t {
	case Activities:
		return []string{RoleCalculator, RoleExpert, RoleAdmin}
	case Runs:
		return []string{RoleCalculator, RoleExpert, RoleAuditor, RoleVerifier, RoleAdmin}
	case Credits:
		return []string{RoleProjectDeveloper, RoleExpert, RoleAdmin}
	case Audit:
		return []string{RoleAuditor, RoleVerifier, RoleAdmin}
	}
	return nil
}

// Allowed reports whether an authenticated user holding roles may open t.
func (t Tab) Allowed(roles []string) bool {
	need := t.Roles()
	if need == nil {
		return true
	}
	return HasRole(roles, need...)
}

func ParseTab(s string) (Tab, error) {
	for _, t := range Tabs {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown tab %q", s)
}

// VisibleTabs returns the tabs roles can reach, in display order. Dashboard is always
// present.
func VisibleTabs(roles []string) []Tab {
	var out []Tab
	for _, t := range Tabs {
		if t.Allowed(roles) {
			out = append(out, t)
		}
	}
	return out
}

// RoleError is returned when the current roles cannot reach a tab.
type RoleError struct {
	Tab   Tab
	Roles []string
}

func (e *RoleError) Error() string {
	return fmt.Sprintf("your roles %v cannot access %s (needs one of %v)", e.Roles, e.Tab, e.Tab.Roles())
}

// Require returns a *RoleError unless roles can reach t.
func Require(roles []string, t Tab) error {
	if t.Allowed(roles) {
		return nil
	}
	return &RoleError{Tab: t, Roles: roles}
}

// Navigator tracks the active tab for one session. A tab that becomes unreachable after
// the roles change falls back to Dashboard.
type Navigator struct {
	active Tab
	roles  []string
}

func NewNavigator() *Navigator {
	return &Navigator{active: Dashboard}
}

func (n *Navigator) Active() Tab { return n.active }

func (n *Navigator) Visible() []Tab { return VisibleTabs(n.roles) }

// SetRoles is called on every identity change, including logout (nil roles).
func (n *Navigator) SetRoles(roles []string) {
	n.roles = roles
	if !n.active.Allowed(roles) {
		n.active = Dashboard
	}
}

// Reset returns to the Dashboard with no roles.
func (n *Navigator) Reset() {
	n.roles = nil
	n.active = Dashboard
}

// Select switches to t if it is reachable and reports whether it did.
func (n *Navigator) Select(t Tab) bool {
	if !t.Allowed(n.roles) {
		return false
	}
	n.active = t
	return true
}

// Step moves delta positions through the visible tabs, wrapping around.
func (n *Navigator) Step(delta int) Tab {
	vis := n.Visible()
	if len(vis) == 0 {
		return n.active
	}
	idx := 0
	for i, t := range vis {
		if t == n.active {
			idx = i
			break
		}
	}
	idx = ((idx+delta)%len(vis) + len(vis)) % len(vis)
	n.active = vis[idx]
	return n.active
}
