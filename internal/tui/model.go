// Package tui is the interactive terminal front end: a login screen, then one tab per
// page the signed-in roles can reach.
package tui

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/collection"
	"github.com/sw33tLie/carbonscope/pkg/nav"
	"github.com/sw33tLie/carbonscope/pkg/session"
)

// asyncFunc schedules fn off the update loop. Its result is delivered back to the page
// that asked, unless the session moved on in the meantime.
type asyncFunc func(fn func(ctx context.Context) tea.Msg) tea.Cmd

// page is one tab.
type page interface {
	// refresh reloads everything the page shows. Called whenever the tab is entered.
	refresh(run asyncFunc) tea.Cmd
	update(msg tea.Msg, run asyncFunc) tea.Cmd
	view(width int) string
	keys() []key.Binding
	// capturing is true while a text input has focus; the page then gets every key.
	capturing() bool
}

// ─── messages ────────────────────────────────────────────────────────────────

type identityMsg struct {
	id  *carbon.Identity
	err error
}

type loginMsg struct {
	id  *carbon.Identity
	err error
}

type tokenChangedMsg struct{}

// asyncMsg carries a page result together with the session generation it was started
// under.
type asyncMsg struct {
	gen uint64
	tab nav.Tab
	msg tea.Msg
}

type Options struct {
	Session *session.Session
	// Watch signals changes of the token file made by other processes. May be nil.
	Watch <-chan struct{}
	// Username prefills the login form.
	Username string
	Log      collection.Logger
}

type Model struct {
	ctx   context.Context
	sess  *session.Session
	watch <-chan struct{}
	log   collection.Logger

	nav   *nav.Navigator
	login loginForm
	pages map[nav.Tab]page
	user  string

	keys     keyMap
	help     help.Model
	showHelp bool
	spinner  spinner.Model
	pending  int
	notice   string
	width    int
}

func New(ctx context.Context, opts Options) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorFocus)

	log := opts.Log
	if log == nil {
		log = nopLogger{}
	}
	return &Model{
		ctx:     ctx,
		sess:    opts.Session,
		watch:   opts.Watch,
		log:     log,
		nav:     nav.NewNavigator(),
		login:   newLoginForm(opts.Username),
		keys:    defaultKeys(),
		help:    help.New(),
		spinner: sp,
	}
}

// Run starts the program and blocks until the user quits or ctx is done.
func Run(ctx context.Context, opts Options) error {
	p := tea.NewProgram(New(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.checkIdentity(), m.waitForToken())
}

func (m *Model) checkIdentity() tea.Cmd {
	m.pending++
	sess, ctx := m.sess, m.ctx
	return func() tea.Msg {
		id, err := sess.Check(ctx)
		return identityMsg{id: id, err: err}
	}
}

func (m *Model) waitForToken() tea.Cmd {
	if m.watch == nil {
		return nil
	}
	ch := m.watch
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return tokenChangedMsg{}
	}
}

// runner returns the asyncFunc of tab t, tagging results with the current generation.
func (m *Model) runner(t nav.Tab) asyncFunc {
	return func(fn func(ctx context.Context) tea.Msg) tea.Cmd {
		m.pending++
		gen, ctx := m.sess.Generation(), m.ctx
		return func() tea.Msg {
			return asyncMsg{gen: gen, tab: t, msg: fn(ctx)}
		}
	}
}

func (m *Model) done() {
	if m.pending > 0 {
		m.pending--
	}
}

func (m *Model) activePage() page {
	if m.pages == nil {
		return nil
	}
	return m.pages[m.nav.Active()]
}

func (m *Model) refreshActive() tea.Cmd {
	p := m.activePage()
	if p == nil {
		return nil
	}
	return p.refresh(m.runner(m.nav.Active()))
}

func (m *Model) signedIn(id *carbon.Identity) tea.Cmd {
	m.notice = ""
	m.login.reset()
	if m.pages == nil || m.user != id.Username {
		m.pages = newPages(m.sess.Client(), m.log)
		m.user = id.Username
		m.nav.Reset()
	}
	before := m.nav.Active()
	m.nav.SetRoles(id.Roles)
	if m.nav.Active() != before {
		m.log.Debugf("Tab %s is not reachable by %v, back to %s", before, id.Roles, m.nav.Active())
	}
	return m.refreshActive()
}

func (m *Model) signedOut(reason error) tea.Cmd {
	m.pages = nil
	m.user = ""
	m.nav.Reset()
	m.notice = ""
	if reason != nil && !errors.Is(reason, carbon.ErrNoToken) {
		m.notice = "Signed out: " + reason.Error()
	}
	return m.login.focus()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		var cmds []tea.Cmd
		for t, p := range m.pages {
			cmds = append(cmds, p.update(msg, m.runner(t)))
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case identityMsg:
		m.done()
		if errors.Is(msg.err, session.ErrStale) {
			return m, nil
		}
		if msg.err != nil {
			m.log.Infof("Identity check failed: %v", msg.err)
			return m, m.signedOut(msg.err)
		}
		return m, m.signedIn(msg.id)

	case loginMsg:
		m.done()
		if errors.Is(msg.err, session.ErrStale) {
			return m, nil
		}
		if msg.err != nil {
			m.login.err = msg.err
			return m, nil
		}
		return m, m.signedIn(msg.id)

	case tokenChangedMsg:
		changed, err := m.sess.Reload()
		if err != nil {
			m.log.Warnf("Reading token file: %v", err)
		}
		if !changed {
			return m, m.waitForToken()
		}
		m.log.Debugf("Token file changed, checking identity")
		return m, tea.Batch(m.checkIdentity(), m.waitForToken())

	case asyncMsg:
		m.done()
		if !m.sess.Current(msg.gen) {
			m.log.Debugf("Dropping stale %T for %s", msg.msg, msg.tab)
			return m, nil
		}
		p, ok := m.pages[msg.tab]
		if !ok {
			return m, nil
		}
		return m, p.update(msg.msg, m.runner(msg.tab))

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			return m, tea.Quit
		}
		if m.pages == nil {
			return m, m.updateLogin(msg)
		}
		return m, m.updateKey(msg)
	}

	if m.pages == nil {
		var cmd tea.Cmd
		m.login, cmd = m.login.update(msg)
		return m, cmd
	}
	if p := m.activePage(); p != nil {
		return m, p.update(msg, m.runner(m.nav.Active()))
	}
	return m, nil
}

func (m *Model) updateLogin(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEnter && m.login.ready() {
		user, pass := m.login.credentials()
		m.login.err = nil
		m.pending++
		sess, ctx := m.sess, m.ctx
		return func() tea.Msg {
			id, err := sess.Login(ctx, user, pass)
			return loginMsg{id: id, err: err}
		}
	}
	var cmd tea.Cmd
	m.login, cmd = m.login.update(msg)
	return cmd
}

func (m *Model) updateKey(msg tea.KeyMsg) tea.Cmd {
	p := m.activePage()
	if p.capturing() {
		return p.update(msg, m.runner(m.nav.Active()))
	}

	switch {
	case key.Matches(msg, m.keys.NextTab):
		m.nav.Step(1)
		return m.refreshActive()
	case key.Matches(msg, m.keys.PrevTab):
		m.nav.Step(-1)
		return m.refreshActive()
	case key.Matches(msg, m.keys.Refresh):
		return m.refreshActive()
	case key.Matches(msg, m.keys.Logout):
		if err := m.sess.Logout(); err != nil {
			m.log.Warnf("Removing token: %v", err)
		}
		return m.signedOut(nil)
	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return nil
	}

	if msg.Type == tea.KeyRunes && len(msg.Runes) == 1 && msg.Runes[0] >= '1' && msg.Runes[0] <= '9' {
		visible := m.nav.Visible()
		if i := int(msg.Runes[0] - '1'); i < len(visible) {
			if m.nav.Select(visible[i]) {
				return m.refreshActive()
			}
		}
	}
	return p.update(msg, m.runner(m.nav.Active()))
}

func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("carbonscope"))
	b.WriteString(mutedStyle.Render("  " + m.sess.Client().Org()))
	if m.pending > 0 {
		b.WriteString("  " + m.spinner.View())
	}
	b.WriteString("\n\n")

	if m.pages == nil {
		if m.notice != "" {
			b.WriteString(warnStyle.Render(m.notice) + "\n\n")
		}
		b.WriteString(m.login.view())
		return appStyle.Render(b.String())
	}

	b.WriteString(m.tabBar())
	b.WriteString("\n\n")
	p := m.activePage()
	b.WriteString(p.view(m.width))
	b.WriteString("\n\n")
	if id := m.sess.Identity(); id != nil {
		b.WriteString(mutedStyle.Render(id.Username+" "+strings.Join(id.Roles, ",")) + "\n")
	}
	keys := pageKeys{keyMap: m.keys, page: p.keys()}
	if m.showHelp {
		b.WriteString(m.help.FullHelpView(keys.FullHelp()))
	} else {
		b.WriteString(m.help.ShortHelpView(keys.ShortHelp()))
	}
	return appStyle.Render(b.String())
}

func (m *Model) tabBar() string {
	var tabs []string
	for _, t := range m.nav.Visible() {
		if t == m.nav.Active() {
			tabs = append(tabs, activeTabStyle.Render(t.Title()))
		} else {
			tabs = append(tabs, tabStyle.Render(t.Title()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func newPages(c *carbon.Client, log collection.Logger) map[nav.Tab]page {
	return map[nav.Tab]page{
		nav.Dashboard:  newDashboardPage(c),
		nav.Activities: newActivitiesPage(c, log),
		nav.Runs:       newRunsPage(c, log),
		nav.Credits:    newCreditsPage(c, log),
		nav.Audit:      newAuditPage(c, log),
	}
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...interface{})  {}
func (nopLogger) Warnf(string, ...interface{})  {}
func (nopLogger) Errorf(string, ...interface{}) {}
func (nopLogger) Debugf(string, ...interface{}) {}

// statusLine renders a page's error slot, or its last notice when there is no error.
func statusLine(s *collection.Status, notice string) string {
	if err := s.Err(); err != nil {
		return errorStyle.Render(err.Error())
	}
	if notice != "" {
		return mutedStyle.Render(notice)
	}
	return ""
}
