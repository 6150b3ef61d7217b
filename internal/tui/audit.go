package tui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sw33tLie/carbonscope/pkg/audit"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/collection"
)

type auditRunsLoadedMsg struct{ err error }

type auditDoneMsg struct {
	report *carbon.AuditReport
	err    error
}

type auditQueuedMsg struct {
	runID int64
	job   *carbon.AuditJob
	err   error
}

var auditKeys = struct {
	Audit, Enqueue key.Binding
}{
	Audit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "audit run")),
	Enqueue: key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "queue audit")),
}

type auditPage struct {
	wf     *audit.Workflow
	report *carbon.AuditReport
	raw    viewport.Model
	notice string
}

func newAuditPage(api audit.API, log collection.Logger) *auditPage {
	return &auditPage{wf: audit.NewWorkflow(api, log), raw: viewport.New(80, 16)}
}

func (p *auditPage) refresh(run asyncFunc) tea.Cmd {
	wf := p.wf
	return run(func(ctx context.Context) tea.Msg {
		return auditRunsLoadedMsg{err: wf.Load(ctx)}
	})
}

func (p *auditPage) capturing() bool { return false }

func (p *auditPage) keys() []key.Binding {
	return []key.Binding{auditKeys.Audit, auditKeys.Enqueue}
}

func (p *auditPage) update(msg tea.Msg, run asyncFunc) tea.Cmd {
	switch msg := msg.(type) {
	case auditRunsLoadedMsg:
		p.wf.SelectDefault()
		return nil
	case auditDoneMsg:
		if msg.err == nil {
			p.report = msg.report
			p.notice = ""
			p.raw.SetContent(prettyJSON(msg.report.Raw))
			p.raw.GotoTop()
		}
		return nil
	case auditQueuedMsg:
		if msg.err == nil {
			p.notice = fmt.Sprintf("Audit of run #%d queued as job %s", msg.runID, msg.job.JobID)
		}
		return nil
	case tea.WindowSizeMsg:
		p.raw.Width = msg.Width - 8
	case tea.KeyMsg:
		if cmd, ok := p.updateKey(msg, run); ok {
			return cmd
		}
	}
	var cmd tea.Cmd
	p.raw, cmd = p.raw.Update(msg)
	return cmd
}

func (p *auditPage) updateKey(msg tea.KeyMsg, run asyncFunc) (tea.Cmd, bool) {
	keys := defaultKeys()
	rs := p.wf.Runs()
	switch {
	case key.Matches(msg, keys.Up):
		p.step(rs, -1)
	case key.Matches(msg, keys.Down):
		p.step(rs, 1)
	case key.Matches(msg, auditKeys.Audit):
		wf, id := p.wf, p.wf.Selected()
		return run(func(ctx context.Context) tea.Msg {
			rep, err := wf.AuditRun(ctx, id)
			return auditDoneMsg{report: rep, err: err}
		}), true
	case key.Matches(msg, auditKeys.Enqueue):
		wf, id := p.wf, p.wf.Selected()
		return run(func(ctx context.Context) tea.Msg {
			job, err := wf.EnqueueRun(ctx, id)
			return auditQueuedMsg{runID: id, job: job, err: err}
		}), true
	default:
		return nil, false
	}
	return nil, true
}

// step moves the selection through the run list.
func (p *auditPage) step(rs []carbon.CalculationRun, delta int) {
	i := 0
	for j, r := range rs {
		if r.ID == p.wf.Selected() {
			i = j
		}
	}
	if i = clamp(i+delta, len(rs)); len(rs) > 0 {
		p.wf.Select(rs[i].ID)
	}
}

func prettyJSON(raw json.RawMessage) string {
	var b bytes.Buffer
	if err := json.Indent(&b, raw, "", "  "); err != nil {
		return string(raw)
	}
	return b.String()
}

func (p *auditPage) view(int) string {
	var left strings.Builder
	left.WriteString(titleStyle.Render("Runs") + "\n")
	rs := p.wf.Runs()
	if len(rs) == 0 {
		left.WriteString(mutedStyle.Render("no runs") + "\n")
	}
	for _, r := range rs {
		left.WriteString(fmt.Sprintf("%s#%-4d %-6s %s\n", cursor(r.ID == p.wf.Selected()), r.ID, r.RunType, mutedStyle.Render(r.ReviewStatus)))
	}

	var right strings.Builder
	right.WriteString(titleStyle.Render("Audit report") + "\n")
	if rep := p.report; rep != nil {
		right.WriteString(fmt.Sprintf("Run #%d  score %s\n", rep.RunID, warnStyle.Render(fmt.Sprintf("%g", rep.Score))))
		right.WriteString(fmt.Sprintf("critical %d  major %d  minor %d  info %d\n\n",
			rep.Summary.Critical, rep.Summary.Major, rep.Summary.Minor, rep.Summary.Info))
		right.WriteString(p.raw.View())
	} else {
		right.WriteString(mutedStyle.Render("select a run and press enter") + "\n")
	}

	out := lipgloss.JoinHorizontal(lipgloss.Top, pane(true).Render(left.String()), pane(false).Render(right.String()))
	if s := statusLine(&p.wf.Status, p.notice); s != "" {
		out += "\n" + s
	}
	return out
}
