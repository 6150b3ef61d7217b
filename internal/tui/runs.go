package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/collection"
	"github.com/sw33tLie/carbonscope/pkg/runs"
)

type runsLoadedMsg struct{ err error }

type runCreatedMsg struct {
	res *carbon.RunResult
	err error
}

// runActionMsg is the outcome of any single-run action; notice is shown on success.
type runActionMsg struct {
	notice string
	err    error
}

var runsKeys = struct {
	Toggle, Type, Run, PDF, XLSX, URL, Review, Approve, Sign, Verify key.Binding
}{
	Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "check")),
	Type:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "run type")),
	Run:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "calculate")),
	PDF:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "export pdf")),
	XLSX:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "export xlsx")),
	URL:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "report url")),
	Review:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "review")),
	Approve: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "approve")),
	Sign:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sign")),
	Verify:  key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "verify")),
}

type runsPage struct {
	orch *runs.Orchestrator

	onRuns    bool
	actCursor int
	runCursor int
	notice    string
	// exportDir is where reports are saved.
	exportDir string
}

func newRunsPage(api runs.API, log collection.Logger) *runsPage {
	return &runsPage{orch: runs.NewOrchestrator(api, log), exportDir: "."}
}

func (p *runsPage) refresh(run asyncFunc) tea.Cmd {
	orch := p.orch
	return run(func(ctx context.Context) tea.Msg {
		return runsLoadedMsg{err: orch.Refresh(ctx)}
	})
}

func (p *runsPage) capturing() bool { return false }

func (p *runsPage) keys() []key.Binding {
	if p.onRuns {
		return []key.Binding{runsKeys.PDF, runsKeys.XLSX, runsKeys.URL, runsKeys.Review, runsKeys.Approve, runsKeys.Sign, runsKeys.Verify}
	}
	return []key.Binding{runsKeys.Toggle, runsKeys.Type, runsKeys.Run}
}

func (p *runsPage) update(msg tea.Msg, run asyncFunc) tea.Cmd {
	switch msg := msg.(type) {
	case runsLoadedMsg:
		p.actCursor = clamp(p.actCursor, len(p.orch.Activities()))
		p.runCursor = clamp(p.runCursor, len(p.orch.Runs()))
	case runCreatedMsg:
		if msg.err == nil {
			p.notice = fmt.Sprintf("Run #%d: %s tCO2e", msg.res.RunID, msg.res.TotalTCO2e.StringFixed(6))
			p.runCursor = 0
		}
	case runActionMsg:
		if msg.err == nil {
			p.notice = msg.notice
		}
	case tea.KeyMsg:
		return p.updateKey(msg, run)
	}
	return nil
}

func (p *runsPage) updateKey(msg tea.KeyMsg, run asyncFunc) tea.Cmd {
	keys := defaultKeys()
	acts, rs := p.orch.Activities(), p.orch.Runs()

	switch {
	case key.Matches(msg, keys.Focus):
		p.onRuns = !p.onRuns
		return nil
	case key.Matches(msg, keys.Up):
		if p.onRuns {
			p.runCursor = clamp(p.runCursor-1, len(rs))
		} else {
			p.actCursor = clamp(p.actCursor-1, len(acts))
		}
		return nil
	case key.Matches(msg, keys.Down):
		if p.onRuns {
			p.runCursor = clamp(p.runCursor+1, len(rs))
		} else {
			p.actCursor = clamp(p.actCursor+1, len(acts))
		}
		return nil
	}

	if !p.onRuns {
		switch {
		case key.Matches(msg, runsKeys.Toggle):
			if len(acts) > 0 {
				p.orch.Selection.Toggle(acts[p.actCursor].ID)
			}
		case key.Matches(msg, runsKeys.Type):
			if p.orch.RunType == carbon.RunCFO {
				p.orch.RunType = carbon.RunCFP
			} else {
				p.orch.RunType = carbon.RunCFO
			}
		case key.Matches(msg, runsKeys.Run):
			orch, rt, ids := p.orch, p.orch.RunType, p.orch.Selection.IDs()
			p.notice = ""
			return run(func(ctx context.Context) tea.Msg {
				res, err := orch.RunActivities(ctx, rt, ids)
				return runCreatedMsg{res: res, err: err}
			})
		}
		return nil
	}

	if len(rs) == 0 {
		return nil
	}
	id, orch := rs[p.runCursor].ID, p.orch
	switch {
	case key.Matches(msg, runsKeys.PDF):
		return p.export(run, id, carbon.FormatPDF)
	case key.Matches(msg, runsKeys.XLSX):
		return p.export(run, id, carbon.FormatXLSX)
	case key.Matches(msg, runsKeys.URL):
		p.notice = orch.ReportURL(id, carbon.FormatPDF)
	case key.Matches(msg, runsKeys.Review):
		return run(func(ctx context.Context) tea.Msg {
			res, err := orch.Review(ctx, id, "")
			return reviewNotice(res, err)
		})
	case key.Matches(msg, runsKeys.Approve):
		return run(func(ctx context.Context) tea.Msg {
			res, err := orch.Approve(ctx, id, "")
			return reviewNotice(res, err)
		})
	case key.Matches(msg, runsKeys.Sign):
		return run(func(ctx context.Context) tea.Msg {
			sig, err := orch.Sign(ctx, id)
			if err != nil {
				return runActionMsg{err: err}
			}
			return runActionMsg{notice: fmt.Sprintf("Run #%d signed, hash %s", sig.RunID, sig.Hash)}
		})
	case key.Matches(msg, runsKeys.Verify):
		return run(func(ctx context.Context) tea.Msg {
			chk, err := orch.Verify(ctx, id)
			if err != nil {
				return runActionMsg{err: err}
			}
			if !chk.OK {
				return runActionMsg{notice: fmt.Sprintf("Run #%d: signature does NOT verify", id)}
			}
			return runActionMsg{notice: fmt.Sprintf("Run #%d: valid %s signature by %s", id, chk.Algo, chk.SignedBy)}
		})
	}
	return nil
}

func reviewNotice(res *carbon.ReviewResult, err error) tea.Msg {
	if err != nil {
		return runActionMsg{err: err}
	}
	return runActionMsg{notice: fmt.Sprintf("Run #%d is now %s", res.RunID, res.ReviewStatus)}
}

// export saves the report next to the working directory as run-<id>.<format>.
func (p *runsPage) export(run asyncFunc, id int64, format carbon.ReportFormat) tea.Cmd {
	orch, dir := p.orch, p.exportDir
	return run(func(ctx context.Context) tea.Msg {
		f, err := os.CreateTemp(dir, fmt.Sprintf(".run-%d-*.%s", id, format))
		if err != nil {
			return runActionMsg{err: orch.Status.Record(err)}
		}
		defer os.Remove(f.Name())
		defer f.Close()

		n, err := orch.Export(ctx, id, format, f)
		if err != nil {
			return runActionMsg{err: err}
		}
		if err := f.Close(); err != nil {
			return runActionMsg{err: orch.Status.Record(err)}
		}
		name := filepath.Join(dir, fmt.Sprintf("run-%d.%s", id, format))
		if err := os.Rename(f.Name(), name); err != nil {
			return runActionMsg{err: orch.Status.Record(err)}
		}
		return runActionMsg{notice: fmt.Sprintf("Saved %s (%d bytes)", name, n)}
	})
}

func (p *runsPage) view(int) string {
	var left strings.Builder
	left.WriteString(titleStyle.Render("Activities") + "\n")
	acts := p.orch.Activities()
	if len(acts) == 0 {
		left.WriteString(mutedStyle.Render("no activities") + "\n")
	}
	for i, a := range acts {
		box := "[ ]"
		if p.orch.Selection.Checked(a.ID) {
			box = "[x]"
		}
		left.WriteString(fmt.Sprintf("%s%s #%d %s\n", cursor(!p.onRuns && i == p.actCursor), box, a.ID, a.Name))
	}
	left.WriteString(fmt.Sprintf("\nRun type: %s   selected: %d\n", warnStyle.Render(string(p.orch.RunType)), p.orch.Selection.Len()))

	var right strings.Builder
	right.WriteString(titleStyle.Render("Runs") + "\n")
	rs := p.orch.Runs()
	if len(rs) == 0 {
		right.WriteString(mutedStyle.Render("no runs") + "\n")
	}
	for i, r := range rs {
		created := ""
		if !r.CreatedAt.IsZero() {
			created = r.CreatedAt.Format(time.DateTime)
		}
		right.WriteString(fmt.Sprintf("%s#%-4d %-6s %14s %-10s %s\n", cursor(p.onRuns && i == p.runCursor),
			r.ID, r.RunType, r.TotalTCO2e.StringFixed(6), r.ReviewStatus, mutedStyle.Render(created)))
	}

	out := lipgloss.JoinHorizontal(lipgloss.Top,
		pane(!p.onRuns).Render(left.String()),
		pane(p.onRuns).Render(right.String()))
	if s := statusLine(&p.orch.Status, p.notice); s != "" {
		out += "\n" + s
	}
	return out
}
