package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/collection"
)

type dashboardAPI interface {
	Dashboard(ctx context.Context) (*carbon.Dashboard, error)
}

type dashboardLoadedMsg struct {
	data *carbon.Dashboard
	err  error
}

type dashboardPage struct {
	api    dashboardAPI
	data   *carbon.Dashboard
	status collection.Status
}

func newDashboardPage(api dashboardAPI) *dashboardPage {
	return &dashboardPage{api: api}
}

func (p *dashboardPage) refresh(run asyncFunc) tea.Cmd {
	return run(func(ctx context.Context) tea.Msg {
		d, err := p.api.Dashboard(ctx)
		return dashboardLoadedMsg{data: d, err: err}
	})
}

func (p *dashboardPage) update(msg tea.Msg, run asyncFunc) tea.Cmd {
	if msg, ok := msg.(dashboardLoadedMsg); ok {
		if p.status.Record(msg.err) == nil {
			p.data = msg.data
		}
	}
	return nil
}

func (p *dashboardPage) view(int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Dashboard") + "\n\n")
	switch {
	case p.data == nil:
		b.WriteString(mutedStyle.Render("Loading…") + "\n")
	case len(p.data.Counts) == 0:
		b.WriteString(mutedStyle.Render("Nothing to show yet.") + "\n")
	default:
		for _, c := range p.data.Counts {
			b.WriteString(labelStyle.Render(c.Label) + c.Value.String() + "\n")
		}
	}
	if s := statusLine(&p.status, ""); s != "" {
		b.WriteString("\n" + s)
	}
	return b.String()
}

func (p *dashboardPage) keys() []key.Binding { return nil }
func (p *dashboardPage) capturing() bool     { return false }
