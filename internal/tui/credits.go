package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/collection"
	"github.com/sw33tLie/carbonscope/pkg/credit"
)

type creditsLoadedMsg struct{ err error }

type projectSavedMsg struct {
	code string
	err  error
}

type creditCalculatedMsg struct {
	res *carbon.CreditCalculation
	err error
}

var creditsKeys = struct {
	Edit, Save, Calc, Back key.Binding
}{
	Edit: key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit form")),
	Save: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save project")),
	Calc: key.NewBinding(key.WithKeys("ctrl+k"), key.WithHelp("ctrl+k", "calculate")),
	Back: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
}

// projectField is one box of the project form, with how it reads and writes the project.
type projectField struct {
	label  string
	number bool
	get    func(p *carbon.CreditProject) string
	set    func(p *carbon.CreditProject, v string) error
}

func textField(label string, field func(p *carbon.CreditProject) *string) projectField {
	return projectField{
		label: label,
		get:   func(p *carbon.CreditProject) string { return *field(p) },
		set: func(p *carbon.CreditProject, v string) error {
			*field(p) = v
			return nil
		},
	}
}

func quantityField(label string, field func(p *carbon.CreditProject) *carbon.Quantity) projectField {
	return projectField{
		label:  label,
		number: true,
		get:    func(p *carbon.CreditProject) string { return field(p).String() },
		set: func(p *carbon.CreditProject, v string) error {
			q, err := carbon.NewQuantity(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s: not a number", label)
			}
			*field(p) = q
			return nil
		},
	}
}

var projectFields = []projectField{
	textField("Project code", func(p *carbon.CreditProject) *string { return &p.ProjectCode }),
	textField("Name", func(p *carbon.CreditProject) *string { return &p.Name }),
	textField("Methodology", func(p *carbon.CreditProject) *string { return &p.Methodology }),
	quantityField("Baseline tCO2e", func(p *carbon.CreditProject) *carbon.Quantity { return &p.BaselineTCO2e }),
	quantityField("Project tCO2e", func(p *carbon.CreditProject) *carbon.Quantity { return &p.ProjectTCO2e }),
	quantityField("Leakage tCO2e", func(p *carbon.CreditProject) *carbon.Quantity { return &p.LeakageTCO2e }),
	quantityField("Buffer (fraction)", func(p *carbon.CreditProject) *carbon.Quantity { return &p.BufferPct }),
	textField("Vintage", func(p *carbon.CreditProject) *string { return &p.Vintage }),
}

type creditsPage struct {
	wf *credit.Workflow

	editing bool
	cursor  int
	field   int
	inputs  []textinput.Model
	last    *carbon.CreditCalculation
	notice  string
}

func newCreditsPage(api credit.API, log collection.Logger) *creditsPage {
	p := &creditsPage{wf: credit.NewWorkflow(api, log)}
	p.inputs = make([]textinput.Model, len(projectFields))
	for i := range projectFields {
		ti := textinput.New()
		ti.Prompt = ""
		p.inputs[i] = ti
	}
	p.fill()
	return p
}

// fill copies the workflow's project into the boxes.
func (p *creditsPage) fill() {
	for i, f := range projectFields {
		p.inputs[i].SetValue(f.get(&p.wf.Project))
	}
}

// project reads the boxes back into a project. The workflow's own copy is left alone.
func (p *creditsPage) project() (carbon.CreditProject, error) {
	pr := p.wf.Project
	for i, f := range projectFields {
		if err := f.set(&pr, p.inputs[i].Value()); err != nil {
			return pr, err
		}
	}
	return pr, nil
}

func (p *creditsPage) refresh(run asyncFunc) tea.Cmd {
	wf := p.wf
	return run(func(ctx context.Context) tea.Msg {
		return creditsLoadedMsg{err: wf.Refresh(ctx)}
	})
}

func (p *creditsPage) capturing() bool { return p.editing }

func (p *creditsPage) keys() []key.Binding {
	if p.editing {
		return []key.Binding{creditsKeys.Save, creditsKeys.Calc, creditsKeys.Back}
	}
	return []key.Binding{creditsKeys.Edit}
}

func (p *creditsPage) update(msg tea.Msg, run asyncFunc) tea.Cmd {
	switch msg := msg.(type) {
	case creditsLoadedMsg:
		p.cursor = clamp(p.cursor, len(p.wf.Projects()))
		return nil
	case projectSavedMsg:
		if msg.err == nil {
			p.notice = "Saved " + msg.code
		}
		return nil
	case creditCalculatedMsg:
		if msg.err == nil {
			p.last = msg.res
			p.notice = ""
		}
		return nil
	case tea.KeyMsg:
		if p.editing {
			return p.updateForm(msg, run)
		}
		return p.updateList(msg)
	}
	if p.editing {
		var cmd tea.Cmd
		p.inputs[p.field], cmd = p.inputs[p.field].Update(msg)
		return cmd
	}
	return nil
}

func (p *creditsPage) updateList(msg tea.KeyMsg) tea.Cmd {
	keys := defaultKeys()
	projects := p.wf.Projects()
	switch {
	case key.Matches(msg, keys.Up):
		p.cursor = clamp(p.cursor-1, len(projects))
	case key.Matches(msg, keys.Down):
		p.cursor = clamp(p.cursor+1, len(projects))
	case key.Matches(msg, keys.Enter):
		if len(projects) > 0 && p.wf.Edit(projects[p.cursor].ProjectCode) {
			p.fill()
			return p.setEditing(true)
		}
	case key.Matches(msg, creditsKeys.Edit):
		return p.setEditing(true)
	}
	return nil
}

func (p *creditsPage) updateForm(msg tea.KeyMsg, run asyncFunc) tea.Cmd {
	switch {
	case key.Matches(msg, creditsKeys.Back):
		return p.setEditing(false)
	case key.Matches(msg, creditsKeys.Save):
		pr, err := p.project()
		if err != nil {
			p.wf.Status.Record(err)
			return nil
		}
		p.wf.Project = pr
		wf := p.wf
		return run(func(ctx context.Context) tea.Msg {
			return projectSavedMsg{code: pr.ProjectCode, err: wf.SaveProject(ctx, pr)}
		})
	case key.Matches(msg, creditsKeys.Calc):
		code := strings.TrimSpace(p.inputs[0].Value())
		wf := p.wf
		return run(func(ctx context.Context) tea.Msg {
			res, err := wf.CalculateCode(ctx, code)
			return creditCalculatedMsg{res: res, err: err}
		})
	case msg.Type == tea.KeyTab || msg.Type == tea.KeyDown || msg.Type == tea.KeyEnter:
		return p.moveField(1)
	case msg.Type == tea.KeyShiftTab || msg.Type == tea.KeyUp:
		return p.moveField(-1)
	}

	if msg.Type == tea.KeyRunes && projectFields[p.field].number {
		for _, r := range msg.Runes {
			if !strings.ContainsRune("0123456789.-+eE", r) {
				return nil
			}
		}
	}
	var cmd tea.Cmd
	p.inputs[p.field], cmd = p.inputs[p.field].Update(msg)
	return cmd
}

func (p *creditsPage) setEditing(on bool) tea.Cmd {
	p.editing = on
	for i := range p.inputs {
		p.inputs[i].Blur()
	}
	if on {
		return p.inputs[p.field].Focus()
	}
	return nil
}

func (p *creditsPage) moveField(delta int) tea.Cmd {
	p.inputs[p.field].Blur()
	p.field = (p.field + delta + len(p.inputs)) % len(p.inputs)
	return p.inputs[p.field].Focus()
}

func (p *creditsPage) view(int) string {
	var left strings.Builder
	left.WriteString(titleStyle.Render("Projects") + "\n")
	projects := p.wf.Projects()
	if len(projects) == 0 {
		left.WriteString(mutedStyle.Render("no projects") + "\n")
	}
	for i, pr := range projects {
		left.WriteString(fmt.Sprintf("%s%-14s %s %s\n", cursor(!p.editing && i == p.cursor), pr.ProjectCode, pr.Name, mutedStyle.Render(pr.Vintage)))
	}

	var right strings.Builder
	right.WriteString(titleStyle.Render("Project") + "\n")
	for i, f := range projectFields {
		right.WriteString(cursor(p.editing && i == p.field) + labelStyle.Render(f.label) + p.inputs[i].View() + "\n")
	}
	if c := p.last; c != nil {
		right.WriteString("\n" + titleStyle.Render("Credits") + mutedStyle.Render(fmt.Sprintf("  run #%d", c.RunID)) + "\n")
		right.WriteString("  " + labelStyle.Render("Gross tCO2e") + c.GrossTCO2e.StringFixed(6) + "\n")
		right.WriteString("  " + labelStyle.Render("Buffer tCO2e") + c.BufferTCO2e.StringFixed(6) + "\n")
		right.WriteString("  " + labelStyle.Render("Net tCO2e") + c.NetTCO2e.StringFixed(6) + "\n")
	}

	out := lipgloss.JoinHorizontal(lipgloss.Top,
		pane(!p.editing).Render(left.String()),
		pane(p.editing).Render(right.String()))
	if s := statusLine(&p.wf.Status, p.notice); s != "" {
		out += "\n" + s
	}
	return out
}
