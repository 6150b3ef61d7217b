package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sw33tLie/carbonscope/pkg/activity"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
	"github.com/sw33tLie/carbonscope/pkg/collection"
	"github.com/sw33tLie/carbonscope/pkg/form"
)

type activitiesLoadedMsg struct{ err error }

type activityCreatedMsg struct {
	id  int64
	err error
}

type activityDeletedMsg struct {
	id  int64
	err error
}

type activitiesImportedMsg struct {
	res *carbon.ImportResult
	err error
}

type activitiesFocus int

const (
	focusSchemas activitiesFocus = iota
	focusActivities
	focusForm
	focusImport
)

// fieldInput is one text box of the activity form. Widget fields carry the name of the
// schema field they edit; the name and period boxes edit the form itself.
type fieldInput struct {
	field string
	label string
	kind  form.Kind
	input textinput.Model
}

const (
	fieldName   = "\x00name"
	fieldPeriod = "\x00period"
)

var activitiesKeys = struct {
	Edit, Delete, Import, Scope, Submit, Back key.Binding
}{
	Edit:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit form")),
	Delete: key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Import: key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import file")),
	Scope:  key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "scope")),
	Submit: key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save activity")),
	Back:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
}

type activitiesPage struct {
	mgr *activity.Manager

	focus     activitiesFocus
	efCursor  int
	actCursor int
	inputs    []fieldInput
	field     int
	path      textinput.Model
	notice    string
}

func newActivitiesPage(api activity.API, log collection.Logger) *activitiesPage {
	path := textinput.New()
	path.Prompt = "File: "
	path.Placeholder = "activities.csv"
	p := &activitiesPage{mgr: activity.NewManager(api, log), path: path}
	p.rebuildInputs()
	return p
}

func (p *activitiesPage) refresh(run asyncFunc) tea.Cmd {
	mgr := p.mgr
	return run(func(ctx context.Context) tea.Msg {
		return activitiesLoadedMsg{err: mgr.Load(ctx)}
	})
}

func (p *activitiesPage) capturing() bool {
	return p.focus == focusForm || p.focus == focusImport
}

func (p *activitiesPage) keys() []key.Binding {
	switch p.focus {
	case focusForm:
		return []key.Binding{activitiesKeys.Submit, activitiesKeys.Scope, activitiesKeys.Back}
	case focusImport:
		return []key.Binding{activitiesKeys.Back}
	case focusActivities:
		return []key.Binding{activitiesKeys.Delete, activitiesKeys.Import, activitiesKeys.Edit}
	}
	return []key.Binding{activitiesKeys.Edit, activitiesKeys.Import, activitiesKeys.Scope}
}

func (p *activitiesPage) update(msg tea.Msg, run asyncFunc) tea.Cmd {
	f := p.mgr.Form
	switch msg := msg.(type) {
	case activitiesLoadedMsg:
		before := f.SelectedKey()
		f.SetSchemas(p.mgr.Schemas())
		p.efCursor = clamp(p.efCursor, len(f.Schemas()))
		p.actCursor = clamp(p.actCursor, len(p.mgr.Activities()))
		if f.Selected() == nil && before != "" {
			p.notice = fmt.Sprintf("Emission factor %s is gone", before)
		}
		p.rebuildInputs()
		return nil

	case activityCreatedMsg:
		if msg.err != nil {
			return nil
		}
		f.Clear()
		p.syncInputs()
		p.notice = fmt.Sprintf("Created activity #%d", msg.id)
		return nil

	case activityDeletedMsg:
		if msg.err == nil {
			p.notice = fmt.Sprintf("Deleted activity #%d", msg.id)
			p.actCursor = clamp(p.actCursor, len(p.mgr.Activities()))
		}
		return nil

	case activitiesImportedMsg:
		if msg.err == nil && msg.res != nil {
			p.notice = fmt.Sprintf("Imported %d activities", msg.res.Imported)
			p.path.SetValue("")
			p.setFocus(focusActivities)
		}
		return nil

	case tea.KeyMsg:
		switch p.focus {
		case focusForm:
			return p.updateForm(msg, run)
		case focusImport:
			return p.updateImport(msg, run)
		}
		return p.updateLists(msg, run)
	}

	switch p.focus {
	case focusForm:
		var cmd tea.Cmd
		p.inputs[p.field].input, cmd = p.inputs[p.field].input.Update(msg)
		return cmd
	case focusImport:
		var cmd tea.Cmd
		p.path, cmd = p.path.Update(msg)
		return cmd
	}
	return nil
}

func (p *activitiesPage) updateLists(msg tea.KeyMsg, run asyncFunc) tea.Cmd {
	f := p.mgr.Form
	schemas := f.Schemas()
	acts := p.mgr.Activities()

	switch {
	case key.Matches(msg, defaultKeys().Focus):
		if p.focus == focusSchemas {
			p.setFocus(focusActivities)
		} else {
			p.setFocus(focusSchemas)
		}
	case key.Matches(msg, defaultKeys().Up):
		if p.focus == focusSchemas {
			p.efCursor = clamp(p.efCursor-1, len(schemas))
		} else {
			p.actCursor = clamp(p.actCursor-1, len(acts))
		}
	case key.Matches(msg, defaultKeys().Down):
		if p.focus == focusSchemas {
			p.efCursor = clamp(p.efCursor+1, len(schemas))
		} else {
			p.actCursor = clamp(p.actCursor+1, len(acts))
		}
	case key.Matches(msg, defaultKeys().Enter) && p.focus == focusSchemas:
		if len(schemas) == 0 {
			return nil
		}
		if err := f.Select(schemas[p.efCursor].Key); err != nil {
			p.mgr.Status.Record(err)
			return nil
		}
		p.rebuildInputs()
		return p.setFocus(focusForm)
	case key.Matches(msg, activitiesKeys.Edit):
		if f.CanSubmit() {
			return p.setFocus(focusForm)
		}
		p.mgr.Status.Record(form.ErrNoSchema)
	case key.Matches(msg, activitiesKeys.Scope):
		p.cycleScope()
	case key.Matches(msg, activitiesKeys.Import):
		return p.setFocus(focusImport)
	case key.Matches(msg, activitiesKeys.Delete) && p.focus == focusActivities:
		if len(acts) == 0 {
			return nil
		}
		id, mgr := acts[p.actCursor].ID, p.mgr
		return run(func(ctx context.Context) tea.Msg {
			return activityDeletedMsg{id: id, err: mgr.Delete(ctx, id)}
		})
	}
	return nil
}

func (p *activitiesPage) updateForm(msg tea.KeyMsg, run asyncFunc) tea.Cmd {
	switch {
	case key.Matches(msg, activitiesKeys.Back):
		p.setFocus(focusSchemas)
		return nil
	case key.Matches(msg, activitiesKeys.Scope):
		p.cycleScope()
		return nil
	case key.Matches(msg, activitiesKeys.Submit):
		return p.submit(run)
	case msg.Type == tea.KeyEnter:
		if p.field == len(p.inputs)-1 {
			return p.submit(run)
		}
		return p.moveField(1)
	case msg.Type == tea.KeyTab || msg.Type == tea.KeyDown:
		return p.moveField(1)
	case msg.Type == tea.KeyShiftTab || msg.Type == tea.KeyUp:
		return p.moveField(-1)
	}

	in := &p.inputs[p.field]
	if msg.Type == tea.KeyRunes && in.kind != nil {
		for _, r := range msg.Runes {
			if !in.kind.Accept(r) {
				return nil
			}
		}
	}
	var cmd tea.Cmd
	in.input, cmd = in.input.Update(msg)
	p.store(in)
	return cmd
}

// store copies a text box into the form.
func (p *activitiesPage) store(in *fieldInput) {
	f := p.mgr.Form
	switch in.field {
	case fieldName:
		f.Name = in.input.Value()
	case fieldPeriod:
		f.Period = in.input.Value()
	default:
		// The error stays visible next to the field until the input coerces.
		_ = f.Set(in.field, in.input.Value())
	}
}

func (p *activitiesPage) submit(run asyncFunc) tea.Cmd {
	payload, err := p.mgr.Form.Payload()
	if err != nil {
		p.mgr.Status.Record(err)
		return nil
	}
	p.notice = ""
	mgr := p.mgr
	return run(func(ctx context.Context) tea.Msg {
		id, err := mgr.Submit(ctx, payload)
		return activityCreatedMsg{id: id, err: err}
	})
}

func (p *activitiesPage) updateImport(msg tea.KeyMsg, run asyncFunc) tea.Cmd {
	switch {
	case key.Matches(msg, activitiesKeys.Back):
		p.setFocus(focusActivities)
		return nil
	case msg.Type == tea.KeyEnter:
		path := strings.TrimSpace(p.path.Value())
		if path == "" {
			return nil
		}
		mgr := p.mgr
		return run(func(ctx context.Context) tea.Msg {
			res, err := mgr.Import(ctx, path)
			return activitiesImportedMsg{res: res, err: err}
		})
	}
	var cmd tea.Cmd
	p.path, cmd = p.path.Update(msg)
	return cmd
}

func (p *activitiesPage) cycleScope() {
	f := p.mgr.Form
	for i, s := range carbon.Scopes {
		if s == f.Scope {
			f.Scope = carbon.Scopes[(i+1)%len(carbon.Scopes)]
			return
		}
	}
	f.Scope = carbon.Scope3
}

func (p *activitiesPage) setFocus(fc activitiesFocus) tea.Cmd {
	p.focus = fc
	p.path.Blur()
	for i := range p.inputs {
		p.inputs[i].input.Blur()
	}
	switch fc {
	case focusForm:
		return p.inputs[p.field].input.Focus()
	case focusImport:
		return p.path.Focus()
	}
	return nil
}

func (p *activitiesPage) moveField(delta int) tea.Cmd {
	p.inputs[p.field].input.Blur()
	p.field = (p.field + delta + len(p.inputs)) % len(p.inputs)
	return p.inputs[p.field].input.Focus()
}

// rebuildInputs lays out one box per field of the selected schema, between the name and
// period boxes, filled from the form.
func (p *activitiesPage) rebuildInputs() {
	f := p.mgr.Form
	placeholder := "Activity"
	if ef := f.Selected(); ef != nil && ef.Name != "" {
		placeholder = ef.Name
	}
	inputs := []fieldInput{newFieldInput(fieldName, "Name", nil, f.Name, placeholder)}
	for _, w := range f.Widgets() {
		label := w.Label
		if w.Unit != "" {
			label += " (" + w.Unit + ")"
		}
		inputs = append(inputs, newFieldInput(w.Name, label, w.Kind, f.Raw(w.Name), w.Help))
	}
	inputs = append(inputs, newFieldInput(fieldPeriod, "Period", nil, f.Period, ""))

	p.inputs = inputs
	p.field = clamp(p.field, len(inputs))
	if p.focus == focusForm {
		p.inputs[p.field].input.Focus()
	}
}

// syncInputs refreshes the boxes after the form changed underneath them.
func (p *activitiesPage) syncInputs() {
	f := p.mgr.Form
	for i := range p.inputs {
		in := &p.inputs[i]
		switch in.field {
		case fieldName:
			in.input.SetValue(f.Name)
		case fieldPeriod:
			in.input.SetValue(f.Period)
		default:
			in.input.SetValue(f.Raw(in.field))
		}
	}
}

func newFieldInput(field, label string, kind form.Kind, value, placeholder string) fieldInput {
	ti := textinput.New()
	ti.Prompt = ""
	ti.SetValue(value)
	ti.Placeholder = placeholder
	return fieldInput{field: field, label: label, kind: kind, input: ti}
}

func (p *activitiesPage) view(width int) string {
	f := p.mgr.Form

	var left strings.Builder
	left.WriteString(titleStyle.Render("Emission factors") + "\n")
	schemas := f.Schemas()
	if len(schemas) == 0 {
		left.WriteString(mutedStyle.Render("none loaded") + "\n")
	}
	for i, ef := range schemas {
		mark := " "
		if ef.Key == f.SelectedKey() {
			mark = "•"
		}
		left.WriteString(fmt.Sprintf("%s%s %s %s\n", cursor(p.focus == focusSchemas && i == p.efCursor), mark, ef.Key, mutedStyle.Render(ef.Name)))
	}

	var right strings.Builder
	right.WriteString(titleStyle.Render("New activity") + "\n")
	if ef := f.Selected(); ef != nil {
		right.WriteString(mutedStyle.Render(ef.Key+" "+ef.Name) + "\n")
	} else {
		right.WriteString(mutedStyle.Render("select an emission factor") + "\n")
	}
	for i, in := range p.inputs {
		line := cursor(p.focus == focusForm && i == p.field) + labelStyle.Render(in.label) + in.input.View()
		if in.field != fieldName && in.field != fieldPeriod {
			if err := f.FieldError(in.field); err != nil {
				line += " " + errorStyle.Render(err.Error())
			}
		}
		right.WriteString(line + "\n")
	}
	right.WriteString("  " + labelStyle.Render("Scope") + string(f.Scope) + "\n")
	if fm := f.Formula(); fm != nil {
		right.WriteString(mutedStyle.Render(fmt.Sprintf("  %s = %s [%s]", fm.Output, fm.Expression, fm.Unit)) + "\n")
	}

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		pane(p.focus == focusSchemas).Render(left.String()),
		pane(p.focus == focusForm).Render(right.String()))

	var list strings.Builder
	list.WriteString(titleStyle.Render("Activities") + "\n")
	acts := p.mgr.Activities()
	if len(acts) == 0 {
		list.WriteString(mutedStyle.Render("no activities") + "\n")
	}
	for i, a := range acts {
		list.WriteString(fmt.Sprintf("%s#%-4d %-24s %-18s %-7s %s %s\n", cursor(p.focus == focusActivities && i == p.actCursor),
			a.ID, a.Name, a.EFKey, a.Scope, a.Period, mutedStyle.Render(formatInputs(a.Inputs))))
	}
	if p.focus == focusImport {
		list.WriteString("\n" + p.path.View() + "\n")
	}

	out := top + "\n" + pane(p.focus == focusActivities || p.focus == focusImport).Render(list.String())
	if s := statusLine(&p.mgr.Status, p.notice); s != "" {
		out += "\n" + s
	}
	return out
}

func formatInputs(in map[string]interface{}) string {
	if len(in) == 0 {
		return "{}"
	}
	parts := make([]string, 0, len(in))
	for k, v := range in {
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

func clamp(i, n int) int {
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
