package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// loginForm is the only surface shown while unauthenticated. Login errors stay here.
type loginForm struct {
	inputs []textinput.Model
	active int
	err    error
}

const (
	loginUser = iota
	loginPass
)

func newLoginForm(username string) loginForm {
	user := textinput.New()
	user.Prompt = "Username: "
	user.SetValue(username)
	user.Focus()

	pass := textinput.New()
	pass.Prompt = "Password: "
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'

	f := loginForm{inputs: []textinput.Model{user, pass}}
	if username != "" {
		f = f.moveTo(loginPass)
	}
	return f
}

func (f loginForm) moveTo(i int) loginForm {
	f.active = i
	for j := range f.inputs {
		if j == i {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return f
}

// focus puts the cursor back in the form after a sign-out.
func (f *loginForm) focus() tea.Cmd {
	*f = f.moveTo(f.active)
	return textinput.Blink
}

// reset forgets the password once it has been used.
func (f *loginForm) reset() {
	f.err = nil
	f.inputs[loginPass].SetValue("")
	*f = f.moveTo(loginPass)
}

func (f loginForm) ready() bool {
	return strings.TrimSpace(f.inputs[loginUser].Value()) != "" && f.inputs[loginPass].Value() != ""
}

func (f loginForm) credentials() (string, string) {
	return strings.TrimSpace(f.inputs[loginUser].Value()), f.inputs[loginPass].Value()
}

func (f loginForm) update(msg tea.Msg) (loginForm, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "tab", "down", "shift+tab", "up":
			return f.moveTo((f.active + 1) % len(f.inputs)), nil
		case "enter":
			if f.active == loginUser {
				return f.moveTo(loginPass), nil
			}
			return f, nil
		}
	}
	var cmd tea.Cmd
	f.inputs[f.active], cmd = f.inputs[f.active].Update(msg)
	return f, cmd
}

func (f loginForm) view() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sign in") + "\n\n")
	for _, in := range f.inputs {
		b.WriteString(in.View() + "\n")
	}
	b.WriteString("\n")
	if f.err != nil {
		b.WriteString(errorStyle.Render(f.err.Error()) + "\n")
	}
	b.WriteString(mutedStyle.Render("enter: sign in  tab: next field  ctrl+c: quit"))
	return b.String()
}
