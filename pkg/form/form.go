// Package form is the schema-driven activity form: the fields, their types and defaults
// all come from the selected emission factor's schema.
package form

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sw33tLie/carbonscope/pkg/carbon"
)

const fallbackName = "Activity"

var ErrNoSchema = errors.New("no emission factor selected")

type Option func(*Form)

// WithPeriod sets the reporting period a new form starts with.
func WithPeriod(p string) Option {
	return func(f *Form) { f.Period = p }
}

// Form holds the state of one activity being composed. It is not safe for concurrent
// use; the UI owns it.
type Form struct {
	Name   string
	Scope  carbon.Scope
	Period string

	schemas  []carbon.EmissionFactor
	selected string
	widgets  []Widget
	raw      map[string]string
	values   map[string]Value
	invalid  map[string]error
}

func New(schemas []carbon.EmissionFactor, opts ...Option) *Form {
	f := &Form{
		Scope:  carbon.Scope3,
		Period: strconv.Itoa(time.Now().Year()),
	}
	for _, o := range opts {
		o(f)
	}
	f.SetSchemas(schemas)
	f.resetInputs()
	return f
}

// SetSchemas replaces the schema list after a reload. Typed input is kept only for fields
// the reloaded schema still declares, and is coerced again by their current kind. If the
// selected schema disappeared the inputs are dropped and the form has nothing to submit
// against.
func (f *Form) SetSchemas(schemas []carbon.EmissionFactor) {
	f.schemas = schemas
	ef := f.Selected()
	if ef == nil {
		f.widgets = nil
		f.resetInputs()
		return
	}
	prev := map[string]Kind{}
	for _, w := range f.widgets {
		prev[w.Name] = w.Kind
	}
	f.widgets = Widgets(ef.ActivityIDFields.Fields)

	raw, values, invalid := f.raw, f.values, f.invalid
	f.resetInputs()
	for _, w := range f.widgets {
		text, ok := raw[w.Name]
		if !ok {
			continue
		}
		f.raw[w.Name] = text
		if k, ok := prev[w.Name]; ok && k == w.Kind {
			if v, ok := values[w.Name]; ok {
				f.values[w.Name] = v
			}
			if err, ok := invalid[w.Name]; ok {
				f.invalid[w.Name] = err
			}
			continue
		}
		v, err := w.Kind.Coerce(text)
		switch {
		case err != nil:
			f.invalid[w.Name] = err
		case v.Set:
			f.values[w.Name] = v
		}
	}
}

func (f *Form) Schemas() []carbon.EmissionFactor { return f.schemas }

// Selected returns the selected schema, or nil.
func (f *Form) Selected() *carbon.EmissionFactor {
	if f.selected == "" {
		return nil
	}
	for i := range f.schemas {
		if f.schemas[i].Key == f.selected {
			return &f.schemas[i]
		}
	}
	return nil
}

func (f *Form) SelectedKey() string { return f.selected }

// Select switches schema and resets the inputs to exactly that schema's defaults.
// Nothing typed for the previous schema survives, even under a shared field name.
// An empty key deselects.
func (f *Form) Select(key string) error {
	if key == "" {
		f.selected = ""
		f.widgets = nil
		f.resetInputs()
		return nil
	}
	var ef *carbon.EmissionFactor
	for i := range f.schemas {
		if f.schemas[i].Key == key {
			ef = &f.schemas[i]
			break
		}
	}
	if ef == nil {
		return fmt.Errorf("unknown emission factor %q", key)
	}

	f.selected = key
	f.widgets = Widgets(ef.ActivityIDFields.Fields)
	f.resetInputs()
	for _, w := range f.widgets {
		if !w.HasDefault {
			continue
		}
		f.raw[w.Name] = displayValue(w.Default)
		f.values[w.Name] = Value{Set: true, V: w.Default}
	}
	return nil
}

func (f *Form) resetInputs() {
	f.raw = map[string]string{}
	f.values = map[string]Value{}
	f.invalid = map[string]error{}
}

func (f *Form) Widgets() []Widget { return f.widgets }

func (f *Form) widget(name string) (Widget, bool) {
	for _, w := range f.widgets {
		if w.Name == name {
			return w, true
		}
	}
	return Widget{}, false
}

// Set records raw input for a field and coerces it by the field's kind. Input that does
// not coerce is kept as typed, leaves the field unset, and blocks Payload until fixed.
func (f *Form) Set(name, raw string) error {
	w, ok := f.widget(name)
	if !ok {
		return fmt.Errorf("field %q is not part of %s", name, f.selected)
	}
	f.raw[name] = raw
	v, err := w.Kind.Coerce(raw)
	if err != nil {
		delete(f.values, name)
		f.invalid[name] = err
		return fmt.Errorf("%s: %w", w.Label, err)
	}
	delete(f.invalid, name)
	if v.Set {
		f.values[name] = v
	} else {
		delete(f.values, name)
	}
	return nil
}

// Raw is the text shown in the field's input box.
func (f *Form) Raw(name string) string { return f.raw[name] }

// FieldError is the coercion error for name, if its current input is invalid.
func (f *Form) FieldError(name string) error { return f.invalid[name] }

// Inputs returns only the fields that hold a value. It is never nil.
func (f *Form) Inputs() map[string]interface{} {
	out := make(map[string]interface{}, len(f.values))
	for k, v := range f.values {
		if v.Set {
			out[k] = v.V
		}
	}
	return out
}

// Formula is the selected schema's display-only formula, or nil.
func (f *Form) Formula() *carbon.Formula {
	if ef := f.Selected(); ef != nil {
		return ef.ActivityIDFields.Formula
	}
	return nil
}

func (f *Form) CanSubmit() bool { return f.Selected() != nil }

// Payload builds the create-activity request. The name falls back to the schema's
// display name and then to "Activity".
func (f *Form) Payload() (carbon.ActivityInput, error) {
	ef := f.Selected()
	if ef == nil {
		return carbon.ActivityInput{}, ErrNoSchema
	}
	if len(f.invalid) > 0 {
		names := make([]string, 0, len(f.invalid))
		for n := range f.invalid {
			names = append(names, n)
		}
		sort.Strings(names)
		return carbon.ActivityInput{}, fmt.Errorf("invalid input for %s", strings.Join(names, ", "))
	}

	name := f.Name
	if name == "" {
		name = ef.Name
	}
	if name == "" {
		name = fallbackName
	}
	return carbon.ActivityInput{
		Name:   name,
		EFKey:  ef.Key,
		Inputs: f.Inputs(),
		Scope:  f.Scope,
		Period: f.Period,
	}, nil
}

// Clear empties the name and every input after a confirmed submit. The schema, scope and
// period stay as they are.
func (f *Form) Clear() {
	f.Name = ""
	f.resetInputs()
}
