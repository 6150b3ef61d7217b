package form

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sw33tLie/carbonscope/pkg/carbon"
)

// ErrNotANumber is returned when text typed into a number field does not parse.
var ErrNotANumber = errors.New("not a number")

// Kind is the input type of a field. The set of kinds is closed: KindText and KindNumber.
type Kind interface {
	// Accept filters single keystrokes before they reach the raw value.
	Accept(r rune) bool
	// Coerce turns raw input into the value submitted to the platform. Empty input is
	// always unset, never a zero value.
	Coerce(raw string) (Value, error)
	String() string
	kind()
}

type KindText struct{}

func (KindText) Accept(rune) bool { return true }

func (KindText) Coerce(raw string) (Value, error) {
	if raw == "" {
		return Value{}, nil
	}
	return Value{Set: true, V: raw}, nil
}

func (KindText) String() string { return string(carbon.FieldText) }
func (KindText) kind()          {}

type KindNumber struct{}

func (KindNumber) Accept(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		return true
	}
	return false
}

func (KindNumber) Coerce(raw string) (Value, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Value{}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return Value{}, fmt.Errorf("%q: %w", raw, ErrNotANumber)
	}
	return Value{Set: true, V: f}, nil
}

func (KindNumber) String() string { return string(carbon.FieldNumber) }
func (KindNumber) kind()          {}

// KindOf maps a schema type to its Kind. Unknown and absent types are text.
func KindOf(t carbon.FieldType) Kind {
	if t == carbon.FieldNumber {
		return KindNumber{}
	}
	return KindText{}
}

// Value is a coerced field value. Unset values are left out of the submitted inputs.
type Value struct {
	Set bool
	V   interface{}
}

// Widget is everything a renderer needs to draw and validate one field.
type Widget struct {
	Name       string
	Label      string
	Unit       string
	Help       string
	Kind       Kind
	Default    interface{}
	HasDefault bool
}

// WidgetFor depends only on the field name and its FieldSpec.
func WidgetFor(name string, spec carbon.FieldSpec) Widget {
	label := spec.Label
	if label == "" {
		label = name
	}
	return Widget{
		Name:       name,
		Label:      label,
		Unit:       spec.Unit,
		Help:       spec.Help,
		Kind:       KindOf(spec.Type),
		Default:    spec.Default,
		HasDefault: spec.HasDefault,
	}
}

// Widgets renders every field of a schema in schema order.
func Widgets(fields carbon.FieldSet) []Widget {
	out := make([]Widget, 0, len(fields))
	for _, f := range fields {
		out = append(out, WidgetFor(f.Name, f))
	}
	return out
}

// displayValue is how a server-supplied default is shown in the input box.
func displayValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
