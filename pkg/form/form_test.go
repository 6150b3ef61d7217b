package form

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sw33tLie/carbonscope/pkg/carbon"
)

func schemas(t *testing.T) []carbon.EmissionFactor {
	t.Helper()
	raw := `[
	  {"key":"EF_DIESEL","name":"Diesel combustion","activity_id_fields":{
	     "fields":{"liters":{"label":"Liters","unit":"L","type":"number"}},
	     "formula":{"expression":"liters * 2.68","output":"co2e","unit":"kgCO2e"}}},
	  {"key":"EF_GRID","name":"","activity_id_fields":{
	     "fields":{
	       "kwh":{"label":"Energy","unit":"kWh","type":"number","default":0},
	       "liters":{"label":"Liters","type":"number","default":5},
	       "site":{"label":"Site","default":"HQ"},
	       "meter":{"type":"weird"}}}},
	  {"key":"EF_EMPTY","name":"Empty","activity_id_fields":{}}
	]`
	var efs []carbon.EmissionFactor
	if err := json.Unmarshal([]byte(raw), &efs); err != nil {
		t.Fatalf("decoding schemas: %v", err)
	}
	return efs
}

func TestDieselPayload(t *testing.T) {
	f := New(schemas(t), WithPeriod("2025"))
	if err := f.Select("EF_DIESEL"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]interface{}{}, f.Inputs()); diff != "" {
		t.Errorf("inputs after select (-want +got):\n%s", diff)
	}

	if err := f.Set("liters", "100"); err != nil {
		t.Fatal(err)
	}
	got, err := f.Payload()
	if err != nil {
		t.Fatal(err)
	}
	want := carbon.ActivityInput{
		Name:   "Diesel combustion",
		EFKey:  "EF_DIESEL",
		Inputs: map[string]interface{}{"liters": 100.0},
		Scope:  carbon.Scope3,
		Period: "2025",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("payload (-want +got):\n%s", diff)
	}

	b, _ := json.Marshal(got)
	wantJSON := `{"name":"Diesel combustion","ef_key":"EF_DIESEL","inputs":{"liters":100},"scope":"Scope3","period":"2025"}`
	if string(b) != wantJSON {
		t.Errorf("wire payload = %s, want %s", b, wantJSON)
	}
}

func TestSelectResetsToDefaults(t *testing.T) {
	f := New(schemas(t))
	if err := f.Select("EF_DIESEL"); err != nil {
		t.Fatal(err)
	}
	f.Set("liters", "42")

	if err := f.Select("EF_GRID"); err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{"kwh": 0.0, "liters": 5.0, "site": "HQ"}
	if diff := cmp.Diff(want, f.Inputs()); diff != "" {
		t.Errorf("inputs after switch (-want +got):\n%s", diff)
	}
	if f.Raw("liters") != "5" || f.Raw("kwh") != "0" {
		t.Errorf("raw defaults = %q/%q, want 5/0", f.Raw("liters"), f.Raw("kwh"))
	}

	f.Set("site", "Plant 2")
	if err := f.Select("EF_DIESEL"); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]interface{}{}, f.Inputs()); diff != "" {
		t.Errorf("inputs after switching back (-want +got):\n%s", diff)
	}
	if f.Raw("liters") != "" {
		t.Errorf("liters raw = %q, want empty", f.Raw("liters"))
	}
}

func TestEmptyNumberIsUnset(t *testing.T) {
	f := New(schemas(t))
	f.Select("EF_GRID")

	if err := f.Set("kwh", ""); err != nil {
		t.Fatal(err)
	}
	if _, ok := f.Inputs()["kwh"]; ok {
		t.Error("empty number field was submitted")
	}

	if err := f.Set("kwh", "0"); err != nil {
		t.Fatal(err)
	}
	if v, ok := f.Inputs()["kwh"]; !ok || v != 0.0 {
		t.Errorf("kwh = %v (%v), want explicit 0", v, ok)
	}

	f.Set("site", "")
	if _, ok := f.Inputs()["site"]; ok {
		t.Error("empty text field was submitted")
	}
}

func TestInvalidNumberBlocksPayload(t *testing.T) {
	f := New(schemas(t))
	f.Select("EF_DIESEL")

	err := f.Set("liters", "1e")
	if !errors.Is(err, ErrNotANumber) {
		t.Fatalf("Set = %v, want ErrNotANumber", err)
	}
	if f.Raw("liters") != "1e" {
		t.Errorf("raw = %q, want the typed text kept", f.Raw("liters"))
	}
	if _, err := f.Payload(); err == nil {
		t.Error("payload built with invalid input")
	}

	f.Set("liters", "1e3")
	p, err := f.Payload()
	if err != nil {
		t.Fatal(err)
	}
	if p.Inputs["liters"] != 1000.0 {
		t.Errorf("liters = %v, want 1000", p.Inputs["liters"])
	}
}

func TestUnknownFieldAndSchema(t *testing.T) {
	f := New(schemas(t))
	if err := f.Select("EF_NOPE"); err == nil {
		t.Error("selecting unknown schema succeeded")
	}
	f.Select("EF_DIESEL")
	if err := f.Set("kwh", "1"); err == nil {
		t.Error("setting a field of another schema succeeded")
	}
}

func TestNameFallback(t *testing.T) {
	f := New(schemas(t))
	f.Select("EF_GRID")
	p, _ := f.Payload()
	if p.Name != "Activity" {
		t.Errorf("name = %q, want Activity", p.Name)
	}

	f.Name = "Boiler"
	p, _ = f.Payload()
	if p.Name != "Boiler" {
		t.Errorf("name = %q, want Boiler", p.Name)
	}
}

func TestCanSubmit(t *testing.T) {
	f := New(schemas(t))
	if f.CanSubmit() {
		t.Error("CanSubmit with nothing selected")
	}
	if _, err := f.Payload(); !errors.Is(err, ErrNoSchema) {
		t.Errorf("Payload = %v, want ErrNoSchema", err)
	}

	f.Select("EF_EMPTY")
	if !f.CanSubmit() {
		t.Error("CanSubmit false for schema with no fields")
	}
	p, err := f.Payload()
	if err != nil {
		t.Fatal(err)
	}
	if p.Inputs == nil || len(p.Inputs) != 0 {
		t.Errorf("inputs = %#v, want empty map", p.Inputs)
	}
}

func TestDefaults(t *testing.T) {
	f := New(nil)
	if f.Scope != carbon.Scope3 {
		t.Errorf("scope = %v, want Scope3", f.Scope)
	}
	if want := strconv.Itoa(time.Now().Year()); f.Period != want {
		t.Errorf("period = %q, want %q", f.Period, want)
	}
}

func TestClearKeepsSchema(t *testing.T) {
	f := New(schemas(t))
	f.Select("EF_GRID")
	f.Name = "x"
	f.Set("kwh", "9")

	f.Clear()
	if f.Name != "" || len(f.Inputs()) != 0 {
		t.Errorf("after Clear name=%q inputs=%v", f.Name, f.Inputs())
	}
	if f.SelectedKey() != "EF_GRID" {
		t.Errorf("selection lost: %q", f.SelectedKey())
	}
}

func TestSetSchemasKeepsInput(t *testing.T) {
	efs := schemas(t)
	f := New(efs)
	f.Select("EF_DIESEL")
	f.Set("liters", "7")

	f.SetSchemas(efs)
	if f.Inputs()["liters"] != 7.0 {
		t.Errorf("liters = %v after reload, want 7", f.Inputs()["liters"])
	}

	f.SetSchemas(efs[1:])
	if f.CanSubmit() {
		t.Error("CanSubmit after selected schema disappeared")
	}
}

func TestSetSchemasDropsUndeclaredFields(t *testing.T) {
	decode := func(raw string) []carbon.EmissionFactor {
		var efs []carbon.EmissionFactor
		if err := json.Unmarshal([]byte(raw), &efs); err != nil {
			t.Fatalf("decoding schemas: %v", err)
		}
		return efs
	}
	f := New(decode(`[{"key":"EF_DIESEL","name":"Diesel","activity_id_fields":{"fields":{
	  "liters":{"type":"number"},"legacy":{"type":"number"},"site":{"type":"text"}}}}]`))
	f.Select("EF_DIESEL")
	f.Set("liters", "100")
	f.Set("legacy", "7")
	f.Set("site", "HQ")

	// legacy is gone, site became a number.
	f.SetSchemas(decode(`[{"key":"EF_DIESEL","name":"Diesel","activity_id_fields":{"fields":{
	  "liters":{"type":"number"},"site":{"type":"number"}}}}]`))

	if _, err := f.Payload(); err == nil {
		t.Fatal("Payload accepted text in a field retyped to number")
	}
	if f.FieldError("site") == nil {
		t.Error("site should be invalid after the retype")
	}
	if got := f.Raw("legacy"); got != "" {
		t.Errorf("legacy raw = %q, want it dropped", got)
	}

	f.Set("site", "")
	p, err := f.Payload()
	if err != nil {
		t.Fatalf("Payload: %v", err)
	}
	if diff := cmp.Diff(map[string]interface{}{"liters": 100.0}, p.Inputs); diff != "" {
		t.Errorf("inputs (-want +got):\n%s", diff)
	}

	f.SetSchemas(nil)
	if len(f.Inputs()) != 0 || f.Raw("liters") != "" {
		t.Errorf("inputs kept after the schema disappeared: %v", f.Inputs())
	}
}

func TestWidgetFor(t *testing.T) {
	tests := []struct {
		spec carbon.FieldSpec
		want Widget
	}{
		{
			carbon.FieldSpec{Name: "liters", Label: "Liters", Unit: "L", Type: carbon.FieldNumber},
			Widget{Name: "liters", Label: "Liters", Unit: "L", Kind: KindNumber{}},
		},
		{
			carbon.FieldSpec{Name: "site", Default: "HQ", HasDefault: true},
			Widget{Name: "site", Label: "site", Kind: KindText{}, Default: "HQ", HasDefault: true},
		},
		{
			carbon.FieldSpec{Name: "x", Type: "date", Help: "h"},
			Widget{Name: "x", Label: "x", Help: "h", Kind: KindText{}},
		},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, WidgetFor(tt.spec.Name, tt.spec)); diff != "" {
			t.Errorf("WidgetFor(%s) (-want +got):\n%s", tt.spec.Name, diff)
		}
	}
}

func TestNumberAccept(t *testing.T) {
	for _, r := range "0123456789.-+eE" {
		if !(KindNumber{}).Accept(r) {
			t.Errorf("number rejects %q", r)
		}
	}
	for _, r := range "ax ,/" {
		if (KindNumber{}).Accept(r) {
			t.Errorf("number accepts %q", r)
		}
	}
	if !(KindText{}).Accept('x') {
		t.Error("text rejects x")
	}
}
