package carbon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Identity is who the platform says the current credential belongs to.
type Identity struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// LoginResult is the answer to a successful login.
type LoginResult struct {
	Token    string
	Username string
	Roles    []string
}

type FieldType string

const (
	FieldText   FieldType = "text"
	FieldNumber FieldType = "number"
)

// FieldSpec describes one input of an emission factor's activity form.
type FieldSpec struct {
	Name       string
	Label      string
	Unit       string
	Type       FieldType
	Default    interface{}
	HasDefault bool
	Help       string
}

// FieldSet is the ordered "fields" object of an EF schema. Order is display order.
type FieldSet []FieldSpec

// UnmarshalJSON walks the object with gjson so key order survives decoding.
// If a name appears twice the first occurrence wins. A null default counts as no default.
func (fs *FieldSet) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid fields object")
	}
	res := gjson.ParseBytes(data)
	if !res.IsObject() {
		*fs = nil
		return nil
	}

	seen := make(map[string]bool)
	out := FieldSet{}
	res.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if seen[name] {
			return true
		}
		seen[name] = true

		spec := FieldSpec{
			Name:  name,
			Label: value.Get("label").String(),
			Unit:  value.Get("unit").String(),
			Type:  FieldType(value.Get("type").String()),
			Help:  value.Get("help").String(),
		}
		if d := value.Get("default"); d.Exists() && d.Type != gjson.Null {
			spec.Default = d.Value()
			spec.HasDefault = true
		}
		out = append(out, spec)
		return true
	})
	*fs = out
	return nil
}

type fieldSpecJSON struct {
	Label   string      `json:"label,omitempty"`
	Unit    string      `json:"unit,omitempty"`
	Type    FieldType   `json:"type,omitempty"`
	Default interface{} `json:"default,omitempty"`
	Help    string      `json:"help,omitempty"`
}

// MarshalJSON writes the fields back as an object in slice order.
func (fs FieldSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		spec, err := json.Marshal(fieldSpecJSON{Label: f.Label, Unit: f.Unit, Type: f.Type, Default: f.Default, Help: f.Help})
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(spec)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Formula is display-only metadata. The client never evaluates it.
type Formula struct {
	Expression string `json:"expression"`
	Output     string `json:"output"`
	Unit       string `json:"unit"`
}

type ActivityFields struct {
	Fields  FieldSet `json:"fields,omitempty"`
	Formula *Formula `json:"formula,omitempty"`
}

// EmissionFactor is an EF as listed by the platform, including the schema that drives
// the activity form.
type EmissionFactor struct {
	Key              string                 `json:"key"`
	Name             string                 `json:"name"`
	Unit             string                 `json:"unit,omitempty"`
	Value            *float64               `json:"value,omitempty"`
	Scope            string                 `json:"scope,omitempty"`
	Category         string                 `json:"category,omitempty"`
	Tags             []string               `json:"tags,omitempty"`
	Region           string                 `json:"region,omitempty"`
	ValidFrom        string                 `json:"valid_from,omitempty"`
	ValidTo          string                 `json:"valid_to,omitempty"`
	LifecycleStatus  string                 `json:"lifecycle_status,omitempty"`
	GWPVersion       string                 `json:"gwp_version,omitempty"`
	Methodology      string                 `json:"methodology,omitempty"`
	Publisher        string                 `json:"publisher,omitempty"`
	DocumentTitle    string                 `json:"document_title,omitempty"`
	ReviewNotes      string                 `json:"review_notes,omitempty"`
	ActivityIDFields ActivityFields         `json:"activity_id_fields"`
	GasBreakdown     map[string]interface{} `json:"gas_breakdown,omitempty"`
	Meta             map[string]interface{} `json:"meta,omitempty"`
}

// Scope is a GHG accounting scope.
type Scope string

const (
	Scope1 Scope = "Scope1"
	Scope2 Scope = "Scope2"
	Scope3 Scope = "Scope3"
)

var Scopes = []Scope{Scope1, Scope2, Scope3}

func ParseScope(s string) (Scope, error) {
	for _, sc := range Scopes {
		if strings.EqualFold(string(sc), s) {
			return sc, nil
		}
	}
	return "", fmt.Errorf("invalid scope %q (want Scope1, Scope2 or Scope3)", s)
}

type Activity struct {
	ID     int64                  `json:"id"`
	Name   string                 `json:"name"`
	EFKey  string                 `json:"ef_key"`
	Inputs map[string]interface{} `json:"inputs"`
	Scope  Scope                  `json:"scope"`
	Period string                 `json:"period"`
}

// ActivityInput is the create-activity payload.
type ActivityInput struct {
	Name   string                 `json:"name"`
	EFKey  string                 `json:"ef_key"`
	Inputs map[string]interface{} `json:"inputs"`
	Scope  Scope                  `json:"scope"`
	Period string                 `json:"period"`
}

// ImportResult is the platform's aggregate answer to a bulk import.
type ImportResult struct {
	OK       bool `json:"ok"`
	Imported int  `json:"imported"`
}

// Quantity is an amount in tCO2e (or kgCO2e) exactly as the platform reported it.
// It is only ever formatted, never combined.
type Quantity struct {
	decimal.Decimal
}

func NewQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, err
	}
	return Quantity{d}, nil
}

// MarshalJSON writes a bare JSON number; the platform stores these as floats.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(q.Decimal.String()), nil
}

// Timestamp accepts the platform's ISO timestamps with or without a zone.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognised timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

type RunType string

const (
	RunCFO    RunType = "CFO"
	RunCFP    RunType = "CFP"
	RunCredit RunType = "CREDIT"
)

func ParseRunType(s string) (RunType, error) {
	switch RunType(strings.ToUpper(s)) {
	case RunCFO:
		return RunCFO, nil
	case RunCFP:
		return RunCFP, nil
	}
	return "", fmt.Errorf("invalid run type %q (want CFO or CFP)", s)
}

type CalculationRun struct {
	ID           int64     `json:"id"`
	RunType      RunType   `json:"run_type"`
	TotalTCO2e   Quantity  `json:"total_tco2e"`
	ReviewStatus string    `json:"review_status,omitempty"`
	CreatedAt    Timestamp `json:"created_at"`
}

type RunRequest struct {
	RunType     RunType `json:"run_type"`
	ActivityIDs []int64 `json:"activity_ids"`
}

// RunResult is what creating a run returns.
type RunResult struct {
	RunID       int64    `json:"run_id"`
	RunType     RunType  `json:"run_type"`
	TotalTCO2e  Quantity `json:"total_tco2e"`
	TotalKgCO2e Quantity `json:"total_kgco2e"`
}

type ReviewResult struct {
	RunID        int64  `json:"run_id"`
	ReviewStatus string `json:"review_status"`
}

type Signature struct {
	RunID        int64  `json:"run_id"`
	Hash         string `json:"hash"`
	SignatureB64 string `json:"signature_b64"`
}

type SignatureCheck struct {
	OK       bool   `json:"ok"`
	Algo     string `json:"algo"`
	Hash     string `json:"hash"`
	SignedBy string `json:"signed_by"`
	SignedAt string `json:"signed_at"`
}

type ReportFormat string

const (
	FormatPDF  ReportFormat = "pdf"
	FormatXLSX ReportFormat = "xlsx"
)

func ParseReportFormat(s string) (ReportFormat, error) {
	switch ReportFormat(strings.ToLower(s)) {
	case FormatPDF:
		return FormatPDF, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("invalid report format %q (want pdf or xlsx)", s)
}

type SeveritySummary struct {
	Critical int `json:"critical"`
	Major    int `json:"major"`
	Minor    int `json:"minor"`
	Info     int `json:"info"`
}

// AuditReport keeps the platform's report verbatim in Raw; only score and summary are
// lifted out for display.
type AuditReport struct {
	RunID   int64
	Score   float64
	Summary SeveritySummary
	Raw     json.RawMessage
}

func parseAuditReport(body string) (*AuditReport, error) {
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("audit report is not valid JSON")
	}
	summary := gjson.Get(body, "summary")
	return &AuditReport{
		RunID: gjson.Get(body, "run_id").Int(),
		Score: gjson.Get(body, "score").Float(),
		Summary: SeveritySummary{
			Critical: int(summary.Get("critical").Int()),
			Major:    int(summary.Get("major").Int()),
			Minor:    int(summary.Get("minor").Int()),
			Info:     int(summary.Get("info").Int()),
		},
		Raw: json.RawMessage(body),
	}, nil
}

type AuditJob struct {
	OK    bool   `json:"ok"`
	JobID string `json:"job_id"`
}

// CreditProject is upserted by ProjectCode.
type CreditProject struct {
	ProjectCode   string   `json:"project_code"`
	Name          string   `json:"name"`
	Methodology   string   `json:"methodology"`
	BaselineTCO2e Quantity `json:"baseline_tco2e"`
	ProjectTCO2e  Quantity `json:"project_tco2e"`
	LeakageTCO2e  Quantity `json:"leakage_tco2e"`
	BufferPct     Quantity `json:"buffer_pct"`
	Vintage       string   `json:"vintage"`
}

// CreditCalculation is the platform's credit breakdown for a project.
type CreditCalculation struct {
	RunID       int64    `json:"run_id"`
	ProjectCode string   `json:"project_code"`
	Methodology string   `json:"methodology"`
	GrossTCO2e  Quantity `json:"gross_tco2e"`
	BufferTCO2e Quantity `json:"buffer_tco2e"`
	NetTCO2e    Quantity `json:"net_tco2e"`
	Vintage     string   `json:"vintage"`
}

// Count is one dashboard tile. Value is the JSON number exactly as the platform sent it.
type Count struct {
	Label string
	Value json.Number
}

// Dashboard holds the summary counts in the order the platform sent them.
type Dashboard struct {
	Counts []Count
}

// MarshalJSON writes {"counts":{...}} with the labels in order.
func (d Dashboard) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"counts":{`)
	for i, c := range d.Counts {
		if i > 0 {
			buf.WriteByte(',')
		}
		label, err := json.Marshal(c.Label)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%s:%s", label, c.Value)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

func (d *Dashboard) UnmarshalJSON(data []byte) error {
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("invalid dashboard JSON")
	}
	d.Counts = nil
	gjson.GetBytes(data, "counts").ForEach(func(key, value gjson.Result) bool {
		d.Counts = append(d.Counts, Count{Label: key.String(), Value: json.Number(value.Raw)})
		return true
	})
	return nil
}
