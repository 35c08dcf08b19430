package schemas

import "noctua/pkg/tools"

// SchemaErrorWire is one entry of TestReportWire.SchemaErrors.
type SchemaErrorWire struct {
	Path    *string `json:"path"`
	Message string  `json:"message"`
}

// TestReportWire is the strict-mode-safe rendering of one scraper
// execution's outcome (spec.md §3), the structured-output schema the TEST
// stage's invocation is bound to.
type TestReportWire struct {
	Success       bool              `json:"success"`
	ExitCode      int               `json:"exitCode"`
	TimedOut      bool              `json:"timedOut"`
	RecordCount   int               `json:"recordCount"`
	DurationMs    int               `json:"durationMs"`
	SchemaErrors  []SchemaErrorWire `json:"schemaErrors"`
	SampleRecords *string           `json:"sampleRecords"`
	FieldCoverage map[string]int    `json:"fieldCoverage"`
	Stdout        string            `json:"stdout"`
	Stderr        string            `json:"stderr"`
}

// TestReport is the internal form of TestReportWire: SampleRecords is
// reconstituted into concrete maps.
type TestReport struct {
	Success       bool
	ExitCode      int
	TimedOut      bool
	RecordCount   int
	DurationMs    int
	SchemaErrors  []SchemaError
	SampleRecords []map[string]any
	FieldCoverage map[string]int
	Stdout        string
	Stderr        string
}

// SchemaError is the internal form of SchemaErrorWire.
type SchemaError struct {
	Path    string
	Message string
}

// ToInternal converts a validated wire-form test report into the internal
// form used by the repair diagnosis logic and the persisted test history.
func (w TestReportWire) ToInternal() TestReport {
	r := TestReport{
		Success:       w.Success,
		ExitCode:      w.ExitCode,
		TimedOut:      w.TimedOut,
		RecordCount:   w.RecordCount,
		DurationMs:    w.DurationMs,
		SampleRecords: decodeRecords(w.SampleRecords),
		FieldCoverage: w.FieldCoverage,
		Stdout:        w.Stdout,
		Stderr:        w.Stderr,
	}
	for _, e := range w.SchemaErrors {
		r.SchemaErrors = append(r.SchemaErrors, SchemaError{Path: derefOr(e.Path, ""), Message: e.Message})
	}
	return r
}

// ToWire converts the internal form back to the strict wire form.
func (r TestReport) ToWire() TestReportWire {
	w := TestReportWire{
		Success:       r.Success,
		ExitCode:      r.ExitCode,
		TimedOut:      r.TimedOut,
		RecordCount:   r.RecordCount,
		DurationMs:    r.DurationMs,
		SampleRecords: encodeRecords(r.SampleRecords),
		FieldCoverage: r.FieldCoverage,
		Stdout:        r.Stdout,
		Stderr:        r.Stderr,
	}
	for _, e := range r.SchemaErrors {
		w.SchemaErrors = append(w.SchemaErrors, SchemaErrorWire{Path: strOrNil(e.Path), Message: e.Message})
	}
	return w
}

// TestReportSchema is the JSON schema passed to the LLM primitive for the
// TEST stage's forced structured output (spec.md §4.1.4).
func TestReportSchema() tools.InputSchema {
	schemaErrorProps := map[string]tools.Property{
		"path":    {Type: "string"},
		"message": {Type: "string"},
	}
	return tools.InputSchema{
		Type: "object",
		Properties: map[string]tools.Property{
			"success":     {Type: "boolean"},
			"exitCode":    {Type: "integer"},
			"timedOut":    {Type: "boolean"},
			"recordCount": {Type: "integer"},
			"durationMs":  {Type: "integer"},
			"schemaErrors": {
				Type:  "array",
				Items: &tools.Property{Type: "object", Properties: schemaErrorProps},
			},
			"sampleRecords": {Type: "string", Description: "JSON-encoded array of up to three sample extracted records, or null"},
			"fieldCoverage": {Type: "object", Description: "map from field name to integer percentage [0,100]"},
			"stdout":        {Type: "string"},
			"stderr":        {Type: "string"},
		},
		Required: []string{"success", "exitCode", "timedOut", "recordCount", "durationMs"},
	}
}
