package schemas

import "encoding/json"

// ParseReconReport decodes a structured-output map (llmrt.Result.FinalOutput)
// or a raw JSON string (the Synthesize phase's fallback path, spec.md
// §4.1.1) into a ReconReportWire. It round-trips through encoding/json
// rather than a field-by-field type assertion because FinalOutput arrives
// as map[string]any from every backend's JSON decoding, and that's the
// cheapest correct way to land it on a concrete struct.
func ParseReconReport(data map[string]any) (ReconReportWire, error) {
	var w ReconReportWire
	raw, err := json.Marshal(data)
	if err != nil {
		return w, err
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return w, err
	}
	return w, nil
}

// ParseReconReportText parses raw model text as JSON into a ReconReportWire,
// used when the model produced well-formed text but the backend didn't (or
// couldn't) bind it to FinalOutput.
func ParseReconReportText(text string) (ReconReportWire, error) {
	var w ReconReportWire
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return w, err
	}
	return w, nil
}

// ParseTestReport is ParseReconReport's counterpart for the TEST stage.
func ParseTestReport(data map[string]any) (TestReportWire, error) {
	var w TestReportWire
	raw, err := json.Marshal(data)
	if err != nil {
		return w, err
	}
	if err := json.Unmarshal(raw, &w); err != nil {
		return w, err
	}
	return w, nil
}

// ParseTestReportText is ParseReconReportText's counterpart for TestReport.
func ParseTestReportText(text string) (TestReportWire, error) {
	var w TestReportWire
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return w, err
	}
	return w, nil
}
