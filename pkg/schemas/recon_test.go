package schemas

import (
	"reflect"
	"testing"
)

func TestReconReport_RoundTripsThroughWireForm(t *testing.T) {
	original := ReconReport{
		URL:      "https://example.com",
		SiteName: "Example Courts",
		SiteType: SiteTypeStaticHTML,
		Pages: []Page{{
			URL:     "https://example.com/search",
			Purpose: PagePurposeSearch,
			FormFields: []FormField{
				{Name: "county", Selector: "#county", Type: "select", Required: true, Options: []string{"A", "B"}},
			},
			DataElements: []map[string]any{{"label": "case number"}},
			Pagination:   &Pagination{Type: PaginationTypeNextLink, NextLink: "a.next"},
		}},
		APIEndpoints: []APIEndpoint{
			{URL: "https://example.com/api/search", Method: "GET", ContentType: "application/json"},
		},
		AntiBot:           AntiBot{Cloudflare: true},
		SampleData:        []map[string]any{{"caseNumber": "CV-2024-1"}},
		SuggestedStrategy: StrategyFormSearch,
	}

	wire := original.ToWire()
	back := wire.ToInternal()

	if !reflect.DeepEqual(original, back) {
		t.Fatalf("round trip mismatch:\n original: %+v\n got:      %+v", original, back)
	}
}

func TestReconReport_RoundTripsWithEmptyOptionals(t *testing.T) {
	original := ReconReport{
		URL:               "https://example.com",
		SiteType:          SiteTypeUnknown,
		AntiBot:           AntiBot{},
		SuggestedStrategy: StrategyBrowserOnly,
	}

	back := original.ToWire().ToInternal()
	if !reflect.DeepEqual(original, back) {
		t.Fatalf("round trip mismatch:\n original: %+v\n got:      %+v", original, back)
	}
}

func TestReconReportWire_NilOptionalsMarshalToJSONNull(t *testing.T) {
	wire := ReconReport{URL: "https://example.com", SiteType: SiteTypeUnknown, SuggestedStrategy: StrategyBrowserOnly}.ToWire()
	if wire.SiteName != nil {
		t.Errorf("expected SiteName to be nil, got %v", wire.SiteName)
	}
	if wire.SampleData != nil {
		t.Errorf("expected SampleData to be nil, got %v", *wire.SampleData)
	}
}

func TestParseReconReport_DecodesStructuredOutputMap(t *testing.T) {
	data := map[string]any{
		"url":               "https://example.com",
		"siteType":          "static_html",
		"suggestedStrategy": "listing",
		"antiBot":           map[string]any{"captcha": false, "cloudflare": false, "rateLimit": false, "requiresAuth": false},
		"pages":             []any{},
	}

	wire, err := ParseReconReport(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wire.URL != "https://example.com" || wire.SiteType != "static_html" {
		t.Errorf("got %+v", wire)
	}
}

func TestParseReconReportText_ParsesRawJSONFallback(t *testing.T) {
	text := `{"url":"https://example.com","siteType":"spa","suggestedStrategy":"api_direct","antiBot":{"captcha":false,"cloudflare":false,"rateLimit":false,"requiresAuth":false},"pages":[]}`

	wire, err := ParseReconReportText(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wire.SiteType != "spa" {
		t.Errorf("got siteType %q, want spa", wire.SiteType)
	}
}

func TestReconReportSchema_RequiresCoreFields(t *testing.T) {
	schema := ReconReportSchema()
	want := map[string]bool{"url": false, "siteType": false, "pages": false, "antiBot": false, "suggestedStrategy": false}
	for _, r := range schema.Required {
		if _, ok := want[r]; !ok {
			t.Errorf("unexpected required field %q", r)
		}
		want[r] = true
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected %q to be required", field)
		}
	}
}
