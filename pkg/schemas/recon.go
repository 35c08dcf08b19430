// Package schemas implements the structured-output contracts for RECON and
// TEST (spec.md §3, §6): a strict wire form the LLM primitive validates
// model output against, an idiomatic internal form the pipeline driver
// operates on, and converters between them. Grounded on the teacher's
// pkg/tools InputSchema/Property shapes for schema construction and on
// pkg/specs' split between a parsed wire representation and a structured
// domain type for the conversion idiom.
package schemas

import "noctua/pkg/tools"

// SiteType enumerates ReconReport.siteType per spec.md §3.
type SiteType string

const (
	SiteTypeStaticHTML SiteType = "static_html"
	SiteTypeSPA        SiteType = "spa"
	SiteTypeAPIFirst   SiteType = "api_first"
	SiteTypeHybrid     SiteType = "hybrid"
	SiteTypeUnknown    SiteType = "unknown"
)

// PagePurpose enumerates Page.purpose.
type PagePurpose string

const (
	PagePurposeSearch  PagePurpose = "search"
	PagePurposeListing PagePurpose = "listing"
	PagePurposeDetail  PagePurpose = "detail"
	PagePurposeLogin   PagePurpose = "login"
	PagePurposeOther   PagePurpose = "other"
)

// PaginationType enumerates Pagination.type.
type PaginationType string

const (
	PaginationTypeNextLink      PaginationType = "next_link"
	PaginationTypeURLParam      PaginationType = "url_param"
	PaginationTypeInfiniteScroll PaginationType = "infinite_scroll"
	PaginationTypeLoadMore      PaginationType = "load_more"
	PaginationTypeNone          PaginationType = "none"
)

// Strategy enumerates ReconReport.suggestedStrategy.
type Strategy string

const (
	StrategyFormSearch  Strategy = "form_search"
	StrategyListing     Strategy = "listing"
	StrategyAPIDirect   Strategy = "api_direct"
	StrategyBrowserOnly Strategy = "browser_only"
)

// ReconReportWire is the strict-mode-safe rendering spec.md §3 demands:
// every optional field is a pointer so its absence marshals to JSON null
// rather than being omitted, and the two object-shaped fields schema
// validators reject (DataElements, SampleData) are carried as raw JSON
// strings instead of nested maps. This is the shape passed as
// llmrt.OutputSchema and bound into Result.FinalOutput.
type ReconReportWire struct {
	URL               string            `json:"url"`
	SiteName          *string           `json:"siteName"`
	SiteType          string            `json:"siteType"`
	Pages             []PageWire        `json:"pages"`
	APIEndpoints      []APIEndpointWire `json:"apiEndpoints"`
	AntiBot           AntiBotWire       `json:"antiBot"`
	SampleData        *string           `json:"sampleData"`
	SuggestedStrategy string            `json:"suggestedStrategy"`
}

// PageWire is one entry of ReconReportWire.Pages.
type PageWire struct {
	URL          string           `json:"url"`
	Purpose      string           `json:"purpose"`
	FormFields   []FormFieldWire  `json:"formFields"`
	DataElements *string          `json:"dataElements"`
	Pagination   *PaginationWire  `json:"pagination"`
}

// FormFieldWire is one entry of PageWire.FormFields.
type FormFieldWire struct {
	Name     string   `json:"name"`
	Selector string   `json:"selector"`
	Type     string   `json:"type"`
	Required bool     `json:"required"`
	Options  []string `json:"options"`
}

// PaginationWire describes PageWire.Pagination.
type PaginationWire struct {
	Type       string  `json:"type"`
	NextLink   *string `json:"nextLink"`
	URLParam   *string `json:"urlParam"`
}

// APIEndpointWire is one entry of ReconReportWire.APIEndpoints.
type APIEndpointWire struct {
	URL            string  `json:"url"`
	Method         string  `json:"method"`
	ContentType    *string `json:"contentType"`
	ResponseShape  *string `json:"responseShape"`
}

// AntiBotWire carries ReconReportWire.AntiBot's four flags.
type AntiBotWire struct {
	Captcha       bool `json:"captcha"`
	Cloudflare    bool `json:"cloudflare"`
	RateLimit     bool `json:"rateLimit"`
	RequiresAuth  bool `json:"requiresAuth"`
}

// ReconReportSchema is the JSON schema passed to the LLM primitive for the
// Synthesize phase's forced structured output (spec.md §4.1.1).
func ReconReportSchema() tools.InputSchema {
	formFieldProps := map[string]tools.Property{
		"name":     {Type: "string"},
		"selector": {Type: "string"},
		"type":     {Type: "string"},
		"required": {Type: "boolean"},
		"options":  {Type: "array", Items: &tools.Property{Type: "string"}},
	}
	paginationProps := map[string]tools.Property{
		"type":     {Type: "string", Enum: []string{"next_link", "url_param", "infinite_scroll", "load_more", "none"}},
		"nextLink": {Type: "string"},
		"urlParam": {Type: "string"},
	}
	pageProps := map[string]tools.Property{
		"url":          {Type: "string"},
		"purpose":      {Type: "string", Enum: []string{"search", "listing", "detail", "login", "other"}},
		"formFields":   {Type: "array", Items: &tools.Property{Type: "object", Properties: formFieldProps}},
		"dataElements": {Type: "string", Description: "JSON-encoded array of sample scraped data elements, or null"},
		"pagination":   {Type: "object", Properties: paginationProps},
	}
	apiEndpointProps := map[string]tools.Property{
		"url":           {Type: "string"},
		"method":        {Type: "string"},
		"contentType":   {Type: "string"},
		"responseShape": {Type: "string", Description: "JSON-encoded description of the endpoint's response shape, or null"},
	}
	antiBotProps := map[string]tools.Property{
		"captcha":      {Type: "boolean"},
		"cloudflare":   {Type: "boolean"},
		"rateLimit":    {Type: "boolean"},
		"requiresAuth": {Type: "boolean"},
	}

	return tools.InputSchema{
		Type: "object",
		Properties: map[string]tools.Property{
			"url":          {Type: "string"},
			"siteName":     {Type: "string"},
			"siteType":     {Type: "string", Enum: []string{"static_html", "spa", "api_first", "hybrid", "unknown"}},
			"pages":        {Type: "array", Items: &tools.Property{Type: "object", Properties: pageProps}},
			"apiEndpoints": {Type: "array", Items: &tools.Property{Type: "object", Properties: apiEndpointProps}},
			"antiBot":      {Type: "object", Properties: antiBotProps},
			"sampleData":   {Type: "string", Description: "JSON-encoded array of sample scraped records, or null"},
			"suggestedStrategy": {
				Type: "string",
				Enum: []string{"form_search", "listing", "api_direct", "browser_only"},
			},
		},
		Required: []string{"url", "siteType", "pages", "antiBot", "suggestedStrategy"},
	}
}
