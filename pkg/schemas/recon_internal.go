package schemas

import "encoding/json"

// ReconReport is the internal, idiomatic-optionals rendering of
// ReconReportWire that the pipeline driver and prompt builders operate on.
// DataElements and SampleData are reconstituted into []map[string]any
// wherever the wire form carried them as JSON strings, per spec.md §9's
// "internal representation reconstitutes structured values."
type ReconReport struct {
	URL               string
	SiteName          string
	SiteType          SiteType
	Pages             []Page
	APIEndpoints      []APIEndpoint
	AntiBot           AntiBot
	SampleData        []map[string]any
	SuggestedStrategy Strategy
}

// Page is the internal form of PageWire.
type Page struct {
	URL          string
	Purpose      PagePurpose
	FormFields   []FormField
	DataElements []map[string]any
	Pagination   *Pagination
}

// FormField is the internal form of FormFieldWire.
type FormField struct {
	Name     string
	Selector string
	Type     string
	Required bool
	Options  []string
}

// Pagination is the internal form of PaginationWire.
type Pagination struct {
	Type     PaginationType
	NextLink string
	URLParam string
}

// APIEndpoint is the internal form of APIEndpointWire.
type APIEndpoint struct {
	URL           string
	Method        string
	ContentType   string
	ResponseShape string
}

// AntiBot mirrors AntiBotWire; no optionality to lose in either direction.
type AntiBot struct {
	Captcha      bool
	Cloudflare   bool
	RateLimit    bool
	RequiresAuth bool
}

// ToInternal converts a validated wire-form report into the internal form,
// reconstituting the JSON-string-encoded record fields into maps. A
// malformed embedded JSON string is treated as "no data" rather than a
// conversion error — the outer structured-output validation already
// guaranteed the wire form itself is well-typed.
func (w ReconReportWire) ToInternal() ReconReport {
	r := ReconReport{
		URL:               w.URL,
		SiteName:          derefOr(w.SiteName, ""),
		SiteType:          SiteType(w.SiteType),
		AntiBot:           AntiBot(w.AntiBot),
		SampleData:        decodeRecords(w.SampleData),
		SuggestedStrategy: Strategy(w.SuggestedStrategy),
	}
	for _, pw := range w.Pages {
		r.Pages = append(r.Pages, pw.toInternal())
	}
	for _, ew := range w.APIEndpoints {
		r.APIEndpoints = append(r.APIEndpoints, APIEndpoint{
			URL:           ew.URL,
			Method:        ew.Method,
			ContentType:   derefOr(ew.ContentType, ""),
			ResponseShape: derefOr(ew.ResponseShape, ""),
		})
	}
	return r
}

func (pw PageWire) toInternal() Page {
	p := Page{
		URL:          pw.URL,
		Purpose:      PagePurpose(pw.Purpose),
		DataElements: decodeRecords(pw.DataElements),
	}
	for _, ff := range pw.FormFields {
		p.FormFields = append(p.FormFields, FormField{
			Name:     ff.Name,
			Selector: ff.Selector,
			Type:     ff.Type,
			Required: ff.Required,
			Options:  ff.Options,
		})
	}
	if pw.Pagination != nil {
		p.Pagination = &Pagination{
			Type:     PaginationType(pw.Pagination.Type),
			NextLink: derefOr(pw.Pagination.NextLink, ""),
			URLParam: derefOr(pw.Pagination.URLParam, ""),
		}
	}
	return p
}

// ToWire converts the internal form back to the strict wire form, the
// inverse spec.md §8's round-trip law requires up to normalisation of
// optional-vs-null and JSON-string-of-record-vs-object.
func (r ReconReport) ToWire() ReconReportWire {
	w := ReconReportWire{
		URL:               r.URL,
		SiteName:          strOrNil(r.SiteName),
		SiteType:          string(r.SiteType),
		AntiBot:           AntiBotWire(r.AntiBot),
		SampleData:        encodeRecords(r.SampleData),
		SuggestedStrategy: string(r.SuggestedStrategy),
	}
	for _, p := range r.Pages {
		w.Pages = append(w.Pages, p.toWire())
	}
	for _, e := range r.APIEndpoints {
		w.APIEndpoints = append(w.APIEndpoints, APIEndpointWire{
			URL:           e.URL,
			Method:        e.Method,
			ContentType:   strOrNil(e.ContentType),
			ResponseShape: strOrNil(e.ResponseShape),
		})
	}
	return w
}

func (p Page) toWire() PageWire {
	pw := PageWire{
		URL:          p.URL,
		Purpose:      string(p.Purpose),
		DataElements: encodeRecords(p.DataElements),
	}
	for _, ff := range p.FormFields {
		pw.FormFields = append(pw.FormFields, FormFieldWire{
			Name:     ff.Name,
			Selector: ff.Selector,
			Type:     ff.Type,
			Required: ff.Required,
			Options:  ff.Options,
		})
	}
	if p.Pagination != nil {
		pw.Pagination = &PaginationWire{
			Type:     string(p.Pagination.Type),
			NextLink: strOrNil(p.Pagination.NextLink),
			URLParam: strOrNil(p.Pagination.URLParam),
		}
	}
	return pw
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}

func strOrNil(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func decodeRecords(raw *string) []map[string]any {
	if raw == nil || *raw == "" {
		return nil
	}
	var records []map[string]any
	if err := json.Unmarshal([]byte(*raw), &records); err != nil {
		return nil
	}
	return records
}

func encodeRecords(records []map[string]any) *string {
	if len(records) == 0 {
		return nil
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return nil
	}
	encoded := string(raw)
	return &encoded
}
