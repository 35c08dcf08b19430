package tools

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

const toolWebProbe = "web_probe"

// WebProbeTool navigates to a URL with a headless Chrome instance and
// returns the rendered DOM outline: page title, forms with their fields,
// and links — the raw material the RECON stage's first pass reasons over.
// Grounded on the teacher's chromedp allocator/context setup (fetch.go),
// generalized from a single OuterHTML dump to the structured probe RECON
// needs (forms, pagination hints) rather than full-page readability text.
type WebProbeTool struct {
	headless bool
}

func NewWebProbeTool(headless bool) *WebProbeTool { return &WebProbeTool{headless: headless} }

func (t *WebProbeTool) Name() string { return toolWebProbe }

func (t *WebProbeTool) PromptDocumentation() string {
	return `- **web_probe** - Load a URL in a headless browser and summarize its structure
  - Parameters: url (string, REQUIRED), selector (string, optional — scope the probe to one element)
  - Returns: page title, forms (with field names/types), links, and a pagination-control guess`
}

func (t *WebProbeTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        toolWebProbe,
		Description: "Load a URL in a headless browser and return its title, forms, links, and a guess at its pagination control.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"url":      {Type: "string", Description: "URL to load"},
				"selector": {Type: "string", Description: "CSS selector to scope the probe to, instead of the whole page"},
			},
			Required: []string{"url"},
		},
	}
}

type probeForm struct {
	Selector string      `json:"selector"`
	Action   string      `json:"action"`
	Fields   []probeField `json:"fields"`
}

type probeField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

type probeLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

func (t *WebProbeTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	targetURL, ok := args["url"].(string)
	if !ok || targetURL == "" {
		return errorResult("url is required and must be a string")
	}

	scope := ""
	if sel, ok := args["selector"].(string); ok && sel != "" {
		scope = sel + " "
	}

	allocCtx, cancelAlloc := newAllocator(ctx, t.headless)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var title string
	var nodes []*cdp.Node
	var linkNodes []*cdp.Node
	var paginationNodes []*cdp.Node

	err := chromedp.Run(browserCtx,
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.Nodes(scope+"form", &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
		chromedp.Nodes(scope+"a[href]", &linkNodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
		chromedp.Nodes(fmt.Sprintf(`%[1]s[class*="pag" i], %[1]s[aria-label*="page" i], %[1]sa[rel="next"]`, scope), &paginationNodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to load %s: %v", targetURL, err))
	}

	forms := make([]probeForm, 0, len(nodes))
	for _, n := range nodes {
		forms = append(forms, describeForm(n))
	}

	links := make([]probeLink, 0, len(linkNodes))
	for i, n := range linkNodes {
		if i >= 50 {
			break
		}
		links = append(links, probeLink{Text: n.AttributeValue("innerText"), Href: n.AttributeValue("href")})
	}

	return okResult(map[string]any{
		"title":                title,
		"forms":                forms,
		"links":                links,
		"paginationCandidates": len(paginationNodes),
	})
}

func describeForm(n *cdp.Node) probeForm {
	form := probeForm{
		Selector: "form",
		Action:   n.AttributeValue("action"),
	}
	for _, child := range n.Children {
		if child.NodeName != "INPUT" && child.NodeName != "SELECT" && child.NodeName != "TEXTAREA" {
			continue
		}
		name := child.AttributeValue("name")
		if name == "" {
			continue
		}
		form.Fields = append(form.Fields, probeField{
			Name:     name,
			Type:     orDefault(child.AttributeValue("type"), "text"),
			Required: child.AttributeValue("required") != "",
		})
	}
	return form
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func newAllocator(ctx context.Context, headless bool) (context.Context, context.CancelFunc) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", headless))
	return chromedp.NewExecAllocator(ctx, opts...)
}
