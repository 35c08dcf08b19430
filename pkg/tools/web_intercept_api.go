package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
)

const toolWebInterceptAPI = "web_intercept_api"

// WebInterceptAPITool navigates to a URL and records every XHR/fetch
// response whose content-type is JSON, giving RECON's second pass the raw
// material for ReconReport.APIEndpoints. Grounded on the
// chromedp/cdproto/network event-listener pattern the retrieval pack shows
// in xkilldash9x-scalpel-cli's HAR-shaped Artifacts type, adapted from a
// full HAR capture to the narrower "candidate data APIs" list this
// pipeline's schema actually needs.
type WebInterceptAPITool struct {
	headless bool
}

func NewWebInterceptAPITool(headless bool) *WebInterceptAPITool {
	return &WebInterceptAPITool{headless: headless}
}

func (t *WebInterceptAPITool) Name() string { return toolWebInterceptAPI }

func (t *WebInterceptAPITool) PromptDocumentation() string {
	return `- **web_intercept_api** - Load a URL and record the JSON API calls it makes
  - Parameters: url (string, REQUIRED), wait_ms (integer, optional, default 3000 — time to let the page settle)
  - Returns a list of {url, method, contentType} for each JSON response observed`
}

func (t *WebInterceptAPITool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        toolWebInterceptAPI,
		Description: "Load a URL in a headless browser and record every XHR/fetch response with a JSON content-type, for API-backed sites.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"url":     {Type: "string", Description: "URL to load"},
				"wait_ms": {Type: "integer", Description: "Milliseconds to wait after load for async requests to settle. Defaults to 3000."},
			},
			Required: []string{"url"},
		},
	}
}

type interceptedEndpoint struct {
	URL         string `json:"url"`
	Method      string `json:"method"`
	ContentType string `json:"contentType"`
}

func (t *WebInterceptAPITool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	targetURL, ok := args["url"].(string)
	if !ok || targetURL == "" {
		return errorResult("url is required and must be a string")
	}
	waitMs := intArgOrDefault(args, "wait_ms", 3000)

	allocCtx, cancelAlloc := newAllocator(ctx, t.headless)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	var mu sync.Mutex
	seen := make(map[string]interceptedEndpoint)
	requestMethod := make(map[network.RequestID]string)

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			mu.Lock()
			requestMethod[e.RequestID] = e.Request.Method
			mu.Unlock()
		case *network.EventResponseReceived:
			contentType := e.Response.MimeType
			if !strings.Contains(contentType, "json") {
				return
			}
			mu.Lock()
			method := requestMethod[e.RequestID]
			if method == "" {
				method = "GET"
			}
			seen[e.Response.URL] = interceptedEndpoint{
				URL:         e.Response.URL,
				Method:      method,
				ContentType: contentType,
			}
			mu.Unlock()
		}
	})

	err := chromedp.Run(browserCtx,
		network.Enable(),
		chromedp.Navigate(targetURL),
		chromedp.Sleep(time.Duration(waitMs)*time.Millisecond),
	)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to load %s: %v", targetURL, err))
	}

	mu.Lock()
	endpoints := make([]interceptedEndpoint, 0, len(seen))
	for _, e := range seen {
		endpoints = append(endpoints, e)
	}
	mu.Unlock()

	return okResult(map[string]any{"endpoints": endpoints, "count": len(endpoints)})
}
