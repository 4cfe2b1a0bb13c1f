package tools

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/browser"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
)

// defaultElementTimeout bounds selector lookups so a missing element
// fails the call instead of blocking it.
const defaultElementTimeout = 30 * time.Second

type browserToolset struct {
	mgr      *browser.Manager
	recorder *session.Store
}

// RegisterBrowserTools wires the browser automation tools onto the
// registry. The recorder may be nil; instance lifecycle then skips
// session bookkeeping.
func RegisterBrowserTools(r *Registry, mgr *browser.Manager, recorder *session.Store) {
	ts := &browserToolset{mgr: mgr, recorder: recorder}
	for _, def := range ts.definitions() {
		r.MustRegister(def)
	}
}

func (ts *browserToolset) definitions() []Definition {
	return []Definition{
		{
			Name:        "browser_create_instance",
			Description: "Create a new isolated browser instance and return its id",
			Parameters: ObjectSchema(map[string]Property{
				"browserType":       StringEnumProperty("Browser engine to launch", "chromium", "firefox", "webkit"),
				"headless":          BoolProperty("Run without a visible window"),
				"viewport":          ObjectProperty("Viewport size as {width, height}"),
				"userAgent":         StringProperty("Override the user agent string"),
				"proxy":             StringProperty("Proxy server URL"),
				"ignoreHTTPSErrors": BoolProperty("Continue past certificate errors"),
				"metadata":          ObjectProperty("Instance metadata as {name, description}"),
			}),
			Recordable: true,
			Handler:    ts.createInstance,
		},
		{
			Name:        "browser_list_instances",
			Description: "List all open browser instances",
			Parameters:  ObjectSchema(nil),
			Handler:     ts.listInstances,
		},
		{
			Name:        "browser_close_instance",
			Description: "Close a browser instance and release its resources",
			Parameters: ObjectSchema(map[string]Property{
				"instanceId": StringProperty("Instance to close"),
			}, "instanceId"),
			Handler: ts.closeInstance,
		},
		{
			Name:        "browser_navigate",
			Description: "Navigate an instance to a URL and wait for the page to load",
			Parameters: ObjectSchema(map[string]Property{
				"instanceId": StringProperty("Target instance"),
				"url":        StringProperty("Absolute URL to open"),
			}, "instanceId", "url"),
			Recordable: true,
			Handler:    ts.navigate,
		},
		{
			Name:        "browser_go_back",
			Description: "Navigate back in the instance's history",
			Parameters:  instanceOnlySchema(),
			Recordable:  true,
			Handler:     ts.goBack,
		},
		{
			Name:        "browser_go_forward",
			Description: "Navigate forward in the instance's history",
			Parameters:  instanceOnlySchema(),
			Recordable:  true,
			Handler:     ts.goForward,
		},
		{
			Name:        "browser_refresh",
			Description: "Reload the current page",
			Parameters:  instanceOnlySchema(),
			Recordable:  true,
			Handler:     ts.refresh,
		},
		{
			Name:        "browser_click",
			Description: "Click the first element matching a CSS selector",
			Parameters:  selectorSchema("Element to click"),
			Recordable:  true,
			Handler:     ts.click,
		},
		{
			Name:        "browser_type",
			Description: "Type text into an element without clearing it first",
			Parameters:  selectorTextSchema("Element to type into", "Text to type"),
			Recordable:  true,
			Handler:     ts.typeText,
		},
		{
			Name:        "browser_fill",
			Description: "Replace the content of an input with the given text",
			Parameters:  selectorTextSchema("Input to fill", "Replacement text"),
			Recordable:  true,
			Handler:     ts.fill,
		},
		{
			Name:        "browser_select_option",
			Description: "Select a dropdown option by its visible text",
			Parameters: ObjectSchema(map[string]Property{
				"instanceId": StringProperty("Target instance"),
				"selector":   StringProperty("Select element"),
				"value":      StringProperty("Option text to select"),
			}, "instanceId", "selector", "value"),
			Recordable: true,
			Handler:    ts.selectOption,
		},
		{
			Name:        "browser_hover",
			Description: "Hover the mouse over an element",
			Parameters:  selectorSchema("Element to hover"),
			Recordable:  true,
			Handler:     ts.hover,
		},
		{
			Name:        "browser_wait_for_element",
			Description: "Wait until an element appears on the page",
			Parameters: ObjectSchema(map[string]Property{
				"instanceId": StringProperty("Target instance"),
				"selector":   StringProperty("Element to wait for"),
				"timeout":    IntProperty("Timeout in milliseconds"),
			}, "instanceId", "selector"),
			Recordable: true,
			Handler:    ts.waitForElement,
		},
		{
			Name:        "browser_evaluate",
			Description: "Evaluate JavaScript in the page and return its value",
			Parameters: ObjectSchema(map[string]Property{
				"instanceId": StringProperty("Target instance"),
				"script":     StringProperty("JavaScript expression or arrow function"),
			}, "instanceId", "script"),
			Recordable: true,
			Handler:    ts.evaluate,
		},
		{
			Name:        "browser_screenshot",
			Description: "Capture a PNG screenshot of the page",
			Parameters: ObjectSchema(map[string]Property{
				"instanceId": StringProperty("Target instance"),
				"fullPage":   BoolProperty("Capture the full scrollable page"),
			}, "instanceId"),
			Recordable: true,
			Handler:    ts.screenshot,
		},
		{
			Name:        "browser_get_page_info",
			Description: "Get the current URL, title, and page content",
			Parameters:  instanceOnlySchema(),
			Recordable:  true,
			Handler:     ts.getPageInfo,
		},
		{
			Name:        "browser_get_element_text",
			Description: "Get the visible text of an element",
			Parameters:  selectorSchema("Element to read"),
			Recordable:  true,
			Handler:     ts.getElementText,
		},
		{
			Name:        "browser_get_markdown",
			Description: "Extract the page content as markdown",
			Parameters: ObjectSchema(map[string]Property{
				"instanceId": StringProperty("Target instance"),
				"selector":   StringProperty("Limit extraction to this element"),
			}, "instanceId"),
			Recordable: true,
			Handler:    ts.getMarkdown,
		},
	}
}

func instanceOnlySchema() Schema {
	return ObjectSchema(map[string]Property{
		"instanceId": StringProperty("Target instance"),
	}, "instanceId")
}

func selectorSchema(desc string) Schema {
	return ObjectSchema(map[string]Property{
		"instanceId": StringProperty("Target instance"),
		"selector":   StringProperty(desc),
	}, "instanceId", "selector")
}

func selectorTextSchema(selDesc, textDesc string) Schema {
	return ObjectSchema(map[string]Property{
		"instanceId": StringProperty("Target instance"),
		"selector":   StringProperty(selDesc),
		"text":       StringProperty(textDesc),
	}, "instanceId", "selector", "text")
}

func (ts *browserToolset) page(ctx context.Context, args map[string]any) (*rod.Page, string, *Result) {
	id, ok := String(args, "instanceId")
	if !ok || id == "" {
		return nil, "", Errf("instanceId is required")
	}
	page, err := ts.mgr.Page(id)
	if err != nil {
		return nil, "", Errf("%v", err)
	}
	return page.Context(ctx), id, nil
}

func (ts *browserToolset) element(ctx context.Context, args map[string]any) (*rod.Element, string, string, *Result) {
	page, id, fail := ts.page(ctx, args)
	if fail != nil {
		return nil, "", "", fail
	}
	selector, ok := String(args, "selector")
	if !ok || selector == "" {
		return nil, "", "", Errf("selector is required")
	}
	el, err := page.Timeout(defaultElementTimeout).Element(selector)
	if err != nil {
		return nil, "", "", Errf("element %q: %v", selector, err)
	}
	return el, id, selector, nil
}

func (ts *browserToolset) createInstance(ctx context.Context, args map[string]any) *Result {
	cfg := &session.InstanceConfig{
		BrowserType:       "chromium",
		Headless:          Bool(args, "headless", true),
		IgnoreHTTPSErrors: Bool(args, "ignoreHTTPSErrors", false),
	}
	if bt, ok := String(args, "browserType"); ok && bt != "" {
		cfg.BrowserType = bt
	}
	if ua, ok := String(args, "userAgent"); ok {
		cfg.UserAgent = ua
	}
	if proxy, ok := String(args, "proxy"); ok {
		cfg.Proxy = proxy
	}
	if vp, ok := args["viewport"].(map[string]any); ok {
		cfg.Viewport = &session.Viewport{
			Width:  Int(vp, "width", 1280),
			Height: Int(vp, "height", 720),
		}
	}

	var meta *session.Metadata
	if raw, ok := args["metadata"].(map[string]any); ok {
		meta = &session.Metadata{}
		meta.Name, _ = String(raw, "name")
		meta.Description, _ = String(raw, "description")
	}

	id, err := ts.mgr.CreateInstance(ctx, cfg, meta)
	if err != nil {
		return Errf("create instance: %v", err)
	}
	if ts.recorder != nil {
		ts.recorder.StartSession(id, cfg, meta)
	}
	return Ok(map[string]any{
		"instanceId":  id,
		"browserType": cfg.BrowserType,
		"headless":    cfg.Headless,
	})
}

func (ts *browserToolset) listInstances(_ context.Context, _ map[string]any) *Result {
	return Ok(map[string]any{"instances": ts.mgr.ListInstances()})
}

func (ts *browserToolset) closeInstance(_ context.Context, args map[string]any) *Result {
	id, ok := String(args, "instanceId")
	if !ok || id == "" {
		return Errf("instanceId is required")
	}
	if ts.recorder != nil {
		ts.recorder.EndSession(id)
	}
	if err := ts.mgr.CloseInstance(id); err != nil {
		return Errf("%v", err)
	}
	return Ok(map[string]any{"instanceId": id, "closed": true})
}

func (ts *browserToolset) navigate(ctx context.Context, args map[string]any) *Result {
	page, id, fail := ts.page(ctx, args)
	if fail != nil {
		return fail
	}
	url, ok := String(args, "url")
	if !ok || url == "" {
		return Errf("url is required")
	}
	if err := page.Navigate(url); err != nil {
		return Errf("navigate to %s: %v", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return Errf("wait for load: %v", err)
	}
	return ts.locationResult(page, id)
}

func (ts *browserToolset) goBack(ctx context.Context, args map[string]any) *Result {
	page, id, fail := ts.page(ctx, args)
	if fail != nil {
		return fail
	}
	if err := page.NavigateBack(); err != nil {
		return Errf("go back: %v", err)
	}
	_ = page.WaitLoad()
	return ts.locationResult(page, id)
}

func (ts *browserToolset) goForward(ctx context.Context, args map[string]any) *Result {
	page, id, fail := ts.page(ctx, args)
	if fail != nil {
		return fail
	}
	if err := page.NavigateForward(); err != nil {
		return Errf("go forward: %v", err)
	}
	_ = page.WaitLoad()
	return ts.locationResult(page, id)
}

func (ts *browserToolset) refresh(ctx context.Context, args map[string]any) *Result {
	page, id, fail := ts.page(ctx, args)
	if fail != nil {
		return fail
	}
	if err := page.Reload(); err != nil {
		return Errf("reload: %v", err)
	}
	_ = page.WaitLoad()
	return ts.locationResult(page, id)
}

func (ts *browserToolset) locationResult(page *rod.Page, instanceID string) *Result {
	data := map[string]any{"instanceId": instanceID}
	if info, err := page.Info(); err == nil {
		data["url"] = info.URL
		data["title"] = info.Title
	}
	return Ok(data)
}

func (ts *browserToolset) click(ctx context.Context, args map[string]any) *Result {
	el, _, selector, fail := ts.element(ctx, args)
	if fail != nil {
		return fail
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return Errf("click %q: %v", selector, err)
	}
	return Ok(map[string]any{"selector": selector, "clicked": true})
}

func (ts *browserToolset) typeText(ctx context.Context, args map[string]any) *Result {
	el, _, selector, fail := ts.element(ctx, args)
	if fail != nil {
		return fail
	}
	text, _ := String(args, "text")
	if err := el.Input(text); err != nil {
		return Errf("type into %q: %v", selector, err)
	}
	return Ok(map[string]any{"selector": selector, "typed": true})
}

func (ts *browserToolset) fill(ctx context.Context, args map[string]any) *Result {
	el, _, selector, fail := ts.element(ctx, args)
	if fail != nil {
		return fail
	}
	text, _ := String(args, "text")
	if err := el.SelectAllText(); err != nil {
		return Errf("select text in %q: %v", selector, err)
	}
	if err := el.Input(text); err != nil {
		return Errf("fill %q: %v", selector, err)
	}
	return Ok(map[string]any{"selector": selector, "filled": true})
}

func (ts *browserToolset) selectOption(ctx context.Context, args map[string]any) *Result {
	el, _, selector, fail := ts.element(ctx, args)
	if fail != nil {
		return fail
	}
	value, ok := String(args, "value")
	if !ok {
		return Errf("value is required")
	}
	if err := el.Select([]string{value}, true, rod.SelectorTypeText); err != nil {
		return Errf("select %q in %q: %v", value, selector, err)
	}
	return Ok(map[string]any{"selector": selector, "value": value, "selected": true})
}

func (ts *browserToolset) hover(ctx context.Context, args map[string]any) *Result {
	el, _, selector, fail := ts.element(ctx, args)
	if fail != nil {
		return fail
	}
	if err := el.Hover(); err != nil {
		return Errf("hover %q: %v", selector, err)
	}
	return Ok(map[string]any{"selector": selector, "hovered": true})
}

func (ts *browserToolset) waitForElement(ctx context.Context, args map[string]any) *Result {
	page, _, fail := ts.page(ctx, args)
	if fail != nil {
		return fail
	}
	selector, ok := String(args, "selector")
	if !ok || selector == "" {
		return Errf("selector is required")
	}
	timeout := time.Duration(Int(args, "timeout", int(defaultElementTimeout.Milliseconds()))) * time.Millisecond
	if _, err := page.Timeout(timeout).Element(selector); err != nil {
		return Errf("wait for %q: %v", selector, err)
	}
	return Ok(map[string]any{"selector": selector, "found": true})
}

func (ts *browserToolset) evaluate(ctx context.Context, args map[string]any) *Result {
	page, _, fail := ts.page(ctx, args)
	if fail != nil {
		return fail
	}
	script, ok := String(args, "script")
	if !ok || script == "" {
		return Errf("script is required")
	}
	res, err := page.Evaluate(&rod.EvalOptions{JS: script, ByValue: true, AwaitPromise: true})
	if err != nil {
		return Errf("evaluate: %v", err)
	}
	return Ok(map[string]any{"result": res.Value.Val()})
}

func (ts *browserToolset) screenshot(ctx context.Context, args map[string]any) *Result {
	page, _, fail := ts.page(ctx, args)
	if fail != nil {
		return fail
	}
	fullPage := Bool(args, "fullPage", false)
	req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
	shot, err := page.Screenshot(fullPage, req)
	if err != nil {
		return Errf("screenshot: %v", err)
	}
	return Ok(map[string]any{
		"screenshot": base64.StdEncoding.EncodeToString(shot),
		"format":     "png",
		"fullPage":   fullPage,
	})
}

func (ts *browserToolset) getPageInfo(ctx context.Context, args map[string]any) *Result {
	page, _, fail := ts.page(ctx, args)
	if fail != nil {
		return fail
	}
	info, err := page.Info()
	if err != nil {
		return Errf("page info: %v", err)
	}
	html, err := page.HTML()
	if err != nil {
		return Errf("page content: %v", err)
	}
	return Ok(map[string]any{
		"url":           info.URL,
		"title":         info.Title,
		"content":       html,
		"contentLength": len(html),
	})
}

func (ts *browserToolset) getElementText(ctx context.Context, args map[string]any) *Result {
	el, _, selector, fail := ts.element(ctx, args)
	if fail != nil {
		return fail
	}
	text, err := el.Text()
	if err != nil {
		return Errf("text of %q: %v", selector, err)
	}
	return Ok(map[string]any{"selector": selector, "text": text})
}

func (ts *browserToolset) getMarkdown(ctx context.Context, args map[string]any) *Result {
	page, _, fail := ts.page(ctx, args)
	if fail != nil {
		return fail
	}
	var html string
	if selector, ok := String(args, "selector"); ok && selector != "" {
		el, err := page.Timeout(defaultElementTimeout).Element(selector)
		if err != nil {
			return Errf("element %q: %v", selector, err)
		}
		html, err = el.HTML()
		if err != nil {
			return Errf("html of %q: %v", selector, err)
		}
	} else {
		var err error
		html, err = page.HTML()
		if err != nil {
			return Errf("page content: %v", err)
		}
	}
	md, err := htmlToMarkdown(html)
	if err != nil {
		return Errf("markdown conversion: %v", err)
	}
	return Ok(map[string]any{"markdown": md, "contentLength": len(md)})
}
