// Package testgen converts recorded sessions into standalone Go source:
// either a replay script or a runnable regression test. Generation is
// best-effort over the tool vocabulary; tools without a statement mapping
// are skipped, never an error.
package testgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// value is one argument of a generated call. Strings pass through a single
// quoting pass at print time; raw values are emitted verbatim. Quoting is
// the one correctness-critical concern here: recorded user text (typed
// search queries, selectors) must not be able to break the generated
// source.
type value struct {
	str   string
	raw   string
	isRaw bool
}

func str(s string) value    { return value{str: s} }
func raw(code string) value { return value{raw: code, isRaw: true} }

func dur(d time.Duration) value {
	return raw(fmt.Sprintf("%d*time.Millisecond", d.Milliseconds()))
}

// invocation is one link of a method chain on the page handle.
type invocation struct {
	name string
	args []value
}

// call is a full generated statement: a chain of invocations rooted at the
// page variable, optionally discarding the final value.
type call struct {
	chain   []invocation
	discard bool
}

func (c call) render() string {
	var b strings.Builder
	if c.discard {
		b.WriteString("_ = ")
	}
	b.WriteString("page")
	for _, inv := range c.chain {
		b.WriteByte('.')
		b.WriteString(inv.name)
		b.WriteByte('(')
		for i, arg := range inv.args {
			if i > 0 {
				b.WriteString(", ")
			}
			if arg.isRaw {
				b.WriteString(arg.raw)
			} else {
				b.WriteString(strconv.Quote(arg.str))
			}
		}
		b.WriteByte(')')
	}
	return b.String()
}

// readOnlyTools have no side effects worth replaying; they contribute no
// generated statement.
var readOnlyTools = map[string]struct{}{
	"browser_get_page_info":    {},
	"browser_get_element_text": {},
	"browser_get_markdown":     {},
	"browser_list_instances":   {},
}

const defaultWaitTimeout = 30 * time.Second

// statementsFor maps one recorded action to generated statements. ok is
// false for read-only and unknown tools.
func statementsFor(tool string, params map[string]any) (calls []call, ok bool) {
	if _, readOnly := readOnlyTools[tool]; readOnly {
		return nil, false
	}
	get := func(key string) string {
		s, _ := params[key].(string)
		return s
	}

	switch tool {
	case "browser_navigate":
		return []call{
			{chain: []invocation{{name: "MustNavigate", args: []value{str(get("url"))}}}},
			{chain: []invocation{{name: "MustWaitLoad"}}},
		}, true
	case "browser_click":
		return []call{{chain: []invocation{
			{name: "MustElement", args: []value{str(get("selector"))}},
			{name: "MustClick"},
		}}}, true
	case "browser_type":
		return []call{{chain: []invocation{
			{name: "MustElement", args: []value{str(get("selector"))}},
			{name: "MustInput", args: []value{str(get("text"))}},
		}}}, true
	case "browser_fill":
		return []call{{chain: []invocation{
			{name: "MustElement", args: []value{str(get("selector"))}},
			{name: "MustSelectAllText"},
			{name: "MustInput", args: []value{str(get("text"))}},
		}}}, true
	case "browser_select_option":
		return []call{{chain: []invocation{
			{name: "MustElement", args: []value{str(get("selector"))}},
			{name: "MustSelect", args: []value{str(get("value"))}},
		}}}, true
	case "browser_hover":
		return []call{{chain: []invocation{
			{name: "MustElement", args: []value{str(get("selector"))}},
			{name: "MustHover"},
		}}}, true
	case "browser_screenshot":
		name := "MustScreenshot"
		if full, _ := params["fullPage"].(bool); full {
			name = "MustScreenshotFullPage"
		}
		return []call{{discard: true, chain: []invocation{{name: name}}}}, true
	case "browser_go_back":
		return []call{{chain: []invocation{{name: "MustNavigateBack"}}}}, true
	case "browser_go_forward":
		return []call{{chain: []invocation{{name: "MustNavigateForward"}}}}, true
	case "browser_refresh":
		return []call{
			{chain: []invocation{{name: "MustReload"}}},
			{chain: []invocation{{name: "MustWaitLoad"}}},
		}, true
	case "browser_wait_for_element":
		timeout := defaultWaitTimeout
		if ms, isNum := params["timeout"].(float64); isNum && ms > 0 {
			timeout = time.Duration(ms) * time.Millisecond
		}
		return []call{{discard: true, chain: []invocation{
			{name: "Timeout", args: []value{dur(timeout)}},
			{name: "MustElement", args: []value{str(get("selector"))}},
		}}}, true
	case "browser_evaluate":
		// The recorded script text is trusted and reproduced as-is.
		return []call{{discard: true, chain: []invocation{
			{name: "MustEval", args: []value{str(get("script"))}},
		}}}, true
	}
	return nil, false
}
