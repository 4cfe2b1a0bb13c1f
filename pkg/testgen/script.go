package testgen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
)

// GenerateScript renders a session as a standalone Go program that
// recreates the recorded environment and re-issues every side-effecting
// action. Read-only and unknown tools are skipped.
func GenerateScript(sess *session.Session) (string, error) {
	if sess == nil {
		return "", fmt.Errorf("no session to generate a script from")
	}

	var env strings.Builder
	writeEnvironmentSetup(&env, sess.Config)

	var body strings.Builder
	for _, action := range sess.Actions {
		if action.Tool == "browser_create_instance" {
			continue
		}
		calls, ok := statementsFor(action.Tool, action.Parameters)
		if !ok {
			continue
		}
		fmt.Fprintf(&body, "\t// %s\n", action.Tool)
		for _, c := range calls {
			body.WriteString("\t" + c.render() + "\n")
		}
	}

	var out strings.Builder
	out.WriteString("// Replay script generated from session " + sess.ID + ".\n")
	out.WriteString("package main\n\n")
	out.WriteString("import (\n")
	if strings.Contains(body.String(), "time.") {
		out.WriteString("\t\"time\"\n\n")
	}
	out.WriteString("\t\"github.com/go-rod/rod\"\n")
	out.WriteString("\t\"github.com/go-rod/rod/lib/launcher\"\n")
	if strings.Contains(env.String(), "proto.") {
		out.WriteString("\t\"github.com/go-rod/rod/lib/proto\"\n")
	}
	out.WriteString(")\n\n")
	out.WriteString("func main() {\n")
	out.WriteString(env.String())
	out.WriteString("\n")
	out.WriteString(body.String())
	out.WriteString("}\n")
	return out.String(), nil
}

// writeEnvironmentSetup emits the launcher/browser/page boilerplate that
// recreates the captured environment config.
func writeEnvironmentSetup(out *strings.Builder, cfg *session.InstanceConfig) {
	headless := true
	if cfg != nil {
		headless = cfg.Headless
		if cfg.BrowserType != "" && cfg.BrowserType != "chromium" {
			fmt.Fprintf(out, "\t// recorded with browser type %s\n", strconv.Quote(cfg.BrowserType))
		}
	}
	fmt.Fprintf(out, "\tl := launcher.New().Headless(%t)\n", headless)
	out.WriteString("\tbrowser := rod.New().ControlURL(l.MustLaunch()).MustConnect()\n")
	out.WriteString("\tdefer browser.MustClose()\n")
	out.WriteString("\tpage := browser.MustPage(\"\")\n")
	if cfg != nil && cfg.Viewport != nil {
		fmt.Fprintf(out, "\tpage.MustSetViewport(%d, %d, 1, false)\n", cfg.Viewport.Width, cfg.Viewport.Height)
	}
	if cfg != nil && cfg.UserAgent != "" {
		fmt.Fprintf(out, "\tpage.MustSetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: %s})\n", strconv.Quote(cfg.UserAgent))
	}
}
