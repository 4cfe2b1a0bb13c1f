package testgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
)

// settleDelay is emitted after every generated statement. Stability, not
// correctness: generated tests run against live pages.
const settleDelay = 500 * time.Millisecond

// DefaultTestTimeout bounds a generated test's page interactions.
const DefaultTestTimeout = 30 * time.Second

// DefaultOutputDir is where SaveTestToFile places generated tests unless
// an explicit path overrides it.
const DefaultOutputDir = "generated-tests"

// TestOptions configures test generation.
type TestOptions struct {
	// Name is the display name for the test; it becomes the Go test
	// function name. Empty means "SessionReplay".
	Name string
	// ExpectedContent, when set, emits an assertion that the final page
	// content contains this literal substring.
	ExpectedContent string
	// Timeout bounds all page interactions; zero means the default.
	Timeout time.Duration
}

// Generator turns stored sessions into runnable Go test files.
type Generator struct {
	store *session.Store
}

// NewGenerator creates a test generator reading sessions from the store.
func NewGenerator(store *session.Store) *Generator {
	return &Generator{store: store}
}

// resolve finds a session by file path, resident session ID, or by
// scanning the saved session files for a matching ID.
func (g *Generator) resolve(ref string) (*session.Session, error) {
	if strings.ContainsAny(ref, `/\`) || strings.HasSuffix(ref, ".json") {
		return g.store.LoadSession(ref)
	}
	for _, sess := range g.store.GetAllSessions() {
		if sess.ID == ref {
			return sess, nil
		}
	}
	saved, err := g.store.ListSavedSessions()
	if err == nil {
		for _, entry := range saved {
			if entry.Session.ID == ref {
				return entry.Session, nil
			}
		}
	}
	return nil, fmt.Errorf("session not found: %s", ref)
}

// GenerateTest renders a self-contained Go test reproducing the session's
// side-effecting actions. Generation never fails because of recorded
// content; a wrong ExpectedContent is a runtime failure of the generated
// test, not a generation error.
func (g *Generator) GenerateTest(ref string, opts TestOptions) (string, error) {
	sess, err := g.resolve(ref)
	if err != nil {
		return "", err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTestTimeout
	}

	var body strings.Builder
	for _, action := range sess.Actions {
		if action.Tool == "browser_create_instance" || action.Tool == "browser_screenshot" {
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
		fmt.Fprintf(&body, "\ttime.Sleep(%d * time.Millisecond)\n", settleDelay.Milliseconds())
	}

	var out strings.Builder
	fmt.Fprintf(&out, "// Test generated from session %s.\npackage generated\n\n", sess.ID)
	out.WriteString("import (\n")
	if opts.ExpectedContent != "" {
		out.WriteString("\t\"strings\"\n")
	}
	out.WriteString("\t\"testing\"\n\t\"time\"\n\n")
	out.WriteString("\t\"github.com/go-rod/rod\"\n\t\"github.com/go-rod/rod/lib/launcher\"\n)\n\n")

	fmt.Fprintf(&out, "func Test%s(t *testing.T) {\n", testFuncName(opts.Name))
	headless := true
	if sess.Config != nil {
		headless = sess.Config.Headless
	}
	fmt.Fprintf(&out, "\tl := launcher.New().Headless(%t)\n", headless)
	out.WriteString("\tbrowser := rod.New().ControlURL(l.MustLaunch()).MustConnect()\n")
	out.WriteString("\tdefer browser.MustClose()\n")
	fmt.Fprintf(&out, "\tpage := browser.MustPage(\"\").Timeout(%d * time.Second)\n", int64(timeout.Seconds()))
	// Generated tests must not depend on an implicit default viewport.
	if sess.Config != nil && sess.Config.Viewport != nil {
		fmt.Fprintf(&out, "\tpage.MustSetViewport(%d, %d, 1, false)\n", sess.Config.Viewport.Width, sess.Config.Viewport.Height)
	}
	out.WriteString("\n")
	out.WriteString(body.String())

	if opts.ExpectedContent != "" {
		quoted := strconv.Quote(opts.ExpectedContent)
		out.WriteString("\n\tif !strings.Contains(page.MustHTML(), " + quoted + ") {\n")
		out.WriteString("\t\tt.Fatalf(\"expected page content to contain %q\", " + quoted + ")\n")
		out.WriteString("\t}\n")
	}
	// Every generated test carries at least this liveness assertion.
	out.WriteString("\n\tif page.MustInfo().URL == \"\" {\n")
	out.WriteString("\t\tt.Fatal(\"expected a live page location\")\n")
	out.WriteString("\t}\n")
	out.WriteString("}\n")
	return out.String(), nil
}

// SaveTestToFile generates a test and writes it to outputPath. An empty
// outputPath defaults to a deterministic file under DefaultOutputDir,
// which is created if absent.
func (g *Generator) SaveTestToFile(ref string, opts TestOptions, outputPath string) (string, error) {
	code, err := g.GenerateTest(ref, opts)
	if err != nil {
		return "", err
	}

	if outputPath == "" {
		sess, err := g.resolve(ref)
		if err != nil {
			return "", err
		}
		sid := sess.ID
		if len(sid) > 8 {
			sid = sid[:8]
		}
		ts := strings.NewReplacer(":", "-", ".", "-").Replace(time.Now().UTC().Format("2006-01-02T15:04:05.000Z"))
		outputPath = filepath.Join(DefaultOutputDir, fmt.Sprintf("test_%s_%s.go", sid, ts))
	}
	if dir := filepath.Dir(outputPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, []byte(code), 0o644); err != nil {
		return "", fmt.Errorf("write test file: %w", err)
	}
	return outputPath, nil
}

// testFuncName turns a display name into a valid exported Go identifier
// suffix, e.g. "checkout flow" becomes "CheckoutFlow".
func testFuncName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "SessionReplay"
	}
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			if upper {
				b.WriteRune(unicode.ToUpper(r))
				upper = false
			} else {
				b.WriteRune(r)
			}
		case unicode.IsDigit(r) && b.Len() > 0:
			b.WriteRune(r)
			upper = true
		default:
			upper = true
		}
	}
	if b.Len() == 0 {
		return "SessionReplay"
	}
	return b.String()
}
