package mcpserver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/replay"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/testgen"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/tools"
)

// sessionToolset exposes the recording core over the tool surface:
// export, import, listing, replay, and test generation. None of these
// tools are recordable; they operate on session logs rather than pages.
type sessionToolset struct {
	store     *session.Store
	replayer  *replay.Engine
	generator *testgen.Generator
	// replayDefaults seed the replay_session options; per-call arguments
	// override them.
	replayDefaults replay.Options
}

func registerSessionTools(r *tools.Registry, store *session.Store, replayer *replay.Engine, generator *testgen.Generator, replayDefaults replay.Options) {
	ts := &sessionToolset{store: store, replayer: replayer, generator: generator, replayDefaults: replayDefaults}
	for _, def := range ts.definitions() {
		r.MustRegister(def)
	}
}

func (ts *sessionToolset) definitions() []tools.Definition {
	return []tools.Definition{
		{
			Name:        "save_session",
			Description: "Persist the recorded session of an instance to disk",
			Parameters: tools.ObjectSchema(map[string]tools.Property{
				"instanceId": tools.StringProperty("Instance whose session to save"),
			}, "instanceId"),
			Handler: ts.saveSession,
		},
		{
			Name:        "load_session",
			Description: "Load a previously saved session file",
			Parameters: tools.ObjectSchema(map[string]tools.Property{
				"path": tools.StringProperty("Path to a session JSON file"),
			}, "path"),
			Handler: ts.loadSession,
		},
		{
			Name:        "list_sessions",
			Description: "List in-memory sessions and saved session files",
			Parameters:  tools.ObjectSchema(nil),
			Handler:     ts.listSessions,
		},
		{
			Name:        "replay_session",
			Description: "Replay a recorded session against a fresh browser instance",
			Parameters: tools.ObjectSchema(map[string]tools.Property{
				"session":        tools.StringProperty("Session id or path to a session file"),
				"stopOnError":    tools.BoolProperty("Abort on the first failing action"),
				"verify":         tools.BoolProperty("Compare replayed results against recorded ones"),
				"compareContent": tools.BoolProperty("Verify URL, title, and content length, not just outcomes"),
				"captureNewData": tools.BoolProperty("Capture fresh page snapshots for mutating actions"),
				"delayMs":        tools.IntProperty("Delay between actions in milliseconds"),
			}, "session"),
			Handler: ts.replaySession,
		},
		{
			Name:        "generate_test",
			Description: "Generate a standalone regression test from a recorded session",
			Parameters: tools.ObjectSchema(map[string]tools.Property{
				"session":         tools.StringProperty("Session id or path to a session file"),
				"name":            tools.StringProperty("Test name"),
				"expectedContent": tools.StringProperty("Substring the final page must contain"),
				"timeoutMs":       tools.IntProperty("Page interaction timeout in milliseconds"),
				"save":            tools.BoolProperty("Write the test to disk instead of returning it inline"),
				"outputPath":      tools.StringProperty("Explicit output file path, implies save"),
			}, "session"),
			Handler: ts.generateTest,
		},
	}
}

func (ts *sessionToolset) saveSession(_ context.Context, args map[string]any) *tools.Result {
	id, ok := tools.String(args, "instanceId")
	if !ok || id == "" {
		return tools.Errf("instanceId is required")
	}
	path, err := ts.store.SaveSession(id)
	if err != nil {
		return tools.Errf("%v", err)
	}
	return tools.Ok(map[string]any{"path": path})
}

func (ts *sessionToolset) loadSession(_ context.Context, args map[string]any) *tools.Result {
	path, ok := tools.String(args, "path")
	if !ok || path == "" {
		return tools.Errf("path is required")
	}
	sess, err := ts.store.LoadSession(path)
	if err != nil {
		return tools.Errf("%v", err)
	}
	return tools.Ok(map[string]any{"session": sess})
}

func (ts *sessionToolset) listSessions(_ context.Context, _ map[string]any) *tools.Result {
	saved, err := ts.store.ListSavedSessions()
	if err != nil {
		return tools.Errf("list saved sessions: %v", err)
	}
	type savedEntry struct {
		Filename  string `json:"filename"`
		SessionID string `json:"sessionId"`
		Actions   int    `json:"actions"`
	}
	savedOut := make([]savedEntry, 0, len(saved))
	for _, entry := range saved {
		savedOut = append(savedOut, savedEntry{
			Filename:  entry.Filename,
			SessionID: entry.Session.ID,
			Actions:   len(entry.Session.Actions),
		})
	}

	type activeEntry struct {
		SessionID  string `json:"sessionId"`
		InstanceID string `json:"instanceId"`
		Actions    int    `json:"actions"`
		Open       bool   `json:"open"`
	}
	// A nil slice marshals as null; the payload shape must not depend on
	// whether any sessions are resident.
	resident := ts.store.GetAllSessions()
	active := make([]activeEntry, 0, len(resident))
	for _, sess := range resident {
		active = append(active, activeEntry{
			SessionID:  sess.ID,
			InstanceID: sess.InstanceID,
			Actions:    len(sess.Actions),
			Open:       sess.EndedAt == nil,
		})
	}
	return tools.Ok(map[string]any{"active": active, "saved": savedOut})
}

func (ts *sessionToolset) replaySession(ctx context.Context, args map[string]any) *tools.Result {
	ref, ok := tools.String(args, "session")
	if !ok || ref == "" {
		return tools.Errf("session is required")
	}
	sess, err := ts.resolveSession(ref)
	if err != nil {
		return tools.Errf("%v", err)
	}
	defaults := ts.replayDefaults
	opts := replay.Options{
		StopOnError:    tools.Bool(args, "stopOnError", defaults.StopOnError),
		VerifyResults:  tools.Bool(args, "verify", defaults.VerifyResults),
		CompareContent: tools.Bool(args, "compareContent", defaults.CompareContent),
		CaptureNewData: tools.Bool(args, "captureNewData", defaults.CaptureNewData),
		Delay:          time.Duration(tools.Int(args, "delayMs", int(defaults.Delay.Milliseconds()))) * time.Millisecond,
	}
	result, err := ts.replayer.ReplaySessionWithVerification(ctx, sess, opts)
	if err != nil {
		return tools.Errf("replay: %v", err)
	}
	return tools.Ok(result)
}

func (ts *sessionToolset) generateTest(_ context.Context, args map[string]any) *tools.Result {
	ref, ok := tools.String(args, "session")
	if !ok || ref == "" {
		return tools.Errf("session is required")
	}
	opts := testgen.TestOptions{
		Timeout: time.Duration(tools.Int(args, "timeoutMs", 0)) * time.Millisecond,
	}
	opts.Name, _ = tools.String(args, "name")
	opts.ExpectedContent, _ = tools.String(args, "expectedContent")

	outputPath, _ := tools.String(args, "outputPath")
	if tools.Bool(args, "save", false) || outputPath != "" {
		path, err := ts.generator.SaveTestToFile(ref, opts, outputPath)
		if err != nil {
			return tools.Errf("%v", err)
		}
		return tools.Ok(map[string]any{"path": path})
	}

	code, err := ts.generator.GenerateTest(ref, opts)
	if err != nil {
		return tools.Errf("%v", err)
	}
	return tools.Ok(map[string]any{"code": code})
}

// resolveSession finds a session by file path, resident id, or saved id.
func (ts *sessionToolset) resolveSession(ref string) (*session.Session, error) {
	if strings.ContainsAny(ref, `/\`) || strings.HasSuffix(ref, ".json") {
		return ts.store.LoadSession(ref)
	}
	for _, sess := range ts.store.GetAllSessions() {
		if sess.ID == ref || sess.InstanceID == ref {
			return sess, nil
		}
	}
	saved, err := ts.store.ListSavedSessions()
	if err == nil {
		for _, entry := range saved {
			if entry.Session.ID == ref {
				return entry.Session, nil
			}
		}
	}
	return nil, fmt.Errorf("session not found: %s", ref)
}
