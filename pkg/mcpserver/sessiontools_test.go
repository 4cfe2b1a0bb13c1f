package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/replay"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/testgen"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/tools"
)

type stubCreator struct{ id string }

func (c *stubCreator) CreateInstance(context.Context, *session.InstanceConfig, *session.Metadata) (string, error) {
	return c.id, nil
}

type stubExecutor struct {
	calls   []string
	results map[string]*tools.Result // keyed by tool name; default success
}

func (e *stubExecutor) Execute(_ context.Context, name string, _ map[string]any) *tools.Result {
	e.calls = append(e.calls, name)
	if res, ok := e.results[name]; ok {
		return res
	}
	return tools.Ok(map[string]any{"ok": true})
}

func newToolset(t *testing.T) (*sessionToolset, *session.Store, *stubExecutor) {
	t.Helper()
	store := session.NewStore(session.Options{Enabled: true, Dir: t.TempDir()})
	executor := &stubExecutor{}
	replayer := replay.NewEngine(&stubCreator{id: "inst-fresh"}, executor, nil, nil)
	ts := &sessionToolset{
		store:     store,
		replayer:  replayer,
		generator: testgen.NewGenerator(store),
	}
	return ts, store, executor
}

func recordSampleSession(t *testing.T, store *session.Store, instanceID string) string {
	t.Helper()
	sid := store.StartSession(instanceID, &session.InstanceConfig{BrowserType: "chromium", Headless: true}, nil)
	require.NotEmpty(t, sid)
	store.RecordAction(instanceID, session.Action{
		Tool:       "browser_navigate",
		Parameters: map[string]any{"instanceId": instanceID, "url": "https://example.com"},
		Result:     map[string]any{"url": "https://example.com"},
		Duration:   20 * time.Millisecond,
	})
	return sid
}

func TestSaveAndLoadSessionTools(t *testing.T) {
	ts, store, _ := newToolset(t)
	recordSampleSession(t, store, "inst-1")

	res := ts.saveSession(context.Background(), map[string]any{"instanceId": "inst-1"})
	require.True(t, res.Success, res.Error)
	path := res.Data.(map[string]any)["path"].(string)
	assert.FileExists(t, path)

	res = ts.loadSession(context.Background(), map[string]any{"path": path})
	require.True(t, res.Success, res.Error)

	res = ts.saveSession(context.Background(), map[string]any{"instanceId": "inst-unknown"})
	assert.False(t, res.Success)
}

func TestListSessionsTool(t *testing.T) {
	ts, store, _ := newToolset(t)
	recordSampleSession(t, store, "inst-1")
	_, err := store.SaveSession("inst-1")
	require.NoError(t, err)

	res := ts.listSessions(context.Background(), nil)
	require.True(t, res.Success, res.Error)
	data := res.Data.(map[string]any)
	assert.Len(t, data["active"], 1)
	assert.Len(t, data["saved"], 1)
}

func TestListSessionsToolEmptyPayloadShape(t *testing.T) {
	ts, _, _ := newToolset(t)

	res := ts.listSessions(context.Background(), nil)
	require.True(t, res.Success, res.Error)

	raw, err := json.Marshal(res.Data)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"active":[]`)
	assert.Contains(t, string(raw), `"saved":[]`)
}

func TestReplaySessionToolReissuesActions(t *testing.T) {
	ts, store, executor := newToolset(t)
	sid := recordSampleSession(t, store, "inst-1")

	res := ts.replaySession(context.Background(), map[string]any{
		"session": sid,
		"delayMs": 1,
	})
	require.True(t, res.Success, res.Error)
	replayResult := res.Data.(*replay.Result)
	assert.True(t, replayResult.Success)
	assert.Equal(t, "inst-fresh", replayResult.InstanceID)
	assert.Equal(t, []string{"browser_navigate"}, executor.calls)
}

func TestReplaySessionToolUsesConfiguredDefaults(t *testing.T) {
	ts, store, executor := newToolset(t)
	ts.replayDefaults = replay.Options{StopOnError: true, Delay: time.Millisecond}
	executor.results = map[string]*tools.Result{
		"browser_navigate": tools.Errf("page gone"),
	}

	sid := recordSampleSession(t, store, "inst-1")
	store.RecordAction("inst-1", session.Action{
		Tool:       "browser_click",
		Parameters: map[string]any{"instanceId": "inst-1", "selector": "#ok"},
	})

	res := ts.replaySession(context.Background(), map[string]any{"session": sid})
	require.True(t, res.Success, res.Error)
	replayResult := res.Data.(*replay.Result)
	assert.False(t, replayResult.Success)
	assert.Equal(t, []string{"browser_navigate"}, executor.calls,
		"configured stop-on-error default must abort the traversal")

	// An explicit argument overrides the configured default.
	executor.calls = nil
	res = ts.replaySession(context.Background(), map[string]any{
		"session":     sid,
		"stopOnError": false,
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, []string{"browser_navigate", "browser_click"}, executor.calls)
}

func TestReplaySessionToolUnknownRef(t *testing.T) {
	ts, _, _ := newToolset(t)
	res := ts.replaySession(context.Background(), map[string]any{"session": "sess-nope"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "sess-nope")
}

func TestResolveSessionByPathIDAndInstance(t *testing.T) {
	ts, store, _ := newToolset(t)
	sid := recordSampleSession(t, store, "inst-1")
	path, err := store.SaveSession("inst-1")
	require.NoError(t, err)

	byID, err := ts.resolveSession(sid)
	require.NoError(t, err)
	assert.Equal(t, sid, byID.ID)

	byInstance, err := ts.resolveSession("inst-1")
	require.NoError(t, err)
	assert.Equal(t, sid, byInstance.ID)

	byPath, err := ts.resolveSession(path)
	require.NoError(t, err)
	assert.Equal(t, sid, byPath.ID)

	// Closing the session must not break resolution.
	store.EndSession("inst-1")
	_, err = ts.resolveSession(sid)
	require.NoError(t, err)
}

func TestGenerateTestToolInline(t *testing.T) {
	ts, store, _ := newToolset(t)
	sid := recordSampleSession(t, store, "inst-1")

	res := ts.generateTest(context.Background(), map[string]any{
		"session": sid,
		"name":    "smoke",
	})
	require.True(t, res.Success, res.Error)
	code := res.Data.(map[string]any)["code"].(string)
	assert.Contains(t, code, "func TestSmoke(t *testing.T)")
	assert.Contains(t, code, `MustNavigate("https://example.com")`)
}

func TestGenerateTestToolSavesToExplicitPath(t *testing.T) {
	ts, store, _ := newToolset(t)
	sid := recordSampleSession(t, store, "inst-1")

	out := filepath.Join(t.TempDir(), "smoke_test.go")
	res := ts.generateTest(context.Background(), map[string]any{
		"session":    sid,
		"outputPath": out,
	})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, out, res.Data.(map[string]any)["path"])

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), "package generated")
}

func TestSessionToolsRegisterCleanly(t *testing.T) {
	ts, _, _ := newToolset(t)
	r := tools.NewRegistry(nil)
	for _, def := range ts.definitions() {
		require.NoError(t, r.Register(def))
		assert.False(t, def.Recordable, def.Name)
	}
	var names []string
	for _, def := range r.List() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"generate_test", "list_sessions", "load_session", "replay_session", "save_session"}, names)
}
