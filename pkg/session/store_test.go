package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts Options) *Store {
	t.Helper()
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return NewStore(opts)
}

func TestStartSessionDisabledRecording(t *testing.T) {
	store := newTestStore(t, Options{Enabled: false})

	id := store.StartSession("inst-1", &InstanceConfig{BrowserType: "chromium"}, nil)
	assert.Empty(t, id)

	_, ok := store.GetSession("inst-1")
	assert.False(t, ok)

	// These must be silent no-ops, not panics.
	store.RecordAction("inst-1", Action{Tool: "browser_navigate"})
	store.EndSession("inst-1")
}

func TestRecordActionAppendOrder(t *testing.T) {
	store := newTestStore(t, Options{Enabled: true})
	store.StartSession("inst-1", &InstanceConfig{BrowserType: "chromium"}, nil)

	const n = 25
	for i := 0; i < n; i++ {
		store.RecordAction("inst-1", Action{
			Tool:       "browser_click",
			Parameters: map[string]any{"selector": fmt.Sprintf("#btn-%d", i)},
		})
	}

	sess, ok := store.GetSession("inst-1")
	require.True(t, ok)
	require.Len(t, sess.Actions, n)
	for i, action := range sess.Actions {
		assert.Equal(t, fmt.Sprintf("#btn-%d", i), action.Parameters["selector"])
		assert.NotEmpty(t, action.ID)
		assert.False(t, action.Timestamp.IsZero())
	}
}

func TestRecordActionSanitizes(t *testing.T) {
	store := newTestStore(t, Options{Enabled: true})
	store.StartSession("inst-1", nil, nil)

	store.RecordAction("inst-1", Action{
		Tool:       "browser_fill",
		Parameters: map[string]any{"selector": "#pw", "password": "hunter2"},
		Result:     map[string]any{"html": strings.Repeat("a", 3000)},
	})

	sess, _ := store.GetSession("inst-1")
	require.Len(t, sess.Actions, 1)
	rec := sess.Actions[0]
	assert.Equal(t, RedactedMarker, rec.Parameters["password"])
	result := rec.Result.(map[string]any)
	assert.Len(t, result["html"], 1000+len(TruncationMarker))
}

func TestRecordActionUnknownInstanceNoOp(t *testing.T) {
	store := newTestStore(t, Options{Enabled: true})
	store.RecordAction("ghost", Action{Tool: "browser_click"})
	assert.Empty(t, store.GetAllSessions())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, Options{Enabled: true, Dir: dir})
	store.StartSession("inst-1", &InstanceConfig{
		BrowserType: "firefox",
		Headless:    true,
		Viewport:    &Viewport{Width: 1280, Height: 720},
		UserAgent:   "test-agent",
	}, &Metadata{Name: "checkout flow", Tags: []string{"smoke"}})

	store.RecordAction("inst-1", Action{
		Tool:       "browser_navigate",
		Parameters: map[string]any{"url": "https://example.com"},
		Result:     map[string]any{"url": "https://example.com", "title": "Example"},
		Duration:   120 * time.Millisecond,
	})
	store.RecordAction("inst-1", Action{
		Tool:       "browser_click",
		Parameters: map[string]any{"selector": "#submit"},
		Error:      "element not found",
	})
	store.EndSession("inst-1")

	path, err := store.SaveSession("inst-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "session_"))
	assert.NotContains(t, filepath.Base(path), ":")

	loaded, err := store.LoadSession(path)
	require.NoError(t, err)

	orig, _ := store.GetSession("inst-1")
	assert.Equal(t, orig.ID, loaded.ID)
	assert.Equal(t, orig.InstanceID, loaded.InstanceID)
	assert.Equal(t, orig.BrowserType, loaded.BrowserType)
	require.NotNil(t, loaded.EndedAt)
	require.NotNil(t, loaded.Config)
	assert.Equal(t, orig.Config.Viewport.Width, loaded.Config.Viewport.Width)
	require.Len(t, loaded.Actions, 2)
	assert.Equal(t, "browser_navigate", loaded.Actions[0].Tool)
	assert.Equal(t, "https://example.com", loaded.Actions[0].Parameters["url"])
	assert.EqualValues(t, 120, loaded.Actions[0].Duration)
	assert.Equal(t, "element not found", loaded.Actions[1].Error)
	assert.Equal(t, "checkout flow", loaded.Metadata.Name)
}

func TestSaveSessionUnknownInstance(t *testing.T) {
	store := newTestStore(t, Options{Enabled: true})
	_, err := store.SaveSession("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no session found")
}

func TestAutoSaveWritesFileFromStart(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, Options{Enabled: true, AutoSave: true, Dir: dir})
	store.StartSession("inst-1", nil, nil)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "a session file must exist from the first moment")

	// Repeated appends rewrite the same file rather than adding copies.
	store.RecordAction("inst-1", Action{Tool: "browser_click"})
	store.RecordAction("inst-1", Action{Tool: "browser_click"})
	entries, err = os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	loaded, err := store.LoadSession(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Len(t, loaded.Actions, 2)
}

func TestListSavedSessionsSkipsUnparsable(t *testing.T) {
	dir := t.TempDir()
	store := newTestStore(t, Options{Enabled: true, Dir: dir})
	store.StartSession("inst-1", nil, nil)
	_, err := store.SaveSession("inst-1")
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	saved, err := store.ListSavedSessions()
	require.NoError(t, err)
	require.Len(t, saved, 1)
	sess, _ := store.GetSession("inst-1")
	assert.Equal(t, sess.ID, saved[0].Session.ID)
}

func TestListSavedSessionsMissingDir(t *testing.T) {
	store := NewStore(Options{Enabled: true, Dir: filepath.Join(t.TempDir(), "never-created")})
	saved, err := store.ListSavedSessions()
	require.NoError(t, err)
	assert.Empty(t, saved)
}

func TestEndSessionGraceEviction(t *testing.T) {
	store := newTestStore(t, Options{Enabled: true, GracePeriod: 50 * time.Millisecond})
	store.StartSession("inst-1", nil, nil)
	store.EndSession("inst-1")

	// Still retrievable during the grace window.
	sess, ok := store.GetSession("inst-1")
	require.True(t, ok)
	require.NotNil(t, sess.EndedAt)

	assert.Eventually(t, func() bool {
		_, ok := store.GetSession("inst-1")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestStartSessionOverwritesOpenSession(t *testing.T) {
	store := newTestStore(t, Options{Enabled: true})
	first := store.StartSession("inst-1", nil, nil)
	second := store.StartSession("inst-1", nil, nil)
	require.NotEqual(t, first, second)

	sess, ok := store.GetSession("inst-1")
	require.True(t, ok)
	assert.Equal(t, second, sess.ID)
}

func TestEvictionDoesNotRemoveReplacementSession(t *testing.T) {
	store := newTestStore(t, Options{Enabled: true, GracePeriod: 30 * time.Millisecond})
	store.StartSession("inst-1", nil, nil)
	store.EndSession("inst-1")
	replacement := store.StartSession("inst-1", nil, nil)

	time.Sleep(100 * time.Millisecond)
	sess, ok := store.GetSession("inst-1")
	require.True(t, ok, "replacement session must survive the old timer")
	assert.Equal(t, replacement, sess.ID)
}

func TestToggleTakesEffectOnNextAction(t *testing.T) {
	store := newTestStore(t, Options{Enabled: true})
	store.StartSession("inst-1", nil, nil)
	store.RecordAction("inst-1", Action{Tool: "browser_click"})

	store.SetRecordingEnabled(false)
	store.RecordAction("inst-1", Action{Tool: "browser_click"})

	sess, _ := store.GetSession("inst-1")
	assert.Len(t, sess.Actions, 1)
}
