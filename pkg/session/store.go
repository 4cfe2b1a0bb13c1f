package session

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DefaultGracePeriod is how long a closed session stays resident in memory
// so that export and replay of the just-closed session keep working after
// the owning instance is gone.
const DefaultGracePeriod = 60 * time.Second

// Options configures a Store.
type Options struct {
	// Enabled is the initial state of the recording toggle.
	Enabled bool
	// AutoSave persists the session file on start, on every appended
	// action, and on end. Each write is a full rewrite of the file.
	AutoSave bool
	// CaptureFullPageData stores data-bearing tool results verbatim
	// instead of truncating them.
	CaptureFullPageData bool
	// Dir is the directory session files are written to. Created on demand.
	Dir string
	// GracePeriod overrides DefaultGracePeriod; zero means the default.
	GracePeriod time.Duration
	Logger      *slog.Logger
}

// Store owns the in-memory mapping from instance ID to open session, plus
// disk persistence. Closed sessions stay resident for a grace period and
// are then evicted; files on disk are never auto-deleted.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	recordingEnabled    bool
	captureFullPageData bool
	autoSave            bool
	dir                 string
	grace               time.Duration
	logger              *slog.Logger
}

// NewStore creates a session store.
func NewStore(opts Options) *Store {
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions:            make(map[string]*Session),
		recordingEnabled:    opts.Enabled,
		captureFullPageData: opts.CaptureFullPageData,
		autoSave:            opts.AutoSave,
		dir:                 opts.Dir,
		grace:               grace,
		logger:              logger,
	}
}

// SetRecordingEnabled toggles recording. Takes effect on the next call, not
// retroactively.
func (s *Store) SetRecordingEnabled(enabled bool) {
	s.mu.Lock()
	s.recordingEnabled = enabled
	s.mu.Unlock()
}

// RecordingEnabled reports whether recording is on.
func (s *Store) RecordingEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordingEnabled
}

// SetCaptureFullPageData toggles full-capture mode for data-bearing tools.
func (s *Store) SetCaptureFullPageData(full bool) {
	s.mu.Lock()
	s.captureFullPageData = full
	s.mu.Unlock()
}

// CaptureFullPageData reports the current capture mode.
func (s *Store) CaptureFullPageData() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.captureFullPageData
}

// StartSession opens a new session for an instance. Returns the empty
// string when recording is disabled. Starting a session for an instance
// that already has an open one overwrites the mapping; the prior log is
// lost from memory (saved files survive).
func (s *Store) StartSession(instanceID string, cfg *InstanceConfig, meta *Metadata) string {
	s.mu.Lock()
	if !s.recordingEnabled {
		s.mu.Unlock()
		return ""
	}
	if prev, exists := s.sessions[instanceID]; exists && prev.EndedAt == nil {
		s.logger.Warn("overwriting open session for instance",
			"instance_id", instanceID, "previous_session_id", prev.ID)
	}
	sess := &Session{
		ID:         NewSessionID(),
		InstanceID: instanceID,
		StartedAt:  time.Now().UTC(),
		Actions:    []*ActionRecord{},
		Metadata:   meta,
		Config:     cfg,
	}
	if cfg != nil {
		sess.BrowserType = cfg.BrowserType
	}
	s.sessions[instanceID] = sess
	autoSave := s.autoSave
	s.mu.Unlock()

	if autoSave {
		if _, err := s.SaveSession(instanceID); err != nil {
			s.logger.Warn("auto-save after session start failed", "session_id", sess.ID, "error", err)
		}
	}
	return sess.ID
}

// RecordAction sanitizes the action and appends it to the instance's open
// session. Recording is best-effort: with recording disabled or no session
// present this is a silent no-op, never an error.
func (s *Store) RecordAction(instanceID string, action Action) {
	s.mu.Lock()
	if !s.recordingEnabled {
		s.mu.Unlock()
		return
	}
	sess, ok := s.sessions[instanceID]
	if !ok {
		s.mu.Unlock()
		return
	}
	record := &ActionRecord{
		ID:         NewActionID(),
		Timestamp:  time.Now().UTC(),
		Tool:       action.Tool,
		Parameters: SanitizeParameters(action.Parameters),
		Error:      action.Error,
		Duration:   action.Duration.Milliseconds(),
		Metadata:   action.Metadata,
	}
	if action.Result != nil {
		record.Result = ProcessResult(action.Tool, action.Result, s.captureFullPageData)
	}
	sess.Actions = append(sess.Actions, record)
	autoSave := s.autoSave
	s.mu.Unlock()

	if autoSave {
		if _, err := s.SaveSession(instanceID); err != nil {
			s.logger.Warn("auto-save after action failed", "session_id", sess.ID, "error", err)
		}
	}
}

// EndSession stamps the session's end time and schedules its eviction from
// memory after the grace period. The timer is not cancellable; a later
// save or export during the window does not extend it.
func (s *Store) EndSession(instanceID string) {
	s.mu.Lock()
	sess, ok := s.sessions[instanceID]
	if !ok {
		s.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	sess.EndedAt = &now
	autoSave := s.autoSave
	grace := s.grace
	s.mu.Unlock()

	if autoSave {
		if _, err := s.SaveSession(instanceID); err != nil {
			s.logger.Warn("auto-save after session end failed", "session_id", sess.ID, "error", err)
		}
	}

	time.AfterFunc(grace, func() {
		s.mu.Lock()
		// The mapping may have been overwritten by a newer session for
		// the same instance; only evict the one that ended.
		if cur, ok := s.sessions[instanceID]; ok && cur == sess {
			delete(s.sessions, instanceID)
		}
		s.mu.Unlock()
	})
}

// GetSession returns the resident session for an instance, if any.
func (s *Store) GetSession(instanceID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[instanceID]
	return sess, ok
}

// GetAllSessions returns every session currently resident in memory,
// in any lifecycle state.
func (s *Store) GetAllSessions() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// SaveSession serializes the full session to one indented JSON file in the
// sessions directory and returns the file path. Fails if the instance has
// no resident session.
func (s *Store) SaveSession(instanceID string) (string, error) {
	s.mu.RLock()
	sess, ok := s.sessions[instanceID]
	if !ok {
		s.mu.RUnlock()
		return "", fmt.Errorf("no session found for instance %s", instanceID)
	}
	data, err := json.MarshalIndent(sess, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create sessions directory: %w", err)
	}
	path := filepath.Join(s.dir, sessionFilename(sess.ID, sess.StartedAt))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write session file: %w", err)
	}
	return path, nil
}

// LoadSession parses a session file back into the in-memory structure. It
// performs no validation beyond well-formed JSON.
func (s *Store) LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read session file: %w", err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session file: %w", err)
	}
	return &sess, nil
}

// SavedSession pairs a parsed session with the file it came from.
type SavedSession struct {
	Filename string
	Session  *Session
}

// ListSavedSessions loads every .json file in the sessions directory.
// Files that fail to parse are logged and skipped; the listing itself
// still succeeds.
func (s *Store) ListSavedSessions() ([]SavedSession, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []SavedSession{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	out := make([]SavedSession, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		sess, err := s.LoadSession(path)
		if err != nil {
			s.logger.Warn("skipping unparsable session file", "file", entry.Name(), "error", err)
			continue
		}
		out = append(out, SavedSession{Filename: entry.Name(), Session: sess})
	}
	return out, nil
}

// Dir returns the configured sessions directory.
func (s *Store) Dir() string { return s.dir }

var filenameSanitizer = strings.NewReplacer(":", "-", ".", "-")

// sessionFilename is deterministic for a given session so that repeated
// auto-saves rewrite one file instead of accumulating copies.
func sessionFilename(sessionID string, startedAt time.Time) string {
	ts := filenameSanitizer.Replace(startedAt.UTC().Format("2006-01-02T15:04:05.000Z"))
	return fmt.Sprintf("session_%s_%s.json", sessionID, ts)
}
