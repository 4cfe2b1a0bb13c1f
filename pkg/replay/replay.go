// Package replay re-executes recorded browser sessions against freshly
// created instances, optionally verifying fresh results against the
// recorded ones.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/tools"
)

// DefaultDelay is the pause between replayed actions. It approximates
// human-speed interaction and lets dynamic pages settle; it is pacing, not
// a correctness requirement.
const DefaultDelay = 100 * time.Millisecond

// InstanceCreator spins up a fresh browser instance for replay.
type InstanceCreator interface {
	CreateInstance(ctx context.Context, cfg *session.InstanceConfig, meta *session.Metadata) (string, error)
}

// ToolExecutor re-issues recorded tool calls against the live surface.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, args map[string]any) *tools.Result
}

// PageInspector captures a fresh page snapshot from a live instance.
// Capture is best-effort; a nil snapshot means nothing could be captured.
type PageInspector interface {
	CapturePageData(ctx context.Context, instanceID string) *session.PageData
}

// Engine replays stored sessions. The inspector may be nil; snapshot
// capture is then skipped.
type Engine struct {
	creator   InstanceCreator
	executor  ToolExecutor
	inspector PageInspector
	logger    *slog.Logger
}

// NewEngine creates a replay engine.
func NewEngine(creator InstanceCreator, executor ToolExecutor, inspector PageInspector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{creator: creator, executor: executor, inspector: inspector, logger: logger}
}

// Result reports the outcome of one replay run. InstanceID is always set
// once instance creation succeeded, so the caller can inspect or close the
// instance regardless of per-action failures.
type Result struct {
	Success         bool         `json:"success"`
	InstanceID      string       `json:"instanceId"`
	ActionsReplayed int          `json:"actionsReplayed"`
	Errors          []string     `json:"errors,omitempty"`
	Comparisons     []Comparison `json:"comparisons,omitempty"`
}

// Options tunes verification replay. The zero value is basic replay:
// best-effort full traversal, no verification, default pacing.
type Options struct {
	// StopOnError aborts on the first failing action instead of
	// continuing. Regression-style replay wants the first divergence
	// flagged precisely.
	StopOnError bool
	// VerifyResults compares each fresh result against the recorded one.
	VerifyResults bool
	// CompareContent upgrades verification from success-flag comparison
	// to URL/title/content comparison.
	CompareContent bool
	// CaptureNewData attaches a fresh page snapshot to every
	// state-mutating action's in-memory record.
	CaptureNewData bool
	// Delay overrides DefaultDelay; zero means the default.
	Delay time.Duration
}

// mutatingTools can change what the page shows; verification replay
// captures a fresh snapshot after each of them.
var mutatingTools = map[string]struct{}{
	"browser_navigate":      {},
	"browser_click":         {},
	"browser_type":          {},
	"browser_fill":          {},
	"browser_select_option": {},
	"browser_go_back":       {},
	"browser_go_forward":    {},
	"browser_refresh":       {},
	"browser_evaluate":      {},
}

// ReplaySession recreates the session's environment and re-issues every
// recorded action in order. Per-action failures are collected, not raised;
// only instance creation failure aborts the whole call.
func (e *Engine) ReplaySession(ctx context.Context, sess *session.Session) (*Result, error) {
	return e.ReplaySessionWithVerification(ctx, sess, Options{})
}

// ReplaySessionWithVerification is ReplaySession extended with optional
// stop-on-error, result verification and fresh snapshot capture.
func (e *Engine) ReplaySessionWithVerification(ctx context.Context, sess *session.Session, opts Options) (*Result, error) {
	if sess == nil {
		return nil, fmt.Errorf("no session to replay")
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}

	instanceID, err := e.creator.CreateInstance(ctx, sess.Config, sess.Metadata)
	if err != nil {
		return nil, fmt.Errorf("create replay instance: %w", err)
	}
	e.logger.Info("replaying session",
		"session_id", sess.ID, "instance_id", instanceID, "actions", len(sess.Actions))

	result := &Result{InstanceID: instanceID}
	first := true
	for i, action := range sess.Actions {
		// Replay already created its own instance; recorded creations
		// must not spawn another.
		if action.Tool == "browser_create_instance" {
			continue
		}
		if !first {
			if err := pace(ctx, delay); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("replay cancelled: %v", err))
				break
			}
		}
		first = false

		params := make(map[string]any, len(action.Parameters)+1)
		for k, v := range action.Parameters {
			params[k] = v
		}
		params["instanceId"] = instanceID

		res := e.executor.Execute(ctx, action.Tool, params)
		result.ActionsReplayed++

		if opts.VerifyResults && action.Result != nil {
			result.Comparisons = append(result.Comparisons, compareResults(action, res, opts.CompareContent))
		}

		if !res.Success {
			result.Errors = append(result.Errors, fmt.Sprintf("action %d (%s): %s", i, action.Tool, res.Error))
			if opts.StopOnError {
				break
			}
			continue
		}

		if opts.CaptureNewData && e.inspector != nil {
			if _, mutating := mutatingTools[action.Tool]; mutating {
				if snapshot := e.inspector.CapturePageData(ctx, instanceID); snapshot != nil {
					action.PageData = snapshot
				}
			}
		}
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

func pace(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
