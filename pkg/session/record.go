// Package session records browser automation activity as replayable logs.
// Each browser instance owns at most one open session; every tool call made
// against the instance is appended to the session as an ActionRecord.
package session

import "time"

// Viewport defines the browser viewport size.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// InstanceConfig is the environment snapshot captured when a session starts.
// It is everything needed to recreate an equivalent browser instance later.
type InstanceConfig struct {
	BrowserType       string    `json:"browserType"`
	Headless          bool      `json:"headless"`
	Viewport          *Viewport `json:"viewport,omitempty"`
	UserAgent         string    `json:"userAgent,omitempty"`
	Proxy             string    `json:"proxy,omitempty"`
	IgnoreHTTPSErrors bool      `json:"ignoreHTTPSErrors,omitempty"`
}

// PageData is a deep page snapshot attached to a record during
// verification replay. Every field is best-effort and independently optional.
type PageData struct {
	URL               string            `json:"url,omitempty"`
	Title             string            `json:"title,omitempty"`
	Viewport          *Viewport         `json:"viewport,omitempty"`
	Cookies           any               `json:"cookies,omitempty"`
	HTML              string            `json:"html,omitempty"`
	AccessibilityTree any               `json:"accessibilityTree,omitempty"`
	LocalStorage      map[string]string `json:"localStorage,omitempty"`
}

// ActionRecord is one recorded tool invocation.
type ActionRecord struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Result     any            `json:"result,omitempty"`
	Error      string         `json:"error,omitempty"`
	// Duration is wall-clock milliseconds spent executing the tool.
	Duration int64          `json:"duration,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
	PageData *PageData      `json:"pageData,omitempty"`
}

// Metadata carries user-supplied descriptive tags. The engine never
// interprets it.
type Metadata struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Session is the complete ordered recording of one browser instance's
// lifetime. Actions are append-only; their order is the replay order.
type Session struct {
	ID          string          `json:"id"`
	InstanceID  string          `json:"instanceId"`
	BrowserType string          `json:"browserType"`
	StartedAt   time.Time       `json:"startedAt"`
	EndedAt     *time.Time      `json:"endedAt,omitempty"`
	Actions     []*ActionRecord `json:"actions"`
	Metadata    *Metadata       `json:"metadata,omitempty"`
	Config      *InstanceConfig `json:"config,omitempty"`
}

// Action is the raw tuple handed to the store by a recording call site.
// The store sanitizes it into an ActionRecord before appending.
type Action struct {
	Tool       string
	Parameters map[string]any
	Result     any
	Error      string
	Duration   time.Duration
	Metadata   map[string]any
}
