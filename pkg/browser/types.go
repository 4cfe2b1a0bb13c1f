package browser

import (
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
)

// Instance is a live browser page tracked by the Manager. Each instance
// owns its own browser process so instances stay fully isolated.
type Instance struct {
	ID           string
	Config       *session.InstanceConfig
	Metadata     *session.Metadata
	CreatedAt    time.Time
	LastActiveAt time.Time

	browser *rod.Browser
	page    *rod.Page
	control *launcher.Launcher
}

// Page returns the rod page backing this instance.
func (i *Instance) Page() *rod.Page {
	return i.page
}

// InstanceInfo is the serializable view of an instance for listings.
type InstanceInfo struct {
	ID           string            `json:"id"`
	URL          string            `json:"url,omitempty"`
	Title        string            `json:"title,omitempty"`
	BrowserType  string            `json:"browserType"`
	Headless     bool              `json:"headless"`
	Viewport     *session.Viewport `json:"viewport,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	LastActiveAt time.Time         `json:"lastActiveAt"`
	Metadata     *session.Metadata `json:"metadata,omitempty"`
}

// ManagerConfig tunes the instance pool.
type ManagerConfig struct {
	MaxInstances     int
	InstanceTimeout  time.Duration
	CleanupInterval  time.Duration
	DefaultHeadless  bool
	DefaultViewport  session.Viewport
	DefaultUserAgent string
	DefaultProxy     string
}

// DefaultManagerConfig returns the recommended pool defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		MaxInstances:    20,
		InstanceTimeout: 30 * time.Minute,
		CleanupInterval: 60 * time.Second,
		DefaultHeadless: true,
		DefaultViewport: session.Viewport{Width: 1280, Height: 720},
	}
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	d := DefaultManagerConfig()
	if c.MaxInstances <= 0 {
		c.MaxInstances = d.MaxInstances
	}
	if c.InstanceTimeout <= 0 {
		c.InstanceTimeout = d.InstanceTimeout
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	if c.DefaultViewport.Width <= 0 || c.DefaultViewport.Height <= 0 {
		c.DefaultViewport = d.DefaultViewport
	}
	return c
}

// normalizeInstanceConfig fills missing fields from pool defaults.
func (c ManagerConfig) normalizeInstanceConfig(cfg *session.InstanceConfig) *session.InstanceConfig {
	out := &session.InstanceConfig{Headless: c.DefaultHeadless}
	if cfg != nil {
		*out = *cfg
	}
	if out.BrowserType == "" {
		out.BrowserType = "chromium"
	}
	if out.Viewport == nil {
		vp := c.DefaultViewport
		out.Viewport = &vp
	}
	if out.UserAgent == "" {
		out.UserAgent = c.DefaultUserAgent
	}
	if out.Proxy == "" {
		out.Proxy = c.DefaultProxy
	}
	return out
}
