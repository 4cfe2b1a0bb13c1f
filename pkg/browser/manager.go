package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
)

// Manager owns a pool of isolated browser instances. Every instance runs
// its own browser process, so crashes and profile state never leak
// between concurrent callers.
type Manager struct {
	cfg    ManagerConfig
	logger *slog.Logger

	mu        sync.RWMutex
	instances map[string]*Instance
	// reserved counts launches in flight, so concurrent CreateInstance
	// calls cannot overshoot MaxInstances between check and insert.
	reserved int
	closed   bool

	stopJanitor chan struct{}
	janitorDone chan struct{}
}

// NewManager creates an instance pool and starts its idle reaper.
func NewManager(cfg ManagerConfig, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		cfg:         cfg.withDefaults(),
		logger:      logger,
		instances:   make(map[string]*Instance),
		stopJanitor: make(chan struct{}),
		janitorDone: make(chan struct{}),
	}
	go m.janitor()
	return m
}

// CreateInstance launches a browser, opens a blank page, and registers the
// instance. A nil config gets the pool defaults.
func (m *Manager) CreateInstance(ctx context.Context, cfg *session.InstanceConfig, meta *session.Metadata) (string, error) {
	if err := m.reserveSlot(); err != nil {
		return "", err
	}

	cfg = m.cfg.normalizeInstanceConfig(cfg)
	if cfg.BrowserType != "chromium" && cfg.BrowserType != "chrome" {
		// rod drives Chromium over CDP; other engines fall back to it.
		m.logger.Warn("unsupported browser type, using chromium", "browserType", cfg.BrowserType)
	}

	inst, err := m.launch(ctx, cfg, meta)
	if err != nil {
		launchFailures.Inc()
		m.releaseSlot()
		return "", err
	}

	m.mu.Lock()
	m.reserved--
	if m.closed {
		m.mu.Unlock()
		m.teardown(inst)
		return "", ErrManagerClosed
	}
	m.instances[inst.ID] = inst
	m.mu.Unlock()

	instancesCreated.Inc()
	instancesActive.Inc()
	m.logger.Info("browser instance created",
		"instanceId", inst.ID,
		"browserType", cfg.BrowserType,
		"headless", cfg.Headless)
	return inst.ID, nil
}

// reserveSlot claims pool capacity for a launch in flight. Every reserve
// is paired with either releaseSlot or the reserved-- at insert.
func (m *Manager) reserveSlot() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	if len(m.instances)+m.reserved >= m.cfg.MaxInstances {
		return fmt.Errorf("%w: %d instances open", ErrPoolExhausted, m.cfg.MaxInstances)
	}
	m.reserved++
	return nil
}

func (m *Manager) releaseSlot() {
	m.mu.Lock()
	m.reserved--
	m.mu.Unlock()
}

func (m *Manager) launch(ctx context.Context, cfg *session.InstanceConfig, meta *session.Metadata) (*Instance, error) {
	control := launcher.New().Headless(cfg.Headless)
	if cfg.Proxy != "" {
		control = control.Proxy(cfg.Proxy)
	}
	controlURL, err := control.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunchFailed, err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		control.Cleanup()
		return nil, fmt.Errorf("%w: connect: %v", ErrLaunchFailed, err)
	}
	if cfg.IgnoreHTTPSErrors {
		if err := browser.IgnoreCertErrors(true); err != nil {
			m.logger.Warn("failed to ignore certificate errors", "error", err)
		}
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		control.Cleanup()
		return nil, fmt.Errorf("%w: open page: %v", ErrLaunchFailed, err)
	}

	if cfg.Viewport != nil {
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.Viewport.Width,
			Height:            cfg.Viewport.Height,
			DeviceScaleFactor: 1.0,
		}); err != nil {
			m.logger.Warn("failed to set viewport", "error", err)
		}
	}
	if cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
			m.logger.Warn("failed to set user agent", "error", err)
		}
	}

	now := time.Now()
	return &Instance{
		ID:           "inst-" + uuid.NewString(),
		Config:       cfg,
		Metadata:     meta,
		CreatedAt:    now,
		LastActiveAt: now,
		browser:      browser,
		page:         page,
		control:      control,
	}, nil
}

// GetInstance returns a live instance and refreshes its idle clock.
func (m *Manager) GetInstance(instanceID string) (*Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[instanceID]
	if !ok {
		return nil, wrapInstanceError(instanceID, "get", ErrInstanceNotFound)
	}
	inst.LastActiveAt = time.Now()
	return inst, nil
}

// Page returns the rod page for an instance.
func (m *Manager) Page(instanceID string) (*rod.Page, error) {
	inst, err := m.GetInstance(instanceID)
	if err != nil {
		return nil, err
	}
	return inst.page, nil
}

// ListInstances returns a snapshot of all open instances. URL and title
// are fetched best effort and left empty when the page is unreachable.
func (m *Manager) ListInstances() []InstanceInfo {
	// Instance fields are copied under the lock; GetInstance mutates
	// LastActiveAt under it. Only the CDP page calls happen outside.
	m.mu.RLock()
	infos := make([]InstanceInfo, 0, len(m.instances))
	pages := make([]*rod.Page, 0, len(m.instances))
	for _, inst := range m.instances {
		infos = append(infos, InstanceInfo{
			ID:           inst.ID,
			BrowserType:  inst.Config.BrowserType,
			Headless:     inst.Config.Headless,
			Viewport:     inst.Config.Viewport,
			CreatedAt:    inst.CreatedAt,
			LastActiveAt: inst.LastActiveAt,
			Metadata:     inst.Metadata,
		})
		pages = append(pages, inst.page)
	}
	m.mu.RUnlock()

	for i, page := range pages {
		if page == nil {
			continue
		}
		if pageInfo, err := page.Info(); err == nil {
			infos[i].URL = pageInfo.URL
			infos[i].Title = pageInfo.Title
		}
	}
	return infos
}

// CloseInstance shuts a single instance down and removes it from the pool.
func (m *Manager) CloseInstance(instanceID string) error {
	return m.closeInstance(instanceID, "requested")
}

func (m *Manager) closeInstance(instanceID, reason string) error {
	m.mu.Lock()
	inst, ok := m.instances[instanceID]
	if ok {
		delete(m.instances, instanceID)
	}
	m.mu.Unlock()
	if !ok {
		return wrapInstanceError(instanceID, "close", ErrInstanceNotFound)
	}
	m.teardown(inst)
	instancesActive.Dec()
	instancesClosed.WithLabelValues(reason).Inc()
	m.logger.Info("browser instance closed", "instanceId", instanceID, "reason", reason)
	return nil
}

func (m *Manager) teardown(inst *Instance) {
	if inst.page != nil {
		if err := inst.page.Close(); err != nil {
			m.logger.Debug("page close failed", "instanceId", inst.ID, "error", err)
		}
	}
	if inst.browser != nil {
		if err := inst.browser.Close(); err != nil {
			m.logger.Debug("browser close failed", "instanceId", inst.ID, "error", err)
		}
	}
	if inst.control != nil {
		inst.control.Cleanup()
	}
}

// CloseAllInstances closes every open instance but keeps the pool usable.
func (m *Manager) CloseAllInstances() {
	m.mu.Lock()
	doomed := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		doomed = append(doomed, inst)
	}
	m.instances = make(map[string]*Instance)
	m.mu.Unlock()

	for _, inst := range doomed {
		m.teardown(inst)
		instancesActive.Dec()
		instancesClosed.WithLabelValues("shutdown").Inc()
	}
}

// Close stops the reaper and tears down all instances.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	close(m.stopJanitor)
	<-m.janitorDone
	m.CloseAllInstances()
}

func (m *Manager) janitor() {
	defer close(m.janitorDone)
	ticker := time.NewTicker(m.cfg.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopJanitor:
			return
		case <-ticker.C:
			m.reapIdle()
		}
	}
}

func (m *Manager) reapIdle() {
	cutoff := time.Now().Add(-m.cfg.InstanceTimeout)
	m.mu.RLock()
	var idle []string
	for id, inst := range m.instances {
		if inst.LastActiveAt.Before(cutoff) {
			idle = append(idle, id)
		}
	}
	m.mu.RUnlock()
	for _, id := range idle {
		if err := m.closeInstance(id, "idle"); err == nil {
			m.logger.Info("reaped idle browser instance", "instanceId", id)
		}
	}
}
