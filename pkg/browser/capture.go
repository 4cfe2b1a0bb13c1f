package browser

import (
	"context"
	"encoding/json"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/JoshuaSeth/concurrent-browser-mcp/pkg/session"
)

const localStorageJS = `() => {
	const out = {};
	for (let i = 0; i < localStorage.length; i++) {
		const k = localStorage.key(i);
		out[k] = localStorage.getItem(k);
	}
	return out;
}`

// CapturePageData snapshots the current page state of an instance. Every
// field is captured independently; a field whose capture fails is simply
// left empty. Returns nil only when the instance is gone.
func (m *Manager) CapturePageData(ctx context.Context, instanceID string) *session.PageData {
	inst, err := m.GetInstance(instanceID)
	if err != nil {
		m.logger.Debug("page data capture skipped", "instanceId", instanceID, "error", err)
		return nil
	}
	page := inst.page.Context(ctx)

	data := &session.PageData{Viewport: inst.Config.Viewport}

	if info, err := page.Info(); err == nil {
		data.URL = info.URL
		data.Title = info.Title
	} else {
		m.logger.Debug("page info capture failed", "instanceId", instanceID, "error", err)
	}

	if html, err := page.HTML(); err == nil {
		data.HTML = html
	} else {
		m.logger.Debug("html capture failed", "instanceId", instanceID, "error", err)
	}

	if cookies, err := page.Cookies(nil); err == nil {
		data.Cookies = cookies
	} else {
		m.logger.Debug("cookie capture failed", "instanceId", instanceID, "error", err)
	}

	if storage, err := captureLocalStorage(page); err == nil {
		data.LocalStorage = storage
	} else {
		m.logger.Debug("local storage capture failed", "instanceId", instanceID, "error", err)
	}

	if tree, err := (proto.AccessibilityGetFullAXTree{}).Call(page); err == nil {
		data.AccessibilityTree = tree.Nodes
	} else {
		m.logger.Debug("accessibility capture failed", "instanceId", instanceID, "error", err)
	}

	return data
}

func captureLocalStorage(page *rod.Page) (map[string]string, error) {
	res, err := page.Evaluate(&rod.EvalOptions{JS: localStorageJS, ByValue: true})
	if err != nil {
		return nil, err
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, err
	}
	storage := make(map[string]string)
	if err := json.Unmarshal(raw, &storage); err != nil {
		return nil, err
	}
	return storage, nil
}
