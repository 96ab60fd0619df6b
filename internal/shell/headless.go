package shell

import (
	"sync"

	"github.com/0viii0viii/shelves/internal/logger"
)

// Headless stands in for a GUI toolkit. Windows are state only; every change
// is logged so the startup sequence can be followed without a display.
type Headless struct {
	mu      sync.Mutex
	windows map[string]*HeadlessWindow
	log     *logger.Logger
}

type HeadlessWindow struct {
	label   string
	visible bool
	focused bool
	owner   *Headless
}

// NewHeadless creates hidden windows for labels. The splash window, if
// present, starts visible.
func NewHeadless(log *logger.Logger, labels ...string) *Headless {
	h := &Headless{windows: map[string]*HeadlessWindow{}, log: log}
	for _, l := range labels {
		h.windows[l] = &HeadlessWindow{label: l, visible: l == SplashLabel, owner: h}
	}
	return h
}

func (h *Headless) Window(label string) (Window, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[label]
	if !ok {
		return nil, false
	}
	return w, true
}

// State reports whether label exists and whether it is visible and focused.
func (h *Headless) State(label string) (exists, visible, focused bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	w, ok := h.windows[label]
	if !ok {
		return false, false, false
	}
	return true, w.visible, w.focused
}

// Build implements TrayBuilder. Selections reach the tray through the API.
func (h *Headless) Build(menu Menu, _ func(id string)) error {
	ids := make([]string, 0, len(menu.Items))
	for _, it := range menu.Items {
		ids = append(ids, it.ID)
	}
	h.log.Info("tray installed", map[string]any{"items": ids})
	return nil
}

func (w *HeadlessWindow) Show() error {
	w.owner.mu.Lock()
	w.visible = true
	w.owner.mu.Unlock()
	w.owner.log.Info("window shown", map[string]any{"window": w.label})
	return nil
}

func (w *HeadlessWindow) SetFocus() error {
	w.owner.mu.Lock()
	for _, other := range w.owner.windows {
		other.focused = false
	}
	w.focused = true
	w.owner.mu.Unlock()
	w.owner.log.Info("window focused", map[string]any{"window": w.label})
	return nil
}

func (w *HeadlessWindow) Close() error {
	w.owner.mu.Lock()
	delete(w.owner.windows, w.label)
	w.visible, w.focused = false, false
	w.owner.mu.Unlock()
	w.owner.log.Info("window closed", map[string]any{"window": w.label})
	return nil
}
