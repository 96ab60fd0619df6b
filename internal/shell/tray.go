package shell

import (
	"errors"
	"fmt"
	"sync"

	"github.com/0viii0viii/shelves/internal/logger"
)

// QuitID identifies the tray's quit item.
const QuitID = "quit"

var ErrUnknownMenuItem = errors.New("unknown menu item")

type MenuItem struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Enabled bool   `json:"enabled"`
}

type Menu struct {
	Items []MenuItem `json:"items"`
}

// TrayBuilder is implemented by the GUI toolkit. Build shows the tray icon
// with menu and arranges for onSelect to be called with the chosen item ID.
// The menu opens on left click as well as right click.
type TrayBuilder interface {
	Build(menu Menu, onSelect func(id string)) error
}

type Tray struct {
	mu       sync.Mutex
	menu     Menu
	handlers map[string]func()
	log      *logger.Logger
}

// NewTray returns the application tray: a single Quit item wired to quit.
func NewTray(quit func(), log *logger.Logger) *Tray {
	return &Tray{
		menu:     Menu{Items: []MenuItem{{ID: QuitID, Label: "Quit", Enabled: true}}},
		handlers: map[string]func(){QuitID: quit},
		log:      log,
	}
}

func (t *Tray) Menu() Menu {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Menu{Items: append([]MenuItem(nil), t.menu.Items...)}
}

// Install hands the menu to the toolkit.
func (t *Tray) Install(b TrayBuilder) error {
	if err := b.Build(t.Menu(), func(id string) {
		if err := t.Select(id); err != nil {
			t.log.Warn("tray selection", map[string]any{"id": id, "error": err.Error()})
		}
	}); err != nil {
		return fmt.Errorf("build tray: %w", err)
	}
	return nil
}

// Select runs the handler of the menu item id.
func (t *Tray) Select(id string) error {
	t.mu.Lock()
	h, ok := t.handlers[id]
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMenuItem, id)
	}
	t.log.Info("tray menu", map[string]any{"id": id})
	if h != nil {
		h()
	}
	return nil
}
