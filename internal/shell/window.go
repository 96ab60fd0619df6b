// Package shell drives the desktop side of the application: the splash to
// main window swap, the tray menu and deep links. GUI toolkits plug in
// through the Windows, TrayBuilder and LinkSource interfaces.
package shell

// Window labels known to the application.
const (
	SplashLabel = "splashscreen"
	MainLabel   = "main"
)

type Window interface {
	Show() error
	Close() error
	SetFocus() error
}

// Windows looks up live windows by label. Closed windows are absent.
type Windows interface {
	Window(label string) (Window, bool)
}
