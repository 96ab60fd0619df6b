package shell

import (
	"fmt"
	"sync"

	"github.com/0viii0viii/shelves/internal/logger"
)

// LinkSource is implemented by the OS integration that receives deep links.
// Current returns the URLs the process was started with, if any.
type LinkSource interface {
	Current() ([]string, error)
	OnOpen(func(urls []string)) error
}

// DeepLinks observes deep-link URLs. They are logged, not routed.
type DeepLinks struct {
	mu   sync.Mutex
	seen [][]string
	log  *logger.Logger
}

func NewDeepLinks(log *logger.Logger) *DeepLinks {
	return &DeepLinks{log: log}
}

// Register reads the start URLs of src and subscribes to later deliveries.
func (d *DeepLinks) Register(src LinkSource) error {
	urls, err := src.Current()
	if err != nil {
		return fmt.Errorf("deep link start urls: %w", err)
	}
	d.Open(urls)
	if err := src.OnOpen(d.Open); err != nil {
		return fmt.Errorf("deep link subscribe: %w", err)
	}
	return nil
}

// Open records one delivery. Empty deliveries are ignored.
func (d *DeepLinks) Open(urls []string) {
	if len(urls) == 0 {
		return
	}
	d.mu.Lock()
	d.seen = append(d.seen, append([]string(nil), urls...))
	d.mu.Unlock()
	d.log.Info("deep link URLs", map[string]any{"urls": urls})
}

// Received returns the number of deliveries so far.
func (d *DeepLinks) Received() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// ArgsSource serves start URLs taken from the command line; later URLs
// arrive through Deliver, which the forwarding endpoint calls.
type ArgsSource struct {
	mu      sync.Mutex
	urls    []string
	handler func([]string)
}

func NewArgsSource(urls []string) *ArgsSource {
	return &ArgsSource{urls: append([]string(nil), urls...)}
}

func (a *ArgsSource) Current() ([]string, error) { return a.urls, nil }

func (a *ArgsSource) OnOpen(fn func([]string)) error {
	a.mu.Lock()
	a.handler = fn
	a.mu.Unlock()
	return nil
}

func (a *ArgsSource) Deliver(urls []string) {
	a.mu.Lock()
	fn := a.handler
	a.mu.Unlock()
	if fn != nil {
		fn(urls)
	}
}
