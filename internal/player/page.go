package player

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"sync"
)

// Page engine names, in ladder order after the native engine.
const (
	ClapprName  = "clappr"
	DPlayerName = "dplayer"
	VideoJSName = "videojs"
)

// ErrNoRecovery is returned by engines that cannot retry in place.
var ErrNoRecovery = errors.New("engine cannot recover in place")

//go:embed pages/*.html
var pagesFS embed.FS

var pages = template.Must(template.ParseFS(pagesFS, "pages/*.html"))

func renderPage(w io.Writer, name string, d PageData) error {
	if err := pages.ExecuteTemplate(w, name+".html", d); err != nil {
		return fmt.Errorf("render %s page: %w", name, err)
	}
	return nil
}

// Page is an engine that plays in a client-side player page. The client
// reports ready and error events back through the session and reloads
// its source in place when a recoverable error is accepted.
type Page struct {
	name string

	mu       sync.Mutex
	attached bool
	reloads  int
}

// NewPage returns a factory for the named page engine.
func NewPage(name string) (Factory, error) {
	if name == "report" || pages.Lookup(name+".html") == nil {
		return nil, fmt.Errorf("unknown page engine %q", name)
	}
	return func() Engine { return &Page{name: name} }, nil
}

func (p *Page) Name() string { return p.name }

func (p *Page) Attach(_ context.Context, _ Target, _ Events) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attached = true
	p.reloads = 0
	return nil
}

// Recover asks the client page to reload the source. The page learns it
// from the snapshot returned for its error report.
func (p *Page) Recover() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.attached {
		return ErrNoRecovery
	}
	p.reloads++
	return nil
}

// Reloads reports how many in-place reloads the current attach asked for.
func (p *Page) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Page) Teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attached = false
}

func (p *Page) Render(w io.Writer, d PageData) error {
	p.mu.Lock()
	attached := p.attached
	p.mu.Unlock()
	if !attached {
		return ErrNoPage
	}
	return renderPage(w, p.name, d)
}

// Ladder builds engine factories for names in order.
func Ladder(names []string, client Getter) ([]Factory, error) {
	ladder := make([]Factory, 0, len(names))
	for _, name := range names {
		if name == NativeName {
			ladder = append(ladder, NewNative(client))
			continue
		}
		f, err := NewPage(name)
		if err != nil {
			return nil, err
		}
		ladder = append(ladder, f)
	}
	return ladder, nil
}
