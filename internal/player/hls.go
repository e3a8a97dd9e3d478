package player

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/grafov/m3u8"
)

// NativeName is the name of the first engine on the ladder.
const NativeName = "native"

// ErrNoVariants is reported for a master playlist without playable variants.
var ErrNoVariants = errors.New("master playlist has no variants")

// Getter performs a GET with extra headers.
type Getter interface {
	Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error)
}

// Native probes an HLS stream server-side: a decodable manifest counts as
// the first frame. Master playlist variants become quality levels.
type Native struct {
	client Getter

	mu     sync.Mutex
	parent context.Context
	cancel context.CancelFunc
	target Target
	ev     Events
	levels []Level
}

// NewNative returns a factory for native engines using client.
func NewNative(client Getter) Factory {
	return func() Engine { return &Native{client: client} }
}

func (n *Native) Name() string { return NativeName }

func (n *Native) Attach(ctx context.Context, t Target, ev Events) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.parent = ctx
	n.target = t
	n.ev = ev
	n.startLocked()
	return nil
}

// Recover probes the target again.
func (n *Native) Recover() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.parent == nil {
		return errors.New("native: not attached")
	}
	n.cancel()
	n.startLocked()
	return nil
}

func (n *Native) Teardown() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.cancel != nil {
		n.cancel()
	}
}

// Levels returns the variants found by the last successful probe.
func (n *Native) Levels() []Level {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Level(nil), n.levels...)
}

// Render writes an hls.js page for clients that decode the stream themselves.
func (n *Native) Render(w io.Writer, d PageData) error {
	return renderPage(w, NativeName, d)
}

func (n *Native) startLocked() {
	var ctx context.Context
	ctx, n.cancel = context.WithCancel(n.parent)
	go n.probe(ctx, n.target, n.ev)
}

func (n *Native) probe(ctx context.Context, t Target, ev Events) {
	body, err := n.client.Get(ctx, t.URL, t.Header)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		ev.Error(EngineError{Network: true, Err: err})
		return
	}
	levels, err := decodeManifest(body, t.URL)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		ev.Error(EngineError{Fatal: true, Err: err})
		return
	}
	n.mu.Lock()
	n.levels = levels
	n.mu.Unlock()
	ev.Ready()
}

// decodeManifest validates an HLS manifest and returns its variants with
// absolute URLs. A media playlist has no variants.
func decodeManifest(body []byte, base string) ([]Level, error) {
	pl, listType, err := m3u8.DecodeFrom(bufio.NewReader(bytes.NewReader(body)), false)
	if err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if listType != m3u8.MASTER {
		return nil, nil
	}
	master, ok := pl.(*m3u8.MasterPlaylist)
	if !ok {
		return nil, fmt.Errorf("decode manifest: unexpected %T", pl)
	}
	baseURL, _ := url.Parse(base)
	var levels []Level
	for _, v := range master.Variants {
		if v == nil || v.URI == "" || v.Iframe {
			continue
		}
		u := v.URI
		if baseURL != nil {
			if ref, err := url.Parse(v.URI); err == nil {
				u = baseURL.ResolveReference(ref).String()
			}
		}
		name := v.Name
		if name == "" && v.Resolution != "" {
			name = v.Resolution
		}
		if name == "" {
			name = fmt.Sprintf("%d kbps", v.Bandwidth/1000)
		}
		levels = append(levels, Level{
			Index:      len(levels),
			Name:       name,
			Bandwidth:  v.Bandwidth,
			Resolution: v.Resolution,
			URL:        u,
		})
	}
	if len(levels) == 0 {
		return nil, ErrNoVariants
	}
	return levels, nil
}
