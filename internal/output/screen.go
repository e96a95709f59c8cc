package output

import (
	"fmt"
	"io"
	"sync"

	"shoplist/internal/list"
	"shoplist/internal/store"
)

// Screen is a list.Renderer that keeps the last frame it was given.
// The CLI flushes it once a command finishes; the web API reads it as JSON.
type Screen struct {
	mu      sync.Mutex
	items   []store.Item
	filter  list.Filter
	stats   list.Stats
	renders int
}

// Frame is one rendered state of the list.
type Frame struct {
	Items  []store.Item `json:"items"`
	Filter list.Filter  `json:"filter"`
	Stats  list.Stats   `json:"stats"`
}

// NewScreen returns an empty Screen.
func NewScreen() *Screen {
	return &Screen{filter: list.FilterAll}
}

// Render implements list.Renderer.
func (s *Screen) Render(items []store.Item, filter list.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]store.Item(nil), items...)
	s.filter = filter
	s.renders++
}

// RenderStats implements list.Renderer.
func (s *Screen) RenderStats(stats list.Stats) {
	s.mu.Lock()
	s.stats = stats
	s.mu.Unlock()
}

// Renders returns how many times Render was called.
func (s *Screen) Renders() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.renders
}

// Frame returns a copy of the last frame.
func (s *Screen) Frame() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := append([]store.Item{}, s.items...)
	return Frame{Items: items, Filter: s.filter, Stats: s.stats}
}

// Flush writes the last frame: the numbered items or the empty message,
// a separator and the stats line.
func (s *Screen) Flush(w io.Writer) {
	f := s.Frame()
	if f.Filter != list.FilterAll {
		fmt.Fprintf(w, "[%s]\n", f.Filter)
	}
	FormatList(w, f.Items, f.Filter)
	fmt.Fprintln(w, ListSeparator)
	FormatStats(w, f.Stats)
}
