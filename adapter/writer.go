package adapter

import (
	"fmt"
	"io"
	"sync"
)

// WriterRenderer is a stand-in renderer host that prints every update to an
// io.Writer. It tracks slot ownership and a bounded object table the way a
// real host does, which makes it usable for demos and for driving the
// overlay without the host installed.
type WriterRenderer struct {
	mu        sync.Mutex
	out       io.Writer
	version   string
	capacity  uint32
	graphSize uint32
	slots     []string
	down      bool
	last      string
}

// WriterOptions configure a WriterRenderer.
type WriterOptions struct {
	Version string
	// ObjectCapacity is the size of each slot's embedded object table.
	ObjectCapacity uint32
	// GraphSize is the space one graph object takes.
	GraphSize uint32
}

// NewWriterRenderer returns a renderer printing to out.
func NewWriterRenderer(out io.Writer, opts WriterOptions) *WriterRenderer {
	if opts.Version == "" {
		opts.Version = "writer-1.0"
	}
	if opts.ObjectCapacity == 0 {
		opts.ObjectCapacity = 256
	}
	if opts.GraphSize == 0 {
		opts.GraphSize = 96
	}
	return &WriterRenderer{
		out:       out,
		version:   opts.Version,
		capacity:  opts.ObjectCapacity,
		graphSize: opts.GraphSize,
	}
}

// SetAvailable simulates the host starting or stopping. Stopping drops
// every slot.
func (w *WriterRenderer) SetAvailable(up bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.down = !up
	if !up {
		w.slots = nil
	}
}

// Claim occupies the next free slot for name, as a sibling process would.
func (w *WriterRenderer) Claim(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.slots = append(w.slots, name)
}

// LastText returns the text of the latest update.
func (w *WriterRenderer) LastText() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

func (w *WriterRenderer) SlotIndex(name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, s := range w.slots {
		if s == name {
			return i
		}
	}
	return -1
}

func (w *WriterRenderer) Open(name string) (Handle, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.down {
		return nil, fmt.Errorf("open %s: %w", name, ErrRendererUnavailable)
	}
	w.slots = append(w.slots, name)
	return &writerHandle{r: w, name: name, index: len(w.slots) - 1}, nil
}

func (w *WriterRenderer) QueryVersion() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.down {
		return "", ErrRendererUnavailable
	}
	return w.version, nil
}

type writerHandle struct {
	r      *WriterRenderer
	name   string
	index  int
	closed bool
}

func (h *writerHandle) EmbedGraph(offset uint32, g GraphSpec) uint32 {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	if h.closed || h.r.down || offset+h.r.graphSize > h.r.capacity {
		return 0
	}
	return h.r.graphSize
}

func (h *writerHandle) Update(text string) error {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	if h.closed || h.r.down {
		return fmt.Errorf("update %s: %w", h.name, ErrRendererUnavailable)
	}
	h.r.last = text
	if _, err := fmt.Fprintf(h.r.out, "[%s#%d] %s\n", h.name, h.index, text); err != nil {
		return fmt.Errorf("update %s: %w", h.name, err)
	}
	return nil
}

func (h *writerHandle) Close() {
	h.r.mu.Lock()
	defer h.r.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for i, s := range h.r.slots {
		if s == h.name && i == h.index {
			h.r.slots = append(h.r.slots[:i], h.r.slots[i+1:]...)
			return
		}
	}
}
