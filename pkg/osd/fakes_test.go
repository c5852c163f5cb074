package osd

import (
	"context"
	"sync"

	"github.com/srediag/perf-overlay/adapter"
	"github.com/srediag/perf-overlay/api"
)

type embedCall struct {
	offset uint32
	graph  adapter.GraphSpec
}

type fakeHandle struct {
	r      *fakeRenderer
	id     int
	sizes  []uint32
	embeds []embedCall
	texts  []string
	closed bool
}

func (h *fakeHandle) EmbedGraph(offset uint32, g adapter.GraphSpec) uint32 {
	h.r.calls++
	i := len(h.embeds)
	h.embeds = append(h.embeds, embedCall{offset, g})
	if len(h.sizes) > 0 {
		return h.sizes[i%len(h.sizes)]
	}
	return 64
}

func (h *fakeHandle) Update(text string) error {
	h.r.calls++
	if h.r.down || h.r.failUpdate {
		return adapter.ErrRendererUnavailable
	}
	h.texts = append(h.texts, text)
	h.r.last = text
	return nil
}

func (h *fakeHandle) Close() {
	h.closed = true
}

type fakeRenderer struct {
	down       bool
	failUpdate bool
	index      int
	sizes      []uint32
	calls      int
	opened     []*fakeHandle
	last       string
	version    string
}

func (r *fakeRenderer) SlotIndex(string) int {
	r.calls++
	return r.index
}

func (r *fakeRenderer) Open(string) (adapter.Handle, error) {
	r.calls++
	if r.down {
		return nil, adapter.ErrRendererUnavailable
	}
	h := &fakeHandle{r: r, id: len(r.opened), sizes: r.sizes}
	r.opened = append(r.opened, h)
	return h, nil
}

func (r *fakeRenderer) QueryVersion() (string, error) {
	r.calls++
	if r.down {
		return "", adapter.ErrRendererUnavailable
	}
	if r.version == "" {
		return "7.3.6", nil
	}
	return r.version, nil
}

func (r *fakeRenderer) current() *fakeHandle {
	if len(r.opened) == 0 {
		return nil
	}
	return r.opened[len(r.opened)-1]
}

type fakeSensors struct {
	polls      int
	closes     int
	panicClose bool
	r          api.Readings
}

func (s *fakeSensors) Update(context.Context) (api.Readings, error) {
	s.polls++
	return s.r, nil
}

func (s *fakeSensors) Close() error {
	s.closes++
	if s.panicClose {
		panic("sensor driver gone")
	}
	return nil
}

type memorySettings struct {
	mu sync.Mutex
	s  api.Settings
}

func (m *memorySettings) Get() api.Settings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}

func (m *memorySettings) Set(s api.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.s = s
	return nil
}

type recordingStatus struct {
	available   int
	unavailable int
	version     string
}

func (s *recordingStatus) Available(v string) {
	s.available++
	s.version = v
}

func (s *recordingStatus) Unavailable(error) {
	s.unavailable++
}

type countingReconciler struct {
	n int
}

func (c *countingReconciler) Reconcile(context.Context) (bool, error) {
	c.n++
	return false, nil
}
