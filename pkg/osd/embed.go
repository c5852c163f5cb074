package osd

import (
	"strings"

	"github.com/srediag/perf-overlay/adapter"
)

type graphSlot struct {
	placeholder string
	graph       adapter.GraphSpec
}

// Embedding order is fixed; a rejected graph leaves its offset to the next.
var graphSlots = []graphSlot{
	{PlaceholderSmallGraph, adapter.GraphSpec{Width: -8, Height: -1, Margin: 1, Min: 0, Max: 50000, Flags: adapter.GraphFrametime}},
	{PlaceholderLargeGraph, adapter.GraphSpec{Width: -32, Height: -2, Margin: 1, Min: 0, Max: 50000, Flags: adapter.GraphFrametime}},
}

// EmbedGraphs allocates both frame time graphs in h and replaces their
// placeholders in text with object references. Offsets start at zero on
// every call. A graph the renderer rejects keeps its placeholder verbatim.
func EmbedGraphs(h adapter.Handle, text string) string {
	var offset uint32
	for _, g := range graphSlots {
		size := h.EmbedGraph(offset, g.graph)
		if size > 0 {
			text = strings.ReplaceAll(text, g.placeholder, adapter.ObjectTag(offset))
		}
		offset += size
	}
	return text
}
