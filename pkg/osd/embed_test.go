package osd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srediag/perf-overlay/adapter"
	"github.com/srediag/perf-overlay/api"
)

const bothGraphs = "a " + PlaceholderSmallGraph + " b " + PlaceholderLargeGraph

func embedWith(sizes ...uint32) (*fakeHandle, string) {
	h := &fakeHandle{r: &fakeRenderer{}, sizes: sizes}
	return h, EmbedGraphs(h, bothGraphs)
}

func TestEmbedGraphs_OffsetsAreCumulative(t *testing.T) {
	h, text := embedWith(96, 160)
	assert.Len(t, h.embeds, 2)
	assert.Equal(t, uint32(0), h.embeds[0].offset)
	assert.GreaterOrEqual(t, h.embeds[1].offset, h.embeds[0].offset+96)
	assert.Equal(t, "a <OBJ=0> b <OBJ=60>", text)
}

func TestEmbedGraphs_RejectedFirstKeepsOffset(t *testing.T) {
	h, text := embedWith(0, 160)
	assert.Equal(t, h.embeds[0].offset, h.embeds[1].offset)
	assert.Equal(t, "a "+PlaceholderSmallGraph+" b <OBJ=0>", text)
}

func TestEmbedGraphs_BothRejectedPassThrough(t *testing.T) {
	_, text := embedWith(0, 0)
	assert.Equal(t, bothGraphs, text)
}

func TestEmbedGraphs_FixedOrderAndShape(t *testing.T) {
	h, _ := embedWith(1, 1)
	small, large := h.embeds[0].graph, h.embeds[1].graph
	assert.Equal(t, adapter.GraphSpec{Width: -8, Height: -1, Margin: 1, Min: 0, Max: 50000, Flags: adapter.GraphFrametime}, small)
	assert.Equal(t, int32(-32), large.Width)
	assert.Equal(t, int32(-2), large.Height)
}

func TestEmbedGraphs_MissingPlaceholderStillAdvances(t *testing.T) {
	h := &fakeHandle{r: &fakeRenderer{}, sizes: []uint32{40, 40}}
	text := EmbedGraphs(h, "only "+PlaceholderLargeGraph)
	assert.Equal(t, "only <OBJ=28>", text)
}

func TestTemplate_Presets(t *testing.T) {
	r := api.Readings{"cpu.load": 12.6, "memory.used": 3.4}
	for _, p := range api.Presets() {
		text := Template(p, r)
		assert.True(t, strings.Contains(text, PlaceholderSmallGraph), p.String())
		assert.True(t, strings.Contains(text, PlaceholderLargeGraph), p.String())
		assert.Less(t, strings.Index(text, PlaceholderSmallGraph), strings.Index(text, PlaceholderLargeGraph), p.String())
		assert.Contains(t, text, adapter.MacroFramerate)
	}
	assert.Contains(t, Template(api.PresetMinimal, r), "13")
	assert.Contains(t, Template(api.PresetMinimal, r), "3.4")
	assert.NotContains(t, Template(api.PresetFPS, r), "CPU")
}

func TestTemplate_MissingReadings(t *testing.T) {
	text := Template(api.PresetFull, nil)
	assert.Contains(t, text, "CPU <C>-")
	assert.Equal(t, Template(api.PresetFPS, nil), Template(api.Preset(0), nil))
}
