package osd

import (
	"strconv"

	"github.com/valyala/bytebufferpool"

	"github.com/srediag/perf-overlay/adapter"
	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/pkg/sensors"
)

// Graph placeholders resolved by EmbedGraphs.
const (
	PlaceholderSmallGraph = "[OBJ_FT_SMALL]"
	PlaceholderLargeGraph = "[OBJ_FT_LARGE]"
)

const (
	colorLabel = "<C1>"
	colorValue = "<C0>"
	colorReset = "<C>"
)

var textPool bytebufferpool.Pool

// Template builds the overlay text for preset from readings. Every preset
// carries both graph placeholders. Readings that are missing render as "-". Undefined presets fall back to FPS.
func Template(preset api.Preset, r api.Readings) string {
	b := textPool.Get()
	defer textPool.Put(b)

	switch preset {
	case api.PresetMinimal:
		fps(b)
		b.WriteString(" " + PlaceholderSmallGraph)
		field(b, " ", "CPU", r, sensors.CPULoad, 0, "%")
		field(b, " ", "RAM", r, sensors.MemoryUsedGiB, 1, "GiB")
		b.WriteString("\n" + PlaceholderLargeGraph)
	case api.PresetDetail:
		fps(b)
		b.WriteString(" " + adapter.MacroFrametime + " ms\n")
		b.WriteString(PlaceholderSmallGraph + "\n")
		field(b, "", "CPU", r, sensors.CPULoad, 0, "%")
		field(b, " ", "", r, sensors.CPUTemperature, 0, "C")
		b.WriteString("\n")
		field(b, "", "RAM", r, sensors.MemoryUsedGiB, 1, "GiB")
		b.WriteString("\n" + PlaceholderLargeGraph)
	case api.PresetFull:
		fps(b)
		b.WriteString(" " + adapter.MacroFrametime + " ms\n")
		b.WriteString(PlaceholderSmallGraph + "\n")
		field(b, "", "CPU", r, sensors.CPULoad, 0, "%")
		field(b, " ", "", r, sensors.CPUFrequency, 0, "MHz")
		field(b, " ", "", r, sensors.CPUTemperature, 0, "C")
		b.WriteString("\n")
		field(b, "", "RAM", r, sensors.MemoryUsedGiB, 1, "GiB")
		field(b, " ", "", r, sensors.MemoryLoad, 0, "%")
		b.WriteString("\n")
		field(b, "", "LOAD", r, sensors.LoadAverage, 2, "")
		b.WriteString("\n" + PlaceholderLargeGraph)
	default:
		fps(b)
		b.WriteString(" " + PlaceholderSmallGraph + "\n" + PlaceholderLargeGraph)
	}
	return b.String()
}

func fps(b *bytebufferpool.ByteBuffer) {
	b.WriteString(colorLabel + "FPS " + colorValue + adapter.MacroFramerate + colorReset)
}

func field(b *bytebufferpool.ByteBuffer, sep, label string, r api.Readings, name string, prec int, unit string) {
	b.WriteString(sep)
	if label != "" {
		b.WriteString(colorLabel + label + " " + colorReset)
	}
	v, ok := r.Get(name)
	if !ok {
		b.WriteString("-")
		return
	}
	b.WriteString(colorValue + strconv.FormatFloat(v, 'f', prec, 64) + colorReset)
	b.WriteString(unit)
}
