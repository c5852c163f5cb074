package osd

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/suite"

	"github.com/srediag/perf-overlay/adapter"
	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/pkg/sensors"
)

type LoopTestSuite struct {
	suite.Suite
	ctx      context.Context
	renderer *fakeRenderer
	sensors  *fakeSensors
	local    *memorySettings
	status   *recordingStatus
	rec      *countingReconciler
	power    bool
	metrics  *Metrics
	loop     *Loop
}

func (s *LoopTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.renderer = &fakeRenderer{}
	s.sensors = &fakeSensors{r: api.Readings{sensors.CPULoad: 42}}
	s.local = &memorySettings{s: api.Settings{Preset: api.PresetMinimal, Visible: true}}
	s.status = &recordingStatus{}
	s.rec = &countingReconciler{}
	s.power = false
	s.metrics = NewMetrics(prometheus.NewRegistry())
	var err error
	s.loop, err = NewLoop(Options{
		Renderer:     s.renderer,
		Sensors:      s.sensors,
		Local:        s.local,
		Reconciler:   s.rec,
		PowerControl: func(context.Context) bool { return s.power },
		Status:       s.status,
		Metrics:      s.metrics,
	})
	s.Require().NoError(err)
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	_ = c.Write(m)
	return m.GetCounter().GetValue()
}

func (s *LoopTestSuite) TestNewLoopRequiresCollaborators() {
	_, err := NewLoop(Options{})
	s.Require().Error(err)
}

func (s *LoopTestSuite) TestVisibleTickRenders() {
	next := s.loop.Tick(s.ctx)
	s.Require().Equal(DefaultVisibleInterval, next)
	s.Require().Equal(StateIdle, s.loop.State())
	s.Require().Equal(1, s.rec.n)
	s.Require().Equal(1, s.sensors.polls)
	s.Require().True(s.loop.RendererAvailable())
	s.Require().False(s.loop.LastTick().IsZero())
	s.Require().Equal("7.3.6", s.status.version)

	h := s.renderer.current()
	s.Require().NotNil(h)
	s.Require().Contains(h.texts[0], "<OBJ=0>")
	s.Require().Contains(h.texts[0], "42")
	s.Require().Contains(h.texts[0], "<OBJ=40>")
	s.Require().NotContains(h.texts[0], PlaceholderSmallGraph)
	s.Require().NotContains(h.texts[0], PlaceholderLargeGraph)
	s.Require().Equal(1.0, counterValue(s.metrics.Ticks.WithLabelValues("idle")))
}

// Hidden overlays are polled slowly and never touch sensors.
func (s *LoopTestSuite) TestVisibilityGatedCadence() {
	s.local.s.Visible = false
	for i := 0; i < 3; i++ {
		s.Require().Equal(time.Second, s.loop.Tick(s.ctx))
		s.Require().Equal(0, s.sensors.polls)
	}
	s.Require().Nil(s.renderer.current())

	s.local.s.Visible = true
	for i := 1; i <= 3; i++ {
		s.Require().Equal(250*time.Millisecond, s.loop.Tick(s.ctx))
		s.Require().Equal(i, s.sensors.polls)
	}

	s.local.s.Visible = false
	s.Require().Equal(time.Second, s.loop.Tick(s.ctx))
	s.Require().Equal(3, s.sensors.polls)
	s.Require().Equal("", s.renderer.last, "hidden overlay is cleared")
}

func (s *LoopTestSuite) TestDegradeAndRecover() {
	s.loop.Tick(s.ctx)
	first := s.renderer.current()

	s.renderer.down = true
	s.Require().Equal(time.Second, s.loop.Tick(s.ctx))
	s.Require().Equal(StateDegraded, s.loop.State())
	s.Require().False(s.loop.RendererAvailable())
	s.Require().True(first.closed, "handle dropped")
	s.Require().Equal(1, s.status.unavailable)
	s.Require().Equal(1.0, counterValue(s.metrics.Degraded))

	calls := s.renderer.calls
	s.Require().Equal(StateDegraded, s.loop.State())
	s.Require().Equal(calls, s.renderer.calls, "no renderer call between ticks")

	s.renderer.down = false
	s.Require().Equal(DefaultVisibleInterval, s.loop.Tick(s.ctx))
	s.Require().Equal(StateIdle, s.loop.State())
	s.Require().Len(s.renderer.opened, 2)
	second := s.renderer.current()
	s.Require().NotSame(first, second)
	s.Require().Len(second.texts, 1)
	s.Require().True(s.loop.RendererAvailable())
}

func (s *LoopTestSuite) TestUpdateFailureDegrades() {
	s.loop.Tick(s.ctx)
	h := s.renderer.current()

	s.renderer.failUpdate = true
	s.Require().Equal(time.Second, s.loop.Tick(s.ctx))
	s.Require().Equal(StateDegraded, s.loop.State())
	s.Require().True(h.closed)
	s.Require().Equal(1, s.status.unavailable)
}

func (s *LoopTestSuite) TestPowerControlOverrideIsNonSticky() {
	s.local.s.FullOnPowerControl = true

	s.power = true
	s.loop.Tick(s.ctx)
	s.Require().Contains(s.renderer.last, "LOAD", "richest preset while panel shown")

	s.power = false
	s.loop.Tick(s.ctx)
	s.Require().NotContains(s.renderer.last, "LOAD")
	s.Require().Equal(api.PresetMinimal, s.local.Get().Preset)
}

func (s *LoopTestSuite) TestPowerControlOverrideNeedsOptIn() {
	s.power = true
	s.loop.Tick(s.ctx)
	s.Require().NotContains(s.renderer.last, "LOAD")
}

func (s *LoopTestSuite) TestPowerControlNeverShowsHiddenOverlay() {
	s.local.s.FullOnPowerControl = true
	s.local.s.Visible = false
	s.power = true
	s.Require().Equal(time.Second, s.loop.Tick(s.ctx))
	s.Require().Equal(0, s.sensors.polls)
	s.Require().Nil(s.renderer.current())
}

func (s *LoopTestSuite) TestSlotChurnRecreatesHandle() {
	s.loop.Tick(s.ctx)
	s.Require().Len(s.renderer.opened, 1)

	s.renderer.index = 1
	s.loop.Tick(s.ctx)
	s.Require().Len(s.renderer.opened, 2)
	s.Require().True(s.renderer.opened[0].closed)
	s.Require().Equal(1.0, counterValue(s.metrics.Reopens))

	s.renderer.index = 0
	s.loop.Tick(s.ctx)
	s.Require().Len(s.renderer.opened, 2)
}

func (s *LoopTestSuite) TestOffsetsResetEveryTick() {
	s.loop.Tick(s.ctx)
	s.loop.Tick(s.ctx)
	h := s.renderer.current()
	s.Require().Len(h.embeds, 4)
	s.Require().Equal(uint32(0), h.embeds[0].offset)
	s.Require().Equal(uint32(0), h.embeds[2].offset)
}

func (s *LoopTestSuite) TestCloseRunsOnce() {
	s.loop.Tick(s.ctx)
	h := s.renderer.current()
	s.loop.Close()
	s.loop.Close()
	s.Require().True(h.closed)
	s.Require().Equal(1, s.sensors.closes)

	calls := s.renderer.calls
	s.Require().Equal(time.Second, s.loop.Tick(s.ctx))
	s.Require().Equal(calls, s.renderer.calls)
}

func (s *LoopTestSuite) TestCloseSurvivesPanickingSensors() {
	s.loop.Tick(s.ctx)
	h := s.renderer.current()
	s.sensors.panicClose = true
	s.Require().NotPanics(s.loop.Close)
	s.Require().True(h.closed)
	s.Require().Equal(1, s.sensors.closes)
	s.Require().Equal(StateIdle, s.loop.State())
}

func (s *LoopTestSuite) TestWriterRendererEndToEnd() {
	var out strings.Builder
	r := adapter.NewWriterRenderer(&out, adapter.WriterOptions{})
	loop, err := NewLoop(Options{Renderer: r, Sensors: s.sensors, Local: s.local})
	s.Require().NoError(err)
	defer loop.Close()

	loop.Tick(s.ctx)
	s.Require().Contains(r.LastText(), "<OBJ=0>")
	s.Require().Equal(0, r.SlotIndex(DefaultName))
}

func TestLoopTestSuite(t *testing.T) {
	suite.Run(t, new(LoopTestSuite))
}
