package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/srediag/perf-overlay/api"
	"github.com/srediag/perf-overlay/pkg/settings"
)

func TestBuildRequest(t *testing.T) {
	req, err := buildRequest("full", "", "")
	assert.NoError(t, err)
	assert.Equal(t, api.PresetFull, req.Desired)
	assert.False(t, req.DesiredEnabled.Valid())
	assert.False(t, req.DesiredKernelDriversLoaded.Valid())

	req, err = buildRequest("", "no", "yes")
	assert.NoError(t, err)
	assert.Equal(t, settings.OverlayEnabledNo, req.DesiredEnabled)
	assert.Equal(t, settings.KernelDriversLoadedYes, req.DesiredKernelDriversLoaded)

	_, err = buildRequest("", "", "")
	assert.Error(t, err)
	_, err = buildRequest("ultra", "", "")
	assert.Error(t, err)
	_, err = buildRequest("", "maybe", "")
	assert.Error(t, err)
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCommand()
	for _, name := range []string{"run", "set", "status", "power-control"} {
		cmd, _, err := root.Find([]string{name})
		assert.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
