package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/srediag/perf-overlay/api"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func (s *ConfigTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *ConfigTestSuite) TestVerifyConfig() {
	config := DefaultConfig()
	s.Require().Nil(VerifyConfig(config))

	config.Preset = 0
	s.Require().ErrorIs(VerifyConfig(config), ErrInvalidConfig)
	config.Preset = api.PresetFull

	config.RendererName = ""
	s.Require().NotNil(VerifyConfig(config))
	config.RendererName = "osd"

	config.VisibleInterval = time.Millisecond
	s.Require().NotNil(VerifyConfig(config))
	config.VisibleInterval = 2 * time.Second
	s.Require().NotNil(VerifyConfig(config), "hidden shorter than visible")
	config.VisibleInterval = defaultVisibleInterval

	config.LockTimeout = 0
	s.Require().NotNil(VerifyConfig(config))
	config.LockTimeout = time.Second

	config.HealthAddr = "nope"
	s.Require().NotNil(VerifyConfig(config))
	config.HealthAddr = "127.0.0.1:9464"
	s.Require().Nil(VerifyConfig(config))

	s.Require().NotNil(VerifyConfig(nil))
}

func (s *ConfigTestSuite) TestLoadMissingFileGivesDefaults() {
	config, err := Load(filepath.Join(s.dir, "absent.yaml"))
	s.Require().NoError(err)
	s.Require().Equal(DefaultConfig(), config)
}

func (s *ConfigTestSuite) TestLoadOverridesDefaults() {
	path := filepath.Join(s.dir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("preset: detail\nshow_osd: false\nvisible_interval: 100ms\n"), 0o600))

	config, err := Load(path)
	s.Require().NoError(err)
	s.Require().Equal(api.PresetDetail, config.Preset)
	s.Require().False(config.ShowOSD)
	s.Require().Equal(100*time.Millisecond, config.VisibleInterval)
	s.Require().Equal(defaultHiddenInterval, config.HiddenInterval)
	s.Require().Equal(defaultRendererName, config.RendererName)
}

func (s *ConfigTestSuite) TestLoadRejectsBadFiles() {
	path := filepath.Join(s.dir, "config.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("preset: ultra\n"), 0o600))
	_, err := Load(path)
	s.Require().Error(err)

	s.Require().NoError(os.WriteFile(path, []byte("lock_timeout: 0s\n"), 0o600))
	_, err = Load(path)
	s.Require().ErrorIs(err, ErrInvalidConfig)
}

func (s *ConfigTestSuite) TestStoreRoundTrip() {
	path := filepath.Join(s.dir, "nested", "config.yaml")
	store, err := Open(path)
	s.Require().NoError(err)

	want := api.Settings{Preset: api.PresetFull, Visible: false, KernelDrivers: true, FullOnPowerControl: true}
	s.Require().NoError(store.Set(want))
	s.Require().Equal(want, store.Get())

	reopened, err := Open(path)
	s.Require().NoError(err)
	s.Require().Equal(want, reopened.Get())
	s.Require().Equal(defaultRendererName, reopened.Config().RendererName)

	entries, err := os.ReadDir(filepath.Dir(path))
	s.Require().NoError(err)
	s.Require().Len(entries, 1, "no temp files left behind")
}

func (s *ConfigTestSuite) TestStoreSkipsUnchangedWrites() {
	path := filepath.Join(s.dir, "config.yaml")
	store := NewStore(path, DefaultConfig())
	s.Require().NoError(store.Set(store.Get()))
	_, err := os.Stat(path)
	s.Require().True(os.IsNotExist(err))

	s.Require().NoError(store.Persist())
	_, err = os.Stat(path)
	s.Require().NoError(err)
}

func (s *ConfigTestSuite) TestStoreRejectsUndefinedPreset() {
	store := NewStore("", DefaultConfig())
	s.Require().ErrorIs(store.Set(api.Settings{Preset: 7}), ErrInvalidConfig)
	s.Require().Equal(api.PresetFPS, store.Get().Preset)
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
