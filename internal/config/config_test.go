package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/billm/framehub/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 50*time.Millisecond, cfg.Navigation.Debounce)
	assert.Equal(t, 100*time.Millisecond, cfg.Navigation.Settle)
	assert.Equal(t, 5*time.Second, cfg.Readiness.ReadyTimeout)
	assert.Equal(t, 300*time.Millisecond, cfg.Readiness.MinSkeleton)
	assert.Equal(t, StorageDriverBolt, cfg.Storage.Driver)
	assert.Equal(t, []string{"/login", "/errors/"}, cfg.Hub.PublicRoutes)
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantCode string
		check    func(t *testing.T, cfg *Config)
	}{
		{
			name: "partial config gets defaults",
			content: `
logging:
  level: debug
hub:
  listen_addr: ":9999"
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Logging.Level)
				assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
				assert.Equal(t, ":9999", cfg.Hub.ListenAddr)
				assert.Equal(t, DefaultHomeRoute, cfg.Hub.HomeRoute)
				assert.Equal(t, DefaultNavigationDebounce, cfg.Navigation.Debounce)
			},
		},
		{
			name: "durations and module urls",
			content: `
navigation:
  debounce: 20ms
  settle: 250ms
  exclude_paths: ["/api", "/static"]
readiness:
  ready_timeout: 2s
  min_skeleton: 100ms
registry:
  module_urls:
    employees: http://emp.internal:3001
storage:
  driver: memory
`,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 20*time.Millisecond, cfg.Navigation.Debounce)
				assert.Equal(t, 250*time.Millisecond, cfg.Navigation.Settle)
				assert.Equal(t, []string{"/api", "/static"}, cfg.Navigation.ExcludePaths)
				assert.Equal(t, 2*time.Second, cfg.Readiness.ReadyTimeout)
				assert.Equal(t, "http://emp.internal:3001", cfg.Registry.ModuleURLs["employees"])
				assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
			},
		},
		{
			name:     "invalid yaml",
			content:  "logging: [unterminated",
			wantCode: types.ErrCodeInvalid,
		},
		{
			name:     "empty file",
			content:  "   \n",
			wantCode: types.ErrCodeInvalid,
		},
		{
			name: "unknown storage driver",
			content: `
storage:
  driver: redis
`,
			wantCode: types.ErrCodeInvalid,
		},
		{
			name: "skeleton longer than timeout",
			content: `
readiness:
  ready_timeout: 200ms
  min_skeleton: 300ms
`,
			wantCode: types.ErrCodeInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromFile(writeConfig(t, tt.content))
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, types.IsErrCode(err, tt.wantCode), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile("")
	assert.True(t, types.IsErrCode(err, types.ErrCodeInvalidArgument))

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "config.json"))
	assert.True(t, types.IsErrCode(err, types.ErrCodeInvalidArgument))

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, types.IsErrCode(err, types.ErrCodeNotFound))
}

func TestInterpolateEnvVars(t *testing.T) {
	t.Setenv("FRAMEHUB_TEST_HOST", "hub.internal")

	assert.Equal(t, "ws://hub.internal/bridge", interpolateEnvVars("ws://${FRAMEHUB_TEST_HOST}/bridge"))
	assert.Equal(t, "fallback", interpolateEnvVars("${FRAMEHUB_TEST_UNSET:-fallback}"))
	assert.Equal(t, "", interpolateEnvVars("${FRAMEHUB_TEST_UNSET}"))
	assert.Equal(t, "plain", interpolateEnvVars("plain"))
}

func TestLoadFromFileInterpolates(t *testing.T) {
	t.Setenv("FRAMEHUB_TEST_MODULE", "payroll")

	cfg, err := LoadFromFile(writeConfig(t, `
module:
  id: ${FRAMEHUB_TEST_MODULE}
  hub_url: ${FRAMEHUB_TEST_HUB:-ws://localhost:7000/bridge}
`))
	require.NoError(t, err)
	assert.Equal(t, "payroll", cfg.Module.ID)
	assert.Equal(t, "ws://localhost:7000/bridge", cfg.Module.HubURL)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("FRAMEHUB_LOG_LEVEL", "warn")
	t.Setenv("FRAMEHUB_NAV_DEBOUNCE", "75ms")
	t.Setenv("FRAMEHUB_HUB_PUBLIC_ROUTES", "/login,/errors/,/status")
	t.Setenv("FRAMEHUB_MODULE_URLS", "payroll=http://pay:3002,benefits=http://ben:3003")

	cfg := Default()
	require.NoError(t, ApplyEnv(cfg))

	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, 75*time.Millisecond, cfg.Navigation.Debounce)
	assert.Equal(t, []string{"/login", "/errors/", "/status"}, cfg.Hub.PublicRoutes)
	assert.Equal(t, "http://pay:3002", cfg.Registry.ModuleURLs["payroll"])
	assert.Equal(t, "http://ben:3003", cfg.Registry.ModuleURLs["benefits"])
	// untouched fields keep their values
	assert.Equal(t, DefaultHubListenAddr, cfg.Hub.ListenAddr)
}

func TestApplyEnvInvalidDuration(t *testing.T) {
	t.Setenv("FRAMEHUB_READY_TIMEOUT", "soon")

	err := ApplyEnv(Default())
	require.Error(t, err)
	assert.True(t, types.IsErrCode(err, types.ErrCodeInvalidArgument))
}

func TestLoadWithoutFile(t *testing.T) {
	SetTestConfigPath(filepath.Join(t.TempDir(), "absent.yaml"))
	t.Cleanup(func() { SetTestConfigPath("") })
	t.Setenv("FRAMEHUB_STORAGE_DRIVER", "memory")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(OverrideOptions{
		LogLevel:        "debug",
		ListenAddr:      ":7070",
		ModuleID:        "benefits",
		ModuleTransport: TransportGRPC,
		Standalone:      true,
	})

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, ":7070", cfg.Hub.ListenAddr)
	assert.Equal(t, "benefits", cfg.Module.ID)
	assert.Equal(t, TransportGRPC, cfg.Module.Transport)
	assert.True(t, cfg.Module.Standalone)
	// empty overrides leave values alone
	assert.Equal(t, DefaultLogFormat, cfg.Logging.Format)
}

func TestValidateModule(t *testing.T) {
	cfg := Default()
	assert.True(t, types.IsErrCode(cfg.ValidateModule(), types.ErrCodeInvalidArgument))

	cfg.Module.ID = "employees"
	assert.NoError(t, cfg.ValidateModule())

	cfg.Module.HubURL = "http://localhost:8080/bridge"
	assert.Error(t, cfg.ValidateModule())

	cfg.Module.Standalone = true
	assert.NoError(t, cfg.ValidateModule())
}

func TestConfigString(t *testing.T) {
	s := Default().String()
	assert.Contains(t, s, "HubConfig{ListenAddr: :8080")
	assert.Contains(t, s, "ReadinessConfig{ReadyTimeout: 5s, MinSkeleton: 300ms}")
}
