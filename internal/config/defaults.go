package config

import (
	"os"
	"path/filepath"
	"time"
)

// testConfigPath is an override for the default config path used in testing
var testConfigPath string

// SetTestConfigPath sets a custom config path for testing purposes
func SetTestConfigPath(path string) {
	testConfigPath = path
}

// GetConfigDir returns the framehub configuration directory (~/.config/framehub on Unix)
func GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "framehub"), nil
}

// GetDefaultConfigPath returns the default config file path
func GetDefaultConfigPath() (string, error) {
	if testConfigPath != "" {
		return testConfigPath, nil
	}

	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// Storage drivers
const (
	StorageDriverBolt   = "bolt"
	StorageDriverSQLite = "sqlite"
	StorageDriverMemory = "memory"
)

// Module transports
const (
	TransportWebSocket = "ws"
	TransportGRPC      = "grpc"
)

const (
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"

	DefaultHubListenAddr = ":8080"
	DefaultBridgePath    = "/bridge/"
	DefaultLoginRoute    = "/login"
	DefaultHomeRoute     = "/employees/list"

	DefaultNavigationDebounce = 50 * time.Millisecond
	DefaultNavigationSettle   = 100 * time.Millisecond

	DefaultReadyTimeout = 5000 * time.Millisecond
	DefaultMinSkeleton  = 300 * time.Millisecond

	DefaultStorageDriver = StorageDriverBolt
	DefaultStorageFile   = "state.db"
	DefaultSidebarKey    = "framehub-sidebar-state"
	DefaultSessionKey    = "framehub-session"

	DefaultModuleTransport      = TransportWebSocket
	DefaultModuleHubURL         = "ws://localhost:8080/bridge"
	DefaultModuleHubGRPCAddr    = "localhost:9090"
	DefaultModuleRequestTimeout = 5 * time.Second
)

// Default returns a configuration with every section at its default
func Default() *Config {
	return &Config{
		Logging:    DefaultLoggingConfig(),
		Hub:        DefaultHubConfig(),
		Navigation: DefaultNavigationConfig(),
		Readiness:  DefaultReadinessConfig(),
		Storage:    DefaultStorageConfig(),
		Registry:   RegistryConfig{},
		Module:     DefaultModuleConfig(),
	}
}

// DefaultLoggingConfig returns the default logging configuration
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  DefaultLogLevel,
		Format: DefaultLogFormat,
		Output: "stderr",
	}
}

// DefaultHubConfig returns the default hub configuration
func DefaultHubConfig() HubConfig {
	return HubConfig{
		ListenAddr:   DefaultHubListenAddr,
		BridgePath:   DefaultBridgePath,
		LoginRoute:   DefaultLoginRoute,
		HomeRoute:    DefaultHomeRoute,
		PublicRoutes: []string{DefaultLoginRoute, "/errors/"},
	}
}

// DefaultNavigationConfig returns the default navigation synchronizer configuration
func DefaultNavigationConfig() NavigationConfig {
	return NavigationConfig{
		Debounce: DefaultNavigationDebounce,
		Settle:   DefaultNavigationSettle,
	}
}

// DefaultReadinessConfig returns the default readiness watchdog configuration
func DefaultReadinessConfig() ReadinessConfig {
	return ReadinessConfig{
		ReadyTimeout: DefaultReadyTimeout,
		MinSkeleton:  DefaultMinSkeleton,
	}
}

// DefaultStorageConfig returns the default storage configuration
func DefaultStorageConfig() StorageConfig {
	path := DefaultStorageFile
	if dir, err := GetConfigDir(); err == nil {
		path = filepath.Join(dir, DefaultStorageFile)
	}
	return StorageConfig{
		Driver:     DefaultStorageDriver,
		Path:       path,
		SidebarKey: DefaultSidebarKey,
		SessionKey: DefaultSessionKey,
	}
}

// DefaultModuleConfig returns the default module process configuration
func DefaultModuleConfig() ModuleConfig {
	return ModuleConfig{
		Transport:      DefaultModuleTransport,
		HubURL:         DefaultModuleHubURL,
		HubGRPCAddr:    DefaultModuleHubGRPCAddr,
		RequestTimeout: DefaultModuleRequestTimeout,
	}
}
