package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/billm/framehub/pkg/types"
)

// Config represents the complete framehub configuration
type Config struct {
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Hub        HubConfig        `json:"hub" yaml:"hub"`
	Navigation NavigationConfig `json:"navigation" yaml:"navigation"`
	Readiness  ReadinessConfig  `json:"readiness" yaml:"readiness"`
	Storage    StorageConfig    `json:"storage" yaml:"storage"`
	Registry   RegistryConfig   `json:"registry" yaml:"registry"`
	Module     ModuleConfig     `json:"module" yaml:"module"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" env:"FRAMEHUB_LOG_LEVEL"`    // debug, info, warn, error
	Format string `json:"format" yaml:"format" env:"FRAMEHUB_LOG_FORMAT"` // json, text
	Output string `json:"output" yaml:"output" env:"FRAMEHUB_LOG_OUTPUT"` // stdout, stderr, file path
}

// HubConfig contains the shell process configuration
type HubConfig struct {
	ListenAddr   string   `json:"listen_addr" yaml:"listen_addr" env:"FRAMEHUB_HUB_LISTEN_ADDR"`
	GRPCAddr     string   `json:"grpc_addr" yaml:"grpc_addr" env:"FRAMEHUB_HUB_GRPC_ADDR"` // empty disables the gRPC bridge
	BridgePath   string   `json:"bridge_path" yaml:"bridge_path" env:"FRAMEHUB_HUB_BRIDGE_PATH"`
	LoginRoute   string   `json:"login_route" yaml:"login_route" env:"FRAMEHUB_HUB_LOGIN_ROUTE"`
	HomeRoute    string   `json:"home_route" yaml:"home_route" env:"FRAMEHUB_HUB_HOME_ROUTE"`
	PublicRoutes []string `json:"public_routes" yaml:"public_routes" env:"FRAMEHUB_HUB_PUBLIC_ROUTES" envSeparator:","`
	// DemoUser signs in automatically on startup when set.
	DemoUser UserConfig `json:"demo_user" yaml:"demo_user"`
}

// UserConfig describes a user profile supplied through configuration
type UserConfig struct {
	ID     string `json:"id" yaml:"id" env:"FRAMEHUB_DEMO_USER_ID"`
	Name   string `json:"name" yaml:"name" env:"FRAMEHUB_DEMO_USER_NAME"`
	Email  string `json:"email" yaml:"email" env:"FRAMEHUB_DEMO_USER_EMAIL"`
	Avatar string `json:"avatar,omitempty" yaml:"avatar,omitempty"`
}

// Enabled reports whether a user has been configured
func (u UserConfig) Enabled() bool {
	return u.ID != ""
}

// NavigationConfig contains the module-side navigation synchronizer settings
type NavigationConfig struct {
	Debounce     time.Duration `json:"debounce" yaml:"debounce" env:"FRAMEHUB_NAV_DEBOUNCE"`
	Settle       time.Duration `json:"settle" yaml:"settle" env:"FRAMEHUB_NAV_SETTLE"`
	ExcludePaths []string      `json:"exclude_paths" yaml:"exclude_paths" env:"FRAMEHUB_NAV_EXCLUDE_PATHS" envSeparator:","`
}

// ReadinessConfig contains the module readiness watchdog settings
type ReadinessConfig struct {
	ReadyTimeout time.Duration `json:"ready_timeout" yaml:"ready_timeout" env:"FRAMEHUB_READY_TIMEOUT"`
	MinSkeleton  time.Duration `json:"min_skeleton" yaml:"min_skeleton" env:"FRAMEHUB_MIN_SKELETON"`
}

// StorageConfig contains the persisted key-value store settings
type StorageConfig struct {
	Driver     string `json:"driver" yaml:"driver" env:"FRAMEHUB_STORAGE_DRIVER"` // bolt, sqlite, memory
	Path       string `json:"path" yaml:"path" env:"FRAMEHUB_STORAGE_PATH"`
	SidebarKey string `json:"sidebar_key" yaml:"sidebar_key"`
	SessionKey string `json:"session_key" yaml:"session_key"`
}

// RegistryConfig points at the module registry and navigation tree
type RegistryConfig struct {
	// File is an optional YAML registry; the built-in registry is used when empty.
	File string `json:"file" yaml:"file" env:"FRAMEHUB_REGISTRY_FILE"`
	// ModuleURLs overrides module base URLs by module id.
	ModuleURLs map[string]string `json:"module_urls" yaml:"module_urls" env:"FRAMEHUB_MODULE_URLS" envSeparator:"," envKeyValSeparator:"="`
}

// ModuleConfig contains settings for a module process connecting to a hub
type ModuleConfig struct {
	ID             string        `json:"id" yaml:"id" env:"FRAMEHUB_MODULE_ID"`
	Transport      string        `json:"transport" yaml:"transport" env:"FRAMEHUB_MODULE_TRANSPORT"` // ws, grpc
	HubURL         string        `json:"hub_url" yaml:"hub_url" env:"FRAMEHUB_MODULE_HUB_URL"`
	HubGRPCAddr    string        `json:"hub_grpc_addr" yaml:"hub_grpc_addr" env:"FRAMEHUB_MODULE_HUB_GRPC_ADDR"`
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" env:"FRAMEHUB_MODULE_REQUEST_TIMEOUT"`
	// Standalone runs the module without connecting to a hub.
	Standalone bool `json:"standalone" yaml:"standalone" env:"FRAMEHUB_MODULE_STANDALONE"`
}

// applyDefaults fills in zero-valued config fields with their defaults.
// Partial YAML files leave most fields empty, so defaults go field by field.
func applyDefaults(cfg *Config) {
	defLogging := DefaultLoggingConfig()
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defLogging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defLogging.Format
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = defLogging.Output
	}

	defHub := DefaultHubConfig()
	if cfg.Hub.ListenAddr == "" {
		cfg.Hub.ListenAddr = defHub.ListenAddr
	}
	if cfg.Hub.BridgePath == "" {
		cfg.Hub.BridgePath = defHub.BridgePath
	}
	if cfg.Hub.LoginRoute == "" {
		cfg.Hub.LoginRoute = defHub.LoginRoute
	}
	if cfg.Hub.HomeRoute == "" {
		cfg.Hub.HomeRoute = defHub.HomeRoute
	}
	if len(cfg.Hub.PublicRoutes) == 0 {
		cfg.Hub.PublicRoutes = defHub.PublicRoutes
	}

	defNav := DefaultNavigationConfig()
	if cfg.Navigation.Debounce == 0 {
		cfg.Navigation.Debounce = defNav.Debounce
	}
	if cfg.Navigation.Settle == 0 {
		cfg.Navigation.Settle = defNav.Settle
	}

	defReady := DefaultReadinessConfig()
	if cfg.Readiness.ReadyTimeout == 0 {
		cfg.Readiness.ReadyTimeout = defReady.ReadyTimeout
	}
	if cfg.Readiness.MinSkeleton == 0 {
		cfg.Readiness.MinSkeleton = defReady.MinSkeleton
	}

	defStorage := DefaultStorageConfig()
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defStorage.Driver
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defStorage.Path
	}
	if cfg.Storage.SidebarKey == "" {
		cfg.Storage.SidebarKey = defStorage.SidebarKey
	}
	if cfg.Storage.SessionKey == "" {
		cfg.Storage.SessionKey = defStorage.SessionKey
	}

	defModule := DefaultModuleConfig()
	if cfg.Module.Transport == "" {
		cfg.Module.Transport = defModule.Transport
	}
	if cfg.Module.HubURL == "" {
		cfg.Module.HubURL = defModule.HubURL
	}
	if cfg.Module.HubGRPCAddr == "" {
		cfg.Module.HubGRPCAddr = defModule.HubGRPCAddr
	}
	if cfg.Module.RequestTimeout == 0 {
		cfg.Module.RequestTimeout = defModule.RequestTimeout
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return types.NewError(types.ErrCodeInvalidArgument, fmt.Sprintf("invalid log level: %s", c.Logging.Level))
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return types.NewError(types.ErrCodeInvalidArgument, fmt.Sprintf("invalid log format: %s", c.Logging.Format))
	}

	if c.Hub.ListenAddr == "" {
		return types.NewError(types.ErrCodeInvalidArgument, "hub listen address cannot be empty")
	}
	if !strings.HasPrefix(c.Hub.BridgePath, "/") || !strings.HasSuffix(c.Hub.BridgePath, "/") {
		return types.NewError(types.ErrCodeInvalidArgument, "hub bridge path must start and end with /")
	}
	for _, route := range []string{c.Hub.LoginRoute, c.Hub.HomeRoute} {
		if !strings.HasPrefix(route, "/") {
			return types.NewError(types.ErrCodeInvalidArgument, fmt.Sprintf("route must be absolute: %q", route))
		}
	}

	if c.Navigation.Debounce <= 0 {
		return types.NewError(types.ErrCodeInvalidArgument, "navigation debounce must be positive")
	}
	if c.Navigation.Settle <= 0 {
		return types.NewError(types.ErrCodeInvalidArgument, "navigation settle delay must be positive")
	}

	if c.Readiness.ReadyTimeout <= 0 {
		return types.NewError(types.ErrCodeInvalidArgument, "ready timeout must be positive")
	}
	if c.Readiness.MinSkeleton < 0 {
		return types.NewError(types.ErrCodeInvalidArgument, "minimum skeleton time cannot be negative")
	}
	if c.Readiness.MinSkeleton >= c.Readiness.ReadyTimeout {
		return types.NewError(types.ErrCodeInvalidArgument, "minimum skeleton time must be shorter than the ready timeout")
	}

	switch c.Storage.Driver {
	case StorageDriverBolt, StorageDriverSQLite:
		if c.Storage.Path == "" {
			return types.NewError(types.ErrCodeInvalidArgument, "storage path cannot be empty for driver "+c.Storage.Driver)
		}
	case StorageDriverMemory:
	default:
		return types.NewError(types.ErrCodeInvalidArgument, fmt.Sprintf("unknown storage driver: %s", c.Storage.Driver))
	}

	for id, raw := range c.Registry.ModuleURLs {
		if _, err := url.Parse(raw); err != nil {
			return types.WrapError(types.ErrCodeInvalidArgument, "invalid url for module "+id, err)
		}
	}

	switch c.Module.Transport {
	case TransportWebSocket, TransportGRPC:
	default:
		return types.NewError(types.ErrCodeInvalidArgument, fmt.Sprintf("unknown module transport: %s", c.Module.Transport))
	}
	if c.Module.RequestTimeout <= 0 {
		return types.NewError(types.ErrCodeInvalidArgument, "module request timeout must be positive")
	}

	return nil
}

// ValidateModule checks the fields a module process needs on top of Validate
func (c *Config) ValidateModule() error {
	if c.Module.ID == "" {
		return types.NewError(types.ErrCodeInvalidArgument, "module id cannot be empty")
	}
	if c.Module.Standalone {
		return nil
	}
	if c.Module.Transport == TransportWebSocket {
		u, err := url.Parse(c.Module.HubURL)
		if err != nil {
			return types.WrapError(types.ErrCodeInvalidArgument, "invalid hub url", err)
		}
		if u.Scheme != "ws" && u.Scheme != "wss" {
			return types.NewError(types.ErrCodeInvalidArgument, "hub url must use ws or wss scheme")
		}
	}
	return nil
}

// Load builds a configuration from defaults, an optional YAML file and the environment.
// An empty path falls back to the default config path when a file exists there.
func Load(path string) (*Config, error) {
	if path == "" {
		if def, err := GetDefaultConfigPath(); err == nil {
			if _, statErr := os.Stat(def); statErr == nil {
				path = def
			}
		}
	}

	var cfg *Config
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = Default()
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, types.WrapError(types.ErrCodeInvalid, "configuration validation failed", err)
	}
	return cfg, nil
}

// ApplyOverrides applies CLI flag-style overrides to the configuration
func (c *Config) ApplyOverrides(opts OverrideOptions) {
	if opts.LogLevel != "" {
		c.Logging.Level = opts.LogLevel
	}
	if opts.LogFormat != "" {
		c.Logging.Format = opts.LogFormat
	}
	if opts.LogOutput != "" {
		c.Logging.Output = opts.LogOutput
	}
	if opts.ListenAddr != "" {
		c.Hub.ListenAddr = opts.ListenAddr
	}
	if opts.GRPCAddr != "" {
		c.Hub.GRPCAddr = opts.GRPCAddr
	}
	if opts.StorageDriver != "" {
		c.Storage.Driver = opts.StorageDriver
	}
	if opts.StoragePath != "" {
		c.Storage.Path = opts.StoragePath
	}
	if opts.RegistryFile != "" {
		c.Registry.File = opts.RegistryFile
	}
	if opts.ModuleID != "" {
		c.Module.ID = opts.ModuleID
	}
	if opts.ModuleTransport != "" {
		c.Module.Transport = opts.ModuleTransport
	}
	if opts.HubURL != "" {
		c.Module.HubURL = opts.HubURL
	}
	if opts.HubGRPCAddr != "" {
		c.Module.HubGRPCAddr = opts.HubGRPCAddr
	}
	if opts.Standalone {
		c.Module.Standalone = true
	}
}

// OverrideOptions contains override options typically set via CLI flags
type OverrideOptions struct {
	// Logging options
	LogLevel  string
	LogFormat string
	LogOutput string

	// Hub options
	ListenAddr    string
	GRPCAddr      string
	StorageDriver string
	StoragePath   string
	RegistryFile  string

	// Module options
	ModuleID        string
	ModuleTransport string
	HubURL          string
	HubGRPCAddr     string
	Standalone      bool
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Logging: %s, Hub: %s, Navigation: %s, Readiness: %s, Storage: %s, Module: %s}",
		c.Logging.String(),
		c.Hub.String(),
		c.Navigation.String(),
		c.Readiness.String(),
		c.Storage.String(),
		c.Module.String(),
	)
}

func (c LoggingConfig) String() string {
	return fmt.Sprintf("LoggingConfig{Level: %s, Format: %s, Output: %s}", c.Level, c.Format, c.Output)
}

func (c HubConfig) String() string {
	return fmt.Sprintf("HubConfig{ListenAddr: %s, GRPCAddr: %s, BridgePath: %s, HomeRoute: %s, DemoUser: %v}",
		c.ListenAddr, c.GRPCAddr, c.BridgePath, c.HomeRoute, c.DemoUser.Enabled())
}

func (c NavigationConfig) String() string {
	return fmt.Sprintf("NavigationConfig{Debounce: %s, Settle: %s, ExcludePaths: %d}",
		c.Debounce, c.Settle, len(c.ExcludePaths))
}

func (c ReadinessConfig) String() string {
	return fmt.Sprintf("ReadinessConfig{ReadyTimeout: %s, MinSkeleton: %s}", c.ReadyTimeout, c.MinSkeleton)
}

func (c StorageConfig) String() string {
	return fmt.Sprintf("StorageConfig{Driver: %s, Path: %s}", c.Driver, c.Path)
}

func (c ModuleConfig) String() string {
	return fmt.Sprintf("ModuleConfig{ID: %s, Transport: %s, HubURL: %s, Standalone: %v}",
		c.ID, c.Transport, c.HubURL, c.Standalone)
}
