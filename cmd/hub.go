package cmd

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/pkg/console"
	"github.com/billm/framehub/pkg/hub"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/registry"
	"github.com/billm/framehub/pkg/timer"
)

const hubShutdownTimeout = 30 * time.Second

var (
	hubListen     string
	hubGRPCListen string
	storageDriver string
	storagePath   string
	registryFile  string
	startPath     string
	withConsole   bool
)

var hubCmd = &cobra.Command{
	Use:   "hub",
	Short: "Serve the hub shell and its module bridges",
	Long: `Serve the hub shell. Modules connect over WebSocket at the bridge path
(default /bridge/{moduleId}) or over gRPC when --grpc-listen is set.
The shell state is available at /api/shell; --console renders it in the terminal.`,
	RunE: runHub,
}

func init() {
	hubCmd.Flags().StringVar(&hubListen, "listen", "", "HTTP listen address (default :8080)")
	hubCmd.Flags().StringVar(&hubGRPCListen, "grpc-listen", "", "gRPC bridge listen address (default: disabled)")
	hubCmd.Flags().StringVar(&storageDriver, "storage", "", "Storage driver: bolt, sqlite, memory")
	hubCmd.Flags().StringVar(&storagePath, "storage-path", "", "Storage file path")
	hubCmd.Flags().StringVar(&registryFile, "registry", "", "Module registry YAML file (default: built-in registry)")
	hubCmd.Flags().StringVar(&startPath, "path", "", "Initial hub path (default: the home route)")
	hubCmd.Flags().BoolVar(&withConsole, "console", false, "Render the shell in the terminal")
}

func runHub(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(config.OverrideOptions{
		ListenAddr:    hubListen,
		GRPCAddr:      hubGRPCListen,
		StorageDriver: storageDriver,
		StoragePath:   storagePath,
		RegistryFile:  registryFile,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	// the console owns the terminal
	if withConsole && logOutput == "" && (cfg.Logging.Output == "stdout" || cfg.Logging.Output == "stderr") {
		cfg.Logging.Output = "framehub.log"
	}
	if err := initLogger(cfg.Logging); err != nil {
		return err
	}
	rootLog.Info("Starting framehub hub", "version", Version)

	kv, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	reg, err := registry.Load(cfg.Registry)
	if err != nil {
		_ = kv.Close()
		return fmt.Errorf("failed to load module registry: %w", err)
	}

	host := hub.NewHost(ctx, *cfg, reg, kv, timer.Real(), rootLog)
	host.Start(ctx, startPath)

	demo := demoUser(cfg.Hub.DemoUser)
	if cfg.Hub.DemoUser.Enabled() && host.Snapshot().User == nil {
		if err := host.Login(ctx, demo, startPath); err != nil {
			rootLog.Warn("Demo sign-in failed", "error", err)
		}
	}

	srv := hub.NewServer(cfg.Hub, host, rootLog)
	if err := srv.Start(); err != nil {
		_ = host.Close()
		_ = kv.Close()
		return err
	}

	shutdown := hub.NewShutdownManager(srv, hubShutdownTimeout, rootLog)
	shutdown.AddHook(func(context.Context) error {
		return kv.Close()
	})
	shutdown.Start()
	defer shutdown.Stop()
	rootLog.Info("Hub is running. Press Ctrl+C to stop.", "addr", srv.Addr().String())

	if withConsole {
		model := console.NewModel(host, demo, Version, rootLog)
		_, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()
		model.Close()
		if err := shutdown.Shutdown(context.Background(), "console closed"); err != nil {
			rootLog.Debug("Shutdown already in progress", "error", err)
		}
		if runErr != nil {
			return fmt.Errorf("console failed: %w", runErr)
		}
	}

	<-shutdown.Done()
	rootLog.Info("Hub shutdown complete", "reason", shutdown.Reason())
	return nil
}

// demoUser returns the configured user, or a placeholder for console sign-in
func demoUser(u config.UserConfig) protocol.User {
	if !u.Enabled() {
		return protocol.User{ID: "demo", Name: "Demo User", Email: "demo@example.com"}
	}
	return protocol.User{ID: u.ID, Name: u.Name, Email: u.Email, Avatar: u.Avatar}
}
