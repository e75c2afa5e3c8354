package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/billm/framehub/internal/config"
	"github.com/billm/framehub/internal/logger"
	"github.com/billm/framehub/pkg/module"
	"github.com/billm/framehub/pkg/protocol"
	"github.com/billm/framehub/pkg/registry"
	"github.com/billm/framehub/pkg/transport"
	"github.com/billm/framehub/pkg/transport/grpcbridge"
	"github.com/billm/framehub/pkg/transport/wsbridge"
	"github.com/billm/framehub/pkg/types"
)

var (
	moduleID        string
	moduleTransport string
	moduleHubURL    string
	moduleHubGRPC   string
	modulePath      string
	standalone      bool
)

var moduleCmd = &cobra.Command{
	Use:   "module",
	Short: "Run a module process against a hub",
	Long: `Run a module process. The module joins the hub over WebSocket (default) or
gRPC, announces readiness, follows hub route changes and reports its own
navigation back. With --standalone it runs without a hub.`,
	RunE: runModule,
}

func init() {
	moduleCmd.Flags().StringVar(&moduleID, "id", "", "Module id, for example employees")
	moduleCmd.Flags().StringVar(&moduleTransport, "transport", "", "Hub transport: ws, grpc")
	moduleCmd.Flags().StringVar(&moduleHubURL, "hub-url", "", "Hub bridge URL (default ws://localhost:8080/bridge)")
	moduleCmd.Flags().StringVar(&moduleHubGRPC, "hub-grpc", "", "Hub gRPC address (default localhost:9090)")
	moduleCmd.Flags().StringVar(&modulePath, "path", "/", "Initial module path when the hub location is elsewhere")
	moduleCmd.Flags().BoolVar(&standalone, "standalone", false, "Run without a hub")
}

// hubLink is an open connection to the hub
type hubLink struct {
	channel *transport.Channel
	done    <-chan struct{}
	close   func() error
}

func runModule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(config.OverrideOptions{
		ModuleID:        moduleID,
		ModuleTransport: moduleTransport,
		HubURL:          moduleHubURL,
		HubGRPCAddr:     moduleHubGRPC,
		Standalone:      standalone,
	})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateModule(); err != nil {
		return fmt.Errorf("invalid module configuration: %w", err)
	}
	if err := initLogger(cfg.Logging); err != nil {
		return err
	}
	log := rootLog.With("module_id", cfg.Module.ID)

	reg, err := registry.Load(cfg.Registry)
	if err != nil {
		return fmt.Errorf("failed to load module registry: %w", err)
	}
	if _, ok := reg.Module(cfg.Module.ID); !ok {
		log.Warn("Module is not in the registry; the hub will not mount it")
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	link, err := dialHub(ctx, cfg.Module, log)
	if err != nil {
		return err
	}
	defer func() { _ = link.close() }()

	client := module.NewClient(link.channel, cfg.Module.RequestTimeout, log)
	rt := module.NewRuntime(client, reg, module.Options{
		ModuleID:    cfg.Module.ID,
		InitialPath: modulePath,
		Navigation:  cfg.Navigation,
	}, log)
	defer rt.Close()

	sub := client.OnRouteChange(func(route protocol.Route) {
		log.Info("Hub route change", "path", route.String())
	})
	defer sub.Cancel()

	if err := rt.Start(ctx); err != nil {
		return err
	}
	log.Info("Module is running. Press Ctrl+C to stop.",
		"embedded", client.Embedded(),
		"hub_path", rt.HubPath())

	select {
	case <-ctx.Done():
		log.Info("Module stopping")
	case <-link.done:
		log.Warn("Hub connection closed")
	}
	return nil
}

// dialHub connects to the hub over the configured transport
func dialHub(ctx context.Context, cfg config.ModuleConfig, log *logger.Logger) (*hubLink, error) {
	if cfg.Standalone {
		ch := transport.Detached(log)
		return &hubLink{channel: ch, close: ch.Close}, nil
	}

	switch cfg.Transport {
	case config.TransportWebSocket:
		conn, err := wsbridge.Dial(ctx, cfg.HubURL, cfg.ID, log)
		if err != nil {
			return nil, types.WrapError(types.ErrCodeUnavailable, "failed to reach hub at "+cfg.HubURL, err)
		}
		return &hubLink{channel: conn.Channel(), done: conn.Done(), close: conn.Close}, nil
	case config.TransportGRPC:
		conn, err := grpcbridge.Dial(ctx, cfg.HubGRPCAddr, cfg.ID, log)
		if err != nil {
			return nil, err
		}
		return &hubLink{channel: conn.Channel(), done: conn.Done(), close: conn.Close}, nil
	default:
		return nil, types.NewError(types.ErrCodeInvalidArgument, "unknown module transport "+cfg.Transport)
	}
}
