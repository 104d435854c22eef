package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"beacon/internal/config"
	"beacon/internal/dashboard"
	"beacon/internal/geo"
	"beacon/internal/logtail"
	"beacon/internal/pricing"
	"beacon/internal/rpc"
	"beacon/internal/system"
	"beacon/internal/worldmap"
)

func main() {
	root := &cobra.Command{
		Use:          "beacon",
		Short:        "Lynx node terminal dashboard",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the dashboard",
		RunE:  runDashboard,
	}

	runCmd.Flags().String("working-dir", "/var/lib/lynx", "daemon working directory")
	runCmd.Flags().String("conf", "", "daemon conf file (default <working-dir>/lynx.conf)")
	runCmd.Flags().String("log-path", "", "daemon debug log (default <working-dir>/debug.log)")
	runCmd.Flags().String("cli-bin", "lynx-cli", "daemon CLI binary")
	runCmd.Flags().String("daemon-bin", "lynxd", "daemon binary")
	runCmd.Flags().String("rpc-user", "", "RPC username (default from conf)")
	runCmd.Flags().String("rpc-password", "", "RPC password (default from conf)")
	runCmd.Flags().String("rpc-host", "127.0.0.1", "RPC host")
	runCmd.Flags().String("rpc-port", "", "RPC port (default from conf)")
	runCmd.Flags().String("cache-path", "", "geolocation cache file")
	runCmd.Flags().String("map-data", "", "landmass GeoJSON file")
	runCmd.Flags().String("app-log", "", "dashboard log file")
	runCmd.Flags().String("currency", "USD", "display currency")
	runCmd.Flags().Int("tip-rows", 15, "block timeline rows")
	runCmd.Flags().Duration("refresh", 5*time.Second, "snapshot refresh interval")
	runCmd.Flags().Duration("stats-refresh", time.Minute, "price refresh interval")
	runCmd.Flags().Duration("geo-refresh", 30*time.Second, "peer geolocation interval")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	tzCmd := &cobra.Command{
		Use:   "timezone [zone]",
		Short: "Show, list, or set the host timezone",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runTimezone,
	}
	tzCmd.Flags().Bool("list", false, "list available timezones")

	root.AddCommand(tzCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runTimezone(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if list, _ := cmd.Flags().GetBool("list"); list {
		zones, err := system.ListTimezones(ctx)
		if err != nil {
			return err
		}
		for _, zone := range zones {
			fmt.Println(zone)
		}
		return nil
	}

	if len(args) == 1 {
		if err := system.SetTimezone(ctx, args[0]); err != nil {
			return err
		}
	}

	zone, ok := system.Timezone(ctx)
	if !ok {
		return fmt.Errorf("timedatectl unavailable")
	}
	fmt.Println(zone)
	return nil
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.AppLogPath)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := rpc.NewClient(rpc.ClientConfig{
		WorkingDir: cfg.WorkingDir,
		ConfPath:   cfg.ConfPath,
		CLIBin:     cfg.CLIBin,
		DaemonBin:  cfg.DaemonBin,
		User:       cfg.RPCUser,
		Password:   cfg.RPCPassword,
		Host:       cfg.RPCHost,
		Port:       cfg.RPCPort,
	}, nil, logger)

	logPath := cfg.LogPath
	if logPath == "" {
		logPath = config.DebugLogPath(client.Datadir())
	}
	tailer := logtail.NewTailer(logPath)

	httpClient := &http.Client{Timeout: 10 * time.Second}
	geoCache := geo.NewCache(geo.CacheConfig{Path: cfg.CachePath}, httpClient, logger)
	pricer := pricing.NewClient(pricing.ClientConfig{}, httpClient, logger)

	land, err := worldmap.LoadLand(cfg.MapDataPath)
	if err != nil {
		logger.Warn("map data unavailable", zap.String("path", cfg.MapDataPath), zap.Error(err))
		land = nil
	}

	app, err := dashboard.New(dashboard.Options{
		Config: cfg,
		Logger: logger,
		Client: client,
		Tailer: tailer,
		Geo:    geoCache,
		Pricer: pricer,
		Land:   land,
	})
	if err != nil {
		return err
	}

	logger.Info("dashboard start",
		zap.String("conf", cfg.ConfPath),
		zap.String("debug_log", logPath),
		zap.String("rpc_port", client.RPCPort()),
		zap.Bool("rpc_auth", client.Secure()),
	)

	return app.Run(ctx)
}

// newLogger writes JSON logs to a file. The terminal belongs to the UI,
// so stdout and stderr are off limits.
func newLogger(level, path string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
