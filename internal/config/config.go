package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	WorkingDir   string
	ConfPath     string
	LogPath      string
	CLIBin       string
	DaemonBin    string
	RPCUser      string
	RPCPassword  string
	RPCHost      string
	RPCPort      string
	CachePath    string
	MapDataPath  string
	AppLogPath   string
	Currency     string
	TipRows      int
	Refresh      time.Duration
	StatsRefresh time.Duration
	GeoRefresh   time.Duration
	LogLevel     string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BEACON")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	stateDir := defaultStateDir()

	v.SetDefault("working-dir", "/var/lib/lynx")
	v.SetDefault("cli-bin", "lynx-cli")
	v.SetDefault("daemon-bin", "lynxd")
	v.SetDefault("rpc-host", "127.0.0.1")
	v.SetDefault("cache-path", filepath.Join(stateDir, "geo_cache.json"))
	v.SetDefault("map-data", filepath.Join(stateDir, "ne_110m_land.geojson"))
	v.SetDefault("app-log", filepath.Join(stateDir, "beacon.log"))
	v.SetDefault("currency", "USD")
	v.SetDefault("tip-rows", 15)
	v.SetDefault("refresh", 5*time.Second)
	v.SetDefault("stats-refresh", time.Minute)
	v.SetDefault("geo-refresh", 30*time.Second)
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("beacon")
		v.AddConfigPath(stateDir)
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	workingDir := v.GetString("working-dir")

	cfg := Config{
		WorkingDir:   workingDir,
		ConfPath:     v.GetString("conf"),
		LogPath:      v.GetString("log-path"),
		CLIBin:       v.GetString("cli-bin"),
		DaemonBin:    v.GetString("daemon-bin"),
		RPCUser:      v.GetString("rpc-user"),
		RPCPassword:  v.GetString("rpc-password"),
		RPCHost:      v.GetString("rpc-host"),
		RPCPort:      v.GetString("rpc-port"),
		CachePath:    v.GetString("cache-path"),
		MapDataPath:  v.GetString("map-data"),
		AppLogPath:   v.GetString("app-log"),
		Currency:     v.GetString("currency"),
		TipRows:      v.GetInt("tip-rows"),
		Refresh:      v.GetDuration("refresh"),
		StatsRefresh: v.GetDuration("stats-refresh"),
		GeoRefresh:   v.GetDuration("geo-refresh"),
		LogLevel:     v.GetString("log-level"),
	}

	if cfg.ConfPath == "" {
		cfg.ConfPath = filepath.Join(workingDir, "lynx.conf")
	}
	if cfg.LogPath == "" {
		cfg.LogPath = DebugLogPath(workingDir)
	}

	return cfg, nil
}

// DebugLogPath returns the daemon debug log location, falling back to
// ~/.lynx/debug.log when the working directory copy does not exist.
func DebugLogPath(workingDir string) string {
	primary := filepath.Join(workingDir, "debug.log")
	if _, err := os.Stat(primary); err == nil {
		return primary
	}
	if home, err := os.UserHomeDir(); err == nil {
		fallback := filepath.Join(home, ".lynx", "debug.log")
		if _, err := os.Stat(fallback); err == nil {
			return fallback
		}
	}
	return primary
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./beacon-state"
	}
	return filepath.Join(home, ".config", "beacon")
}
