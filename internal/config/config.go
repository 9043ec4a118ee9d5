package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddr   string
	DataDir      string
	DatabasePath string
	PanelLog     string

	Game             string
	Runtime          string // exec or docker
	ServerExecutable string
	ServerDir        string
	DockerImage      string
	DockerPorts      []string
	DockerMemory     string

	LogFile     string
	CommandFile string
	HistoryDir  string
	ItemCatalog string

	PollInterval   time.Duration
	SampleInterval time.Duration
}

// fileConfig mirrors the optional bdspanel.toml. Durations are strings
// ("2s", "1m") parsed after decoding.
type fileConfig struct {
	Listen           string   `toml:"listen"`
	DataDir          string   `toml:"data_dir"`
	Database         string   `toml:"database"`
	PanelLog         string   `toml:"panel_log"`
	Game             string   `toml:"game"`
	Runtime          string   `toml:"runtime"`
	ServerExecutable string   `toml:"server_executable"`
	ServerDir        string   `toml:"server_dir"`
	DockerImage      string   `toml:"docker_image"`
	DockerPorts      []string `toml:"docker_ports"`
	DockerMemory     string   `toml:"docker_memory"`
	LogFile          string   `toml:"log_file"`
	CommandFile      string   `toml:"command_file"`
	HistoryDir       string   `toml:"history_dir"`
	ItemCatalog      string   `toml:"item_catalog"`
	PollInterval     string   `toml:"poll_interval"`
	SampleInterval   string   `toml:"sample_interval"`
}

func Load() (*Config, error) {
	var fc fileConfig
	path := envOr("BDSPANEL_CONFIG", "bdspanel.toml")
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		// An explicitly named file must exist; the default one is optional.
		if !errors.Is(err, os.ErrNotExist) || os.Getenv("BDSPANEL_CONFIG") != "" {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return build(fc)
}

func build(fc fileConfig) (*Config, error) {
	dataDir, err := filepath.Abs(envOr("BDSPANEL_DATA_DIR", or(fc.DataDir, "./data")))
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, err
	}

	pollInterval, err := parseDuration("poll_interval", envOr("BDSPANEL_POLL_INTERVAL", or(fc.PollInterval, "2s")))
	if err != nil {
		return nil, err
	}
	sampleInterval, err := parseDuration("sample_interval", envOr("BDSPANEL_SAMPLE_INTERVAL", or(fc.SampleInterval, "30s")))
	if err != nil {
		return nil, err
	}

	ports := fc.DockerPorts
	if v := os.Getenv("BDSPANEL_DOCKER_PORTS"); v != "" {
		ports = strings.Split(v, ",")
	}
	if len(ports) == 0 {
		ports = []string{"19132:19132/udp", "19133:19133/udp"}
	}

	cfg := &Config{
		ListenAddr:       envOr("BDSPANEL_LISTEN", or(fc.Listen, ":8080")),
		DataDir:          dataDir,
		DatabasePath:     envOr("BDSPANEL_DB", or(fc.Database, filepath.Join(dataDir, "bdspanel.db"))),
		PanelLog:         envOr("BDSPANEL_PANEL_LOG", or(fc.PanelLog, filepath.Join(dataDir, "panel.log"))),
		Game:             envOr("BDSPANEL_GAME", or(fc.Game, "bedrock")),
		Runtime:          envOr("BDSPANEL_RUNTIME", or(fc.Runtime, "exec")),
		ServerExecutable: envOr("BDSPANEL_SERVER_EXE", or(fc.ServerExecutable, "./bedrock_server")),
		ServerDir:        envOr("BDSPANEL_SERVER_DIR", fc.ServerDir),
		DockerImage:      envOr("BDSPANEL_DOCKER_IMAGE", or(fc.DockerImage, "itzg/minecraft-bedrock-server")),
		DockerPorts:      ports,
		DockerMemory:     envOr("BDSPANEL_DOCKER_MEMORY", fc.DockerMemory),
		LogFile:          envOr("BDSPANEL_LOG_FILE", or(fc.LogFile, "server_log.txt")),
		CommandFile:      envOr("BDSPANEL_COMMAND_FILE", or(fc.CommandFile, "server_commands.txt")),
		HistoryDir:       envOr("BDSPANEL_HISTORY_DIR", or(fc.HistoryDir, "old_logs")),
		ItemCatalog:      envOr("BDSPANEL_ITEMS", or(fc.ItemCatalog, "GiveItemList.csv")),
		PollInterval:     pollInterval,
		SampleInterval:   sampleInterval,
	}

	switch cfg.Runtime {
	case "exec", "docker":
	default:
		return nil, fmt.Errorf("runtime must be exec or docker, got %q", cfg.Runtime)
	}

	// The player list tool runs from a different working directory than the
	// panel, so shared files are pinned to absolute paths.
	for _, p := range []*string{&cfg.ServerExecutable, &cfg.LogFile, &cfg.CommandFile, &cfg.HistoryDir, &cfg.ItemCatalog} {
		abs, err := filepath.Abs(*p)
		if err != nil {
			return nil, err
		}
		*p = abs
	}
	if cfg.ServerDir == "" {
		cfg.ServerDir = filepath.Dir(cfg.ServerExecutable)
	}
	return cfg, nil
}

func parseDuration(name, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, v)
	}
	return d, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
