package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AppName            = "craftbridge"
	defaultConfigName  = "config.json"
	defaultServerDir   = "server"
	defaultRuntimesDir = "runtimes"
	defaultBackupsDir  = "backups"
	envPrefix          = "CRAFTBRIDGE"
)

type Config struct {
	ServerDir      string `mapstructure:"server_dir"`
	JarFile        string `mapstructure:"jar_file"`
	Loader         string `mapstructure:"loader"`
	MCVersion      string `mapstructure:"mc_version"`
	JavaPath       string `mapstructure:"java_path"`
	MinJavaVersion int    `mapstructure:"min_java_version"`
	RuntimesPath   string `mapstructure:"runtimes_path"`
	BackupsPath    string `mapstructure:"backups_path"`
	MaxMemory      string `mapstructure:"max_memory"`
	MinMemory      string `mapstructure:"min_memory"`
	ExtraArgs      string `mapstructure:"extra_args"`
	AcceptEULA     bool   `mapstructure:"accept_eula"`

	Host         string `mapstructure:"host"`
	RCONPort     int    `mapstructure:"rcon_port"`
	GamePort     int    `mapstructure:"game_port"`
	RCONPassword string `mapstructure:"rcon_password"`

	APIPort          int      `mapstructure:"api_port"`
	APIURL           string   `mapstructure:"api_url"`
	APISecret        string   `mapstructure:"api_secret"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	CommandRateLimit int      `mapstructure:"command_rate_limit"`

	StartTimeout   time.Duration `mapstructure:"start_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	CommandTimeout time.Duration `mapstructure:"command_timeout"`
	ProbeTimeout   time.Duration `mapstructure:"probe_timeout"`

	HistorySize     int    `mapstructure:"history_size"`
	EventReplaySize int    `mapstructure:"event_replay_size"`
	LogLevel        string `mapstructure:"log_level"`

	// ConfigDir is where the config file and generated secrets live.
	ConfigDir string `mapstructure:"-"`
}

// IsDev reports whether a development build is running, which keeps its
// config apart from the installed one.
func IsDev() bool {
	return os.Getenv("CRAFTBRIDGE_DEV") == "1"
}

// DefaultConfigDir returns the per-user config directory for the bridge.
func DefaultConfigDir() (string, error) {
	if dir := os.Getenv("CRAFTBRIDGE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	name := AppName
	if IsDev() {
		name += "-dev"
	}
	return filepath.Join(base, name), nil
}

func setDefaults(v *viper.Viper, configDir string) {
	v.SetDefault("server_dir", filepath.Join(configDir, defaultServerDir))
	v.SetDefault("jar_file", "server.jar")
	v.SetDefault("loader", "vanilla")
	v.SetDefault("mc_version", "")
	v.SetDefault("java_path", "")
	v.SetDefault("min_java_version", 0)
	v.SetDefault("runtimes_path", filepath.Join(configDir, defaultRuntimesDir))
	v.SetDefault("backups_path", filepath.Join(configDir, defaultBackupsDir))
	v.SetDefault("max_memory", "2G")
	v.SetDefault("min_memory", "1G")
	v.SetDefault("extra_args", "")
	v.SetDefault("accept_eula", false)

	v.SetDefault("host", "localhost")
	v.SetDefault("rcon_port", 25575)
	v.SetDefault("game_port", 25565)
	v.SetDefault("rcon_password", "")

	v.SetDefault("api_port", 8080)
	v.SetDefault("api_url", "")
	v.SetDefault("api_secret", "")
	v.SetDefault("allowed_origins", []string{"*"})
	v.SetDefault("command_rate_limit", 60)

	v.SetDefault("start_timeout", "5m")
	v.SetDefault("connect_timeout", "30s")
	v.SetDefault("command_timeout", "10s")
	v.SetDefault("probe_timeout", "5s")

	v.SetDefault("history_size", 500)
	v.SetDefault("event_replay_size", 100)
	v.SetDefault("log_level", "info")
}

// legacyEnv maps keys to the unprefixed variables operators already use.
var legacyEnv = map[string]string{
	"max_memory":    "JAVA_MAX_MEMORY",
	"min_memory":    "JAVA_MIN_MEMORY",
	"rcon_password": "RCON_PASSWORD",
	"jar_file":      "SERVER_JAR_FILE",
}

// LoadConfig reads config.json from configDir, creating it with defaults on
// first run, then applies environment overrides. Missing secrets are
// generated and persisted next to the config file.
func LoadConfig(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v, configDir)

	configPath := filepath.Join(configDir, defaultConfigName)
	v.SetConfigFile(configPath)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// env is not bound yet, so only defaults are written
		if err := v.SafeWriteConfigAs(configPath); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", configPath, err)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		if err := v.BindEnv(key, envPrefix+"_"+strings.ToUpper(key), legacy); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ConfigDir = configDir

	if cfg.RCONPassword == "" {
		cfg.RCONPassword = LoadOrGenerateRCONPassword(configDir)
	}
	if cfg.APISecret == "" {
		cfg.APISecret = LoadOrGenerateSecret(configDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	for name, port := range map[string]int{"rcon_port": c.RCONPort, "game_port": c.GamePort, "api_port": c.APIPort} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s %d", name, port)
		}
	}
	if c.RCONPort == c.GamePort {
		return fmt.Errorf("rcon_port and game_port must differ (both %d)", c.RCONPort)
	}
	if c.ServerDir == "" {
		return fmt.Errorf("server_dir must be set")
	}
	return nil
}

// RCONAddr is where the bridge dials the server's remote console.
func (c *Config) RCONAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.RCONPort)
}

// BaseURL is what the CLI talks to.
func (c *Config) BaseURL() string {
	if c.APIURL != "" {
		return strings.TrimRight(c.APIURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", c.APIPort)
}
