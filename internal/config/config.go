package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Toolkit  ToolkitConfig  `mapstructure:"toolkit"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Stream   StreamConfig   `mapstructure:"stream"`
}

type ServerConfig struct {
	HTTPPort        int           `mapstructure:"http_port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
}

// ToolkitConfig selects the toolkit backend and the devices connected at
// startup.
type ToolkitConfig struct {
	Backend     string         `mapstructure:"backend"`
	SearchPaths []string       `mapstructure:"search_paths"`
	Blacklist   []string       `mapstructure:"blacklist"`
	Devices     []DeviceConfig `mapstructure:"devices"`
}

type DeviceConfig struct {
	Serial    string `mapstructure:"serial"`
	Interface string `mapstructure:"interface"`
}

// TimeoutsConfig holds the defaults for blocking toolkit calls when a
// request does not carry its own.
type TimeoutsConfig struct {
	Compile   time.Duration `mapstructure:"compile"`
	WaitDone  time.Duration `mapstructure:"wait_done"`
	SleepTime time.Duration `mapstructure:"sleep_time"`
}

type StreamConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Recording    time.Duration `mapstructure:"recording"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v)

	// OIC_SERVER_HTTP_PORT overrides server.http_port
	v.SetEnvPrefix("OIC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_connections", 10)

	v.SetDefault("toolkit.backend", "sim")
	v.SetDefault("toolkit.search_paths", []string{"./configs/devices"})

	v.SetDefault("timeouts.compile", "10s")
	v.SetDefault("timeouts.wait_done", "10s")
	v.SetDefault("timeouts.sleep_time", "5ms")

	v.SetDefault("stream.enabled", true)
	v.SetDefault("stream.poll_interval", "100ms")
	v.SetDefault("stream.recording", "0s")
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}
