// Package config loads plbd's configuration from an INI file, environment
// overrides, and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/formorer/ProxLB/internal/domain"
)

// Config holds all configuration for plbd.
type Config struct {
	Proxmox    ProxmoxConfig    `mapstructure:"proxmox"`
	Balancing  BalancingConfig  `mapstructure:"balancing"`
	Service    ServiceConfig    `mapstructure:"service"`
	Log        LogConfig        `mapstructure:"log"`
	History    HistoryConfig    `mapstructure:"history"`
	Cache      CacheConfig      `mapstructure:"cache"`
	ControlAPI ControlAPIConfig `mapstructure:"control_api"`
}

// ProxmoxConfig holds the hypervisor API endpoint and credentials.
type ProxmoxConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	User       string        `mapstructure:"user"`
	TokenName  string        `mapstructure:"token_name"`
	TokenValue string        `mapstructure:"token_value"`
	VerifySSL  bool          `mapstructure:"verify_ssl"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// Address returns the Proxmox API base address.
func (c ProxmoxConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// BalancingConfig holds the placement policy and cycle parameters.
type BalancingConfig struct {
	Method      string        `mapstructure:"method"`
	Mode        string        `mapstructure:"mode"`
	Balanciness int           `mapstructure:"balanciness"`
	Interval    time.Duration `mapstructure:"interval"`
	IgnoreNodes []string      `mapstructure:"ignore_nodes"`
	IgnoreVMs   []string      `mapstructure:"ignore_vms"`
}

// Policy projects the balancing section into a domain.Policy.
func (c BalancingConfig) Policy() domain.Policy {
	return domain.Policy{
		Method:      domain.Method(c.Method),
		Mode:        domain.Mode(c.Mode),
		Balanciness: c.Balanciness,
	}
}

// ServiceConfig holds top-level daemon behavior.
type ServiceConfig struct {
	DryRun bool `mapstructure:"dry_run"`
}

// LogConfig holds zap logger configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HistoryConfig holds the PostgreSQL audit log connection.
type HistoryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	DSN            string `mapstructure:"dsn"`
	MigrationsPath string `mapstructure:"migrations_path"`
}

// CacheConfig holds the Redis result-cache connection.
type CacheConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ControlAPIConfig holds the optional HTTP control surface.
type ControlAPIConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Listen      string   `mapstructure:"listen"`
	JWTSecret   string   `mapstructure:"jwt_secret"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// Load reads configuration from configPath (an INI file) layered over
// defaults and PLBD_-prefixed environment variables, then validates the
// required Proxmox fields.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("plbd")
		v.SetConfigType("ini")
		v.AddConfigPath("/etc/plbd")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("PLBD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// An explicit path set with SetConfigFile reports a missing file as a
		// plain fs error, not as viper.ConfigFileNotFoundError.
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound && !errors.Is(err, fs.ErrNotExist) {
			return nil, domain.NewError(domain.ErrConfigParse, err)
		}
		if configPath != "" {
			return nil, domain.NewError(domain.ErrConfigMissing, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, domain.NewError(domain.ErrConfigParse, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Proxmox.Host == "" {
		return domain.NewError(domain.ErrConfigKey, fmt.Errorf("proxmox.host is required"))
	}
	if c.Proxmox.User == "" || c.Proxmox.TokenValue == "" {
		return domain.NewError(domain.ErrConfigKey, fmt.Errorf("proxmox.user and proxmox.token_value are required"))
	}
	if !c.Balancing.Policy().Valid() {
		return domain.NewError(domain.ErrInvalidPolicy, fmt.Errorf("balancing.method=%q balancing.mode=%q is not a recognized combination", c.Balancing.Method, c.Balancing.Mode))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("proxmox.port", 8006)
	v.SetDefault("proxmox.verify_ssl", true)
	v.SetDefault("proxmox.timeout", "30s")

	v.SetDefault("balancing.method", "memory")
	v.SetDefault("balancing.mode", "used")
	v.SetDefault("balancing.balanciness", 10)
	v.SetDefault("balancing.interval", "5m")

	v.SetDefault("service.dry_run", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("history.enabled", false)
	v.SetDefault("history.migrations_path", "file://migrations")

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.db", 0)

	v.SetDefault("control_api.enabled", false)
	v.SetDefault("control_api.listen", ":8085")
	v.SetDefault("control_api.cors_origins", []string{"*"})
}
