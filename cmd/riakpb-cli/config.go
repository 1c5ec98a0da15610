package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the CLI configuration. Values come from flags, RIAKPB_*
// environment variables and an optional YAML file, in that order of
// precedence.
type Config struct {
	Nodes          []string      `mapstructure:"nodes"`
	ConnectTimeout time.Duration `mapstructure:"connect-timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`

	TLS      bool   `mapstructure:"tls"`
	Insecure bool   `mapstructure:"insecure"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`

	LogLevel  string `mapstructure:"log-level"`
	LogFormat string `mapstructure:"log-format"`
}

func defaultConfig() Config {
	return Config{
		Nodes:          []string{"127.0.0.1:8087"},
		ConnectTimeout: time.Second,
		Timeout:        10 * time.Second,
		LogLevel:       "warn",
		LogFormat:      "console",
	}
}

// addConfigFlags declares the persistent flags read by loadConfig.
func addConfigFlags(cmd *cobra.Command) {
	d := defaultConfig()
	f := cmd.PersistentFlags()

	f.String("config", "", "config file (default: ./riakpb.yaml or ~/.riakpb/riakpb.yaml)")
	f.StringSlice("nodes", d.Nodes, "server addresses, host:port")
	f.Duration("connect-timeout", d.ConnectTimeout, "dial and TLS handshake timeout")
	f.Duration("timeout", d.Timeout, "command timeout")
	f.Bool("tls", false, "upgrade the connection with StartTLS")
	f.Bool("insecure", false, "skip verification of the server certificate")
	f.String("user", "", "authenticate as user (requires --tls)")
	f.String("password", "", "password of --user")
	f.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	f.String("log-format", d.LogFormat, "log format: console or json")
}

// loadConfig merges the flags of cmd, the environment and the config file.
func loadConfig(cmd *cobra.Command) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("RIAKPB")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("bind flags: %w", err)
	}

	path := v.GetString("config")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("riakpb")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".riakpb"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := defaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Nodes) == 0 {
		return errors.New("no nodes configured")
	}
	if c.User != "" && !c.TLS {
		return errors.New("--user requires --tls")
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %q", c.LogFormat)
	}
	return nil
}
