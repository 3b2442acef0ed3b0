package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds the sending role's settings. Defaults match the CLI
// defaults: TCP at 10 Mbit/s with 1400 byte packets on port 5000.
type ServerConfig struct {
	Protocol   string  `mapstructure:"protocol"`
	Port       int     `mapstructure:"port"`
	SpeedMbps  float64 `mapstructure:"speed_mbps"`
	PacketSize int     `mapstructure:"packet_size"`
	UDPTarget  string  `mapstructure:"udp_target"`
	LogLevel   string  `mapstructure:"log_level"`
}

// ClientConfig holds the receiving role's settings.
type ClientConfig struct {
	Protocol       string  `mapstructure:"protocol"`
	Host           string  `mapstructure:"host"`
	Port           int     `mapstructure:"port"`
	MeasureSeconds float64 `mapstructure:"measure_seconds"`
	LogLevel       string  `mapstructure:"log_level"`
}

func LoadServerConfig(configPath string) (*ServerConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	v, err := initViper(configPath, filepath.Join(home, ".lanprobe"), "server_config", "toml", "LANPROBE_SERVER")
	if err != nil {
		return nil, err
	}

	v.SetDefault("protocol", "tcp")
	v.SetDefault("port", 5000)
	v.SetDefault("speed_mbps", 10.0)
	v.SetDefault("packet_size", 1400)
	v.SetDefault("udp_target", "")
	v.SetDefault("log_level", "info")

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Create-on-first-run ONLY: when viper read no file, persist the
	// defaults so the next run has something to edit.
	if v.ConfigFileUsed() == "" {
		writePath := configPath
		if writePath == "" {
			writePath = filepath.Join(home, ".lanprobe", "server_config.toml")
		}
		if _, statErr := os.Stat(writePath); errors.Is(statErr, os.ErrNotExist) {
			if _, err := cfg.Save(writePath); err != nil {
				return nil, fmt.Errorf("persist default server config: %w", err)
			}
			Info("server config written", Fields{
				ConfigPath: writePath,
			})
		}
	}

	return &cfg, nil
}

func LoadClientConfig(configPath string) (*ClientConfig, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	v, err := initViper(configPath, filepath.Join(home, ".lanprobe"), "client_config", "toml", "LANPROBE_CLIENT")
	if err != nil {
		return nil, err
	}

	v.SetDefault("protocol", "tcp")
	v.SetDefault("host", "127.0.0.1")
	v.SetDefault("port", 5000)
	v.SetDefault("measure_seconds", 10.0)
	v.SetDefault("log_level", "info")

	var cfg ClientConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if v.ConfigFileUsed() == "" {
		writePath := configPath
		if writePath == "" {
			writePath = filepath.Join(home, ".lanprobe", "client_config.toml")
		}
		if _, statErr := os.Stat(writePath); errors.Is(statErr, os.ErrNotExist) {
			if _, err := cfg.Save(writePath); err != nil {
				return nil, fmt.Errorf("persist default client config: %w", err)
			}
			Info("client config written", Fields{
				ConfigPath: writePath,
			})
		}
	}

	return &cfg, nil
}

func (cfg *ServerConfig) Save(path string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "" {
		path = filepath.Join(home, ".lanprobe", "server_config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("protocol", cfg.Protocol)
	v.Set("port", cfg.Port)
	v.Set("speed_mbps", cfg.SpeedMbps)
	v.Set("packet_size", cfg.PacketSize)
	v.Set("udp_target", cfg.UDPTarget)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write server config: %w", err)
	}
	return path, nil
}

func (cfg *ClientConfig) Save(path string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if path == "" {
		path = filepath.Join(home, ".lanprobe", "client_config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("protocol", cfg.Protocol)
	v.Set("host", cfg.Host)
	v.Set("port", cfg.Port)
	v.Set("measure_seconds", cfg.MeasureSeconds)
	v.Set("log_level", cfg.LogLevel)

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write client config: %w", err)
	}
	return path, nil
}

func initViper(configPath, defaultDir, defaultName, defaultType, envPrefix string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType(defaultType)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(expandPath(configPath))
	} else {
		v.AddConfigPath(defaultDir)
		v.AddConfigPath(".")
		v.SetConfigName(defaultName)
	}

	if err := v.ReadInConfig(); err != nil {
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !notFound {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

func expandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}
