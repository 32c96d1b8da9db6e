package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds capture and logging settings. CLI flags override file values.
type Config struct {
	CursorCapture  bool `mapstructure:"cursor_capture"`
	BorderRequired bool `mapstructure:"border_required"`
	CPUAccess      bool `mapstructure:"cpu_access"`
	FenceBeforeMap bool `mapstructure:"fence_before_map"`
	QueueCapacity  int  `mapstructure:"queue_capacity"`

	LogLevel      string `mapstructure:"log_level"`
	LogFormat     string `mapstructure:"log_format"`
	LogFile       string `mapstructure:"log_file"`
	LogMaxSizeMB  int    `mapstructure:"log_max_size_mb"`
	LogMaxBackups int    `mapstructure:"log_max_backups"`
}

// Default mirrors the capture builder defaults: no cursor, border kept,
// CPU-mapped frames.
func Default() *Config {
	return &Config{
		CursorCapture:  false,
		BorderRequired: true,
		CPUAccess:      true,
		QueueCapacity:  32,
		LogLevel:       "info",
		LogFormat:      "text",
		LogMaxSizeMB:   20,
		LogMaxBackups:  3,
	}
}

// Load reads cfgFile (or wgcap.yaml from the config dir / working dir) and
// WGCAP_* environment variables on top of Default(). A missing default
// config file is not an error.
func Load(cfgFile string) (*Config, error) {
	return load(viper.New(), cfgFile)
}

func load(v *viper.Viper, cfgFile string) (*Config, error) {
	cfg := Default()

	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("wgcap")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir())
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("WGCAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that
// are absent from the config file.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("cursor_capture", cfg.CursorCapture)
	v.SetDefault("border_required", cfg.BorderRequired)
	v.SetDefault("cpu_access", cfg.CPUAccess)
	v.SetDefault("fence_before_map", cfg.FenceBeforeMap)
	v.SetDefault("queue_capacity", cfg.QueueCapacity)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_format", cfg.LogFormat)
	v.SetDefault("log_file", cfg.LogFile)
	v.SetDefault("log_max_size_mb", cfg.LogMaxSizeMB)
	v.SetDefault("log_max_backups", cfg.LogMaxBackups)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "wgcap")
	default:
		if dir, err := os.UserConfigDir(); err == nil {
			return filepath.Join(dir, "wgcap")
		}
		return "."
	}
}
