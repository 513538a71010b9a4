// Package config loads legalkit settings from defaults, an optional
// legalkit.toml, LEGALKIT_* environment variables and bound flags.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/wudi/legalkit/storage"
)

const (
	FileName  = "legalkit"
	EnvPrefix = "LEGALKIT"
)

// Config is the unmarshalled settings tree.
type Config struct {
	Log      LogConfig      `mapstructure:"log"`
	Stamp    StampConfig    `mapstructure:"stamp"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Checksum ChecksumConfig `mapstructure:"checksum"`
	Split    SplitConfig    `mapstructure:"split"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type StampConfig struct {
	// FontFile is a TrueType font for exhibit stamps; the standard
	// Helvetica is used when empty.
	FontFile string `mapstructure:"font_file"`
}

type StorageConfig struct {
	Retries int         `mapstructure:"retries"`
	HTTP    HTTPConfig  `mapstructure:"http"`
	GDrive  DriveConfig `mapstructure:"gdrive"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	// Hosts lists "https://host/" prefixes served by plain HTTP downloads.
	Hosts []string `mapstructure:"hosts"`
}

type DriveConfig struct {
	Token   string `mapstructure:"token"`
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

type SyncConfig struct {
	Workers            int     `mapstructure:"workers"`
	DownloadsPerSecond float64 `mapstructure:"downloads_per_second"`
}

type ChecksumConfig struct {
	Workers int `mapstructure:"workers"`
}

type SplitConfig struct {
	CacheSize int `mapstructure:"cache_size"`
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("stamp.font_file", "")
	v.SetDefault("storage.retries", storage.DefaultRetries)
	v.SetDefault("storage.http.timeout", storage.DefaultTimeout)
	v.SetDefault("storage.http.hosts", []string{})
	v.SetDefault("storage.gdrive.token", "")
	v.SetDefault("storage.gdrive.api_key", "")
	v.SetDefault("storage.gdrive.base_url", storage.DefaultDriveAPI)
	v.SetDefault("sync.workers", 0)
	v.SetDefault("sync.downloads_per_second", 4.0)
	v.SetDefault("checksum.workers", 0)
	v.SetDefault("split.cache_size", 8)
}

// Load reads settings into v and returns them. An explicit file must
// exist; otherwise legalkit.toml is looked up in the working directory and
// skipped when absent.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("toml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	return &cfg, nil
}

func (c *Config) clientConfig() storage.ClientConfig {
	return storage.ClientConfig{Timeout: c.Storage.HTTP.Timeout, Retries: c.Storage.Retries}
}

// Repository routes Google Drive links, the configured HTTP hosts and
// forced go-getter URLs ("git::...") to their repositories.
func (c *Config) Repository() *storage.Delegating {
	repo := storage.NewDelegating(&storage.Getter{})
	drive := c.Storage.GDrive
	repo.RegisterLazy(storage.DriveURLPrefix, func() (storage.Repository, error) {
		if drive.Token == "" && drive.APIKey == "" {
			return nil, errors.New("google drive needs storage.gdrive.token or storage.gdrive.api_key")
		}
		return storage.NewGoogleDrive(storage.DriveConfig{
			ClientConfig: c.clientConfig(),
			BaseURL:      drive.BaseURL,
			Token:        drive.Token,
			APIKey:       drive.APIKey,
		}), nil
	})
	if len(c.Storage.HTTP.Hosts) > 0 {
		http := storage.NewHTTP(c.clientConfig())
		for _, host := range c.Storage.HTTP.Hosts {
			if !strings.HasSuffix(host, "/") {
				host += "/"
			}
			repo.Register(host, http)
		}
	}
	return repo
}
