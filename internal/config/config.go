// Package config resolves run settings from flags, CHECKPOINT_* environment
// variables, an optional .env file and an optional .checkpoint.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	FileName  = ".checkpoint"
	EnvPrefix = "CHECKPOINT"

	KeyManifest         = "manifest"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
	KeyTrackingDisabled = "tracking.disabled"
	KeyTrackingFile     = "tracking.file"
	KeyExclude          = "exclude"
)

type Config struct {
	Manifest         string
	LogLevel         string
	LogFormat        string
	TrackingDisabled bool
	TrackingFile     string
	Exclude          []string
	ConfigFile       string
}

// flagKeys maps command flags onto config keys.
var flagKeys = map[string]string{
	"manifest":         KeyManifest,
	"log-level":        KeyLogLevel,
	"log-format":       KeyLogFormat,
	"disable-tracking": KeyTrackingDisabled,
	"tracking-file":    KeyTrackingFile,
	"exclude":          KeyExclude,
}

// Load resolves the configuration for a run rooted at workDir. An explicit
// configFile must exist; the default .checkpoint.yaml is optional.
func Load(workDir, configFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(filepath.Join(workDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	v.SetDefault(KeyManifest, "target/manifest.json")
	v.SetDefault(KeyLogLevel, "warn")
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyTrackingDisabled, false)
	v.SetDefault(KeyTrackingFile, "")
	v.SetDefault(KeyExclude, []string{})

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.AddConfigPath(workDir)
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			if flag := flags.Lookup(name); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind --%s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{
		Manifest:         strings.TrimSpace(v.GetString(KeyManifest)),
		LogLevel:         v.GetString(KeyLogLevel),
		LogFormat:        v.GetString(KeyLogFormat),
		TrackingDisabled: v.GetBool(KeyTrackingDisabled),
		TrackingFile:     strings.TrimSpace(v.GetString(KeyTrackingFile)),
		Exclude:          v.GetStringSlice(KeyExclude),
		ConfigFile:       v.ConfigFileUsed(),
	}
	if cfg.Manifest == "" {
		cfg.Manifest = "target/manifest.json"
	}
	if cfg.TrackingFile != "" && !filepath.IsAbs(cfg.TrackingFile) {
		cfg.TrackingFile = filepath.Join(workDir, cfg.TrackingFile)
	}
	return cfg, nil
}
