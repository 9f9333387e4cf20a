package config

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

type Config struct {
	ListenAddr        string `yaml:"listen_addr"`
	Workers           int    `yaml:"workers"`
	SessionCapacity   int    `yaml:"session_capacity"`
	SessionTTLMinutes int    `yaml:"session_ttl_minutes"`
	JPEGQuality       int    `yaml:"jpeg_quality"`
	MaxUploadBytes    int64  `yaml:"max_upload_bytes"`
}

func Default() Config {
	return Config{
		ListenAddr:        ":8080",
		Workers:           4,
		SessionCapacity:   100,
		SessionTTLMinutes: 30,
		JPEGQuality:       92,
		MaxUploadBytes:    32 << 20, // 32 MiB
	}
}

// Load reads a YAML config file over the defaults. A missing file is not
// an error; the defaults apply as-is.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}
