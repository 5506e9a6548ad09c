package internal

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration shared by the kvs binaries.
type Config struct {
	Dir               string `yaml:"dir"`                 // Directory holding the segment files
	MaxSegmentRecords int    `yaml:"max_segment_records"` // Records per segment before rolling
	CompactionBase    int    `yaml:"compaction_base"`     // Additive term of the compaction threshold
	LogLevel          string `yaml:"log_level"`           // debug, info, warn or error
}

const DEFAULT_DIR = "."
const DEFAULT_MAX_SEGMENT_RECORDS = 1000
const DEFAULT_COMPACTION_BASE = 371
const DEFAULT_LOG_LEVEL = "warn"

var configSearchPaths = []string{"kvs.yaml", "configs/kvs.yaml"}

func DefaultConfig() *Config {
	return &Config{
		Dir:               DEFAULT_DIR,
		MaxSegmentRecords: DEFAULT_MAX_SEGMENT_RECORDS,
		CompactionBase:    DEFAULT_COMPACTION_BASE,
		LogLevel:          DEFAULT_LOG_LEVEL,
	}
}

// LoadConfig reads the YAML file at path over the defaults. An empty path
// tries the usual locations and falls back to the defaults when none exists;
// a named file that cannot be read is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		for _, p := range configSearchPaths {
			data, err := os.ReadFile(p)
			if err == nil {
				if err := yaml.Unmarshal(data, cfg); err != nil {
					return cfg, err
				}
				applyDefaults(cfg)
				return cfg, nil
			}
		}
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Dir == "" {
		cfg.Dir = DEFAULT_DIR
	}
	if cfg.MaxSegmentRecords <= 0 {
		cfg.MaxSegmentRecords = DEFAULT_MAX_SEGMENT_RECORDS
	}
	if cfg.CompactionBase <= 0 {
		cfg.CompactionBase = DEFAULT_COMPACTION_BASE
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		cfg.LogLevel = DEFAULT_LOG_LEVEL
	}
}
