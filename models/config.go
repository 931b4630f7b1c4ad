package models

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can say "30s" or "2m".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Config holds runtime configuration for the organizer. Values resolve as
// CLI flag > environment > config file > default.
type Config struct {
	OllamaHost     string   `yaml:"ollama_host"`
	Model          string   `yaml:"model"`
	ChunkSize      int      `yaml:"chunk_size"`
	Workers        int      `yaml:"workers"`
	RequestTimeout Duration `yaml:"request_timeout"`
	Temperature    float64  `yaml:"temperature"`
	NumPredict     int      `yaml:"num_predict"`
	DBPath         string   `yaml:"db_path"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		OllamaHost:     "http://localhost:11434",
		Model:          "llama3.1:8b",
		ChunkSize:      50,
		Workers:        1,
		RequestTimeout: Duration(60 * time.Second),
		Temperature:    0.1,
		NumPredict:     2048,
	}
}

// LoadConfig reads a YAML config file over the defaults, then applies
// environment overrides. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if host := os.Getenv("OLLAMA_HOST"); host != "" {
		cfg.OllamaHost = host
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		cfg.Model = model
	}

	return cfg, nil
}
