package application

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/derivscan/internal/domain/indicators"
	"github.com/sawpanic/derivscan/internal/infrastructure/cache"
	"github.com/sawpanic/derivscan/internal/infrastructure/db"
	httpiface "github.com/sawpanic/derivscan/internal/interfaces/http"
	"github.com/sawpanic/derivscan/internal/scheduler"
)

// Config is the full service configuration, loaded from one YAML file.
// Absent fields take their struct defaults.
type Config struct {
	Log        LogConfig             `yaml:"log"`
	Database   db.Config             `yaml:"database" validate:"required"`
	Guard      db.GuardConfig        `yaml:"guard"`
	Redis      cache.Config          `yaml:"redis"`
	Thresholds indicators.Thresholds `yaml:"thresholds"`
	Scheduler  scheduler.Config      `yaml:"scheduler"`
	Monitor    httpiface.Config      `yaml:"monitor"`
}

// LogConfig tunes the zerolog output.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=trace debug info warn error"`
	Pretty bool   `yaml:"pretty" default:"false"`
}

// LoadConfig reads, defaults and validates the configuration file.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("applying config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return &c, nil
}

// DefaultConfig returns the configuration with every default applied and no
// database DSN; useful for tests and for printing a reference config.
func DefaultConfig() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
