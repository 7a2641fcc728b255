package provider

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/orbit-lab/orbit-trading/internal/execution"
	"github.com/orbit-lab/orbit-trading/internal/signal"
	"github.com/orbit-lab/orbit-trading/internal/types"
	"github.com/orbit-lab/orbit-trading/pkg/errors"
	"github.com/orbit-lab/orbit-trading/pkg/schema"
)

// Config is the provider configuration, loadable from YAML.
type Config struct {
	// Seed drives every random source in the provider. Zero picks a
	// time-based seed.
	Seed int64 `json:"seed" yaml:"seed" jsonschema:"description=Seed for all random sources; 0 uses the current time"`
	// Instruments are subscribed at startup.
	Instruments []string `json:"instruments" yaml:"instruments" jsonschema:"description=Instrument symbols subscribed at startup"`
	// AccountRefreshInterval is how often account figures refresh while
	// connected.
	AccountRefreshInterval time.Duration `json:"account_refresh_interval" yaml:"account_refresh_interval" jsonschema:"description=Account refresh cadence while connected"`
	// Strategies are added to the store at startup.
	Strategies []types.StrategySpec `json:"strategies" yaml:"strategies" jsonschema:"description=Strategies registered at startup"`

	Execution execution.Config `json:"execution" yaml:"execution" jsonschema:"description=Trade execution settings"`
	Signal    signal.Config    `json:"signal" yaml:"signal" jsonschema:"description=Signal engine settings"`
}

// DefaultConfig returns the provider defaults.
func DefaultConfig() Config {
	return Config{
		Instruments:            []string{"EURUSD"},
		AccountRefreshInterval: 5 * time.Second,
		Execution:              execution.DefaultConfig(),
		Signal:                 signal.DefaultConfig(),
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "cannot read config file %s", path)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "cannot parse config file %s", path)
	}

	return cfg, nil
}

// GetConfigSchema returns the JSON schema of the provider configuration.
func GetConfigSchema() (string, error) {
	return schema.ToJSONSchema(&Config{})
}
