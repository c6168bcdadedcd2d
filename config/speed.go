package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DelayRange is an inclusive range a random delay is drawn from
type DelayRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// SpeedProfileConfig holds throttling parameters for one named speed
type SpeedProfileConfig struct {
	InviteDelay  DelayRange `yaml:"invite_delay"`
	AccountDelay DelayRange `yaml:"account_delay"`
	BatchSize    int        `yaml:"batch_size"`
}

// Validate checks that ranges are ordered and the batch size is positive
func (p SpeedProfileConfig) Validate() error {
	if p.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be positive")
	}
	if p.InviteDelay.Min < 0 || p.InviteDelay.Max < p.InviteDelay.Min {
		return fmt.Errorf("invalid invite_delay range %s..%s", p.InviteDelay.Min, p.InviteDelay.Max)
	}
	if p.AccountDelay.Min < 0 || p.AccountDelay.Max < p.AccountDelay.Min {
		return fmt.Errorf("invalid account_delay range %s..%s", p.AccountDelay.Min, p.AccountDelay.Max)
	}
	return nil
}

// DefaultSpeedProfiles returns the built-in slow, normal and fast profiles
func DefaultSpeedProfiles() map[string]SpeedProfileConfig {
	return map[string]SpeedProfileConfig{
		"slow": {
			InviteDelay:  DelayRange{Min: 5 * time.Second, Max: 8 * time.Second},
			AccountDelay: DelayRange{Min: 60 * time.Second, Max: 90 * time.Second},
			BatchSize:    2,
		},
		"normal": {
			InviteDelay:  DelayRange{Min: 2 * time.Second, Max: 4 * time.Second},
			AccountDelay: DelayRange{Min: 30 * time.Second, Max: 60 * time.Second},
			BatchSize:    3,
		},
		"fast": {
			InviteDelay:  DelayRange{Min: 1 * time.Second, Max: 2 * time.Second},
			AccountDelay: DelayRange{Min: 15 * time.Second, Max: 30 * time.Second},
			BatchSize:    5,
		},
	}
}

// LoadSpeedProfiles reads speed profile overrides from a YAML file.
//
// Example:
//
//	fast:
//	  invite_delay: {min: 1s, max: 2s}
//	  account_delay: {min: 10s, max: 20s}
//	  batch_size: 5
func LoadSpeedProfiles(path string) (map[string]SpeedProfileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read speed profiles file: %w", err)
	}

	profiles := make(map[string]SpeedProfileConfig)
	if err := yaml.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed to parse speed profiles file: %w", err)
	}

	for name := range profiles {
		switch name {
		case "slow", "normal", "fast":
		default:
			return nil, fmt.Errorf("unknown speed profile %q in %s", name, path)
		}
	}

	return profiles, nil
}
