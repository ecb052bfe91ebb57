package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

const (
	DefaultAPIURL = "http://localhost:8080"
	DefaultRating = 5
	MinRating     = 1
	MaxRating     = 10
)

// Settings holds the driver settings persisted between runs.
type Settings struct {
	APIURL               string `yaml:"api_url"`
	DriverNotes          string `yaml:"driver_notes"`
	CarStability         int    `yaml:"car_stability"`
	CornerEntryStability int    `yaml:"corner_entry_stability"`
	CornerExitStability  int    `yaml:"corner_exit_stability"`
	Traction             int    `yaml:"traction"`
	BrakingStability     int    `yaml:"braking_stability"`
}

func DefaultSettings() Settings {
	return Settings{
		APIURL:               DefaultAPIURL,
		CarStability:         DefaultRating,
		CornerEntryStability: DefaultRating,
		CornerExitStability:  DefaultRating,
		Traction:             DefaultRating,
		BrakingStability:     DefaultRating,
	}
}

// DefaultSettingsFile returns $HOME/.auriga/settings.yml
func DefaultSettingsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".auriga", "settings.yml")
	}
	return filepath.Join(home, ".auriga", "settings.yml")
}

// LoadSettings reads the settings file at path.
// A missing file yields the defaults without error. A broken file yields the
// defaults together with the parse error, so callers may decide to just log it.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return s, fmt.Errorf("settings: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(), fmt.Errorf("settings: parse %s: %w", path, err)
	}
	s.normalize()
	return s, nil
}

// SaveSettings writes s to path, creating the directory if needed.
func SaveSettings(path string, s Settings) error {
	s.normalize()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("settings: create dir: %w", err)
	}
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("settings: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("settings: write %s: %w", path, err)
	}
	return nil
}

// normalize replaces unset ratings with the default and clamps the others to 1..10
func (s *Settings) normalize() {
	for _, r := range []*int{
		&s.CarStability,
		&s.CornerEntryStability,
		&s.CornerExitStability,
		&s.Traction,
		&s.BrakingStability,
	} {
		switch {
		case *r == 0:
			*r = DefaultRating
		case *r < MinRating:
			*r = MinRating
		case *r > MaxRating:
			*r = MaxRating
		}
	}
}

func (s Settings) Ratings() model.Ratings {
	return model.Ratings{
		CarStability:         s.CarStability,
		CornerEntryStability: s.CornerEntryStability,
		CornerExitStability:  s.CornerExitStability,
		Traction:             s.Traction,
		BrakingStability:     s.BrakingStability,
	}
}
