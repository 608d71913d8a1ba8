// Package config loads an optional YAML run profile so a fixed bench setup
// (tag width, pixel pitch, distances) does not have to be retyped on every
// run. Command-line flags always win over profile values.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Profile mirrors the command-line surface. Zero values mean "not set".
type Profile struct {
	TagWidth     float64 `yaml:"tag_width"`     // meters
	PixelWidth   float64 `yaml:"pixel_width"`   // micrometers
	TagDistance  float64 `yaml:"tag_distance"`  // meters
	TagDistance1 float64 `yaml:"tag_distance1"` // meters
	TagDistance2 float64 `yaml:"tag_distance2"` // meters
	FocalLength  float64 `yaml:"focal_length"`  // pixels
	CameraIndex  int     `yaml:"camera_index"`
	WithDelay    float64 `yaml:"with_delay"` // seconds
	TagFamily    string  `yaml:"tag_family"`
	Samples      int     `yaml:"samples"`
}

// Load reads and validates a profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &p, nil
}

// Validate rejects values that could never be right regardless of mode.
// Whether a field is required at all depends on the mode and is checked by
// the caller.
func (p *Profile) Validate() error {
	if p.TagWidth < 0 {
		return fmt.Errorf("tag_width must not be negative, got %v", p.TagWidth)
	}
	if p.PixelWidth < 0 {
		return fmt.Errorf("pixel_width must not be negative, got %v", p.PixelWidth)
	}
	if p.TagDistance < 0 || p.TagDistance1 < 0 || p.TagDistance2 < 0 {
		return fmt.Errorf("tag distances must not be negative")
	}
	if p.FocalLength < 0 {
		return fmt.Errorf("focal_length must not be negative, got %v", p.FocalLength)
	}
	if p.CameraIndex < 0 {
		return fmt.Errorf("camera_index must not be negative, got %d", p.CameraIndex)
	}
	if p.WithDelay < 0 {
		return fmt.Errorf("with_delay must not be negative, got %v", p.WithDelay)
	}
	if p.Samples < 0 {
		return fmt.Errorf("samples must not be negative, got %d", p.Samples)
	}
	return nil
}
