// Package config loads the demo configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rect is the bouncing rectangle.
type Rect struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	VX     float64 `yaml:"vx"`
	VY     float64 `yaml:"vy"`
	Width  int     `yaml:"width"`
	Height int     `yaml:"height"`
	Color  uint32  `yaml:"color"` // 0xRRGGBB
}

type Config struct {
	Device    string `yaml:"device"`
	Frames    uint64 `yaml:"frames"` // 0 runs until interrupted
	Image     string `yaml:"image,omitempty"`
	HUD       bool   `yaml:"hud"`
	Border    bool   `yaml:"border"`
	Backlight string `yaml:"backlight,omitempty"` // GPIO pin name
	Debug     bool   `yaml:"debug"`

	Rect Rect `yaml:"rect"`
}

// Default configuration: card0 with a 100×100 magenta rectangle.
func Default() *Config {
	return &Config{
		Device: "/dev/dri/card0",
		Rect: Rect{
			X: 50, Y: 50,
			VX: 3.5, VY: 3.5,
			Width: 100, Height: 100,
			Color: 0xff00ff,
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return c, nil
}

func (c *Config) Validate() error {
	if c.Device == "" {
		return fmt.Errorf("device not set")
	}
	if c.Rect.Width <= 0 || c.Rect.Height <= 0 {
		return fmt.Errorf("invalid rectangle size %dx%d", c.Rect.Width, c.Rect.Height)
	}
	if c.Rect.X < 0 || c.Rect.Y < 0 {
		return fmt.Errorf("rectangle starts off screen at %g,%g", c.Rect.X, c.Rect.Y)
	}
	if c.Rect.Color > 0xffffff {
		return fmt.Errorf("rectangle color %#x exceeds 24 bits", c.Rect.Color)
	}
	return nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}
