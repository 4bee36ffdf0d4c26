package diagram

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/forcegraph/pkg/graph"
	"github.com/dd0wney/forcegraph/pkg/validation"
	"github.com/dd0wney/forcegraph/pkg/viewport"
	"github.com/dd0wney/forcegraph/pkg/visualization"
)

// ErrInvalidConfig is wrapped by every configuration validation failure
var ErrInvalidConfig = errors.New("invalid diagram configuration")

// AutoSizeCurve configures the logistic radius-from-degree curve from YAML
type AutoSizeCurve struct {
	MinRadius float64 `yaml:"min_radius" validate:"gt=0"`
	MaxRadius float64 `yaml:"max_radius" validate:"gt=0"`
	Midpoint  float64 `yaml:"midpoint" validate:"gte=0"`
	Steepness float64 `yaml:"steepness" validate:"gt=0"`
}

// Config holds every recognised diagram option
type Config struct {
	NodeColor  string `yaml:"node_color" validate:"hexcolor"`
	HoverColor string `yaml:"hover_color" validate:"hexcolor"`
	EdgeColor  string `yaml:"edge_color" validate:"hexcolor"`
	TextColor  string `yaml:"text_color" validate:"hexcolor"`
	Background string `yaml:"background" validate:"hexcolor"`
	Font       string `yaml:"font" validate:"required"`

	// Labels are drawn only at or above this zoom level
	MinLabelScale float64 `yaml:"min_label_scale" validate:"gte=0"`
	// Dim everything outside the hovered node's neighborhood
	DimNonNeighbors bool `yaml:"dim_non_neighbors"`

	DefaultRadius float64            `yaml:"default_radius" validate:"gt=0"`
	AutoSizeCurve *AutoSizeCurve     `yaml:"auto_size,omitempty" validate:"-"`
	AutoSize      graph.AutoSizeFunc `yaml:"-" validate:"-"` // overrides AutoSizeCurve

	// Placement names the seeder for nodes created without a position
	Placement string `yaml:"placement" validate:"omitempty,oneof=random circular hierarchical"`
	Seed      int64  `yaml:"seed"`

	Layout visualization.LayoutConfig `yaml:"layout" validate:"-"`
	View   viewport.Config            `yaml:"view" validate:"-"`
}

// DefaultConfig returns a light theme on an 800x600 canvas
func DefaultConfig() Config {
	return Config{
		NodeColor:     "#4e79a7",
		HoverColor:    "#f28e2b",
		EdgeColor:     "#9c9c9c",
		TextColor:     "#222222",
		Background:    "#ffffff",
		Font:          "12px sans-serif",
		MinLabelScale: 0.6,
		DefaultRadius: 10,
		Placement:     "random",
		Seed:          1,
		Layout:        visualization.DefaultLayoutConfig(),
		View:          viewport.DefaultConfig(),
	}
}

// withDefaults fills zero values. An all-zero Layout or Physics block takes
// the defaults wholesale; individual zero physics constants are kept.
func (c Config) withDefaults() Config {
	d := DefaultConfig()

	c.NodeColor = validation.DefaultOr(c.NodeColor, d.NodeColor)
	c.HoverColor = validation.DefaultOr(c.HoverColor, d.HoverColor)
	c.EdgeColor = validation.DefaultOr(c.EdgeColor, d.EdgeColor)
	c.TextColor = validation.DefaultOr(c.TextColor, d.TextColor)
	c.Background = validation.DefaultOr(c.Background, d.Background)
	c.Font = validation.DefaultOr(c.Font, d.Font)
	c.DefaultRadius = validation.DefaultOr(c.DefaultRadius, d.DefaultRadius)
	c.Placement = validation.DefaultOr(c.Placement, d.Placement)

	if c.Layout == (visualization.LayoutConfig{}) {
		c.Layout = d.Layout
	}
	c.Layout.Width = validation.DefaultOr(c.Layout.Width, d.Layout.Width)
	c.Layout.Height = validation.DefaultOr(c.Layout.Height, d.Layout.Height)
	if c.Layout.Physics == (visualization.Physics{}) {
		c.Layout.Physics = d.Layout.Physics
	}

	c.View.MinScale = validation.DefaultOr(c.View.MinScale, d.View.MinScale)
	c.View.MaxScale = validation.DefaultOr(c.View.MaxScale, d.View.MaxScale)
	c.View.InitialScale = validation.DefaultOr(c.View.InitialScale, d.View.InitialScale)
	c.View.ZoomSpeed = validation.DefaultOr(c.View.ZoomSpeed, d.View.ZoomSpeed)
	c.View.PixelRatio = validation.DefaultOr(c.View.PixelRatio, d.View.PixelRatio)
	c.View.PrefsTimeout = validation.DefaultOr(c.View.PrefsTimeout, d.View.PrefsTimeout)
	return c
}

// Validate reports every violated field. The error wraps ErrInvalidConfig.
func (c Config) Validate() error {
	cv := validation.NewConfigValidator("Config").
		Struct(c).
		Finite("MinLabelScale", c.MinLabelScale).
		When(c.AutoSizeCurve != nil, func(cv *validation.ConfigValidator) {
			curve := *c.AutoSizeCurve
			cv.Struct(curve).
				LessOrEqual("AutoSizeCurve.MinRadius", curve.MinRadius, "AutoSizeCurve.MaxRadius", curve.MaxRadius)
		})

	err := errors.Join(cv.Validate(), c.Layout.Validate(), c.View.Validate())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// autoSize resolves the radius function: explicit func, YAML curve, default
func (c Config) autoSize() graph.AutoSizeFunc {
	switch {
	case c.AutoSize != nil:
		return c.AutoSize
	case c.AutoSizeCurve != nil:
		a := c.AutoSizeCurve
		return graph.LogisticAutoSize(a.MinRadius, a.MaxRadius, a.Midpoint, a.Steepness)
	default:
		return graph.DefaultAutoSize
	}
}

// LoadConfig reads a YAML file over DefaultConfig and validates the result
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("%w: failed to parse %s: %w", ErrInvalidConfig, path, err)
	}

	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
