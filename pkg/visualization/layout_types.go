package visualization

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/graph"
	"github.com/dd0wney/forcegraph/pkg/validation"
)

// Physics holds the force model constants
type Physics struct {
	RepelForce        float64 `yaml:"repel_force" json:"repelForce"`
	RepulsionConstant float64 `yaml:"repulsion_constant" json:"repulsionConstant"`
	RepulsionCap      float64 `yaml:"repulsion_cap" json:"repulsionCap"`
	CenterCoefficient float64 `yaml:"center_coefficient" json:"centerCoefficient"`
	SpringCoefficient float64 `yaml:"spring_coefficient" json:"springCoefficient"`
	LinkDistance      float64 `yaml:"link_distance" json:"linkDistance"`
	Damping           float64 `yaml:"damping" json:"damping"`
}

// DefaultPhysics returns constants tuned for a few dozen nodes on an 800x600 canvas
func DefaultPhysics() Physics {
	return Physics{
		RepelForce:        1,
		RepulsionConstant: 60000,
		RepulsionCap:      20,
		CenterCoefficient: 3e-5,
		SpringCoefficient: 0.4,
		LinkDistance:      100,
		Damping:           0.01,
	}
}

// Validate checks the constants
func (p Physics) Validate() error {
	return validation.NewConfigValidator("Physics").
		NonNegativeFloat("RepelForce", p.RepelForce).
		NonNegativeFloat("RepulsionConstant", p.RepulsionConstant).
		PositiveFloat("RepulsionCap", p.RepulsionCap).
		NonNegativeFloat("CenterCoefficient", p.CenterCoefficient).
		NonNegativeFloat("SpringCoefficient", p.SpringCoefficient).
		NonNegativeFloat("LinkDistance", p.LinkDistance).
		Fraction("Damping", p.Damping).
		Validate()
}

// LayoutConfig configures the engine and the placement layouts
type LayoutConfig struct {
	Width   float64 `yaml:"width" json:"width"`     // Canvas width
	Height  float64 `yaml:"height" json:"height"`   // Canvas height
	Padding float64 `yaml:"padding" json:"padding"` // Margin kept clear by seeders

	Physics Physics `yaml:"physics" json:"physics"`

	// Warm start: the first WarmStartFrames frames run up to
	// WarmStartPasses passes each, decaying logistically to one.
	WarmStartFrames int `yaml:"warm_start_frames" json:"warmStartFrames"`
	WarmStartPasses int `yaml:"warm_start_passes" json:"warmStartPasses"`
}

// DefaultLayoutConfig returns the default canvas and physics
func DefaultLayoutConfig() LayoutConfig {
	return LayoutConfig{
		Width:           800,
		Height:          600,
		Padding:         50,
		Physics:         DefaultPhysics(),
		WarmStartFrames: 15,
		WarmStartPasses: 30,
	}
}

// Validate checks the canvas, warm start and physics settings
func (c LayoutConfig) Validate() error {
	cv := validation.NewConfigValidator("LayoutConfig").
		PositiveFloat("Width", c.Width).
		PositiveFloat("Height", c.Height).
		NonNegativeFloat("Padding", c.Padding).
		Custom("Padding", func() error {
			// seeders need a non-empty area inside the margin
			if 2*c.Padding >= math.Min(c.Width, c.Height) {
				return fmt.Errorf("value %g leaves no room on a %gx%g canvas", c.Padding, c.Width, c.Height)
			}
			return nil
		}).
		MinInt("WarmStartFrames", c.WarmStartFrames, 0).
		When(c.WarmStartFrames > 0, func(cv *validation.ConfigValidator) {
			cv.RangeInt("WarmStartPasses", c.WarmStartPasses, 1, 1000)
		})
	return errors.Join(cv.Validate(), c.Physics.Validate())
}

// Center returns the canvas centre used by the center force
func (c LayoutConfig) Center() geometry.Point {
	return geometry.Point{X: c.Width / 2, Y: c.Height / 2}
}

// FrameStats describes one advanced frame
type FrameStats struct {
	Frame    int           `json:"frame"`
	Passes   int           `json:"passes"`
	MaxDelta float64       `json:"maxDelta"` // largest per-axis move in the last pass
	Duration time.Duration `json:"duration"`
}

// Settled reports whether the last pass moved nothing by more than epsilon
func (s FrameStats) Settled(epsilon float64) bool {
	return s.Passes > 0 && s.MaxDelta <= epsilon
}

// Layout computes positions for every node in a store
type Layout interface {
	ComputeLayout(s *graph.Store) map[graph.NodeID]geometry.Point
}

// Seeder picks a starting position for a node about to be created
type Seeder interface {
	Seed(s *graph.Store, spec graph.NodeSpec) geometry.Point
}

// Placement can both arrange a whole store and seed single nodes
type Placement interface {
	Layout
	Seeder
}
