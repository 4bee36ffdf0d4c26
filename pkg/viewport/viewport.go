// Package viewport maps between device pixels and simulation coordinates and
// applies pan and zoom gestures to that mapping.
package viewport

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/forcegraph/pkg/geometry"
	"github.com/dd0wney/forcegraph/pkg/logging"
	"github.com/dd0wney/forcegraph/pkg/prefs"
	"github.com/dd0wney/forcegraph/pkg/validation"
)

// ScaleKey is the preference key holding the persisted zoom level
const ScaleKey = "forcegraph.scale"

// Hard limits for any configured scale range
const (
	MinScale = 0.1
	MaxScale = 20.0

	scaleStep = 0.1
)

// Config configures a Viewport
type Config struct {
	MinScale     float64       `yaml:"min_scale" validate:"gte=0.1,lte=20"`
	MaxScale     float64       `yaml:"max_scale" validate:"gte=0.1,lte=20"`
	InitialScale float64       `yaml:"initial_scale" validate:"gt=0"`
	ZoomSpeed    float64       `yaml:"zoom_speed" validate:"gt=0"`
	PixelRatio   float64       `yaml:"pixel_ratio" validate:"gt=0"`
	PersistZoom  bool          `yaml:"persist_zoom"`
	PrefsTimeout time.Duration `yaml:"prefs_timeout"`
}

// DefaultConfig returns the full scale range and one wheel notch ≈ 10%
func DefaultConfig() Config {
	return Config{
		MinScale:     MinScale,
		MaxScale:     MaxScale,
		InitialScale: 1,
		ZoomSpeed:    0.001,
		PixelRatio:   1,
		PrefsTimeout: 2 * time.Second,
	}
}

// Validate rejects ranges outside the hard limits or off the 0.1 grid
func (c Config) Validate() error {
	onGrid := func(v float64) func() error {
		return func() error {
			if math.Abs(geometry.Round1(v)-v) > 1e-9 {
				return errors.New("must be a multiple of 0.1")
			}
			return nil
		}
	}
	return validation.NewConfigValidator("Viewport").
		Struct(c).
		LessOrEqual("MinScale", c.MinScale, "MaxScale", c.MaxScale).
		Custom("MinScale", onGrid(c.MinScale)).
		Custom("MaxScale", onGrid(c.MaxScale)).
		When(c.MinScale <= c.MaxScale, func(cv *validation.ConfigValidator) {
			cv.RangeFloat("InitialScale", c.InitialScale, c.MinScale, c.MaxScale)
		}).
		NonNegativeFloat("PrefsTimeout", c.PrefsTimeout.Seconds()).
		Validate()
}

// Transform is the affine map device·ratio = (sim + translate) · scale
type Transform struct {
	Scale      float64 `json:"scale" yaml:"scale"`
	TranslateX float64 `json:"translateX" yaml:"translate_x"`
	TranslateY float64 `json:"translateY" yaml:"translate_y"`
	PixelRatio float64 `json:"pixelRatio" yaml:"pixel_ratio"`
}

func (t Transform) ratio() float64 {
	if t.PixelRatio <= 0 {
		return 1
	}
	return t.PixelRatio
}

// ToSim converts a device pixel to simulation space
func (t Transform) ToSim(px, py float64) geometry.Point {
	r := t.ratio()
	return geometry.Point{
		X: px*r/t.Scale - t.TranslateX,
		Y: py*r/t.Scale - t.TranslateY,
	}
}

// ToDevice converts a simulation point to device pixels
func (t Transform) ToDevice(p geometry.Point) (px, py float64) {
	r := t.ratio()
	return (p.X + t.TranslateX) * t.Scale / r, (p.Y + t.TranslateY) * t.Scale / r
}

// Viewport owns the live transform. It is not safe for concurrent use.
type Viewport struct {
	config Config
	t      Transform

	store   prefs.Store
	logger  logging.Logger
	onError func(error)
}

// Option configures a Viewport
type Option func(*Viewport)

// WithPrefs sets the store used for the persisted scale
func WithPrefs(store prefs.Store) Option {
	return func(v *Viewport) { v.store = store }
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(v *Viewport) { v.logger = logger }
}

// WithPersistErrorHandler is called with every failed scale write
func WithPersistErrorHandler(fn func(error)) Option {
	return func(v *Viewport) { v.onError = fn }
}

// New creates a viewport. When PersistZoom is set and a store is configured,
// the scale is restored from ScaleKey.
func New(ctx context.Context, config Config, opts ...Option) (*Viewport, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	v := &Viewport{config: config, logger: logging.NewNopLogger()}
	for _, opt := range opts {
		opt(v)
	}
	v.t = Transform{Scale: v.clamp(config.InitialScale), PixelRatio: config.PixelRatio}
	if v.persisting() {
		v.t.Scale = v.restore(ctx)
	}
	return v, nil
}

func (v *Viewport) persisting() bool {
	return v.config.PersistZoom && v.store != nil
}

// restore reads the persisted scale. Anything unusable falls back to the
// initial scale; out-of-range numbers are clamped.
func (v *Viewport) restore(ctx context.Context) float64 {
	fallback := v.t.Scale
	ctx, cancel := v.writeContext(ctx)
	defer cancel()

	raw, err := v.store.Get(ctx, ScaleKey)
	if errors.Is(err, prefs.ErrNotFound) {
		return fallback
	}
	if err != nil {
		v.logger.Warn("persisted scale unavailable", logging.Error(err))
		return fallback
	}

	s, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || !geometry.Finite(s) {
		v.logger.Warn("persisted scale is not a number", logging.String("value", raw))
		return fallback
	}
	return v.clamp(s)
}

func (v *Viewport) writeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if v.config.PrefsTimeout > 0 {
		return context.WithTimeout(ctx, v.config.PrefsTimeout)
	}
	return context.WithCancel(ctx)
}

func (v *Viewport) persist() {
	if !v.persisting() {
		return
	}
	ctx, cancel := v.writeContext(context.Background())
	defer cancel()

	value := strconv.FormatFloat(v.t.Scale, 'f', 1, 64)
	if err := v.store.Set(ctx, ScaleKey, value); err != nil {
		v.logger.Error("persist scale failed", logging.Scale(v.t.Scale), logging.Error(err))
		if v.onError != nil {
			v.onError(err)
		}
	}
}

// clamp rounds to one decimal and clamps into the configured range
func (v *Viewport) clamp(s float64) float64 {
	return geometry.Clamp(geometry.Round1(s), v.config.MinScale, v.config.MaxScale)
}

// Config returns the viewport configuration
func (v *Viewport) Config() Config {
	return v.config
}

// Transform returns a copy of the current transform
func (v *Viewport) Transform() Transform {
	return v.t
}

// Scale returns the current scale
func (v *Viewport) Scale() float64 {
	return v.t.Scale
}

// ToSim converts a device pixel to simulation space
func (v *Viewport) ToSim(px, py float64) geometry.Point {
	return v.t.ToSim(px, py)
}

// ToDevice converts a simulation point to device pixels
func (v *Viewport) ToDevice(p geometry.Point) (float64, float64) {
	return v.t.ToDevice(p)
}

// ZoomAt sets the scale to target, clamped and rounded, keeping the
// simulation point under (px, py) fixed. It reports whether the scale changed.
func (v *Viewport) ZoomAt(px, py, target float64) bool {
	if !geometry.Finite(target) {
		return false
	}
	s := v.clamp(target)
	if s == v.t.Scale {
		return false
	}

	anchor := v.t.ToSim(px, py)
	r := v.t.ratio()
	v.t.Scale = s
	v.t.TranslateX = px*r/s - anchor.X
	v.t.TranslateY = py*r/s - anchor.Y

	v.persist()
	return true
}

// Wheel zooms by a wheel delta about (px, py). Positive deltas zoom out.
// A non-zero delta always moves at least one 0.1 step unless a limit is hit.
func (v *Viewport) Wheel(px, py, deltaY float64) bool {
	if deltaY == 0 || !geometry.Finite(deltaY) {
		return false
	}
	s := v.t.Scale
	target := s * (1 - deltaY*v.config.ZoomSpeed)
	if v.clamp(target) == s {
		if deltaY > 0 {
			target = s - scaleStep
		} else {
			target = s + scaleStep
		}
	}
	return v.ZoomAt(px, py, target)
}

// Pan shifts the view by a device-space delta. The simulation moves by the
// same number of pixels at any zoom level.
func (v *Viewport) Pan(dx, dy float64) {
	r := v.t.ratio()
	v.t.TranslateX += dx * r / v.t.Scale
	v.t.TranslateY += dy * r / v.t.Scale
}

// Reset restores the initial scale and removes any translation
func (v *Viewport) Reset() bool {
	changed := v.t.Scale != v.clamp(v.config.InitialScale)
	v.t.Scale = v.clamp(v.config.InitialScale)
	v.t.TranslateX, v.t.TranslateY = 0, 0
	if changed {
		v.persist()
	}
	return changed
}

// Fit scales and centres the view so bounds fills a width x height device
// area less padding. Degenerate bounds only recentre.
func (v *Viewport) Fit(bounds geometry.Rect, width, height, padding float64) bool {
	s := v.t.Scale
	availW, availH := width-2*padding, height-2*padding
	if bounds.Width() > 0 && bounds.Height() > 0 && availW > 0 && availH > 0 {
		r := v.t.ratio()
		fit := math.Min(availW*r/bounds.Width(), availH*r/bounds.Height())
		s = geometry.Clamp(math.Floor(fit*10)/10, v.config.MinScale, v.config.MaxScale)
	}

	changed := s != v.t.Scale
	v.t.Scale = s

	c := bounds.Center()
	r := v.t.ratio()
	v.t.TranslateX = width/2*r/s - c.X
	v.t.TranslateY = height/2*r/s - c.Y

	if changed {
		v.persist()
	}
	return changed
}

// Set replaces the transform, e.g. when loading a snapshot. The scale is
// clamped into range and the pixel ratio is kept.
func (v *Viewport) Set(t Transform) bool {
	s := v.clamp(t.Scale)
	changed := s != v.t.Scale
	v.t.Scale = s
	v.t.TranslateX = t.TranslateX
	v.t.TranslateY = t.TranslateY
	if changed {
		v.persist()
	}
	return changed
}
