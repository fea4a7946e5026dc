// Package config loads engine settings from a TOML file and SIPHON_*
// environment variables on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"

	"github.com/chazu/siphon/pkg/cache"
	"github.com/chazu/siphon/pkg/geom"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/layout/memory"
	"github.com/chazu/siphon/pkg/layout/sdfx"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/pdkerr"
	"github.com/chazu/siphon/pkg/route"
	"github.com/chazu/siphon/pkg/waveguide"
)

// Configuration keys.
const (
	KeyArcMaxStep          = "arc.max_step"
	KeyArcTolerance        = "arc.tolerance"
	KeyWaveguideJoin       = "waveguide.join"
	KeyWaveguideMiterLimit = "waveguide.miter_limit"
	KeyPortTolerance       = "port.tolerance"
	KeyRouteClearance      = "route.clearance"
	KeyRouteRadius         = "route.radius"
	KeyEngineTimeout       = "engine.timeout"
	KeyEngineMaxDepth      = "engine.max_depth"
	KeyLayoutBackend       = "layout.backend"
	KeyCacheBackend        = "cache.backend"
	KeyCachePath           = "cache.path"
	KeyLogLevel            = "log.level"
)

// EnvPrefix prefixes environment overrides: SIPHON_ARC_TOLERANCE sets
// arc.tolerance.
const EnvPrefix = "SIPHON"

// SetDefaults installs the built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetConfigType("toml")

	arc := geom.DefaultArcOptions()
	v.SetDefault(KeyArcMaxStep, arc.MaxStep)
	v.SetDefault(KeyArcTolerance, arc.Tolerance)

	wg := waveguide.DefaultOptions()
	v.SetDefault(KeyWaveguideJoin, wg.Join.String())
	v.SetDefault(KeyWaveguideMiterLimit, wg.MiterLimit)

	s := pcell.DefaultSettings()
	v.SetDefault(KeyPortTolerance, s.PortTolerance)
	v.SetDefault(KeyEngineMaxDepth, s.MaxDepth)

	r := route.DefaultOptions()
	v.SetDefault(KeyRouteClearance, r.Clearance)
	v.SetDefault(KeyRouteRadius, r.Radius)

	v.SetDefault(KeyEngineTimeout, "5s")
	v.SetDefault(KeyLayoutBackend, "memory")
	v.SetDefault(KeyCacheBackend, "memory")
	v.SetDefault(KeyCachePath, "siphon-cache.db")
	v.SetDefault(KeyLogLevel, "info")
}

// Config is the decoded configuration.
type Config struct {
	Arc           geom.ArcOptions
	Waveguide     waveguide.Options
	PortTolerance float64
	Route         route.Options
	Timeout       time.Duration
	MaxDepth      int
	LayoutBackend string
	CacheBackend  string
	CachePath     string
	LogLevel      log.Level
}

// New returns a viper instance with defaults and environment overrides.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path, when not empty, over the defaults and decodes the
// result.
func Load(path string) (*Config, error) {
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}
	return Decode(v)
}

// Decode validates the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	join, err := waveguide.ParseJoin(v.GetString(KeyWaveguideJoin))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", KeyWaveguideJoin, err)
	}
	timeout, err := time.ParseDuration(v.GetString(KeyEngineTimeout))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", KeyEngineTimeout, err)
	}
	level, err := log.ParseLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", KeyLogLevel, err)
	}

	c := &Config{
		Arc: geom.ArcOptions{
			MaxStep:   v.GetFloat64(KeyArcMaxStep),
			Tolerance: v.GetFloat64(KeyArcTolerance),
		},
		PortTolerance: v.GetFloat64(KeyPortTolerance),
		Route: route.Options{
			Clearance: v.GetFloat64(KeyRouteClearance),
			Radius:    v.GetFloat64(KeyRouteRadius),
		},
		Timeout:       timeout,
		MaxDepth:      v.GetInt(KeyEngineMaxDepth),
		LayoutBackend: v.GetString(KeyLayoutBackend),
		CacheBackend:  v.GetString(KeyCacheBackend),
		CachePath:     v.GetString(KeyCachePath),
		LogLevel:      level,
	}
	c.Waveguide = waveguide.Options{
		Join:       join,
		MiterLimit: v.GetFloat64(KeyWaveguideMiterLimit),
		Arc:        c.Arc,
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	var errs []error
	check := func(ok bool, key string, val any) {
		if !ok {
			errs = append(errs, pdkerr.New(pdkerr.CodeInvalidArgument, "%s: invalid value %v", key, val))
		}
	}
	check(c.Arc.MaxStep > 0 && c.Arc.MaxStep <= 90, KeyArcMaxStep, c.Arc.MaxStep)
	check(c.Arc.Tolerance > 0, KeyArcTolerance, c.Arc.Tolerance)
	check(c.Waveguide.MiterLimit >= 1, KeyWaveguideMiterLimit, c.Waveguide.MiterLimit)
	check(c.PortTolerance >= 0, KeyPortTolerance, c.PortTolerance)
	check(c.Route.Clearance >= 0, KeyRouteClearance, c.Route.Clearance)
	check(c.Route.Radius >= 0, KeyRouteRadius, c.Route.Radius)
	check(c.Timeout > 0, KeyEngineTimeout, c.Timeout)
	check(c.MaxDepth > 0, KeyEngineMaxDepth, c.MaxDepth)
	if _, err := NewBackend(c.LayoutBackend); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Settings returns the PCell session settings.
func (c *Config) Settings() pcell.Settings {
	return pcell.Settings{
		Waveguide:     c.Waveguide,
		PortTolerance: c.PortTolerance,
		MaxDepth:      c.MaxDepth,
	}
}

// NewBackend returns a factory for the named layout backend: "memory"
// or "sdfx".
func NewBackend(name string) (func() layout.Backend, error) {
	switch name {
	case "memory":
		return func() layout.Backend { return memory.New() }, nil
	case "sdfx":
		return func() layout.Backend { return sdfx.New() }, nil
	}
	return nil, pdkerr.New(pdkerr.CodeInvalidArgument, "%s: unknown backend %q", KeyLayoutBackend, name)
}

// Backend returns the factory of the configured layout backend.
func (c *Config) Backend() (func() layout.Backend, error) {
	return NewBackend(c.LayoutBackend)
}

// Cache opens the configured cell cache.
func (c *Config) Cache() (cache.Cache, error) {
	return cache.New(c.CacheBackend, c.CachePath)
}
