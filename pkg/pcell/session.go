package pcell

import (
	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/chazu/siphon/pkg/cache"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/tech"
	"github.com/chazu/siphon/pkg/waveguide"
)

// Settings are the geometry tolerances draw functions read from their
// context.
type Settings struct {
	Waveguide     waveguide.Options // joins, miter limit and arc sampling
	PortTolerance float64           // width mismatch accepted by Connect
	MaxDepth      int               // maximum hierarchy depth
}

// DefaultSettings returns the settings used when none are given.
func DefaultSettings() Settings {
	return Settings{
		Waveguide:     waveguide.DefaultOptions(),
		PortTolerance: 1e-3,
		MaxDepth:      64,
	}
}

// Session binds a registry to a layout backend. Instances created by a
// session draw into its backend.
type Session struct {
	reg      *Registry
	backend  layout.Backend
	layers   tech.LayerTable
	cache    cache.Cache
	logger   *log.Logger
	settings Settings
}

// Option configures a Session.
type Option func(*Session)

// WithLayers sets the technology used to fill default layer parameters.
func WithLayers(t tech.LayerTable) Option {
	return func(s *Session) { s.layers = t }
}

// WithCache enables the realized cell cache.
func WithCache(c cache.Cache) Option {
	return func(s *Session) { s.cache = c }
}

// WithLogger sets the session logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSettings overrides the geometry settings.
func WithSettings(st Settings) Option {
	return func(s *Session) { s.settings = st }
}

// NewSession creates a session drawing into backend.
func NewSession(reg *Registry, backend layout.Backend, opts ...Option) *Session {
	s := &Session{
		reg:      reg,
		backend:  backend,
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

func (s *Session) Registry() *Registry { return s.reg }
func (s *Session) Backend() layout.Backend { return s.backend }
func (s *Session) Layers() tech.LayerTable { return s.layers }
func (s *Session) Settings() Settings { return s.settings }
func (s *Session) Logger() *log.Logger { return s.logger }

// Instantiate resolves parameters and returns an unrealized instance.
func (s *Session) Instantiate(typeName string, overrides map[string]any) (*Instance, error) {
	return s.instantiate(typeName, overrides, 0)
}

func (s *Session) instantiate(typeName string, overrides map[string]any, depth int) (*Instance, error) {
	params, err := s.reg.Resolve(typeName, overrides, s.layers)
	if err != nil {
		return nil, err
	}
	return &Instance{
		id:       uuid.New(),
		typeName: typeName,
		params:   params,
		session:  s,
		depth:    depth,
	}, nil
}

// withBackend returns a copy of the session drawing into b.
func (s *Session) withBackend(b layout.Backend) *Session {
	cp := *s
	cp.backend = b
	return &cp
}
