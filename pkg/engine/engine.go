// Package engine provides the Lisp scripting engine for siphon.
// It wraps zygomys in a sandboxed environment and builds top-level
// layout cells from PCell instances placed by user source code.
package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/siphon/pkg/cache"
	"github.com/chazu/siphon/pkg/layout"
	"github.com/chazu/siphon/pkg/layout/memory"
	"github.com/chazu/siphon/pkg/pcell"
	"github.com/chazu/siphon/pkg/route"
	"github.com/chazu/siphon/pkg/tech"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Design is the output of a successful evaluation: the top cells the
// script declared, in declaration order, and the session and backend
// their PCell instances were drawn in.
type Design struct {
	Session *pcell.Session
	Backend layout.Backend
	Cells   []layout.Cell

	byName map[string]layout.Cell
}

func newDesign(s *pcell.Session, b layout.Backend) *Design {
	return &Design{Session: s, Backend: b, byName: make(map[string]layout.Cell)}
}

// Cell returns the top cell declared with name.
func (d *Design) Cell(name string) (layout.Cell, bool) {
	c, ok := d.byName[name]
	return c, ok
}

// Top returns the last declared cell, or nil when the script declared
// none.
func (d *Design) Top() layout.Cell {
	if len(d.Cells) == 0 {
		return nil
	}
	return d.Cells[len(d.Cells)-1]
}

func (d *Design) add(c layout.Cell) error {
	if _, ok := d.byName[c.Name()]; ok {
		return fmt.Errorf("cell %q already declared", c.Name())
	}
	d.byName[c.Name()] = c
	d.Cells = append(d.Cells, c)
	return nil
}

// DefaultTimeout is the hard limit for a single evaluation.
const DefaultTimeout = 5 * time.Second

// Fatal evaluation outcomes.
var (
	ErrTimeout    = errors.New("evaluation timed out")
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// Engine wraps the zygomys interpreter for siphon scripts.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment and session for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	reg      *pcell.Registry
	layers   tech.LayerTable
	cache    cache.Cache
	settings pcell.Settings
	route    route.Options
	timeout  time.Duration
	logger   *log.Logger
	backend  func() layout.Backend
}

// evalResult carries one evaluation back to Evaluate.
type evalResult struct {
	design *Design
	errors []EvalError
	err    error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger handed to evaluation sessions.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithLayers sets the technology scripts resolve layer names against.
func WithLayers(t tech.LayerTable) Option {
	return func(e *Engine) { e.layers = t }
}

// WithCache shares a realized cell cache across evaluations.
func WithCache(c cache.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithSettings sets the geometry settings of evaluation sessions.
func WithSettings(s pcell.Settings) Option {
	return func(e *Engine) { e.settings = s }
}

// WithRouteOptions sets the defaults for the route builtin.
func WithRouteOptions(o route.Options) Option {
	return func(e *Engine) { e.route = o }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithBackend sets the layout backend each evaluation draws into. The
// factory is called once per Evaluate. The default is an in-memory
// backend.
func WithBackend(newBackend func() layout.Backend) Option {
	return func(e *Engine) { e.backend = newBackend }
}

// NewEngine creates an engine whose scripts instantiate types from reg.
func NewEngine(reg *pcell.Registry, opts ...Option) *Engine {
	e := &Engine{
		reg:      reg,
		settings: pcell.DefaultSettings(),
		route:    route.DefaultOptions(),
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	if e.backend == nil {
		e.backend = func() layout.Backend { return memory.New() }
	}
	return e
}

// Evaluate runs source and returns the cells it declared.
//
// Return semantics:
//   - On success: returns design + nil errors + nil error
//   - On parse/eval failure: returns nil design + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Design, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		d, evalErrs, err := e.evaluate(source)
		ch <- evalResult{design: d, errors: evalErrs, err: err}
	}()

	return e.await(ch, gen)
}

// await returns the result of evaluation gen unless the timeout fires
// first or a newer evaluation has started by the time it arrives. A
// timed out evaluation keeps running; its result is dropped.
func (e *Engine) await(ch <-chan evalResult, gen uint64) (*Design, []EvalError, error) {
	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		e.mu.Lock()
		stale := gen != e.generation
		e.mu.Unlock()
		if stale {
			return nil, nil, ErrSuperseded
		}
		return res.design, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, e.timeout)
	}
}

func (e *Engine) newSession() (*pcell.Session, layout.Backend) {
	b := e.backend()
	opts := []pcell.Option{pcell.WithLogger(e.logger), pcell.WithSettings(e.settings)}
	if e.layers != nil {
		opts = append(opts, pcell.WithLayers(e.layers))
	}
	if e.cache != nil {
		opts = append(opts, pcell.WithCache(e.cache))
	}
	return pcell.NewSession(e.reg, b, opts...), b
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Design, []EvalError, error) {
	s, b := e.newSession()
	d := newDesign(s, b)

	// Empty source is a valid program that declares no cells.
	if strings.TrimSpace(source) == "" {
		return d, nil, nil
	}

	start := time.Now()
	e.logger.Debug("evaluating script", "bytes", len(source))

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	registerBuiltins(env, &builder{
		session: s,
		design:  d,
		layers:  e.layers,
		route:   e.route,
	})

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	e.logger.Debug("script evaluated", "cells", len(d.Cells), "elapsed", time.Since(start))
	return d, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	// zygomys formats parse errors as "Error on line N: <details>\n"
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}

	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
