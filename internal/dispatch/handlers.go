package dispatch

import (
	"errors"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/vyrodovalexey/avarouter/internal/util"
)

var (
	errNilHandler         = errors.New("handler is nil")
	errUnknownHandler     = errors.New("no handler registered under this name")
	errUnsupportedHandler = errors.New("unsupported handler type")
)

// HandlerResolver turns the handler reference stored on a route into
// an http.Handler.
type HandlerResolver interface {
	ResolveHandler(ref any) (http.Handler, error)
}

// HandlerResolverFunc adapts a function to HandlerResolver.
type HandlerResolverFunc func(ref any) (http.Handler, error)

// ResolveHandler calls f(ref).
func (f HandlerResolverFunc) ResolveHandler(ref any) (http.Handler, error) {
	return f(ref)
}

// HandlerFactory builds a handler from the argument of a reference of
// the form "name:arg".
type HandlerFactory func(arg string) (http.Handler, error)

// HandlerRegistry is the default HandlerResolver. Values that already
// are handlers resolve to themselves; strings are looked up by name,
// falling back to a factory keyed by the part before the first ':'.
// Handlers built by factories are kept per reference.
type HandlerRegistry struct {
	mu        sync.RWMutex
	handlers  map[string]http.Handler
	factories map[string]HandlerFactory
}

// NewHandlerRegistry creates an empty registry.
func NewHandlerRegistry() *HandlerRegistry {
	return &HandlerRegistry{
		handlers:  make(map[string]http.Handler),
		factories: make(map[string]HandlerFactory),
	}
}

// Register binds name to h, replacing any previous binding.
func (hr *HandlerRegistry) Register(name string, h http.Handler) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	hr.handlers[name] = h
}

// RegisterFunc binds name to a handler function.
func (hr *HandlerRegistry) RegisterFunc(name string, fn func(http.ResponseWriter, *http.Request)) {
	hr.Register(name, http.HandlerFunc(fn))
}

// RegisterFactory binds a factory for references "name:<arg>".
func (hr *HandlerRegistry) RegisterFactory(name string, f HandlerFactory) {
	hr.mu.Lock()
	defer hr.mu.Unlock()
	hr.factories[name] = f
}

// Names returns the registered handler and factory names, sorted.
func (hr *HandlerRegistry) Names() []string {
	hr.mu.RLock()
	defer hr.mu.RUnlock()

	names := slices.Collect(maps.Keys(hr.handlers))
	for name := range hr.factories {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// ResolveHandler implements HandlerResolver.
func (hr *HandlerRegistry) ResolveHandler(ref any) (http.Handler, error) {
	switch h := ref.(type) {
	case nil:
		return nil, util.NewHandlerResolutionError("<nil>", errNilHandler)
	case http.Handler:
		return h, nil
	case func(http.ResponseWriter, *http.Request):
		return http.HandlerFunc(h), nil
	case string:
		return hr.resolveName(h)
	default:
		return nil, util.NewHandlerResolutionError(fmt.Sprintf("<%T>", ref), errUnsupportedHandler)
	}
}

func (hr *HandlerRegistry) resolveName(ref string) (http.Handler, error) {
	hr.mu.RLock()
	h, ok := hr.handlers[ref]
	hr.mu.RUnlock()
	if ok {
		return h, nil
	}

	name, arg, _ := strings.Cut(ref, ":")

	hr.mu.Lock()
	defer hr.mu.Unlock()

	if h, ok := hr.handlers[ref]; ok {
		return h, nil
	}
	factory, ok := hr.factories[name]
	if !ok {
		return nil, util.NewHandlerResolutionError(ref, errUnknownHandler)
	}

	h, err := factory(arg)
	if err != nil {
		return nil, util.NewHandlerResolutionError(ref, err)
	}
	if h == nil {
		return nil, util.NewHandlerResolutionError(ref, errNilHandler)
	}
	hr.handlers[ref] = h
	return h, nil
}
