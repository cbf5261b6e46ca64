package router

import "context"

// Param is one extracted parameter.
type Param struct {
	Key   string `msgpack:"k"`
	Value string `msgpack:"v"`
}

// Params is an ordered list of parameters: path parameters in template
// order, then host, port and scheme parameters. Values are raw strings.
type Params []Param

// Get returns the value of the first parameter with the given key.
func (ps Params) Get(key string) string {
	v, _ := ps.Lookup(key)
	return v
}

// Lookup returns the value of key and whether it is present.
func (ps Params) Lookup(key string) (string, bool) {
	for _, p := range ps {
		if p.Key == key {
			return p.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present.
func (ps Params) Has(key string) bool {
	_, ok := ps.Lookup(key)
	return ok
}

// Keys returns the parameter names in order.
func (ps Params) Keys() []string {
	keys := make([]string, len(ps))
	for i, p := range ps {
		keys[i] = p.Key
	}
	return keys
}

// Map returns the parameters as a map.
func (ps Params) Map() map[string]string {
	m := make(map[string]string, len(ps))
	for _, p := range ps {
		m[p.Key] = p.Value
	}
	return m
}

type paramsContextKey struct{}

// WithParams returns a context carrying ps.
func WithParams(ctx context.Context, ps Params) context.Context {
	return context.WithValue(ctx, paramsContextKey{}, ps)
}

// ParamsFromContext returns the parameters stored by WithParams.
func ParamsFromContext(ctx context.Context) Params {
	ps, _ := ctx.Value(paramsContextKey{}).(Params)
	return ps
}
