package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/vyrodovalexey/avarouter/internal/util"
)

// Condition is a compiled CEL boolean expression deciding whether a
// pipeline stage runs for a request.
//
// Expressions see two variables:
//
//	request  map with method, path, host, scheme, port and headers
//	params   map of route parameters
//
// Header names in request.headers are lower case.
type Condition struct {
	expr    string
	program cel.Program
}

// Expression returns the source expression.
func (c *Condition) Expression() string { return c.expr }

// ParamsFunc returns the route parameters bound to a request.
type ParamsFunc func(r *http.Request) map[string]string

// ConditionCompiler compiles and caches conditions.
type ConditionCompiler struct {
	env *cel.Env

	mu       sync.Mutex
	programs map[string]*Condition
}

// NewConditionCompiler creates a compiler with the request/params
// environment.
func NewConditionCompiler() (*ConditionCompiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("request", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("params", cel.MapType(cel.StringType, cel.StringType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &ConditionCompiler{
		env:      env,
		programs: make(map[string]*Condition),
	}, nil
}

// Compile compiles expr, returning the cached condition when the same
// expression was compiled before.
func (cc *ConditionCompiler) Compile(expr string) (*Condition, error) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if c, ok := cc.programs[expr]; ok {
		return c, nil
	}

	ast, issues := cc.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile condition %q: %w", expr, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("condition %q must evaluate to bool, got %s", expr, out)
	}

	program, err := cc.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for %q: %w", expr, err)
	}

	c := &Condition{expr: expr, program: program}
	cc.programs[expr] = c
	return c, nil
}

// Eval evaluates the condition against a request.
func (c *Condition) Eval(r *http.Request, params map[string]string) (bool, error) {
	if params == nil {
		params = map[string]string{}
	}

	out, _, err := c.program.Eval(map[string]any{
		"request": requestAttributes(r),
		"params":  params,
	})
	if err != nil {
		return false, err
	}

	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition %q returned %T", c.expr, out.Value())
	}
	return result, nil
}

func requestAttributes(r *http.Request) map[string]any {
	scheme := util.RequestScheme(r)
	host, port := util.RequestHostPort(r, scheme)

	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if len(values) > 0 {
			headers[strings.ToLower(name)] = values[0]
		}
	}

	return map[string]any{
		"method":  r.Method,
		"path":    r.URL.Path,
		"host":    host,
		"scheme":  scheme,
		"port":    port,
		"headers": headers,
	}
}
