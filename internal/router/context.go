package router

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/avarouter/internal/util"
)

// RequestContext holds the request attributes routes are matched on.
type RequestContext struct {
	Method string
	Path   string

	// Host is the lowercase hostname without port.
	Host string

	// Port is the explicit port of the Host header, or the scheme default.
	Port int

	Scheme string
}

// NewRequestContext extracts the matching attributes of r.
func NewRequestContext(r *http.Request) RequestContext {
	scheme := util.RequestScheme(r)

	path := "/"
	if r.URL != nil {
		path = r.URL.Path
	}
	host, port := util.RequestHostPort(r, scheme)

	return RequestContext{
		Method: strings.ToUpper(r.Method),
		Path:   NormalizePath(path),
		Host:   host,
		Port:   port,
		Scheme: scheme,
	}
}

// normalized returns rc with method, path, host and scheme in the form
// the matchers expect.
func (rc RequestContext) normalized() RequestContext {
	rc.Method = strings.ToUpper(rc.Method)
	rc.Path = NormalizePath(rc.Path)
	rc.Host = strings.ToLower(rc.Host)
	rc.Scheme = strings.ToLower(rc.Scheme)
	if rc.Port == 0 {
		rc.Port = util.DefaultPort(rc.Scheme)
	}
	return rc
}

// matchContext checks the host, port and scheme of rc against the
// route and returns the parameters they capture. A dimension the route
// does not constrain always matches.
func (r *Route) matchContext(rc RequestContext) (Params, bool) {
	var params Params

	if r.host != nil {
		if r.host.IsStatic() {
			if rc.Host != r.host.Raw() {
				return nil, false
			}
		} else {
			hostParams, ok := r.host.Match(rc.Host)
			if !ok {
				return nil, false
			}
			params = append(params, hostParams...)
		}
	}

	switch {
	case r.portParam != "":
		params = append(params, Param{Key: r.portParam, Value: strconv.Itoa(rc.Port)})
	case len(r.ports) > 0 && !slices.Contains(r.ports, rc.Port):
		return nil, false
	}

	switch {
	case r.schemeParam != "":
		params = append(params, Param{Key: r.schemeParam, Value: rc.Scheme})
	case len(r.schemes) > 0 && !slices.Contains(r.schemes, rc.Scheme):
		return nil, false
	}

	return params, true
}
