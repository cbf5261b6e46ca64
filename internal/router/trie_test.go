package router

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRouteSeq int

// newTestRoute compiles a route outside a router. Tests using it must
// not run in parallel with each other because of the id counter.
func newTestRoute(t *testing.T, methods []string, pattern string, opts ...RouteOption) *Route {
	t.Helper()

	r := newRoute(methods, pattern, pattern)
	for _, opt := range opts {
		opt(r)
	}
	require.NoError(t, r.compile())

	testRouteSeq++
	r.id = strconv.Itoa(testRouteSeq)
	return r
}

func get(t *testing.T, pattern string, opts ...RouteOption) *Route {
	t.Helper()
	return newTestRoute(t, []string{http.MethodGet}, pattern, opts...)
}

func TestExpandOptional(t *testing.T) {
	p, err := NewPathPattern("/a/{b?}/{c?}", nil)
	require.NoError(t, err)

	variants := expandOptional(p.Segments())
	require.Len(t, variants, 4)
	assert.Len(t, variants[0], 3)
	assert.Len(t, variants[len(variants)-1], 1)

	p, err = NewPathPattern("/a/{b}", nil)
	require.NoError(t, err)
	assert.Len(t, expandOptional(p.Segments()), 1)
}

func TestTrieMatcher_Wildcard(t *testing.T) {
	m := newTrieMatcher()
	files := get(t, "/files/{path*}")
	m.add(http.MethodGet, files)

	found := m.find(http.MethodGet, "/files/a/b/c", false)
	require.Len(t, found, 1)
	assert.Same(t, files, found[0].Route)
	assert.Equal(t, "a/b/c", found[0].Params.Get("path"))

	assert.Empty(t, m.find(http.MethodGet, "/files", false))
	assert.Empty(t, m.find(http.MethodPost, "/files/a", false))
	assert.Equal(t, 1, m.count)
}

func TestTrieMatcher_LiteralBeforeParam(t *testing.T) {
	m := newTrieMatcher()
	literal := get(t, "/a/b/{rest*}")
	param := get(t, "/a/{p}/{rest*}")
	m.add(http.MethodGet, literal)
	m.add(http.MethodGet, param)

	found := m.find(http.MethodGet, "/a/b/c", false)
	require.Len(t, found, 1)
	assert.Same(t, literal, found[0].Route)

	found = m.find(http.MethodGet, "/a/z/c", false)
	require.Len(t, found, 1)
	assert.Same(t, param, found[0].Route)
	assert.Equal(t, Params{{Key: "p", Value: "z"}, {Key: "rest", Value: "c"}}, found[0].Params)
}

func TestTrieMatcher_WildcardFallback(t *testing.T) {
	m := newTrieMatcher()
	docs := get(t, "/docs/{page*}")
	api := get(t, "/docs/api/{version?}")
	m.add(http.MethodGet, docs)
	m.add(http.MethodGet, api)

	tests := []struct {
		path   string
		route  *Route
		params Params
	}{
		{"/docs/api/v1", api, Params{{Key: "version", Value: "v1"}}},
		{"/docs/api", api, Params{}},
		{"/docs/api/v1/extra", docs, Params{{Key: "page", Value: "api/v1/extra"}}},
		{"/docs/guide", docs, Params{{Key: "page", Value: "guide"}}},
	}

	for _, tt := range tests {
		found := m.find(http.MethodGet, tt.path, false)
		require.Len(t, found, 1, tt.path)
		assert.Same(t, tt.route, found[0].Route, tt.path)
		assert.Equal(t, tt.params, found[0].Params, tt.path)
	}
}

func TestTrieMatcher_FindAll(t *testing.T) {
	m := newTrieMatcher()
	docs := get(t, "/docs/{page*}")
	api := get(t, "/docs/api/{version?}")
	m.add(http.MethodGet, docs)
	m.add(http.MethodGet, api)

	found := m.find(http.MethodGet, "/docs/api", true)
	require.Len(t, found, 2)
	assert.Same(t, api, found[0].Route)
	assert.Same(t, docs, found[1].Route)
	assert.Equal(t, "api", found[1].Params.Get("page"))
}

func TestTrieMatcher_LastRegisteredWins(t *testing.T) {
	m := newTrieMatcher()
	first := get(t, "/x/{p*}")
	second := get(t, "/x/{p*}")
	m.add(http.MethodGet, first)
	m.add(http.MethodGet, second)

	found := m.find(http.MethodGet, "/x/y", false)
	require.Len(t, found, 1)
	assert.Same(t, second, found[0].Route)

	found = m.find(http.MethodGet, "/x/y", true)
	require.Len(t, found, 2)
	assert.Same(t, second, found[0].Route)
	assert.Same(t, first, found[1].Route)
}

func TestTrieMatcher_SharedPositionKeepsOwnConstraints(t *testing.T) {
	m := newTrieMatcher()
	numeric := get(t, `/n/{id:\d+}/{format?}`)
	alpha := get(t, `/n/{slug:[a-z]+}/{format?}`)
	m.add(http.MethodGet, numeric)
	m.add(http.MethodGet, alpha)

	found := m.find(http.MethodGet, "/n/42", false)
	require.Len(t, found, 1)
	assert.Same(t, numeric, found[0].Route)
	assert.Equal(t, "42", found[0].Params.Get("id"))

	found = m.find(http.MethodGet, "/n/abc/json", false)
	require.Len(t, found, 1)
	assert.Same(t, alpha, found[0].Route)
	assert.Equal(t, Params{{Key: "slug", Value: "abc"}, {Key: "format", Value: "json"}}, found[0].Params)

	assert.Empty(t, m.find(http.MethodGet, "/n/ABC", false))
}

func TestTrieMatcher_OptionalVariantsDeduplicated(t *testing.T) {
	m := newTrieMatcher()
	r := get(t, "/p/{a?}/{b?}")
	m.add(http.MethodGet, r)

	for _, path := range []string{"/p", "/p/1", "/p/1/2"} {
		found := m.find(http.MethodGet, path, true)
		require.Len(t, found, 1, path)
		assert.Same(t, r, found[0].Route)
	}
}
