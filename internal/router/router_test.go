package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarouter/internal/middleware"
	"github.com/vyrodovalexey/avarouter/internal/util"
)

func lookup(t *testing.T, r *Router, method, target string) (Match, error) {
	t.Helper()
	return r.LookupRequest(httptest.NewRequest(method, target, nil))
}

func TestRouter_Lookup(t *testing.T) {
	t.Parallel()

	r := New()
	user, err := r.Get(`/users/{id:\d+}`, "user")
	require.NoError(t, err)
	_, err = r.Post("/users", "create")
	require.NoError(t, err)

	m, err := lookup(t, r, http.MethodGet, "/users/42")
	require.NoError(t, err)
	assert.Same(t, user, m.Route)
	assert.Equal(t, "user", m.Route.Handler())
	assert.Equal(t, Params{{Key: "id", Value: "42"}}, m.Params)

	m, err = lookup(t, r, http.MethodHead, "/users/42")
	require.NoError(t, err)
	assert.Same(t, user, m.Route)
}

func TestRouter_PatternEdgeForms(t *testing.T) {
	t.Parallel()

	r := New()
	raw, err := r.Get("/files/*/raw/*", "raw")
	require.NoError(t, err)
	anchored, err := r.Get(`/anc/{id:^\d+$}`, "anchored")
	require.NoError(t, err)

	m, err := lookup(t, r, http.MethodGet, "/files/a/b/raw/c.txt")
	require.NoError(t, err)
	assert.Same(t, raw, m.Route)
	assert.Equal(t, Params{{Key: "*", Value: "a/b"}, {Key: "*1", Value: "c.txt"}}, m.Params)

	m, err = lookup(t, r, http.MethodGet, "/anc/12")
	require.NoError(t, err)
	assert.Same(t, anchored, m.Route)
	assert.Equal(t, "12", m.Params.Get("id"))
}

func TestRouter_NotFound(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Get("/users/{id}", "user")
	require.NoError(t, err)

	_, err = lookup(t, r, http.MethodGet, "/accounts/1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrNotFound))

	var notFound *util.RouteNotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "/accounts/1", notFound.Path)
	assert.Equal(t, "example.com", notFound.Host)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Get("/users/{id}", "show")
	require.NoError(t, err)
	_, err = r.Delete("/users/{id}", "destroy")
	require.NoError(t, err)
	_, err = r.Post("/users/{id}", "update")
	require.NoError(t, err)
	_, err = r.Put("/other", "other")
	require.NoError(t, err)

	_, err = lookup(t, r, http.MethodPut, "/users/1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrMethodNotAllowed))

	var notAllowed *util.MethodNotAllowedError
	require.True(t, errors.As(err, &notAllowed))
	assert.Equal(t, []string{"DELETE", "GET", "HEAD", "POST"}, notAllowed.Allowed)
	assert.Equal(t, http.MethodPut, notAllowed.Method)
}

func TestRouter_MethodNotAllowedRespectsContext(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Get("/x", "x", WithHost("a.example.com"))
	require.NoError(t, err)

	_, err = lookup(t, r, http.MethodPost, "http://a.example.com/x")
	var notAllowed *util.MethodNotAllowedError
	require.True(t, errors.As(err, &notAllowed))
	assert.Equal(t, []string{"GET", "HEAD"}, notAllowed.Allowed)

	_, err = lookup(t, r, http.MethodPost, "http://b.example.com/x")
	assert.True(t, errors.Is(err, util.ErrNotFound))

	assert.Equal(t, []string{"GET", "HEAD"},
		r.AllowedMethods(context.Background(), RequestContext{Path: "/x", Host: "a.example.com"}))
	assert.Empty(t, r.AllowedMethods(context.Background(), RequestContext{Path: "/x", Host: "b.example.com"}))
}

func TestRouter_HostParameterIgnoresPort(t *testing.T) {
	t.Parallel()

	r := New()
	route, err := r.Get("/", "tenant", WithHost("{sub}.example.com"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "acme.example.com:8080"

	m, err := r.LookupRequest(req)
	require.NoError(t, err)
	assert.Same(t, route, m.Route)
	assert.Equal(t, "acme", m.Params.Get("sub"))
}

func TestRouter_PortConstraint(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Get("/admin", "admin", WithPort(8080))
	require.NoError(t, err)

	_, err = lookup(t, r, http.MethodGet, "http://example.com:8080/admin")
	require.NoError(t, err)

	_, err = lookup(t, r, http.MethodGet, "http://example.com:9090/admin")
	assert.True(t, errors.Is(err, util.ErrNotFound))

	_, err = lookup(t, r, http.MethodGet, "http://example.com/admin")
	assert.True(t, errors.Is(err, util.ErrNotFound))
}

func TestRouter_CandidatesFilteredByContext(t *testing.T) {
	t.Parallel()

	r := New()
	api, err := r.Get("/status", "api", WithHost("api.example.com"))
	require.NoError(t, err)
	www, err := r.Get("/status", "www", WithHost("www.example.com"))
	require.NoError(t, err)
	fallback, err := r.Get("/{page}", "fallback")
	require.NoError(t, err)

	m, err := lookup(t, r, http.MethodGet, "http://api.example.com/status")
	require.NoError(t, err)
	assert.Same(t, api, m.Route)

	m, err = lookup(t, r, http.MethodGet, "http://www.example.com/status")
	require.NoError(t, err)
	assert.Same(t, www, m.Route)

	m, err = lookup(t, r, http.MethodGet, "http://other.example.com/status")
	require.NoError(t, err)
	assert.Same(t, fallback, m.Route)
	assert.Equal(t, "status", m.Params.Get("page"))
}

func TestRouter_ParamsOrder(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Get("/items/{id}", "item",
		WithHost("{tenant}.example.com"),
		WithPortParam("port"),
		WithScheme("{scheme}"))
	require.NoError(t, err)

	m, err := lookup(t, r, http.MethodGet, "http://blue.example.com:8081/items/7")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "tenant", "port", "scheme"}, m.Params.Keys())
	assert.Equal(t, "8081", m.Params.Get("port"))
}

func TestRouter_Defaults(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Get("/archive/{year?}", "archive", WithDefaults(map[string]string{"year": "2024"}))
	require.NoError(t, err)

	m, err := lookup(t, r, http.MethodGet, "/archive")
	require.NoError(t, err)
	assert.Equal(t, "2024", m.Params.Get("year"))

	m, err = lookup(t, r, http.MethodGet, "/archive/1999")
	require.NoError(t, err)
	assert.Equal(t, "1999", m.Params.Get("year"))
}

func TestRouter_InvalidPatternRegistersNothing(t *testing.T) {
	t.Parallel()

	r := New()
	route, err := r.Get("/users/{id", "user")
	require.Error(t, err)
	assert.Nil(t, route)
	assert.True(t, errors.Is(err, util.ErrInvalidPattern))
	assert.Empty(t, r.Routes())
	assert.Equal(t, 0, r.Stats().Routes)
}

func TestRouter_DuplicateName(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Get("/a", "a", WithName("home"))
	require.NoError(t, err)

	_, err = r.Get("/b", "b", WithName("home"))
	assert.True(t, errors.Is(err, ErrDuplicateRouteName))
	assert.Len(t, r.Routes(), 1)
}

func TestRouter_Identifiers(t *testing.T) {
	t.Parallel()

	r := New()
	first, err := r.Get("/a", "a")
	require.NoError(t, err)
	second, err := r.Get("/b", "b", WithName("b"))
	require.NoError(t, err)

	assert.Equal(t, "1", first.ID())
	assert.Equal(t, "2", second.ID())
	assert.Same(t, first, r.Route("1"))
	assert.Same(t, second, r.RouteByName("b"))
	assert.Nil(t, r.Route("3"))
	assert.Nil(t, r.RouteByName("missing"))
	assert.NotEmpty(t, r.InstanceID())
}

func TestRouter_MethodHelpers(t *testing.T) {
	t.Parallel()

	r := New()
	helpers := map[string]func(string, any, ...RouteOption) (*Route, error){
		http.MethodPost:    r.Post,
		http.MethodPut:     r.Put,
		http.MethodPatch:   r.Patch,
		http.MethodDelete:  r.Delete,
		http.MethodOptions: r.Options,
	}
	for method, register := range helpers {
		route, err := register("/"+method, method)
		require.NoError(t, err)
		assert.Equal(t, []string{method}, route.Methods())
	}

	all, err := r.Any("/any", "any")
	require.NoError(t, err)
	assert.Len(t, all.Methods(), len(StandardMethods))

	matched, err := r.Match([]string{"get", " post ", "GET"}, "/match", "match")
	require.NoError(t, err)
	assert.Equal(t, []string{"GET", "HEAD", "POST"}, matched.Methods())

	star, err := r.Handle([]string{"*"}, "/star", "star")
	require.NoError(t, err)
	assert.Len(t, star.Methods(), len(StandardMethods))
}

func TestRouter_Methods(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Post("/a", "a")
	require.NoError(t, err)
	_, err = r.Get("/b", "b")
	require.NoError(t, err)

	assert.Equal(t, []string{"GET", "HEAD", "POST"}, r.Methods())
}

func TestRouter_Groups(t *testing.T) {
	t.Parallel()

	r := New()
	api := r.Group("/api",
		WithGroupName("api."),
		WithGroupMiddleware(middleware.Named("auth")),
		WithGroupConstraints(map[string]string{"id": `\d+`}))
	v1 := api.Group("/v1/", WithGroupName("v1."), WithGroupMiddleware(middleware.Named("v1")))

	route, err := v1.Get("/users/{id}", "user",
		WithName("user"),
		WithMiddleware(middleware.Named("own")))
	require.NoError(t, err)

	assert.Equal(t, "/api/v1", v1.Prefix())
	assert.Equal(t, "/api/v1/users/{id}", route.Pattern())
	assert.Equal(t, "api.v1.user", route.Name())
	assert.Equal(t, `\d+`, route.Constraints()["id"])
	assert.Equal(t, [][]middleware.Entry{
		{middleware.Named("auth")},
		{middleware.Named("v1")},
		{middleware.Named("own")},
	}, route.MiddlewareUnits())

	_, err = lookup(t, r, http.MethodGet, "/api/v1/users/7")
	require.NoError(t, err)
	_, err = lookup(t, r, http.MethodGet, "/api/v1/users/abc")
	assert.True(t, errors.Is(err, util.ErrNotFound))

	root, err := api.Get("/", "index")
	require.NoError(t, err)
	assert.Equal(t, "/api", root.Pattern())
	assert.Equal(t, [][]middleware.Entry{{middleware.Named("auth")}, nil}, root.MiddlewareUnits())
}

func TestRouter_GroupHost(t *testing.T) {
	t.Parallel()

	r := New()
	g := r.Group("", WithGroupHost("{tenant}.svc.local"))

	route, err := g.Post("/jobs", "jobs")
	require.NoError(t, err)
	assert.Equal(t, "{tenant}.svc.local", route.Host())

	override, err := g.Put("/jobs", "jobs", WithHost("admin.svc.local"))
	require.NoError(t, err)
	assert.Equal(t, "admin.svc.local", override.Host())

	m, err := lookup(t, r, http.MethodPost, "http://red.svc.local/jobs")
	require.NoError(t, err)
	assert.Equal(t, "red", m.Params.Get("tenant"))

	for _, register := range []func(string, any, ...RouteOption) (*Route, error){
		g.Get, g.Patch, g.Delete, g.Options, g.Any,
	} {
		_, err := register("/more", "more")
		require.NoError(t, err)
	}
	_, err = g.Handle([]string{"TRACE"}, "/trace", "trace")
	require.NoError(t, err)
}

func TestRouter_LateRegistration(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Get("/a", "a")
	require.NoError(t, err)

	_, err = lookup(t, r, http.MethodGet, "/a")
	require.NoError(t, err)
	before := r.Fingerprint()

	_, err = lookup(t, r, http.MethodGet, "/b")
	assert.True(t, errors.Is(err, util.ErrNotFound))

	_, err = r.Get("/b", "b")
	require.NoError(t, err)

	_, err = lookup(t, r, http.MethodGet, "/b")
	require.NoError(t, err)
	assert.NotEqual(t, before, r.Fingerprint())
}

func TestRouter_Fingerprint(t *testing.T) {
	t.Parallel()

	build := func(host string) *Router {
		r := New()
		_, err := r.Get("/users/{id}", "one")
		require.NoError(t, err)
		_, err = r.Post("/users", "two", WithHost(host))
		require.NoError(t, err)
		return r
	}

	assert.Equal(t, build("a.example.com").Fingerprint(), build("a.example.com").Fingerprint())
	assert.NotEqual(t, build("a.example.com").Fingerprint(), build("b.example.com").Fingerprint())
}

func TestRouter_Stats(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Get("/static", "s")
	require.NoError(t, err)
	_, err = r.Get("/dynamic/{id}", "d")
	require.NoError(t, err)

	_, err = lookup(t, r, http.MethodGet, "/static")
	require.NoError(t, err)

	stats := r.Stats()
	assert.Equal(t, 2, stats.Routes)
	assert.NotEmpty(t, stats.Fingerprint)
	assert.Equal(t, uint64(1), stats.Manager.Strategies[KindStatic].Hits)
}

func TestRouter_StatsCountSelectedStrategyOnly(t *testing.T) {
	t.Parallel()

	r := New()
	_, err := r.Get("/a/b", "static")
	require.NoError(t, err)
	_, err = r.Get("/a/{x}", "compiled")
	require.NoError(t, err)
	_, err = r.Post("/a/{x}/{rest*}", "trie")
	require.NoError(t, err)

	_, err = lookup(t, r, http.MethodGet, "/a/b")
	require.NoError(t, err)
	_, err = lookup(t, r, http.MethodGet, "/a/c")
	require.NoError(t, err)
	_, err = lookup(t, r, http.MethodGet, "/a/c/d")
	require.Error(t, err, "only POST matches, so the lookup answers 405")

	stats := r.Stats().Manager
	assert.Equal(t, uint64(2), stats.TotalHits)
	assert.Equal(t, uint64(1), stats.Strategies[KindStatic].Hits)
	assert.Equal(t, uint64(1), stats.Strategies[KindCompiled].Hits)
	assert.Zero(t, stats.Strategies[KindTrie].Hits, "allowed-method checks are not hits")
}

func TestRouter_ConcurrentLookupAndRegistration(t *testing.T) {
	t.Parallel()

	r := New()
	for i := 0; i < 50; i++ {
		_, err := r.Get(fmt.Sprintf("/static/%d", i), i)
		require.NoError(t, err)
	}
	_, err := r.Get("/users/{id}", "user")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 1000)

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/static/%d", (i+g)%50), nil)
				if _, err := r.LookupRequest(req); err != nil {
					errs <- err
				}
				req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/users/%d", i), nil)
				if _, err := r.LookupRequest(req); err != nil {
					errs <- err
				}
			}
		}(g)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			if _, err := r.Get(fmt.Sprintf("/late/%d", i), i); err != nil {
				errs <- err
			}
		}
	}()

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	_, err = lookup(t, r, http.MethodGet, "/late/19")
	assert.NoError(t, err)
	assert.Len(t, r.Routes(), 71)
}
