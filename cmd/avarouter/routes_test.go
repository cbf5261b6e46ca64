package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarouter/internal/config"
	"github.com/vyrodovalexey/avarouter/internal/middleware"
	"github.com/vyrodovalexey/avarouter/internal/router"
	"github.com/vyrodovalexey/avarouter/internal/util"
)

func TestLoadRoutes(t *testing.T) {
	t.Parallel()

	spec := &config.RouterSpec{
		Routes: []config.RouteConfig{
			{
				Name:              "user",
				Methods:           []string{"GET"},
				Path:              "/users/{id}",
				Handler:           "echo",
				Constraints:       map[string]string{"id": `\d+`},
				Ports:             []int{8080},
				Middleware:        []config.MiddlewareEntry{{Ref: "auth", Priority: 5, When: `request.method == "GET"`}},
				WithoutMiddleware: []string{"logging"},
			},
		},
		Groups: []config.GroupConfig{
			{
				Name:       "api.",
				Prefix:     "/api",
				Host:       "{tenant}.example.com",
				Middleware: []config.MiddlewareEntry{{Ref: "cors"}},
				Groups: []config.GroupConfig{
					{
						Name:   "v1.",
						Prefix: "/v1",
						Routes: []config.RouteConfig{
							{Name: "items", Methods: []string{"GET"}, Path: "/items", Handler: "ok"},
						},
					},
				},
			},
		},
	}

	rt := router.New()
	require.NoError(t, loadRoutes(rt, spec))

	user := rt.RouteByName("user")
	require.NotNil(t, user)
	assert.Equal(t, "/users/{id}", user.Pattern())
	assert.Equal(t, []int{8080}, user.Ports())
	assert.Equal(t, "echo", user.Handler())
	assert.Equal(t, []string{"logging"}, user.ExcludedMiddleware())
	assert.Equal(t, [][]middleware.Entry{
		{{Ref: "auth", Priority: 5, When: `request.method == "GET"`}},
	}, user.MiddlewareUnits())

	items := rt.RouteByName("api.v1.items")
	require.NotNil(t, items)
	assert.Equal(t, "/api/v1/items", items.Pattern())
	assert.Equal(t, "{tenant}.example.com", items.Host())
	assert.Equal(t, [][]middleware.Entry{{{Ref: "cors"}}, nil, nil}, items.MiddlewareUnits())
}

func TestLoadRoutes_GroupsRegisterAfterRoutes(t *testing.T) {
	t.Parallel()

	spec := &config.RouterSpec{
		Groups: []config.GroupConfig{
			{
				Prefix: "/api",
				Routes: []config.RouteConfig{
					{Name: "grouped", Methods: []string{"GET"}, Path: "/health", Handler: "group"},
				},
			},
		},
		Routes: []config.RouteConfig{
			{Name: "top", Methods: []string{"GET"}, Path: "/api/health", Handler: "top"},
		},
	}

	rt := router.New()
	require.NoError(t, loadRoutes(rt, spec))

	routes := rt.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "top", routes[0].Name())
	assert.Equal(t, "grouped", routes[1].Name())

	m, err := rt.Lookup(context.Background(), router.RequestContext{Method: "GET", Path: "/api/health"})
	require.NoError(t, err)
	assert.Equal(t, "grouped", m.Route.Name())
	assert.Equal(t, "group", m.Route.Handler())
}

func TestLoadRoutes_InvalidPattern(t *testing.T) {
	t.Parallel()

	spec := &config.RouterSpec{
		Groups: []config.GroupConfig{
			{
				Prefix: "/api",
				Routes: []config.RouteConfig{
					{Methods: []string{"GET"}, Path: "/ok", Handler: "ok"},
					{Methods: []string{"GET"}, Path: "/broken/{id", Handler: "ok"},
				},
			},
		},
	}

	err := loadRoutes(router.New(), spec)
	require.Error(t, err)
	assert.ErrorIs(t, err, util.ErrInvalidPattern)
	assert.Contains(t, err.Error(), "spec.groups[0]: routes[1]")
}

func TestToEntries(t *testing.T) {
	t.Parallel()

	assert.Empty(t, toEntries(nil))
	assert.Equal(t,
		[]middleware.Entry{{Ref: "a"}, {Ref: "b", Priority: 2, When: "true"}},
		toEntries([]config.MiddlewareEntry{{Ref: "a"}, {Ref: "b", Priority: 2, When: "true"}}),
	)
}
