package main

import (
	"encoding/json"
	"net/http"

	"github.com/vyrodovalexey/avarouter/internal/dispatch"
	"github.com/vyrodovalexey/avarouter/internal/router"
)

// echoResponse is the body of the echo handler.
type echoResponse struct {
	RouteID string            `json:"routeId"`
	Route   string            `json:"route"`
	Name    string            `json:"name,omitempty"`
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Params  map[string]string `json:"params"`
}

// newHandlerRegistry returns the handlers route files can name:
//
//	echo          JSON description of the matched route and parameters
//	ok            empty 204
//	text:<body>   text/plain body
func newHandlerRegistry() *dispatch.HandlerRegistry {
	handlers := dispatch.NewHandlerRegistry()
	handlers.RegisterFunc("echo", echo)
	handlers.RegisterFunc("ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handlers.RegisterFactory("text", func(body string) (http.Handler, error) {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			_, _ = w.Write([]byte(body))
		}), nil
	})
	return handlers
}

func echo(w http.ResponseWriter, r *http.Request) {
	resp := echoResponse{
		Method: r.Method,
		Path:   r.URL.Path,
		Params: router.ParamsFromContext(r.Context()).Map(),
	}
	if route := dispatch.RouteFromContext(r.Context()); route != nil {
		resp.RouteID = route.ID()
		resp.Route = route.Pattern()
		resp.Name = route.Name()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
