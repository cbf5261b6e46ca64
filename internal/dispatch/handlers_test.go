package dispatch

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avarouter/internal/util"
)

func TestHandlerRegistry_ResolveHandler(t *testing.T) {
	t.Parallel()

	hr := NewHandlerRegistry()
	hr.RegisterFunc("ok", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		ref        any
		wantStatus int
		wantErr    bool
	}{
		{
			name:       "handler value",
			ref:        http.NotFoundHandler(),
			wantStatus: http.StatusNotFound,
		},
		{
			name: "handler func",
			ref: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			}),
			wantStatus: http.StatusAccepted,
		},
		{
			name: "plain func",
			ref: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusCreated)
			},
			wantStatus: http.StatusCreated,
		},
		{name: "registered name", ref: "ok", wantStatus: http.StatusNoContent},
		{name: "unknown name", ref: "nope", wantErr: true},
		{name: "nil", ref: nil, wantErr: true},
		{name: "unsupported type", ref: 42, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := hr.ResolveHandler(tt.ref)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, util.ErrHandlerResolution))
				return
			}
			require.NoError(t, err)

			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestHandlerRegistry_Factory(t *testing.T) {
	t.Parallel()

	calls := 0
	hr := NewHandlerRegistry()
	hr.RegisterFactory("status", func(arg string) (http.Handler, error) {
		calls++
		if arg == "" {
			return nil, errors.New("status code required")
		}
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(arg))
		}), nil
	})

	first, err := hr.ResolveHandler("status:teapot")
	require.NoError(t, err)
	second, err := hr.ResolveHandler("status:teapot")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	w := httptest.NewRecorder()
	second.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "teapot", w.Body.String())
	assert.NotNil(t, first)

	_, err = hr.ResolveHandler("status")
	require.Error(t, err)
	var resErr *util.HandlerResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "status", resErr.Ref)
}

func TestHandlerRegistry_Names(t *testing.T) {
	t.Parallel()

	hr := NewHandlerRegistry()
	hr.Register("b", http.NotFoundHandler())
	hr.Register("a", http.NotFoundHandler())
	hr.RegisterFactory("text", func(string) (http.Handler, error) { return http.NotFoundHandler(), nil })
	hr.RegisterFactory("a", func(string) (http.Handler, error) { return http.NotFoundHandler(), nil })

	assert.Equal(t, []string{"a", "b", "text"}, hr.Names())
}

func TestHandlerResolverFunc(t *testing.T) {
	t.Parallel()

	var got any
	f := HandlerResolverFunc(func(ref any) (http.Handler, error) {
		got = ref
		return http.NotFoundHandler(), nil
	})

	h, err := f.ResolveHandler("x")
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, "x", got)
}
