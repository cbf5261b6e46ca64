package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, tracer.Enabled())
	assert.Equal(t, DefaultNamespace, tracer.config.ServiceName)

	_, span := tracer.StartSpan(context.Background(), "noop")
	span.End()
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewTracer_EnabledWithoutExporter(t *testing.T) {
	tracer, err := NewTracer(TracerConfig{ServiceName: "svc", Enabled: true, SamplingRate: 1})
	require.NoError(t, err)
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	ctx, span := tracer.StartSpan(context.Background(), "op")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
	assert.NotNil(t, ctx)
}

func TestCreateSampler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rate float64
		want string
	}{
		{name: "always", rate: 1.5, want: sdktrace.AlwaysSample().Description()},
		{name: "never", rate: 0, want: sdktrace.NeverSample().Description()},
		{name: "ratio", rate: 0.5, want: sdktrace.TraceIDRatioBased(0.5).Description()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, createSampler(tt.rate).Description())
		})
	}
}

func TestTracingMiddleware(t *testing.T) {
	tracer, err := NewTracer(TracerConfig{ServiceName: "mw", Enabled: true, SamplingRate: 1})
	require.NoError(t, err)
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	var traceID string
	handler := TracingMiddleware(tracer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = TraceIDFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Len(t, traceID, 32)
}

func TestNewTracer_ResourceCarriesServiceName(t *testing.T) {
	tracer, err := NewTracer(TracerConfig{ServiceName: "avarouter-test", Enabled: true, SamplingRate: 1})
	require.NoError(t, err)
	defer func() { _ = tracer.Shutdown(context.Background()) }()

	_, span := tracer.StartSpan(context.Background(), "op")
	defer span.End()

	ro, ok := span.(sdktrace.ReadOnlySpan)
	require.True(t, ok)

	res := ro.Resource()
	assert.NotEmpty(t, res.SchemaURL(), "schema of the SDK default resource is kept")

	var service string
	for _, kv := range res.Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "avarouter-test", service)
}
