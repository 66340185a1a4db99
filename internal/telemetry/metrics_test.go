package telemetry

import (
	"context"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collectSums(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				key := m.Name
				if v, ok := dp.Attributes.Value("outcome"); ok {
					key += "/" + v.AsString()
				}
				out[key] += dp.Value
			}
		}
	}
	return out
}

func TestAuthMetrics_Records(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := NewAuthMetrics(provider.Meter("test"))
	if err != nil {
		t.Fatalf("NewAuthMetrics: %v", err)
	}
	ctx := context.Background()
	m.RecordRotation(ctx, OutcomeSuccess)
	m.RecordRotation(ctx, OutcomeSuccess)
	m.RecordRotation(ctx, OutcomeFailure)
	m.RecordSignIn(ctx, OutcomeFailure)
	m.RecordSwept(ctx, 4)
	m.RecordSwept(ctx, 0)

	got := collectSums(t, reader)
	want := map[string]int64{
		"piiwatch.auth.rotations/success":    2,
		"piiwatch.auth.rotations/failure":    1,
		"piiwatch.auth.signins/failure":      1,
		"piiwatch.auth.refresh_tokens.swept": 4,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %d, want %d", k, got[k], v)
		}
	}
}

func TestAuthMetrics_NilIsNoop(t *testing.T) {
	var m *AuthMetrics
	ctx := context.Background()
	m.RecordRotation(ctx, OutcomeSuccess)
	m.RecordSignIn(ctx, OutcomeSuccess)
	m.RecordSwept(ctx, 1)
}
