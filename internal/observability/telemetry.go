package observability

import (
	"context"
	"fmt"
	"io"
	"sort"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// Telemetry owns an in-process meter provider. The CLI is short-lived, so
// metrics are pulled through a ManualReader and summarized on exit instead of
// being exported to a collector.
type Telemetry struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
	Metrics  *Metrics
}

// NewTelemetry creates the meter provider and registers it globally.
func NewTelemetry() (*Telemetry, error) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	otel.SetMeterProvider(provider)

	metrics, err := NewMetrics(provider.Meter(ServiceName))
	if err != nil {
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	return &Telemetry{
		provider: provider,
		reader:   reader,
		Metrics:  metrics,
	}, nil
}

// Collect returns the current value of every sum-type instrument, keyed by
// instrument name. Histograms report their sample count.
func (t *Telemetry) Collect(ctx context.Context) (map[string]float64, error) {
	var rm metricdata.ResourceMetrics
	if err := t.reader.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collecting metrics: %w", err)
	}

	totals := make(map[string]float64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					totals[m.Name] += float64(dp.Value)
				}
			case metricdata.Sum[float64]:
				for _, dp := range data.DataPoints {
					totals[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					totals[m.Name] += float64(dp.Count)
				}
			}
		}
	}
	return totals, nil
}

// WriteSummary prints collected totals, one per line, sorted by name.
func (t *Telemetry) WriteSummary(ctx context.Context, w io.Writer) error {
	totals, err := t.Collect(ctx)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%-32s %g\n", name, totals[name]); err != nil {
			return err
		}
	}
	return nil
}

// Shutdown cleanly shuts down the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down meter provider: %w", err)
	}
	return nil
}
