package simulator

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/launch-telemetry/internal/simulator"

type metrics struct {
	ticks       metric.Int64Counter
	samples     metric.Int64Counter
	flushes     metric.Int64Counter
	dropped     metric.Int64Counter
	completions metric.Int64Counter
	subscribers metric.Int64UpDownCounter
}

func newMetrics() (*metrics, error) {
	meter := otel.Meter(instrumentationName)
	m := &metrics{}
	var err error

	if m.ticks, err = meter.Int64Counter("simulator.ticks",
		metric.WithDescription("Mission clock ticks executed")); err != nil {
		return nil, fmt.Errorf("ticks counter: %w", err)
	}
	if m.samples, err = meter.Int64Counter("simulator.samples",
		metric.WithDescription("Interpolated samples emitted")); err != nil {
		return nil, fmt.Errorf("samples counter: %w", err)
	}
	if m.flushes, err = meter.Int64Counter("simulator.flushes",
		metric.WithDescription("Batches flushed to subscribers")); err != nil {
		return nil, fmt.Errorf("flushes counter: %w", err)
	}
	if m.dropped, err = meter.Int64Counter("simulator.dropped",
		metric.WithDescription("Messages a subscriber transport refused")); err != nil {
		return nil, fmt.Errorf("dropped counter: %w", err)
	}
	if m.completions, err = meter.Int64Counter("simulator.completions",
		metric.WithDescription("Missions played to completion")); err != nil {
		return nil, fmt.Errorf("completions counter: %w", err)
	}
	if m.subscribers, err = meter.Int64UpDownCounter("simulator.subscribers",
		metric.WithDescription("Registered subscribers")); err != nil {
		return nil, fmt.Errorf("subscribers counter: %w", err)
	}
	return m, nil
}
