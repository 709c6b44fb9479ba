package dispatcher

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/launch-telemetry/internal/dispatcher"

// instruments are taken from the global meter provider, a no-op until one
// is installed.
type instruments struct {
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	duration  metric.Float64Histogram
}

// newInstruments registers the dispatcher metrics. queueLens is polled on
// every collection for the per-command queue depth.
func newInstruments(queueLens func() map[string]int) (*instruments, error) {
	m := otel.Meter(instrumentationName)
	in := &instruments{}
	var err error

	if in.queueSize, err = m.Int64ObservableGauge("dispatcher.queue.size",
		metric.WithDescription("Current number of commands in queue")); err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}
	if _, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		for cmd, n := range queueLens() {
			o.ObserveInt64(in.queueSize, int64(n), commandAttr(cmd))
		}
		return nil
	}, in.queueSize); err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	if in.processed, err = m.Int64Counter("dispatcher.commands.processed",
		metric.WithDescription("Total commands processed")); err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}
	if in.dropped, err = m.Int64Counter("dispatcher.commands.dropped",
		metric.WithDescription("Total commands dropped due to full queue")); err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}
	if in.duration, err = m.Float64Histogram("dispatcher.command.duration",
		metric.WithDescription("Time spent in synchronous command handlers"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}
	return in, nil
}

func commandAttr(cmd string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", cmd))
}
