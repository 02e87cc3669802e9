package simulation

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/zkplatoon/platoon/internal/simulation"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

type metrics struct {
	ticks    metric.Int64Counter
	faults   metric.Int64Counter
	shuffles metric.Int64Counter
	dropped  metric.Int64Counter
}

func newMetrics() (*metrics, error) {
	m := meter()
	out := &metrics{}
	var err error

	out.ticks, err = m.Int64Counter("simulation.ticks",
		metric.WithDescription("Total ticks applied to the platoon"))
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}

	out.faults, err = m.Int64Counter("simulation.faults",
		metric.WithDescription("Total fault triggers consumed"))
	if err != nil {
		return nil, fmt.Errorf("creating faults counter: %w", err)
	}

	out.shuffles, err = m.Int64Counter("simulation.shuffles",
		metric.WithDescription("Total shuffles applied"))
	if err != nil {
		return nil, fmt.Errorf("creating shuffles counter: %w", err)
	}

	out.dropped, err = m.Int64Counter("simulation.commands.dropped",
		metric.WithDescription("Commands dropped because the simulation was stopped"))
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return out, nil
}

func (m *metrics) fault(injected bool) {
	m.faults.Add(context.Background(), 1, metric.WithAttributes(attribute.Bool("injected", injected)))
}

func (m *metrics) drop(cmd CommandType) {
	m.dropped.Add(context.Background(), 1, metric.WithAttributes(attribute.String("command", string(cmd))))
}
