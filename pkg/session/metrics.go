package session

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/aurigaai/auriga-setup-agent-go/log"
	"github.com/aurigaai/auriga-setup-agent-go/pkg/model"
)

var (
	outcomeSent   = metric.WithAttributes(attribute.String("outcome", "sent"))
	outcomeFailed = metric.WithAttributes(attribute.String("outcome", "failed"))
)

type metrics struct {
	ticks       metric.Int64Counter
	dropped     metric.Int64Counter
	transitions metric.Int64Counter
	submissions metric.Int64Counter
}

func stateAttr(s model.SessionState) metric.AddOption {
	return metric.WithAttributes(attribute.String("state", string(s)))
}

func newMetrics(l *log.Logger) *metrics {
	meter := otel.GetMeterProvider().Meter("auriga.session")
	fallback := noop.NewMeterProvider().Meter("auriga.session")
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name,
			metric.WithDescription(desc),
			metric.WithUnit("{count}"))
		if err != nil {
			l.Error("failed to register metric", log.String("metric", name), log.ErrorField(err))
			c, _ = fallback.Int64Counter(name)
		}
		return c
	}
	return &metrics{
		ticks:       counter("auriga.session.ticks", "Number of processed ticks"),
		dropped:     counter("auriga.session.ticks.dropped", "Number of ticks dropped at a full queue"),
		transitions: counter("auriga.session.transitions", "Number of state transitions"),
		submissions: counter("auriga.session.submissions", "Number of telemetry submissions"),
	}
}
