package dispatcher

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName is the meter name for queue and event metrics.
const InstrumentationName = "github.com/OCAP2/telestrator/internal/dispatcher"

// Setting configures a Dispatcher at construction.
type Setting func(*Dispatcher)

// WithMeter records queue and event metrics on m instead of the global
// meter provider.
func WithMeter(m metric.Meter) Setting {
	return func(d *Dispatcher) { d.meter = m }
}

func (d *Dispatcher) meterOrGlobal() metric.Meter {
	if d.meter != nil {
		return d.meter
	}
	return otel.Meter(InstrumentationName)
}
