package store

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// InstrumentationName is the meter name for annotation counters.
const InstrumentationName = "github.com/OCAP2/telestrator/internal/store"

// Option configures a Store at construction.
type Option func(*Store)

// WithMeter records annotation counters on m instead of the global meter
// provider. A nil m keeps the global one.
func WithMeter(m metric.Meter) Option {
	return func(s *Store) {
		if m != nil {
			s.meter = m
		}
	}
}

func (s *Store) meterOrGlobal() metric.Meter {
	if s.meter != nil {
		return s.meter
	}
	return otel.Meter(InstrumentationName)
}
