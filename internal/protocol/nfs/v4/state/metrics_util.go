package state

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// registerOrReuse registers a collector and, when an identical collector is
// already registered (server restart in the same process), returns the
// existing one so that metrics keep being exported. Any other registration
// failure panics.
func registerOrReuse[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if reg == nil {
		return c
	}
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}
