package drift

import "github.com/rcrowley/go-metrics"

// clientStats aggregates subscribe-loop telemetry in a per-client go-metrics
// registry, exposed read-only through Client.Stats.
type clientStats struct {
	registry metrics.Registry

	subscribeSuccess metrics.Counter
	subscribeFailure metrics.Counter
	reconnects       metrics.Counter
	retriesArmed     metrics.Counter
	droppedEvents    metrics.Counter
	messages         metrics.Meter
	presenceEvents   metrics.Meter
}

func newClientStats() *clientStats {
	r := metrics.NewRegistry()
	return &clientStats{
		registry:         r,
		subscribeSuccess: metrics.NewRegisteredCounter("subscribe.success", r),
		subscribeFailure: metrics.NewRegisteredCounter("subscribe.failure", r),
		reconnects:       metrics.NewRegisteredCounter("subscribe.reconnects", r),
		retriesArmed:     metrics.NewRegisteredCounter("subscribe.retries", r),
		droppedEvents:    metrics.NewRegisteredCounter("events.dropped", r),
		messages:         metrics.NewRegisteredMeter("events.messages", r),
		presenceEvents:   metrics.NewRegisteredMeter("events.presence", r),
	}
}
