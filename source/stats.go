//: Copyright Verizon Media
//: Licensed under the terms of the Apache 2.0 License. See LICENSE file in the project root for terms.

package source

import "github.com/yahoo/panoptes-dash/status"

// Stats represents process-wide acquisition metrics
type Stats struct {
	Pushes       *status.Counter
	PushFailures *status.Counter
	Polls        *status.Counter
	PollFailures *status.Counter
	Updates      *status.Counter
	UpdateErrors *status.Counter
	Reconnects   *status.Counter
	Running      *status.Gauge
}

var stats = Stats{
	Pushes:       status.NewCounter("source_pushes_total", "Samples written to the store"),
	PushFailures: status.NewCounter("source_push_failures_total", "Samples dropped by a store failure"),
	Polls:        status.NewCounter("source_polls_total", "Timed source wake-ups"),
	PollFailures: status.NewCounter("source_poll_failures_total", "Failed polls"),
	Updates:      status.NewCounter("source_updates_total", "Triggered source notifications"),
	UpdateErrors: status.NewCounter("source_update_failures_total", "Failed updates"),
	Reconnects:   status.NewCounter("source_reconnects_total", "Triggered source resubscriptions"),
	Running:      status.NewGauge("source_running", "Started and not cancelled sources"),
}

// GetStats returns the acquisition counters
func GetStats() *Stats {
	return &stats
}

// Metrics returns the counters to register at the status server
func (s *Stats) Metrics() map[string]status.Metrics {
	return map[string]status.Metrics{
		"pushes":       s.Pushes,
		"pushFailures": s.PushFailures,
		"polls":        s.Polls,
		"pollFailures": s.PollFailures,
		"updates":      s.Updates,
		"updateErrors": s.UpdateErrors,
		"reconnects":   s.Reconnects,
		"running":      s.Running,
	}
}
