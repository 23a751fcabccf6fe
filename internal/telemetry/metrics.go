package telemetry

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteMetrics writes everything g gathers to path in the Prometheus text
// format, for a node_exporter textfile collector to pick up. The file is
// replaced atomically. An empty path does nothing.
func WriteMetrics(path string, g prometheus.Gatherer) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics to %s: %w", path, err)
	}
	return nil
}
