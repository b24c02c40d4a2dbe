package observability

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile writes a snapshot of the metrics in the Prometheus text
// format, for collection by node_exporter's textfile collector.
func WriteTextfile(m *Metrics, path string) error {
	g, err := m.Gatherer()
	if err != nil {
		return fmt.Errorf("build registry: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
