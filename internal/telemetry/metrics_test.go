package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "linkcast_test_total",
		Help: "Test counter.",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	path := filepath.Join(t.TempDir(), "linkcast.prom")
	require.NoError(t, WriteMetrics(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "linkcast_test_total 3")
}

func TestWriteMetrics_EmptyPathIsNoop(t *testing.T) {
	assert.NoError(t, WriteMetrics("", prometheus.NewRegistry()))
}

func TestWriteMetrics_MissingDir(t *testing.T) {
	err := WriteMetrics(filepath.Join(t.TempDir(), "missing", "linkcast.prom"), prometheus.NewRegistry())
	assert.Error(t, err)
}
