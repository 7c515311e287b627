package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorsRegisterWithoutConflict(t *testing.T) {
	c := NewCollectors("svsgo_test")
	reg := prometheus.NewRegistry()
	require.NotPanics(t, func() { c.MustRegister(reg) })

	c.SearchLatency.Observe(0.01)
	c.DispatchMisses.WithLabelValues("scaled_biased").Inc()

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
