package dispatch

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vamanadb/svsgo/metrics"
)

func TestDispatcherLookupExactMatch(t *testing.T) {
	d := NewDispatcher()
	key := Key{Dataset: DatasetScaledBiased, Query: QueryFloat32, Data: DataFloat32, Distance: DistanceL2, Dimensions: 128}
	d.Register(key, TierGeneric, "kernel-128")

	k, err := d.Lookup(key, false)
	require.NoError(t, err)
	assert.Equal(t, "kernel-128", k)
}

func TestDispatcherLookupFallsBackToGeneric(t *testing.T) {
	d := NewDispatcher()
	generic := Key{Dataset: DatasetScaledBiased, Query: QueryFloat32, Data: DataFloat32, Distance: DistanceL2, Dimensions: DynamicDim}
	d.Register(generic, TierGeneric, "kernel-dynamic")

	exactMiss := Key{Dataset: DatasetScaledBiased, Query: QueryFloat32, Data: DataFloat32, Distance: DistanceL2, Dimensions: 256}
	_, err := d.Lookup(exactMiss, false)
	assert.ErrorAs(t, err, new(*UnimplementedSpecializationError))

	k, err := d.Lookup(exactMiss, true)
	require.NoError(t, err)
	assert.Equal(t, "kernel-dynamic", k)
}

func TestDispatcherLookupPrefersBestAvailableTier(t *testing.T) {
	d := NewDispatcher()
	key := Key{Dataset: DatasetFloat, Query: QueryFloat32, Data: DataFloat32, Distance: DistanceIP, Dimensions: 64}
	d.Register(key, TierGeneric, "generic-kernel")
	d.Register(key, TierAVX2, "avx2-kernel")

	k, err := d.Lookup(key, false)
	require.NoError(t, err)
	// DetectTier() reflects the actual test-runner CPU; whatever it
	// picks must be one of the two registered kernels.
	assert.Contains(t, []any{"generic-kernel", "avx2-kernel"}, k)
}

func TestDispatcherRegisteredListsKeys(t *testing.T) {
	d := NewDispatcher()
	key := Key{Dataset: DatasetTwoLevel, Query: QueryFloat32, Data: DataUint8, Distance: DistanceCosine, Dimensions: 32}
	d.Register(key, TierGeneric, "k")
	assert.Contains(t, d.Registered(), key)
}

func TestDispatcherDuplicateRegistrationPanics(t *testing.T) {
	d := NewDispatcher()
	key := Key{Dataset: DatasetFloat, Query: QueryFloat32, Data: DataFloat32, Distance: DistanceL2, Dimensions: 8}
	d.Register(key, TierGeneric, "first")
	assert.Panics(t, func() { d.Register(key, TierGeneric, "second") })
}

func TestDispatcherLookupMissIncrementsDispatchMetric(t *testing.T) {
	d := NewDispatcher().WithMetrics(metrics.NewCollectors("svsgo_test_dispatch"))
	key := Key{Dataset: DatasetTwoLevel, Query: QueryFloat32, Data: DataUint8, Distance: DistanceCosine, Dimensions: 96}

	_, err := d.Lookup(key, false)
	assert.ErrorAs(t, err, new(*UnimplementedSpecializationError))

	before := testutil.ToFloat64(d.metrics.DispatchMisses.WithLabelValues(string(key.Dataset)))
	_, err = d.Lookup(key, false)
	assert.Error(t, err)
	after := testutil.ToFloat64(d.metrics.DispatchMisses.WithLabelValues(string(key.Dataset)))
	assert.Equal(t, before+1, after)
}
