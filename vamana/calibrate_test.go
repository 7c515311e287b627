package vamana

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibrateFindsWindowAchievingRecall(t *testing.T) {
	vectors := randomDataset(200, 6, 17)
	idx := buildTestIndex(t, vectors)

	queries := randomDataset(10, 6, 88)
	groundtruth := make([][]uint64, len(queries))
	for i, q := range queries {
		groundtruth[i] = bruteForceKNN(vectors, q, 10)
	}
	target := CalibrationTarget{K: 10, RecallAtK: 0.5, Queries: queries, Groundtruth: groundtruth}

	report, err := Calibrate(context.Background(), idx, target, InitialTraining, 200, nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, report.AchievedAt, target.RecallAtK)
	assert.Greater(t, report.Parameters.BufferConfig.SearchWindowSize, 0)
	assert.GreaterOrEqual(t, report.MinLatency, 0.0)
}

func TestCalibrateRejectsFullSweepOutsideInitialTraining(t *testing.T) {
	vectors := randomDataset(50, 4, 2)
	idx := buildTestIndex(t, vectors)
	target := CalibrationTarget{
		K: 5, RecallAtK: 0.5,
		Queries:     [][]float32{vectors[0]},
		Groundtruth: [][]uint64{{0, 1, 2, 3, 4}},
	}
	_, err := Calibrate(context.Background(), idx, target, TestSetTuneUp, 50, []int{1, 2})
	assert.ErrorIs(t, err, ErrCalibrationContext)
}
