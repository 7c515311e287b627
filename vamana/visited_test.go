package vamana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVisitedFilterAddContainsReset(t *testing.T) {
	f := NewVisitedFilter()
	assert.False(t, f.Contains(7))
	f.Add(7)
	assert.True(t, f.Contains(7))
	assert.EqualValues(t, 1, f.Len())
	f.Reset()
	assert.False(t, f.Contains(7))
	assert.EqualValues(t, 0, f.Len())
}
