package pool

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordDestroyErrorAccumulatesAcrossConnections(t *testing.T) {
	f := &connFactory{}
	assert.NoError(t, f.drainDestroyErrors())

	f.recordDestroyError(errors.New("goodbye failed for conn A"))
	f.recordDestroyError(errors.New("goodbye failed for conn B"))

	err := f.drainDestroyErrors()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "conn A")
	assert.Contains(t, err.Error(), "conn B")

	// Draining resets the accumulator.
	assert.NoError(t, f.drainDestroyErrors())
}
