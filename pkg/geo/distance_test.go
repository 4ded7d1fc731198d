package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceZero(t *testing.T) {
	assert.Zero(t, Distance(-4.329808, 120.028856, -4.329808, 120.028856))
}

func TestDistanceKnownPoints(t *testing.T) {
	// One degree of latitude is roughly 111.2 km.
	d := Distance(0, 0, 1, 0)
	assert.InDelta(t, 111195, d, 100)
}

func TestDistanceShortRange(t *testing.T) {
	// ~0.0005 degrees latitude is about 55 m, beyond a 50 m radius.
	d := Distance(-4.329808, 120.028856, -4.330308, 120.028856)
	assert.Greater(t, d, 50.0)
	assert.Less(t, d, 60.0)
}
