package geo

import (
	"testing"

	"github.com/lintang-b-s/navigatorx-ch/pkg/datastructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDouglasPeucker(t *testing.T) {
	lineCoords := []datastructure.Coordinate{
		{Lat: -7.565837, Lon: 110.831586},
		{Lat: -7.566063, Lon: 110.832379},
		{Lat: -7.566406, Lon: 110.833232},
	}

	simplified := RamerDouglasPeucker(lineCoords, DOUGLAS_PEUCKER_THRESHOLDS)
	assert.Equal(t, []datastructure.Coordinate{lineCoords[0], lineCoords[2]}, simplified)

	// a corner of roughly 100 meter is kept
	corner := []datastructure.Coordinate{
		{Lat: -7.7700, Lon: 110.3700},
		{Lat: -7.7700, Lon: 110.3710},
		{Lat: -7.7709, Lon: 110.3710},
	}
	assert.Len(t, RamerDouglasPeucker(corner, DOUGLAS_PEUCKER_THRESHOLDS), 3)

	assert.Len(t, RamerDouglasPeucker(corner[:2], DOUGLAS_PEUCKER_THRESHOLDS), 2)
}

func TestDistance(t *testing.T) {
	// tugu yogyakarta -> malioboro
	a := datastructure.NewCoordinate(-7.782889, 110.367083)
	b := datastructure.NewCoordinate(-7.792561, 110.365850)

	meters := DistanceMeters(a, b)
	km := CalculateHaversineDistance(a.Lat, a.Lon, b.Lat, b.Lon)
	require.Greater(t, meters, 1000.0)
	assert.InDelta(t, km*1000, meters, 1.0)

	mid := datastructure.NewCoordinate(-7.787725, 110.366466)
	assert.InDelta(t, DistanceMeters(a, mid)+DistanceMeters(mid, b),
		PolylineLength([]datastructure.Coordinate{a, mid, b}), 1e-6)
	assert.Equal(t, 0.0, PolylineLength([]datastructure.Coordinate{a}))
}
