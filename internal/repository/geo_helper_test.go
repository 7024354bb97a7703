package repository

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GeoDrop-App/internal/domain/helper"
	"GeoDrop-App/internal/domain/model"
)

func TestGeoPoint_RoundTrip(t *testing.T) {
	p := model.LatLng{Lat: 35.681236, Lng: 139.767125}
	gp := LatLngToGeoPoint(p)
	assert.Equal(t, "Point", gp.Type)
	assert.Equal(t, []float64{139.767125, 35.681236}, gp.Coordinates)

	got, ok := gp.LatLng()
	assert.True(t, ok)
	assert.Equal(t, p, got)
}

func TestGeoPoint_FromGeoJSON(t *testing.T) {
	var gp GeoPoint
	require.NoError(t, json.Unmarshal([]byte(`{"type":"Point","coordinates":[135.5,34.7]}`), &gp))
	got, ok := gp.LatLng()
	assert.True(t, ok)
	assert.Equal(t, model.LatLng{Lat: 34.7, Lng: 135.5}, got)

	var missing *GeoPoint
	_, ok = missing.LatLng()
	assert.False(t, ok)
}

func TestResolvePosition(t *testing.T) {
	lat, lng := 1.5, 2.5
	location := LatLngToGeoPoint(model.LatLng{Lat: 10, Lng: 20})

	gotLat, gotLng := resolvePosition(location, &lat, &lng)
	assert.Equal(t, 10.0, gotLat)
	assert.Equal(t, 20.0, gotLng)

	gotLat, gotLng = resolvePosition(nil, &lat, &lng)
	assert.Equal(t, 1.5, gotLat)
	assert.Equal(t, 2.5, gotLng)

	gotLat, _ = resolvePosition(nil, &lat, nil)
	assert.True(t, math.IsNaN(gotLat))
}

func TestBoundAroundPoint(t *testing.T) {
	center := model.LatLng{Lat: 35.0, Lng: 135.0}
	bound := BoundAroundPoint(center, 1000)

	assert.True(t, bound.Contains(center.Point()))
	north := model.LatLngFromPoint(orb.Point{135.0, bound.Max.Lat()})
	assert.InDelta(t, 1000, helper.DistanceMeters(center, north), 5)
}

func TestBoundToWKT(t *testing.T) {
	bound := orb.Bound{Min: orb.Point{135, 34}, Max: orb.Point{136, 35}}
	assert.Equal(t, "POLYGON((135 34,136 34,136 35,135 35,135 34))", BoundToWKT(bound))
}
