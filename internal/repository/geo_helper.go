package repository

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geo"

	"GeoDrop-App/internal/domain/model"
)

// GeoPoint PostGIS POINT 型の GeoJSON 表現
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// LatLngToGeoPoint model.LatLng を PostGIS POINT 形式に変換
func LatLngToGeoPoint(p model.LatLng) *GeoPoint {
	point := p.Point()
	return &GeoPoint{
		Type:        "Point",
		Coordinates: []float64{point.Lon(), point.Lat()},
	}
}

// LatLng PostGIS POINT を model.LatLng に変換。座標が欠けていれば false
func (g *GeoPoint) LatLng() (model.LatLng, bool) {
	if g == nil || len(g.Coordinates) < 2 {
		return model.LatLng{}, false
	}
	point := orb.Point{g.Coordinates[0], g.Coordinates[1]}
	return model.LatLngFromPoint(point), true
}

// resolvePosition location 列を優先し、なければ latitude/longitude 列を使う
// どちらもなければ NaN を返し、描画側で無効な座標として除外される
func resolvePosition(location *GeoPoint, lat, lng *float64) (float64, float64) {
	if p, ok := location.LatLng(); ok {
		return p.Lat, p.Lng
	}
	if lat != nil && lng != nil {
		return *lat, *lng
	}
	return math.NaN(), math.NaN()
}

// BoundAroundPoint 中心から半径 radiusMeters を含む境界ボックス
func BoundAroundPoint(center model.LatLng, radiusMeters float64) orb.Bound {
	return geo.NewBoundAroundPoint(center.Point(), radiusMeters)
}

// BoundToWKT 境界ボックスを ST_GeomFromText 用の WKT ポリゴンに変換
func BoundToWKT(bound orb.Bound) string {
	return wkt.MarshalString(bound.ToPolygon())
}
