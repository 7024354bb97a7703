package model

import (
	"github.com/paulmach/orb"
)

// LatLng 緯度経度を表す基本的な型（マーカー配置や距離計算で使用）
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point orb.Point に変換する（orbは [経度, 緯度] の順）
func (l LatLng) Point() orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// LatLngFromPoint orb.Point から LatLng を作成
func LatLngFromPoint(p orb.Point) LatLng {
	return LatLng{Lat: p.Lat(), Lng: p.Lon()}
}

// Geometry PostGIS GEOMETRY型に対応する構造体
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"` // [longitude, latitude]
}

// ToLatLng GeoJSON Point を LatLng に変換。座標が欠けている場合は false
func (g *Geometry) ToLatLng() (LatLng, bool) {
	if g == nil || len(g.Coordinates) < 2 {
		return LatLng{}, false
	}
	return LatLng{Lat: g.Coordinates[1], Lng: g.Coordinates[0]}, true
}

// Location クライアントから受け取る位置情報
type Location struct {
	Latitude  float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

// ToLatLng Location を LatLng に変換
func (l *Location) ToLatLng() LatLng {
	return LatLng{Lat: l.Latitude, Lng: l.Longitude}
}

// Viewport 地図の表示範囲
type Viewport struct {
	Center LatLng    `json:"center"`
	Zoom   float64   `json:"zoom"`
	Bounds orb.Bound `json:"-"`
}
