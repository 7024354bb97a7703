package helper

import (
	"fmt"
	"math"

	"github.com/paulmach/orb/geo"

	"GeoDrop-App/internal/domain/model"
)

const (
	// ProximityRadiusMeters 近くにあると判定する半径（100ft）
	ProximityRadiusMeters = 30.48
	// DuplicateEpsilonMeters 同一地点とみなす距離
	DuplicateEpsilonMeters = 1.0

	metersPerDegree = 111320.0
)

// DistanceMeters は2地点間の距離を計算する (m)
func DistanceMeters(a, b model.LatLng) float64 {
	return geo.DistanceHaversine(a.Point(), b.Point())
}

// WithinRadius は点が中心から半径内にあるかを判定する
func WithinRadius(center, p model.LatLng, radiusMeters float64) bool {
	return DistanceMeters(center, p) <= radiusMeters
}

// AnyWithinRadius は候補のいずれかが半径内にあるかを判定する（O(n)）
func AnyWithinRadius(center model.LatLng, candidates []model.LatLng, radiusMeters float64) bool {
	for _, p := range candidates {
		if WithinRadius(center, p, radiusMeters) {
			return true
		}
	}
	return false
}

// IsNearDuplicate は2地点がほぼ同じ位置かを平面近似で判定する
func IsNearDuplicate(a, b model.LatLng) bool {
	dy := (a.Lat - b.Lat) * metersPerDegree
	dx := (a.Lng - b.Lng) * metersPerDegree * math.Cos(a.Lat*math.Pi/180)
	return math.Sqrt(dx*dx+dy*dy) < DuplicateEpsilonMeters
}

// PositionKey 小数点以下6桁に丸めた位置キー
func PositionKey(p model.LatLng) string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// ValidCoordinates 配置可能な座標かをチェック
func ValidCoordinates(p model.LatLng) bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return false
	}
	// 0,0 は未設定のプレースホルダとして扱う
	return !(p.Lat == 0 && p.Lng == 0)
}

// DuplicateIndex 同一地点判定用のグリッドインデックス
// セルは緯度方向に約1.1m。経度方向は高緯度ほど狭くなるので比較範囲を広げる
type DuplicateIndex struct {
	cells map[[2]int64][]model.LatLng
}

// NewDuplicateIndex 空のインデックスを作成
func NewDuplicateIndex() *DuplicateIndex {
	return &DuplicateIndex{cells: make(map[[2]int64][]model.LatLng)}
}

func cellOf(p model.LatLng) [2]int64 {
	return [2]int64{int64(math.Floor(p.Lat * 1e5)), int64(math.Floor(p.Lng * 1e5))}
}

// Claim 位置を登録する。既に近傍に登録済みの位置があれば false
func (d *DuplicateIndex) Claim(p model.LatLng) bool {
	c := cellOf(p)
	span := lngSpan(p.Lat)
	for dy := int64(-1); dy <= 1; dy++ {
		for dx := -span; dx <= span; dx++ {
			for _, q := range d.cells[[2]int64{c[0] + dy, c[1] + dx}] {
				if IsNearDuplicate(p, q) {
					return false
				}
			}
		}
	}
	d.cells[c] = append(d.cells[c], p)
	return true
}

// lngSpan 経度方向に比較するセル数（片側）
func lngSpan(lat float64) int64 {
	c := math.Cos(lat * math.Pi / 180)
	if c <= 0.02 {
		return 50
	}
	return int64(math.Ceil(1 / c))
}
