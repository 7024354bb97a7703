package model

import "math"

// ZoomTier ズームレベルから導出される描画段階
type ZoomTier int

const (
	ZoomTierMinimal ZoomTier = iota // zoom < 13: ドット表示
	ZoomTierMedium                  // 13 <= zoom < 15
	ZoomTierFull                    // zoom >= 15
)

const (
	MediumZoomThreshold = 13
	FullZoomThreshold   = 15

	MinimalIconSize = 12
	MediumIconSize  = 32
	FullIconSize    = 48
	MaxIconSize     = 48
)

// ClassifyZoom ズームレベルを描画段階に変換する。どんな値でもパニックしない
func ClassifyZoom(zoom float64) ZoomTier {
	switch {
	case math.IsNaN(zoom):
		return ZoomTierMinimal
	case zoom < MediumZoomThreshold:
		return ZoomTierMinimal
	case zoom < FullZoomThreshold:
		return ZoomTierMedium
	default:
		return ZoomTierFull
	}
}

// IconSize 段階ごとの基本アイコンサイズ（px）
func (t ZoomTier) IconSize() int {
	switch t {
	case ZoomTierMedium:
		return MediumIconSize
	case ZoomTierFull:
		return FullIconSize
	default:
		return MinimalIconSize
	}
}

// Bump 一段階大きいサイズ（ハイライト用）。最大サイズを超えない
func (t ZoomTier) Bump() int {
	switch t {
	case ZoomTierMinimal:
		return MediumIconSize
	default:
		return MaxIconSize
	}
}

func (t ZoomTier) String() string {
	switch t {
	case ZoomTierMedium:
		return "medium"
	case ZoomTierFull:
		return "full"
	default:
		return "minimal"
	}
}
