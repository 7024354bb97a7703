package repository

import (
	"GeoDrop-App/internal/domain/model"
)

// MarkerHandle 地図ウィジェットが返すマーカーへの参照
type MarkerHandle interface {
	SetPosition(pos model.LatLng)
	SetContent(content model.MarkerContent)
	Destroy()
}

// CircleHandle 円オーバーレイへの参照
type CircleHandle interface {
	SetCenter(center model.LatLng)
	SetRadius(radiusMeters float64)
	Destroy()
}

// Listener 地図イベントの購読。Remove で解除する
type Listener interface {
	Remove()
}

// MarkerSurface 命令的な地図ウィジェットAPIのアダプタ
// 差分検出は持たないので、呼び出し側がハンドルを管理する
type MarkerSurface interface {
	CreateMarker(opts model.MarkerOptions, onClick func()) (MarkerHandle, error)
	CreateCircle(opts model.CircleOptions) (CircleHandle, error)
	PanTo(center model.LatLng)

	OnZoomChanged(fn func(zoom float64)) Listener
	OnCenterChanged(fn func(center model.LatLng)) Listener
	OnMapClick(fn func(pos model.LatLng)) Listener
	OnDragStart(fn func()) Listener

	Capabilities() model.SurfaceCapabilities
}
