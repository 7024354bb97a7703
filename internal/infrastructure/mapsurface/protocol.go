package mapsurface

import (
	"GeoDrop-App/internal/domain/model"
)

// サーバーからブラウザへの命令
const (
	OpMarkerCreate   = "marker.create"
	OpMarkerPosition = "marker.position"
	OpMarkerContent  = "marker.content"
	OpMarkerDestroy  = "marker.destroy"
	OpCircleCreate   = "circle.create"
	OpCircleCenter   = "circle.center"
	OpCircleRadius   = "circle.radius"
	OpCircleDestroy  = "circle.destroy"
	OpMapPan         = "map.pan"
	OpMapReset       = "map.reset" // 接続直後、再送の前に既存の描画を消させる
	OpEntitySelect   = "entity.select"
)

// ブラウザからサーバーへのイベント
const (
	EventMarkerClick   = "marker_click"
	EventZoomChanged   = "zoom_changed"
	EventCenterChanged = "center_changed"
	EventMapClick      = "map_click"
	EventDragStart     = "dragstart"
	EventImageError    = "image_error"
)

// Command 地図ウィジェットへの命令1件
type Command struct {
	Op        string               `json:"op"`
	ID        string               `json:"id,omitempty"`
	Marker    *model.MarkerOptions `json:"marker,omitempty"`
	Circle    *model.CircleOptions `json:"circle,omitempty"`
	Position  *model.LatLng        `json:"position,omitempty"`
	Content   *model.MarkerContent `json:"content,omitempty"`
	Radius    *float64             `json:"radius_meters,omitempty"`
	Entity    *model.EntityRef     `json:"entity,omitempty"`
	Clickable bool                 `json:"clickable,omitempty"`
}

// Event 地図ウィジェットからのイベント1件
type Event struct {
	Type     string        `json:"type"`
	ID       string        `json:"id,omitempty"`
	Zoom     float64       `json:"zoom,omitempty"`
	Position *model.LatLng `json:"position,omitempty"`
	URL      string        `json:"url,omitempty"`
}
