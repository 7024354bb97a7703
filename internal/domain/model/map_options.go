package model

// MapStyle Google Maps のスタイル指定（mapId がない場合に使用）
type MapStyle struct {
	FeatureType string              `json:"featureType"`
	ElementType string              `json:"elementType,omitempty"`
	Stylers     []map[string]string `json:"stylers"`
}

// MapOptions クライアントが地図を初期化するための設定
type MapOptions struct {
	LoaderURL   string     `json:"loader_url"`
	MapID       string     `json:"map_id,omitempty"`
	Styles      []MapStyle `json:"styles,omitempty"`
	RichMarkers bool       `json:"rich_markers"` // AdvancedMarkerElement を使うかどうか
	Center      LatLng     `json:"center"`
	Zoom        float64    `json:"zoom"`
}
