package maps

import (
	"fmt"
	"net/url"
	"strings"

	"GeoDrop-App/internal/domain/model"
)

const (
	loaderBaseURL = "https://maps.googleapis.com/maps/api/js"
	defaultZoom   = 15
)

// defaultCenter 現在地が取れるまでの初期表示（東京駅）
var defaultCenter = model.LatLng{Lat: 35.681236, Lng: 139.767125}

// fallbackStyles mapId がない場合にPOIと交通機関のラベルを隠す
var fallbackStyles = []model.MapStyle{
	{FeatureType: "poi", Stylers: []map[string]string{{"visibility": "off"}}},
	{FeatureType: "poi.business", Stylers: []map[string]string{{"visibility": "off"}}},
	{FeatureType: "transit", ElementType: "labels.icon", Stylers: []map[string]string{{"visibility": "off"}}},
}

// GoogleMapsOptionsProvider Google Maps JavaScript API の初期化設定を組み立てる
type GoogleMapsOptionsProvider struct {
	apiKey string
	mapID  string
}

// NewGoogleMapsOptionsProvider は新しいプロバイダを生成する
func NewGoogleMapsOptionsProvider(apiKey, mapID string) (*GoogleMapsOptionsProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("Google Maps APIキーが設定されていません")
	}
	return &GoogleMapsOptionsProvider{apiKey: apiKey, mapID: strings.TrimSpace(mapID)}, nil
}

// RichMarkers AdvancedMarkerElement（カスタムHTMLマーカー）が使えるか。mapId が必須
func (g *GoogleMapsOptionsProvider) RichMarkers() bool {
	return g.mapID != ""
}

// Capabilities 地図ウィジェットに伝える機能情報
func (g *GoogleMapsOptionsProvider) Capabilities() model.SurfaceCapabilities {
	return model.SurfaceCapabilities{RichContent: g.RichMarkers()}
}

// Options クライアントに返す初期化設定。center が無効なら初期表示位置を使う
func (g *GoogleMapsOptionsProvider) Options(center model.LatLng, hasCenter bool) model.MapOptions {
	if !hasCenter {
		center = defaultCenter
	}
	opts := model.MapOptions{
		LoaderURL:   g.buildURL(),
		MapID:       g.mapID,
		RichMarkers: g.RichMarkers(),
		Center:      center,
		Zoom:        defaultZoom,
	}
	if !opts.RichMarkers {
		opts.Styles = append([]model.MapStyle(nil), fallbackStyles...)
	}
	return opts
}

func (g *GoogleMapsOptionsProvider) buildURL() string {
	params := url.Values{}
	params.Add("key", g.apiKey)
	params.Add("v", "weekly")
	params.Add("loading", "async")
	if g.mapID != "" {
		params.Add("libraries", "marker")
		params.Add("map_ids", g.mapID)
	}
	return fmt.Sprintf("%s?%s", loaderBaseURL, params.Encode())
}
