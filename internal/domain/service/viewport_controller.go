package service

import (
	"fmt"
	"log"

	"GeoDrop-App/internal/domain/helper"
	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
)

// ViewportState 現在地とランタンの状態
type ViewportState int

const (
	StateNoLocation ViewportState = iota
	StateLocated
	StateActivated // ランタン起動中
)

func (s ViewportState) String() string {
	switch s {
	case StateLocated:
		return "located"
	case StateActivated:
		return "activated"
	default:
		return "no_location"
	}
}

// CenterSubscriber 地図中心の変更を購読する
type CenterSubscriber func(fn func(center model.LatLng)) repository.Listener

// ViewportConfig ViewportController の依存
type ViewportConfig struct {
	Surface         repository.MarkerSurface
	SubscribeCenter CenterSubscriber // nil なら Surface.OnCenterChanged
	BuildContext    func() BuildContext
	OnSelfClick     func(pos model.LatLng)
}

// ViewportController 自分のマーカー・起動範囲円・ランタンを管理する
type ViewportController struct {
	surface         repository.MarkerSurface
	subscribeCenter CenterSubscriber
	buildContext    func() BuildContext
	onSelfClick     func(pos model.LatLng)

	state    ViewportState
	location model.LatLng
	profile  model.UserProfile
	tier     model.ZoomTier
	follow   bool

	nearbyPositions []model.LatLng
	nearby          bool

	self         *MarkerEntry
	selfCircleOn bool // 起動範囲円が色付きで描かれているか

	lantern        *MarkerEntry
	centerListener repository.Listener
}

// NewViewportController コントローラを作成。追従モードは有効で始まる
func NewViewportController(cfg ViewportConfig) *ViewportController {
	v := &ViewportController{
		surface:         cfg.Surface,
		subscribeCenter: cfg.SubscribeCenter,
		buildContext:    cfg.BuildContext,
		onSelfClick:     cfg.OnSelfClick,
		follow:          true,
	}
	if v.subscribeCenter == nil {
		v.subscribeCenter = func(fn func(model.LatLng)) repository.Listener {
			return v.surface.OnCenterChanged(fn)
		}
	}
	if v.buildContext == nil {
		v.buildContext = func() BuildContext { return BuildContext{} }
	}
	return v
}

func (v *ViewportController) State() ViewportState { return v.state }
func (v *ViewportController) HasNearby() bool       { return v.nearby }
func (v *ViewportController) Following() bool       { return v.follow }

// Location 最後に取得した現在地
func (v *ViewportController) Location() (model.LatLng, bool) {
	return v.location, v.state != StateNoLocation
}

// LanternCenter ランタンが固定されている地点
func (v *ViewportController) LanternCenter() (model.LatLng, bool) {
	if v.lantern == nil {
		return model.LatLng{}, false
	}
	return v.lantern.Position, true
}

// UpdateLocation 位置情報の更新。初回で noLocation → located に遷移する
func (v *ViewportController) UpdateLocation(pos model.LatLng) error {
	if !helper.ValidCoordinates(pos) {
		return fmt.Errorf("現在地 (%f, %f): %w", pos.Lat, pos.Lng, model.ErrInvalidCoordinates)
	}
	v.location = pos
	if v.state == StateNoLocation {
		v.state = StateLocated
		log.Printf("📍 現在地を取得しました: (%f, %f)", pos.Lat, pos.Lng)
	}
	v.recomputeNearby()
	v.renderSelf()

	if v.follow && v.state == StateLocated {
		v.surface.PanTo(pos)
	}
	return nil
}

// SetNearbyPositions 近接判定に使うエンティティ座標を差し替える
func (v *ViewportController) SetNearbyPositions(positions []model.LatLng) {
	v.nearbyPositions = positions
	v.recomputeNearby()
	v.renderSelf()
}

// SetZoomTier ズーム段階の変更
func (v *ViewportController) SetZoomTier(tier model.ZoomTier) {
	if v.tier == tier {
		return
	}
	v.tier = tier
	v.renderSelf()
	v.renderLantern()
}

// SetProfile プロフィール（アバター・名前）の変更
func (v *ViewportController) SetProfile(p model.UserProfile) {
	v.profile = p
	v.renderSelf()
}

// Rerender 画像読み込み失敗などで表示内容が変わったときに再描画する
func (v *ViewportController) Rerender() {
	v.renderSelf()
	v.renderLantern()
}

// Activate ランタンを地図中心に固定して起動する
func (v *ViewportController) Activate(center model.LatLng) error {
	if v.state == StateNoLocation {
		return fmt.Errorf("ランタンを起動できません: %w", model.ErrLocationUnavailable)
	}
	if !helper.ValidCoordinates(center) {
		return fmt.Errorf("ランタンの中心 (%f, %f): %w", center.Lat, center.Lng, model.ErrInvalidCoordinates)
	}
	if v.state == StateActivated {
		v.OnCenterChanged(center)
		return nil
	}

	content := v.legacy(BuildLanternContent(v.tier))
	marker, err := v.surface.CreateMarker(model.MarkerOptions{
		Position: center,
		Content:  content,
		ZIndex:   model.ZIndexLantern,
		Title:    "lantern",
	}, nil)
	if err != nil {
		return fmt.Errorf("ランタンマーカー作成失敗: %w", err)
	}
	circle, err := v.surface.CreateCircle(LanternCircle(center))
	if err != nil {
		marker.Destroy()
		return fmt.Errorf("ランタン円の作成失敗: %w", err)
	}

	v.lantern = &MarkerEntry{
		Marker:   marker,
		Circle:   circle,
		Position: center,
		Content:  content,
		Radius:   LanternRadiusMeters,
	}
	v.centerListener = v.subscribeCenter(v.OnCenterChanged)
	v.state = StateActivated
	v.renderSelf()
	log.Printf("🏮 ランタンを起動しました: (%f, %f)", center.Lat, center.Lng)
	return nil
}

// OnCenterChanged 起動中はランタンのマーカーと円を新しい中心に移す
func (v *ViewportController) OnCenterChanged(center model.LatLng) {
	if v.state != StateActivated || v.lantern == nil {
		return
	}
	if v.lantern.Position == center {
		return
	}
	v.lantern.Marker.SetPosition(center)
	v.lantern.Circle.SetCenter(center)
	v.lantern.Position = center
}

// Deactivate ランタンと中心の購読を破棄して located に戻る
func (v *ViewportController) Deactivate() {
	if v.state != StateActivated {
		return
	}
	v.destroyLantern()
	v.state = StateLocated
	v.renderSelf()
	log.Printf("🏮 ランタンを停止しました")
}

// HandleDragStart ユーザーが地図を動かしたら追従をやめる
func (v *ViewportController) HandleDragStart() {
	v.follow = false
}

// Recenter 追従を再開して現在地へ移動する
func (v *ViewportController) Recenter() {
	v.follow = true
	if v.state != StateNoLocation {
		v.surface.PanTo(v.location)
	}
}

// Teardown すべてのハンドルと購読を破棄する
func (v *ViewportController) Teardown() {
	v.destroyLantern()
	if v.self != nil {
		if v.self.Circle != nil {
			v.self.Circle.Destroy()
		}
		v.self.Marker.Destroy()
		v.self = nil
	}
}

// Snapshot 自分のマーカーとランタンの状態
func (v *ViewportController) Snapshot() []model.MarkerSnapshot {
	var out []model.MarkerSnapshot
	if v.self != nil {
		out = append(out, model.MarkerSnapshot{
			Class:     model.ClassUserSelf,
			ID:        v.profile.UserID,
			Position:  v.self.Position,
			Content:   v.self.Content,
			HasCircle: v.self.Circle != nil,
			Radius:    v.self.Radius,
		})
	}
	if v.lantern != nil {
		out = append(out, model.MarkerSnapshot{
			Class:     model.ClassLantern,
			ID:        "lantern",
			Position:  v.lantern.Position,
			Content:   v.lantern.Content,
			HasCircle: true,
			Radius:    v.lantern.Radius,
		})
	}
	return out
}

func (v *ViewportController) destroyLantern() {
	if v.centerListener != nil {
		v.centerListener.Remove()
		v.centerListener = nil
	}
	if v.lantern != nil {
		v.lantern.Circle.Destroy()
		v.lantern.Marker.Destroy()
		v.lantern = nil
	}
}

func (v *ViewportController) recomputeNearby() {
	if v.state == StateNoLocation {
		v.nearby = false
		return
	}
	v.nearby = helper.AnyWithinRadius(v.location, v.nearbyPositions, helper.ProximityRadiusMeters)
}

func (v *ViewportController) legacy(c model.MarkerContent) model.MarkerContent {
	if v.surface.Capabilities().RichContent {
		return c
	}
	return c.AsLegacy()
}

// renderSelf 自分のマーカーと起動範囲円を作成または更新する
func (v *ViewportController) renderSelf() {
	if v.state == StateNoLocation {
		return
	}
	content := v.legacy(BuildUserSelfContent(SelfState{
		Profile:       v.profile,
		Nearby:        v.nearby,
		LanternActive: v.state == StateActivated,
	}, v.tier, v.buildContext()))

	if v.self == nil {
		marker, err := v.surface.CreateMarker(model.MarkerOptions{
			Position: v.location,
			Content:  content,
			ZIndex:   model.ZIndexUserSelf,
			Title:    v.profile.DisplayName,
		}, v.selfClicked)
		if err != nil {
			log.Printf("❌ 自分のマーカー作成に失敗: %v", err)
			return
		}
		v.self = &MarkerEntry{Marker: marker, Position: v.location, Content: content}
		v.renderActivationCircle()
		return
	}

	if v.self.Position != v.location {
		v.self.Marker.SetPosition(v.location)
		if v.self.Circle != nil {
			v.self.Circle.SetCenter(v.location)
		}
		v.self.Position = v.location
	}
	if v.self.Content != content {
		v.self.Marker.SetContent(content)
		v.self.Content = content
	}
	v.renderActivationCircle()
}

// renderActivationCircle 円のスタイルを変更するAPIがないため、色が変わるときだけ作り直す
func (v *ViewportController) renderActivationCircle() {
	if v.self.Circle != nil && v.selfCircleOn == v.nearby {
		return
	}
	if v.self.Circle != nil {
		v.self.Circle.Destroy()
		v.self.Circle = nil
	}
	circle, err := v.surface.CreateCircle(ActivationCircle(v.location, v.nearby))
	if err != nil {
		log.Printf("⚠️ 起動範囲円の作成に失敗: %v", err)
		return
	}
	v.self.Circle = circle
	v.self.Radius = helper.ProximityRadiusMeters
	v.selfCircleOn = v.nearby
}

func (v *ViewportController) renderLantern() {
	if v.lantern == nil {
		return
	}
	content := v.legacy(BuildLanternContent(v.tier))
	if v.lantern.Content != content {
		v.lantern.Marker.SetContent(content)
		v.lantern.Content = content
	}
}

func (v *ViewportController) selfClicked() {
	if v.onSelfClick != nil && v.self != nil {
		v.onSelfClick(v.self.Position)
	}
}
