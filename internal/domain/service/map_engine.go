package service

import (
	"fmt"
	"log"
	"time"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
)

// ExpiredGracePeriod 期限切れのゲームエンティティを "Expired" 表示のまま残す時間
const ExpiredGracePeriod = time.Minute

// ImageErrorSource 画像の読み込み失敗を通知できる地図ウィジェット
type ImageErrorSource interface {
	OnImageError(fn func(url string)) repository.Listener
}

// EngineOptions MapEngine の設定
type EngineOptions struct {
	Now      func() time.Time
	Post     func(func())               // ウィジェットからのコールバックを実行するループ。nil なら即時実行
	OnSelect func(ref model.EntityRef) // クリックで決まった遷移先
}

// EngineSnapshot エンジン全体の状態
type EngineSnapshot struct {
	Zoom          float64                `json:"zoom"`
	Tier          string                 `json:"tier"`
	State         string                 `json:"state"`
	Nearby        bool                   `json:"nearby"`
	Following     bool                   `json:"following"`
	HighlightedID string                 `json:"highlighted_video_id,omitempty"`
	Target        *model.EntityRef       `json:"target,omitempty"`
	Markers       []model.MarkerSnapshot `json:"markers"`
}

// MapEngine 全種別のリコンサイラ・ディスパッチャ・ビューポートを持つ
// ゴルーチンセーフではない。呼び出しは1つのループから行う
type MapEngine struct {
	surface  repository.MarkerSurface
	raw      repository.MarkerSurface
	now      func() time.Time
	post     func(func())
	onSelect func(ref model.EntityRef)

	zoom          float64
	tier          model.ZoomTier
	highlightedID string
	failedImages  map[string]bool
	center        model.LatLng
	hasCenter     bool

	dispatcher *ClickDispatcher
	viewport   *ViewportController

	videos   *Reconciler[model.Video]
	quests   *Reconciler[model.Quest]
	chests   *Reconciler[model.TreasureChest]
	boxes    *Reconciler[model.MysteryBox]
	dragons  *Reconciler[model.Dragon]
	followed *Reconciler[model.FollowedUser]

	results   map[model.EntityClass]ReconcileResult
	listeners []repository.Listener
	closed    bool
}

// NewMapEngine エンジンを作成。地図ウィジェットがない場合は ErrSurfaceUnavailable
func NewMapEngine(surface repository.MarkerSurface, opts EngineOptions) (*MapEngine, error) {
	if surface == nil {
		return nil, model.ErrSurfaceUnavailable
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Post == nil {
		opts.Post = func(fn func()) { fn() }
	}

	e := &MapEngine{
		raw:          surface,
		surface:      &postingSurface{MarkerSurface: surface, post: opts.Post},
		now:          opts.Now,
		post:         opts.Post,
		onSelect:     opts.OnSelect,
		tier:         model.ZoomTierMinimal,
		failedImages: make(map[string]bool),
		dispatcher:   NewClickDispatcher(),
		results:      make(map[model.EntityClass]ReconcileResult),
	}

	e.viewport = NewViewportController(ViewportConfig{
		Surface:      e.surface,
		BuildContext: e.buildContext,
		OnSelfClick: func(model.LatLng) {
			if e.onSelect != nil {
				e.onSelect(model.EntityRef{Class: model.ClassUserSelf, ID: e.viewport.profile.UserID})
			}
		},
	})

	click := func(ref model.EntityRef, pos model.LatLng) { e.HandleMarkerClick(ref, pos) }
	e.videos = NewReconciler(videoAdapter(), NewMarkerStore(model.ClassVideo), e.surface, click)
	e.quests = NewReconciler(questAdapter(), NewMarkerStore(model.ClassQuest), e.surface, click)
	e.chests = NewReconciler(chestAdapter(), NewMarkerStore(model.ClassTreasureChest), e.surface, click)
	e.boxes = NewReconciler(mysteryBoxAdapter(), NewMarkerStore(model.ClassMysteryBox), e.surface, click)
	e.dragons = NewReconciler(dragonAdapter(), NewMarkerStore(model.ClassDragon), e.surface, click)
	e.followed = NewReconciler(followedUserAdapter(), NewMarkerStore(model.ClassFollowedUser), e.surface, click)
	return e, nil
}

func videoAdapter() EntityAdapter[model.Video] {
	return EntityAdapter[model.Video]{
		Class:    model.ClassVideo,
		ZIndex:   model.ZIndexVideo,
		ID:       func(v model.Video) string { return v.ID },
		Position: model.Video.Position,
		Build:    BuildVideoContent,
		Title:    func(v model.Video) string { return v.Username },
	}
}

func questAdapter() EntityAdapter[model.Quest] {
	return EntityAdapter[model.Quest]{
		Class:    model.ClassQuest,
		ZIndex:   model.ZIndexQuest,
		ID:       func(q model.Quest) string { return q.ID },
		Position: model.Quest.Position,
		Build:    BuildQuestContent,
		Circle:   QuestCircle,
		Title:    func(q model.Quest) string { return q.Title },
	}
}

func chestAdapter() EntityAdapter[model.TreasureChest] {
	return EntityAdapter[model.TreasureChest]{
		Class:    model.ClassTreasureChest,
		ZIndex:   model.ZIndexTreasureChest,
		ID:       func(c model.TreasureChest) string { return c.ID },
		Position: model.TreasureChest.Position,
		Build:    BuildTreasureChestContent,
		Circle: func(c model.TreasureChest) model.CircleOptions {
			style, _ := c.Size.Style()
			return ProximityCircle(style.Color)
		},
	}
}

func mysteryBoxAdapter() EntityAdapter[model.MysteryBox] {
	return EntityAdapter[model.MysteryBox]{
		Class:    model.ClassMysteryBox,
		ZIndex:   model.ZIndexMysteryBox,
		ID:       func(b model.MysteryBox) string { return b.ID },
		Position: model.MysteryBox.Position,
		Build:    BuildMysteryBoxContent,
		Circle: func(b model.MysteryBox) model.CircleOptions {
			style, _ := b.Tier.Style()
			return ProximityCircle(style.Color)
		},
	}
}

func dragonAdapter() EntityAdapter[model.Dragon] {
	return EntityAdapter[model.Dragon]{
		Class:    model.ClassDragon,
		ZIndex:   model.ZIndexDragon,
		ID:       func(d model.Dragon) string { return d.ID },
		Position: model.Dragon.Position,
		Build:    BuildDragonContent,
		Circle: func(d model.Dragon) model.CircleOptions {
			style, _ := d.Size.Style()
			return ProximityCircle(style.Color)
		},
	}
}

func followedUserAdapter() EntityAdapter[model.FollowedUser] {
	return EntityAdapter[model.FollowedUser]{
		Class:    model.ClassFollowedUser,
		ZIndex:   model.ZIndexFollowedUser,
		ID:       func(u model.FollowedUser) string { return u.UserID },
		Position: model.FollowedUser.Position,
		Build:    BuildFollowedUserContent,
		Title:    func(u model.FollowedUser) string { return u.DisplayName },
	}
}

func (e *MapEngine) buildContext() BuildContext {
	return BuildContext{
		Now:                e.now(),
		HighlightedVideoID: e.highlightedID,
		FailedImages:       e.failedImages,
	}
}

func (e *MapEngine) record(r ReconcileResult) ReconcileResult {
	e.results[r.Class] = r
	if r.Created+r.Removed+r.Failed > 0 {
		log.Printf("🗺️ %s: 作成 %d / 更新 %d / 削除 %d / 重複 %d / 無効 %d / 失敗 %d",
			r.Class, r.Created, r.Updated, r.Removed, r.Suppressed, r.Invalid, r.Failed)
	}
	return r
}

// SetVideos 動画一覧を反映
func (e *MapEngine) SetVideos(videos []model.Video) ReconcileResult {
	r := e.record(e.videos.Reconcile(videos, e.tier, e.buildContext()))
	e.refreshNearby()
	return r
}

// SetQuests クエスト一覧を反映
func (e *MapEngine) SetQuests(quests []model.Quest) ReconcileResult {
	r := e.record(e.quests.Reconcile(quests, e.tier, e.buildContext()))
	e.refreshNearby()
	return r
}

// SetTreasureChests 宝箱一覧を反映
func (e *MapEngine) SetTreasureChests(chests []model.TreasureChest) ReconcileResult {
	r := e.record(e.chests.Reconcile(chests, e.tier, e.buildContext()))
	e.refreshNearby()
	return r
}

// SetMysteryBoxes ミステリーボックス一覧を反映
func (e *MapEngine) SetMysteryBoxes(boxes []model.MysteryBox) ReconcileResult {
	r := e.record(e.boxes.Reconcile(boxes, e.tier, e.buildContext()))
	e.refreshNearby()
	return r
}

// SetDragons ドラゴン一覧を反映
func (e *MapEngine) SetDragons(dragons []model.Dragon) ReconcileResult {
	r := e.record(e.dragons.Reconcile(dragons, e.tier, e.buildContext()))
	e.refreshNearby()
	return r
}

// SetFollowedUsers フォロー中ユーザーの位置を反映（近接判定には使わない）
func (e *MapEngine) SetFollowedUsers(users []model.FollowedUser) ReconcileResult {
	return e.record(e.followed.Reconcile(users, e.tier, e.buildContext()))
}

// SetProfile 自分のプロフィールを反映
func (e *MapEngine) SetProfile(p model.UserProfile) {
	e.viewport.SetProfile(p)
}

// SetZoom ズーム変更。段階が変わったときだけ全種別を作り直す
func (e *MapEngine) SetZoom(zoom float64) {
	e.zoom = zoom
	tier := model.ClassifyZoom(zoom)
	if tier == e.tier {
		return
	}
	e.tier = tier
	e.rerunAll()
	e.viewport.SetZoomTier(tier)
}

// Tier 現在のズーム段階
func (e *MapEngine) Tier() model.ZoomTier {
	return e.tier
}

// SetHighlightedVideo 強調表示する動画を変更（空文字で解除）
func (e *MapEngine) SetHighlightedVideo(id string) {
	if e.highlightedID == id {
		return
	}
	e.highlightedID = id
	e.record(e.videos.Rerun(e.tier, e.buildContext()))
}

// SetTargetBias 次のクリックで優先するエンティティを登録
func (e *MapEngine) SetTargetBias(ref model.EntityRef) error {
	if _, err := model.ParseEntityClass(string(ref.Class)); err != nil {
		return err
	}
	if ref.ID == "" {
		return fmt.Errorf("ターゲットのIDが空です")
	}
	e.dispatcher.SetTarget(ref)
	return nil
}

// ClearTargetBias ターゲットを解除
func (e *MapEngine) ClearTargetBias() {
	e.dispatcher.ClearTarget()
}

// HandleMarkerClick クリックされたマーカーから遷移先を決めて通知する
func (e *MapEngine) HandleMarkerClick(clicked model.EntityRef, pos model.LatLng) model.EntityRef {
	resolved := e.dispatcher.Resolve(clicked, pos, e.positionOf)
	if resolved != clicked {
		log.Printf("🎯 %s %s のクリックをターゲット %s に振り替えました", clicked.Class, clicked.ID, resolved.ID)
	}
	if e.onSelect != nil {
		e.onSelect(resolved)
	}
	return resolved
}

func (e *MapEngine) positionOf(ref model.EntityRef) (model.LatLng, bool) {
	switch ref.Class {
	case model.ClassVideo:
		return e.videos.PositionOf(ref.ID)
	case model.ClassQuest:
		return e.quests.PositionOf(ref.ID)
	case model.ClassTreasureChest:
		return e.chests.PositionOf(ref.ID)
	case model.ClassMysteryBox:
		return e.boxes.PositionOf(ref.ID)
	case model.ClassDragon:
		return e.dragons.PositionOf(ref.ID)
	case model.ClassFollowedUser:
		return e.followed.PositionOf(ref.ID)
	default:
		return model.LatLng{}, false
	}
}

// UpdateUserLocation 現在地の更新
func (e *MapEngine) UpdateUserLocation(pos model.LatLng) error {
	return e.viewport.UpdateLocation(pos)
}

// ActivateLantern 地図中心（未取得なら現在地）にランタンを固定する
func (e *MapEngine) ActivateLantern() error {
	center, ok := e.center, e.hasCenter
	if !ok {
		center, ok = e.viewport.Location()
	}
	if !ok {
		return fmt.Errorf("ランタンを起動できません: %w", model.ErrLocationUnavailable)
	}
	return e.viewport.Activate(center)
}

// DeactivateLantern ランタンを停止
func (e *MapEngine) DeactivateLantern() {
	e.viewport.Deactivate()
}

// HandleCenterChanged 地図中心を記録する。ランタンの追従は ViewportController が購読している
func (e *MapEngine) HandleCenterChanged(center model.LatLng) {
	e.center = center
	e.hasCenter = true
}

// HandleDragStart ドラッグ開始で現在地への追従をやめる
func (e *MapEngine) HandleDragStart() {
	e.viewport.HandleDragStart()
}

// Recenter 現在地への追従を再開
func (e *MapEngine) Recenter() {
	e.viewport.Recenter()
}

// HandleMapClick 地図の空白部分のクリックで強調表示を解除
func (e *MapEngine) HandleMapClick(model.LatLng) {
	e.SetHighlightedVideo("")
}

// MarkCollected 取得・討伐済みのエンティティを次の取得を待たずに取り除く
func (e *MapEngine) MarkCollected(ref model.EntityRef) (bool, error) {
	switch ref.Class {
	case model.ClassTreasureChest:
		kept, found := without(e.chests.Items(), func(c model.TreasureChest) bool { return c.ID == ref.ID })
		if found {
			e.SetTreasureChests(kept)
		}
		return found, nil
	case model.ClassMysteryBox:
		kept, found := without(e.boxes.Items(), func(b model.MysteryBox) bool { return b.ID == ref.ID })
		if found {
			e.SetMysteryBoxes(kept)
		}
		return found, nil
	case model.ClassDragon:
		kept, found := without(e.dragons.Items(), func(d model.Dragon) bool { return d.ID == ref.ID })
		if found {
			e.SetDragons(kept)
		}
		return found, nil
	default:
		return false, fmt.Errorf("%s は取得できない種別です: %w", ref.Class, model.ErrUnknownEntityClass)
	}
}

// without 条件に合う要素を除いた新しいスライスを返す
func without[T any](items []T, match func(T) bool) ([]T, bool) {
	kept := make([]T, 0, len(items))
	found := false
	for _, it := range items {
		if match(it) {
			found = true
			continue
		}
		kept = append(kept, it)
	}
	return kept, found
}

// MarkImageFailed 読み込めなかった画像を記録し、イニシャル表示に切り替える
func (e *MapEngine) MarkImageFailed(url string) {
	if url == "" || e.failedImages[url] {
		return
	}
	e.failedImages[url] = true
	log.Printf("⚠️ 画像の読み込みに失敗、イニシャル表示にします: %s", url)
	e.record(e.followed.Rerun(e.tier, e.buildContext()))
	e.viewport.Rerender()
}

// Tick カウントダウンを更新し、猶予を過ぎた期限切れエンティティを取り除く
func (e *MapEngine) Tick() {
	now := e.now()
	expired := func(at *time.Time) bool {
		return at != nil && now.Sub(*at) >= ExpiredGracePeriod
	}

	chests, _ := without(e.chests.Items(), func(c model.TreasureChest) bool { return expired(c.ExpiresAt) })
	boxes, _ := without(e.boxes.Items(), func(b model.MysteryBox) bool { return expired(b.ExpiresAt) })
	dragons, _ := without(e.dragons.Items(), func(d model.Dragon) bool { return expired(d.ExpiresAt) })

	bc := e.buildContext()
	e.record(e.chests.Reconcile(chests, e.tier, bc))
	e.record(e.boxes.Reconcile(boxes, e.tier, bc))
	e.record(e.dragons.Reconcile(dragons, e.tier, bc))
	e.record(e.videos.Rerun(e.tier, bc))
	e.record(e.quests.Rerun(e.tier, bc))
	e.refreshNearby()
}

func (e *MapEngine) rerunAll() {
	bc := e.buildContext()
	e.record(e.videos.Rerun(e.tier, bc))
	e.record(e.quests.Rerun(e.tier, bc))
	e.record(e.chests.Rerun(e.tier, bc))
	e.record(e.boxes.Rerun(e.tier, bc))
	e.record(e.dragons.Rerun(e.tier, bc))
	e.record(e.followed.Rerun(e.tier, bc))
}

// refreshNearby 近接判定の対象（未取得・未討伐のもの）を集め直す
func (e *MapEngine) refreshNearby() {
	var positions []model.LatLng
	for _, v := range e.videos.Items() {
		if p, ok := v.Position(); ok {
			positions = append(positions, p)
		}
	}
	for _, q := range e.quests.Items() {
		p, _ := q.Position()
		positions = append(positions, p)
	}
	for _, c := range e.chests.Items() {
		if !c.IsCollected {
			p, _ := c.Position()
			positions = append(positions, p)
		}
	}
	for _, b := range e.boxes.Items() {
		if !b.IsCollected {
			p, _ := b.Position()
			positions = append(positions, p)
		}
	}
	for _, d := range e.dragons.Items() {
		if !d.IsDefeated {
			p, _ := d.Position()
			positions = append(positions, p)
		}
	}
	e.viewport.SetNearbyPositions(positions)
}

// Results 種別ごとの直近の適用結果
func (e *MapEngine) Results() map[model.EntityClass]ReconcileResult {
	out := make(map[model.EntityClass]ReconcileResult, len(e.results))
	for k, v := range e.results {
		out[k] = v
	}
	return out
}

// Snapshot 全マーカーの状態
func (e *MapEngine) Snapshot() EngineSnapshot {
	snap := EngineSnapshot{
		Zoom:          e.zoom,
		Tier:          e.tier.String(),
		State:         e.viewport.State().String(),
		Nearby:        e.viewport.HasNearby(),
		Following:     e.viewport.Following(),
		HighlightedID: e.highlightedID,
		Markers:       []model.MarkerSnapshot{},
	}
	if target, ok := e.dispatcher.Target(); ok {
		snap.Target = &target
	}
	for _, s := range []*MarkerStore{
		e.videos.Store(), e.quests.Store(), e.chests.Store(),
		e.boxes.Store(), e.dragons.Store(), e.followed.Store(),
	} {
		snap.Markers = append(snap.Markers, s.Snapshot()...)
	}
	snap.Markers = append(snap.Markers, e.viewport.Snapshot()...)
	return snap
}

// Attach 地図ウィジェットのイベントを購読する
func (e *MapEngine) Attach() {
	e.listeners = append(e.listeners,
		e.surface.OnZoomChanged(e.SetZoom),
		e.surface.OnCenterChanged(e.HandleCenterChanged),
		e.surface.OnMapClick(e.HandleMapClick),
		e.surface.OnDragStart(e.HandleDragStart),
	)
	if src, ok := e.raw.(ImageErrorSource); ok {
		e.listeners = append(e.listeners, src.OnImageError(func(url string) {
			e.post(func() { e.MarkImageFailed(url) })
		}))
	}
}

// Close 購読を解除し、作成した全ハンドルを破棄する
func (e *MapEngine) Close() {
	if e.closed {
		return
	}
	e.closed = true
	for _, l := range e.listeners {
		l.Remove()
	}
	e.listeners = nil
	e.viewport.Teardown()

	n := e.videos.Close() + e.quests.Close() + e.chests.Close() +
		e.boxes.Close() + e.dragons.Close() + e.followed.Close()
	log.Printf("✅ マップエンジンを終了しました（%d 件のマーカーを破棄）", n)
}

// postingSurface ウィジェットからのコールバックを post 経由で実行する
type postingSurface struct {
	repository.MarkerSurface
	post func(func())
}

func (s *postingSurface) CreateMarker(opts model.MarkerOptions, onClick func()) (repository.MarkerHandle, error) {
	if onClick == nil {
		return s.MarkerSurface.CreateMarker(opts, nil)
	}
	return s.MarkerSurface.CreateMarker(opts, func() { s.post(onClick) })
}

func (s *postingSurface) OnZoomChanged(fn func(float64)) repository.Listener {
	return s.MarkerSurface.OnZoomChanged(func(z float64) { s.post(func() { fn(z) }) })
}

func (s *postingSurface) OnCenterChanged(fn func(model.LatLng)) repository.Listener {
	return s.MarkerSurface.OnCenterChanged(func(c model.LatLng) { s.post(func() { fn(c) }) })
}

func (s *postingSurface) OnMapClick(fn func(model.LatLng)) repository.Listener {
	return s.MarkerSurface.OnMapClick(func(p model.LatLng) { s.post(func() { fn(p) }) })
}

func (s *postingSurface) OnDragStart(fn func()) repository.Listener {
	return s.MarkerSurface.OnDragStart(func() { s.post(fn) })
}
