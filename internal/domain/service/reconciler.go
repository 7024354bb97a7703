package service

import (
	"fmt"
	"log"
	"sort"

	"GeoDrop-App/internal/domain/helper"
	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
)

// EntityAdapter 種別ごとの差分適用に必要な関数群
type EntityAdapter[T any] struct {
	Class    model.EntityClass
	ZIndex   int
	ID       func(T) string
	Position func(T) (model.LatLng, bool)
	Build    func(T, model.ZoomTier, BuildContext) (model.MarkerContent, error)
	Circle   func(T) model.CircleOptions // nil の種別は円を持たない
	Title    func(T) string
}

// ReconcileResult 1回の差分適用で発生した操作数
type ReconcileResult struct {
	Class      model.EntityClass `json:"class"`
	Created    int               `json:"created"`
	Updated    int               `json:"updated"`
	Removed    int               `json:"removed"`
	Suppressed int               `json:"suppressed"` // 同一地点の重複
	Invalid    int               `json:"invalid"`    // 座標なし・ID重複
	Fallback   int               `json:"fallback"`   // コンテンツ生成失敗でドット表示
	Failed     int               `json:"failed"`     // 地図ウィジェットでの作成失敗
}

// ClickFunc マーカーがクリックされたときに呼ばれる
type ClickFunc func(ref model.EntityRef, pos model.LatLng)

type candidate[T any] struct {
	id     string
	pos    model.LatLng
	entity T
}

// Reconciler 最新のエンティティ一覧とマーカーストアを一致させる
// 1つの種別のストアだけを変更する
type Reconciler[T any] struct {
	adapter EntityAdapter[T]
	store   *MarkerStore
	surface repository.MarkerSurface
	onClick ClickFunc

	items  []T
	latest map[string]candidate[T]
}

// NewReconciler 差分適用ドライバを作成
func NewReconciler[T any](adapter EntityAdapter[T], store *MarkerStore, surface repository.MarkerSurface, onClick ClickFunc) *Reconciler[T] {
	return &Reconciler[T]{
		adapter: adapter,
		store:   store,
		surface: surface,
		onClick: onClick,
		latest:  make(map[string]candidate[T]),
	}
}

// Class 担当する種別
func (r *Reconciler[T]) Class() model.EntityClass {
	return r.adapter.Class
}

// Store 所有しているストア
func (r *Reconciler[T]) Store() *MarkerStore {
	return r.store
}

// Items 直近に渡された一覧
func (r *Reconciler[T]) Items() []T {
	return r.items
}

// PositionOf 直近の一覧に含まれるエンティティの座標
func (r *Reconciler[T]) PositionOf(id string) (model.LatLng, bool) {
	c, ok := r.latest[id]
	if !ok {
		return model.LatLng{}, false
	}
	return c.pos, true
}

// Rerun 直近の一覧で再適用する（ズーム変更・カウントダウン更新など）
func (r *Reconciler[T]) Rerun(tier model.ZoomTier, bc BuildContext) ReconcileResult {
	return r.Reconcile(r.items, tier, bc)
}

// Reconcile 削除 → 重複抑制 → 作成/更新 の順でストアを一覧に合わせる
func (r *Reconciler[T]) Reconcile(entities []T, tier model.ZoomTier, bc BuildContext) ReconcileResult {
	result := ReconcileResult{Class: r.adapter.Class}
	r.items = entities

	current := make(map[string]candidate[T], len(entities))
	for _, e := range entities {
		id := r.adapter.ID(e)
		pos, ok := r.adapter.Position(e)
		if id == "" || !ok || !helper.ValidCoordinates(pos) {
			result.Invalid++
			continue
		}
		if _, dup := current[id]; dup {
			result.Invalid++
			continue
		}
		current[id] = candidate[T]{id: id, pos: pos, entity: e}
	}
	r.latest = current

	for _, id := range r.store.IDs() {
		if _, ok := current[id]; !ok {
			r.store.remove(id)
			result.Removed++
		}
	}

	ids := make([]string, 0, len(current))
	for id := range current {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	legacy := !r.surface.Capabilities().RichContent
	index := helper.NewDuplicateIndex()
	for _, id := range ids {
		c := current[id]
		if !index.Claim(c.pos) {
			result.Suppressed++
			if r.store.remove(id) {
				result.Removed++
			}
			continue
		}

		content, fellBack := r.build(c, tier, bc)
		if fellBack {
			result.Fallback++
		}
		if legacy {
			content = content.AsLegacy()
		}

		if entry, ok := r.store.Get(id); ok {
			if r.update(entry, c, content) {
				result.Updated++
			}
			continue
		}
		if err := r.create(c, content); err != nil {
			log.Printf("❌ %s %s のマーカー作成に失敗: %v", r.adapter.Class, id, err)
			result.Failed++
			continue
		}
		result.Created++
	}
	return result
}

// build コンテンツ生成。失敗やパニックはドット表示にフォールバックする
func (r *Reconciler[T]) build(c candidate[T], tier model.ZoomTier, bc BuildContext) (content model.MarkerContent, fellBack bool) {
	defer func() {
		if p := recover(); p != nil {
			log.Printf("⚠️ %s %s のコンテンツ生成でパニック、ドット表示にします: %v", r.adapter.Class, c.id, p)
			content, fellBack = model.Dot(r.adapter.Class, ""), true
		}
	}()

	content, err := r.adapter.Build(c.entity, tier, bc)
	if err != nil {
		log.Printf("⚠️ %s %s のコンテンツ生成に失敗、ドット表示にします: %v", r.adapter.Class, c.id, err)
		return model.Dot(r.adapter.Class, ""), true
	}
	return content, false
}

// update 既存ハンドルを変更がある部分だけ書き換える
func (r *Reconciler[T]) update(entry *MarkerEntry, c candidate[T], content model.MarkerContent) bool {
	changed := false
	if entry.Position != c.pos {
		entry.Marker.SetPosition(c.pos)
		if entry.Circle != nil {
			entry.Circle.SetCenter(c.pos)
		}
		entry.Position = c.pos
		changed = true
	}
	if entry.Content != content {
		entry.Marker.SetContent(content)
		entry.Content = content
		changed = true
	}
	if entry.Circle != nil && r.adapter.Circle != nil {
		radius := r.adapter.Circle(c.entity).RadiusMeters
		if radius != entry.Radius {
			entry.Circle.SetRadius(radius)
			entry.Radius = radius
			changed = true
		}
	}
	return changed
}

func (r *Reconciler[T]) create(c candidate[T], content model.MarkerContent) error {
	opts := model.MarkerOptions{
		Position: c.pos,
		Content:  content,
		ZIndex:   r.adapter.ZIndex,
	}
	if r.adapter.Title != nil {
		opts.Title = r.adapter.Title(c.entity)
	}

	id := c.id
	marker, err := r.surface.CreateMarker(opts, func() { r.clicked(id) })
	if err != nil {
		return fmt.Errorf("マーカー作成失敗: %w", err)
	}

	entry := &MarkerEntry{Marker: marker, Position: c.pos, Content: content}
	if r.adapter.Circle != nil {
		circleOpts := r.adapter.Circle(c.entity)
		circleOpts.Center = c.pos
		circle, err := r.surface.CreateCircle(circleOpts)
		if err != nil {
			marker.Destroy()
			return fmt.Errorf("円の作成失敗: %w", err)
		}
		entry.Circle = circle
		entry.Radius = circleOpts.RadiusMeters
	}
	r.store.put(id, entry)
	return nil
}

// clicked 作成時に固定したIDで現在のエントリを引く。削除済みなら無視
func (r *Reconciler[T]) clicked(id string) {
	entry, ok := r.store.Get(id)
	if !ok || r.onClick == nil {
		return
	}
	r.onClick(model.EntityRef{Class: r.adapter.Class, ID: id}, entry.Position)
}

// Close 全ハンドルを破棄する
func (r *Reconciler[T]) Close() int {
	r.latest = make(map[string]candidate[T])
	r.items = nil
	return r.store.DestroyAll()
}
