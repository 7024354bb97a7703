package service

import (
	"GeoDrop-App/internal/domain/helper"
	"GeoDrop-App/internal/domain/model"
)

// PositionLookup 直近の一覧からエンティティの座標を引く
type PositionLookup func(ref model.EntityRef) (model.LatLng, bool)

// ClickDispatcher マーカークリックの遷移先を決める
// 重複抑制で別エンティティのマーカーに隠れた対象を、事前に登録したターゲットで救う
type ClickDispatcher struct {
	target model.EntityRef
}

// NewClickDispatcher ディスパッチャを作成
func NewClickDispatcher() *ClickDispatcher {
	return &ClickDispatcher{}
}

// SetTarget 次のクリックで優先するエンティティを登録（再描画をまたいで保持）
func (d *ClickDispatcher) SetTarget(ref model.EntityRef) {
	d.target = ref
}

// ClearTarget ターゲットを解除
func (d *ClickDispatcher) ClearTarget() {
	d.target = model.EntityRef{}
}

// Target 登録中のターゲット
func (d *ClickDispatcher) Target() (model.EntityRef, bool) {
	return d.target, !d.target.IsZero()
}

// Resolve クリックされたマーカーから遷移先を決める
// ターゲットが同じ種別で座標が一致する場合だけターゲットを返し、ターゲットは一度で消費する
func (d *ClickDispatcher) Resolve(clicked model.EntityRef, clickedPos model.LatLng, lookup PositionLookup) model.EntityRef {
	if d.target.IsZero() {
		return clicked
	}
	if d.target == clicked {
		d.ClearTarget()
		return clicked
	}
	if d.target.Class != clicked.Class || lookup == nil {
		return clicked
	}

	pos, ok := lookup(d.target)
	if !ok || helper.PositionKey(pos) != helper.PositionKey(clickedPos) {
		return clicked
	}
	resolved := d.target
	d.ClearTarget()
	return resolved
}
