package service

import (
	"sort"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
)

// MarkerEntry ストアに保持する1エンティティ分のハンドル
type MarkerEntry struct {
	Marker   repository.MarkerHandle
	Circle   repository.CircleHandle // 円を持たない種別では nil
	Position model.LatLng
	Content  model.MarkerContent
	Radius   float64
}

// MarkerStore エンティティID → マーカーハンドルのレジストリ（種別ごとに1つ）
// 変更できるのは所有する Reconciler だけ。並行アクセスには対応しない
type MarkerStore struct {
	class   model.EntityClass
	entries map[string]*MarkerEntry
}

// NewMarkerStore 空のストアを作成
func NewMarkerStore(class model.EntityClass) *MarkerStore {
	return &MarkerStore{
		class:   class,
		entries: make(map[string]*MarkerEntry),
	}
}

// Class ストアの種別
func (s *MarkerStore) Class() model.EntityClass {
	return s.class
}

// Get IDのエントリを取得
func (s *MarkerStore) Get(id string) (*MarkerEntry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

// Has IDが登録済みか
func (s *MarkerStore) Has(id string) bool {
	_, ok := s.entries[id]
	return ok
}

// Len 登録数
func (s *MarkerStore) Len() int {
	return len(s.entries)
}

// IDs 登録済みIDをソートして返す
func (s *MarkerStore) IDs() []string {
	ids := make([]string, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (s *MarkerStore) put(id string, e *MarkerEntry) {
	s.entries[id] = e
}

// remove マーカーと円を破棄してからキーを削除する
func (s *MarkerStore) remove(id string) bool {
	e, ok := s.entries[id]
	if !ok {
		return false
	}
	if e.Circle != nil {
		e.Circle.Destroy()
	}
	e.Marker.Destroy()
	delete(s.entries, id)
	return true
}

// DestroyAll 全ハンドルを破棄する（エンジン終了時）
func (s *MarkerStore) DestroyAll() int {
	n := 0
	for _, id := range s.IDs() {
		if s.remove(id) {
			n++
		}
	}
	return n
}

// Snapshot 現在の状態を外部公開用に変換
func (s *MarkerStore) Snapshot() []model.MarkerSnapshot {
	out := make([]model.MarkerSnapshot, 0, len(s.entries))
	for _, id := range s.IDs() {
		e := s.entries[id]
		out = append(out, model.MarkerSnapshot{
			Class:     s.class,
			ID:        id,
			Position:  e.Position,
			Content:   e.Content,
			HasCircle: e.Circle != nil,
			Radius:    e.Radius,
		})
	}
	return out
}
