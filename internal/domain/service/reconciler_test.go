package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GeoDrop-App/internal/domain/model"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func chest(id string, lat, lng float64) model.TreasureChest {
	return model.TreasureChest{ID: id, Latitude: lat, Longitude: lng, Size: model.ChestSizeSmall, RewardPoints: 10}
}

func video(id string, lat, lng float64) model.Video {
	return model.Video{ID: id, Latitude: &lat, Longitude: &lng, Category: model.VideoCategoryFood, Username: "tester"}
}

func newChestReconciler(s *fakeSurface, onClick ClickFunc) *Reconciler[model.TreasureChest] {
	return NewReconciler(chestAdapter(), NewMarkerStore(model.ClassTreasureChest), s, onClick)
}

func testBuildContext() BuildContext {
	return BuildContext{Now: testNow}
}

func TestReconciler_Idempotence(t *testing.T) {
	s := newFakeSurface()
	r := newChestReconciler(s, nil)
	chests := []model.TreasureChest{chest("c1", 35.0, 135.0), chest("c2", 35.001, 135.001)}

	first := r.Reconcile(chests, model.ZoomTierFull, testBuildContext())
	assert.Equal(t, 2, first.Created)
	assert.Equal(t, 2, s.markerCreates)
	assert.Equal(t, 2, s.circleCreates)

	s.resetCounters()
	second := r.Reconcile(chests, model.ZoomTierFull, testBuildContext())

	assert.Equal(t, ReconcileResult{Class: model.ClassTreasureChest}, second)
	assert.Zero(t, s.markerCreates)
	assert.Zero(t, s.circleCreates)
	assert.Zero(t, s.markerDestroys)
	assert.Zero(t, s.circleDestroys)
	assert.Zero(t, s.contentWrites)
	assert.Zero(t, s.positionWrites)
}

func TestReconciler_StoreMatchesCollection(t *testing.T) {
	s := newFakeSurface()
	r := newChestReconciler(s, nil)

	t.Run("一覧のIDとストアのキーが一致する", func(t *testing.T) {
		r.Reconcile([]model.TreasureChest{
			chest("c3", 35.0, 135.0),
			chest("c1", 35.01, 135.01),
			chest("c2", 35.02, 135.02),
		}, model.ZoomTierMedium, testBuildContext())
		assert.Equal(t, []string{"c1", "c2", "c3"}, r.Store().IDs())
		assert.Len(t, s.liveMarkers(), 3)
		assert.Len(t, s.liveCircles(), 3)
	})

	t.Run("一部が消えると対応するハンドルだけ破棄される", func(t *testing.T) {
		res := r.Reconcile([]model.TreasureChest{chest("c1", 35.01, 135.01)}, model.ZoomTierMedium, testBuildContext())
		assert.Equal(t, 2, res.Removed)
		assert.Equal(t, []string{"c1"}, r.Store().IDs())
		assert.Len(t, s.liveMarkers(), 1)
		assert.Len(t, s.liveCircles(), 1)
	})

	t.Run("空の一覧でストアも空になる", func(t *testing.T) {
		res := r.Reconcile(nil, model.ZoomTierMedium, testBuildContext())
		assert.Equal(t, 1, res.Removed)
		assert.Zero(t, r.Store().Len())
		assert.Empty(t, s.liveMarkers())
		assert.Empty(t, s.liveCircles())
	})

	t.Run("破棄はハンドルごとに1回だけ", func(t *testing.T) {
		for _, m := range s.markers {
			assert.Equal(t, 1, m.destroyed, "marker %s", m.id)
		}
		for _, c := range s.circles {
			assert.Equal(t, 1, c.destroyed, "circle %s", c.id)
		}
	})
}

func TestReconciler_ChestCollectedScenario(t *testing.T) {
	s := newFakeSurface()
	r := newChestReconciler(s, nil)
	c1 := chest("c1", 35.6812, 139.7671)
	c2 := chest("c2", 35.6895, 139.6917)

	r.Reconcile([]model.TreasureChest{c1, c2}, model.ZoomTierFull, testBuildContext())
	c1Entry, ok := r.Store().Get("c1")
	require.True(t, ok)
	c2Entry, ok := r.Store().Get("c2")
	require.True(t, ok)

	s.resetCounters()
	res := r.Reconcile([]model.TreasureChest{c2}, model.ZoomTierFull, testBuildContext())

	assert.Equal(t, 1, res.Removed)
	assert.False(t, r.Store().Has("c1"))
	assert.Equal(t, 1, c1Entry.Marker.(*fakeMarker).destroyed)
	assert.Equal(t, 1, c1Entry.Circle.(*fakeCircle).destroyed)

	// 他の宝箱には一切触れない
	assert.Zero(t, c2Entry.Marker.(*fakeMarker).destroyed)
	assert.Zero(t, c2Entry.Circle.(*fakeCircle).destroyed)
	assert.Zero(t, s.contentWrites)
	assert.Zero(t, s.positionWrites)
	assert.Zero(t, s.markerCreates)
}

func TestReconciler_DuplicateSuppressionIsDeterministic(t *testing.T) {
	a := chest("a", 35.0, 135.0)
	b := chest("b", 35.0000001, 135.0000001)
	c := chest("c", 35.0, 135.0)

	orders := [][]model.TreasureChest{
		{a, b, c},
		{c, b, a},
		{b, a, c},
		{c, a, b},
	}
	for _, order := range orders {
		s := newFakeSurface()
		r := newChestReconciler(s, nil)
		res := r.Reconcile(order, model.ZoomTierFull, testBuildContext())

		assert.Equal(t, []string{"a"}, r.Store().IDs())
		assert.Equal(t, 2, res.Suppressed)
		assert.Len(t, s.liveMarkers(), 1)
	}
}

func TestReconciler_SuppressedEntityLosesExistingMarker(t *testing.T) {
	s := newFakeSurface()
	r := newChestReconciler(s, nil)

	r.Reconcile([]model.TreasureChest{chest("b", 35.0, 135.0)}, model.ZoomTierFull, testBuildContext())
	require.Equal(t, []string{"b"}, r.Store().IDs())

	// 辞書順で先の a が同じ地点に現れると b は描画されなくなる
	res := r.Reconcile([]model.TreasureChest{chest("b", 35.0, 135.0), chest("a", 35.0, 135.0)}, model.ZoomTierFull, testBuildContext())
	assert.Equal(t, []string{"a"}, r.Store().IDs())
	assert.Equal(t, 1, res.Suppressed)
	assert.Equal(t, 1, res.Removed)
	assert.Len(t, s.liveMarkers(), 1)
	assert.Len(t, s.liveCircles(), 1)
}

func TestReconciler_InvalidCoordinatesAreExcluded(t *testing.T) {
	s := newFakeSurface()
	r := NewReconciler(videoAdapter(), NewMarkerStore(model.ClassVideo), s, nil)

	missing := model.Video{ID: "missing", Category: model.VideoCategoryArt}
	res := r.Reconcile([]model.Video{
		missing,
		video("null-island", 0, 0),
		video("nan", math.NaN(), 135),
		video("out-of-range", 95, 135),
		video("ok", 35.0, 135.0),
		video("ok", 35.5, 135.5), // ID重複
	}, model.ZoomTierFull, testBuildContext())

	assert.Equal(t, 5, res.Invalid)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, []string{"ok"}, r.Store().IDs())
	_, found := r.PositionOf("missing")
	assert.False(t, found)
}

func TestReconciler_BuilderFailureFallsBackToDot(t *testing.T) {
	s := newFakeSurface()
	adapter := chestAdapter()
	adapter.Build = func(c model.TreasureChest, tier model.ZoomTier, bc BuildContext) (model.MarkerContent, error) {
		switch c.ID {
		case "error":
			return model.MarkerContent{}, errors.New("asset missing")
		case "panic":
			panic("boom")
		}
		return BuildTreasureChestContent(c, tier, bc)
	}
	r := NewReconciler(adapter, NewMarkerStore(model.ClassTreasureChest), s, nil)

	res := r.Reconcile([]model.TreasureChest{
		chest("error", 35.0, 135.0),
		chest("panic", 35.1, 135.1),
		chest("fine", 35.2, 135.2),
	}, model.ZoomTierFull, testBuildContext())

	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 2, res.Fallback)

	for _, id := range []string{"error", "panic"} {
		e, ok := r.Store().Get(id)
		require.True(t, ok)
		assert.Equal(t, model.ContentDot, e.Content.Kind, id)
	}
	e, _ := r.Store().Get("fine")
	assert.Equal(t, model.ContentIcon, e.Content.Kind)
}

func TestReconciler_UnknownCategoryFallsBackToDot(t *testing.T) {
	s := newFakeSurface()
	r := NewReconciler(videoAdapter(), NewMarkerStore(model.ClassVideo), s, nil)
	v := video("v1", 35.0, 135.0)
	v.Category = "karaoke"

	res := r.Reconcile([]model.Video{v}, model.ZoomTierFull, testBuildContext())
	assert.Equal(t, 1, res.Fallback)
	e, ok := r.Store().Get("v1")
	require.True(t, ok)
	assert.Equal(t, model.ContentDot, e.Content.Kind)
}

func TestReconciler_UpdatesInPlace(t *testing.T) {
	s := newFakeSurface()
	r := newChestReconciler(s, nil)
	r.Reconcile([]model.TreasureChest{chest("c1", 35.0, 135.0)}, model.ZoomTierMinimal, testBuildContext())
	entry, _ := r.Store().Get("c1")
	marker := entry.Marker.(*fakeMarker)
	circle := entry.Circle.(*fakeCircle)

	t.Run("ズーム段階の変更はコンテンツだけ書き換える", func(t *testing.T) {
		s.resetCounters()
		res := r.Rerun(model.ZoomTierFull, testBuildContext())
		assert.Equal(t, 1, res.Updated)
		assert.Equal(t, 1, s.contentWrites)
		assert.Zero(t, s.positionWrites)
		assert.Zero(t, s.markerCreates)
		assert.Zero(t, s.markerDestroys)
		assert.Equal(t, model.ContentIcon, marker.opts.Content.Kind)
	})

	t.Run("移動はマーカーと円の両方を動かす", func(t *testing.T) {
		s.resetCounters()
		moved := model.LatLng{Lat: 35.01, Lng: 135.01}
		r.Reconcile([]model.TreasureChest{chest("c1", moved.Lat, moved.Lng)}, model.ZoomTierFull, testBuildContext())
		assert.Equal(t, 1, s.positionWrites)
		assert.Equal(t, moved, marker.opts.Position)
		assert.Equal(t, moved, circle.opts.Center)
		assert.Zero(t, s.markerCreates)
		assert.Zero(t, s.circleCreates)
	})

	t.Run("取得済みになると半透明になる", func(t *testing.T) {
		collected := chest("c1", 35.01, 135.01)
		collected.IsCollected = true
		r.Reconcile([]model.TreasureChest{collected}, model.ZoomTierFull, testBuildContext())
		assert.Equal(t, model.OpacityFaded, marker.opts.Content.Opacity)
	})
}

func TestReconciler_QuestRadiusChangeResizesCircle(t *testing.T) {
	s := newFakeSurface()
	r := NewReconciler(questAdapter(), NewMarkerStore(model.ClassQuest), s, nil)
	q := model.Quest{ID: "q1", Title: "walk", Latitude: 35, Longitude: 135, QuestType: model.QuestTypeExploration, RadiusMeters: 100}

	r.Reconcile([]model.Quest{q}, model.ZoomTierFull, testBuildContext())
	entry, _ := r.Store().Get("q1")
	circle := entry.Circle.(*fakeCircle)
	assert.Equal(t, 100.0, circle.opts.RadiusMeters)

	q.RadiusMeters = 250
	res := r.Reconcile([]model.Quest{q}, model.ZoomTierFull, testBuildContext())
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 250.0, circle.opts.RadiusMeters)
	assert.Equal(t, 1, s.circleCreates)
}

func TestReconciler_CircleFailureDestroysMarker(t *testing.T) {
	s := newFakeSurface()
	s.failCircleCreate = true
	r := newChestReconciler(s, nil)

	res := r.Reconcile([]model.TreasureChest{chest("c1", 35.0, 135.0)}, model.ZoomTierFull, testBuildContext())
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, r.Store().Len())
	assert.Empty(t, s.liveMarkers())

	// 次のパスで再試行される
	s.failCircleCreate = false
	res = r.Reconcile([]model.TreasureChest{chest("c1", 35.0, 135.0)}, model.ZoomTierFull, testBuildContext())
	assert.Equal(t, 1, res.Created)
	assert.True(t, r.Store().Has("c1"))
}

func TestReconciler_LegacySurfaceGetsIconOnlyContent(t *testing.T) {
	s := newFakeSurface()
	s.rich = false
	r := NewReconciler(videoAdapter(), NewMarkerStore(model.ClassVideo), s, nil)
	v := video("v1", 35.0, 135.0)
	expires := testNow.Add(2 * time.Hour)
	v.ExpiresAt = &expires

	r.Reconcile([]model.Video{v}, model.ZoomTierFull, testBuildContext())
	e, _ := r.Store().Get("v1")
	assert.True(t, e.Content.Legacy)
	assert.Equal(t, model.ContentIcon, e.Content.Kind)
	assert.Empty(t, e.Content.Label)
}

func TestReconciler_ClickReportsCurrentPosition(t *testing.T) {
	s := newFakeSurface()
	var got []model.EntityRef
	var gotPos model.LatLng
	r := newChestReconciler(s, func(ref model.EntityRef, pos model.LatLng) {
		got = append(got, ref)
		gotPos = pos
	})

	r.Reconcile([]model.TreasureChest{chest("c1", 35.0, 135.0)}, model.ZoomTierFull, testBuildContext())
	marker := s.liveMarkers()[0]
	r.Reconcile([]model.TreasureChest{chest("c1", 35.5, 135.5)}, model.ZoomTierFull, testBuildContext())

	marker.click()
	require.Len(t, got, 1)
	assert.Equal(t, model.EntityRef{Class: model.ClassTreasureChest, ID: "c1"}, got[0])
	assert.Equal(t, model.LatLng{Lat: 35.5, Lng: 135.5}, gotPos)

	// 削除後のクリックは無視される
	r.Reconcile(nil, model.ZoomTierFull, testBuildContext())
	marker.click()
	assert.Len(t, got, 1)
}
