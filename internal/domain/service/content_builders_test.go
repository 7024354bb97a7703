package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GeoDrop-App/internal/domain/model"
)

func TestBuildVideoContent(t *testing.T) {
	bc := testBuildContext()

	tests := []struct {
		name        string
		mutate      func(v *model.Video)
		tier        model.ZoomTier
		highlighted string
		wantKind    model.ContentKind
		wantWidth   int
		wantOpacity float64
		wantPulse   bool
	}{
		{name: "最小段階はドット", tier: model.ZoomTierMinimal, wantKind: model.ContentDot, wantWidth: 12, wantOpacity: 1},
		{name: "中段階は32px基準", tier: model.ZoomTierMedium, wantKind: model.ContentIcon, wantWidth: 26, wantOpacity: 1},
		{name: "視聴済みは半透明", tier: model.ZoomTierFull, mutate: func(v *model.Video) { v.WatchedByUser = true }, wantKind: model.ContentIcon, wantWidth: 38, wantOpacity: 0.3},
		{name: "強調表示は最小段階でも一段大きい", tier: model.ZoomTierMinimal, highlighted: "v1", wantKind: model.ContentIcon, wantWidth: 26, wantOpacity: 1, wantPulse: true},
		{name: "強調表示は48pxを超えない", tier: model.ZoomTierFull, highlighted: "v1", wantKind: model.ContentIcon, wantWidth: 38, wantOpacity: 1, wantPulse: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := video("v1", 35, 135)
			if tt.mutate != nil {
				tt.mutate(&v)
			}
			ctx := bc
			ctx.HighlightedVideoID = tt.highlighted

			c, err := BuildVideoContent(v, tt.tier, ctx)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, c.Kind)
			assert.Equal(t, tt.wantWidth, c.Width)
			assert.Equal(t, tt.wantOpacity, c.Opacity)
			assert.Equal(t, tt.wantPulse, c.Pulse)
			assert.LessOrEqual(t, c.Height, model.MaxIconSize)
		})
	}
}

func TestBuildVideoContent_Countdown(t *testing.T) {
	v := video("v1", 35, 135)
	expires := testNow.Add(29 * 24 * time.Hour)
	v.ExpiresAt = &expires

	c, err := BuildVideoContent(v, model.ZoomTierFull, testBuildContext())
	require.NoError(t, err)
	assert.Equal(t, "4 weeks", c.Label)

	past := testNow.Add(-time.Second)
	v.ExpiresAt = &past
	c, _ = BuildVideoContent(v, model.ZoomTierFull, testBuildContext())
	assert.Equal(t, "Expired", c.Label)
}

func TestBuildVideoContent_UnknownCategory(t *testing.T) {
	v := video("v1", 35, 135)
	v.Category = "unknown"
	_, err := BuildVideoContent(v, model.ZoomTierFull, testBuildContext())
	assert.True(t, errors.Is(err, model.ErrUnknownCategory))
}

func TestBuildQuestContent_Labels(t *testing.T) {
	future := testNow.Add(3 * 24 * time.Hour)
	started := testNow.Add(-time.Hour)
	ends := testNow.Add(2 * time.Hour)
	ended := testNow.Add(-time.Minute)

	tests := []struct {
		name  string
		start *time.Time
		end   *time.Time
		want  string
	}{
		{name: "開始前は開始までの時間", start: &future, end: nil, want: "3 days"},
		{name: "開始後は終了までの時間", start: &started, end: &ends, want: "2 hours"},
		{name: "終了済み", start: &started, end: &ended, want: "Ended"},
		{name: "終了日なしで開始済みは Live", start: &started, end: nil, want: "Live"},
		{name: "日時なし", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := model.Quest{ID: "q1", Latitude: 35, Longitude: 135, QuestType: model.QuestTypeEvent, EventStartDate: tt.start, EndDate: tt.end}
			c, err := BuildQuestContent(q, model.ZoomTierFull, testBuildContext())
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Label)
		})
	}
}

func TestQuestCircle_DefaultRadius(t *testing.T) {
	q := model.Quest{QuestType: model.QuestTypeSocial}
	assert.Equal(t, DefaultQuestRadiusMeters, QuestCircle(q).RadiusMeters)
	q.RadiusMeters = 120
	assert.Equal(t, 120.0, QuestCircle(q).RadiusMeters)
}

func TestBuildGameEntityContent_Faded(t *testing.T) {
	bc := testBuildContext()

	chestContent, err := BuildTreasureChestContent(model.TreasureChest{ID: "c", Size: model.ChestSizeLarge, IsCollected: true}, model.ZoomTierFull, bc)
	require.NoError(t, err)
	assert.Equal(t, model.OpacityFaded, chestContent.Opacity)

	boxContent, err := BuildMysteryBoxContent(model.MysteryBox{ID: "b", Tier: model.BoxTierLegendary}, model.ZoomTierFull, bc)
	require.NoError(t, err)
	assert.Equal(t, model.OpacityNormal, boxContent.Opacity)

	dragonContent, err := BuildDragonContent(model.Dragon{ID: "d", Size: model.DragonSizeLarge, IsDefeated: true}, model.ZoomTierFull, bc)
	require.NoError(t, err)
	assert.Equal(t, model.OpacityFaded, dragonContent.Opacity)
	// 横長のドラゴンも48pxに収まる
	assert.Equal(t, 48, dragonContent.Width)
	assert.Equal(t, 32, dragonContent.Height)
}

func TestBuildUserSelfContent(t *testing.T) {
	profile := model.UserProfile{UserID: "u1", DisplayName: "Aoi", AvatarURL: "https://example.com/aoi.png"}
	bc := testBuildContext()

	c := BuildUserSelfContent(SelfState{Profile: profile}, model.ZoomTierFull, bc)
	assert.Equal(t, model.ContentAvatar, c.Kind)

	c = BuildUserSelfContent(SelfState{Profile: profile, Nearby: true}, model.ZoomTierFull, bc)
	assert.Equal(t, model.ContentPlay, c.Kind)

	c = BuildUserSelfContent(SelfState{Profile: profile, Nearby: true, LanternActive: true}, model.ZoomTierFull, bc)
	assert.Equal(t, model.ContentDot, c.Kind)

	c = BuildUserSelfContent(SelfState{Profile: model.UserProfile{UserID: "u1", DisplayName: "Aoi"}}, model.ZoomTierFull, bc)
	assert.Equal(t, model.ContentInitials, c.Kind)
	assert.Equal(t, "A", c.Initials)
}

func TestActivationCircle_Color(t *testing.T) {
	center := model.LatLng{Lat: 35, Lng: 135}
	assert.Equal(t, activeCircleColor, ActivationCircle(center, true).StrokeColor)
	assert.Equal(t, neutralCircleColor, ActivationCircle(center, false).StrokeColor)
	assert.Equal(t, 30.48, ActivationCircle(center, false).RadiusMeters)
}
