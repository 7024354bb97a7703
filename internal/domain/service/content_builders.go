package service

import (
	"fmt"
	"time"

	"GeoDrop-App/internal/domain/helper"
	"GeoDrop-App/internal/domain/model"
)

const (
	// DefaultQuestRadiusMeters 半径が未設定のクエストに使う値
	DefaultQuestRadiusMeters = 50.0
	// LanternRadiusMeters ランタンの照射範囲（100ft）
	LanternRadiusMeters = helper.ProximityRadiusMeters

	gpsDotColor        = "#2563EB"
	activeCircleColor  = "#22C55E"
	neutralCircleColor = "#9CA3AF"
	lanternColor       = "#FBBF24"
)

// BuildContext コンテンツ生成に必要な補助情報
type BuildContext struct {
	Now                time.Time
	HighlightedVideoID string
	FailedImages       map[string]bool // 読み込みに失敗した画像URL
}

func (bc BuildContext) imageFailed(url string) bool {
	return url == "" || bc.FailedImages[url]
}

func opacity(faded bool) float64 {
	if faded {
		return model.OpacityFaded
	}
	return model.OpacityNormal
}

// iconContent カテゴリスタイルとズーム段階からアイコン表示を作る
func iconContent(class model.EntityClass, style model.CategoryStyle, base int, faded bool) model.MarkerContent {
	w, h := helper.ClampDimensions(base, style.Aspect)
	return model.MarkerContent{
		Kind:    model.ContentIcon,
		Class:   class,
		Icon:    style.Icon,
		Color:   style.Color,
		Width:   w,
		Height:  h,
		Opacity: opacity(faded),
	}
}

func minimalDot(class model.EntityClass, color string, faded bool) model.MarkerContent {
	c := model.Dot(class, color)
	c.Opacity = opacity(faded)
	return c
}

// BuildVideoContent 動画（ジェム）マーカー
func BuildVideoContent(v model.Video, tier model.ZoomTier, bc BuildContext) (model.MarkerContent, error) {
	style, ok := v.Category.Style()
	if !ok {
		return model.MarkerContent{}, fmt.Errorf("動画 %s (%q): %w", v.ID, v.Category, model.ErrUnknownCategory)
	}

	highlighted := bc.HighlightedVideoID != "" && bc.HighlightedVideoID == v.ID
	if tier == model.ZoomTierMinimal && !highlighted {
		return minimalDot(model.ClassVideo, style.Color, v.WatchedByUser), nil
	}

	base := tier.IconSize()
	if highlighted {
		base = tier.Bump()
	}
	c := iconContent(model.ClassVideo, style, base, v.WatchedByUser)
	c.Pulse = highlighted
	if v.ExpiresAt != nil {
		c.Label = helper.FormatCountdown(*v.ExpiresAt, bc.Now, helper.ExpiryCountdown)
	}
	return c, nil
}

// questLabel 開始前は開始までの時間、開始後は終了までの時間
func questLabel(q model.Quest, now time.Time) string {
	switch {
	case q.EventStartDate != nil && now.Before(*q.EventStartDate):
		return helper.FormatCountdown(*q.EventStartDate, now, helper.StartCountdown)
	case q.EndDate != nil:
		return helper.FormatCountdown(*q.EndDate, now, helper.EndCountdown)
	case q.EventStartDate != nil:
		return helper.StartCountdown.Terminal
	default:
		return ""
	}
}

// BuildQuestContent クエストマーカー
func BuildQuestContent(q model.Quest, tier model.ZoomTier, bc BuildContext) (model.MarkerContent, error) {
	style, ok := q.QuestType.Style()
	if !ok {
		return model.MarkerContent{}, fmt.Errorf("クエスト %s (%q): %w", q.ID, q.QuestType, model.ErrUnknownCategory)
	}
	if tier == model.ZoomTierMinimal {
		return minimalDot(model.ClassQuest, style.Color, false), nil
	}
	c := iconContent(model.ClassQuest, style, tier.IconSize(), false)
	c.Label = questLabel(q, bc.Now)
	return c, nil
}

// QuestCircle クエストの範囲円
func QuestCircle(q model.Quest) model.CircleOptions {
	radius := q.RadiusMeters
	if radius <= 0 {
		radius = DefaultQuestRadiusMeters
	}
	style, _ := q.QuestType.Style()
	return model.CircleOptions{
		RadiusMeters: radius,
		StrokeColor:  style.Color,
		FillColor:    style.Color,
		FillOpacity:  0.12,
	}
}

// BuildTreasureChestContent 宝箱マーカー
func BuildTreasureChestContent(c model.TreasureChest, tier model.ZoomTier, bc BuildContext) (model.MarkerContent, error) {
	style, ok := c.Size.Style()
	if !ok {
		return model.MarkerContent{}, fmt.Errorf("宝箱 %s (%q): %w", c.ID, c.Size, model.ErrUnknownCategory)
	}
	if tier == model.ZoomTierMinimal {
		return minimalDot(model.ClassTreasureChest, style.Color, c.IsCollected), nil
	}
	content := iconContent(model.ClassTreasureChest, style, tier.IconSize(), c.IsCollected)
	if c.ExpiresAt != nil {
		content.Label = helper.FormatCountdown(*c.ExpiresAt, bc.Now, helper.ExpiryCountdown)
	}
	return content, nil
}

// BuildMysteryBoxContent ミステリーボックスマーカー
func BuildMysteryBoxContent(b model.MysteryBox, tier model.ZoomTier, bc BuildContext) (model.MarkerContent, error) {
	style, ok := b.Tier.Style()
	if !ok {
		return model.MarkerContent{}, fmt.Errorf("ミステリーボックス %s (%q): %w", b.ID, b.Tier, model.ErrUnknownCategory)
	}
	if tier == model.ZoomTierMinimal {
		return minimalDot(model.ClassMysteryBox, style.Color, b.IsCollected), nil
	}
	content := iconContent(model.ClassMysteryBox, style, tier.IconSize(), b.IsCollected)
	if b.ExpiresAt != nil {
		content.Label = helper.FormatCountdown(*b.ExpiresAt, bc.Now, helper.ExpiryCountdown)
	}
	return content, nil
}

// BuildDragonContent ドラゴンマーカー（横長アイコン）
func BuildDragonContent(d model.Dragon, tier model.ZoomTier, bc BuildContext) (model.MarkerContent, error) {
	style, ok := d.Size.Style()
	if !ok {
		return model.MarkerContent{}, fmt.Errorf("ドラゴン %s (%q): %w", d.ID, d.Size, model.ErrUnknownCategory)
	}
	if tier == model.ZoomTierMinimal {
		return minimalDot(model.ClassDragon, style.Color, d.IsDefeated), nil
	}
	content := iconContent(model.ClassDragon, style, tier.IconSize(), d.IsDefeated)
	if d.ExpiresAt != nil {
		content.Label = helper.FormatCountdown(*d.ExpiresAt, bc.Now, helper.ExpiryCountdown)
	}
	return content, nil
}

// ProximityCircle 宝箱・ミステリーボックス・ドラゴンの近接円
func ProximityCircle(color string) model.CircleOptions {
	return model.CircleOptions{
		RadiusMeters: helper.ProximityRadiusMeters,
		StrokeColor:  color,
		FillColor:    color,
		FillOpacity:  0.08,
	}
}

// avatarContent 画像があればアバター、なければイニシャルバッジ
func avatarContent(class model.EntityClass, userID, name, imageURL string, size int, bc BuildContext) model.MarkerContent {
	if bc.imageFailed(imageURL) {
		return model.MarkerContent{
			Kind:     model.ContentInitials,
			Class:    class,
			Color:    helper.AvatarColor(userID),
			Width:    size,
			Height:   size,
			Opacity:  model.OpacityNormal,
			Initials: helper.Initials(name),
		}
	}
	return model.MarkerContent{
		Kind:     model.ContentAvatar,
		Class:    class,
		Color:    helper.AvatarColor(userID),
		Width:    size,
		Height:   size,
		Opacity:  model.OpacityNormal,
		ImageURL: imageURL,
		Initials: helper.Initials(name),
	}
}

// BuildFollowedUserContent フォロー中ユーザーマーカー
func BuildFollowedUserContent(u model.FollowedUser, tier model.ZoomTier, bc BuildContext) (model.MarkerContent, error) {
	if tier == model.ZoomTierMinimal {
		return model.Dot(model.ClassFollowedUser, helper.AvatarColor(u.UserID)), nil
	}
	return avatarContent(model.ClassFollowedUser, u.UserID, u.DisplayName, u.AvatarURL, tier.IconSize(), bc), nil
}

// BuildLanternContent ランタン。画面中央に固定されるので最小表示にはしない
func BuildLanternContent(tier model.ZoomTier) model.MarkerContent {
	size := tier.IconSize()
	if size < model.MediumIconSize {
		size = model.MediumIconSize
	}
	w, h := helper.ClampDimensions(size, 0.75)
	return model.MarkerContent{
		Kind:    model.ContentIcon,
		Class:   model.ClassLantern,
		Icon:    "lantern",
		Color:   lanternColor,
		Width:   w,
		Height:  h,
		Opacity: model.OpacityNormal,
		Pulse:   true,
	}
}

// LanternCircle ランタンの照射範囲
func LanternCircle(center model.LatLng) model.CircleOptions {
	return model.CircleOptions{
		Center:       center,
		RadiusMeters: LanternRadiusMeters,
		StrokeColor:  lanternColor,
		FillColor:    lanternColor,
		FillOpacity:  0.2,
	}
}

// SelfState 自分のマーカーの表示に使う状態
type SelfState struct {
	Profile       model.UserProfile
	Nearby        bool
	LanternActive bool
}

// BuildUserSelfContent 自分のマーカー
func BuildUserSelfContent(s SelfState, tier model.ZoomTier, bc BuildContext) model.MarkerContent {
	if s.LanternActive {
		return model.Dot(model.ClassUserSelf, gpsDotColor)
	}

	size := tier.IconSize()
	if size < model.MediumIconSize {
		size = model.MediumIconSize
	}
	if s.Nearby {
		return model.MarkerContent{
			Kind:    model.ContentPlay,
			Class:   model.ClassUserSelf,
			Icon:    "play_nearby",
			Color:   activeCircleColor,
			Width:   size,
			Height:  size,
			Opacity: model.OpacityNormal,
			Pulse:   true,
		}
	}
	return avatarContent(model.ClassUserSelf, s.Profile.UserID, s.Profile.DisplayName, s.Profile.AvatarURL, size, bc)
}

// ActivationCircle 自分の周囲の起動範囲。近くにエンティティがあれば色付き
func ActivationCircle(center model.LatLng, nearby bool) model.CircleOptions {
	color := neutralCircleColor
	if nearby {
		color = activeCircleColor
	}
	return model.CircleOptions{
		Center:       center,
		RadiusMeters: helper.ProximityRadiusMeters,
		StrokeColor:  color,
		FillColor:    color,
		FillOpacity:  0.15,
	}
}
