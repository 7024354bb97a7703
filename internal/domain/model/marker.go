package model

// ContentKind マーカーの表示形式
type ContentKind string

const (
	ContentDot      ContentKind = "dot"      // 小さな色付きドット
	ContentIcon     ContentKind = "icon"     // アイコン画像
	ContentAvatar   ContentKind = "avatar"   // ユーザー画像
	ContentInitials ContentKind = "initials" // 画像読み込み失敗時のイニシャルバッジ
	ContentPlay     ContentKind = "play"     // 近くの動画を再生するボタン
)

const (
	OpacityNormal = 1.0
	OpacityFaded  = 0.3 // 視聴済み・取得済み
)

// MarkerContent マーカーの描画内容。比較可能な値型なので == で差分判定できる
type MarkerContent struct {
	Kind     ContentKind `json:"kind"`
	Class    EntityClass `json:"class"`
	Icon     string      `json:"icon,omitempty"`
	Color    string      `json:"color,omitempty"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	Opacity  float64     `json:"opacity"`
	Label    string      `json:"label,omitempty"` // カウントダウンなど
	ImageURL string      `json:"image_url,omitempty"`
	Initials string      `json:"initials,omitempty"`
	Pulse    bool        `json:"pulse,omitempty"`
	Legacy   bool        `json:"legacy,omitempty"` // リッチコンテンツ非対応の地図向け
}

// Dot 最小表示のドットを作成
func Dot(class EntityClass, color string) MarkerContent {
	if color == "" {
		color = "#6B7280"
	}
	return MarkerContent{
		Kind:    ContentDot,
		Class:   class,
		Color:   color,
		Width:   MinimalIconSize,
		Height:  MinimalIconSize,
		Opacity: OpacityNormal,
	}
}

// AsLegacy リッチコンテンツ非対応の地図向けにアイコンのみの表現へ落とす
func (c MarkerContent) AsLegacy() MarkerContent {
	legacy := MarkerContent{
		Kind:    ContentIcon,
		Class:   c.Class,
		Icon:    c.Icon,
		Color:   c.Color,
		Width:   c.Width,
		Height:  c.Height,
		Opacity: c.Opacity,
		Legacy:  true,
	}
	if legacy.Icon == "" {
		legacy.Icon = string(c.Class)
	}
	return legacy
}

// MarkerOptions マーカー作成時のパラメータ
type MarkerOptions struct {
	Position LatLng        `json:"position"`
	Content  MarkerContent `json:"content"`
	ZIndex   int           `json:"z_index"`
	Title    string        `json:"title,omitempty"`
}

// CircleOptions 円オーバーレイ作成時のパラメータ
type CircleOptions struct {
	Center       LatLng  `json:"center"`
	RadiusMeters float64 `json:"radius_meters"`
	StrokeColor  string  `json:"stroke_color"`
	FillColor    string  `json:"fill_color"`
	FillOpacity  float64 `json:"fill_opacity"`
}

// SurfaceCapabilities 地図ウィジェットが提供する機能
type SurfaceCapabilities struct {
	RichContent bool `json:"rich_content"` // カスタムHTMLマーカーに対応しているか
}

// MarkerSnapshot ストアの状態を外部に公開するための表現
type MarkerSnapshot struct {
	Class     EntityClass   `json:"class"`
	ID        string        `json:"id"`
	Position  LatLng        `json:"position"`
	Content   MarkerContent `json:"content"`
	HasCircle bool          `json:"has_circle"`
	Radius    float64       `json:"radius_meters,omitempty"`
}

// Z-index（重なり順）
const (
	ZIndexFollowedUser  = 10
	ZIndexVideo         = 20
	ZIndexQuest         = 30
	ZIndexMysteryBox    = 40
	ZIndexTreasureChest = 40
	ZIndexDragon        = 50
	ZIndexUserSelf      = 90
	ZIndexLantern       = 100
)
