package model

import (
	"fmt"
	"time"
)

// EntityClass 地図に配置するエンティティの種別
type EntityClass string

const (
	ClassVideo         EntityClass = "video"
	ClassQuest         EntityClass = "quest"
	ClassTreasureChest EntityClass = "treasure_chest"
	ClassMysteryBox    EntityClass = "mystery_box"
	ClassDragon        EntityClass = "dragon"
	ClassFollowedUser  EntityClass = "followed_user"
	ClassLantern       EntityClass = "lantern"
	ClassUserSelf      EntityClass = "user_self"
)

// ReconciledClasses サーバー由来のコレクションを持つ種別（リコンサイル対象）
var ReconciledClasses = []EntityClass{
	ClassVideo,
	ClassQuest,
	ClassTreasureChest,
	ClassMysteryBox,
	ClassDragon,
	ClassFollowedUser,
}

// ParseEntityClass 文字列からエンティティ種別を取得する
func ParseEntityClass(s string) (EntityClass, error) {
	for _, c := range ReconciledClasses {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownEntityClass)
}

// EntityRef 種別とIDの組でエンティティを識別する
type EntityRef struct {
	Class EntityClass `json:"class"`
	ID    string      `json:"id"`
}

// IsZero 未設定かどうか
func (r EntityRef) IsZero() bool {
	return r.Class == "" && r.ID == ""
}

// Video 地図上にドロップされた動画（ジェムとして表示）
type Video struct {
	ID            string        `json:"id"`
	Latitude      *float64      `json:"latitude"`  // 位置なしの動画は配置しない
	Longitude     *float64      `json:"longitude"` // 同上
	Category      VideoCategory `json:"category"`
	Username      string        `json:"username"`
	ThumbnailURL  string        `json:"thumbnail_url"`
	WatchedByUser bool          `json:"watched_by_user"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Position 動画の位置。座標が欠けている場合は false
func (v Video) Position() (LatLng, bool) {
	if v.Latitude == nil || v.Longitude == nil {
		return LatLng{}, false
	}
	return LatLng{Lat: *v.Latitude, Lng: *v.Longitude}, true
}

// Quest 期間限定のクエスト
type Quest struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	QuestType      QuestType  `json:"quest_type"`
	RadiusMeters   float64    `json:"radius_meters"`
	RewardPoints   int        `json:"reward_points"`
	Difficulty     string     `json:"difficulty"`
	EventStartDate *time.Time `json:"event_start_date,omitempty"`
	EndDate        *time.Time `json:"end_date,omitempty"`
}

// Position クエストの中心位置
func (q Quest) Position() (LatLng, bool) {
	return LatLng{Lat: q.Latitude, Lng: q.Longitude}, true
}

// TreasureChest 宝箱
type TreasureChest struct {
	ID           string     `json:"id"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Size         ChestSize  `json:"size"`
	RewardPoints int        `json:"reward_points"`
	IsCollected  bool       `json:"is_collected"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Position 宝箱の位置
func (c TreasureChest) Position() (LatLng, bool) {
	return LatLng{Lat: c.Latitude, Lng: c.Longitude}, true
}

// MysteryBox ミステリーボックス
type MysteryBox struct {
	ID          string     `json:"id"`
	Latitude    float64    `json:"latitude"`
	Longitude   float64    `json:"longitude"`
	Tier        BoxTier    `json:"tier"`
	IsCollected bool       `json:"is_collected"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// Position ミステリーボックスの位置
func (b MysteryBox) Position() (LatLng, bool) {
	return LatLng{Lat: b.Latitude, Lng: b.Longitude}, true
}

// Dragon 討伐対象のドラゴン
type Dragon struct {
	ID           string     `json:"id"`
	Latitude     float64    `json:"latitude"`
	Longitude    float64    `json:"longitude"`
	Size         DragonSize `json:"size"`
	Health       int        `json:"health"`
	RewardPoints int        `json:"reward_points"`
	IsDefeated   bool       `json:"is_defeated"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// Position ドラゴンの位置
func (d Dragon) Position() (LatLng, bool) {
	return LatLng{Lat: d.Latitude, Lng: d.Longitude}, true
}

// FollowedUser フォロー中ユーザーの現在地
type FollowedUser struct {
	UserID      string    `json:"user_id" firestore:"userId"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	AvatarURL   string    `json:"avatar_url" firestore:"avatarUrl"`
	Latitude    float64   `json:"latitude" firestore:"latitude"`
	Longitude   float64   `json:"longitude" firestore:"longitude"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

// Position フォロー中ユーザーの位置
func (u FollowedUser) Position() (LatLng, bool) {
	return LatLng{Lat: u.Latitude, Lng: u.Longitude}, true
}

// UserProfile ログインユーザーのプロフィール
type UserProfile struct {
	UserID       string `json:"user_id" firestore:"userId"`
	DisplayName  string `json:"display_name" firestore:"displayName"`
	AvatarURL    string `json:"avatar_url" firestore:"avatarUrl"`
	LanternCount int    `json:"lantern_count" firestore:"lanternCount"`
}
