package repository

import (
	"context"

	"github.com/paulmach/orb"

	"GeoDrop-App/internal/domain/model"
)

// EntitiesRepository ゲームエンティティのアクティブな一覧を取得する
type EntitiesRepository interface {
	GetActiveQuests(ctx context.Context) ([]model.Quest, error)
	GetActiveTreasureChests(ctx context.Context) ([]model.TreasureChest, error)
	GetActiveMysteryBoxes(ctx context.Context) ([]model.MysteryBox, error)
	GetActiveDragons(ctx context.Context) ([]model.Dragon, error)
}

// VideosRepository 地図上の動画を取得する
type VideosRepository interface {
	GetNearbyVideos(ctx context.Context, center model.LatLng, radiusMeters int) ([]model.Video, error)
	GetVideosInBounds(ctx context.Context, bound orb.Bound) ([]model.Video, error)
}

// ProfileRepository ユーザープロフィールとフォロー中ユーザーの位置を取得する
type ProfileRepository interface {
	GetProfile(ctx context.Context, userID string) (*model.UserProfile, error)
	GetFollowedUsers(ctx context.Context, userID string) ([]model.FollowedUser, error)
}
