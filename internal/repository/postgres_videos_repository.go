package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/paulmach/orb"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
	"GeoDrop-App/internal/infrastructure/database"
)

// maxVideosPerQuery 1回の検索で返す動画の上限
const maxVideosPerQuery = 500

type PostgresVideosRepository struct {
	client   *database.PostgreSQLClient
	viewerID string // 視聴済み判定に使うユーザーID
}

func NewPostgresVideosRepository(client *database.PostgreSQLClient, viewerID string) repository.VideosRepository {
	return &PostgresVideosRepository{
		client:   client,
		viewerID: viewerID,
	}
}

// videoColumns 位置は geometry から緯度経度に分解する。位置なしの動画は NULL になる
const videoColumns = `
	v.id,
	ST_Y(v.location::geometry) AS latitude,
	ST_X(v.location::geometry) AS longitude,
	v.category,
	COALESCE(p.username, '') AS username,
	COALESCE(v.thumbnail_url, '') AS thumbnail_url,
	EXISTS (
		SELECT 1 FROM video_views vv WHERE vv.video_id = v.id AND vv.user_id::text = $1
	) AS watched_by_user,
	v.expires_at,
	v.created_at`

// VideoResult 検索結果の1行
type VideoResult struct {
	ID            string
	Latitude      sql.NullFloat64
	Longitude     sql.NullFloat64
	Category      string
	Username      string
	ThumbnailURL  string
	WatchedByUser bool
	ExpiresAt     sql.NullTime
	CreatedAt     time.Time
}

// ToVideo VideoResultをmodel.Videoに変換
func (vr *VideoResult) ToVideo() (model.Video, error) {
	category, err := model.ParseVideoCategory(vr.Category)
	if err != nil {
		return model.Video{}, fmt.Errorf("動画 %s: %w", vr.ID, err)
	}

	v := model.Video{
		ID:            vr.ID,
		Category:      category,
		Username:      vr.Username,
		ThumbnailURL:  vr.ThumbnailURL,
		WatchedByUser: vr.WatchedByUser,
		CreatedAt:     vr.CreatedAt,
	}
	if vr.Latitude.Valid && vr.Longitude.Valid {
		lat, lng := vr.Latitude.Float64, vr.Longitude.Float64
		v.Latitude = &lat
		v.Longitude = &lng
	}
	if vr.ExpiresAt.Valid {
		t := vr.ExpiresAt.Time
		v.ExpiresAt = &t
	}
	return v, nil
}

func (r *PostgresVideosRepository) GetNearbyVideos(ctx context.Context, center model.LatLng, radiusMeters int) ([]model.Video, error) {
	query := `SELECT` + videoColumns + `
		FROM videos v
		LEFT JOIN profiles p ON p.id = v.user_id
		WHERE ST_DWithin(v.location, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4)
		  AND (v.expires_at IS NULL OR v.expires_at > NOW())
		ORDER BY v.created_at DESC
		LIMIT $5`

	rows, err := r.client.DB.QueryContext(ctx, query, r.viewerID, center.Lng, center.Lat, radiusMeters, maxVideosPerQuery)
	if err != nil {
		return nil, fmt.Errorf("周辺動画の検索失敗: %w", err)
	}
	defer rows.Close()
	return r.scanVideos(rows)
}

func (r *PostgresVideosRepository) GetVideosInBounds(ctx context.Context, bound orb.Bound) ([]model.Video, error) {
	if bound.Min.Lon() >= bound.Max.Lon() || bound.Min.Lat() >= bound.Max.Lat() {
		return nil, fmt.Errorf("無効な境界ボックス: min値がmax値以上です")
	}

	query := `SELECT` + videoColumns + `
		FROM videos v
		LEFT JOIN profiles p ON p.id = v.user_id
		WHERE ST_Intersects(v.location::geometry, ST_GeomFromText($2, 4326))
		  AND (v.expires_at IS NULL OR v.expires_at > NOW())
		ORDER BY v.created_at DESC
		LIMIT $3`

	rows, err := r.client.DB.QueryContext(ctx, query, r.viewerID, BoundToWKT(bound), maxVideosPerQuery)
	if err != nil {
		return nil, fmt.Errorf("境界ボックス内の動画検索失敗: %w", err)
	}
	defer rows.Close()
	return r.scanVideos(rows)
}

func (r *PostgresVideosRepository) scanVideos(rows *sql.Rows) ([]model.Video, error) {
	var videos []model.Video
	for rows.Next() {
		var vr VideoResult
		if err := rows.Scan(&vr.ID, &vr.Latitude, &vr.Longitude, &vr.Category, &vr.Username,
			&vr.ThumbnailURL, &vr.WatchedByUser, &vr.ExpiresAt, &vr.CreatedAt); err != nil {
			return nil, fmt.Errorf("動画データスキャンエラー: %w", err)
		}
		v, err := vr.ToVideo()
		if err != nil {
			log.Printf("⚠️ 動画を除外しました: %v", err)
			continue
		}
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("動画データ読み込みエラー: %w", err)
	}
	return videos, nil
}
