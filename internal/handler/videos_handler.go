package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
)

// maxBoundSpanDegrees 一度に検索できる範囲の上限
const maxBoundSpanDegrees = 1.0

// VideosHandler 地図上の動画一覧に関するHTTPハンドラー
type VideosHandler struct {
	videos repository.VideosRepository
}

// NewVideosHandler VideosHandlerの新しいインスタンスを作成。videos が nil なら 503 を返す
func NewVideosHandler(videos repository.VideosRepository) *VideosHandler {
	return &VideosHandler{videos: videos}
}

// RegisterRoutes ルーティングを登録
func (h *VideosHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/videos", h.GetVideosByBoundingBox)
}

// GetVideosByBoundingBox GET /api/videos?bbox=min_lng,min_lat,max_lng,max_lat
func (h *VideosHandler) GetVideosByBoundingBox(c *gin.Context) {
	if h.videos == nil {
		writeError(c, model.ErrSurfaceUnavailable)
		return
	}

	bbox := c.Query("bbox")
	if bbox == "" {
		writeError(c, &ValidationError{Field: "bbox", Message: "bbox は必須です (形式: min_lng,min_lat,max_lng,max_lat)"})
		return
	}
	bound, err := parseBoundingBox(bbox)
	if err != nil {
		writeError(c, err)
		return
	}

	videos, err := h.videos.GetVideosInBounds(c.Request.Context(), bound)
	if err != nil {
		writeError(c, err)
		return
	}
	if videos == nil {
		videos = []model.Video{}
	}
	c.JSON(http.StatusOK, gin.H{"videos": videos})
}

// parseBoundingBox "min_lng,min_lat,max_lng,max_lat" を orb.Bound に変換
func parseBoundingBox(bbox string) (orb.Bound, error) {
	coords := strings.Split(bbox, ",")
	if len(coords) != 4 {
		return orb.Bound{}, &ValidationError{Field: "bbox", Message: "座標を4つ指定してください: min_lng,min_lat,max_lng,max_lat"}
	}

	names := []string{"min_lng", "min_lat", "max_lng", "max_lat"}
	values := make([]float64, 4)
	for i, raw := range coords {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return orb.Bound{}, &ValidationError{Field: names[i], Message: "数値ではありません: " + raw}
		}
		values[i] = v
	}

	minLng, minLat, maxLng, maxLat := values[0], values[1], values[2], values[3]
	if minLat < -90 || maxLat > 90 || minLng < -180 || maxLng > 180 {
		return orb.Bound{}, &ValidationError{Field: "bbox", Message: "座標が範囲外です"}
	}
	if minLng > maxLng || minLat > maxLat {
		return orb.Bound{}, &ValidationError{Field: "bbox", Message: "min は max 以下である必要があります"}
	}
	if maxLng-minLng > maxBoundSpanDegrees || maxLat-minLat > maxBoundSpanDegrees {
		return orb.Bound{}, &ValidationError{Field: "bbox", Message: "検索範囲が広すぎます"}
	}
	return orb.Bound{Min: orb.Point{minLng, minLat}, Max: orb.Point{maxLng, maxLat}}, nil
}
