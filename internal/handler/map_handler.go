package handler

import (
	"errors"
	"log"
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/service"
	"GeoDrop-App/internal/usecase"
)

// SurfaceServer ブラウザの地図ウィジェットとの WebSocket 接続を受け付ける
type SurfaceServer interface {
	Serve(w http.ResponseWriter, r *http.Request) error
	Connected() bool
}

// MapHandler 地図セッションのHTTPハンドラー
type MapHandler struct {
	session usecase.MapSessionUseCase
	surface SurfaceServer
}

// NewMapHandler MapHandlerの新しいインスタンスを作成。surface は nil でもよい
func NewMapHandler(session usecase.MapSessionUseCase, surface SurfaceServer) *MapHandler {
	return &MapHandler{session: session, surface: surface}
}

// RegisterRoutes ルーティングを登録
func (h *MapHandler) RegisterRoutes(r gin.IRouter) {
	r.GET("/api/health", h.Health)
	r.GET("/api/map/options", h.GetMapOptions)
	r.GET("/api/map/markers", h.GetMarkers)
	r.POST("/api/map/recenter", h.Recenter)
	r.POST("/api/location", h.PostLocation)
	r.POST("/api/target", h.PostTarget)
	r.DELETE("/api/target", h.DeleteTarget)
	r.POST("/api/lantern/activate", h.ActivateLantern)
	r.POST("/api/lantern/deactivate", h.DeactivateLantern)
	r.PUT("/api/highlight", h.PutHighlight)
	r.POST("/api/entities/:class/:id/collected", h.PostCollected)
	r.POST("/api/refresh/:resource", h.PostRefresh)
	r.GET("/ws/map", h.ServeWidget)
}

type targetRequest struct {
	Class string `json:"class"`
	ID    string `json:"id"`
}

type highlightRequest struct {
	VideoID string `json:"video_id"`
}

type markersResponse struct {
	service.EngineSnapshot
	Results map[model.EntityClass]service.ReconcileResult `json:"results"`
}

// Health GET /api/health
func (h *MapHandler) Health(c *gin.Context) {
	mapStatus := "available"
	if !h.session.Available() {
		mapStatus = "unavailable"
	}
	connected := h.surface != nil && h.surface.Connected()
	c.JSON(http.StatusOK, gin.H{
		"status":           "healthy",
		"service":          "GeoDrop-App",
		"map":              mapStatus,
		"widget_connected": connected,
		"resources":        h.session.Resources(),
	})
}

// GetMapOptions GET /api/map/options - 地図の初期化設定
func (h *MapHandler) GetMapOptions(c *gin.Context) {
	c.JSON(http.StatusOK, h.session.MapOptions())
}

// GetMarkers GET /api/map/markers - 全マーカーの状態
func (h *MapHandler) GetMarkers(c *gin.Context) {
	var resp markersResponse
	err := h.session.Do(c.Request.Context(), func(e *service.MapEngine) error {
		resp.EngineSnapshot = e.Snapshot()
		resp.Results = e.Results()
		return nil
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Recenter POST /api/map/recenter - 現在地への追従を再開
func (h *MapHandler) Recenter(c *gin.Context) {
	h.run(c, func(e *service.MapEngine) error {
		e.Recenter()
		return nil
	})
}

// PostLocation POST /api/location - 現在地の更新
func (h *MapHandler) PostLocation(c *gin.Context) {
	var req model.Location
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return
	}
	if err := validateLocation(&req); err != nil {
		writeError(c, err)
		return
	}
	if err := h.session.UpdateLocation(c.Request.Context(), req.ToLatLng()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PostTarget POST /api/target - 次のクリックで優先するエンティティ
func (h *MapHandler) PostTarget(c *gin.Context) {
	var req targetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return
	}
	ref, err := validateEntityRef(req.Class, req.ID)
	if err != nil {
		writeError(c, err)
		return
	}
	h.run(c, func(e *service.MapEngine) error {
		return e.SetTargetBias(ref)
	})
}

// DeleteTarget DELETE /api/target
func (h *MapHandler) DeleteTarget(c *gin.Context) {
	h.run(c, func(e *service.MapEngine) error {
		e.ClearTargetBias()
		return nil
	})
}

// ActivateLantern POST /api/lantern/activate
func (h *MapHandler) ActivateLantern(c *gin.Context) {
	h.run(c, func(e *service.MapEngine) error {
		return e.ActivateLantern()
	})
}

// DeactivateLantern POST /api/lantern/deactivate
func (h *MapHandler) DeactivateLantern(c *gin.Context) {
	h.run(c, func(e *service.MapEngine) error {
		e.DeactivateLantern()
		return nil
	})
}

// PutHighlight PUT /api/highlight - 強調表示する動画（空で解除）
func (h *MapHandler) PutHighlight(c *gin.Context) {
	var req highlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "リクエストの形式が正しくありません",
			"details": err.Error(),
		})
		return
	}
	h.run(c, func(e *service.MapEngine) error {
		e.SetHighlightedVideo(req.VideoID)
		return nil
	})
}

// PostCollected POST /api/entities/:class/:id/collected - 取得・討伐の結果を反映
func (h *MapHandler) PostCollected(c *gin.Context) {
	ref, err := validateEntityRef(c.Param("class"), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	found, err := h.session.MarkCollected(c.Request.Context(), ref)
	if err != nil {
		writeError(c, err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "エンティティが見つかりません",
			"details": string(ref.Class) + "/" + ref.ID,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PostRefresh POST /api/refresh/:resource - 即時取得
func (h *MapHandler) PostRefresh(c *gin.Context) {
	name := c.Param("resource")
	if !slices.Contains(h.session.Resources(), name) {
		if !h.session.Available() {
			writeError(c, model.ErrSurfaceUnavailable)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "未登録のリソースです",
			"details": name,
		})
		return
	}
	if err := h.session.Refresh(name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "resource": name})
}

// ServeWidget GET /ws/map - 地図ウィジェットの WebSocket 接続
func (h *MapHandler) ServeWidget(c *gin.Context) {
	if h.surface == nil {
		writeError(c, model.ErrSurfaceUnavailable)
		return
	}
	if err := h.surface.Serve(c.Writer, c.Request); err != nil {
		// アップグレード失敗時のレスポンスは upgrader が書き込み済み
		log.Printf("❌ 地図ウィジェットの接続に失敗: %v", err)
	}
}

// run ループ上でエンジンを操作し、結果をJSONで返す
func (h *MapHandler) run(c *gin.Context, fn func(e *service.MapEngine) error) {
	if err := h.session.Do(c.Request.Context(), fn); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// writeError エラーの種類に応じてステータスコードを決める
func writeError(c *gin.Context, err error) {
	var vErr *ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "バリデーションエラー",
			"details": vErr.Error(),
		})
	case errors.Is(err, model.ErrInvalidCoordinates), errors.Is(err, model.ErrUnknownEntityClass):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "バリデーションエラー",
			"details": err.Error(),
		})
	case errors.Is(err, model.ErrLocationUnavailable):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "現在地が取得できていません",
			"details": err.Error(),
		})
	case errors.Is(err, model.ErrSurfaceUnavailable), errors.Is(err, usecase.ErrSessionClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "地図が利用できません",
			"details": err.Error(),
		})
	default:
		log.Printf("❌ リクエストの処理に失敗: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "内部エラーが発生しました",
			"details": err.Error(),
		})
	}
}
