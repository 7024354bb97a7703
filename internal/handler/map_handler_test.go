package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/service"
	"GeoDrop-App/internal/infrastructure/mapsurface"
	"GeoDrop-App/internal/usecase"
)

type stubEntities struct{}

func (stubEntities) GetActiveQuests(ctx context.Context) ([]model.Quest, error) {
	return nil, nil
}

func (stubEntities) GetActiveTreasureChests(ctx context.Context) ([]model.TreasureChest, error) {
	return []model.TreasureChest{{ID: "c1", Latitude: 35.0, Longitude: 135.0, Size: model.ChestSizeSmall}}, nil
}

func (stubEntities) GetActiveMysteryBoxes(ctx context.Context) ([]model.MysteryBox, error) {
	return nil, nil
}

func (stubEntities) GetActiveDragons(ctx context.Context) ([]model.Dragon, error) {
	return nil, nil
}

type testServer struct {
	router  *gin.Engine
	surface *mapsurface.WebSocketSurface
}

func newTestServer(t *testing.T, withSurface bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{router: gin.New()}
	deps := usecase.SessionDeps{Entities: stubEntities{}}
	var surface SurfaceServer
	if withSurface {
		ts.surface = mapsurface.NewWebSocketSurface(mapsurface.Options{
			Capabilities: model.SurfaceCapabilities{RichContent: true},
		})
		deps.Surface = ts.surface
		surface = ts.surface
	}

	session, err := usecase.NewMapSessionUseCase(deps)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	if withSurface {
		// ループとデータ取得が始まるのを待つ
		require.NoError(t, session.Do(context.Background(), func(*service.MapEngine) error { return nil }))
	}

	NewMapHandler(session, surface).RegisterRoutes(ts.router)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestMapHandler_Health(t *testing.T) {
	t.Run("地図あり", func(t *testing.T) {
		ts := newTestServer(t, true)
		w := ts.do(t, http.MethodGet, "/api/health", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "available", body["map"])
		assert.Equal(t, false, body["widget_connected"])
	})

	t.Run("地図なしでもサーバーは動き続ける", func(t *testing.T) {
		ts := newTestServer(t, false)
		w := ts.do(t, http.MethodGet, "/api/health", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "unavailable", decode(t, w)["map"])

		w = ts.do(t, http.MethodGet, "/api/map/markers", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		w = ts.do(t, http.MethodPost, "/api/refresh/quests", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		w = ts.do(t, http.MethodGet, "/ws/map", nil)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestMapHandler_LocationAndLantern(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(t, http.MethodPost, "/api/lantern/activate", nil)
	assert.Equal(t, http.StatusConflict, w.Code, "現在地がないと起動できない")

	tests := []struct {
		name string
		body any
		want int
	}{
		{name: "緯度が範囲外", body: model.Location{Latitude: 91, Longitude: 135}, want: http.StatusBadRequest},
		{name: "0,0 は未設定扱い", body: model.Location{}, want: http.StatusBadRequest},
		{name: "JSONでない", body: "not-json", want: http.StatusBadRequest},
		{name: "正常", body: model.Location{Latitude: 35.0, Longitude: 135.0}, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPost, "/api/location", tt.body)
			assert.Equal(t, tt.want, w.Code)
		})
	}

	w = ts.do(t, http.MethodPost, "/api/lantern/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/api/map/markers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "activated", body["state"])

	classes := map[string]bool{}
	for _, m := range body["markers"].([]any) {
		classes[m.(map[string]any)["class"].(string)] = true
	}
	assert.True(t, classes[string(model.ClassUserSelf)])
	assert.True(t, classes[string(model.ClassLantern)])

	w = ts.do(t, http.MethodPost, "/api/lantern/deactivate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = ts.do(t, http.MethodGet, "/api/map/options", nil)
	require.Equal(t, http.StatusOK, w.Code)
	center := decode(t, w)["center"].(map[string]any)
	assert.Equal(t, 35.0, center["lat"])
}

func TestMapHandler_Target(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(t, http.MethodPost, "/api/target", targetRequest{Class: "spaceship", ID: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodPost, "/api/target", targetRequest{Class: "video"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(t, http.MethodPost, "/api/target", targetRequest{Class: "video", ID: "v1"})
	require.Equal(t, http.StatusOK, w.Code)
	target := decode(t, ts.do(t, http.MethodGet, "/api/map/markers", nil))["target"].(map[string]any)
	assert.Equal(t, "v1", target["id"])

	w = ts.do(t, http.MethodDelete, "/api/target", nil)
	require.Equal(t, http.StatusOK, w.Code)
	_, ok := decode(t, ts.do(t, http.MethodGet, "/api/map/markers", nil))["target"]
	assert.False(t, ok)

	w = ts.do(t, http.MethodPut, "/api/highlight", highlightRequest{VideoID: "v1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "v1", decode(t, ts.do(t, http.MethodGet, "/api/map/markers", nil))["highlighted_video_id"])
}

func TestMapHandler_CollectedAndRefresh(t *testing.T) {
	ts := newTestServer(t, true)

	w := ts.do(t, http.MethodPost, "/api/entities/video/v1/collected", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = ts.do(t, http.MethodPost, "/api/entities/dragon/nope/collected", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/refresh/unknown", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(t, http.MethodPost, "/api/refresh/treasure_chests", nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestMapHandler_ServeWidget(t *testing.T) {
	ts := newTestServer(t, true)
	server := httptest.NewServer(ts.router)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/map"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	require.NoError(t, err)
	defer conn.Close()

	var cmd mapsurface.Command
	require.NoError(t, conn.ReadJSON(&cmd))
	assert.Equal(t, mapsurface.OpMapReset, cmd.Op)
	assert.True(t, ts.surface.Connected())
}
