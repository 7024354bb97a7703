package mapsurface

import (
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Options WebSocketSurface の設定
type Options struct {
	Capabilities   model.SurfaceCapabilities
	AllowedOrigins []string // 空なら全て許可
}

// WebSocketSurface ブラウザ上の地図ウィジェットを WebSocket 越しに操作する MarkerSurface
// 同時に接続できるブラウザは1つ。新しい接続が来たら古い接続を閉じ、生きているハンドルを再送する
type WebSocketSurface struct {
	caps     model.SurfaceCapabilities
	upgrader websocket.Upgrader

	mu      sync.Mutex
	conn    *websocket.Conn
	seq     uint64
	markers map[string]*wsMarker
	circles map[string]*wsCircle

	zoomFns   listenerSet[func(float64)]
	centerFns listenerSet[func(model.LatLng)]
	clickFns  listenerSet[func(model.LatLng)]
	dragFns   listenerSet[func()]
	imageFns  listenerSet[func(string)]
}

// NewWebSocketSurface 接続待ちの地図ウィジェットを作成
func NewWebSocketSurface(opts Options) *WebSocketSurface {
	s := &WebSocketSurface{
		caps:    opts.Capabilities,
		markers: make(map[string]*wsMarker),
		circles: make(map[string]*wsCircle),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      originChecker(opts.AllowedOrigins),
	}
	return s
}

func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if !set[origin] {
			log.Printf("⚠️ 許可されていないオリジンからの接続を拒否しました: %q", origin)
			return false
		}
		return true
	}
}

// Serve HTTP接続をアップグレードし、切断されるまでイベントを読み続ける
func (s *WebSocketSurface) Serve(w http.ResponseWriter, r *http.Request) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return fmt.Errorf("WebSocketへのアップグレードに失敗: %w", err)
	}
	if err := s.attach(conn); err != nil {
		_ = conn.Close()
		return err
	}
	log.Printf("✅ 地図ウィジェットが接続しました: %s", r.RemoteAddr)

	done := make(chan struct{})
	go s.pingLoop(conn, done)
	s.readLoop(conn)
	close(done)

	s.detach(conn)
	log.Printf("🔄 地図ウィジェットが切断しました: %s", r.RemoteAddr)
	return nil
}

// attach 接続を差し替え、生きているハンドルを作成順に再送する
func (s *WebSocketSurface) attach(conn *websocket.Conn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "replaced"),
			time.Now().Add(writeWait))
		_ = s.conn.Close()
	}
	s.conn = conn

	cmds := []Command{{Op: OpMapReset}}
	markers := make([]*wsMarker, 0, len(s.markers))
	for _, m := range s.markers {
		markers = append(markers, m)
	}
	sort.Slice(markers, func(i, j int) bool { return markers[i].seq < markers[j].seq })
	for _, m := range markers {
		cmds = append(cmds, m.createCommand())
	}
	circles := make([]*wsCircle, 0, len(s.circles))
	for _, c := range s.circles {
		circles = append(circles, c)
	}
	sort.Slice(circles, func(i, j int) bool { return circles[i].seq < circles[j].seq })
	for _, c := range circles {
		cmds = append(cmds, c.createCommand())
	}

	for _, cmd := range cmds {
		if err := s.writeLocked(cmd); err != nil {
			s.conn = nil
			return fmt.Errorf("ハンドルの再送に失敗: %w", err)
		}
	}
	return nil
}

func (s *WebSocketSurface) detach(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == conn {
		s.conn = nil
	}
	_ = conn.Close()
}

func (s *WebSocketSurface) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("❌ 読み込み期限の設定に失敗: %v", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("❌ WebSocketが予期せず切断されました: %v", err)
			}
			return
		}
		s.dispatch(ev)
	}
}

func (s *WebSocketSurface) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// dispatch コールバックはロックの外で呼ぶ
func (s *WebSocketSurface) dispatch(ev Event) {
	switch ev.Type {
	case EventMarkerClick:
		s.mu.Lock()
		m, ok := s.markers[ev.ID]
		s.mu.Unlock()
		if ok && m.onClick != nil {
			m.onClick()
		}
	case EventZoomChanged:
		for _, fn := range s.zoomFns.snapshot() {
			fn(ev.Zoom)
		}
	case EventCenterChanged:
		if ev.Position == nil {
			return
		}
		for _, fn := range s.centerFns.snapshot() {
			fn(*ev.Position)
		}
	case EventMapClick:
		if ev.Position == nil {
			return
		}
		for _, fn := range s.clickFns.snapshot() {
			fn(*ev.Position)
		}
	case EventDragStart:
		for _, fn := range s.dragFns.snapshot() {
			fn()
		}
	case EventImageError:
		if ev.URL == "" {
			return
		}
		for _, fn := range s.imageFns.snapshot() {
			fn(ev.URL)
		}
	default:
		log.Printf("⚠️ 未知のイベントを無視しました: %q", ev.Type)
	}
}

// send 接続中なら命令を書き込む。未接続なら捨てる（接続時に再送される）
func (s *WebSocketSurface) send(cmd Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendLocked(cmd)
}

func (s *WebSocketSurface) sendLocked(cmd Command) {
	if err := s.writeLocked(cmd); err != nil {
		log.Printf("⚠️ 命令 %s の送信に失敗: %v", cmd.Op, err)
		_ = s.conn.Close()
		s.conn = nil
	}
}

func (s *WebSocketSurface) writeLocked(cmd Command) error {
	if s.conn == nil {
		return nil
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteJSON(cmd)
}

// Connected ブラウザが接続中か
func (s *WebSocketSurface) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Close 接続を閉じる。ハンドルの状態は残る
func (s *WebSocketSurface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
}

// CreateMarker マーカーを作成
func (s *WebSocketSurface) CreateMarker(opts model.MarkerOptions, onClick func()) (repository.MarkerHandle, error) {
	s.mu.Lock()
	s.seq++
	defer s.mu.Unlock()
	m := &wsMarker{surface: s, id: uuid.NewString(), seq: s.seq, opts: opts, onClick: onClick}
	s.markers[m.id] = m
	s.sendLocked(m.createCommand())
	return m, nil
}

// CreateCircle 円を作成
func (s *WebSocketSurface) CreateCircle(opts model.CircleOptions) (repository.CircleHandle, error) {
	s.mu.Lock()
	s.seq++
	defer s.mu.Unlock()
	c := &wsCircle{surface: s, id: uuid.NewString(), seq: s.seq, opts: opts}
	s.circles[c.id] = c
	s.sendLocked(c.createCommand())
	return c, nil
}

// PanTo 地図の中心を移動
func (s *WebSocketSurface) PanTo(center model.LatLng) {
	s.send(Command{Op: OpMapPan, Position: &center})
}

// SelectEntity クリックで決まった遷移先をブラウザに伝える
func (s *WebSocketSurface) SelectEntity(ref model.EntityRef) {
	s.send(Command{Op: OpEntitySelect, Entity: &ref})
}

func (s *WebSocketSurface) OnZoomChanged(fn func(zoom float64)) repository.Listener {
	return s.zoomFns.add(fn)
}

func (s *WebSocketSurface) OnCenterChanged(fn func(center model.LatLng)) repository.Listener {
	return s.centerFns.add(fn)
}

func (s *WebSocketSurface) OnMapClick(fn func(pos model.LatLng)) repository.Listener {
	return s.clickFns.add(fn)
}

func (s *WebSocketSurface) OnDragStart(fn func()) repository.Listener {
	return s.dragFns.add(fn)
}

// OnImageError ブラウザで画像が読み込めなかったときの通知
func (s *WebSocketSurface) OnImageError(fn func(url string)) repository.Listener {
	return s.imageFns.add(fn)
}

func (s *WebSocketSurface) Capabilities() model.SurfaceCapabilities {
	return s.caps
}

// LiveCounts 生きているマーカーと円の数
func (s *WebSocketSurface) LiveCounts() (markers, circles int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.markers), len(s.circles)
}

type wsMarker struct {
	surface *WebSocketSurface
	id      string
	seq     uint64
	opts    model.MarkerOptions
	onClick func()
}

func (m *wsMarker) createCommand() Command {
	opts := m.opts
	return Command{Op: OpMarkerCreate, ID: m.id, Marker: &opts, Clickable: m.onClick != nil}
}

// update ロックを取ったうえで、破棄済みでなければ状態を変えて命令を送る
func (m *wsMarker) update(apply func() Command) {
	s := m.surface
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markers[m.id]; !ok {
		return
	}
	s.sendLocked(apply())
}

func (m *wsMarker) SetPosition(pos model.LatLng) {
	m.update(func() Command {
		m.opts.Position = pos
		return Command{Op: OpMarkerPosition, ID: m.id, Position: &pos}
	})
}

func (m *wsMarker) SetContent(content model.MarkerContent) {
	m.update(func() Command {
		m.opts.Content = content
		return Command{Op: OpMarkerContent, ID: m.id, Content: &content}
	})
}

func (m *wsMarker) Destroy() {
	m.update(func() Command {
		delete(m.surface.markers, m.id)
		return Command{Op: OpMarkerDestroy, ID: m.id}
	})
}

type wsCircle struct {
	surface *WebSocketSurface
	id      string
	seq     uint64
	opts    model.CircleOptions
}

func (c *wsCircle) createCommand() Command {
	opts := c.opts
	return Command{Op: OpCircleCreate, ID: c.id, Circle: &opts}
}

func (c *wsCircle) update(apply func() Command) {
	s := c.surface
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.circles[c.id]; !ok {
		return
	}
	s.sendLocked(apply())
}

func (c *wsCircle) SetCenter(center model.LatLng) {
	c.update(func() Command {
		c.opts.Center = center
		return Command{Op: OpCircleCenter, ID: c.id, Position: &center}
	})
}

func (c *wsCircle) SetRadius(radiusMeters float64) {
	c.update(func() Command {
		c.opts.RadiusMeters = radiusMeters
		return Command{Op: OpCircleRadius, ID: c.id, Radius: &radiusMeters}
	})
}

func (c *wsCircle) Destroy() {
	c.update(func() Command {
		delete(c.surface.circles, c.id)
		return Command{Op: OpCircleDestroy, ID: c.id}
	})
}

// listenerSet 登録順を保つコールバックの集合
type listenerSet[F any] struct {
	mu   sync.Mutex
	next uint64
	fns  map[uint64]F
}

func (l *listenerSet[F]) add(fn F) repository.Listener {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[uint64]F)
	}
	l.next++
	id := l.next
	l.fns[id] = fn
	return listenerFunc(func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.fns, id)
	})
}

func (l *listenerSet[F]) snapshot() []F {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]uint64, 0, len(l.fns))
	for id := range l.fns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]F, 0, len(ids))
	for _, id := range ids {
		out = append(out, l.fns[id])
	}
	return out
}

func (l *listenerSet[F]) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.fns)
}

type listenerFunc func()

func (f listenerFunc) Remove() { f() }
