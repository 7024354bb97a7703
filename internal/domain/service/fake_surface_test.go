package service

import (
	"errors"
	"fmt"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
)

// fakeSurface 呼び出しを記録するだけの地図ウィジェット
type fakeSurface struct {
	rich    bool
	seq     int
	markers map[string]*fakeMarker
	circles map[string]*fakeCircle

	markerCreates  int
	circleCreates  int
	markerDestroys int
	circleDestroys int
	contentWrites  int
	positionWrites int
	pans           []model.LatLng

	failMarkerCreate bool
	failCircleCreate bool

	zoomFns   map[int]func(float64)
	centerFns map[int]func(model.LatLng)
	clickFns  map[int]func(model.LatLng)
	dragFns   map[int]func()
}

type fakeMarker struct {
	id        string
	surface   *fakeSurface
	opts      model.MarkerOptions
	onClick   func()
	destroyed int
}

type fakeCircle struct {
	id        string
	surface   *fakeSurface
	opts      model.CircleOptions
	destroyed int
}

type fakeListener struct{ remove func() }

func (l fakeListener) Remove() { l.remove() }

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		rich:      true,
		markers:   make(map[string]*fakeMarker),
		circles:   make(map[string]*fakeCircle),
		zoomFns:   make(map[int]func(float64)),
		centerFns: make(map[int]func(model.LatLng)),
		clickFns:  make(map[int]func(model.LatLng)),
		dragFns:   make(map[int]func()),
	}
}

func (s *fakeSurface) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *fakeSurface) CreateMarker(opts model.MarkerOptions, onClick func()) (repository.MarkerHandle, error) {
	if s.failMarkerCreate {
		return nil, errors.New("marker create failed")
	}
	m := &fakeMarker{id: s.nextID("m"), surface: s, opts: opts, onClick: onClick}
	s.markers[m.id] = m
	s.markerCreates++
	return m, nil
}

func (s *fakeSurface) CreateCircle(opts model.CircleOptions) (repository.CircleHandle, error) {
	if s.failCircleCreate {
		return nil, errors.New("circle create failed")
	}
	c := &fakeCircle{id: s.nextID("c"), surface: s, opts: opts}
	s.circles[c.id] = c
	s.circleCreates++
	return c, nil
}

func (s *fakeSurface) PanTo(center model.LatLng) {
	s.pans = append(s.pans, center)
}

func (s *fakeSurface) OnZoomChanged(fn func(float64)) repository.Listener {
	id := s.seq
	s.seq++
	s.zoomFns[id] = fn
	return fakeListener{remove: func() { delete(s.zoomFns, id) }}
}

func (s *fakeSurface) OnCenterChanged(fn func(model.LatLng)) repository.Listener {
	id := s.seq
	s.seq++
	s.centerFns[id] = fn
	return fakeListener{remove: func() { delete(s.centerFns, id) }}
}

func (s *fakeSurface) OnMapClick(fn func(model.LatLng)) repository.Listener {
	id := s.seq
	s.seq++
	s.clickFns[id] = fn
	return fakeListener{remove: func() { delete(s.clickFns, id) }}
}

func (s *fakeSurface) OnDragStart(fn func()) repository.Listener {
	id := s.seq
	s.seq++
	s.dragFns[id] = fn
	return fakeListener{remove: func() { delete(s.dragFns, id) }}
}

func (s *fakeSurface) Capabilities() model.SurfaceCapabilities {
	return model.SurfaceCapabilities{RichContent: s.rich}
}

func (s *fakeSurface) emitZoom(z float64) {
	for _, fn := range s.zoomFns {
		fn(z)
	}
}

func (s *fakeSurface) emitCenter(c model.LatLng) {
	for _, fn := range s.centerFns {
		fn(c)
	}
}

func (s *fakeSurface) emitDragStart() {
	for _, fn := range s.dragFns {
		fn()
	}
}

func (s *fakeSurface) emitMapClick(p model.LatLng) {
	for _, fn := range s.clickFns {
		fn(p)
	}
}

// liveMarkers 破棄されていないマーカー
func (s *fakeSurface) liveMarkers() []*fakeMarker {
	var out []*fakeMarker
	for _, m := range s.markers {
		if m.destroyed == 0 {
			out = append(out, m)
		}
	}
	return out
}

func (s *fakeSurface) liveCircles() []*fakeCircle {
	var out []*fakeCircle
	for _, c := range s.circles {
		if c.destroyed == 0 {
			out = append(out, c)
		}
	}
	return out
}

// markerAt 指定位置にある生きたマーカー
func (s *fakeSurface) markerAt(p model.LatLng) *fakeMarker {
	for _, m := range s.liveMarkers() {
		if m.opts.Position == p {
			return m
		}
	}
	return nil
}

func (m *fakeMarker) SetPosition(pos model.LatLng) {
	m.opts.Position = pos
	m.surface.positionWrites++
}

func (m *fakeMarker) SetContent(content model.MarkerContent) {
	m.opts.Content = content
	m.surface.contentWrites++
}

func (m *fakeMarker) Destroy() {
	m.destroyed++
	m.surface.markerDestroys++
}

func (m *fakeMarker) click() {
	if m.onClick != nil {
		m.onClick()
	}
}

func (c *fakeCircle) SetCenter(center model.LatLng) { c.opts.Center = center }

func (c *fakeCircle) SetRadius(radius float64) { c.opts.RadiusMeters = radius }

func (c *fakeCircle) Destroy() {
	c.destroyed++
	c.surface.circleDestroys++
}

// resetCounters 操作カウンタだけを0に戻す
func (s *fakeSurface) resetCounters() {
	s.markerCreates, s.circleCreates = 0, 0
	s.markerDestroys, s.circleDestroys = 0, 0
	s.contentWrites, s.positionWrites = 0, 0
	s.pans = nil
}
