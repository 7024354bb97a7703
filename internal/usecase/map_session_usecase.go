package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
	"GeoDrop-App/internal/domain/service"
)

// リソース名
const (
	ResourceQuests         = "quests"
	ResourceTreasureChests = "treasure_chests"
	ResourceMysteryBoxes   = "mystery_boxes"
	ResourceDragons        = "dragons"
	ResourceFollowedUsers  = "followed_users"
	ResourceVideos         = "videos"
	ResourceProfile        = "profile"
)

const (
	defaultPollInterval       = 30 * time.Second
	defaultTickInterval       = time.Minute
	defaultNearbyRadiusMeters = 5000
	eventBufferSize           = 256
)

var (
	// ErrSessionClosed イベントループが終了している
	ErrSessionClosed = errors.New("マップセッションは終了しています")
	// ErrSessionRunning Run が二重に呼ばれた
	ErrSessionRunning = errors.New("マップセッションは既に実行中です")
)

// MapOptionsProvider 地図の初期化設定を組み立てる
type MapOptionsProvider interface {
	Options(center model.LatLng, hasCenter bool) model.MapOptions
}

// MapSessionUseCase 地図エンジンを1つのイベントループで動かす
type MapSessionUseCase interface {
	// Run ctx がキャンセルされるまでイベントループを回す
	Run(ctx context.Context) error
	// Post fn をループに積む。ループが終了していれば false
	Post(fn func()) bool
	// Do ループ上で fn を実行し、結果を待つ
	Do(ctx context.Context, fn func(engine *service.MapEngine) error) error
	// Refresh リソースの即時取得
	Refresh(name string) error
	UpdateLocation(ctx context.Context, pos model.LatLng) error
	// MarkCollected 取得済みのエンティティを取り除き、そのリソースを取り直す
	MarkCollected(ctx context.Context, ref model.EntityRef) (bool, error)
	MapOptions() model.MapOptions
	Available() bool
	Resources() []string
}

// SessionDeps MapSessionUseCase の依存
type SessionDeps struct {
	Surface    repository.MarkerSurface // nil なら地図なしで動く
	Entities   repository.EntitiesRepository
	Videos     repository.VideosRepository  // nil なら動画を取得しない
	Profiles   repository.ProfileRepository // nil なら匿名
	MapOptions MapOptionsProvider
	OnSelect   func(ref model.EntityRef)

	UserID             string
	PollInterval       time.Duration
	TickInterval       time.Duration
	NearbyRadiusMeters int
	Now                func() time.Time
}

// mapSessionUseCaseImpl はMapSessionUseCaseの実装
type mapSessionUseCaseImpl struct {
	deps        SessionDeps
	engine      *service.MapEngine
	coordinator *service.RefreshCoordinator

	events   chan func()
	stopping chan struct{}
	running  atomic.Bool

	mu          sync.Mutex
	location    model.LatLng
	hasLocation bool
}

// NewMapSessionUseCase は新しいMapSessionUseCaseインスタンスを作成
func NewMapSessionUseCase(deps SessionDeps) (MapSessionUseCase, error) {
	if deps.PollInterval <= 0 {
		deps.PollInterval = defaultPollInterval
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = defaultTickInterval
	}
	if deps.NearbyRadiusMeters <= 0 {
		deps.NearbyRadiusMeters = defaultNearbyRadiusMeters
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	s := &mapSessionUseCaseImpl{
		deps:     deps,
		events:   make(chan func(), eventBufferSize),
		stopping: make(chan struct{}),
	}
	s.coordinator = service.NewRefreshCoordinator(func(fn func()) { s.Post(fn) })

	engine, err := service.NewMapEngine(deps.Surface, service.EngineOptions{
		Now:      deps.Now,
		Post:     func(fn func()) { s.Post(fn) },
		OnSelect: deps.OnSelect,
	})
	if errors.Is(err, model.ErrSurfaceUnavailable) {
		log.Printf("⚠️ 地図ウィジェットがないため、マーカーは表示されません")
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("マップエンジンの作成に失敗: %w", err)
	}
	s.engine = engine

	if err := s.registerResources(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *mapSessionUseCaseImpl) registerResources() error {
	d := s.deps
	e := s.engine
	c := s.coordinator

	if d.Entities != nil {
		if err := service.RegisterResource(c, ResourceQuests, 0, d.Entities.GetActiveQuests,
			func(q []model.Quest) { e.SetQuests(q) }); err != nil {
			return err
		}
		if err := service.RegisterResource(c, ResourceTreasureChests, d.PollInterval, d.Entities.GetActiveTreasureChests,
			func(cs []model.TreasureChest) { e.SetTreasureChests(cs) }); err != nil {
			return err
		}
		if err := service.RegisterResource(c, ResourceMysteryBoxes, d.PollInterval, d.Entities.GetActiveMysteryBoxes,
			func(bs []model.MysteryBox) { e.SetMysteryBoxes(bs) }); err != nil {
			return err
		}
		if err := service.RegisterResource(c, ResourceDragons, d.PollInterval, d.Entities.GetActiveDragons,
			func(ds []model.Dragon) { e.SetDragons(ds) }); err != nil {
			return err
		}
	}

	if d.Videos != nil {
		if err := service.RegisterResource(c, ResourceVideos, d.PollInterval, s.fetchVideos,
			func(vs []model.Video) { e.SetVideos(vs) }); err != nil {
			return err
		}
	} else {
		log.Printf("⚠️ 動画の取得元が設定されていないため、動画マーカーは表示されません")
	}

	if d.Profiles == nil || d.UserID == "" {
		if d.UserID != "" {
			e.SetProfile(model.UserProfile{UserID: d.UserID})
		}
		return nil
	}
	if err := service.RegisterResource(c, ResourceProfile, 0,
		func(ctx context.Context) (*model.UserProfile, error) { return d.Profiles.GetProfile(ctx, d.UserID) },
		func(p *model.UserProfile) {
			if p != nil {
				e.SetProfile(*p)
			}
		}); err != nil {
		return err
	}
	return service.RegisterResource(c, ResourceFollowedUsers, d.PollInterval,
		func(ctx context.Context) ([]model.FollowedUser, error) { return d.Profiles.GetFollowedUsers(ctx, d.UserID) },
		func(us []model.FollowedUser) { e.SetFollowedUsers(us) })
}

// fetchVideos 現在地を中心に取得する。現在地がなければ失敗扱い（前回の状態を維持）
func (s *mapSessionUseCaseImpl) fetchVideos(ctx context.Context) ([]model.Video, error) {
	center, ok := s.currentLocation()
	if !ok {
		return nil, model.ErrLocationUnavailable
	}
	return s.deps.Videos.GetNearbyVideos(ctx, center, s.deps.NearbyRadiusMeters)
}

func (s *mapSessionUseCaseImpl) currentLocation() (model.LatLng, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location, s.hasLocation
}

// Run ctx がキャンセルされるまでイベントループを回す
func (s *mapSessionUseCaseImpl) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrSessionRunning
	}

	if s.engine != nil {
		s.engine.Attach()
		s.coordinator.Start(ctx)
	}
	log.Printf("🗺️ マップセッションを開始しました (リソース: %v)", s.coordinator.Names())

	ticker := time.NewTicker(s.deps.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		case fn := <-s.events:
			fn()
		case <-ticker.C:
			if s.engine != nil {
				s.engine.Tick()
			}
		}
	}
}

// shutdown 取得を止めてから全ハンドルを破棄する。積まれたままのイベントは捨てる
func (s *mapSessionUseCaseImpl) shutdown() {
	close(s.stopping)
	s.coordinator.Stop()
	if s.engine != nil {
		s.engine.Close()
	}
	log.Printf("✅ マップセッションを終了しました")
}

func (s *mapSessionUseCaseImpl) Post(fn func()) bool {
	select {
	case <-s.stopping:
		return false
	default:
	}
	select {
	case s.events <- fn:
		return true
	case <-s.stopping:
		return false
	}
}

func (s *mapSessionUseCaseImpl) Do(ctx context.Context, fn func(engine *service.MapEngine) error) error {
	if s.engine == nil {
		return model.ErrSurfaceUnavailable
	}
	result := make(chan error, 1)
	if !s.Post(func() { result <- fn(s.engine) }) {
		return ErrSessionClosed
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stopping:
		return ErrSessionClosed
	}
}

func (s *mapSessionUseCaseImpl) Refresh(name string) error {
	if s.engine == nil {
		return model.ErrSurfaceUnavailable
	}
	return s.coordinator.Trigger(name)
}

func (s *mapSessionUseCaseImpl) UpdateLocation(ctx context.Context, pos model.LatLng) error {
	err := s.Do(ctx, func(e *service.MapEngine) error {
		return e.UpdateUserLocation(pos)
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	first := !s.hasLocation
	s.location, s.hasLocation = pos, true
	s.mu.Unlock()

	if first && s.deps.Videos != nil {
		log.Printf("📍 現在地を取得しました。周辺の動画を取得します (%.6f, %.6f)", pos.Lat, pos.Lng)
		if err := s.coordinator.Trigger(ResourceVideos); err != nil {
			log.Printf("⚠️ 動画の即時取得に失敗: %v", err)
		}
	}
	return nil
}

func (s *mapSessionUseCaseImpl) MarkCollected(ctx context.Context, ref model.EntityRef) (bool, error) {
	var found bool
	err := s.Do(ctx, func(e *service.MapEngine) error {
		var err error
		found, err = e.MarkCollected(ref)
		return err
	})
	if err != nil {
		return false, err
	}

	if name, ok := resourceFor(ref.Class); ok {
		if err := s.coordinator.Trigger(name); err != nil {
			log.Printf("⚠️ %s の再取得に失敗: %v", name, err)
		}
	}
	return found, nil
}

// resourceFor 種別に対応するリソース名
func resourceFor(class model.EntityClass) (string, bool) {
	switch class {
	case model.ClassTreasureChest:
		return ResourceTreasureChests, true
	case model.ClassMysteryBox:
		return ResourceMysteryBoxes, true
	case model.ClassDragon:
		return ResourceDragons, true
	default:
		return "", false
	}
}

func (s *mapSessionUseCaseImpl) MapOptions() model.MapOptions {
	center, ok := s.currentLocation()
	if s.deps.MapOptions == nil {
		return model.MapOptions{Center: center}
	}
	return s.deps.MapOptions.Options(center, ok)
}

func (s *mapSessionUseCaseImpl) Available() bool {
	return s.engine != nil
}

func (s *mapSessionUseCaseImpl) Resources() []string {
	return s.coordinator.Names()
}
