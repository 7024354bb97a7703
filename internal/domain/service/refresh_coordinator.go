package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"GeoDrop-App/internal/domain/model"
)

// refresher 登録済みリソースの共通操作
type refresher interface {
	name() string
	interval() time.Duration
	refresh(ctx context.Context)
}

// Resource 1つのデータ取得元。取得ごとに連番を振り、古いレスポンスは捨てる
type Resource[T any] struct {
	resourceName string
	every        time.Duration
	fetch        func(ctx context.Context) (T, error)
	apply        func(T)
	post         func(func())

	issued  atomic.Uint64
	mu      sync.Mutex
	applied uint64
}

func (r *Resource[T]) name() string            { return r.resourceName }
func (r *Resource[T]) interval() time.Duration { return r.every }

// refresh 取得結果はイベントループ上で適用する。失敗時は何もしない（前回の状態を維持）
func (r *Resource[T]) refresh(ctx context.Context) {
	seq := r.issued.Add(1)
	data, err := r.fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("⚠️ %s の取得に失敗、前回の状態を維持します: %v", r.resourceName, err)
		}
		return
	}
	r.post(func() {
		if err := r.accept(seq); err != nil {
			log.Printf("🔄 %v", err)
			return
		}
		r.apply(data)
	})
}

// accept seq が反映済みの連番より新しい場合だけ受け入れる
func (r *Resource[T]) accept(seq uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if seq <= r.applied {
		return fmt.Errorf("%s seq=%d (反映済み %d): %w", r.resourceName, seq, r.applied, model.ErrStaleResponse)
	}
	r.applied = seq
	return nil
}

// RefreshCoordinator リソースごとの定期取得と即時取得を管理する
type RefreshCoordinator struct {
	post func(func())

	mu        sync.Mutex
	resources map[string]refresher
	order     []string
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewRefreshCoordinator post は取得結果をイベントループへ渡す関数
func NewRefreshCoordinator(post func(func())) *RefreshCoordinator {
	return &RefreshCoordinator{
		post:      post,
		resources: make(map[string]refresher),
	}
}

// RegisterResource リソースを登録する。interval が0なら定期取得せず Trigger でのみ取得する
func RegisterResource[T any](c *RefreshCoordinator, name string, interval time.Duration, fetch func(ctx context.Context) (T, error), apply func(T)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.resources[name]; exists {
		return fmt.Errorf("リソース %s は登録済みです", name)
	}
	if c.ctx != nil {
		return fmt.Errorf("開始後はリソース %s を登録できません", name)
	}
	c.resources[name] = &Resource[T]{
		resourceName: name,
		every:        interval,
		fetch:        fetch,
		apply:        apply,
		post:         c.post,
	}
	c.order = append(c.order, name)
	return nil
}

// Names 登録順のリソース名
func (c *RefreshCoordinator) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.order...)
}

// Start 全リソースを一度取得し、interval を持つものは定期取得を始める
func (c *RefreshCoordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.ctx != nil {
		c.mu.Unlock()
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	runCtx := c.ctx
	targets := make([]refresher, 0, len(c.order))
	for _, name := range c.order {
		targets = append(targets, c.resources[name])
	}
	c.mu.Unlock()

	for _, r := range targets {
		c.wg.Add(1)
		go c.poll(runCtx, r)
	}
	log.Printf("🔄 データ取得を開始しました (%d リソース)", len(targets))
}

func (c *RefreshCoordinator) poll(ctx context.Context, r refresher) {
	defer c.wg.Done()
	r.refresh(ctx)
	if r.interval() <= 0 {
		return
	}

	ticker := time.NewTicker(r.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refresh(ctx)
		}
	}
}

// Trigger 即時取得（変更操作の後の無効化など）
func (c *RefreshCoordinator) Trigger(name string) error {
	c.mu.Lock()
	r, ok := c.resources[name]
	ctx := c.ctx
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("未登録のリソースです: %s", name)
	}
	if ctx == nil {
		return fmt.Errorf("データ取得が開始されていません: %s", name)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("データ取得は停止済みです: %w", ctx.Err())
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		r.refresh(ctx)
	}()
	return nil
}

// Stop 取得を止め、実行中の取得が終わるのを待つ
func (c *RefreshCoordinator) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	c.wg.Wait()
}
