package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
	"GeoDrop-App/internal/infrastructure/database"
)

// SupabaseEntitiesRepository クエスト・宝箱・ミステリーボックス・ドラゴンを PostgREST から取得する
type SupabaseEntitiesRepository struct {
	client *database.SupabaseClient
	now    func() time.Time
}

func NewSupabaseEntitiesRepository(client *database.SupabaseClient) repository.EntitiesRepository {
	return &SupabaseEntitiesRepository{
		client: client,
		now:    time.Now,
	}
}

// notExpiredFilter 期限なし、または期限が未来の行
func notExpiredFilter(now time.Time) string {
	return fmt.Sprintf("expires_at.is.null,expires_at.gt.%s", now.UTC().Format(time.RFC3339))
}

// decodeRows JSON配列を行に変換する。変換できない行（未知のカテゴリなど）はログを出して除外する
func decodeRows[R any, M any](data []byte, table string, convert func(R) (M, error)) ([]M, error) {
	var rows []R
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%sのJSONアンマーシャル失敗: %w", table, err)
	}

	out := make([]M, 0, len(rows))
	for _, row := range rows {
		m, err := convert(row)
		if err != nil {
			log.Printf("⚠️ %s の行を除外しました: %v", table, err)
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *SupabaseEntitiesRepository) GetActiveQuests(ctx context.Context) ([]model.Quest, error) {
	data, _, err := r.client.GetClient().From("quests").
		Select("*", "exact", false).
		Eq("is_active", "true").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("クエストの取得失敗: %w", err)
	}
	return decodeRows(data, "quests", questRow.toModel)
}

func (r *SupabaseEntitiesRepository) GetActiveTreasureChests(ctx context.Context) ([]model.TreasureChest, error) {
	data, _, err := r.client.GetClient().From("treasure_chests").
		Select("*", "exact", false).
		Eq("is_collected", "false").
		Or(notExpiredFilter(r.now()), "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("宝箱の取得失敗: %w", err)
	}
	return decodeRows(data, "treasure_chests", treasureChestRow.toModel)
}

func (r *SupabaseEntitiesRepository) GetActiveMysteryBoxes(ctx context.Context) ([]model.MysteryBox, error) {
	data, _, err := r.client.GetClient().From("mystery_boxes").
		Select("*", "exact", false).
		Eq("is_collected", "false").
		Or(notExpiredFilter(r.now()), "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("ミステリーボックスの取得失敗: %w", err)
	}
	return decodeRows(data, "mystery_boxes", mysteryBoxRow.toModel)
}

func (r *SupabaseEntitiesRepository) GetActiveDragons(ctx context.Context) ([]model.Dragon, error) {
	data, _, err := r.client.GetClient().From("dragons").
		Select("*", "exact", false).
		Eq("is_defeated", "false").
		Or(notExpiredFilter(r.now()), "").
		Execute()
	if err != nil {
		return nil, fmt.Errorf("ドラゴンの取得失敗: %w", err)
	}
	return decodeRows(data, "dragons", dragonRow.toModel)
}
