package repository

import (
	"fmt"
	"time"

	"GeoDrop-App/internal/domain/model"
)

// questRow quests テーブルの行
type questRow struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	Location       *GeoPoint  `json:"location"`
	Latitude       *float64   `json:"latitude"`
	Longitude      *float64   `json:"longitude"`
	QuestType      string     `json:"quest_type"`
	RadiusMeters   float64    `json:"radius_meters"`
	RewardPoints   int        `json:"reward_points"`
	Difficulty     string     `json:"difficulty"`
	EventStartDate *time.Time `json:"event_start_date"`
	EndDate        *time.Time `json:"end_date"`
}

func (r questRow) toModel() (model.Quest, error) {
	questType, err := model.ParseQuestType(r.QuestType)
	if err != nil {
		return model.Quest{}, fmt.Errorf("クエスト %s: %w", r.ID, err)
	}
	lat, lng := resolvePosition(r.Location, r.Latitude, r.Longitude)
	return model.Quest{
		ID:             r.ID,
		Title:          r.Title,
		Latitude:       lat,
		Longitude:      lng,
		QuestType:      questType,
		RadiusMeters:   r.RadiusMeters,
		RewardPoints:   r.RewardPoints,
		Difficulty:     r.Difficulty,
		EventStartDate: r.EventStartDate,
		EndDate:        r.EndDate,
	}, nil
}

// treasureChestRow treasure_chests テーブルの行
type treasureChestRow struct {
	ID           string     `json:"id"`
	Location     *GeoPoint  `json:"location"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	Size         string     `json:"size"`
	RewardPoints int        `json:"reward_points"`
	IsCollected  bool       `json:"is_collected"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (r treasureChestRow) toModel() (model.TreasureChest, error) {
	size, err := model.ParseChestSize(r.Size)
	if err != nil {
		return model.TreasureChest{}, fmt.Errorf("宝箱 %s: %w", r.ID, err)
	}
	lat, lng := resolvePosition(r.Location, r.Latitude, r.Longitude)
	return model.TreasureChest{
		ID:           r.ID,
		Latitude:     lat,
		Longitude:    lng,
		Size:         size,
		RewardPoints: r.RewardPoints,
		IsCollected:  r.IsCollected,
		ExpiresAt:    r.ExpiresAt,
	}, nil
}

// mysteryBoxRow mystery_boxes テーブルの行
type mysteryBoxRow struct {
	ID          string     `json:"id"`
	Location    *GeoPoint  `json:"location"`
	Latitude    *float64   `json:"latitude"`
	Longitude   *float64   `json:"longitude"`
	Tier        string     `json:"tier"`
	IsCollected bool       `json:"is_collected"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

func (r mysteryBoxRow) toModel() (model.MysteryBox, error) {
	tier, err := model.ParseBoxTier(r.Tier)
	if err != nil {
		return model.MysteryBox{}, fmt.Errorf("ミステリーボックス %s: %w", r.ID, err)
	}
	lat, lng := resolvePosition(r.Location, r.Latitude, r.Longitude)
	return model.MysteryBox{
		ID:          r.ID,
		Latitude:    lat,
		Longitude:   lng,
		Tier:        tier,
		IsCollected: r.IsCollected,
		ExpiresAt:   r.ExpiresAt,
	}, nil
}

// dragonRow dragons テーブルの行
type dragonRow struct {
	ID           string     `json:"id"`
	Location     *GeoPoint  `json:"location"`
	Latitude     *float64   `json:"latitude"`
	Longitude    *float64   `json:"longitude"`
	Size         string     `json:"size"`
	Health       int        `json:"health"`
	RewardPoints int        `json:"reward_points"`
	IsDefeated   bool       `json:"is_defeated"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

func (r dragonRow) toModel() (model.Dragon, error) {
	size, err := model.ParseDragonSize(r.Size)
	if err != nil {
		return model.Dragon{}, fmt.Errorf("ドラゴン %s: %w", r.ID, err)
	}
	lat, lng := resolvePosition(r.Location, r.Latitude, r.Longitude)
	return model.Dragon{
		ID:           r.ID,
		Latitude:     lat,
		Longitude:    lng,
		Size:         size,
		Health:       r.Health,
		RewardPoints: r.RewardPoints,
		IsDefeated:   r.IsDefeated,
		ExpiresAt:    r.ExpiresAt,
	}, nil
}
