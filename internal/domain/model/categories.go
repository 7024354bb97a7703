package model

import (
	"fmt"
	"strings"
)

// CategoryStyle カテゴリごとのアイコンと色
type CategoryStyle struct {
	Icon   string
	Color  string
	Aspect float64 // 幅 / 高さ
}

// VideoCategory 動画（ジェム）のカテゴリ
type VideoCategory string

const (
	VideoCategoryAdventure VideoCategory = "adventure"
	VideoCategoryFood      VideoCategory = "food"
	VideoCategoryMusic     VideoCategory = "music"
	VideoCategoryNature    VideoCategory = "nature"
	VideoCategoryNightlife VideoCategory = "nightlife"
	VideoCategorySports    VideoCategory = "sports"
	VideoCategoryArt       VideoCategory = "art"
	VideoCategoryComedy    VideoCategory = "comedy"
)

var videoCategoryStyles = map[VideoCategory]CategoryStyle{
	VideoCategoryAdventure: {Icon: "gem_emerald", Color: "#10B981", Aspect: 0.8},
	VideoCategoryFood:      {Icon: "gem_topaz", Color: "#F59E0B", Aspect: 0.8},
	VideoCategoryMusic:     {Icon: "gem_amethyst", Color: "#8B5CF6", Aspect: 0.8},
	VideoCategoryNature:    {Icon: "gem_jade", Color: "#22C55E", Aspect: 0.8},
	VideoCategoryNightlife: {Icon: "gem_sapphire", Color: "#3B82F6", Aspect: 0.8},
	VideoCategorySports:    {Icon: "gem_ruby", Color: "#EF4444", Aspect: 0.8},
	VideoCategoryArt:       {Icon: "gem_rose_quartz", Color: "#EC4899", Aspect: 0.8},
	VideoCategoryComedy:    {Icon: "gem_citrine", Color: "#EAB308", Aspect: 0.8},
}

// ParseVideoCategory 文字列から動画カテゴリを取得する。未知のカテゴリはエラー
func ParseVideoCategory(s string) (VideoCategory, error) {
	c := VideoCategory(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := videoCategoryStyles[c]; !ok {
		return "", fmt.Errorf("動画カテゴリ %q: %w", s, ErrUnknownCategory)
	}
	return c, nil
}

// Style カテゴリのスタイルを返す
func (c VideoCategory) Style() (CategoryStyle, bool) {
	s, ok := videoCategoryStyles[c]
	return s, ok
}

// QuestType クエストの種類
type QuestType string

const (
	QuestTypeExploration QuestType = "exploration"
	QuestTypeSocial      QuestType = "social"
	QuestTypeCollection  QuestType = "collection"
	QuestTypeEvent       QuestType = "event"
)

var questTypeStyles = map[QuestType]CategoryStyle{
	QuestTypeExploration: {Icon: "quest_compass", Color: "#0EA5E9", Aspect: 1},
	QuestTypeSocial:      {Icon: "quest_people", Color: "#F97316", Aspect: 1},
	QuestTypeCollection:  {Icon: "quest_bag", Color: "#A855F7", Aspect: 1},
	QuestTypeEvent:       {Icon: "quest_star", Color: "#E11D48", Aspect: 1},
}

// ParseQuestType 文字列からクエスト種別を取得する
func ParseQuestType(s string) (QuestType, error) {
	t := QuestType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := questTypeStyles[t]; !ok {
		return "", fmt.Errorf("クエスト種別 %q: %w", s, ErrUnknownCategory)
	}
	return t, nil
}

// Style クエスト種別のスタイルを返す
func (t QuestType) Style() (CategoryStyle, bool) {
	s, ok := questTypeStyles[t]
	return s, ok
}

// ChestSize 宝箱のサイズ
type ChestSize string

const (
	ChestSizeSmall  ChestSize = "small"
	ChestSizeMedium ChestSize = "medium"
	ChestSizeLarge  ChestSize = "large"
)

var chestSizeStyles = map[ChestSize]CategoryStyle{
	ChestSizeSmall:  {Icon: "chest_wood", Color: "#A16207", Aspect: 1},
	ChestSizeMedium: {Icon: "chest_silver", Color: "#94A3B8", Aspect: 1.2},
	ChestSizeLarge:  {Icon: "chest_gold", Color: "#FACC15", Aspect: 1.4},
}

// ParseChestSize 文字列から宝箱サイズを取得する
func ParseChestSize(s string) (ChestSize, error) {
	c := ChestSize(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := chestSizeStyles[c]; !ok {
		return "", fmt.Errorf("宝箱サイズ %q: %w", s, ErrUnknownCategory)
	}
	return c, nil
}

// Style 宝箱サイズのスタイルを返す
func (c ChestSize) Style() (CategoryStyle, bool) {
	s, ok := chestSizeStyles[c]
	return s, ok
}

// BoxTier ミステリーボックスのレア度
type BoxTier string

const (
	BoxTierCommon    BoxTier = "common"
	BoxTierRare      BoxTier = "rare"
	BoxTierEpic      BoxTier = "epic"
	BoxTierLegendary BoxTier = "legendary"
)

var boxTierStyles = map[BoxTier]CategoryStyle{
	BoxTierCommon:    {Icon: "box_common", Color: "#9CA3AF", Aspect: 1},
	BoxTierRare:      {Icon: "box_rare", Color: "#3B82F6", Aspect: 1},
	BoxTierEpic:      {Icon: "box_epic", Color: "#A855F7", Aspect: 1},
	BoxTierLegendary: {Icon: "box_legendary", Color: "#F59E0B", Aspect: 1},
}

// ParseBoxTier 文字列からレア度を取得する
func ParseBoxTier(s string) (BoxTier, error) {
	t := BoxTier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := boxTierStyles[t]; !ok {
		return "", fmt.Errorf("ミステリーボックスのレア度 %q: %w", s, ErrUnknownCategory)
	}
	return t, nil
}

// Style レア度のスタイルを返す
func (t BoxTier) Style() (CategoryStyle, bool) {
	s, ok := boxTierStyles[t]
	return s, ok
}

// DragonSize ドラゴンのサイズ
type DragonSize string

const (
	DragonSizeSmall  DragonSize = "small"
	DragonSizeMedium DragonSize = "medium"
	DragonSizeLarge  DragonSize = "large"
)

var dragonSizeStyles = map[DragonSize]CategoryStyle{
	DragonSizeSmall:  {Icon: "dragon_whelp", Color: "#16A34A", Aspect: 1.5},
	DragonSizeMedium: {Icon: "dragon_drake", Color: "#DC2626", Aspect: 1.5},
	DragonSizeLarge:  {Icon: "dragon_elder", Color: "#7C3AED", Aspect: 1.5},
}

// ParseDragonSize 文字列からドラゴンのサイズを取得する
func ParseDragonSize(s string) (DragonSize, error) {
	d := DragonSize(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := dragonSizeStyles[d]; !ok {
		return "", fmt.Errorf("ドラゴンのサイズ %q: %w", s, ErrUnknownCategory)
	}
	return d, nil
}

// Style ドラゴンサイズのスタイルを返す
func (d DragonSize) Style() (CategoryStyle, bool) {
	s, ok := dragonSizeStyles[d]
	return s, ok
}
