package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort                = "8080"
	defaultPollIntervalSeconds = 30
	defaultNearbyRadiusMeters  = 5000
)

// Config 環境変数から読み込むアプリケーション設定
type Config struct {
	GoogleMapsAPIKey string
	GoogleMapsMapID  string

	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseDBPassword string

	FirestoreProjectID       string
	FirestoreCredentialsFile string

	UserID             string
	AllowedOrigins     []string // 地図ウィジェットの接続を許可するオリジン。空なら全て許可
	Port               string
	PollInterval       time.Duration
	NearbyRadiusMeters int
}

// VideosEnabled PostGISへの直接接続で動画を取得できるか
func (c *Config) VideosEnabled() bool {
	return c.SupabaseDBPassword != ""
}

// ProfileEnabled Firestore からプロフィールを取得できるか
func (c *Config) ProfileEnabled() bool {
	return c.FirestoreProjectID != ""
}

// Load .env と環境変数から設定を読み込む
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env ファイルが見つかりません。システムの環境変数を使用します")
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup 任意の参照関数から設定を組み立てる。必須項目が欠けていればすべて列挙して返す
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return strings.TrimSpace(v)
	}

	var missing []string
	required := func(key string) string {
		v := get(key)
		if v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := &Config{
		GoogleMapsAPIKey:         required("GOOGLE_MAPS_API_KEY"),
		GoogleMapsMapID:          get("GOOGLE_MAPS_MAP_ID"),
		SupabaseURL:              required("SUPABASE_URL"),
		SupabaseAnonKey:          required("SUPABASE_ANON_KEY"),
		SupabaseDBPassword:       get("SUPABASE_DB_PASSWORD"),
		FirestoreProjectID:       get("FIRESTORE_PROJECT_ID"),
		FirestoreCredentialsFile: get("GOOGLE_APPLICATION_CREDENTIALS"),
		UserID:                   get("GEODROP_USER_ID"),
		AllowedOrigins:           splitList(get("GEODROP_ALLOWED_ORIGINS")),
		Port:                     get("PORT"),
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("必要な環境変数が設定されていません: %s", strings.Join(missing, ", "))
	}
	if cfg.Port == "" {
		cfg.Port = defaultPort
	}

	seconds, err := positiveInt(get("GEODROP_POLL_INTERVAL_SECONDS"), defaultPollIntervalSeconds)
	if err != nil {
		return nil, fmt.Errorf("GEODROP_POLL_INTERVAL_SECONDS が不正です: %w", err)
	}
	cfg.PollInterval = time.Duration(seconds) * time.Second

	cfg.NearbyRadiusMeters, err = positiveInt(get("GEODROP_NEARBY_RADIUS_METERS"), defaultNearbyRadiusMeters)
	if err != nil {
		return nil, fmt.Errorf("GEODROP_NEARBY_RADIUS_METERS が不正です: %w", err)
	}
	return cfg, nil
}

func positiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("正の整数である必要があります: %d", n)
	}
	return n, nil
}

// splitList カンマ区切りの値を分割し、空要素を除く
func splitList(raw string) []string {
	var out []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
