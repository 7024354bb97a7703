package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/url"
	"time"

	_ "github.com/lib/pq"
)

// PostgreSQLClient PostgreSQL直接接続クライアント（PostGIS検索用）
type PostgreSQLClient struct {
	DB *sql.DB
}

// PostgresConnString SupabaseのURLとDBパスワードから接続文字列を組み立てる
// https://xxx.supabase.co → host=db.xxx.supabase.co（ポート6543）
func PostgresConnString(supabaseURL, password string) (string, error) {
	u, err := url.Parse(supabaseURL)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("SUPABASE_URLの形式が不正です: %q", supabaseURL)
	}
	return fmt.Sprintf(
		"host=db.%s port=6543 user=postgres password=%s dbname=postgres sslmode=require",
		u.Hostname(), password,
	), nil
}

// NewPostgreSQLClient 新しいPostgreSQLクライアントを作成
func NewPostgreSQLClient(ctx context.Context, supabaseURL, password string) (*PostgreSQLClient, error) {
	if password == "" {
		return nil, fmt.Errorf("SUPABASE_DB_PASSWORDが設定されていません")
	}
	connStr, err := PostgresConnString(supabaseURL, password)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("PostgreSQL接続の初期化に失敗: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("PostgreSQLへの接続に失敗: %w", err)
	}

	log.Printf("✅ PostgreSQLに接続しました")
	return &PostgreSQLClient{
		DB: db,
	}, nil
}

// Close データベース接続を閉じる
func (pc *PostgreSQLClient) Close() error {
	if pc.DB != nil {
		return pc.DB.Close()
	}
	return nil
}

// HealthCheck データベース接続のヘルスチェック
func (pc *PostgreSQLClient) HealthCheck(ctx context.Context) error {
	if pc == nil || pc.DB == nil {
		return fmt.Errorf("PostgreSQLクライアントが初期化されていません")
	}
	return pc.DB.PingContext(ctx)
}
