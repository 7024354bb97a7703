package firestore

import (
	"context"
	"fmt"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
)

// FirestoreClient プロフィールとフォロー中ユーザーの位置を読むためのクライアント
type FirestoreClient struct {
	client *firestore.Client
}

// ClientOptions 認証情報ファイルがあれば使い、なければデフォルト認証にする
func ClientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	if _, err := os.Stat(credentialsFile); err != nil {
		log.Printf("⚠️ 認証情報ファイルが見つかりません: %s（デフォルト認証を使用）", credentialsFile)
		return nil
	}
	log.Printf("📄 認証情報ファイルを使用: %s", credentialsFile)
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}

// NewFirestoreClient Firestoreクライアントを作成
func NewFirestoreClient(ctx context.Context, projectID, credentialsFile string) (*FirestoreClient, error) {
	if projectID == "" {
		return nil, fmt.Errorf("FIRESTORE_PROJECT_IDが設定されていません")
	}

	client, err := firestore.NewClient(ctx, projectID, ClientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("Firestoreクライアントの作成に失敗: %w", err)
	}
	log.Printf("✅ Firestoreクライアントを初期化しました: %s", projectID)
	return &FirestoreClient{client: client}, nil
}

func (fc *FirestoreClient) Close() error {
	return fc.client.Close()
}

func (fc *FirestoreClient) GetClient() *firestore.Client {
	return fc.client
}
