package repository

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"GeoDrop-App/internal/domain/model"
	"GeoDrop-App/internal/domain/repository"
)

// FirestoreProfileRepository users/{id} とフォロー中ユーザーの位置を Firestore から取得する
type FirestoreProfileRepository struct {
	client *firestore.Client
}

func NewFirestoreProfileRepository(client *firestore.Client) repository.ProfileRepository {
	return &FirestoreProfileRepository{
		client: client,
	}
}

// GetProfile ユーザープロフィールを取得。ドキュメントがなければ ID だけのプロフィールを返す
func (r *FirestoreProfileRepository) GetProfile(ctx context.Context, userID string) (*model.UserProfile, error) {
	if userID == "" {
		return &model.UserProfile{}, nil
	}

	doc, err := r.client.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			log.Printf("⚠️ プロフィールが見つかりません: %s", userID)
			return &model.UserProfile{UserID: userID}, nil
		}
		return nil, fmt.Errorf("プロフィールの取得に失敗しました: %w", err)
	}

	var profile model.UserProfile
	if err := doc.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("プロフィールの変換に失敗しました: %w", err)
	}
	if profile.UserID == "" {
		profile.UserID = doc.Ref.ID
	}
	return &profile, nil
}

// GetFollowedUsers users/{id}/followedLocations の位置一覧
func (r *FirestoreProfileRepository) GetFollowedUsers(ctx context.Context, userID string) ([]model.FollowedUser, error) {
	if userID == "" {
		return nil, nil
	}

	docs, err := r.client.Collection("users").Doc(userID).Collection("followedLocations").Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("フォロー中ユーザーの取得に失敗しました: %w", err)
	}

	users := make([]model.FollowedUser, 0, len(docs))
	for _, doc := range docs {
		var u model.FollowedUser
		if err := doc.DataTo(&u); err != nil {
			log.Printf("⚠️ フォロー中ユーザー %s を除外しました: %v", doc.Ref.ID, err)
			continue
		}
		if u.UserID == "" {
			u.UserID = doc.Ref.ID
		}
		users = append(users, u)
	}
	return users, nil
}
