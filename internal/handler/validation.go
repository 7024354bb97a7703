package handler

import (
	"GeoDrop-App/internal/domain/helper"
	"GeoDrop-App/internal/domain/model"
)

// ValidationError 入力値の検証エラー
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// validateLocation 緯度経度の範囲チェック
func validateLocation(loc *model.Location) error {
	if loc.Latitude < -90 || loc.Latitude > 90 {
		return &ValidationError{Field: "latitude", Message: "緯度は-90から90の範囲で指定してください"}
	}
	if loc.Longitude < -180 || loc.Longitude > 180 {
		return &ValidationError{Field: "longitude", Message: "経度は-180から180の範囲で指定してください"}
	}
	if !helper.ValidCoordinates(loc.ToLatLng()) {
		return &ValidationError{Field: "latitude", Message: "位置情報が無効です"}
	}
	return nil
}

// validateEntityRef 種別とIDのチェック
func validateEntityRef(class, id string) (model.EntityRef, error) {
	parsed, err := model.ParseEntityClass(class)
	if err != nil {
		return model.EntityRef{}, &ValidationError{Field: "class", Message: "未知のエンティティ種別です: " + class}
	}
	if id == "" {
		return model.EntityRef{}, &ValidationError{Field: "id", Message: "IDは必須です"}
	}
	return model.EntityRef{Class: parsed, ID: id}, nil
}
