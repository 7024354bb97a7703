package model

import "errors"

var (
	// ErrSurfaceUnavailable 地図ウィジェットが存在しない
	ErrSurfaceUnavailable = errors.New("地図ウィジェットが利用できません")
	// ErrUnknownCategory 未知のカテゴリ文字列
	ErrUnknownCategory = errors.New("未知のカテゴリです")
	// ErrInvalidCoordinates 座標が欠けている、または範囲外
	ErrInvalidCoordinates = errors.New("座標が無効です")
	// ErrUnknownEntityClass 未知のエンティティ種別
	ErrUnknownEntityClass = errors.New("未知のエンティティ種別です")
	// ErrLocationUnavailable 現在地がまだ取得できていない
	ErrLocationUnavailable = errors.New("現在地が取得できていません")
	// ErrStaleResponse 新しいレスポンスが既に反映済み
	ErrStaleResponse = errors.New("古いレスポンスのため破棄しました")
)
