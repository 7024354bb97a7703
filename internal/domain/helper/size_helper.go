package helper

import (
	"hash/fnv"
	"math"
	"unicode"

	"GeoDrop-App/internal/domain/model"
)

// ClampDimensions 基本サイズとアスペクト比（幅/高さ）から幅と高さを決める
// どちらの辺も MaxIconSize を超えない
func ClampDimensions(base int, aspect float64) (int, int) {
	if base > model.MaxIconSize {
		base = model.MaxIconSize
	}
	if base <= 0 {
		base = model.MinimalIconSize
	}
	if aspect <= 0 || math.IsNaN(aspect) || math.IsInf(aspect, 0) {
		aspect = 1
	}

	w := float64(base) * aspect
	h := float64(base)
	if w > model.MaxIconSize {
		scale := model.MaxIconSize / w
		w *= scale
		h *= scale
	}
	return int(math.Round(w)), int(math.Round(h))
}

// Initials 表示名からイニシャル（最大2文字）を作る
func Initials(name string) string {
	var out []rune
	takeNext := true
	for _, r := range name {
		if r == ' ' || r == '_' || r == '-' || r == '.' {
			takeNext = true
			continue
		}
		if takeNext {
			out = append(out, unicode.ToUpper(r))
			takeNext = false
			if len(out) == 2 {
				break
			}
		}
	}
	if len(out) == 0 {
		return "?"
	}
	return string(out)
}

// AvatarColor ユーザーIDから決定的に色を選ぶ
func AvatarColor(userID string) string {
	palette := []string{"#EF4444", "#F59E0B", "#10B981", "#3B82F6", "#8B5CF6", "#EC4899", "#14B8A6", "#F97316"}
	h := fnv.New32a()
	h.Write([]byte(userID))
	return palette[h.Sum32()%uint32(len(palette))]
}
