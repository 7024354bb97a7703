package helper

import (
	"fmt"
	"time"
)

// CountdownStyle 期限切れ・直前の表示文言
type CountdownStyle struct {
	Terminal string // 残り時間が0以下
	Soon     string // 1時間未満
}

var (
	ExpiryCountdown = CountdownStyle{Terminal: "Expired", Soon: "ending soon"}
	StartCountdown  = CountdownStyle{Terminal: "Live", Soon: "starting soon"}
	EndCountdown    = CountdownStyle{Terminal: "Ended", Soon: "ending soon"}
)

const day = 24 * time.Hour

// FormatCountdown 残り時間を最も粗い単位で表す（月→週→日→時間）
func FormatCountdown(target, now time.Time, style CountdownStyle) string {
	remaining := target.Sub(now)
	if remaining <= 0 {
		return style.Terminal
	}

	days := int(remaining / day)
	switch {
	case days >= 30:
		return plural(days/30, "month")
	case days >= 7:
		return plural(days/7, "week")
	case days >= 1:
		return plural(days, "day")
	case remaining >= time.Hour:
		return plural(int(remaining/time.Hour), "hour")
	default:
		return style.Soon
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
