package tracker

import "fmt"

// FormatSeconds 将秒数格式化为 "1h 5m" / "42m" / "8s" 形式
func FormatSeconds(secs int64) string {
	minutes := secs / 60
	secs %= 60
	hours := minutes / 60
	minutes %= 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%ds", secs)
}
