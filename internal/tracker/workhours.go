package tracker

import "time"

// WorkHourDetails 事件时刻的工作时间视图
type WorkHourDetails struct {
	IsDuringWorkHours bool
	DayOfWeek         int // 0=Sunday .. 6=Saturday
	CurrentTime       int64
	WeekOfYear        int
}

// GetWorkHourDetails 计算工作时间视图。
// 工作窗口为周一至周五 08:00–19:00。
func GetWorkHourDetails(now time.Time) WorkHourDetails {
	hour := now.Hour()
	day := int(now.Weekday())
	isDuringWorkHours := hour >= 8 && hour < 19 && day != 0 && day != 6

	return WorkHourDetails{
		IsDuringWorkHours: isDuringWorkHours,
		DayOfWeek:         day,
		CurrentTime:       now.Unix(),
		WeekOfYear:        weekOfYear(now),
	}
}

// weekOfYear 以周日为一周起点的年内周序号（1起）
func weekOfYear(t time.Time) int {
	yearStart := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, t.Location())
	offset := int(yearStart.Weekday())
	return (t.YearDay()+offset-1)/7 + 1
}

// TooSoon 同一设备两次事件间隔过小，视为重复事件丢弃
func TooSoon(lastUpdated, currentTime int64) bool {
	return currentTime-lastUpdated <= MinSpacingSeconds
}

// IsWeeklyBoundary 周滚动：周一且上一个工作日已完成日滚动
func IsWeeklyBoundary(wh WorkHourDetails, firstDayNotify bool) bool {
	return wh.DayOfWeek == 1 && firstDayNotify
}

// IsDailyBoundary 日滚动：非周一且距上次更新已超过 10 小时
func IsDailyBoundary(wh WorkHourDetails, updatedAt int64) bool {
	return wh.DayOfWeek != 1 && float64(abs64(updatedAt-wh.CurrentTime))/3600 >= 10
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
