package models

// DailyTime 每小时一条的坐姿采样点
type DailyTime struct {
	Time      int64 `json:"time"`      // 采样时刻（epoch秒）
	Sit       int64 `json:"sit"`       // 采样时累计的坐姿秒数
	Movements int   `json:"movements"` // 采样时的迟滞计数
}

// 工作日桶下标（Mon..Fri）
const (
	BucketMonday = iota
	BucketTuesday
	BucketWednesday
	BucketThursday
	BucketFriday
	BucketCount
)

// BeaconState 单个信标的完整状态（按 deviceId 持久化，读-改-写）
type BeaconState struct {
	DeviceID string `json:"deviceId"`
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	TeamID   string `json:"teamId"`
	AppToken string `json:"appToken"`
	BotToken string `json:"botToken"`
	ImageID  string `json:"imageId"` // 图表产物的关联标识

	RSSI   int     `json:"rssi"`
	Accel  float64 `json:"accel"` // 三轴合成加速度模长
	AccelX float64 `json:"accelX"`
	AccelY float64 `json:"accelY"`
	AccelZ float64 `json:"accelZ"`

	MoveCount    int   `json:"moveCount"`    // 迟滞计数 [0, MaxMovementCount]
	SitTime      int64 `json:"sitTime"`      // 自上次重置以来的坐姿秒数
	DailySitTime int64 `json:"dailySitTime"` // 本周累计（周一滚动时清零）
	NotifyCount  int64 `json:"notifyCount"`  // 上次连续坐姿提醒时的 sitTime

	WeekdaySitTimes [BucketCount]int64 `json:"weekdaySitTimes"` // Mon..Fri 各日收盘值

	PrevWeekSitTime     int64 `json:"prevWeekSitTime"`
	PrevPrevWeekSitTime int64 `json:"prevPrevWeekSitTime"`

	AvgSitTime  float64 `json:"avgSitTime"`  // 历史滑动平均
	GoalSitTime float64 `json:"goalSitTime"` // 个人最优基线（只降不升）

	FirstDayNotify   bool  `json:"firstDayNotify"` // 日滚动已完成一轮通知
	LastNotification int64 `json:"lastNotification"`
	UpdatedAt        int64 `json:"updatedAt"`

	DailyTimes []DailyTime `json:"dailyTimes"`
}

// Report 周报（按团队导出）
type Report struct {
	Email         string  `json:"email"`
	TeamID        string  `json:"teamId"`
	WeeklySitTime string  `json:"weeklySitTime"` // 已格式化的坐姿时长，如 "6h 12m"
	DailyAverage  float64 `json:"dailyAverage"`
	WeekNumber    int     `json:"weekNumber"`
}

// TimeVault 重置时归档的每日采样
type TimeVault struct {
	Email      string      `json:"email"`
	TeamID     string      `json:"teamId"`
	UserID     string      `json:"userId"`
	DailyTimes []DailyTime `json:"dailyTimes"`
	WeekNumber int         `json:"weekNumber"`
	DayNumber  int         `json:"dayNumber"`
}

// SlackToken 团队的Slack凭证
type SlackToken struct {
	TeamName string `json:"teamName"`
	TeamID   string `json:"teamId"`
	AppToken string `json:"appToken"`
	BotToken string `json:"botToken"`
}
