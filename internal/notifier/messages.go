package notifier

import (
	"fmt"

	"github.com/ingeniumed/Sitsense/internal/models"
	"github.com/ingeniumed/Sitsense/internal/tracker"
)

// 附件颜色带
const (
	ColorGood   = "#00E500" // 坐姿占比 ≤40%
	ColorWarn   = "#FFFF00" // 41% ~ 70%
	ColorBad    = "#E50000" // >70%，以及警示类消息
	ColorWeekly = "#7F00FF" // 周一早晨的周报消息
)

// 颜色带以10小时工作日为分母
const workdaySeconds = 10 * 3600

// SitTimeColor 按坐姿时长占全工作日的比例选择颜色带
func SitTimeColor(sitSeconds int64) string {
	ratio := float64(sitSeconds) / float64(workdaySeconds)
	switch {
	case ratio <= 0.40:
		return ColorGood
	case ratio <= 0.70:
		return ColorWarn
	default:
		return ColorBad
	}
}

// DailyChartURL 日报图表的公开地址
func DailyChartURL(mediaBaseURL, imageID string, dayOfWeek, weekOfYear int) string {
	return fmt.Sprintf("%s/%s-%d-%d-daily.png", mediaBaseURL, imageID, dayOfWeek, weekOfYear)
}

// WeeklyChartURL 周报图表的公开地址
func WeeklyChartURL(mediaBaseURL, imageID string, weekOfYear int) string {
	return fmt.Sprintf("%s/%s-%d-weekly.png", mediaBaseURL, imageID, weekOfYear)
}

// WelcomeMessage 设备登记成功后的欢迎消息
func WelcomeMessage(state *models.BeaconState) (string, []Attachment) {
	text := "Welcome to SitSense!"
	attachments := []Attachment{
		{
			Color: ColorBad,
			Title: "Your beacon is paired",
			Text: fmt.Sprintf(
				"Beacon %s is now tracking how long you sit during work hours. You will get a summary at the end of each day.",
				state.DeviceID,
			),
		},
	}
	return text, attachments
}

// ContinuousSittingMessage 连续坐姿警示消息
func ContinuousSittingMessage(state *models.BeaconState) (string, []Attachment) {
	text := "Time to stretch your legs!"
	attachments := []Attachment{
		{
			Color: ColorBad,
			Title: "You have been sitting continuously for the last hour",
			Text: fmt.Sprintf(
				"You have been in your seat for %s without a real break. Get up and move around for a few minutes.",
				tracker.FormatSeconds(state.SitTime),
			),
		},
	}
	return text, attachments
}

// previousDaySit 前一个收盘日的坐姿时长。
// 日滚动在第N天将第N-1天的收盘写入桶，因此第N-1天的桶里
// 还留着第N-2天的收盘，正好用于对比。
func previousDaySit(state *models.BeaconState, dayOfWeek int) (int64, bool) {
	switch dayOfWeek {
	case 2:
		return state.WeekdaySitTimes[models.BucketFriday], true
	case 3:
		return state.WeekdaySitTimes[models.BucketMonday], true
	case 4:
		return state.WeekdaySitTimes[models.BucketTuesday], true
	case 5:
		return state.WeekdaySitTimes[models.BucketWednesday], true
	}
	return 0, false
}

// DailySummaryMessage 日滚动时发送的总结，使用重置前的状态快照
func DailySummaryMessage(snapshot *models.BeaconState, dayOfWeek, weekOfYear int, mediaBaseURL string) (string, []Attachment) {
	text := fmt.Sprintf("You sat for %s yesterday.", tracker.FormatSeconds(snapshot.SitTime))

	if prev, ok := previousDaySit(snapshot, dayOfWeek); ok && prev > 0 {
		diff := snapshot.SitTime - prev
		switch {
		case diff > 0:
			text += fmt.Sprintf(" That is %s more than the day before.", tracker.FormatSeconds(diff))
		case diff < 0:
			text += fmt.Sprintf(" That is %s less than the day before.", tracker.FormatSeconds(-diff))
		default:
			text += " That is the same as the day before."
		}
	}

	attachments := []Attachment{
		{
			Color:    SitTimeColor(snapshot.SitTime),
			Title:    "Your sitting pattern yesterday",
			ImageURL: DailyChartURL(mediaBaseURL, snapshot.ImageID, dayOfWeek, weekOfYear),
		},
	}
	return text, attachments
}

// WeeklySummaryMessage 周一早晨发送的上周总结
func WeeklySummaryMessage(state *models.BeaconState, weekOfYear int, mediaBaseURL string) (string, []Attachment) {
	text := fmt.Sprintf("Good morning! You sat for %s last week.", tracker.FormatSeconds(state.PrevWeekSitTime))

	if state.PrevPrevWeekSitTime > 0 {
		change := float64(state.PrevWeekSitTime-state.PrevPrevWeekSitTime) / float64(state.PrevPrevWeekSitTime) * 100
		switch {
		case change > 0:
			text += fmt.Sprintf(" That is up %.0f%% from the week before.", change)
		case change < 0:
			text += fmt.Sprintf(" That is down %.0f%% from the week before.", -change)
		default:
			text += " That is the same as the week before."
		}
	}

	attachments := []Attachment{
		{
			Color:    ColorWeekly,
			Title:    "Your week at a glance",
			ImageURL: WeeklyChartURL(mediaBaseURL, state.ImageID, weekOfYear),
		},
	}
	return text, attachments
}

// StatusAttachment /data 斜杠命令的即时状态卡片
func StatusAttachment(state *models.BeaconState) Attachment {
	text := fmt.Sprintf("You have been sitting for %s today.", tracker.FormatSeconds(state.SitTime))
	if state.GoalSitTime > 0 {
		text += fmt.Sprintf(" Your goal is to stay under %s.", tracker.FormatSeconds(int64(state.GoalSitTime)))
	}

	return Attachment{
		Color: SitTimeColor(state.SitTime),
		Title: fmt.Sprintf("Beacon %s", state.DeviceID),
		Text:  text,
	}
}

// StaleDeviceMessage 长期未上报设备的监控消息
func StaleDeviceMessage(state *models.BeaconState, daysSilent int) (string, []Attachment) {
	text := "Stale beacon detected"
	attachments := []Attachment{
		{
			Color: ColorBad,
			Title: fmt.Sprintf("Beacon %s", state.DeviceID),
			Text: fmt.Sprintf(
				"No telemetry from %s (%s) for %d days. Recommended action: Delete",
				state.DeviceID, state.Email, daysSilent,
			),
		},
	}
	return text, attachments
}
