package tracker

import (
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
)

// 连续坐姿提醒参数
const (
	continuousWindowSeconds = 3600 // 每累计约一小时检查一次
	continuousSitRatio      = 0.75 // 坐姿时长与墙钟时长的最小占比
)

// Tracker 坐姿时间累计器。所有转移均为纯函数：
// (旧状态, 事件, 工作时间视图) → (新状态, 副作用请求)。
type Tracker struct {
	logger *zap.Logger
}

// New 创建累计器
func New(logger *zap.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// NewBeaconState 首次发现设备时构造初始状态（身份解析由调用方完成）
func (t *Tracker) NewBeaconState(event *models.TelemetryEvent, tags Tags, wh WorkHourDetails) models.BeaconState {
	accelX := math.Abs(event.AccelerationX)
	accelY := math.Abs(event.AccelerationY)
	accelZ := math.Abs(event.AccelerationZ)

	return models.BeaconState{
		DeviceID:         event.DeviceID,
		Email:            tags.Email,
		TeamID:           tags.TeamID,
		ImageID:          uuid.NewString(),
		RSSI:             event.RSSI,
		Accel:            Magnitude(accelX, accelY, accelZ),
		AccelX:           accelX,
		AccelY:           accelY,
		AccelZ:           accelZ,
		UpdatedAt:        wh.CurrentTime,
		LastNotification: wh.CurrentTime,
	}
}

// Transition 处理一个遥测事件并产生新状态与副作用请求。
// 事件命中周/日滚动边界时被边界转移完全消费，跳过常规累计。
func (t *Tracker) Transition(prior models.BeaconState, event *models.TelemetryEvent, wh WorkHourDetails) (models.BeaconState, []models.SideEffect) {
	result := prior
	result.DailyTimes = append([]models.DailyTime(nil), prior.DailyTimes...)

	timeDiff := wh.CurrentTime - prior.UpdatedAt

	accelX := math.Abs(event.AccelerationX)
	accelY := math.Abs(event.AccelerationY)
	accelZ := math.Abs(event.AccelerationZ)
	accel := Magnitude(accelX, accelY, accelZ)

	result.RSSI = event.RSSI

	var effects []models.SideEffect
	boundaryHit := false

	t.logger.Debug("New movement detected",
		zap.String("device_id", result.DeviceID),
		zap.Float64("accel", accel),
		zap.Float64("accel_x", accelX),
		zap.Float64("accel_y", accelY),
		zap.Float64("accel_z", accelZ),
	)

	switch {
	case IsWeeklyBoundary(wh, prior.FirstDayNotify):
		// 周滚动：归档上周总量并重置
		result.FirstDayNotify = false
		result.PrevPrevWeekSitTime = result.PrevWeekSitTime
		result.PrevWeekSitTime = result.DailySitTime + result.SitTime
		result = t.reset(result, wh, accel, accelX, accelY, accelZ, &effects)
		result.DailySitTime = 0
		effects = append(effects, models.CreateWeeklyReport{
			Report: models.Report{
				Email:         result.Email,
				TeamID:        result.TeamID,
				WeekNumber:    wh.WeekOfYear,
				WeeklySitTime: FormatSeconds(result.PrevWeekSitTime),
				DailyAverage:  float64(result.PrevWeekSitTime) / 5,
			},
		})
		effects = append(effects, models.RenderChart{
			Kind:       models.ChartWeekly,
			Snapshot:   result,
			DayOfWeek:  wh.DayOfWeek,
			WeekOfYear: wh.WeekOfYear,
		})
		boundaryHit = true
		t.logger.Info("Week ended",
			zap.String("device_id", result.DeviceID),
			zap.Int64("prev_week_sit_time", result.PrevWeekSitTime),
			zap.Int64("prev_prev_week_sit_time", result.PrevPrevWeekSitTime),
		)

	case IsDailyBoundary(wh, prior.UpdatedAt):
		// 日滚动：日报使用重置前的快照
		result.FirstDayNotify = true
		result.DailySitTime += result.SitTime
		effects = append(effects, models.RenderChart{
			Kind:       models.ChartDaily,
			Snapshot:   result,
			DayOfWeek:  wh.DayOfWeek,
			WeekOfYear: wh.WeekOfYear,
		})
		result = t.reset(result, wh, accel, accelX, accelY, accelZ, &effects)
		boundaryHit = true
		t.logger.Info("Day ended",
			zap.String("device_id", result.DeviceID),
			zap.Int64("daily_sit_time", result.DailySitTime),
		)
	}

	if !boundaryHit {
		movement := AnalyzeMovement(accel, accelX, prior.AccelX, accelY, prior.AccelY, accelZ, prior.AccelZ)

		result.Accel = accel
		result.AccelX = accelX
		result.AccelY = accelY
		result.AccelZ = accelZ
		result.UpdatedAt = wh.CurrentTime
		result.MoveCount = UpdateMoveCount(result.MoveCount, movement.IsOccupied)

		t.logger.Debug("Occupancy status",
			zap.String("device_id", result.DeviceID),
			zap.Bool("is_occupied", movement.IsOccupied),
			zap.Int("signal", int(movement.Signal)),
			zap.Int("move_count", result.MoveCount),
			zap.Int64("time_diff", timeDiff),
		)

		if result.MoveCount >= MinMovementCount {
			result.SitTime += timeDiff
			result = t.trackContinuousSitTime(result, wh.CurrentTime, &effects)
		}

		result = t.trackContinuousDailyTime(result, wh.CurrentTime)
	}

	effects = append(effects, models.PersistState{State: result})
	return result, effects
}

// reset 重置过程：归档当前工作日桶与每日采样，更新均值与目标，清零计数。
// 工作日桶映射刻意偏移一天：在第N天检测到的重置对应第N-1天的收盘。
func (t *Tracker) reset(result models.BeaconState, wh WorkHourDetails, accel, accelX, accelY, accelZ float64, effects *[]models.SideEffect) models.BeaconState {
	*effects = append(*effects, models.ArchiveTimeVault{
		Vault: models.TimeVault{
			Email:      result.Email,
			TeamID:     result.TeamID,
			UserID:     result.UserID,
			DailyTimes: result.DailyTimes,
			WeekNumber: wh.WeekOfYear,
			DayNumber:  wh.DayOfWeek,
		},
	})

	result = archiveWeekdayBucket(result, wh.DayOfWeek)

	if result.AvgSitTime != 0 {
		result.AvgSitTime = (result.AvgSitTime + float64(result.SitTime)) / 2
	} else {
		result.AvgSitTime = float64(result.SitTime)
	}
	t.logger.Debug("Updated average sit time",
		zap.String("device_id", result.DeviceID),
		zap.Float64("avg_sit_time", result.AvgSitTime),
	)

	// 目标基线只降不升
	if result.GoalSitTime == 0 || result.AvgSitTime < result.GoalSitTime {
		result.GoalSitTime = result.AvgSitTime
	}

	result.MoveCount = 0
	result.SitTime = 0
	result.NotifyCount = 0
	result.LastNotification = wh.CurrentTime
	result.UpdatedAt = wh.CurrentTime
	result.Accel = accel
	result.AccelX = accelX
	result.AccelY = accelY
	result.AccelZ = accelZ
	result.DailyTimes = nil

	if result.ImageID == "" {
		result.ImageID = uuid.NewString()
	}

	return result
}

// archiveWeekdayBucket 将当前 sitTime 写入前一个工作日的桶
func archiveWeekdayBucket(result models.BeaconState, dayOfWeek int) models.BeaconState {
	switch dayOfWeek {
	case 1:
		result.WeekdaySitTimes[models.BucketFriday] = result.SitTime
	case 2:
		result.WeekdaySitTimes[models.BucketMonday] = result.SitTime
	case 3:
		result.WeekdaySitTimes[models.BucketTuesday] = result.SitTime
	case 4:
		result.WeekdaySitTimes[models.BucketWednesday] = result.SitTime
	case 5:
		result.WeekdaySitTimes[models.BucketThursday] = result.SitTime
	}
	return result
}

// trackContinuousSitTime 连续坐姿提醒判定。
// 每累计约一小时检查一次；仅当坐姿时长占墙钟时长的比例达标时发出提醒，
// 避免稀疏累积的坐姿触发误报。无论是否提醒都推进检查点。
func (t *Tracker) trackContinuousSitTime(result models.BeaconState, currentTime int64, effects *[]models.SideEffect) models.BeaconState {
	if abs64(result.SitTime-result.NotifyCount) < continuousWindowSeconds {
		return result
	}

	wallClock := abs64(result.LastNotification - currentTime)
	ratio := math.Inf(1)
	if wallClock > 0 {
		ratio = float64(result.SitTime) / float64(wallClock)
	}

	if ratio >= continuousSitRatio {
		t.logger.Info("Continuous sit time threshold crossed",
			zap.String("device_id", result.DeviceID),
			zap.Float64("ratio", ratio),
		)
		*effects = append(*effects, models.NotifyContinuousSitting{Snapshot: result})
	} else {
		t.logger.Debug("Sit time ratio below threshold",
			zap.String("device_id", result.DeviceID),
			zap.Float64("ratio", ratio),
		)
	}

	result.LastNotification = currentTime
	result.NotifyCount = result.SitTime
	return result
}

// trackContinuousDailyTime 每小时最多记录一个采样点，严格按时间序追加
func (t *Tracker) trackContinuousDailyTime(result models.BeaconState, currentTime int64) models.BeaconState {
	sample := models.DailyTime{
		Time:      currentTime,
		Sit:       result.SitTime,
		Movements: result.MoveCount,
	}

	if len(result.DailyTimes) == 0 {
		result.DailyTimes = append(result.DailyTimes, sample)
		return result
	}

	latest := result.DailyTimes[len(result.DailyTimes)-1]
	if abs64(currentTime-latest.Time) >= 3600 {
		result.DailyTimes = append(result.DailyTimes, sample)
	}

	return result
}
