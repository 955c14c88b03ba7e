package tracker

import "math"

// 占座判定阈值
const (
	MinAccelThreshold = 0.015   // 轴向有效读数下限
	MaxAccelDiff      = 0.005   // 确认移动所需的增量
	MaxGravDiff       = 0.00025 // 模长与单轴近似相等时视为纯重力
	MinSpacingSeconds = 5       // 同一设备两次事件的最小间隔
	MinMovementCount  = 4       // 达到该迟滞计数后才开始累计坐姿
	MaxMovementCount  = 8
)

// SignalKind 占座信号的来源
type SignalKind int

const (
	SignalNone   SignalKind = iota
	SignalRising            // 单轴增量明确越过阈值
	SignalNoisy             // 多轴小增量叠加越过阈值
)

// Movement 移动分类结果
type Movement struct {
	IsOccupied bool
	Signal     SignalKind
}

// Magnitude 三轴合成加速度模长
func Magnitude(x, y, z float64) float64 {
	return math.Sqrt(x*x + y*y + z*z)
}

// AnalyzeMovement 根据前后两次加速度读数判定座位是否被占用。
// 输入均为绝对值；accel 为当前模长。
func AnalyzeMovement(accel, accelX, prevAccelX, accelY, prevAccelY, accelZ, prevAccelZ float64) Movement {
	xDiff := math.Abs(accelX - prevAccelX)
	yDiff := math.Abs(accelY - prevAccelY)
	zDiff := math.Abs(accelZ - prevAccelZ)

	axisXDiff := xDiff > 0
	axisYDiff := yDiff > 0
	axisZDiff := zDiff > 0

	axisX := accelX > MinAccelThreshold && axisXDiff
	axisY := accelY > MinAccelThreshold && axisYDiff
	axisZ := accelZ > MinAccelThreshold && axisZDiff

	// 候选A：至少两轴同时活跃（排除单轴独立活跃的情况）
	occupied := (axisX && axisY && axisZ) ||
		(axisX && axisY && !axisZ) ||
		(!axisX && axisY && axisZ) ||
		(axisX && !axisY && axisZ)
	signal := SignalNone

	if occupied {
		// 活跃轴中至少一轴的增量需要越过阈值
		occupied = xDiff > MaxAccelDiff || yDiff > MaxAccelDiff || zDiff > MaxAccelDiff
		signal = SignalRising
	} else {
		// 候选B：多轴小增量叠加
		occupied = (xDiff+yDiff+zDiff) > MaxAccelDiff &&
			((axisXDiff && axisYDiff && axisZDiff) ||
				(axisXDiff && axisYDiff) ||
				(axisXDiff && axisZDiff) ||
				(axisYDiff && axisZDiff))
		signal = SignalNoisy
	}

	// 静止的信标读数仍由重力主导：模长与某一轴近似相等时判为无人
	if occupied && (math.Abs(accel-accelX) < MaxGravDiff ||
		math.Abs(accel-accelY) < MaxGravDiff ||
		math.Abs(accel-accelZ) < MaxGravDiff) {
		occupied = false
	}

	return Movement{
		IsOccupied: occupied,
		Signal:     signal,
	}
}

// UpdateMoveCount 迟滞计数更新：占用时递增到上限，空闲时递减到 0
func UpdateMoveCount(moveCount int, isOccupied bool) int {
	if isOccupied {
		if moveCount >= MaxMovementCount {
			return MaxMovementCount
		}
		return moveCount + 1
	}
	if moveCount < 1 {
		return 0
	}
	return moveCount - 1
}
