package models

import "errors"

// 副作用执行的失败类别。持久化失败需要重试，投递失败只记录。
var (
	ErrPersistence = errors.New("persistence failure")
	ErrDelivery    = errors.New("delivery failure")
)

// ChartKind 图表类型
type ChartKind string

const (
	ChartDaily  ChartKind = "daily"
	ChartWeekly ChartKind = "weekly"
)

// SideEffect 状态转移产生的副作用请求，由外部协作者执行。
// 核心只构造请求，不做任何 I/O。
type SideEffect interface {
	sideEffect()
}

// PersistState 将新状态写回存储
type PersistState struct {
	State BeaconState
}

// CreateWeeklyReport 创建周报记录
type CreateWeeklyReport struct {
	Report Report
}

// ArchiveTimeVault 归档重置前的每日采样
type ArchiveTimeVault struct {
	Vault TimeVault
}

// RenderChart 渲染图表并发送对应的日报/周报消息。
// Snapshot 是渲染时刻的状态快照：日报使用重置前的值。
type RenderChart struct {
	Kind       ChartKind
	Snapshot   BeaconState
	DayOfWeek  int
	WeekOfYear int
}

// NotifyContinuousSitting 连续坐姿超时提醒
type NotifyContinuousSitting struct {
	Snapshot BeaconState
}

func (PersistState) sideEffect()            {}
func (CreateWeeklyReport) sideEffect()      {}
func (ArchiveTimeVault) sideEffect()        {}
func (RenderChart) sideEffect()             {}
func (NotifyContinuousSitting) sideEffect() {}
