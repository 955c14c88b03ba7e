package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
	"github.com/ingeniumed/Sitsense/internal/notifier"
	"github.com/ingeniumed/Sitsense/internal/tracker"
)

// BeaconStore 信标状态存取
type BeaconStore interface {
	GetBeacon(deviceID string) (*models.BeaconState, error)
	CreateBeacon(state *models.BeaconState) error
	UpdateBeacon(state *models.BeaconState) error
}

// ReportStore 周报写入
type ReportStore interface {
	CreateReport(report *models.Report) error
}

// VaultStore 每日采样归档写入
type VaultStore interface {
	CreateTimeVault(vault *models.TimeVault) error
}

// TokenStore 团队Slack凭证读取
type TokenStore interface {
	GetTokenByTeamID(teamID string) (*models.SlackToken, error)
}

// Messenger Slack消息投递
type Messenger interface {
	PostMessage(ctx context.Context, token, channel, text string, attachments []notifier.Attachment) error
	LookupUserByEmail(ctx context.Context, token, email string) (string, error)
}

// ChartWriter 图表规格落盘
type ChartWriter interface {
	RenderDaily(snapshot *models.BeaconState, dayOfWeek, weekOfYear int) (string, error)
	RenderWeekly(state *models.BeaconState, weekOfYear int) (string, error)
}

// EffectExecutor 执行状态转移产生的副作用请求
type EffectExecutor struct {
	beacons      BeaconStore
	reports      ReportStore
	vaults       VaultStore
	tokens       TokenStore
	slack        Messenger
	charts       ChartWriter
	tracker      *tracker.Tracker
	mediaBaseURL string
	logger       *zap.Logger
}

// NewEffectExecutor 创建副作用执行器
func NewEffectExecutor(
	beacons BeaconStore,
	reports ReportStore,
	vaults VaultStore,
	tokens TokenStore,
	slack Messenger,
	charts ChartWriter,
	trk *tracker.Tracker,
	mediaBaseURL string,
	logger *zap.Logger,
) *EffectExecutor {
	return &EffectExecutor{
		beacons:      beacons,
		reports:      reports,
		vaults:       vaults,
		tokens:       tokens,
		slack:        slack,
		charts:       charts,
		tracker:      trk,
		mediaBaseURL: mediaBaseURL,
		logger:       logger,
	}
}

// Execute 按顺序执行副作用请求。
// 持久化失败立即返回错误以便消息重投；投递与渲染失败只记录，
// 因为重放事件无法让错过的提醒变得更准时。
func (e *EffectExecutor) Execute(ctx context.Context, effects []models.SideEffect) error {
	for _, effect := range effects {
		switch eff := effect.(type) {
		case models.PersistState:
			if err := e.beacons.UpdateBeacon(&eff.State); err != nil {
				return fmt.Errorf("%w: update beacon %s: %v", models.ErrPersistence, eff.State.DeviceID, err)
			}

		case models.ArchiveTimeVault:
			if err := e.vaults.CreateTimeVault(&eff.Vault); err != nil {
				return fmt.Errorf("%w: archive time vault for %s: %v", models.ErrPersistence, eff.Vault.Email, err)
			}

		case models.CreateWeeklyReport:
			if err := e.reports.CreateReport(&eff.Report); err != nil {
				return fmt.Errorf("%w: create report for %s: %v", models.ErrPersistence, eff.Report.Email, err)
			}

		case models.RenderChart:
			e.renderAndDeliver(ctx, eff)

		case models.NotifyContinuousSitting:
			text, attachments := notifier.ContinuousSittingMessage(&eff.Snapshot)
			e.deliver(ctx, &eff.Snapshot, text, attachments)

		default:
			e.logger.Warn("Unknown side effect type")
		}
	}

	return nil
}

func (e *EffectExecutor) renderAndDeliver(ctx context.Context, eff models.RenderChart) {
	switch eff.Kind {
	case models.ChartDaily:
		if _, err := e.charts.RenderDaily(&eff.Snapshot, eff.DayOfWeek, eff.WeekOfYear); err != nil {
			e.logger.Error("Failed to render daily chart",
				zap.String("device_id", eff.Snapshot.DeviceID),
				zap.Error(fmt.Errorf("%w: %v", models.ErrDelivery, err)),
			)
			return
		}
		text, attachments := notifier.DailySummaryMessage(&eff.Snapshot, eff.DayOfWeek, eff.WeekOfYear, e.mediaBaseURL)
		e.deliver(ctx, &eff.Snapshot, text, attachments)

	case models.ChartWeekly:
		if _, err := e.charts.RenderWeekly(&eff.Snapshot, eff.WeekOfYear); err != nil {
			e.logger.Error("Failed to render weekly chart",
				zap.String("device_id", eff.Snapshot.DeviceID),
				zap.Error(fmt.Errorf("%w: %v", models.ErrDelivery, err)),
			)
			return
		}
		text, attachments := notifier.WeeklySummaryMessage(&eff.Snapshot, eff.WeekOfYear, e.mediaBaseURL)
		e.deliver(ctx, &eff.Snapshot, text, attachments)
	}
}

func (e *EffectExecutor) deliver(ctx context.Context, state *models.BeaconState, text string, attachments []notifier.Attachment) {
	if state.BotToken == "" || state.UserID == "" {
		e.logger.Warn("Beacon has no delivery identity",
			zap.String("device_id", state.DeviceID),
			zap.String("email", state.Email),
		)
		return
	}

	if err := e.slack.PostMessage(ctx, state.BotToken, state.UserID, text, attachments); err != nil {
		e.logger.Error("Failed to deliver slack message",
			zap.String("device_id", state.DeviceID),
			zap.String("user_id", state.UserID),
			zap.Error(fmt.Errorf("%w: %v", models.ErrDelivery, err)),
		)
	}
}

// Enroll 首次发现设备：解析团队凭证与Slack用户，落库并发送欢迎消息
func (e *EffectExecutor) Enroll(ctx context.Context, event *models.TelemetryEvent, tags tracker.Tags, wh tracker.WorkHourDetails) (*models.BeaconState, error) {
	token, err := e.tokens.GetTokenByTeamID(tags.TeamID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve team %s: %w", tags.TeamID, err)
	}

	userID, err := e.slack.LookupUserByEmail(ctx, token.BotToken, tags.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve slack user for %s: %w", tags.Email, err)
	}

	state := e.tracker.NewBeaconState(event, tags, wh)
	state.UserID = userID
	state.AppToken = token.AppToken
	state.BotToken = token.BotToken

	if err := e.beacons.CreateBeacon(&state); err != nil {
		return nil, fmt.Errorf("%w: create beacon %s: %v", models.ErrPersistence, state.DeviceID, err)
	}

	text, attachments := notifier.WelcomeMessage(&state)
	e.deliver(ctx, &state, text, attachments)

	e.logger.Info("Enrolled new beacon",
		zap.String("device_id", state.DeviceID),
		zap.String("email", state.Email),
		zap.String("team_id", state.TeamID),
	)
	return &state, nil
}
