package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
	"github.com/ingeniumed/Sitsense/internal/notifier"
	"github.com/ingeniumed/Sitsense/internal/tracker"
)

type fakeBeaconStore struct {
	states    map[string]*models.BeaconState
	created   []*models.BeaconState
	updated   []*models.BeaconState
	updateErr error
	createErr error
}

func (f *fakeBeaconStore) GetBeacon(deviceID string) (*models.BeaconState, error) {
	if state, ok := f.states[deviceID]; ok {
		return state, nil
	}
	return nil, errors.New("beacon not found")
}

func (f *fakeBeaconStore) CreateBeacon(state *models.BeaconState) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, state)
	return nil
}

func (f *fakeBeaconStore) UpdateBeacon(state *models.BeaconState) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updated = append(f.updated, state)
	return nil
}

type fakeReportStore struct {
	reports []*models.Report
	err     error
}

func (f *fakeReportStore) CreateReport(report *models.Report) error {
	if f.err != nil {
		return f.err
	}
	f.reports = append(f.reports, report)
	return nil
}

type fakeVaultStore struct {
	vaults []*models.TimeVault
	err    error
}

func (f *fakeVaultStore) CreateTimeVault(vault *models.TimeVault) error {
	if f.err != nil {
		return f.err
	}
	f.vaults = append(f.vaults, vault)
	return nil
}

type fakeTokenStore struct {
	token *models.SlackToken
	err   error
}

func (f *fakeTokenStore) GetTokenByTeamID(teamID string) (*models.SlackToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

type postedMessage struct {
	token       string
	channel     string
	text        string
	attachments []notifier.Attachment
}

type fakeMessenger struct {
	posted    []postedMessage
	postErr   error
	lookupID  string
	lookupErr error
}

func (f *fakeMessenger) PostMessage(_ context.Context, token, channel, text string, attachments []notifier.Attachment) error {
	if f.postErr != nil {
		return f.postErr
	}
	f.posted = append(f.posted, postedMessage{token: token, channel: channel, text: text, attachments: attachments})
	return nil
}

func (f *fakeMessenger) LookupUserByEmail(_ context.Context, _, _ string) (string, error) {
	if f.lookupErr != nil {
		return "", f.lookupErr
	}
	return f.lookupID, nil
}

type fakeCharts struct {
	dailyCalls  int
	weeklyCalls int
	err         error
}

func (f *fakeCharts) RenderDaily(_ *models.BeaconState, _, _ int) (string, error) {
	f.dailyCalls++
	return "daily.vg.json", f.err
}

func (f *fakeCharts) RenderWeekly(_ *models.BeaconState, _ int) (string, error) {
	f.weeklyCalls++
	return "weekly.vg.json", f.err
}

type executorFixture struct {
	executor *EffectExecutor
	beacons  *fakeBeaconStore
	reports  *fakeReportStore
	vaults   *fakeVaultStore
	tokens   *fakeTokenStore
	slack    *fakeMessenger
	charts   *fakeCharts
}

func newExecutorFixture() *executorFixture {
	f := &executorFixture{
		beacons: &fakeBeaconStore{states: map[string]*models.BeaconState{}},
		reports: &fakeReportStore{},
		vaults:  &fakeVaultStore{},
		tokens:  &fakeTokenStore{},
		slack:   &fakeMessenger{},
		charts:  &fakeCharts{},
	}
	f.executor = NewEffectExecutor(
		f.beacons, f.reports, f.vaults, f.tokens, f.slack, f.charts,
		tracker.New(zap.NewNop()),
		"https://media.example.com",
		zap.NewNop(),
	)
	return f
}

func deliverableState() models.BeaconState {
	return models.BeaconState{
		DeviceID: "dev-1",
		UserID:   "U123",
		Email:    "anna@example.com",
		TeamID:   "T999",
		BotToken: "xoxb-bot",
		ImageID:  "img-1",
	}
}

func TestExecutePersistState(t *testing.T) {
	f := newExecutorFixture()
	state := deliverableState()

	err := f.executor.Execute(context.Background(), []models.SideEffect{
		models.PersistState{State: state},
	})
	require.NoError(t, err)
	require.Len(t, f.beacons.updated, 1)
	assert.Equal(t, "dev-1", f.beacons.updated[0].DeviceID)
}

func TestExecutePersistStateFailure(t *testing.T) {
	f := newExecutorFixture()
	f.beacons.updateErr = errors.New("db down")

	err := f.executor.Execute(context.Background(), []models.SideEffect{
		models.PersistState{State: deliverableState()},
	})
	assert.ErrorIs(t, err, models.ErrPersistence)
}

func TestExecuteArchiveTimeVault(t *testing.T) {
	f := newExecutorFixture()

	err := f.executor.Execute(context.Background(), []models.SideEffect{
		models.ArchiveTimeVault{Vault: models.TimeVault{Email: "anna@example.com", WeekNumber: 35, DayNumber: 3}},
	})
	require.NoError(t, err)
	require.Len(t, f.vaults.vaults, 1)
	assert.Equal(t, 3, f.vaults.vaults[0].DayNumber)
}

func TestExecuteCreateWeeklyReport(t *testing.T) {
	f := newExecutorFixture()

	err := f.executor.Execute(context.Background(), []models.SideEffect{
		models.CreateWeeklyReport{Report: models.Report{Email: "anna@example.com", WeekNumber: 35}},
	})
	require.NoError(t, err)
	require.Len(t, f.reports.reports, 1)
	assert.Equal(t, 35, f.reports.reports[0].WeekNumber)
}

func TestExecuteNotifyContinuousSitting(t *testing.T) {
	f := newExecutorFixture()
	state := deliverableState()
	state.SitTime = 3700

	err := f.executor.Execute(context.Background(), []models.SideEffect{
		models.NotifyContinuousSitting{Snapshot: state},
	})
	require.NoError(t, err)
	require.Len(t, f.slack.posted, 1)
	assert.Equal(t, "xoxb-bot", f.slack.posted[0].token)
	assert.Equal(t, "U123", f.slack.posted[0].channel)
}

func TestExecuteNotifySkipsWithoutIdentity(t *testing.T) {
	f := newExecutorFixture()
	state := deliverableState()
	state.UserID = ""

	err := f.executor.Execute(context.Background(), []models.SideEffect{
		models.NotifyContinuousSitting{Snapshot: state},
	})
	require.NoError(t, err)
	assert.Empty(t, f.slack.posted)
}

func TestExecuteRenderDailyChart(t *testing.T) {
	f := newExecutorFixture()

	err := f.executor.Execute(context.Background(), []models.SideEffect{
		models.RenderChart{Kind: models.ChartDaily, Snapshot: deliverableState(), DayOfWeek: 3, WeekOfYear: 35},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.charts.dailyCalls)
	require.Len(t, f.slack.posted, 1)
	assert.Contains(t, f.slack.posted[0].attachments[0].ImageURL, "img-1-3-35-daily.png")
}

func TestExecuteRenderWeeklyChart(t *testing.T) {
	f := newExecutorFixture()

	err := f.executor.Execute(context.Background(), []models.SideEffect{
		models.RenderChart{Kind: models.ChartWeekly, Snapshot: deliverableState(), DayOfWeek: 1, WeekOfYear: 35},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.charts.weeklyCalls)
	require.Len(t, f.slack.posted, 1)
	assert.Contains(t, f.slack.posted[0].attachments[0].ImageURL, "img-1-35-weekly.png")
}

func TestExecuteRenderFailureDoesNotAbort(t *testing.T) {
	f := newExecutorFixture()
	f.charts.err = errors.New("disk full")

	err := f.executor.Execute(context.Background(), []models.SideEffect{
		models.RenderChart{Kind: models.ChartDaily, Snapshot: deliverableState(), DayOfWeek: 3, WeekOfYear: 35},
		models.PersistState{State: deliverableState()},
	})
	require.NoError(t, err)
	assert.Empty(t, f.slack.posted)
	assert.Len(t, f.beacons.updated, 1)
}

func TestEnroll(t *testing.T) {
	f := newExecutorFixture()
	f.tokens.token = &models.SlackToken{TeamID: "T999", AppToken: "xoxp-app", BotToken: "xoxb-bot"}
	f.slack.lookupID = "U123"

	event := &models.TelemetryEvent{
		DeviceID:      "dev-1",
		RSSI:          -60,
		AccelerationX: 0.01,
		AccelerationY: 0.02,
		AccelerationZ: 0.98,
		ProductModel:  models.AccelerometerProductModel,
	}
	tags := tracker.Tags{Email: "anna@example.com", TeamID: "T999"}
	wh := tracker.WorkHourDetails{CurrentTime: 1700000000, DayOfWeek: 2, WeekOfYear: 35, IsDuringWorkHours: true}

	state, err := f.executor.Enroll(context.Background(), event, tags, wh)
	require.NoError(t, err)

	assert.Equal(t, "U123", state.UserID)
	assert.Equal(t, "xoxb-bot", state.BotToken)
	assert.Equal(t, "xoxp-app", state.AppToken)
	assert.NotEmpty(t, state.ImageID)

	require.Len(t, f.beacons.created, 1)
	require.Len(t, f.slack.posted, 1)
	assert.Equal(t, "Welcome to SitSense!", f.slack.posted[0].text)
}

func TestEnrollUnknownTeam(t *testing.T) {
	f := newExecutorFixture()
	f.tokens.err = errors.New("slack token not found")

	event := &models.TelemetryEvent{DeviceID: "dev-1"}
	tags := tracker.Tags{Email: "anna@example.com", TeamID: "T000"}

	state, err := f.executor.Enroll(context.Background(), event, tags, tracker.WorkHourDetails{})
	assert.Nil(t, state)
	assert.Error(t, err)
	assert.Empty(t, f.beacons.created)
}
