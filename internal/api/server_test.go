package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
	"github.com/ingeniumed/Sitsense/internal/notifier"
)

type fakeDirectory struct {
	beacons []models.BeaconState
	byUser  map[string][]models.BeaconState
	err     error
}

func (f *fakeDirectory) ListBeacons() ([]models.BeaconState, error) {
	return f.beacons, f.err
}

func (f *fakeDirectory) ListBeaconsByUserID(userID string) ([]models.BeaconState, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser[userID], nil
}

type fakeReportDirectory struct {
	reports []models.Report
	err     error
}

func (f *fakeReportDirectory) ListReportsByTeam(string) ([]models.Report, error) {
	return f.reports, f.err
}

type fakeTokenWriter struct {
	tokens []*models.SlackToken
	err    error
}

func (f *fakeTokenWriter) CreateToken(token *models.SlackToken) error {
	if f.err != nil {
		return f.err
	}
	f.tokens = append(f.tokens, token)
	return nil
}

type fakeGateway struct {
	token       *models.SlackToken
	exchangeErr error
	monitored   []string
}

func (f *fakeGateway) ExchangeOAuthCode(_ context.Context, code string) (*models.SlackToken, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeGateway) PostToMonitor(_ context.Context, text string, _ []notifier.Attachment) error {
	f.monitored = append(f.monitored, text)
	return nil
}

type serverFixture struct {
	server  *Server
	handler http.Handler
	beacons *fakeDirectory
	reports *fakeReportDirectory
	tokens  *fakeTokenWriter
	slack   *fakeGateway
}

func newServerFixture() *serverFixture {
	f := &serverFixture{
		beacons: &fakeDirectory{byUser: map[string][]models.BeaconState{}},
		reports: &fakeReportDirectory{},
		tokens:  &fakeTokenWriter{},
		slack:   &fakeGateway{},
	}
	f.server = NewServer(f.beacons, f.reports, f.tokens, f.slack, "sekrit", zap.NewNop())
	f.handler = f.server.Routes()
	return f
}

func TestHealth(t *testing.T) {
	f := newServerFixture()

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestOAuth(t *testing.T) {
	f := newServerFixture()
	f.slack.token = &models.SlackToken{TeamName: "Acme", TeamID: "T999", AppToken: "xoxp", BotToken: "xoxb"}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth?code=tmp-code", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Success!")
	require.Len(t, f.tokens.tokens, 1)
	assert.Equal(t, "T999", f.tokens.tokens[0].TeamID)
}

func TestOAuthMissingCode(t *testing.T) {
	f := newServerFixture()

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.tokens.tokens)
}

func TestOAuthExchangeFailure(t *testing.T) {
	f := newServerFixture()
	f.slack.exchangeErr = errors.New("invalid_code")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/oauth?code=bad", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestReportDownload(t *testing.T) {
	f := newServerFixture()
	f.reports.reports = []models.Report{
		{Email: "anna@example.com", TeamID: "T999", WeeklySitTime: "10h 0m", DailyAverage: 7200, WeekNumber: 34},
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/T999", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		rec.Header().Get("Content-Type"),
	)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "T999-reports.xlsx")
	assert.NotZero(t, rec.Body.Len())
}

func TestReportMissingTeam(t *testing.T) {
	f := newServerFixture()

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report/", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBeaconsRequiresSecret(t *testing.T) {
	f := newServerFixture()

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/beacon", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/beacon?secret_key=wrong", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBeaconsList(t *testing.T) {
	f := newServerFixture()
	f.beacons.beacons = []models.BeaconState{
		{DeviceID: "dev-1", Email: "anna@example.com"},
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/beacon?secret_key=sekrit", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var states []models.BeaconState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &states))
	require.Len(t, states, 1)
	assert.Equal(t, "dev-1", states[0].DeviceID)
}

func TestMonitorFlagsStaleBeacons(t *testing.T) {
	f := newServerFixture()
	now := time.Date(2023, 11, 14, 10, 0, 0, 0, time.UTC)
	f.server.now = func() time.Time { return now }

	f.beacons.beacons = []models.BeaconState{
		{DeviceID: "fresh", UpdatedAt: now.Unix() - 86400},
		{DeviceID: "stale", UpdatedAt: now.Unix() - 20*86400},
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/monitor?secret_key=sekrit", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var result monitorResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.Stale)
	assert.Equal(t, []string{"stale"}, result.Devices)
	assert.Len(t, f.slack.monitored, 1)
}

func TestDataSlashCommand(t *testing.T) {
	f := newServerFixture()
	f.beacons.byUser["U123"] = []models.BeaconState{
		{DeviceID: "dev-1", SitTime: 5 * 3600},
	}

	form := url.Values{"user_id": {"U123"}}
	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp slashResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ephemeral", resp.ResponseType)
	require.Len(t, resp.Attachments, 1)
	assert.Contains(t, resp.Attachments[0].Text, "5h 0m")
}

func TestDataSlashCommandNoBeacons(t *testing.T) {
	f := newServerFixture()

	form := url.Values{"user_id": {"U999"}}
	req := httptest.NewRequest(http.MethodPost, "/data", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp slashResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Text, "No beacons")
}

func TestDataRejectsGet(t *testing.T) {
	f := newServerFixture()

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/data", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
