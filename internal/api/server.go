package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
	"github.com/ingeniumed/Sitsense/internal/notifier"
	"github.com/ingeniumed/Sitsense/internal/report"
)

// 超过该静默天数的信标被认为已失联
const staleAfterDays = 15

// BeaconDirectory 信标状态查询
type BeaconDirectory interface {
	ListBeacons() ([]models.BeaconState, error)
	ListBeaconsByUserID(userID string) ([]models.BeaconState, error)
}

// ReportDirectory 周报查询
type ReportDirectory interface {
	ListReportsByTeam(teamID string) ([]models.Report, error)
}

// TokenWriter OAuth凭证写入
type TokenWriter interface {
	CreateToken(token *models.SlackToken) error
}

// SlackGateway OAuth交换与监控消息投递
type SlackGateway interface {
	ExchangeOAuthCode(ctx context.Context, code string) (*models.SlackToken, error)
	PostToMonitor(ctx context.Context, text string, attachments []notifier.Attachment) error
}

// Server sitsense 管理与集成API
type Server struct {
	beacons   BeaconDirectory
	reports   ReportDirectory
	tokens    TokenWriter
	slack     SlackGateway
	secretKey string
	logger    *zap.Logger
	now       func() time.Time
}

// NewServer 创建API服务
func NewServer(beacons BeaconDirectory, reports ReportDirectory, tokens TokenWriter, slack SlackGateway, secretKey string, logger *zap.Logger) *Server {
	return &Server{
		beacons:   beacons,
		reports:   reports,
		tokens:    tokens,
		slack:     slack,
		secretKey: secretKey,
		logger:    logger,
		now:       time.Now,
	}
}

// Routes 注册路由。使用标准库 ServeMux，端点少且无路径参数需求。
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/oauth", s.handleOAuth)
	mux.HandleFunc("/report/", s.handleReport)
	mux.HandleFunc("/beacon", s.handleBeacons)
	mux.HandleFunc("/monitor", s.handleMonitor)
	mux.HandleFunc("/data", s.handleData)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleOAuth Slack应用安装回调：用临时码换取团队凭证并落库
func (s *Server) handleOAuth(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	token, err := s.slack.ExchangeOAuthCode(r.Context(), code)
	if err != nil {
		s.logger.Error("OAuth exchange failed", zap.Error(err))
		http.Error(w, "oauth exchange failed", http.StatusBadGateway)
		return
	}

	if err := s.tokens.CreateToken(token); err != nil {
		s.logger.Error("Failed to store slack token",
			zap.String("team_id", token.TeamID),
			zap.Error(err),
		)
		http.Error(w, "failed to store token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Success! SitSense is now connected to your workspace.")
}

// handleReport 导出一个团队的全部周报为Excel工作簿
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	teamID := strings.TrimPrefix(r.URL.Path, "/report/")
	if teamID == "" || strings.Contains(teamID, "/") {
		http.Error(w, "missing team id", http.StatusBadRequest)
		return
	}

	reports, err := s.reports.ListReportsByTeam(teamID)
	if err != nil {
		s.logger.Error("Failed to list reports", zap.String("team_id", teamID), zap.Error(err))
		http.Error(w, "failed to list reports", http.StatusInternalServerError)
		return
	}

	workbook, err := report.BuildTeamWorkbook(reports)
	if err != nil {
		s.logger.Error("Failed to build workbook", zap.String("team_id", teamID), zap.Error(err))
		http.Error(w, "failed to build workbook", http.StatusInternalServerError)
		return
	}
	defer workbook.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s-reports.xlsx", teamID))
	if err := workbook.Write(w); err != nil {
		s.logger.Error("Failed to stream workbook", zap.String("team_id", teamID), zap.Error(err))
	}
}

// handleBeacons 全量信标状态导出，运维排查用
func (s *Server) handleBeacons(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	states, err := s.beacons.ListBeacons()
	if err != nil {
		s.logger.Error("Failed to list beacons", zap.Error(err))
		http.Error(w, "failed to list beacons", http.StatusInternalServerError)
		return
	}
	if states == nil {
		states = []models.BeaconState{}
	}

	s.writeJSON(w, http.StatusOK, states)
}

type monitorResult struct {
	Checked int      `json:"checked"`
	Stale   int      `json:"stale"`
	Devices []string `json:"devices"`
}

// handleMonitor 巡检长期未上报的信标并通知监控频道
func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	states, err := s.beacons.ListBeacons()
	if err != nil {
		s.logger.Error("Failed to list beacons", zap.Error(err))
		http.Error(w, "failed to list beacons", http.StatusInternalServerError)
		return
	}

	result := monitorResult{Checked: len(states), Devices: []string{}}
	now := s.now().Unix()

	for i := range states {
		state := &states[i]
		daysSilent := int((now - state.UpdatedAt) / 86400)
		if daysSilent <= staleAfterDays {
			continue
		}

		result.Stale++
		result.Devices = append(result.Devices, state.DeviceID)

		text, attachments := notifier.StaleDeviceMessage(state, daysSilent)
		if err := s.slack.PostToMonitor(r.Context(), text, attachments); err != nil {
			s.logger.Error("Failed to post monitor message",
				zap.String("device_id", state.DeviceID),
				zap.Error(err),
			)
		}
	}

	s.writeJSON(w, http.StatusOK, result)
}

type slashResponse struct {
	ResponseType string                `json:"response_type"`
	Text         string                `json:"text"`
	Attachments  []notifier.Attachment `json:"attachments,omitempty"`
}

// handleData /data 斜杠命令：返回当前用户全部信标的即时状态
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		http.Error(w, "missing user_id", http.StatusBadRequest)
		return
	}

	states, err := s.beacons.ListBeaconsByUserID(userID)
	if err != nil {
		s.logger.Error("Failed to list beacons for user", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "failed to list beacons", http.StatusInternalServerError)
		return
	}

	if len(states) == 0 {
		s.writeJSON(w, http.StatusOK, slashResponse{
			ResponseType: "ephemeral",
			Text:         "No beacons are paired with your account yet.",
		})
		return
	}

	attachments := make([]notifier.Attachment, 0, len(states))
	for i := range states {
		attachments = append(attachments, notifier.StatusAttachment(&states[i]))
	}

	s.writeJSON(w, http.StatusOK, slashResponse{
		ResponseType: "ephemeral",
		Text:         "Your sitting time so far today:",
		Attachments:  attachments,
	})
}

func (s *Server) authorized(r *http.Request) bool {
	return s.secretKey != "" && r.URL.Query().Get("secret_key") == s.secretKey
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}
