package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
)

// ErrTokenNotFound 团队尚未完成Slack授权
var ErrTokenNotFound = errors.New("slack token not found")

// SlackTokenRepository 团队Slack凭证仓库
type SlackTokenRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSlackTokenRepository 创建凭证仓库
func NewSlackTokenRepository(db *sql.DB, logger *zap.Logger) *SlackTokenRepository {
	return &SlackTokenRepository{
		db:     db,
		logger: logger,
	}
}

// GetTokenByTeamID 按团队读取凭证
func (r *SlackTokenRepository) GetTokenByTeamID(teamID string) (*models.SlackToken, error) {
	query := `
		SELECT team_name, team_id, app_token, bot_token
		FROM slack_tokens
		WHERE team_id = $1
		LIMIT 1
	`

	token := &models.SlackToken{}
	err := r.db.QueryRow(query, teamID).Scan(
		&token.TeamName, &token.TeamID, &token.AppToken, &token.BotToken,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to query slack token for team %s: %w", teamID, err)
	}

	return token, nil
}

// CreateToken 保存OAuth换取的团队凭证
func (r *SlackTokenRepository) CreateToken(token *models.SlackToken) error {
	query := `
		INSERT INTO slack_tokens (team_name, team_id, app_token, bot_token)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.Exec(query, token.TeamName, token.TeamID, token.AppToken, token.BotToken)
	if err != nil {
		return fmt.Errorf("failed to create slack token for team %s: %w", token.TeamID, err)
	}

	r.logger.Info("New client connected to Slack",
		zap.String("team_id", token.TeamID),
		zap.String("team_name", token.TeamName),
	)
	return nil
}
