package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
)

// TimeVaultRepository 每日采样归档仓库
type TimeVaultRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTimeVaultRepository 创建归档仓库
func NewTimeVaultRepository(db *sql.DB, logger *zap.Logger) *TimeVaultRepository {
	return &TimeVaultRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTimeVault 归档一份重置前的每日采样
func (r *TimeVaultRepository) CreateTimeVault(vault *models.TimeVault) error {
	dailyTimes := vault.DailyTimes
	if dailyTimes == nil {
		dailyTimes = []models.DailyTime{}
	}
	dailyJSON, err := json.Marshal(dailyTimes)
	if err != nil {
		return fmt.Errorf("failed to marshal daily times: %w", err)
	}

	query := `
		INSERT INTO time_vaults (email, team_id, user_id, daily_times, week_number, day_number)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err = r.db.Exec(query,
		vault.Email, vault.TeamID, vault.UserID, dailyJSON, vault.WeekNumber, vault.DayNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to archive time vault for %s: %w", vault.Email, err)
	}

	r.logger.Debug("Archived daily times",
		zap.String("email", vault.Email),
		zap.Int("week_number", vault.WeekNumber),
		zap.Int("day_number", vault.DayNumber),
	)
	return nil
}
