package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
)

// ReportRepository 周报仓库
type ReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewReportRepository 创建周报仓库
func NewReportRepository(db *sql.DB, logger *zap.Logger) *ReportRepository {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// CreateReport 写入一条周报记录
func (r *ReportRepository) CreateReport(report *models.Report) error {
	query := `
		INSERT INTO reports (email, team_id, weekly_sit_time, daily_average, week_number)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(query,
		report.Email, report.TeamID, report.WeeklySitTime, report.DailyAverage, report.WeekNumber,
	)
	if err != nil {
		return fmt.Errorf("failed to create report for %s: %w", report.Email, err)
	}

	r.logger.Info("Created user report for this week",
		zap.String("email", report.Email),
		zap.Int("week_number", report.WeekNumber),
	)
	return nil
}

// ListReportsByTeam 按团队读取周报（导出端点使用）
func (r *ReportRepository) ListReportsByTeam(teamID string) ([]models.Report, error) {
	query := `
		SELECT email, team_id, weekly_sit_time, daily_average, week_number
		FROM reports
		WHERE team_id = $1
		ORDER BY week_number, email
	`

	rows, err := r.db.Query(query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports for team %s: %w", teamID, err)
	}
	defer rows.Close()

	var reports []models.Report
	for rows.Next() {
		var report models.Report
		if err := rows.Scan(&report.Email, &report.TeamID, &report.WeeklySitTime, &report.DailyAverage, &report.WeekNumber); err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, report)
	}

	return reports, rows.Err()
}
