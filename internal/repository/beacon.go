package repository

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
)

// ErrBeaconNotFound 设备尚未登记
var ErrBeaconNotFound = errors.New("beacon not found")

// BeaconRepository 信标状态仓库
type BeaconRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewBeaconRepository 创建信标状态仓库
func NewBeaconRepository(db *sql.DB, logger *zap.Logger) *BeaconRepository {
	return &BeaconRepository{
		db:     db,
		logger: logger,
	}
}

const beaconColumns = `
	device_id, user_id, email, team_id, app_token, bot_token, image_id,
	rssi, accel, accel_x, accel_y, accel_z,
	move_count, sit_time, daily_sit_time, notify_count,
	weekday_sit_times, prev_week_sit_time, prev_prev_week_sit_time,
	avg_sit_time, goal_sit_time, first_day_notify,
	last_notification, updated_at, daily_times`

// GetBeacon 按设备标识读取状态
func (r *BeaconRepository) GetBeacon(deviceID string) (*models.BeaconState, error) {
	query := `SELECT ` + beaconColumns + ` FROM beacons WHERE device_id = $1 LIMIT 1`

	row := r.db.QueryRow(query, deviceID)
	state, err := scanBeacon(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBeaconNotFound
		}
		return nil, fmt.Errorf("failed to query beacon %s: %w", deviceID, err)
	}

	return state, nil
}

// CreateBeacon 登记新设备
func (r *BeaconRepository) CreateBeacon(state *models.BeaconState) error {
	weekdayJSON, dailyJSON, err := marshalBeaconJSON(state)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO beacons (` + beaconColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		        $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
	`

	_, err = r.db.Exec(query,
		state.DeviceID, state.UserID, state.Email, state.TeamID,
		state.AppToken, state.BotToken, state.ImageID,
		state.RSSI, state.Accel, state.AccelX, state.AccelY, state.AccelZ,
		state.MoveCount, state.SitTime, state.DailySitTime, state.NotifyCount,
		weekdayJSON, state.PrevWeekSitTime, state.PrevPrevWeekSitTime,
		state.AvgSitTime, state.GoalSitTime, state.FirstDayNotify,
		state.LastNotification, state.UpdatedAt, dailyJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to create beacon %s: %w", state.DeviceID, err)
	}

	r.logger.Info("Created beacon",
		zap.String("device_id", state.DeviceID),
		zap.String("email", state.Email),
	)
	return nil
}

// UpdateBeacon 全字段写回状态（读-改-写的写步骤）
func (r *BeaconRepository) UpdateBeacon(state *models.BeaconState) error {
	weekdayJSON, dailyJSON, err := marshalBeaconJSON(state)
	if err != nil {
		return err
	}

	query := `
		UPDATE beacons SET
			user_id = $2, email = $3, team_id = $4, app_token = $5, bot_token = $6,
			image_id = $7, rssi = $8, accel = $9, accel_x = $10, accel_y = $11, accel_z = $12,
			move_count = $13, sit_time = $14, daily_sit_time = $15, notify_count = $16,
			weekday_sit_times = $17, prev_week_sit_time = $18, prev_prev_week_sit_time = $19,
			avg_sit_time = $20, goal_sit_time = $21, first_day_notify = $22,
			last_notification = $23, updated_at = $24, daily_times = $25
		WHERE device_id = $1
	`

	res, err := r.db.Exec(query,
		state.DeviceID, state.UserID, state.Email, state.TeamID,
		state.AppToken, state.BotToken, state.ImageID,
		state.RSSI, state.Accel, state.AccelX, state.AccelY, state.AccelZ,
		state.MoveCount, state.SitTime, state.DailySitTime, state.NotifyCount,
		weekdayJSON, state.PrevWeekSitTime, state.PrevPrevWeekSitTime,
		state.AvgSitTime, state.GoalSitTime, state.FirstDayNotify,
		state.LastNotification, state.UpdatedAt, dailyJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to update beacon %s: %w", state.DeviceID, err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return ErrBeaconNotFound
	}

	r.logger.Debug("Updated beacon", zap.String("device_id", state.DeviceID))
	return nil
}

// ListBeacons 读取全部信标状态（监控与导出端点使用）
func (r *BeaconRepository) ListBeacons() ([]models.BeaconState, error) {
	query := `SELECT ` + beaconColumns + ` FROM beacons ORDER BY device_id`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list beacons: %w", err)
	}
	defer rows.Close()

	var states []models.BeaconState
	for rows.Next() {
		state, err := scanBeacon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beacon: %w", err)
		}
		states = append(states, *state)
	}

	return states, rows.Err()
}

// ListBeaconsByUserID 按Slack用户查询（斜杠命令使用）
func (r *BeaconRepository) ListBeaconsByUserID(userID string) ([]models.BeaconState, error) {
	query := `SELECT ` + beaconColumns + ` FROM beacons WHERE user_id = $1`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list beacons for user %s: %w", userID, err)
	}
	defer rows.Close()

	var states []models.BeaconState
	for rows.Next() {
		state, err := scanBeacon(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beacon: %w", err)
		}
		states = append(states, *state)
	}

	return states, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBeacon(row rowScanner) (*models.BeaconState, error) {
	state := &models.BeaconState{}
	var weekdayJSON, dailyJSON []byte

	err := row.Scan(
		&state.DeviceID, &state.UserID, &state.Email, &state.TeamID,
		&state.AppToken, &state.BotToken, &state.ImageID,
		&state.RSSI, &state.Accel, &state.AccelX, &state.AccelY, &state.AccelZ,
		&state.MoveCount, &state.SitTime, &state.DailySitTime, &state.NotifyCount,
		&weekdayJSON, &state.PrevWeekSitTime, &state.PrevPrevWeekSitTime,
		&state.AvgSitTime, &state.GoalSitTime, &state.FirstDayNotify,
		&state.LastNotification, &state.UpdatedAt, &dailyJSON,
	)
	if err != nil {
		return nil, err
	}

	if len(weekdayJSON) > 0 {
		if err := json.Unmarshal(weekdayJSON, &state.WeekdaySitTimes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal weekday sit times: %w", err)
		}
	}
	if len(dailyJSON) > 0 {
		if err := json.Unmarshal(dailyJSON, &state.DailyTimes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal daily times: %w", err)
		}
	}

	return state, nil
}

func marshalBeaconJSON(state *models.BeaconState) ([]byte, []byte, error) {
	weekdayJSON, err := json.Marshal(state.WeekdaySitTimes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal weekday sit times: %w", err)
	}

	dailyTimes := state.DailyTimes
	if dailyTimes == nil {
		dailyTimes = []models.DailyTime{}
	}
	dailyJSON, err := json.Marshal(dailyTimes)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal daily times: %w", err)
	}

	return weekdayJSON, dailyJSON, nil
}
