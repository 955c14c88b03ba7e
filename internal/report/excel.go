package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ingeniumed/Sitsense/internal/models"
)

const reportSheet = "Weekly Reports"

// BuildTeamWorkbook 将一个团队的全部周报整理为Excel工作簿
func BuildTeamWorkbook(reports []models.Report) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(reportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create report sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	headers := []string{"Email", "Team", "Weekly Sit Time", "Daily Average (s)", "Week Number"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(reportSheet, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header %s: %w", header, err)
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		f.SetCellStyle(reportSheet, "A1", "E1", headerStyle)
	}

	for i, report := range reports {
		row := i + 2
		values := []interface{}{
			report.Email,
			report.TeamID,
			report.WeeklySitTime,
			report.DailyAverage,
			report.WeekNumber,
		}
		for j, value := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(reportSheet, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write report row %d: %w", row, err)
			}
		}
	}

	f.SetColWidth(reportSheet, "A", "A", 32)
	f.SetColWidth(reportSheet, "B", "E", 18)

	return f, nil
}
