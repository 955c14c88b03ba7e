package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
)

const vegaSchema = "https://vega.github.io/schema/vega-lite/v5.json"

// ChartRenderer 将状态快照渲染为图表规格文件。
// 规格落盘后由独立的渲染进程转成PNG并发布到媒体地址。
type ChartRenderer struct {
	mediaDir string
	logger   *zap.Logger
}

// NewChartRenderer 创建图表渲染器
func NewChartRenderer(mediaDir string, logger *zap.Logger) *ChartRenderer {
	return &ChartRenderer{
		mediaDir: mediaDir,
		logger:   logger,
	}
}

type dailyPoint struct {
	Hour     float64 `json:"hour"`
	Minutes  float64 `json:"minutes"`
	Movement int     `json:"movement"`
}

type weeklyBar struct {
	Day   string  `json:"day"`
	Hours float64 `json:"hours"`
}

// RenderDaily 生成昨日坐姿曲线的规格文件，返回落盘路径
func (r *ChartRenderer) RenderDaily(snapshot *models.BeaconState, dayOfWeek, weekOfYear int) (string, error) {
	points := make([]dailyPoint, 0, len(snapshot.DailyTimes))
	for _, sample := range snapshot.DailyTimes {
		points = append(points, dailyPoint{
			Hour:     float64(sample.Time%86400) / 3600,
			Minutes:  float64(sample.Sit) / 60,
			Movement: sample.Movements,
		})
	}

	spec := map[string]interface{}{
		"$schema":     vegaSchema,
		"description": "Sitting time through the day",
		"width":       600,
		"height":      300,
		"data":        map[string]interface{}{"values": points},
		"mark":        map[string]interface{}{"type": "line", "point": true},
		"encoding": map[string]interface{}{
			"x": map[string]interface{}{
				"field": "hour",
				"type":  "quantitative",
				"title": "Hour of day",
			},
			"y": map[string]interface{}{
				"field": "minutes",
				"type":  "quantitative",
				"title": "Minutes sitting",
			},
		},
	}

	name := fmt.Sprintf("%s-%d-%d-daily.vg.json", snapshot.ImageID, dayOfWeek, weekOfYear)
	return r.writeSpec(name, spec)
}

// RenderWeekly 生成上周各工作日坐姿柱状图的规格文件
func (r *ChartRenderer) RenderWeekly(state *models.BeaconState, weekOfYear int) (string, error) {
	labels := [models.BucketCount]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

	bars := make([]weeklyBar, 0, models.BucketCount)
	for i, sit := range state.WeekdaySitTimes {
		bars = append(bars, weeklyBar{
			Day:   labels[i],
			Hours: float64(sit) / 3600,
		})
	}

	spec := map[string]interface{}{
		"$schema":     vegaSchema,
		"description": "Sitting time per weekday",
		"width":       600,
		"height":      300,
		"data":        map[string]interface{}{"values": bars},
		"mark":        "bar",
		"encoding": map[string]interface{}{
			"x": map[string]interface{}{
				"field": "day",
				"type":  "nominal",
				"sort":  []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
				"title": "Weekday",
			},
			"y": map[string]interface{}{
				"field": "hours",
				"type":  "quantitative",
				"title": "Hours sitting",
			},
		},
	}

	name := fmt.Sprintf("%s-%d-weekly.vg.json", state.ImageID, weekOfYear)
	return r.writeSpec(name, spec)
}

func (r *ChartRenderer) writeSpec(name string, spec map[string]interface{}) (string, error) {
	if err := os.MkdirAll(r.mediaDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create media dir: %w", err)
	}

	data, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal chart spec: %w", err)
	}

	path := filepath.Join(r.mediaDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write chart spec %s: %w", name, err)
	}

	r.logger.Info("Wrote chart spec", zap.String("path", path))
	return path, nil
}
