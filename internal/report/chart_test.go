package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ingeniumed/Sitsense/internal/models"
)

func TestRenderDaily(t *testing.T) {
	dir := t.TempDir()
	renderer := NewChartRenderer(dir, zap.NewNop())

	snapshot := &models.BeaconState{
		ImageID: "img-1",
		DailyTimes: []models.DailyTime{
			{Time: 1700000000, Sit: 600, Movements: 4},
			{Time: 1700003600, Sit: 1800, Movements: 6},
		},
	}

	path, err := renderer.RenderDaily(snapshot, 3, 35)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "img-1-3-35-daily.vg.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var spec map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &spec))

	assert.Equal(t, vegaSchema, spec["$schema"])
	values := spec["data"].(map[string]interface{})["values"].([]interface{})
	assert.Len(t, values, 2)

	first := values[0].(map[string]interface{})
	assert.InDelta(t, 10.0, first["minutes"], 0.001)
}

func TestRenderDailyEmptySamples(t *testing.T) {
	dir := t.TempDir()
	renderer := NewChartRenderer(dir, zap.NewNop())

	snapshot := &models.BeaconState{ImageID: "img-2"}

	path, err := renderer.RenderDaily(snapshot, 2, 10)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var spec map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &spec))
	values := spec["data"].(map[string]interface{})["values"].([]interface{})
	assert.Empty(t, values)
}

func TestRenderWeekly(t *testing.T) {
	dir := t.TempDir()
	renderer := NewChartRenderer(dir, zap.NewNop())

	state := &models.BeaconState{ImageID: "img-1"}
	state.WeekdaySitTimes[models.BucketMonday] = 3600
	state.WeekdaySitTimes[models.BucketFriday] = 7200

	path, err := renderer.RenderWeekly(state, 35)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "img-1-35-weekly.vg.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var spec map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &spec))

	values := spec["data"].(map[string]interface{})["values"].([]interface{})
	require.Len(t, values, 5)

	monday := values[0].(map[string]interface{})
	assert.Equal(t, "Monday", monday["day"])
	assert.InDelta(t, 1.0, monday["hours"], 0.001)

	friday := values[4].(map[string]interface{})
	assert.Equal(t, "Friday", friday["day"])
	assert.InDelta(t, 2.0, friday["hours"], 0.001)
}
