package session

import (
	"testing"

	"github.com/jsphweid/harmonybeat/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playChart() model.Chart {
	return model.Chart{
		{Time: 0, Lane: "ArrowLeft"},
		{Time: 500, Lane: "ArrowRight", Pitch: "C4"},
		{Time: 1000, Lane: "ArrowUp"},
		{Time: 1500, Lane: model.EndLane},
	}
}

func TestAutoInputsHitTheTargetLine(t *testing.T) {
	inputs := AutoInputs(testSettings(), playChart())
	assert.Equal(t, []Input{
		{Time: 2500, Lane: "ArrowLeft"},
		{Time: 3000, Lane: "ArrowRight"},
		{Time: 3500, Lane: "ArrowUp"},
	}, inputs)
}

func TestPlayChartAutoPlayIsPerfect(t *testing.T) {
	cues := &cueRecorder{}
	chart := playChart()
	stats, err := PlayChart(Options{Settings: testSettings(), Sound: cues}, chart, AutoInputs(testSettings(), chart))
	require.NoError(t, err)

	assert.Equal(t, Stats{Score: 1200, Hits: 3, Misses: 0}, stats)
	require.Len(t, cues.cues, 3)
	assert.Equal(t, "C4", cues.cues[1].Pitch)
}

func TestPlayChartWithoutInputsMissesEverything(t *testing.T) {
	stats, err := PlayChart(Options{Settings: testSettings()}, playChart(), nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Score: 0, Hits: 0, Misses: 3}, stats)
}

func TestPlayChartAppliesInputsInTimeOrder(t *testing.T) {
	inputs := []Input{
		{Time: 3500, Lane: "ArrowUp"},
		{Time: 2500, Lane: "ArrowLeft"},
		// nothing in this lane
		{Time: 2600, Lane: "ArrowDown"},
	}
	stats, err := PlayChart(Options{Settings: testSettings()}, playChart(), inputs)
	require.NoError(t, err)
	assert.Equal(t, Stats{Score: 800, Hits: 2, Misses: 1}, stats)
}

func TestPlayChartRejectsMalformedChart(t *testing.T) {
	_, err := PlayChart(Options{Settings: testSettings()}, model.Chart{{Time: 0, Lane: "ArrowLeft"}}, nil)
	assert.ErrorIs(t, err, model.ErrInvalidChartEvent)
}

func TestRecordPerformance(t *testing.T) {
	performance := []model.ChartEvent{
		{Time: 0, Lane: "ArrowRight", Pitch: "C4"},
		{Time: 260, Lane: "ArrowLeft"},
		{Time: 500, Lane: "ArrowRight", Pitch: "E4"},
		{Time: 900, Lane: model.EndLane},
	}
	s, err := RecordPerformance(Options{Settings: testSettings()}, "take", 300, performance)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal("take", s.Name)
	assert.Equal(300, s.BaseScore)
	assert.Equal(model.Chart{
		{Time: 0, Lane: "ArrowRight", Pitch: "C4"},
		{Time: 250, Lane: "ArrowLeft"},
		{Time: 500, Lane: "ArrowRight", Pitch: "E4"},
		{Time: 2500, Lane: model.EndLane},
	}, s.Chart)
	require.NotNil(t, s.MusicalScore)
	assert.Equal(120, *s.MusicalScore)
}

func TestRecordPerformanceNeedsAName(t *testing.T) {
	_, err := RecordPerformance(Options{Settings: testSettings()}, "", 300, nil)
	assert.ErrorIs(t, err, model.ErrInvalidSong)
}
