package aqi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecp-air/airquality-backend/internal/tsdb"
)

func rec(field string, value interface{}, at time.Time) tsdb.Record {
	return tsdb.Record{Field: field, Value: value, Time: at}
}

func TestFlatList(t *testing.T) {
	at := time.Date(2025, 6, 15, 5, 0, 0, 0, time.UTC)
	points := FlatList([]tsdb.Record{
		rec(FieldPM25, 12.345, at),
		rec(FieldCO2, nil, at),
		rec(FieldTemperature, -4.0, at),
	})

	require.Len(t, points, 3)
	assert.Equal(t, FieldPM25, points[0].Field)
	assert.Equal(t, 12.35, points[0].Value)
	// 05:00 UTC renders as 12:00 local with explicit offset
	assert.Equal(t, "2025-06-15T12:00:00+07:00", points[0].Timestamp)
	assert.Equal(t, 0.0, points[1].Value)
	assert.Equal(t, 0.0, points[2].Value)
}

func TestFlatListEmpty(t *testing.T) {
	assert.Empty(t, FlatList(nil))
}

func TestDailyRows(t *testing.T) {
	day1 := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 2, 2, 0, 0, 0, 0, time.UTC)
	rows := DailyRows([]tsdb.Record{
		rec(FieldAQI, 55.0, day2),
		rec(FieldPM25, 18.123, day1),
		rec(FieldAQI, 42.0, day1),
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "2025-02-01", rows[0].Date)
	assert.Equal(t, 42.0, rows[0].AQI)
	assert.Equal(t, 18.12, rows[0].PM25)
	// fields never reported for a day stay at the zero sentinel
	assert.Equal(t, 0.0, rows[0].CO2)
	assert.Equal(t, "2025-02-02", rows[1].Date)
	assert.Equal(t, 55.0, rows[1].AQI)
}

func TestHourlyRows(t *testing.T) {
	at := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)
	rows := HourlyRows([]tsdb.Record{
		rec(FieldAQI, 61.0, at.Add(time.Hour)),
		rec(FieldAQI, 60.0, at),
		rec(FieldHumidity, 71.5, at),
	})

	require.Len(t, rows, 2)
	assert.Equal(t, "09:00", rows[0].Time)
	assert.Equal(t, "2025-02-01 09:00:00", rows[0].Datetime)
	assert.Equal(t, 60.0, rows[0].AQI)
	assert.Equal(t, 71.5, rows[0].Humidity)
	assert.Equal(t, "10:00", rows[1].Time)
}

func TestGraphSeriesStats(t *testing.T) {
	gr, err := ResolveGraphRange("24h")
	require.NoError(t, err)

	at := time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)
	points, stats := GraphSeries([]tsdb.Record{
		rec(FieldAQI, 0.0, at),
		rec(FieldAQI, 5.0, at.Add(time.Hour)),
		rec(FieldAQI, 10.0, at.Add(2*time.Hour)),
	}, gr)

	require.Len(t, points, 3)
	assert.Equal(t, "08:00", points[0].Time)
	assert.Equal(t, "2025-06-15 08:00:00", points[0].Datetime)

	// zero values are excluded from the statistics
	assert.Equal(t, 5.0, stats.Min)
	assert.Equal(t, 10.0, stats.Max)
	assert.Equal(t, 7.5, stats.Avg)
	assert.Equal(t, 2, stats.Count)
}

func TestGraphSeriesAllZero(t *testing.T) {
	gr, err := ResolveGraphRange("7d")
	require.NoError(t, err)

	at := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	points, stats := GraphSeries([]tsdb.Record{
		rec(FieldPM25, 0.0, at),
		rec(FieldPM25, -1.0, at.Add(24*time.Hour)),
	}, gr)

	require.Len(t, points, 2)
	assert.Equal(t, "06-10", points[0].Time)
	assert.Equal(t, GraphStats{}, stats)
}

func TestMonthsWithData(t *testing.T) {
	months := MonthsWithData([]tsdb.Record{
		rec("", nil, time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)),
		rec("", nil, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)),
		rec("", nil, time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)),
		rec("", nil, time.Time{}),
	})
	assert.Equal(t, []string{"2025-01", "2025-03"}, months)
}
