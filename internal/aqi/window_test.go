package aqi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecp-air/airquality-backend/internal/apperr"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func TestHoursWindow(t *testing.T) {
	win, err := HoursWindow(testNow, 24)
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(-24*time.Hour), win.Start)
	assert.Equal(t, testNow, win.Stop)
	assert.Equal(t, 24*time.Hour, win.Every)
}

func TestHoursWindowBounds(t *testing.T) {
	for _, hours := range []int{0, -1, 745} {
		_, err := HoursWindow(testNow, hours)
		require.Error(t, err, "hours=%d", hours)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	}

	_, err := HoursWindow(testNow, 744)
	assert.NoError(t, err)
	_, err = HoursWindow(testNow, 1)
	assert.NoError(t, err)
}

func TestTimeframeWindow(t *testing.T) {
	tests := []struct {
		timeframe string
		span      time.Duration
		every     time.Duration
	}{
		{"hourly", 24 * time.Hour, time.Hour},
		{"daily", 30 * 24 * time.Hour, 24 * time.Hour},
		{"weekly", 12 * 7 * 24 * time.Hour, 7 * 24 * time.Hour},
		{"monthly", 365 * 24 * time.Hour, 30 * 24 * time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.timeframe, func(t *testing.T) {
			win, err := TimeframeWindow(testNow, tt.timeframe)
			require.NoError(t, err)
			assert.Equal(t, testNow.Add(-tt.span), win.Start)
			assert.Equal(t, tt.every, win.Every)
		})
	}

	_, err := TimeframeWindow(testNow, "yearly")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestMonthWindow(t *testing.T) {
	win, err := MonthWindow("2025-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), win.Start)
	assert.Equal(t, time.Date(2025, 2, 28, 23, 59, 59, 0, time.UTC), win.Stop)
}

func TestMonthWindowInvalid(t *testing.T) {
	for _, month := range []string{"2025", "2025-13", "02-2025", "not-a-month"} {
		_, err := MonthWindow(month)
		require.Error(t, err, "month=%q", month)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	}
}

func TestDateWindow(t *testing.T) {
	win, err := DateWindow("2025-06-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), win.Start)
	assert.Equal(t, time.Date(2025, 6, 15, 23, 59, 59, 0, time.UTC), win.Stop)
}

func TestDateWindowInvalid(t *testing.T) {
	for _, date := range []string{"2024-13-40", "15-06-2025", "2025-06", "today"} {
		_, err := DateWindow(date)
		require.Error(t, err, "date=%q", date)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	}
}

func TestResolveGraphRange(t *testing.T) {
	day, err := ResolveGraphRange("24h")
	require.NoError(t, err)
	assert.Equal(t, MeasurementHourly, day.Measurement)
	assert.Equal(t, time.Hour, day.Every)
	assert.Equal(t, "15:04", day.LabelLayout)

	week, err := ResolveGraphRange("7d")
	require.NoError(t, err)
	assert.Equal(t, MeasurementDaily, week.Measurement)
	assert.Equal(t, 24*time.Hour, week.Every)
	assert.Equal(t, "01-02", week.LabelLayout)

	month, err := ResolveGraphRange("30d")
	require.NoError(t, err)
	assert.Equal(t, MeasurementDaily, month.Measurement)
	assert.Equal(t, 30*24*time.Hour, month.Span)
}

func TestResolveGraphRangeInvalid(t *testing.T) {
	for _, token := range []string{"12h", "1d", "", "24H"} {
		_, err := ResolveGraphRange(token)
		require.Error(t, err, "token=%q", token)
		assert.Equal(t, apperr.Validation, apperr.KindOf(err))
	}
}

func TestResolvePeriodMeasurements(t *testing.T) {
	for token, want := range map[string]string{
		"1hour":   MeasurementHourly,
		"24hours": MeasurementHourly,
		"7days":   MeasurementDaily,
		"30days":  MeasurementDaily,
	} {
		_, measurement, err := resolvePeriod(aqiPeriods, testNow, token)
		require.NoError(t, err, "period=%q", token)
		assert.Equal(t, want, measurement, "period=%q", token)
	}

	_, measurement, err := resolvePeriod(summaryPeriods, testNow, "1day")
	require.NoError(t, err)
	assert.Equal(t, MeasurementHourly, measurement)

	_, _, err = resolvePeriod(aqiPeriods, testNow, "2weeks")
	require.Error(t, err)
	assert.Equal(t, apperr.Validation, apperr.KindOf(err))
}
