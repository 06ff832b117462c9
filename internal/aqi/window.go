package aqi

import (
	"fmt"
	"time"

	"github.com/ecp-air/airquality-backend/internal/apperr"
)

// Window is a resolved query range with an optional aggregation bucket.
// Start and Stop are UTC instants; Every of zero means no aggregation.
type Window struct {
	Start time.Time
	Stop  time.Time
	Every time.Duration
}

// maxWindowHours bounds the hours parameter of the window query (31 days).
const maxWindowHours = 744

// HoursWindow resolves a trailing window of n hours, aggregated into a
// single bucket spanning the whole window.
func HoursWindow(now time.Time, hours int) (Window, error) {
	if hours < 1 || hours > maxWindowHours {
		return Window{}, apperr.Newf(apperr.Validation, "hours must be between 1 and %d", maxWindowHours)
	}
	span := time.Duration(hours) * time.Hour
	return Window{
		Start: now.UTC().Add(-span),
		Stop:  now.UTC(),
		Every: span,
	}, nil
}

// Timeframes for the mean-aggregated series endpoint.
var timeframes = map[string]struct {
	span  time.Duration
	every time.Duration
}{
	"hourly":  {24 * time.Hour, time.Hour},
	"daily":   {30 * 24 * time.Hour, 24 * time.Hour},
	"weekly":  {12 * 7 * 24 * time.Hour, 7 * 24 * time.Hour},
	"monthly": {365 * 24 * time.Hour, 30 * 24 * time.Hour},
}

// TimeframeWindow resolves a named timeframe to its fixed range and bucket.
func TimeframeWindow(now time.Time, timeframe string) (Window, error) {
	tf, ok := timeframes[timeframe]
	if !ok {
		return Window{}, apperr.Newf(apperr.Validation,
			"timeframe must be one of hourly, daily, weekly, monthly; got %q", timeframe)
	}
	return Window{
		Start: now.UTC().Add(-tf.span),
		Stop:  now.UTC(),
		Every: tf.every,
	}, nil
}

// MonthWindow resolves a "YYYY-MM" token to [first instant of the month,
// last second of the month]. Stored summary points sit on whole hours, so
// the dropped final second never holds data.
func MonthWindow(month string) (Window, error) {
	start, err := time.ParseInLocation("2006-01", month, time.UTC)
	if err != nil {
		return Window{}, apperr.New(apperr.Validation, "invalid month format, use YYYY-MM")
	}
	stop := start.AddDate(0, 1, 0).Add(-time.Second)
	return Window{Start: start, Stop: stop}, nil
}

// DateWindow resolves a "YYYY-MM-DD" token to [start of day, start of next
// day - 1s].
func DateWindow(date string) (Window, error) {
	start, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return Window{}, apperr.New(apperr.Validation, "invalid date format, use YYYY-MM-DD")
	}
	stop := start.AddDate(0, 0, 1).Add(-time.Second)
	return Window{Start: start, Stop: stop}, nil
}

// GraphRange couples a graph time-range token with its source measurement,
// bucket width and label layouts. The label divergence between 24h and the
// multi-day ranges is part of the response contract.
type GraphRange struct {
	Token          string
	Span           time.Duration
	Every          time.Duration
	Measurement    string
	LabelLayout    string
	DatetimeLayout string
}

// GraphRangeTokens is the enumerated set of valid graph ranges.
var GraphRangeTokens = []string{"24h", "7d", "30d"}

// ResolveGraphRange validates and resolves a graph time-range token.
func ResolveGraphRange(token string) (GraphRange, error) {
	switch token {
	case "24h":
		return GraphRange{
			Token:          token,
			Span:           24 * time.Hour,
			Every:          time.Hour,
			Measurement:    MeasurementHourly,
			LabelLayout:    "15:04",
			DatetimeLayout: "2006-01-02 15:04:05",
		}, nil
	case "7d":
		return GraphRange{
			Token:          token,
			Span:           7 * 24 * time.Hour,
			Every:          24 * time.Hour,
			Measurement:    MeasurementDaily,
			LabelLayout:    "01-02",
			DatetimeLayout: "2006-01-02",
		}, nil
	case "30d":
		return GraphRange{
			Token:          token,
			Span:           30 * 24 * time.Hour,
			Every:          24 * time.Hour,
			Measurement:    MeasurementDaily,
			LabelLayout:    "01-02",
			DatetimeLayout: "2006-01-02",
		}, nil
	}
	return GraphRange{}, apperr.Newf(apperr.Validation,
		"time_range must be one of %v; got %q", GraphRangeTokens, token)
}

// Window resolves the graph range relative to now.
func (g GraphRange) Window(now time.Time) Window {
	return Window{
		Start: now.UTC().Add(-g.Span),
		Stop:  now.UTC(),
		Every: g.Every,
	}
}

// seriesPeriod describes a precomputed-series convenience period.
type seriesPeriod struct {
	span        time.Duration
	measurement string
}

// AQI convenience series: sub-day periods read the hourly summary, multi-day
// read the daily one, mirroring the graph endpoint's measurement split.
var aqiPeriods = map[string]seriesPeriod{
	"1hour":   {time.Hour, MeasurementHourly},
	"24hours": {24 * time.Hour, MeasurementHourly},
	"7days":   {7 * 24 * time.Hour, MeasurementDaily},
	"30days":  {30 * 24 * time.Hour, MeasurementDaily},
}

var summaryPeriods = map[string]seriesPeriod{
	"1hour":  {time.Hour, MeasurementHourly},
	"1day":   {24 * time.Hour, MeasurementHourly},
	"7days":  {7 * 24 * time.Hour, MeasurementDaily},
	"30days": {30 * 24 * time.Hour, MeasurementDaily},
}

func resolvePeriod(periods map[string]seriesPeriod, now time.Time, token string) (Window, string, error) {
	p, ok := periods[token]
	if !ok {
		known := make([]string, 0, len(periods))
		for k := range periods {
			known = append(known, k)
		}
		return Window{}, "", apperr.New(apperr.Validation, fmt.Sprintf("unknown period %q", token)+"; valid periods: "+joinSorted(known))
	}
	return Window{Start: now.UTC().Add(-p.span), Stop: now.UTC()}, p.measurement, nil
}
