package aqi

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/ecp-air/airquality-backend/internal/tsdb"
)

// MetricPoint is one element of a flat-list response. Timestamps are
// rendered in the platform's display zone with offset.
type MetricPoint struct {
	Field     string  `json:"field"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// FlatList emits one point per record. Callers treat an empty result as
// "no data for the requested period", never as an empty success.
func FlatList(records []tsdb.Record) []MetricPoint {
	points := make([]MetricPoint, 0, len(records))
	for _, rec := range records {
		points = append(points, MetricPoint{
			Field:     rec.Field,
			Value:     Sanitize(rec.Value),
			Timestamp: rec.Time.In(displayZone).Format(time.RFC3339),
		})
	}
	return points
}

// SummaryRow holds one value per tracked field for a single day or hour.
// Daily rows carry Date; hourly rows carry Time and Datetime. Fields never
// seen for a label stay at 0.0.
type SummaryRow struct {
	Date        string  `json:"date,omitempty"`
	Time        string  `json:"time,omitempty"`
	Datetime    string  `json:"datetime,omitempty"`
	AQI         float64 `json:"AQI"`
	PM1         float64 `json:"PM1"`
	PM25        float64 `json:"PM2_5"`
	PM4         float64 `json:"PM4"`
	PM10        float64 `json:"PM10"`
	CO2         float64 `json:"CO2"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
}

func (r *SummaryRow) setField(field string, value float64) {
	switch field {
	case FieldAQI:
		r.AQI = value
	case FieldPM1:
		r.PM1 = value
	case FieldPM25:
		r.PM25 = value
	case FieldPM4:
		r.PM4 = value
	case FieldPM10:
		r.PM10 = value
	case FieldCO2:
		r.CO2 = value
	case FieldTemperature:
		r.Temperature = value
	case FieldHumidity:
		r.Humidity = value
	}
}

// DailyRows groups records by day label. Arrival order does not matter;
// rows accumulate field values as the stream is consumed and the final
// output is sorted ascending by date.
func DailyRows(records []tsdb.Record) []SummaryRow {
	byDate := make(map[string]*SummaryRow)
	for _, rec := range records {
		date := rec.Time.UTC().Format("2006-01-02")
		row, ok := byDate[date]
		if !ok {
			row = &SummaryRow{Date: date}
			byDate[date] = row
		}
		row.setField(rec.Field, Sanitize(rec.Value))
	}
	return sortRows(byDate, func(r *SummaryRow) string { return r.Date })
}

// HourlyRows groups records by "HH:MM" label; the full datetime stamp is
// taken at the first occurrence for each label.
func HourlyRows(records []tsdb.Record) []SummaryRow {
	byHour := make(map[string]*SummaryRow)
	for _, rec := range records {
		t := rec.Time.UTC()
		hour := t.Format("15:04")
		row, ok := byHour[hour]
		if !ok {
			row = &SummaryRow{
				Time:     hour,
				Datetime: t.Format("2006-01-02 15:04:05"),
			}
			byHour[hour] = row
		}
		row.setField(rec.Field, Sanitize(rec.Value))
	}
	return sortRows(byHour, func(r *SummaryRow) string { return r.Time })
}

func sortRows(rows map[string]*SummaryRow, key func(*SummaryRow) string) []SummaryRow {
	out := make([]SummaryRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return key(&out[i]) < key(&out[j]) })
	return out
}

// GraphPoint is one plotted point; the label format depends on the range.
type GraphPoint struct {
	Time      string  `json:"time"`
	Datetime  string  `json:"datetime"`
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// GraphStats summarizes a series over its strictly positive values only.
// Sanitized-to-zero points, including originally-zero readings, are
// excluded; callers depend on 0.0 acting as a "no value" sentinel.
type GraphStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Count int     `json:"count"`
}

// GraphSeries shapes records into plotted points with summary statistics.
func GraphSeries(records []tsdb.Record, gr GraphRange) ([]GraphPoint, GraphStats) {
	points := make([]GraphPoint, 0, len(records))
	for _, rec := range records {
		t := rec.Time.UTC()
		points = append(points, GraphPoint{
			Time:      t.Format(gr.LabelLayout),
			Datetime:  t.Format(gr.DatetimeLayout),
			Value:     Sanitize(rec.Value),
			Timestamp: t.Format(time.RFC3339),
		})
	}

	var stats GraphStats
	var sum float64
	for _, p := range points {
		if p.Value <= 0 {
			continue
		}
		if stats.Count == 0 || p.Value < stats.Min {
			stats.Min = p.Value
		}
		if p.Value > stats.Max {
			stats.Max = p.Value
		}
		sum += p.Value
		stats.Count++
	}
	if stats.Count > 0 {
		stats.Avg = math.Round(sum/float64(stats.Count)*100) / 100
	}
	return points, stats
}

// MonthsWithData collects the distinct "YYYY-MM" labels present in the
// records, sorted ascending.
func MonthsWithData(records []tsdb.Record) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		if rec.Time.IsZero() {
			continue
		}
		seen[rec.Time.UTC().Format("2006-01")] = struct{}{}
	}
	months := make([]string, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Strings(months)
	return months
}

func joinSorted(tokens []string) string {
	sort.Strings(tokens)
	return strings.Join(tokens, ", ")
}
