package aqi

import "time"

// Measurements written to and read from the time-series store.
// air_quality holds raw ingested readings; the summary measurements are
// produced downstream at hourly and daily resolution.
const (
	MeasurementRaw    = "air_quality"
	MeasurementHourly = "AirQualitySummary"
	MeasurementDaily  = "AirQualitySummary24h"
)

// TagNode is the tag key carrying the node identity on every point.
const TagNode = "node_name"

// Field names.
const (
	FieldAQI         = "AQI"
	FieldPM1         = "PM1"
	FieldPM25        = "PM2_5"
	FieldPM4         = "PM4"
	FieldPM10        = "PM10"
	FieldCO2         = "CO2"
	FieldTemperature = "temperature"
	FieldHumidity    = "humidity"
)

// ReadingFields is the filter set for raw readings, in the order the
// filters are rendered.
var ReadingFields = []string{
	FieldCO2, FieldPM1, FieldPM10, FieldPM25, FieldPM4, FieldHumidity, FieldTemperature,
}

// SummaryFields is the canonical field order of summary rows.
var SummaryFields = []string{
	FieldAQI, FieldPM1, FieldPM25, FieldPM4, FieldPM10, FieldCO2, FieldTemperature, FieldHumidity,
}

// GraphFields enumerates the fields a graph may plot.
var GraphFields = SummaryFields

// ValidGraphField reports whether f may be plotted.
func ValidGraphField(f string) bool {
	for _, known := range GraphFields {
		if f == known {
			return true
		}
	}
	return false
}

// displayZone is the platform's local timezone, used for flat-list
// timestamps. Range boundaries sent to the store stay in UTC.
var displayZone = loadDisplayZone()

// DisplayZone returns the platform's local timezone.
func DisplayZone() *time.Location {
	return displayZone
}

func loadDisplayZone() *time.Location {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		// Hosts without tzdata still get the right offset; Thailand has
		// no daylight saving.
		return time.FixedZone("+07", 7*60*60)
	}
	return loc
}
