package tsdb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecp-air/airquality-backend/internal/apperr"
)

func baseSpec() QuerySpec {
	return QuerySpec{
		Measurement: "air_quality",
		Fields:      []string{"PM2_5"},
		Tags:        map[string][]string{"node_name": {"node-01"}},
		Start:       time.Date(2025, 6, 14, 12, 0, 0, 0, time.UTC),
		Stop:        time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestFluxRendersPipeline(t *testing.T) {
	spec := baseSpec()
	spec.Every = time.Hour
	spec.SortByTime = true

	flux, err := spec.Flux("sensors")
	require.NoError(t, err)

	assert.Contains(t, flux, `from(bucket: "sensors")`)
	assert.Contains(t, flux, `range(start: 2025-06-14T12:00:00Z, stop: 2025-06-15T12:00:00Z)`)
	assert.Contains(t, flux, `r._measurement == "air_quality"`)
	assert.Contains(t, flux, `r["node_name"] == "node-01"`)
	assert.Contains(t, flux, `r._field == "PM2_5"`)
	assert.Contains(t, flux, `aggregateWindow(every: 1h, fn: mean, createEmpty: false)`)
	assert.Contains(t, flux, `sort(columns: ["_time"])`)
}

func TestFluxOpenEndedRange(t *testing.T) {
	spec := baseSpec()
	spec.Stop = time.Time{}

	flux, err := spec.Flux("sensors")
	require.NoError(t, err)
	assert.Contains(t, flux, `range(start: 2025-06-14T12:00:00Z)`)
	assert.NotContains(t, flux, "stop:")
}

func TestFluxMultipleTagValues(t *testing.T) {
	spec := baseSpec()
	spec.Tags = map[string][]string{"node_name": {"node-01", "node-02"}}

	flux, err := spec.Flux("sensors")
	require.NoError(t, err)
	assert.Contains(t, flux, `r["node_name"] == "node-01" or r["node_name"] == "node-02"`)
}

func TestFluxTimeOnly(t *testing.T) {
	spec := baseSpec()
	spec.Fields = nil
	spec.TimeOnly = true

	flux, err := spec.Flux("sensors")
	require.NoError(t, err)
	assert.Contains(t, flux, `keep(columns: ["_time"])`)
	assert.Contains(t, flux, "group()")
	assert.NotContains(t, flux, "_field")
}

func TestFluxLastPerField(t *testing.T) {
	spec := baseSpec()
	spec.LastPerField = true

	flux, err := spec.Flux("sensors")
	require.NoError(t, err)
	assert.Contains(t, flux, "last()")
}

func TestValidateRejectsInjection(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*QuerySpec)
	}{
		{"measurement with quote", func(s *QuerySpec) { s.Measurement = `air") |> drop()` }},
		{"empty measurement", func(s *QuerySpec) { s.Measurement = "" }},
		{"field with paren", func(s *QuerySpec) { s.Fields = []string{`PM2_5") or true or ("`} }},
		{"tag key with quote", func(s *QuerySpec) {
			s.Tags = map[string][]string{`node"name`: {"n"}}
		}},
		{"tag value with quote", func(s *QuerySpec) {
			s.Tags = map[string][]string{"node_name": {`x" or r["a"] == "b`}}
		}},
		{"tag value with newline", func(s *QuerySpec) {
			s.Tags = map[string][]string{"node_name": {"node\n01"}}
		}},
		{"empty tag values", func(s *QuerySpec) {
			s.Tags = map[string][]string{"node_name": {}}
		}},
		{"inverted range", func(s *QuerySpec) {
			s.Start, s.Stop = s.Stop, s.Start
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := baseSpec()
			tt.mutate(&spec)
			_, err := spec.Flux("sensors")
			require.Error(t, err)
			assert.Equal(t, apperr.Validation, apperr.KindOf(err))
		})
	}
}

func TestValidateAllowsRealisticTagValues(t *testing.T) {
	spec := baseSpec()
	spec.Tags = map[string][]string{"node_name": {"Lab 2.1 - East:A"}}
	assert.NoError(t, spec.Validate())
}

func TestFluxDuration(t *testing.T) {
	assert.Equal(t, "1d", fluxDuration(24*time.Hour))
	assert.Equal(t, "7d", fluxDuration(7*24*time.Hour))
	assert.Equal(t, "1h", fluxDuration(time.Hour))
	assert.Equal(t, "90m", fluxDuration(90*time.Minute))
	assert.Equal(t, "30s", fluxDuration(30*time.Second))
}
