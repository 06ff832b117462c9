package aqi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitize(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want float64
	}{
		{"nil", nil, 0.0},
		{"string", "23.5", 0.0},
		{"bool", true, 0.0},
		{"nan", math.NaN(), 0.0},
		{"positive infinity", math.Inf(1), 0.0},
		{"negative infinity", math.Inf(-1), 0.0},
		{"negative", -3.2, 0.0},
		{"zero", 0.0, 0.0},
		{"plain float", 23.456, 23.46},
		{"rounds down", 23.454, 23.45},
		{"float32", float32(1.5), 1.5},
		{"int", 42, 42.0},
		{"int64", int64(7), 7.0},
		{"large value", 12345.6789, 12345.68},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.in))
		})
	}
}
