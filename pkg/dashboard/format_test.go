package dashboard

import (
	"math"
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/stretchr/testify/assert"
)

func TestFormatLapTime(t *testing.T) {
	tests := []struct {
		name string
		in   null.Val[float64]
		want string
	}{
		{"minutes and seconds", null.From(125.456), "02:05.456"},
		{"below a minute", null.From(59.5), "00:59.500"},
		{"whole seconds", null.From(95.0), "01:35.000"},
		{"null", null.Val[float64]{}, "-"},
		{"zero", null.From(0.0), "-"},
		{"negative", null.From(-1.0), "-"},
		{"nan", null.From(math.NaN()), "-"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatLapTime(tt.in))
		})
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		in   null.Val[float64]
		want string
	}{
		{null.From(7.5), "7.50"},
		{null.From(3.0), "3.00"},
		{null.From(8.256), "8.26"},
		{null.From(1.005), "1.00"},
		{null.From(0.125), "0.13"},
		{null.From(0.0), "0.00"},
		{null.Val[float64]{}, "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatScore(tt.in))
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2024-05-01T12:34:56.123456", "2024-05-01 12:34:56"},
		{"2024-05-01T12:34:56", "2024-05-01 12:34:56"},
		{"2024-05-01T12:34:56+02:00", "2024-05-01 10:34:56"},
		{"not a date", "-"},
		{"", "-"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatDateIn(tt.in, time.UTC), "input %q", tt.in)
	}
}

func TestFormatParamName(t *testing.T) {
	assert.Equal(t, "Front Wing Angle", FormatParamName("front_wing_angle"))
	assert.Equal(t, "Arb", FormatParamName("arb"))
	assert.Equal(t, "", FormatParamName(""))
}

func TestParameterRows(t *testing.T) {
	rows := ParameterRows(map[string]any{
		"rear_wing":      map[string]any{"value": 4.0, "unit": "deg"},
		"brake_bias":     56.5,
		"tire_compound":  "soft",
		"diff_preload":   map[string]any{"value": 80.0},
		"camber_profile": map[string]any{"fl": -3.0},
	})
	assert.Equal(t, []ParamRow{
		{Name: "Brake Bias", Value: "56.5"},
		{Name: "Camber Profile", Value: "map[fl:-3]"},
		{Name: "Diff Preload", Value: "80"},
		{Name: "Rear Wing", Value: "4", Unit: "deg"},
		{Name: "Tire Compound", Value: "soft"},
	}, rows)
}

func TestFormatRating(t *testing.T) {
	data := map[string]any{"traction": 7.0, "car_stability": 0.0}
	assert.Equal(t, "7/10", FormatRating(data, "traction"))
	assert.Equal(t, "-/10", FormatRating(data, "car_stability"))
	assert.Equal(t, "-/10", FormatRating(data, "braking_stability"))
}
