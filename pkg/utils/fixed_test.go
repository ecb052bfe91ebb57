package utils

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestFormatFixed(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want string
	}{
		{name: "pads", in: 7.5, want: "7.50"},
		{name: "zero", in: 0, want: "0.00"},
		{name: "rounds up", in: 8.256, want: "8.26"},
		{name: "binary below half", in: 1.005, want: "1.00"},
		{name: "binary below half 2", in: 2.675, want: "2.67"},
		{name: "exact tie", in: 0.125, want: "0.13"},
		{name: "negative exact tie", in: -0.125, want: "-0.13"},
		{name: "negative", in: -1.005, want: "-1.00"},
		{name: "large", in: 12345678.9, want: "12345678.90"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, FormatFixed(tt.in, 2), tt.want)
		})
	}
}

func TestExactDecimal(t *testing.T) {
	assert.Equal(t, ExactDecimal(1.005).String(),
		"1.00499999999999989341858963598497211933135986328125")
	assert.Equal(t, ExactDecimal(1024).String(), "1024")
}
