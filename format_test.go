package main

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func f64(f float64) *float64 { return &f }

func TestFormatRunTime(t *testing.T) {
	tests := []struct {
		name    string
		seconds *float64
		want    string
	}{
		{"nil", nil, "N/A"},
		{"nan", f64(math.NaN()), "N/A"},
		{"zero", f64(0), "0s"},
		{"sub_millisecond", f64(0.0004), "0s"},
		{"seconds_only", f64(34), "34s"},
		{"with_millis", f64(34.567), "34s 567ms"},
		{"minutes", f64(154), "2m 34s"},
		{"hours", f64(3754.567), "1h 02m 34s 567ms"},
		{"millis_round_up", f64(59.9999), "1m 00s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatRunTime(tt.seconds))
		})
	}
}

func TestPrintTableAlignment(t *testing.T) {
	var buf bytes.Buffer

	printTable(&buf, []string{"GAME", "TIME"}, [][]string{
		{"Celeste", "34s"},
		{"The Longest Game Name", "1h 02m"},
	})

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	assert.Len(t, lines, 3)
	assert.Contains(t, string(lines[0]), "GAME")
	assert.Contains(t, string(lines[2]), "1h 02m")
}
