// Package render turns computed metrics into terminal visuals. It consumes
// the core's outputs and owns no signal processing.
package render

import (
	"math"
	"strings"
)

const defaultWidth = 40

// Sparkline draws a max-pooled single-line profile of the data, suited to
// impulse-response magnitude around a correlation peak.
func Sparkline(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}

	chars := []byte(" _.-=oO#")
	chunk := max(1, len(data)/width)

	var reduced []float64
	peak := 0.0
	for i := 0; i < len(data) && len(reduced) < width; i += chunk {
		m := data[i]
		for _, v := range data[i:min(i+chunk, len(data))] {
			if v > m {
				m = v
			}
		}
		reduced = append(reduced, m)
		if m > peak {
			peak = m
		}
	}

	if peak == 0 {
		return strings.Repeat("_", width)
	}

	var sb strings.Builder
	for _, v := range reduced {
		idx := int(v / peak * float64(len(chars)-1))
		sb.WriteByte(chars[clampIdx(idx, len(chars))])
	}
	return sb.String()
}

// BarChart draws a mean-pooled block-character profile normalized to the data
// range, suited to frequency-response vectors.
func BarChart(data []float64, width int) string {
	if len(data) == 0 {
		return ""
	}
	if width <= 0 {
		width = defaultWidth
	}

	lo, hi := data[0], data[0]
	for _, v := range data {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	chars := []rune("  ▂▃▄▅▆▇█")
	chunk := max(1, len(data)/width)

	var sb strings.Builder
	count := 0
	for i := 0; i < len(data) && count < width; i += chunk {
		seg := data[i:min(i+chunk, len(data))]
		var mean float64
		for _, v := range seg {
			mean += v
		}
		mean /= float64(len(seg))

		norm := 0.0
		if hi > lo {
			norm = (mean - lo) / (hi - lo)
		}
		sb.WriteRune(chars[clampIdx(int(norm*float64(len(chars)-1)), len(chars))])
		count++
	}
	return sb.String()
}

// Compass draws a one-line bearing indicator for an angle in [-90, 90]
// degrees, broadside marked at center.
func Compass(angleDeg float64) string {
	const width = 50
	chars := []byte(strings.Repeat("-", width))
	chars[width/2] = '|'

	pos := int((angleDeg + 90) / 180 * (width - 1))
	chars[clampIdx(pos, width)] = 'O'
	return string(chars)
}

// DualGauge draws a signed magnitude bar around a center pivot, used for
// approaching/receding velocity.
func DualGauge(value, maxVal float64, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	mid := width / 2
	chars := []byte(strings.Repeat(" ", width))
	chars[mid] = '|'

	if maxVal > 0 {
		barLen := min(mid-1, int(math.Abs(value)/maxVal*float64(mid-1)))
		if value > 0 {
			for i := mid + 1; i <= mid+barLen && i < width; i++ {
				chars[i] = '>'
			}
		} else if value < 0 {
			for i := mid - 1; i >= mid-barLen && i >= 0; i-- {
				chars[i] = '<'
			}
		}
	}
	return string(chars)
}

// DensityMap maps dB values onto density characters between the given
// bounds, one character per value.
func DensityMap(db []float64, minDB, maxDB float64) string {
	chars := []byte(" .:-=+*#%@")

	var sb strings.Builder
	for _, v := range db {
		norm := 0.0
		switch {
		case v >= maxDB:
			norm = 1.0
		case v > minDB:
			norm = (v - minDB) / (maxDB - minDB)
		}
		sb.WriteByte(chars[clampIdx(int(norm*float64(len(chars)-1)), len(chars))])
	}
	return sb.String()
}

func clampIdx(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
