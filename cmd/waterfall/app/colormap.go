package app

import (
	"image/color"
	"math"
)

// ColorTheme selects the dB-to-color gradient.
type ColorTheme string

const (
	ThermalTheme   ColorTheme = "thermal"   // Black to red to yellow to white
	GrayscaleTheme ColorTheme = "grayscale" // Black to white

	colorMapSize = 256
)

// ColorMapper pre-computes the gradient once and maps dB values into it.
type ColorMapper struct {
	colorMap []color.Color
	min      float64
	perIndex float64
}

// NewColorMapper builds the gradient for the given theme over [minDB, maxDB].
func NewColorMapper(theme ColorTheme, minDB, maxDB float64) *ColorMapper {
	cm := &ColorMapper{
		colorMap: make([]color.Color, colorMapSize),
		min:      minDB,
		perIndex: (maxDB - minDB) / float64(colorMapSize-1),
	}

	themeFn := thermalColor
	if theme == GrayscaleTheme {
		themeFn = grayscaleColor
	}
	for i := range cm.colorMap {
		cm.colorMap[i] = themeFn(float64(i) / float64(colorMapSize-1))
	}
	return cm
}

// GetColor maps a dB value to its gradient color, clamping out-of-range
// values to the ends.
func (cm *ColorMapper) GetColor(db float64) color.Color {
	if cm.perIndex <= 0 {
		return cm.colorMap[0]
	}

	index := int((db - cm.min) / cm.perIndex)
	if index < 0 {
		return cm.colorMap[0]
	}
	if index >= colorMapSize {
		return cm.colorMap[colorMapSize-1]
	}
	return cm.colorMap[index]
}

func thermalColor(power float64) color.Color {
	if power < 0.33 {
		return color.RGBA{
			R: uint8((power * 3) * 255),
			A: 255,
		}
	}
	if power < 0.66 {
		return color.RGBA{
			R: 255,
			G: uint8(((power - 0.33) * 3) * 255),
			A: 255,
		}
	}
	return color.RGBA{
		R: 255,
		G: 255,
		B: uint8(math.Min(1, (power-0.66)*3) * 255),
		A: 255,
	}
}

func grayscaleColor(power float64) color.Color {
	v := uint8(math.Pow(power, 0.7) * 255)
	return color.RGBA{R: v, G: v, B: v, A: 255}
}
