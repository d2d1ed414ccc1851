package app

import (
	"image/color"
	"testing"
	"time"

	"github.com/phaseline/phylink/internal/storage"
)

func testRecords() []storage.CFRRecord {
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	return []storage.CFRRecord{
		{Timestamp: base, CFRMagDB: []float64{-40, -20, -30}},
		{Timestamp: base.Add(time.Second), CFRMagDB: []float64{-35, -10, -25}},
	}
}

func TestNewWaterfall(t *testing.T) {
	w := NewWaterfall(testRecords())

	if w.Width != 3 {
		t.Errorf("Expected width 3, got %d", w.Width)
	}
	if len(w.Rows) != 2 {
		t.Errorf("Expected 2 rows, got %d", len(w.Rows))
	}
	if w.MinDB != -40 || w.MaxDB != -10 {
		t.Errorf("Expected bounds [-40, -10], got [%g, %g]", w.MinDB, w.MaxDB)
	}
	if !w.TimestampEnd.After(w.TimestampStart) {
		t.Error("Timestamps should span the session")
	}
}

func TestRenderer_Dimensions(t *testing.T) {
	config := NewConfig()
	config.CellWidth = 4
	config.CellHeight = 2

	img, err := NewRenderer(config).Render(NewWaterfall(testRecords()))
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	if got, want := img.Bounds().Dx(), leftBorder+3*4; got != want {
		t.Errorf("Expected image width %d, got %d", want, got)
	}
	if got, want := img.Bounds().Dy(), topBorder+2*2+bottomBorder; got != want {
		t.Errorf("Expected image height %d, got %d", want, got)
	}
}

func TestRenderer_EmptySession(t *testing.T) {
	if _, err := NewRenderer(NewConfig()).Render(NewWaterfall(nil)); err == nil {
		t.Error("Empty session should fail to render")
	}
}

func TestColorMapper_Clamping(t *testing.T) {
	cm := NewColorMapper(ThermalTheme, -40, 0)

	low := cm.GetColor(-100)
	if low != cm.colorMap[0] {
		t.Error("Below-range value should clamp to the coldest color")
	}

	high := cm.GetColor(50)
	if high != cm.colorMap[colorMapSize-1] {
		t.Error("Above-range value should clamp to the hottest color")
	}

	r, _, _, _ := high.(color.RGBA).RGBA()
	if r != 0xffff {
		t.Errorf("Thermal maximum should be fully red, got %v", high)
	}
}

func TestColorMapper_DegenerateRange(t *testing.T) {
	cm := NewColorMapper(GrayscaleTheme, -20, -20)
	if got := cm.GetColor(-20); got == nil {
		t.Error("Flat range should still return a color")
	}
}
