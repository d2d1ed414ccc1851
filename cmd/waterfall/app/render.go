package app

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"golang.org/x/image/font"

	"github.com/phaseline/phylink/internal/storage"
)

const (
	dpi      = 72.0
	fontSize = 14.0

	topBorder    = 30
	leftBorder   = 80
	bottomBorder = 60
)

// Waterfall accumulates stored frequency-response rows into the raster the
// renderer draws: one row per frame, newest at the bottom.
type Waterfall struct {
	Width          int
	MinDB, MaxDB   float64
	TimestampStart time.Time
	TimestampEnd   time.Time
	Rows           [][]float64
}

// NewWaterfall folds the session's records into a render-ready raster.
func NewWaterfall(records []storage.CFRRecord) *Waterfall {
	w := Waterfall{
		MinDB: math.MaxFloat64,
		MaxDB: -math.MaxFloat64,
	}

	for _, rec := range records {
		w.Width = max(w.Width, len(rec.CFRMagDB))
		for _, v := range rec.CFRMagDB {
			w.MinDB = math.Min(w.MinDB, v)
			w.MaxDB = math.Max(w.MaxDB, v)
		}

		if w.TimestampStart.IsZero() || w.TimestampStart.After(rec.Timestamp) {
			w.TimestampStart = rec.Timestamp
		}
		if w.TimestampEnd.IsZero() || w.TimestampEnd.Before(rec.Timestamp) {
			w.TimestampEnd = rec.Timestamp
		}

		w.Rows = append(w.Rows, rec.CFRMagDB)
	}
	return &w
}

// Renderer draws a waterfall raster into an annotated RGBA image.
type Renderer struct {
	config   *Config
	colorMap *ColorMapper
}

func NewRenderer(config *Config) *Renderer {
	return &Renderer{config: config}
}

// Render produces the full image: white background, optional scales, and the
// color-mapped waterfall cells.
func (r *Renderer) Render(w *Waterfall) (*image.RGBA, error) {
	if len(w.Rows) == 0 {
		return nil, fmt.Errorf("session has no frequency-response records")
	}

	plotWidth := w.Width * r.config.CellWidth
	plotHeight := len(w.Rows) * r.config.CellHeight

	img := image.NewRGBA(image.Rect(0, 0, leftBorder+plotWidth, topBorder+plotHeight+bottomBorder))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	r.colorMap = NewColorMapper(r.config.Theme, w.MinDB, w.MaxDB)

	for y, row := range w.Rows {
		for x, db := range row {
			cell := image.Rect(
				leftBorder+x*r.config.CellWidth,
				topBorder+y*r.config.CellHeight,
				leftBorder+(x+1)*r.config.CellWidth,
				topBorder+(y+1)*r.config.CellHeight,
			)
			draw.Draw(img, cell, image.NewUniform(r.colorMap.GetColor(db)), image.Point{}, draw.Src)
		}
	}

	if r.config.FontFile != "" {
		if err := r.annotate(img, w, plotWidth, plotHeight); err != nil {
			return nil, fmt.Errorf("annotating image: %w", err)
		}
	}
	return img, nil
}

// annotate draws the frequency scale along the top and the session info below
// the plot. The frequency axis is the baseband span of the sounding receiver,
// centered on the carrier.
func (r *Renderer) annotate(img *image.RGBA, w *Waterfall, plotWidth, plotHeight int) error {
	fontBytes, err := os.ReadFile(r.config.FontFile)
	if err != nil {
		return fmt.Errorf("reading font file: %w", err)
	}
	parsedFont, err := freetype.ParseFont(fontBytes)
	if err != nil {
		return fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(fontSize)
	ctx.SetHinting(font.HintingFull)
	ctx.SetSrc(image.Black)
	ctx.SetClip(img.Bounds())
	ctx.SetDst(img)

	// Frequency scale: label every few bins across the baseband span.
	labels := max(2, plotWidth/150)
	for i := 0; i <= labels; i++ {
		frac := float64(i) / float64(labels)
		hz := -r.config.SampleRate/2 + frac*r.config.SampleRate

		x := leftBorder + int(frac*float64(plotWidth))
		for y := topBorder - 5; y < topBorder; y++ {
			img.Set(x, y, image.Black)
		}

		pt := freetype.Pt(x-20, topBorder-10)
		if _, err = ctx.DrawString(humanHz(hz), pt); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}

	info := []string{
		fmt.Sprintf("Session start: %s", w.TimestampStart.Format(time.DateTime)),
		fmt.Sprintf("Span: %s, %d frames, %.1f to %.1f dB",
			humanHz(r.config.SampleRate), len(w.Rows), w.MinDB, w.MaxDB),
	}
	pt := freetype.Pt(leftBorder, topBorder+plotHeight+20)
	for _, s := range info {
		if _, err = ctx.DrawString(s, pt); err != nil {
			return fmt.Errorf("drawing info text: %w", err)
		}
		pt.Y += ctx.PointToFixed(fontSize * 1.3)
	}
	return nil
}

func humanHz(hz float64) string {
	si, suffix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%0.1f %sHz", si, suffix)
}
