package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/vector"
)

const (
	dpi            = 96.0
	fontSize       = 10.0
	tickMarkLength = 5
	pixelsPerLabel = 120.0
	curveWidth     = 2.0

	defaultPlotWidth  = 800
	defaultPlotHeight = 400
	defaultMaxVSWR    = 5.0
	minPlotSize       = 100

	// Default border sizes in pixels
	defaultTopBorder    = 30
	defaultLeftBorder   = 60
	defaultBottomBorder = 50
	defaultRightBorder  = 30

	defaultDatetimeFormat = time.DateTime
)

// Reference SWR levels drawn as horizontal guides
var swrGuides = []float64{1.5, 2, 3, 5, 10, 20, 50}

// BorderConfig defines the sizes of white space around the plot
type BorderConfig struct {
	Top    int // Top padding
	Left   int // Space for SWR scale
	Bottom int // Space for frequency scale and information bar
	Right  int // Right padding
}

// RenderConfig holds all configuration options for SWR curve visualization
type RenderConfig struct {
	Width          int     // Plot area width in pixels
	Height         int     // Plot area height in pixels
	MaxVSWR        float64 // Upper limit of the SWR axis, higher values are clipped
	FontSize       float64 // Font size in points
	DatetimeFormat string
	Location       *time.Location
	NoAnnotations  bool

	BorderConfig BorderConfig
}

// SWRRenderer draws a scan as an SWR over frequency curve
type SWRRenderer struct {
	config RenderConfig
}

// NewSWRRenderer creates a new renderer with the given configuration
func NewSWRRenderer(config RenderConfig) (*SWRRenderer, error) {
	if config.Width == 0 {
		config.Width = defaultPlotWidth
	}
	if config.Height == 0 {
		config.Height = defaultPlotHeight
	}
	if config.Width < minPlotSize || config.Height < minPlotSize {
		return nil, fmt.Errorf("plot size must be at least %dx%d pixels", minPlotSize, minPlotSize)
	}
	if config.MaxVSWR == 0 {
		config.MaxVSWR = defaultMaxVSWR
	}
	if config.MaxVSWR <= 1 {
		return nil, fmt.Errorf("invalid max SWR: %0.2f", config.MaxVSWR)
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &SWRRenderer{config: config}, nil
}

// Render creates an image of the SWR curve with annotations
func (r *SWRRenderer) Render(plot *PlotData) (*image.RGBA, error) {
	fullWidth := r.config.Width + r.config.BorderConfig.Left + r.config.BorderConfig.Right
	fullHeight := r.config.Height + r.config.BorderConfig.Top + r.config.BorderConfig.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	area := image.Rect(
		r.config.BorderConfig.Left,
		r.config.BorderConfig.Top,
		r.config.BorderConfig.Left+r.config.Width,
		r.config.BorderConfig.Top+r.config.Height,
	)
	m := plotMapper{area: area, plot: plot, maxVSWR: r.config.MaxVSWR}

	r.renderGrid(img, m)

	if !r.config.NoAnnotations {
		ann, err := newAnnotator(annotatorConfig{
			FontSize:       r.config.FontSize,
			DatetimeFormat: r.config.DatetimeFormat,
			Location:       r.config.Location,
			Borders:        r.config.BorderConfig,
		})
		if err != nil {
			return nil, fmt.Errorf("creating annotator: %w", err)
		}
		defer ann.Close()

		if err = ann.annotate(img, m); err != nil {
			return nil, fmt.Errorf("drawing annotations: %w", err)
		}
	}

	r.renderCurve(img, m)

	return img, nil
}

func (r *SWRRenderer) renderGrid(img *image.RGBA, m plotMapper) {
	for _, vswr := range swrGuides {
		if vswr >= m.maxVSWR {
			break
		}
		y := m.y(vswr)
		for x := m.area.Min.X; x < m.area.Max.X; x++ {
			img.Set(x, y, gridColor)
		}
	}

	// frame
	for x := m.area.Min.X; x < m.area.Max.X; x++ {
		img.Set(x, m.area.Min.Y, color.Black)
		img.Set(x, m.area.Max.Y-1, color.Black)
	}
	for y := m.area.Min.Y; y < m.area.Max.Y; y++ {
		img.Set(m.area.Min.X, y, color.Black)
		img.Set(m.area.Max.X-1, y, color.Black)
	}
}

// renderCurve draws line segments between consecutive points, each coloured by
// the worse SWR of its two ends
func (r *SWRRenderer) renderCurve(img *image.RGBA, m plotMapper) {
	size := img.Bounds().Size()
	z := vector.NewRasterizer(size.X, size.Y)

	// resonance marker
	best := m.plot.Resonance()
	x := m.x(best.Frequency)
	for y := m.area.Min.Y + 1; y < m.area.Max.Y-1; y += 3 {
		img.Set(x, y, markerColor)
	}

	points := m.plot.Points
	if len(points) == 1 {
		p := points[0]
		x, y := float32(m.x(p.Frequency)), float32(m.y(p.VSWR))
		fillSquare(z, img, x, y, curveWidth*2, SWRToColor(p.VSWR))
		return
	}

	for i := 1; i < len(points); i++ {
		a, b := points[i-1], points[i]
		x0, y0 := float32(m.x(a.Frequency)), float32(m.y(a.VSWR))
		x1, y1 := float32(m.x(b.Frequency)), float32(m.y(b.VSWR))
		strokeSegment(z, img, x0, y0, x1, y1, curveWidth, SWRToColor(math.Max(a.VSWR, b.VSWR)))
	}
}

func strokeSegment(z *vector.Rasterizer, dst draw.Image, x0, y0, x1, y1, width float32, c color.Color) {
	dx, dy := x1-x0, y1-y0
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2

	size := dst.Bounds().Size()
	z.Reset(size.X, size.Y)
	z.MoveTo(x0+nx, y0+ny)
	z.LineTo(x1+nx, y1+ny)
	z.LineTo(x1-nx, y1-ny)
	z.LineTo(x0-nx, y0-ny)
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

func fillSquare(z *vector.Rasterizer, dst draw.Image, x, y, side float32, c color.Color) {
	half := side / 2

	size := dst.Bounds().Size()
	z.Reset(size.X, size.Y)
	z.MoveTo(x-half, y-half)
	z.LineTo(x+half, y-half)
	z.LineTo(x+half, y+half)
	z.LineTo(x-half, y+half)
	z.ClosePath()
	z.Draw(dst, dst.Bounds(), image.NewUniform(c), image.Point{})
}

// plotMapper converts frequency and SWR to image coordinates
type plotMapper struct {
	area    image.Rectangle
	plot    *PlotData
	maxVSWR float64
}

func (m plotMapper) x(frequency int64) int {
	ratio := (float64(frequency) - m.plot.FrequencyMin) / (m.plot.FrequencyMax - m.plot.FrequencyMin)
	return m.area.Min.X + int(math.Round(ratio*float64(m.area.Dx()-1)))
}

// y clips SWR to [1, maxVSWR]
func (m plotMapper) y(vswr float64) int {
	vswr = math.Max(1, math.Min(vswr, m.maxVSWR))
	ratio := (vswr - 1) / (m.maxVSWR - 1)
	return m.area.Max.Y - 1 - int(math.Round(ratio*float64(m.area.Dy()-1)))
}

type annotatorConfig struct {
	FontSize       float64
	DatetimeFormat string
	Location       *time.Location
	Borders        BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, m plotMapper) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	ops := []struct {
		msg string
		fn  func(*image.RGBA, plotMapper) error
	}{
		{"drawing frequency scale", a.drawFrequencyScale},
		{"drawing SWR scale", a.drawSWRScale},
		{"drawing info bar", a.drawInfoBar},
	}
	for _, op := range ops {
		if err := op.fn(img, m); err != nil {
			return fmt.Errorf("%s: %w", op.msg, err)
		}
	}

	return nil
}

func (a *annotator) fontHeight() int {
	metrics := a.fontFace.Metrics()
	return (metrics.Ascent + metrics.Descent).Round()
}

func (a *annotator) drawFrequencyScale(img *image.RGBA, m plotMapper) error {
	plot := m.plot
	freqStep := calculateNiceFrequencyStep(plot.FrequencyMax-plot.FrequencyMin, m.area.Dx())
	startFreq := math.Ceil(plot.FrequencyMin/freqStep) * freqStep

	textY := m.area.Max.Y + tickMarkLength + a.fontHeight()

	for freq := startFreq; freq <= plot.FrequencyMax; freq += freqStep {
		x := m.x(int64(freq))

		for y := m.area.Max.Y; y < m.area.Max.Y+tickMarkLength; y++ {
			img.Set(x, y, color.Black)
		}

		label := humanHz(freq)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-(width.Round()/2), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing frequency label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawSWRScale(img *image.RGBA, m plotMapper) error {
	metrics := a.fontFace.Metrics()
	levels := append([]float64{1}, swrGuides...)

	for _, vswr := range levels {
		if vswr > m.maxVSWR {
			break
		}
		y := m.y(vswr)

		for x := m.area.Min.X - tickMarkLength; x < m.area.Min.X; x++ {
			img.Set(x, y, color.Black)
		}

		label := formatVSWR(vswr)
		width := font.MeasureString(a.fontFace, label)
		textY := y + a.fontHeight()/2 - metrics.Descent.Round()
		pt := freetype.Pt(m.area.Min.X-tickMarkLength-3-width.Round(), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing SWR label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, m plotMapper) error {
	plot := m.plot
	best := plot.Resonance()

	var sb strings.Builder
	if plot.Band.Name != "" {
		sb.WriteString(plot.Band.Name)
		sb.WriteString(": ")
	}
	sb.WriteString(fmt.Sprintf("%s - %s", humanHz(plot.FrequencyMin), humanHz(plot.FrequencyMax)))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Resonance: %s @ SWR %0.2f", humanHz(float64(best.Frequency)), best.VSWR))
	if plot.Summary != nil {
		sb.WriteString(fmt.Sprintf("; SWR range: %0.2f - %0.2f", plot.Summary.MinSWR, plot.Summary.MaxSWR))
	}
	if !plot.StartTime.IsZero() {
		sb.WriteString("; ")
		sb.WriteString(plot.StartTime.In(a.config.Location).Format(a.config.DatetimeFormat))
	}

	metrics := a.fontFace.Metrics()
	textY := img.Bounds().Max.Y - metrics.Descent.Round() - 4

	pt := freetype.Pt(a.config.Borders.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}

func calculateNiceFrequencyStep(span float64, width int) float64 {
	// Standard step sizes in Hz
	steps := []float64{
		1_000,      // 1 kHz
		2_500,      // 2.5 kHz
		5_000,      // 5 kHz
		10_000,     // 10 kHz
		25_000,     // 25 kHz
		50_000,     // 50 kHz
		100_000,    // 100 kHz
		250_000,    // 250 kHz
		500_000,    // 500 kHz
		1_000_000,  // 1 MHz
		2_500_000,  // 2.5 MHz
		5_000_000,  // 5 MHz
		10_000_000, // 10 MHz
	}

	desiredSteps := math.Max(1, float64(width)/pixelsPerLabel)
	targetStep := span / desiredSteps

	for _, step := range steps {
		if step >= targetStep {
			return step
		}
	}

	return steps[len(steps)-1]
}

func humanHz(hz float64) string {
	value, suffix := humanize.ComputeSI(hz)
	return fmt.Sprintf("%s %sHz", humanize.FtoaWithDigits(value, 3), suffix)
}

func formatVSWR(vswr float64) string {
	return humanize.FtoaWithDigits(vswr, 1) + ":1"
}
