package app

import (
	"errors"
	"time"

	"github.com/roman-kulish/antenna-analyzer/internal/analyzer"
	"github.com/roman-kulish/antenna-analyzer/internal/stats"
)

var errNoPoints = errors.New("scan has no points")

// PlotData is a stored scan prepared for rendering
type PlotData struct {
	StartTime time.Time
	Band      analyzer.Band
	Points    []analyzer.Point // ordered by frequency
	Summary   *stats.Summary   // optional

	FrequencyMin float64
	FrequencyMax float64
}

func NewPlotData(startTime time.Time, band analyzer.Band, points []analyzer.Point, summary *stats.Summary) (*PlotData, error) {
	if len(points) == 0 {
		return nil, errNoPoints
	}

	p := &PlotData{
		StartTime:    startTime,
		Band:         band,
		Points:       points,
		Summary:      summary,
		FrequencyMin: float64(band.StartFrequency),
		FrequencyMax: float64(band.EndFrequency),
	}

	// stored points may fall outside of the band
	for _, point := range points {
		f := float64(point.Frequency)
		if f < p.FrequencyMin {
			p.FrequencyMin = f
		}
		if f > p.FrequencyMax {
			p.FrequencyMax = f
		}
	}
	if p.FrequencyMax <= p.FrequencyMin {
		p.FrequencyMax = p.FrequencyMin + 1
	}

	return p, nil
}

// Resonance returns the point with the lowest SWR
func (p *PlotData) Resonance() analyzer.Point {
	best, _ := (&analyzer.Result{Points: p.Points}).Best()
	return best
}
