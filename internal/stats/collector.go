package stats

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MaxGroupSize is the capacity of the per-group reading buffers
	MaxGroupSize = 75

	// initialMinSWR is the sentinel the scan-wide VSWR minimum starts from
	initialMinSWR = 100
)

var (
	// ErrInvalidScanSize is returned when the number of groups per scan is not positive
	ErrInvalidScanSize = errors.New("invalid scan group count")

	// ErrInvalidGroupSize is returned when the group size is outside [2, MaxGroupSize]
	ErrInvalidGroupSize = errors.New("invalid group size")

	// ErrIndexOutOfRange is returned when a reading index is outside the current group
	ErrIndexOutOfRange = errors.New("reading index out of range")

	// ErrGroupNotOpen is returned when readings are recorded or statistics are
	// computed without a preceding BeginGroup
	ErrGroupNotOpen = errors.New("no sample group open")

	// ErrIncompleteGroup is returned when statistics are computed before every
	// reading of the group has been recorded
	ErrIncompleteGroup = errors.New("sample group is incomplete")
)

// channel holds the readings and statistics of one detector channel
type channel struct {
	readings   [MaxGroupSize]uint16
	minReading uint16
	maxReading uint16
	sumSquares float64
	sd         float64

	avgMin float64
	avgMax float64
	avgSD  float64
}

func (c *channel) resetAverages() {
	c.avgMin = 0
	c.avgMax = 0
	c.avgSD = 0
}

func (c *channel) resetCounters() {
	c.sd = 0
	c.minReading = math.MaxUint16
	c.maxReading = 0
	c.sumSquares = 0
}

// compute updates the running extremes and accumulates the squared deviations
// of n readings from mean, then adds this group's figures to the scan totals.
func (c *channel) compute(n int, mean float64) {
	for _, r := range c.readings[:n] {
		c.minReading = min(c.minReading, r)
		c.maxReading = max(c.maxReading, r)

		d := float64(r) - mean
		c.sumSquares += d * d
	}

	c.sd = math.Sqrt(c.sumSquares / float64(n-1))

	c.avgSD += c.sd
	c.avgMin += float64(c.minReading)
	c.avgMax += float64(c.maxReading)
}

// Collector accumulates forward and reverse detector readings one sample group
// (scan point) at a time and keeps running totals across a scan, so that the
// noise of the analog front end can be compared between hardware revisions.
//
// Minimum and maximum readings persist across groups: they are the extremes of
// everything seen since the collector was created, not per group.
//
// Expected call order:
//
//	BeginScan
//	  BeginGroup, RecordReading x groupSize, ComputeGroupStatistics, RecordVSWRExtremes
//	  ... scanGroupCount times
//	ReportScanSummary
//
// A Collector is not safe for concurrent use.
type Collector struct {
	scanGroupCount int
	groupSize      int

	fwd channel
	rev channel

	minSWR float64
	maxSWR float64

	groupOpen      bool
	recorded       [MaxGroupSize]bool
	recordedCount  int
	groupsComputed int
}

// New creates a Collector for scans of scanGroupCount groups of groupSize readings each.
func New(scanGroupCount, groupSize int) (*Collector, error) {
	if scanGroupCount < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidScanSize, scanGroupCount)
	}
	if groupSize < 2 || groupSize > MaxGroupSize {
		return nil, fmt.Errorf("%w: %d, must be between 2 and %d", ErrInvalidGroupSize, groupSize, MaxGroupSize)
	}

	c := Collector{
		scanGroupCount: scanGroupCount,
		groupSize:      groupSize,
	}
	c.BeginScan()
	c.fwd.resetCounters()
	c.rev.resetCounters()

	return &c, nil
}

// ScanGroupCount returns the number of sample groups in a scan
func (c *Collector) ScanGroupCount() int {
	return c.scanGroupCount
}

// GroupSize returns the number of readings per sample group
func (c *Collector) GroupSize() int {
	return c.groupSize
}

// BeginScan resets the scan-wide running totals and the VSWR extremes.
func (c *Collector) BeginScan() {
	c.fwd.resetAverages()
	c.rev.resetAverages()

	c.minSWR = initialMinSWR
	c.maxSWR = 0
	c.groupsComputed = 0
}

// BeginGroup opens a new sample group. Sums of squared deviations are cleared,
// the running minimum and maximum readings are kept.
func (c *Collector) BeginGroup() {
	c.fwd.sumSquares = 0
	c.rev.sumSquares = 0

	clear(c.recorded[:])
	c.recordedCount = 0
	c.groupOpen = true
}

// RecordReading stores a forward/reverse reading pair at position index of the open group.
func (c *Collector) RecordReading(forward, reverse uint16, index int) error {
	if !c.groupOpen {
		return ErrGroupNotOpen
	}
	if index < 0 || index >= c.groupSize {
		return fmt.Errorf("%w: %d, group size %d", ErrIndexOutOfRange, index, c.groupSize)
	}

	c.fwd.readings[index] = forward
	c.rev.readings[index] = reverse

	if !c.recorded[index] {
		c.recorded[index] = true
		c.recordedCount++
	}

	return nil
}

// ComputeGroupStatistics computes the statistics of the open group using the
// supplied channel means, adds them to the scan totals and closes the group.
//
// Standard deviation uses the sample (n-1) denominator.
func (c *Collector) ComputeGroupStatistics(forwardMean, reverseMean float64) error {
	if !c.groupOpen {
		return ErrGroupNotOpen
	}
	if c.recordedCount < c.groupSize {
		return fmt.Errorf("%w: %d of %d readings recorded", ErrIncompleteGroup, c.recordedCount, c.groupSize)
	}

	c.fwd.compute(c.groupSize, forwardMean)
	c.rev.compute(c.groupSize, reverseMean)

	c.groupOpen = false
	c.groupsComputed++

	return nil
}

// RecordVSWRExtremes updates the scan-wide VSWR minimum and maximum.
func (c *Collector) RecordVSWRExtremes(vswr float64) {
	c.minSWR = min(c.minSWR, vswr)
	c.maxSWR = max(c.maxSWR, vswr)
}

// ChannelStats holds the statistics of a single detector channel. MinReading
// and MaxReading are running extremes since the collector was created, SD
// belongs to the last computed group.
type ChannelStats struct {
	MinReading uint16  `json:"minReading"`
	MaxReading uint16  `json:"maxReading"`
	SD         float64 `json:"sd"`
}

// GroupStats is the per-channel state after the last computed sample group
type GroupStats struct {
	Forward ChannelStats `json:"forward"`
	Reverse ChannelStats `json:"reverse"`
}

// Group returns the running minimum and maximum readings together with the
// standard deviation of the last computed group.
func (c *Collector) Group() GroupStats {
	return GroupStats{
		Forward: ChannelStats{MinReading: c.fwd.minReading, MaxReading: c.fwd.maxReading, SD: c.fwd.sd},
		Reverse: ChannelStats{MinReading: c.rev.minReading, MaxReading: c.rev.maxReading, SD: c.rev.sd},
	}
}

// ChannelSummary holds the scan averages of a single detector channel
type ChannelSummary struct {
	AvgMinReading float64 `json:"avgMinReading"`
	AvgMaxReading float64 `json:"avgMaxReading"`
	AvgSD         float64 `json:"avgSD"`
}

// Summary is the scan-wide statistics summary
type Summary struct {
	MinSWR         float64        `json:"minSWR"`
	MaxSWR         float64        `json:"maxSWR"`
	Forward        ChannelSummary `json:"forward"`
	Reverse        ChannelSummary `json:"reverse"`
	GroupsComputed int            `json:"groupsComputed"`
	ScanGroupCount int            `json:"scanGroupCount"`
}

// Summary returns the running totals divided by the scan group count.
// It does not reset anything; call BeginScan before the next scan.
func (c *Collector) Summary() Summary {
	n := float64(c.scanGroupCount)

	return Summary{
		MinSWR: c.minSWR,
		MaxSWR: c.maxSWR,
		Forward: ChannelSummary{
			AvgMinReading: c.fwd.avgMin / n,
			AvgMaxReading: c.fwd.avgMax / n,
			AvgSD:         c.fwd.avgSD / n,
		},
		Reverse: ChannelSummary{
			AvgMinReading: c.rev.avgMin / n,
			AvgMaxReading: c.rev.avgMax / n,
			AvgSD:         c.rev.avgSD / n,
		},
		GroupsComputed: c.groupsComputed,
		ScanGroupCount: c.scanGroupCount,
	}
}
