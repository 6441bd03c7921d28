package stats

import (
	"fmt"
	"io"
	"strings"
)

const separator = "===================================="

// ReportReading writes a single reading pair.
func (c *Collector) ReportReading(w io.Writer, forward, reverse uint16) error {
	_, err := fmt.Fprintf(w, "fwdReading: %d    revReading: %d\n", forward, reverse)
	return err
}

// ReportGroup writes the statistics of the last computed group.
func (c *Collector) ReportGroup(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString("FWD\n")
	sb.WriteString(fmt.Sprintf("  fwdMinReading: %d\n", c.fwd.minReading))
	sb.WriteString(fmt.Sprintf("  fwdMaxReading: %d\n", c.fwd.maxReading))
	sb.WriteString(fmt.Sprintf("  fwdSD: %.2f\n", c.fwd.sd))
	sb.WriteString(" \n")

	sb.WriteString("REV\n")
	sb.WriteString(fmt.Sprintf("  revMinReading: %d\n", c.rev.minReading))
	sb.WriteString(fmt.Sprintf("  revMaxReading: %d\n", c.rev.maxReading))
	sb.WriteString(fmt.Sprintf("  revSD: %.2f\n", c.rev.sd))

	_, err := io.WriteString(w, sb.String())
	return err
}

// ReportScanSummary writes the scan-wide averages and VSWR extremes.
func (c *Collector) ReportScanSummary(w io.Writer) error {
	s := c.Summary()

	var sb strings.Builder

	sb.WriteString(separator + "\n")
	sb.WriteString("***Statistics Summary***\n")
	sb.WriteString(" \n")

	sb.WriteString(fmt.Sprintf("-----> minSWR: %.2f   maxSWR: %.2f <----- \n", s.MinSWR, s.MaxSWR))
	sb.WriteString(" \n")

	sb.WriteString("FWD READING STATS\n")
	sb.WriteString(fmt.Sprintf("  avgFwdReadingMin: %.2f\n", s.Forward.AvgMinReading))
	sb.WriteString(fmt.Sprintf("  avgFwdSD: %.4f\n", s.Forward.AvgSD))
	sb.WriteString(fmt.Sprintf("  avgFwdReadingMax: %.2f\n", s.Forward.AvgMaxReading))
	sb.WriteString(" \n")

	sb.WriteString("REV READING STATS\n")
	sb.WriteString(fmt.Sprintf("  avgRevReadingMin: %.2f\n", s.Reverse.AvgMinReading))
	sb.WriteString(fmt.Sprintf("  avgRevSD: %.4f\n", s.Reverse.AvgSD))
	sb.WriteString(fmt.Sprintf("  avgRevReadingMax: %.2f\n", s.Reverse.AvgMaxReading))
	sb.WriteString(separator + "\n")

	_, err := io.WriteString(w, sb.String())
	return err
}
