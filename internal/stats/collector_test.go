package stats

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/stat"
)

const tolerance = 1e-9

func recordGroup(t *testing.T, c *Collector, fwd, rev []uint16) {
	t.Helper()

	c.BeginGroup()
	for i := range fwd {
		if err := c.RecordReading(fwd[i], rev[i], i); err != nil {
			t.Fatalf("RecordReading(%d): %v", i, err)
		}
	}
}

func mean(values []uint16) float64 {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	return stat.Mean(data, nil)
}

func TestNew_Validation(t *testing.T) {
	testCases := []struct {
		name      string
		groups    int
		groupSize int
		wantErr   error
	}{
		{"zero groups", 0, 10, ErrInvalidScanSize},
		{"negative groups", -1, 10, ErrInvalidScanSize},
		{"group size of one", 50, 1, ErrInvalidGroupSize},
		{"group size above capacity", 50, MaxGroupSize + 1, ErrInvalidGroupSize},
		{"smallest valid", 1, 2, nil},
		{"full capacity", 100, MaxGroupSize, nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := New(tc.groups, tc.groupSize)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.GroupSize() != tc.groupSize || c.ScanGroupCount() != tc.groups {
				t.Errorf("expected %d/%d, got %d/%d", tc.groups, tc.groupSize, c.ScanGroupCount(), c.GroupSize())
			}
		})
	}
}

func TestCollector_MinMaxPersistAcrossGroups(t *testing.T) {
	c, err := New(2, 3)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}
	c.BeginScan()

	first := []uint16{5, 3, 9}
	recordGroup(t, c, first, first)
	if err = c.ComputeGroupStatistics(mean(first), mean(first)); err != nil {
		t.Fatalf("ComputeGroupStatistics: %v", err)
	}

	g := c.Group()
	if g.Forward.MinReading != 3 || g.Forward.MaxReading != 9 {
		t.Errorf("after first group expected min 3 max 9, got min %d max %d", g.Forward.MinReading, g.Forward.MaxReading)
	}

	second := []uint16{2, 10, 7}
	recordGroup(t, c, second, second)
	if err = c.ComputeGroupStatistics(mean(second), mean(second)); err != nil {
		t.Fatalf("ComputeGroupStatistics: %v", err)
	}

	g = c.Group()
	if g.Forward.MinReading != 2 || g.Forward.MaxReading != 10 {
		t.Errorf("after second group expected min 2 max 10, got min %d max %d", g.Forward.MinReading, g.Forward.MaxReading)
	}
	if g.Reverse.MinReading != 2 || g.Reverse.MaxReading != 10 {
		t.Errorf("reverse channel: expected min 2 max 10, got min %d max %d", g.Reverse.MinReading, g.Reverse.MaxReading)
	}

	// A third group with milder values must not move the extremes back.
	third := []uint16{6, 6, 7}
	recordGroup(t, c, third, third)
	if err = c.ComputeGroupStatistics(mean(third), mean(third)); err != nil {
		t.Fatalf("ComputeGroupStatistics: %v", err)
	}

	g = c.Group()
	if g.Forward.MinReading != 2 || g.Forward.MaxReading != 10 {
		t.Errorf("extremes regressed: got min %d max %d", g.Forward.MinReading, g.Forward.MaxReading)
	}
}

func TestCollector_StandardDeviation(t *testing.T) {
	t.Run("all equal readings", func(t *testing.T) {
		c, err := New(1, 10)
		if err != nil {
			t.Fatalf("Failed to create collector: %v", err)
		}

		readings := make([]uint16, 10)
		for i := range readings {
			readings[i] = 500
		}
		recordGroup(t, c, readings, readings)
		if err = c.ComputeGroupStatistics(500, 500); err != nil {
			t.Fatalf("ComputeGroupStatistics: %v", err)
		}

		if sd := c.Group().Forward.SD; sd != 0 {
			t.Errorf("expected SD 0, got %f", sd)
		}
		if sd := c.Group().Reverse.SD; sd != 0 {
			t.Errorf("expected SD 0, got %f", sd)
		}
	})

	t.Run("two readings", func(t *testing.T) {
		c, err := New(1, 2)
		if err != nil {
			t.Fatalf("Failed to create collector: %v", err)
		}

		recordGroup(t, c, []uint16{10, 20}, []uint16{20, 10})
		if err = c.ComputeGroupStatistics(15, 15); err != nil {
			t.Fatalf("ComputeGroupStatistics: %v", err)
		}

		want := math.Sqrt(50)
		g := c.Group()
		if math.Abs(g.Forward.SD-want) > tolerance {
			t.Errorf("forward: expected SD %f, got %f", want, g.Forward.SD)
		}
		if math.Abs(g.Reverse.SD-want) > tolerance {
			t.Errorf("reverse: expected SD %f, got %f", want, g.Reverse.SD)
		}
	})

	t.Run("matches sample standard deviation", func(t *testing.T) {
		fwd := []uint16{512, 498, 530, 501, 507, 495, 522, 515}
		rev := []uint16{41, 38, 44, 40, 39, 43, 37, 42}

		c, err := New(1, len(fwd))
		if err != nil {
			t.Fatalf("Failed to create collector: %v", err)
		}

		recordGroup(t, c, fwd, rev)
		if err = c.ComputeGroupStatistics(mean(fwd), mean(rev)); err != nil {
			t.Fatalf("ComputeGroupStatistics: %v", err)
		}

		toFloats := func(v []uint16) []float64 {
			f := make([]float64, len(v))
			for i := range v {
				f[i] = float64(v[i])
			}
			return f
		}

		g := c.Group()
		if want := stat.StdDev(toFloats(fwd), nil); math.Abs(g.Forward.SD-want) > 1e-6 {
			t.Errorf("forward: expected SD %f, got %f", want, g.Forward.SD)
		}
		if want := stat.StdDev(toFloats(rev), nil); math.Abs(g.Reverse.SD-want) > 1e-6 {
			t.Errorf("reverse: expected SD %f, got %f", want, g.Reverse.SD)
		}
	})

	t.Run("squared deviations reset per group", func(t *testing.T) {
		c, err := New(2, 2)
		if err != nil {
			t.Fatalf("Failed to create collector: %v", err)
		}

		recordGroup(t, c, []uint16{10, 20}, []uint16{10, 20})
		if err = c.ComputeGroupStatistics(15, 15); err != nil {
			t.Fatalf("ComputeGroupStatistics: %v", err)
		}

		recordGroup(t, c, []uint16{30, 30}, []uint16{30, 30})
		if err = c.ComputeGroupStatistics(30, 30); err != nil {
			t.Fatalf("ComputeGroupStatistics: %v", err)
		}

		if sd := c.Group().Forward.SD; sd != 0 {
			t.Errorf("expected SD 0 for constant second group, got %f", sd)
		}
	})
}

func TestCollector_VSWRExtremes(t *testing.T) {
	c, err := New(4, 2)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}
	c.BeginScan()

	for i, vswr := range []float64{1.2, 3.4, 1.0, 5.6} {
		readings := []uint16{uint16(100 + i), uint16(110 + i)}
		recordGroup(t, c, readings, readings)
		if i%2 == 0 {
			c.RecordVSWRExtremes(vswr)
			if err = c.ComputeGroupStatistics(mean(readings), mean(readings)); err != nil {
				t.Fatalf("ComputeGroupStatistics: %v", err)
			}
			continue
		}
		if err = c.ComputeGroupStatistics(mean(readings), mean(readings)); err != nil {
			t.Fatalf("ComputeGroupStatistics: %v", err)
		}
		c.RecordVSWRExtremes(vswr)
	}

	s := c.Summary()
	if s.MinSWR != 1.0 {
		t.Errorf("expected min SWR 1.0, got %f", s.MinSWR)
	}
	if s.MaxSWR != 5.6 {
		t.Errorf("expected max SWR 5.6, got %f", s.MaxSWR)
	}
}

func TestCollector_SummaryAverages(t *testing.T) {
	const groups = 50

	c, err := New(groups, 2)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}
	c.BeginScan()

	for g := 0; g < groups; g++ {
		recordGroup(t, c, []uint16{300, 400}, []uint16{20, 40})
		if err = c.ComputeGroupStatistics(350, 30); err != nil {
			t.Fatalf("ComputeGroupStatistics: %v", err)
		}
	}

	s := c.Summary()
	if s.Forward.AvgMinReading != 300 {
		t.Errorf("expected average forward min 300, got %f", s.Forward.AvgMinReading)
	}
	if s.Forward.AvgMaxReading != 400 {
		t.Errorf("expected average forward max 400, got %f", s.Forward.AvgMaxReading)
	}
	if s.Reverse.AvgMinReading != 20 || s.Reverse.AvgMaxReading != 40 {
		t.Errorf("expected average reverse min/max 20/40, got %f/%f", s.Reverse.AvgMinReading, s.Reverse.AvgMaxReading)
	}
	if want := math.Sqrt(2 * 50 * 50); math.Abs(s.Forward.AvgSD-want) > 1e-6 {
		t.Errorf("expected average forward SD %f, got %f", want, s.Forward.AvgSD)
	}
	if s.GroupsComputed != groups {
		t.Errorf("expected %d groups computed, got %d", groups, s.GroupsComputed)
	}

	// Summary is read-only.
	if again := c.Summary(); again != s {
		t.Errorf("summary changed between calls: %+v != %+v", again, s)
	}
}

func TestCollector_SummaryDividesByScanGroupCount(t *testing.T) {
	c, err := New(4, 2)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	// Only two of the four groups are computed.
	for g := 0; g < 2; g++ {
		recordGroup(t, c, []uint16{100, 100}, []uint16{10, 10})
		if err = c.ComputeGroupStatistics(100, 10); err != nil {
			t.Fatalf("ComputeGroupStatistics: %v", err)
		}
	}

	if got := c.Summary().Forward.AvgMinReading; got != 50 {
		t.Errorf("expected 200/4 = 50, got %f", got)
	}
}

func TestCollector_BeginScanResets(t *testing.T) {
	c, err := New(2, 2)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	recordGroup(t, c, []uint16{100, 200}, []uint16{10, 30})
	if err = c.ComputeGroupStatistics(150, 20); err != nil {
		t.Fatalf("ComputeGroupStatistics: %v", err)
	}
	c.RecordVSWRExtremes(2.5)
	c.RecordVSWRExtremes(0.9)

	c.BeginScan()

	s := c.Summary()
	if s.MinSWR != initialMinSWR || s.MaxSWR != 0 {
		t.Errorf("expected SWR extremes %d/0, got %f/%f", initialMinSWR, s.MinSWR, s.MaxSWR)
	}
	if s.Forward != (ChannelSummary{}) || s.Reverse != (ChannelSummary{}) {
		t.Errorf("expected zero averages, got %+v / %+v", s.Forward, s.Reverse)
	}
	if s.GroupsComputed != 0 {
		t.Errorf("expected 0 groups computed, got %d", s.GroupsComputed)
	}

	// Running min/max trackers are not part of the scan reset.
	if g := c.Group(); g.Forward.MinReading != 100 || g.Forward.MaxReading != 200 {
		t.Errorf("expected trackers to survive BeginScan, got %+v", g.Forward)
	}
}

func TestCollector_ContractViolations(t *testing.T) {
	c, err := New(1, 3)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	if err = c.RecordReading(1, 1, 0); !errors.Is(err, ErrGroupNotOpen) {
		t.Errorf("expected ErrGroupNotOpen before BeginGroup, got %v", err)
	}
	if err = c.ComputeGroupStatistics(0, 0); !errors.Is(err, ErrGroupNotOpen) {
		t.Errorf("expected ErrGroupNotOpen before BeginGroup, got %v", err)
	}

	c.BeginGroup()

	for _, index := range []int{-1, 3, MaxGroupSize} {
		if err = c.RecordReading(1, 1, index); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("index %d: expected ErrIndexOutOfRange, got %v", index, err)
		}
	}

	// Recording the same index twice does not complete the group.
	for _, index := range []int{0, 1, 1} {
		if err = c.RecordReading(1, 1, index); err != nil {
			t.Fatalf("RecordReading(%d): %v", index, err)
		}
	}
	if err = c.ComputeGroupStatistics(1, 1); !errors.Is(err, ErrIncompleteGroup) {
		t.Errorf("expected ErrIncompleteGroup, got %v", err)
	}

	if err = c.RecordReading(1, 1, 2); err != nil {
		t.Fatalf("RecordReading(2): %v", err)
	}
	if err = c.ComputeGroupStatistics(1, 1); err != nil {
		t.Fatalf("ComputeGroupStatistics: %v", err)
	}

	// The group is closed after its statistics are computed.
	if err = c.ComputeGroupStatistics(1, 1); !errors.Is(err, ErrGroupNotOpen) {
		t.Errorf("expected ErrGroupNotOpen on second compute, got %v", err)
	}
}
