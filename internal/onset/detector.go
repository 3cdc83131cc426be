// SPDX-License-Identifier: MIT
package onset

import (
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"

	"ledviz/internal/log"
)

var logger = log.Named("Onset")

// Category is one of the frequency ranges that can fire independently.
type Category int

const (
	Beat Category = iota
	Low
	Mid
	High

	numCategories
)

// Categories lists every category in detection order.
var Categories = [numCategories]Category{Beat, Low, Mid, High}

func (c Category) String() string {
	switch c {
	case Beat:
		return "beat"
	case Low:
		return "low"
	case Mid:
		return "mid"
	case High:
		return "high"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// ParseCategory converts a case-insensitive name to a Category.
func ParseCategory(name string) (Category, error) {
	for _, c := range Categories {
		if strings.EqualFold(strings.TrimSpace(name), c.String()) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown onset category: '%s'", name)
}

// Range selects the bands [Lo*N, Hi*N) of an N band spectrum.
type Range struct {
	Lo, Hi float64
}

// Thresholds gate a category. A band qualifies when its newest value is at
// least Amplitude and at least PercentDiff percent above its running average.
type Thresholds struct {
	PercentDiff float64 `yaml:"percent_diff" json:"percent_diff"`
	Amplitude   float64 `yaml:"amplitude" json:"amplitude"`
}

// Config holds the detector layout. Thresholds can be changed later with
// SetThresholds; the rest is fixed at construction.
type Config struct {
	History    int
	Refractory time.Duration
	Ranges     [numCategories]Range
	Thresholds [numCategories]Thresholds
}

// DefaultConfig returns a 40 frame history, a 200ms refractory window and
// the stock ranges and thresholds.
func DefaultConfig() Config {
	return Config{
		History:    40,
		Refractory: 200 * time.Millisecond,
		Ranges: [numCategories]Range{
			Beat: {0, 0.11},
			Low:  {0.13, 0.4},
			Mid:  {0.4, 0.7},
			High: {0.8, 1},
		},
		Thresholds: [numCategories]Thresholds{
			Beat: {PercentDiff: 70, Amplitude: 0.7},
			Low:  {PercentDiff: 100, Amplitude: 0.5},
			Mid:  {PercentDiff: 50, Amplitude: 0.3},
			High: {PercentDiff: 30, Amplitude: 0.3},
		},
	}
}

// Flags are the detections of a single frame.
type Flags struct {
	Beat, Low, Mid, High bool
}

// Get returns the flag for c.
func (f Flags) Get(c Category) bool {
	switch c {
	case Beat:
		return f.Beat
	case Low:
		return f.Low
	case Mid:
		return f.Mid
	case High:
		return f.High
	}
	return false
}

func (f *Flags) set(c Category, v bool) {
	switch c {
	case Beat:
		f.Beat = v
	case Low:
		f.Low = v
	case Mid:
		f.Mid = v
	case High:
		f.High = v
	}
}

// Detector finds sudden energy rises per category. Detect must be called from
// a single goroutine; SetThresholds is safe from any goroutine.
type Detector struct {
	bands      int
	size       int
	refractory time.Duration
	ranges     [numCategories][2]int

	thresholds atomic.Pointer[[numCategories]Thresholds]

	// history[b] is a ring of the last size values of band b.
	history [][]float64
	head    int
	filled  int
	diffs   []float64

	lastFire [numCategories]time.Time
	fired    [numCategories]bool
}

// NewDetector creates a detector for an energy vector of bands elements.
func NewDetector(bands int, cfg Config) (*Detector, error) {
	if bands < 1 {
		return nil, fmt.Errorf("band count must be positive, got %d", bands)
	}
	if cfg.History < 1 {
		return nil, fmt.Errorf("history must be at least 1, got %d", cfg.History)
	}
	for _, c := range Categories {
		if err := validateThresholds(cfg.Thresholds[c]); err != nil {
			return nil, fmt.Errorf("%s: %w", c, err)
		}
	}

	d := &Detector{
		bands:      bands,
		size:       cfg.History,
		refractory: cfg.Refractory,
		history:    make([][]float64, bands),
		diffs:      make([]float64, bands),
	}
	for i := range d.history {
		d.history[i] = make([]float64, cfg.History)
	}
	for _, c := range Categories {
		r := cfg.Ranges[c]
		lo, hi := int(float64(bands)*r.Lo), int(float64(bands)*r.Hi)
		lo, hi = max(0, min(lo, bands)), max(0, min(hi, bands))
		d.ranges[c] = [2]int{lo, hi}
	}
	th := cfg.Thresholds
	d.thresholds.Store(&th)
	return d, nil
}

func validateThresholds(t Thresholds) error {
	if t.Amplitude < 0 || math.IsNaN(t.Amplitude) || math.IsNaN(t.PercentDiff) {
		return fmt.Errorf("invalid thresholds %+v", t)
	}
	return nil
}

// Thresholds returns the thresholds currently in effect.
func (d *Detector) Thresholds() [numCategories]Thresholds {
	return *d.thresholds.Load()
}

// SetThresholds replaces the thresholds for one category.
func (d *Detector) SetThresholds(c Category, t Thresholds) error {
	if c < 0 || c >= numCategories {
		return fmt.Errorf("unknown onset category %d", int(c))
	}
	if err := validateThresholds(t); err != nil {
		return err
	}
	for {
		old := d.thresholds.Load()
		next := *old
		next[c] = t
		if d.thresholds.CompareAndSwap(old, &next) {
			return nil
		}
	}
}

// Range returns the band index range [lo, hi) of category c.
func (d *Detector) Range(c Category) (lo, hi int) {
	return d.ranges[c][0], d.ranges[c][1]
}

// Ready reports whether the history is fully populated.
func (d *Detector) Ready() bool { return d.filled == d.size }

// Detect appends energy to the history and reports which categories fired.
func (d *Detector) Detect(energy []float64, now time.Time) Flags {
	for b := 0; b < d.bands; b++ {
		v := 0.0
		if b < len(energy) {
			v = energy[b]
		}
		d.history[b][d.head] = v
	}
	newest := d.head
	d.head = (d.head + 1) % d.size
	if d.filled < d.size {
		d.filled++
	}

	var flags Flags
	if !d.Ready() {
		return flags
	}

	for b, h := range d.history {
		avg := stat.Mean(h, nil)
		if avg == 0 {
			d.diffs[b] = 0
			continue
		}
		d.diffs[b] = math.Floor((h[newest] - avg) * 100 / avg)
	}

	th := d.thresholds.Load()
	for _, c := range Categories {
		if d.fired[c] && now.Sub(d.lastFire[c]) <= d.refractory {
			continue
		}
		lo, hi := d.Range(c)
		for b := lo; b < hi; b++ {
			if d.diffs[b] >= th[c].PercentDiff && d.history[b][newest] >= th[c].Amplitude {
				flags.set(c, true)
				d.fired[c] = true
				d.lastFire[c] = now
				logger.Debugf("%s onset in band %d (+%.0f%%)", c, b, d.diffs[b])
				break
			}
		}
	}
	return flags
}
