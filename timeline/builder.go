// Package timeline turns narrated segments with measured audio durations into an
// ordered plan of visual clip placements that exactly cover the narration while
// honoring configured minimum/maximum clip durations.
package timeline

import (
	"errors"
	"fmt"
	"math"

	"indofakta-pipeline/types"
)

// Epsilon is the tolerance used when comparing durations. Audio durations come
// from ffprobe and carry float noise; anything inside this band counts as equal.
const Epsilon = 1e-6

var (
	// ErrInvalidBounds is returned when min >= max or either bound is non-positive.
	ErrInvalidBounds = errors.New("timeline: invalid clip bounds")

	// ErrInvalidDuration is returned when a segment's audio duration is
	// non-positive or non-finite.
	ErrInvalidDuration = errors.New("timeline: invalid audio duration")
)

// ExtensionStrategy decides what happens when a segment's narration is shorter
// than the minimum clip duration.
type ExtensionStrategy string

const (
	// ExtendFreeze holds the last frame so the visual reaches the minimum duration.
	ExtendFreeze ExtensionStrategy = "freeze"
	// ExtendSlowMotion slows the visual down so it reaches the minimum duration.
	ExtendSlowMotion ExtensionStrategy = "slow_motion"
	// AllowShort keeps the placement at the raw audio duration and flags it so
	// the renderer can decide how to pad it.
	AllowShort ExtensionStrategy = "allow_short"
)

// ParseStrategy maps a config string to an ExtensionStrategy
func ParseStrategy(s string) (ExtensionStrategy, error) {
	switch ExtensionStrategy(s) {
	case ExtendFreeze, ExtendSlowMotion, AllowShort:
		return ExtensionStrategy(s), nil
	}
	return "", fmt.Errorf("timeline: unknown extension strategy %q", s)
}

// ClipBounds is the process-wide min/max visual clip duration, in seconds
type ClipBounds struct {
	MinSec float64 `json:"min_sec"`
	MaxSec float64 `json:"max_sec"`
}

// Validate rejects bounds the builder cannot honor
func (b ClipBounds) Validate() error {
	if b.MinSec <= 0 || b.MaxSec <= 0 {
		return fmt.Errorf("%w: bounds must be positive (min=%.3f max=%.3f)", ErrInvalidBounds, b.MinSec, b.MaxSec)
	}
	if b.MinSec >= b.MaxSec {
		return fmt.Errorf("%w: min %.3f >= max %.3f", ErrInvalidBounds, b.MinSec, b.MaxSec)
	}
	return nil
}

// Placement schedules one visual clip within the narration timeline.
//
// VariantIndex is the ordinal of this placement within its segment; downstream
// asset selection uses it to avoid showing the identical clip in consecutive
// placements that share a visual keyword. The builder never selects assets itself.
type Placement struct {
	SegmentIndex  int     `json:"segment_index"`
	StartOffset   float64 `json:"start_offset"`
	DurationSec   float64 `json:"duration_sec"`
	VisualKeyword string  `json:"visual_keyword"`
	VariantIndex  int     `json:"variant_index"`
	IsSplit       bool    `json:"is_split"`
	// NeedsExtension marks a placement whose visual must outlast its share of
	// narration (short segment under allow_short, or an extended visual under
	// freeze/slow_motion).
	NeedsExtension bool              `json:"needs_extension"`
	Extension      ExtensionStrategy `json:"extension,omitempty"`
}

// Timeline is the ordered placement sequence spanning all segments
type Timeline struct {
	Placements []Placement `json:"placements"`
	TotalSec   float64     `json:"total_sec"`
}

// Builder plans clip placements. It is pure and stateless: the same inputs
// always yield the same timeline, and a single Builder may be shared across
// goroutines.
type Builder struct {
	bounds   ClipBounds
	strategy ExtensionStrategy
}

// NewBuilder validates the bounds and strategy once; the returned Builder is
// read-only afterwards.
func NewBuilder(bounds ClipBounds, strategy ExtensionStrategy) (*Builder, error) {
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseStrategy(string(strategy)); err != nil {
		return nil, err
	}
	return &Builder{bounds: bounds, strategy: strategy}, nil
}

// Bounds returns the configured clip bounds
func (b *Builder) Bounds() ClipBounds { return b.bounds }

// Strategy returns the active short-segment extension strategy
func (b *Builder) Strategy() ExtensionStrategy { return b.strategy }

// BuildSegment plans the placements covering one segment's narration.
//
// The sum of the returned durations equals the segment's audio duration within
// Epsilon, except under freeze/slow_motion where a too-short segment is extended
// to the minimum clip duration (the renderer keeps narration timing; only the
// visual runs longer).
func (b *Builder) BuildSegment(index int, seg types.Segment) ([]Placement, error) {
	d := seg.AudioDurationSec
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return nil, fmt.Errorf("%w: segment %d has audio duration %v", ErrInvalidDuration, index, d)
	}

	if d <= b.bounds.MaxSec+Epsilon {
		p := Placement{
			SegmentIndex:  index,
			DurationSec:   d,
			VisualKeyword: seg.VisualKeyword,
		}
		if d < b.bounds.MinSec-Epsilon {
			p.NeedsExtension = true
			p.Extension = b.strategy
			if b.strategy != AllowShort {
				// Visual extended to the minimum; narration stays at d.
				p.DurationSec = b.bounds.MinSec
			}
		}
		return []Placement{p}, nil
	}

	// Split mode: consecutive max-duration placements, remainder last.
	var out []Placement
	remaining := d
	variant := 0
	for remaining > b.bounds.MaxSec+Epsilon {
		out = append(out, Placement{
			SegmentIndex:  index,
			DurationSec:   b.bounds.MaxSec,
			VisualKeyword: seg.VisualKeyword,
			VariantIndex:  variant,
			IsSplit:       true,
		})
		remaining -= b.bounds.MaxSec
		variant++
	}

	if remaining > Epsilon {
		if remaining < b.bounds.MinSec-Epsilon {
			// Remainder too short for its own placement: fold it into the
			// previous one. That placement may now exceed MaxSec — accepted
			// trade-off over showing a sub-minimum flash cut.
			out[len(out)-1].DurationSec += remaining
		} else {
			out = append(out, Placement{
				SegmentIndex:  index,
				DurationSec:   remaining,
				VisualKeyword: seg.VisualKeyword,
				VariantIndex:  variant,
				IsSplit:       true,
			})
		}
	}
	return out, nil
}

// Build concatenates per-segment placements in segment order, carrying a
// running start offset across the whole narration.
func (b *Builder) Build(segments []types.Segment) (*Timeline, error) {
	tl := &Timeline{}
	var offset float64
	for i, seg := range segments {
		placements, err := b.BuildSegment(i, seg)
		if err != nil {
			return nil, err
		}
		for _, p := range placements {
			p.StartOffset = offset
			offset += p.DurationSec
			tl.Placements = append(tl.Placements, p)
		}
	}
	tl.TotalSec = offset
	return tl, nil
}

// SegmentPlacements groups a timeline's placements by source segment index
func (t *Timeline) SegmentPlacements() map[int][]Placement {
	out := make(map[int][]Placement)
	for _, p := range t.Placements {
		out[p.SegmentIndex] = append(out[p.SegmentIndex], p)
	}
	return out
}
