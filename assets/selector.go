package assets

import (
	"fmt"
	"sort"

	"indofakta-pipeline/types"
)

// minUsableSec is the shortest leftover span of a source video worth showing
const minUsableSec = 0.5

// Pick is a resolved footage choice for one timeline placement
type Pick struct {
	FilePath     string
	SourceOffset float64 // where to start reading in the source video
	AvailableSec float64 // usable footage from the offset; may be shorter than requested (renderer loops)
}

// Selector resolves (visualKeyword, variantIndex) pairs from the timeline to
// concrete footage files. Higher variant indices rotate through the other
// downloaded assets so consecutive placements of a long segment do not repeat
// the same clip, and used time ranges per file are tracked so even a reused
// file shows a different span.
//
// Selector is not safe for concurrent use; the renderer walks the timeline
// sequentially.
type Selector struct {
	byKeyword map[string]*types.VideoAsset
	pool      []*types.VideoAsset
	used      map[string][]span
	probe     func(path string) (float64, error)
}

type span struct {
	start, end float64
}

// NewSelector builds a selector over downloaded assets. probe measures a
// file's duration when the asset metadata lacks one (cache hits).
func NewSelector(byKeyword map[string]*types.VideoAsset, probe func(string) (float64, error)) *Selector {
	// A deterministic pool order keeps render plans reproducible.
	keywords := make([]string, 0, len(byKeyword))
	for kw := range byKeyword {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	pool := make([]*types.VideoAsset, 0, len(keywords))
	for _, kw := range keywords {
		pool = append(pool, byKeyword[kw])
	}

	return &Selector{
		byKeyword: byKeyword,
		pool:      pool,
		used:      make(map[string][]span),
		probe:     probe,
	}
}

// Pick resolves one placement to a footage file and source offset
func (s *Selector) Pick(keyword string, variantIndex int, neededSec float64) (Pick, error) {
	if len(s.pool) == 0 {
		return Pick{}, fmt.Errorf("assets: no footage available")
	}

	candidates := s.candidates(keyword, variantIndex)
	for _, asset := range candidates {
		dur, err := s.assetDuration(asset)
		if err != nil || dur <= 0 {
			continue
		}
		if offset, avail, ok := s.claimSpan(asset.FilePath, dur, neededSec); ok {
			return Pick{FilePath: asset.FilePath, SourceOffset: offset, AvailableSec: avail}, nil
		}
	}

	// Everything exhausted: reuse the primary candidate from the start without
	// tracking. Repetition beats a hole in the video.
	primary := candidates[0]
	dur, err := s.assetDuration(primary)
	if err != nil || dur <= 0 {
		dur = neededSec
	}
	avail := neededSec
	if dur < avail {
		avail = dur
	}
	return Pick{FilePath: primary.FilePath, SourceOffset: 0, AvailableSec: avail}, nil
}

// candidates orders the pool for a placement: the keyword's own asset first,
// then the rest rotated by variant index so each split placement starts its
// search at a different asset.
func (s *Selector) candidates(keyword string, variantIndex int) []*types.VideoAsset {
	out := make([]*types.VideoAsset, 0, len(s.pool))

	primary, hasPrimary := s.byKeyword[keyword]
	start := 0
	if hasPrimary {
		for i, a := range s.pool {
			if a == primary {
				start = i
				break
			}
		}
	}

	n := len(s.pool)
	for i := 0; i < n; i++ {
		out = append(out, s.pool[(start+variantIndex+i)%n])
	}
	return out
}

func (s *Selector) assetDuration(asset *types.VideoAsset) (float64, error) {
	if asset.DurationSec > 0 {
		return asset.DurationSec, nil
	}
	if s.probe == nil {
		return 0, fmt.Errorf("assets: no duration for %s", asset.FilePath)
	}
	dur, err := s.probe(asset.FilePath)
	if err != nil {
		return 0, err
	}
	asset.DurationSec = dur
	return dur, nil
}

// claimSpan finds an unused time range in the file and marks it used
func (s *Selector) claimSpan(path string, videoDur, neededSec float64) (offset, avail float64, ok bool) {
	usedSpans := s.used[path]

	starts := []float64{0}
	for _, u := range usedSpans {
		if u.end < videoDur {
			starts = append(starts, u.end)
		}
	}
	sort.Float64s(starts)

	for _, start := range starts {
		end := start + neededSec
		if end > videoDur {
			end = videoDur
		}
		if end-start < minUsableSec {
			continue
		}
		if overlaps(usedSpans, start, end) {
			continue
		}
		s.used[path] = append(s.used[path], span{start, end})
		return start, end - start, true
	}
	return 0, 0, false
}

func overlaps(spans []span, start, end float64) bool {
	for _, u := range spans {
		if end > u.start && start < u.end {
			return true
		}
	}
	return false
}
