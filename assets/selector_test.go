package assets

import (
	"testing"

	"indofakta-pipeline/types"
)

func testAssets() map[string]*types.VideoAsset {
	return map[string]*types.VideoAsset{
		"honey jar": {Keyword: "honey jar", FilePath: "/tmp/honey.mp4", DurationSec: 12.0},
		"pyramid":   {Keyword: "pyramid", FilePath: "/tmp/pyramid.mp4", DurationSec: 10.0},
		"octopus":   {Keyword: "octopus", FilePath: "/tmp/octopus.mp4", DurationSec: 8.0},
	}
}

func TestPickPrefersKeywordAsset(t *testing.T) {
	s := NewSelector(testAssets(), nil)

	pick, err := s.Pick("pyramid", 0, 4.0)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if pick.FilePath != "/tmp/pyramid.mp4" {
		t.Errorf("file = %s, want pyramid clip", pick.FilePath)
	}
	if pick.SourceOffset != 0 || pick.AvailableSec != 4.0 {
		t.Errorf("pick = %+v, want offset 0 avail 4.0", pick)
	}
}

func TestPickVariantsAvoidRepetition(t *testing.T) {
	s := NewSelector(testAssets(), nil)

	first, err := s.Pick("pyramid", 0, 4.0)
	if err != nil {
		t.Fatalf("Pick variant 0: %v", err)
	}
	second, err := s.Pick("pyramid", 1, 4.0)
	if err != nil {
		t.Fatalf("Pick variant 1: %v", err)
	}
	if first.FilePath == second.FilePath {
		t.Errorf("consecutive variants picked the same file %s with alternatives available", first.FilePath)
	}
}

func TestPickReusesFileAtDifferentOffset(t *testing.T) {
	assets := map[string]*types.VideoAsset{
		"rain": {Keyword: "rain", FilePath: "/tmp/rain.mp4", DurationSec: 20.0},
	}
	s := NewSelector(assets, nil)

	first, _ := s.Pick("rain", 0, 4.0)
	second, _ := s.Pick("rain", 1, 4.0)
	if first.SourceOffset == second.SourceOffset {
		t.Errorf("both picks start at %.1f; expected distinct spans of the single file", first.SourceOffset)
	}
}

func TestPickFallsBackWhenExhausted(t *testing.T) {
	assets := map[string]*types.VideoAsset{
		"rain": {Keyword: "rain", FilePath: "/tmp/rain.mp4", DurationSec: 5.0},
	}
	s := NewSelector(assets, nil)

	// One pick claims the whole file; the next must still return footage.
	if _, err := s.Pick("rain", 0, 5.0); err != nil {
		t.Fatalf("first pick: %v", err)
	}
	pick, err := s.Pick("rain", 1, 4.0)
	if err != nil {
		t.Fatalf("exhausted pick: %v", err)
	}
	if pick.FilePath != "/tmp/rain.mp4" || pick.SourceOffset != 0 {
		t.Errorf("fallback pick = %+v, want reuse from start", pick)
	}
}

func TestPickShortSourceReportsAvailable(t *testing.T) {
	assets := map[string]*types.VideoAsset{
		"spark": {Keyword: "spark", FilePath: "/tmp/spark.mp4", DurationSec: 2.0},
	}
	s := NewSelector(assets, nil)

	pick, err := s.Pick("spark", 0, 6.0)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if pick.AvailableSec != 2.0 {
		t.Errorf("available = %v, want 2.0 (source length)", pick.AvailableSec)
	}
}

func TestPickProbesUnknownDurations(t *testing.T) {
	assets := map[string]*types.VideoAsset{
		"cached": {Keyword: "cached", FilePath: "/tmp/cached.mp4"}, // cache hit, duration unknown
	}
	probed := 0
	s := NewSelector(assets, func(path string) (float64, error) {
		probed++
		return 9.0, nil
	})

	pick, err := s.Pick("cached", 0, 4.0)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if probed != 1 {
		t.Errorf("probe called %d times, want 1", probed)
	}
	if pick.AvailableSec != 4.0 {
		t.Errorf("available = %v, want 4.0", pick.AvailableSec)
	}

	// Duration is memoized on the asset; a second pick must not re-probe.
	if _, err := s.Pick("cached", 1, 4.0); err != nil {
		t.Fatalf("second pick: %v", err)
	}
	if probed != 1 {
		t.Errorf("probe called %d times after second pick, want 1", probed)
	}
}

func TestPickUnknownKeywordStillReturnsFootage(t *testing.T) {
	s := NewSelector(testAssets(), nil)

	pick, err := s.Pick("keyword nobody downloaded", 0, 3.0)
	if err != nil {
		t.Fatalf("Pick: %v", err)
	}
	if pick.FilePath == "" {
		t.Error("expected a fallback pick from the pool")
	}
}

func TestPickEmptyPool(t *testing.T) {
	s := NewSelector(map[string]*types.VideoAsset{}, nil)
	if _, err := s.Pick("anything", 0, 3.0); err == nil {
		t.Error("expected error with no footage")
	}
}
