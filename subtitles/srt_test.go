package subtitles

import (
	"strings"
	"testing"

	"indofakta-pipeline/types"
)

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00,000"},
		{1.5, "00:00:01,500"},
		{61.25, "00:01:01,250"},
		{3599.999, "00:59:59,999"},
		{3661.0, "01:01:01,000"},
		{-2, "00:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestBuildSRT(t *testing.T) {
	script := &types.Script{
		Segments: []types.Segment{
			{Text: "Tahukah kamu madu tidak pernah basi?", AudioDurationSec: 3.0},
			{Text: "Arkeolog menemukannya di makam Mesir kuno.", AudioDurationSec: 4.25},
		},
	}

	srt := BuildSRT(script, 0)

	if !strings.HasPrefix(srt, "1\n00:00:00,000 --> 00:00:03,000\n") {
		t.Errorf("first entry header wrong:\n%s", srt)
	}
	if !strings.Contains(srt, "2\n00:00:03,000 --> 00:00:07,250\n") {
		t.Errorf("second entry should start where the first ended:\n%s", srt)
	}
	if !strings.Contains(srt, "Tahukah kamu madu tidak pernah basi?") {
		t.Error("missing first narration text")
	}
}

func TestBuildSRTSkipsEmptySegments(t *testing.T) {
	script := &types.Script{
		Segments: []types.Segment{
			{Text: "Pertama.", AudioDurationSec: 2.0},
			{Text: "   ", AudioDurationSec: 1.0},
			{Text: "Kedua.", AudioDurationSec: 2.0},
		},
	}

	srt := BuildSRT(script, 0)

	// The blank segment is skipped but still advances the clock.
	if !strings.Contains(srt, "2\n00:00:03,000 --> 00:00:05,000\n") {
		t.Errorf("entry after blank segment mistimed:\n%s", srt)
	}
	if strings.Contains(srt, "3\n") {
		t.Errorf("blank segment should not produce an entry:\n%s", srt)
	}
}

func TestWrapLines(t *testing.T) {
	got := wrapLines("satu dua tiga empat lima", 9)
	want := "satu dua\ntiga\nempat\nlima"
	if got != want {
		t.Errorf("wrapLines = %q, want %q", got, want)
	}

	if got := wrapLines("pendek", 0); got != "pendek" {
		t.Errorf("maxChars 0 should leave text untouched, got %q", got)
	}
}
