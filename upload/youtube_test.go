package upload

import (
	"strings"
	"testing"

	"indofakta-pipeline/types"
)

func TestBuildTitleAppendsShortsTag(t *testing.T) {
	got := buildTitle(&types.Script{Title: "Fakta Gila Tentang Gurita"})
	if got != "Fakta Gila Tentang Gurita #Shorts" {
		t.Errorf("buildTitle = %q", got)
	}
}

func TestBuildTitleKeepsExistingTag(t *testing.T) {
	got := buildTitle(&types.Script{Title: "Fakta Gila #shorts"})
	if strings.Count(strings.ToLower(got), "#shorts") != 1 {
		t.Errorf("buildTitle duplicated tag: %q", got)
	}
}

func TestBuildTitleCapsLength(t *testing.T) {
	got := buildTitle(&types.Script{Title: strings.Repeat("panjang ", 20)})
	if len(got) > 100 {
		t.Errorf("title too long: %d chars", len(got))
	}
}

func TestBuildTitleFallback(t *testing.T) {
	got := buildTitle(&types.Script{})
	if !strings.HasPrefix(got, "Fakta Unik Hari Ini") {
		t.Errorf("buildTitle fallback = %q", got)
	}
}

func TestBuildDescription(t *testing.T) {
	script := &types.Script{
		Title:     "Fakta Gurita",
		SourceURL: "https://id.wikipedia.org/wiki/Gurita",
		Segments: []types.Segment{
			{Text: "Gurita punya tiga jantung!"},
		},
	}
	got := buildDescription(script, []string{"fakta unik", "indonesia"})

	if !strings.HasPrefix(got, "Gurita punya tiga jantung!") {
		t.Errorf("description missing hook line: %q", got)
	}
	if !strings.Contains(got, "Sumber: https://id.wikipedia.org/wiki/Gurita") {
		t.Errorf("description missing source: %q", got)
	}
	if !strings.Contains(got, "#faktaunik") || !strings.Contains(got, "#indonesia") {
		t.Errorf("description missing hashtags: %q", got)
	}
}
