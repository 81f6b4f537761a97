package script

import (
	"testing"

	"indofakta-pipeline/config"
)

func testWriter() *Writer {
	return &Writer{
		cfg: &config.Config{
			Script: config.ScriptConfig{
				MaxScriptSec:   60,
				WordsPerSecond: 2.5,
				ContentStyle:   "casual",
			},
			Timeline: config.TimelineConfig{MinClipSec: 1.5, MaxClipSec: 4.0},
		},
	}
}

func TestParseScriptJSONPlain(t *testing.T) {
	raw, err := parseScriptJSON(`{"segments":[{"text":"Tahukah kamu?","visual_keyword":"question mark","duration_estimate":2.0}]}`)
	if err != nil {
		t.Fatalf("parseScriptJSON: %v", err)
	}
	if len(raw.Segments) != 1 || raw.Segments[0].VisualKeyword != "question mark" {
		t.Errorf("unexpected segments: %+v", raw.Segments)
	}
}

func TestParseScriptJSONMarkdownFenced(t *testing.T) {
	response := "```json\n{\"segments\":[{\"text\":\"Fakta madu.\",\"visual_keyword\":\"honey jar\",\"duration_estimate\":3}]}\n```"
	raw, err := parseScriptJSON(response)
	if err != nil {
		t.Fatalf("parseScriptJSON: %v", err)
	}
	if raw.Segments[0].Text != "Fakta madu." {
		t.Errorf("text = %q", raw.Segments[0].Text)
	}
}

func TestParseScriptJSONEmbeddedInCommentary(t *testing.T) {
	response := `Berikut script yang diminta:
{"segments":[{"text":"Gurita punya tiga jantung.","visual_keyword":"octopus swimming","duration_estimate":3.5}]}
Semoga membantu!`
	raw, err := parseScriptJSON(response)
	if err != nil {
		t.Fatalf("parseScriptJSON: %v", err)
	}
	if raw.Segments[0].VisualKeyword != "octopus swimming" {
		t.Errorf("keyword = %q", raw.Segments[0].VisualKeyword)
	}
}

func TestParseScriptJSONGarbage(t *testing.T) {
	if _, err := parseScriptJSON("maaf, saya tidak bisa"); err == nil {
		t.Error("expected error for non-JSON response")
	}
}

func TestValidateSegmentsRepairs(t *testing.T) {
	w := testWriter()

	raw := []segmentJSON{
		{Text: "Kalimat pertama yang valid.", VisualKeyword: "honey jar", DurationEstimate: "3.0"},
		{Text: "", VisualKeyword: "dropped"},                                             // empty text dropped
		{Text: "Kalimat tanpa keyword sama sekali.", DurationEstimate: "2.5"},            // keyword from leading words
		{Text: "Lima kata dalam kalimat ini.", VisualKeyword: "x", DurationEstimate: ""}, // duration from word count
		{Text: "Durasi liar.", VisualKeyword: "y", DurationEstimate: "99"},               // clamped to 2*max
		{Text: "Terlalu cepat.", VisualKeyword: "z", DurationEstimate: "0.1"},            // clamped to min
	}

	segments := w.validateSegments(raw)
	if len(segments) != 5 {
		t.Fatalf("segments = %d, want 5", len(segments))
	}
	if segments[1].VisualKeyword != "Kalimat tanpa keyword" {
		t.Errorf("fallback keyword = %q", segments[1].VisualKeyword)
	}
	if got := segments[2].DurationEstimate; got != 5.0/2.5 {
		t.Errorf("word-count duration = %v, want 2.0", got)
	}
	if segments[3].DurationEstimate != 8.0 {
		t.Errorf("clamped duration = %v, want 8.0 (2*max)", segments[3].DurationEstimate)
	}
	if segments[4].DurationEstimate != 1.5 {
		t.Errorf("clamped duration = %v, want 1.5 (min)", segments[4].DurationEstimate)
	}
	for i, s := range segments {
		if s.Index != i {
			t.Errorf("segment %d index = %d", i, s.Index)
		}
	}
}

func TestStripFences(t *testing.T) {
	if got := stripFences("```json\n{}\n```"); got != "{}" {
		t.Errorf("stripFences = %q", got)
	}
	if got := stripFences("{}"); got != "{}" {
		t.Errorf("stripFences = %q", got)
	}
}
