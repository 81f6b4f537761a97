package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const validYAML = `
timeline:
  min_clip_sec: 2.0
  max_clip_sec: 4.0
render:
  video_width: 1080
  video_height: 1920
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Timeline.ExtensionStrategy != "freeze" {
		t.Errorf("default extension strategy = %q, want freeze", cfg.Timeline.ExtensionStrategy)
	}
	if cfg.Script.WordsPerSecond != 2.5 {
		t.Errorf("default words per second = %v, want 2.5", cfg.Script.WordsPerSecond)
	}
	if cfg.Assets.MaxParallelDownloads != 3 {
		t.Errorf("default parallel downloads = %d, want 3", cfg.Assets.MaxParallelDownloads)
	}
	if cfg.Render.FPS != 30 {
		t.Errorf("default fps = %d, want 30", cfg.Render.FPS)
	}
}

func TestLoadRejectsInvertedClipBounds(t *testing.T) {
	_, err := Load(writeConfig(t, `
timeline:
  min_clip_sec: 4.0
  max_clip_sec: 2.0
render:
  video_width: 1080
  video_height: 1920
`))
	if err == nil {
		t.Fatal("expected error for min > max")
	}
	if !strings.Contains(err.Error(), "clip bounds") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadRejectsUnknownStrategy(t *testing.T) {
	_, err := Load(writeConfig(t, `
timeline:
  min_clip_sec: 2.0
  max_clip_sec: 4.0
  extension_strategy: stretch
render:
  video_width: 1080
  video_height: 1920
`))
	if err == nil {
		t.Fatal("expected error for unknown extension_strategy")
	}
}

func TestLoadRejectsMissingResolution(t *testing.T) {
	_, err := Load(writeConfig(t, `
timeline:
  min_clip_sec: 2.0
  max_clip_sec: 4.0
`))
	if err == nil {
		t.Fatal("expected error for zero resolution")
	}
}
