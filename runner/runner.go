package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"indofakta-pipeline/assets"
	"indofakta-pipeline/audio"
	"indofakta-pipeline/config"
	"indofakta-pipeline/render"
	"indofakta-pipeline/research"
	"indofakta-pipeline/script"
	"indofakta-pipeline/subtitles"
	"indofakta-pipeline/timeline"
	"indofakta-pipeline/types"
	"indofakta-pipeline/upload"
)

// Progress reports stage transitions to the caller: a short phase name, a
// rough completion percentage and a human-readable message.
type Progress func(phase string, percent int, message string)

// Runner executes the full pipeline once per run. It is shared by the CLI
// entry point and the API server's background sessions.
type Runner struct {
	cfg *config.Config
}

// New creates a Runner over a validated config
func New(cfg *config.Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run executes every stage for one run. topic overrides the configured
// research topic when non-empty. The returned state is also persisted as
// pipeline_state.json in the run directory, success or not.
func (r *Runner) Run(ctx context.Context, runID, topic string, progress Progress) (*types.PipelineState, error) {
	if progress == nil {
		progress = func(string, int, string) {}
	}

	cfg := r.cfg
	if topic != "" {
		c := *r.cfg
		c.Research.Topic = topic
		cfg = &c
	}

	runDir := filepath.Join(cfg.Paths.Output, runID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	state := &types.PipelineState{
		RunID:     runID,
		StartedAt: time.Now().UTC().Format(time.RFC3339),
	}
	defer func() {
		state.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		saveJSON(filepath.Join(runDir, "pipeline_state.json"), state)
	}()

	fail := func(stage string, err error) (*types.PipelineState, error) {
		state.Error = fmt.Sprintf("%s: %v", stage, err)
		return state, fmt.Errorf("%s: %w", stage, err)
	}

	// ─────────────────────────────────────────────
	// STAGE 1: Research
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 1: Research ━━━")
	progress("mining", 10, "Mining content...")
	miner := research.New(cfg)
	content, err := miner.Run(ctx)
	if err != nil {
		return fail("Stage 1 Research", err)
	}
	state.Content = content
	saveJSON(filepath.Join(runDir, "content.json"), content)

	// ─────────────────────────────────────────────
	// STAGE 2: Script Writing
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 2: Script Writing ━━━")
	progress("scripting", 25, fmt.Sprintf("Writing script for %q...", content.Title))
	writer := script.New(cfg)
	scriptData, err := writer.Run(ctx, content)
	if err != nil {
		return fail("Stage 2 Script", err)
	}
	state.Script = scriptData
	saveJSON(filepath.Join(runDir, "script.json"), scriptData)

	// ─────────────────────────────────────────────
	// STAGE 3: Narration
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 3: Narration ━━━")
	progress("narration", 40, "Synthesizing narration...")
	audioDir := filepath.Join(runDir, "audio")
	narrator := audio.New(cfg)
	if err := narrator.Run(ctx, scriptData, audioDir); err != nil {
		return fail("Stage 3 Narration", err)
	}
	// Re-save script with measured audio durations
	saveJSON(filepath.Join(runDir, "script.json"), scriptData)

	// ─────────────────────────────────────────────
	// STAGE 4: Footage Download
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 4: Footage Download ━━━")
	progress("footage", 55, "Downloading stock footage...")
	downloader, err := assets.NewDownloader(cfg)
	if err != nil {
		return fail("Stage 4 Footage init", err)
	}
	footage, err := downloader.Run(ctx, scriptData, runDir)
	if err != nil {
		return fail("Stage 4 Footage", err)
	}
	saveJSON(filepath.Join(runDir, "footage.json"), footage)

	// ─────────────────────────────────────────────
	// STAGE 5: Timeline
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 5: Timeline ━━━")
	progress("timeline", 65, "Planning clip timeline...")
	builder, err := timeline.NewBuilder(timeline.ClipBounds{
		MinSec: cfg.Timeline.MinClipSec,
		MaxSec: cfg.Timeline.MaxClipSec,
	}, timeline.ExtensionStrategy(cfg.Timeline.ExtensionStrategy))
	if err != nil {
		return fail("Stage 5 Timeline init", err)
	}
	tl, err := builder.Build(scriptData.Segments)
	if err != nil {
		return fail("Stage 5 Timeline", err)
	}
	log.Printf("[timeline] 📦 %d placements planned, total %.1fs", len(tl.Placements), tl.TotalSec)
	saveJSON(filepath.Join(runDir, "timeline.json"), tl)

	// ─────────────────────────────────────────────
	// STAGE 6: Subtitles
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 6: Subtitles ━━━")
	progress("subtitles", 70, "Building subtitles...")
	subGen := subtitles.New(cfg)
	srtFile, err := subGen.Run(scriptData, runDir)
	if err != nil {
		log.Printf("⚠️  Stage 6 Subtitles failed: %v — continuing without subtitles", err)
		srtFile = ""
	}

	// ─────────────────────────────────────────────
	// STAGE 7: Render
	// ─────────────────────────────────────────────
	log.Println("\n━━━ STAGE 7: Rendering ━━━")
	progress("rendering", 80, "Rendering final video...")
	selector := assets.NewSelector(footage, audio.ProbeDuration)
	renderer := render.New(cfg, selector)
	finalVideo, err := renderer.Run(ctx, scriptData, tl, runDir)
	if err != nil {
		return fail("Stage 7 Render", err)
	}
	state.VideoFile = finalVideo

	// Burn subtitles into video if available
	if srtFile != "" && cfg.Subtitles.BurnIntoVideo {
		subtitledVideo, err := subGen.BurnIntoVideo(ctx, finalVideo, srtFile, runDir)
		if err != nil {
			log.Printf("⚠️  Subtitle burn failed: %v — using video without subtitles", err)
		} else {
			state.VideoFile = subtitledVideo
			finalVideo = subtitledVideo
		}
	}

	// ─────────────────────────────────────────────
	// STAGE 8: Upload
	// ─────────────────────────────────────────────
	if !cfg.Upload.Enabled {
		log.Println("\n━━━ STAGE 8: Upload skipped (disabled in config) ━━━")
		progress("done", 100, "Video ready")
		return state, nil
	}
	log.Println("\n━━━ STAGE 8: YouTube Upload ━━━")
	progress("uploading", 90, "Uploading to YouTube...")
	uploader := upload.New(cfg)
	videoID, videoURL, err := uploader.Run(ctx, finalVideo, scriptData)
	if err != nil {
		return fail("Stage 8 Upload", err)
	}
	state.YouTubeID = videoID
	state.YouTubeURL = videoURL
	_ = upload.LogUpload(videoID, videoURL, finalVideo, cfg.Paths.Logs, scriptData)

	progress("done", 100, "Video uploaded")
	return state, nil
}

func saveJSON(path string, v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
