package render

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"indofakta-pipeline/assets"
	"indofakta-pipeline/config"
	"indofakta-pipeline/timeline"
	"indofakta-pipeline/types"
)

// Renderer assembles the final video by executing the timeline plan: one
// ffmpeg clip per placement, concatenated, with narration and background
// music mixed on top.
type Renderer struct {
	cfg      *config.Config
	selector *assets.Selector
}

// New creates a new Renderer over the downloaded footage
func New(cfg *config.Config, selector *assets.Selector) *Renderer {
	return &Renderer{cfg: cfg, selector: selector}
}

// Run renders the timeline into a finished MP4 (without subtitles; the
// subtitle stage burns those afterwards)
func (r *Renderer) Run(ctx context.Context, script *types.Script, tl *timeline.Timeline, outputDir string) (string, error) {
	log.Printf("[render] Assembling %d placements covering %.1fs...", len(tl.Placements), tl.TotalSec)

	clipDir := filepath.Join(outputDir, "clips")
	if err := os.MkdirAll(clipDir, 0755); err != nil {
		return "", err
	}

	clipFiles := make([]string, 0, len(tl.Placements))
	for i, p := range tl.Placements {
		clip, err := r.prepareClip(ctx, p, clipDir, i)
		if err != nil {
			return "", fmt.Errorf("placement %d (%q): %w", i, p.VisualKeyword, err)
		}
		clipFiles = append(clipFiles, clip)
	}

	silentVideo, err := r.concatClips(ctx, clipFiles, outputDir)
	if err != nil {
		return "", fmt.Errorf("concat clips: %w", err)
	}

	mixedAudio, err := r.mixAudio(ctx, script, tl, outputDir)
	if err != nil {
		return "", fmt.Errorf("mix audio: %w", err)
	}

	finalVideo, err := r.combineVideoAudio(ctx, silentVideo, mixedAudio, outputDir)
	if err != nil {
		return "", fmt.Errorf("combine video+audio: %w", err)
	}

	log.Printf("[render] ✅ Final video ready: %s", finalVideo)
	return finalVideo, nil
}

// prepareClip cuts one placement's worth of footage to the exact planned
// duration, applying the extension strategy when the placement is flagged
func (r *Renderer) prepareClip(ctx context.Context, p timeline.Placement, clipDir string, index int) (string, error) {
	pick, err := r.selector.Pick(p.VisualKeyword, p.VariantIndex, p.DurationSec)
	if err != nil {
		return "", err
	}

	outFile := filepath.Join(clipDir, fmt.Sprintf("clip_%03d.mp4", index))
	log.Printf("[render] Clip %d: %.2fs of %s (offset %.1fs)", index, p.DurationSec, filepath.Base(pick.FilePath), pick.SourceOffset)

	switch {
	case p.NeedsExtension && p.Extension == timeline.ExtendSlowMotion:
		return outFile, r.renderSlowMotion(ctx, pick, p.DurationSec, outFile)
	case p.NeedsExtension && p.Extension == timeline.ExtendFreeze:
		return outFile, r.renderFreeze(ctx, pick, p.DurationSec, outFile)
	case pick.AvailableSec+1e-3 < p.DurationSec:
		return outFile, r.renderLooped(ctx, pick, p.DurationSec, outFile)
	default:
		return outFile, r.renderTrimmed(ctx, pick, p.DurationSec, outFile)
	}
}

// renderTrimmed extracts an exact-duration span from the source
func (r *Renderer) renderTrimmed(ctx context.Context, pick assets.Pick, duration float64, outFile string) error {
	args := []string{"-y",
		"-ss", fmt.Sprintf("%.3f", pick.SourceOffset),
		"-i", pick.FilePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", r.fitFilter(),
	}
	args = append(args, r.encodeArgs(outFile)...)
	return r.ffmpeg(ctx, args)
}

// renderLooped repeats the source until the placement duration is filled
func (r *Renderer) renderLooped(ctx context.Context, pick assets.Pick, duration float64, outFile string) error {
	loops := int(duration/math.Max(pick.AvailableSec, 0.5)) + 2
	args := []string{"-y",
		"-stream_loop", fmt.Sprintf("%d", loops),
		"-i", pick.FilePath,
		"-t", fmt.Sprintf("%.3f", duration),
		"-vf", r.fitFilter(),
	}
	args = append(args, r.encodeArgs(outFile)...)
	return r.ffmpeg(ctx, args)
}

// renderSlowMotion stretches the available footage to cover the placement
func (r *Renderer) renderSlowMotion(ctx context.Context, pick assets.Pick, duration float64, outFile string) error {
	source := pick.AvailableSec
	if source <= 0 {
		source = duration
	}
	factor := duration / source
	if factor < 1.0 {
		factor = 1.0
	}
	filter := fmt.Sprintf("%s,setpts=%.4f*PTS", r.fitFilter(), factor)
	args := []string{"-y",
		"-ss", fmt.Sprintf("%.3f", pick.SourceOffset),
		"-t", fmt.Sprintf("%.3f", source),
		"-i", pick.FilePath,
		"-vf", filter,
		"-t", fmt.Sprintf("%.3f", duration),
	}
	args = append(args, r.encodeArgs(outFile)...)
	return r.ffmpeg(ctx, args)
}

// renderFreeze holds the last frame until the placement duration is reached
func (r *Renderer) renderFreeze(ctx context.Context, pick assets.Pick, duration float64, outFile string) error {
	usable := math.Min(pick.AvailableSec, duration)
	pad := duration - usable
	if pad < 0 {
		pad = 0
	}
	filter := fmt.Sprintf("%s,tpad=stop_mode=clone:stop_duration=%.3f", r.fitFilter(), pad)
	args := []string{"-y",
		"-ss", fmt.Sprintf("%.3f", pick.SourceOffset),
		"-t", fmt.Sprintf("%.3f", usable),
		"-i", pick.FilePath,
		"-vf", filter,
	}
	args = append(args, r.encodeArgs(outFile)...)
	return r.ffmpeg(ctx, args)
}

// fitFilter center-crops and scales footage to the target resolution
func (r *Renderer) fitFilter() string {
	w, h := r.cfg.Render.VideoWidth, r.cfg.Render.VideoHeight
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1,fps=%d",
		w, h, w, h, r.cfg.Render.FPS,
	)
}

func (r *Renderer) encodeArgs(outFile string) []string {
	return []string{
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	}
}

// concatClips joins all placement clips in timeline order
func (r *Renderer) concatClips(ctx context.Context, clipFiles []string, outputDir string) (string, error) {
	log.Println("[render] Concatenating placement clips...")

	if len(clipFiles) == 0 {
		return "", fmt.Errorf("no clips to concatenate")
	}

	listFile := filepath.Join(outputDir, "clips_concat.txt")
	var lines []string
	for _, f := range clipFiles {
		lines = append(lines, fmt.Sprintf("file '%s'", f))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return "", err
	}

	outFile := filepath.Join(outputDir, "visuals_raw.mp4")
	err := r.ffmpeg(ctx, []string{"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outFile,
	})
	if err != nil {
		return "", err
	}
	return outFile, nil
}

// mixAudio places each segment's narration at its visual start time and,
// when configured, ducks looped background music underneath
func (r *Renderer) mixAudio(ctx context.Context, script *types.Script, tl *timeline.Timeline, outputDir string) (string, error) {
	log.Println("[render] Mixing narration audio...")

	starts := segmentStarts(tl)

	var args []string
	var filters []string
	var mixInputs []string
	inputIdx := 0

	args = append(args, "-y")
	for i, seg := range script.Segments {
		if seg.AudioFile == "" {
			continue
		}
		args = append(args, "-i", seg.AudioFile)
		delayMs := int(starts[i] * 1000)
		filters = append(filters, fmt.Sprintf("[%d:a]adelay=%d|%d[n%d]", inputIdx, delayMs, delayMs, inputIdx))
		mixInputs = append(mixInputs, fmt.Sprintf("[n%d]", inputIdx))
		inputIdx++
	}
	if inputIdx == 0 {
		return "", fmt.Errorf("no narration audio files in script")
	}

	useMusic := r.cfg.Render.IncludeBGMusic && r.cfg.Render.BGMusicPath != ""
	if useMusic {
		if _, err := os.Stat(r.cfg.Render.BGMusicPath); err != nil {
			log.Printf("[render] Warning: bg music not found at %s — skipping", r.cfg.Render.BGMusicPath)
			useMusic = false
		}
	}
	if useMusic {
		// Loop the music across the whole video, ducked by the configured
		// dB reduction (converted to a linear factor).
		args = append(args, "-stream_loop", "-1", "-i", r.cfg.Render.BGMusicPath)
		volume := math.Pow(10, r.cfg.Render.BGMusicVolumeDB/20)
		filters = append(filters, fmt.Sprintf(
			"[%d:a]atrim=0:%.3f,volume=%.4f[music]", inputIdx, tl.TotalSec, volume,
		))
		mixInputs = append(mixInputs, "[music]")
	}

	filterComplex := strings.Join(filters, ";") + ";" +
		strings.Join(mixInputs, "") +
		fmt.Sprintf("amix=inputs=%d:duration=longest:normalize=0[aout]", len(mixInputs))

	outFile := filepath.Join(outputDir, "audio_mixed.mp3")
	args = append(args,
		"-filter_complex", filterComplex,
		"-map", "[aout]",
		"-t", fmt.Sprintf("%.3f", tl.TotalSec),
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outFile,
	)

	if err := r.ffmpeg(ctx, args); err != nil {
		return "", err
	}
	return outFile, nil
}

// combineVideoAudio merges the final video and audio into one MP4
func (r *Renderer) combineVideoAudio(ctx context.Context, videoFile, audioFile, outputDir string) (string, error) {
	log.Println("[render] Combining video + audio...")

	outFile := filepath.Join(outputDir, "final_video.mp4")
	err := r.ffmpeg(ctx, []string{"-y",
		"-i", videoFile,
		"-i", audioFile,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outFile,
	})
	if err != nil {
		return "", err
	}
	return outFile, nil
}

// segmentStarts maps segment index to the visual start time of its first
// placement. Narration is anchored there so extended visuals (freeze or slow
// motion) simply leave a beat of silence instead of drifting out of sync.
func segmentStarts(tl *timeline.Timeline) map[int]float64 {
	starts := make(map[int]float64)
	for _, p := range tl.Placements {
		if _, ok := starts[p.SegmentIndex]; !ok {
			starts[p.SegmentIndex] = p.StartOffset
		}
	}
	return starts
}

func (r *Renderer) ffmpeg(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s: %w", args[len(args)-1], err)
	}
	return nil
}
