package subtitles

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"indofakta-pipeline/config"
	"indofakta-pipeline/types"
)

// Generator builds SRT subtitles from the script's measured segment timings
// and burns them into the rendered video.
//
// No transcription pass is needed: the narration text and its exact timing are
// already known from the TTS stage.
type Generator struct {
	cfg *config.Config
}

// New creates a new subtitle Generator
func New(cfg *config.Config) *Generator {
	return &Generator{cfg: cfg}
}

// Run writes an SRT file covering every narrated segment
func (g *Generator) Run(script *types.Script, outputDir string) (string, error) {
	log.Println("[subtitles] Building SRT from segment timings...")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}

	srtFile := filepath.Join(outputDir, "subtitles.srt")
	content := BuildSRT(script, g.cfg.Subtitles.MaxCharsPerLine)
	if err := os.WriteFile(srtFile, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write srt: %w", err)
	}

	log.Printf("[subtitles] ✅ SRT generated: %s", srtFile)
	return srtFile, nil
}

// BuildSRT renders the script as an SRT document. Segment start times come
// from the running sum of measured audio durations.
func BuildSRT(script *types.Script, maxCharsPerLine int) string {
	var sb strings.Builder
	var elapsed float64

	entry := 1
	for _, seg := range script.Segments {
		start := elapsed
		end := elapsed + seg.AudioDurationSec
		elapsed = end

		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		sb.WriteString(fmt.Sprintf("%d\n", entry))
		sb.WriteString(FormatTimestamp(start) + " --> " + FormatTimestamp(end) + "\n")
		sb.WriteString(wrapLines(text, maxCharsPerLine) + "\n\n")
		entry++
	}
	return sb.String()
}

// FormatTimestamp renders seconds as an SRT timestamp (HH:MM:SS,mmm)
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	totalMs := int(seconds*1000 + 0.5)
	h := totalMs / 3600000
	m := (totalMs % 3600000) / 60000
	s := (totalMs % 60000) / 1000
	ms := totalMs % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

// wrapLines breaks narration into subtitle lines of at most maxChars runes
func wrapLines(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	words := strings.Fields(text)
	var lines []string
	var line string
	for _, w := range words {
		if line == "" {
			line = w
			continue
		}
		if len(line)+1+len(w) > maxChars {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// BurnIntoVideo uses FFmpeg to burn subtitles directly into the video
func (g *Generator) BurnIntoVideo(ctx context.Context, videoFile, srtFile, outputDir string) (string, error) {
	log.Println("[subtitles] Burning subtitles into video...")

	outFile := filepath.Join(outputDir, "video_subtitled.mp4")

	subtitleFilter := fmt.Sprintf(
		"subtitles=%s:force_style='FontName=%s,FontSize=%d,Bold=1,PrimaryColour=&H00FFFFFF,OutlineColour=&H00000000,Outline=%.0f,Alignment=2,MarginV=%d'",
		escapeSubtitlePath(srtFile),
		g.cfg.Subtitles.Font,
		g.cfg.Subtitles.FontSize,
		g.cfg.Subtitles.StrokeWidth,
		g.cfg.Subtitles.MarginBottom,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoFile,
		"-vf", subtitleFilter,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-c:a", "copy",
		outFile,
	)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("ffmpeg subtitle burn: %w", err)
	}

	log.Printf("[subtitles] ✅ Subtitled video: %s", outFile)
	return outFile, nil
}

// escapeSubtitlePath escapes characters the subtitles filter treats specially
func escapeSubtitlePath(path string) string {
	path = strings.ReplaceAll(path, `\`, `\\`)
	path = strings.ReplaceAll(path, ":", `\:`)
	path = strings.ReplaceAll(path, "'", `\'`)
	return path
}
