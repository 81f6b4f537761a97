package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"indofakta-pipeline/config"
	"indofakta-pipeline/types"
)

// Narrator synthesizes per-segment narration audio.
//
// Primary engine is the edge-tts CLI (free Microsoft voices, Indonesian
// id-ID-ArdiNeural by default). When a remote TTS server is configured via
// TTS_SERVER_URL it is used as fallback after edge-tts fails.
type Narrator struct {
	cfg        *config.Config
	httpClient *http.Client
	serverURL  string
}

// New creates a new Narrator
func New(cfg *config.Config) *Narrator {
	return &Narrator{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		serverURL:  strings.TrimRight(os.Getenv("TTS_SERVER_URL"), "/"),
	}
}

// Run generates audio for every segment and records the measured duration.
// Durations are always measured from the synthesized file with ffprobe, never
// estimated — the timeline builder's coverage invariant depends on it.
func (n *Narrator) Run(ctx context.Context, script *types.Script, outputDir string) error {
	log.Printf("[audio] Generating TTS audio for %d segments...", len(script.Segments))

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create audio dir: %w", err)
	}

	for i := range script.Segments {
		seg := &script.Segments[i]
		outFile := filepath.Join(outputDir, fmt.Sprintf("segment_%03d.mp3", i))

		log.Printf("[audio] Segment %d/%d: generating audio...", i+1, len(script.Segments))

		if err := n.generateSegmentAudio(ctx, seg.Text, outFile); err != nil {
			return fmt.Errorf("segment %d TTS failed: %w", i, err)
		}

		dur, err := ProbeDuration(outFile)
		if err != nil {
			return fmt.Errorf("segment %d duration probe failed: %w", i, err)
		}
		if dur <= 0 {
			return fmt.Errorf("segment %d produced empty audio", i)
		}

		seg.AudioFile = outFile
		seg.AudioDurationSec = dur
		log.Printf("[audio] Segment %d: %.2fs → %s", i, dur, outFile)

		// Stagger requests to avoid edge-tts rate limiting.
		if i < len(script.Segments)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(n.cfg.Audio.SegmentDelaySec * float64(time.Second))):
			}
		}
	}

	// Recalculate total from real measured durations.
	script.TotalSec = 0
	for _, seg := range script.Segments {
		script.TotalSec += seg.AudioDurationSec
	}

	log.Printf("[audio] ✅ All segments narrated (total: %.1fs)", script.TotalSec)
	return nil
}

func (n *Narrator) generateSegmentAudio(ctx context.Context, text, outFile string) error {
	var lastErr error
	// Retry edge-tts a few times before falling back; 403s from the service
	// usually clear after a short wait.
	for attempt := 1; attempt <= 3; attempt++ {
		lastErr = n.runEdgeTTS(ctx, text, outFile)
		if lastErr == nil {
			return nil
		}
		log.Printf("[audio] edge-tts attempt %d failed: %v — retrying...", attempt, lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 4 * time.Second):
		}
	}

	if n.serverURL != "" {
		log.Println("[audio] edge-tts exhausted — falling back to TTS server")
		if err := n.fetchServerTTS(ctx, text, outFile); err != nil {
			return fmt.Errorf("edge-tts failed (%v) and server fallback failed: %w", lastErr, err)
		}
		return nil
	}
	return lastErr
}

func (n *Narrator) runEdgeTTS(ctx context.Context, text, outFile string) error {
	if _, err := exec.LookPath("edge-tts"); err != nil {
		return fmt.Errorf("edge-tts not installed (pip install edge-tts): %w", err)
	}

	cmd := exec.CommandContext(ctx,
		"edge-tts",
		"--voice", n.cfg.Audio.VoiceID,
		"--text", text,
		"--write-media", outFile,
	)
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("edge-tts: %w", err)
	}
	info, err := os.Stat(outFile)
	if err != nil || info.Size() == 0 {
		return fmt.Errorf("edge-tts produced no output file")
	}
	return nil
}

type serverTTSRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
	Rate  string `json:"rate"`
	Pitch string `json:"pitch"`
}

// fetchServerTTS posts to a remote TTS server exposing /generate and returns
// the audio bytes it responds with
func (n *Narrator) fetchServerTTS(ctx context.Context, text, outFile string) error {
	voice := n.cfg.Audio.FallbackVoice
	if voice == "" {
		voice = "ardi"
	}
	body, err := json.Marshal(serverTTSRequest{Text: text, Voice: voice, Rate: "+0%", Pitch: "+0Hz"})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", n.serverURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tts server request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("tts server status %d: %s", resp.StatusCode, string(msg))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(audioData) == 0 {
		return fmt.Errorf("tts server returned empty audio")
	}
	return os.WriteFile(outFile, audioData, 0644)
}

// CheckServer reports whether the fallback TTS server is reachable
func (n *Narrator) CheckServer(ctx context.Context) bool {
	if n.serverURL == "" {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, "GET", n.serverURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ProbeDuration uses ffprobe to get accurate media duration in seconds
func ProbeDuration(path string) (float64, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, err
	}
	var dur float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur)
	return dur, err
}
