package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"indofakta-pipeline/config"
	"indofakta-pipeline/types"
)

// styleGuide maps the configured content style to prompt instructions
var styleGuide = map[string]string{
	"casual": "santai dan friendly, seperti ngobrol sama teman",
	"gaul":   "pakai bahasa gaul Jakarta, banyak singkatan",
	"formal": "bahasa Indonesia baku dan profesional",
}

// Writer generates structured video scripts via a local Ollama server
type Writer struct {
	cfg        *config.Config
	httpClient *http.Client
	ollamaURL  string
}

// New creates a new script Writer
func New(cfg *config.Config) *Writer {
	ollamaURL := os.Getenv("OLLAMA_URL")
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	return &Writer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		ollamaURL:  strings.TrimRight(ollamaURL, "/"),
	}
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// scriptJSON is the raw JSON structure the LLM must return
type scriptJSON struct {
	Segments []segmentJSON `json:"segments"`
}

type segmentJSON struct {
	Text             string      `json:"text"`
	VisualKeyword    string      `json:"visual_keyword"`
	DurationEstimate json.Number `json:"duration_estimate"`
}

// Run generates a full script from raw content
func (w *Writer) Run(ctx context.Context, content *types.RawContent) (*types.Script, error) {
	log.Printf("[script] Generating script via Ollama (%s)...", w.cfg.Script.OllamaModel)

	prompt := w.systemPrompt() + "\n\nUSER:\n" + w.userPrompt(content)

	var response string
	var err error
	// Local models stall sometimes; retry with growing backoff.
	for attempt := 1; attempt <= 3; attempt++ {
		response, err = w.callOllama(ctx, prompt)
		if err == nil {
			break
		}
		log.Printf("[script] Ollama attempt %d failed: %v — retrying...", attempt, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt*attempt) * 2 * time.Second):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}

	raw, err := parseScriptJSON(response)
	if err != nil {
		preview := response
		if len(preview) > 200 {
			preview = preview[:200]
		}
		return nil, fmt.Errorf("parse script JSON: %w\nraw response: %s", err, preview)
	}

	segments := w.validateSegments(raw.Segments)
	if len(segments) == 0 {
		return nil, fmt.Errorf("no valid segments in LLM response")
	}

	script := &types.Script{
		ContentID: contentID(content),
		Title:     content.Title,
		SourceURL: content.SourceURL,
		Segments:  segments,
	}
	for _, s := range segments {
		script.TotalSec += s.DurationEstimate
	}

	log.Printf("[script] ✅ Script ready: %d segments, ~%.1f seconds", len(segments), script.TotalSec)
	return script, nil
}

func (w *Writer) systemPrompt() string {
	style, ok := styleGuide[w.cfg.Script.ContentStyle]
	if !ok {
		style = styleGuide["casual"]
	}
	maxSec := w.cfg.Script.MaxScriptSec

	return fmt.Sprintf(`Kamu adalah script writer untuk video fakta menarik Indonesia.

TUGAS:
1. Ubah teks input menjadi narasi video pendek (maksimal %.0f detik)
2. Gunakan bahasa Indonesia yang %s
3. Bagi menjadi beberapa segment (kalimat)
4. Untuk setiap kalimat, buat visual_keyword dalam bahasa Inggris untuk search stock footage

ATURAN:
- Mulai dengan hook menarik (pertanyaan/fakta mengejutkan)
- Setiap segment harus bisa berdiri sendiri sebagai kalimat utuh
- visual_keyword harus spesifik dan visual (hindari kata abstrak)
- Estimasi durasi: sekitar %.1f kata per detik
- Total durasi semua segment maksimal %.0f detik

OUTPUT FORMAT (HARUS JSON VALID):
{
  "segments": [
    {
      "text": "Kalimat narasi dalam Bahasa Indonesia",
      "visual_keyword": "english keyword for stock footage search",
      "duration_estimate": 3.5
    }
  ]
}

PENTING: Output HANYA JSON, tanpa markdown code block atau penjelasan lain.`,
		maxSec, style, w.cfg.Script.WordsPerSecond, maxSec)
}

func (w *Writer) userPrompt(content *types.RawContent) string {
	var sb strings.Builder
	sb.WriteString("Ubah teks berikut menjadi script video fakta menarik:\n\n---\n")
	if content.Title != "" {
		sb.WriteString("JUDUL: " + content.Title + "\n\n")
	}
	sb.WriteString(content.Body)
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("Buat script yang engaging dengan durasi total maksimal %.0f detik.\n", w.cfg.Script.MaxScriptSec))
	sb.WriteString("Output dalam format JSON sesuai instruksi.")
	return sb.String()
}

func (w *Writer) callOllama(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaRequest{
		Model:  w.cfg.Script.OllamaModel,
		Prompt: prompt,
		Stream: false,
		Options: ollamaOptions{
			Temperature: w.cfg.Script.Temperature,
			NumPredict:  w.cfg.Script.MaxTokens,
		},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", w.ollamaURL+"/api/generate", bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, string(respBytes))
	}

	var ollamaResp ollamaResponse
	if err := json.Unmarshal(respBytes, &ollamaResp); err != nil {
		return "", fmt.Errorf("parse ollama response: %w", err)
	}
	if ollamaResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", ollamaResp.Error)
	}
	return ollamaResp.Response, nil
}

// CheckStatus verifies the Ollama server is reachable and the model is pulled
func (w *Writer) CheckStatus(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", w.ollamaURL+"/api/tags", nil)
	if err != nil {
		return err
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	defer resp.Body.Close()

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return err
	}
	for _, m := range tags.Models {
		if strings.Contains(m.Name, w.cfg.Script.OllamaModel) || strings.Contains(w.cfg.Script.OllamaModel, m.Name) {
			return nil
		}
	}
	return fmt.Errorf("model %q not found on ollama server", w.cfg.Script.OllamaModel)
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// parseScriptJSON recovers the JSON object from an LLM response that may be
// wrapped in markdown fences or surrounded by commentary
func parseScriptJSON(response string) (*scriptJSON, error) {
	cleaned := stripFences(response)

	var raw scriptJSON
	if err := json.Unmarshal([]byte(cleaned), &raw); err == nil {
		return &raw, nil
	}

	// Last resort: pull the outermost brace pair out of the text.
	if match := jsonObjectRe.FindString(cleaned); match != "" {
		if err := json.Unmarshal([]byte(match), &raw); err == nil {
			return &raw, nil
		}
	}
	return nil, fmt.Errorf("no JSON object found in response")
}

// stripFences removes markdown code fences if the model wraps its output
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// validateSegments repairs what it can and drops what it cannot
func (w *Writer) validateSegments(raw []segmentJSON) []types.Segment {
	minSec := w.cfg.Timeline.MinClipSec
	maxSec := w.cfg.Timeline.MaxClipSec * 2 // estimates may exceed max; the timeline builder splits them

	var segments []types.Segment
	for _, s := range raw {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}

		keyword := strings.TrimSpace(s.VisualKeyword)
		if keyword == "" {
			// Fall back to the leading words of the narration.
			words := strings.Fields(text)
			if len(words) > 3 {
				words = words[:3]
			}
			keyword = strings.Join(words, " ")
		}

		duration, err := s.DurationEstimate.Float64()
		if err != nil || duration <= 0 {
			duration = float64(len(strings.Fields(text))) / w.cfg.Script.WordsPerSecond
		}
		if duration < minSec {
			duration = minSec
		}
		if duration > maxSec {
			duration = maxSec
		}

		segments = append(segments, types.Segment{
			Index:            len(segments),
			Text:             text,
			VisualKeyword:    keyword,
			DurationEstimate: duration,
		})
	}
	return segments
}

func contentID(content *types.RawContent) string {
	if content.SourceURL != "" {
		return content.SourceURL
	}
	return content.Title
}
