package types

// RawContent holds scraped source text ready for scripting
type RawContent struct {
	Title       string `json:"title"`
	Body        string `json:"body"`
	Source      string `json:"source"`
	SourceURL   string `json:"source_url"`
	Author      string `json:"author"`
	Category    string `json:"category"`
	Score       int    `json:"score"`
	PublishedAt string `json:"published_at"`
}

// Segment is one narrated sentence in the script
type Segment struct {
	Index            int     `json:"index"`
	Text             string  `json:"text"`
	VisualKeyword    string  `json:"visual_keyword"` // english keyword for stock footage search
	DurationEstimate float64 `json:"duration_estimate"`
	AudioFile        string  `json:"audio_file"`
	AudioDurationSec float64 `json:"audio_duration_sec"` // measured from synthesized audio, not estimated
}

// Script is the full structured script for one video
type Script struct {
	ContentID string    `json:"content_id"`
	Title     string    `json:"title"`
	SourceURL string    `json:"source_url"`
	TotalSec  float64   `json:"total_sec"`
	Segments  []Segment `json:"segments"`
}

// VideoAsset is one downloaded stock footage clip
type VideoAsset struct {
	Keyword     string  `json:"keyword"`
	FilePath    string  `json:"file_path"`
	Source      string  `json:"source"` // pexels | pixabay | cache
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	DurationSec float64 `json:"duration_sec"`
	URL         string  `json:"url"`
}

// Orientation reports whether the asset is portrait, landscape or square
func (a VideoAsset) Orientation() string {
	switch {
	case a.Height > a.Width:
		return "portrait"
	case a.Width > a.Height:
		return "landscape"
	}
	return "square"
}

// PipelineState tracks the full state of one pipeline run
type PipelineState struct {
	RunID       string      `json:"run_id"`
	StartedAt   string      `json:"started_at"`
	CompletedAt string      `json:"completed_at"`
	Content     *RawContent `json:"content"`
	Script      *Script     `json:"script"`
	AudioFile   string      `json:"audio_file"`
	VideoFile   string      `json:"video_file"`
	YouTubeURL  string      `json:"youtube_url,omitempty"`
	YouTubeID   string      `json:"youtube_id,omitempty"`
	Error       string      `json:"error,omitempty"`
}
