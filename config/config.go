package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Research  ResearchConfig  `yaml:"research"`
	Script    ScriptConfig    `yaml:"script"`
	Audio     AudioConfig     `yaml:"audio"`
	Assets    AssetsConfig    `yaml:"assets"`
	Timeline  TimelineConfig  `yaml:"timeline"`
	Subtitles SubtitlesConfig `yaml:"subtitles"`
	Render    RenderConfig    `yaml:"render"`
	Upload    UploadConfig    `yaml:"upload"`
	Paths     PathsConfig     `yaml:"paths"`
}

type ResearchConfig struct {
	Topic          string   `yaml:"topic"` // "random" or a topic keyword
	RSSCategories  []string `yaml:"rss_categories"`
	Subreddits     []string `yaml:"subreddits"`
	MinBodyChars   int      `yaml:"min_body_chars"`
	MaxBodyChars   int      `yaml:"max_body_chars"`
	WikipediaFirst bool     `yaml:"wikipedia_first"`
}

type ScriptConfig struct {
	OllamaModel        string  `yaml:"ollama_model"`
	Temperature        float64 `yaml:"temperature"`
	MaxTokens          int     `yaml:"max_tokens"`
	MaxScriptSec       float64 `yaml:"max_script_sec"`
	ContentStyle       string  `yaml:"content_style"` // casual | gaul | formal
	WordsPerSecond     float64 `yaml:"words_per_second"`
	MaxSegmentAttempts int     `yaml:"max_segment_attempts"`
}

type AudioConfig struct {
	VoiceID         string  `yaml:"voice_id"` // e.g. id-ID-ArdiNeural
	FallbackVoice   string  `yaml:"fallback_voice"`
	SegmentDelaySec float64 `yaml:"segment_delay_sec"`
}

type AssetsConfig struct {
	PreferredOrientation string `yaml:"preferred_orientation"` // portrait | landscape
	CacheEnabled         bool   `yaml:"cache_enabled"`
	MaxParallelDownloads int    `yaml:"max_parallel_downloads"`
	PerKeywordResults    int    `yaml:"per_keyword_results"`
}

type TimelineConfig struct {
	MinClipSec        float64 `yaml:"min_clip_sec"`
	MaxClipSec        float64 `yaml:"max_clip_sec"`
	ExtensionStrategy string  `yaml:"extension_strategy"` // freeze | slow_motion | allow_short
}

type SubtitlesConfig struct {
	BurnIntoVideo   bool    `yaml:"burn_into_video"`
	Font            string  `yaml:"font"`
	FontSize        int     `yaml:"font_size"`
	StrokeWidth     float64 `yaml:"stroke_width"`
	MarginBottom    int     `yaml:"margin_bottom"`
	MaxCharsPerLine int     `yaml:"max_chars_per_line"`
}

type RenderConfig struct {
	VideoWidth       int     `yaml:"video_width"`
	VideoHeight      int     `yaml:"video_height"`
	FPS              int     `yaml:"fps"`
	BGMusicPath      string  `yaml:"bg_music_path"`
	BGMusicVolumeDB  float64 `yaml:"bg_music_volume_db"` // negative dB reduction under narration
	IncludeBGMusic   bool    `yaml:"include_bg_music"`
	IncludeSubtitles bool    `yaml:"include_subtitles"`
}

type UploadConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Visibility        string   `yaml:"visibility"`
	CategoryID        string   `yaml:"category_id"`
	Tags              []string `yaml:"tags"`
	DefaultLanguage   string   `yaml:"default_language"`
	NotifySubscribers bool     `yaml:"notify_subscribers"`
	MadeForKids       bool     `yaml:"made_for_kids"`
}

type PathsConfig struct {
	Output         string `yaml:"output"`
	Cache          string `yaml:"cache"`
	Logs           string `yaml:"logs"`
	UsedContentLog string `yaml:"used_content_log"`
}

// Load reads config.yaml and returns a Config struct
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the pipeline cannot run with
func (c *Config) Validate() error {
	t := c.Timeline
	if t.MinClipSec <= 0 || t.MaxClipSec <= 0 || t.MinClipSec >= t.MaxClipSec {
		return fmt.Errorf("config: invalid clip bounds min=%.2f max=%.2f", t.MinClipSec, t.MaxClipSec)
	}
	switch t.ExtensionStrategy {
	case "freeze", "slow_motion", "allow_short":
	default:
		return fmt.Errorf("config: unknown extension_strategy %q", t.ExtensionStrategy)
	}
	if c.Render.VideoWidth <= 0 || c.Render.VideoHeight <= 0 {
		return fmt.Errorf("config: invalid video resolution %dx%d", c.Render.VideoWidth, c.Render.VideoHeight)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Timeline.ExtensionStrategy == "" {
		cfg.Timeline.ExtensionStrategy = "freeze"
	}
	if cfg.Script.WordsPerSecond == 0 {
		cfg.Script.WordsPerSecond = 2.5
	}
	if cfg.Assets.MaxParallelDownloads == 0 {
		cfg.Assets.MaxParallelDownloads = 3
	}
	if cfg.Assets.PerKeywordResults == 0 {
		cfg.Assets.PerKeywordResults = 5
	}
	if cfg.Render.FPS == 0 {
		cfg.Render.FPS = 30
	}
	if cfg.Audio.SegmentDelaySec == 0 {
		cfg.Audio.SegmentDelaySec = 5
	}
}
