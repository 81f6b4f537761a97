package assets

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"indofakta-pipeline/config"
	"indofakta-pipeline/types"

	"golang.org/x/sync/errgroup"
)

// genericKeywords are tried when a specific keyword returns nothing
var genericKeywords = []string{"abstract background", "nature landscape", "city lights"}

// Downloader fetches stock footage from Pexels with Pixabay as fallback.
//
// Downloads are cached by keyword hash so repeated runs never re-fetch the
// same clip.
type Downloader struct {
	cfg        *config.Config
	httpClient *http.Client
	pexelsKey  string
	pixabayKey string
	pexelsAPI  string
	pixabayAPI string

	mu         sync.Mutex
	cacheIndex map[string]string // keyword hash → file path
}

// NewDownloader loads the cache index and API keys
func NewDownloader(cfg *config.Config) (*Downloader, error) {
	if err := os.MkdirAll(cfg.Paths.Cache, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	d := &Downloader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		pexelsKey:  os.Getenv("PEXELS_API_KEY"),
		pixabayKey: os.Getenv("PIXABAY_API_KEY"),
		pexelsAPI:  "https://api.pexels.com",
		pixabayAPI: "https://pixabay.com",
		cacheIndex: make(map[string]string),
	}
	if cfg.Assets.CacheEnabled {
		d.cacheIndex = loadCacheIndex(d.cacheIndexPath())
	}
	if d.pexelsKey == "" && d.pixabayKey == "" {
		return nil, fmt.Errorf("no footage API key set (PEXELS_API_KEY or PIXABAY_API_KEY)")
	}
	return d, nil
}

// Run fetches one asset per unique visual keyword with bounded parallelism and
// returns them keyed by keyword. Missing keywords are logged, not fatal; the
// selector falls back to whatever footage is available.
func (d *Downloader) Run(ctx context.Context, script *types.Script, sessionDir string) (map[string]*types.VideoAsset, error) {
	keywords := uniqueKeywords(script)
	log.Printf("[assets] Fetching footage for %d keywords...", len(keywords))

	results := make([]*types.VideoAsset, len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Assets.MaxParallelDownloads)
	for i, kw := range keywords {
		i, kw := i, kw
		g.Go(func() error {
			asset, err := d.FetchKeyword(gctx, kw, sessionDir)
			if err != nil {
				log.Printf("[assets] Warning: no footage for %q: %v", kw, err)
				return nil
			}
			results[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byKeyword := make(map[string]*types.VideoAsset)
	for i, kw := range keywords {
		if results[i] != nil {
			byKeyword[kw] = results[i]
		}
	}
	if len(byKeyword) == 0 {
		return nil, fmt.Errorf("no footage found for any of %d keywords", len(keywords))
	}

	log.Printf("[assets] ✅ Footage ready: %d/%d keywords", len(byKeyword), len(keywords))
	return byKeyword, nil
}

// FetchKeyword returns footage for one keyword, from cache when possible
func (d *Downloader) FetchKeyword(ctx context.Context, keyword, sessionDir string) (*types.VideoAsset, error) {
	if cached := d.cachedPath(keyword); cached != "" {
		log.Printf("[assets] 📦 Cache hit: %q", keyword)
		return &types.VideoAsset{
			Keyword:  keyword,
			FilePath: cached,
			Source:   "cache",
		}, nil
	}

	meta, err := d.searchAny(ctx, keyword)
	if meta == nil {
		for _, generic := range genericKeywords {
			if meta, err = d.searchAny(ctx, generic); meta != nil {
				log.Printf("[assets] ⚠️  Using generic fallback %q for %q", generic, keyword)
				break
			}
		}
	}
	if meta == nil {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("no results")
	}

	outFile := filepath.Join(sessionDir, keywordHash(keyword)+".mp4")
	log.Printf("[assets] ⬇️  Downloading %q from %s...", keyword, meta.Source)
	if err := d.downloadFile(ctx, meta.URL, outFile); err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}

	d.storeCache(keyword, outFile)

	return &types.VideoAsset{
		Keyword:     keyword,
		FilePath:    outFile,
		Source:      meta.Source,
		Width:       meta.Width,
		Height:      meta.Height,
		DurationSec: meta.Duration,
		URL:         meta.URL,
	}, nil
}

// searchAny queries every configured provider in priority order
func (d *Downloader) searchAny(ctx context.Context, keyword string) (*footageMeta, error) {
	meta, err := d.searchPexels(ctx, keyword)
	if err != nil || meta == nil {
		meta, err = d.searchPixabay(ctx, keyword)
	}
	return meta, err
}

type footageMeta struct {
	URL      string
	Width    int
	Height   int
	Duration float64
	Source   string
}

type pexelsResponse struct {
	Videos []struct {
		Duration   int `json:"duration"`
		VideoFiles []struct {
			Link    string `json:"link"`
			Quality string `json:"quality"`
			Width   int    `json:"width"`
			Height  int    `json:"height"`
		} `json:"video_files"`
	} `json:"videos"`
}

func (d *Downloader) searchPexels(ctx context.Context, keyword string) (*footageMeta, error) {
	if d.pexelsKey == "" {
		return nil, nil
	}

	reqURL := fmt.Sprintf(
		"%s/videos/search?query=%s&orientation=%s&size=medium&per_page=%d",
		d.pexelsAPI, url.QueryEscape(keyword), d.cfg.Assets.PreferredOrientation, d.cfg.Assets.PerKeywordResults,
	)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", d.pexelsKey)

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pexels status %d", resp.StatusCode)
	}

	var result pexelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	// Prefer long enough, high resolution files.
	var best *footageMeta
	var bestScore float64
	for _, video := range result.Videos {
		if float64(video.Duration) < d.cfg.Timeline.MinClipSec {
			continue
		}
		for _, f := range video.VideoFiles {
			if f.Width < 720 || (f.Quality != "hd" && f.Quality != "sd") {
				continue
			}
			score := float64(video.Duration)*10 + float64(f.Width)/100
			if score > bestScore {
				bestScore = score
				best = &footageMeta{
					URL:      f.Link,
					Width:    f.Width,
					Height:   f.Height,
					Duration: float64(video.Duration),
					Source:   "pexels",
				}
			}
		}
	}
	return best, nil
}

type pixabayResponse struct {
	Hits []struct {
		Duration int `json:"duration"`
		Videos   map[string]struct {
			URL    string `json:"url"`
			Width  int    `json:"width"`
			Height int    `json:"height"`
		} `json:"videos"`
	} `json:"hits"`
}

func (d *Downloader) searchPixabay(ctx context.Context, keyword string) (*footageMeta, error) {
	if d.pixabayKey == "" {
		return nil, nil
	}

	reqURL := fmt.Sprintf(
		"%s/api/videos/?key=%s&q=%s&video_type=film&per_page=%d",
		d.pixabayAPI, d.pixabayKey, url.QueryEscape(keyword), d.cfg.Assets.PerKeywordResults,
	)
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pixabay status %d", resp.StatusCode)
	}

	var result pixabayResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	for _, hit := range result.Hits {
		if float64(hit.Duration) < d.cfg.Timeline.MinClipSec {
			continue
		}
		selected, ok := hit.Videos["large"]
		if !ok || selected.URL == "" {
			selected, ok = hit.Videos["medium"]
		}
		if ok && selected.URL != "" {
			return &footageMeta{
				URL:      selected.URL,
				Width:    selected.Width,
				Height:   selected.Height,
				Duration: float64(hit.Duration),
				Source:   "pixabay",
			}, nil
		}
	}
	return nil, nil
}

func (d *Downloader) downloadFile(ctx context.Context, fileURL, outFile string) error {
	if err := os.MkdirAll(filepath.Dir(outFile), 0755); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", fileURL, nil)
	if err != nil {
		return err
	}
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	out, err := os.Create(outFile)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(outFile)
		return err
	}
	return nil
}

// --- cache ---

func (d *Downloader) cacheIndexPath() string {
	return filepath.Join(d.cfg.Paths.Cache, "video_cache.json")
}

func (d *Downloader) cachedPath(keyword string) string {
	if !d.cfg.Assets.CacheEnabled {
		return ""
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	path, ok := d.cacheIndex[keywordHash(keyword)]
	if !ok {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func (d *Downloader) storeCache(keyword, path string) {
	if !d.cfg.Assets.CacheEnabled {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cacheIndex[keywordHash(keyword)] = path
	data, _ := json.MarshalIndent(d.cacheIndex, "", "  ")
	if err := os.WriteFile(d.cacheIndexPath(), data, 0644); err != nil {
		log.Printf("[assets] Warning: could not save cache index: %v", err)
	}
}

func loadCacheIndex(path string) map[string]string {
	index := make(map[string]string)
	data, err := os.ReadFile(path)
	if err != nil {
		return index
	}
	_ = json.Unmarshal(data, &index)
	return index
}

func keywordHash(keyword string) string {
	sum := md5.Sum([]byte(strings.ToLower(keyword)))
	return fmt.Sprintf("%x", sum)[:12]
}

func uniqueKeywords(script *types.Script) []string {
	seen := make(map[string]bool)
	var out []string
	for _, seg := range script.Segments {
		if !seen[seg.VisualKeyword] {
			seen[seg.VisualKeyword] = true
			out = append(out, seg.VisualKeyword)
		}
	}
	return out
}
