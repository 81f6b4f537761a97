package assets

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"indofakta-pipeline/config"
)

// fakePixabay serves empty results for specific keywords and one usable hit
// for the generic fallbacks, plus the clip bytes themselves.
func fakePixabay(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/clip.mp4", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake mp4 bytes"))
	})
	mux.HandleFunc("/api/videos/", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query().Get("q")
		generic := false
		for _, g := range genericKeywords {
			if q == g {
				generic = true
				break
			}
		}
		if !generic {
			fmt.Fprint(w, `{"hits":[]}`)
			return
		}
		fmt.Fprintf(w, `{"hits":[{"duration":10,"videos":{"large":{"url":"http://%s/clip.mp4","width":1080,"height":1920}}}]}`, r.Host)
	})
	return httptest.NewServer(mux)
}

func TestFetchKeywordGenericFallbackUsesPixabay(t *testing.T) {
	srv := fakePixabay(t)
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Timeline.MinClipSec = 2.0
	cfg.Timeline.MaxClipSec = 4.0
	cfg.Assets.PerKeywordResults = 5

	// Pixabay-only credentials: the generic fallback must still fire.
	d := &Downloader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		pixabayKey: "test-key",
		pexelsAPI:  srv.URL,
		pixabayAPI: srv.URL,
		cacheIndex: make(map[string]string),
	}

	asset, err := d.FetchKeyword(context.Background(), "keris jawa kuno", t.TempDir())
	if err != nil {
		t.Fatalf("FetchKeyword: %v", err)
	}
	if asset.Source != "pixabay" {
		t.Errorf("source = %q, want pixabay", asset.Source)
	}
	if asset.Keyword != "keris jawa kuno" {
		t.Errorf("keyword = %q, want the requested keyword", asset.Keyword)
	}
	if fi, err := os.Stat(asset.FilePath); err != nil || fi.Size() == 0 {
		t.Errorf("downloaded file missing or empty: %v", err)
	}
}

func TestSearchAnyFallsThroughToPixabay(t *testing.T) {
	srv := fakePixabay(t)
	defer srv.Close()

	cfg := &config.Config{}
	cfg.Timeline.MinClipSec = 2.0
	cfg.Assets.PerKeywordResults = 5

	d := &Downloader{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		pixabayKey: "test-key",
		pexelsAPI:  srv.URL,
		pixabayAPI: srv.URL,
	}

	// No Pexels key: searchPexels declines, Pixabay answers.
	meta, err := d.searchAny(context.Background(), genericKeywords[0])
	if err != nil {
		t.Fatalf("searchAny: %v", err)
	}
	if meta == nil || meta.Source != "pixabay" {
		t.Fatalf("meta = %+v, want a pixabay hit", meta)
	}
}
