package research

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"indofakta-pipeline/config"
	"indofakta-pipeline/types"

	"github.com/vartanbeno/go-reddit/v2/reddit"
)

const wikipediaAPI = "https://id.wikipedia.org/api/rest_v1"

// userAgent is required by the Wikipedia REST API
const userAgent = "IndoFaktaBot/1.0 (educational pipeline)"

// rssFeeds maps topic categories to Indonesian news feeds
var rssFeeds = map[string][]string{
	"sains":     {"https://www.liputan6.com/feed/rss2?channel=tekno"},
	"teknologi": {"https://www.liputan6.com/feed/rss2?channel=tekno"},
	"umum":      {"https://www.liputan6.com/feed/rss2"},
}

// topicCategories maps coarse topics to Wikipedia search terms
var topicCategories = map[string][]string{
	"space":      {"astronomi", "tata surya", "planet", "galaksi", "luar angkasa"},
	"history":    {"sejarah", "kerajaan", "arkeologi", "sejarah indonesia"},
	"science":    {"fisika", "kimia", "biologi", "ilmu pengetahuan"},
	"nature":     {"hewan", "tumbuhan", "ekologi", "alam"},
	"technology": {"teknologi", "komputer", "robotika", "kecerdasan buatan"},
	"indonesia":  {"indonesia", "budaya indonesia", "pulau jawa"},
	"animals":    {"hewan", "mamalia", "reptil", "burung"},
}

var cleaningPatterns = []struct {
	re   *regexp.Regexp
	repl string
}{
	{regexp.MustCompile(`\[.*?\]\(.*?\)`), ""},              // markdown links
	{regexp.MustCompile(`http\S+`), ""},                     // raw URLs
	{regexp.MustCompile(`\[\d+\]`), ""},                     // wikipedia refs [1], [2]
	{regexp.MustCompile(`[^\p{L}\p{N}\s.,!?;:'"()\-]`), ""}, // emoji and stray symbols
	{regexp.MustCompile(`\s+`), " "},                        // normalize whitespace
}

// Miner fetches raw fact material from Wikipedia, RSS and optionally Reddit
type Miner struct {
	cfg         *config.Config
	httpClient  *http.Client
	usedContent map[string]bool
}

// New creates a new Miner
func New(cfg *config.Config) *Miner {
	return &Miner{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 20 * time.Second},
		usedContent: loadUsedContent(cfg.Paths.UsedContentLog),
	}
}

// Run fetches, cleans, scores and returns the best unused content for the
// configured topic ("random" pulls a random Wikipedia article).
func (m *Miner) Run(ctx context.Context) (*types.RawContent, error) {
	log.Printf("[research] Mining content for topic %q...", m.cfg.Research.Topic)

	var candidates []*types.RawContent

	if m.cfg.Research.Topic == "random" || m.cfg.Research.Topic == "" {
		if c, err := m.fetchWikipediaRandom(ctx); err != nil {
			log.Printf("[research] Wikipedia random warning: %v", err)
		} else {
			candidates = append(candidates, c)
		}
	} else {
		wiki, err := m.searchWikipedia(ctx, m.cfg.Research.Topic)
		if err != nil {
			log.Printf("[research] Wikipedia search warning: %v", err)
		} else {
			candidates = append(candidates, wiki...)
		}
	}

	for _, category := range m.cfg.Research.RSSCategories {
		items, err := m.fetchRSS(ctx, category)
		if err != nil {
			log.Printf("[research] RSS %s warning: %v", category, err)
			continue
		}
		candidates = append(candidates, items...)
	}

	if reddits, err := m.mineReddit(ctx); err != nil {
		log.Printf("[research] Reddit warning: %v", err)
	} else {
		candidates = append(candidates, reddits...)
	}

	// Clean bodies and drop anything too thin to script.
	var usable []*types.RawContent
	for _, c := range candidates {
		c.Body = CleanText(c.Body)
		if len(c.Body) >= m.cfg.Research.MinBodyChars {
			if max := m.cfg.Research.MaxBodyChars; max > 0 && len(c.Body) > max {
				c.Body = truncateOnRune(c.Body, max)
			}
			usable = append(usable, c)
		}
	}

	if len(usable) == 0 {
		log.Println("[research] No usable content from any source — using fallback fact")
		return fallbackFact(), nil
	}

	for _, c := range usable {
		c.Score = scoreContent(c)
	}
	sort.Slice(usable, func(i, j int) bool { return usable[i].Score > usable[j].Score })

	for _, c := range usable {
		if !m.usedContent[contentKey(c)] {
			log.Printf("[research] ✅ Selected: %q from %s (score: %d)", c.Title, c.Source, c.Score)
			m.markUsed(c)
			return c, nil
		}
	}

	return nil, fmt.Errorf("all %d candidate contents have been used already", len(usable))
}

// --- Wikipedia ---

type wikiSummary struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
	Content struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (m *Miner) fetchWikipediaRandom(ctx context.Context) (*types.RawContent, error) {
	var summary wikiSummary
	if err := m.getJSON(ctx, wikipediaAPI+"/page/random/summary", &summary); err != nil {
		return nil, err
	}
	if summary.Extract == "" {
		return nil, fmt.Errorf("empty extract for %q", summary.Title)
	}
	return &types.RawContent{
		Title:     summary.Title,
		Body:      summary.Extract,
		Source:    "Wikipedia Indonesia",
		SourceURL: summary.Content.Desktop.Page,
		Category:  "random",
	}, nil
}

func (m *Miner) searchWikipedia(ctx context.Context, topic string) ([]*types.RawContent, error) {
	terms, ok := topicCategories[strings.ToLower(topic)]
	if !ok {
		terms = []string{topic}
	}
	query := terms[rand.Intn(len(terms))]

	searchURL := fmt.Sprintf(
		"https://id.wikipedia.org/w/api.php?action=query&list=search&srsearch=%s&srlimit=5&format=json",
		url.QueryEscape(query),
	)
	var result struct {
		Query struct {
			Search []struct {
				Title string `json:"title"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := m.getJSON(ctx, searchURL, &result); err != nil {
		return nil, err
	}

	var contents []*types.RawContent
	for _, hit := range result.Query.Search {
		summaryURL := wikipediaAPI + "/page/summary/" + url.PathEscape(hit.Title)
		var summary wikiSummary
		if err := m.getJSON(ctx, summaryURL, &summary); err != nil {
			continue
		}
		if summary.Extract == "" {
			continue
		}
		contents = append(contents, &types.RawContent{
			Title:     summary.Title,
			Body:      summary.Extract,
			Source:    "Wikipedia Indonesia",
			SourceURL: summary.Content.Desktop.Page,
			Category:  topic,
		})
	}
	return contents, nil
}

// --- RSS ---

type rssItem struct {
	Title   string
	Link    string
	Desc    string
	PubDate string
}

func (m *Miner) fetchRSS(ctx context.Context, category string) ([]*types.RawContent, error) {
	feeds, ok := rssFeeds[category]
	if !ok {
		feeds = rssFeeds["umum"]
	}

	var contents []*types.RawContent
	for _, feedURL := range feeds {
		req, _ := http.NewRequestWithContext(ctx, "GET", feedURL, nil)
		req.Header.Set("User-Agent", userAgent)
		resp, err := m.httpClient.Do(req)
		if err != nil {
			continue
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		for _, item := range parseRSSItems(string(body)) {
			contents = append(contents, &types.RawContent{
				Title:       item.Title,
				Body:        item.Desc,
				Source:      "RSS " + category,
				SourceURL:   item.Link,
				Category:    category,
				PublishedAt: item.PubDate,
			})
		}
	}
	return contents, nil
}

// parseRSSItems is a lightweight RSS parser (no external deps)
func parseRSSItems(xml string) []rssItem {
	var items []rssItem
	parts := strings.Split(xml, "<item>")
	for _, part := range parts[1:] {
		item := rssItem{
			Title:   extractXMLTag(part, "title"),
			Link:    extractXMLTag(part, "link"),
			Desc:    extractXMLTag(part, "description"),
			PubDate: extractXMLTag(part, "pubDate"),
		}
		if item.Title != "" {
			items = append(items, item)
		}
	}
	return items
}

func extractXMLTag(s, tag string) string {
	open := "<" + tag + ">"
	close := "</" + tag + ">"
	start := strings.Index(s, open)
	if start == -1 {
		return ""
	}
	start += len(open)
	end := strings.Index(s[start:], close)
	if end == -1 {
		return ""
	}
	val := s[start : start+end]
	val = strings.TrimPrefix(val, "<![CDATA[")
	val = strings.TrimSuffix(val, "]]>")
	return strings.TrimSpace(val)
}

// --- Reddit (optional, needs credentials) ---

func (m *Miner) mineReddit(ctx context.Context) ([]*types.RawContent, error) {
	if len(m.cfg.Research.Subreddits) == 0 {
		return nil, nil
	}
	clientID := os.Getenv("REDDIT_CLIENT_ID")
	clientSecret := os.Getenv("REDDIT_CLIENT_SECRET")
	if clientID == "" || clientSecret == "" {
		return nil, nil // Reddit is opt-in
	}

	client, err := reddit.NewClient(reddit.Credentials{
		ID:       clientID,
		Secret:   clientSecret,
		Username: os.Getenv("REDDIT_USERNAME"),
		Password: os.Getenv("REDDIT_PASSWORD"),
	})
	if err != nil {
		return nil, fmt.Errorf("reddit client: %w", err)
	}

	var contents []*types.RawContent
	for _, sub := range m.cfg.Research.Subreddits {
		posts, _, err := client.Subreddit.HotPosts(ctx, sub, &reddit.ListOptions{Limit: 25})
		if err != nil {
			log.Printf("[research] Reddit r/%s error: %v", sub, err)
			continue
		}
		for _, post := range posts {
			if post.Body == "" {
				continue
			}
			contents = append(contents, &types.RawContent{
				Title:       post.Title,
				Body:        post.Body,
				Source:      "r/" + sub,
				SourceURL:   "https://reddit.com" + post.Permalink,
				Author:      post.Author,
				Score:       post.Score,
				PublishedAt: post.Created.Format(time.RFC3339),
			})
		}
	}
	return contents, nil
}

// --- Cleaning, scoring, dedup ---

// CleanText strips markdown, URLs, references and stray symbols from scraped text
func CleanText(text string) string {
	for _, p := range cleaningPatterns {
		text = p.re.ReplaceAllString(text, p.repl)
	}
	return strings.TrimSpace(text)
}

// truncateOnRune cuts s to at most max bytes without splitting a UTF-8 rune
func truncateOnRune(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func scoreContent(c *types.RawContent) int {
	score := c.Score // reddit upvotes when present

	// Longer bodies give the script writer more material.
	if len(c.Body) > 300 {
		score += 50
	}
	if len(c.Body) > 800 {
		score += 50
	}
	// Wikipedia extracts are reliably factual.
	if strings.Contains(c.Source, "Wikipedia") {
		score += 100
	}
	return score
}

func contentKey(c *types.RawContent) string {
	if c.SourceURL != "" {
		return c.SourceURL
	}
	return c.Title
}

func loadUsedContent(path string) map[string]bool {
	used := make(map[string]bool)
	data, err := os.ReadFile(path)
	if err != nil {
		return used
	}
	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return used
	}
	for _, k := range keys {
		used[k] = true
	}
	return used
}

func (m *Miner) markUsed(c *types.RawContent) {
	m.usedContent[contentKey(c)] = true
	var keys []string
	for k := range m.usedContent {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	data, _ := json.MarshalIndent(keys, "", "  ")
	_ = os.WriteFile(m.cfg.Paths.UsedContentLog, data, 0644)
}

// fallbackFact returns a canned fact when every live source fails
func fallbackFact() *types.RawContent {
	facts := []*types.RawContent{
		{
			Title:  "Madu Tidak Pernah Basi",
			Body:   "Madu adalah satu-satunya makanan yang tidak pernah basi. Para arkeolog menemukan pot madu di makam Mesir kuno yang berusia lebih dari 3000 tahun dan madu tersebut masih bisa dimakan. Kandungan gula yang sangat tinggi dan pH rendah membuat bakteri tidak bisa bertahan hidup di dalamnya.",
			Source: "fallback",
		},
		{
			Title:  "Gurita Punya Tiga Jantung",
			Body:   "Gurita memiliki tiga jantung dan darah berwarna biru. Dua jantung memompa darah ke insang, sementara satu jantung memompa darah ke seluruh tubuh. Saat gurita berenang, jantung utamanya justru berhenti berdetak, itulah kenapa gurita lebih suka merayap daripada berenang.",
			Source: "fallback",
		},
	}
	return facts[rand.Intn(len(facts))]
}

func (m *Miner) getJSON(ctx context.Context, reqURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", reqURL, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
