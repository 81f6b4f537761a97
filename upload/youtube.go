package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"indofakta-pipeline/config"
	"indofakta-pipeline/types"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Uploader handles YouTube video upload via Data API v3
type Uploader struct {
	cfg *config.Config
}

// New creates a new Uploader
func New(cfg *config.Config) *Uploader {
	return &Uploader{cfg: cfg}
}

// Run uploads the final video to YouTube with metadata derived from the script
func (u *Uploader) Run(ctx context.Context, videoFile string, script *types.Script) (string, string, error) {
	log.Println("[upload] Authenticating with YouTube API...")

	client, err := u.getOAuthClient(ctx)
	if err != nil {
		return "", "", fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", "", fmt.Errorf("youtube service: %w", err)
	}

	title := buildTitle(script)
	log.Printf("[upload] Uploading: %q", title)

	snippet := &youtube.VideoSnippet{
		Title:                title,
		Description:          buildDescription(script, u.cfg.Upload.Tags),
		Tags:                 u.cfg.Upload.Tags,
		CategoryId:           u.cfg.Upload.CategoryID,
		DefaultLanguage:      u.cfg.Upload.DefaultLanguage,
		DefaultAudioLanguage: u.cfg.Upload.DefaultLanguage,
	}

	status := &youtube.VideoStatus{
		PrivacyStatus:           u.cfg.Upload.Visibility,
		SelfDeclaredMadeForKids: u.cfg.Upload.MadeForKids,
	}

	video := &youtube.Video{
		Snippet: snippet,
		Status:  status,
	}

	f, err := os.Open(videoFile)
	if err != nil {
		return "", "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	fi, _ := f.Stat()
	log.Printf("[upload] File size: %.1f MB", float64(fi.Size())/1024/1024)

	// Resumable upload (required for files > 5MB)
	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.NotifySubscribers(u.cfg.Upload.NotifySubscribers)
	call.Media(f)

	uploadedVideo, err := call.Do()
	if err != nil {
		return "", "", fmt.Errorf("youtube upload: %w", err)
	}

	videoID := uploadedVideo.Id
	videoURL := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)

	log.Printf("[upload] ✅ Uploaded successfully!")
	log.Printf("[upload] Video ID: %s", videoID)
	log.Printf("[upload] Video URL: %s", videoURL)

	return videoID, videoURL, nil
}

// buildTitle produces a Shorts-friendly title capped at YouTube's 100 chars
func buildTitle(script *types.Script) string {
	title := strings.TrimSpace(script.Title)
	if title == "" {
		title = "Fakta Unik Hari Ini"
	}
	if !strings.Contains(strings.ToLower(title), "#shorts") {
		title += " #Shorts"
	}
	if len(title) > 100 {
		title = title[:97] + "..."
	}
	return title
}

// buildDescription assembles the description with the hook line, source
// attribution, and hashtags
func buildDescription(script *types.Script, tags []string) string {
	var b strings.Builder
	if len(script.Segments) > 0 {
		b.WriteString(script.Segments[0].Text)
		b.WriteString("\n\n")
	}
	b.WriteString("Tonton sampai habis ya! 🤯\n")
	if script.SourceURL != "" {
		b.WriteString("\nSumber: " + script.SourceURL + "\n")
	}
	if len(tags) > 0 {
		b.WriteString("\n")
		for _, t := range tags {
			b.WriteString("#" + strings.ReplaceAll(t, " ", "") + " ")
		}
	}
	return strings.TrimSpace(b.String())
}

// getOAuthClient creates an OAuth2 HTTP client using env credentials
func (u *Uploader) getOAuthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")

	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	return &http.Client{
		Transport: &oauth2.Transport{
			Source: conf.TokenSource(ctx, token),
		},
	}, nil
}

// LogUpload saves the upload result to the logs directory
func LogUpload(videoID, videoURL, videoFile, logsDir string, script *types.Script) error {
	logEntry := map[string]interface{}{
		"video_id":    videoID,
		"video_url":   videoURL,
		"title":       script.Title,
		"content_id":  script.ContentID,
		"uploaded_at": time.Now().UTC().Format(time.RFC3339),
		"video_file":  videoFile,
	}

	logFile := fmt.Sprintf("%s/upload_%s.json", logsDir, time.Now().Format("20060102_150405"))
	data, _ := json.MarshalIndent(logEntry, "", "  ")
	if err := os.WriteFile(logFile, data, 0644); err != nil {
		return err
	}

	log.Printf("[upload] Upload log saved: %s", logFile)
	return nil
}
