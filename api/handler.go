package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"indofakta-pipeline/audio"
	"indofakta-pipeline/config"
	"indofakta-pipeline/research"
	"indofakta-pipeline/runner"
	"indofakta-pipeline/script"
	"indofakta-pipeline/timeline"
	"indofakta-pipeline/types"

	"github.com/gin-gonic/gin"
)

// Handler serves the pipeline over HTTP: health checks, single-stage
// endpoints for interactive use, and full pipeline runs as background
// sessions polled by ID.
type Handler struct {
	cfg      *config.Config
	runner   *runner.Runner
	sessions *SessionStore
}

// NewHandler creates the API handler over a validated config
func NewHandler(cfg *config.Config) *Handler {
	return &Handler{
		cfg:      cfg,
		runner:   runner.New(cfg),
		sessions: NewSessionStore(),
	}
}

// Register wires all routes onto the router
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.info)
	r.GET("/health", h.health)
	r.GET("/outputs", h.listOutputs)

	r.POST("/scraper/mine", h.mineContent)
	r.POST("/llm/generate", h.generateScript)
	r.POST("/timeline/preview", h.previewTimeline)

	pipe := r.Group("/pipeline")
	{
		pipe.POST("/start", h.startPipeline)
		pipe.GET("/status/:session_id", h.pipelineStatus)
		pipe.GET("/list", h.listPipelines)
	}
}

func (h *Handler) info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "IndoFakta Pipeline API",
		"data": gin.H{
			"llm_model": h.cfg.Script.OllamaModel,
			"voice":     h.cfg.Audio.VoiceID,
		},
	})
}

// health checks every external dependency the pipeline needs
func (h *Handler) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
	defer cancel()

	var issues []string
	checks := gin.H{}

	if err := script.New(h.cfg).CheckStatus(ctx); err != nil {
		checks["ollama"] = false
		issues = append(issues, fmt.Sprintf("Ollama: %v", err))
	} else {
		checks["ollama"] = true
	}

	_, err := exec.LookPath("edge-tts")
	checks["edge_tts"] = err == nil
	if err != nil {
		issues = append(issues, "edge-tts not installed")
	}
	checks["tts_server"] = audio.New(h.cfg).CheckServer(ctx)

	checks["pexels"] = os.Getenv("PEXELS_API_KEY") != ""
	checks["pixabay"] = os.Getenv("PIXABAY_API_KEY") != ""
	if os.Getenv("PEXELS_API_KEY") == "" && os.Getenv("PIXABAY_API_KEY") == "" {
		issues = append(issues, "no stock footage API key set")
	}

	status := "ok"
	message := "All systems ready!"
	if len(issues) > 0 {
		status = "warning"
		message = strings.Join(issues, "; ")
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  status,
		"message": message,
		"data":    gin.H{"checks": checks, "issues": issues},
	})
}

type mineRequest struct {
	Topic string `json:"topic"`
}

// mineContent runs the research stage once and returns the raw content
func (h *Handler) mineContent(c *gin.Context) {
	var req mineRequest
	_ = c.ShouldBindJSON(&req)

	cfg := h.cfg
	if req.Topic != "" {
		copied := *h.cfg
		copied.Research.Topic = req.Topic
		cfg = &copied
	}

	content, err := research.New(cfg).Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Content mined",
		"data":    gin.H{"content": content},
	})
}

type generateRequest struct {
	Title     string `json:"title"`
	RawText   string `json:"raw_text" binding:"required"`
	SourceURL string `json:"source_url"`
}

// generateScript runs the script stage over caller-provided raw text
func (h *Handler) generateScript(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	scriptData, err := script.New(h.cfg).Run(c.Request.Context(), &types.RawContent{
		Title:     req.Title,
		Body:      req.RawText,
		SourceURL: req.SourceURL,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Script generated",
		"data":    gin.H{"script": scriptData},
	})
}

type previewRequest struct {
	Segments []types.Segment `json:"segments" binding:"required"`
}

// previewTimeline plans clip placements for the posted segments without
// touching footage or audio, so the edit can be inspected before a full run
func (h *Handler) previewTimeline(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}

	builder, err := timeline.NewBuilder(timeline.ClipBounds{
		MinSec: h.cfg.Timeline.MinClipSec,
		MaxSec: h.cfg.Timeline.MaxClipSec,
	}, timeline.ExtensionStrategy(h.cfg.Timeline.ExtensionStrategy))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": err.Error()})
		return
	}

	tl, err := builder.Build(req.Segments)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": fmt.Sprintf("%d placements, %.1fs total", len(tl.Placements), tl.TotalSec),
		"data":    gin.H{"timeline": tl},
	})
}

// listOutputs returns every rendered video under the output directory
func (h *Handler) listOutputs(c *gin.Context) {
	type outputVideo struct {
		Name    string  `json:"name"`
		Path    string  `json:"path"`
		SizeMB  float64 `json:"size_mb"`
		Created string  `json:"created"`
	}

	videos := []outputVideo{}
	_ = filepath.Walk(h.cfg.Paths.Output, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() || filepath.Ext(path) != ".mp4" {
			return nil
		}
		videos = append(videos, outputVideo{
			Name:    info.Name(),
			Path:    path,
			SizeMB:  float64(info.Size()) / 1024 / 1024,
			Created: info.ModTime().UTC().Format(time.RFC3339),
		})
		return nil
	})

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": fmt.Sprintf("Found %d output videos", len(videos)),
		"data":    gin.H{"videos": videos},
	})
}

type startRequest struct {
	Topic string `json:"topic"`
}

// startPipeline launches a full pipeline run in the background and returns
// the session ID for status polling
func (h *Handler) startPipeline(c *gin.Context) {
	var req startRequest
	_ = c.ShouldBindJSON(&req)

	sess := h.sessions.Create(req.Topic)
	go h.runSession(sess.ID, req.Topic)

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Pipeline started",
		"data":    gin.H{"session_id": sess.ID},
	})
}

func (h *Handler) runSession(sessionID, topic string) {
	progress := func(phase string, percent int, message string) {
		h.sessions.Update(sessionID, func(s *Session) {
			s.Phase = phase
			s.Progress = percent
			s.Message = message
		})
	}

	state, err := h.runner.Run(context.Background(), sessionID, topic, progress)
	h.sessions.Update(sessionID, func(s *Session) {
		s.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		if err != nil {
			s.Status = "error"
			s.Error = err.Error()
			s.Message = "Pipeline failed"
			return
		}
		s.Status = "completed"
		s.Progress = 100
		s.Message = "Pipeline complete"
		s.VideoFile = state.VideoFile
	})
	if err != nil {
		log.Printf("[api] Session %s failed: %v", sessionID, err)
	}
}

func (h *Handler) pipelineStatus(c *gin.Context) {
	sess, ok := h.sessions.Get(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"status": "error", "message": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Pipeline status",
		"data":    sess,
	})
}

func (h *Handler) listPipelines(c *gin.Context) {
	sessions := h.sessions.List()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": fmt.Sprintf("%d pipeline sessions", len(sessions)),
		"data":    gin.H{"sessions": sessions},
	})
}
