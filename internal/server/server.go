package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/jaki95/ambient-mixer/config"
	"github.com/jaki95/ambient-mixer/internal/audio"
	"github.com/jaki95/ambient-mixer/internal/domain"
	"github.com/jaki95/ambient-mixer/internal/engine"
	"github.com/jaki95/ambient-mixer/internal/job"
)

// MixService edits and persists the current mix.
type MixService interface {
	Current() *domain.Mix
	AddTrack(ctx context.Context, id string, volume int) (*domain.Mix, error)
	RemoveTrack(ctx context.Context, id string) (*domain.Mix, error)
	SetTrackVolume(ctx context.Context, id string, volume int) (*domain.Mix, error)
	SetTrackVolumeLive(ctx context.Context, id string, volume int) error
	SetMasterVolume(ctx context.Context, volume int) (*domain.Mix, error)
	Clear(ctx context.Context) *domain.Mix
	Save(name string) error
	Saved(name string) (*domain.Mix, error)
	Load(ctx context.Context, name string) (*domain.Mix, error)
	ListSaved() ([]string, error)
	DeleteSaved(name string) error
}

// PlaybackStatus reports on live playback.
type PlaybackStatus interface {
	ServiceStatus(ctx context.Context) (audio.ServiceStatus, error)
	ActiveSounds() []string
}

// MixRenderer renders a mix to a file and returns where it was published.
type MixRenderer interface {
	Render(ctx context.Context, mix *domain.Mix, d time.Duration, format string, progress engine.ProgressFunc) (string, error)
}

// Deps are the collaborators the HTTP layer drives.
type Deps struct {
	Mixes    MixService
	Playback PlaybackStatus
	Syncer   interface{ Syncing() bool }
	Renderer MixRenderer
	Jobs     *job.Manager
}

// Server handles HTTP requests for the mixer
type Server struct {
	cfg    *config.Config
	router *gin.Engine

	mixes       MixService
	playback    PlaybackStatus
	syncer      interface{ Syncing() bool }
	renderer    MixRenderer
	jobManager  *job.Manager
	limiter     *rate.Limiter
	renderSlots chan struct{}
}

// New creates a new HTTP server instance
func New(cfg *config.Config, deps Deps) *Server {
	limit := rate.Inf
	if cfg.Server.EditRateLimit > 0 {
		limit = rate.Limit(cfg.Server.EditRateLimit)
	}

	jobs := deps.Jobs
	if jobs == nil {
		jobs = job.NewManager()
	}

	s := &Server{
		cfg:         cfg,
		router:      gin.Default(),
		mixes:       deps.Mixes,
		playback:    deps.Playback,
		syncer:      deps.Syncer,
		renderer:    deps.Renderer,
		jobManager:  jobs,
		limiter:     rate.NewLimiter(limit, max(cfg.Server.EditBurst, 1)),
		renderSlots: make(chan struct{}, max(cfg.Server.MaxConcurrentRenders, 1)),
	}

	s.setupRoutes(s.router)
	return s
}

// setupRoutes configures the HTTP routes
func (s *Server) setupRoutes(router *gin.Engine) {
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	router.GET("/health", s.health)

	api := router.Group("/api/v1")
	{
		api.GET("/status", s.getStatus)
		api.GET("/mix", s.getMix)

		edits := api.Group("", s.rateLimit())
		{
			edits.POST("/mix/tracks", s.addTrack)
			edits.DELETE("/mix/tracks/:id", s.removeTrack)
			edits.PUT("/mix/tracks/:id/volume", s.setTrackVolume)
			edits.PUT("/mix/master", s.setMasterVolume)
			edits.DELETE("/mix", s.clearMix)
			edits.POST("/mixes/:name/load", s.loadMix)
		}

		api.GET("/mixes", s.listMixes)
		api.POST("/mixes/:name", s.saveMix)
		api.DELETE("/mixes/:name", s.deleteMix)

		api.POST("/renders", s.startRender)
		api.GET("/renders", s.listJobs)
		api.GET("/renders/:id", s.getJobStatus)
		api.DELETE("/renders/:id", s.cancelJob)
	}
}

// Handler exposes the router for use with an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start(port string) error {
	return s.router.Run(":" + port)
}

// health godoc
// @Summary Health check
// @Tags Utility
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /health [get]
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getStatus godoc
// @Summary Playback status
// @Tags Utility
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /api/v1/status [get]
func (s *Server) getStatus(c *gin.Context) {
	status, err := s.playback.ServiceStatus(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	resp := StatusResponse{
		Service:      status,
		ActiveSounds: s.playback.ActiveSounds(),
		MixID:        s.mixes.Current().ID(),
	}
	if s.syncer != nil {
		resp.Syncing = s.syncer.Syncing()
	}
	c.JSON(http.StatusOK, resp)
}
